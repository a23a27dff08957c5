package state

// Tri is a three-valued read of a boolean in the state tree
type Tri int

const (
	Unknown Tri = iota
	True
	False
)

func (t Tri) String() string {
	switch t {
	case True:
		return "true"
	case False:
		return "false"
	default:
		return "unknown"
	}
}

// Bool collapses the read; unknown is treated as false
func (t Tri) Bool() bool {
	return t == True
}

// Known reports whether the tree actually carried the value
func (t Tri) Known() bool {
	return t != Unknown
}

// ReadBool reads a boolean at path. Missing or non-boolean values are Unknown.
func ReadBool(tree interface{}, path string) Tri {
	v, ok := Resolve(tree, path)
	if !ok {
		return Unknown
	}
	b, ok := v.(bool)
	if !ok {
		return Unknown
	}
	if b {
		return True
	}
	return False
}

// InteractState is the viewer's current relation to a note
type InteractState struct {
	Liked     Tri
	Collected Tri
}

// ReadInteractState reads liked/collected flags from a note detail entry
func ReadInteractState(detail interface{}) InteractState {
	return InteractState{
		Liked:     ReadBool(detail, "note.interactInfo.liked"),
		Collected: ReadBool(detail, "note.interactInfo.collected"),
	}
}

package jsonfile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doc struct {
	Name  string         `json:"name"`
	Count map[string]int `json:"count"`
}

func TestWriteAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "doc.json")

	in := doc{Name: "ledger", Count: map[string]int{"likes": 2}}
	require.NoError(t, Write(path, in, 0600))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temporary file must not survive a successful write")

	var out doc
	require.NoError(t, Read(path, &out))
	assert.Equal(t, in, out)
}

func TestReadMissing(t *testing.T) {
	var out doc
	err := Read(filepath.Join(t.TempDir(), "absent.json"), &out)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestReadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	var out doc
	err := Read(path, &out)
	require.Error(t, err)
	assert.False(t, errors.Is(err, os.ErrNotExist))
	assert.Contains(t, err.Error(), "bad.json")
}

func TestWriteReplacesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	require.NoError(t, Write(path, doc{Name: "first"}, 0600))
	require.NoError(t, Write(path, doc{Name: "second"}, 0600))

	var out doc
	require.NoError(t, Read(path, &out))
	assert.Equal(t, "second", out.Name)
}

func TestBackup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.json")

	// Missing source is a no-op
	require.NoError(t, Backup(path))
	_, err := os.Stat(path + ".backup")
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, Write(path, doc{Name: "keep"}, 0600))
	require.NoError(t, Backup(path))

	var out doc
	require.NoError(t, Read(path+".backup", &out))
	assert.Equal(t, "keep", out.Name)
}

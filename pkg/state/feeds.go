package state

// InteractCounts are the public engagement counters of a note, as displayed
type InteractCounts struct {
	LikedCount     string `json:"likedCount"`
	CollectedCount string `json:"collectedCount"`
	CommentCount   string `json:"commentCount"`
	SharedCount    string `json:"sharedCount"`
}

// FeedUser is the author summary shown on a card
type FeedUser struct {
	Nickname string `json:"nickname"`
	UserID   string `json:"userId"`
	Avatar   string `json:"avatar,omitempty"`
}

// FeedCard is the output shape of one note in a feed, search or profile listing
type FeedCard struct {
	ID           string         `json:"id"`
	XsecToken    string         `json:"xsecToken"`
	Title        string         `json:"title"`
	Type         string         `json:"type"`
	InteractInfo InteractCounts `json:"interactInfo"`
	User         FeedUser       `json:"user"`
	Cover        string         `json:"cover"`
	IsTop        bool           `json:"isTop,omitempty"`
	Time         string         `json:"time,omitempty"`
}

func zeroIfEmpty(s string) string {
	if s == "" {
		return "0"
	}
	return s
}

// MapFeedCard maps one raw feed record into a FeedCard
func MapFeedCard(raw interface{}) (FeedCard, bool) {
	item, ok := Unwrap(raw).(map[string]interface{})
	if !ok {
		return FeedCard{}, false
	}

	// Some listings nest the card under noteCard, others inline it
	var nc interface{} = item
	if card, ok := Map(item, "noteCard"); ok {
		nc = card
	}

	card := FeedCard{
		ID:        String(item, "id"),
		XsecToken: FirstString(item, "xsecToken", "xsec_token"),
		Title:     FirstString(nc, "displayTitle", "title"),
		Type:      String(nc, "type"),
		InteractInfo: InteractCounts{
			LikedCount:     zeroIfEmpty(String(nc, "interactInfo.likedCount")),
			CollectedCount: zeroIfEmpty(String(nc, "interactInfo.collectedCount")),
			CommentCount:   zeroIfEmpty(String(nc, "interactInfo.commentCount")),
			SharedCount:    zeroIfEmpty(String(nc, "interactInfo.sharedCount")),
		},
		User: FeedUser{
			Nickname: FirstString(nc, "user.nickname", "user.nickName"),
			UserID:   String(nc, "user.userId"),
			Avatar:   String(nc, "user.avatar"),
		},
		Cover: FirstString(nc, "cover.urlDefault", "cover.urlPre"),
		Time:  FirstString(item, "timestamp", "noteCard.createTime", "noteCard.time"),
	}

	for _, flag := range []string{"isTop", "stickyTop", "topFlag", "noteCard.isTop"} {
		if ReadBool(item, flag).Bool() {
			card.IsTop = true
		}
	}

	return card, card.ID != "" || card.Title != ""
}

// MapFeeds resolves a list at path, flattens one level and maps each record.
// Records that cannot be mapped are skipped. limit <= 0 means no limit.
func MapFeeds(tree interface{}, path string, limit int) []FeedCard {
	items, ok := List(tree, path)
	if !ok {
		return []FeedCard{}
	}

	cards := make([]FeedCard, 0, len(items))
	for _, raw := range items {
		card, ok := MapFeedCard(raw)
		if !ok {
			continue
		}
		cards = append(cards, card)
		if limit > 0 && len(cards) >= limit {
			break
		}
	}
	return cards
}

package xhs

import (
	"context"
	"time"

	"github.com/flyflypeng/xiaohongshu-skill/pkg/state"
)

const (
	exploreFeedsPath = "feed.feeds"
	exploreScrolls   = 3
	exploreScrollBy  = 800
)

// FeedList is a page of note cards
type FeedList struct {
	Count int              `json:"count"`
	Feeds []state.FeedCard `json:"feeds"`
}

func newFeedList(feeds []state.FeedCard) FeedList {
	if feeds == nil {
		feeds = []state.FeedCard{}
	}
	return FeedList{Count: len(feeds), Feeds: feeds}
}

// Explore reads up to limit cards from the explore feed, scrolling to load
// more when the first screen is short. A limit of 0 keeps whatever loaded.
func (c *Client) Explore(ctx context.Context, limit int) (FeedList, error) {
	if err := c.sess.Navigate(ctx, ExploreURL); err != nil {
		return FeedList{}, err
	}
	if err := c.sess.WaitForInitialState(ctx); err != nil {
		return FeedList{}, err
	}
	if err := c.sess.Sleep(ctx, 2*time.Second); err != nil {
		return FeedList{}, err
	}

	feeds, err := c.readFeeds(ctx, exploreFeedsPath, 0)
	if err != nil {
		return FeedList{}, err
	}

	for round := 0; limit > 0 && len(feeds) < limit && round < exploreScrolls; round++ {
		if err := c.sess.ScrollBy(ctx, exploreScrollBy); err != nil {
			return FeedList{}, err
		}
		if err := c.sess.Sleep(ctx, 1500*time.Millisecond); err != nil {
			return FeedList{}, err
		}

		more, err := c.readFeeds(ctx, exploreFeedsPath, 0)
		if err != nil {
			return FeedList{}, err
		}
		if len(more) > len(feeds) {
			feeds = more
		}
	}

	if limit > 0 && len(feeds) > limit {
		feeds = feeds[:limit]
	}

	c.logger.InfoWithFields("Explore feed read", map[string]interface{}{"count": len(feeds)})
	return newFeedList(feeds), nil
}

package xhs

import (
	"context"
	"time"

	errs "github.com/flyflypeng/xiaohongshu-skill/pkg/errors"
)

const (
	noteDetailPath       = "note.noteDetailMap."
	commentsWrapSelector = ".comments-wrap"
	moreCommentsSelector = ".more-comments"
	commentItemSelector  = ".comment-item"
	maxStagnantRounds    = 5
	defaultCommentRounds = 50
)

// DetailRequest identifies a note to read
type DetailRequest struct {
	FeedID       string
	XsecToken    string
	XsecSource   string
	LoadComments bool
	// MaxComments stops comment loading once this many are rendered; 0 loads until exhausted
	MaxComments int
}

// FeedDetail reads a note's detail entry from the page store
func (c *Client) FeedDetail(ctx context.Context, req DetailRequest) (map[string]interface{}, error) {
	if err := requireID("feed_id", req.FeedID); err != nil {
		return nil, err
	}

	target := FeedURL(req.FeedID, req.XsecToken, req.XsecSource)
	c.logger.InfoWithFields("Reading note", map[string]interface{}{"feed_id": req.FeedID})

	if err := c.sess.Navigate(ctx, target); err != nil {
		return nil, err
	}
	if err := c.sess.WaitForInitialState(ctx); err != nil {
		return nil, err
	}

	detail, err := c.noteDetail(ctx, req.FeedID)
	if err != nil {
		return nil, err
	}

	if req.LoadComments {
		if err := c.loadComments(ctx, req.MaxComments); err != nil {
			return nil, err
		}
		if refreshed, err := c.noteDetail(ctx, req.FeedID); err == nil {
			detail = refreshed
		} else if errs.IsFatal(err) {
			return nil, err
		}
	}

	return detail, nil
}

// noteDetail reads the detail map entry of one note, retrying while the store fills
func (c *Client) noteDetail(ctx context.Context, feedID string) (map[string]interface{}, error) {
	v, ok, err := c.sess.LookupPath(ctx, noteDetailPath+feedID)
	if err != nil {
		return nil, err
	}
	detail, isMap := v.(map[string]interface{})
	if !ok || !isMap {
		return nil, errs.New(errs.ErrorTypeExtraction, "note detail not found for "+feedID)
	}
	return detail, nil
}

// loadComments scrolls the comment list until it stops growing or reaches limit
func (c *Client) loadComments(ctx context.Context, limit int) error {
	page, err := c.sess.Page()
	if err != nil {
		return err
	}

	if err := page.ScrollIntoView(ctx, commentsWrapSelector); err != nil {
		c.logger.WithError(err).Debug("Comment section not found")
		return nil
	}

	attempts := defaultCommentRounds
	if limit > 0 {
		attempts = limit * 3
	}

	last, stagnant := 0, 0
	for i := 0; i < attempts && stagnant < maxStagnantRounds; i++ {
		if has, _ := page.Has(ctx, moreCommentsSelector); has {
			if err := page.Click(ctx, moreCommentsSelector); err != nil {
				c.logger.WithError(err).Debug("Show more comments click failed")
			}
		}

		if err := c.sess.ScrollBy(ctx, 300); err != nil {
			return err
		}
		if err := c.sess.Pause(ctx, 300*time.Millisecond, 700*time.Millisecond); err != nil {
			return err
		}

		count, err := page.Count(ctx, commentItemSelector)
		if err != nil {
			return errs.Wrap(errs.ErrorTypeBrowser, "failed to count comments", err)
		}
		if count > last {
			last, stagnant = count, 0
		} else {
			stagnant++
		}
		if limit > 0 && count >= limit {
			break
		}
	}

	c.logger.DebugWithFields("Comments loaded", map[string]interface{}{"count": last})
	return nil
}

package xhs

import (
	"context"
	"time"

	errs "github.com/flyflypeng/xiaohongshu-skill/pkg/errors"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/state"
)

const (
	LikeSelector    = ".interact-container .left .like-wrapper"
	CollectSelector = ".interact-container .left .collect-wrapper"
)

// Interaction verbs
const (
	ActionLike      = "like"
	ActionUnlike    = "unlike"
	ActionCollect   = "collect"
	ActionUncollect = "uncollect"
)

// InteractResult is the outcome of a like or collect toggle
type InteractResult struct {
	Status  string `json:"status"`
	Action  string `json:"action"`
	FeedID  string `json:"feed_id"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
}

// Skipped reports whether the note was already in the requested state
func (r InteractResult) Skipped() bool {
	return r.Reason != ""
}

type toggle struct {
	action   string
	selector string
	want     bool
	current  func(state.InteractState) state.Tri
	reason   string
	message  string
}

var toggles = map[string]toggle{
	ActionLike: {
		action: ActionLike, selector: LikeSelector, want: true,
		current: func(s state.InteractState) state.Tri { return s.Liked },
		reason:  "already_liked", message: "点赞成功",
	},
	ActionUnlike: {
		action: ActionUnlike, selector: LikeSelector, want: false,
		current: func(s state.InteractState) state.Tri { return s.Liked },
		reason:  "already_unliked", message: "取消点赞成功",
	},
	ActionCollect: {
		action: ActionCollect, selector: CollectSelector, want: true,
		current: func(s state.InteractState) state.Tri { return s.Collected },
		reason:  "already_collected", message: "收藏成功",
	},
	ActionUncollect: {
		action: ActionUncollect, selector: CollectSelector, want: false,
		current: func(s state.InteractState) state.Tri { return s.Collected },
		reason:  "already_uncollected", message: "取消收藏成功",
	},
}

// Like likes a note unless it is already liked
func (c *Client) Like(ctx context.Context, feedID, xsecToken string) (InteractResult, error) {
	return c.Interact(ctx, ActionLike, feedID, xsecToken)
}

// Unlike removes a like
func (c *Client) Unlike(ctx context.Context, feedID, xsecToken string) (InteractResult, error) {
	return c.Interact(ctx, ActionUnlike, feedID, xsecToken)
}

// Collect bookmarks a note unless it is already collected
func (c *Client) Collect(ctx context.Context, feedID, xsecToken string) (InteractResult, error) {
	return c.Interact(ctx, ActionCollect, feedID, xsecToken)
}

// Uncollect removes a bookmark
func (c *Client) Uncollect(ctx context.Context, feedID, xsecToken string) (InteractResult, error) {
	return c.Interact(ctx, ActionUncollect, feedID, xsecToken)
}

// Interact toggles a like or collect button. The current state is read from
// the page store first; an unreadable state counts as not liked/collected.
func (c *Client) Interact(ctx context.Context, action, feedID, xsecToken string) (InteractResult, error) {
	t, ok := toggles[action]
	if !ok {
		return InteractResult{}, errs.New(errs.ErrorTypeValidation, "unknown interaction "+action)
	}
	if err := requireID("feed_id", feedID); err != nil {
		return InteractResult{}, err
	}

	result := InteractResult{Action: action, FeedID: feedID}

	if err := c.openNote(ctx, feedID, xsecToken); err != nil {
		return InteractResult{}, err
	}

	current := state.Unknown
	if detail, err := c.noteDetail(ctx, feedID); err == nil {
		current = t.current(state.ReadInteractState(detail))
	} else if errs.IsFatal(err) {
		return InteractResult{}, err
	} else {
		c.logger.WithError(err).Debug("Interaction state unreadable")
	}

	if current.Bool() == t.want {
		result.Status = StatusSuccess
		result.Reason = t.reason
		c.logger.InfoWithFields("Interaction already applied", map[string]interface{}{
			"action":  action,
			"feed_id": feedID,
			"state":   current.String(),
		})
		return result, nil
	}

	page, err := c.sess.Page()
	if err != nil {
		return InteractResult{}, err
	}
	if err := page.Click(ctx, t.selector); err != nil {
		result.Status = StatusError
		result.Message = "button not found"
		return result, errs.Wrap(errs.ErrorTypeBrowser, action+" button not found", err)
	}
	if err := c.sess.Sleep(ctx, 1500*time.Millisecond); err != nil {
		return InteractResult{}, err
	}

	result.Status = StatusSuccess
	result.Message = t.message
	c.logger.InfoWithFields("Interaction applied", map[string]interface{}{
		"action":  action,
		"feed_id": feedID,
	})
	return result, nil
}

package xhs

import (
	"context"
	"fmt"
	"time"

	errs "github.com/flyflypeng/xiaohongshu-skill/pkg/errors"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/sop"
)

const (
	commentActivator = "div.input-box div.content-edit span"
	commentInput     = "div.input-box div.content-edit p.content-input"
	commentSubmit    = "div.bottom button.submit"
	replyButton      = ".reply-btn"
	typingDelay      = 50 * time.Millisecond
)

// CommentResult is the outcome of a comment or reply
type CommentResult struct {
	Status    string `json:"status"`
	FeedID    string `json:"feed_id"`
	CommentID string `json:"comment_id,omitempty"`
	Content   string `json:"content"`
	Message   string `json:"message,omitempty"`
}

func checkContent(content string) error {
	if reason := sop.CheckComment(content); reason != "" {
		return errs.New(errs.ErrorTypeValidation, "comment rejected: "+reason)
	}
	return nil
}

// Comment posts a top-level comment on a note
func (c *Client) Comment(ctx context.Context, feedID, xsecToken, content string) (CommentResult, error) {
	if err := requireID("feed_id", feedID); err != nil {
		return CommentResult{}, err
	}
	if err := checkContent(content); err != nil {
		return CommentResult{}, err
	}

	if err := c.openNote(ctx, feedID, xsecToken); err != nil {
		return CommentResult{}, err
	}
	if err := c.scrollToComments(ctx); err != nil {
		return CommentResult{}, err
	}
	if err := c.sess.Sleep(ctx, time.Second); err != nil {
		return CommentResult{}, err
	}

	if err := c.typeAndSubmit(ctx, content); err != nil {
		return CommentResult{}, err
	}

	c.logger.InfoWithFields("Comment posted", map[string]interface{}{"feed_id": feedID})
	return CommentResult{Status: StatusSuccess, FeedID: feedID, Content: content, Message: "评论成功"}, nil
}

// Reply posts a threaded reply to an existing comment
func (c *Client) Reply(ctx context.Context, feedID, xsecToken, commentID, content string) (CommentResult, error) {
	if err := requireID("feed_id", feedID); err != nil {
		return CommentResult{}, err
	}
	if err := requireID("comment_id", commentID); err != nil {
		return CommentResult{}, err
	}
	if err := checkContent(content); err != nil {
		return CommentResult{}, err
	}

	if err := c.openNote(ctx, feedID, xsecToken); err != nil {
		return CommentResult{}, err
	}
	if err := c.scrollToComments(ctx); err != nil {
		return CommentResult{}, err
	}
	if err := c.sess.Sleep(ctx, time.Second); err != nil {
		return CommentResult{}, err
	}

	page, err := c.sess.Page()
	if err != nil {
		return CommentResult{}, err
	}

	target := fmt.Sprintf(`[data-comment-id="%s"]`, commentID)
	if err := page.ScrollIntoView(ctx, target); err != nil {
		return CommentResult{}, errs.Wrap(errs.ErrorTypeExtraction, "comment "+commentID+" not found", err)
	}
	if err := page.Hover(ctx, target); err != nil {
		return CommentResult{}, errs.Wrap(errs.ErrorTypeBrowser, "failed to hover comment", err)
	}
	if err := c.sess.Sleep(ctx, 500*time.Millisecond); err != nil {
		return CommentResult{}, err
	}

	if err := page.Click(ctx, target+" "+replyButton); err != nil {
		clicked, cerr := c.clickText(ctx, target+" span", "回复")
		if cerr != nil {
			return CommentResult{}, cerr
		}
		if !clicked {
			return CommentResult{}, errs.Wrap(errs.ErrorTypeBrowser, "reply button not found", err)
		}
	}
	if err := c.sess.Sleep(ctx, 500*time.Millisecond); err != nil {
		return CommentResult{}, err
	}

	if err := c.typeAndSubmit(ctx, content); err != nil {
		return CommentResult{}, err
	}

	c.logger.InfoWithFields("Reply posted", map[string]interface{}{
		"feed_id":    feedID,
		"comment_id": commentID,
	})
	return CommentResult{Status: StatusSuccess, FeedID: feedID, CommentID: commentID, Content: content, Message: "回复成功"}, nil
}

// typeAndSubmit focuses the comment box, types content and submits it
func (c *Client) typeAndSubmit(ctx context.Context, content string) error {
	page, err := c.sess.Page()
	if err != nil {
		return err
	}

	if err := page.Click(ctx, commentActivator); err != nil {
		return errs.Wrap(errs.ErrorTypeBrowser, "comment box not found", err)
	}
	if err := c.sess.Sleep(ctx, 500*time.Millisecond); err != nil {
		return err
	}
	if err := page.Type(ctx, commentInput, content, typingDelay); err != nil {
		return errs.Wrap(errs.ErrorTypeBrowser, "failed to type comment", err)
	}
	if err := c.sess.Sleep(ctx, 500*time.Millisecond); err != nil {
		return err
	}
	if err := page.Click(ctx, commentSubmit); err != nil {
		return errs.Wrap(errs.ErrorTypeBrowser, "submit button not found", err)
	}
	return c.sess.Sleep(ctx, 1500*time.Millisecond)
}

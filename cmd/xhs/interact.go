package main

import (
	"context"

	errs "github.com/flyflypeng/xiaohongshu-skill/pkg/errors"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/logger"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/sop"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/strategy"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/xhs"
	"github.com/spf13/cobra"
)

var (
	interactToken string
	replyTo       string
)

// actionResult pairs a write result with the quota it consumed
type actionResult struct {
	Result interface{}        `json:"result"`
	Quota  *strategy.Recorded `json:"quota,omitempty"`
}

// quotaBlocked is printed instead of acting when the daily limit is reached
type quotaBlocked struct {
	Status string         `json:"status"`
	Reason string         `json:"reason"`
	Limit  strategy.Limit `json:"limit"`
}

// guarded runs a write action only while its quota allows, and records it
// unless the note was already in the requested state. An empty actionType
// runs unguarded.
func guarded(ctx context.Context, actionType string, act func(ctx context.Context, c *xhs.Client) (interface{}, bool, error)) error {
	var ledger *strategy.Ledger
	if actionType != "" {
		var err error
		if ledger, err = openLedger(); err != nil {
			return err
		}
		limit := ledger.CheckLimit(actionType)
		logger.LogQuota(logger.GetLogger(), actionType, limit.Used, limit.Limit, limit.Allowed)
		if !limit.Allowed {
			return emit(quotaBlocked{Status: "blocked", Reason: "quota exhausted", Limit: limit})
		}
	}

	return withClient(ctx, func(ctx context.Context, c *xhs.Client) (interface{}, error) {
		res, skipped, err := act(ctx, c)
		if err != nil {
			return nil, err
		}
		out := actionResult{Result: res}
		if ledger != nil && !skipped {
			recorded, err := ledger.RecordAction(actionType)
			if err != nil {
				logger.GetLogger().WithError(err).Warn("Failed to record action")
			} else {
				out.Quota = &recorded
			}
		}
		return out, nil
	})
}

// newInteractCmd builds one of the like/collect toggle commands
func newInteractCmd(action, short, actionType string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <feed-id> [xsec-token]",
		Short: short,
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			feedID, token := args[0], tokenArg(args, interactToken)
			return guarded(cmd.Context(), actionType, func(ctx context.Context, c *xhs.Client) (interface{}, bool, error) {
				res, err := c.Interact(ctx, action, feedID, token)
				return res, res.Skipped(), err
			})
		},
	}
}

// commentCmd represents the comment command
var commentCmd = &cobra.Command{
	Use:   "comment <feed-id> <content>",
	Short: "Post a comment on a note",
	Long: `Post a comment on a note, or a threaded reply when --reply-to names a comment id.
Comments count against the daily comment quota and replies against the reply quota.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runComment(cmd.Context(), args[0], replyTo, args[1])
	},
}

// replyCmd represents the reply command
var replyCmd = &cobra.Command{
	Use:   "reply <feed-id> <comment-id> <content>",
	Short: "Reply to a comment on a note",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runComment(cmd.Context(), args[0], args[1], args[2])
	},
}

func runComment(ctx context.Context, feedID, commentID, content string) error {
	if reason := sop.CheckComment(content); reason != "" {
		return errs.New(errs.ErrorTypeValidation, "comment rejected: "+reason)
	}

	actionType := strategy.ActionComments
	if commentID != "" {
		actionType = strategy.ActionReplies
	}
	return guarded(ctx, actionType, func(ctx context.Context, c *xhs.Client) (interface{}, bool, error) {
		if commentID != "" {
			res, err := c.Reply(ctx, feedID, interactToken, commentID, content)
			return res, false, err
		}
		res, err := c.Comment(ctx, feedID, interactToken, content)
		return res, false, err
	})
}

func init() {
	interactCmds := []*cobra.Command{
		newInteractCmd(xhs.ActionLike, "Like a note", strategy.ActionLikes),
		newInteractCmd(xhs.ActionUnlike, "Remove a like from a note", ""),
		newInteractCmd(xhs.ActionCollect, "Collect a note", strategy.ActionCollects),
		newInteractCmd(xhs.ActionUncollect, "Remove a note from collections", ""),
		commentCmd,
		replyCmd,
	}
	for _, cmd := range interactCmds {
		cmd.Flags().StringVar(&interactToken, "xsec-token", "", "note access token from a feed listing")
		rootCmd.AddCommand(cmd)
	}

	commentCmd.Flags().StringVar(&replyTo, "reply-to", "", "comment id to reply to")
}

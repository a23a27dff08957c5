package sop

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/flyflypeng/xiaohongshu-skill/pkg/logger"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/strategy"
)

// MaxCommentLength is the longest comment or reply accepted, in characters
const MaxCommentLength = 280

// Rejection reasons
const (
	RejectEmpty   = "empty"
	RejectTooLong = "too long"
)

// CommentItem is one requested comment. A non-empty CommentID makes it a
// threaded reply to that comment.
type CommentItem struct {
	FeedID      string `json:"feed_id"`
	XsecToken   string `json:"xsec_token"`
	Content     string `json:"content"`
	CommentID   string `json:"comment_id,omitempty"`
	ReplyUserID string `json:"reply_user_id,omitempty"`
}

// IsReply reports whether the item targets an existing comment
func (c CommentItem) IsReply() bool {
	return c.CommentID != ""
}

// ActionType is the quota bucket the item draws from
func (c CommentItem) ActionType() string {
	if c.IsReply() {
		return strategy.ActionReplies
	}
	return strategy.ActionComments
}

// Rejection is an item refused at planning time; it consumes no quota
type Rejection struct {
	Item   CommentItem `json:"item"`
	Reason string      `json:"reason"`
}

// QuotaUse is a used/limit pair
type QuotaUse struct {
	Used  int `json:"used"`
	Limit int `json:"limit"`
}

// CommentPlan is the result of comment/reply planning
type CommentPlan struct {
	Status               string              `json:"status"`
	Action               string              `json:"action"`
	TotalItems           int                 `json:"total_items"`
	ExecutableItems      int                 `json:"executable_items"`
	Rejected             []Rejection         `json:"rejected_items"`
	Items                []CommentItem       `json:"items"`
	CooldownRange        [2]float64          `json:"cooldown_range"`
	EstimatedTimeSeconds float64             `json:"estimated_time_seconds"`
	Quota                map[string]QuotaUse `json:"quota"`
	Message              string              `json:"message"`
	Log                  []Step              `json:"log"`
}

// CheckComment returns the rejection reason for content, or "" when acceptable
func CheckComment(content string) string {
	switch {
	case strings.TrimSpace(content) == "":
		return RejectEmpty
	case utf8.RuneCountInString(content) > MaxCommentLength:
		return RejectTooLong
	default:
		return ""
	}
}

// PlanComments validates the batch and keeps, in request order, as many plain
// comments and threaded replies as their remaining quotas allow. The estimate
// is count × mean cooldown, in seconds.
func (e *Engine) PlanComments(items []CommentItem, cooldownMin, cooldownMax float64) CommentPlan {
	log := e.newLog("comment")

	log.add("配额检查", "开始", "")
	commentLimit := e.quota.CheckLimit(strategy.ActionComments)
	replyLimit := e.quota.CheckLimit(strategy.ActionReplies)

	log.add("内容校验", "开始", "")
	var valid []CommentItem
	rejected := []Rejection{}
	requestedComments, requestedReplies := 0, 0
	for _, item := range items {
		if reason := CheckComment(item.Content); reason != "" {
			rejected = append(rejected, Rejection{Item: item, Reason: reason})
			continue
		}
		valid = append(valid, item)
		if item.IsReply() {
			requestedReplies++
		} else {
			requestedComments++
		}
	}
	log.add("内容校验", "完成", fmt.Sprintf("有效 %d, 拒绝 %d", len(valid), len(rejected)))

	if requestedComments > 0 && !commentLimit.Allowed {
		log.add("配额检查", "警告", "评论配额已用完")
	}
	if requestedReplies > 0 && !replyLimit.Allowed {
		log.add("配额检查", "警告", "回复配额已用完")
	}

	availableComments := min(requestedComments, commentLimit.Remaining)
	availableReplies := min(requestedReplies, replyLimit.Remaining)
	log.add("配额检查", "完成", fmt.Sprintf("评论 %d/%d, 回复 %d/%d",
		availableComments, requestedComments, availableReplies, requestedReplies))

	log.add("执行计划", "生成", "")
	executable := make([]CommentItem, 0, availableComments+availableReplies)
	takenComments, takenReplies := 0, 0
	for _, item := range valid {
		if item.IsReply() {
			if takenReplies < availableReplies {
				executable = append(executable, item)
				takenReplies++
			}
			continue
		}
		if takenComments < availableComments {
			executable = append(executable, item)
			takenComments++
		}
	}

	estimated := float64(len(executable)) * (cooldownMin + cooldownMax) / 2

	status := StatusReady
	if len(valid) > 0 && len(executable) == 0 {
		status = StatusBlocked
	}

	logger.LogPlan(e.logger, "comment", status, map[string]interface{}{
		"executable": len(executable),
		"rejected":   len(rejected),
	})

	return CommentPlan{
		Status:               status,
		Action:               "comment_sop",
		TotalItems:           len(items),
		ExecutableItems:      len(executable),
		Rejected:             rejected,
		Items:                executable,
		CooldownRange:        [2]float64{cooldownMin, cooldownMax},
		EstimatedTimeSeconds: estimated,
		Quota: map[string]QuotaUse{
			strategy.ActionComments: {Used: commentLimit.Used, Limit: commentLimit.Limit},
			strategy.ActionReplies:  {Used: replyLimit.Used, Limit: replyLimit.Limit},
		},
		Message: fmt.Sprintf("回复计划已生成，共 %d 条，预计耗时 %.0f 秒。", len(executable), estimated),
		Log:     log.steps,
	}
}

// Cooldown draws a pause in [min, max] seconds from the planner's random source
func (e *Engine) Cooldown(min, max float64) float64 {
	return e.uniform(min, max)
}

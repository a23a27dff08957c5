package sop

import (
	"fmt"
	"strings"

	"github.com/flyflypeng/xiaohongshu-skill/pkg/logger"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/strategy"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/templates"
)

// PublishRequest describes the note to plan. Empty title or content are
// filled from templates.
type PublishRequest struct {
	Topic       string
	NoteType    string
	Title       string
	Content     string
	ImagePaths  []string
	AutoPublish bool
}

// StrategyInfo is the quota context attached to a ready publish plan
type StrategyInfo struct {
	PublishRemaining int      `json:"publish_remaining"`
	BestTimes        []string `json:"best_times"`
}

// PublishPlan is the result of publish planning
type PublishPlan struct {
	Status           string                `json:"status"`
	Reason           string                `json:"reason,omitempty"`
	Action           string                `json:"action,omitempty"`
	Topic            string                `json:"topic,omitempty"`
	NoteType         string                `json:"note_type,omitempty"`
	Title            string                `json:"title,omitempty"`
	TitleSuggestions []string              `json:"title_suggestions,omitempty"`
	Content          string                `json:"content,omitempty"`
	Tags             []string              `json:"tags,omitempty"`
	ImagePaths       []string              `json:"image_paths,omitempty"`
	AutoPublish      bool                  `json:"auto_publish"`
	Validation       *templates.Validation `json:"validation,omitempty"`
	Errors           []string              `json:"errors,omitempty"`
	Warnings         []string              `json:"warnings,omitempty"`
	StrategyInfo     *StrategyInfo         `json:"strategy_info,omitempty"`
	Message          string                `json:"message"`
	Log              []Step                `json:"log"`
}

// Ready reports whether the plan may be executed
func (p PublishPlan) Ready() bool {
	return p.Status == StatusReady
}

// PlanPublish checks the publish quota, fills missing title and body from
// templates and validates them. A ready plan consumes one publishes unit at
// planning time: the plan is treated as a committed intent. The error is
// non-nil only when that unit could not be persisted.
func (e *Engine) PlanPublish(req PublishRequest) (PublishPlan, error) {
	log := e.newLog("publish")
	noteType := req.NoteType
	if noteType == "" {
		noteType = templates.NoteTypeImage
	}

	log.add("配额检查", "开始", "")
	limit := e.quota.CheckLimit(strategy.ActionPublishes)
	if !limit.Allowed {
		log.add("配额检查", "失败", fmt.Sprintf("今日发布已达上限 (%d)", limit.Limit))
		logger.LogPlan(e.logger, "publish", StatusBlocked, map[string]interface{}{"used": limit.Used, "limit": limit.Limit})
		return PublishPlan{
			Status:  StatusBlocked,
			Reason:  "daily_limit_exceeded",
			Message: fmt.Sprintf("今日发布已达上限 (%d/%d)", limit.Used, limit.Limit),
			Log:     log.steps,
		}, nil
	}
	log.add("配额检查", "通过", fmt.Sprintf("剩余 %d 次", limit.Remaining))

	log.add("选题分析", "开始", req.Topic)
	tmpl := e.templates.Generate(req.Topic, noteType)
	log.add("选题分析", "完成", fmt.Sprintf("生成 %d 个标题建议", len(tmpl.Titles)))

	title := req.Title
	if title == "" && len(tmpl.Titles) > 0 {
		title = tmpl.Titles[0]
	}
	content := req.Content
	if content == "" {
		content = tmpl.Content.Hook + "\n\n（请在此填写正文内容）\n\n" + tmpl.Content.Closing
	}
	log.add("内容准备", "完成", "标题: "+title)

	log.add("内容校验", "开始", "")
	validation := templates.Validate(title, content, tmpl.Tags, noteType)
	if !validation.Valid {
		log.add("内容校验", "失败", strings.Join(validation.Errors, "; "))
		logger.LogPlan(e.logger, "publish", StatusValidationError, map[string]interface{}{"errors": len(validation.Errors)})
		return PublishPlan{
			Status:   StatusValidationError,
			Errors:   validation.Errors,
			Warnings: validation.Warnings,
			Message:  "内容校验未通过",
			Log:      log.steps,
		}, nil
	}
	if len(validation.Warnings) > 0 {
		log.add("内容校验", "警告", strings.Join(validation.Warnings, "; "))
	} else {
		log.add("内容校验", "通过", "")
	}

	log.add("发布计划", "生成完成", "")

	imagePaths := req.ImagePaths
	if imagePaths == nil {
		imagePaths = []string{}
	}

	plan := PublishPlan{
		Status:           StatusReady,
		Action:           "publish_" + noteType,
		Topic:            req.Topic,
		NoteType:         noteType,
		Title:            title,
		TitleSuggestions: tmpl.Titles,
		Content:          content,
		Tags:             tmpl.Tags,
		ImagePaths:       imagePaths,
		AutoPublish:      req.AutoPublish,
		Validation:       &validation,
		StrategyInfo: &StrategyInfo{
			PublishRemaining: limit.Remaining,
			BestTimes:        e.quota.BestPublishTimes(),
		},
		Message: "发布计划已生成。请确认内容后执行发布。",
		Log:     log.steps,
	}

	if _, err := e.quota.RecordAction(strategy.ActionPublishes); err != nil {
		return plan, fmt.Errorf("failed to record planned publish: %w", err)
	}

	logger.LogPlan(e.logger, "publish", StatusReady, map[string]interface{}{"topic": req.Topic, "note_type": noteType})
	return plan, nil
}

package sop

import (
	"fmt"
	"math"

	"github.com/flyflypeng/xiaohongshu-skill/pkg/config"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/logger"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/strategy"
)

// Intents sampled while browsing
const (
	IntentLike    = "like"
	IntentCollect = "collect"
	IntentComment = "comment"
)

// IntentActionType maps a browsing intent to its quota bucket
func IntentActionType(intent string) string {
	switch intent {
	case IntentLike:
		return strategy.ActionLikes
	case IntentCollect:
		return strategy.ActionCollects
	case IntentComment:
		return strategy.ActionComments
	default:
		return ""
	}
}

// ExploreOptions tune feed interaction sampling; intervals are in seconds
type ExploreOptions struct {
	FeedCount          int
	LikeProbability    float64
	CollectProbability float64
	CommentProbability float64
	IntervalMin        float64
	IntervalMax        float64
}

// ExploreOptionsFromConfig takes the defaults from configuration
func ExploreOptionsFromConfig(cfg config.SOPConfig) ExploreOptions {
	return ExploreOptions{
		FeedCount:          cfg.FeedCount,
		LikeProbability:    cfg.LikeProbability,
		CollectProbability: cfg.CollectProbability,
		CommentProbability: cfg.CommentProbability,
		IntervalMin:        cfg.IntervalMin,
		IntervalMax:        cfg.IntervalMax,
	}
}

// ExploreItem is the plan for one browsed note
type ExploreItem struct {
	FeedIndex int      `json:"feed_index"`
	Actions   []string `json:"actions"`
	Interval  float64  `json:"interval"`
}

// ExplorePlan is the result of browse planning
type ExplorePlan struct {
	Status               string             `json:"status"`
	Action               string             `json:"action"`
	FeedCount            int                `json:"feed_count"`
	Probabilities        map[string]float64 `json:"probabilities"`
	PlannedActions       map[string]int     `json:"planned_actions"`
	ActionsPlan          []ExploreItem      `json:"actions_plan"`
	EstimatedTimeSeconds float64            `json:"estimated_time_seconds"`
	QuotaRemaining       map[string]int     `json:"quota_remaining"`
	Message              string             `json:"message"`
	Log                  []Step             `json:"log"`
}

// sampler accepts an intent while its simulated quota lasts
type sampler struct {
	intent      string
	probability float64
	remaining   int
	accepted    int
}

// PlanExplore samples like/collect/comment intents for each of FeedCount
// notes. A sampled intent is kept only while its action type has simulated
// quota left. Each note also gets a browsing interval rounded to 0.1s.
func (e *Engine) PlanExplore(opts ExploreOptions) ExplorePlan {
	log := e.newLog("explore")

	log.add("配额检查", "开始", "")
	samplers := []*sampler{
		{intent: IntentLike, probability: opts.LikeProbability, remaining: e.quota.CheckLimit(strategy.ActionLikes).Remaining},
		{intent: IntentCollect, probability: opts.CollectProbability, remaining: e.quota.CheckLimit(strategy.ActionCollects).Remaining},
		{intent: IntentComment, probability: opts.CommentProbability, remaining: e.quota.CheckLimit(strategy.ActionComments).Remaining},
	}
	log.add("配额检查", "完成", fmt.Sprintf("点赞剩余 %d, 收藏剩余 %d, 评论剩余 %d",
		samplers[0].remaining, samplers[1].remaining, samplers[2].remaining))

	log.add("互动计划", "生成中", "")
	items := make([]ExploreItem, 0, max(opts.FeedCount, 0))
	var total float64
	for i := 0; i < opts.FeedCount; i++ {
		actions := []string{}
		for _, s := range samplers {
			// Always draw so the stream does not depend on quota state
			if e.rng.Float64() < s.probability && s.accepted < s.remaining {
				actions = append(actions, s.intent)
				s.accepted++
			}
		}

		interval := math.Round(e.uniform(opts.IntervalMin, opts.IntervalMax)*10) / 10
		total += interval
		items = append(items, ExploreItem{FeedIndex: i + 1, Actions: actions, Interval: interval})
	}
	total = math.Round(total*10) / 10

	planned := map[string]int{
		strategy.ActionLikes:    samplers[0].accepted,
		strategy.ActionCollects: samplers[1].accepted,
		strategy.ActionComments: samplers[2].accepted,
	}
	log.add("互动计划", "完成", fmt.Sprintf("点赞 %d, 收藏 %d, 评论 %d",
		samplers[0].accepted, samplers[1].accepted, samplers[2].accepted))

	logger.LogPlan(e.logger, "explore", StatusReady, map[string]interface{}{
		"feed_count": opts.FeedCount,
		"likes":      samplers[0].accepted,
		"collects":   samplers[1].accepted,
		"comments":   samplers[2].accepted,
	})

	return ExplorePlan{
		Status:    StatusReady,
		Action:    "explore_sop",
		FeedCount: opts.FeedCount,
		Probabilities: map[string]float64{
			IntentLike:    opts.LikeProbability,
			IntentCollect: opts.CollectProbability,
			IntentComment: opts.CommentProbability,
		},
		PlannedActions:       planned,
		ActionsPlan:          items,
		EstimatedTimeSeconds: total,
		QuotaRemaining: map[string]int{
			strategy.ActionLikes:    samplers[0].remaining - samplers[0].accepted,
			strategy.ActionCollects: samplers[1].remaining - samplers[1].accepted,
			strategy.ActionComments: samplers[2].remaining - samplers[2].accepted,
		},
		Message: fmt.Sprintf("推荐流互动计划已生成，共 %d 条笔记，预计点赞 %d 次、收藏 %d 次、评论 %d 次，预计耗时 %.0f 秒。",
			opts.FeedCount, samplers[0].accepted, samplers[1].accepted, samplers[2].accepted, total),
		Log: log.steps,
	}
}

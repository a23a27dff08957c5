package sop

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/flyflypeng/xiaohongshu-skill/pkg/logger"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeQuota is an in-memory ledger
type fakeQuota struct {
	limits    map[string]int
	used      map[string]int
	recordErr error
}

func newFakeQuota() *fakeQuota {
	return &fakeQuota{limits: strategy.DefaultDailyLimits(), used: map[string]int{}}
}

func (f *fakeQuota) CheckLimit(actionType string) strategy.Limit {
	limit, used := f.limits[actionType], f.used[actionType]
	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}
	return strategy.Limit{ActionType: actionType, Allowed: remaining > 0, Used: used, Limit: limit, Remaining: remaining}
}

func (f *fakeQuota) RecordAction(actionType string) (strategy.Recorded, error) {
	if f.recordErr != nil {
		return strategy.Recorded{}, f.recordErr
	}
	f.used[actionType]++
	return strategy.Recorded{Status: "recorded", ActionType: actionType, TodayCount: f.used[actionType]}, nil
}

func (f *fakeQuota) BestPublishTimes() []string {
	return strategy.BestPublishTimes()
}

func newEngine(q Quota, seed int64) *Engine {
	fixed := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	return NewEngine(q, seed, WithLogger(logger.NewNopLogger()), WithClock(func() time.Time { return fixed }))
}

func TestPlanPublishReady(t *testing.T) {
	q := newFakeQuota()
	plan, err := newEngine(q, 1).PlanPublish(PublishRequest{Topic: "旅行", ImagePaths: []string{"a.jpg"}})
	require.NoError(t, err)

	assert.True(t, plan.Ready())
	assert.Equal(t, "publish_图文", plan.Action)
	assert.Equal(t, plan.TitleSuggestions[0], plan.Title)
	assert.Contains(t, plan.Content, "（请在此填写正文内容）")
	assert.Len(t, plan.Tags, 6)
	assert.Equal(t, 3, plan.StrategyInfo.PublishRemaining)
	assert.NotEmpty(t, plan.StrategyInfo.BestTimes)
	assert.NotEmpty(t, plan.Log)

	// Planning consumes one publish unit
	assert.Equal(t, 1, q.used[strategy.ActionPublishes])
}

func TestPlanPublishBlocked(t *testing.T) {
	q := newFakeQuota()
	q.used[strategy.ActionPublishes] = 3

	plan, err := newEngine(q, 1).PlanPublish(PublishRequest{Topic: "旅行"})
	require.NoError(t, err)

	assert.Equal(t, StatusBlocked, plan.Status)
	assert.Equal(t, "daily_limit_exceeded", plan.Reason)
	assert.Empty(t, plan.Title)
	assert.Empty(t, plan.Tags)
	assert.Equal(t, 3, q.used[strategy.ActionPublishes])
}

func TestPlanPublishValidationError(t *testing.T) {
	q := newFakeQuota()

	plan, err := newEngine(q, 1).PlanPublish(PublishRequest{
		Topic: "旅行",
		Title: strings.Repeat("长", 25),
	})
	require.NoError(t, err)

	assert.Equal(t, StatusValidationError, plan.Status)
	require.NotEmpty(t, plan.Errors)
	assert.Contains(t, plan.Errors[0], "标题超长")
	assert.Zero(t, q.used[strategy.ActionPublishes], "invalid plans consume no quota")
}

func TestPlanPublishRecordFailure(t *testing.T) {
	q := newFakeQuota()
	q.recordErr = errors.New("disk full")

	plan, err := newEngine(q, 1).PlanPublish(PublishRequest{Topic: "美食", Title: "今日早餐", Content: "一碗热腾腾的小馄饨，配上葱花"})
	require.Error(t, err)
	assert.True(t, plan.Ready())
	assert.Equal(t, "今日早餐", plan.Title)
}

func TestPlanPublishDeterministic(t *testing.T) {
	a, err := newEngine(newFakeQuota(), 99).PlanPublish(PublishRequest{Topic: "健身"})
	require.NoError(t, err)
	b, err := newEngine(newFakeQuota(), 99).PlanPublish(PublishRequest{Topic: "健身"})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestPlanCommentsRejectsEmpty(t *testing.T) {
	plan := newEngine(newFakeQuota(), 1).PlanComments([]CommentItem{
		{FeedID: "f1", Content: "   "},
		{FeedID: "f2", Content: "写得真好"},
	}, 15, 30)

	require.Len(t, plan.Rejected, 1)
	assert.Equal(t, RejectEmpty, plan.Rejected[0].Reason)
	assert.Equal(t, "f1", plan.Rejected[0].Item.FeedID)
	assert.Equal(t, 1, plan.ExecutableItems)
	assert.Equal(t, 2, plan.TotalItems)
	assert.Equal(t, 22.5, plan.EstimatedTimeSeconds)
	assert.Equal(t, StatusReady, plan.Status)
}

func TestPlanCommentsRejectsTooLong(t *testing.T) {
	plan := newEngine(newFakeQuota(), 1).PlanComments([]CommentItem{
		{FeedID: "f1", Content: strings.Repeat("好", 300)},
		{FeedID: "f2", Content: strings.Repeat("好", MaxCommentLength)},
	}, 15, 30)

	require.Len(t, plan.Rejected, 1)
	assert.Equal(t, RejectTooLong, plan.Rejected[0].Reason)
	assert.Equal(t, 1, plan.ExecutableItems)
}

func TestPlanCommentsRespectsQuotas(t *testing.T) {
	q := newFakeQuota()
	q.used[strategy.ActionComments] = 9
	q.used[strategy.ActionReplies] = 19

	items := []CommentItem{
		{FeedID: "f1", Content: "c1"},
		{FeedID: "f1", Content: "r1", CommentID: "x1"},
		{FeedID: "f2", Content: "c2"},
		{FeedID: "f2", Content: "r2", CommentID: "x2"},
		{FeedID: "f3", Content: "c3"},
	}
	plan := newEngine(q, 1).PlanComments(items, 10, 20)

	require.Equal(t, 2, plan.ExecutableItems)
	assert.Equal(t, "c1", plan.Items[0].Content)
	assert.Equal(t, "r1", plan.Items[1].Content)
	assert.Equal(t, QuotaUse{Used: 9, Limit: 10}, plan.Quota[strategy.ActionComments])
	assert.Equal(t, 30.0, plan.EstimatedTimeSeconds)
}

func TestPlanCommentsBlockedWhenExhausted(t *testing.T) {
	q := newFakeQuota()
	q.used[strategy.ActionComments] = 10

	plan := newEngine(q, 1).PlanComments([]CommentItem{{FeedID: "f1", Content: "hi"}}, 15, 30)
	assert.Equal(t, StatusBlocked, plan.Status)
	assert.Zero(t, plan.ExecutableItems)
	assert.Empty(t, plan.Rejected)
}

func TestCheckComment(t *testing.T) {
	assert.Equal(t, RejectEmpty, CheckComment(""))
	assert.Equal(t, RejectTooLong, CheckComment(strings.Repeat("a", 281)))
	assert.Equal(t, "", CheckComment(strings.Repeat("好", 280)))
}

func TestCommentItemActionType(t *testing.T) {
	assert.Equal(t, strategy.ActionComments, CommentItem{}.ActionType())
	assert.Equal(t, strategy.ActionReplies, CommentItem{CommentID: "c"}.ActionType())
}

func TestPlanExploreLikeOnly(t *testing.T) {
	plan := newEngine(newFakeQuota(), 3).PlanExplore(ExploreOptions{
		FeedCount:       20,
		LikeProbability: 1.0,
		IntervalMin:     5,
		IntervalMax:     10,
	})

	require.Len(t, plan.ActionsPlan, 20)
	var total float64
	for i, item := range plan.ActionsPlan {
		assert.Equal(t, i+1, item.FeedIndex)
		assert.Equal(t, []string{IntentLike}, item.Actions)
		assert.GreaterOrEqual(t, item.Interval, 5.0)
		assert.LessOrEqual(t, item.Interval, 10.0)
		total += item.Interval
	}
	assert.Equal(t, 20, plan.PlannedActions[strategy.ActionLikes])
	assert.Zero(t, plan.PlannedActions[strategy.ActionCollects])
	assert.Zero(t, plan.PlannedActions[strategy.ActionComments])
	assert.Equal(t, 10, plan.QuotaRemaining[strategy.ActionLikes])
	assert.InDelta(t, total, plan.EstimatedTimeSeconds, 0.05)
}

func TestPlanExploreCapsAtLimit(t *testing.T) {
	q := newFakeQuota()
	q.limits[strategy.ActionLikes] = 2

	for _, count := range []int{1, 2, 5, 50} {
		plan := newEngine(q, int64(count)).PlanExplore(ExploreOptions{FeedCount: count, LikeProbability: 1.0})
		likes := 0
		for _, item := range plan.ActionsPlan {
			for _, a := range item.Actions {
				if a == IntentLike {
					likes++
				}
			}
		}
		assert.LessOrEqual(t, likes, 2, "feed count %d", count)
		assert.Equal(t, min(count, 2), likes)
	}
}

func TestPlanExploreDeterministic(t *testing.T) {
	opts := ExploreOptions{FeedCount: 10, LikeProbability: 0.3, CollectProbability: 0.1, CommentProbability: 0.05, IntervalMin: 5, IntervalMax: 10}
	a := newEngine(newFakeQuota(), 42).PlanExplore(opts)
	b := newEngine(newFakeQuota(), 42).PlanExplore(opts)
	assert.Equal(t, a, b)
}

func TestPlanExploreZeroFeeds(t *testing.T) {
	plan := newEngine(newFakeQuota(), 1).PlanExplore(ExploreOptions{})
	assert.Empty(t, plan.ActionsPlan)
	assert.Zero(t, plan.EstimatedTimeSeconds)
}

func TestIntentActionType(t *testing.T) {
	assert.Equal(t, strategy.ActionLikes, IntentActionType(IntentLike))
	assert.Equal(t, strategy.ActionCollects, IntentActionType(IntentCollect))
	assert.Equal(t, strategy.ActionComments, IntentActionType(IntentComment))
	assert.Equal(t, "", IntentActionType("share"))
}

func TestPlanPublishWithLedger(t *testing.T) {
	ledger, err := strategy.Open(filepath.Join(t.TempDir(), "strategy.json"), strategy.WithLogger(logger.NewNopLogger()))
	require.NoError(t, err)

	e := newEngine(ledger, 5)
	for i := 0; i < 3; i++ {
		plan, err := e.PlanPublish(PublishRequest{Topic: "穿搭"})
		require.NoError(t, err)
		assert.True(t, plan.Ready())
	}

	plan, err := e.PlanPublish(PublishRequest{Topic: "穿搭"})
	require.NoError(t, err)
	assert.Equal(t, StatusBlocked, plan.Status)
	assert.Equal(t, 3, ledger.CheckLimit(strategy.ActionPublishes).Used)
}

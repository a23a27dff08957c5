package executor

import (
	"context"
	"math/rand"
	"testing"
	"time"

	errs "github.com/flyflypeng/xiaohongshu-skill/pkg/errors"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/logger"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/sop"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/state"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/strategy"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/xhs"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// MockActor records calls and fails per feed id
type MockActor struct {
	calls   []string
	fail    map[string]error
	already map[string]bool
}

func (m *MockActor) do(action, feedID string) error {
	m.calls = append(m.calls, action+":"+feedID)
	return m.fail[feedID]
}

func (m *MockActor) Like(ctx context.Context, feedID, xsecToken string) (xhs.InteractResult, error) {
	if err := m.do(ActionLike, feedID); err != nil {
		return xhs.InteractResult{Status: xhs.StatusError}, err
	}
	if m.already[feedID] {
		return xhs.InteractResult{Status: xhs.StatusSuccess, Reason: "already_liked"}, nil
	}
	return xhs.InteractResult{Status: xhs.StatusSuccess}, nil
}

func (m *MockActor) Collect(ctx context.Context, feedID, xsecToken string) (xhs.InteractResult, error) {
	return xhs.InteractResult{Status: xhs.StatusSuccess}, m.do(ActionCollect, feedID)
}

func (m *MockActor) Comment(ctx context.Context, feedID, xsecToken, content string) (xhs.CommentResult, error) {
	return xhs.CommentResult{Status: xhs.StatusSuccess}, m.do(ActionComment, feedID)
}

func (m *MockActor) Reply(ctx context.Context, feedID, xsecToken, commentID, content string) (xhs.CommentResult, error) {
	return xhs.CommentResult{Status: xhs.StatusSuccess}, m.do(ActionReply, feedID)
}

// MockLedger keeps in-memory counters against fixed limits
type MockLedger struct {
	limits map[string]int
	used   map[string]int
}

func NewMockLedger(limits map[string]int) *MockLedger {
	return &MockLedger{limits: limits, used: map[string]int{}}
}

func (m *MockLedger) CheckLimit(actionType string) strategy.Limit {
	limit := m.limits[actionType]
	used := m.used[actionType]
	return strategy.Limit{
		ActionType: actionType,
		Allowed:    used < limit,
		Used:       used,
		Limit:      limit,
		Remaining:  max(limit-used, 0),
	}
}

func (m *MockLedger) RecordAction(actionType string) (strategy.Recorded, error) {
	m.used[actionType]++
	return strategy.Recorded{Status: "recorded", ActionType: actionType, TodayCount: m.used[actionType]}, nil
}

func (m *MockLedger) BestPublishTimes() []string {
	return strategy.BestPublishTimes()
}

type sleepLog struct {
	sleeps []time.Duration
}

func (s *sleepLog) Sleep(ctx context.Context, d time.Duration) error {
	s.sleeps = append(s.sleeps, d)
	return ctx.Err()
}

func newExecutor(actor Actor, ledger Ledger, sleeps *sleepLog) *Executor {
	return New(actor, ledger,
		WithSleep(sleeps.Sleep),
		WithRand(rand.New(rand.NewSource(3))),
		WithLogger(logger.NewNopLogger()),
	)
}

func commentPlan(items ...sop.CommentItem) sop.CommentPlan {
	return sop.CommentPlan{Status: sop.StatusReady, Items: items, CooldownRange: [2]float64{30, 60}}
}

func TestRunCommentsChecksActsAndRecords(t *testing.T) {
	actor := &MockActor{}
	ledger := NewMockLedger(map[string]int{strategy.ActionComments: 10, strategy.ActionReplies: 10})
	sleeps := &sleepLog{}

	report, err := newExecutor(actor, ledger, sleeps).RunComments(context.Background(), commentPlan(
		sop.CommentItem{FeedID: "n1", Content: "好看"},
		sop.CommentItem{FeedID: "n2", Content: "谢谢", CommentID: "c9"},
		sop.CommentItem{FeedID: "n3", Content: "收藏了"},
	))
	require.NoError(t, err)

	assert.Equal(t, RunCompleted, report.Status)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 3, report.Succeeded)
	if diff := cmp.Diff([]string{"comment:n1", "reply:n2", "comment:n3"}, actor.calls); diff != "" {
		t.Errorf("actor calls mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 2, ledger.used[strategy.ActionComments])
	assert.Equal(t, 1, ledger.used[strategy.ActionReplies])

	// Cooldowns fall between items, never after the last
	require.Len(t, sleeps.sleeps, 2)
	for _, d := range sleeps.sleeps {
		assert.GreaterOrEqual(t, d, 30*time.Second)
		assert.LessOrEqual(t, d, 60*time.Second)
	}
}

func TestRunCommentsBlocksWhenQuotaRunsOut(t *testing.T) {
	actor := &MockActor{}
	ledger := NewMockLedger(map[string]int{strategy.ActionComments: 1})

	report, err := newExecutor(actor, ledger, &sleepLog{}).RunComments(context.Background(), commentPlan(
		sop.CommentItem{FeedID: "n1", Content: "a"},
		sop.CommentItem{FeedID: "n2", Content: "b"},
	))
	require.NoError(t, err)

	assert.Equal(t, []string{"comment:n1"}, actor.calls)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 1, report.Blocked)
	assert.Equal(t, "quota exhausted", report.Results[1].Reason)
}

func TestRunCommentsRecordsFailuresAndContinues(t *testing.T) {
	actor := &MockActor{fail: map[string]error{
		"n1": errs.New(errs.ErrorTypeBrowser, "comment box not found"),
	}}
	ledger := NewMockLedger(map[string]int{strategy.ActionComments: 10})

	report, err := newExecutor(actor, ledger, &sleepLog{}).RunComments(context.Background(), commentPlan(
		sop.CommentItem{FeedID: "n1", Content: "a"},
		sop.CommentItem{FeedID: "n2", Content: "b"},
	))
	require.NoError(t, err)

	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Succeeded)
	require.NotNil(t, report.Results[0].Failure)
	assert.Equal(t, errs.ErrorTypeBrowser, report.Results[0].Failure.ErrorType)
	assert.Equal(t, 1, ledger.used[strategy.ActionComments])
}

func TestRunCommentsHaltsOnChallenge(t *testing.T) {
	actor := &MockActor{fail: map[string]error{
		"n1": errs.NewChallengeError("https://www.xiaohongshu.com/website-login/captcha", 4),
	}}
	ledger := NewMockLedger(map[string]int{strategy.ActionComments: 10})
	sleeps := &sleepLog{}

	report, err := newExecutor(actor, ledger, sleeps).RunComments(context.Background(), commentPlan(
		sop.CommentItem{FeedID: "n1", Content: "a"},
		sop.CommentItem{FeedID: "n2", Content: "b"},
	))
	require.Error(t, err)
	assert.True(t, errs.IsChallenge(err))

	assert.Equal(t, RunHalted, report.Status)
	require.NotNil(t, report.Halt)
	assert.Equal(t, "captcha", report.Halt.Status)
	assert.Equal(t, 4, report.Halt.NavigateCount)
	assert.Equal(t, []string{"comment:n1"}, actor.calls)
	assert.Empty(t, sleeps.sleeps)
	assert.Zero(t, ledger.used[strategy.ActionComments])
}

func TestRunCommentsHaltsOnCancellation(t *testing.T) {
	actor := &MockActor{}
	ledger := NewMockLedger(map[string]int{strategy.ActionComments: 10})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := newExecutor(actor, ledger, &sleepLog{}).RunComments(ctx, commentPlan(
		sop.CommentItem{FeedID: "n1", Content: "a"},
		sop.CommentItem{FeedID: "n2", Content: "b"},
	))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, RunHalted, report.Status)
	assert.Equal(t, []string{"comment:n1"}, actor.calls)
}

func TestRunExplore(t *testing.T) {
	actor := &MockActor{already: map[string]bool{"n2": true}}
	ledger := NewMockLedger(map[string]int{
		strategy.ActionLikes:    10,
		strategy.ActionCollects: 10,
		strategy.ActionComments: 10,
	})
	sleeps := &sleepLog{}
	feeds := []state.FeedCard{
		{ID: "n0", XsecToken: "t0"},
		{ID: "n1", XsecToken: "t1", Title: "咖啡"},
		{ID: "n2", XsecToken: "t2"},
	}
	plan := sop.ExplorePlan{
		Status: sop.StatusReady,
		ActionsPlan: []sop.ExploreItem{
			{FeedIndex: 1, Actions: []string{}, Interval: 4},
			{FeedIndex: 2, Actions: []string{sop.IntentLike, sop.IntentComment}, Interval: 5.5},
			{FeedIndex: 3, Actions: []string{sop.IntentLike, sop.IntentCollect}, Interval: 6},
			{FeedIndex: 8, Actions: []string{sop.IntentLike}, Interval: 3},
		},
	}
	commentFor := func(card state.FeedCard) string { return "喜欢" + card.Title }

	report, err := newExecutor(actor, ledger, sleeps).RunExplore(context.Background(), plan, feeds, commentFor)
	require.NoError(t, err)

	if diff := cmp.Diff([]string{"like:n1", "comment:n1", "like:n2", "collect:n2"}, actor.calls); diff != "" {
		t.Errorf("actor calls mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 3, report.Succeeded)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, "already_liked", report.Results[2].Reason)

	// Already liked notes consume no quota
	assert.Equal(t, 1, ledger.used[strategy.ActionLikes])
	assert.Equal(t, 1, ledger.used[strategy.ActionComments])
	assert.Equal(t, 1, ledger.used[strategy.ActionCollects])

	assert.Equal(t, []time.Duration{5500 * time.Millisecond}, sleeps.sleeps)
	assert.Equal(t, 2, report.Results[0].Job.Index)
}

func TestRunExploreFollowsPlannedFeeds(t *testing.T) {
	actor := &MockActor{}
	ledger := NewMockLedger(map[string]int{
		strategy.ActionLikes:    10,
		strategy.ActionCollects: 10,
		strategy.ActionComments: 10,
	})
	sleeps := &sleepLog{}

	engine := sop.NewEngine(ledger, 11, sop.WithLogger(logger.NewNopLogger()))
	plan := engine.PlanExplore(sop.ExploreOptions{FeedCount: 3, LikeProbability: 1, IntervalMin: 8, IntervalMax: 8})
	require.Equal(t, sop.StatusReady, plan.Status)
	feeds := []state.FeedCard{{ID: "a"}, {ID: "b"}, {ID: "c"}}

	report, err := newExecutor(actor, ledger, sleeps).RunExplore(context.Background(), plan, feeds, nil)
	require.NoError(t, err)

	if diff := cmp.Diff([]string{"like:a", "like:b", "like:c"}, actor.calls); diff != "" {
		t.Errorf("actor calls mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 3, report.Succeeded)
	assert.Equal(t, 3, ledger.used[strategy.ActionLikes])
	assert.Equal(t, []time.Duration{8 * time.Second, 8 * time.Second}, sleeps.sleeps)
}

func TestRunExploreFollowsQuotaCappedPlan(t *testing.T) {
	actor := &MockActor{}
	ledger := NewMockLedger(map[string]int{strategy.ActionLikes: 2})
	sleeps := &sleepLog{}

	engine := sop.NewEngine(ledger, 5, sop.WithLogger(logger.NewNopLogger()))
	plan := engine.PlanExplore(sop.ExploreOptions{FeedCount: 3, LikeProbability: 1, IntervalMin: 8, IntervalMax: 8})
	feeds := []state.FeedCard{{ID: "a"}, {ID: "b"}, {ID: "c"}}

	report, err := newExecutor(actor, ledger, sleeps).RunExplore(context.Background(), plan, feeds, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"like:a", "like:b"}, actor.calls)
	assert.Equal(t, 2, report.Succeeded)
	assert.Zero(t, report.Blocked)
	assert.Equal(t, []time.Duration{8 * time.Second}, sleeps.sleeps)
}

func TestRunExploreCarriesSkippedIntervals(t *testing.T) {
	actor := &MockActor{}
	ledger := NewMockLedger(map[string]int{strategy.ActionLikes: 10})
	sleeps := &sleepLog{}
	feeds := []state.FeedCard{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}}
	plan := sop.ExplorePlan{
		Status: sop.StatusReady,
		ActionsPlan: []sop.ExploreItem{
			{FeedIndex: 1, Actions: []string{sop.IntentLike}, Interval: 5},
			{FeedIndex: 2, Actions: []string{}, Interval: 4},
			{FeedIndex: 3, Actions: []string{sop.IntentLike}, Interval: 6},
			{FeedIndex: 9, Actions: []string{sop.IntentLike}, Interval: 2},
			{FeedIndex: 4, Actions: []string{sop.IntentLike}, Interval: 7},
		},
	}

	_, err := newExecutor(actor, ledger, sleeps).RunExplore(context.Background(), plan, feeds, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"like:a", "like:c", "like:d"}, actor.calls)
	// Browsing b and the missing ninth note still takes its planned time
	assert.Equal(t, []time.Duration{9 * time.Second, 8 * time.Second}, sleeps.sleeps)
}

func TestRunExploreSkipsCommentsWithoutContent(t *testing.T) {
	actor := &MockActor{}
	ledger := NewMockLedger(map[string]int{strategy.ActionComments: 10})
	plan := sop.ExplorePlan{ActionsPlan: []sop.ExploreItem{
		{FeedIndex: 1, Actions: []string{sop.IntentComment}, Interval: 3},
	}}

	report, err := newExecutor(actor, ledger, &sleepLog{}).RunExplore(context.Background(), plan,
		[]state.FeedCard{{ID: "n0"}}, nil)
	require.NoError(t, err)

	assert.Empty(t, actor.calls)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, "no comment content", report.Results[0].Reason)
}

func TestProcessJobUnknownAction(t *testing.T) {
	e := newExecutor(&MockActor{}, NewMockLedger(map[string]int{}), &sleepLog{})

	res, err := e.processJob(context.Background(), logger.NewNopLogger(), Job{Action: "share", FeedID: "n1"})
	require.NoError(t, err)
	assert.Equal(t, StatusBlocked, res.Status)
}

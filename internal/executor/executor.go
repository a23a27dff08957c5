// Package executor runs comment and explore plans one action at a time:
// check the quota, act, record, cool down. Nothing runs concurrently.
package executor

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	errs "github.com/flyflypeng/xiaohongshu-skill/pkg/errors"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/logger"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/retry"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/sop"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/state"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/strategy"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/xhs"
	"github.com/google/uuid"
)

// Job actions
const (
	ActionLike    = "like"
	ActionCollect = "collect"
	ActionComment = "comment"
	ActionReply   = "reply"
)

// Job outcomes
const (
	StatusSuccess = "success"
	StatusSkipped = "skipped"
	StatusBlocked = "blocked"
	StatusFailed  = "failed"
)

// Run outcomes
const (
	RunCompleted = "completed"
	RunHalted    = "halted"
)

// Job is a single write action against one note
type Job struct {
	Index     int    `json:"index"`
	Action    string `json:"action"`
	FeedID    string `json:"feed_id"`
	XsecToken string `json:"xsec_token,omitempty"`
	Content   string `json:"content,omitempty"`
	CommentID string `json:"comment_id,omitempty"`
}

// quotaType is the ledger bucket a job draws from
func (j Job) quotaType() string {
	switch j.Action {
	case ActionLike:
		return strategy.ActionLikes
	case ActionCollect:
		return strategy.ActionCollects
	case ActionComment:
		return strategy.ActionComments
	case ActionReply:
		return strategy.ActionReplies
	default:
		return ""
	}
}

// JobResult is the outcome of one job
type JobResult struct {
	Job      Job                 `json:"job"`
	Status   string              `json:"status"`
	Reason   string              `json:"reason,omitempty"`
	Failure  *errs.FailureRecord `json:"failure,omitempty"`
	Quota    *strategy.Recorded  `json:"quota,omitempty"`
	Duration time.Duration       `json:"duration"`
}

// Report summarises a run
type Report struct {
	RunID     string              `json:"run_id"`
	Kind      string              `json:"kind"`
	Status    string              `json:"status"`
	Succeeded int                 `json:"succeeded"`
	Skipped   int                 `json:"skipped"`
	Blocked   int                 `json:"blocked"`
	Failed    int                 `json:"failed"`
	Results   []JobResult         `json:"results"`
	Halt      *errs.FailureRecord `json:"halt,omitempty"`
	StartedAt time.Time           `json:"started_at"`
	Duration  time.Duration       `json:"duration"`
}

func (r *Report) add(res JobResult) {
	r.Results = append(r.Results, res)
	switch res.Status {
	case StatusSuccess:
		r.Succeeded++
	case StatusSkipped:
		r.Skipped++
	case StatusBlocked:
		r.Blocked++
	case StatusFailed:
		r.Failed++
	}
}

// Actor performs write actions on the site
type Actor interface {
	Like(ctx context.Context, feedID, xsecToken string) (xhs.InteractResult, error)
	Collect(ctx context.Context, feedID, xsecToken string) (xhs.InteractResult, error)
	Comment(ctx context.Context, feedID, xsecToken, content string) (xhs.CommentResult, error)
	Reply(ctx context.Context, feedID, xsecToken, commentID, content string) (xhs.CommentResult, error)
}

// Ledger is the quota view the executor needs
type Ledger interface {
	CheckLimit(actionType string) strategy.Limit
	RecordAction(actionType string) (strategy.Recorded, error)
}

// SleepFunc blocks for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

// Executor runs plans against an actor and a ledger
type Executor struct {
	actor  Actor
	ledger Ledger
	sleep  SleepFunc
	rng    *rand.Rand
	now    func() time.Time
	logger logger.Logger
}

// Option configures an Executor
type Option func(*Executor)

// WithSleep replaces the cooldown sleep
func WithSleep(sleep SleepFunc) Option {
	return func(e *Executor) { e.sleep = sleep }
}

// WithRand sets the random source used for cooldowns
func WithRand(rng *rand.Rand) Option {
	return func(e *Executor) { e.rng = rng }
}

// WithClock replaces the time source
func WithClock(now func() time.Time) Option {
	return func(e *Executor) { e.now = now }
}

// WithLogger sets the logger
func WithLogger(l logger.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

// New creates an executor
func New(actor Actor, ledger Ledger, opts ...Option) *Executor {
	e := &Executor{
		actor:  actor,
		ledger: ledger,
		sleep:  retry.Wait,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		now:    time.Now,
		logger: logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunComments posts the plan's comments and replies in order, pausing a random
// cooldown from the plan's range between them
func (e *Executor) RunComments(ctx context.Context, plan sop.CommentPlan) (Report, error) {
	jobs := make([]Job, 0, len(plan.Items))
	for i, item := range plan.Items {
		job := Job{Index: i, Action: ActionComment, FeedID: item.FeedID, XsecToken: item.XsecToken, Content: item.Content}
		if item.IsReply() {
			job.Action = ActionReply
			job.CommentID = item.CommentID
		}
		jobs = append(jobs, job)
	}

	backoff := &retry.UniformBackoff{
		Min:  seconds(plan.CooldownRange[0]),
		Max:  seconds(plan.CooldownRange[1]),
		Rand: e.rng,
	}
	groups := make([][]Job, len(jobs))
	for i := range jobs {
		groups[i] = jobs[i : i+1]
	}
	return e.run(ctx, "comment", groups, func(i int) time.Duration { return backoff.NextDelay(i + 1) })
}

// CommentFunc writes the comment for a browsed note; an empty string skips it
type CommentFunc func(card state.FeedCard) string

// RunExplore applies the plan's sampled interactions to feeds. Plan items
// number feeds from 1; items beyond the list are skipped. Comment intents
// need commentFor and are skipped without it. A skipped item's interval is
// added to the pause after the previous note.
func (e *Executor) RunExplore(ctx context.Context, plan sop.ExplorePlan, feeds []state.FeedCard, commentFor CommentFunc) (Report, error) {
	var groups [][]Job
	var intervals []float64
	carry := func(interval float64) {
		if n := len(intervals); n > 0 {
			intervals[n-1] += interval
		}
	}
	for _, item := range plan.ActionsPlan {
		idx := item.FeedIndex - 1
		if idx < 0 || idx >= len(feeds) {
			e.logger.WithField("feed_index", item.FeedIndex).Debug("Plan item beyond feed list")
			carry(item.Interval)
			continue
		}
		card := feeds[idx]

		var group []Job
		for _, intent := range item.Actions {
			job := Job{Index: item.FeedIndex, FeedID: card.ID, XsecToken: card.XsecToken}
			switch intent {
			case sop.IntentLike:
				job.Action = ActionLike
			case sop.IntentCollect:
				job.Action = ActionCollect
			case sop.IntentComment:
				job.Action = ActionComment
				if commentFor != nil {
					job.Content = commentFor(card)
				}
			default:
				continue
			}
			group = append(group, job)
		}
		if len(group) == 0 {
			carry(item.Interval)
			continue
		}
		groups = append(groups, group)
		intervals = append(intervals, item.Interval)
	}

	return e.run(ctx, "explore", groups, func(i int) time.Duration {
		return seconds(intervals[i])
	})
}

// run processes groups of jobs in order. Jobs within a group target the same
// note; the pause between groups comes from cooldown.
func (e *Executor) run(ctx context.Context, kind string, groups [][]Job, cooldown func(int) time.Duration) (Report, error) {
	report := Report{
		RunID:     uuid.NewString(),
		Kind:      kind,
		Status:    RunCompleted,
		Results:   []JobResult{},
		StartedAt: e.now(),
	}
	log := e.logger.WithFields(map[string]interface{}{"run_id": report.RunID, "kind": kind})
	logger.LogComponentStart(log, "executor", map[string]interface{}{"groups": len(groups)})

	var haltErr error
	for i, group := range groups {
		for _, job := range group {
			res, err := e.processJob(ctx, log, job)
			report.add(res)
			if err != nil {
				haltErr = err
				break
			}
		}
		if haltErr != nil {
			break
		}

		if i < len(groups)-1 {
			if err := e.sleep(ctx, cooldown(i)); err != nil {
				haltErr = err
				break
			}
		}
	}

	report.Duration = e.now().Sub(report.StartedAt)
	if haltErr != nil {
		record := errs.NewFailureRecord(haltErr)
		report.Status = RunHalted
		report.Halt = &record
		logger.LogComponentStop(log, "executor", "halted: "+haltErr.Error())
		return report, haltErr
	}

	log.InfoWithFields("Run finished", map[string]interface{}{
		"succeeded": report.Succeeded,
		"skipped":   report.Skipped,
		"blocked":   report.Blocked,
		"failed":    report.Failed,
	})
	logger.LogComponentStop(log, "executor", "completed")
	return report, nil
}

// processJob checks the quota, performs the job and records it. The returned
// error is non-nil only when the run must stop.
func (e *Executor) processJob(ctx context.Context, log logger.Logger, job Job) (JobResult, error) {
	start := e.now()
	result := JobResult{Job: job}
	finish := func(status string) JobResult {
		result.Status = status
		result.Duration = e.now().Sub(start)
		return result
	}

	fields := map[string]interface{}{"action": job.Action, "feed_id": job.FeedID}
	log.DebugWithFields("Processing job", fields)

	if job.Action == ActionComment && job.Content == "" {
		result.Reason = "no comment content"
		return finish(StatusSkipped), nil
	}

	actionType := job.quotaType()
	limit := e.ledger.CheckLimit(actionType)
	logger.LogQuota(log, actionType, limit.Used, limit.Limit, limit.Allowed)
	if !limit.Allowed {
		result.Reason = "quota exhausted"
		return finish(StatusBlocked), nil
	}

	skipped, err := e.act(ctx, job)
	if err != nil {
		if errs.IsFatal(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			record := errs.NewFailureRecord(err)
			result.Failure = &record
			return finish(StatusFailed), err
		}

		record := errs.NewFailureRecord(err)
		result.Failure = &record
		log.WithError(err).WarnWithFields("Job failed", fields)
		return finish(StatusFailed), nil
	}

	if skipped != "" {
		result.Reason = skipped
		return finish(StatusSkipped), nil
	}

	recorded, err := e.ledger.RecordAction(actionType)
	if err != nil {
		log.WithError(err).Warn("Failed to record action")
	} else {
		result.Quota = &recorded
	}

	log.InfoWithFields("Job completed", fields)
	return finish(StatusSuccess), nil
}

// act performs one job; skipped carries the reason when the note was already
// in the desired state
func (e *Executor) act(ctx context.Context, job Job) (skipped string, err error) {
	switch job.Action {
	case ActionLike:
		res, err := e.actor.Like(ctx, job.FeedID, job.XsecToken)
		return res.Reason, err
	case ActionCollect:
		res, err := e.actor.Collect(ctx, job.FeedID, job.XsecToken)
		return res.Reason, err
	case ActionComment:
		_, err := e.actor.Comment(ctx, job.FeedID, job.XsecToken, job.Content)
		return "", err
	case ActionReply:
		_, err := e.actor.Reply(ctx, job.FeedID, job.XsecToken, job.CommentID, job.Content)
		return "", err
	default:
		return "", errs.New(errs.ErrorTypeValidation, fmt.Sprintf("unknown action %q", job.Action))
	}
}

// seconds converts a plan's fractional seconds into a duration
func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

var _ Actor = (*xhs.Client)(nil)

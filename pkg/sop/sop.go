// Package sop builds action plans: what to publish, which comments and replies
// to send, and how to interact while browsing the feed.
//
// Planning is pure with respect to the browser. The planner only reads the
// quota ledger (and, for publishing, records the planned publish) and draws
// from a seeded random source, so a plan is reproducible for a given seed and
// quota state. Executing a plan is the caller's job.
package sop

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/flyflypeng/xiaohongshu-skill/pkg/logger"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/strategy"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/templates"
)

// Plan statuses
const (
	StatusReady           = "ready"
	StatusBlocked         = "blocked"
	StatusValidationError = "validation_error"
)

// Quota is the ledger view the planner needs
type Quota interface {
	CheckLimit(actionType string) strategy.Limit
	RecordAction(actionType string) (strategy.Recorded, error)
	BestPublishTimes() []string
}

// Step is one entry of a plan's human-readable log
type Step struct {
	Step      string `json:"step"`
	Status    string `json:"status"`
	Detail    string `json:"detail"`
	Timestamp string `json:"timestamp"`
}

// Engine builds plans against a quota ledger
type Engine struct {
	quota     Quota
	templates *templates.Engine
	rng       *rand.Rand
	now       func() time.Time
	logger    logger.Logger
}

// Option configures an Engine
type Option func(*Engine)

// WithClock replaces the time source used for step timestamps
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the logger
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates a planner; seed drives every random choice
func NewEngine(quota Quota, seed int64, opts ...Option) *Engine {
	e := &Engine{
		quota:     quota,
		templates: templates.NewEngine(seed),
		rng:       rand.New(rand.NewSource(seed)),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logger.GetLogger()
	}
	return e
}

// stepLog accumulates the steps of one plan
type stepLog struct {
	engine *Engine
	kind   string
	steps  []Step
}

func (e *Engine) newLog(kind string) *stepLog {
	return &stepLog{engine: e, kind: kind, steps: []Step{}}
}

func (s *stepLog) add(step, status, detail string) {
	s.steps = append(s.steps, Step{
		Step:      step,
		Status:    status,
		Detail:    detail,
		Timestamp: s.engine.now().Format("2006-01-02T15:04:05.000000"),
	})
	s.engine.logger.DebugWithFields(fmt.Sprintf("[SOP] %s: %s %s", step, status, detail), map[string]interface{}{
		"plan": s.kind,
	})
}

// uniform returns a value in [min, max]
func (e *Engine) uniform(min, max float64) float64 {
	if max <= min {
		return min
	}
	return min + e.rng.Float64()*(max-min)
}

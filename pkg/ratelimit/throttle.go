package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/flyflypeng/xiaohongshu-skill/pkg/config"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/logger"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/retry"
)

// Limiter paces page transitions
type Limiter interface {
	// Wait blocks until the next navigation may begin
	Wait(ctx context.Context) error
	// Stats returns a snapshot of the pacing counters
	Stats() Stats
}

// Stats is a snapshot of a throttle's counters
type Stats struct {
	NavigateCount  int           `json:"navigate_count"`
	LastNavigate   time.Time     `json:"last_navigate"`
	SessionStart   time.Time     `json:"session_start"`
	TotalWaited    time.Duration `json:"total_waited"`
	BurstCooldowns int           `json:"burst_cooldowns"`
}

// SleepFunc blocks for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

// Throttle enforces a randomized minimum interval between navigations plus an
// extra cooldown every BurstThreshold navigations. Each session owns its own
// Throttle; there is no process-wide pacing state.
type Throttle struct {
	mu  sync.Mutex
	cfg config.ThrottleConfig

	lastNavigate   time.Time
	count          int
	sessionStart   time.Time
	totalWaited    time.Duration
	burstCooldowns int

	now    func() time.Time
	sleep  SleepFunc
	rng    *rand.Rand
	logger logger.Logger
}

// Option configures a Throttle
type Option func(*Throttle)

// WithClock replaces the time source
func WithClock(now func() time.Time) Option {
	return func(t *Throttle) { t.now = now }
}

// WithSleep replaces the sleep implementation
func WithSleep(sleep SleepFunc) Option {
	return func(t *Throttle) { t.sleep = sleep }
}

// WithRand replaces the jitter source
func WithRand(rng *rand.Rand) Option {
	return func(t *Throttle) { t.rng = rng }
}

// WithLogger sets the logger used for pacing diagnostics
func WithLogger(l logger.Logger) Option {
	return func(t *Throttle) { t.logger = l }
}

// NewThrottle creates a throttle with the given pacing parameters
func NewThrottle(cfg config.ThrottleConfig, opts ...Option) *Throttle {
	t := &Throttle{
		cfg:    cfg,
		now:    time.Now,
		sleep:  retry.Wait,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		logger: logger.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.cfg.BurstThreshold <= 0 {
		t.cfg.BurstThreshold = config.DefaultConfig().Throttle.BurstThreshold
	}
	return t
}

// Wait paces the next navigation. Counters are updated after the check whether
// or not a sleep happened. The only error is context cancellation during a sleep,
// in which case the counters are left untouched.
func (t *Throttle) Wait(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if t.sessionStart.IsZero() {
		t.sessionStart = now
	}

	wait, reason := t.nextWait(now)
	if wait > 0 {
		logger.LogThrottle(t.logger, reason, wait, t.count)
		if err := t.sleep(ctx, wait); err != nil {
			return err
		}
		t.totalWaited += wait
		if reason == "burst" {
			t.burstCooldowns++
		}
	}

	t.lastNavigate = t.now()
	t.count++
	return nil
}

// nextWait computes how long to sleep before a navigation at now
func (t *Throttle) nextWait(now time.Time) (time.Duration, string) {
	// Never navigated counts as infinitely long ago
	if t.lastNavigate.IsZero() {
		return 0, ""
	}
	elapsed := now.Sub(t.lastNavigate)

	if t.count > 0 && t.count%t.cfg.BurstThreshold == 0 {
		cooldown := t.cfg.BurstCooldown + t.uniform(0, t.cfg.BurstJitter)
		if elapsed < cooldown {
			return cooldown - elapsed, "burst"
		}
		return 0, ""
	}

	if elapsed < t.cfg.MinInterval {
		wait := t.uniform(t.cfg.MinInterval, t.cfg.MaxInterval) - elapsed
		if wait > 0 {
			return wait, "interval"
		}
	}
	return 0, ""
}

func (t *Throttle) uniform(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(t.rng.Float64()*float64(hi-lo))
}

// Stats returns a snapshot of the counters
func (t *Throttle) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()

	return Stats{
		NavigateCount:  t.count,
		LastNavigate:   t.lastNavigate,
		SessionStart:   t.sessionStart,
		TotalWaited:    t.totalWaited,
		BurstCooldowns: t.burstCooldowns,
	}
}

// Count returns the number of navigations paced so far
func (t *Throttle) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}

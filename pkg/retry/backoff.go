package retry

import (
	"context"
	"math/rand"
	"time"
)

// BackoffStrategy defines the interface for different backoff strategies
type BackoffStrategy interface {
	// NextDelay returns the delay to wait after the given failed attempt
	NextDelay(attempt int) time.Duration
}

// UniformBackoff waits a random duration in [Min, Max] on every attempt,
// the way a person pauses between actions
type UniformBackoff struct {
	Min  time.Duration
	Max  time.Duration
	Rand *rand.Rand
}

// NextDelay draws a delay from the band; a reversed band is swapped
func (ub *UniformBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	lo, hi := ub.Min, ub.Max
	if hi < lo {
		lo, hi = hi, lo
	}
	if hi == lo {
		return lo
	}

	f := rand.Float64
	if ub.Rand != nil {
		f = ub.Rand.Float64
	}
	return lo + time.Duration(f()*float64(hi-lo))
}

// ConstantBackoff implements constant delay backoff
type ConstantBackoff struct {
	Delay time.Duration
}

// NextDelay returns a constant delay
func (cb *ConstantBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return cb.Delay
}

// Wait waits for the specified duration or until context is cancelled
func Wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

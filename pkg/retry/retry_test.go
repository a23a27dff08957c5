package retry

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	errs "github.com/flyflypeng/xiaohongshu-skill/pkg/errors"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quickConfig(max int) *Config {
	return &Config{
		MaxAttempts: max,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
		Context:     context.Background(),
		Logger:      logger.NewNopLogger(),
	}
}

func TestUniformBackoff(t *testing.T) {
	backoff := &UniformBackoff{
		Min:  30 * time.Second,
		Max:  60 * time.Second,
		Rand: rand.New(rand.NewSource(1)),
	}

	assert.Zero(t, backoff.NextDelay(0))
	for i := 1; i <= 50; i++ {
		delay := backoff.NextDelay(i)
		assert.GreaterOrEqual(t, delay, 30*time.Second)
		assert.LessOrEqual(t, delay, 60*time.Second)
	}
}

func TestUniformBackoffDegenerateBands(t *testing.T) {
	fixed := &UniformBackoff{Min: 2 * time.Second, Max: 2 * time.Second}
	assert.Equal(t, 2*time.Second, fixed.NextDelay(1))

	reversed := &UniformBackoff{Min: 5 * time.Second, Max: time.Second, Rand: rand.New(rand.NewSource(2))}
	delay := reversed.NextDelay(1)
	assert.GreaterOrEqual(t, delay, time.Second)
	assert.LessOrEqual(t, delay, 5*time.Second)
}

func TestConstantBackoff(t *testing.T) {
	backoff := &ConstantBackoff{Delay: 2 * time.Second}
	assert.Zero(t, backoff.NextDelay(0))
	assert.Equal(t, 2*time.Second, backoff.NextDelay(1))
	assert.Equal(t, 2*time.Second, backoff.NextDelay(7))
}

func TestDoSucceedsAfterRetries(t *testing.T) {
	attempts := 0
	err := Do(func() error {
		attempts++
		if attempts < 3 {
			return errs.New(errs.ErrorTypeExtraction, "state not ready")
		}
		return nil
	}, quickConfig(5))

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDoMaxAttemptsExceeded(t *testing.T) {
	attempts := 0
	var retries []int
	cfg := quickConfig(3)
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		retries = append(retries, attempt)
	}

	cause := errors.New("still missing")
	err := Do(func() error {
		attempts++
		return cause
	}, cfg)

	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 3, attempts)
	// Two pauses between three attempts, none after the last
	assert.Equal(t, []int{1, 2}, retries)
}

func TestDoDoesNotRetryFatal(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"challenge", errs.NewChallengeError("https://x/captcha", 2)},
		{"not started", errs.ErrNotStarted},
		{"quota", errs.New(errs.ErrorTypeQuota, "daily limit")},
		{"cancelled", context.Canceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attempts := 0
			err := Do(func() error {
				attempts++
				return tt.err
			}, quickConfig(5))

			assert.Equal(t, 1, attempts)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestDoContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := quickConfig(0)
	cfg.Backoff = &ConstantBackoff{Delay: time.Hour}
	cfg.Context = ctx

	attempts := 0
	done := make(chan error, 1)
	go func() {
		done <- Do(func() error {
			attempts++
			return errors.New("transient")
		}, cfg)
	}()

	cancel()
	select {
	case err := <-done:
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Do did not observe cancellation")
	}
}

func TestWait(t *testing.T) {
	assert.NoError(t, Wait(context.Background(), 0))
	assert.NoError(t, Wait(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Wait(ctx, time.Hour), context.Canceled)
}

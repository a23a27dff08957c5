// Package retry provides bounded retry with backoff for flaky page reads.
//
// The page's reactive state is often populated a moment after navigation
// completes, so lookups are retried a few times with a fixed pause.
// Challenge and not-started faults are never retried: they halt the run.
// UniformBackoff draws human-like pauses for paced write actions.
//
//	err := retry.Do(func() error {
//		return readDetail(ctx)
//	}, &retry.Config{
//		MaxAttempts: 3,
//		Backoff:     &retry.ConstantBackoff{Delay: 2 * time.Second},
//		Context:     ctx,
//	})
package retry

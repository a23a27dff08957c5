// Package ratelimit paces page navigations to resemble a human browsing.
//
// A Throttle enforces two rules:
//
//   - Minimum interval: if the previous navigation was less than MinInterval
//     ago, sleep a random amount in [MinInterval, MaxInterval) minus the time
//     already elapsed.
//   - Burst cooldown: every BurstThreshold navigations, wait until at least
//     BurstCooldown plus up to BurstJitter has passed since the previous one.
//
// The first navigation never sleeps. Every sleep is bounded and never negative.
//
// Usage:
//
//	throttle := ratelimit.NewThrottle(cfg.Throttle, ratelimit.WithLogger(log))
//	if err := throttle.Wait(ctx); err != nil {
//	    return err
//	}
package ratelimit

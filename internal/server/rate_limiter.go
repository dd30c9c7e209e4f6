package server

import (
	"time"

	"golang.org/x/time/rate"
)

// newRateLimiter builds a token bucket that allows Burst messages at once and
// refills the whole burst every RefillInterval. It returns nil when Burst is
// not positive, which turns limiting off.
func newRateLimiter(cfg RateLimitConfig) *rate.Limiter {
	burst := cfg.Burst
	if burst <= 0 {
		return nil
	}
	interval := cfg.RefillInterval
	if interval <= 0 {
		interval = defaultRefillInterval
	}

	return rate.NewLimiter(rate.Every(interval/time.Duration(burst)), burst)
}

package drive

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimitConfig holds token-bucket settings for Drive API calls.
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

// DefaultRateLimit stays below Google's 10 req/sec/user Drive quota.
var DefaultRateLimit = RateLimitConfig{RequestsPerSecond: 8.0, BurstSize: 10}

// RateLimiter throttles outgoing Drive API requests.
type RateLimiter struct {
	limiter *rate.Limiter
}

func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	if cfg.BurstSize <= 0 {
		cfg.BurstSize = 1
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.BurstSize),
	}
}

// Wait blocks until a request may be made without exceeding the limit.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

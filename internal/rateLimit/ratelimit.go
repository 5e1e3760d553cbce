package rateLimit

import (
	"context"
	"time"

	redisadapter "github.com/cinepos/seat-inventory/internal/adapters/redis"
)

// RateLimiter throttles per-terminal request rates with a redis
// INCR+EXPIRE window, shared across API processes.
type RateLimiter struct {
	redis *redisadapter.Cache
}

func NewRateLimiter(redis *redisadapter.Cache) *RateLimiter {
	return &RateLimiter{redis: redis}
}

func (rl *RateLimiter) Allow(ctx context.Context, key string, rate int, period time.Duration) bool {
	fullKey := "rl:" + key

	pipe := rl.redis.Client().Pipeline()
	incr := pipe.Incr(ctx, fullKey)
	pipe.Expire(ctx, fullKey, period)

	if _, err := pipe.Exec(ctx); err != nil {
		// Fail open: a redis outage must not stop ticket sales.
		return true
	}

	return incr.Val() <= int64(rate)
}

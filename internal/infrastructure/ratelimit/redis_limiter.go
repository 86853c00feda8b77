// Package ratelimit keeps fixed-window request counters in Redis so limits hold across instances.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/you/crmauth/domain"
)

// RedisLimiter implements domain.RateLimiter with INCR and EXPIRE
type RedisLimiter struct {
	client redis.Cmdable
	prefix string
	limit  int
	window time.Duration
}

// NewRedisLimiter allows limit requests per key in every window
func NewRedisLimiter(client redis.Cmdable, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		prefix: "ratelimit:",
		limit:  limit,
		window: window,
	}
}

// Allow counts one request for key and reports whether it fits in the current window
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, int, time.Duration, error) {
	k := l.prefix + key

	count, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		return false, 0, 0, fmt.Errorf("failed to increment rate counter: %w", err)
	}
	if count == 1 {
		if err := l.client.PExpire(ctx, k, l.window).Err(); err != nil {
			return false, 0, 0, fmt.Errorf("failed to set rate window: %w", err)
		}
	}

	ttl, err := l.client.PTTL(ctx, k).Result()
	if err != nil {
		return false, 0, 0, fmt.Errorf("failed to read rate window: %w", err)
	}
	if ttl < 0 {
		// counter lost its expiry; start a new window
		if err := l.client.PExpire(ctx, k, l.window).Err(); err != nil {
			return false, 0, 0, fmt.Errorf("failed to set rate window: %w", err)
		}
		ttl = l.window
	}

	remaining := l.limit - int(count)
	if remaining < 0 {
		return false, 0, ttl, nil
	}
	return true, remaining, 0, nil
}

var _ domain.RateLimiter = (*RedisLimiter)(nil)

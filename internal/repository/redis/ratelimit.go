package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const rateLimitPrefix = "ratelimit:"

// RateLimiter throttles prompt and event traffic per session using a
// fixed one-minute counter in Redis. The key is usually a session ID;
// requests outside a session scope fall back to the client address.
type RateLimiter struct {
	client *Client
	rate   int
	burst  int
}

// NewRateLimiter creates a limiter allowing rate requests per minute
// with burst extra headroom on top.
func NewRateLimiter(client *Client, rate, burst int) *RateLimiter {
	return &RateLimiter{client: client, rate: rate, burst: burst}
}

func (r *RateLimiter) capacity() int64 {
	return int64(r.rate + r.burst)
}

// Allow counts the request against the key's current minute window and
// reports whether it fits, how many requests remain, and when the
// window resets. The counter expires a minute after its first hit, so
// an idle session costs nothing.
func (r *RateLimiter) Allow(ctx context.Context, key string) (bool, int, time.Time, error) {
	counterKey := rateLimitPrefix + key
	resetAt := time.Now().Truncate(time.Minute).Add(time.Minute)

	pipe := r.client.rdb.Pipeline()
	hits := pipe.Incr(ctx, counterKey)
	pipe.ExpireNX(ctx, counterKey, time.Minute)
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return false, 0, time.Time{}, fmt.Errorf("rate limit check: %w", err)
	}

	remaining := r.capacity() - hits.Val()
	if remaining < 0 {
		remaining = 0
	}
	return hits.Val() <= r.capacity(), int(remaining), resetAt, nil
}

// Reset clears the counter for a key, reopening its window immediately.
func (r *RateLimiter) Reset(ctx context.Context, key string) error {
	return r.client.rdb.Del(ctx, rateLimitPrefix+key).Err()
}

package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taisys/nftmarket/internal/domain"
)

// RateLimiter implements domain.RateLimiter with a fixed-window counter:
// INCR on a per-key counter whose TTL is set on first increment. Counting is
// shared across replicas through Redis.
type RateLimiter struct {
	rdb *redis.Client
}

// NewRateLimiter creates a RateLimiter backed by the given Client.
func NewRateLimiter(c *Client) *RateLimiter {
	return &RateLimiter{rdb: c.Underlying()}
}

func rateKey(key string) string {
	return "ratelimit:" + key
}

// Allow reports whether the request identified by key fits inside the
// current window. Limit zero or negative disables limiting for the key.
func (rl *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if limit <= 0 {
		return true, nil
	}

	rk := rateKey(key)
	pipe := rl.rdb.TxPipeline()
	incr := pipe.Incr(ctx, rk)
	pipe.ExpireNX(ctx, rk, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("redis: rate limit %s: %w", key, err)
	}

	return incr.Val() <= int64(limit), nil
}

// Compile-time interface check.
var _ domain.RateLimiter = (*RateLimiter)(nil)

package domain

import (
	"context"
	"time"
)

// MarketItemCache provides fast snapshot lookups for read endpoints.
// Get returns ErrNotFound on a miss.
type MarketItemCache interface {
	Set(ctx context.Context, item MarketItem) error
	Get(ctx context.Context, id uint64) (MarketItem, error)
	Invalidate(ctx context.Context, id uint64) error
}

// AuctionItemCache is the auction-side equivalent of MarketItemCache.
type AuctionItemCache interface {
	Set(ctx context.Context, item AuctionItem) error
	Get(ctx context.Context, id uint64) (AuctionItem, error)
	Invalidate(ctx context.Context, id uint64) error
}

// RateLimiter provides distributed request rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// LockManager provides distributed locking. Acquire returns ErrLockHeld when
// another holder owns the key.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

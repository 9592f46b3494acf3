package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taisys/nftmarket/internal/domain"
)

const itemTTL = 5 * time.Minute

func marketItemKey(id uint64) string {
	return "market:item:" + strconv.FormatUint(id, 10)
}

func auctionItemKey(id uint64) string {
	return "auction:item:" + strconv.FormatUint(id, 10)
}

// MarketItemCache implements domain.MarketItemCache with JSON snapshots
// under a short TTL. The store stays the source of truth; the cache only
// serves the read endpoints.
type MarketItemCache struct {
	rdb *redis.Client
}

// NewMarketItemCache creates a MarketItemCache backed by the given Client.
func NewMarketItemCache(c *Client) *MarketItemCache {
	return &MarketItemCache{rdb: c.Underlying()}
}

// Set stores a listing snapshot.
func (mc *MarketItemCache) Set(ctx context.Context, item domain.MarketItem) error {
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("redis: marshal market item %d: %w", item.ID, err)
	}
	if err := mc.rdb.Set(ctx, marketItemKey(item.ID), data, itemTTL).Err(); err != nil {
		return fmt.Errorf("redis: set market item %d: %w", item.ID, err)
	}
	return nil
}

// Get retrieves a listing snapshot. It returns domain.ErrNotFound on a miss.
func (mc *MarketItemCache) Get(ctx context.Context, id uint64) (domain.MarketItem, error) {
	data, err := mc.rdb.Get(ctx, marketItemKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.MarketItem{}, domain.ErrNotFound
		}
		return domain.MarketItem{}, fmt.Errorf("redis: get market item %d: %w", id, err)
	}

	var item domain.MarketItem
	if err := json.Unmarshal(data, &item); err != nil {
		return domain.MarketItem{}, fmt.Errorf("redis: unmarshal market item %d: %w", id, err)
	}
	return item, nil
}

// Invalidate drops a listing snapshot after a state change.
func (mc *MarketItemCache) Invalidate(ctx context.Context, id uint64) error {
	if err := mc.rdb.Del(ctx, marketItemKey(id)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate market item %d: %w", id, err)
	}
	return nil
}

// AuctionItemCache implements domain.AuctionItemCache, mirroring
// MarketItemCache over the auction key namespace.
type AuctionItemCache struct {
	rdb *redis.Client
}

// NewAuctionItemCache creates an AuctionItemCache backed by the given Client.
func NewAuctionItemCache(c *Client) *AuctionItemCache {
	return &AuctionItemCache{rdb: c.Underlying()}
}

// Set stores an auction snapshot.
func (ac *AuctionItemCache) Set(ctx context.Context, item domain.AuctionItem) error {
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("redis: marshal auction item %d: %w", item.ID, err)
	}
	if err := ac.rdb.Set(ctx, auctionItemKey(item.ID), data, itemTTL).Err(); err != nil {
		return fmt.Errorf("redis: set auction item %d: %w", item.ID, err)
	}
	return nil
}

// Get retrieves an auction snapshot. It returns domain.ErrNotFound on a miss.
func (ac *AuctionItemCache) Get(ctx context.Context, id uint64) (domain.AuctionItem, error) {
	data, err := ac.rdb.Get(ctx, auctionItemKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.AuctionItem{}, domain.ErrNotFound
		}
		return domain.AuctionItem{}, fmt.Errorf("redis: get auction item %d: %w", id, err)
	}

	var item domain.AuctionItem
	if err := json.Unmarshal(data, &item); err != nil {
		return domain.AuctionItem{}, fmt.Errorf("redis: unmarshal auction item %d: %w", id, err)
	}
	return item, nil
}

// Invalidate drops an auction snapshot after a state change.
func (ac *AuctionItemCache) Invalidate(ctx context.Context, id uint64) error {
	if err := ac.rdb.Del(ctx, auctionItemKey(id)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate auction item %d: %w", id, err)
	}
	return nil
}

// Compile-time interface checks.
var (
	_ domain.MarketItemCache  = (*MarketItemCache)(nil)
	_ domain.AuctionItemCache = (*AuctionItemCache)(nil)
)

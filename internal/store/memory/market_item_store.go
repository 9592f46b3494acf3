// Package memory implements the domain store interfaces with in-process
// state. It backs the dev mode and the test suite; deployments that need
// durability use the postgres implementations instead.
package memory

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/taisys/nftmarket/internal/domain"
)

// MarketItemStore implements domain.MarketItemStore with an append-only
// slice: item id N lives at index N-1 and records are never removed.
type MarketItemStore struct {
	mu    sync.RWMutex
	items []domain.MarketItem
}

// NewMarketItemStore creates an empty MarketItemStore.
func NewMarketItemStore() *MarketItemStore {
	return &MarketItemStore{}
}

// Create appends the item and returns its assigned id.
func (s *MarketItemStore) Create(ctx context.Context, item domain.MarketItem) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item.ID = uint64(len(s.items)) + 1
	s.items = append(s.items, cloneMarketItem(item))
	return item.ID, nil
}

// Update replaces the stored record for item.ID.
func (s *MarketItemStore) Update(ctx context.Context, item domain.MarketItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item.ID == 0 || item.ID > uint64(len(s.items)) {
		return domain.ErrMarketItemNotFound
	}
	s.items[item.ID-1] = cloneMarketItem(item)
	return nil
}

// Get returns the item with the given id.
func (s *MarketItemStore) Get(ctx context.Context, id uint64) (domain.MarketItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if id == 0 || id > uint64(len(s.items)) {
		return domain.MarketItem{}, domain.ErrMarketItemNotFound
	}
	return cloneMarketItem(s.items[id-1]), nil
}

// Count returns the total number of records ever created.
func (s *MarketItemStore) Count(ctx context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.items)), nil
}

// CountBySeller returns the number of records created by one seller.
func (s *MarketItemStore) CountBySeller(ctx context.Context, seller common.Address) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n uint64
	for i := range s.items {
		if s.items[i].Seller == seller {
			n++
		}
	}
	return n, nil
}

// Window returns up to count items in descending id order, starting at the
// cursor-th most recent record (cursor is 1-indexed).
func (s *MarketItemStore) Window(ctx context.Context, count, cursor uint64) ([]domain.MarketItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := uint64(len(s.items))
	if cursor == 0 || cursor > total {
		return nil, nil
	}

	// The window cannot hold more than the records at or below the cursor.
	if remaining := total - cursor + 1; count > remaining {
		count = remaining
	}
	out := make([]domain.MarketItem, 0, count)
	for i := total - cursor; count > 0; i-- {
		out = append(out, cloneMarketItem(s.items[i]))
		count--
		if i == 0 {
			break
		}
	}
	return out, nil
}

// WindowBySeller is Window restricted to one seller's records.
func (s *MarketItemStore) WindowBySeller(ctx context.Context, seller common.Address, count, cursor uint64) ([]domain.MarketItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.MarketItem
	var seen uint64
	for i := len(s.items) - 1; i >= 0 && uint64(len(out)) < count; i-- {
		if s.items[i].Seller != seller {
			continue
		}
		seen++
		if seen < cursor {
			continue
		}
		out = append(out, cloneMarketItem(s.items[i]))
	}
	return out, nil
}

func cloneMarketItem(item domain.MarketItem) domain.MarketItem {
	if item.Price != nil {
		item.Price = new(big.Int).Set(item.Price)
	}
	return item
}

// Compile-time interface check.
var _ domain.MarketItemStore = (*MarketItemStore)(nil)

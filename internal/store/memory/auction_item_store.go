package memory

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/taisys/nftmarket/internal/domain"
)

// AuctionItemStore implements domain.AuctionItemStore with the same
// append-only layout as MarketItemStore, in its own id namespace.
type AuctionItemStore struct {
	mu    sync.RWMutex
	items []domain.AuctionItem
}

// NewAuctionItemStore creates an empty AuctionItemStore.
func NewAuctionItemStore() *AuctionItemStore {
	return &AuctionItemStore{}
}

// Create appends the auction and returns its assigned id.
func (s *AuctionItemStore) Create(ctx context.Context, item domain.AuctionItem) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item.ID = uint64(len(s.items)) + 1
	s.items = append(s.items, cloneAuctionItem(item))
	return item.ID, nil
}

// Update replaces the stored record for item.ID.
func (s *AuctionItemStore) Update(ctx context.Context, item domain.AuctionItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item.ID == 0 || item.ID > uint64(len(s.items)) {
		return domain.ErrAuctionItemNotFound
	}
	s.items[item.ID-1] = cloneAuctionItem(item)
	return nil
}

// Get returns the auction with the given id.
func (s *AuctionItemStore) Get(ctx context.Context, id uint64) (domain.AuctionItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if id == 0 || id > uint64(len(s.items)) {
		return domain.AuctionItem{}, domain.ErrAuctionItemNotFound
	}
	return cloneAuctionItem(s.items[id-1]), nil
}

// Count returns the total number of auctions ever created.
func (s *AuctionItemStore) Count(ctx context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.items)), nil
}

// CountBySeller returns the number of auctions created by one seller.
func (s *AuctionItemStore) CountBySeller(ctx context.Context, seller common.Address) (uint64, error) {
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

// Window returns up to count auctions in descending id order starting at the
// cursor-th most recent record.
func (s *AuctionItemStore) Window(ctx context.Context, count, cursor uint64) ([]domain.AuctionItem, error) {
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
	out := make([]domain.AuctionItem, 0, count)
	for i := total - cursor; count > 0; i-- {
		out = append(out, cloneAuctionItem(s.items[i]))
		count--
		if i == 0 {
			break
		}
	}
	return out, nil
}

// WindowBySeller is Window restricted to one seller's auctions.
func (s *AuctionItemStore) WindowBySeller(ctx context.Context, seller common.Address, count, cursor uint64) ([]domain.AuctionItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.AuctionItem
	var seen uint64
	for i := len(s.items) - 1; i >= 0 && uint64(len(out)) < count; i-- {
		if s.items[i].Seller != seller {
			continue
		}
		seen++
		if seen < cursor {
			continue
		}
		out = append(out, cloneAuctionItem(s.items[i]))
	}
	return out, nil
}

func cloneAuctionItem(item domain.AuctionItem) domain.AuctionItem {
	if item.HighestPrice != nil {
		item.HighestPrice = new(big.Int).Set(item.HighestPrice)
	}
	return item
}

// Compile-time interface check.
var _ domain.AuctionItemStore = (*AuctionItemStore)(nil)

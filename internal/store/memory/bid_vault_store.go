package memory

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/taisys/nftmarket/internal/domain"
)

// BidVaultStore implements domain.BidVaultStore with a two-level map keyed by
// (auction id, bidder). Lookups and zeroing are O(1).
type BidVaultStore struct {
	mu     sync.RWMutex
	vaults map[uint64]map[common.Address]*big.Int
}

// NewBidVaultStore creates an empty BidVaultStore.
func NewBidVaultStore() *BidVaultStore {
	return &BidVaultStore{vaults: map[uint64]map[common.Address]*big.Int{}}
}

// Amount returns the bidder's cumulative escrowed amount, zero if absent.
func (s *BidVaultStore) Amount(ctx context.Context, auctionID uint64, bidder common.Address) (*big.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if amt, ok := s.vaults[auctionID][bidder]; ok {
		return new(big.Int).Set(amt), nil
	}
	return new(big.Int), nil
}

// Set stores the bidder's new cumulative amount.
func (s *BidVaultStore) Set(ctx context.Context, auctionID uint64, bidder common.Address, amount *big.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.vaults[auctionID] == nil {
		s.vaults[auctionID] = map[common.Address]*big.Int{}
	}
	s.vaults[auctionID][bidder] = new(big.Int).Set(amount)
	return nil
}

// Clear zeroes the bidder's entry.
func (s *BidVaultStore) Clear(ctx context.Context, auctionID uint64, bidder common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.vaults[auctionID], bidder)
	return nil
}

// Compile-time interface check.
var _ domain.BidVaultStore = (*BidVaultStore)(nil)

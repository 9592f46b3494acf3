package memory

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/taisys/nftmarket/internal/domain"
)

// WhitelistStore implements domain.WhitelistStore with a set.
type WhitelistStore struct {
	mu  sync.RWMutex
	set map[common.Address]struct{}
}

// NewWhitelistStore creates an empty WhitelistStore.
func NewWhitelistStore() *WhitelistStore {
	return &WhitelistStore{set: map[common.Address]struct{}{}}
}

// Add whitelists the custodian. Adding twice is a no-op.
func (s *WhitelistStore) Add(ctx context.Context, custodian common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set[custodian] = struct{}{}
	return nil
}

// Contains reports whether the custodian is whitelisted.
func (s *WhitelistStore) Contains(ctx context.Context, custodian common.Address) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.set[custodian]
	return ok, nil
}

// Compile-time interface check.
var _ domain.WhitelistStore = (*WhitelistStore)(nil)

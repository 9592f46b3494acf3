package memory

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/taisys/nftmarket/internal/domain"
)

type balanceKey struct {
	owner    common.Address
	currency domain.Currency
}

// BalanceStore implements domain.BalanceStore with a flat map keyed by
// (owner, currency).
type BalanceStore struct {
	mu       sync.RWMutex
	balances map[balanceKey]*big.Int
}

// NewBalanceStore creates an empty BalanceStore.
func NewBalanceStore() *BalanceStore {
	return &BalanceStore{balances: map[balanceKey]*big.Int{}}
}

// Balance returns the owner's drawable amount for the currency, zero if none.
func (s *BalanceStore) Balance(ctx context.Context, owner common.Address, currency domain.Currency) (*big.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if bal, ok := s.balances[balanceKey{owner, currency}]; ok {
		return new(big.Int).Set(bal), nil
	}
	return new(big.Int), nil
}

// Add credits amount to the owner's balance.
func (s *BalanceStore) Add(ctx context.Context, owner common.Address, currency domain.Currency, amount *big.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := balanceKey{owner, currency}
	if bal, ok := s.balances[key]; ok {
		bal.Add(bal, amount)
		return nil
	}
	s.balances[key] = new(big.Int).Set(amount)
	return nil
}

// Sub debits amount from the owner's balance. The balance never goes
// negative.
func (s *BalanceStore) Sub(ctx context.Context, owner common.Address, currency domain.Currency, amount *big.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := balanceKey{owner, currency}
	bal, ok := s.balances[key]
	if !ok || bal.Cmp(amount) < 0 {
		return fmt.Errorf("memory: balance underflow for %s/%s", owner.Hex(), currency)
	}
	bal.Sub(bal, amount)
	return nil
}

// Compile-time interface check.
var _ domain.BalanceStore = (*BalanceStore)(nil)

package local

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Bank simulates native value accounts. Balances never go negative.
type Bank struct {
	mu       sync.Mutex
	balances map[common.Address]*big.Int
}

// NewBank creates an empty Bank.
func NewBank() *Bank {
	return &Bank{balances: map[common.Address]*big.Int{}}
}

// Deposit credits amount to addr.
func (b *Bank) Deposit(addr common.Address, amount *big.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.credit(addr, amount)
}

// Balance returns addr's current balance.
func (b *Bank) Balance(addr common.Address) *big.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if bal, ok := b.balances[addr]; ok {
		return new(big.Int).Set(bal)
	}
	return new(big.Int)
}

// Transfer moves amount from one account to another. It fails without effect
// when the sender's balance is insufficient.
func (b *Bank) Transfer(from, to common.Address, amount *big.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	bal, ok := b.balances[from]
	if !ok || bal.Cmp(amount) < 0 {
		return fmt.Errorf("local: insufficient native balance for %s", from.Hex())
	}
	bal.Sub(bal, amount)
	b.credit(to, amount)
	return nil
}

func (b *Bank) credit(addr common.Address, amount *big.Int) {
	if bal, ok := b.balances[addr]; ok {
		bal.Add(bal, amount)
		return
	}
	b.balances[addr] = new(big.Int).Set(amount)
}

package local

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Token simulates the fungible-token ledger: balances, allowances, and the
// transfer/transferFrom pair the engine's token rail needs.
type Token struct {
	mu         sync.Mutex
	balances   map[common.Address]*big.Int
	allowances map[common.Address]map[common.Address]*big.Int
}

// NewToken creates an empty Token ledger.
func NewToken() *Token {
	return &Token{
		balances:   map[common.Address]*big.Int{},
		allowances: map[common.Address]map[common.Address]*big.Int{},
	}
}

// Mint credits amount to addr.
func (t *Token) Mint(addr common.Address, amount *big.Int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.credit(addr, amount)
}

// BalanceOf returns addr's token balance.
func (t *Token) BalanceOf(addr common.Address) *big.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if bal, ok := t.balances[addr]; ok {
		return new(big.Int).Set(bal)
	}
	return new(big.Int)
}

// Approve lets spender move up to amount of owner's tokens via TransferFrom.
func (t *Token) Approve(owner, spender common.Address, amount *big.Int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.allowances[owner] == nil {
		t.allowances[owner] = map[common.Address]*big.Int{}
	}
	t.allowances[owner][spender] = new(big.Int).Set(amount)
}

// Allowance returns the remaining amount spender may move from owner.
func (t *Token) Allowance(owner, spender common.Address) *big.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if a, ok := t.allowances[owner][spender]; ok {
		return new(big.Int).Set(a)
	}
	return new(big.Int)
}

// Transfer moves amount from the caller's own balance to another account.
func (t *Token) Transfer(from, to common.Address, amount *big.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.move(from, to, amount)
}

// TransferFrom moves amount from owner to recipient on behalf of spender,
// consuming allowance. It fails without effect when the allowance or the
// owner's balance is insufficient.
func (t *Token) TransferFrom(spender, owner, to common.Address, amount *big.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	allowance, ok := t.allowances[owner][spender]
	if !ok || allowance.Cmp(amount) < 0 {
		return fmt.Errorf("local: insufficient allowance from %s to %s", owner.Hex(), spender.Hex())
	}
	if err := t.move(owner, to, amount); err != nil {
		return err
	}
	allowance.Sub(allowance, amount)
	return nil
}

func (t *Token) move(from, to common.Address, amount *big.Int) error {
	bal, ok := t.balances[from]
	if !ok || bal.Cmp(amount) < 0 {
		return fmt.Errorf("local: insufficient token balance for %s", from.Hex())
	}
	bal.Sub(bal, amount)
	t.credit(to, amount)
	return nil
}

func (t *Token) credit(addr common.Address, amount *big.Int) {
	if bal, ok := t.balances[addr]; ok {
		bal.Add(bal, amount)
		return
	}
	t.balances[addr] = new(big.Int).Set(amount)
}

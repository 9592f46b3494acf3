// Package local provides in-process implementations of the engine's external
// collaborators: the asset custodians that own the non-fungible items, the
// fungible-token ledger, and the native value bank. They back the dev mode
// and the test suite; a production deployment swaps in chain-backed adapters
// behind the same domain interfaces.
package local

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// CustodianSet simulates a set of asset custodian contracts, each identified
// by an address and owning a tokenID -> owner mapping.
type CustodianSet struct {
	mu     sync.Mutex
	owners map[common.Address]map[uint64]common.Address
}

// NewCustodianSet creates an empty CustodianSet.
func NewCustodianSet() *CustodianSet {
	return &CustodianSet{owners: map[common.Address]map[uint64]common.Address{}}
}

// Mint registers token ownership under the given custodian.
func (c *CustodianSet) Mint(custodian common.Address, tokenID uint64, owner common.Address) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.owners[custodian] == nil {
		c.owners[custodian] = map[uint64]common.Address{}
	}
	c.owners[custodian][tokenID] = owner
}

// OwnerOf returns the current owner of a token, if it exists.
func (c *CustodianSet) OwnerOf(custodian common.Address, tokenID uint64) (common.Address, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	owner, ok := c.owners[custodian][tokenID]
	return owner, ok
}

// TransferAsset moves token custody from one party to another. The custodian
// enforces current ownership: a transfer from anyone but the owner fails and
// has no effect.
func (c *CustodianSet) TransferAsset(ctx context.Context, custodian common.Address, tokenID uint64, from, to common.Address) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tokens, ok := c.owners[custodian]
	if !ok {
		return fmt.Errorf("local: unknown custodian %s", custodian.Hex())
	}
	owner, ok := tokens[tokenID]
	if !ok {
		return fmt.Errorf("local: custodian %s has no token %d", custodian.Hex(), tokenID)
	}
	if owner != from {
		return fmt.Errorf("local: token %d is owned by %s, not %s", tokenID, owner.Hex(), from.Hex())
	}
	tokens[tokenID] = to
	return nil
}

// Package domain defines the marketplace engine's models, sentinel errors,
// store interfaces, and the interfaces of its external collaborators.
package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// MarketItem is a fixed-price listing. Records are never deleted: a sale or a
// removal flips SoldOut to true and the record stays in place so item ids and
// pagination windows remain stable.
type MarketItem struct {
	ID        uint64
	Custodian common.Address
	TokenID   uint64
	Seller    common.Address
	Price     *big.Int
	Currency  Currency
	SoldOut   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

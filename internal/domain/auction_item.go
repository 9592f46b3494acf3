package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// AuctionItem is a timed competitive listing. HighestPrice is the cumulative
// amount currently escrowed by the highest bidder across all of their raises.
// A zero HighestBidder address means no one has bid yet. Like market items,
// auction records are never deleted; SoldOut marks the terminal state (either
// settled to the winner or removed with no bids).
type AuctionItem struct {
	ID            uint64
	Custodian     common.Address
	TokenID       uint64
	Seller        common.Address
	Currency      Currency
	HighestBidder common.Address
	HighestPrice  *big.Int
	Deadline      time.Time
	SoldOut       bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// HasBids reports whether a highest bidder is set.
func (a AuctionItem) HasBids() bool {
	return a.HighestBidder != (common.Address{})
}

// Ended reports whether the bidding deadline has passed. Bids are accepted
// strictly before the deadline; the auction can be ended at or after it.
func (a AuctionItem) Ended(now time.Time) bool {
	return !now.Before(a.Deadline)
}

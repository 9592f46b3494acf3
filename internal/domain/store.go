package domain

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// MarketItemStore persists fixed-price listings. Create assigns the next item
// id (1-based, strictly increasing, never reused). Window and WindowBySeller
// walk backward from the most recently created item: cursor is 1-indexed from
// the newest record and the result is ordered by descending item id. Stores
// return whatever records exist inside the window; bounds checking against
// the total count is the engine's job.
type MarketItemStore interface {
	Create(ctx context.Context, item MarketItem) (uint64, error)
	Update(ctx context.Context, item MarketItem) error
	Get(ctx context.Context, id uint64) (MarketItem, error)
	Count(ctx context.Context) (uint64, error)
	CountBySeller(ctx context.Context, seller common.Address) (uint64, error)
	Window(ctx context.Context, count, cursor uint64) ([]MarketItem, error)
	WindowBySeller(ctx context.Context, seller common.Address, count, cursor uint64) ([]MarketItem, error)
}

// AuctionItemStore persists auctions. Ids live in their own namespace with
// the same monotonicity and windowing contract as MarketItemStore.
type AuctionItemStore interface {
	Create(ctx context.Context, item AuctionItem) (uint64, error)
	Update(ctx context.Context, item AuctionItem) error
	Get(ctx context.Context, id uint64) (AuctionItem, error)
	Count(ctx context.Context) (uint64, error)
	CountBySeller(ctx context.Context, seller common.Address) (uint64, error)
	Window(ctx context.Context, count, cursor uint64) ([]AuctionItem, error)
	WindowBySeller(ctx context.Context, seller common.Address, count, cursor uint64) ([]AuctionItem, error)
}

// BidVaultStore tracks each bidder's cumulative escrowed amount per auction.
// Amount returns zero (not an error) when the bidder has no entry. Set stores
// the new cumulative amount; Clear zeroes the entry once the funds have been
// refunded or consumed by settlement.
type BidVaultStore interface {
	Amount(ctx context.Context, auctionID uint64, bidder common.Address) (*big.Int, error)
	Set(ctx context.Context, auctionID uint64, bidder common.Address, amount *big.Int) error
	Clear(ctx context.Context, auctionID uint64, bidder common.Address) error
}

// BalanceStore tracks pull-payment withdrawable balances per (owner, currency).
// Sub fails if the stored balance would go negative.
type BalanceStore interface {
	Balance(ctx context.Context, owner common.Address, currency Currency) (*big.Int, error)
	Add(ctx context.Context, owner common.Address, currency Currency, amount *big.Int) error
	Sub(ctx context.Context, owner common.Address, currency Currency, amount *big.Int) error
}

// WhitelistStore holds the set of asset custodians eligible for listing.
// Add is idempotent.
type WhitelistStore interface {
	Add(ctx context.Context, custodian common.Address) error
	Contains(ctx context.Context, custodian common.Address) (bool, error)
}

// AuditEntry is a single append-only audit record for a state mutation.
type AuditEntry struct {
	ID        string
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// ListOpts provides pagination for audit queries.
type ListOpts struct {
	Limit  int
	Offset int
}

// AuditStore persists an append-only audit log of engine mutations.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}

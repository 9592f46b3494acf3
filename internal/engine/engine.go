// Package engine implements the marketplace core: the serialized state
// machine tracking asset custody, fixed-price sales, auction bidding with
// outbid-refund vaults, fee splitting, and the pull-payment withdrawal
// ledgers for sellers and the platform.
//
// Every mutating operation is atomic with respect to all others: a mutex
// serializes writers (optionally backed by a distributed lock when replicas
// share a database), all validation happens before any effect, and external
// value transfers are ordered so that a failed collaborator call aborts the
// operation without losing or duplicating value.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/taisys/nftmarket/internal/access"
	"github.com/taisys/nftmarket/internal/domain"
	"github.com/taisys/nftmarket/internal/fee"
)

// writeLockKey is the distributed lock key guarding the single-writer
// property across replicas.
const writeLockKey = "engine:write"

// writeLockTTL bounds how long a crashed replica can hold the write lock.
const writeLockTTL = 10 * time.Second

// Deps bundles everything the engine needs to operate.
type Deps struct {
	Items     domain.MarketItemStore
	Auctions  domain.AuctionItemStore
	Bids      domain.BidVaultStore
	Balances  domain.BalanceStore
	Whitelist domain.WhitelistStore
	Audit     domain.AuditStore

	Roles  *access.Controller
	Fees   fee.Schedule
	Assets domain.AssetGateway
	Rails  map[domain.Currency]domain.PaymentRail

	// Escrow is the engine's own account: it holds asset custody and
	// escrowed funds, and keys the platform's drawable balance.
	Escrow common.Address

	// AuctionWindow is the fixed bidding window applied at auction creation.
	AuctionWindow time.Duration

	// Optional.
	Locks  domain.LockManager
	Clock  func() time.Time
	Logger *slog.Logger
}

// Engine is the marketplace state machine.
type Engine struct {
	mu sync.Mutex

	items     domain.MarketItemStore
	auctions  domain.AuctionItemStore
	bids      domain.BidVaultStore
	balances  domain.BalanceStore
	whitelist domain.WhitelistStore
	audit     domain.AuditStore

	roles  *access.Controller
	fees   fee.Schedule
	assets domain.AssetGateway
	rails  map[domain.Currency]domain.PaymentRail

	escrow common.Address
	window time.Duration

	locks  domain.LockManager
	now    func() time.Time
	logger *slog.Logger
}

// New creates an Engine, validating that every required dependency is set.
func New(d Deps) (*Engine, error) {
	switch {
	case d.Items == nil, d.Auctions == nil, d.Bids == nil, d.Balances == nil,
		d.Whitelist == nil, d.Audit == nil:
		return nil, errors.New("engine: all stores are required")
	case d.Roles == nil:
		return nil, errors.New("engine: role controller is required")
	case d.Assets == nil:
		return nil, errors.New("engine: asset gateway is required")
	case d.Rails[domain.CurrencyNative] == nil || d.Rails[domain.CurrencyToken] == nil:
		return nil, errors.New("engine: payment rails for both currencies are required")
	case d.Escrow == (common.Address{}):
		return nil, errors.New("engine: escrow account is required")
	case d.AuctionWindow <= 0:
		return nil, errors.New("engine: auction window must be positive")
	}

	now := d.Clock
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		items:     d.Items,
		auctions:  d.Auctions,
		bids:      d.Bids,
		balances:  d.Balances,
		whitelist: d.Whitelist,
		audit:     d.Audit,
		roles:     d.Roles,
		fees:      d.Fees,
		assets:    d.Assets,
		rails:     d.Rails,
		escrow:    d.Escrow,
		window:    d.AuctionWindow,
		locks:     d.Locks,
		now:       now,
		logger:    logger.With(slog.String("component", "engine")),
	}, nil
}

// Escrow returns the engine's escrow account address.
func (e *Engine) Escrow() common.Address {
	return e.escrow
}

// FeeBps returns the configured platform fee in basis points.
func (e *Engine) FeeBps() uint32 {
	return e.fees.Bps()
}

// lockWrites serializes mutating operations. With a lock manager configured
// it also excludes writers on other replicas, polling until the lock frees
// or the context ends.
func (e *Engine) lockWrites(ctx context.Context) (func(), error) {
	var unlockShared func()
	if e.locks != nil {
		for {
			unlock, err := e.locks.Acquire(ctx, writeLockKey, writeLockTTL)
			if err == nil {
				unlockShared = unlock
				break
			}
			if !errors.Is(err, domain.ErrLockHeld) {
				return nil, fmt.Errorf("engine: acquire write lock: %w", err)
			}
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("engine: acquire write lock: %w", ctx.Err())
			case <-time.After(10 * time.Millisecond):
			}
		}
	}

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		if unlockShared != nil {
			unlockShared()
		}
	}, nil
}

// rail returns the payment rail for a currency.
func (e *Engine) rail(c domain.Currency) domain.PaymentRail {
	return e.rails[c]
}

// paymentMismatch names the currency-mismatch error by what the item
// accepts.
func paymentMismatch(item domain.Currency) error {
	if item == domain.CurrencyNative {
		return domain.ErrNativePaymentOnly
	}
	return domain.ErrTokenPaymentOnly
}

// validAmount checks a caller-supplied amount.
func validAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return domain.ErrAmountMustBePositive
	}
	return nil
}

// auditLog records a mutation in the audit trail. Audit failures never fail
// the operation that already committed.
func (e *Engine) auditLog(ctx context.Context, event string, detail map[string]any) {
	if err := e.audit.Log(ctx, event, detail); err != nil {
		e.logger.WarnContext(ctx, "audit log write failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

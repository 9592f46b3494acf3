package postgres

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taisys/nftmarket/internal/domain"
)

// BidVaultStore implements domain.BidVaultStore using PostgreSQL.
type BidVaultStore struct {
	pool *pgxpool.Pool
}

// NewBidVaultStore creates a BidVaultStore backed by the given pool.
func NewBidVaultStore(pool *pgxpool.Pool) *BidVaultStore {
	return &BidVaultStore{pool: pool}
}

// Amount returns the bidder's cumulative escrowed amount for an auction, or
// zero when no entry exists.
func (s *BidVaultStore) Amount(ctx context.Context, auctionID uint64, bidder common.Address) (*big.Int, error) {
	const query = `
		SELECT amount::text FROM bid_vaults
		WHERE auction_id = $1 AND bidder = $2`

	var raw string
	err := s.pool.QueryRow(ctx, query, auctionID, bidder.Hex()).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return new(big.Int), nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: read bid vault: %w", err)
	}

	amount, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, fmt.Errorf("postgres: malformed bid amount %q", raw)
	}
	return amount, nil
}

// Set stores the bidder's new cumulative amount.
func (s *BidVaultStore) Set(ctx context.Context, auctionID uint64, bidder common.Address, amount *big.Int) error {
	const query = `
		INSERT INTO bid_vaults (auction_id, bidder, amount, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (auction_id, bidder) DO UPDATE SET
			amount     = EXCLUDED.amount,
			updated_at = NOW()`

	if _, err := s.pool.Exec(ctx, query, auctionID, bidder.Hex(), amount.String()); err != nil {
		return fmt.Errorf("postgres: set bid vault: %w", err)
	}
	return nil
}

// Clear removes the bidder's entry for an auction.
func (s *BidVaultStore) Clear(ctx context.Context, auctionID uint64, bidder common.Address) error {
	const query = `DELETE FROM bid_vaults WHERE auction_id = $1 AND bidder = $2`
	if _, err := s.pool.Exec(ctx, query, auctionID, bidder.Hex()); err != nil {
		return fmt.Errorf("postgres: clear bid vault: %w", err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.BidVaultStore = (*BidVaultStore)(nil)

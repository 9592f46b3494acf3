package postgres

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taisys/nftmarket/internal/domain"
)

// WhitelistStore implements domain.WhitelistStore using PostgreSQL.
type WhitelistStore struct {
	pool *pgxpool.Pool
}

// NewWhitelistStore creates a WhitelistStore backed by the given pool.
func NewWhitelistStore(pool *pgxpool.Pool) *WhitelistStore {
	return &WhitelistStore{pool: pool}
}

// Add registers a custodian; re-adding is a no-op.
func (s *WhitelistStore) Add(ctx context.Context, custodian common.Address) error {
	const query = `
		INSERT INTO whitelist (custodian) VALUES ($1)
		ON CONFLICT (custodian) DO NOTHING`

	if _, err := s.pool.Exec(ctx, query, custodian.Hex()); err != nil {
		return fmt.Errorf("postgres: add to whitelist: %w", err)
	}
	return nil
}

// Contains reports whether the custodian is whitelisted.
func (s *WhitelistStore) Contains(ctx context.Context, custodian common.Address) (bool, error) {
	var ok bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM whitelist WHERE custodian = $1)`, custodian.Hex(),
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("postgres: check whitelist: %w", err)
	}
	return ok, nil
}

// Compile-time interface check.
var _ domain.WhitelistStore = (*WhitelistStore)(nil)

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

// BalanceStore implements domain.BalanceStore using PostgreSQL.
type BalanceStore struct {
	pool *pgxpool.Pool
}

// NewBalanceStore creates a BalanceStore backed by the given pool.
func NewBalanceStore(pool *pgxpool.Pool) *BalanceStore {
	return &BalanceStore{pool: pool}
}

// Balance returns the drawable amount for (owner, currency), zero when no
// row exists.
func (s *BalanceStore) Balance(ctx context.Context, owner common.Address, currency domain.Currency) (*big.Int, error) {
	const query = `
		SELECT amount::text FROM balances
		WHERE owner = $1 AND currency = $2`

	var raw string
	err := s.pool.QueryRow(ctx, query, owner.Hex(), string(currency)).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return new(big.Int), nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: read balance: %w", err)
	}

	amount, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, fmt.Errorf("postgres: malformed balance %q", raw)
	}
	return amount, nil
}

// Add credits the balance, creating the row on first use.
func (s *BalanceStore) Add(ctx context.Context, owner common.Address, currency domain.Currency, amount *big.Int) error {
	const query = `
		INSERT INTO balances (owner, currency, amount, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (owner, currency) DO UPDATE SET
			amount     = balances.amount + EXCLUDED.amount,
			updated_at = NOW()`

	if _, err := s.pool.Exec(ctx, query, owner.Hex(), string(currency), amount.String()); err != nil {
		return fmt.Errorf("postgres: credit balance: %w", err)
	}
	return nil
}

// Sub debits the balance. The guard in the WHERE clause makes the debit
// atomic: a concurrent debit can never push the stored amount negative.
func (s *BalanceStore) Sub(ctx context.Context, owner common.Address, currency domain.Currency, amount *big.Int) error {
	const query = `
		UPDATE balances
		SET amount = amount - $3, updated_at = NOW()
		WHERE owner = $1 AND currency = $2 AND amount >= $3`

	tag, err := s.pool.Exec(ctx, query, owner.Hex(), string(currency), amount.String())
	if err != nil {
		return fmt.Errorf("postgres: debit balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: balance underflow for %s/%s", owner.Hex(), currency)
	}
	return nil
}

// Compile-time interface check.
var _ domain.BalanceStore = (*BalanceStore)(nil)

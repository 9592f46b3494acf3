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

// MarketItemStore implements domain.MarketItemStore using PostgreSQL.
type MarketItemStore struct {
	pool *pgxpool.Pool
}

// NewMarketItemStore creates a MarketItemStore backed by the given pool.
func NewMarketItemStore(pool *pgxpool.Pool) *MarketItemStore {
	return &MarketItemStore{pool: pool}
}

// Create inserts the item and returns its assigned id.
func (s *MarketItemStore) Create(ctx context.Context, item domain.MarketItem) (uint64, error) {
	const query = `
		INSERT INTO market_items (
			custodian, token_id, seller, price, currency,
			sold_out, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	var id uint64
	err := s.pool.QueryRow(ctx, query,
		item.Custodian.Hex(), item.TokenID, item.Seller.Hex(),
		item.Price.String(), string(item.Currency),
		item.SoldOut, item.CreatedAt, item.UpdatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("postgres: create market item: %w", err)
	}
	return id, nil
}

// Update replaces the mutable fields of the stored record.
func (s *MarketItemStore) Update(ctx context.Context, item domain.MarketItem) error {
	const query = `
		UPDATE market_items
		SET sold_out = $2, updated_at = $3
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query, item.ID, item.SoldOut, item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("postgres: update market item %d: %w", item.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrMarketItemNotFound
	}
	return nil
}

// Get returns the item with the given id.
func (s *MarketItemStore) Get(ctx context.Context, id uint64) (domain.MarketItem, error) {
	const query = `
		SELECT id, custodian, token_id, seller, price::text, currency,
		       sold_out, created_at, updated_at
		FROM market_items
		WHERE id = $1`

	item, err := scanMarketItem(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.MarketItem{}, domain.ErrMarketItemNotFound
		}
		return domain.MarketItem{}, fmt.Errorf("postgres: get market item %d: %w", id, err)
	}
	return item, nil
}

// Count returns the total number of records ever created.
func (s *MarketItemStore) Count(ctx context.Context) (uint64, error) {
	var n uint64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM market_items`).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: count market items: %w", err)
	}
	return n, nil
}

// CountBySeller returns the number of records created by one seller.
func (s *MarketItemStore) CountBySeller(ctx context.Context, seller common.Address) (uint64, error) {
	var n uint64
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM market_items WHERE seller = $1`, seller.Hex(),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("postgres: count market items by seller: %w", err)
	}
	return n, nil
}

// Window returns up to count items in descending id order, starting at the
// cursor-th most recent record (cursor is 1-indexed).
func (s *MarketItemStore) Window(ctx context.Context, count, cursor uint64) ([]domain.MarketItem, error) {
	if cursor == 0 {
		return nil, nil
	}
	const query = `
		SELECT id, custodian, token_id, seller, price::text, currency,
		       sold_out, created_at, updated_at
		FROM market_items
		ORDER BY id DESC
		OFFSET $1 LIMIT $2`

	rows, err := s.pool.Query(ctx, query, cursor-1, count)
	if err != nil {
		return nil, fmt.Errorf("postgres: window market items: %w", err)
	}
	defer rows.Close()
	return collectMarketItems(rows)
}

// WindowBySeller is Window restricted to one seller's records.
func (s *MarketItemStore) WindowBySeller(ctx context.Context, seller common.Address, count, cursor uint64) ([]domain.MarketItem, error) {
	if cursor == 0 {
		return nil, nil
	}
	const query = `
		SELECT id, custodian, token_id, seller, price::text, currency,
		       sold_out, created_at, updated_at
		FROM market_items
		WHERE seller = $1
		ORDER BY id DESC
		OFFSET $2 LIMIT $3`

	rows, err := s.pool.Query(ctx, query, seller.Hex(), cursor-1, count)
	if err != nil {
		return nil, fmt.Errorf("postgres: window market items by seller: %w", err)
	}
	defer rows.Close()
	return collectMarketItems(rows)
}

func scanMarketItem(row pgx.Row) (domain.MarketItem, error) {
	var item domain.MarketItem
	var custodian, seller, price, currency string
	err := row.Scan(
		&item.ID, &custodian, &item.TokenID, &seller, &price, &currency,
		&item.SoldOut, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return domain.MarketItem{}, err
	}

	item.Custodian = common.HexToAddress(custodian)
	item.Seller = common.HexToAddress(seller)
	item.Currency = domain.Currency(currency)
	item.Price, _ = new(big.Int).SetString(price, 10)
	if item.Price == nil {
		return domain.MarketItem{}, fmt.Errorf("malformed price %q", price)
	}
	return item, nil
}

func collectMarketItems(rows pgx.Rows) ([]domain.MarketItem, error) {
	var items []domain.MarketItem
	for rows.Next() {
		item, err := scanMarketItem(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan market item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: market item rows: %w", err)
	}
	return items, nil
}

// Compile-time interface check.
var _ domain.MarketItemStore = (*MarketItemStore)(nil)

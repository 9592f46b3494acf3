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

// AuctionItemStore implements domain.AuctionItemStore using PostgreSQL.
type AuctionItemStore struct {
	pool *pgxpool.Pool
}

// NewAuctionItemStore creates an AuctionItemStore backed by the given pool.
func NewAuctionItemStore(pool *pgxpool.Pool) *AuctionItemStore {
	return &AuctionItemStore{pool: pool}
}

// Create inserts the auction and returns its assigned id.
func (s *AuctionItemStore) Create(ctx context.Context, item domain.AuctionItem) (uint64, error) {
	const query = `
		INSERT INTO auction_items (
			custodian, token_id, seller, currency, highest_bidder,
			highest_price, deadline, sold_out, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`

	var id uint64
	err := s.pool.QueryRow(ctx, query,
		item.Custodian.Hex(), item.TokenID, item.Seller.Hex(),
		string(item.Currency), item.HighestBidder.Hex(),
		item.HighestPrice.String(), item.Deadline,
		item.SoldOut, item.CreatedAt, item.UpdatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("postgres: create auction item: %w", err)
	}
	return id, nil
}

// Update replaces the mutable fields of the stored record.
func (s *AuctionItemStore) Update(ctx context.Context, item domain.AuctionItem) error {
	const query = `
		UPDATE auction_items
		SET highest_bidder = $2, highest_price = $3, sold_out = $4, updated_at = $5
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query,
		item.ID, item.HighestBidder.Hex(), item.HighestPrice.String(),
		item.SoldOut, item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: update auction item %d: %w", item.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAuctionItemNotFound
	}
	return nil
}

// Get returns the auction with the given id.
func (s *AuctionItemStore) Get(ctx context.Context, id uint64) (domain.AuctionItem, error) {
	const query = `
		SELECT id, custodian, token_id, seller, currency, highest_bidder,
		       highest_price::text, deadline, sold_out, created_at, updated_at
		FROM auction_items
		WHERE id = $1`

	item, err := scanAuctionItem(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.AuctionItem{}, domain.ErrAuctionItemNotFound
		}
		return domain.AuctionItem{}, fmt.Errorf("postgres: get auction item %d: %w", id, err)
	}
	return item, nil
}

// Count returns the total number of records ever created.
func (s *AuctionItemStore) Count(ctx context.Context) (uint64, error) {
	var n uint64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM auction_items`).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: count auction items: %w", err)
	}
	return n, nil
}

// CountBySeller returns the number of records created by one seller.
func (s *AuctionItemStore) CountBySeller(ctx context.Context, seller common.Address) (uint64, error) {
	var n uint64
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM auction_items WHERE seller = $1`, seller.Hex(),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("postgres: count auction items by seller: %w", err)
	}
	return n, nil
}

// Window returns up to count auctions in descending id order, starting at
// the cursor-th most recent record (cursor is 1-indexed).
func (s *AuctionItemStore) Window(ctx context.Context, count, cursor uint64) ([]domain.AuctionItem, error) {
	if cursor == 0 {
		return nil, nil
	}
	const query = `
		SELECT id, custodian, token_id, seller, currency, highest_bidder,
		       highest_price::text, deadline, sold_out, created_at, updated_at
		FROM auction_items
		ORDER BY id DESC
		OFFSET $1 LIMIT $2`

	rows, err := s.pool.Query(ctx, query, cursor-1, count)
	if err != nil {
		return nil, fmt.Errorf("postgres: window auction items: %w", err)
	}
	defer rows.Close()
	return collectAuctionItems(rows)
}

// WindowBySeller is Window restricted to one seller's records.
func (s *AuctionItemStore) WindowBySeller(ctx context.Context, seller common.Address, count, cursor uint64) ([]domain.AuctionItem, error) {
	if cursor == 0 {
		return nil, nil
	}
	const query = `
		SELECT id, custodian, token_id, seller, currency, highest_bidder,
		       highest_price::text, deadline, sold_out, created_at, updated_at
		FROM auction_items
		WHERE seller = $1
		ORDER BY id DESC
		OFFSET $2 LIMIT $3`

	rows, err := s.pool.Query(ctx, query, seller.Hex(), cursor-1, count)
	if err != nil {
		return nil, fmt.Errorf("postgres: window auction items by seller: %w", err)
	}
	defer rows.Close()
	return collectAuctionItems(rows)
}

func scanAuctionItem(row pgx.Row) (domain.AuctionItem, error) {
	var item domain.AuctionItem
	var custodian, seller, currency, bidder, price string
	err := row.Scan(
		&item.ID, &custodian, &item.TokenID, &seller, &currency, &bidder,
		&price, &item.Deadline, &item.SoldOut, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return domain.AuctionItem{}, err
	}

	item.Custodian = common.HexToAddress(custodian)
	item.Seller = common.HexToAddress(seller)
	item.Currency = domain.Currency(currency)
	item.HighestBidder = common.HexToAddress(bidder)
	item.HighestPrice, _ = new(big.Int).SetString(price, 10)
	if item.HighestPrice == nil {
		return domain.AuctionItem{}, fmt.Errorf("malformed highest price %q", price)
	}
	return item, nil
}

func collectAuctionItems(rows pgx.Rows) ([]domain.AuctionItem, error) {
	var items []domain.AuctionItem
	for rows.Next() {
		item, err := scanAuctionItem(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan auction item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: auction item rows: %w", err)
	}
	return items, nil
}

// Compile-time interface check.
var _ domain.AuctionItemStore = (*AuctionItemStore)(nil)

// Package service sits between the HTTP handlers and the engine. The
// services delegate every operation to the engine and keep the optional
// Redis snapshot caches coherent around reads and writes.
package service

import (
	"context"
	"errors"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/taisys/nftmarket/internal/domain"
	"github.com/taisys/nftmarket/internal/engine"
)

// MarketService fronts the fixed-price marketplace operations.
type MarketService struct {
	eng    *engine.Engine
	cache  domain.MarketItemCache // nil when Redis is disabled
	logger *slog.Logger
}

// NewMarketService creates a MarketService. cache may be nil.
func NewMarketService(eng *engine.Engine, cache domain.MarketItemCache, logger *slog.Logger) *MarketService {
	return &MarketService{
		eng:    eng,
		cache:  cache,
		logger: logger.With(slog.String("component", "market_service")),
	}
}

// Create lists an asset for sale.
func (s *MarketService) Create(ctx context.Context, seller, custodian common.Address, tokenID uint64, price *big.Int, currency domain.Currency) (domain.MarketItem, error) {
	return s.eng.CreateMarketItem(ctx, seller, custodian, tokenID, price, currency)
}

// Get returns a listing, preferring the cache snapshot.
func (s *MarketService) Get(ctx context.Context, id uint64) (domain.MarketItem, error) {
	if s.cache != nil {
		item, err := s.cache.Get(ctx, id)
		if err == nil {
			return item, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "cache read failed", slog.Uint64("item_id", id), slog.String("error", err.Error()))
		}
	}

	item, err := s.eng.GetMarketItem(ctx, id)
	if err != nil {
		return domain.MarketItem{}, err
	}
	s.cacheSet(ctx, item)
	return item, nil
}

// List returns up to count listings walking backward from the cursor-th most
// recent.
func (s *MarketService) List(ctx context.Context, count, cursor uint64) ([]domain.MarketItem, error) {
	return s.eng.MarketItems(ctx, count, cursor)
}

// ListBySeller is List restricted to one seller.
func (s *MarketService) ListBySeller(ctx context.Context, seller common.Address, count, cursor uint64) ([]domain.MarketItem, error) {
	return s.eng.MarketItemsOf(ctx, seller, count, cursor)
}

// Count returns the total number of listings ever created.
func (s *MarketService) Count(ctx context.Context) (uint64, error) {
	return s.eng.MarketItemCount(ctx)
}

// CountBySeller returns one seller's listing count.
func (s *MarketService) CountBySeller(ctx context.Context, seller common.Address) (uint64, error) {
	return s.eng.MarketItemCountOf(ctx, seller)
}

// Buy purchases a listing and drops its cache snapshot.
func (s *MarketService) Buy(ctx context.Context, buyer common.Address, id uint64, pay domain.Currency) error {
	if err := s.eng.Buy(ctx, buyer, id, pay); err != nil {
		return err
	}
	s.cacheInvalidate(ctx, id)
	return nil
}

// Remove cancels a listing and drops its cache snapshot.
func (s *MarketService) Remove(ctx context.Context, caller common.Address, id uint64) error {
	if err := s.eng.RemoveMarketItem(ctx, caller, id); err != nil {
		return err
	}
	s.cacheInvalidate(ctx, id)
	return nil
}

func (s *MarketService) cacheSet(ctx context.Context, item domain.MarketItem) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, item); err != nil {
		s.logger.WarnContext(ctx, "cache write failed", slog.Uint64("item_id", item.ID), slog.String("error", err.Error()))
	}
}

func (s *MarketService) cacheInvalidate(ctx context.Context, id uint64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.logger.WarnContext(ctx, "cache invalidate failed", slog.Uint64("item_id", id), slog.String("error", err.Error()))
	}
}

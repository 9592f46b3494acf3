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

// AuctionService fronts the auction operations.
type AuctionService struct {
	eng    *engine.Engine
	cache  domain.AuctionItemCache // nil when Redis is disabled
	logger *slog.Logger
}

// NewAuctionService creates an AuctionService. cache may be nil.
func NewAuctionService(eng *engine.Engine, cache domain.AuctionItemCache, logger *slog.Logger) *AuctionService {
	return &AuctionService{
		eng:    eng,
		cache:  cache,
		logger: logger.With(slog.String("component", "auction_service")),
	}
}

// Create opens an auction.
func (s *AuctionService) Create(ctx context.Context, seller, custodian common.Address, tokenID uint64, currency domain.Currency) (domain.AuctionItem, error) {
	return s.eng.CreateAuctionItem(ctx, seller, custodian, tokenID, currency)
}

// Get returns an auction, preferring the cache snapshot.
func (s *AuctionService) Get(ctx context.Context, id uint64) (domain.AuctionItem, error) {
	if s.cache != nil {
		item, err := s.cache.Get(ctx, id)
		if err == nil {
			return item, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "cache read failed", slog.Uint64("item_id", id), slog.String("error", err.Error()))
		}
	}

	item, err := s.eng.GetAuctionItem(ctx, id)
	if err != nil {
		return domain.AuctionItem{}, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, item); err != nil {
			s.logger.WarnContext(ctx, "cache write failed", slog.Uint64("item_id", id), slog.String("error", err.Error()))
		}
	}
	return item, nil
}

// List returns up to count auctions walking backward from the cursor-th most
// recent.
func (s *AuctionService) List(ctx context.Context, count, cursor uint64) ([]domain.AuctionItem, error) {
	return s.eng.AuctionItems(ctx, count, cursor)
}

// ListBySeller is List restricted to one seller.
func (s *AuctionService) ListBySeller(ctx context.Context, seller common.Address, count, cursor uint64) ([]domain.AuctionItem, error) {
	return s.eng.AuctionItemsOf(ctx, seller, count, cursor)
}

// Count returns the total number of auctions ever created.
func (s *AuctionService) Count(ctx context.Context) (uint64, error) {
	return s.eng.AuctionItemCount(ctx)
}

// CountBySeller returns one seller's auction count.
func (s *AuctionService) CountBySeller(ctx context.Context, seller common.Address) (uint64, error) {
	return s.eng.AuctionItemCountOf(ctx, seller)
}

// Bid escrows a raise towards an auction and drops its cache snapshot.
func (s *AuctionService) Bid(ctx context.Context, bidder common.Address, id uint64, pay domain.Currency, amount *big.Int) error {
	if err := s.eng.Bid(ctx, bidder, id, pay, amount); err != nil {
		return err
	}
	s.cacheInvalidate(ctx, id)
	return nil
}

// Revertable returns a bidder's refundable escrow for an auction.
func (s *AuctionService) Revertable(ctx context.Context, id uint64, bidder common.Address) (*big.Int, error) {
	return s.eng.Revertable(ctx, id, bidder)
}

// RevertBid refunds the caller's escrow to the recipient.
func (s *AuctionService) RevertBid(ctx context.Context, caller, recipient common.Address, id uint64) error {
	return s.eng.RevertBid(ctx, caller, recipient, id)
}

// End settles an auction and drops its cache snapshot.
func (s *AuctionService) End(ctx context.Context, caller common.Address, id uint64) error {
	if err := s.eng.EndAuction(ctx, caller, id); err != nil {
		return err
	}
	s.cacheInvalidate(ctx, id)
	return nil
}

// Remove cancels an unbid auction and drops its cache snapshot.
func (s *AuctionService) Remove(ctx context.Context, caller common.Address, id uint64) error {
	if err := s.eng.RemoveAuctionItem(ctx, caller, id); err != nil {
		return err
	}
	s.cacheInvalidate(ctx, id)
	return nil
}

func (s *AuctionService) cacheInvalidate(ctx context.Context, id uint64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.logger.WarnContext(ctx, "cache invalidate failed", slog.Uint64("item_id", id), slog.String("error", err.Error()))
	}
}

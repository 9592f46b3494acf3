package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/taisys/nftmarket/internal/domain"
)

// CreateAuctionItem opens an auction for an asset. The custodian must be
// whitelisted. The bidding deadline is fixed at creation (now + the engine's
// auction window) and never changes.
func (e *Engine) CreateAuctionItem(
	ctx context.Context,
	seller, custodian common.Address,
	tokenID uint64,
	currency domain.Currency,
) (domain.AuctionItem, error) {
	if !currency.Valid() {
		return domain.AuctionItem{}, domain.ErrUnknownCurrency
	}

	unlock, err := e.lockWrites(ctx)
	if err != nil {
		return domain.AuctionItem{}, err
	}
	defer unlock()

	ok, err := e.whitelist.Contains(ctx, custodian)
	if err != nil {
		return domain.AuctionItem{}, fmt.Errorf("engine: check whitelist: %w", err)
	}
	if !ok {
		return domain.AuctionItem{}, domain.ErrAddressNotInWhitelist
	}

	if err := e.assets.TransferAsset(ctx, custodian, tokenID, seller, e.escrow); err != nil {
		return domain.AuctionItem{}, fmt.Errorf("engine: take custody: %w", err)
	}

	now := e.now()
	item := domain.AuctionItem{
		Custodian:    custodian,
		TokenID:      tokenID,
		Seller:       seller,
		Currency:     currency,
		HighestPrice: new(big.Int),
		Deadline:     now.Add(e.window),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	id, err := e.auctions.Create(ctx, item)
	if err != nil {
		if cerr := e.assets.TransferAsset(ctx, custodian, tokenID, e.escrow, seller); cerr != nil {
			e.logger.ErrorContext(ctx, "custody return after failed create",
				slog.Uint64("token_id", tokenID),
				slog.String("error", cerr.Error()),
			)
		}
		return domain.AuctionItem{}, fmt.Errorf("engine: create auction item: %w", err)
	}
	item.ID = id

	e.auditLog(ctx, "auction_item_created", map[string]any{
		"item_id":   id,
		"seller":    seller.Hex(),
		"custodian": custodian.Hex(),
		"token_id":  tokenID,
		"currency":  string(currency),
		"deadline":  item.Deadline,
	})
	return item, nil
}

// GetAuctionItem returns an auction by id.
func (e *Engine) GetAuctionItem(ctx context.Context, id uint64) (domain.AuctionItem, error) {
	return e.auctions.Get(ctx, id)
}

// AuctionItems returns up to count auctions walking backward from the
// cursor-th most recent, in descending item id order.
func (e *Engine) AuctionItems(ctx context.Context, count, cursor uint64) ([]domain.AuctionItem, error) {
	total, err := e.auctions.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("engine: count auction items: %w", err)
	}
	if cursor == 0 || cursor > total {
		return nil, domain.ErrOutOfBounds
	}
	return e.auctions.Window(ctx, count, cursor)
}

// AuctionItemsOf is AuctionItems restricted to one seller's records.
func (e *Engine) AuctionItemsOf(ctx context.Context, seller common.Address, count, cursor uint64) ([]domain.AuctionItem, error) {
	total, err := e.auctions.CountBySeller(ctx, seller)
	if err != nil {
		return nil, fmt.Errorf("engine: count seller auction items: %w", err)
	}
	if cursor == 0 || cursor > total {
		return nil, domain.ErrOutOfBounds
	}
	return e.auctions.WindowBySeller(ctx, seller, count, cursor)
}

// AuctionItemCount returns the total number of auctions ever created.
func (e *Engine) AuctionItemCount(ctx context.Context) (uint64, error) {
	return e.auctions.Count(ctx)
}

// AuctionItemCountOf returns the number of auctions a seller has created.
func (e *Engine) AuctionItemCountOf(ctx context.Context, seller common.Address) (uint64, error) {
	return e.auctions.CountBySeller(ctx, seller)
}

// RemoveAuctionItem cancels an auction that nobody has bid on and returns
// custody to the seller. Once a highest bidder exists the auction carries
// live competitive state and can only end by settlement.
func (e *Engine) RemoveAuctionItem(ctx context.Context, caller common.Address, id uint64) error {
	unlock, err := e.lockWrites(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	item, err := e.auctions.Get(ctx, id)
	if err != nil {
		return err
	}
	if caller != item.Seller && !e.roles.IsAdmin(caller) {
		return domain.ErrNotSellerOrAdmin
	}
	if item.SoldOut {
		return domain.ErrSoldOut
	}
	if item.HasBids() {
		return domain.ErrHasHighestBidder
	}

	item.SoldOut = true
	item.UpdatedAt = e.now()
	if err := e.auctions.Update(ctx, item); err != nil {
		return fmt.Errorf("engine: remove auction item: %w", err)
	}

	if err := e.assets.TransferAsset(ctx, item.Custodian, item.TokenID, e.escrow, item.Seller); err != nil {
		return fmt.Errorf("engine: return custody: %w", err)
	}

	e.auditLog(ctx, "auction_item_removed", map[string]any{
		"item_id": id,
		"caller":  caller.Hex(),
	})
	return nil
}

// Bid escrows amount towards an auction. A bidder's separate raises while not
// holding the lead are additive: their new cumulative commitment (incoming
// amount plus any refundable amount already escrowed) must exceed the current
// highest price. The displaced leader's cumulative stays escrowed as their
// revertable bid. The current leader cannot raise against themselves.
func (e *Engine) Bid(ctx context.Context, bidder common.Address, id uint64, pay domain.Currency, amount *big.Int) error {
	if !pay.Valid() {
		return domain.ErrUnknownCurrency
	}
	if err := validAmount(amount); err != nil {
		return err
	}

	unlock, err := e.lockWrites(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	item, err := e.auctions.Get(ctx, id)
	if err != nil {
		return err
	}
	if item.SoldOut {
		return domain.ErrSoldOut
	}
	if item.Ended(e.now()) {
		return domain.ErrAuctionOver
	}
	if pay != item.Currency {
		return paymentMismatch(item.Currency)
	}
	if bidder == item.Seller {
		return domain.ErrSelfPurchase
	}
	if bidder == item.HighestBidder {
		return domain.ErrAlreadyHighestBidder
	}

	prior, err := e.bids.Amount(ctx, id, bidder)
	if err != nil {
		return fmt.Errorf("engine: read bid vault: %w", err)
	}
	cumulative := new(big.Int).Add(prior, amount)
	if cumulative.Cmp(item.HighestPrice) <= 0 {
		return domain.ErrBidTooLow
	}

	rail := e.rail(item.Currency)
	if err := rail.Collect(ctx, bidder, amount); err != nil {
		return fmt.Errorf("engine: collect bid: %w", err)
	}

	// The displaced leader's vault entry already holds their cumulative;
	// only the new leader's entry and the auction head change.
	if err := e.bids.Set(ctx, id, bidder, cumulative); err != nil {
		if perr := rail.Payout(ctx, bidder, amount); perr != nil {
			e.logger.ErrorContext(ctx, "refund after failed bid",
				slog.Uint64("item_id", id),
				slog.String("error", perr.Error()),
			)
		}
		return fmt.Errorf("engine: store bid: %w", err)
	}

	item.HighestBidder = bidder
	item.HighestPrice = cumulative
	item.UpdatedAt = e.now()
	if err := e.auctions.Update(ctx, item); err != nil {
		// Put the vault entry and the bidder's funds back where they were.
		var verr error
		if prior.Sign() == 0 {
			verr = e.bids.Clear(ctx, id, bidder)
		} else {
			verr = e.bids.Set(ctx, id, bidder, prior)
		}
		if verr != nil {
			e.logger.ErrorContext(ctx, "restore bid vault after failed head update",
				slog.Uint64("item_id", id),
				slog.String("error", verr.Error()),
			)
		}
		if perr := rail.Payout(ctx, bidder, amount); perr != nil {
			e.logger.ErrorContext(ctx, "refund after failed bid",
				slog.Uint64("item_id", id),
				slog.String("error", perr.Error()),
			)
		}
		return fmt.Errorf("engine: update auction head: %w", err)
	}

	e.auditLog(ctx, "bid_placed", map[string]any{
		"item_id":    id,
		"bidder":     bidder.Hex(),
		"amount":     amount.String(),
		"cumulative": cumulative.String(),
	})
	return nil
}

// Revertable returns the bidder's currently refundable escrowed amount for
// an auction: zero when they have nothing escrowed or while they hold the
// lead of an unsettled auction.
func (e *Engine) Revertable(ctx context.Context, id uint64, bidder common.Address) (*big.Int, error) {
	item, err := e.auctions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if bidder == item.HighestBidder && !item.SoldOut {
		return new(big.Int), nil
	}
	amount, err := e.bids.Amount(ctx, id, bidder)
	if err != nil {
		return nil, fmt.Errorf("engine: read bid vault: %w", err)
	}
	return amount, nil
}

// RevertBid refunds the caller's entire escrowed amount for an auction to
// the chosen recipient and zeroes their vault entry. The current highest
// bidder of an unsettled auction cannot revert; everyone else can, before or
// after the auction ends.
func (e *Engine) RevertBid(ctx context.Context, caller, recipient common.Address, id uint64) error {
	if recipient == (common.Address{}) {
		return domain.ErrZeroAddress
	}

	unlock, err := e.lockWrites(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	item, err := e.auctions.Get(ctx, id)
	if err != nil {
		return err
	}
	amount, err := e.bids.Amount(ctx, id, caller)
	if err != nil {
		return fmt.Errorf("engine: read bid vault: %w", err)
	}
	if amount.Sign() == 0 {
		return domain.ErrBidderNotFound
	}
	if caller == item.HighestBidder && !item.SoldOut {
		return domain.ErrHighestBidderCannotRevert
	}

	if err := e.bids.Clear(ctx, id, caller); err != nil {
		return fmt.Errorf("engine: clear bid vault: %w", err)
	}
	if err := e.rail(item.Currency).Payout(ctx, recipient, amount); err != nil {
		return fmt.Errorf("engine: refund bid: %w", err)
	}

	e.auditLog(ctx, "bid_reverted", map[string]any{
		"item_id":   id,
		"bidder":    caller.Hex(),
		"recipient": recipient.Hex(),
		"amount":    amount.String(),
	})
	return nil
}

// EndAuction settles an auction at or after its deadline: the asset passes
// to the highest bidder, their escrowed commitment is consumed, and the
// proceeds are split between the seller's and the platform's drawable
// balances. Settlement is single-shot; a second call fails on the SoldOut
// check.
func (e *Engine) EndAuction(ctx context.Context, caller common.Address, id uint64) error {
	unlock, err := e.lockWrites(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	item, err := e.auctions.Get(ctx, id)
	if err != nil {
		return err
	}
	if item.SoldOut {
		return domain.ErrSoldOut
	}
	if !item.HasBids() {
		return domain.ErrNoBids
	}
	if !item.Ended(e.now()) {
		return domain.ErrAuctionNotOver
	}
	if caller != item.HighestBidder && caller != item.Seller {
		return domain.ErrNotBidderOrSeller
	}

	// Settlement writes run in dependency order; a failure at any step
	// unwinds the earlier writes so the auction stays live and every
	// escrowed amount stays where it was.
	var undo []func()
	fail := func(err error) error {
		for i := len(undo) - 1; i >= 0; i-- {
			undo[i]()
		}
		return err
	}

	winner := item.HighestBidder

	// Consume the winner's escrow before crediting anyone: the winner's
	// funds are never individually refundable once settlement starts.
	if err := e.bids.Clear(ctx, id, winner); err != nil {
		return fmt.Errorf("engine: consume winning bid: %w", err)
	}
	undo = append(undo, func() {
		if uerr := e.bids.Set(ctx, id, winner, item.HighestPrice); uerr != nil {
			e.logger.ErrorContext(ctx, "restore winning bid after failed settlement",
				slog.Uint64("item_id", id),
				slog.String("error", uerr.Error()),
			)
		}
	})

	item.SoldOut = true
	item.UpdatedAt = e.now()
	if err := e.auctions.Update(ctx, item); err != nil {
		return fail(fmt.Errorf("engine: mark auction settled: %w", err))
	}
	undo = append(undo, func() {
		reopened := item
		reopened.SoldOut = false
		reopened.UpdatedAt = e.now()
		if uerr := e.auctions.Update(ctx, reopened); uerr != nil {
			e.logger.ErrorContext(ctx, "reopen auction after failed settlement",
				slog.Uint64("item_id", id),
				slog.String("error", uerr.Error()),
			)
		}
	})

	sellerAmt, platformAmt := e.fees.Split(item.HighestPrice)
	if err := e.balances.Add(ctx, item.Seller, item.Currency, sellerAmt); err != nil {
		return fail(fmt.Errorf("engine: credit seller: %w", err))
	}
	undo = append(undo, func() {
		if uerr := e.balances.Sub(ctx, item.Seller, item.Currency, sellerAmt); uerr != nil {
			e.logger.ErrorContext(ctx, "reverse seller credit after failed settlement",
				slog.Uint64("item_id", id),
				slog.String("error", uerr.Error()),
			)
		}
	})

	if err := e.balances.Add(ctx, e.escrow, item.Currency, platformAmt); err != nil {
		return fail(fmt.Errorf("engine: credit platform: %w", err))
	}
	undo = append(undo, func() {
		if uerr := e.balances.Sub(ctx, e.escrow, item.Currency, platformAmt); uerr != nil {
			e.logger.ErrorContext(ctx, "reverse platform credit after failed settlement",
				slog.Uint64("item_id", id),
				slog.String("error", uerr.Error()),
			)
		}
	})

	if err := e.assets.TransferAsset(ctx, item.Custodian, item.TokenID, e.escrow, winner); err != nil {
		return fail(fmt.Errorf("engine: deliver asset: %w", err))
	}

	e.auditLog(ctx, "auction_ended", map[string]any{
		"item_id":  id,
		"caller":   caller.Hex(),
		"winner":   item.HighestBidder.Hex(),
		"price":    item.HighestPrice.String(),
		"currency": string(item.Currency),
	})
	return nil
}

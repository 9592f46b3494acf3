package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/taisys/nftmarket/internal/domain"
)

// CreateMarketItem lists an asset for sale at a fixed price. The custodian
// must be whitelisted and the price positive. Custody of the asset moves from
// the seller to the engine and stays there until the item is sold or removed.
func (e *Engine) CreateMarketItem(
	ctx context.Context,
	seller, custodian common.Address,
	tokenID uint64,
	price *big.Int,
	currency domain.Currency,
) (domain.MarketItem, error) {
	if !currency.Valid() {
		return domain.MarketItem{}, domain.ErrUnknownCurrency
	}

	unlock, err := e.lockWrites(ctx)
	if err != nil {
		return domain.MarketItem{}, err
	}
	defer unlock()

	ok, err := e.whitelist.Contains(ctx, custodian)
	if err != nil {
		return domain.MarketItem{}, fmt.Errorf("engine: check whitelist: %w", err)
	}
	if !ok {
		return domain.MarketItem{}, domain.ErrAddressNotInWhitelist
	}
	if err := validAmount(price); err != nil {
		return domain.MarketItem{}, err
	}

	// Take custody first: the custodian enforces that the seller actually
	// owns and has approved the asset.
	if err := e.assets.TransferAsset(ctx, custodian, tokenID, seller, e.escrow); err != nil {
		return domain.MarketItem{}, fmt.Errorf("engine: take custody: %w", err)
	}

	now := e.now()
	item := domain.MarketItem{
		Custodian: custodian,
		TokenID:   tokenID,
		Seller:    seller,
		Price:     new(big.Int).Set(price),
		Currency:  currency,
		CreatedAt: now,
		UpdatedAt: now,
	}
	id, err := e.items.Create(ctx, item)
	if err != nil {
		// Return custody so a storage failure leaves no partial effect.
		if cerr := e.assets.TransferAsset(ctx, custodian, tokenID, e.escrow, seller); cerr != nil {
			e.logger.ErrorContext(ctx, "custody return after failed create",
				slog.Uint64("token_id", tokenID),
				slog.String("error", cerr.Error()),
			)
		}
		return domain.MarketItem{}, fmt.Errorf("engine: create market item: %w", err)
	}
	item.ID = id

	e.auditLog(ctx, "market_item_created", map[string]any{
		"item_id":   id,
		"seller":    seller.Hex(),
		"custodian": custodian.Hex(),
		"token_id":  tokenID,
		"price":     price.String(),
		"currency":  string(currency),
	})
	return item, nil
}

// GetMarketItem returns a listing by id.
func (e *Engine) GetMarketItem(ctx context.Context, id uint64) (domain.MarketItem, error) {
	return e.items.Get(ctx, id)
}

// MarketItems returns up to count listings walking backward from the
// cursor-th most recent (cursor is 1-indexed). Sold-out records are included;
// ordering is strictly descending item id.
func (e *Engine) MarketItems(ctx context.Context, count, cursor uint64) ([]domain.MarketItem, error) {
	total, err := e.items.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("engine: count market items: %w", err)
	}
	if cursor == 0 || cursor > total {
		return nil, domain.ErrOutOfBounds
	}
	return e.items.Window(ctx, count, cursor)
}

// MarketItemsOf is MarketItems restricted to one seller's records, windowed
// against that seller's own item count.
func (e *Engine) MarketItemsOf(ctx context.Context, seller common.Address, count, cursor uint64) ([]domain.MarketItem, error) {
	total, err := e.items.CountBySeller(ctx, seller)
	if err != nil {
		return nil, fmt.Errorf("engine: count seller market items: %w", err)
	}
	if cursor == 0 || cursor > total {
		return nil, domain.ErrOutOfBounds
	}
	return e.items.WindowBySeller(ctx, seller, count, cursor)
}

// MarketItemCount returns the total number of listings ever created.
func (e *Engine) MarketItemCount(ctx context.Context) (uint64, error) {
	return e.items.Count(ctx)
}

// MarketItemCountOf returns the number of listings a seller has created.
func (e *Engine) MarketItemCountOf(ctx context.Context, seller common.Address) (uint64, error) {
	return e.items.CountBySeller(ctx, seller)
}

// RemoveMarketItem cancels a live listing and returns custody to the seller.
// Only the seller or an admin may remove; removal is a logical cancel, the
// record persists with SoldOut set.
func (e *Engine) RemoveMarketItem(ctx context.Context, caller common.Address, id uint64) error {
	unlock, err := e.lockWrites(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	item, err := e.items.Get(ctx, id)
	if err != nil {
		return err
	}
	if caller != item.Seller && !e.roles.IsAdmin(caller) {
		return domain.ErrNotSellerOrAdmin
	}
	if item.SoldOut {
		return domain.ErrSoldOut
	}

	item.SoldOut = true
	item.UpdatedAt = e.now()
	if err := e.items.Update(ctx, item); err != nil {
		return fmt.Errorf("engine: remove market item: %w", err)
	}

	if err := e.assets.TransferAsset(ctx, item.Custodian, item.TokenID, e.escrow, item.Seller); err != nil {
		return fmt.Errorf("engine: return custody: %w", err)
	}

	e.auditLog(ctx, "market_item_removed", map[string]any{
		"item_id": id,
		"caller":  caller.Hex(),
	})
	return nil
}

// Buy settles a fixed-price sale. The buyer pays exactly the stored price in
// the item's currency; on success the asset passes to the buyer and the
// proceeds are split between the seller's and the platform's drawable
// balances.
func (e *Engine) Buy(ctx context.Context, buyer common.Address, id uint64, pay domain.Currency) error {
	if !pay.Valid() {
		return domain.ErrUnknownCurrency
	}

	unlock, err := e.lockWrites(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	item, err := e.items.Get(ctx, id)
	if err != nil {
		return err
	}
	if item.SoldOut {
		return domain.ErrSoldOut
	}
	if pay != item.Currency {
		return paymentMismatch(item.Currency)
	}
	if buyer == item.Seller {
		return domain.ErrSelfPurchase
	}

	// Pull the funds before touching state; a failed collect aborts cleanly.
	rail := e.rail(item.Currency)
	if err := rail.Collect(ctx, buyer, item.Price); err != nil {
		return fmt.Errorf("engine: collect payment: %w", err)
	}

	// Bookkeeping runs in dependency order; a failure at any step unwinds
	// the earlier writes and refunds the collected payment so the sale has
	// no net effect.
	var undo []func()
	fail := func(err error) error {
		for i := len(undo) - 1; i >= 0; i-- {
			undo[i]()
		}
		if perr := rail.Payout(ctx, buyer, item.Price); perr != nil {
			e.logger.ErrorContext(ctx, "refund after failed sale",
				slog.Uint64("item_id", id),
				slog.String("error", perr.Error()),
			)
		}
		return err
	}

	item.SoldOut = true
	item.UpdatedAt = e.now()
	if err := e.items.Update(ctx, item); err != nil {
		return fail(fmt.Errorf("engine: mark item sold: %w", err))
	}
	undo = append(undo, func() {
		reopened := item
		reopened.SoldOut = false
		reopened.UpdatedAt = e.now()
		if uerr := e.items.Update(ctx, reopened); uerr != nil {
			e.logger.ErrorContext(ctx, "reopen listing after failed sale",
				slog.Uint64("item_id", id),
				slog.String("error", uerr.Error()),
			)
		}
	})

	sellerAmt, platformAmt := e.fees.Split(item.Price)
	if err := e.balances.Add(ctx, item.Seller, item.Currency, sellerAmt); err != nil {
		return fail(fmt.Errorf("engine: credit seller: %w", err))
	}
	undo = append(undo, func() {
		if uerr := e.balances.Sub(ctx, item.Seller, item.Currency, sellerAmt); uerr != nil {
			e.logger.ErrorContext(ctx, "reverse seller credit after failed sale",
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
			e.logger.ErrorContext(ctx, "reverse platform credit after failed sale",
				slog.Uint64("item_id", id),
				slog.String("error", uerr.Error()),
			)
		}
	})

	if err := e.assets.TransferAsset(ctx, item.Custodian, item.TokenID, e.escrow, buyer); err != nil {
		return fail(fmt.Errorf("engine: deliver asset: %w", err))
	}

	e.auditLog(ctx, "market_item_sold", map[string]any{
		"item_id":  id,
		"buyer":    buyer.Hex(),
		"seller":   item.Seller.Hex(),
		"price":    item.Price.String(),
		"currency": string(item.Currency),
	})
	return nil
}

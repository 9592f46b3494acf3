package engine

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/taisys/nftmarket/internal/domain"
)

// Drawable returns the party's accumulated proceeds in one currency. The
// balance only ever grows through settlements and shrinks through Withdraw;
// querying never changes it.
func (e *Engine) Drawable(ctx context.Context, party common.Address, currency domain.Currency) (*big.Int, error) {
	if !currency.Valid() {
		return nil, domain.ErrUnknownCurrency
	}
	return e.balances.Balance(ctx, party, currency)
}

// Withdraw pays out part of the caller's drawable balance to a recipient of
// their choosing. The debit lands before the funds move, so a failed payout
// surfaces as an error rather than a double-spend window.
func (e *Engine) Withdraw(ctx context.Context, caller, recipient common.Address, currency domain.Currency, amount *big.Int) error {
	if !currency.Valid() {
		return domain.ErrUnknownCurrency
	}
	if recipient == (common.Address{}) {
		return domain.ErrZeroAddress
	}
	if err := validAmount(amount); err != nil {
		return err
	}

	unlock, err := e.lockWrites(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	if err := e.debitAndPay(ctx, caller, recipient, currency, amount); err != nil {
		return err
	}

	e.auditLog(ctx, "withdrawal", map[string]any{
		"party":     caller.Hex(),
		"recipient": recipient.Hex(),
		"currency":  string(currency),
		"amount":    amount.String(),
	})
	return nil
}

// PlatformDrawable returns the platform's accumulated fee revenue in one
// currency.
func (e *Engine) PlatformDrawable(ctx context.Context, currency domain.Currency) (*big.Int, error) {
	if !currency.Valid() {
		return nil, domain.ErrUnknownCurrency
	}
	return e.balances.Balance(ctx, e.escrow, currency)
}

// WithdrawPlatform pays out part of the platform's fee revenue. Admin only.
func (e *Engine) WithdrawPlatform(ctx context.Context, caller, recipient common.Address, currency domain.Currency, amount *big.Int) error {
	if !e.roles.IsAdmin(caller) {
		return domain.ErrAdminRequired
	}
	if !currency.Valid() {
		return domain.ErrUnknownCurrency
	}
	if recipient == (common.Address{}) {
		return domain.ErrZeroAddress
	}
	if err := validAmount(amount); err != nil {
		return err
	}

	unlock, err := e.lockWrites(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	if err := e.debitAndPay(ctx, e.escrow, recipient, currency, amount); err != nil {
		return err
	}

	e.auditLog(ctx, "platform_withdrawal", map[string]any{
		"caller":    caller.Hex(),
		"recipient": recipient.Hex(),
		"currency":  string(currency),
		"amount":    amount.String(),
	})
	return nil
}

func (e *Engine) debitAndPay(ctx context.Context, party, recipient common.Address, currency domain.Currency, amount *big.Int) error {
	balance, err := e.balances.Balance(ctx, party, currency)
	if err != nil {
		return fmt.Errorf("engine: read balance: %w", err)
	}
	if balance.Cmp(amount) < 0 {
		return domain.ErrNotEnoughFunds
	}

	if err := e.balances.Sub(ctx, party, currency, amount); err != nil {
		return fmt.Errorf("engine: debit balance: %w", err)
	}
	if err := e.rail(currency).Payout(ctx, recipient, amount); err != nil {
		return fmt.Errorf("engine: pay out: %w", err)
	}
	return nil
}

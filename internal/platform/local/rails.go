package local

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/taisys/nftmarket/internal/domain"
)

// NativeRail implements domain.PaymentRail over the Bank. Collect models the
// value a caller attaches to a marketplace call; Payout is the engine's
// outbound value transfer for refunds and withdrawals.
type NativeRail struct {
	bank   *Bank
	escrow common.Address
}

// NewNativeRail creates a NativeRail escrowing into the given account.
func NewNativeRail(bank *Bank, escrow common.Address) *NativeRail {
	return &NativeRail{bank: bank, escrow: escrow}
}

// Collect moves amount from a party into escrow.
func (r *NativeRail) Collect(ctx context.Context, from common.Address, amount *big.Int) error {
	return r.bank.Transfer(from, r.escrow, amount)
}

// Payout moves amount from escrow to a recipient.
func (r *NativeRail) Payout(ctx context.Context, to common.Address, amount *big.Int) error {
	return r.bank.Transfer(r.escrow, to, amount)
}

// TokenRail implements domain.PaymentRail over the Token ledger. Collect
// pulls approved funds with a transferFrom; Payout is a plain transfer out of
// escrow.
type TokenRail struct {
	token  *Token
	escrow common.Address
}

// NewTokenRail creates a TokenRail escrowing into the given account.
func NewTokenRail(token *Token, escrow common.Address) *TokenRail {
	return &TokenRail{token: token, escrow: escrow}
}

// Collect pulls amount from a party into escrow using their allowance.
func (r *TokenRail) Collect(ctx context.Context, from common.Address, amount *big.Int) error {
	return r.token.TransferFrom(r.escrow, from, r.escrow, amount)
}

// Payout moves amount from escrow to a recipient.
func (r *TokenRail) Payout(ctx context.Context, to common.Address, amount *big.Int) error {
	return r.token.Transfer(r.escrow, to, amount)
}

// Compile-time interface checks.
var (
	_ domain.PaymentRail  = (*NativeRail)(nil)
	_ domain.PaymentRail  = (*TokenRail)(nil)
	_ domain.AssetGateway = (*CustodianSet)(nil)
)

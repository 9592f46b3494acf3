package domain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// AssetGateway executes ownership transfers against external asset
// custodians. The custodian itself enforces ownership and approval; a failed
// transfer aborts the whole engine operation.
type AssetGateway interface {
	TransferAsset(ctx context.Context, custodian common.Address, tokenID uint64, from, to common.Address) error
}

// PaymentRail moves funds of a single currency between parties and the
// engine's escrow account. Collect pulls funds from a party into escrow
// (native value attached to the call, or a token transferFrom); Payout pushes
// escrowed funds out to a recipient. Both are synchronous and all-or-nothing.
type PaymentRail interface {
	Collect(ctx context.Context, from common.Address, amount *big.Int) error
	Payout(ctx context.Context, to common.Address, amount *big.Int) error
}

package local

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice     = common.HexToAddress("0x0a")
	bob       = common.HexToAddress("0x0b")
	escrowAcc = common.HexToAddress("0xe5")
	custodian = common.HexToAddress("0xc1")
)

func TestBank(t *testing.T) {
	b := NewBank()
	b.Deposit(alice, big.NewInt(100))

	require.NoError(t, b.Transfer(alice, bob, big.NewInt(30)))
	assert.Equal(t, int64(70), b.Balance(alice).Int64())
	assert.Equal(t, int64(30), b.Balance(bob).Int64())

	err := b.Transfer(alice, bob, big.NewInt(1000))
	require.Error(t, err)
	assert.Equal(t, int64(70), b.Balance(alice).Int64())
}

func TestTokenTransferFrom(t *testing.T) {
	tok := NewToken()
	tok.Mint(alice, big.NewInt(100))
	tok.Approve(alice, escrowAcc, big.NewInt(60))

	require.NoError(t, tok.TransferFrom(escrowAcc, alice, bob, big.NewInt(40)))
	assert.Equal(t, int64(60), tok.BalanceOf(alice).Int64())
	assert.Equal(t, int64(40), tok.BalanceOf(bob).Int64())
	assert.Equal(t, int64(20), tok.Allowance(alice, escrowAcc).Int64())

	// Spending past the remaining allowance fails.
	err := tok.TransferFrom(escrowAcc, alice, bob, big.NewInt(30))
	assert.Error(t, err)
}

func TestCustodianSet(t *testing.T) {
	c := NewCustodianSet()
	c.Mint(custodian, 1, alice)

	owner, ok := c.OwnerOf(custodian, 1)
	require.True(t, ok)
	assert.Equal(t, alice, owner)

	require.NoError(t, c.TransferAsset(context.Background(), custodian, 1, alice, bob))
	owner, _ = c.OwnerOf(custodian, 1)
	assert.Equal(t, bob, owner)

	// Only the current owner can be the transfer source.
	err := c.TransferAsset(context.Background(), custodian, 1, alice, escrowAcc)
	assert.Error(t, err)

	_, ok = c.OwnerOf(custodian, 99)
	assert.False(t, ok)
}

func TestRails(t *testing.T) {
	ctx := context.Background()

	bank := NewBank()
	bank.Deposit(alice, big.NewInt(50))
	native := NewNativeRail(bank, escrowAcc)

	require.NoError(t, native.Collect(ctx, alice, big.NewInt(50)))
	assert.Equal(t, int64(50), bank.Balance(escrowAcc).Int64())
	require.NoError(t, native.Payout(ctx, bob, big.NewInt(20)))
	assert.Equal(t, int64(20), bank.Balance(bob).Int64())

	tok := NewToken()
	tok.Mint(alice, big.NewInt(50))
	tok.Approve(alice, escrowAcc, big.NewInt(50))
	rail := NewTokenRail(tok, escrowAcc)

	require.NoError(t, rail.Collect(ctx, alice, big.NewInt(50)))
	assert.Equal(t, int64(50), tok.BalanceOf(escrowAcc).Int64())
	require.NoError(t, rail.Payout(ctx, bob, big.NewInt(50)))
	assert.Equal(t, int64(50), tok.BalanceOf(bob).Int64())
}

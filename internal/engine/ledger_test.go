package engine

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taisys/nftmarket/internal/domain"
)

// soldFixture runs one native sale at price 100 so the seller holds 97 and
// the platform 3.
func soldFixture(t *testing.T) *fixture {
	t.Helper()
	f := newFixture(t)
	f.listItem(t, 1, 100, domain.CurrencyNative)
	f.fundNative(buyer, 100)
	require.NoError(t, f.eng.Buy(f.ctx, buyer, 1, domain.CurrencyNative))
	return f
}

func TestWithdraw(t *testing.T) {
	f := soldFixture(t)
	recipient := common.HexToAddress("0xcafe")

	require.NoError(t, f.eng.Withdraw(f.ctx, seller, recipient, domain.CurrencyNative, big.NewInt(40)))
	assert.Equal(t, int64(40), f.bank.Balance(recipient).Int64())
	assert.Equal(t, int64(57), f.drawable(t, seller, domain.CurrencyNative))

	// The remainder washes out in a second pull.
	require.NoError(t, f.eng.Withdraw(f.ctx, seller, seller, domain.CurrencyNative, big.NewInt(57)))
	assert.Equal(t, int64(0), f.drawable(t, seller, domain.CurrencyNative))
	assert.Equal(t, int64(57), f.bank.Balance(seller).Int64())
}

func TestWithdrawRejections(t *testing.T) {
	f := soldFixture(t)

	err := f.eng.Withdraw(f.ctx, seller, common.Address{}, domain.CurrencyNative, big.NewInt(10))
	assert.ErrorIs(t, err, domain.ErrZeroAddress)

	err = f.eng.Withdraw(f.ctx, seller, seller, "bitcoin", big.NewInt(10))
	assert.ErrorIs(t, err, domain.ErrUnknownCurrency)

	for _, amount := range []*big.Int{nil, big.NewInt(0), big.NewInt(-1)} {
		err = f.eng.Withdraw(f.ctx, seller, seller, domain.CurrencyNative, amount)
		assert.ErrorIs(t, err, domain.ErrAmountMustBePositive)
	}

	err = f.eng.Withdraw(f.ctx, seller, seller, domain.CurrencyNative, big.NewInt(98))
	assert.ErrorIs(t, err, domain.ErrNotEnoughFunds)

	// The token balance is independent of the native one.
	err = f.eng.Withdraw(f.ctx, seller, seller, domain.CurrencyToken, big.NewInt(1))
	assert.ErrorIs(t, err, domain.ErrNotEnoughFunds)

	// Failed attempts never touch the balance.
	assert.Equal(t, int64(97), f.drawable(t, seller, domain.CurrencyNative))
}

func TestWithdrawPlatform(t *testing.T) {
	f := soldFixture(t)
	treasury := common.HexToAddress("0xbeef")

	err := f.eng.WithdrawPlatform(f.ctx, stranger, treasury, domain.CurrencyNative, big.NewInt(3))
	assert.ErrorIs(t, err, domain.ErrAdminRequired)

	err = f.eng.WithdrawPlatform(f.ctx, admin, common.Address{}, domain.CurrencyNative, big.NewInt(3))
	assert.ErrorIs(t, err, domain.ErrZeroAddress)

	err = f.eng.WithdrawPlatform(f.ctx, admin, treasury, domain.CurrencyNative, big.NewInt(4))
	assert.ErrorIs(t, err, domain.ErrNotEnoughFunds)

	require.NoError(t, f.eng.WithdrawPlatform(f.ctx, admin, treasury, domain.CurrencyNative, big.NewInt(3)))
	assert.Equal(t, int64(3), f.bank.Balance(treasury).Int64())

	platform, err := f.eng.PlatformDrawable(f.ctx, domain.CurrencyNative)
	require.NoError(t, err)
	assert.Equal(t, int64(0), platform.Int64())
}

func TestDrawableQueriesDoNotMutate(t *testing.T) {
	f := soldFixture(t)

	for i := 0; i < 3; i++ {
		assert.Equal(t, int64(97), f.drawable(t, seller, domain.CurrencyNative))
	}

	_, err := f.eng.Drawable(f.ctx, seller, "bitcoin")
	assert.ErrorIs(t, err, domain.ErrUnknownCurrency)
	_, err = f.eng.PlatformDrawable(f.ctx, "bitcoin")
	assert.ErrorIs(t, err, domain.ErrUnknownCurrency)

	// Unknown parties read zero, not an error.
	assert.Equal(t, int64(0), f.drawable(t, stranger, domain.CurrencyNative))
}

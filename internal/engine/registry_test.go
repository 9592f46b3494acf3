package engine

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taisys/nftmarket/internal/domain"
)

func TestSetWhitelist(t *testing.T) {
	f := newFixture(t)
	other := common.HexToAddress("0xc2")

	err := f.eng.SetWhitelist(f.ctx, stranger, other)
	assert.ErrorIs(t, err, domain.ErrAdminRequired)

	err = f.eng.SetWhitelist(f.ctx, admin, common.Address{})
	assert.ErrorIs(t, err, domain.ErrZeroAddress)

	require.NoError(t, f.eng.SetWhitelist(f.ctx, admin, other))
	ok, err := f.eng.IsWhitelisted(f.ctx, other)
	require.NoError(t, err)
	assert.True(t, ok)

	// Re-adding is a no-op.
	require.NoError(t, f.eng.SetWhitelist(f.ctx, admin, other))

	ok, err = f.eng.IsWhitelisted(f.ctx, stranger)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGrantAdmin(t *testing.T) {
	f := newFixture(t)
	newAdmin := common.HexToAddress("0xa2")

	err := f.eng.GrantAdmin(f.ctx, stranger, newAdmin)
	assert.ErrorIs(t, err, domain.ErrAdminRequired)

	err = f.eng.GrantAdmin(f.ctx, admin, common.Address{})
	assert.ErrorIs(t, err, domain.ErrZeroAddress)

	require.NoError(t, f.eng.GrantAdmin(f.ctx, admin, newAdmin))
	assert.True(t, f.eng.IsAdmin(newAdmin))

	// Granted admins can manage the whitelist but not mint further admins.
	require.NoError(t, f.eng.SetWhitelist(f.ctx, newAdmin, common.HexToAddress("0xc3")))
	err = f.eng.GrantAdmin(f.ctx, newAdmin, stranger)
	assert.ErrorIs(t, err, domain.ErrAdminRequired)
}

func TestAuditTrail(t *testing.T) {
	f := newFixture(t)
	f.listItem(t, 1, 100, domain.CurrencyNative)

	entries, err := f.eng.AuditTrail(f.ctx, domain.ListOpts{Limit: 10})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Newest first.
	assert.Equal(t, "market_item_created", entries[0].Event)
	assert.Equal(t, "whitelist_added", entries[1].Event)
	assert.NotEmpty(t, entries[0].ID)
}

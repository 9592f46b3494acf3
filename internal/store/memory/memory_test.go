package memory

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taisys/nftmarket/internal/domain"
)

var (
	alice = common.HexToAddress("0x0a")
	bob   = common.HexToAddress("0x0b")
)

func TestMarketItemStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMarketItemStore()

	id, err := s.Create(ctx, domain.MarketItem{Seller: alice, Price: big.NewInt(10)})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, alice, got.Seller)
	assert.Equal(t, int64(10), got.Price.Int64())

	got.SoldOut = true
	require.NoError(t, s.Update(ctx, got))
	got, err = s.Get(ctx, id)
	require.NoError(t, err)
	assert.True(t, got.SoldOut)

	_, err = s.Get(ctx, 99)
	assert.ErrorIs(t, err, domain.ErrMarketItemNotFound)
	err = s.Update(ctx, domain.MarketItem{ID: 99, Price: big.NewInt(1)})
	assert.ErrorIs(t, err, domain.ErrMarketItemNotFound)
}

func TestMarketItemStoreGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewMarketItemStore()

	id, err := s.Create(ctx, domain.MarketItem{Seller: alice, Price: big.NewInt(10)})
	require.NoError(t, err)

	got, _ := s.Get(ctx, id)
	got.Price.SetInt64(999)

	again, _ := s.Get(ctx, id)
	assert.Equal(t, int64(10), again.Price.Int64())
}

func TestMarketItemStoreWindow(t *testing.T) {
	ctx := context.Background()
	s := NewMarketItemStore()
	for i := 0; i < 5; i++ {
		seller := alice
		if i%2 == 1 {
			seller = bob
		}
		_, err := s.Create(ctx, domain.MarketItem{Seller: seller, Price: big.NewInt(int64(i))})
		require.NoError(t, err)
	}

	items, err := s.Window(ctx, 3, 1)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, uint64(5), items[0].ID)
	assert.Equal(t, uint64(3), items[2].ID)

	// Windows truncate at the oldest record.
	items, err = s.Window(ctx, 10, 4)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	// alice owns ids 1, 3, 5; cursor 2 starts at her 2nd most recent.
	items, err = s.WindowBySeller(ctx, alice, 10, 2)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, uint64(3), items[0].ID)
	assert.Equal(t, uint64(1), items[1].ID)

	n, err := s.CountBySeller(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), n)
}

func TestAuctionItemStore(t *testing.T) {
	ctx := context.Background()
	s := NewAuctionItemStore()

	id, err := s.Create(ctx, domain.AuctionItem{Seller: alice, HighestPrice: big.NewInt(0)})
	require.NoError(t, err)

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.False(t, got.HasBids())

	got.HighestBidder = bob
	got.HighestPrice = big.NewInt(7)
	require.NoError(t, s.Update(ctx, got))

	got, err = s.Get(ctx, id)
	require.NoError(t, err)
	assert.True(t, got.HasBids())
	assert.Equal(t, int64(7), got.HighestPrice.Int64())

	_, err = s.Get(ctx, 99)
	assert.ErrorIs(t, err, domain.ErrAuctionItemNotFound)
}

func TestBidVaultStore(t *testing.T) {
	ctx := context.Background()
	s := NewBidVaultStore()

	amount, err := s.Amount(ctx, 1, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(0), amount.Int64())

	require.NoError(t, s.Set(ctx, 1, alice, big.NewInt(10)))
	require.NoError(t, s.Set(ctx, 2, alice, big.NewInt(3)))

	amount, err = s.Amount(ctx, 1, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(10), amount.Int64())

	// Entries are keyed per auction.
	amount, err = s.Amount(ctx, 2, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(3), amount.Int64())

	require.NoError(t, s.Clear(ctx, 1, alice))
	amount, err = s.Amount(ctx, 1, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(0), amount.Int64())
}

func TestBalanceStore(t *testing.T) {
	ctx := context.Background()
	s := NewBalanceStore()

	b, err := s.Balance(ctx, alice, domain.CurrencyNative)
	require.NoError(t, err)
	assert.Equal(t, int64(0), b.Int64())

	require.NoError(t, s.Add(ctx, alice, domain.CurrencyNative, big.NewInt(10)))
	require.NoError(t, s.Add(ctx, alice, domain.CurrencyNative, big.NewInt(5)))
	require.NoError(t, s.Add(ctx, alice, domain.CurrencyToken, big.NewInt(2)))

	b, err = s.Balance(ctx, alice, domain.CurrencyNative)
	require.NoError(t, err)
	assert.Equal(t, int64(15), b.Int64())

	require.NoError(t, s.Sub(ctx, alice, domain.CurrencyNative, big.NewInt(15)))
	err = s.Sub(ctx, alice, domain.CurrencyNative, big.NewInt(1))
	assert.Error(t, err)

	// The token bucket is untouched.
	b, err = s.Balance(ctx, alice, domain.CurrencyToken)
	require.NoError(t, err)
	assert.Equal(t, int64(2), b.Int64())
}

func TestWhitelistStore(t *testing.T) {
	ctx := context.Background()
	s := NewWhitelistStore()

	ok, err := s.Contains(ctx, alice)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Add(ctx, alice))
	require.NoError(t, s.Add(ctx, alice))

	ok, err = s.Contains(ctx, alice)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAuditStore(t *testing.T) {
	ctx := context.Background()
	s := NewAuditStore()

	require.NoError(t, s.Log(ctx, "first", map[string]any{"n": 1}))
	require.NoError(t, s.Log(ctx, "second", nil))
	require.NoError(t, s.Log(ctx, "third", nil))

	entries, err := s.List(ctx, domain.ListOpts{Limit: 2})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "third", entries[0].Event)
	assert.Equal(t, "second", entries[1].Event)

	entries, err = s.List(ctx, domain.ListOpts{Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "first", entries[0].Event)
}

func TestWindowCountFarExceedsRecords(t *testing.T) {
	ctx := context.Background()

	ms := NewMarketItemStore()
	_, err := ms.Create(ctx, domain.MarketItem{Seller: alice, Price: big.NewInt(1)})
	require.NoError(t, err)

	// A huge count must return the truncated window, not blow up on
	// allocation.
	items, err := ms.Window(ctx, 1<<60, 1)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	as := NewAuctionItemStore()
	_, err = as.Create(ctx, domain.AuctionItem{Seller: alice, HighestPrice: big.NewInt(0)})
	require.NoError(t, err)

	auctions, err := as.Window(ctx, 1<<60, 1)
	require.NoError(t, err)
	assert.Len(t, auctions, 1)
}

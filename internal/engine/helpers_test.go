package engine

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/taisys/nftmarket/internal/access"
	"github.com/taisys/nftmarket/internal/domain"
	"github.com/taisys/nftmarket/internal/fee"
	"github.com/taisys/nftmarket/internal/platform/local"
	"github.com/taisys/nftmarket/internal/store/memory"
)

var (
	admin     = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	escrow    = common.HexToAddress("0x00000000000000000000000000000000000000e5")
	custodian = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	seller    = common.HexToAddress("0x0000000000000000000000000000000000000051")
	buyer     = common.HexToAddress("0x0000000000000000000000000000000000000b01")
	bidder2   = common.HexToAddress("0x0000000000000000000000000000000000000b02")
	stranger  = common.HexToAddress("0x00000000000000000000000000000000000000f1")
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// breakableBalances wraps the balance store so tests can take credits for a
// chosen owner offline.
type breakableBalances struct {
	domain.BalanceStore
	failAddFor common.Address
}

func (s *breakableBalances) Add(ctx context.Context, owner common.Address, currency domain.Currency, amount *big.Int) error {
	if s.failAddFor != (common.Address{}) && owner == s.failAddFor {
		return errors.New("balance store unavailable")
	}
	return s.BalanceStore.Add(ctx, owner, currency, amount)
}

// breakableAuctions wraps the auction store so tests can fail head updates.
type breakableAuctions struct {
	domain.AuctionItemStore
	failUpdate bool
}

func (s *breakableAuctions) Update(ctx context.Context, item domain.AuctionItem) error {
	if s.failUpdate {
		return errors.New("auction store unavailable")
	}
	return s.AuctionItemStore.Update(ctx, item)
}

type fixture struct {
	ctx      context.Context
	eng      *Engine
	clock    *fakeClock
	bank     *local.Bank
	token    *local.Token
	custody  *local.CustodianSet
	audit    *memory.AuditStore
	bids     *memory.BidVaultStore
	balances *breakableBalances
	auctions *breakableAuctions
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clock := newFakeClock()
	bank := local.NewBank()
	token := local.NewToken()
	custody := local.NewCustodianSet()
	audit := memory.NewAuditStore()
	bids := memory.NewBidVaultStore()
	balances := &breakableBalances{BalanceStore: memory.NewBalanceStore()}
	auctions := &breakableAuctions{AuctionItemStore: memory.NewAuctionItemStore()}

	fees, err := fee.NewSchedule(300)
	require.NoError(t, err)

	eng, err := New(Deps{
		Items:     memory.NewMarketItemStore(),
		Auctions:  auctions,
		Bids:      bids,
		Balances:  balances,
		Whitelist: memory.NewWhitelistStore(),
		Audit:     audit,
		Roles:     access.NewController(admin),
		Fees:      fees,
		Assets:    custody,
		Rails: map[domain.Currency]domain.PaymentRail{
			domain.CurrencyNative: local.NewNativeRail(bank, escrow),
			domain.CurrencyToken:  local.NewTokenRail(token, escrow),
		},
		Escrow:        escrow,
		AuctionWindow: 7 * 24 * time.Hour,
		Clock:         clock.Now,
		Logger:        slog.New(slog.DiscardHandler),
	})
	require.NoError(t, err)

	f := &fixture{
		ctx:      context.Background(),
		eng:      eng,
		clock:    clock,
		bank:     bank,
		token:    token,
		custody:  custody,
		audit:    audit,
		bids:     bids,
		balances: balances,
		auctions: auctions,
	}
	require.NoError(t, eng.SetWhitelist(f.ctx, admin, custodian))
	return f
}

// mint gives the seller an asset under the whitelisted custodian.
func (f *fixture) mint(tokenID uint64) {
	f.custody.Mint(custodian, tokenID, seller)
}

// fundNative deposits spendable native funds for an address.
func (f *fixture) fundNative(addr common.Address, amount int64) {
	f.bank.Deposit(addr, big.NewInt(amount))
}

// fundToken mints tokens for an address and pre-approves the escrow account
// so the token rail can collect.
func (f *fixture) fundToken(addr common.Address, amount int64) {
	f.token.Mint(addr, big.NewInt(amount))
	f.token.Approve(addr, escrow, big.NewInt(amount))
}

// listItem mints tokenID and lists it at price in the given currency.
func (f *fixture) listItem(t *testing.T, tokenID uint64, price int64, currency domain.Currency) domain.MarketItem {
	t.Helper()
	f.mint(tokenID)
	item, err := f.eng.CreateMarketItem(f.ctx, seller, custodian, tokenID, big.NewInt(price), currency)
	require.NoError(t, err)
	return item
}

// openAuction mints tokenID and opens an auction in the given currency.
func (f *fixture) openAuction(t *testing.T, tokenID uint64, currency domain.Currency) domain.AuctionItem {
	t.Helper()
	f.mint(tokenID)
	item, err := f.eng.CreateAuctionItem(f.ctx, seller, custodian, tokenID, currency)
	require.NoError(t, err)
	return item
}

func (f *fixture) owner(t *testing.T, tokenID uint64) common.Address {
	t.Helper()
	owner, ok := f.custody.OwnerOf(custodian, tokenID)
	require.True(t, ok)
	return owner
}

func (f *fixture) drawable(t *testing.T, party common.Address, currency domain.Currency) int64 {
	t.Helper()
	amount, err := f.eng.Drawable(f.ctx, party, currency)
	require.NoError(t, err)
	return amount.Int64()
}

package server

import (
	"encoding/json"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taisys/nftmarket/internal/access"
	"github.com/taisys/nftmarket/internal/domain"
	"github.com/taisys/nftmarket/internal/engine"
	"github.com/taisys/nftmarket/internal/fee"
	"github.com/taisys/nftmarket/internal/platform/local"
	"github.com/taisys/nftmarket/internal/server/handler"
	"github.com/taisys/nftmarket/internal/service"
	"github.com/taisys/nftmarket/internal/store/memory"
)

const testAPIKey = "test-key"

var (
	adminAddr     = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	escrowAddr    = common.HexToAddress("0x00000000000000000000000000000000000000e5")
	custodianAddr = common.HexToAddress("0x00000000000000000000000000000000000000c0")
	sellerAddr    = common.HexToAddress("0x0000000000000000000000000000000000000051")
	buyerAddr     = common.HexToAddress("0x0000000000000000000000000000000000000052")
)

type apiFixture struct {
	h       http.Handler
	bank    *local.Bank
	custody *local.CustodianSet
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	whitelist := memory.NewWhitelistStore()

	bank := local.NewBank()
	token := local.NewToken()
	custody := local.NewCustodianSet()

	fees, err := fee.NewSchedule(300)
	require.NoError(t, err)

	eng, err := engine.New(engine.Deps{
		Items:     memory.NewMarketItemStore(),
		Auctions:  memory.NewAuctionItemStore(),
		Bids:      memory.NewBidVaultStore(),
		Balances:  memory.NewBalanceStore(),
		Whitelist: whitelist,
		Audit:     memory.NewAuditStore(),
		Roles:     access.NewController(adminAddr),
		Fees:      fees,
		Assets:    custody,
		Rails: map[domain.Currency]domain.PaymentRail{
			domain.CurrencyNative: local.NewNativeRail(bank, escrowAddr),
			domain.CurrencyToken:  local.NewTokenRail(token, escrowAddr),
		},
		Escrow:        escrowAddr,
		AuctionWindow: 7 * 24 * time.Hour,
		Logger:        logger,
	})
	require.NoError(t, err)

	require.NoError(t, whitelist.Add(t.Context(), custodianAddr))

	srv := NewServer(Config{
		Port:   0,
		APIKey: testAPIKey,
	}, Handlers{
		Health:  handler.NewHealthHandler(logger),
		Market:  handler.NewMarketHandler(service.NewMarketService(eng, nil, logger), logger),
		Auction: handler.NewAuctionHandler(service.NewAuctionService(eng, nil, logger), logger),
		Ledger:  handler.NewLedgerHandler(eng, logger),
		Admin:   handler.NewAdminHandler(eng, logger),
	}, nil, logger)

	return &apiFixture{h: srv.httpServer.Handler, bank: bank, custody: custody}
}

func (f *apiFixture) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	req.Header.Set("X-API-Key", testAPIKey)
	rec := httptest.NewRecorder()
	f.h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestAuthRequired(t *testing.T) {
	f := newAPIFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/market/items", nil)
	rec := httptest.NewRecorder()
	f.h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/market/items", nil)
	req.Header.Set("X-API-Key", "wrong")
	rec = httptest.NewRecorder()
	f.h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/market/items/1", nil)
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	rec = httptest.NewRecorder()
	f.h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code) // authenticated, item simply absent

	// The health probe bypasses authentication.
	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec = httptest.NewRecorder()
	f.h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealth(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody(t, rec)["status"])
}

func TestMarketItemFlow(t *testing.T) {
	f := newAPIFixture(t)
	f.custody.Mint(custodianAddr, 7, sellerAddr)
	f.bank.Deposit(buyerAddr, big.NewInt(150))

	rec := f.do(http.MethodPost, "/api/market/items",
		`{"seller":"`+sellerAddr.Hex()+`","custodian":"`+custodianAddr.Hex()+`","token_id":7,"price":"100","currency":"native"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody(t, rec)
	assert.Equal(t, float64(1), created["id"])
	assert.Equal(t, "100", created["price"])

	rec = f.do(http.MethodGet, "/api/market/items/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decodeBody(t, rec)["sold_out"])

	rec = f.do(http.MethodGet, "/api/market/items", "")
	require.Equal(t, http.StatusOK, rec.Code)
	listed := decodeBody(t, rec)
	assert.Equal(t, float64(1), listed["total"])

	rec = f.do(http.MethodPost, "/api/market/items/1/buy",
		`{"buyer":"`+buyerAddr.Hex()+`","currency":"native"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	// Asset moved to the buyer, seller accrued 97 after the 3% fee.
	owner, ok := f.custody.OwnerOf(custodianAddr, 7)
	require.True(t, ok)
	assert.Equal(t, buyerAddr, owner)

	rec = f.do(http.MethodGet, "/api/ledger/"+sellerAddr.Hex()+"/drawable?currency=native", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "97", decodeBody(t, rec)["drawable"])

	rec = f.do(http.MethodGet, "/api/ledger/platform/drawable?currency=native", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "3", decodeBody(t, rec)["drawable"])

	// A second purchase conflicts with the sold state.
	rec = f.do(http.MethodPost, "/api/market/items/1/buy",
		`{"buyer":"`+buyerAddr.Hex()+`","currency":"native"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestMarketItemErrors(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(http.MethodGet, "/api/market/items/99", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(http.MethodGet, "/api/market/items?cursor=5", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPost, "/api/market/items",
		`{"seller":"nonsense","custodian":"`+custodianAddr.Hex()+`","token_id":1,"price":"100","currency":"native"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPost, "/api/market/items",
		`{"seller":"`+sellerAddr.Hex()+`","custodian":"`+sellerAddr.Hex()+`","token_id":1,"price":"100","currency":"native"}`)
	assert.Equal(t, http.StatusConflict, rec.Code) // custodian not whitelisted

	rec = f.do(http.MethodPost, "/api/market/items",
		`{"seller":"`+sellerAddr.Hex()+`","custodian":"`+custodianAddr.Hex()+`","token_id":1,"price":"-5","currency":"native"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuctionFlow(t *testing.T) {
	f := newAPIFixture(t)
	f.custody.Mint(custodianAddr, 9, sellerAddr)
	f.bank.Deposit(buyerAddr, big.NewInt(50))

	rec := f.do(http.MethodPost, "/api/auction/items",
		`{"seller":"`+sellerAddr.Hex()+`","custodian":"`+custodianAddr.Hex()+`","token_id":9,"currency":"native"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(http.MethodPost, "/api/auction/items/1/bids",
		`{"bidder":"`+buyerAddr.Hex()+`","currency":"native","amount":"20"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodGet, "/api/auction/items/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody(t, rec)
	assert.Equal(t, buyerAddr.Hex(), got["highest_bidder"])
	assert.Equal(t, "20", got["highest_price"])

	// The live leader has nothing refundable.
	rec = f.do(http.MethodGet, "/api/auction/items/1/revertable?bidder="+buyerAddr.Hex(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0", decodeBody(t, rec)["revertable"])

	// Settlement before the deadline conflicts.
	rec = f.do(http.MethodPost, "/api/auction/items/1/end",
		`{"caller":"`+buyerAddr.Hex()+`"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Removing an auction that has a bid is forbidden to everyone.
	rec = f.do(http.MethodDelete, "/api/auction/items/1",
		`{"caller":"`+adminAddr.Hex()+`"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAdminEndpoints(t *testing.T) {
	f := newAPIFixture(t)
	other := common.HexToAddress("0x00000000000000000000000000000000000000c1")

	rec := f.do(http.MethodGet, "/api/admin/whitelist/"+other.Hex(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decodeBody(t, rec)["whitelisted"])

	// Non-admin caller is rejected.
	rec = f.do(http.MethodPost, "/api/admin/whitelist",
		`{"caller":"`+sellerAddr.Hex()+`","custodian":"`+other.Hex()+`"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(http.MethodPost, "/api/admin/whitelist",
		`{"caller":"`+adminAddr.Hex()+`","custodian":"`+other.Hex()+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodGet, "/api/admin/whitelist/"+other.Hex(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["whitelisted"])

	rec = f.do(http.MethodGet, "/api/admin/audit", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decodeBody(t, rec)["count"])
}

func TestCORSPreflight(t *testing.T) {
	f := newAPIFixture(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/market/items", nil)
	req.Header.Set("Origin", "https://example.com")
	rec := httptest.NewRecorder()
	f.h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

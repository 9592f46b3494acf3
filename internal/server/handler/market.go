package handler

import (
	"context"
	"log/slog"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/taisys/nftmarket/internal/domain"
)

// MarketService defines what the market handler requires from the service
// layer. It is declared locally so the handler package does not depend on
// the concrete service implementation.
type MarketService interface {
	Create(ctx context.Context, seller, custodian common.Address, tokenID uint64, price *big.Int, currency domain.Currency) (domain.MarketItem, error)
	Get(ctx context.Context, id uint64) (domain.MarketItem, error)
	List(ctx context.Context, count, cursor uint64) ([]domain.MarketItem, error)
	ListBySeller(ctx context.Context, seller common.Address, count, cursor uint64) ([]domain.MarketItem, error)
	Count(ctx context.Context) (uint64, error)
	CountBySeller(ctx context.Context, seller common.Address) (uint64, error)
	Buy(ctx context.Context, buyer common.Address, id uint64, pay domain.Currency) error
	Remove(ctx context.Context, caller common.Address, id uint64) error
}

// MarketHandler serves the fixed-price marketplace endpoints.
type MarketHandler struct {
	market MarketService
	logger *slog.Logger
}

// NewMarketHandler creates a MarketHandler with the given service and logger.
func NewMarketHandler(market MarketService, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{market: market, logger: logger}
}

// marketItemView is the wire representation of a listing.
type marketItemView struct {
	ID        uint64 `json:"id"`
	Custodian string `json:"custodian"`
	TokenID   uint64 `json:"token_id"`
	Seller    string `json:"seller"`
	Price     string `json:"price"`
	Currency  string `json:"currency"`
	SoldOut   bool   `json:"sold_out"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func toMarketItemView(item domain.MarketItem) marketItemView {
	return marketItemView{
		ID:        item.ID,
		Custodian: item.Custodian.Hex(),
		TokenID:   item.TokenID,
		Seller:    item.Seller.Hex(),
		Price:     item.Price.String(),
		Currency:  string(item.Currency),
		SoldOut:   item.SoldOut,
		CreatedAt: item.CreatedAt.Format(timeFormat),
		UpdatedAt: item.UpdatedAt.Format(timeFormat),
	}
}

func toMarketItemViews(items []domain.MarketItem) []marketItemView {
	views := make([]marketItemView, 0, len(items))
	for _, item := range items {
		views = append(views, toMarketItemView(item))
	}
	return views
}

// listItemsResponse wraps a list endpoint output with metadata.
type listItemsResponse[T any] struct {
	Items  []T    `json:"items"`
	Total  uint64 `json:"total"`
	Count  uint64 `json:"count"`
	Cursor uint64 `json:"cursor"`
}

type createMarketItemRequest struct {
	Seller    string `json:"seller"`
	Custodian string `json:"custodian"`
	TokenID   uint64 `json:"token_id"`
	Price     string `json:"price"`
	Currency  string `json:"currency"`
}

// CreateItem lists an asset for sale.
// POST /api/market/items
func (h *MarketHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req createMarketItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	seller, err := parseAddress(req.Seller)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid seller address")
		return
	}
	custodian, err := parseAddress(req.Custodian)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid custodian address")
		return
	}
	price, err := parseAmount(req.Price)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid price")
		return
	}

	item, err := h.market.Create(r.Context(), seller, custodian, req.TokenID, price, domain.Currency(req.Currency))
	if err != nil {
		h.logger.WarnContext(r.Context(), "handler: create market item failed",
			slog.String("error", err.Error()),
		)
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMarketItemView(item))
}

// ListItems returns listings with backward pagination.
// GET /api/market/items?count=50&cursor=1
func (h *MarketHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	count, cursor := parseWindow(r)

	items, err := h.market.List(r.Context(), count, cursor)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	total, err := h.market.Count(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, listItemsResponse[marketItemView]{
		Items:  toMarketItemViews(items),
		Total:  total,
		Count:  count,
		Cursor: cursor,
	})
}

// ListSellerItems returns one seller's listings with backward pagination.
// GET /api/market/sellers/{addr}/items?count=50&cursor=1
func (h *MarketHandler) ListSellerItems(w http.ResponseWriter, r *http.Request) {
	seller, err := parseAddress(r.PathValue("addr"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid seller address")
		return
	}
	count, cursor := parseWindow(r)

	items, err := h.market.ListBySeller(r.Context(), seller, count, cursor)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	total, err := h.market.CountBySeller(r.Context(), seller)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, listItemsResponse[marketItemView]{
		Items:  toMarketItemViews(items),
		Total:  total,
		Count:  count,
		Cursor: cursor,
	})
}

// GetItem returns a single listing by id.
// GET /api/market/items/{id}
func (h *MarketHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	item, err := h.market.Get(r.Context(), id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMarketItemView(item))
}

type buyRequest struct {
	Buyer    string `json:"buyer"`
	Currency string `json:"currency"`
}

// BuyItem purchases a listing at its stored price.
// POST /api/market/items/{id}/buy
func (h *MarketHandler) BuyItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}
	var req buyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	buyer, err := parseAddress(req.Buyer)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid buyer address")
		return
	}

	if err := h.market.Buy(r.Context(), buyer, id, domain.Currency(req.Currency)); err != nil {
		h.logger.WarnContext(r.Context(), "handler: buy failed",
			slog.Uint64("item_id", id),
			slog.String("error", err.Error()),
		)
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"item_id": id, "sold": true})
}

type removeRequest struct {
	Caller string `json:"caller"`
}

// RemoveItem cancels an unsold listing.
// DELETE /api/market/items/{id}
func (h *MarketHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}
	var req removeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid caller address")
		return
	}

	if err := h.market.Remove(r.Context(), caller, id); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"item_id": id, "removed": true})
}

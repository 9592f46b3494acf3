package handler

import (
	"context"
	"log/slog"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/taisys/nftmarket/internal/domain"
)

// AuctionService defines what the auction handler requires from the service
// layer.
type AuctionService interface {
	Create(ctx context.Context, seller, custodian common.Address, tokenID uint64, currency domain.Currency) (domain.AuctionItem, error)
	Get(ctx context.Context, id uint64) (domain.AuctionItem, error)
	List(ctx context.Context, count, cursor uint64) ([]domain.AuctionItem, error)
	ListBySeller(ctx context.Context, seller common.Address, count, cursor uint64) ([]domain.AuctionItem, error)
	Count(ctx context.Context) (uint64, error)
	CountBySeller(ctx context.Context, seller common.Address) (uint64, error)
	Bid(ctx context.Context, bidder common.Address, id uint64, pay domain.Currency, amount *big.Int) error
	Revertable(ctx context.Context, id uint64, bidder common.Address) (*big.Int, error)
	RevertBid(ctx context.Context, caller, recipient common.Address, id uint64) error
	End(ctx context.Context, caller common.Address, id uint64) error
	Remove(ctx context.Context, caller common.Address, id uint64) error
}

// AuctionHandler serves the English-auction endpoints.
type AuctionHandler struct {
	auctions AuctionService
	logger   *slog.Logger
}

// NewAuctionHandler creates an AuctionHandler with the given service and logger.
func NewAuctionHandler(auctions AuctionService, logger *slog.Logger) *AuctionHandler {
	return &AuctionHandler{auctions: auctions, logger: logger}
}

type auctionItemView struct {
	ID            uint64 `json:"id"`
	Custodian     string `json:"custodian"`
	TokenID       uint64 `json:"token_id"`
	Seller        string `json:"seller"`
	Currency      string `json:"currency"`
	HighestBidder string `json:"highest_bidder"`
	HighestPrice  string `json:"highest_price"`
	Deadline      string `json:"deadline"`
	SoldOut       bool   `json:"sold_out"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

func toAuctionItemView(item domain.AuctionItem) auctionItemView {
	return auctionItemView{
		ID:            item.ID,
		Custodian:     item.Custodian.Hex(),
		TokenID:       item.TokenID,
		Seller:        item.Seller.Hex(),
		Currency:      string(item.Currency),
		HighestBidder: item.HighestBidder.Hex(),
		HighestPrice:  item.HighestPrice.String(),
		Deadline:      item.Deadline.Format(timeFormat),
		SoldOut:       item.SoldOut,
		CreatedAt:     item.CreatedAt.Format(timeFormat),
		UpdatedAt:     item.UpdatedAt.Format(timeFormat),
	}
}

func toAuctionItemViews(items []domain.AuctionItem) []auctionItemView {
	views := make([]auctionItemView, 0, len(items))
	for _, item := range items {
		views = append(views, toAuctionItemView(item))
	}
	return views
}

type createAuctionItemRequest struct {
	Seller    string `json:"seller"`
	Custodian string `json:"custodian"`
	TokenID   uint64 `json:"token_id"`
	Currency  string `json:"currency"`
}

// CreateItem opens an auction for an asset.
// POST /api/auction/items
func (h *AuctionHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req createAuctionItemRequest
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

	item, err := h.auctions.Create(r.Context(), seller, custodian, req.TokenID, domain.Currency(req.Currency))
	if err != nil {
		h.logger.WarnContext(r.Context(), "handler: create auction item failed",
			slog.String("error", err.Error()),
		)
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAuctionItemView(item))
}

// ListItems returns auctions with backward pagination.
// GET /api/auction/items?count=50&cursor=1
func (h *AuctionHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	count, cursor := parseWindow(r)

	items, err := h.auctions.List(r.Context(), count, cursor)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	total, err := h.auctions.Count(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, listItemsResponse[auctionItemView]{
		Items:  toAuctionItemViews(items),
		Total:  total,
		Count:  count,
		Cursor: cursor,
	})
}

// ListSellerItems returns one seller's auctions with backward pagination.
// GET /api/auction/sellers/{addr}/items?count=50&cursor=1
func (h *AuctionHandler) ListSellerItems(w http.ResponseWriter, r *http.Request) {
	seller, err := parseAddress(r.PathValue("addr"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid seller address")
		return
	}
	count, cursor := parseWindow(r)

	items, err := h.auctions.ListBySeller(r.Context(), seller, count, cursor)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	total, err := h.auctions.CountBySeller(r.Context(), seller)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, listItemsResponse[auctionItemView]{
		Items:  toAuctionItemViews(items),
		Total:  total,
		Count:  count,
		Cursor: cursor,
	})
}

// GetItem returns a single auction by id.
// GET /api/auction/items/{id}
func (h *AuctionHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	item, err := h.auctions.Get(r.Context(), id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAuctionItemView(item))
}

type bidRequest struct {
	Bidder   string `json:"bidder"`
	Currency string `json:"currency"`
	Amount   string `json:"amount"`
}

// PlaceBid adds funds to the bidder's position on an auction.
// POST /api/auction/items/{id}/bids
func (h *AuctionHandler) PlaceBid(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}
	var req bidRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	bidder, err := parseAddress(req.Bidder)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid bidder address")
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}

	if err := h.auctions.Bid(r.Context(), bidder, id, domain.Currency(req.Currency), amount); err != nil {
		h.logger.WarnContext(r.Context(), "handler: bid failed",
			slog.Uint64("item_id", id),
			slog.String("error", err.Error()),
		)
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"item_id": id, "accepted": true})
}

// Revertable reports how much of a bidder's position can be reclaimed.
// GET /api/auction/items/{id}/revertable?bidder=0x...
func (h *AuctionHandler) Revertable(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}
	bidder, err := parseAddress(r.URL.Query().Get("bidder"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid bidder address")
		return
	}

	amount, err := h.auctions.Revertable(r.Context(), id, bidder)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"item_id":    id,
		"bidder":     bidder.Hex(),
		"revertable": amount.String(),
	})
}

type revertBidRequest struct {
	Caller    string `json:"caller"`
	Recipient string `json:"recipient"`
}

// RevertBid refunds a non-leading bid position to the given recipient.
// POST /api/auction/items/{id}/revert
func (h *AuctionHandler) RevertBid(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}
	var req revertBidRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid caller address")
		return
	}
	recipient, err := parseAddress(req.Recipient)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid recipient address")
		return
	}

	if err := h.auctions.RevertBid(r.Context(), caller, recipient, id); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"item_id": id, "reverted": true})
}

// EndAuction settles an ended auction in favor of the highest bidder.
// POST /api/auction/items/{id}/end
func (h *AuctionHandler) EndAuction(w http.ResponseWriter, r *http.Request) {
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

	if err := h.auctions.End(r.Context(), caller, id); err != nil {
		h.logger.WarnContext(r.Context(), "handler: end auction failed",
			slog.Uint64("item_id", id),
			slog.String("error", err.Error()),
		)
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"item_id": id, "settled": true})
}

// RemoveItem cancels a bidless auction.
// DELETE /api/auction/items/{id}
func (h *AuctionHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
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

	if err := h.auctions.Remove(r.Context(), caller, id); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"item_id": id, "removed": true})
}

package handler

import (
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/taisys/nftmarket/internal/domain"
)

// timeFormat is the timestamp layout used in JSON responses.
const timeFormat = time.RFC3339

// writeJSON marshals v as JSON and writes it to the response with the given
// HTTP status code. If marshaling fails, it falls back to a plain-text 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeEngineError maps an engine error onto an HTTP status and writes it.
// Unexpected errors become an opaque 500.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrMarketItemNotFound),
		errors.Is(err, domain.ErrAuctionItemNotFound),
		errors.Is(err, domain.ErrBidderNotFound):
		writeError(w, http.StatusNotFound, err.Error())

	case errors.Is(err, domain.ErrAdminRequired),
		errors.Is(err, domain.ErrNotSellerOrAdmin),
		errors.Is(err, domain.ErrNotBidderOrSeller),
		errors.Is(err, domain.ErrHighestBidderCannotRevert):
		writeError(w, http.StatusForbidden, err.Error())

	case errors.Is(err, domain.ErrAmountMustBePositive),
		errors.Is(err, domain.ErrZeroAddress),
		errors.Is(err, domain.ErrUnknownCurrency),
		errors.Is(err, domain.ErrOutOfBounds):
		writeError(w, http.StatusBadRequest, err.Error())

	case errors.Is(err, domain.ErrSoldOut),
		errors.Is(err, domain.ErrSelfPurchase),
		errors.Is(err, domain.ErrAddressNotInWhitelist),
		errors.Is(err, domain.ErrAlreadyHighestBidder),
		errors.Is(err, domain.ErrBidTooLow),
		errors.Is(err, domain.ErrAuctionOver),
		errors.Is(err, domain.ErrAuctionNotOver),
		errors.Is(err, domain.ErrNoBids),
		errors.Is(err, domain.ErrHasHighestBidder),
		errors.Is(err, domain.ErrNativePaymentOnly),
		errors.Is(err, domain.ErrTokenPaymentOnly),
		errors.Is(err, domain.ErrNotEnoughFunds):
		writeError(w, http.StatusConflict, err.Error())

	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeJSON decodes the request body into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// parseWindow extracts the count/cursor pagination parameters from the query
// string. Defaults: count=50 (max 500), cursor=1.
func parseWindow(r *http.Request) (count, cursor uint64) {
	q := r.URL.Query()

	count = 50
	if v := q.Get("count"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil && n > 0 {
			count = n
		}
	}
	if count > 500 {
		count = 500
	}

	cursor = 1
	if v := q.Get("cursor"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cursor = n
		}
	}
	return count, cursor
}

// parseListOpts extracts limit/offset pagination from the query string.
// Defaults: limit=50 (max 500), offset=0.
func parseListOpts(r *http.Request) domain.ListOpts {
	q := r.URL.Query()

	limit := 50
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 500 {
		limit = 500
	}

	offset := 0
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	return domain.ListOpts{Limit: limit, Offset: offset}
}

// pathID extracts a numeric item id path parameter.
func pathID(r *http.Request) (uint64, error) {
	return strconv.ParseUint(r.PathValue("id"), 10, 64)
}

// parseAddress validates and parses a 0x-prefixed hex address.
func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, errors.New("invalid address")
	}
	return common.HexToAddress(s), nil
}

// parseAmount parses a non-empty base-10 amount string.
func parseAmount(s string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, errors.New("invalid amount")
	}
	return amount, nil
}

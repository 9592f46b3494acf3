package handler

import (
	"context"
	"log/slog"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/taisys/nftmarket/internal/domain"
)

// LedgerService defines what the ledger handler requires from the engine.
type LedgerService interface {
	Drawable(ctx context.Context, party common.Address, currency domain.Currency) (*big.Int, error)
	Withdraw(ctx context.Context, caller, recipient common.Address, currency domain.Currency, amount *big.Int) error
	PlatformDrawable(ctx context.Context, currency domain.Currency) (*big.Int, error)
	WithdrawPlatform(ctx context.Context, caller, recipient common.Address, currency domain.Currency, amount *big.Int) error
}

// LedgerHandler serves the drawable-balance endpoints.
type LedgerHandler struct {
	ledger LedgerService
	logger *slog.Logger
}

// NewLedgerHandler creates a LedgerHandler with the given service and logger.
func NewLedgerHandler(ledger LedgerService, logger *slog.Logger) *LedgerHandler {
	return &LedgerHandler{ledger: ledger, logger: logger}
}

// Drawable reports a party's withdrawable balance in one currency.
// GET /api/ledger/{addr}/drawable?currency=native
func (h *LedgerHandler) Drawable(w http.ResponseWriter, r *http.Request) {
	party, err := parseAddress(r.PathValue("addr"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid party address")
		return
	}
	currency := domain.Currency(r.URL.Query().Get("currency"))

	amount, err := h.ledger.Drawable(r.Context(), party, currency)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"party":    party.Hex(),
		"currency": string(currency),
		"drawable": amount.String(),
	})
}

type withdrawRequest struct {
	Caller    string `json:"caller"`
	Recipient string `json:"recipient"`
	Currency  string `json:"currency"`
	Amount    string `json:"amount"`
}

// Withdraw pays out part of the caller's drawable balance to a recipient.
// POST /api/ledger/withdrawals
func (h *LedgerHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req withdrawRequest
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
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}

	if err := h.ledger.Withdraw(r.Context(), caller, recipient, domain.Currency(req.Currency), amount); err != nil {
		h.logger.WarnContext(r.Context(), "handler: withdrawal failed",
			slog.String("caller", caller.Hex()),
			slog.String("error", err.Error()),
		)
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"withdrawn": true})
}

// PlatformDrawable reports the accumulated platform fees in one currency.
// GET /api/ledger/platform/drawable?currency=native
func (h *LedgerHandler) PlatformDrawable(w http.ResponseWriter, r *http.Request) {
	currency := domain.Currency(r.URL.Query().Get("currency"))

	amount, err := h.ledger.PlatformDrawable(r.Context(), currency)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"currency": string(currency),
		"drawable": amount.String(),
	})
}

// WithdrawPlatform pays out accumulated platform fees. Admin only.
// POST /api/ledger/platform/withdrawals
func (h *LedgerHandler) WithdrawPlatform(w http.ResponseWriter, r *http.Request) {
	var req withdrawRequest
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
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}

	if err := h.ledger.WithdrawPlatform(r.Context(), caller, recipient, domain.Currency(req.Currency), amount); err != nil {
		h.logger.WarnContext(r.Context(), "handler: platform withdrawal failed",
			slog.String("caller", caller.Hex()),
			slog.String("error", err.Error()),
		)
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"withdrawn": true})
}

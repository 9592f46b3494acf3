package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/taisys/nftmarket/internal/domain"
)

// AdminService defines what the admin handler requires from the engine.
type AdminService interface {
	SetWhitelist(ctx context.Context, caller, custodian common.Address) error
	IsWhitelisted(ctx context.Context, custodian common.Address) (bool, error)
	GrantAdmin(ctx context.Context, caller, party common.Address) error
	AuditTrail(ctx context.Context, opts domain.ListOpts) ([]domain.AuditEntry, error)
}

// AdminHandler serves the administrative endpoints.
type AdminHandler struct {
	admin  AdminService
	logger *slog.Logger
}

// NewAdminHandler creates an AdminHandler with the given service and logger.
func NewAdminHandler(admin AdminService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{admin: admin, logger: logger}
}

type whitelistRequest struct {
	Caller    string `json:"caller"`
	Custodian string `json:"custodian"`
}

// SetWhitelist approves a custodian contract for trading. Admin only.
// POST /api/admin/whitelist
func (h *AdminHandler) SetWhitelist(w http.ResponseWriter, r *http.Request) {
	var req whitelistRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid caller address")
		return
	}
	custodian, err := parseAddress(req.Custodian)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid custodian address")
		return
	}

	if err := h.admin.SetWhitelist(r.Context(), caller, custodian); err != nil {
		h.logger.WarnContext(r.Context(), "handler: whitelist update failed",
			slog.String("custodian", custodian.Hex()),
			slog.String("error", err.Error()),
		)
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"custodian": custodian.Hex(), "whitelisted": true})
}

// IsWhitelisted reports whether a custodian is approved for trading.
// GET /api/admin/whitelist/{addr}
func (h *AdminHandler) IsWhitelisted(w http.ResponseWriter, r *http.Request) {
	custodian, err := parseAddress(r.PathValue("addr"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid custodian address")
		return
	}

	ok, err := h.admin.IsWhitelisted(r.Context(), custodian)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"custodian": custodian.Hex(), "whitelisted": ok})
}

type grantAdminRequest struct {
	Caller string `json:"caller"`
	Party  string `json:"party"`
}

// GrantAdmin grants the admin role to a party. Default admin only.
// POST /api/admin/admins
func (h *AdminHandler) GrantAdmin(w http.ResponseWriter, r *http.Request) {
	var req grantAdminRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid caller address")
		return
	}
	party, err := parseAddress(req.Party)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid party address")
		return
	}

	if err := h.admin.GrantAdmin(r.Context(), caller, party); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"party": party.Hex(), "admin": true})
}

type auditEntryView struct {
	ID        string         `json:"id"`
	Event     string         `json:"event"`
	Detail    map[string]any `json:"detail"`
	CreatedAt string         `json:"created_at"`
}

// AuditTrail returns recorded engine events, newest first.
// GET /api/admin/audit?limit=100&offset=0
func (h *AdminHandler) AuditTrail(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	entries, err := h.admin.AuditTrail(r.Context(), opts)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	views := make([]auditEntryView, 0, len(entries))
	for _, entry := range entries {
		views = append(views, auditEntryView{
			ID:        entry.ID,
			Event:     entry.Event,
			Detail:    entry.Detail,
			CreatedAt: entry.CreatedAt.Format(timeFormat),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": views, "count": len(views)})
}

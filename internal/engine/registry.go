package engine

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/taisys/nftmarket/internal/access"
	"github.com/taisys/nftmarket/internal/domain"
)

// SetWhitelist marks an asset custodian as eligible for listing. Admin only;
// adding an already-whitelisted custodian is a no-op.
func (e *Engine) SetWhitelist(ctx context.Context, caller, custodian common.Address) error {
	if !e.roles.IsAdmin(caller) {
		return domain.ErrAdminRequired
	}
	if custodian == (common.Address{}) {
		return domain.ErrZeroAddress
	}

	unlock, err := e.lockWrites(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	if err := e.whitelist.Add(ctx, custodian); err != nil {
		return fmt.Errorf("engine: whitelist custodian: %w", err)
	}

	e.auditLog(ctx, "whitelist_added", map[string]any{
		"caller":    caller.Hex(),
		"custodian": custodian.Hex(),
	})
	return nil
}

// IsWhitelisted reports whether a custodian may be listed.
func (e *Engine) IsWhitelisted(ctx context.Context, custodian common.Address) (bool, error) {
	ok, err := e.whitelist.Contains(ctx, custodian)
	if err != nil {
		return false, fmt.Errorf("engine: check whitelist: %w", err)
	}
	return ok, nil
}

// GrantAdmin gives a party the admin role. Only default administrators can
// grant.
func (e *Engine) GrantAdmin(ctx context.Context, caller, party common.Address) error {
	if party == (common.Address{}) {
		return domain.ErrZeroAddress
	}
	if err := e.roles.Grant(caller, access.RoleAdmin, party); err != nil {
		return err
	}

	e.auditLog(ctx, "admin_granted", map[string]any{
		"caller": caller.Hex(),
		"party":  party.Hex(),
	})
	return nil
}

// IsAdmin reports whether a party may perform admin-gated operations.
func (e *Engine) IsAdmin(party common.Address) bool {
	return e.roles.IsAdmin(party)
}

// AuditTrail returns recent audit entries, newest first.
func (e *Engine) AuditTrail(ctx context.Context, opts domain.ListOpts) ([]domain.AuditEntry, error) {
	entries, err := e.audit.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("engine: list audit trail: %w", err)
	}
	return entries, nil
}

// Package access implements the engine's role model: a default administrator
// role fixed at construction and a grantable admin role. Admin-gated engine
// operations are whitelist mutation, forced item removal, admin grants, and
// platform withdrawal.
package access

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/taisys/nftmarket/internal/domain"
)

// Role names a permission level.
type Role string

const (
	// RoleDefaultAdmin is the bootstrap role; only its holders can grant
	// further roles.
	RoleDefaultAdmin Role = "default_admin"
	// RoleAdmin gates the privileged marketplace operations.
	RoleAdmin Role = "admin"
)

// Controller tracks role membership. It is safe for concurrent use.
type Controller struct {
	mu    sync.RWMutex
	roles map[Role]map[common.Address]struct{}
}

// NewController creates a Controller with the given default administrators.
func NewController(defaultAdmins ...common.Address) *Controller {
	c := &Controller{
		roles: map[Role]map[common.Address]struct{}{
			RoleDefaultAdmin: {},
			RoleAdmin:        {},
		},
	}
	for _, a := range defaultAdmins {
		c.roles[RoleDefaultAdmin][a] = struct{}{}
	}
	return c
}

// Has reports whether addr holds the given role.
func (c *Controller) Has(role Role, addr common.Address) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.roles[role][addr]
	return ok
}

// IsAdmin reports whether addr may perform admin-gated operations. Default
// administrators implicitly hold the admin role.
func (c *Controller) IsAdmin(addr common.Address) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if _, ok := c.roles[RoleDefaultAdmin][addr]; ok {
		return true
	}
	_, ok := c.roles[RoleAdmin][addr]
	return ok
}

// Grant gives addr the given role. Only default administrators can grant.
func (c *Controller) Grant(caller common.Address, role Role, addr common.Address) error {
	if !c.Has(RoleDefaultAdmin, caller) {
		return domain.ErrAdminRequired
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.roles[role] == nil {
		c.roles[role] = map[common.Address]struct{}{}
	}
	c.roles[role][addr] = struct{}{}
	return nil
}

// Revoke removes the given role from addr. Only default administrators can
// revoke.
func (c *Controller) Revoke(caller common.Address, role Role, addr common.Address) error {
	if !c.Has(RoleDefaultAdmin, caller) {
		return domain.ErrAdminRequired
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.roles[role], addr)
	return nil
}

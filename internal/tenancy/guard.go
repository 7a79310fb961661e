package tenancy

import (
	"fmt"

	"github.com/tenantnotes/notes-server/internal/models"
)

// Bind fails unless the identity belongs to the tenant. It must run on every
// tenant-scoped route. Missing inputs fail closed.
func Bind(id *models.Identity, t *models.Tenant) error {
	if id == nil {
		return ErrUnauthenticated
	}
	if t == nil || id.TenantID != t.ID {
		return ErrTenantAccessDenied
	}
	return nil
}

// RequireRole fails unless the identity's role is exactly one of roles.
// There is no hierarchy: list every accepted role.
func RequireRole(id *models.Identity, roles ...models.Role) error {
	if id == nil {
		return ErrUnauthenticated
	}
	for _, r := range roles {
		if id.Role == r {
			return nil
		}
	}
	return fmt.Errorf("%w: %s not in %v", ErrInsufficientRole, id.Role, roles)
}

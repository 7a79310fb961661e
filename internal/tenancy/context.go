package tenancy

import (
	"context"

	"github.com/tenantnotes/notes-server/internal/models"
)

type contextKey string

const (
	identityCtxKey = contextKey("tenancy/identity")
	tenantCtxKey   = contextKey("tenancy/tenant")
)

// WithIdentity attaches the authenticated identity to ctx
func WithIdentity(ctx context.Context, id *models.Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey, id)
}

// IdentityFrom returns the identity attached by WithIdentity
func IdentityFrom(ctx context.Context) (*models.Identity, bool) {
	id, ok := ctx.Value(identityCtxKey).(*models.Identity)
	return id, ok && id != nil
}

// WithTenant attaches the resolved tenant to ctx
func WithTenant(ctx context.Context, t *models.Tenant) context.Context {
	return context.WithValue(ctx, tenantCtxKey, t)
}

// TenantFrom returns the tenant attached by WithTenant
func TenantFrom(ctx context.Context) (*models.Tenant, bool) {
	t, ok := ctx.Value(tenantCtxKey).(*models.Tenant)
	return t, ok && t != nil
}

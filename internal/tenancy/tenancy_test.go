package tenancy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tenantnotes/notes-server/internal/models"
	"github.com/tenantnotes/notes-server/internal/storage"
)

// world is a memory store seeded with two tenants, each with an admin and a member
type world struct {
	store  *storage.MemoryStore
	acme   *models.Tenant
	globex *models.Tenant
	users  map[string]*models.User
}

func newWorld(t *testing.T) *world {
	t.Helper()
	ctx := context.Background()
	w := &world{store: storage.NewMemoryStore(), users: make(map[string]*models.User)}

	w.acme = &models.Tenant{Name: "Acme", Slug: "acme"}
	require.NoError(t, w.store.CreateTenant(ctx, w.acme))
	w.globex = &models.Tenant{Name: "Globex", Slug: "globex"}
	require.NoError(t, w.store.CreateTenant(ctx, w.globex))

	for _, u := range []struct {
		email  string
		tenant *models.Tenant
		role   models.Role
	}{
		{"admin@acme.test", w.acme, models.RoleAdmin},
		{"user@acme.test", w.acme, models.RoleMember},
		{"admin@globex.test", w.globex, models.RoleAdmin},
		{"user@globex.test", w.globex, models.RoleMember},
	} {
		user := &models.User{
			TenantModel:  models.TenantModel{TenantID: u.tenant.ID},
			Email:        u.email,
			PasswordHash: "unused",
			Role:         u.role,
		}
		require.NoError(t, w.store.CreateUser(ctx, user))
		w.users[u.email] = user
	}
	return w
}

func (w *world) identity(t *testing.T, email string) *models.Identity {
	t.Helper()
	id, err := w.store.GetIdentity(context.Background(), w.users[email].ID)
	require.NoError(t, err)
	return id
}

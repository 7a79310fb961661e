package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/tenantnotes/notes-server/internal/models"
	"github.com/tenantnotes/notes-server/pkg/crypto"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS tenants (
		id         BIGSERIAL PRIMARY KEY,
		name       VARCHAR(255) NOT NULL,
		slug       VARCHAR(100) NOT NULL UNIQUE,
		plan       VARCHAR(20)  NOT NULL DEFAULT 'free' CHECK (plan IN ('free', 'pro')),
		created_at TIMESTAMPTZ  NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id         BIGSERIAL PRIMARY KEY,
		tenant_id  BIGINT       NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
		email      VARCHAR(255) NOT NULL UNIQUE,
		password   VARCHAR(255) NOT NULL,
		role       VARCHAR(20)  NOT NULL DEFAULT 'member' CHECK (role IN ('admin', 'member')),
		created_at TIMESTAMPTZ  NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS notes (
		id         BIGSERIAL PRIMARY KEY,
		tenant_id  BIGINT       NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
		user_id    BIGINT       REFERENCES users(id) ON DELETE SET NULL,
		title      VARCHAR(255) NOT NULL,
		content    TEXT         NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ  NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ  NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_users_tenant_id ON users(tenant_id)`,
	`CREATE INDEX IF NOT EXISTS idx_notes_tenant_id ON notes(tenant_id)`,
	`CREATE INDEX IF NOT EXISTS idx_notes_user_id ON notes(user_id)`,
}

// Migrate creates the schema if it does not exist
func (s *PostgresStore) Migrate(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := s.getDB().ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i, err)
		}
	}
	return nil
}

// SeedUser is a bootstrap account
type SeedUser struct {
	Email string
	Role  models.Role
}

// SeedTenant is a bootstrap tenant with its accounts
type SeedTenant struct {
	Name  string
	Slug  string
	Users []SeedUser
}

// DefaultSeed is the demo data set: two free tenants with an admin and a member each
var DefaultSeed = []SeedTenant{
	{
		Name: "Acme Corporation",
		Slug: "acme",
		Users: []SeedUser{
			{Email: "admin@acme.test", Role: models.RoleAdmin},
			{Email: "user@acme.test", Role: models.RoleMember},
		},
	},
	{
		Name: "Globex Corporation",
		Slug: "globex",
		Users: []SeedUser{
			{Email: "admin@globex.test", Role: models.RoleAdmin},
			{Email: "user@globex.test", Role: models.RoleMember},
		},
	},
}

// Seed inserts tenants and users that do not exist yet. All seeded users
// share password. Running it again is a no-op.
func Seed(ctx context.Context, store Store, tenants []SeedTenant, password string) error {
	hash, err := crypto.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash seed password: %w", err)
	}

	for _, st := range tenants {
		tenant := &models.Tenant{Name: st.Name, Slug: st.Slug, Plan: models.PlanFree}
		err := store.CreateTenant(ctx, tenant)
		if errors.Is(err, ErrDuplicateKey) {
			tenant, err = store.GetTenantBySlug(ctx, st.Slug)
		}
		if err != nil {
			return fmt.Errorf("seed tenant %q: %w", st.Slug, err)
		}

		for _, su := range st.Users {
			user := &models.User{
				TenantModel:  models.TenantModel{TenantID: tenant.ID},
				Email:        su.Email,
				PasswordHash: hash,
				Role:         su.Role,
			}
			err := store.CreateUser(ctx, user)
			if errors.Is(err, ErrDuplicateKey) {
				log.Debug().Str("email", su.Email).Msg("Seed user already exists")
				continue
			}
			if err != nil {
				return fmt.Errorf("seed user %q: %w", su.Email, err)
			}
		}
	}

	log.Info().Int("tenants", len(tenants)).Msg("Seed data ensured")
	return nil
}

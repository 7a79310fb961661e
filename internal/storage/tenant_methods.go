package storage

import (
	"context"
	"fmt"

	"github.com/tenantnotes/notes-server/internal/models"
)

const tenantColumns = `id, name, slug, plan, created_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTenant(row rowScanner) (*models.Tenant, error) {
	t := &models.Tenant{}
	err := row.Scan(&t.ID, &t.Name, &t.Slug, &t.Plan, &t.CreatedAt)
	if err != nil {
		return nil, translateError(err)
	}
	return t, nil
}

// CreateTenant creates a new tenant
func (s *PostgresStore) CreateTenant(ctx context.Context, tenant *models.Tenant) error {
	if tenant.Plan == "" {
		tenant.Plan = models.PlanFree
	}
	if !tenant.Plan.Valid() || tenant.Slug == "" || tenant.Name == "" {
		return ErrInvalidData
	}

	query := `
		INSERT INTO tenants (name, slug, plan)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := s.getDB().QueryRowContext(ctx, query, tenant.Name, tenant.Slug, tenant.Plan).
		Scan(&tenant.ID, &tenant.CreatedAt)
	if err != nil {
		return fmt.Errorf("create tenant %q: %w", tenant.Slug, translateError(err))
	}
	return nil
}

// GetTenant gets a tenant by ID
func (s *PostgresStore) GetTenant(ctx context.Context, id int64) (*models.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE id = $1`
	return scanTenant(s.getDB().QueryRowContext(ctx, query, id))
}

// GetTenantBySlug gets a tenant by its slug
func (s *PostgresStore) GetTenantBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE slug = $1`
	return scanTenant(s.getDB().QueryRowContext(ctx, query, slug))
}

// LockTenant reads a tenant and holds its row lock until the transaction ends.
// Outside a transaction the lock is released immediately.
func (s *PostgresStore) LockTenant(ctx context.Context, id int64) (*models.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE id = $1 FOR UPDATE`
	return scanTenant(s.getDB().QueryRowContext(ctx, query, id))
}

// SetTenantPlan sets a tenant's plan and returns the updated tenant
func (s *PostgresStore) SetTenantPlan(ctx context.Context, id int64, plan models.Plan) (*models.Tenant, error) {
	if !plan.Valid() {
		return nil, ErrInvalidData
	}
	query := `UPDATE tenants SET plan = $2 WHERE id = $1 RETURNING ` + tenantColumns
	return scanTenant(s.getDB().QueryRowContext(ctx, query, id, plan))
}

// DeleteTenant deletes a tenant together with its users and notes
func (s *PostgresStore) DeleteTenant(ctx context.Context, id int64) error {
	result, err := s.getDB().ExecContext(ctx, "DELETE FROM tenants WHERE id = $1", id)
	if err != nil {
		return err
	}
	return expectOneRow(result)
}

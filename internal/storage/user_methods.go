package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/tenantnotes/notes-server/internal/models"
)

// NormalizeEmail lower-cases and trims an email so uniqueness is case-insensitive
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateUser creates a new user. PasswordHash must already be set.
func (s *PostgresStore) CreateUser(ctx context.Context, user *models.User) error {
	if user.Role == "" {
		user.Role = models.RoleMember
	}
	if !user.Role.Valid() || user.TenantID == 0 || user.PasswordHash == "" {
		return ErrInvalidData
	}
	user.Email = NormalizeEmail(user.Email)

	query := `
		INSERT INTO users (tenant_id, email, password, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := s.getDB().QueryRowContext(ctx, query, user.TenantID, user.Email, user.PasswordHash, user.Role).
		Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		return fmt.Errorf("create user %q: %w", user.Email, translateError(err))
	}
	return nil
}

// GetUserByEmail gets a user, including the password hash, by email
func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT id, tenant_id, email, password, role, created_at
		FROM users
		WHERE email = $1`

	user := &models.User{}
	err := s.getDB().QueryRowContext(ctx, query, NormalizeEmail(email)).Scan(
		&user.ID, &user.TenantID, &user.Email, &user.PasswordHash, &user.Role, &user.CreatedAt,
	)
	if err != nil {
		return nil, translateError(err)
	}
	return user, nil
}

// GetIdentity reads a user joined with its tenant in one round trip
func (s *PostgresStore) GetIdentity(ctx context.Context, userID int64) (*models.Identity, error) {
	query := `
		SELECT u.id, u.email, u.role, u.tenant_id, t.slug, t.plan, t.name
		FROM users u
		JOIN tenants t ON u.tenant_id = t.id
		WHERE u.id = $1`

	id := &models.Identity{}
	err := s.getDB().QueryRowContext(ctx, query, userID).Scan(
		&id.UserID, &id.Email, &id.Role, &id.TenantID, &id.TenantSlug, &id.TenantPlan, &id.TenantName,
	)
	if err != nil {
		return nil, translateError(err)
	}
	return id, nil
}

// DeleteUser deletes a user. Notes they authored stay with the tenant.
func (s *PostgresStore) DeleteUser(ctx context.Context, id int64) error {
	result, err := s.getDB().ExecContext(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return err
	}
	return expectOneRow(result)
}

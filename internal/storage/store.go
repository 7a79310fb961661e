package storage

import (
	"context"
	"errors"

	"github.com/tenantnotes/notes-server/internal/models"
)

// Common errors
var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicateKey = errors.New("duplicate key")
	ErrInvalidData  = errors.New("invalid data")
)

// Store defines the storage interface.
//
// Every note method takes the owning tenant id as a mandatory filter. A note
// that exists under another tenant is reported as ErrNotFound.
type Store interface {
	// Transaction support
	BeginTx(ctx context.Context) (Store, error)
	Commit() error
	Rollback() error

	// Tenant methods
	CreateTenant(ctx context.Context, tenant *models.Tenant) error
	GetTenant(ctx context.Context, id int64) (*models.Tenant, error)
	GetTenantBySlug(ctx context.Context, slug string) (*models.Tenant, error)
	LockTenant(ctx context.Context, id int64) (*models.Tenant, error)
	SetTenantPlan(ctx context.Context, id int64, plan models.Plan) (*models.Tenant, error)
	DeleteTenant(ctx context.Context, id int64) error

	// User methods
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetIdentity(ctx context.Context, userID int64) (*models.Identity, error)
	DeleteUser(ctx context.Context, id int64) error

	// Note methods
	ListNotes(ctx context.Context, tenantID int64) ([]*models.Note, error)
	GetNote(ctx context.Context, tenantID, id int64) (*models.Note, error)
	CreateNote(ctx context.Context, tenantID, authorID int64, title, content string) (*models.Note, error)
	UpdateNote(ctx context.Context, tenantID, id int64, title, content string) (*models.Note, error)
	DeleteNote(ctx context.Context, tenantID, id int64) error
	CountNotes(ctx context.Context, tenantID int64) (int, error)

	// Close the store
	Close() error
}

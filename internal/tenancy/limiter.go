package tenancy

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/tenantnotes/notes-server/internal/models"
	"github.com/tenantnotes/notes-server/internal/storage"
)

// NoteCounter counts a tenant's notes
type NoteCounter interface {
	CountNotes(ctx context.Context, tenantID int64) (int, error)
}

// PlanLimiter enforces the note ceiling of the free plan
type PlanLimiter struct {
	store     storage.Store
	freeLimit int
	onReject  func(t *models.Tenant)
}

// LimiterOption configures a PlanLimiter
type LimiterOption func(*PlanLimiter)

// WithRejectHook registers fn to run whenever a creation is refused
func WithRejectHook(fn func(t *models.Tenant)) LimiterOption {
	return func(l *PlanLimiter) {
		l.onReject = fn
	}
}

// NewPlanLimiter creates a limiter allowing freeLimit notes on the free plan
func NewPlanLimiter(store storage.Store, freeLimit int, opts ...LimiterOption) *PlanLimiter {
	l := &PlanLimiter{store: store, freeLimit: freeLimit}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Limit returns the plan's note ceiling; ok is false for unlimited plans
func (l *PlanLimiter) Limit(plan models.Plan) (limit int, ok bool) {
	if plan == models.PlanFree {
		return l.freeLimit, true
	}
	return 0, false
}

// NoteLimit is Limit as a nullable value, nil meaning unlimited
func (l *PlanLimiter) NoteLimit(plan models.Plan) *int {
	limit, ok := l.Limit(plan)
	if !ok {
		return nil
	}
	return &limit
}

// Check fails with ErrPlanLimitReached when the tenant has no room for another note
func (l *PlanLimiter) Check(ctx context.Context, notes NoteCounter, t *models.Tenant) error {
	limit, ok := l.Limit(t.Plan)
	if !ok {
		return nil
	}
	count, err := notes.CountNotes(ctx, t.ID)
	if err != nil {
		return fmt.Errorf("count notes: %w", err)
	}
	if count >= limit {
		return fmt.Errorf("%w: %s plan allows %d notes", ErrPlanLimitReached, t.Plan, limit)
	}
	return nil
}

// CreateNote inserts a note for the identity's tenant if its plan allows it.
// The tenant row is locked for the check and the insert, so concurrent
// creations for one tenant cannot overshoot the limit. The plan is re-read
// under the lock.
func (l *PlanLimiter) CreateNote(ctx context.Context, id *models.Identity, t *models.Tenant, title, content string) (*models.Note, error) {
	if err := Bind(id, t); err != nil {
		return nil, err
	}

	tx, err := l.store.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	locked, err := tx.LockTenant(ctx, t.ID)
	if err != nil {
		return nil, fmt.Errorf("lock tenant: %w", err)
	}

	if err := l.Check(ctx, tx, locked); err != nil {
		if l.onReject != nil {
			l.onReject(locked)
		}
		log.Info().
			Str("tenant", locked.Slug).
			Int64("user_id", id.UserID).
			Msg("Note creation refused by plan limit")
		return nil, err
	}

	note, err := tx.CreateNote(ctx, locked.ID, id.UserID, title, content)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit note: %w", err)
	}
	return note, nil
}

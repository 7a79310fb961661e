package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/tenantnotes/notes-server/internal/models"
)

type memState struct {
	lastTenantID int64
	lastUserID   int64
	lastNoteID   int64

	tenants map[int64]models.Tenant
	users   map[int64]models.User
	notes   map[int64]models.Note
}

func newMemState() *memState {
	return &memState{
		tenants: make(map[int64]models.Tenant),
		users:   make(map[int64]models.User),
		notes:   make(map[int64]models.Note),
	}
}

func (st *memState) clone() *memState {
	c := &memState{
		lastTenantID: st.lastTenantID,
		lastUserID:   st.lastUserID,
		lastNoteID:   st.lastNoteID,
		tenants:      make(map[int64]models.Tenant, len(st.tenants)),
		users:        make(map[int64]models.User, len(st.users)),
		notes:        make(map[int64]models.Note, len(st.notes)),
	}
	for k, v := range st.tenants {
		c.tenants[k] = v
	}
	for k, v := range st.users {
		c.users[k] = v
	}
	for k, v := range st.notes {
		c.notes[k] = v
	}
	return c
}

// noteView returns a detached copy of n with its author email resolved
func (st *memState) noteView(n models.Note) *models.Note {
	out := n
	out.CreatedBy = nil
	if n.AuthorID != nil {
		id := *n.AuthorID
		out.AuthorID = &id
		if u, ok := st.users[id]; ok {
			email := u.Email
			out.CreatedBy = &email
		}
	}
	return &out
}

type memoryDB struct {
	sem   chan struct{}
	state *memState
	now   func() time.Time
}

func (db *memoryDB) lock(ctx context.Context) error {
	select {
	case db.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (db *memoryDB) unlock() {
	<-db.sem
}

// MemoryStore implements Store in process memory. It follows the same
// constraints as the PostgreSQL schema: unique slugs and emails, tenant
// cascade on delete, and author attribution cleared when a user is deleted.
// A transaction holds the store exclusively until Commit or Rollback.
type MemoryStore struct {
	db   *memoryDB
	tx   *memState
	done bool
}

// MemoryOption configures a MemoryStore
type MemoryOption func(*memoryDB)

// WithClock sets the clock used for created_at and updated_at
func WithClock(now func() time.Time) MemoryOption {
	return func(db *memoryDB) {
		db.now = now
	}
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	db := &memoryDB{
		sem:   make(chan struct{}, 1),
		state: newMemState(),
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(db)
	}
	return &MemoryStore{db: db}
}

// run executes fn against the current state, taking the lock unless the
// store is a transaction that already holds it.
func (s *MemoryStore) run(ctx context.Context, fn func(st *memState) error) error {
	if s.tx != nil {
		if s.done {
			return errors.New("transaction already finished")
		}
		return fn(s.tx)
	}
	if err := s.db.lock(ctx); err != nil {
		return err
	}
	defer s.db.unlock()
	return fn(s.db.state)
}

// BeginTx starts a new transaction
func (s *MemoryStore) BeginTx(ctx context.Context) (Store, error) {
	if s.tx != nil {
		return nil, errors.New("nested transactions are not supported")
	}
	if err := s.db.lock(ctx); err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &MemoryStore{db: s.db, tx: s.db.state.clone()}, nil
}

// Commit publishes the transaction's changes
func (s *MemoryStore) Commit() error {
	if s.tx == nil || s.done {
		return nil
	}
	s.db.state = s.tx
	s.done = true
	s.db.unlock()
	return nil
}

// Rollback discards the transaction's changes
func (s *MemoryStore) Rollback() error {
	if s.tx == nil || s.done {
		return nil
	}
	s.done = true
	s.db.unlock()
	return nil
}

// Close is a no-op
func (s *MemoryStore) Close() error {
	return nil
}

// ========== Tenant methods ==========

// CreateTenant creates a new tenant
func (s *MemoryStore) CreateTenant(ctx context.Context, tenant *models.Tenant) error {
	if tenant.Plan == "" {
		tenant.Plan = models.PlanFree
	}
	if !tenant.Plan.Valid() || tenant.Slug == "" || tenant.Name == "" {
		return ErrInvalidData
	}
	return s.run(ctx, func(st *memState) error {
		for _, t := range st.tenants {
			if t.Slug == tenant.Slug {
				return fmt.Errorf("create tenant %q: %w", tenant.Slug, ErrDuplicateKey)
			}
		}
		st.lastTenantID++
		tenant.ID = st.lastTenantID
		tenant.CreatedAt = s.db.now()
		st.tenants[tenant.ID] = *tenant
		return nil
	})
}

// GetTenant gets a tenant by ID
func (s *MemoryStore) GetTenant(ctx context.Context, id int64) (*models.Tenant, error) {
	var out *models.Tenant
	err := s.run(ctx, func(st *memState) error {
		t, ok := st.tenants[id]
		if !ok {
			return ErrNotFound
		}
		out = &t
		return nil
	})
	return out, err
}

// GetTenantBySlug gets a tenant by its slug
func (s *MemoryStore) GetTenantBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	var out *models.Tenant
	err := s.run(ctx, func(st *memState) error {
		for _, t := range st.tenants {
			if t.Slug == slug {
				t := t
				out = &t
				return nil
			}
		}
		return ErrNotFound
	})
	return out, err
}

// LockTenant reads a tenant. A transaction already holds the whole store.
func (s *MemoryStore) LockTenant(ctx context.Context, id int64) (*models.Tenant, error) {
	return s.GetTenant(ctx, id)
}

// SetTenantPlan sets a tenant's plan
func (s *MemoryStore) SetTenantPlan(ctx context.Context, id int64, plan models.Plan) (*models.Tenant, error) {
	if !plan.Valid() {
		return nil, ErrInvalidData
	}
	var out *models.Tenant
	err := s.run(ctx, func(st *memState) error {
		t, ok := st.tenants[id]
		if !ok {
			return ErrNotFound
		}
		t.Plan = plan
		st.tenants[id] = t
		out = &t
		return nil
	})
	return out, err
}

// DeleteTenant deletes a tenant together with its users and notes
func (s *MemoryStore) DeleteTenant(ctx context.Context, id int64) error {
	return s.run(ctx, func(st *memState) error {
		if _, ok := st.tenants[id]; !ok {
			return ErrNotFound
		}
		delete(st.tenants, id)
		for uid, u := range st.users {
			if u.TenantID == id {
				delete(st.users, uid)
			}
		}
		for nid, n := range st.notes {
			if n.TenantID == id {
				delete(st.notes, nid)
			}
		}
		return nil
	})
}

// ========== User methods ==========

// CreateUser creates a new user. PasswordHash must already be set.
func (s *MemoryStore) CreateUser(ctx context.Context, user *models.User) error {
	if user.Role == "" {
		user.Role = models.RoleMember
	}
	if !user.Role.Valid() || user.TenantID == 0 || user.PasswordHash == "" {
		return ErrInvalidData
	}
	user.Email = NormalizeEmail(user.Email)
	return s.run(ctx, func(st *memState) error {
		if _, ok := st.tenants[user.TenantID]; !ok {
			return ErrInvalidData
		}
		for _, u := range st.users {
			if u.Email == user.Email {
				return fmt.Errorf("create user %q: %w", user.Email, ErrDuplicateKey)
			}
		}
		st.lastUserID++
		user.ID = st.lastUserID
		user.CreatedAt = s.db.now()
		st.users[user.ID] = *user
		return nil
	})
}

// GetUserByEmail gets a user by email
func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	email = NormalizeEmail(email)
	var out *models.User
	err := s.run(ctx, func(st *memState) error {
		for _, u := range st.users {
			if u.Email == email {
				u := u
				out = &u
				return nil
			}
		}
		return ErrNotFound
	})
	return out, err
}

// GetIdentity reads a user joined with its tenant
func (s *MemoryStore) GetIdentity(ctx context.Context, userID int64) (*models.Identity, error) {
	var out *models.Identity
	err := s.run(ctx, func(st *memState) error {
		u, ok := st.users[userID]
		if !ok {
			return ErrNotFound
		}
		t, ok := st.tenants[u.TenantID]
		if !ok {
			return ErrNotFound
		}
		out = &models.Identity{
			UserID:     u.ID,
			Email:      u.Email,
			Role:       u.Role,
			TenantID:   t.ID,
			TenantSlug: t.Slug,
			TenantPlan: t.Plan,
			TenantName: t.Name,
		}
		return nil
	})
	return out, err
}

// DeleteUser deletes a user and clears their attribution on notes
func (s *MemoryStore) DeleteUser(ctx context.Context, id int64) error {
	return s.run(ctx, func(st *memState) error {
		if _, ok := st.users[id]; !ok {
			return ErrNotFound
		}
		delete(st.users, id)
		for nid, n := range st.notes {
			if n.AuthorID != nil && *n.AuthorID == id {
				n.AuthorID = nil
				st.notes[nid] = n
			}
		}
		return nil
	})
}

// ========== Note methods ==========

// ListNotes lists a tenant's notes, most recently updated first
func (s *MemoryStore) ListNotes(ctx context.Context, tenantID int64) ([]*models.Note, error) {
	notes := make([]*models.Note, 0)
	err := s.run(ctx, func(st *memState) error {
		for _, n := range st.notes {
			if n.TenantID == tenantID {
				notes = append(notes, st.noteView(n))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(notes, func(i, j int) bool {
		if !notes[i].UpdatedAt.Equal(notes[j].UpdatedAt) {
			return notes[i].UpdatedAt.After(notes[j].UpdatedAt)
		}
		return notes[i].ID > notes[j].ID
	})
	return notes, nil
}

// GetNote gets a note owned by the tenant
func (s *MemoryStore) GetNote(ctx context.Context, tenantID, id int64) (*models.Note, error) {
	var out *models.Note
	err := s.run(ctx, func(st *memState) error {
		n, ok := st.notes[id]
		if !ok || n.TenantID != tenantID {
			return ErrNotFound
		}
		out = st.noteView(n)
		return nil
	})
	return out, err
}

// CreateNote inserts a note for the tenant
func (s *MemoryStore) CreateNote(ctx context.Context, tenantID, authorID int64, title, content string) (*models.Note, error) {
	var out *models.Note
	err := s.run(ctx, func(st *memState) error {
		if _, ok := st.tenants[tenantID]; !ok {
			return ErrInvalidData
		}
		if _, ok := st.users[authorID]; !ok {
			return ErrInvalidData
		}
		now := s.db.now()
		st.lastNoteID++
		author := authorID
		n := models.Note{
			TenantModel: models.TenantModel{
				BaseModel: models.BaseModel{ID: st.lastNoteID, CreatedAt: now},
				TenantID:  tenantID,
			},
			UpdatedAt: now,
			AuthorID:  &author,
			Title:     title,
			Content:   content,
		}
		st.notes[n.ID] = n
		out = st.noteView(n)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create note: %w", err)
	}
	return out, nil
}

// UpdateNote replaces a note's title and content, keeping created_at
func (s *MemoryStore) UpdateNote(ctx context.Context, tenantID, id int64, title, content string) (*models.Note, error) {
	var out *models.Note
	err := s.run(ctx, func(st *memState) error {
		n, ok := st.notes[id]
		if !ok || n.TenantID != tenantID {
			return ErrNotFound
		}
		n.Title = title
		n.Content = content
		n.UpdatedAt = s.db.now()
		st.notes[id] = n
		out = st.noteView(n)
		return nil
	})
	return out, err
}

// DeleteNote deletes a note owned by the tenant
func (s *MemoryStore) DeleteNote(ctx context.Context, tenantID, id int64) error {
	return s.run(ctx, func(st *memState) error {
		n, ok := st.notes[id]
		if !ok || n.TenantID != tenantID {
			return ErrNotFound
		}
		delete(st.notes, id)
		return nil
	})
}

// CountNotes counts a tenant's notes
func (s *MemoryStore) CountNotes(ctx context.Context, tenantID int64) (int, error) {
	count := 0
	err := s.run(ctx, func(st *memState) error {
		for _, n := range st.notes {
			if n.TenantID == tenantID {
				count++
			}
		}
		return nil
	})
	return count, err
}

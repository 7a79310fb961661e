package models

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents domain event types
type EventType string

const (
	EventTypeNoteCreated    EventType = "note.created"
	EventTypeNoteUpdated    EventType = "note.updated"
	EventTypeNoteDeleted    EventType = "note.deleted"
	EventTypeTenantUpgraded EventType = "tenant.upgraded"
	EventTypePlanLimitHit   EventType = "plan.limit_reached"
)

// Event is published after a tenant-scoped state change
type Event struct {
	ID         uuid.UUID `json:"id"`
	Type       EventType `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`

	TenantID   int64  `json:"tenant_id"`
	TenantSlug string `json:"tenant_slug"`
	ActorID    int64  `json:"actor_id"`
	NoteID     *int64 `json:"note_id,omitempty"`
	Plan       Plan   `json:"plan,omitempty"`
}

// NewEvent creates an event for the identity's tenant
func NewEvent(t EventType, id *Identity) *Event {
	return &Event{
		ID:         uuid.New(),
		Type:       t,
		OccurredAt: time.Now().UTC(),
		TenantID:   id.TenantID,
		TenantSlug: id.TenantSlug,
		ActorID:    id.UserID,
	}
}

package models

import "time"

// Note is a tenant-owned text document
type Note struct {
	TenantModel
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// AuthorID is nil once the authoring user has been deleted
	AuthorID  *int64  `json:"user_id" db:"user_id"`
	CreatedBy *string `json:"created_by" db:"created_by"`

	Title   string `json:"title" db:"title"`
	Content string `json:"content" db:"content"`
}

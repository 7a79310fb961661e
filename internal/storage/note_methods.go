package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tenantnotes/notes-server/internal/models"
)

// noteSelect projects a note row aliased n joined with its author u
const noteSelect = `
		SELECT n.id, n.tenant_id, n.user_id, u.email, n.title, n.content, n.created_at, n.updated_at`

func scanNote(row rowScanner) (*models.Note, error) {
	var (
		n        models.Note
		authorID sql.NullInt64
		email    sql.NullString
	)
	err := row.Scan(&n.ID, &n.TenantID, &authorID, &email, &n.Title, &n.Content, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return nil, translateError(err)
	}
	if authorID.Valid {
		n.AuthorID = &authorID.Int64
	}
	if email.Valid {
		n.CreatedBy = &email.String
	}
	return &n, nil
}

// ListNotes lists a tenant's notes, most recently updated first
func (s *PostgresStore) ListNotes(ctx context.Context, tenantID int64) ([]*models.Note, error) {
	query := noteSelect + `
		FROM notes n
		LEFT JOIN users u ON n.user_id = u.id
		WHERE n.tenant_id = $1
		ORDER BY n.updated_at DESC, n.id DESC`

	rows, err := s.getDB().QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notes := make([]*models.Note, 0)
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// GetNote gets a note owned by the tenant
func (s *PostgresStore) GetNote(ctx context.Context, tenantID, id int64) (*models.Note, error) {
	query := noteSelect + `
		FROM notes n
		LEFT JOIN users u ON n.user_id = u.id
		WHERE n.id = $1 AND n.tenant_id = $2`

	return scanNote(s.getDB().QueryRowContext(ctx, query, id, tenantID))
}

// CreateNote inserts a note for the tenant
func (s *PostgresStore) CreateNote(ctx context.Context, tenantID, authorID int64, title, content string) (*models.Note, error) {
	query := `
		WITH n AS (
			INSERT INTO notes (tenant_id, user_id, title, content)
			VALUES ($1, $2, $3, $4)
			RETURNING *
		)` + noteSelect + `
		FROM n
		LEFT JOIN users u ON n.user_id = u.id`

	n, err := scanNote(s.getDB().QueryRowContext(ctx, query, tenantID, authorID, title, content))
	if err != nil {
		return nil, fmt.Errorf("create note: %w", err)
	}
	return n, nil
}

// UpdateNote replaces a note's title and content, keeping created_at
func (s *PostgresStore) UpdateNote(ctx context.Context, tenantID, id int64, title, content string) (*models.Note, error) {
	query := `
		WITH n AS (
			UPDATE notes
			SET title = $1, content = $2, updated_at = clock_timestamp()
			WHERE id = $3 AND tenant_id = $4
			RETURNING *
		)` + noteSelect + `
		FROM n
		LEFT JOIN users u ON n.user_id = u.id`

	return scanNote(s.getDB().QueryRowContext(ctx, query, title, content, id, tenantID))
}

// DeleteNote deletes a note owned by the tenant
func (s *PostgresStore) DeleteNote(ctx context.Context, tenantID, id int64) error {
	result, err := s.getDB().ExecContext(ctx, "DELETE FROM notes WHERE id = $1 AND tenant_id = $2", id, tenantID)
	if err != nil {
		return err
	}
	return expectOneRow(result)
}

// CountNotes counts a tenant's notes
func (s *PostgresStore) CountNotes(ctx context.Context, tenantID int64) (int, error) {
	var count int
	err := s.getDB().QueryRowContext(ctx, "SELECT COUNT(*) FROM notes WHERE tenant_id = $1", tenantID).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

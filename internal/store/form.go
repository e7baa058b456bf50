// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"postdeck/internal/apperr"
	"postdeck/internal/models"
)

var ErrFormNotFound = fmt.Errorf("form %w", apperr.ErrNotFound)

// FormStore handles intake forms and their ordered fields.
type FormStore struct {
	db *sql.DB
}

// NewFormStore creates a new FormStore.
func NewFormStore(db *sql.DB) *FormStore {
	return &FormStore{db: db}
}

// Create inserts a form without fields.
func (s *FormStore) Create(ctx context.Context, f *models.Form) (*models.Form, error) {
	created := &models.Form{Fields: []*models.FormField{}}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO forms (workspace_id, title, description)
		VALUES ($1, $2, $3)
		RETURNING id, workspace_id, title, description, created_at, updated_at
	`, f.WorkspaceID, f.Title, f.Description).Scan(
		&created.ID, &created.WorkspaceID, &created.Title, &created.Description,
		&created.CreatedAt, &created.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create form: %w", err)
	}
	return created, nil
}

// FindByID returns a form with its fields ordered by position.
func (s *FormStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Form, error) {
	return findForm(ctx, s.db, id, "")
}

type formQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// findForm loads a form and its fields. suffix is appended to the form
// query, for example to lock the row.
func findForm(ctx context.Context, q formQuerier, id uuid.UUID, suffix string) (*models.Form, error) {
	f := &models.Form{}
	err := q.QueryRowContext(ctx, `
		SELECT id, workspace_id, title, description, created_at, updated_at
		FROM forms WHERE id = $1
	`+suffix, id).Scan(&f.ID, &f.WorkspaceID, &f.Title, &f.Description, &f.CreatedAt, &f.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrFormNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("find form by id: %w", err)
	}

	rows, err := q.QueryContext(ctx, `
		SELECT id, form_id, type, label, required, config, position
		FROM form_fields
		WHERE form_id = $1
		ORDER BY position
	`, id)
	if err != nil {
		return nil, fmt.Errorf("list form fields: %w", err)
	}
	defer rows.Close()

	f.Fields = []*models.FormField{}
	for rows.Next() {
		var (
			field  models.FormField
			config []byte
		)
		if err := rows.Scan(&field.ID, &field.FormID, &field.Type, &field.Label,
			&field.Required, &config, &field.Position); err != nil {
			return nil, fmt.Errorf("scan form field: %w", err)
		}
		if len(config) > 0 {
			field.Config = append([]byte(nil), config...)
		}
		f.Fields = append(f.Fields, &field)
	}
	return f, rows.Err()
}

// ListByWorkspace returns the forms of a workspace without their fields.
func (s *FormStore) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]models.Form, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, workspace_id, title, description, created_at, updated_at
		FROM forms WHERE workspace_id = $1
		ORDER BY created_at DESC
	`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list forms: %w", err)
	}
	defer rows.Close()

	var forms []models.Form
	for rows.Next() {
		var f models.Form
		if err := rows.Scan(&f.ID, &f.WorkspaceID, &f.Title, &f.Description, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan form: %w", err)
		}
		forms = append(forms, f)
	}
	return forms, rows.Err()
}

// FormMutateFunc edits a locked form in place.
type FormMutateFunc func(f *models.Form) error

// Mutate loads the form and its fields under a row lock, applies fn and
// stores the resulting field list in the same transaction. Positions are
// stored exactly as fn leaves them. Concurrent
// edits of one form, from any instance, apply one after the other.
func (s *FormStore) Mutate(ctx context.Context, id uuid.UUID, fn FormMutateFunc) (*models.Form, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin mutate form: %w", err)
	}
	defer tx.Rollback()

	f, err := findForm(ctx, tx, id, " FOR UPDATE")
	if err != nil {
		return nil, err
	}
	if err := fn(f); err != nil {
		return nil, err
	}
	if err := writeFields(ctx, tx, id, f.Fields); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit mutate form: %w", err)
	}
	return f, nil
}

func writeFields(ctx context.Context, tx *sql.Tx, formID uuid.UUID, fields []*models.FormField) error {
	res, err := tx.ExecContext(ctx, `UPDATE forms SET updated_at = NOW() WHERE id = $1`, formID)
	if err != nil {
		return fmt.Errorf("touch form: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrFormNotFound, formID)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM form_fields WHERE form_id = $1`, formID); err != nil {
		return fmt.Errorf("clear form fields: %w", err)
	}
	for _, f := range fields {
		var config any
		if len(f.Config) > 0 {
			config = []byte(f.Config)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO form_fields (id, form_id, type, label, required, config, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, f.ID, formID, f.Type, f.Label, f.Required, config, f.Position); err != nil {
			return fmt.Errorf("insert form field: %w", err)
		}
	}
	return nil
}

// Delete removes a form and its fields.
func (s *FormStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM forms WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete form: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrFormNotFound, id)
	}
	return nil
}

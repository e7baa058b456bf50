// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"postdeck/internal/apperr"
)

var ErrBoardNotFound = fmt.Errorf("board %w", apperr.ErrNotFound)

// Board is the minimal board row. Boards are owned by the workspace
// service; postdeck only needs to resolve them.
type Board struct {
	ID          uuid.UUID `json:"id"`
	WorkspaceID uuid.UUID `json:"workspace_id"`
	Name        string    `json:"name"`
	CreatedAt   time.Time `json:"created_at"`
}

// BoardStore resolves boards.
type BoardStore struct {
	db *sql.DB
}

// NewBoardStore creates a new BoardStore.
func NewBoardStore(db *sql.DB) *BoardStore {
	return &BoardStore{db: db}
}

// FindByID returns a board by ID.
func (s *BoardStore) FindByID(ctx context.Context, id uuid.UUID) (*Board, error) {
	b := &Board{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, workspace_id, name, created_at FROM boards WHERE id = $1
	`, id).Scan(&b.ID, &b.WorkspaceID, &b.Name, &b.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrBoardNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("find board by id: %w", err)
	}
	return b, nil
}

// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// activity.go records the review history of a post. Entries are written
// inside the same transaction as the post change they describe.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"postdeck/internal/models"
)

// ActivityStore handles post activity feed operations.
type ActivityStore struct {
	db *sql.DB
}

// NewActivityStore creates a new ActivityStore.
func NewActivityStore(db *sql.DB) *ActivityStore {
	return &ActivityStore{db: db}
}

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func insertActivity(ctx context.Context, q rowQuerier, a *models.Activity) error {
	meta, err := json.Marshal(a.Metadata)
	if err != nil {
		return fmt.Errorf("encode activity metadata: %w", err)
	}
	err = q.QueryRowContext(ctx, `
		INSERT INTO activities (workspace_id, post_id, type, actor_id, metadata)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, a.WorkspaceID, a.PostID, a.Type, a.ActorID, meta).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return fmt.Errorf("create activity: %w", err)
	}
	return nil
}

// ListByPost returns the most recent activities of a post, newest first.
func (s *ActivityStore) ListByPost(ctx context.Context, postID uuid.UUID, limit int) ([]models.Activity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, workspace_id, post_id, type, actor_id, metadata, created_at
		FROM activities
		WHERE post_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, postID, limit)
	if err != nil {
		return nil, fmt.Errorf("query activities: %w", err)
	}
	defer rows.Close()

	var entries []models.Activity
	for rows.Next() {
		var (
			a    models.Activity
			meta []byte
		)
		if err := rows.Scan(&a.ID, &a.WorkspaceID, &a.PostID, &a.Type, &a.ActorID, &meta, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		if err := json.Unmarshal(meta, &a.Metadata); err != nil {
			return nil, fmt.Errorf("decode activity metadata: %w", err)
		}
		entries = append(entries, a)
	}
	return entries, rows.Err()
}

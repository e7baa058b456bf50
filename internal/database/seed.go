package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// Seed populates an empty database with a demo workspace, one board and a
// few draft posts so the board view has rows to reorder in development.
func Seed(ctx context.Context, db *sql.DB) error {
	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM workspaces").Scan(&count); err != nil {
		return fmt.Errorf("seed check workspaces: %w", err)
	}
	if count > 0 {
		slog.Info("database already seeded, skipping")
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed begin: %w", err)
	}
	defer tx.Rollback()

	var workspaceID, boardID string
	if err := tx.QueryRowContext(ctx,
		`INSERT INTO workspaces (name) VALUES ($1) RETURNING id`, "Demo Workspace",
	).Scan(&workspaceID); err != nil {
		return fmt.Errorf("seed insert workspace: %w", err)
	}
	if err := tx.QueryRowContext(ctx,
		`INSERT INTO boards (workspace_id, name) VALUES ($1, $2) RETURNING id`, workspaceID, "Content Calendar",
	).Scan(&boardID); err != nil {
		return fmt.Errorf("seed insert board: %w", err)
	}

	captions := []string{"Launch teaser", "Behind the scenes", "Customer spotlight"}
	for i, caption := range captions {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO posts (workspace_id, board_id, caption, position, month, created_by)
			VALUES ($1, $2, jsonb_build_object('synced', true, 'default', $3::text), $4, $5, 'seed')
		`, workspaceID, boardID, caption, i, i+1); err != nil {
			return fmt.Errorf("seed insert post: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed commit: %w", err)
	}

	slog.Info("database seeded with demo board", "workspace_id", workspaceID, "board_id", boardID)
	return nil
}

// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"postdeck/internal/apperr"
	"postdeck/internal/models"
)

// ErrPostNotFound is returned when no post row matches.
var ErrPostNotFound = fmt.Errorf("post %w", apperr.ErrNotFound)

// postColumns lists all columns for posts SELECTs.
const postColumns = `id, workspace_id, board_id, caption, status, format, publish_date,
	platforms, pages, month, position, blocks, comments, created_by,
	last_updated_by, revision, created_at, updated_at`

// PostStore handles all post-related database operations. Blocks, versions
// and comments live in JSONB columns so one row update persists the whole
// review aggregate.
type PostStore struct {
	db *sql.DB
}

// NewPostStore creates a new PostStore with the given database connection.
func NewPostStore(db *sql.DB) *PostStore {
	return &PostStore{db: db}
}

// jsonColumns holds the raw JSONB values of a post row.
type jsonColumns struct {
	caption, platforms, pages, blocks, comments []byte
}

func (j *jsonColumns) decode(p *models.Post) error {
	targets := []struct {
		raw []byte
		dst any
	}{
		{j.caption, &p.Caption},
		{j.platforms, &p.Platforms},
		{j.pages, &p.Pages},
		{j.blocks, &p.Blocks},
		{j.comments, &p.Comments},
	}
	for _, t := range targets {
		if len(t.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(t.raw, t.dst); err != nil {
			return err
		}
	}
	return nil
}

func encodeJSON(p *models.Post) (jsonColumns, error) {
	var (
		j   jsonColumns
		err error
	)
	if j.caption, err = json.Marshal(p.Caption); err != nil {
		return j, err
	}
	if j.platforms, err = json.Marshal(nonNil(p.Platforms)); err != nil {
		return j, err
	}
	if j.pages, err = json.Marshal(nonNil(p.Pages)); err != nil {
		return j, err
	}
	if j.blocks, err = json.Marshal(nonNil(p.Blocks)); err != nil {
		return j, err
	}
	j.comments, err = json.Marshal(nonNil(p.Comments))
	return j, err
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// scanPost scans a single posts row into a Post.
func scanPost(scanner interface{ Scan(...any) error }) (*models.Post, error) {
	var (
		p models.Post
		j jsonColumns
	)
	err := scanner.Scan(
		&p.ID, &p.WorkspaceID, &p.BoardID, &j.caption, &p.Status, &p.Format, &p.PublishDate,
		&j.platforms, &j.pages, &p.Month, &p.Position, &j.blocks, &j.comments, &p.CreatedBy,
		&p.LastUpdatedBy, &p.Revision, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := j.decode(&p); err != nil {
		return nil, fmt.Errorf("decode post %s: %w", p.ID, err)
	}
	return &p, nil
}

// FindByID retrieves a post by its UUID.
func (s *PostStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	p, err := scanPost(s.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrPostNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("find post by id: %w", err)
	}
	return p, nil
}

// ListByBoard returns every post of a board ordered by row position.
func (s *PostStore) ListByBoard(ctx context.Context, boardID uuid.UUID) ([]*models.Post, error) {
	return s.list(ctx, `
		SELECT `+postColumns+`
		FROM posts
		WHERE board_id = $1
		ORDER BY position, created_at
	`, boardID)
}

// ListWithPublishDate returns every post that has a publish date set,
// earliest first.
func (s *PostStore) ListWithPublishDate(ctx context.Context) ([]*models.Post, error) {
	return s.list(ctx, `
		SELECT `+postColumns+`
		FROM posts
		WHERE publish_date IS NOT NULL
		ORDER BY publish_date
	`)
}

func (s *PostStore) list(ctx context.Context, query string, args ...any) ([]*models.Post, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// Create inserts a new post and returns it with the generated ID.
func (s *PostStore) Create(ctx context.Context, p *models.Post) (*models.Post, error) {
	if p.Status == "" {
		p.Status = models.StatusDraft
	}
	j, err := encodeJSON(p)
	if err != nil {
		return nil, fmt.Errorf("encode post: %w", err)
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO posts (workspace_id, board_id, caption, status, format, publish_date,
		                   platforms, pages, month, position, blocks, comments,
		                   created_by, last_updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)
		RETURNING `+postColumns,
		p.WorkspaceID, p.BoardID, j.caption, p.Status, p.Format, p.PublishDate,
		j.platforms, j.pages, p.Month, p.Position, j.blocks, j.comments, p.CreatedBy,
	)
	created, err := scanPost(row)
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return created, nil
}

type execQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func update(ctx context.Context, q execQuerier, p *models.Post) error {
	j, err := encodeJSON(p)
	if err != nil {
		return fmt.Errorf("encode post: %w", err)
	}
	err = q.QueryRowContext(ctx, `
		UPDATE posts SET
			caption = $1, status = $2, format = $3, publish_date = $4,
			platforms = $5, pages = $6, month = $7, position = $8,
			blocks = $9, comments = $10, last_updated_by = $11,
			revision = revision + 1, updated_at = NOW()
		WHERE id = $12
		RETURNING revision, updated_at
	`, j.caption, p.Status, p.Format, p.PublishDate,
		j.platforms, j.pages, p.Month, p.Position,
		j.blocks, j.comments, p.LastUpdatedBy, p.ID,
	).Scan(&p.Revision, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrPostNotFound, p.ID)
	}
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	return nil
}

// MutateFunc changes a locked post in place and returns the activities
// that describe the change. Returning an error aborts the transaction.
type MutateFunc func(p *models.Post) ([]models.Activity, error)

// Mutate loads the post under a row lock, applies fn and writes the result
// together with fn's activities in a single transaction. Either the whole
// change is stored or none of it.
func (s *PostStore) Mutate(ctx context.Context, id uuid.UUID, fn MutateFunc) (*models.Post, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin mutate post: %w", err)
	}
	defer tx.Rollback()

	p, err := scanPost(tx.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrPostNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("lock post: %w", err)
	}

	activities, err := fn(p)
	if err != nil {
		return nil, err
	}
	if err := update(ctx, tx, p); err != nil {
		return nil, err
	}
	for i := range activities {
		a := &activities[i]
		a.PostID, a.WorkspaceID = p.ID, p.WorkspaceID
		if err := insertActivity(ctx, tx, a); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit mutate post: %w", err)
	}
	return p, nil
}

// UpdatePosition stores a new row position for one post.
func (s *PostStore) UpdatePosition(ctx context.Context, id uuid.UUID, position int) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE posts SET position = $1, revision = revision + 1, updated_at = NOW()
		WHERE id = $2
	`, position, id)
	if err != nil {
		return fmt.Errorf("update post position: %w", err)
	}
	return expectRow(res, id)
}

// UpdateFields stores the table columns a fill drag can change.
func (s *PostStore) UpdateFields(ctx context.Context, p *models.Post) error {
	j, err := encodeJSON(p)
	if err != nil {
		return fmt.Errorf("encode post: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE posts SET
			month = $1, caption = $2, platforms = $3, pages = $4, format = $5,
			last_updated_by = $6, revision = revision + 1, updated_at = NOW()
		WHERE id = $7
	`, p.Month, j.caption, j.platforms, j.pages, p.Format, p.LastUpdatedBy, p.ID)
	if err != nil {
		return fmt.Errorf("update post fields: %w", err)
	}
	return expectRow(res, p.ID)
}

// Delete removes a post by ID. Activities cascade.
func (s *PostStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	return expectRow(res, id)
}

func expectRow(res sql.Result, id uuid.UUID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrPostNotFound, id)
	}
	return nil
}

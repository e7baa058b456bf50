// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package board holds the live table view of a board. A Session applies
// row reorders and fill drags to its in-memory rows immediately and queues
// the matching writes on the outbox. A write that keeps failing restores
// the rows it touched and marks the session stale so the next access
// reloads it from the database.
package board

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"postdeck/internal/drag"
	"postdeck/internal/models"
	"postdeck/internal/ordered"
	"postdeck/internal/outbox"
	"postdeck/internal/realtime"
)

// Command kinds queued by a Session.
const (
	KindPosition = "post.position"
	KindFields   = "post.fields"
)

// PostRepository is the slice of the post store a Session needs.
type PostRepository interface {
	ListByBoard(ctx context.Context, boardID uuid.UUID) ([]*models.Post, error)
	UpdatePosition(ctx context.Context, id uuid.UUID, position int) error
	UpdateFields(ctx context.Context, p *models.Post) error
}

// Enqueuer accepts persistence commands.
type Enqueuer interface {
	Enqueue(ctx context.Context, cmd outbox.Command) (uuid.UUID, error)
}

// Invalidator drops cached copies of posts.
type Invalidator interface {
	Invalidate(ctx context.Context, ids ...uuid.UUID)
}

// Option configures a Session.
type Option func(*Session)

// WithInvalidator drops cached posts once their queued write has landed
// or has been rolled back.
func WithInvalidator(c Invalidator) Option { return func(s *Session) { s.cache = c } }

// withWorkspace records the workspace that owns the board.
func withWorkspace(id uuid.UUID) Option { return func(s *Session) { s.workspaceID = id } }

// Session is the table view of one board.
type Session struct {
	boardID     uuid.UUID
	workspaceID uuid.UUID
	repo        PostRepository
	queue       Enqueuer
	pub         realtime.Publisher
	cache       Invalidator

	mu    sync.Mutex
	rows  *ordered.List[*models.Post]
	drag  *drag.Controller[*models.Post]
	fill  Fill
	stale bool

	// pendMu guards pending without s.mu, since outbox workers settle
	// writes while an Enqueue under s.mu may be waiting on them.
	pendMu  sync.Mutex
	pending map[uuid.UUID]int
}

// MoveResult describes a completed reorder.
type MoveResult struct {
	Moved     bool              `json:"moved"`
	Positions map[uuid.UUID]int `json:"positions,omitempty"`
	Commands  []uuid.UUID       `json:"commands,omitempty"`
}

// FillResult describes a completed fill drag.
type FillResult struct {
	Fill     Fill        `json:"fill"`
	PostIDs  []uuid.UUID `json:"post_ids"`
	Commands []uuid.UUID `json:"commands,omitempty"`
}

// Load reads the rows of a board and returns a Session for them. Stored
// positions with gaps or duplicates are renumbered and the repaired
// positions are queued.
func Load(ctx context.Context, boardID uuid.UUID, repo PostRepository, queue Enqueuer, pub realtime.Publisher, opts ...Option) (*Session, error) {
	posts, err := repo.ListByBoard(ctx, boardID)
	if err != nil {
		return nil, fmt.Errorf("load board %s: %w", boardID, err)
	}

	stored := make(map[string]int, len(posts))
	for _, p := range posts {
		stored[p.ItemID()] = p.Position
	}

	s := &Session{boardID: boardID, repo: repo, queue: queue, pub: pub, pending: make(map[uuid.UUID]int)}
	for _, opt := range opts {
		opt(s)
	}
	s.rows = ordered.Normalize(posts)
	s.drag = drag.NewController(s.rows)

	s.mu.Lock()
	defer s.mu.Unlock()
	if ids, err := s.persistPositions(ctx, stored, ""); err != nil {
		return nil, err
	} else if len(ids) > 0 {
		slog.Info("board positions repaired", "board_id", boardID, "rows", len(ids))
	}
	return s, nil
}

// BoardID returns the board this session shows.
func (s *Session) BoardID() uuid.UUID { return s.boardID }

// WorkspaceID returns the workspace that owns the board, or uuid.Nil when
// the session was loaded without a board directory.
func (s *Session) WorkspaceID() uuid.UUID { return s.workspaceID }

// Len returns the number of rows.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows.Len()
}

// Stale reports whether a failed write invalidated this session.
func (s *Session) Stale() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stale
}

// Rows returns copies of the rows in display order.
func (s *Session) Rows() []*models.Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.rows.Items()
	out := make([]*models.Post, len(items))
	for i, p := range items {
		out[i] = p.Clone()
	}
	return out
}

// InsertRow places a stored post at index, clamped to the table bounds.
func (s *Session) InsertRow(ctx context.Context, p *models.Post, index int, author string) (MoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.rows.Positions()
	before[p.ItemID()] = p.Position
	s.rows.InsertAt(p, index)
	return s.afterReorder(ctx, before, author)
}

// AppendRow places a stored post at the end of the table.
func (s *Session) AppendRow(ctx context.Context, p *models.Post, author string) (MoveResult, error) {
	s.mu.Lock()
	n := s.rows.Len()
	s.mu.Unlock()
	return s.InsertRow(ctx, p, n, author)
}

// RemoveRow drops a deleted post and shifts the rows below it up.
func (s *Session) RemoveRow(ctx context.Context, id uuid.UUID, author string) (MoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.rows.Positions()
	if _, ok := s.rows.Remove(id.String()); !ok {
		return MoveResult{}, nil
	}
	return s.afterReorder(ctx, before, author)
}

// ReplaceRow swaps in a fresh copy of a post after it was changed outside
// the table, keeping its row position. While a fill of the row is still
// queued the table columns keep their session values, since p was read
// before that write landed.
func (s *Session) ReplaceRow(p *models.Post) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.rows.IndexOf(p.ItemID())
	if i < 0 {
		return false
	}
	cur, _ := s.rows.At(i)
	next := p.Clone()
	next.Position = cur.Position
	if s.pendingFields(cur.ID) {
		restoreFields(next, cur)
	}
	*cur = *next
	return true
}

// MoveRow moves the row at from to index to. Invalid indices are a no-op.
func (s *Session) MoveRow(ctx context.Context, from, to int, author string) (MoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.drag.Active() != drag.KindNone {
		return MoveResult{}, drag.ErrDragInProgress
	}
	before := s.rows.Positions()
	if !s.rows.Move(from, to) {
		return MoveResult{}, nil
	}
	return s.afterReorder(ctx, before, author)
}

// BeginDrag starts a row drag.
func (s *Session) BeginDrag(from int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drag.BeginRowDrag(from)
}

// Hover moves the drop indicator or fill highlight.
func (s *Session) Hover(index int) (lo, hi int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drag.Hover(index)
}

// Drop ends a row drag at index to.
func (s *Session) Drop(ctx context.Context, to int, author string) (MoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.rows.Positions()
	if _, moved := s.drag.Drop(to); !moved {
		return MoveResult{}, nil
	}
	return s.afterReorder(ctx, before, author)
}

// CancelDrag abandons the active gesture without changing any row.
func (s *Session) CancelDrag() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drag.Cancel()
}

// BeginFill starts a fill drag that copies column from the row at start.
func (s *Session) BeginFill(start int, column Column) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	src, ok := s.rows.At(start)
	if !ok {
		return s.drag.BeginFill(start, nil)
	}
	f, err := FillFrom(src, column)
	if err != nil {
		return err
	}
	set, err := f.Setter()
	if err != nil {
		return err
	}
	if err := s.drag.BeginFill(start, set); err != nil {
		return err
	}
	s.fill = f
	return nil
}

// FinishFill ends a fill drag at row end.
func (s *Session) FinishFill(ctx context.Context, end int, author string) (FillResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.drag.Active() != drag.KindFill {
		return FillResult{}, nil
	}
	lo, hi, _ := s.drag.Hover(end)
	snapshot := s.snapshotRange(lo, hi)
	changed := s.drag.FinishFill(end)
	return s.afterFill(ctx, s.fill, changed, snapshot, author)
}

// FillColumn applies f to every row between start and end inclusive in
// one step, without a drag gesture.
func (s *Session) FillColumn(ctx context.Context, start, end int, f Fill, author string) (FillResult, error) {
	set, err := f.Setter()
	if err != nil {
		return FillResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.drag.Active() != drag.KindNone {
		return FillResult{}, drag.ErrDragInProgress
	}
	n := s.rows.Len()
	if start < 0 || start >= n || end < 0 || end >= n {
		return FillResult{}, nil
	}
	lo, hi := min(start, end), max(start, end)
	snapshot := s.snapshotRange(lo, hi)
	changed := s.rows.FillRange(start, end, set)
	return s.afterFill(ctx, f, changed, snapshot, author)
}

func (s *Session) snapshotRange(lo, hi int) map[uuid.UUID]*models.Post {
	snap := make(map[uuid.UUID]*models.Post, hi-lo+1)
	for i := lo; i <= hi; i++ {
		if p, ok := s.rows.At(i); ok {
			snap[p.ID] = p.Clone()
		}
	}
	return snap
}

// afterReorder queues a position write for every row whose position
// differs from before and announces the new order. Callers hold s.mu.
func (s *Session) afterReorder(ctx context.Context, before map[string]int, author string) (MoveResult, error) {
	ids, err := s.persistPositions(ctx, before, author)
	if err != nil {
		return MoveResult{}, err
	}

	res := MoveResult{Moved: true, Positions: make(map[uuid.UUID]int, s.rows.Len()), Commands: ids}
	for _, p := range s.rows.Items() {
		res.Positions[p.ID] = p.Position
	}
	s.notify(ctx, realtime.EventRowsMoved, author, nil, res.Positions)
	return res, nil
}

// persistPositions enqueues one position write per row whose position
// differs from before. A failed write restores before. Callers hold s.mu,
// so rollbacks run on their own goroutine to keep outbox workers free.
func (s *Session) persistPositions(ctx context.Context, before map[string]int, author string) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for _, p := range s.rows.Items() {
		if old, ok := before[p.ItemID()]; ok && old == p.Position {
			continue
		}
		id, pos := p.ID, p.Position
		cmdID, err := s.queue.Enqueue(ctx, outbox.Command{
			Kind: KindPosition,
			Key:  id.String(),
			Run: func(ctx context.Context) error {
				if err := s.repo.UpdatePosition(ctx, id, pos); err != nil {
					return err
				}
				s.invalidate(ctx, id)
				return nil
			},
			Rollback: func() { go s.rollbackPositions(before, author) },
		})
		if err != nil {
			s.rows.Restore(before)
			return nil, fmt.Errorf("queue position of post %s: %w", id, err)
		}
		ids = append(ids, cmdID)
	}
	return ids, nil
}

func (s *Session) afterFill(ctx context.Context, f Fill, changed []*models.Post, snapshot map[uuid.UUID]*models.Post, author string) (FillResult, error) {
	res := FillResult{Fill: f, PostIDs: make([]uuid.UUID, 0, len(changed))}
	for _, p := range changed {
		if author != "" {
			p.LastUpdatedBy = author
		}
		row := p.Clone()
		prev := snapshot[p.ID]
		s.pend(row.ID)
		cmdID, err := s.queue.Enqueue(ctx, outbox.Command{
			Kind: KindFields,
			Key:  p.ID.String(),
			Run: func(ctx context.Context) error {
				if err := s.repo.UpdateFields(ctx, row); err != nil {
					return err
				}
				s.settle(row.ID)
				s.invalidate(ctx, row.ID)
				return nil
			},
			Rollback: func() { go s.rollbackFields(row.ID, prev, author) },
		})
		if err != nil {
			s.settle(row.ID)
			for _, c := range changed {
				if prev, ok := snapshot[c.ID]; ok {
					restoreFields(c, prev)
				}
			}
			return FillResult{}, fmt.Errorf("queue fields of post %s: %w", p.ID, err)
		}
		res.PostIDs = append(res.PostIDs, p.ID)
		res.Commands = append(res.Commands, cmdID)
	}
	if len(changed) > 0 {
		s.notify(ctx, realtime.EventRowsFilled, author, nil, res)
	}
	return res, nil
}

func (s *Session) pend(id uuid.UUID) {
	s.pendMu.Lock()
	defer s.pendMu.Unlock()
	s.pending[id]++
}

// settle marks one queued field write of a post as finished.
func (s *Session) settle(id uuid.UUID) {
	s.pendMu.Lock()
	defer s.pendMu.Unlock()
	if s.pending[id] <= 1 {
		delete(s.pending, id)
		return
	}
	s.pending[id]--
}

func (s *Session) pendingFields(id uuid.UUID) bool {
	s.pendMu.Lock()
	defer s.pendMu.Unlock()
	return s.pending[id] > 0
}

// invalidate drops cached copies of posts whose stored row changed.
func (s *Session) invalidate(ctx context.Context, ids ...uuid.UUID) {
	if s.cache != nil && len(ids) > 0 {
		s.cache.Invalidate(ctx, ids...)
	}
}

func (s *Session) rollbackPositions(before map[string]int, author string) {
	s.mu.Lock()
	s.drag.Cancel()
	s.rows.Restore(before)
	s.stale = true
	ids := make([]uuid.UUID, 0, len(before))
	for key := range before {
		if id, err := uuid.Parse(key); err == nil {
			ids = append(ids, id)
		}
	}
	s.mu.Unlock()
	s.invalidate(context.Background(), ids...)
	s.notify(context.Background(), realtime.EventSyncFailed, author, nil, map[string]string{"kind": KindPosition})
}

func (s *Session) rollbackFields(id uuid.UUID, prev *models.Post, author string) {
	s.settle(id)
	if prev == nil {
		return
	}
	s.mu.Lock()
	if i := s.rows.IndexOf(prev.ItemID()); i >= 0 {
		cur, _ := s.rows.At(i)
		restoreFields(cur, prev)
	}
	s.stale = true
	s.mu.Unlock()
	s.invalidate(context.Background(), id)
	s.notify(context.Background(), realtime.EventSyncFailed, author, &prev.ID, map[string]string{"kind": KindFields})
}

func restoreFields(dst, src *models.Post) {
	dst.Month = src.Month
	dst.Caption = cloneCaption(src.Caption)
	dst.Platforms = append([]models.Platform(nil), src.Platforms...)
	dst.Pages = append([]string(nil), src.Pages...)
	dst.Format = src.Format
	dst.LastUpdatedBy = src.LastUpdatedBy
}

func (s *Session) notify(ctx context.Context, typ realtime.EventType, author string, postID *uuid.UUID, payload any) {
	if s.pub == nil {
		return
	}
	ev, err := realtime.NewEvent(typ, realtime.BoardTopic(s.boardID), author, postID, payload)
	if err != nil {
		slog.Warn("board event encode failed", "type", typ, "error", err)
		return
	}
	realtime.Notify(ctx, s.pub, ev)
}

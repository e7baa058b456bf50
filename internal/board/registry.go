// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package board

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"postdeck/internal/realtime"
	"postdeck/internal/store"
	"postdeck/internal/tenant"
)

// Directory resolves boards by ID.
type Directory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*store.Board, error)
}

// Registry keeps one Session per board, loading it on first use.
type Registry struct {
	repo      PostRepository
	queue     Enqueuer
	pub       realtime.Publisher
	directory Directory
	opts      []Option

	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
}

// NewRegistry creates an empty Registry. pub and directory may be nil;
// without a directory every board ID is accepted. opts apply to every
// session the registry loads.
func NewRegistry(repo PostRepository, queue Enqueuer, pub realtime.Publisher, directory Directory, opts ...Option) *Registry {
	return &Registry{
		repo:      repo,
		queue:     queue,
		pub:       pub,
		directory: directory,
		opts:      opts,
		sessions:  make(map[uuid.UUID]*Session),
	}
}

// Get returns the session of a board. Stale sessions are reloaded. An
// unknown board, or one outside the workspace scoped on ctx, returns
// store.ErrBoardNotFound and leaves no session behind.
func (r *Registry) Get(ctx context.Context, boardID uuid.UUID) (*Session, error) {
	r.mu.Lock()
	s, ok := r.sessions[boardID]
	r.mu.Unlock()
	if ok && !s.Stale() {
		return scoped(ctx, s)
	}

	opts := r.opts
	if r.directory != nil {
		b, err := r.directory.FindByID(ctx, boardID)
		if err != nil {
			return nil, err
		}
		if !tenant.Allows(ctx, b.WorkspaceID) {
			return nil, store.ErrBoardNotFound
		}
		opts = append([]Option{withWorkspace(b.WorkspaceID)}, opts...)
	}

	s, err := Load(ctx, boardID, r.repo, r.queue, r.pub, opts...)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.sessions[boardID]; ok && !cur.Stale() {
		return scoped(ctx, cur)
	}
	r.sessions[boardID] = s
	return s, nil
}

func scoped(ctx context.Context, s *Session) (*Session, error) {
	if s.workspaceID != uuid.Nil && !tenant.Allows(ctx, s.workspaceID) {
		return nil, store.ErrBoardNotFound
	}
	return s, nil
}

// Loaded returns the session of a board only if it is already in memory.
func (r *Registry) Loaded(boardID uuid.UUID) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[boardID]
	return s, ok
}

// Evict drops the session of a board so the next Get reloads it.
func (r *Registry) Evict(boardID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, boardID)
}

// Observe evicts the session of a board when another instance reordered
// or filled its rows. Events that originate here are ignored.
func (r *Registry) Observe(ev realtime.Event) {
	if ev.Type != realtime.EventRowsMoved && ev.Type != realtime.EventRowsFilled {
		return
	}
	if ev.Origin == "" || ev.Origin == realtime.InstanceID() {
		return
	}
	boardID, ok := realtime.BoardFromTopic(ev.Topic)
	if !ok {
		return
	}
	r.Evict(boardID)
}

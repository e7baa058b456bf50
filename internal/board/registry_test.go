package board

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postdeck/internal/apperr"
	"postdeck/internal/realtime"
	"postdeck/internal/store"
	"postdeck/internal/tenant"
)

// boards maps board IDs to their workspace.
type boards map[uuid.UUID]uuid.UUID

func (b boards) FindByID(_ context.Context, id uuid.UUID) (*store.Board, error) {
	ws, ok := b[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrBoardNotFound, id)
	}
	return &store.Board{ID: id, WorkspaceID: ws}, nil
}

func TestRegistryCachesSessions(t *testing.T) {
	repo := newFakeRepo(2)
	r := NewRegistry(repo, newQueue(t), nil, nil)
	boardID := uuid.New()

	_, ok := r.Loaded(boardID)
	assert.False(t, ok)

	a, err := r.Get(context.Background(), boardID)
	require.NoError(t, err)
	b, err := r.Get(context.Background(), boardID)
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, 1, repo.loads)

	r.Evict(boardID)
	c, err := r.Get(context.Background(), boardID)
	require.NoError(t, err)
	assert.NotSame(t, a, c)
	assert.Equal(t, 2, repo.loads)
}

func TestRegistryReloadsStaleSession(t *testing.T) {
	repo := newFakeRepo(1)
	r := NewRegistry(repo, newQueue(t), nil, nil)
	boardID := uuid.New()

	a, err := r.Get(context.Background(), boardID)
	require.NoError(t, err)
	a.mu.Lock()
	a.stale = true
	a.mu.Unlock()

	b, err := r.Get(context.Background(), boardID)
	require.NoError(t, err)
	assert.NotSame(t, a, b)
	assert.False(t, b.Stale())
}

func TestRegistryRejectsUnknownBoard(t *testing.T) {
	repo := newFakeRepo(1)
	known, workspace := uuid.New(), uuid.New()
	r := NewRegistry(repo, newQueue(t), nil, boards{known: workspace})

	unknown := uuid.New()
	_, err := r.Get(context.Background(), unknown)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, ok := r.Loaded(unknown)
	assert.False(t, ok, "no session is kept for an unknown board")
	assert.Equal(t, 0, repo.loads)

	s, err := r.Get(context.Background(), known)
	require.NoError(t, err)
	assert.Equal(t, workspace, s.WorkspaceID())
}

func TestRegistryHidesBoardsOfOtherWorkspaces(t *testing.T) {
	repo := newFakeRepo(1)
	boardID, owner := uuid.New(), uuid.New()
	r := NewRegistry(repo, newQueue(t), nil, boards{boardID: owner})

	foreign := tenant.WithWorkspace(context.Background(), uuid.New())
	_, err := r.Get(foreign, boardID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, 0, repo.loads)

	_, err = r.Get(tenant.WithWorkspace(context.Background(), owner), boardID)
	require.NoError(t, err)

	// A session already in memory is still hidden from other workspaces.
	_, err = r.Get(foreign, boardID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, 1, repo.loads)
}

func TestRegistryEvictsOnForeignRowEvents(t *testing.T) {
	repo := newFakeRepo(1)
	r := NewRegistry(repo, newQueue(t), nil, nil)
	boardID := uuid.New()
	_, err := r.Get(context.Background(), boardID)
	require.NoError(t, err)

	event := func(typ realtime.EventType, origin string) realtime.Event {
		ev, err := realtime.NewEvent(typ, realtime.BoardTopic(boardID), "bo", nil, nil)
		require.NoError(t, err)
		ev.Origin = origin
		return ev
	}

	r.Observe(event(realtime.EventRowsMoved, realtime.InstanceID()))
	_, ok := r.Loaded(boardID)
	assert.True(t, ok, "own events keep the session")

	r.Observe(event(realtime.EventCommentCreated, "other-instance"))
	_, ok = r.Loaded(boardID)
	assert.True(t, ok, "comment events keep the session")

	r.Observe(event(realtime.EventRowsFilled, "other-instance"))
	_, ok = r.Loaded(boardID)
	assert.False(t, ok)
}

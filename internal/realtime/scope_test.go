package realtime

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"postdeck/internal/apperr"
	"postdeck/internal/models"
	"postdeck/internal/store"
)

type lookups struct {
	boards map[uuid.UUID]uuid.UUID
	forms  map[uuid.UUID]uuid.UUID
}

type boardLookup lookups

func (l boardLookup) FindByID(_ context.Context, id uuid.UUID) (*store.Board, error) {
	ws, ok := l.boards[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrBoardNotFound, id)
	}
	return &store.Board{ID: id, WorkspaceID: ws}, nil
}

type formLookup lookups

func (l formLookup) FindByID(_ context.Context, id uuid.UUID) (*models.Form, error) {
	ws, ok := l.forms[id]
	if !ok {
		return nil, fmt.Errorf("form %w", apperr.ErrNotFound)
	}
	return &models.Form{ID: id, WorkspaceID: ws}, nil
}

func TestWorkspaceTopics(t *testing.T) {
	ours, theirs := uuid.New(), uuid.New()
	ourBoard, theirBoard, ourForm := uuid.New(), uuid.New(), uuid.New()
	l := lookups{
		boards: map[uuid.UUID]uuid.UUID{ourBoard: ours, theirBoard: theirs},
		forms:  map[uuid.UUID]uuid.UUID{ourForm: ours},
	}
	check := WorkspaceTopics(boardLookup(l), formLookup(l))
	ctx := context.Background()

	tests := []struct {
		name      string
		workspace uuid.UUID
		topic     string
		want      bool
	}{
		{"own board", ours, BoardTopic(ourBoard), true},
		{"foreign board", ours, BoardTopic(theirBoard), false},
		{"unknown board", ours, BoardTopic(uuid.New()), false},
		{"own form", ours, FormTopic(ourForm), true},
		{"foreign form", theirs, FormTopic(ourForm), false},
		{"no workspace", uuid.Nil, BoardTopic(theirBoard), true},
		{"unknown topic kind", ours, "user:" + ours.String(), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, check(ctx, tt.workspace, tt.topic))
		})
	}
}

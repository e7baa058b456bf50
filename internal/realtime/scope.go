// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package realtime

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"postdeck/internal/apperr"
	"postdeck/internal/models"
	"postdeck/internal/store"
)

// BoardLookup resolves boards by ID.
type BoardLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*store.Board, error)
}

// FormLookup resolves forms by ID.
type FormLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Form, error)
}

// WorkspaceTopics allows board and form topics that exist and, for callers
// with a workspace, belong to it. Other topics are refused.
func WorkspaceTopics(boards BoardLookup, forms FormLookup) TopicCheck {
	return func(ctx context.Context, workspace uuid.UUID, topic string) bool {
		var (
			owner uuid.UUID
			err   error
		)
		if id, ok := BoardFromTopic(topic); ok && boards != nil {
			var b *store.Board
			if b, err = boards.FindByID(ctx, id); err == nil {
				owner = b.WorkspaceID
			}
		} else if id, ok := FormFromTopic(topic); ok && forms != nil {
			var f *models.Form
			if f, err = forms.FindByID(ctx, id); err == nil {
				owner = f.WorkspaceID
			}
		} else {
			return false
		}
		if err != nil {
			if !errors.Is(err, apperr.ErrNotFound) {
				slog.Warn("realtime topic lookup failed", "topic", topic, "error", err)
			}
			return false
		}
		return workspace == uuid.Nil || workspace == owner
	}
}

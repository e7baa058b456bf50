// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package tenant carries the workspace a request acts in. Services use it
// to hide posts, boards and forms owned by other workspaces. A context
// without a workspace, such as a background job, sees every workspace.
package tenant

import (
	"context"

	"github.com/google/uuid"
)

type contextKey struct{}

// WithWorkspace returns a copy of ctx scoped to workspace. uuid.Nil
// leaves ctx unscoped.
func WithWorkspace(ctx context.Context, workspace uuid.UUID) context.Context {
	if workspace == uuid.Nil {
		return ctx
	}
	return context.WithValue(ctx, contextKey{}, workspace)
}

// Workspace returns the workspace ctx is scoped to.
func Workspace(ctx context.Context) (uuid.UUID, bool) {
	ws, ok := ctx.Value(contextKey{}).(uuid.UUID)
	return ws, ok
}

// Allows reports whether ctx may see a resource owned by owner.
func Allows(ctx context.Context, owner uuid.UUID) bool {
	ws, ok := Workspace(ctx)
	return !ok || ws == owner
}

// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"postdeck/internal/tenant"
)

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey string

// IdentityKey is the context key for the caller identity.
const IdentityKey contextKey = "identity"

// Headers set by the authenticating proxy in front of the API.
const (
	HeaderUserID      = "X-User-Id"
	HeaderUserEmail   = "X-User-Email"
	HeaderUserName    = "X-User-Name"
	HeaderUserImage   = "X-User-Image"
	HeaderWorkspaceID = "X-Workspace-Id"
)

// Identity is the authenticated caller. Sign-in and organization
// membership are handled upstream; the API only trusts these values.
type Identity struct {
	UserID      string
	Email       string
	Name        string
	ImageURL    string
	WorkspaceID uuid.UUID
}

// LoadIdentity reads the proxy headers and stores the identity in the
// request context. It does not enforce authentication.
func LoadIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(HeaderUserID))
		if userID == "" {
			next.ServeHTTP(w, r)
			return
		}
		ident := Identity{
			UserID:   userID,
			Email:    strings.TrimSpace(r.Header.Get(HeaderUserEmail)),
			Name:     strings.TrimSpace(r.Header.Get(HeaderUserName)),
			ImageURL: strings.TrimSpace(r.Header.Get(HeaderUserImage)),
		}
		if ws, err := uuid.Parse(r.Header.Get(HeaderWorkspaceID)); err == nil {
			ident.WorkspaceID = ws
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), ident)))
	})
}

// RequireIdentity answers 401 when no identity was loaded. Must be
// applied after LoadIdentity.
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := IdentityFromCtx(r.Context()); !ok {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithIdentity returns a copy of ctx carrying ident, scoped to its
// workspace when it has one.
func WithIdentity(ctx context.Context, ident Identity) context.Context {
	ctx = tenant.WithWorkspace(ctx, ident.WorkspaceID)
	return context.WithValue(ctx, IdentityKey, ident)
}

// IdentityFromCtx extracts the caller identity from the request context.
func IdentityFromCtx(ctx context.Context) (Identity, bool) {
	ident, ok := ctx.Value(IdentityKey).(Identity)
	return ident, ok
}

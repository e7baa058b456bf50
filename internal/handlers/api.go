// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers implements the JSON API of the postdeck server. Every
// handler reads the caller from the identity middleware, decodes and
// validates its request body, calls one service operation and writes the
// result or a mapped error.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"postdeck/internal/apperr"
	"postdeck/internal/board"
	"postdeck/internal/drag"
	"postdeck/internal/forms"
	"postdeck/internal/middleware"
	"postdeck/internal/outbox"
	"postdeck/internal/realtime"
	"postdeck/internal/review"
	"postdeck/internal/workflow"
)

// maxBodySize caps JSON request bodies (1 MB).
const maxBodySize = 1 << 20

// errBadJSON is returned for bodies that are not valid JSON.
var errBadJSON = errors.New("invalid JSON body")

// Boards gives handlers access to the live table view of a board.
type Boards interface {
	Get(ctx context.Context, boardID uuid.UUID) (*board.Session, error)
}

// SyncQueue reports on persistence commands of optimistic board edits.
type SyncQueue interface {
	Status(id uuid.UUID) (outbox.Record, bool)
	Pending() int
	Failed() []outbox.Record
}

// API groups the dependencies shared by all JSON handlers.
type API struct {
	posts  *review.Service
	forms  *forms.Service
	boards Boards
	sync   SyncQueue
	hub    *realtime.Hub
}

// NewAPI creates a new API handler group. hub may be nil when websockets
// are disabled.
func NewAPI(posts *review.Service, formSvc *forms.Service, boards Boards, sync SyncQueue, hub *realtime.Hub) *API {
	return &API{
		posts:  posts,
		forms:  formSvc,
		boards: boards,
		sync:   sync,
		hub:    hub,
	}
}

// caller returns the identity set by the identity middleware.
func caller(r *http.Request) middleware.Identity {
	ident, _ := middleware.IdentityFromCtx(r.Context())
	return ident
}

// uuidParam parses a UUID route parameter.
func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, apperr.Invalid(name, "must be a UUID")
	}
	return id, nil
}

// decodeJSON reads the request body into dst and validates it.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodySize)
	defer body.Close()
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("empty body: %w", errBadJSON)
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperr.Invalid("body", "must not exceed %d bytes", tooLarge.Limit)
		}
		return fmt.Errorf("%w: %v", errBadJSON, err)
	}
	return validate(dst)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// errorBody is the shape of every error response.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Field string `json:"field,omitempty"`
}

// writeError maps err to a status code and writes it as JSON. Unexpected
// errors are logged and hidden from the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *apperr.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: ve.Message, Code: "invalid", Field: ve.Field})
	case errors.Is(err, errBadJSON):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error(), Code: "bad_request"})
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error(), Code: "not_found"})
	case errors.Is(err, drag.ErrDragInProgress):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error(), Code: "drag_in_progress"})
	case errors.Is(err, workflow.ErrTransitionNotAllowed):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error(), Code: "transition_not_allowed"})
	case errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error(), Code: "conflict"})
	case errors.Is(err, review.ErrStorageDisabled):
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: err.Error(), Code: "storage_disabled"})
	default:
		slog.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error", Code: "internal"})
	}
}

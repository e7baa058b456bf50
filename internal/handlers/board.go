// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"net/http"

	"postdeck/internal/board"
)

// session resolves the board session addressed by the route. Unknown
// boards and boards of other workspaces are not found.
func (a *API) session(r *http.Request) (*board.Session, error) {
	id, err := uuidParam(r, "boardID")
	if err != nil {
		return nil, err
	}
	return a.boards.Get(r.Context(), id)
}

// Rows returns the rows of a board in display order.
func (a *API) Rows(w http.ResponseWriter, r *http.Request) {
	sess, err := a.session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Rows())
}

// MoveRow moves one row in a single step.
func (a *API) MoveRow(w http.ResponseWriter, r *http.Request) {
	sess, err := a.session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req moveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := sess.MoveRow(r.Context(), req.From, req.To, caller(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// BeginDrag starts a row drag.
func (a *API) BeginDrag(w http.ResponseWriter, r *http.Request) {
	sess, err := a.session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req indexRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := sess.BeginDrag(req.Index); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Hover reports the highlighted range for the row under the pointer.
func (a *API) Hover(w http.ResponseWriter, r *http.Request) {
	sess, err := a.session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req indexRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	lo, hi, ok := sess.Hover(req.Index)
	writeJSON(w, http.StatusOK, map[string]any{"active": ok, "from": lo, "to": hi})
}

// Drop ends a row drag.
func (a *API) Drop(w http.ResponseWriter, r *http.Request) {
	sess, err := a.session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req indexRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := sess.Drop(r.Context(), req.Index, caller(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// CancelDrag abandons the active gesture.
func (a *API) CancelDrag(w http.ResponseWriter, r *http.Request) {
	sess, err := a.session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	sess.CancelDrag()
	w.WriteHeader(http.StatusNoContent)
}

// BeginFill starts a fill drag on one column.
func (a *API) BeginFill(w http.ResponseWriter, r *http.Request) {
	sess, err := a.session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req beginFillRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := sess.BeginFill(req.Start, req.Column); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// FinishFill ends a fill drag and copies the value over the range.
func (a *API) FinishFill(w http.ResponseWriter, r *http.Request) {
	sess, err := a.session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req indexRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := sess.FinishFill(r.Context(), req.Index, caller(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// FillColumn copies a value over a range of rows without a gesture.
func (a *API) FillColumn(w http.ResponseWriter, r *http.Request) {
	sess, err := a.session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req fillColumnRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := sess.FillColumn(r.Context(), req.Start, req.End, req.Fill, caller(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

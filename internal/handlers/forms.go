// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"postdeck/internal/apperr"
	"postdeck/internal/forms"
)

// ListForms returns the forms of the caller's workspace.
func (a *API) ListForms(w http.ResponseWriter, r *http.Request) {
	ident := caller(r)
	if ident.WorkspaceID == uuid.Nil {
		writeError(w, r, apperr.Invalid("workspace", "X-Workspace-Id header is required"))
		return
	}
	list, err := a.forms.ListForms(r.Context(), ident.WorkspaceID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// CreateForm creates an empty form in the caller's workspace.
func (a *API) CreateForm(w http.ResponseWriter, r *http.Request) {
	ident := caller(r)
	if ident.WorkspaceID == uuid.Nil {
		writeError(w, r, apperr.Invalid("workspace", "X-Workspace-Id header is required"))
		return
	}
	var req createFormRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	f, err := a.forms.CreateForm(r.Context(), ident.WorkspaceID, req.Title, req.Description)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

// GetForm returns a form with its fields in order.
func (a *API) GetForm(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "formID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	f, err := a.forms.GetForm(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// DeleteForm removes a form and its fields.
func (a *API) DeleteForm(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "formID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := a.forms.DeleteForm(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddField appends a field, or inserts it when the body names an index.
func (a *API) AddField(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "formID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req fieldRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in := forms.FieldInput{Type: req.Type, Label: req.Label, Required: req.Required, Config: req.Config}
	author := caller(r).UserID

	var field any
	if req.Index != nil {
		field, err = a.forms.InsertField(r.Context(), id, *req.Index, in, author)
	} else {
		field, err = a.forms.AddField(r.Context(), id, in, author)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, field)
}

// MoveField reorders the fields of a form.
func (a *API) MoveField(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "formID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req moveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	f, moved, err := a.forms.MoveField(r.Context(), id, req.From, req.To, caller(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"moved": moved, "form": f})
}

// UpdateField changes the label, required flag or config of a field.
func (a *API) UpdateField(w http.ResponseWriter, r *http.Request) {
	formID, err := uuidParam(r, "formID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	fieldID, err := uuidParam(r, "fieldID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req fieldPatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	field, err := a.forms.UpdateField(r.Context(), formID, fieldID, forms.FieldPatch{
		Label:    req.Label,
		Required: req.Required,
		Config:   req.Config,
	}, caller(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, field)
}

// RemoveField deletes a field and closes the gap it leaves.
func (a *API) RemoveField(w http.ResponseWriter, r *http.Request) {
	formID, err := uuidParam(r, "formID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	fieldID, err := uuidParam(r, "fieldID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	f, err := a.forms.RemoveField(r.Context(), formID, fieldID, caller(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

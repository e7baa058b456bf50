// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// FieldType is the input widget of an intake form field.
type FieldType string

const (
	FieldText         FieldType = "text"
	FieldTextarea     FieldType = "textarea"
	FieldCheckbox     FieldType = "checkbox"
	FieldOption       FieldType = "option"
	FieldDropdown     FieldType = "dropdown"
	FieldAttachment   FieldType = "attachment"
	FieldSpreadsheet  FieldType = "spreadsheet"
	FieldSectionBreak FieldType = "section-break"
	FieldPageBreak    FieldType = "page-break"
)

// fieldLabels holds the default label shown when a field is dropped onto
// a form.
var fieldLabels = map[FieldType]string{
	FieldText:         "Single line text",
	FieldTextarea:     "Long text",
	FieldCheckbox:     "Checkbox",
	FieldOption:       "Option group",
	FieldDropdown:     "Dropdown menu",
	FieldAttachment:   "Attachment",
	FieldSpreadsheet:  "Spreadsheet",
	FieldSectionBreak: "Section break",
	FieldPageBreak:    "Page break",
}

// DefaultLabel returns the label a new field of this type starts with.
// The second result is false for unknown types.
func (t FieldType) DefaultLabel() (string, bool) {
	label, ok := fieldLabels[t]
	return label, ok
}

// Form is a workspace intake form made of ordered fields.
type Form struct {
	ID          uuid.UUID    `json:"id"`
	WorkspaceID uuid.UUID    `json:"workspace_id"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Fields      []*FormField `json:"fields"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// FormField is one input of a form. Position is dense and zero-based
// within the form.
type FormField struct {
	ID       uuid.UUID       `json:"id"`
	FormID   uuid.UUID       `json:"form_id"`
	Type     FieldType       `json:"type"`
	Label    string          `json:"label"`
	Required bool            `json:"required"`
	Config   json.RawMessage `json:"config,omitempty"`
	Position int             `json:"position"`
}

// ItemID returns the field ID as an opaque string key.
func (f *FormField) ItemID() string { return f.ID.String() }

// ItemPosition returns the field's position within its form.
func (f *FormField) ItemPosition() int { return f.Position }

// SetPosition assigns the field's position.
func (f *FormField) SetPosition(pos int) { f.Position = pos }

// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package forms implements the intake form builder. Fields form an ordered
// collection; every edit rewrites the full field list so stored positions
// stay dense.
package forms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"postdeck/internal/apperr"
	"postdeck/internal/models"
	"postdeck/internal/ordered"
	"postdeck/internal/realtime"
	"postdeck/internal/store"
	"postdeck/internal/tenant"
)

// ErrFieldNotFound is returned when a field is not part of the form.
var ErrFieldNotFound = fmt.Errorf("form field %w", apperr.ErrNotFound)

// Repository is the form store.
type Repository interface {
	Create(ctx context.Context, f *models.Form) (*models.Form, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Form, error)
	ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]models.Form, error)
	Mutate(ctx context.Context, id uuid.UUID, fn store.FormMutateFunc) (*models.Form, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// FieldInput describes a field dropped onto a form. An empty label takes
// the default label of the type.
type FieldInput struct {
	Type     models.FieldType
	Label    string
	Required bool
	Config   json.RawMessage
}

// FieldPatch changes an existing field. Nil members are left alone.
type FieldPatch struct {
	Label    *string
	Required *bool
	Config   json.RawMessage
}

// Service edits forms. Each edit runs inside Repository.Mutate, so edits
// to one form apply one after the other. Forms of other workspaces than
// the caller's are reported as not found.
type Service struct {
	repo Repository
	pub  realtime.Publisher
}

// NewService creates a Service. pub may be nil.
func NewService(repo Repository, pub realtime.Publisher) *Service {
	return &Service{repo: repo, pub: pub}
}

// CreateForm creates an empty form.
func (s *Service) CreateForm(ctx context.Context, workspaceID uuid.UUID, title, description string) (*models.Form, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperr.Invalid("title", "is required")
	}
	return s.repo.Create(ctx, &models.Form{
		WorkspaceID: workspaceID,
		Title:       title,
		Description: strings.TrimSpace(description),
	})
}

// GetForm returns a form with its fields in order.
func (s *Service) GetForm(ctx context.Context, id uuid.UUID) (*models.Form, error) {
	f, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := visible(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

// ListForms returns the forms of a workspace.
func (s *Service) ListForms(ctx context.Context, workspaceID uuid.UUID) ([]models.Form, error) {
	return s.repo.ListByWorkspace(ctx, workspaceID)
}

// DeleteForm removes a form.
func (s *Service) DeleteForm(ctx context.Context, id uuid.UUID) error {
	if _, err := s.GetForm(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// AddField appends a field to the end of the form.
func (s *Service) AddField(ctx context.Context, formID uuid.UUID, in FieldInput, author string) (*models.FormField, error) {
	var added *models.FormField
	_, err := s.edit(ctx, formID, author, func(form *models.Form, fields *ordered.List[*models.FormField]) error {
		f, err := newField(formID, in)
		if err != nil {
			return err
		}
		fields.Append(f)
		added = f
		return nil
	})
	return added, err
}

// InsertField places a field at index. Indices past the end append.
func (s *Service) InsertField(ctx context.Context, formID uuid.UUID, index int, in FieldInput, author string) (*models.FormField, error) {
	var added *models.FormField
	_, err := s.edit(ctx, formID, author, func(form *models.Form, fields *ordered.List[*models.FormField]) error {
		f, err := newField(formID, in)
		if err != nil {
			return err
		}
		fields.InsertAt(f, index)
		added = f
		return nil
	})
	return added, err
}

// MoveField moves the field at from to index to. Invalid indices leave the
// form unchanged and report false.
func (s *Service) MoveField(ctx context.Context, formID uuid.UUID, from, to int, author string) (*models.Form, bool, error) {
	form, err := s.edit(ctx, formID, author, func(form *models.Form, fields *ordered.List[*models.FormField]) error {
		if !fields.Move(from, to) {
			return errUnchanged
		}
		return nil
	})
	if errors.Is(err, errUnchanged) {
		form, err = s.GetForm(ctx, formID)
		return form, false, err
	}
	return form, err == nil, err
}

// UpdateField applies patch to one field.
func (s *Service) UpdateField(ctx context.Context, formID, fieldID uuid.UUID, patch FieldPatch, author string) (*models.FormField, error) {
	var updated *models.FormField
	_, err := s.edit(ctx, formID, author, func(form *models.Form, fields *ordered.List[*models.FormField]) error {
		i := fields.IndexOf(fieldID.String())
		if i < 0 {
			return fmt.Errorf("%w: %s", ErrFieldNotFound, fieldID)
		}
		f, _ := fields.At(i)
		if patch.Label != nil {
			label := strings.TrimSpace(*patch.Label)
			if label == "" {
				return apperr.Invalid("label", "must not be empty")
			}
			f.Label = label
		}
		if patch.Required != nil {
			f.Required = *patch.Required
		}
		if patch.Config != nil {
			if !json.Valid(patch.Config) {
				return apperr.Invalid("config", "must be valid JSON")
			}
			f.Config = patch.Config
		}
		updated = f
		return nil
	})
	return updated, err
}

// RemoveField deletes a field and closes the gap it leaves.
func (s *Service) RemoveField(ctx context.Context, formID, fieldID uuid.UUID, author string) (*models.Form, error) {
	return s.edit(ctx, formID, author, func(form *models.Form, fields *ordered.List[*models.FormField]) error {
		if _, ok := fields.Remove(fieldID.String()); !ok {
			return fmt.Errorf("%w: %s", ErrFieldNotFound, fieldID)
		}
		return nil
	})
}

var errUnchanged = errors.New("form unchanged")

// visible hides forms of other workspaces.
func visible(ctx context.Context, f *models.Form) error {
	if !tenant.Allows(ctx, f.WorkspaceID) {
		return fmt.Errorf("%w: %s", store.ErrFormNotFound, f.ID)
	}
	return nil
}

// edit applies fn to the fields of the locked form and stores the full
// list.
func (s *Service) edit(ctx context.Context, formID uuid.UUID, author string, fn func(*models.Form, *ordered.List[*models.FormField]) error) (*models.Form, error) {
	form, err := s.repo.Mutate(ctx, formID, func(form *models.Form) error {
		if err := visible(ctx, form); err != nil {
			return err
		}
		fields := ordered.Normalize(form.Fields)
		if err := fn(form, fields); err != nil {
			return err
		}
		form.Fields = fields.Items()
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.pub != nil {
		ev, err := realtime.NewEvent(realtime.EventFormUpdated, realtime.FormTopic(formID), author, nil, form)
		if err != nil {
			slog.Warn("form event encode failed", "form_id", formID, "error", err)
		} else {
			realtime.Notify(ctx, s.pub, ev)
		}
	}
	return form, nil
}

func newField(formID uuid.UUID, in FieldInput) (*models.FormField, error) {
	label, ok := in.Type.DefaultLabel()
	if !ok {
		return nil, apperr.Invalid("type", "unknown field type %q", in.Type)
	}
	if l := strings.TrimSpace(in.Label); l != "" {
		label = l
	}
	if in.Config != nil && !json.Valid(in.Config) {
		return nil, apperr.Invalid("config", "must be valid JSON")
	}
	return &models.FormField{
		ID:       uuid.New(),
		FormID:   formID,
		Type:     in.Type,
		Label:    label,
		Required: in.Required,
		Config:   in.Config,
	}, nil
}

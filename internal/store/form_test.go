package store

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"postdeck/internal/models"
)

// setFields stores fields as the full field list of a form.
func setFields(fields []*models.FormField) FormMutateFunc {
	return func(f *models.Form) error {
		f.Fields = fields
		return nil
	}
}

func TestFormStoreWritesFields(t *testing.T) {
	db := testDB(t)
	b := testBoard(t, db)
	s := NewFormStore(db)
	ctx := context.Background()

	form, err := s.Create(ctx, &models.Form{WorkspaceID: b.WorkspaceID, Title: "Brief"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	fields := []*models.FormField{
		{ID: uuid.New(), Type: models.FieldText, Label: "Name", Required: true, Position: 0},
		{ID: uuid.New(), Type: models.FieldDropdown, Label: "Tier", Config: json.RawMessage(`{"options":["a","b"]}`), Position: 1},
	}
	if _, err := s.Mutate(ctx, form.ID, setFields(fields)); err != nil {
		t.Fatalf("Mutate: %v", err)
	}

	found, err := s.FindByID(ctx, form.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if len(found.Fields) != 2 {
		t.Fatalf("got %d fields, want 2", len(found.Fields))
	}
	if found.Fields[0].Label != "Name" || found.Fields[1].Position != 1 {
		t.Errorf("unexpected fields: %+v %+v", found.Fields[0], found.Fields[1])
	}
	if found.Fields[0].Config != nil {
		t.Errorf("expected nil config, got %s", found.Fields[0].Config)
	}

	// Replacing with a shorter list drops the rest.
	if _, err := s.Mutate(ctx, form.ID, setFields(fields[1:])); err != nil {
		t.Fatalf("Mutate: %v", err)
	}
	found, _ = s.FindByID(ctx, form.ID)
	if len(found.Fields) != 1 {
		t.Errorf("got %d fields after replace, want 1", len(found.Fields))
	}

	if _, err := s.Mutate(ctx, uuid.New(), setFields(nil)); !errors.Is(err, ErrFormNotFound) {
		t.Errorf("missing form: got %v", err)
	}
}

func TestFormStoreMutateSerializesEdits(t *testing.T) {
	db := testDB(t)
	b := testBoard(t, db)
	s := NewFormStore(db)
	ctx := context.Background()

	form, err := s.Create(ctx, &models.Form{WorkspaceID: b.WorkspaceID, Title: "Brief"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	const writers = 8
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Mutate(ctx, form.ID, func(f *models.Form) error {
				f.Fields = append(f.Fields, &models.FormField{
					ID: uuid.New(), Type: models.FieldText, Label: "Field", Position: len(f.Fields),
				})
				return nil
			})
			if err != nil {
				t.Errorf("Mutate: %v", err)
			}
		}()
	}
	wg.Wait()

	found, err := s.FindByID(ctx, form.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if len(found.Fields) != writers {
		t.Fatalf("got %d fields, want %d: edits were lost", len(found.Fields), writers)
	}
	for i, f := range found.Fields {
		if f.Position != i {
			t.Errorf("field %d: position %d", i, f.Position)
		}
	}

	boom := errors.New("boom")
	if _, err := s.Mutate(ctx, form.ID, func(f *models.Form) error {
		f.Fields = nil
		return boom
	}); !errors.Is(err, boom) {
		t.Fatalf("failing Mutate: got %v", err)
	}
	found, _ = s.FindByID(ctx, form.ID)
	if len(found.Fields) != writers {
		t.Errorf("failed Mutate changed fields: got %d", len(found.Fields))
	}

	if _, err := s.Mutate(ctx, uuid.New(), func(*models.Form) error { return nil }); !errors.Is(err, ErrFormNotFound) {
		t.Errorf("missing form: got %v", err)
	}
}

package forms

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postdeck/internal/apperr"
	"postdeck/internal/models"
	"postdeck/internal/realtime"
	"postdeck/internal/store"
	"postdeck/internal/tenant"
)

type memForms struct {
	mu       sync.Mutex
	forms    map[uuid.UUID]*models.Form
	replaces int
}

func (m *memForms) Create(_ context.Context, f *models.Form) (*models.Form, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *f
	c.ID = uuid.New()
	c.Fields = []*models.FormField{}
	m.forms[c.ID] = &c
	out := c
	return &out, nil
}

func (m *memForms) FindByID(_ context.Context, id uuid.UUID) (*models.Form, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.forms[id]
	if !ok {
		return nil, store.ErrFormNotFound
	}
	out := *f
	out.Fields = make([]*models.FormField, len(f.Fields))
	for i, field := range f.Fields {
		c := *field
		out.Fields[i] = &c
	}
	return &out, nil
}

func (m *memForms) ListByWorkspace(_ context.Context, workspaceID uuid.UUID) ([]models.Form, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Form
	for _, f := range m.forms {
		if f.WorkspaceID == workspaceID {
			out = append(out, *f)
		}
	}
	return out, nil
}

// Mutate holds the store lock while fn runs, like the row lock of the
// real store.
func (m *memForms) Mutate(_ context.Context, id uuid.UUID, fn store.FormMutateFunc) (*models.Form, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.forms[id]
	if !ok {
		return nil, store.ErrFormNotFound
	}
	work := *f
	work.Fields = cloneFields(f.Fields)
	if err := fn(&work); err != nil {
		return nil, err
	}
	m.replaces++
	stored := work
	stored.Fields = cloneFields(work.Fields)
	m.forms[id] = &stored
	return &work, nil
}

func cloneFields(fields []*models.FormField) []*models.FormField {
	out := make([]*models.FormField, len(fields))
	for i, field := range fields {
		c := *field
		out[i] = &c
	}
	return out
}

func (m *memForms) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.forms[id]; !ok {
		return store.ErrFormNotFound
	}
	delete(m.forms, id)
	return nil
}

type publisher struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (p *publisher) Publish(_ context.Context, ev realtime.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func setup(t *testing.T) (*Service, *memForms, *publisher, uuid.UUID) {
	t.Helper()
	repo := &memForms{forms: make(map[uuid.UUID]*models.Form)}
	pub := &publisher{}
	svc := NewService(repo, pub)
	form, err := svc.CreateForm(context.Background(), uuid.New(), " Onboarding ", "")
	require.NoError(t, err)
	assert.Equal(t, "Onboarding", form.Title)
	return svc, repo, pub, form.ID
}

func labels(t *testing.T, svc *Service, formID uuid.UUID) []string {
	t.Helper()
	form, err := svc.GetForm(context.Background(), formID)
	require.NoError(t, err)
	var out []string
	for i, f := range form.Fields {
		assert.Equal(t, i, f.Position, "positions must be dense")
		out = append(out, f.Label)
	}
	return out
}

func TestAddAndInsertFields(t *testing.T) {
	svc, _, pub, formID := setup(t)
	ctx := context.Background()

	f, err := svc.AddField(ctx, formID, FieldInput{Type: models.FieldText}, "ana")
	require.NoError(t, err)
	assert.Equal(t, "Single line text", f.Label)
	assert.Equal(t, 0, f.Position)

	_, err = svc.AddField(ctx, formID, FieldInput{Type: models.FieldDropdown, Label: "Industry"}, "ana")
	require.NoError(t, err)
	_, err = svc.InsertField(ctx, formID, 1, FieldInput{Type: models.FieldCheckbox, Label: "Agree"}, "ana")
	require.NoError(t, err)
	_, err = svc.InsertField(ctx, formID, 99, FieldInput{Type: models.FieldPageBreak}, "ana")
	require.NoError(t, err)

	assert.Equal(t, []string{"Single line text", "Agree", "Industry", "Page break"}, labels(t, svc, formID))
	assert.Len(t, pub.events, 4)
	assert.Equal(t, realtime.FormTopic(formID), pub.events[0].Topic)

	t.Run("unknown type", func(t *testing.T) {
		_, err := svc.AddField(ctx, formID, FieldInput{Type: "signature"}, "ana")
		assert.True(t, apperr.IsValidation(err))
	})

	t.Run("invalid config", func(t *testing.T) {
		_, err := svc.AddField(ctx, formID, FieldInput{Type: models.FieldText, Config: json.RawMessage(`{`)}, "ana")
		assert.True(t, apperr.IsValidation(err))
	})
}

func TestMoveField(t *testing.T) {
	svc, repo, _, formID := setup(t)
	ctx := context.Background()
	for _, l := range []string{"A", "B", "C"} {
		_, err := svc.AddField(ctx, formID, FieldInput{Type: models.FieldText, Label: l}, "ana")
		require.NoError(t, err)
	}

	_, moved, err := svc.MoveField(ctx, formID, 0, 2, "ana")
	require.NoError(t, err)
	assert.True(t, moved)
	assert.Equal(t, []string{"B", "C", "A"}, labels(t, svc, formID))

	writes := repo.replaces
	_, moved, err = svc.MoveField(ctx, formID, 1, 7, "ana")
	require.NoError(t, err)
	assert.False(t, moved)
	assert.Equal(t, writes, repo.replaces, "no-op move is not stored")
}

func TestUpdateAndRemoveField(t *testing.T) {
	svc, _, _, formID := setup(t)
	ctx := context.Background()
	a, err := svc.AddField(ctx, formID, FieldInput{Type: models.FieldText, Label: "A"}, "ana")
	require.NoError(t, err)
	_, err = svc.AddField(ctx, formID, FieldInput{Type: models.FieldText, Label: "B"}, "ana")
	require.NoError(t, err)

	label, required := "Company", true
	updated, err := svc.UpdateField(ctx, formID, a.ID, FieldPatch{Label: &label, Required: &required}, "ana")
	require.NoError(t, err)
	assert.True(t, updated.Required)

	empty := " "
	_, err = svc.UpdateField(ctx, formID, a.ID, FieldPatch{Label: &empty}, "ana")
	assert.True(t, apperr.IsValidation(err))

	_, err = svc.RemoveField(ctx, formID, a.ID, "ana")
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, labels(t, svc, formID))

	_, err = svc.RemoveField(ctx, formID, a.ID, "ana")
	assert.ErrorIs(t, err, ErrFieldNotFound)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestFormLifecycle(t *testing.T) {
	svc, _, _, formID := setup(t)
	ctx := context.Background()

	_, err := svc.CreateForm(ctx, uuid.New(), "   ", "")
	assert.True(t, apperr.IsValidation(err))

	require.NoError(t, svc.DeleteForm(ctx, formID))
	_, err = svc.GetForm(ctx, formID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = svc.AddField(ctx, formID, FieldInput{Type: models.FieldText}, "ana")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestFormsOfOtherWorkspacesAreHidden(t *testing.T) {
	repo := &memForms{forms: make(map[uuid.UUID]*models.Form)}
	svc := NewService(repo, nil)
	owner := uuid.New()
	form, err := svc.CreateForm(context.Background(), owner, "Brief", "")
	require.NoError(t, err)

	other := tenant.WithWorkspace(context.Background(), uuid.New())
	_, err = svc.GetForm(other, form.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = svc.AddField(other, form.ID, FieldInput{Type: models.FieldText}, "bo")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.ErrorIs(t, svc.DeleteForm(other, form.ID), apperr.ErrNotFound)
	assert.Equal(t, 0, repo.replaces)

	own := tenant.WithWorkspace(context.Background(), owner)
	_, err = svc.AddField(own, form.ID, FieldInput{Type: models.FieldText}, "ana")
	require.NoError(t, err)
	got, err := svc.GetForm(own, form.ID)
	require.NoError(t, err)
	assert.Len(t, got.Fields, 1)
}

func TestConcurrentEditsKeepEveryField(t *testing.T) {
	svc, _, _, formID := setup(t)
	ctx := context.Background()

	const writers = 16
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AddField(ctx, formID, FieldInput{Type: models.FieldText}, "ana")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Len(t, labels(t, svc, formID), writers)
}

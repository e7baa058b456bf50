// handler_test.go provides in-memory repositories and a routed API for
// handler tests.
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"postdeck/internal/board"
	"postdeck/internal/cache"
	"postdeck/internal/forms"
	"postdeck/internal/middleware"
	"postdeck/internal/models"
	"postdeck/internal/outbox"
	"postdeck/internal/review"
	"postdeck/internal/store"
)

// memPosts is an in-memory post and activity store.
type memPosts struct {
	mu         sync.Mutex
	posts      map[uuid.UUID]*models.Post
	activities []models.Activity
}

func (m *memPosts) FindByID(_ context.Context, id uuid.UUID) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return nil, store.ErrPostNotFound
	}
	return p.Clone(), nil
}

func (m *memPosts) Create(_ context.Context, p *models.Post) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := p.Clone()
	c.ID = uuid.New()
	m.posts[c.ID] = c
	return c.Clone(), nil
}

func (m *memPosts) Mutate(_ context.Context, id uuid.UUID, fn store.MutateFunc) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.posts[id]
	if !ok {
		return nil, store.ErrPostNotFound
	}
	p := stored.Clone()
	acts, err := fn(p)
	if err != nil {
		return nil, err
	}
	p.Revision++
	m.posts[id] = p.Clone()
	for _, a := range acts {
		a.PostID = id
		m.activities = append(m.activities, a)
	}
	return p, nil
}

func (m *memPosts) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[id]; !ok {
		return store.ErrPostNotFound
	}
	delete(m.posts, id)
	return nil
}

func (m *memPosts) ListWithPublishDate(context.Context) ([]*models.Post, error) { return nil, nil }

func (m *memPosts) ListByBoard(_ context.Context, boardID uuid.UUID) ([]*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Post
	for _, p := range m.posts {
		if p.BoardID == boardID {
			out = append(out, p.Clone())
		}
	}
	return out, nil
}

func (m *memPosts) UpdatePosition(_ context.Context, id uuid.UUID, position int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.posts[id]; ok {
		p.Position = position
	}
	return nil
}

func (m *memPosts) UpdateFields(_ context.Context, p *models.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if stored, ok := m.posts[p.ID]; ok {
		stored.Month = p.Month
		stored.Caption = p.Caption
		stored.Platforms = p.Platforms
		stored.Pages = p.Pages
		stored.Format = p.Format
	}
	return nil
}

func (m *memPosts) ListByPost(_ context.Context, postID uuid.UUID, limit int) ([]models.Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Activity
	for i := len(m.activities) - 1; i >= 0 && len(out) < limit; i-- {
		if m.activities[i].PostID == postID {
			out = append(out, m.activities[i])
		}
	}
	return out, nil
}

func (m *memPosts) setStatus(id uuid.UUID, s models.Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.posts[id].Status = s
}

type memFiles struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *memFiles) Upload(_ context.Context, key, _ string, body io.Reader, _ int64) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	return "https://cdn.test/" + key, nil
}

func (f *memFiles) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

func (f *memFiles) DeletePrefix(_ context.Context, prefix string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for k := range f.objects {
		if strings.HasPrefix(k, prefix) {
			delete(f.objects, k)
			n++
		}
	}
	return n, nil
}

type memForms struct {
	mu    sync.Mutex
	forms map[uuid.UUID]*models.Form
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
	out.Fields = copyFields(f.Fields)
	return &out, nil
}

func (m *memForms) ListByWorkspace(_ context.Context, workspaceID uuid.UUID) ([]models.Form, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Form{}
	for _, f := range m.forms {
		if f.WorkspaceID == workspaceID {
			out = append(out, *f)
		}
	}
	return out, nil
}

func (m *memForms) Mutate(_ context.Context, id uuid.UUID, fn store.FormMutateFunc) (*models.Form, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.forms[id]
	if !ok {
		return nil, store.ErrFormNotFound
	}
	f := *stored
	f.Fields = copyFields(stored.Fields)
	if err := fn(&f); err != nil {
		return nil, err
	}
	stored.Fields = copyFields(f.Fields)
	return &f, nil
}

func copyFields(fields []*models.FormField) []*models.FormField {
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

// memBoards maps board IDs to the workspace owning them.
type memBoards map[uuid.UUID]uuid.UUID

func (m memBoards) FindByID(_ context.Context, id uuid.UUID) (*store.Board, error) {
	ws, ok := m[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrBoardNotFound, id)
	}
	return &store.Board{ID: id, WorkspaceID: ws, Name: "Board"}, nil
}

// testAPI is a routed API over in-memory stores. foreignBoard belongs to
// foreignWorkspace.
type testAPI struct {
	posts            *memPosts
	files            *memFiles
	board            uuid.UUID
	workspace        uuid.UUID
	foreignBoard     uuid.UUID
	foreignWorkspace uuid.UUID
	queue            *outbox.Queue
	handler          http.Handler
}

type apiConfig struct {
	noStorage bool
}

type apiOption func(*apiConfig)

func withoutStorage() apiOption {
	return func(c *apiConfig) { c.noStorage = true }
}

func newTestAPI(t *testing.T, opts ...apiOption) *testAPI {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	q := outbox.New(outbox.Config{Workers: 1, MaxAttempts: 1})
	t.Cleanup(func() { q.Close(context.Background()) })

	ta := &testAPI{
		posts:     &memPosts{posts: make(map[uuid.UUID]*models.Post)},
		files:     &memFiles{objects: make(map[string][]byte)},
		board:            uuid.New(),
		workspace:        uuid.New(),
		foreignBoard:     uuid.New(),
		foreignWorkspace: uuid.New(),
	}
	ta.queue = q
	dir := memBoards{ta.board: ta.workspace, ta.foreignBoard: ta.foreignWorkspace}
	boards := board.NewRegistry(ta.posts, q, nil, dir)
	var cfg apiConfig
	for _, o := range opts {
		o(&cfg)
	}
	svcOpts := []review.Option{
		review.WithCache(cache.NewPostCache(client, time.Minute, nil)),
		review.WithBoards(boards),
		review.WithBoardDirectory(dir),
	}
	if !cfg.noStorage {
		svcOpts = append(svcOpts, review.WithStorage(ta.files))
	}
	api := NewAPI(
		review.NewService(ta.posts, ta.posts, svcOpts...),
		forms.NewService(&memForms{forms: make(map[uuid.UUID]*models.Form)}, nil),
		boards,
		q,
		nil,
	)
	ta.handler = routes(api)
	return ta
}

// routes mounts the handlers the way the server router does.
func routes(a *API) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.LoadIdentity)
	r.Get("/ws", a.Subscribe)

	r.Route("/posts", func(r chi.Router) {
		r.Post("/", a.CreatePost)
		r.Route("/{postID}", func(r chi.Router) {
			r.Get("/", a.GetPost)
			r.Delete("/", a.DeletePost)
			r.Get("/activities", a.Activities)
			r.Post("/actions", a.ApplyAction)
			r.Post("/schedule", a.SchedulePost)
			r.Put("/publish-date", a.SetPublishDate)
			commentRoutes(r, a)
			r.Post("/blocks", a.AddBlock)
			r.Post("/blocks/upload", a.UploadBlock)
			r.Post("/blocks/move", a.MoveBlock)
			r.Route("/blocks/{blockID}", func(r chi.Router) {
				r.Delete("/", a.RemoveBlock)
				r.Put("/current", a.SetCurrentVersion)
				r.Post("/versions", a.AddVersion)
				r.Post("/versions/upload", a.UploadVersion)
				commentRoutes(r, a)
				r.Route("/versions/{versionID}", func(r chi.Router) {
					commentRoutes(r, a)
				})
			})
		})
	})

	r.Route("/boards/{boardID}", func(r chi.Router) {
		r.Get("/rows", a.Rows)
		r.Post("/rows/move", a.MoveRow)
		r.Post("/drag/begin", a.BeginDrag)
		r.Post("/drag/hover", a.Hover)
		r.Post("/drag/drop", a.Drop)
		r.Post("/drag/cancel", a.CancelDrag)
		r.Post("/fill/begin", a.BeginFill)
		r.Post("/fill/finish", a.FinishFill)
		r.Post("/fill", a.FillColumn)
	})

	r.Get("/sync", a.SyncSummary)
	r.Get("/sync/{commandID}", a.SyncStatus)

	r.Route("/forms", func(r chi.Router) {
		r.Get("/", a.ListForms)
		r.Post("/", a.CreateForm)
		r.Route("/{formID}", func(r chi.Router) {
			r.Get("/", a.GetForm)
			r.Delete("/", a.DeleteForm)
			r.Post("/fields", a.AddField)
			r.Post("/fields/move", a.MoveField)
			r.Patch("/fields/{fieldID}", a.UpdateField)
			r.Delete("/fields/{fieldID}", a.RemoveField)
		})
	})
	return r
}

func commentRoutes(r chi.Router, a *API) {
	r.Get("/comments", a.ListComments)
	r.Post("/comments", a.AddComment)
	r.Post("/comments/{commentID}/replies", a.AddReply)
	r.Patch("/comments/{commentID}", a.UpdateComment)
	r.Delete("/comments/{commentID}", a.DeleteComment)
}

// do sends a JSON request as user "ana" of the test workspace and decodes
// the response into out when out is not nil.
func (ta *testAPI) do(t *testing.T, method, path string, body any, out any) *httptest.ResponseRecorder {
	t.Helper()
	return ta.doAs(t, ta.workspace, method, path, body, out)
}

// doAs is do on behalf of a member of workspace.
func (ta *testAPI) doAs(t *testing.T, workspace uuid.UUID, method, path string, body any, out any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.HeaderUserID, "ana")
	req.Header.Set(middleware.HeaderWorkspaceID, workspace.String())
	rec := httptest.NewRecorder()
	ta.handler.ServeHTTP(rec, req)
	if out != nil && rec.Code < 300 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec
}

func (ta *testAPI) createPost(t *testing.T) models.Post {
	t.Helper()
	var p models.Post
	rec := ta.do(t, http.MethodPost, "/posts", map[string]any{"board_id": ta.board, "month": 4}, &p)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return p
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package review

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"postdeck/internal/apperr"
	"postdeck/internal/board"
	"postdeck/internal/comments"
	"postdeck/internal/imaging"
	"postdeck/internal/models"
	"postdeck/internal/realtime"
	"postdeck/internal/storage"
	"postdeck/internal/store"
	"postdeck/internal/tenant"
	"postdeck/internal/workflow"
)

// ErrStorageDisabled is returned by uploads when no object store is set.
var ErrStorageDisabled = errors.New("object storage is not configured")

// SystemActor is the actor recorded for changes made by background jobs.
const SystemActor = "system"

// PostRepository is the slice of the post store the service needs.
type PostRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Post, error)
	Create(ctx context.Context, p *models.Post) (*models.Post, error)
	Mutate(ctx context.Context, id uuid.UUID, fn store.MutateFunc) (*models.Post, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListWithPublishDate(ctx context.Context) ([]*models.Post, error)
	ListByBoard(ctx context.Context, boardID uuid.UUID) ([]*models.Post, error)
}

// ActivityRepository reads the activity feed of a post.
type ActivityRepository interface {
	ListByPost(ctx context.Context, postID uuid.UUID, limit int) ([]models.Activity, error)
}

// PostCache caches decoded posts.
type PostCache interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Post, bool)
	Set(ctx context.Context, p *models.Post)
	Invalidate(ctx context.Context, ids ...uuid.UUID)
}

// ObjectStore holds uploaded version assets.
type ObjectStore interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error)
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}

// Boards gives access to the live table view of a board.
type Boards interface {
	Get(ctx context.Context, boardID uuid.UUID) (*board.Session, error)
	Loaded(boardID uuid.UUID) (*board.Session, bool)
}

// BoardDirectory resolves boards by ID.
type BoardDirectory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*store.Board, error)
}

// Service persists review mutations. Each call loads the post under a row
// lock, applies an Editor operation and stores the post together with its
// activities in one transaction. Cache, board rows and subscribers are
// updated after the commit. Posts of other workspaces than the one the
// context is scoped to are reported as not found.
type Service struct {
	posts      PostRepository
	activities ActivityRepository
	cache      PostCache
	files      ObjectStore
	boards     Boards
	directory  BoardDirectory
	pub        realtime.Publisher
	now        func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithCache enables read-through post caching.
func WithCache(c PostCache) Option { return func(s *Service) { s.cache = c } }

// WithStorage enables asset uploads.
func WithStorage(o ObjectStore) Option { return func(s *Service) { s.files = o } }

// WithBoards keeps loaded board sessions in sync with post changes.
func WithBoards(b Boards) Option { return func(s *Service) { s.boards = b } }

// WithPublisher announces changes to realtime subscribers.
func WithPublisher(p realtime.Publisher) Option { return func(s *Service) { s.pub = p } }

// WithBoardDirectory makes CreatePost check that the board exists and
// belongs to the post's workspace.
func WithBoardDirectory(d BoardDirectory) Option { return func(s *Service) { s.directory = d } }

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// NewService creates a Service. Optional collaborators left unset are
// skipped.
func NewService(posts PostRepository, activities ActivityRepository, opts ...Option) *Service {
	s := &Service{posts: posts, activities: activities, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewPost holds the fields of a post chosen at creation.
type NewPost struct {
	WorkspaceID uuid.UUID
	BoardID     uuid.UUID
	Caption     models.Caption
	Format      string
	PublishDate *time.Time
	Platforms   []models.Platform
	Pages       []string
	Month       int
}

// Upload is an asset received from a client.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// StatusChange is the payload of a status.changed event.
type StatusChange struct {
	From models.Status `json:"from"`
	To   models.Status `json:"to"`
}

// CommentEvent is the payload of comment events.
type CommentEvent struct {
	Scope   Scope           `json:"scope"`
	Comment *models.Comment `json:"comment,omitempty"`
	Removed []uuid.UUID     `json:"removed,omitempty"`
}

// CreatePost stores a new draft at the end of its board.
func (s *Service) CreatePost(ctx context.Context, in NewPost, author string) (*models.Post, error) {
	if in.Month < 0 || in.Month > 12 {
		return nil, apperr.Invalid("month", "must be between 0 and 12, got %d", in.Month)
	}
	if s.directory != nil {
		b, err := s.directory.FindByID(ctx, in.BoardID)
		if err != nil {
			return nil, err
		}
		switch {
		case in.WorkspaceID == uuid.Nil:
			in.WorkspaceID = b.WorkspaceID
		case in.WorkspaceID != b.WorkspaceID:
			return nil, apperr.Invalid("board_id", "board belongs to another workspace")
		}
	}
	p := &models.Post{
		WorkspaceID: in.WorkspaceID,
		BoardID:     in.BoardID,
		Caption:     in.Caption,
		Status:      models.StatusDraft,
		Format:      in.Format,
		PublishDate: in.PublishDate,
		Platforms:   in.Platforms,
		Pages:       in.Pages,
		Month:       in.Month,
		Blocks:      []models.Block{},
		Comments:    []models.Comment{},
		CreatedBy:   author,
	}

	var sess *board.Session
	if s.boards != nil {
		var err error
		if sess, err = s.boards.Get(ctx, in.BoardID); err != nil {
			return nil, err
		}
		p.Position = sess.Len()
	}

	created, err := s.posts.Create(ctx, p)
	if err != nil {
		return nil, err
	}
	if sess != nil {
		if _, err := sess.AppendRow(ctx, created.Clone(), author); err != nil {
			slog.Warn("append board row failed", "post_id", created.ID, "error", err)
		}
	}
	s.publish(ctx, realtime.EventPostCreated, created, author, created)
	return created, nil
}

// GetPost returns a post, reading through the cache.
func (s *Service) GetPost(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	if s.cache != nil {
		if p, ok := s.cache.Get(ctx, id); ok {
			if err := visible(ctx, p); err != nil {
				return nil, err
			}
			return p, nil
		}
	}
	p, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Set(ctx, p)
	}
	if err := visible(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// visible hides posts of other workspaces.
func visible(ctx context.Context, p *models.Post) error {
	if !tenant.Allows(ctx, p.WorkspaceID) {
		return fmt.Errorf("%w: %s", store.ErrPostNotFound, p.ID)
	}
	return nil
}

// DeletePost removes a post, its row and its stored assets.
func (s *Service) DeletePost(ctx context.Context, id uuid.UUID, author string) error {
	p, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := visible(ctx, p); err != nil {
		return err
	}
	if err := s.posts.Delete(ctx, id); err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, id)
	}
	if s.files != nil {
		if _, err := s.files.DeletePrefix(ctx, storage.PostPrefix(id)); err != nil {
			slog.Warn("delete post assets failed", "post_id", id, "error", err)
		}
	}
	if s.boards != nil {
		if sess, ok := s.boards.Loaded(p.BoardID); ok {
			if _, err := sess.RemoveRow(ctx, id, author); err != nil {
				slog.Warn("remove board row failed", "post_id", id, "error", err)
			}
		}
	}
	s.publish(ctx, realtime.EventPostDeleted, p, author, map[string]uuid.UUID{"id": id})
	return nil
}

// UploadAsset stores an image or video under the post's prefix and returns
// the file to attach to a block. Wide images also get a thumbnail; a
// thumbnail that cannot be generated is skipped.
func (s *Service) UploadAsset(ctx context.Context, postID uuid.UUID, up Upload) (models.File, error) {
	if s.files == nil {
		return models.File{}, ErrStorageDisabled
	}
	if _, err := s.GetPost(ctx, postID); err != nil {
		return models.File{}, err
	}
	kind := models.KindFromContentType(up.ContentType)
	if kind != models.FileKindImage && kind != models.FileKindVideo {
		return models.File{}, apperr.Invalid("file", "unsupported content type %q", up.ContentType)
	}

	assetID := uuid.New()
	file := models.File{
		Kind:        kind,
		ContentType: up.ContentType,
		SizeBytes:   up.Size,
		ObjectKey:   storage.AssetKey(postID, assetID, up.Filename),
	}

	body := up.Body
	var data []byte
	if kind == models.FileKindImage {
		var err error
		if data, err = io.ReadAll(up.Body); err != nil {
			return models.File{}, fmt.Errorf("read asset: %w", err)
		}
		body = bytes.NewReader(data)
		file.SizeBytes = int64(len(data))
	}

	url, err := s.files.Upload(ctx, file.ObjectKey, up.ContentType, body, file.SizeBytes)
	if err != nil {
		return models.File{}, fmt.Errorf("upload asset: %w", err)
	}
	file.URL = url

	if data != nil {
		s.attachThumbnail(ctx, &file, postID, assetID, data)
	}
	return file, nil
}

func (s *Service) attachThumbnail(ctx context.Context, file *models.File, postID, assetID uuid.UUID, data []byte) {
	thumb, ok, err := imaging.Thumbnail(data, imaging.DefaultWidth)
	if err != nil {
		slog.Warn("thumbnail generation failed", "key", file.ObjectKey, "error", err)
		return
	}
	if !ok {
		return
	}
	key := storage.ThumbnailKey(postID, assetID)
	url, err := s.files.Upload(ctx, key, imaging.ContentType, bytes.NewReader(thumb), int64(len(thumb)))
	if err != nil {
		slog.Warn("thumbnail upload failed", "key", key, "error", err)
		return
	}
	file.ThumbnailURL = url
	file.ThumbnailKey = key
}

// AddBlock appends a block whose first version holds file.
func (s *Service) AddBlock(ctx context.Context, postID uuid.UUID, file models.File, caption, author string) (*models.Post, models.Block, error) {
	var added models.Block
	p, err := s.mutate(ctx, postID, author, func(e *Editor) ([]models.Activity, error) {
		b, err := e.AddBlock(file, caption, author)
		if err != nil {
			return nil, err
		}
		added = *b
		return nil, nil
	})
	if err != nil {
		return nil, models.Block{}, err
	}
	s.publish(ctx, realtime.EventPostUpdated, p, author, p)
	return p, added, nil
}

// UploadBlock uploads an asset and adds it as a new block. The object is
// removed again if the post cannot be updated.
func (s *Service) UploadBlock(ctx context.Context, postID uuid.UUID, up Upload, caption, author string) (*models.Post, models.Block, error) {
	file, err := s.UploadAsset(ctx, postID, up)
	if err != nil {
		return nil, models.Block{}, err
	}
	p, b, err := s.AddBlock(ctx, postID, file, caption, author)
	if err != nil {
		s.discard(ctx, file)
		return nil, models.Block{}, err
	}
	return p, b, nil
}

// AddVersion appends a version to a block and makes it current.
func (s *Service) AddVersion(ctx context.Context, postID, blockID uuid.UUID, file models.File, caption, author string) (*models.Post, models.Version, error) {
	var added models.Version
	p, err := s.mutate(ctx, postID, author, func(e *Editor) ([]models.Activity, error) {
		v, err := e.AddVersion(blockID, file, caption, author)
		if err != nil {
			return nil, err
		}
		added = *v
		return nil, nil
	})
	if err != nil {
		return nil, models.Version{}, err
	}
	s.publish(ctx, realtime.EventPostUpdated, p, author, p)
	return p, added, nil
}

// UploadVersion uploads an asset and adds it as a new version of a block.
func (s *Service) UploadVersion(ctx context.Context, postID, blockID uuid.UUID, up Upload, caption, author string) (*models.Post, models.Version, error) {
	file, err := s.UploadAsset(ctx, postID, up)
	if err != nil {
		return nil, models.Version{}, err
	}
	p, v, err := s.AddVersion(ctx, postID, blockID, file, caption, author)
	if err != nil {
		s.discard(ctx, file)
		return nil, models.Version{}, err
	}
	return p, v, nil
}

// SetCurrentVersion selects which version of a block is canonical.
func (s *Service) SetCurrentVersion(ctx context.Context, postID, blockID, versionID uuid.UUID, author string) (*models.Post, error) {
	p, err := s.mutate(ctx, postID, author, func(e *Editor) ([]models.Activity, error) {
		return nil, e.SetCurrentVersion(blockID, versionID)
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, realtime.EventPostUpdated, p, author, p)
	return p, nil
}

// RemoveBlock deletes a block with its versions, comments and assets.
func (s *Service) RemoveBlock(ctx context.Context, postID, blockID uuid.UUID, author string) (*models.Post, error) {
	var removed models.Block
	p, err := s.mutate(ctx, postID, author, func(e *Editor) ([]models.Activity, error) {
		b, err := e.RemoveBlock(blockID)
		removed = b
		return nil, err
	})
	if err != nil {
		return nil, err
	}
	for _, v := range removed.Versions {
		s.discard(ctx, v.File)
	}
	s.publish(ctx, realtime.EventPostUpdated, p, author, p)
	return p, nil
}

// MoveBlock reorders the blocks of a post. Invalid indices leave the post
// untouched.
func (s *Service) MoveBlock(ctx context.Context, postID uuid.UUID, from, to int, author string) (*models.Post, bool, error) {
	moved := false
	p, err := s.mutate(ctx, postID, author, func(e *Editor) ([]models.Activity, error) {
		if moved = e.MoveBlock(from, to); !moved {
			return nil, errNoChange
		}
		return nil, nil
	})
	if errors.Is(err, errNoChange) {
		p, err := s.GetPost(ctx, postID)
		return p, false, err
	}
	if err != nil {
		return nil, false, err
	}
	s.publish(ctx, realtime.EventPostUpdated, p, author, p)
	return p, true, nil
}

// errNoChange aborts a mutation that turned out to be a no-op.
var errNoChange = errors.New("no change")

// AddComment adds a comment to a thread of the post. A revision request on
// the post or a version thread moves the post to Needs Revisions in the
// same transaction.
func (s *Service) AddComment(ctx context.Context, postID uuid.UUID, scope Scope, in comments.Input) (*models.Post, CommentResult, error) {
	var res CommentResult
	p, err := s.mutate(ctx, postID, in.Author, func(e *Editor) ([]models.Activity, error) {
		var err error
		if res, err = e.AddComment(scope, in); err != nil {
			return nil, err
		}
		id := res.Comment.ID
		acts := []models.Activity{{
			Type:     models.ActivityComment,
			Metadata: models.ActivityMetadata{Comment: res.Comment.Text, CommentID: &id},
		}}
		if res.StatusChanged() {
			acts = append(acts, models.Activity{
				Type:     models.ActivityRevisionRequest,
				Metadata: models.ActivityMetadata{RevisionComment: res.Comment.Text, CommentID: &id},
			})
		}
		return acts, nil
	})
	if err != nil {
		return nil, CommentResult{}, err
	}

	c := res.Comment
	s.publish(ctx, realtime.EventCommentCreated, p, in.Author, CommentEvent{Scope: scope, Comment: &c})
	if res.StatusChanged() {
		s.publish(ctx, realtime.EventStatusChanged, p, in.Author, StatusChange{From: res.PreviousStatus, To: res.Status})
	}
	return p, res, nil
}

// AddReply adds a reply under an existing comment of the thread.
func (s *Service) AddReply(ctx context.Context, postID uuid.UUID, scope Scope, parentID uuid.UUID, in comments.Input) (*models.Post, CommentResult, error) {
	in.ParentID = &parentID
	return s.AddComment(ctx, postID, scope, in)
}

// UpdateComment replaces the text of a comment.
func (s *Service) UpdateComment(ctx context.Context, postID uuid.UUID, scope Scope, commentID uuid.UUID, text, author string) (models.Comment, error) {
	var updated models.Comment
	p, err := s.mutate(ctx, postID, author, func(e *Editor) ([]models.Activity, error) {
		var err error
		updated, err = e.UpdateComment(scope, commentID, text)
		return nil, err
	})
	if err != nil {
		return models.Comment{}, err
	}
	s.publish(ctx, realtime.EventCommentUpdated, p, author, CommentEvent{Scope: scope, Comment: &updated})
	return updated, nil
}

// DeleteComment removes a comment and every reply beneath it.
func (s *Service) DeleteComment(ctx context.Context, postID uuid.UUID, scope Scope, commentID uuid.UUID, author string) ([]uuid.UUID, error) {
	var removed []uuid.UUID
	p, err := s.mutate(ctx, postID, author, func(e *Editor) ([]models.Activity, error) {
		var err error
		removed, err = e.DeleteComment(scope, commentID)
		return nil, err
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, realtime.EventCommentDeleted, p, author, CommentEvent{Scope: scope, Removed: removed})
	return removed, nil
}

// ListComments returns the nested threads of one scope.
func (s *Service) ListComments(ctx context.Context, postID uuid.UUID, scope Scope) ([]comments.Thread, error) {
	p, err := s.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	tree, err := Edit(p, s.now).Thread(scope)
	if err != nil {
		return nil, err
	}
	return tree.Threads(), nil
}

// Activities returns the newest activities of a post.
func (s *Service) Activities(ctx context.Context, postID uuid.UUID, limit int) ([]models.Activity, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if _, err := s.GetPost(ctx, postID); err != nil {
		return nil, err
	}
	return s.activities.ListByPost(ctx, postID, limit)
}

// Approve marks a post under review as approved.
func (s *Service) Approve(ctx context.Context, postID uuid.UUID, author string) (*models.Post, error) {
	return s.ApplyAction(ctx, postID, workflow.ActionApprove, author)
}

// RequestChanges sends a post under review back for revisions.
func (s *Service) RequestChanges(ctx context.Context, postID uuid.UUID, author string) (*models.Post, error) {
	return s.ApplyAction(ctx, postID, workflow.ActionRequestChanges, author)
}

// MarkRevised reports that the requested revisions are done.
func (s *Service) MarkRevised(ctx context.Context, postID uuid.UUID, author string) (*models.Post, error) {
	return s.ApplyAction(ctx, postID, workflow.ActionMarkRevised, author)
}

// SubmitForApproval moves a draft into review.
func (s *Service) SubmitForApproval(ctx context.Context, postID uuid.UUID, author string) (*models.Post, error) {
	return s.ApplyAction(ctx, postID, workflow.ActionSubmit, author)
}

// ApplyAction runs a review action and records it in the activity feed.
// The schedule action picks the publish date itself, see Schedule.
func (s *Service) ApplyAction(ctx context.Context, postID uuid.UUID, action workflow.Action, author string) (*models.Post, error) {
	if action == workflow.ActionSchedule {
		return s.Schedule(ctx, postID, nil, author)
	}
	var change StatusChange
	p, err := s.mutate(ctx, postID, author, func(e *Editor) ([]models.Activity, error) {
		change.From = e.Post().Status
		typ, err := e.ApplyAction(action)
		if err != nil {
			return nil, err
		}
		change.To = e.Post().Status
		return []models.Activity{{Type: typ}}, nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, realtime.EventStatusChanged, p, author, change)
	return p, nil
}

// Schedule sets the publish date of an approved or scheduled post and
// moves it to Scheduled. A nil at picks the first free preferred posting
// hour of the post's platforms, skipping hours other scheduled posts of
// the board already take.
func (s *Service) Schedule(ctx context.Context, postID uuid.UUID, at *time.Time, author string) (*models.Post, error) {
	now := s.now()
	if at != nil && !at.After(now) {
		return nil, apperr.Invalid("publish_date", "must be in the future")
	}
	if at == nil {
		current, err := s.GetPost(ctx, postID)
		if err != nil {
			return nil, err
		}
		taken, err := s.takenSlots(ctx, current)
		if err != nil {
			return nil, err
		}
		slot := workflow.SuggestSlot(current.Platforms, taken, now)
		at = &slot
	}
	when := at.UTC()

	var change StatusChange
	p, err := s.mutate(ctx, postID, author, func(e *Editor) ([]models.Activity, error) {
		change.From = e.Post().Status
		typ, err := e.ApplyAction(workflow.ActionSchedule)
		if err != nil {
			return nil, err
		}
		e.Post().PublishDate = &when
		change.To = e.Post().Status
		return []models.Activity{{
			Type:     typ,
			Metadata: models.ActivityMetadata{PublishTime: &when},
		}}, nil
	})
	if err != nil {
		return nil, err
	}
	if change.From != change.To {
		s.publish(ctx, realtime.EventStatusChanged, p, author, change)
	}
	s.publish(ctx, realtime.EventPostUpdated, p, author, p)
	return p, nil
}

// SetPublishDate changes or clears the publish date of a post. The status
// is then reconciled with the new date the way ReconcileSchedule does.
func (s *Service) SetPublishDate(ctx context.Context, postID uuid.UUID, at *time.Time, author string) (*models.Post, error) {
	var when *time.Time
	if at != nil {
		t := at.UTC()
		when = &t
	}
	now := s.now()

	var change StatusChange
	p, err := s.mutate(ctx, postID, author, func(e *Editor) ([]models.Activity, error) {
		post := e.Post()
		post.PublishDate = when
		change.From = post.Status
		change.To = workflow.DetermineCorrectStatus(post.Status, when, now)
		if change.To == change.From {
			return nil, nil
		}
		post.Status = change.To
		if typ, ok := workflow.ActivityFor(change.To); ok {
			return []models.Activity{{Type: typ, Metadata: models.ActivityMetadata{PublishTime: when}}}, nil
		}
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	if change.From != change.To {
		s.publish(ctx, realtime.EventStatusChanged, p, author, change)
	}
	s.publish(ctx, realtime.EventPostUpdated, p, author, p)
	return p, nil
}

// takenSlots returns the publish dates of the other scheduled posts on the
// board of p.
func (s *Service) takenSlots(ctx context.Context, p *models.Post) ([]time.Time, error) {
	posts, err := s.posts.ListByBoard(ctx, p.BoardID)
	if err != nil {
		return nil, err
	}
	var taken []time.Time
	for _, other := range posts {
		if other.ID != p.ID && other.Status == models.StatusScheduled && other.PublishDate != nil {
			taken = append(taken, *other.PublishDate)
		}
	}
	return taken, nil
}

// ReconcileSchedule corrects the status of every post whose publish date
// disagrees with it and returns how many posts changed. A failure on one
// post does not stop the others.
func (s *Service) ReconcileSchedule(ctx context.Context) (int, error) {
	posts, err := s.posts.ListWithPublishDate(ctx)
	if err != nil {
		return 0, err
	}

	var (
		changed int
		errs    []error
	)
	for _, candidate := range posts {
		now := s.now()
		if workflow.DetermineCorrectStatus(candidate.Status, candidate.PublishDate, now) == candidate.Status {
			continue
		}

		var change StatusChange
		p, err := s.mutate(ctx, candidate.ID, SystemActor, func(e *Editor) ([]models.Activity, error) {
			post := e.Post()
			change.From = post.Status
			change.To = workflow.DetermineCorrectStatus(post.Status, post.PublishDate, now)
			if change.To == change.From {
				return nil, errNoChange
			}
			post.Status = change.To
			if typ, ok := workflow.ActivityFor(change.To); ok {
				return []models.Activity{{
					Type:     typ,
					Metadata: models.ActivityMetadata{PublishTime: post.PublishDate},
				}}, nil
			}
			return nil, nil
		})
		if errors.Is(err, errNoChange) {
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("reconcile post %s: %w", candidate.ID, err))
			continue
		}
		changed++
		s.publish(ctx, realtime.EventStatusChanged, p, SystemActor, change)
	}
	return changed, errors.Join(errs...)
}

// mutate applies fn to the locked post and stores the result. The author
// is stamped on the post and on every returned activity.
func (s *Service) mutate(ctx context.Context, postID uuid.UUID, author string, fn func(e *Editor) ([]models.Activity, error)) (*models.Post, error) {
	author = strings.TrimSpace(author)
	p, err := s.posts.Mutate(ctx, postID, func(p *models.Post) ([]models.Activity, error) {
		if err := visible(ctx, p); err != nil {
			return nil, err
		}
		acts, err := fn(Edit(p, s.now))
		if err != nil {
			return nil, err
		}
		if author != SystemActor {
			p.LastUpdatedBy = author
		}
		for i := range acts {
			acts[i].ActorID = author
		}
		return acts, nil
	})
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx, p.ID)
	}
	if s.boards != nil {
		if sess, ok := s.boards.Loaded(p.BoardID); ok {
			sess.ReplaceRow(p)
		}
	}
	return p, nil
}

// discard removes an uploaded object that is no longer referenced.
func (s *Service) discard(ctx context.Context, file models.File) {
	if s.files == nil {
		return
	}
	for _, key := range []string{file.ObjectKey, file.ThumbnailKey} {
		if key == "" {
			continue
		}
		if err := s.files.Delete(ctx, key); err != nil {
			slog.Warn("delete asset failed", "key", key, "error", err)
		}
	}
}

func (s *Service) publish(ctx context.Context, typ realtime.EventType, p *models.Post, author string, payload any) {
	if s.pub == nil {
		return
	}
	id := p.ID
	ev, err := realtime.NewEvent(typ, realtime.BoardTopic(p.BoardID), author, &id, payload)
	if err != nil {
		slog.Warn("review event encode failed", "type", typ, "error", err)
		return
	}
	realtime.Notify(ctx, s.pub, ev)
}

// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package review implements the post review aggregate: media blocks with
// their version history, comment threads at post, block and version scope,
// and the status changes those comments imply. Editor mutates a loaded
// post in memory; Service persists each mutation atomically.
package review

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"postdeck/internal/apperr"
	"postdeck/internal/comments"
	"postdeck/internal/models"
	"postdeck/internal/workflow"
)

var (
	ErrPostNotFound    = fmt.Errorf("post %w", apperr.ErrNotFound)
	ErrBlockNotFound   = fmt.Errorf("block %w", apperr.ErrNotFound)
	ErrVersionNotFound = fmt.Errorf("version %w", apperr.ErrNotFound)
)

// ScopeKind is the level a comment thread is attached to.
type ScopeKind string

const (
	ScopePost    ScopeKind = "post"
	ScopeBlock   ScopeKind = "block"
	ScopeVersion ScopeKind = "version"
)

// Scope addresses one comment thread within a post.
type Scope struct {
	Kind      ScopeKind `json:"kind"`
	BlockID   uuid.UUID `json:"block_id,omitempty"`
	VersionID uuid.UUID `json:"version_id,omitempty"`
}

// PostScope addresses the post-level thread.
func PostScope() Scope { return Scope{Kind: ScopePost} }

// BlockScope addresses a block-level thread.
func BlockScope(blockID uuid.UUID) Scope { return Scope{Kind: ScopeBlock, BlockID: blockID} }

// VersionScope addresses the thread of one version of a block.
func VersionScope(blockID, versionID uuid.UUID) Scope {
	return Scope{Kind: ScopeVersion, BlockID: blockID, VersionID: versionID}
}

// affectsStatus reports whether revision requests in this scope can move
// the post's status. Block-level threads never do.
func (s Scope) affectsStatus() bool {
	return s.Kind == ScopePost || s.Kind == ScopeVersion
}

// Editor applies review mutations to a single post.
type Editor struct {
	post *models.Post
	now  func() time.Time
}

// Edit returns an Editor for post. The post is mutated in place.
func Edit(post *models.Post, now func() time.Time) *Editor {
	if now == nil {
		now = time.Now
	}
	return &Editor{post: post, now: now}
}

// Post returns the post being edited.
func (e *Editor) Post() *models.Post {
	return e.post
}

// AddBlock creates a block together with its first version. The version
// becomes current.
func (e *Editor) AddBlock(file models.File, caption, author string) (*models.Block, error) {
	if err := validateFile(file); err != nil {
		return nil, err
	}
	v := e.newVersion(file, caption, author)
	e.post.Blocks = append(e.post.Blocks, models.Block{
		ID:               uuid.New(),
		Kind:             file.Kind,
		CurrentVersionID: v.ID,
		Versions:         []models.Version{v},
		Comments:         []models.Comment{},
	})
	return &e.post.Blocks[len(e.post.Blocks)-1], nil
}

// AddVersion appends a new version to a block and makes it current.
func (e *Editor) AddVersion(blockID uuid.UUID, file models.File, caption, author string) (*models.Version, error) {
	b, ok := e.post.Block(blockID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBlockNotFound, blockID)
	}
	if err := validateFile(file); err != nil {
		return nil, err
	}
	v := e.newVersion(file, caption, author)
	b.Versions = append(b.Versions, v)
	b.CurrentVersionID = v.ID
	return &b.Versions[len(b.Versions)-1], nil
}

// SetCurrentVersion marks an existing version as canonical.
func (e *Editor) SetCurrentVersion(blockID, versionID uuid.UUID) error {
	b, ok := e.post.Block(blockID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrBlockNotFound, blockID)
	}
	if _, ok := b.Version(versionID); !ok {
		return fmt.Errorf("%w: %s", ErrVersionNotFound, versionID)
	}
	b.CurrentVersionID = versionID
	return nil
}

// RemoveBlock deletes a block with all of its versions and comments.
func (e *Editor) RemoveBlock(blockID uuid.UUID) (models.Block, error) {
	for i, b := range e.post.Blocks {
		if b.ID == blockID {
			e.post.Blocks = append(e.post.Blocks[:i], e.post.Blocks[i+1:]...)
			return b, nil
		}
	}
	return models.Block{}, fmt.Errorf("%w: %s", ErrBlockNotFound, blockID)
}

// MoveBlock reorders blocks within the post using splice semantics.
// Out-of-range indices and from == to are no-ops.
func (e *Editor) MoveBlock(from, to int) bool {
	blocks := e.post.Blocks
	n := len(blocks)
	if from < 0 || from >= n || to < 0 || to >= n || from == to {
		return false
	}
	b := blocks[from]
	if from < to {
		copy(blocks[from:to], blocks[from+1:to+1])
	} else {
		copy(blocks[to+1:from+1], blocks[to:from])
	}
	blocks[to] = b
	return true
}

// Thread returns the comment tree for scope.
func (e *Editor) Thread(scope Scope) (*comments.Tree, error) {
	switch scope.Kind {
	case ScopePost:
		return comments.New(&e.post.Comments, comments.WithClock(e.now)), nil
	case ScopeBlock:
		b, ok := e.post.Block(scope.BlockID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrBlockNotFound, scope.BlockID)
		}
		return comments.New(&b.Comments, comments.WithClock(e.now)), nil
	case ScopeVersion:
		b, ok := e.post.Block(scope.BlockID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrBlockNotFound, scope.BlockID)
		}
		v, ok := b.Version(scope.VersionID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrVersionNotFound, scope.VersionID)
		}
		return comments.New(&v.Comments, comments.WithClock(e.now), comments.WithAnchors()), nil
	}
	return nil, apperr.Invalid("scope", "unknown scope %q", scope.Kind)
}

// CommentResult describes the outcome of AddComment.
type CommentResult struct {
	Comment        models.Comment `json:"comment"`
	PreviousStatus models.Status  `json:"previous_status"`
	Status         models.Status  `json:"status"`
}

// StatusChanged reports whether the comment moved the post's status.
func (r CommentResult) StatusChanged() bool {
	return r.PreviousStatus != r.Status
}

// AddComment appends a comment to scope. A revision request on a post or
// version thread is applied to the post status in the same call; if the
// comment is rejected the status is left untouched.
func (e *Editor) AddComment(scope Scope, in comments.Input) (CommentResult, error) {
	tree, err := e.Thread(scope)
	if err != nil {
		return CommentResult{}, err
	}
	c, err := tree.Add(in)
	if err != nil {
		return CommentResult{}, err
	}

	res := CommentResult{Comment: c, PreviousStatus: e.post.Status, Status: e.post.Status}
	if scope.affectsStatus() {
		res.Status = workflow.DeriveStatusOnRevisionComment(e.post.Status, c.RevisionRequested)
		e.post.Status = res.Status
	}
	return res, nil
}

// AddReply appends a reply to an existing comment in scope.
func (e *Editor) AddReply(scope Scope, parentID uuid.UUID, in comments.Input) (CommentResult, error) {
	in.ParentID = &parentID
	return e.AddComment(scope, in)
}

// UpdateComment replaces the text of a comment in scope.
func (e *Editor) UpdateComment(scope Scope, id uuid.UUID, text string) (models.Comment, error) {
	tree, err := e.Thread(scope)
	if err != nil {
		return models.Comment{}, err
	}
	return tree.UpdateText(id, text)
}

// DeleteComment removes a comment and its replies from scope.
func (e *Editor) DeleteComment(scope Scope, id uuid.UUID) ([]uuid.UUID, error) {
	tree, err := e.Thread(scope)
	if err != nil {
		return nil, err
	}
	return tree.Delete(id)
}

// ApplyAction runs an explicit review action against the post status.
func (e *Editor) ApplyAction(action workflow.Action) (models.ActivityType, error) {
	next, activity, err := workflow.Apply(e.post.Status, action)
	if err != nil {
		return "", err
	}
	e.post.Status = next
	return activity, nil
}

func (e *Editor) newVersion(file models.File, caption, author string) models.Version {
	return models.Version{
		ID:        uuid.New(),
		CreatedAt: e.now().UTC(),
		By:        strings.TrimSpace(author),
		Caption:   caption,
		File:      file,
		Comments:  []models.Comment{},
	}
}

func validateFile(file models.File) error {
	if file.Kind != models.FileKindImage && file.Kind != models.FileKindVideo {
		return apperr.Invalid("file.kind", "blocks hold images or videos, got %q", file.Kind)
	}
	if strings.TrimSpace(file.URL) == "" {
		return apperr.Invalid("file.url", "is required")
	}
	return nil
}

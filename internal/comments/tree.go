// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package comments manages threaded comments stored as a flat slice where
// each entry points at its parent. A Tree wraps the slice owned by a post,
// block or version and keeps a parent-to-children index so thread views are
// built in linear time.
package comments

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"postdeck/internal/apperr"
	"postdeck/internal/models"
)

// MaxTextLen caps a single comment body, counted in runes.
const MaxTextLen = 5_000

var (
	ErrCommentNotFound = fmt.Errorf("comment %w", apperr.ErrNotFound)
	ErrParentNotFound  = fmt.Errorf("parent comment %w", apperr.ErrNotFound)
)

// Input is the caller-supplied part of a new comment.
type Input struct {
	Author            string
	AuthorEmail       string
	AuthorImageURL    string
	Text              string
	ParentID          *uuid.UUID
	RevisionRequested bool
	Rect              *models.Rect
}

// Tree is a view over one scope's comment slice. Mutations write through
// to the slice the Tree was created with.
type Tree struct {
	comments  *[]models.Comment
	children  map[uuid.UUID][]uuid.UUID
	byID      map[uuid.UUID]int
	now       func() time.Time
	allowRect bool
}

// Option configures a Tree.
type Option func(*Tree)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(t *Tree) { t.now = now }
}

// WithAnchors lets comments carry a Rect. Only version scopes enable it.
func WithAnchors() Option {
	return func(t *Tree) { t.allowRect = true }
}

// New wraps comments. A nil slice is treated as empty.
func New(comments *[]models.Comment, opts ...Option) *Tree {
	t := &Tree{comments: comments, now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	t.reindex()
	return t
}

// Len returns the number of comments in the scope, orphans included.
func (t *Tree) Len() int {
	return len(*t.comments)
}

// Get returns the comment with the given ID.
func (t *Tree) Get(id uuid.UUID) (models.Comment, bool) {
	i, ok := t.byID[id]
	if !ok {
		return models.Comment{}, false
	}
	return (*t.comments)[i], true
}

// Add validates in and appends a new comment. A non-nil ParentID must
// reference a comment already in this scope.
func (t *Tree) Add(in Input) (models.Comment, error) {
	text, err := t.validate(in)
	if err != nil {
		return models.Comment{}, err
	}

	c := models.Comment{
		ID:                uuid.New(),
		CreatedAt:         t.now().UTC(),
		Author:            strings.TrimSpace(in.Author),
		AuthorEmail:       in.AuthorEmail,
		AuthorImageURL:    in.AuthorImageURL,
		Text:              text,
		RevisionRequested: in.RevisionRequested,
		Rect:              in.Rect,
	}
	if in.ParentID != nil {
		if _, ok := t.byID[*in.ParentID]; !ok {
			return models.Comment{}, fmt.Errorf("%w: %s", ErrParentNotFound, in.ParentID)
		}
		pid := *in.ParentID
		c.ParentID = &pid
	}

	*t.comments = append(*t.comments, c)
	t.byID[c.ID] = len(*t.comments) - 1
	if c.ParentID != nil {
		t.children[*c.ParentID] = append(t.children[*c.ParentID], c.ID)
	}
	return c, nil
}

// AddReply is Add with a mandatory parent.
func (t *Tree) AddReply(parentID uuid.UUID, in Input) (models.Comment, error) {
	in.ParentID = &parentID
	return t.Add(in)
}

// Roots returns top-level comments in insertion order.
func (t *Tree) Roots() []models.Comment {
	var out []models.Comment
	for _, c := range *t.comments {
		if c.IsRoot() {
			out = append(out, c)
		}
	}
	return out
}

// Replies returns the direct replies to parentID in insertion order.
func (t *Tree) Replies(parentID uuid.UUID) []models.Comment {
	ids := t.children[parentID]
	out := make([]models.Comment, 0, len(ids))
	for _, id := range ids {
		out = append(out, (*t.comments)[t.byID[id]])
	}
	return out
}

// UpdateText replaces the body of a comment in place.
func (t *Tree) UpdateText(id uuid.UUID, text string) (models.Comment, error) {
	i, ok := t.byID[id]
	if !ok {
		return models.Comment{}, fmt.Errorf("%w: %s", ErrCommentNotFound, id)
	}
	clean, err := cleanText(text)
	if err != nil {
		return models.Comment{}, err
	}
	(*t.comments)[i].Text = clean
	return (*t.comments)[i], nil
}

// Delete removes a comment together with every reply beneath it and
// returns the removed IDs, the deleted comment first.
func (t *Tree) Delete(id uuid.UUID) ([]uuid.UUID, error) {
	if _, ok := t.byID[id]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrCommentNotFound, id)
	}

	removed := []uuid.UUID{id}
	drop := map[uuid.UUID]bool{id: true}
	for i := 0; i < len(removed); i++ {
		for _, child := range t.children[removed[i]] {
			if !drop[child] {
				drop[child] = true
				removed = append(removed, child)
			}
		}
	}

	kept := (*t.comments)[:0]
	for _, c := range *t.comments {
		if !drop[c.ID] {
			kept = append(kept, c)
		}
	}
	*t.comments = kept
	t.reindex()
	return removed, nil
}

func (t *Tree) validate(in Input) (string, error) {
	if strings.TrimSpace(in.Author) == "" {
		return "", apperr.Invalid("author", "is required")
	}
	if in.Rect != nil {
		if !t.allowRect {
			return "", apperr.Invalid("rect", "anchors are only allowed on version comments")
		}
		if in.Rect.W < 0 || in.Rect.H < 0 {
			return "", apperr.Invalid("rect", "width and height must not be negative")
		}
	}
	return cleanText(in.Text)
}

func cleanText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", apperr.Invalid("text", "is required")
	}
	if utf8.RuneCountInString(text) > MaxTextLen {
		return "", apperr.Invalid("text", "is too long (max %d characters)", MaxTextLen)
	}
	return text, nil
}

func (t *Tree) reindex() {
	if *t.comments == nil {
		*t.comments = []models.Comment{}
	}
	t.byID = make(map[uuid.UUID]int, len(*t.comments))
	t.children = make(map[uuid.UUID][]uuid.UUID)
	for i, c := range *t.comments {
		if _, dup := t.byID[c.ID]; !dup {
			t.byID[c.ID] = i
		}
	}
	for i, c := range *t.comments {
		// Only the first comment with a given ID is indexed.
		if c.ParentID == nil || t.byID[c.ID] != i {
			continue
		}
		// Replies whose parent is gone stay out of every view.
		if _, ok := t.byID[*c.ParentID]; ok {
			t.children[*c.ParentID] = append(t.children[*c.ParentID], c.ID)
		}
	}
}

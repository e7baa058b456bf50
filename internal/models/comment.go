// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// Rect locates a version comment inside the media frame.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Comment is one entry of a threaded discussion on a post, block or
// version. A nil ParentID marks a top-level comment. Rect is only set on
// version comments anchored to a region of the media.
type Comment struct {
	ID                uuid.UUID  `json:"id"`
	ParentID          *uuid.UUID `json:"parent_id,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	Author            string     `json:"author"`
	AuthorEmail       string     `json:"author_email,omitempty"`
	AuthorImageURL    string     `json:"author_image_url,omitempty"`
	Text              string     `json:"text"`
	RevisionRequested bool       `json:"revision_requested"`
	Rect              *Rect      `json:"rect,omitempty"`
}

// IsRoot reports whether the comment starts a thread.
func (c *Comment) IsRoot() bool {
	return c.ParentID == nil
}

func cloneComments(in []Comment) []Comment {
	if in == nil {
		return nil
	}
	out := make([]Comment, len(in))
	for i, c := range in {
		if c.ParentID != nil {
			pid := *c.ParentID
			c.ParentID = &pid
		}
		if c.Rect != nil {
			r := *c.Rect
			c.Rect = &r
		}
		out[i] = c
	}
	return out
}

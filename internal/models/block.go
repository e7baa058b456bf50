// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FileKind classifies an uploaded asset.
type FileKind string

const (
	FileKindImage    FileKind = "image"
	FileKindVideo    FileKind = "video"
	FileKindDocument FileKind = "document"
	FileKindOther    FileKind = "other"
)

// KindFromContentType maps a MIME type to a FileKind.
func KindFromContentType(contentType string) FileKind {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return FileKindImage
	case strings.HasPrefix(contentType, "video/"):
		return FileKindVideo
	case contentType == "application/pdf":
		return FileKindDocument
	default:
		return FileKindOther
	}
}

// File is a media asset stored in object storage. Metadata lives on the
// version; the bytes live in the bucket.
type File struct {
	Kind         FileKind `json:"kind"`
	URL          string   `json:"url"`
	ThumbnailURL string   `json:"thumbnail_url,omitempty"`
	ContentType  string   `json:"content_type,omitempty"`
	SizeBytes    int64    `json:"size_bytes,omitempty"`
	ObjectKey    string   `json:"object_key,omitempty"`
	ThumbnailKey string   `json:"thumbnail_key,omitempty"`
}

// IsImage returns true if the file is an image.
func (f *File) IsImage() bool {
	return f.Kind == FileKindImage
}

// HumanSize returns a human-readable file size string.
func (f *File) HumanSize() string {
	const (
		kb = 1024
		mb = 1024 * kb
	)
	switch {
	case f.SizeBytes >= mb:
		return fmt.Sprintf("%.1f MB", float64(f.SizeBytes)/float64(mb))
	case f.SizeBytes >= kb:
		return fmt.Sprintf("%.0f KB", float64(f.SizeBytes)/float64(kb))
	default:
		return fmt.Sprintf("%d B", f.SizeBytes)
	}
}

// Version is one uploaded instance of a block's media. Versions are
// immutable once created except for their comment thread.
type Version struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	By        string    `json:"by"`
	Caption   string    `json:"caption"`
	File      File      `json:"file"`
	Comments  []Comment `json:"comments"`
}

// Block is a content unit of a post holding its version history.
// CurrentVersionID always references an entry in Versions.
type Block struct {
	ID               uuid.UUID `json:"id"`
	Kind             FileKind  `json:"kind"`
	CurrentVersionID uuid.UUID `json:"current_version_id"`
	Versions         []Version `json:"versions"`
	Comments         []Comment `json:"comments"`
}

// ErrDanglingVersionPointer is returned by Validate when the current
// version pointer does not match any version.
var ErrDanglingVersionPointer = errors.New("current version not found in block versions")

// Version returns the version with the given ID.
func (b *Block) Version(id uuid.UUID) (*Version, bool) {
	for i := range b.Versions {
		if b.Versions[i].ID == id {
			return &b.Versions[i], true
		}
	}
	return nil, false
}

// Current returns the canonical version of the block.
func (b *Block) Current() (*Version, bool) {
	return b.Version(b.CurrentVersionID)
}

// Validate checks the current-version invariant.
func (b *Block) Validate() error {
	if _, ok := b.Current(); !ok {
		return fmt.Errorf("block %s: %w", b.ID, ErrDanglingVersionPointer)
	}
	return nil
}

func (b Block) clone() Block {
	c := b
	c.Comments = cloneComments(b.Comments)
	c.Versions = make([]Version, len(b.Versions))
	for i, v := range b.Versions {
		v.Comments = cloneComments(v.Comments)
		c.Versions[i] = v
	}
	return c
}

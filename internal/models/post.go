// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// Status is the review/publishing state of a post.
type Status string

const (
	StatusDraft            Status = "Draft"
	StatusPendingApproval  Status = "Pending Approval"
	StatusNeedsRevisions   Status = "Needs Revisions"
	StatusRevised          Status = "Revised"
	StatusApproved         Status = "Approved"
	StatusScheduled        Status = "Scheduled"
	StatusPublishing       Status = "Publishing"
	StatusPublished        Status = "Published"
	StatusFailedPublishing Status = "Failed Publishing"
)

// AllStatuses lists every post status in workflow order.
var AllStatuses = []Status{
	StatusDraft,
	StatusPendingApproval,
	StatusNeedsRevisions,
	StatusRevised,
	StatusApproved,
	StatusScheduled,
	StatusPublishing,
	StatusPublished,
	StatusFailedPublishing,
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Platform identifies a social network a post targets.
type Platform string

const (
	PlatformFacebook  Platform = "facebook"
	PlatformInstagram Platform = "instagram"
	PlatformLinkedIn  Platform = "linkedin"
	PlatformPinterest Platform = "pinterest"
	PlatformYouTube   Platform = "youtube"
	PlatformTikTok    Platform = "tiktok"
	PlatformGoogle    Platform = "google"
)

// Valid reports whether p is a known platform.
func (p Platform) Valid() bool {
	switch p {
	case PlatformFacebook, PlatformInstagram, PlatformLinkedIn, PlatformPinterest,
		PlatformYouTube, PlatformTikTok, PlatformGoogle:
		return true
	}
	return false
}

// Caption holds the default caption and optional per-platform overrides.
// When Synced is true every platform uses Default.
type Caption struct {
	Synced      bool                `json:"synced"`
	Default     string              `json:"default" validate:"max=5000"`
	PerPlatform map[Platform]string `json:"per_platform,omitempty" validate:"dive,keys,platform,endkeys,max=5000"`
}

// For returns the caption text used on the given platform.
func (c Caption) For(p Platform) string {
	if c.Synced {
		return c.Default
	}
	if text, ok := c.PerPlatform[p]; ok {
		return text
	}
	return c.Default
}

// Post is one row of a board: captioned media blocks awaiting review or
// publication on one or more platforms.
type Post struct {
	ID            uuid.UUID  `json:"id"`
	WorkspaceID   uuid.UUID  `json:"workspace_id"`
	BoardID       uuid.UUID  `json:"board_id"`
	Caption       Caption    `json:"caption"`
	Status        Status     `json:"status"`
	Format        string     `json:"format"`
	PublishDate   *time.Time `json:"publish_date,omitempty"`
	Platforms     []Platform `json:"platforms"`
	Pages         []string   `json:"pages"`
	Month         int        `json:"month"`
	Position      int        `json:"position"`
	Blocks        []Block    `json:"blocks"`
	Comments      []Comment  `json:"comments"`
	CreatedBy     string     `json:"created_by,omitempty"`
	LastUpdatedBy string     `json:"last_updated_by,omitempty"`
	Revision      int64      `json:"revision"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// ItemID returns the post ID as an opaque string key.
func (p *Post) ItemID() string { return p.ID.String() }

// ItemPosition returns the post's row position within its board.
func (p *Post) ItemPosition() int { return p.Position }

// SetPosition assigns the post's row position.
func (p *Post) SetPosition(pos int) { p.Position = pos }

// IsPublished returns true if the post has gone out on its platforms.
func (p *Post) IsPublished() bool {
	return p.Status == StatusPublished
}

// Block returns the block with the given ID.
func (p *Post) Block(id uuid.UUID) (*Block, bool) {
	for i := range p.Blocks {
		if p.Blocks[i].ID == id {
			return &p.Blocks[i], true
		}
	}
	return nil, false
}

// Clone returns a deep copy of the post so a snapshot can be restored
// after a failed write.
func (p *Post) Clone() *Post {
	c := *p
	if p.PublishDate != nil {
		d := *p.PublishDate
		c.PublishDate = &d
	}
	c.Caption.PerPlatform = nil
	if p.Caption.PerPlatform != nil {
		c.Caption.PerPlatform = make(map[Platform]string, len(p.Caption.PerPlatform))
		for k, v := range p.Caption.PerPlatform {
			c.Caption.PerPlatform[k] = v
		}
	}
	c.Platforms = append([]Platform(nil), p.Platforms...)
	c.Pages = append([]string(nil), p.Pages...)
	c.Comments = cloneComments(p.Comments)
	c.Blocks = make([]Block, len(p.Blocks))
	for i, b := range p.Blocks {
		c.Blocks[i] = b.clone()
	}
	return &c
}

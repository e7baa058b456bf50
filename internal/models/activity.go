// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// ActivityType names an entry of a post's activity feed.
type ActivityType string

const (
	ActivityRevisionRequest  ActivityType = "revision_request"
	ActivityRevised          ActivityType = "revised"
	ActivityApproved         ActivityType = "approved"
	ActivityScheduled        ActivityType = "scheduled"
	ActivityPublished        ActivityType = "published"
	ActivityFailedPublishing ActivityType = "failed_publishing"
	ActivityComment          ActivityType = "comment"
	ActivitySubmitted        ActivityType = "submitted"
)

// ActivityMetadata carries optional details shown next to an activity.
type ActivityMetadata struct {
	VersionNumber   int        `json:"version_number,omitempty"`
	Comment         string     `json:"comment,omitempty"`
	CommentID       *uuid.UUID `json:"comment_id,omitempty"`
	RevisionComment string     `json:"revision_comment,omitempty"`
	PublishTime     *time.Time `json:"publish_time,omitempty"`
}

// Activity records who did what to a post.
type Activity struct {
	ID          uuid.UUID        `json:"id"`
	WorkspaceID uuid.UUID        `json:"workspace_id"`
	PostID      uuid.UUID        `json:"post_id"`
	Type        ActivityType     `json:"type"`
	ActorID     string           `json:"actor_id"`
	Metadata    ActivityMetadata `json:"metadata"`
	CreatedAt   time.Time        `json:"created_at"`
}

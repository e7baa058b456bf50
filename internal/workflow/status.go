// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package workflow holds the post status rules: the transition forced by a
// revision-requested comment, the status implied by a publish date, and the
// explicit review actions, and the slot suggested when a post is scheduled
// without a date. Every function here is pure.
package workflow

import (
	"fmt"
	"time"

	"postdeck/internal/apperr"
	"postdeck/internal/models"
)

// ErrTransitionNotAllowed is returned when an action does not apply to the
// post's current status.
var ErrTransitionNotAllowed = fmt.Errorf("status transition not allowed: %w", apperr.ErrConflict)

// revisable are the statuses a revision-requested comment flips to
// Needs Revisions.
var revisable = statusSet(models.StatusPendingApproval, models.StatusRevised, models.StatusApproved)

// reviewable are the statuses the approve and request-changes actions
// accept.
var reviewable = statusSet(
	models.StatusPendingApproval,
	models.StatusRevised,
	models.StatusNeedsRevisions,
	models.StatusApproved,
)

// DeriveStatusOnRevisionComment returns the status a post takes after a
// comment is added. Only a revision request on a post awaiting or past
// review changes it.
func DeriveStatusOnRevisionComment(current models.Status, revisionRequested bool) models.Status {
	if revisionRequested && revisable[current] {
		return models.StatusNeedsRevisions
	}
	return current
}

// DetermineCorrectStatus reconciles a status with the post's publish date.
// A date in the past means the post went out (Published), unless it is
// already Published or Failed Publishing. A future date pulls those two
// back to Scheduled. A nil date leaves the status alone. Applying it twice
// gives the same result as applying it once.
func DetermineCorrectStatus(current models.Status, publishDate *time.Time, now time.Time) models.Status {
	if publishDate == nil || publishDate.IsZero() {
		return current
	}
	done := current == models.StatusPublished || current == models.StatusFailedPublishing
	if publishDate.Before(now) {
		if done {
			return current
		}
		return models.StatusPublished
	}
	if done {
		return models.StatusScheduled
	}
	return current
}

// Action is an explicit review step taken by a user.
type Action string

const (
	ActionSubmit         Action = "submit"
	ActionApprove        Action = "approve"
	ActionRequestChanges Action = "request_changes"
	ActionMarkRevised    Action = "mark_revised"
	ActionSchedule       Action = "schedule"
)

// transition describes the statuses an action accepts and where it lands.
type transition struct {
	from     map[models.Status]bool
	to       models.Status
	activity models.ActivityType
}

var transitions = map[Action]transition{
	ActionSubmit: {
		from:     statusSet(models.StatusDraft),
		to:       models.StatusPendingApproval,
		activity: models.ActivitySubmitted,
	},
	ActionApprove: {
		from:     reviewable,
		to:       models.StatusApproved,
		activity: models.ActivityApproved,
	},
	ActionRequestChanges: {
		from:     reviewable,
		to:       models.StatusNeedsRevisions,
		activity: models.ActivityRevisionRequest,
	},
	ActionMarkRevised: {
		from:     statusSet(models.StatusNeedsRevisions),
		to:       models.StatusRevised,
		activity: models.ActivityRevised,
	},
	ActionSchedule: {
		from:     statusSet(models.StatusApproved, models.StatusScheduled),
		to:       models.StatusScheduled,
		activity: models.ActivityScheduled,
	},
}

// Apply returns the status after action and the activity to record.
func Apply(current models.Status, action Action) (models.Status, models.ActivityType, error) {
	tr, ok := transitions[action]
	if !ok {
		return current, "", apperr.Invalid("action", "unknown action %q", action)
	}
	if !tr.from[current] {
		return current, "", fmt.Errorf("%s from %q: %w", action, current, ErrTransitionNotAllowed)
	}
	return tr.to, tr.activity, nil
}

// ActivityFor maps a status reached through reconciliation to the feed
// entry announcing it. The second result is false for statuses that are
// not announced.
func ActivityFor(status models.Status) (models.ActivityType, bool) {
	switch status {
	case models.StatusScheduled:
		return models.ActivityScheduled, true
	case models.StatusPublished:
		return models.ActivityPublished, true
	case models.StatusFailedPublishing:
		return models.ActivityFailedPublishing, true
	}
	return "", false
}

func statusSet(statuses ...models.Status) map[models.Status]bool {
	m := make(map[models.Status]bool, len(statuses))
	for _, s := range statuses {
		m[s] = true
	}
	return m
}

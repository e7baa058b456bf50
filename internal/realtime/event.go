// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package realtime fans board changes out to connected clients. Services
// publish Events to Valkey; every API instance runs a Hub that receives
// them through a pattern subscription and forwards them over websockets.
package realtime

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EventType names what changed.
type EventType string

const (
	EventPostCreated    EventType = "post.created"
	EventPostUpdated    EventType = "post.updated"
	EventPostDeleted    EventType = "post.deleted"
	EventRowsMoved      EventType = "rows.moved"
	EventRowsFilled     EventType = "rows.filled"
	EventCommentCreated EventType = "comment.created"
	EventCommentUpdated EventType = "comment.updated"
	EventCommentDeleted EventType = "comment.deleted"
	EventStatusChanged  EventType = "status.changed"
	EventSyncFailed     EventType = "sync.failed"
	EventFormUpdated    EventType = "form.updated"
)

// Event is one change notification.
type Event struct {
	ID       uuid.UUID       `json:"id"`
	Type     EventType       `json:"type"`
	Topic    string          `json:"topic"`
	AuthorID string          `json:"author_id,omitempty"`
	PostID   *uuid.UUID      `json:"post_id,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
	At       time.Time       `json:"at"`
	// Origin is the InstanceID of the process that published the event.
	Origin string `json:"origin,omitempty"`
}

// instanceID identifies this process among the API instances sharing a
// broker.
var instanceID = uuid.NewString()

// InstanceID returns the origin stamped on events built by this process.
func InstanceID() string { return instanceID }

// BoardTopic is the topic carrying every change to a board and its posts.
func BoardTopic(boardID uuid.UUID) string {
	return "board:" + boardID.String()
}

// FormTopic is the topic carrying changes to one intake form.
func FormTopic(formID uuid.UUID) string {
	return "form:" + formID.String()
}

// BoardFromTopic returns the board of a BoardTopic.
func BoardFromTopic(topic string) (uuid.UUID, bool) {
	return topicID(topic, "board:")
}

// FormFromTopic returns the form of a FormTopic.
func FormFromTopic(topic string) (uuid.UUID, bool) {
	return topicID(topic, "form:")
}

func topicID(topic, prefix string) (uuid.UUID, bool) {
	rest, ok := strings.CutPrefix(topic, prefix)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(rest)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// NewEvent builds an Event with a fresh ID. payload is JSON-encoded.
func NewEvent(typ EventType, topic, authorID string, postID *uuid.UUID, payload any) (Event, error) {
	ev := Event{
		ID:       uuid.New(),
		Type:     typ,
		Topic:    topic,
		AuthorID: authorID,
		PostID:   postID,
		At:       time.Now().UTC(),
		Origin:   instanceID,
	}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return Event{}, fmt.Errorf("encode %s payload: %w", typ, err)
		}
		ev.Payload = raw
	}
	return ev, nil
}

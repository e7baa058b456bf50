// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package realtime

import (
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultFeedMemory is how many event IDs a Feed remembers for dedupe.
const DefaultFeedMemory = 512

// Feed filters the event stream of one consumer. It drops events the
// consumer authored itself and events it has already seen. Memory is
// bounded: only the most recent IDs are remembered.
type Feed struct {
	self string
	seen *lru.Cache[uuid.UUID, struct{}]
}

// NewFeed returns a Feed for the user self. An empty self disables echo
// suppression.
func NewFeed(self string, memory int) *Feed {
	if memory <= 0 {
		memory = DefaultFeedMemory
	}
	// lru.New only fails for a non-positive size.
	seen, _ := lru.New[uuid.UUID, struct{}](memory)
	return &Feed{self: self, seen: seen}
}

// Accept reports whether ev should be delivered, and records it as seen.
// Lookups do not refresh an ID, so the oldest accepted ID is forgotten
// first.
func (f *Feed) Accept(ev Event) bool {
	if f.self != "" && ev.AuthorID == f.self {
		return false
	}
	dup, _ := f.seen.ContainsOrAdd(ev.ID, struct{}{})
	return !dup
}

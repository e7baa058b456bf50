// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package comments

import (
	"github.com/google/uuid"

	"postdeck/internal/models"
)

// Thread is a comment with its replies nested beneath it.
type Thread struct {
	models.Comment
	Depth   int      `json:"depth"`
	Replies []Thread `json:"replies"`
}

// Threads returns the nested view of the scope: each root in insertion
// order with its replies recursively attached. There is no depth limit.
// Every comment appears at most once, so corrupt parent links loaded from
// storage cannot loop.
func (t *Tree) Threads() []Thread {
	roots := t.Roots()
	out := make([]Thread, 0, len(roots))
	visited := make(map[uuid.UUID]bool, t.Len())
	for _, root := range roots {
		if visited[root.ID] {
			continue
		}
		visited[root.ID] = true
		out = append(out, t.thread(root, 0, visited))
	}
	return out
}

func (t *Tree) thread(c models.Comment, depth int, visited map[uuid.UUID]bool) Thread {
	replies := t.Replies(c.ID)
	th := Thread{Comment: c, Depth: depth, Replies: make([]Thread, 0, len(replies))}
	for _, r := range replies {
		if visited[r.ID] {
			continue
		}
		visited[r.ID] = true
		th.Replies = append(th.Replies, t.thread(r, depth+1, visited))
	}
	return th
}

// Count returns the number of comments reachable in the thread view.
func Count(threads []Thread) int {
	n := 0
	for _, th := range threads {
		n += 1 + Count(th.Replies)
	}
	return n
}

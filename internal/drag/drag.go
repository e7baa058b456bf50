// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package drag turns pointer gestures into ordered-collection mutations.
// A Controller tracks at most one gesture at a time: either a row drag that
// ends in a move, or a fill drag that copies one value down a range of rows.
package drag

import (
	"fmt"

	"postdeck/internal/apperr"
	"postdeck/internal/ordered"
)

// ErrDragInProgress is returned when a gesture starts while another one
// is still active.
var ErrDragInProgress = fmt.Errorf("another drag is in progress: %w", apperr.ErrConflict)

// Kind is the type of the active gesture.
type Kind string

const (
	KindNone Kind = ""
	KindRow  Kind = "row"
	KindFill Kind = "fill"
)

type gesture[T ordered.Item] struct {
	kind  Kind
	start int
	hover int
	set   func(T)
}

// Controller drives gestures over one list. It is not safe for
// concurrent use.
type Controller[T ordered.Item] struct {
	list   *ordered.List[T]
	active *gesture[T]
}

// NewController returns a Controller for list.
func NewController[T ordered.Item](list *ordered.List[T]) *Controller[T] {
	return &Controller[T]{list: list}
}

// Active returns the kind of the gesture in flight, or KindNone.
func (c *Controller[T]) Active() Kind {
	if c.active == nil {
		return KindNone
	}
	return c.active.kind
}

// BeginRowDrag starts dragging the row at from.
func (c *Controller[T]) BeginRowDrag(from int) error {
	if c.active != nil {
		return ErrDragInProgress
	}
	if from < 0 || from >= c.list.Len() {
		return apperr.Invalid("from", "row %d out of range", from)
	}
	c.active = &gesture[T]{kind: KindRow, start: from, hover: from}
	return nil
}

// BeginFill starts a fill drag from row start. set is applied to every row
// in the final range.
func (c *Controller[T]) BeginFill(start int, set func(T)) error {
	if c.active != nil {
		return ErrDragInProgress
	}
	if start < 0 || start >= c.list.Len() {
		return apperr.Invalid("start", "row %d out of range", start)
	}
	c.active = &gesture[T]{kind: KindFill, start: start, hover: start, set: set}
	return nil
}

// Hover records the row under the pointer and returns the highlighted
// range. For a row drag the range is the single drop indicator row.
// Hovering outside the list keeps the previous indicator.
func (c *Controller[T]) Hover(index int) (lo, hi int, ok bool) {
	if c.active == nil {
		return 0, 0, false
	}
	if index >= 0 && index < c.list.Len() {
		c.active.hover = index
	}
	if c.active.kind == KindRow {
		return c.active.hover, c.active.hover, true
	}
	lo, hi = c.active.start, c.active.hover
	if lo > hi {
		lo, hi = hi, lo
	}
	return lo, hi, true
}

// Drop ends a row drag by moving the dragged row to index to. Dropping on
// an invalid row or on the start row ends the gesture without a change.
func (c *Controller[T]) Drop(to int) (from int, moved bool) {
	g := c.active
	if g == nil || g.kind != KindRow {
		return 0, false
	}
	c.active = nil
	return g.start, c.list.Move(g.start, to)
}

// FinishFill ends a fill drag at row end and returns the rows that were
// changed. A fill that ends on its start row changes nothing. An invalid
// end row is treated like a release outside the table.
func (c *Controller[T]) FinishFill(end int) []T {
	g := c.active
	if g == nil || g.kind != KindFill {
		return nil
	}
	c.active = nil
	if end < 0 || end >= c.list.Len() || end == g.start {
		return nil
	}
	return c.list.FillRange(g.start, end, g.set)
}

// Cancel drops the active gesture without mutating the list.
func (c *Controller[T]) Cancel() {
	c.active = nil
}

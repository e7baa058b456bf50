// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package ordered maintains collections whose items carry an explicit
// position field. After every mutation the positions of a List are exactly
// 0..N-1 and match slice order. Board rows and form fields both use it.
package ordered

import "sort"

// Item is an element of an ordered collection. Implementations are
// usually pointers so SetPosition mutates the caller's value.
type Item interface {
	ItemID() string
	ItemPosition() int
	SetPosition(pos int)
}

// List is a position-normalized sequence of items. The zero value is an
// empty list ready to use. List is not safe for concurrent use; callers
// serialize access (see board.Session).
type List[T Item] struct {
	items []T
}

// New builds a List from items already in display order and renumbers
// their positions.
func New[T Item](items ...T) *List[T] {
	l := &List[T]{items: append([]T(nil), items...)}
	l.renumber()
	return l
}

// Normalize builds a List from items loaded out of storage. Items are
// ordered by their stored position (ties keep input order) and renumbered,
// which repairs gaps and duplicates left by older writes.
func Normalize[T Item](items []T) *List[T] {
	sorted := append([]T(nil), items...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ItemPosition() < sorted[j].ItemPosition()
	})
	return New(sorted...)
}

// Len returns the number of items.
func (l *List[T]) Len() int {
	return len(l.items)
}

// Items returns a copy of the items in position order.
func (l *List[T]) Items() []T {
	return append([]T(nil), l.items...)
}

// At returns the item at index i.
func (l *List[T]) At(i int) (T, bool) {
	var zero T
	if i < 0 || i >= len(l.items) {
		return zero, false
	}
	return l.items[i], true
}

// IndexOf returns the index of the item with the given ID, or -1.
func (l *List[T]) IndexOf(id string) int {
	for i, it := range l.items {
		if it.ItemID() == id {
			return i
		}
	}
	return -1
}

// Append adds item at the end. No other item is renumbered.
func (l *List[T]) Append(item T) {
	item.SetPosition(len(l.items))
	l.items = append(l.items, item)
}

// InsertAt places item at index, clamped to [0, Len()]. An index past the
// end behaves like Append. Every item is renumbered afterwards.
func (l *List[T]) InsertAt(item T, index int) int {
	if index < 0 {
		index = 0
	}
	if index >= len(l.items) {
		l.Append(item)
		return len(l.items) - 1
	}
	l.items = append(l.items, item)
	copy(l.items[index+1:], l.items[index:])
	l.items[index] = item
	l.renumber()
	return index
}

// Move removes the item at from and reinserts it at to, using splice
// semantics: to is an index into the list after removal. Out-of-range
// indices and from == to leave the list untouched and return false.
func (l *List[T]) Move(from, to int) bool {
	n := len(l.items)
	if from < 0 || from >= n || to < 0 || to >= n || from == to {
		return false
	}
	item := l.items[from]
	if from < to {
		copy(l.items[from:to], l.items[from+1:to+1])
	} else {
		copy(l.items[to+1:from+1], l.items[to:from])
	}
	l.items[to] = item
	l.renumber()
	return true
}

// Remove deletes the item with the given ID and shifts later items down.
func (l *List[T]) Remove(id string) (T, bool) {
	var zero T
	i := l.IndexOf(id)
	if i < 0 {
		return zero, false
	}
	removed := l.items[i]
	l.items = append(l.items[:i], l.items[i+1:]...)
	l.renumber()
	return removed, true
}

// FillRange calls set on every item whose index lies between start and
// end inclusive, in either order. Positions are not touched. The affected
// items are returned so callers can persist each one.
func (l *List[T]) FillRange(start, end int, set func(T)) []T {
	lo, hi := start, end
	if lo > hi {
		lo, hi = hi, lo
	}
	if lo < 0 {
		lo = 0
	}
	if hi >= len(l.items) {
		hi = len(l.items) - 1
	}
	var affected []T
	for i := lo; i <= hi; i++ {
		set(l.items[i])
		affected = append(affected, l.items[i])
	}
	return affected
}

// Positions returns a map of item ID to position. Callers snapshot it
// before a mutation to restore on failure.
func (l *List[T]) Positions() map[string]int {
	out := make(map[string]int, len(l.items))
	for _, it := range l.items {
		out[it.ItemID()] = it.ItemPosition()
	}
	return out
}

// Restore reorders the list to match a snapshot taken with Positions.
// Items missing from the snapshot keep their relative order at the end.
func (l *List[T]) Restore(snapshot map[string]int) {
	sort.SliceStable(l.items, func(i, j int) bool {
		pi, iok := snapshot[l.items[i].ItemID()]
		pj, jok := snapshot[l.items[j].ItemID()]
		switch {
		case iok && jok:
			return pi < pj
		case iok:
			return true
		default:
			return false
		}
	})
	l.renumber()
}

// Dense reports whether positions are exactly 0..N-1 in slice order.
func (l *List[T]) Dense() bool {
	for i, it := range l.items {
		if it.ItemPosition() != i {
			return false
		}
	}
	return true
}

func (l *List[T]) renumber() {
	for i, it := range l.items {
		it.SetPosition(i)
	}
}

package drag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postdeck/internal/apperr"
	"postdeck/internal/ordered"
)

type field struct {
	id    string
	pos   int
	month int
}

func (f *field) ItemID() string      { return f.id }
func (f *field) ItemPosition() int   { return f.pos }
func (f *field) SetPosition(pos int) { f.pos = pos }

func list(ids ...string) *ordered.List[*field] {
	l := ordered.New[*field]()
	for _, id := range ids {
		l.Append(&field{id: id})
	}
	return l
}

func order(l *ordered.List[*field]) []string {
	var out []string
	for _, f := range l.Items() {
		out = append(out, f.id)
	}
	return out
}

func TestRowDrag(t *testing.T) {
	l := list("A", "B", "C")
	c := NewController(l)

	require.NoError(t, c.BeginRowDrag(0))
	assert.Equal(t, KindRow, c.Active())

	lo, hi, ok := c.Hover(2)
	require.True(t, ok)
	assert.Equal(t, 2, lo)
	assert.Equal(t, 2, hi)

	from, moved := c.Drop(2)
	assert.Equal(t, 0, from)
	assert.True(t, moved)
	assert.Equal(t, []string{"B", "C", "A"}, order(l))
	assert.True(t, l.Dense())
	assert.Equal(t, KindNone, c.Active())
}

func TestSingleActiveGesture(t *testing.T) {
	l := list("A", "B", "C")
	c := NewController(l)
	require.NoError(t, c.BeginRowDrag(1))

	assert.ErrorIs(t, c.BeginRowDrag(0), ErrDragInProgress)
	assert.ErrorIs(t, c.BeginFill(0, func(*field) {}), ErrDragInProgress)
	assert.ErrorIs(t, c.BeginRowDrag(0), apperr.ErrConflict)

	c.Cancel()
	assert.Equal(t, KindNone, c.Active())
	assert.Equal(t, []string{"A", "B", "C"}, order(l), "cancel must not mutate")
	assert.NoError(t, c.BeginRowDrag(0))
}

func TestDropOnInvalidTarget(t *testing.T) {
	l := list("A", "B")
	c := NewController(l)
	require.NoError(t, c.BeginRowDrag(0))

	_, moved := c.Drop(9)
	assert.False(t, moved)
	assert.Equal(t, []string{"A", "B"}, order(l))
	assert.Equal(t, KindNone, c.Active())

	_, moved = c.Drop(1)
	assert.False(t, moved, "drop without an active drag is ignored")
}

func TestBeginOutOfRange(t *testing.T) {
	c := NewController(list("A"))
	assert.True(t, apperr.IsValidation(c.BeginRowDrag(3)))
	assert.True(t, apperr.IsValidation(c.BeginFill(-1, nil)))
	assert.Equal(t, KindNone, c.Active())
}

func TestFillDrag(t *testing.T) {
	l := list("A", "B", "C", "D")
	c := NewController(l)

	require.NoError(t, c.BeginFill(2, func(f *field) { f.month = 6 }))
	lo, hi, _ := c.Hover(0)
	assert.Equal(t, 0, lo)
	assert.Equal(t, 2, hi)

	changed := c.FinishFill(0)
	require.Len(t, changed, 3)
	items := l.Items()
	assert.Equal(t, 6, items[0].month)
	assert.Equal(t, 6, items[1].month)
	assert.Equal(t, 6, items[2].month)
	assert.Equal(t, 0, items[3].month)
	assert.Equal(t, []string{"A", "B", "C", "D"}, order(l))
}

func TestFillOnStartRowIsNoop(t *testing.T) {
	l := list("A", "B")
	c := NewController(l)
	require.NoError(t, c.BeginFill(1, func(f *field) { f.month = 3 }))

	assert.Empty(t, c.FinishFill(1))
	assert.Equal(t, 0, l.Items()[1].month)
	assert.Equal(t, KindNone, c.Active())
}

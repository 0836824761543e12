package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirection(t *testing.T) {
	for _, d := range Directions {
		assert.Equal(t, d, d.Across().Across())
		dx, dy := d.Vector()
		ax, ay := d.Across().Vector()
		assert.Equal(t, -dx, ax)
		assert.Equal(t, -dy, ay)
	}

	assert.Equal(t, West, East.Across())
	assert.Equal(t, South, North.Across())
	assert.Equal(t, "North", North.String())
	assert.Equal(t, "Direction(7)", Direction(7).String())

	d, err := ParseDirection("South")
	require.NoError(t, err)
	assert.Equal(t, South, d)
	_, err = ParseDirection("Up")
	assert.Error(t, err)
}

func TestNeighbor(t *testing.T) {
	s, _ := New(2, 2)
	origin, _ := s.TryClaim(0, 0, nil)

	assert.Equal(t, Position{X: 1, Y: 0}, origin.NeighborXY(East))
	assert.Equal(t, Position{X: 0, Y: 1}, origin.NeighborXY(North))
	assert.Equal(t, Position{X: -1, Y: 0}, origin.NeighborXY(West))
	assert.Equal(t, Position{X: 0, Y: -1}, origin.NeighborXY(South))

	assert.True(t, origin.Neighbor(West).IsBoundary())
	assert.True(t, origin.Neighbor(South).IsBoundary())
	assert.Same(t, origin.Neighbor(West), origin.Neighbor(South))
	assert.False(t, origin.IsBoundary())
	assert.Nil(t, origin.Neighbor(East))

	east, _ := s.TryClaim(1, 0, nil)
	assert.Same(t, east, origin.Neighbor(East))
	assert.Same(t, origin, east.Neighbor(West))
}

func TestOpenExit(t *testing.T) {
	s, _ := New(2, 2)
	r, _ := s.TryClaim(0, 0, nil)

	var notified []Direction
	r.OnExit(func(d Direction) { notified = append(notified, d) })

	r.OpenExit(North)
	r.OpenExit(East)
	r.OpenExit(North)

	assert.Equal(t, []Direction{East, North}, r.Exits())
	assert.True(t, r.HasExit(North))
	assert.False(t, r.HasExit(West))
	assert.False(t, r.HasExit(Direction(9)))
	assert.Equal(t, []Direction{North, East}, notified)

	assert.Panics(t, func() { r.OpenExit(Direction(4)) })
}

func TestDetachedReservationFailsFast(t *testing.T) {
	assert.PanicsWithValue(t, ErrNoGrid, func() { boundary.Neighbor(East) })
	assert.PanicsWithValue(t, ErrNoGrid, func() { boundary.OpenExit(East) })

	var zero Reservation
	assert.PanicsWithValue(t, ErrNoGrid, func() { zero.NeighborXY(North) })
	assert.PanicsWithValue(t, ErrNoGrid, func() { zero.OnExit(func(Direction) {}) })
}

func TestObserverRegisteredDuringNotify(t *testing.T) {
	s, _ := New(1, 1)
	r, _ := s.TryClaim(0, 0, nil)

	var first, second []Direction
	r.OnExit(func(d Direction) {
		first = append(first, d)
		if len(first) == 1 {
			r.OnExit(func(d Direction) { second = append(second, d) })
		}
	})

	r.OpenExit(North)
	r.OpenExit(East)

	assert.Equal(t, []Direction{North, East}, first)
	assert.Equal(t, []Direction{East}, second)
}

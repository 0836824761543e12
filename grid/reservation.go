package grid

import (
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// boundary is the value Neighbor returns for coordinates outside the grid.
// It is never stored in a slot and carries no grid.
var boundary = &Reservation{}

// Reservation records one tile's ownership of one grid cell.
type Reservation struct {
	ID       uuid.UUID // Unique across every claim made on the store.
	Position Position  // Cell held by the reservation, fixed for its lifetime.
	Value    any       // Payload supplied by the claimer.

	store     *Store
	remote    bool // Held by an owner outside this process.
	exits     [DirectionCount]bool
	observers []func(Direction)
	mu        sync.Mutex
}

// IsBoundary reports whether r is the off-grid sentinel.
func (r *Reservation) IsBoundary() bool {
	return r == boundary
}

// Remote reports whether r was reported by an arbiter for an owner outside this process.
func (r *Reservation) Remote() bool {
	return r.remote
}

func (r *Reservation) mustStore() *Store {
	if r == nil || r.store == nil {
		panic(ErrNoGrid)
	}
	return r.store
}

// NeighborXY returns the coordinate next to the reservation in direction d.
func (r *Reservation) NeighborXY(d Direction) Position {
	r.mustStore()
	return r.Position.Neighbor(d)
}

// Neighbor returns the reservation next to r in direction d: the off-grid sentinel
// (see IsBoundary) when the coordinate is outside the grid, nil when it is unclaimed.
func (r *Reservation) Neighbor(d Direction) *Reservation {
	return r.mustStore().neighbor(r.Position, d)
}

// OpenExit records a connection through d. Observers run only the first time a
// direction is opened.
func (r *Reservation) OpenExit(d Direction) {
	r.mustStore()
	if !d.Valid() {
		panic(fmt.Sprintf("grid: invalid direction %d", int(d)))
	}

	r.mu.Lock()
	if r.exits[d] {
		r.mu.Unlock()
		return
	}
	r.exits[d] = true
	observers := slices.Clone(r.observers)
	r.mu.Unlock()

	for _, fn := range observers {
		fn(d)
	}
}

// OnExit registers fn to be called whenever a new exit is opened on r.
func (r *Reservation) OnExit(fn func(Direction)) {
	r.mustStore()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers = append(r.observers, fn)
}

// HasExit reports whether d has been opened.
func (r *Reservation) HasExit(d Direction) bool {
	if !d.Valid() {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.exits[d]
}

// Exits returns the opened directions in canonical order.
func (r *Reservation) Exits() []Direction {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []Direction
	for _, d := range Directions {
		if r.exits[d] {
			result = append(result, d)
		}
	}
	return result
}

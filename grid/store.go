/*
Package grid provides the shared cell store tiles negotiate ownership on.

A Store is a fixed width x height array of slots addressed row-major. Each slot is
either empty or holds exactly one Reservation. All claim and release operations go
through the store, which serializes them so a claim never observes a stale slot.
*/
package grid

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Arbiter is consulted inside the claim critical section to arbitrate a cell with
// owners outside this process. Acquire returns the current owner when the cell is taken.
type Arbiter interface {
	Acquire(pos Position, id uuid.UUID) (owner uuid.UUID, ok bool, err error)
	Release(pos Position, id uuid.UUID) error
}

// Option configures a Store.
type Option func(*Store)

// WithArbiter makes the store arbitrate every claim through a.
func WithArbiter(a Arbiter) Option {
	return func(s *Store) {
		s.arbiter = a
	}
}

// WithReleaseErrors sets fn to receive arbiter release failures. The local slot is
// freed regardless; the remote lock then lapses with its expiry.
func WithReleaseErrors(fn func(pos Position, err error)) Option {
	return func(s *Store) {
		s.onReleaseErr = fn
	}
}

// Store owns the slot storage of one grid and is the single source of truth for claims.
type Store struct {
	width        int                   // Number of columns.
	height       int                   // Number of rows.
	slots        []*Reservation        // Row-major slots, nil when empty.
	pending      map[int]chan struct{} // Slots whose claim is out with the arbiter.
	arbiter      Arbiter               // Optional external arbitration.
	onReleaseErr func(Position, error) // Receives arbiter release failures.
	claimed      int                   // Number of occupied slots.
	mu           sync.RWMutex          // Guards slots, pending and claimed.
}

// New creates an empty grid of the given dimensions.
func New(width, height int, options ...Option) (*Store, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}

	s := &Store{
		width:   width,
		height:  height,
		slots:   make([]*Reservation, width*height),
		pending: make(map[int]chan struct{}),
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Width returns the number of columns.
func (s *Store) Width() int { return s.width }

// Height returns the number of rows.
func (s *Store) Height() int { return s.height }

// InBound reports whether (x, y) addresses a slot of this grid.
func (s *Store) InBound(x, y int) bool {
	return x >= 0 && x < s.width && y >= 0 && y < s.height
}

func (s *Store) index(x, y int) int {
	return x + y*s.width
}

// TryClaim reserves the slot at (x, y) for value.
//
// It returns ErrBoundary when (x, y) is off-grid and an *OccupiedError when the slot is
// already held. The slot is only mutated on success. While the arbiter is consulted the
// slot is marked pending: other claims on it wait for the outcome, the rest of the grid
// stays readable and claimable.
func (s *Store) TryClaim(x, y int, value any) (*Reservation, error) {
	if !s.InBound(x, y) {
		return nil, ErrBoundary
	}
	idx := s.index(x, y)

	for {
		s.mu.Lock()
		if existing := s.slots[idx]; existing != nil {
			s.mu.Unlock()
			return nil, &OccupiedError{Existing: existing}
		}
		if settled, ok := s.pending[idx]; ok {
			s.mu.Unlock()
			<-settled
			continue
		}

		r := &Reservation{
			ID:       uuid.New(),
			Position: Position{X: x, Y: y},
			Value:    value,
			store:    s,
		}
		if s.arbiter == nil {
			s.install(idx, r)
			s.mu.Unlock()
			return r, nil
		}

		settled := make(chan struct{})
		s.pending[idx] = settled
		s.mu.Unlock()

		owner, ok, err := s.arbiter.Acquire(r.Position, r.ID)

		s.mu.Lock()
		delete(s.pending, idx)
		close(settled)
		if err == nil && ok {
			s.install(idx, r)
		}
		s.mu.Unlock()

		switch {
		case err != nil:
			return nil, fmt.Errorf("arbitrating %s: %w", r.Position, err)
		case !ok:
			return nil, &OccupiedError{Existing: &Reservation{ID: owner, Position: r.Position, store: s, remote: true}}
		default:
			return r, nil
		}
	}
}

// install must be called with s.mu held.
func (s *Store) install(idx int, r *Reservation) {
	s.slots[idx] = r
	s.claimed++
}

// Lookup returns the reservation at (x, y), or nil when the slot is empty or off-grid.
func (s *Store) Lookup(x, y int) *Reservation {
	if !s.InBound(x, y) {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.slots[s.index(x, y)]
}

// Release clears the slot of r only if it still holds r. A stale release, where the
// slot has since been cleared or taken over, is silently ignored.
func (s *Store) Release(r *Reservation) bool {
	if r == nil || r.store != s || r.remote {
		return false
	}

	s.mu.Lock()
	idx := s.index(r.Position.X, r.Position.Y)
	if s.slots[idx] != r {
		s.mu.Unlock()
		return false
	}
	s.slots[idx] = nil
	s.claimed--
	s.mu.Unlock()

	if s.arbiter != nil {
		if err := s.arbiter.Release(r.Position, r.ID); err != nil && s.onReleaseErr != nil {
			s.onReleaseErr(r.Position, err)
		}
	}
	return true
}

// Claimed returns the number of occupied slots.
func (s *Store) Claimed() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.claimed
}

// Snapshot returns the current reservations in row-major order.
func (s *Store) Snapshot() []*Reservation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Reservation, 0, s.claimed)
	for _, r := range s.slots {
		if r != nil {
			result = append(result, r)
		}
	}
	return result
}

// neighbor resolves the slot next to pos, returning the boundary sentinel when it is off-grid.
func (s *Store) neighbor(pos Position, d Direction) *Reservation {
	n := pos.Neighbor(d)
	if !s.InBound(n.X, n.Y) {
		return boundary
	}
	return s.Lookup(n.X, n.Y)
}

package growth

import (
	"context"
	"sync"

	"github.com/beka-birhanu/vinom-tiles/grid"
)

// State is a tile's position in its claim/growth life cycle.
type State int

const (
	Idle State = iota
	Claiming
	Rejected  // Terminal: the cell was off-grid or already held.
	Claimed   // Holding a cell, growth not started yet.
	Growing   // Working through the try-order.
	Exhausted // Terminal: every direction has been attempted.
	Stopped   // Terminal: torn down before the try-order was finished.
)

var stateNames = [...]string{"idle", "claiming", "rejected", "claimed", "growing", "exhausted", "stopped"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Tile is the recursive unit of growth: it claims one cell, wires itself to the tile
// it was entered from and spawns one child attempt per direction.
type Tile struct {
	grower   *Grower
	pos      grid.Position
	entry    grid.Direction
	hasEntry bool
	parent   *Tile

	reservation *grid.Reservation
	children    []*Tile
	record      AttemptRecord
	state       State
	tornDown    bool
	cancel      context.CancelFunc
	mu          sync.Mutex
}

func (g *Grower) newTile(parent *Tile, pos grid.Position, entry grid.Direction, hasEntry bool) *Tile {
	return &Tile{
		grower:   g,
		parent:   parent,
		pos:      pos,
		entry:    entry,
		hasEntry: hasEntry,
	}
}

// Position returns the cell the tile targets.
func (t *Tile) Position() grid.Position { return t.pos }

// Entry returns the direction the tile was reached from; ok is false for a root.
func (t *Tile) Entry() (d grid.Direction, ok bool) { return t.entry, t.hasEntry }

// Parent returns the tile this one was spawned by, nil for a root.
func (t *Tile) Parent() *Tile { return t.parent }

// State returns the current life cycle state.
func (t *Tile) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Reservation returns the held reservation, nil until claimed.
func (t *Tile) Reservation() *grid.Reservation {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reservation
}

// Attempts returns a copy of the attempt record.
func (t *Tile) Attempts() AttemptRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.record
}

// Children returns the live branches grown from this tile.
func (t *Tile) Children() []*Tile {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*Tile(nil), t.children...)
}

func (t *Tile) setState(s State) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}

// View returns the presentation view of the tile.
func (t *Tile) View() TileView {
	v := TileView{X: t.pos.X, Y: t.pos.Y, Entry: t.entry, HasEntry: t.hasEntry}
	if r := t.Reservation(); r != nil {
		v.Exits = r.Exits()
	}
	if v.Exits == nil {
		v.Exits = []grid.Direction{}
	}
	return v
}

// Walk visits t and its live descendants depth first until fn returns false.
func (t *Tile) Walk(fn func(*Tile) bool) bool {
	if !fn(t) {
		return false
	}
	for _, c := range t.Children() {
		if !c.Walk(fn) {
			return false
		}
	}
	return true
}

func (t *Tile) render() {
	if t.grower.renderer != nil {
		t.grower.renderer.RenderTile(t.View())
	}
}

// claim reserves the tile's cell and, for a non-root, opens the parent's exit toward it.
func (t *Tile) claim() error {
	t.setState(Claiming)

	r, err := t.grower.store.TryClaim(t.pos.X, t.pos.Y, t)
	if err != nil {
		t.setState(Rejected)
		return err
	}

	t.mu.Lock()
	t.reservation = r
	t.state = Claimed
	t.mu.Unlock()

	r.OnExit(func(grid.Direction) { t.render() })
	t.render()

	if t.hasEntry && t.parent != nil {
		// Only the reservation the parent still holds gets the exit.
		if p := r.Neighbor(t.entry); p != nil && !p.IsBoundary() && p == t.parent.Reservation() {
			p.OpenExit(t.entry.Across())
		}
	}
	return nil
}

// run is the tile's task: claim, report the outcome, then grow on the same goroutine.
func (t *Tile) run(ctx context.Context, result chan<- error) {
	defer t.grower.wg.Done()

	if err := t.claim(); err != nil {
		result <- err
		return
	}
	result <- nil
	t.grow(ctx)
}

// Teardown tears down every live branch, then releases this tile's reservation.
// Releases are identity guarded, so a successor on the same cell is left alone.
func (t *Tile) Teardown() {
	t.mu.Lock()
	if t.tornDown {
		t.mu.Unlock()
		return
	}
	t.tornDown = true
	children := t.children
	t.children = nil
	r := t.reservation
	cancel := t.cancel
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	for _, c := range children {
		c.Teardown()
	}
	if r != nil {
		t.grower.store.Release(r)
	}
}

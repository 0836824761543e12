/*
Package growth grows a spanning tree of connected tiles over a grid.

Every tile runs as its own task. A tile claims its cell, reports the claim outcome to
its parent over a result channel and then tries the four directions in a random
order, one paced attempt at a time. Each attempt spawns a child task at the
neighboring cell; a rejected child (off-grid or occupied) is discarded and the tile
moves on. Rejections are never retried, so every tile stops after at most four
attempts and a run over a finite grid always terminates.
*/
package growth

import (
	"context"
	"errors"
	"sync"

	"github.com/beka-birhanu/vinom-tiles/grid"
	"github.com/beka-birhanu/vinom-tiles/pacing"
)

var (
	ErrNoStore  = errors.New("growth requires a grid store")
	ErrNoPacer  = errors.New("growth requires a pacer")
	ErrRootLost = errors.New("root tile could not claim its cell")
)

// Config holds the collaborators of a Grower.
type Config struct {
	Store    *grid.Store  // Grid the tiles claim cells on.
	Pacer    pacing.Pacer // Delay awaited before every attempt.
	Renderer Renderer     // Optional presentation sink.
	Permuter Permuter     // Optional try-order source, uniform random by default.
}

// Grower runs the tile tasks of one generation over one grid.
type Grower struct {
	store    *grid.Store
	pacer    pacing.Pacer
	renderer Renderer
	permute  Permuter

	roots   []*Tile
	rootsMu sync.Mutex
	wg      sync.WaitGroup
}

// New creates a Grower for c.
func New(c Config) (*Grower, error) {
	if c.Store == nil {
		return nil, ErrNoStore
	}
	if c.Pacer == nil {
		return nil, ErrNoPacer
	}
	if c.Permuter == nil {
		c.Permuter = RandomPermuter(0)
	}

	return &Grower{
		store:    c.Store,
		pacer:    c.Pacer,
		renderer: c.Renderer,
		permute:  c.Permuter,
	}, nil
}

// Store returns the grid the grower claims cells on.
func (g *Grower) Store() *grid.Store { return g.store }

// Grow starts a root tile at (x, y) and returns once it has claimed its cell. The tree
// keeps growing in the background until ctx is done or every tile is exhausted.
func (g *Grower) Grow(ctx context.Context, x, y int) (*Tile, error) {
	root := g.newTile(nil, grid.Position{X: x, Y: y}, 0, false)
	rootCtx, cancel := context.WithCancel(ctx)
	root.cancel = cancel

	result := make(chan error, 1)
	g.wg.Add(1)
	go root.run(rootCtx, result)

	if err := <-result; err != nil {
		cancel()
		return nil, errors.Join(ErrRootLost, err)
	}

	g.rootsMu.Lock()
	g.roots = append(g.roots, root)
	g.rootsMu.Unlock()
	return root, nil
}

// Wait blocks until every tile task started by g has terminated.
func (g *Grower) Wait() {
	g.wg.Wait()
}

// Run grows a tree from (x, y), waits for it to finish and returns the layout.
func (g *Grower) Run(ctx context.Context, x, y int) (Layout, error) {
	if _, err := g.Grow(ctx, x, y); err != nil {
		return Layout{}, err
	}
	g.Wait()
	return g.Layout(), ctx.Err()
}

// Roots returns the root tiles grown so far.
func (g *Grower) Roots() []*Tile {
	g.rootsMu.Lock()
	defer g.rootsMu.Unlock()
	return append([]*Tile(nil), g.roots...)
}

// Layout collects the views of every cell held by one of g's tiles, in row-major order.
func (g *Grower) Layout() Layout {
	layout := Layout{Width: g.store.Width(), Height: g.store.Height(), Tiles: []TileView{}}
	for _, r := range g.store.Snapshot() {
		if t, ok := r.Value.(*Tile); ok && t.grower == g {
			layout.Tiles = append(layout.Tiles, t.View())
		}
	}
	return layout
}

// Teardown tears every tree down and releases all of their reservations.
func (g *Grower) Teardown() {
	g.rootsMu.Lock()
	roots := g.roots
	g.roots = nil
	g.rootsMu.Unlock()

	for _, root := range roots {
		root.Teardown()
	}
}

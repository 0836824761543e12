package growth

import "github.com/beka-birhanu/vinom-tiles/grid"

// TileView is what presentation layers receive about one claimed tile.
type TileView struct {
	X        int              `json:"x" yaml:"x"`
	Y        int              `json:"y" yaml:"y"`
	Entry    grid.Direction   `json:"entry" yaml:"entry"`
	HasEntry bool             `json:"has_entry" yaml:"has_entry"`
	Exits    []grid.Direction `json:"exits" yaml:"exits"`
}

// Renderer consumes tile views. Calls are fire-and-forget; nothing flows back into growth.
type Renderer interface {
	RenderTile(TileView)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(TileView)

// RenderTile calls f.
func (f RendererFunc) RenderTile(v TileView) {
	f(v)
}

// Layout is a point-in-time picture of every live tile grown by a Grower.
type Layout struct {
	Width  int        `json:"width" yaml:"width"`
	Height int        `json:"height" yaml:"height"`
	Tiles  []TileView `json:"tiles" yaml:"tiles"`
}

// Tile returns the view at (x, y), if any.
func (l Layout) Tile(x, y int) (TileView, bool) {
	for _, v := range l.Tiles {
		if v.X == x && v.Y == y {
			return v, true
		}
	}
	return TileView{}, false
}

// HasExit reports whether the view has an open exit toward d.
func (v TileView) HasExit(d grid.Direction) bool {
	for _, e := range v.Exits {
		if e == d {
			return true
		}
	}
	return false
}

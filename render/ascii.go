/*
Package render turns grown tiles into something a person can look at.

ASCII draws a layout in the same box style as a maze printout, Recorder keeps every
view in memory and Hub streams views to websocket viewers as they are produced.
*/
package render

import (
	"strings"

	"github.com/beka-birhanu/vinom-tiles/grid"
	"github.com/beka-birhanu/vinom-tiles/growth"
)

const (
	rootCell   = " @ "
	tileCell   = "   "
	unusedCell = "###"
)

// ASCII draws the layout with the highest row on top. Walls are drawn wherever two
// cells are not connected; unclaimed cells are filled.
func ASCII(l growth.Layout) string {
	tiles := make(map[grid.Position]growth.TileView, len(l.Tiles))
	for _, v := range l.Tiles {
		tiles[grid.Position{X: v.X, Y: v.Y}] = v
	}

	var b strings.Builder

	// Top boundary
	b.WriteString("+" + strings.Repeat("---+", l.Width) + "\n")

	for y := l.Height - 1; y >= 0; y-- {
		// Cell row
		b.WriteString("|")
		for x := 0; x < l.Width; x++ {
			v, ok := tiles[grid.Position{X: x, Y: y}]
			switch {
			case !ok:
				b.WriteString(unusedCell)
			case !v.HasEntry:
				b.WriteString(rootCell)
			default:
				b.WriteString(tileCell)
			}

			if ok && linked(v, grid.East) {
				b.WriteString(" ")
			} else {
				b.WriteString("|")
			}
		}
		b.WriteString("\n")

		// Wall row
		b.WriteString("+")
		for x := 0; x < l.Width; x++ {
			v, ok := tiles[grid.Position{X: x, Y: y}]
			if ok && linked(v, grid.South) {
				b.WriteString("   +")
			} else {
				b.WriteString("---+")
			}
		}
		b.WriteString("\n")
	}

	return b.String()
}

// linked reports whether v connects through d, from either side of the edge.
func linked(v growth.TileView, d grid.Direction) bool {
	return v.HasExit(d) || (v.HasEntry && v.Entry == d)
}

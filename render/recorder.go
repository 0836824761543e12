package render

import (
	"sync"

	"github.com/beka-birhanu/vinom-tiles/growth"
)

// Recorder keeps every rendered view in arrival order.
type Recorder struct {
	views []growth.TileView
	mu    sync.Mutex
}

// RenderTile records v.
func (r *Recorder) RenderTile(v growth.TileView) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.views = append(r.views, v)
}

// Views returns a copy of every recorded view.
func (r *Recorder) Views() []growth.TileView {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]growth.TileView(nil), r.views...)
}

// Fanout forwards every view to all renderers.
type Fanout []growth.Renderer

// RenderTile forwards v.
func (f Fanout) RenderTile(v growth.TileView) {
	for _, r := range f {
		if r != nil {
			r.RenderTile(v)
		}
	}
}

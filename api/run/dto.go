// Package runapi exposes generation runs over HTTP.
package runapi

import (
	"time"

	"github.com/beka-birhanu/vinom-tiles/growth"
	"github.com/beka-birhanu/vinom-tiles/service/i"
	"github.com/google/uuid"
)

// NewRunRequest represents a request to start a generation run.
type NewRunRequest struct {
	Preset   string `json:"preset"`
	Grid     string `json:"grid" binding:"max=64"`
	Width    int    `json:"width" binding:"gte=0"`
	Height   int    `json:"height" binding:"gte=0"`
	PacingMs int    `json:"pacing_ms" binding:"gte=0"`
	Seed     int64  `json:"seed"`
	RootX    int    `json:"root_x" binding:"gte=0"`
	RootY    int    `json:"root_y" binding:"gte=0"`
}

func (r NewRunRequest) toRunRequest() i.RunRequest {
	return i.RunRequest{
		Preset:   r.Preset,
		Grid:     r.Grid,
		Width:    r.Width,
		Height:   r.Height,
		PacingMs: r.PacingMs,
		Seed:     r.Seed,
		RootX:    r.RootX,
		RootY:    r.RootY,
	}
}

// NewRunResponse carries the ID of a started run and where to watch it.
type NewRunResponse struct {
	ID     uuid.UUID `json:"id"`
	Stream string    `json:"stream"`
}

// RunResponse represents a run and its current layout.
type RunResponse struct {
	ID         uuid.UUID         `json:"id"`
	Grid       string            `json:"grid,omitempty"`
	Width      int               `json:"width"`
	Height     int               `json:"height"`
	Status     string            `json:"status"`
	Claimed    int               `json:"claimed"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt *time.Time        `json:"finished_at,omitempty"`
	Tiles      []growth.TileView `json:"tiles"`
}

func newRunResponse(info i.RunInfo, layout growth.Layout) *RunResponse {
	res := &RunResponse{
		ID:        info.ID,
		Grid:      info.Grid,
		Width:     info.Width,
		Height:    info.Height,
		Status:    info.Status,
		Claimed:   info.Claimed,
		StartedAt: info.StartedAt,
		Tiles:     layout.Tiles,
	}
	if !info.FinishedAt.IsZero() {
		finished := info.FinishedAt
		res.FinishedAt = &finished
	}
	if res.Tiles == nil {
		res.Tiles = []growth.TileView{}
	}
	return res
}

// HistoryResponse lists every tile view of a run in render order.
type HistoryResponse struct {
	ID    uuid.UUID         `json:"id"`
	Views []growth.TileView `json:"views"`
}

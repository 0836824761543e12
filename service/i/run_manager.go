package i

import (
	"net/http"
	"time"

	"github.com/beka-birhanu/vinom-tiles/growth"
	"github.com/google/uuid"
)

// RunRequest describes a generation run. Zero values fall back to the manager defaults.
type RunRequest struct {
	Preset   string // Named tuning preset applied before the explicit fields.
	Grid     string // Shared grid name. Empty gives the run a private grid.
	Width    int
	Height   int
	PacingMs int
	Seed     int64
	RootX    int
	RootY    int
}

// RunInfo summarizes a run.
type RunInfo struct {
	ID         uuid.UUID
	Grid       string
	Width      int
	Height     int
	Status     string
	Claimed    int
	StartedAt  time.Time
	FinishedAt time.Time
}

// RunManager starts, inspects and stops generation runs.
type RunManager interface {
	NewRun(RunRequest) (uuid.UUID, error)
	Info(uuid.UUID) (RunInfo, error)
	Layout(uuid.UUID) (growth.Layout, error)
	History(uuid.UUID) ([]growth.TileView, error)
	Stream(uuid.UUID) (http.Handler, error)
	Stop(uuid.UUID) error
}

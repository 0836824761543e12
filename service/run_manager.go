package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/beka-birhanu/vinom-tiles/config"
	"github.com/beka-birhanu/vinom-tiles/grid"
	"github.com/beka-birhanu/vinom-tiles/growth"
	"github.com/beka-birhanu/vinom-tiles/pacing"
	"github.com/beka-birhanu/vinom-tiles/render"
	"github.com/beka-birhanu/vinom-tiles/service/i"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

const (
	defaultGridSize  = 10
	defaultPacingMs  = 150
	defaultMaxRuns   = 32
	defaultRetention = 10 * time.Minute
	maxGridDimension = 64

	StatusGrowing  = "growing"
	StatusFinished = "finished"
	StatusStopped  = "stopped"
)

var (
	ErrRunNotFound       = errors.New("run not found")
	ErrTooManyRuns       = errors.New("too many active runs")
	ErrInvalidDimensions = errors.New("invalid grid dimensions")
	ErrInvalidRoot       = errors.New("root is outside the grid")
)

var _ i.RunManager = (*RunManager)(nil)

// StoreFactory creates the grid store of a run. Runs naming the same grid get stores
// that arbitrate the same cells.
type StoreFactory func(gridName string, width, height int) (*grid.Store, error)

// PacerFactory creates the pacer of a run from its per-attempt delay.
type PacerFactory func(ms int) pacing.Pacer

type run struct {
	info   i.RunInfo
	grower *growth.Grower
	hub    *render.Hub
	views  *render.Recorder
	cancel context.CancelFunc
	done   chan struct{}
}

// RunManager owns every generation run of the process.
type RunManager struct {
	runs         map[uuid.UUID]*run
	storeFactory StoreFactory
	pacerFactory PacerFactory
	tuning       config.Tuning
	defaults     i.RunRequest
	maxRuns      int
	retention    time.Duration
	logger       i.Logger
	sync.RWMutex
}

// Config holds the collaborators of a RunManager.
type Config struct {
	StoreFactory StoreFactory  // Defaults to an in-memory grid.
	PacerFactory PacerFactory  // Defaults to a fixed per-attempt delay.
	Tuning       config.Tuning // Named presets.
	Defaults     i.RunRequest  // Values for fields a request leaves zero.
	MaxRuns      int           // Cap on runs still growing.
	Retention    time.Duration // How long a settled run stays viewable before its cells are released.
	Logger       i.Logger
}

// NewRunManager creates a RunManager.
func NewRunManager(c *Config) (*RunManager, error) {
	if c.Logger == nil {
		return nil, errors.New("run manager requires a logger")
	}

	rm := &RunManager{
		runs:         make(map[uuid.UUID]*run),
		storeFactory: c.StoreFactory,
		pacerFactory: c.PacerFactory,
		tuning:       c.Tuning,
		defaults:     c.Defaults,
		maxRuns:      c.MaxRuns,
		retention:    c.Retention,
		logger:       c.Logger,
	}

	if rm.storeFactory == nil {
		rm.storeFactory = func(_ string, w, h int) (*grid.Store, error) { return grid.New(w, h) }
	}
	if rm.pacerFactory == nil {
		rm.pacerFactory = func(ms int) pacing.Pacer { return pacing.Fixed(time.Duration(ms) * time.Millisecond) }
	}
	if rm.maxRuns <= 0 {
		rm.maxRuns = defaultMaxRuns
	}
	if rm.retention <= 0 {
		rm.retention = defaultRetention
	}
	if rm.defaults.Width <= 0 {
		rm.defaults.Width = defaultGridSize
	}
	if rm.defaults.Height <= 0 {
		rm.defaults.Height = defaultGridSize
	}
	if rm.defaults.PacingMs <= 0 {
		rm.defaults.PacingMs = defaultPacingMs
	}
	return rm, nil
}

// resolve applies the preset and the defaults to req.
func (rm *RunManager) resolve(req i.RunRequest) (i.RunRequest, error) {
	if req.Preset != "" {
		p, err := rm.tuning.Preset(req.Preset)
		if err != nil {
			return req, err
		}
		req.Width = orDefault(req.Width, p.Width)
		req.Height = orDefault(req.Height, p.Height)
		req.PacingMs = orDefault(req.PacingMs, p.PacingMs)
		if req.Seed == 0 {
			req.Seed = p.Seed
		}
	}

	req.Width = orDefault(req.Width, rm.defaults.Width)
	req.Height = orDefault(req.Height, rm.defaults.Height)
	req.PacingMs = orDefault(req.PacingMs, rm.defaults.PacingMs)

	if min(req.Width, req.Height) <= 0 || max(req.Width, req.Height) > maxGridDimension {
		return req, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, req.Width, req.Height)
	}
	if req.RootX < 0 || req.RootX >= req.Width || req.RootY < 0 || req.RootY >= req.Height {
		return req, fmt.Errorf("%w: (%d,%d)", ErrInvalidRoot, req.RootX, req.RootY)
	}
	return req, nil
}

func orDefault(v, d int) int {
	if v == 0 {
		return d
	}
	return v
}

// NewRun starts a generation run in the background and returns its ID once the root
// tile holds its cell.
func (rm *RunManager) NewRun(req i.RunRequest) (uuid.UUID, error) {
	req, err := rm.resolve(req)
	if err != nil {
		return uuid.Nil, err
	}

	rm.Lock()
	defer rm.Unlock()

	if rm.growing() >= rm.maxRuns {
		return uuid.Nil, ErrTooManyRuns
	}

	id := uuid.New()
	for {
		if _, ok := rm.runs[id]; !ok {
			break
		}
		id = uuid.New()
	}

	gridName := req.Grid
	if gridName == "" {
		gridName = id.String()
	}

	store, err := rm.storeFactory(gridName, req.Width, req.Height)
	if err != nil {
		rm.logger.Error(fmt.Sprintf("creating grid for run %s: %s", id, err))
		return uuid.Nil, err
	}

	hub := render.NewHub(rm.logger)
	views := &render.Recorder{}
	grower, err := growth.New(growth.Config{
		Store:    store,
		Pacer:    rm.pacerFactory(req.PacingMs),
		Renderer: render.Fanout{views, hub},
		Permuter: growth.RandomPermuter(req.Seed),
	})
	if err != nil {
		rm.logger.Error(fmt.Sprintf("creating grower for run %s: %s", id, err))
		return uuid.Nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	if _, err := grower.Grow(ctx, req.RootX, req.RootY); err != nil {
		cancel()
		rm.logger.Error(fmt.Sprintf("starting run %s: %s", id, err))
		return uuid.Nil, err
	}

	r := &run{
		info: i.RunInfo{
			ID:        id,
			Grid:      req.Grid,
			Width:     req.Width,
			Height:    req.Height,
			Status:    StatusGrowing,
			StartedAt: time.Now(),
		},
		grower: grower,
		hub:    hub,
		views:  views,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	rm.runs[id] = r

	go rm.awaitRun(r)
	rm.logger.Info(fmt.Sprintf("started run %s on %dx%d grid %s from (%d,%d)", id, req.Width, req.Height, gridName, req.RootX, req.RootY))
	return id, nil
}

// awaitRun marks r finished once every tile task has terminated, disconnects its
// viewers and schedules its eviction.
func (rm *RunManager) awaitRun(r *run) {
	r.grower.Wait()
	claimed := r.grower.Store().Claimed()

	rm.Lock()
	if r.info.Status == StatusGrowing {
		r.info.Status = StatusFinished
		r.info.FinishedAt = time.Now()
	}
	elapsed := time.Since(r.info.StartedAt)
	rm.Unlock()

	r.hub.Close()
	rm.logger.Info(fmt.Sprintf("run %s settled: %s of %s cells claimed in %s",
		r.info.ID, humanize.Comma(int64(claimed)), humanize.Comma(int64(r.info.Width*r.info.Height)), elapsed.Round(time.Millisecond)))
	close(r.done)

	time.AfterFunc(rm.retention, func() { rm.evict(r) })
}

// evict forgets a settled run and releases its cells, unless it was stopped already.
func (rm *RunManager) evict(r *run) {
	rm.Lock()
	if rm.runs[r.info.ID] != r {
		rm.Unlock()
		return
	}
	delete(rm.runs, r.info.ID)
	rm.Unlock()

	rm.stop(r)
	rm.logger.Info(fmt.Sprintf("evicted run %s after %s", r.info.ID, rm.retention))
}

// growing counts runs still growing. Must be called with rm locked.
func (rm *RunManager) growing() int {
	n := 0
	for _, r := range rm.runs {
		if r.info.Status == StatusGrowing {
			n++
		}
	}
	return n
}

func (rm *RunManager) get(id uuid.UUID) (*run, error) {
	rm.RLock()
	defer rm.RUnlock()
	r, ok := rm.runs[id]
	if !ok {
		return nil, ErrRunNotFound
	}
	return r, nil
}

// Info returns a summary of the run.
func (rm *RunManager) Info(id uuid.UUID) (i.RunInfo, error) {
	r, err := rm.get(id)
	if err != nil {
		return i.RunInfo{}, err
	}

	rm.RLock()
	info := r.info
	rm.RUnlock()
	info.Claimed = r.grower.Store().Claimed()
	return info, nil
}

// Layout returns the current layout of the run.
func (rm *RunManager) Layout(id uuid.UUID) (growth.Layout, error) {
	r, err := rm.get(id)
	if err != nil {
		return growth.Layout{}, err
	}
	return r.grower.Layout(), nil
}

// History returns every tile view the run has rendered, in order.
func (rm *RunManager) History(id uuid.UUID) ([]growth.TileView, error) {
	r, err := rm.get(id)
	if err != nil {
		return nil, err
	}
	return r.views.Views(), nil
}

// Stream returns the websocket handler streaming the run's tile views.
func (rm *RunManager) Stream(id uuid.UUID) (http.Handler, error) {
	r, err := rm.get(id)
	if err != nil {
		return nil, err
	}
	return r.hub, nil
}

// Wait blocks until the run has settled or ctx is done.
func (rm *RunManager) Wait(ctx context.Context, id uuid.UUID) error {
	r, err := rm.get(id)
	if err != nil {
		return err
	}
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop cancels the run, releases every cell it holds and forgets it.
func (rm *RunManager) Stop(id uuid.UUID) error {
	rm.Lock()
	r, ok := rm.runs[id]
	if !ok {
		rm.Unlock()
		return ErrRunNotFound
	}
	delete(rm.runs, id)
	if r.info.Status == StatusGrowing {
		r.info.Status = StatusStopped
		r.info.FinishedAt = time.Now()
	}
	rm.Unlock()

	rm.stop(r)
	rm.logger.Info(fmt.Sprintf("stopped run %s", id))
	return nil
}

func (rm *RunManager) stop(r *run) {
	r.cancel()
	r.grower.Teardown()
	<-r.done
	r.hub.Close()
}

// StopAll stops every run.
func (rm *RunManager) StopAll() {
	rm.Lock()
	runs := rm.runs
	rm.runs = make(map[uuid.UUID]*run)
	rm.Unlock()

	for _, r := range runs {
		rm.stop(r)
	}
}

package runapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/beka-birhanu/vinom-tiles/config"
	"github.com/beka-birhanu/vinom-tiles/grid"
	"github.com/beka-birhanu/vinom-tiles/growth"
	"github.com/beka-birhanu/vinom-tiles/render"
	"github.com/beka-birhanu/vinom-tiles/service"
	"github.com/beka-birhanu/vinom-tiles/service/i"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RunController starts, stops and shows generation runs.
type RunController struct {
	runManager i.RunManager
}

// NewRunController initializes a RunController.
func NewRunController(rm i.RunManager) (*RunController, error) {
	if rm == nil {
		return nil, errors.New("run controller requires a run manager")
	}
	return &RunController{runManager: rm}, nil
}

// RegisterPublic registers the read-only run views.
func (rc *RunController) RegisterPublic(route *gin.RouterGroup) {
	runs := route.Group("/runs")
	{
		runs.GET("/:ID", rc.show)
		runs.GET("/:ID/ascii", rc.ascii)
		runs.GET("/:ID/history", rc.history)
		runs.GET("/:ID/ws", rc.stream)
	}
}

// RegisterProtected registers run control.
func (rc *RunController) RegisterProtected(route *gin.RouterGroup) {
	runs := route.Group("/runs")
	{
		runs.POST("", rc.start)
		runs.DELETE("/:ID", rc.stop)
	}
}

// start handles run creation requests.
func (rc *RunController) start(ctx *gin.Context) {
	var request NewRunRequest
	if ctx.Request.ContentLength != 0 {
		if err := ctx.ShouldBindJSON(&request); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	id, err := rc.runManager.NewRun(request.toRunRequest())
	if err != nil {
		ctx.JSON(statusOf(err), gin.H{"error": err.Error()})
		return
	}

	response := &NewRunResponse{
		ID:     id,
		Stream: strings.TrimSuffix(ctx.Request.URL.Path, "/") + "/" + id.String() + "/ws",
	}
	ctx.JSON(http.StatusCreated, response)
}

// stop tears a run down and releases its cells.
func (rc *RunController) stop(ctx *gin.Context) {
	id, ok := runID(ctx)
	if !ok {
		return
	}

	if err := rc.runManager.Stop(id); err != nil {
		ctx.JSON(statusOf(err), gin.H{"error": err.Error()})
		return
	}
	ctx.Status(http.StatusNoContent)
}

// show returns the run summary and its layout.
func (rc *RunController) show(ctx *gin.Context) {
	id, ok := runID(ctx)
	if !ok {
		return
	}

	info, layout, err := rc.snapshot(id)
	if err != nil {
		ctx.JSON(statusOf(err), gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, newRunResponse(info, layout))
}

// ascii returns the layout drawn as text.
func (rc *RunController) ascii(ctx *gin.Context) {
	id, ok := runID(ctx)
	if !ok {
		return
	}

	layout, err := rc.runManager.Layout(id)
	if err != nil {
		ctx.JSON(statusOf(err), gin.H{"error": err.Error()})
		return
	}
	ctx.String(http.StatusOK, render.ASCII(layout))
}

// history returns the views rendered so far, oldest first.
func (rc *RunController) history(ctx *gin.Context) {
	id, ok := runID(ctx)
	if !ok {
		return
	}

	views, err := rc.runManager.History(id)
	if err != nil {
		ctx.JSON(statusOf(err), gin.H{"error": err.Error()})
		return
	}
	if views == nil {
		views = []growth.TileView{}
	}
	ctx.JSON(http.StatusOK, &HistoryResponse{ID: id, Views: views})
}

// stream upgrades to a websocket carrying the run's tile views.
func (rc *RunController) stream(ctx *gin.Context) {
	id, ok := runID(ctx)
	if !ok {
		return
	}

	handler, err := rc.runManager.Stream(id)
	if err != nil {
		ctx.JSON(statusOf(err), gin.H{"error": err.Error()})
		return
	}
	handler.ServeHTTP(ctx.Writer, ctx.Request)
}

func (rc *RunController) snapshot(id uuid.UUID) (i.RunInfo, growth.Layout, error) {
	info, err := rc.runManager.Info(id)
	if err != nil {
		return info, growth.Layout{}, err
	}
	layout, err := rc.runManager.Layout(id)
	return info, layout, err
}

// runID parses the ID path parameter, answering 400 when it is not a UUID.
func runID(ctx *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(ctx.Params.ByName("ID"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
		return uuid.Nil, false
	}
	return id, true
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, service.ErrRunNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrTooManyRuns):
		return http.StatusTooManyRequests
	case errors.Is(err, service.ErrInvalidDimensions),
		errors.Is(err, service.ErrInvalidRoot),
		errors.Is(err, config.ErrUnknownPreset):
		return http.StatusBadRequest
	case errors.Is(err, grid.ErrOccupied):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

package render

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/beka-birhanu/vinom-tiles/config"
	"github.com/beka-birhanu/vinom-tiles/grid"
	"github.com/beka-birhanu/vinom-tiles/growth"
	logger "github.com/beka-birhanu/vinom-tiles/infrastruture/log"
	"github.com/beka-birhanu/vinom-tiles/pacing"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestASCII(t *testing.T) {
	t.Run("corridor", func(t *testing.T) {
		layout := growth.Layout{Width: 2, Height: 1, Tiles: []growth.TileView{
			{X: 0, Y: 0, Exits: []grid.Direction{grid.East}},
			{X: 1, Y: 0, Entry: grid.West, HasEntry: true},
		}}

		want := "" +
			"+---+---+\n" +
			"| @     |\n" +
			"+---+---+\n"
		assert.Equal(t, want, ASCII(layout))
	})

	t.Run("unclaimed cells are filled", func(t *testing.T) {
		layout := growth.Layout{Width: 2, Height: 2, Tiles: []growth.TileView{
			{X: 0, Y: 0, Exits: []grid.Direction{grid.North}},
			{X: 0, Y: 1, Entry: grid.South, HasEntry: true},
		}}

		want := "" +
			"+---+---+\n" +
			"|   |###|\n" +
			"+   +---+\n" +
			"| @ |###|\n" +
			"+---+---+\n"
		assert.Equal(t, want, ASCII(layout))
	})

	t.Run("full run draws a spanning tree", func(t *testing.T) {
		store, _ := grid.New(5, 4)
		g, err := growth.New(growth.Config{Store: store, Pacer: pacing.None, Permuter: growth.RandomPermuter(3)})
		require.NoError(t, err)
		layout, err := g.Run(context.Background(), 0, 0)
		require.NoError(t, err)

		out := ASCII(layout)
		assert.NotContains(t, out, unusedCell)
		assert.Equal(t, 1, strings.Count(out, rootCell))
		assert.Len(t, strings.Split(strings.TrimSuffix(out, "\n"), "\n"), 2*4+1)
	})
}

func TestRecorder(t *testing.T) {
	var r Recorder
	f := Fanout{&r, nil}
	f.RenderTile(growth.TileView{X: 1, Y: 1})
	f.RenderTile(growth.TileView{X: 1, Y: 1, Exits: []grid.Direction{grid.North}})
	f.RenderTile(growth.TileView{X: 0, Y: 0})

	views := r.Views()
	require.Len(t, views, 3)
	assert.Equal(t, []grid.Direction{grid.North}, views[1].Exits)

	// Views is a copy.
	views[0].X = 9
	assert.Equal(t, 1, r.Views()[0].X)
}

func newTestHub(t *testing.T) (*Hub, string) {
	t.Helper()
	lg, err := logger.New("HUB", config.ColorBlue, &bytes.Buffer{})
	require.NoError(t, err)

	hub := NewHub(lg)
	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func readView(t *testing.T, conn *websocket.Conn) growth.TileView {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var v growth.TileView
	require.NoError(t, json.Unmarshal(msg, &v))
	return v
}

func TestHub(t *testing.T) {
	hub, url := newTestHub(t)
	hub.RenderTile(growth.TileView{X: 0, Y: 0, Exits: []grid.Direction{grid.East}})

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	backlog := readView(t, conn)
	assert.Equal(t, []grid.Direction{grid.East}, backlog.Exits)

	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, time.Second, 5*time.Millisecond)
	hub.RenderTile(growth.TileView{X: 1, Y: 0, Entry: grid.West, HasEntry: true})

	live := readView(t, conn)
	assert.Equal(t, 1, live.X)
	assert.True(t, live.HasEntry)
	assert.Equal(t, grid.West, live.Entry)

	hub.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))
	assert.Zero(t, hub.Subscribers())

	// Frames after close are ignored.
	hub.RenderTile(growth.TileView{X: 2, Y: 0})
}

func TestHubReplaysFinishedRun(t *testing.T) {
	hub, url := newTestHub(t)
	hub.RenderTile(growth.TileView{X: 0, Y: 0})
	hub.RenderTile(growth.TileView{X: 0, Y: 1, Entry: grid.South, HasEntry: true})
	hub.Close()
	hub.Close()

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, 0, readView(t, conn).Y)
	assert.Equal(t, 1, readView(t, conn).Y)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))
	assert.Zero(t, hub.Subscribers())
}

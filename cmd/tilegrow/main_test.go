package main

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/beka-birhanu/vinom-tiles/grid"
	"github.com/beka-birhanu/vinom-tiles/growth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func strip() growth.Layout {
	return growth.Layout{
		Width:  2,
		Height: 1,
		Tiles: []growth.TileView{
			{X: 0, Y: 0, Exits: []grid.Direction{grid.East}},
			{X: 1, Y: 0, Entry: grid.West, HasEntry: true, Exits: []grid.Direction{}},
		},
	}
}

func TestWriteLayout(t *testing.T) {
	t.Run("ascii", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeLayout(&buf, strip(), formatASCII))
		assert.Equal(t, "+---+---+\n| @     |\n+---+---+\n", buf.String())
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeLayout(&buf, strip(), formatJSON))

		var got growth.Layout
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, 2, got.Width)
		assert.Contains(t, buf.String(), `"entry": "West"`)
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeLayout(&buf, strip(), formatYAML))
		assert.Contains(t, buf.String(), "entry: West")

		var got growth.Layout
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
		require.Len(t, got.Tiles, 2)
		assert.Equal(t, grid.West, got.Tiles[1].Entry)
	})

	t.Run("unknown", func(t *testing.T) {
		assert.Error(t, writeLayout(&bytes.Buffer{}, strip(), "svg"))
	})
}

func TestSummary(t *testing.T) {
	layout := growth.Layout{Width: 100, Height: 50, Tiles: make([]growth.TileView, 1234)}
	assert.Equal(t, "1,234 of 5,000 cells claimed in 2s", summary(layout, 2*time.Second))
}

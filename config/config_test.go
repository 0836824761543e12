package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "secret")
		c, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 8080, c.RESTPort)
		assert.Equal(t, 10, c.GridWidth)
		assert.Equal(t, PacingFixed, c.PacingMode)
		assert.Equal(t, 600, c.RunRetention)
		assert.Empty(t, c.RedisAddr)
	})

	t.Run("reports every bad value", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "secret")
		t.Setenv("GRID_WIDTH", "wide")
		t.Setenv("PACING_MODE", "sometimes")
		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "GRID_WIDTH")
		assert.Contains(t, err.Error(), "PACING_MODE")
	})

	t.Run("secret is required", func(t *testing.T) {
		if _, set := os.LookupEnv("JWT_SECRET"); set {
			t.Skip("JWT_SECRET set in the environment")
		}
		_, err := Load()
		assert.ErrorIs(t, err, ErrMissingEnv)
	})
}

func TestLoadTuning(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "tuning.yaml")
	require.NoError(t, os.WriteFile(good, []byte(`
presets:
  small:
    width: 4
    height: 3
    pacing_ms: 50
  huge:
    width: 64
    height: 64
    seed: 9
`), 0o644))

	tuning, err := LoadTuning(good)
	require.NoError(t, err)

	small, err := tuning.Preset("small")
	require.NoError(t, err)
	assert.Equal(t, Preset{Width: 4, Height: 3, PacingMs: 50}, small)

	_, err = tuning.Preset("medium")
	assert.ErrorIs(t, err, ErrUnknownPreset)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("presets:\n  flat:\n    width: 0\n    height: 2\n"), 0o644))
	_, err = LoadTuning(bad)
	assert.Error(t, err)

	_, err = LoadTuning(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

var ErrUnknownPreset = errors.New("unknown grid preset")

// Preset is a named set of run parameters.
type Preset struct {
	Width    int   `yaml:"width"`
	Height   int   `yaml:"height"`
	PacingMs int   `yaml:"pacing_ms"`
	Seed     int64 `yaml:"seed"`
}

// Tuning is the optional YAML tuning file.
type Tuning struct {
	Presets map[string]Preset `yaml:"presets"`
}

// LoadTuning reads and validates a tuning file.
func LoadTuning(path string) (Tuning, error) {
	var t Tuning
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning file: %w", err)
	}
	for name, p := range t.Presets {
		if p.Width <= 0 || p.Height <= 0 {
			return t, fmt.Errorf("tuning file: preset %q needs a positive width and height", name)
		}
		if p.PacingMs < 0 {
			return t, fmt.Errorf("tuning file: preset %q has a negative pacing", name)
		}
	}
	return t, nil
}

// Preset returns the preset called name.
func (t Tuning) Preset(name string) (Preset, error) {
	p, ok := t.Presets[name]
	if !ok {
		return Preset{}, fmt.Errorf("%w: %s", ErrUnknownPreset, name)
	}
	return p, nil
}

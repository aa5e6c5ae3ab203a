// Package config loads a project's .symi.yaml, pinning default MIDI
// export tolerances so `symi export-midi`/`validate-midi` don't need
// every flag spelled out on each invocation.
//
// Grounded on praetorian-inc-titus's pkg/validator/yaml.go: a plain
// struct with yaml tags, unmarshaled with gopkg.in/yaml.v3 and wrapped
// in a descriptive error.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ExportConfig mirrors the flags accepted by `symi export-midi` and
// `symi validate-midi`, matching the validate-midi/export-midi
// parameter list.
type ExportConfig struct {
	BendRangeSemitones int     `yaml:"bend_range_semitones"`
	TicksPerQuarter    int     `yaml:"ticks_per_quarter"`
	TimeToleranceSec   float64 `yaml:"time_tolerance_seconds"`
	PitchToleranceCents float64 `yaml:"pitch_tolerance_cents"`
}

// Config is the root shape of .symi.yaml.
type Config struct {
	Export ExportConfig `yaml:"export"`
}

// Default returns the built-in tolerances used when no project config
// is present or a field is left unset.
func Default() Config {
	return Config{Export: ExportConfig{
		BendRangeSemitones:  2,
		TicksPerQuarter:     480,
		TimeToleranceSec:    0.002,
		PitchToleranceCents: 1.0,
	}}
}

// Load reads and parses a .symi.yaml file, filling in defaults for any
// zero-valued field left unset by the project.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	return applyDefaults(cfg), nil
}

// LoadOrDefault loads path if it exists, otherwise returns Default()
// silently; a missing project config is the common case, not an error.
func LoadOrDefault(path string) Config {
	if _, err := os.Stat(path); err != nil {
		return Default()
	}
	cfg, err := Load(path)
	if err != nil {
		return Default()
	}
	return cfg
}

func applyDefaults(cfg Config) Config {
	d := Default()
	if cfg.Export.BendRangeSemitones == 0 {
		cfg.Export.BendRangeSemitones = d.Export.BendRangeSemitones
	}
	if cfg.Export.TicksPerQuarter == 0 {
		cfg.Export.TicksPerQuarter = d.Export.TicksPerQuarter
	}
	if cfg.Export.TimeToleranceSec == 0 {
		cfg.Export.TimeToleranceSec = d.Export.TimeToleranceSec
	}
	if cfg.Export.PitchToleranceCents == 0 {
		cfg.Export.PitchToleranceCents = d.Export.PitchToleranceCents
	}
	return cfg
}

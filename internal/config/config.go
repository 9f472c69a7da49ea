// ABOUTME: YAML configuration file with defaults
// ABOUTME: Load overlays the file on Default; Engine converts it to an engine config
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tonearm-audio/tonearm/pkg/tonearm"
	"gopkg.in/yaml.v3"
)

// File is the on-disk configuration
type File struct {
	ExclusiveMode bool          `yaml:"exclusive_mode"`
	Device        string        `yaml:"device"`
	Volume        float32       `yaml:"volume"`
	SharedBackend string        `yaml:"shared_backend"`
	Buffer        Buffer        `yaml:"buffer"`
	Visualization Visualization `yaml:"visualization"`
	EQ            EQ            `yaml:"eq"`
}

// Buffer sizes the decode buffer
type Buffer struct {
	TargetMs          int `yaml:"target_ms"`
	RefillThresholdMs int `yaml:"refill_threshold_ms"`
}

// Visualization tunes spectrum smoothing and event rates
type Visualization struct {
	Attack             float32 `yaml:"attack"`
	Decay              float32 `yaml:"decay"`
	SpectrumIntervalMs int     `yaml:"spectrum_interval_ms"`
	PositionIntervalMs int     `yaml:"position_interval_ms"`
}

// EQ is the startup equalizer state
type EQ struct {
	Enabled bool      `yaml:"enabled"`
	Preset  string    `yaml:"preset"`
	Gains   []float32 `yaml:"gains"`
	Preamp  float32   `yaml:"preamp"`
}

// Default returns the built-in configuration
func Default() File {
	return File{
		Volume:        1,
		SharedBackend: tonearm.BackendMalgo,
		Buffer: Buffer{
			RefillThresholdMs: 100,
		},
		Visualization: Visualization{
			Attack:             0.7,
			Decay:              0.15,
			SpectrumIntervalMs: 16,
			PositionIntervalMs: 100,
		},
		EQ: EQ{Preset: "Flat"},
	}
}

// DefaultPath returns the per-user config file location
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "tonearm.yaml"
	}
	return filepath.Join(dir, "tonearm", "config.yaml")
}

// Load reads path over Default. A missing file yields the defaults.
func Load(path string) (File, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks ranges
func (f File) Validate() error {
	if f.Volume < 0 || f.Volume > 1 {
		return fmt.Errorf("volume %g out of range [0, 1]", f.Volume)
	}
	switch f.SharedBackend {
	case "", tonearm.BackendMalgo, tonearm.BackendOto:
	default:
		return fmt.Errorf("unknown shared_backend %q", f.SharedBackend)
	}
	if f.Buffer.TargetMs < 0 || f.Buffer.TargetMs > 3000 {
		return fmt.Errorf("buffer.target_ms %d out of range [0, 3000]", f.Buffer.TargetMs)
	}
	if n := len(f.EQ.Gains); n != 0 && n != 10 {
		return fmt.Errorf("eq.gains needs 10 values, got %d", n)
	}
	return nil
}

// Save writes f to path, creating its directory
func Save(path string, f File) error {
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return os.Rename(tmp, path)
}

// Engine converts the file into an engine config. A zero volume maps to the
// engine default; callers apply a muted volume with SetVolume after start.
func (f File) Engine() tonearm.Config {
	return tonearm.Config{
		Device:            f.Device,
		Volume:            f.Volume,
		SharedBackend:     f.SharedBackend,
		BufferMs:          f.Buffer.TargetMs,
		RefillThresholdMs: f.Buffer.RefillThresholdMs,
		Attack:            f.Visualization.Attack,
		Decay:             f.Visualization.Decay,
		SpectrumInterval:  time.Duration(f.Visualization.SpectrumIntervalMs) * time.Millisecond,
		PositionInterval:  time.Duration(f.Visualization.PositionIntervalMs) * time.Millisecond,
	}
}

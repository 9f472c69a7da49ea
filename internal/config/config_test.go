// ABOUTME: Tests for config loading, saving and the exclusive-mode store
// ABOUTME: Uses temporary files only
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tonearm-audio/tonearm/pkg/tonearm"
)

// FileStore must satisfy the engine's store contract
var _ tonearm.ModeStore = (*FileStore)(nil)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("device: USB DAC\nvolume: 0.5\nvisualization:\n  decay: 0.3\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "USB DAC", cfg.Device)
	assert.Equal(t, float32(0.5), cfg.Volume)
	assert.Equal(t, float32(0.3), cfg.Visualization.Decay)
	assert.Equal(t, float32(0.7), cfg.Visualization.Attack)
	assert.Equal(t, tonearm.BackendMalgo, cfg.SharedBackend)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"volume", "volume: 2\n"},
		{"backend", "shared_backend: alsa\n"},
		{"buffer", "buffer:\n  target_ms: 5000\n"},
		{"gains", "eq:\n  gains: [1, 2, 3]\n"},
		{"syntax", "volume: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	base := Default()
	base.Device = "Speakers"
	require.NoError(t, Save(path, base))

	store := NewFileStore(path)
	enabled, err := store.ExclusiveMode()
	require.NoError(t, err)
	assert.False(t, enabled)

	require.NoError(t, store.SetExclusiveMode(true))
	enabled, err = store.ExclusiveMode()
	require.NoError(t, err)
	assert.True(t, enabled)

	// Other fields survive the rewrite
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Speakers", cfg.Device)
}

func TestEngineConfig(t *testing.T) {
	cfg := Default()
	cfg.Buffer.TargetMs = 1500
	ec := cfg.Engine()

	assert.Equal(t, 1500, ec.BufferMs)
	assert.Equal(t, 16*time.Millisecond, ec.SpectrumInterval)
	assert.Equal(t, 100*time.Millisecond, ec.PositionInterval)
	assert.Equal(t, float32(0.15), ec.Decay)
}

func TestSetupLogging(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tonearm.log")
	closer, err := SetupLogging("debug", path, false)
	require.NoError(t, err)
	require.NoError(t, closer.Close())

	_, err = SetupLogging("loud", path, false)
	assert.Error(t, err)
}

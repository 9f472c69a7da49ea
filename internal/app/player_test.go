// ABOUTME: Tests for player application orchestration
// ABOUTME: Tests command handling, EQ restore, settings persistence and the run lifecycle
package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonearm-audio/tonearm/internal/config"
	"github.com/tonearm-audio/tonearm/internal/ui"
	"github.com/tonearm-audio/tonearm/pkg/audio"
	"github.com/tonearm-audio/tonearm/pkg/audio/exclusive"
	"github.com/tonearm-audio/tonearm/pkg/audio/output"
	"github.com/tonearm-audio/tonearm/pkg/tonearm"
)

// nullBackend discards samples as fast as they arrive
type nullBackend struct {
	mu     sync.Mutex
	format audio.DeviceFormat
}

func (b *nullBackend) Open(f audio.DeviceFormat) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.format = f
	return nil
}

func (b *nullBackend) Format() audio.DeviceFormat {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.format
}

func (b *nullBackend) Write([]float32) error { return nil }
func (b *nullBackend) Buffered() int         { return 0 }
func (b *nullBackend) Flush()                {}
func (b *nullBackend) Pause() error          { return nil }
func (b *nullBackend) Resume() error         { return nil }
func (b *nullBackend) DeviceName() string    { return "" }
func (b *nullBackend) Close() error          { return nil }

type listCatalog []output.DeviceInfo

func (c listCatalog) Devices() ([]output.DeviceInfo, error) { return c, nil }

// recorder collects messages sent to the TUI
type recorder struct {
	mu   sync.Mutex
	msgs []tea.Msg
}

func (r *recorder) Send(msg tea.Msg) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func (r *recorder) notices() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, m := range r.msgs {
		if n, ok := m.(ui.NoticeMsg); ok {
			out = append(out, n.Text)
		}
	}
	return out
}

func newEngine(t *testing.T) *tonearm.Engine {
	t.Helper()

	engine, err := tonearm.NewEngine(tonearm.Config{
		SessionWait: 5 * time.Millisecond,
		Catalog:     listCatalog{{Name: "Speakers", IsDefault: true}},
		NewBackend: func(string) (output.Backend, error) {
			return &nullBackend{}, nil
		},
		OpenExclusive: func(string) (exclusive.Client, error) {
			return nil, exclusive.ErrExclusiveUnavailable
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })
	return engine
}

func writeSilence(t *testing.T, seconds float64) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "silence.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	enc := wav.NewEncoder(f, 44100, 16, 2, 1)
	require.NoError(t, enc.Write(&goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 2, SampleRate: 44100},
		Data:           make([]int, int(44100*seconds)*2),
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
	return path
}

func TestNewPlayerDefaults(t *testing.T) {
	player := New(newEngine(t), Config{}, nil, nil)

	assert.Equal(t, 250*time.Millisecond, player.config.StatusInterval)
	assert.Equal(t, tonearm.DefaultMonitorInterval, player.config.MonitorInterval)
}

func TestApplyVolumeAndEQ(t *testing.T) {
	engine := newEngine(t)
	player := New(engine, Config{}, nil, nil)

	require.NoError(t, player.apply(ui.Command{Kind: ui.CmdVolume, Volume: 40}))
	assert.InDelta(t, 0.4, engine.Status().Volume, 1e-6)

	require.NoError(t, player.apply(ui.Command{Kind: ui.CmdToggleEQ}))
	assert.True(t, engine.EQ().Enabled())
	require.NoError(t, player.apply(ui.Command{Kind: ui.CmdToggleEQ}))
	assert.False(t, engine.EQ().Enabled())
}

func TestNextPresetCycles(t *testing.T) {
	engine := newEngine(t)
	player := New(engine, Config{}, nil, nil)
	presets := engine.EQ().Presets()

	require.NoError(t, engine.EQ().ApplyPreset(presets[0].Name))
	require.NoError(t, player.apply(ui.Command{Kind: ui.CmdNextPreset}))
	assert.Equal(t, presets[1].Name, engine.EQ().Preset())
	assert.True(t, engine.EQ().Enabled())

	require.NoError(t, engine.EQ().ApplyPreset(presets[len(presets)-1].Name))
	require.NoError(t, player.apply(ui.Command{Kind: ui.CmdNextPreset}))
	assert.Equal(t, presets[0].Name, engine.EQ().Preset())
}

func TestSeekWithoutTrack(t *testing.T) {
	player := New(newEngine(t), Config{}, nil, nil)

	err := player.apply(ui.Command{Kind: ui.CmdSeek, Seconds: 3})
	assert.ErrorIs(t, err, tonearm.ErrNoTrackLoaded)
}

func TestTogglePause(t *testing.T) {
	engine := newEngine(t)
	player := New(engine, Config{}, nil, nil)

	require.NoError(t, player.apply(ui.Command{Kind: ui.CmdTogglePause}))
	assert.True(t, engine.Status().Paused)
	require.NoError(t, player.apply(ui.Command{Kind: ui.CmdTogglePause}))
	assert.False(t, engine.Status().Paused)
}

func TestToggleExclusiveNotice(t *testing.T) {
	engine := newEngine(t)
	rec := &recorder{}
	player := New(engine, Config{}, nil, rec)

	require.NoError(t, player.apply(ui.Command{Kind: ui.CmdToggleExclusive}))

	enabled, err := engine.ExclusiveModeSetting()
	require.NoError(t, err)
	assert.True(t, enabled)

	notices := rec.notices()
	require.Len(t, notices, 1)
	assert.Contains(t, notices[0], "RESTART_REQUIRED")
}

func TestApplyEQPresetWins(t *testing.T) {
	engine := newEngine(t)
	gains := make([]float32, 10)
	gains[0] = 6

	require.NoError(t, ApplyEQ(engine.EQ(), config.EQ{Enabled: true, Preset: "Rock", Gains: gains, Preamp: -2}))

	values := engine.EQ().Values()
	assert.Equal(t, "Rock", values.Preset)
	assert.True(t, values.Enabled)
	assert.Equal(t, float32(-2), values.Preamp)
}

func TestApplyEQCustomGains(t *testing.T) {
	engine := newEngine(t)
	gains := make([]float32, 10)
	gains[3] = 2.5

	require.NoError(t, ApplyEQ(engine.EQ(), config.EQ{Gains: gains}))

	values := engine.EQ().Values()
	assert.Equal(t, "", values.Preset)
	assert.Equal(t, float32(2.5), values.Gains[3])
}

func TestApplyEQUnknownPreset(t *testing.T) {
	err := ApplyEQ(newEngine(t).EQ(), config.EQ{Preset: "Polka"})
	assert.Error(t, err)
}

func TestSaveKeepsOtherFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	file := config.Default()
	file.ExclusiveMode = true
	file.Device = "USB DAC"
	require.NoError(t, config.Save(path, file))

	engine := newEngine(t)
	require.NoError(t, engine.SetVolume(0.3))
	require.NoError(t, engine.EQ().ApplyPreset("Jazz"))
	engine.EQ().SetEnabled(true)

	player := New(engine, Config{ConfigPath: path}, nil, nil)
	require.NoError(t, player.Save())

	saved, err := config.Load(path)
	require.NoError(t, err)
	assert.True(t, saved.ExclusiveMode)
	assert.Equal(t, "USB DAC", saved.Device)
	assert.InDelta(t, 0.3, saved.Volume, 1e-6)
	assert.Equal(t, "Jazz", saved.EQ.Preset)
	assert.True(t, saved.EQ.Enabled)
	assert.Empty(t, saved.EQ.Gains)
}

func TestSaveWithoutPath(t *testing.T) {
	player := New(newEngine(t), Config{}, nil, nil)
	assert.NoError(t, player.Save())
}

func TestRunExitsOnTrackEnd(t *testing.T) {
	engine := newEngine(t)
	player := New(engine, Config{
		Path:            writeSilence(t, 0.1),
		ExitOnEnd:       true,
		StatusInterval:  10 * time.Millisecond,
		MonitorInterval: 10 * time.Millisecond,
	}, nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- player.Run(ctx) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
		assert.NoError(t, ctx.Err(), "run should end before the timeout")
	case <-time.After(6 * time.Second):
		t.Fatal("run did not return")
	}
}

func TestRunQuitFromTUI(t *testing.T) {
	control := ui.NewControl()
	rec := &recorder{}
	player := New(newEngine(t), Config{StatusInterval: 5 * time.Millisecond}, control, rec)

	done := make(chan error, 1)
	go func() { done <- player.Run(context.Background()) }()

	control.Commands <- ui.Command{Kind: ui.CmdVolume, Volume: 50}
	control.Quit <- struct{}{}

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("run did not return after quit")
	}
}

func TestRunMissingFile(t *testing.T) {
	player := New(newEngine(t), Config{Path: filepath.Join(t.TempDir(), "missing.flac")}, nil, nil)

	err := player.Run(context.Background())
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "play "))
}

func TestDeviceEventNotice(t *testing.T) {
	rec := &recorder{}
	player := New(newEngine(t), Config{}, nil, rec)

	player.deviceEvent(tonearm.DeviceEvent{Kind: tonearm.DeviceFallback, Name: "USB DAC", From: "USB DAC"})

	notices := rec.notices()
	require.Len(t, notices, 1)
	assert.Equal(t, "USB DAC disconnected, playing on the default device", notices[0])
}

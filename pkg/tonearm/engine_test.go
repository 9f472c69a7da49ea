// ABOUTME: Tests for the playback engine
// ABOUTME: Drives commands against recording devices and checks session ordering and events
package tonearm

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tonearm-audio/tonearm/pkg/audio/exclusive"
)

func waitTrackEnded(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case <-sub.TrackEnded:
	case <-time.After(5 * time.Second):
		t.Fatal("track-ended not received")
	}
}

func TestNewEngineDefaults(t *testing.T) {
	e, _ := testEngine(t, nil)

	assert.Equal(t, 80*time.Millisecond, e.config.FadeIn)
	assert.Equal(t, 50*time.Millisecond, e.config.SeekFadeIn)
	assert.Equal(t, 2*time.Second, e.config.HighWater)
	assert.Equal(t, BackendMalgo, e.config.SharedBackend)

	s := e.Status()
	assert.False(t, s.Playing)
	assert.Equal(t, float32(1), s.Volume)
	assert.Equal(t, ModeShared, s.Mode)
}

func TestPlaySharedToEnd(t *testing.T) {
	e, backend := testEngine(t, nil)
	path := writeLevelWAV(t, "a.wav", 44100, 0.5, 8192)
	sub := e.Subscribe()

	require.NoError(t, e.Play(path, nil))
	s := e.Status()
	assert.True(t, s.Playing)
	assert.Equal(t, path, s.Path)
	assert.InDelta(t, 0.5, s.Duration, 0.001)

	waitTrackEnded(t, sub)
	assert.Len(t, backend.written(), 44100)
	assert.True(t, e.IsFinished())
	assert.False(t, e.Status().Playing)
	assert.InDelta(t, 0.5, e.Status().Position, 0.001)
}

func TestSeekWithoutTrack(t *testing.T) {
	e, _ := testEngine(t, nil)

	err := e.Seek(1)
	assert.ErrorIs(t, err, ErrNoTrackLoaded)
	assert.Equal(t, "No track currently loaded", err.Error())
}

func TestSeekRestartsAtPosition(t *testing.T) {
	e, backend := testEngine(t, nil)
	path := writeLevelWAV(t, "a.wav", 44100, 2, 8192)
	sub := e.Subscribe()

	require.NoError(t, e.Play(path, nil))
	waitTrackEnded(t, sub)
	before := len(backend.written())

	require.NoError(t, e.Seek(1.5))
	waitTrackEnded(t, sub)

	// Half a second of stereo remains after the seek point
	assert.Equal(t, 44100, len(backend.written())-before)
	assert.InDelta(t, 2.0, e.Status().Position, 0.001)
}

func TestSetVolumeValidation(t *testing.T) {
	e, _ := testEngine(t, nil)

	assert.ErrorIs(t, e.SetVolume(1.5), ErrInvalidVolume)
	assert.ErrorIs(t, e.SetVolume(-0.1), ErrInvalidVolume)
	require.NoError(t, e.SetVolume(0.3))
	assert.Equal(t, float32(0.3), e.Status().Volume)
	assert.Equal(t, float32(0.3), e.sink.Volume())
}

func TestVolumeScalesOutput(t *testing.T) {
	e, backend := testEngine(t, nil)
	path := writeLevelWAV(t, "a.wav", 44100, 0.5, 8192)
	sub := e.Subscribe()

	require.NoError(t, e.SetVolume(0.5))
	require.NoError(t, e.Play(path, nil))
	waitTrackEnded(t, sub)

	out := backend.written()
	require.NotEmpty(t, out)
	assert.InDelta(t, 0.125, out[len(out)-1], 1e-6)
}

func TestSetExclusiveModeRequiresRestart(t *testing.T) {
	store := &MemoryStore{}
	e, _ := testEngine(t, func(c *Config) { c.Store = store })

	err := e.SetExclusiveMode(true)
	require.ErrorIs(t, err, ErrRestartRequired)
	assert.True(t, strings.HasPrefix(err.Error(), "RESTART_REQUIRED:"))

	enabled, _ := store.ExclusiveMode()
	assert.True(t, enabled)

	// Unchanged value is accepted silently
	assert.NoError(t, e.SetExclusiveMode(true))
	// The running mode does not change until restart
	assert.Equal(t, ModeShared, e.Status().Mode)
}

func TestStatusUnderContention(t *testing.T) {
	e, _ := testEngine(t, nil)
	require.NoError(t, e.SetVolume(0.4))

	e.mu.Lock()
	s := e.Status()
	finished := e.IsFinished()
	e.mu.Unlock()

	assert.Equal(t, Status{Volume: 1}, s)
	assert.False(t, finished)
}

func TestPauseResume(t *testing.T) {
	e, backend := testEngine(t, nil)
	backend.delay = time.Millisecond
	path := writeLevelWAV(t, "a.wav", 44100, 3, 8192)

	require.NoError(t, e.Play(path, nil))
	require.NoError(t, e.Pause())
	s := e.Status()
	assert.True(t, s.Paused)
	assert.False(t, s.Playing)
	assert.False(t, e.IsFinished())

	require.NoError(t, e.Resume())
	assert.True(t, e.Status().Playing)
}

func TestSessionReplacementOrdering(t *testing.T) {
	e, backend := testEngine(t, nil)
	backend.delay = time.Millisecond
	first := writeLevelWAV(t, "first.wav", 44100, 3, 8192)
	second := writeLevelWAV(t, "second.wav", 44100, 0.5, -8192)
	sub := e.Subscribe()

	require.NoError(t, e.Play(first, nil))
	require.Eventually(t, func() bool { return len(backend.written()) > 0 }, time.Second, time.Millisecond)
	require.NoError(t, e.Play(second, nil))
	waitTrackEnded(t, sub)

	out := backend.written()
	boundary := -1
	for i, v := range out {
		if v < 0 {
			boundary = i
			break
		}
	}
	require.GreaterOrEqual(t, boundary, 0, "second track never reached the device")
	for i := boundary; i < len(out); i++ {
		require.LessOrEqual(t, out[i], float32(0), "first-session sample at %d after second session started", i)
	}
	// The first track was cut short
	assert.Less(t, boundary, 3*44100*2)
}

func TestPlayMissingFile(t *testing.T) {
	e, _ := testEngine(t, nil)
	assert.Error(t, e.Play("/nonexistent/track.flac", nil))
	assert.False(t, e.Status().Playing)
}

func TestExclusiveUnavailableFallsBackToShared(t *testing.T) {
	store := &MemoryStore{}
	require.NoError(t, store.SetExclusiveMode(true))
	e, _ := testEngine(t, func(c *Config) { c.Store = store })

	assert.Equal(t, ModeShared, e.Status().Mode)
}

func TestExclusivePlayback(t *testing.T) {
	store := &MemoryStore{}
	require.NoError(t, store.SetExclusiveMode(true))
	device := &fakeDevice{name: "USB DAC"}
	e, backend := testEngine(t, func(c *Config) {
		c.Store = store
		c.OpenExclusive = func(string) (exclusive.Client, error) { return device, nil }
	})
	require.Equal(t, ModeExclusive, e.Status().Mode)

	sub := e.Subscribe()
	path := writeLevelWAV(t, "a.wav", 44100, 0.5, 8192)
	require.NoError(t, e.Play(path, nil))

	waitTrackEnded(t, sub)
	// 0.5s resampled to 48kHz stereo float32
	assert.GreaterOrEqual(t, device.written(), 48000*4)
	assert.Empty(t, backend.written())
	assert.True(t, e.IsFinished())
}

func exclusiveEngine(t *testing.T, device *fakeDevice) *Engine {
	t.Helper()

	store := &MemoryStore{}
	require.NoError(t, store.SetExclusiveMode(true))
	e, _ := testEngine(t, func(c *Config) {
		c.Store = store
		c.OpenExclusive = func(string) (exclusive.Client, error) { return device, nil }
	})
	require.Equal(t, ModeExclusive, e.Status().Mode)
	return e
}

func TestExclusiveSessionReplacementOrdering(t *testing.T) {
	// 48kHz files reach the device without resampling, so levels stay exact
	device := &fakeDevice{name: "USB DAC", period: 480, record: true}
	e := exclusiveEngine(t, device)
	first := writeLevelWAV(t, "first.wav", 48000, 3, 8192)
	second := writeLevelWAV(t, "second.wav", 48000, 0.5, -8192)
	sub := e.Subscribe()

	require.NoError(t, e.Play(first, nil))
	require.Eventually(t, func() bool {
		for _, v := range device.recorded() {
			if v > 0 {
				return true
			}
		}
		return false
	}, 2*time.Second, time.Millisecond)
	require.NoError(t, e.Play(second, nil))
	waitTrackEnded(t, sub)

	out := device.recorded()
	boundary := -1
	for i, v := range out {
		if v < 0 {
			boundary = i
			break
		}
	}
	require.GreaterOrEqual(t, boundary, 0, "second track never reached the device")
	for i := boundary; i < len(out); i++ {
		require.LessOrEqual(t, out[i], float32(0), "first-session sample at %d after second session started", i)
	}

	// The first track was cut short; underruns add zeros, so count its samples
	played := 0
	for _, v := range out[:boundary] {
		if v > 0 {
			played++
		}
	}
	assert.Less(t, played, 3*48000*2)
}

func TestExclusiveWriteFailureEndsSession(t *testing.T) {
	device := &fakeDevice{name: "USB DAC", period: 480, failAfter: 3}
	e := exclusiveEngine(t, device)
	sub := e.Subscribe()

	require.NoError(t, e.Play(writeLevelWAV(t, "a.wav", 48000, 3, 8192), nil))
	waitTrackEnded(t, sub)

	assert.Eventually(t, func() bool { return !e.Status().Playing && e.IsFinished() }, time.Second, 5*time.Millisecond)
	assert.Equal(t, exclusive.StateStopped, e.actor.State())

	// a later Play restarts the device
	device.mu.Lock()
	device.failAfter = 0
	device.mu.Unlock()
	require.NoError(t, e.Play(writeLevelWAV(t, "b.wav", 48000, 0.2, 8192), nil))
	waitTrackEnded(t, sub)
}

func TestSetDeviceSharedAndUnknown(t *testing.T) {
	e, backend := testEngine(t, nil)

	err := e.SetDevice("HDMI")
	assert.ErrorIs(t, err, ErrDeviceNotFound)

	require.NoError(t, e.SetDevice("USB DAC"))
	assert.Equal(t, "USB DAC", e.CurrentDevice())
	assert.Equal(t, "USB DAC", backend.name)
	assert.Equal(t, "USB DAC", e.Status().Device)
}

func TestSetDeviceResumesPlayback(t *testing.T) {
	e, backend := testEngine(t, nil)
	backend.delay = time.Millisecond
	path := writeLevelWAV(t, "a.wav", 44100, 3, 8192)

	require.NoError(t, e.Play(path, nil))
	require.Eventually(t, func() bool { return len(backend.written()) > 0 }, time.Second, time.Millisecond)

	require.NoError(t, e.SetDevice("USB DAC"))
	s := e.Status()
	assert.True(t, s.Playing)
	assert.Equal(t, path, s.Path)
}

func TestTrackEndsAfterDeviceSwitch(t *testing.T) {
	e, backend := testEngine(t, nil)
	backend.delay = time.Millisecond
	sub := e.Subscribe()

	require.NoError(t, e.Play(writeLevelWAV(t, "a.wav", 44100, 2, 8192), nil))
	require.Eventually(t, func() bool { return len(backend.written()) > 0 }, time.Second, time.Millisecond)

	// the first session's watcher holds the old sink while SetDevice swaps it
	for _, name := range []string{"USB DAC", "Speakers", "USB DAC"} {
		require.NoError(t, e.SetDevice(name))
	}
	waitTrackEnded(t, sub)
	assert.Eventually(t, e.IsFinished, time.Second, 5*time.Millisecond)
}

func TestSetDeviceExclusiveRollback(t *testing.T) {
	store := &MemoryStore{}
	require.NoError(t, store.SetExclusiveMode(true))
	e, _ := testEngine(t, func(c *Config) {
		c.Store = store
		c.OpenExclusive = func(name string) (exclusive.Client, error) {
			if name == "USB DAC" {
				return nil, errors.New("device in use")
			}
			return &fakeDevice{name: "Speakers"}, nil
		}
	})
	require.Equal(t, ModeExclusive, e.Status().Mode)

	err := e.SetDevice("USB DAC")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "switched to shared mode")
	assert.Contains(t, err.Error(), "device in use")

	s := e.Status()
	assert.Equal(t, ModeShared, s.Mode)
	assert.Equal(t, "USB DAC", s.Device)
}

func TestDevicesReportModeStatus(t *testing.T) {
	e, _ := testEngine(t, nil)

	devices, err := e.Devices()
	require.NoError(t, err)
	require.Len(t, devices, 2)
	assert.Equal(t, StatusSharedOnly, devices[0].AudioModeStatus)
	assert.Equal(t, StatusInactive, devices[1].AudioModeStatus)

	require.NoError(t, e.SetDevice("USB DAC"))
	devices, err = e.Devices()
	require.NoError(t, err)
	assert.Equal(t, StatusInactive, devices[0].AudioModeStatus)
	assert.Equal(t, StatusExclusiveAvailable, devices[1].AudioModeStatus)
	assert.False(t, devices[1].IsExclusiveMode)
}

func TestDevicesExclusiveActive(t *testing.T) {
	store := &MemoryStore{}
	require.NoError(t, store.SetExclusiveMode(true))
	e, _ := testEngine(t, func(c *Config) {
		c.Store = store
		c.OpenExclusive = func(string) (exclusive.Client, error) { return &fakeDevice{name: "Speakers"}, nil }
	})

	devices, err := e.Devices()
	require.NoError(t, err)
	assert.True(t, devices[0].IsExclusiveMode)
	assert.Equal(t, StatusExclusiveActive, devices[0].AudioModeStatus)
}

func TestEQControllerReachesPipeline(t *testing.T) {
	e, backend := testEngine(t, nil)
	path := writeLevelWAV(t, "a.wav", 44100, 0.5, 8192)
	sub := e.Subscribe()

	e.EQ().SetEnabled(true)
	e.EQ().SetPreamp(-6)
	require.NoError(t, e.Play(path, nil))
	waitTrackEnded(t, sub)

	out := backend.written()
	require.NotEmpty(t, out)
	// -6 dB preamp roughly halves a DC level that the peaking bands leave alone at unity
	assert.Less(t, out[len(out)-1], float32(0.25))
}

func TestCloseIsIdempotent(t *testing.T) {
	e, backend := testEngine(t, nil)
	require.NoError(t, e.Close())
	require.NoError(t, e.Close())
	assert.True(t, backend.closed)
	assert.Error(t, e.Play("x.wav", nil))
}

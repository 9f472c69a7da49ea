// ABOUTME: Test fixtures for the engine
// ABOUTME: Constant-level WAV files, a recording backend, a static catalog and a fake exclusive client
package tonearm

import (
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/require"
	"github.com/tonearm-audio/tonearm/pkg/audio"
	"github.com/tonearm-audio/tonearm/pkg/audio/exclusive"
	"github.com/tonearm-audio/tonearm/pkg/audio/output"
)

// writeLevelWAV writes a stereo 16-bit file holding one constant value
func writeLevelWAV(t *testing.T, name string, rate int, seconds float64, level int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	data := make([]int, int(float64(rate)*seconds)*2)
	for i := range data {
		data[i] = level
	}

	enc := wav.NewEncoder(f, rate, 16, 2, 1)
	require.NoError(t, enc.Write(&goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 2, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
	return path
}

// recordingBackend keeps every sample the sink writes
type recordingBackend struct {
	mu      sync.Mutex
	name    string
	format  audio.DeviceFormat
	samples []float32
	delay   time.Duration
	closed  bool
}

func (b *recordingBackend) Open(f audio.DeviceFormat) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.format = f
	return nil
}

func (b *recordingBackend) Format() audio.DeviceFormat {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.format
}

func (b *recordingBackend) Write(s []float32) error {
	if b.delay > 0 {
		time.Sleep(b.delay)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.samples = append(b.samples, s...)
	return nil
}

func (b *recordingBackend) Buffered() int      { return 0 }
func (b *recordingBackend) Flush()             {}
func (b *recordingBackend) Pause() error       { return nil }
func (b *recordingBackend) Resume() error      { return nil }
func (b *recordingBackend) DeviceName() string { return b.name }

func (b *recordingBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func (b *recordingBackend) written() []float32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]float32(nil), b.samples...)
}

// staticCatalog is a mutable device list
type staticCatalog struct {
	mu      sync.Mutex
	devices []output.DeviceInfo
}

func (c *staticCatalog) Devices() ([]output.DeviceInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]output.DeviceInfo(nil), c.devices...), nil
}

func (c *staticCatalog) set(devices ...output.DeviceInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.devices = devices
}

func defaultCatalog() *staticCatalog {
	c := &staticCatalog{}
	c.set(
		output.DeviceInfo{Name: "Speakers", IsDefault: true},
		output.DeviceInfo{Name: "USB DAC", SupportsExclusive: true},
	)
	return c
}

// fakeDevice is an exclusive client that asks for a period every millisecond
type fakeDevice struct {
	mu      sync.Mutex
	name    string
	format  audio.DeviceFormat
	running bool
	bytes   int

	// period is the frames requested per wakeup, 4800 when zero
	period int
	// failAfter makes every write after the first failAfter writes fail
	failAfter int
	// record keeps the decoded float32 samples
	record  bool
	writes  int
	samples []float32
}

func (d *fakeDevice) Name() string { return d.name }

func (d *fakeDevice) MixFormat() (audio.DeviceFormat, error) {
	return audio.DeviceFormat{SampleRate: 48000, Channels: 2}, nil
}

func (d *fakeDevice) Supports(f audio.DeviceFormat) bool {
	return f.SampleRate == 48000 && f.Channels == 2 && f.Sample == audio.SampleFormatFloat32
}

func (d *fakeDevice) Open(f audio.DeviceFormat) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.format = f
	return nil
}

func (d *fakeDevice) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.running = true
	return nil
}

func (d *fakeDevice) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.running = false
	return nil
}

func (d *fakeDevice) WaitReady(time.Duration) (int, bool) {
	time.Sleep(time.Millisecond)
	if d.period > 0 {
		return d.period, true
	}
	return 4800, true
}

func (d *fakeDevice) Write(data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failAfter > 0 && d.writes >= d.failAfter {
		return errors.New("device unplugged")
	}
	d.writes++
	d.bytes += len(data)
	if d.record {
		for i := 0; i+4 <= len(data); i += 4 {
			d.samples = append(d.samples, math.Float32frombits(binary.LittleEndian.Uint32(data[i:])))
		}
	}
	return nil
}

func (d *fakeDevice) recorded() []float32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]float32(nil), d.samples...)
}

func (d *fakeDevice) Close() error { return nil }

func (d *fakeDevice) written() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.bytes
}

// testEngine builds an engine on in-memory devices
func testEngine(t *testing.T, tweak func(c *Config)) (*Engine, *recordingBackend) {
	t.Helper()

	backend := &recordingBackend{}
	cfg := Config{
		SessionWait: 5 * time.Millisecond,
		Catalog:     defaultCatalog(),
		NewBackend: func(device string) (output.Backend, error) {
			backend.name = device
			return backend, nil
		},
		OpenExclusive: func(string) (exclusive.Client, error) {
			return nil, exclusive.ErrExclusiveUnavailable
		},
	}
	if tweak != nil {
		tweak(&cfg)
	}

	e, err := NewEngine(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e, backend
}

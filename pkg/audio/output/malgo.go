// ABOUTME: Malgo-based shared-mode output backend
// ABOUTME: Opens a named or default device in float32 and feeds it from a ring buffer
package output

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gen2brain/malgo"
	"github.com/rs/zerolog/log"
	"github.com/tonearm-audio/tonearm/pkg/audio"
)

// ringMs is the device-side buffer length
const ringMs = 500

// MalgoBackend plays through miniaudio in shared mode
type MalgoBackend struct {
	deviceName string

	mu       sync.Mutex
	malgoCtx *malgo.AllocatedContext
	device   *malgo.Device
	format   audio.DeviceFormat
	ring     *RingBuffer
	scratch  []float32
	closed   bool
	underrun bool
}

// NewMalgo creates a backend for deviceName, or the system default when empty
func NewMalgo(deviceName string) *MalgoBackend {
	return &MalgoBackend{deviceName: deviceName}
}

// DeviceName returns the requested device
func (m *MalgoBackend) DeviceName() string { return m.deviceName }

// Format returns the open format
func (m *MalgoBackend) Format() audio.DeviceFormat {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.format
}

// Open initializes the device for format, reinitializing on a format change
func (m *MalgoBackend) Open(format audio.DeviceFormat) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	format.Sample = audio.SampleFormatFloat32

	// If already initialized with same format, reuse
	if m.device != nil && m.format == format {
		return nil
	}

	if m.device != nil {
		log.Debug().Msgf("format change %s -> %s, reinitializing device", m.format, format)
		m.closeDevice()
	}

	if m.malgoCtx == nil {
		ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
		if err != nil {
			return fmt.Errorf("failed to initialize malgo context: %w", err)
		}
		m.malgoCtx = ctx
	}

	m.ring = NewRingBuffer(format.SampleRate * format.Channels * ringMs / 1000)

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatF32
	deviceConfig.Playback.Channels = uint32(format.Channels)
	deviceConfig.SampleRate = uint32(format.SampleRate)
	deviceConfig.Alsa.NoMMap = 1

	if m.deviceName != "" {
		id, err := findDevice(m.malgoCtx.Context, m.deviceName)
		if err != nil {
			return err
		}
		deviceConfig.Playback.DeviceID = id.Pointer()
	}

	ring := m.ring
	deviceCallbacks := malgo.DeviceCallbacks{
		Data: func(pOutputSample, _ []byte, frameCount uint32) {
			m.dataCallback(ring, pOutputSample, int(frameCount)*format.Channels)
		},
	}

	device, err := malgo.InitDevice(m.malgoCtx.Context, deviceConfig, deviceCallbacks)
	if err != nil {
		return fmt.Errorf("failed to initialize playback device: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		return fmt.Errorf("failed to start device: %w", err)
	}

	m.device = device
	m.format = format
	log.Info().Str("device", m.displayName()).Msgf("shared output opened at %s", format)
	return nil
}

func (m *MalgoBackend) displayName() string {
	if m.deviceName == "" {
		return "default"
	}
	return m.deviceName
}

// dataCallback runs on the audio thread and must not block
func (m *MalgoBackend) dataCallback(ring *RingBuffer, out []byte, samples int) {
	if cap(m.scratch) < samples {
		m.scratch = make([]float32, samples)
	}
	buf := m.scratch[:samples]
	n := ring.Read(buf)

	if n < samples && n > 0 && !m.underrun {
		m.underrun = true
		log.Debug().Int("missing", samples-n).Msg("shared output underrun")
	} else if n == samples {
		m.underrun = false
	}

	for i, v := range buf {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
}

// Write queues samples, waiting for the callback to drain space
func (m *MalgoBackend) Write(samples []float32) error {
	m.mu.Lock()
	ring, format := m.ring, m.format
	m.mu.Unlock()

	if ring == nil {
		return ErrNotOpen
	}

	period := time.Duration(ringMs/10) * time.Millisecond
	written := 0
	for written < len(samples) {
		n := ring.Write(samples[written:])
		written += n
		if n > 0 {
			continue
		}

		m.mu.Lock()
		stale := m.closed || m.ring != ring || m.format != format
		m.mu.Unlock()
		if stale {
			return ErrClosed
		}
		ring.WaitWritable(period)
	}
	return nil
}

// Buffered returns samples waiting in the ring
func (m *MalgoBackend) Buffered() int {
	m.mu.Lock()
	ring := m.ring
	m.mu.Unlock()
	if ring == nil {
		return 0
	}
	return ring.Available()
}

// Flush drops queued samples
func (m *MalgoBackend) Flush() {
	m.mu.Lock()
	ring := m.ring
	m.mu.Unlock()
	if ring != nil {
		ring.Clear()
	}
}

func (m *MalgoBackend) Pause() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.device == nil {
		return nil
	}
	return m.device.Stop()
}

func (m *MalgoBackend) Resume() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.device == nil {
		return nil
	}
	return m.device.Start()
}

// Close releases output resources
func (m *MalgoBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.closeDevice()

	if m.malgoCtx != nil {
		if err := m.malgoCtx.Uninit(); err != nil {
			log.Warn().Err(err).Msg("malgo context uninit")
		}
		m.malgoCtx.Free()
		m.malgoCtx = nil
	}
	return nil
}

// closeDevice stops and uninitializes the device (must hold m.mu)
func (m *MalgoBackend) closeDevice() {
	if m.device == nil {
		return
	}
	if err := m.device.Stop(); err != nil {
		log.Warn().Err(err).Msg("device stop")
	}
	m.device.Uninit()
	m.device = nil
	m.format = audio.DeviceFormat{}
	if m.ring != nil {
		m.ring.Clear()
	}
}

// findDevice resolves a playback device by name
func findDevice(ctx malgo.Context, name string) (malgo.DeviceID, error) {
	devices, err := ctx.Devices(malgo.Playback)
	if err != nil {
		return malgo.DeviceID{}, fmt.Errorf("enumerate playback devices: %w", err)
	}
	for _, info := range devices {
		if info.Name() == name {
			return info.ID, nil
		}
	}
	return malgo.DeviceID{}, fmt.Errorf("%w: %q", ErrDeviceNotFound, name)
}

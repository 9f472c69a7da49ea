//go:build windows

// ABOUTME: WASAPI exclusive-mode client built on malgo
// ABOUTME: The device callback hands each period to the actor and plays what it writes back
package exclusive

import (
	"fmt"
	"time"

	"github.com/gen2brain/malgo"
	"github.com/rs/zerolog/log"
	"github.com/tonearm-audio/tonearm/pkg/audio"
)

// MalgoClient opens a WASAPI device with ShareMode Exclusive
type MalgoClient struct {
	name string
	ctx  *malgo.AllocatedContext
	id   *malgo.DeviceID

	device *malgo.Device
	format audio.DeviceFormat
	period time.Duration

	ready   chan int
	periods chan []byte
}

// NewClient creates a WASAPI client for deviceName, or the default device when empty
func NewClient(deviceName string) (Client, error) {
	ctx, err := malgo.InitContext([]malgo.Backend{malgo.BackendWasapi}, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize WASAPI context: %w", err)
	}

	c := &MalgoClient{
		ctx:     ctx,
		ready:   make(chan int, 1),
		periods: make(chan []byte, 1),
	}

	devices, err := ctx.Devices(malgo.Playback)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("enumerate playback devices: %w", err)
	}
	for _, d := range devices {
		if (deviceName == "" && d.IsDefault != 0) || (deviceName != "" && d.Name() == deviceName) {
			id := d.ID
			c.id = &id
			c.name = d.Name()
			break
		}
	}
	if c.id == nil && deviceName != "" {
		c.Close()
		return nil, fmt.Errorf("exclusive device %q not found", deviceName)
	}
	if c.name == "" {
		c.name = "default"
	}
	return c, nil
}

func (c *MalgoClient) Name() string { return c.name }

func formatType(f audio.SampleFormat) malgo.FormatType {
	switch f {
	case audio.SampleFormatInt32:
		return malgo.FormatS32
	case audio.SampleFormatInt24:
		return malgo.FormatS24
	case audio.SampleFormatInt16:
		return malgo.FormatS16
	default:
		return malgo.FormatF32
	}
}

func (c *MalgoClient) config(format audio.DeviceFormat, mode malgo.ShareMode) malgo.DeviceConfig {
	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.Playback.Format = formatType(format.Sample)
	cfg.Playback.Channels = uint32(format.Channels)
	cfg.Playback.ShareMode = mode
	cfg.SampleRate = uint32(format.SampleRate)
	if c.id != nil {
		cfg.Playback.DeviceID = c.id.Pointer()
	}
	return cfg
}

// MixFormat opens the device in shared mode with native settings and reads them back
func (c *MalgoClient) MixFormat() (audio.DeviceFormat, error) {
	cfg := c.config(audio.DeviceFormat{}, malgo.Shared)
	cfg.Playback.Format = malgo.FormatUnknown

	dev, err := malgo.InitDevice(c.ctx.Context, cfg, malgo.DeviceCallbacks{})
	if err != nil {
		return audio.DeviceFormat{}, err
	}
	defer dev.Uninit()

	return audio.DeviceFormat{
		SampleRate: int(dev.SampleRate()),
		Channels:   int(dev.PlaybackChannels()),
		Sample:     audio.SampleFormatFloat32,
	}, nil
}

// Supports tries an exclusive open; WASAPI rejects formats it cannot play natively
func (c *MalgoClient) Supports(format audio.DeviceFormat) bool {
	dev, err := malgo.InitDevice(c.ctx.Context, c.config(format, malgo.Exclusive), malgo.DeviceCallbacks{})
	if err != nil {
		return false
	}
	dev.Uninit()
	return true
}

// Open initializes the device. The zero period size selects the low-latency minimum.
func (c *MalgoClient) Open(format audio.DeviceFormat) error {
	if c.device != nil {
		c.device.Uninit()
		c.device = nil
	}

	callbacks := malgo.DeviceCallbacks{Data: c.onData}
	dev, err := malgo.InitDevice(c.ctx.Context, c.config(format, malgo.Exclusive), callbacks)
	if err != nil {
		return fmt.Errorf("failed to initialize exclusive device: %w", err)
	}
	c.device = dev
	c.format = format
	c.period = 10 * time.Millisecond
	return nil
}

// onData runs on the device thread. It asks the actor for a period and
// plays silence if the answer does not arrive within one period.
func (c *MalgoClient) onData(out, _ []byte, frameCount uint32) {
	if rate := c.format.SampleRate; rate > 0 {
		c.period = time.Duration(frameCount) * time.Second / time.Duration(rate)
	}

	select {
	case c.ready <- int(frameCount):
	default:
	}

	select {
	case data := <-c.periods:
		n := copy(out, data)
		clear(out[n:])
	case <-time.After(c.period):
		clear(out)
	}
}

func (c *MalgoClient) WaitReady(timeout time.Duration) (int, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case frames := <-c.ready:
		return frames, true
	case <-timer.C:
		return 0, false
	}
}

// Write queues one period. A period the callback has not collected yet is replaced.
func (c *MalgoClient) Write(data []byte) error {
	if c.device == nil {
		return ErrNotInitialized
	}
	buf := make([]byte, len(data))
	copy(buf, data)

	select {
	case c.periods <- buf:
	default:
		select {
		case <-c.periods:
		default:
		}
		c.periods <- buf
	}
	return nil
}

func (c *MalgoClient) Start() error {
	if c.device == nil {
		return ErrNotInitialized
	}
	return c.device.Start()
}

func (c *MalgoClient) Stop() error {
	if c.device == nil {
		return ErrNotInitialized
	}
	err := c.device.Stop()
	select {
	case <-c.periods:
	default:
	}
	return err
}

func (c *MalgoClient) Close() error {
	if c.device != nil {
		c.device.Uninit()
		c.device = nil
	}
	if c.ctx != nil {
		if err := c.ctx.Uninit(); err != nil {
			log.Debug().Err(err).Msg("WASAPI context uninit")
		}
		c.ctx.Free()
		c.ctx = nil
	}
	return nil
}

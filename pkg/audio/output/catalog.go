// ABOUTME: Playback device enumeration through malgo
// ABOUTME: Lists devices with the default flag and an exclusive-mode capability probe
package output

import (
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/rs/zerolog/log"
)

// DeviceInfo describes a playback device
type DeviceInfo struct {
	Name              string
	IsDefault         bool
	SupportsExclusive bool
}

// Lister enumerates playback devices
type Lister interface {
	Devices() ([]DeviceInfo, error)
}

// Catalog enumerates devices through a dedicated malgo context
type Catalog struct {
	mu  sync.Mutex
	ctx *malgo.AllocatedContext
}

// NewCatalog initializes the malgo context used for enumeration
func NewCatalog() (*Catalog, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize malgo context: %w", err)
	}
	return &Catalog{ctx: ctx}, nil
}

// Devices lists playback devices. A device supports exclusive mode when the
// backend reports at least one native format for an exclusive open.
func (c *Catalog) Devices() ([]DeviceInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ctx == nil {
		return nil, ErrClosed
	}

	devices, err := c.ctx.Devices(malgo.Playback)
	if err != nil {
		return nil, fmt.Errorf("enumerate playback devices: %w", err)
	}

	out := make([]DeviceInfo, 0, len(devices))
	for _, d := range devices {
		info := DeviceInfo{
			Name:      d.Name(),
			IsDefault: d.IsDefault != 0,
		}
		if full, err := c.ctx.DeviceInfo(malgo.Playback, d.ID, malgo.Exclusive); err == nil {
			info.SupportsExclusive = full.FormatCount > 0
		} else {
			log.Debug().Err(err).Str("device", info.Name).Msg("exclusive probe failed")
		}
		out = append(out, info)
	}
	return out, nil
}

// Default returns the system default device, or the first one listed
func Default(l Lister) (DeviceInfo, error) {
	devices, err := l.Devices()
	if err != nil {
		return DeviceInfo{}, err
	}
	if len(devices) == 0 {
		return DeviceInfo{}, fmt.Errorf("%w: no playback devices", ErrDeviceNotFound)
	}
	for _, d := range devices {
		if d.IsDefault {
			return d, nil
		}
	}
	return devices[0], nil
}

// Find returns the device named name
func Find(l Lister, name string) (DeviceInfo, error) {
	devices, err := l.Devices()
	if err != nil {
		return DeviceInfo{}, err
	}
	for _, d := range devices {
		if d.Name == name {
			return d, nil
		}
	}
	return DeviceInfo{}, fmt.Errorf("%w: %q", ErrDeviceNotFound, name)
}

// Close releases the malgo context
func (c *Catalog) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ctx == nil {
		return nil
	}
	err := c.ctx.Uninit()
	c.ctx.Free()
	c.ctx = nil
	return err
}

// ABOUTME: Device listing and live device switching
// ABOUTME: Decorates the catalog with the current mode and rolls back failed exclusive switches
package tonearm

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/tonearm-audio/tonearm/pkg/audio/output"
)

// Audio mode status strings reported per device
const (
	StatusExclusiveActive    = "Exclusive Mode Active"
	StatusExclusiveAvailable = "Shared Mode (Exclusive Available)"
	StatusSharedOnly         = "Shared Mode Only"
	StatusInactive           = "Inactive"
)

// DeviceInfo describes an output device relative to the engine
type DeviceInfo struct {
	Name                  string
	IsDefault             bool
	SupportsExclusiveMode bool
	IsExclusiveMode       bool
	AudioModeStatus       string
}

// Devices lists output devices. The current device carries the active mode.
func (e *Engine) Devices() ([]DeviceInfo, error) {
	if e.catalog == nil {
		return nil, nil
	}
	listed, err := e.catalog.Devices()
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	device, excl := e.device, e.exclusive
	e.mu.Unlock()

	out := make([]DeviceInfo, 0, len(listed))
	for _, d := range listed {
		info := DeviceInfo{
			Name:                  d.Name,
			IsDefault:             d.IsDefault,
			SupportsExclusiveMode: d.SupportsExclusive,
			AudioModeStatus:       StatusInactive,
		}
		current := d.Name == device || (device == "" && d.IsDefault)
		if current {
			info.IsExclusiveMode = excl
			switch {
			case excl:
				info.AudioModeStatus = StatusExclusiveActive
			case d.SupportsExclusive:
				info.AudioModeStatus = StatusExclusiveAvailable
			default:
				info.AudioModeStatus = StatusSharedOnly
			}
		}
		out = append(out, info)
	}
	return out, nil
}

// CurrentDevice returns the selected device name, resolving the system default
func (e *Engine) CurrentDevice() string {
	e.mu.Lock()
	device := e.device
	e.mu.Unlock()

	if device != "" || e.catalog == nil {
		return device
	}
	if d, err := output.Default(e.catalog); err == nil {
		return d.Name
	}
	return ""
}

// SetDevice moves output to name ("" for the system default) and resumes the
// current track at its position. A failed exclusive open falls back to shared
// mode on that device.
func (e *Engine) SetDevice(name string) error {
	if name != "" && e.catalog != nil {
		if _, err := output.Find(e.catalog, name); err != nil {
			if errors.Is(err, output.ErrDeviceNotFound) {
				return fmt.Errorf("%w: %q", ErrDeviceNotFound, name)
			}
			return err
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	resume := e.playing.Load() && e.path != ""
	position := 0.0
	if e.stage != nil {
		position = e.stage.Position()
	}
	wasPaused := e.paused

	e.supersede()

	var rollback error
	if e.exclusive {
		if err := e.actor.Shutdown(); err != nil {
			log.Debug().Err(err).Msg("shutdown exclusive actor")
		}
		e.actor = nil

		h, err := e.openExclusive(name)
		if err == nil {
			e.actor = h
		} else {
			e.exclusive = false
			rollback = fmt.Errorf("exclusive mode failed on %q, switched to shared mode: %w", name, err)
			log.Warn().Err(err).Str("device", name).Msg("exclusive switch failed, rolling back to shared mode")
		}
	}

	if !e.exclusive {
		backend, err := e.config.NewBackend(name)
		if err != nil {
			return errors.Join(rollback, fmt.Errorf("failed to create output: %w", err))
		}
		old := e.sink
		e.sink = output.NewSharedSink(backend)
		e.sink.SetVolume(e.volume)
		if err := old.Close(); err != nil {
			log.Debug().Err(err).Msg("close previous sink")
		}
	}

	e.device = name
	log.Info().Str("device", e.deviceLabel()).Str("mode", string(e.mode())).Msg("output device changed")

	if resume {
		if err := e.play(e.path, &position, e.config.FadeIn); err != nil {
			return errors.Join(rollback, err)
		}
		if wasPaused {
			if err := e.pause(); err != nil {
				return errors.Join(rollback, err)
			}
		}
	}
	return rollback
}

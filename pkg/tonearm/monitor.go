// ABOUTME: Device monitor polling the catalog for changes
// ABOUTME: Emits add/remove events and falls back to the default device when the current one goes away
package tonearm

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tonearm-audio/tonearm/pkg/audio/output"
)

// DefaultMonitorInterval is the device poll period
const DefaultMonitorInterval = 2 * time.Second

// Monitor watches the engine's device catalog
type Monitor struct {
	engine   *Engine
	interval time.Duration
	known    map[string]bool
}

// NewMonitor creates a monitor; interval 0 selects DefaultMonitorInterval
func NewMonitor(engine *Engine, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = DefaultMonitorInterval
	}
	return &Monitor{engine: engine, interval: interval}
}

// Run polls until ctx is done
func (m *Monitor) Run(ctx context.Context) error {
	if m.engine.catalog == nil {
		<-ctx.Done()
		return nil
	}

	m.Poll()
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Poll()
		case <-ctx.Done():
			return nil
		}
	}
}

// Poll compares the device list with the previous one. The first poll only
// records the baseline.
func (m *Monitor) Poll() {
	devices, err := m.engine.catalog.Devices()
	if err != nil {
		log.Debug().Err(err).Msg("device poll failed")
		return
	}

	now := make(map[string]bool, len(devices))
	for _, d := range devices {
		now[d.Name] = true
	}

	if m.known == nil {
		m.known = now
		return
	}

	for name := range now {
		if !m.known[name] {
			log.Info().Str("device", name).Msg("device added")
			m.engine.events.EmitDevice(DeviceEvent{Kind: DeviceAdded, Name: name})
		}
	}

	var lost string
	current := m.engine.selectedDevice()
	for name := range m.known {
		if now[name] {
			continue
		}
		log.Info().Str("device", name).Msg("device removed")
		m.engine.events.EmitDevice(DeviceEvent{Kind: DeviceRemoved, Name: name})
		if name == current {
			lost = name
		}
	}
	m.known = now

	if lost != "" {
		m.fallback(lost)
	}
}

func (m *Monitor) fallback(from string) {
	to := ""
	if d, err := output.Default(m.engine.catalog); err == nil {
		to = d.Name
	}
	log.Warn().Str("from", from).Str("to", to).Msg("current device removed, falling back to default")
	m.engine.events.EmitDevice(DeviceEvent{Kind: DeviceFallback, From: from, To: to})

	if err := m.engine.SetDevice(""); err != nil {
		log.Warn().Err(err).Msg("device fallback failed")
	}
}

// selectedDevice returns the explicitly chosen device, "" for the default
func (e *Engine) selectedDevice() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.device
}

// ABOUTME: Equalizer command surface
// ABOUTME: Validates and applies band gains, preamp, presets and the enabled flag
package eq

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

// Controller mutates Settings on behalf of callers
type Controller struct {
	settings *Settings
}

// NewController wraps settings
func NewController(settings *Settings) *Controller {
	return &Controller{settings: settings}
}

// Settings returns the shared settings equalizers read from
func (c *Controller) Settings() *Settings { return c.settings }

// Bands lists every band with its current gain
func (c *Controller) Bands() []Band {
	v := c.settings.Load()
	bands := make([]Band, BandCount)
	for i := range bands {
		bands[i] = Band{
			Index:     i,
			Frequency: frequencies[i],
			Label:     labels[i],
			Gain:      v.Gains[i],
		}
	}
	return bands
}

func (c *Controller) Enabled() bool { return c.settings.Load().Enabled }

func (c *Controller) SetEnabled(enabled bool) {
	c.settings.Update(func(v *Values) { v.Enabled = enabled })
	log.Debug().Bool("enabled", enabled).Msg("equalizer toggled")
}

// Gains returns a copy of the band gains in dB
func (c *Controller) Gains() []float32 {
	v := c.settings.Load()
	out := make([]float32, BandCount)
	copy(out, v.Gains[:])
	return out
}

// SetGains replaces all band gains. Exactly BandCount values are required.
func (c *Controller) SetGains(gains []float32) error {
	if len(gains) != BandCount {
		return fmt.Errorf("%w: got %d, want %d", ErrInvalidGainCount, len(gains), BandCount)
	}
	c.settings.Update(func(v *Values) {
		for i, g := range gains {
			v.Gains[i] = clampGain(g)
		}
		v.Preset = ""
	})
	return nil
}

// SetBandGain changes one band
func (c *Controller) SetBandGain(band int, gain float32) error {
	if band < 0 || band >= BandCount {
		return fmt.Errorf("%w: %d", ErrInvalidBand, band)
	}
	c.settings.Update(func(v *Values) {
		v.Gains[band] = clampGain(gain)
		v.Preset = ""
	})
	return nil
}

func (c *Controller) Preamp() float32 { return c.settings.Load().Preamp }

func (c *Controller) SetPreamp(db float32) {
	c.settings.Update(func(v *Values) { v.Preamp = clampGain(db) })
}

// Presets returns the built-in presets
func (c *Controller) Presets() []Preset { return Presets() }

// Preset names the last applied preset, or "" after manual edits
func (c *Controller) Preset() string { return c.settings.Load().Preset }

// ApplyPreset loads a preset's gains by name
func (c *Controller) ApplyPreset(name string) error {
	p, ok := FindPreset(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	c.settings.Update(func(v *Values) {
		v.Gains = p.Gains
		v.Preset = p.Name
	})
	log.Debug().Str("preset", p.Name).Msg("equalizer preset applied")
	return nil
}

// Reset flattens all bands and the preamp. The enabled flag is kept.
func (c *Controller) Reset() {
	c.settings.Update(func(v *Values) {
		v.Gains = [BandCount]float32{}
		v.Preamp = 0
		v.Preset = "Flat"
	})
}

// Values returns a snapshot of the current settings
func (c *Controller) Values() Values { return c.settings.Load() }

// Restore replaces all settings, clamping gains and preamp
func (c *Controller) Restore(values Values) {
	for i := range values.Gains {
		values.Gains[i] = clampGain(values.Gains[i])
	}
	values.Preamp = clampGain(values.Preamp)
	c.settings.Update(func(v *Values) { *v = values })
}

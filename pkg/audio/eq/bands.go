// ABOUTME: Fixed band layout and presets
// ABOUTME: Center frequencies, Q values, labels and the built-in preset table
package eq

import "strings"

const (
	// BandCount is the number of equalizer bands
	BandCount = 10

	// MaxGainDB bounds band gains and preamp in both directions
	MaxGainDB = 8
)

var (
	frequencies = [BandCount]float64{31, 62, 125, 250, 500, 1000, 2000, 4000, 8000, 16000}
	qValues     = [BandCount]float64{0.7, 0.7, 0.8, 0.9, 1.0, 1.0, 1.1, 1.2, 1.3, 1.4}
	labels      = [BandCount]string{"31", "62", "125", "250", "500", "1k", "2k", "4k", "8k", "16k"}
)

// Band describes one equalizer band and its current gain
type Band struct {
	Index     int
	Frequency float64
	Label     string
	Gain      float32
}

// Preset is a named set of band gains
type Preset struct {
	Name  string
	Gains [BandCount]float32
}

var presets = []Preset{
	{"Flat", [BandCount]float32{}},
	{"Bass Boost", [BandCount]float32{4, 3.5, 2.5, 1.5, 0, 0, 0, 0, 0, 0}},
	{"Treble Boost", [BandCount]float32{0, 0, 0, 0, 0, 0, 1.5, 2.5, 3.5, 4}},
	{"Vocal", [BandCount]float32{-1.5, -1, 0, 1.5, 2.5, 2.5, 2, 0.5, 0, -0.5}},
	{"Rock", [BandCount]float32{3.5, 2.5, 1.5, 0, -0.5, 0, 1.5, 2, 2.5, 3}},
	{"Pop", [BandCount]float32{-0.5, 0, 1.5, 2, 2.5, 2, 0.5, 0, -0.5, -1}},
	{"Jazz", [BandCount]float32{2, 1.5, 0.5, 1, -1, -1, 0, 1.5, 2, 2.5}},
	{"Classical", [BandCount]float32{2.5, 2, 1.5, 0.5, -0.5, -0.5, 0, 1.5, 2, 2.5}},
	{"Electronic", [BandCount]float32{3.5, 3, 0.5, 0, -1, 1, 0.5, 2, 2.5, 3.5}},
	{"Acoustic", [BandCount]float32{2, 1.5, 0.5, 0.5, 1.5, 1.5, 1.5, 2, 1.5, 0.5}},
}

// Presets returns the built-in presets
func Presets() []Preset {
	out := make([]Preset, len(presets))
	copy(out, presets)
	return out
}

// FindPreset looks a preset up by name, ignoring case
func FindPreset(name string) (Preset, bool) {
	for _, p := range presets {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return Preset{}, false
}

func clampGain(g float32) float32 {
	if g > MaxGainDB {
		return MaxGainDB
	}
	if g < -MaxGainDB {
		return -MaxGainDB
	}
	return g
}

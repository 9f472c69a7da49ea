// ABOUTME: FFT spectrum analyser
// ABOUTME: Hann-windowed magnitude spectrum bucketed into linear bins with smoothing
package visualize

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

const (
	// Bins is the number of spectrum bars
	Bins = 128

	minFreq = 20.0
	maxFreq = 16000.0

	DefaultAttack = 0.7
	DefaultDecay  = 0.15
)

// WindowSize picks the FFT length for a sample rate
func WindowSize(sampleRate int) int {
	switch {
	case sampleRate <= 32000:
		return 1024
	case sampleRate <= 64000:
		return 2048
	case sampleRate <= 128000:
		return 4096
	default:
		return 8192
	}
}

// Analyser turns mono windows into smoothed spectrum bins
type Analyser struct {
	size       int
	sampleRate float64
	attack     float32
	decay      float32
	hann       []float64
	input      []float64
	raw        [Bins]float32
	smoothed   [Bins]float32
}

// NewAnalyser builds an analyser for sampleRate. Non-positive attack or decay use the defaults.
func NewAnalyser(sampleRate int, attack, decay float32) *Analyser {
	if attack <= 0 || attack > 1 {
		attack = DefaultAttack
	}
	if decay <= 0 || decay > 1 {
		decay = DefaultDecay
	}
	size := WindowSize(sampleRate)
	return &Analyser{
		size:       size,
		sampleRate: float64(sampleRate),
		attack:     attack,
		decay:      decay,
		hann:       window.Hann(size),
		input:      make([]float64, size),
	}
}

// Size returns the window length in frames
func (a *Analyser) Size() int { return a.size }

// Analyse processes one window of mono samples and returns the smoothed bins.
// The returned slice aliases internal state and is overwritten by the next call.
func (a *Analyser) Analyse(samples []float32) []float32 {
	for i := range a.input {
		var v float64
		if i < len(samples) {
			v = float64(samples[i])
		}
		a.input[i] = v * a.hann[i]
	}

	spectrum := fft.FFTReal(a.input)
	scale := 1 / math.Sqrt(float64(a.size))
	step := (maxFreq - minFreq) / Bins

	a.raw = [Bins]float32{}
	for k := 1; k <= a.size/2; k++ {
		freq := float64(k) * a.sampleRate / float64(a.size)
		if freq < minFreq || freq > maxFreq {
			continue
		}
		bin := int((freq - minFreq) / step)
		if bin >= Bins {
			bin = Bins - 1
		}
		if v := float32(cmplx.Abs(spectrum[k]) * scale); v > a.raw[bin] {
			a.raw[bin] = v
		}
	}

	for i, target := range a.raw {
		current := a.smoothed[i]
		if target > current {
			a.smoothed[i] = current*(1-a.attack) + target*a.attack
		} else {
			a.smoothed[i] = current*(1-a.decay) + target*a.decay
		}
	}
	return a.smoothed[:]
}

// ABOUTME: Ten-band equalizer processor and source adapter
// ABOUTME: Cascades peaking biquads per channel with preamp and soft clipping
package eq

import (
	"math"

	"github.com/tonearm-audio/tonearm/pkg/audio"
)

// pollInterval is how many samples pass between settings reads
const pollInterval = 512

// Equalizer filters interleaved samples for one stream. It is owned by a single goroutine.
type Equalizer struct {
	settings   *Settings
	sampleRate float64
	channels   int

	coeffs [BandCount]coefficients
	states [BandCount][]biquadState

	current    Values
	primed     bool
	preampGain float32
	sinceRead  int
	channel    int
}

// New builds an equalizer reading from settings
func New(settings *Settings, sampleRate, channels int) *Equalizer {
	if channels < 1 {
		channels = 1
	}
	e := &Equalizer{
		settings:   settings,
		sampleRate: float64(sampleRate),
		channels:   channels,
	}
	for b := range e.states {
		e.states[b] = make([]biquadState, channels)
	}
	e.apply(settings.Load())
	return e
}

func (e *Equalizer) apply(v Values) {
	if !e.primed || v.Gains != e.current.Gains {
		for b := 0; b < BandCount; b++ {
			e.coeffs[b] = peaking(e.sampleRate, frequencies[b], float64(v.Gains[b]), qValues[b])
		}
	}
	e.preampGain = float32(math.Pow(10, float64(v.Preamp)/20))
	e.current = v
	e.primed = true
}

func (e *Equalizer) poll() {
	e.sinceRead++
	if e.sinceRead < pollInterval {
		return
	}
	e.sinceRead = 0
	if v, ok := e.settings.TryLoad(); ok {
		e.apply(v)
	}
}

// ProcessSample filters one sample on the given channel
func (e *Equalizer) ProcessSample(x float32, channel int) float32 {
	e.poll()
	if !e.current.Enabled {
		return x
	}

	x *= e.preampGain
	for b := 0; b < BandCount; b++ {
		x = e.states[b][channel].process(x, &e.coeffs[b])
	}
	if !finite(x) {
		// a non-finite sample poisons the filter history; start the channel over
		for b := 0; b < BandCount; b++ {
			e.states[b][channel] = biquadState{}
		}
	}
	return SoftClip(x)
}

func finite(x float32) bool {
	return x == x && x-x == 0
}

// Process filters interleaved samples in place. The channel position carries
// over between calls, so buffers need not hold whole frames.
func (e *Equalizer) Process(buf []float32) {
	for i, x := range buf {
		buf[i] = e.ProcessSample(x, e.channel)
		e.channel++
		if e.channel == e.channels {
			e.channel = 0
		}
	}
}

// Reset zeroes all filter state
func (e *Equalizer) Reset() {
	for b := range e.states {
		for ch := range e.states[b] {
			e.states[b][ch] = biquadState{}
		}
	}
	e.channel = 0
}

// EqualizedSource applies an Equalizer to an inner source
type EqualizedSource struct {
	inner audio.Source
	eq    *Equalizer
}

// NewSource wraps inner with a fresh equalizer bound to settings
func NewSource(inner audio.Source, settings *Settings) *EqualizedSource {
	return &EqualizedSource{
		inner: inner,
		eq:    New(settings, inner.SampleRate(), inner.Channels()),
	}
}

func (s *EqualizedSource) SampleRate() int { return s.inner.SampleRate() }
func (s *EqualizedSource) Channels() int   { return s.inner.Channels() }

// ReadSamples reads from the inner source and filters in place
func (s *EqualizedSource) ReadSamples(dst []float32) (int, error) {
	n, err := s.inner.ReadSamples(dst)
	s.eq.Process(dst[:n])
	return n, err
}

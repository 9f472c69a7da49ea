// ABOUTME: Visualization stage wrapping a sample source
// ABOUTME: Feeds the analyser, tracks played samples and rate-limits emitted events
package visualize

import (
	"math"
	"sync/atomic"
	"time"

	"github.com/tonearm-audio/tonearm/pkg/audio"
)

const (
	DefaultSpectrumInterval = 16 * time.Millisecond
	DefaultPositionInterval = 100 * time.Millisecond
)

// Emitter receives best-effort visualization events. Implementations must not block.
type Emitter interface {
	EmitPosition(seconds float64)
	EmitSpectrum(bins []float32)
}

// Options configures a Stage. Zero values select defaults.
type Options struct {
	Attack           float32
	Decay            float32
	SpectrumInterval time.Duration
	PositionInterval time.Duration

	// StartPosition seeds the played-sample counter after a seek
	StartPosition float64

	Spectrum *SpectrumStore
	Waveform *WaveformStore
	Emitter  Emitter

	// Now overrides the clock in tests
	Now func() time.Time
}

// Stage passes samples through unchanged while publishing visualization data
type Stage struct {
	inner    audio.Source
	channels int
	rate     int
	analyser *Analyser

	spectrum *SpectrumStore
	waveform *WaveformStore
	emitter  Emitter
	now      func() time.Time

	spectrumInterval time.Duration
	positionInterval time.Duration
	lastSpectrum     time.Time
	lastPosition     time.Time

	window   []float32
	frameSum float32
	frameCh  int

	played atomic.Int64
}

// NewStage wraps inner
func NewStage(inner audio.Source, opts Options) *Stage {
	if opts.SpectrumInterval <= 0 {
		opts.SpectrumInterval = DefaultSpectrumInterval
	}
	if opts.PositionInterval <= 0 {
		opts.PositionInterval = DefaultPositionInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Spectrum == nil {
		opts.Spectrum = NewSpectrumStore()
	}
	if opts.Waveform == nil {
		opts.Waveform = NewWaveformStore()
	}

	channels := inner.Channels()
	if channels < 1 {
		channels = 1
	}
	s := &Stage{
		inner:            inner,
		channels:         channels,
		rate:             inner.SampleRate(),
		analyser:         NewAnalyser(inner.SampleRate(), opts.Attack, opts.Decay),
		spectrum:         opts.Spectrum,
		waveform:         opts.Waveform,
		emitter:          opts.Emitter,
		now:              opts.Now,
		spectrumInterval: opts.SpectrumInterval,
		positionInterval: opts.PositionInterval,
	}
	s.window = make([]float32, 0, s.analyser.Size())
	if opts.StartPosition > 0 {
		s.played.Store(int64(math.Round(opts.StartPosition * float64(s.rate) * float64(channels))))
	}
	return s
}

func (s *Stage) SampleRate() int { return s.rate }
func (s *Stage) Channels() int   { return s.channels }

// Position returns the seconds of audio that have passed through the stage.
// It is safe to call from any goroutine.
func (s *Stage) Position() float64 {
	if s.rate == 0 {
		return 0
	}
	return float64(s.played.Load()) / float64(s.rate*s.channels)
}

// ReadSamples reads from the inner source and observes what it returns
func (s *Stage) ReadSamples(dst []float32) (int, error) {
	n, err := s.inner.ReadSamples(dst)
	if n > 0 {
		s.observe(dst[:n])
	}
	return n, err
}

func (s *Stage) observe(samples []float32) {
	s.played.Add(int64(len(samples)))

	for _, v := range samples {
		s.frameSum += v
		s.frameCh++
		if s.frameCh < s.channels {
			continue
		}
		s.window = append(s.window, s.frameSum/float32(s.channels))
		s.frameSum = 0
		s.frameCh = 0

		if len(s.window) >= s.analyser.Size() {
			s.publish()
		}
	}
}

func (s *Stage) publish() {
	now := s.now()

	if now.Sub(s.lastPosition) >= s.positionInterval {
		s.lastPosition = now
		if s.emitter != nil {
			s.emitter.EmitPosition(s.Position())
		}
	}

	if now.Sub(s.lastSpectrum) >= s.spectrumInterval {
		s.lastSpectrum = now
		bins := s.analyser.Analyse(s.window)
		s.spectrum.TryStore(bins)
		s.waveform.TryStore(s.window)
		if s.emitter != nil {
			out := make([]float32, len(bins))
			copy(out, bins)
			s.emitter.EmitSpectrum(out)
		}
	}

	// keep the trailing half for 50% overlap
	half := len(s.window) / 2
	s.window = append(s.window[:0], s.window[half:]...)
}

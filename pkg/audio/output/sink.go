// ABOUTME: Shared-mode sink with a source queue and a pump goroutine
// ABOUTME: Applies volume and fade-in, adapts formats and writes to a Backend
package output

import (
	"errors"
	"io"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tonearm-audio/tonearm/pkg/audio"
	"github.com/tonearm-audio/tonearm/pkg/audio/remix"
	"github.com/tonearm-audio/tonearm/pkg/audio/resample"
)

const (
	pumpChunkFrames = 1024
	idleWait        = 10 * time.Millisecond
)

type queued struct {
	src        audio.Source
	fadeFrames int
	played     int // samples
}

// SharedSink plays queued sources back to back on a Backend
type SharedSink struct {
	backend Backend

	mu      sync.Mutex
	queue   []*queued
	current *queued

	paused atomic.Bool
	volume atomic.Uint32
	closed atomic.Bool

	wake chan struct{}
	done chan struct{}
}

// NewSharedSink starts a sink on backend. It begins playing, not paused.
func NewSharedSink(backend Backend) *SharedSink {
	s := &SharedSink{
		backend: backend,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	s.volume.Store(math.Float32bits(1))
	go s.pump()
	return s
}

// Backend returns the underlying device
func (s *SharedSink) Backend() Backend { return s.backend }

// Append queues src, ramping it in over fadeIn. The backend is reopened at
// the source format when possible; otherwise the source is converted to the
// backend's format.
func (s *SharedSink) Append(src audio.Source, fadeIn time.Duration) error {
	if s.closed.Load() {
		return ErrClosed
	}

	want := audio.DeviceFormat{
		SampleRate: src.SampleRate(),
		Channels:   src.Channels(),
		Sample:     audio.SampleFormatFloat32,
	}
	if err := s.backend.Open(want); err != nil {
		if !errors.Is(err, ErrFormatFixed) {
			return err
		}
		adapted, aerr := adapt(src, s.backend.Format())
		if aerr != nil {
			return aerr
		}
		log.Debug().Msgf("converting %s source to %s", want, s.backend.Format())
		src = adapted
	}

	fadeFrames := int(fadeIn.Seconds() * float64(src.SampleRate()))
	s.mu.Lock()
	s.queue = append(s.queue, &queued{src: src, fadeFrames: fadeFrames})
	s.mu.Unlock()
	s.signal()
	return nil
}

// adapt converts src to the device rate and channel count
func adapt(src audio.Source, format audio.DeviceFormat) (audio.Source, error) {
	if src.SampleRate() != format.SampleRate {
		rs, err := resample.NewSource(src, format.SampleRate)
		if err != nil {
			return nil, err
		}
		src = rs
	}
	if src.Channels() != format.Channels {
		src = remix.NewSource(src, format.Channels)
	}
	return src, nil
}

func (s *SharedSink) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Play resumes output
func (s *SharedSink) Play() {
	if s.paused.Swap(false) {
		if err := s.backend.Resume(); err != nil {
			log.Warn().Err(err).Msg("resume output")
		}
	}
	s.signal()
}

// Pause holds output; queued audio is kept
func (s *SharedSink) Pause() {
	if !s.paused.Swap(true) {
		if err := s.backend.Pause(); err != nil {
			log.Warn().Err(err).Msg("pause output")
		}
	}
}

func (s *SharedSink) IsPaused() bool { return s.paused.Load() }

// Stop drops the current and queued sources and any device-buffered audio
func (s *SharedSink) Stop() {
	s.mu.Lock()
	s.queue = nil
	s.current = nil
	s.mu.Unlock()
	s.backend.Flush()
}

// SetVolume sets the linear gain, clamped to [0, 1]
func (s *SharedSink) SetVolume(v float32) {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	s.volume.Store(math.Float32bits(v))
}

func (s *SharedSink) Volume() float32 { return math.Float32frombits(s.volume.Load()) }

// Empty reports whether every source has finished and the device has drained
func (s *SharedSink) Empty() bool {
	s.mu.Lock()
	idle := s.current == nil && len(s.queue) == 0
	s.mu.Unlock()
	return idle && s.backend.Buffered() == 0
}

// Close stops the pump and releases the backend
func (s *SharedSink) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.Stop()
	s.signal()
	<-s.done
	return s.backend.Close()
}

func (s *SharedSink) next() *queued {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil && len(s.queue) > 0 {
		s.current = s.queue[0]
		s.queue = s.queue[1:]
	}
	return s.current
}

func (s *SharedSink) isCurrent(q *queued) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current == q
}

func (s *SharedSink) finish(q *queued) {
	s.mu.Lock()
	if s.current == q {
		s.current = nil
	}
	s.mu.Unlock()
}

func (s *SharedSink) idle() {
	select {
	case <-s.wake:
	case <-time.After(idleWait):
	}
}

func (s *SharedSink) pump() {
	defer close(s.done)

	var chunk []float32
	for !s.closed.Load() {
		if s.paused.Load() {
			s.idle()
			continue
		}
		q := s.next()
		if q == nil {
			s.idle()
			continue
		}

		size := pumpChunkFrames * q.src.Channels()
		if cap(chunk) < size {
			chunk = make([]float32, size)
		}
		s.play(q, chunk[:size])
	}
}

// play moves one chunk of q to the device. A panicking source is dropped
// from the queue and the pump keeps serving the next one.
func (s *SharedSink) play(q *queued, chunk []float32) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("shared sink source panicked")
			s.finish(q)
		}
	}()

	n, err := q.src.ReadSamples(chunk)
	// A source replaced while we were reading never reaches the device
	if !s.isCurrent(q) {
		return
	}

	if n > 0 {
		s.applyGain(q, chunk[:n])
		if werr := s.backend.Write(chunk[:n]); werr != nil && !errors.Is(werr, ErrClosed) {
			log.Warn().Err(werr).Msg("shared output write failed")
			s.finish(q)
			return
		}
	}

	if err != nil {
		if err != io.EOF {
			log.Warn().Err(err).Msg("source stopped")
		}
		s.finish(q)
	}
}

// applyGain scales by volume and the fade-in ramp
func (s *SharedSink) applyGain(q *queued, samples []float32) {
	vol := s.Volume()
	channels := q.src.Channels()

	for i := range samples {
		gain := vol
		frame := (q.played + i) / channels
		if frame < q.fadeFrames {
			gain *= float32(frame) / float32(q.fadeFrames)
		}
		samples[i] *= gain
	}
	q.played += len(samples)
}

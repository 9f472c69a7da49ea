// ABOUTME: Resampling pipeline stage
// ABOUTME: Pulls fixed chunks from an inner source and serves resampled samples
package resample

import (
	"io"

	"github.com/tonearm-audio/tonearm/pkg/audio"
)

// ResampledSource converts an inner source to a different sample rate
type ResampledSource struct {
	inner     audio.Source
	r         *Resampler
	chunk     []float32
	out       []float32
	outPos    int
	flushed   bool
	innerDone bool
}

// NewSource wraps inner so that it produces samples at outputRate
func NewSource(inner audio.Source, outputRate int) (*ResampledSource, error) {
	r, err := New(inner.SampleRate(), outputRate, inner.Channels())
	if err != nil {
		return nil, err
	}
	return &ResampledSource{
		inner: inner,
		r:     r,
		chunk: make([]float32, 0, r.ChunkSamples()),
	}, nil
}

// SampleRate implements audio.Source
func (s *ResampledSource) SampleRate() int { return s.r.outputRate }

// Channels implements audio.Source
func (s *ResampledSource) Channels() int { return s.r.channels }

// ReadSamples implements audio.Source
func (s *ResampledSource) ReadSamples(dst []float32) (int, error) {
	for s.outPos >= len(s.out) {
		if s.flushed {
			return 0, io.EOF
		}
		if err := s.fill(); err != nil {
			return 0, err
		}
	}

	n := copy(dst, s.out[s.outPos:])
	s.outPos += n
	return n, nil
}

// fill gathers one full chunk, or the padded final chunk, and resamples it
func (s *ResampledSource) fill() error {
	s.out = s.out[:0]
	s.outPos = 0

	if s.innerDone {
		var err error
		s.out, err = s.r.Flush(s.out)
		s.flushed = true
		return err
	}

	want := s.r.ChunkSamples()
	for len(s.chunk) < want {
		n, err := s.inner.ReadSamples(s.chunk[len(s.chunk):want])
		s.chunk = s.chunk[:len(s.chunk)+n]
		if err == io.EOF {
			s.innerDone = true
			break
		}
		if err != nil {
			return err
		}
	}

	if len(s.chunk) == 0 {
		return nil
	}
	if len(s.chunk) < want {
		s.chunk = s.chunk[:len(s.chunk)-len(s.chunk)%s.r.channels]
		s.chunk = PadChunk(s.chunk, s.r.channels, s.r.chunkFrames)
	}

	var err error
	s.out, err = s.r.Process(s.out, s.chunk)
	s.chunk = s.chunk[:0]
	return err
}

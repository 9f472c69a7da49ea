// ABOUTME: Fallback decoder built on beep's format decoders
// ABOUTME: Used when the primary codec backends reject a file
package decode

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gopxl/beep/v2"
	beepflac "github.com/gopxl/beep/v2/flac"
	beepmp3 "github.com/gopxl/beep/v2/mp3"
	beepvorbis "github.com/gopxl/beep/v2/vorbis"
	beepwav "github.com/gopxl/beep/v2/wav"
	"github.com/rs/zerolog/log"
)

// FallbackSource decodes through beep, which always yields stereo
type FallbackSource struct {
	file   *os.File
	stream beep.StreamSeekCloser
	format beep.Format
	frames [][2]float64
	done   bool
}

// OpenFallback opens path with beep's mp3, flac, vorbis or wav decoder
func OpenFallback(path string) (*FallbackSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProbeFailed, err)
	}

	head := make([]byte, probeSize)
	n, _ := io.ReadFull(f, head)
	kind := probeHeader(head[:n])
	if kind == kindUnknown {
		kind = probeExtension(path)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %v", ErrProbeFailed, err)
	}

	var (
		stream beep.StreamSeekCloser
		format beep.Format
	)
	switch kind {
	case kindMP3:
		stream, format, err = beepmp3.Decode(f)
	case kindFLAC:
		stream, format, err = beepflac.Decode(f)
	case kindVorbis:
		stream, format, err = beepvorbis.Decode(f)
	case kindWAV:
		stream, format, err = beepwav.Decode(f)
	default:
		f.Close()
		return nil, fmt.Errorf("%w: fallback cannot decode %s", ErrUnsupportedFormat, kind)
	}
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: fallback %s: %v", ErrUnsupportedFormat, kind, err)
	}

	log.Debug().Str("codec", kind.String()).Int("rate", int(format.SampleRate)).Msgf("fallback opened %s", path)
	return &FallbackSource{file: f, stream: stream, format: format}, nil
}

// SampleRate returns the stream rate
func (s *FallbackSource) SampleRate() int { return int(s.format.SampleRate) }

// Channels is always 2
func (s *FallbackSource) Channels() int { return 2 }

// ReadSamples decodes whole stereo frames into dst
func (s *FallbackSource) ReadSamples(dst []float32) (int, error) {
	if s.done {
		return 0, io.EOF
	}
	want := len(dst) / 2
	if want == 0 {
		return 0, nil
	}
	if cap(s.frames) < want {
		s.frames = make([][2]float64, want)
	}

	n, ok := s.stream.Stream(s.frames[:want])
	for i := 0; i < n; i++ {
		dst[2*i] = float32(s.frames[i][0])
		dst[2*i+1] = float32(s.frames[i][1])
	}
	if !ok {
		s.done = true
		if err := s.stream.Err(); err != nil {
			return n * 2, fmt.Errorf("%w: %v", ErrPacketRead, err)
		}
		if n == 0 {
			return 0, io.EOF
		}
	}
	return n * 2, nil
}

// Prefill is a no-op; beep decodes on demand
func (s *FallbackSource) Prefill() error { return nil }

// Seek moves to seconds from the start
func (s *FallbackSource) Seek(seconds float64) error {
	frame := s.format.SampleRate.N(time.Duration(seconds * float64(time.Second)))
	if frame < 0 {
		frame = 0
	}
	if length := s.stream.Len(); length > 0 && frame > length {
		frame = length
	}
	if err := s.stream.Seek(frame); err != nil {
		return fmt.Errorf("fallback seek: %w", err)
	}
	s.done = false
	return nil
}

// Position returns the playback position in seconds
func (s *FallbackSource) Position() float64 {
	return float64(s.stream.Position()) / float64(s.format.SampleRate)
}

// Duration returns the stream length in seconds
func (s *FallbackSource) Duration() float64 {
	return float64(s.stream.Len()) / float64(s.format.SampleRate)
}

// Close releases the decoder and file
func (s *FallbackSource) Close() error {
	err := s.stream.Close()
	s.file.Close()
	return err
}

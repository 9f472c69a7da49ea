// ABOUTME: Channel remixer implementation
// ABOUTME: BS.775 surround downmix plus a RemixedSource pipeline stage
package remix

import (
	"io"

	"github.com/tonearm-audio/tonearm/pkg/audio"
)

const (
	minus3dB = 0.707
	minus6dB = 0.5

	norm51    = 0.707
	norm71    = 0.667
	normOther = 0.8
)

// Remixer converts frames from one channel count to another
type Remixer struct {
	in  int
	out int
}

// New creates a remixer from in channels to out channels
func New(in, out int) *Remixer {
	return &Remixer{in: in, out: out}
}

// InputChannels returns the source channel count
func (r *Remixer) InputChannels() int { return r.in }

// OutputChannels returns the target channel count
func (r *Remixer) OutputChannels() int { return r.out }

// IsIdentity reports whether the remixer passes frames through unchanged
func (r *Remixer) IsIdentity() bool { return r.in == r.out }

// Remix converts whole interleaved input frames and appends the result to dst.
// Trailing samples that do not form a full frame are ignored.
func (r *Remixer) Remix(dst, src []float32) []float32 {
	if r.in == r.out {
		return append(dst, src[:len(src)-len(src)%r.in]...)
	}

	frames := len(src) / r.in
	for f := 0; f < frames; f++ {
		frame := src[f*r.in : (f+1)*r.in]
		dst = r.remixFrame(dst, frame)
	}
	return dst
}

func (r *Remixer) remixFrame(dst, frame []float32) []float32 {
	var left, right float32
	switch r.in {
	case 1:
		left, right = frame[0], frame[0]
	case 2:
		left, right = frame[0], frame[1]
	default:
		left, right = Downmix(frame)
	}

	switch r.out {
	case 1:
		return append(dst, (left+right)/2)
	case 2:
		return append(dst, left, right)
	default:
		// Wider targets get stereo on the front pair and silence elsewhere
		dst = append(dst, left, right)
		for ch := 2; ch < r.out; ch++ {
			dst = append(dst, 0)
		}
		return dst
	}
}

// Downmix folds one frame of three or more channels to a stereo pair
func Downmix(frame []float32) (left, right float32) {
	switch len(frame) {
	case 6:
		center := frame[2] * minus3dB
		left = frame[0] + center + frame[4]*minus3dB
		right = frame[1] + center + frame[5]*minus3dB
		return audio.Clamp(left * norm51), audio.Clamp(right * norm51)
	case 8:
		center := frame[2] * minus3dB
		left = frame[0] + center + frame[6]*minus3dB + frame[4]*minus6dB
		right = frame[1] + center + frame[7]*minus3dB + frame[5]*minus6dB
		return audio.Clamp(left * norm71), audio.Clamp(right * norm71)
	default:
		return blend(frame)
	}
}

// blend spreads channels beyond the front pair alternately across both sides
func blend(frame []float32) (left, right float32) {
	if len(frame) == 0 {
		return 0, 0
	}
	if len(frame) == 1 {
		return frame[0], frame[0]
	}

	var extraL, extraR float32
	var nL, nR int
	for ch := 2; ch < len(frame); ch++ {
		if ch%2 == 0 {
			extraL += frame[ch]
			nL++
		} else {
			extraR += frame[ch]
			nR++
		}
	}

	left, right = frame[0], frame[1]
	if nL > 0 {
		left += extraL / float32(nL) * minus6dB
	}
	if nR > 0 {
		right += extraR / float32(nR) * minus6dB
	}
	return audio.Clamp(left * normOther), audio.Clamp(right * normOther)
}

// RemixedSource adapts an inner source to a different channel count
type RemixedSource struct {
	inner   audio.Source
	remixer *Remixer
	in      []float32
	pending []float32 // partial input frame carried between reads
	out     []float32
	outPos  int
	eof     bool
}

// NewSource wraps inner so that it produces the given channel count
func NewSource(inner audio.Source, channels int) *RemixedSource {
	return &RemixedSource{
		inner:   inner,
		remixer: New(inner.Channels(), channels),
		in:      make([]float32, 4096*inner.Channels()),
	}
}

// SampleRate implements audio.Source
func (s *RemixedSource) SampleRate() int { return s.inner.SampleRate() }

// Channels implements audio.Source
func (s *RemixedSource) Channels() int { return s.remixer.out }

// ReadSamples implements audio.Source
func (s *RemixedSource) ReadSamples(dst []float32) (int, error) {
	if s.remixer.IsIdentity() {
		return s.inner.ReadSamples(dst)
	}

	for s.outPos >= len(s.out) {
		if s.eof {
			return 0, io.EOF
		}
		if err := s.refill(); err != nil {
			return 0, err
		}
	}

	n := copy(dst, s.out[s.outPos:])
	s.outPos += n
	return n, nil
}

func (s *RemixedSource) refill() error {
	n, err := s.inner.ReadSamples(s.in)
	if err == io.EOF {
		s.eof = true
	} else if err != nil {
		return err
	}

	s.pending = append(s.pending, s.in[:n]...)
	whole := len(s.pending) - len(s.pending)%s.remixer.in
	s.out = s.remixer.Remix(s.out[:0], s.pending[:whole])
	s.outPos = 0
	s.pending = append(s.pending[:0], s.pending[whole:]...)
	return nil
}

// ABOUTME: Tests for the resampler adapter
// ABOUTME: Covers chunk sizing, output length, fade padding and the source stage
package resample

import (
	"io"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkFrames(t *testing.T) {
	tests := []struct {
		rate int
		want int
	}{
		{22050, 512},
		{32000, 512},
		{44100, 1024},
		{48000, 1024},
		{96000, 2048},
		{128000, 2048},
		{192000, 4096},
		{384000, 4096},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ChunkFrames(tt.rate), "rate %d", tt.rate)
	}
}

func TestNewRejectsInvalidParameters(t *testing.T) {
	_, err := New(0, 48000, 2)
	assert.Error(t, err)
	_, err = New(44100, 48000, 0)
	assert.Error(t, err)
}

func TestPadChunkFadesToZero(t *testing.T) {
	chunk := []float32{0.2, -0.4, 0.8, -0.8}
	padded := PadChunk(chunk, 2, 6)

	require.Len(t, padded, 12)
	// First padded frame repeats the last sample at full gain
	assert.Equal(t, float32(0.8), padded[4])
	assert.Equal(t, float32(-0.8), padded[5])
	// Gain ramps down monotonically and never jumps straight to zero
	for f := 3; f < 6; f++ {
		assert.Less(t, padded[f*2], padded[(f-1)*2])
		assert.Greater(t, padded[f*2], float32(0))
	}
}

func TestPadChunkFullChunkUnchanged(t *testing.T) {
	chunk := []float32{1, 2, 3, 4}
	assert.Equal(t, chunk, PadChunk(chunk, 2, 2))
}

func TestResamplerOutputLength(t *testing.T) {
	r, err := New(44100, 48000, 1)
	require.NoError(t, err)

	chunk := r.ChunkSamples()
	chunks := 43
	var out []float32
	for c := 0; c < chunks; c++ {
		in := make([]float32, chunk)
		for i := range in {
			n := c*chunk + i
			in[i] = float32(0.5 * math.Sin(2*math.Pi*440*float64(n)/44100))
		}
		out, err = r.Process(out, in)
		require.NoError(t, err)
	}
	out, err = r.Flush(out)
	require.NoError(t, err)

	expected := float64(chunks*chunk) * 48000.0 / 44100.0
	assert.InDelta(t, expected, float64(len(out)), expected*0.1)
}

type toneSource struct {
	rate     int
	channels int
	frames   int
	pos      int
}

func (s *toneSource) SampleRate() int { return s.rate }
func (s *toneSource) Channels() int   { return s.channels }
func (s *toneSource) ReadSamples(dst []float32) (int, error) {
	if s.pos >= s.frames {
		return 0, io.EOF
	}
	n := 0
	for n+s.channels <= len(dst) && s.pos < s.frames {
		v := float32(0.5 * math.Sin(2*math.Pi*440*float64(s.pos)/float64(s.rate)))
		for ch := 0; ch < s.channels; ch++ {
			dst[n] = v
			n++
		}
		s.pos++
	}
	return n, nil
}

func TestResampledSourceStereo(t *testing.T) {
	src, err := NewSource(&toneSource{rate: 44100, channels: 2, frames: 44100}, 96000)
	require.NoError(t, err)
	assert.Equal(t, 96000, src.SampleRate())
	assert.Equal(t, 2, src.Channels())

	total := 0
	buf := make([]float32, 1000)
	for {
		n, err := src.ReadSamples(buf)
		total += n
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}

	assert.Equal(t, 0, total%2)
	assert.InDelta(t, 96000.0*2, float64(total), 96000*2*0.1)
}

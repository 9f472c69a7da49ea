// ABOUTME: Test fixtures for the decode package
// ABOUTME: Writes deterministic sine WAV files with go-audio's encoder
package decode

import (
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/require"
)

const (
	toneFreq      = 441.0
	toneAmplitude = 16000.0
)

// toneValue is the int16 sample written at frame n
func toneValue(n, rate int) int {
	return int(math.Round(toneAmplitude * math.Sin(2*math.Pi*toneFreq*float64(n)/float64(rate))))
}

// writeToneWAV writes a 16-bit sine where every channel carries the same tone
func writeToneWAV(t *testing.T, rate, channels int, seconds float64) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "tone.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	frames := int(float64(rate) * seconds)
	data := make([]int, frames*channels)
	for n := 0; n < frames; n++ {
		v := toneValue(n, rate)
		for ch := 0; ch < channels; ch++ {
			data[n*channels+ch] = v
		}
	}

	enc := wav.NewEncoder(f, rate, 16, channels, 1)
	require.NoError(t, enc.Write(&goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
	return path
}

// readAll drains a source into a slice
func readAll(t *testing.T, src interface {
	ReadSamples([]float32) (int, error)
}) []float32 {
	t.Helper()

	var out []float32
	buf := make([]float32, 4096)
	for {
		n, err := src.ReadSamples(buf)
		out = append(out, buf[:n]...)
		if err != nil {
			require.ErrorIs(t, err, io.EOF)
			return out
		}
	}
}

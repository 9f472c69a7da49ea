// ABOUTME: Tests for the streaming decoder
// ABOUTME: Exercises sample counts, channel policy, seek and prefill against WAV fixtures
package decode

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamingDecoderSampleCount(t *testing.T) {
	path := writeToneWAV(t, 44100, 2, 5)

	dec, err := NewStreamingDecoder(path, Options{})
	require.NoError(t, err)
	defer dec.Close()

	assert.Equal(t, 44100, dec.SampleRate())
	assert.Equal(t, 2, dec.Channels())
	assert.Equal(t, "wav", dec.Codec())
	assert.InDelta(t, 5.0, dec.Duration(), 0.001)

	out := readAll(t, dec)
	assert.Len(t, out, 5*44100*2)
	assert.Equal(t, StateEndOfStream, dec.State())

	for n := 0; n < 100; n++ {
		want := float32(toneValue(n, 44100)) / 32768
		assert.InDelta(t, want, out[2*n], 1e-6)
		assert.Equal(t, out[2*n], out[2*n+1])
	}
}

func TestStreamingDecoderMonoIsDuplicated(t *testing.T) {
	path := writeToneWAV(t, 22050, 1, 1)

	dec, err := NewStreamingDecoder(path, Options{})
	require.NoError(t, err)
	defer dec.Close()

	assert.Equal(t, 2, dec.Channels())
	out := readAll(t, dec)
	require.Len(t, out, 22050*2)
	for i := 0; i < len(out); i += 2 {
		if out[i] != out[i+1] {
			t.Fatalf("frame %d: left %v right %v", i/2, out[i], out[i+1])
		}
	}
}

func TestStreamingDecoderPrefill(t *testing.T) {
	path := writeToneWAV(t, 44100, 2, 3)

	dec, err := NewStreamingDecoder(path, Options{})
	require.NoError(t, err)
	defer dec.Close()

	require.NoError(t, dec.Prefill())
	assert.GreaterOrEqual(t, dec.buffer.Remaining(), int(float64(dec.buffer.Capacity())*prefillTarget))
	assert.Equal(t, 0.0, dec.Position())
}

func TestStreamingDecoderPrefillShortFile(t *testing.T) {
	// Shorter than one buffer; EOF ends prefill without error
	path := writeToneWAV(t, 44100, 2, 0.1)

	dec, err := NewStreamingDecoder(path, Options{})
	require.NoError(t, err)
	defer dec.Close()

	require.NoError(t, dec.Prefill())
	assert.Equal(t, StateEndOfStream, dec.State())
	assert.Equal(t, 4410*2, dec.buffer.Remaining())
}

func TestStreamingDecoderSeekMidStream(t *testing.T) {
	path := writeToneWAV(t, 44100, 2, 5)

	dec, err := NewStreamingDecoder(path, Options{})
	require.NoError(t, err)
	defer dec.Close()

	require.NoError(t, dec.Seek(2.5))
	assert.InDelta(t, 2.5, dec.Position(), 1e-6)

	buf := make([]float32, 64)
	n, err := dec.ReadSamples(buf)
	require.NoError(t, err)
	require.Equal(t, 64, n)

	start := 110250
	for i := 0; i < 32; i++ {
		want := float32(toneValue(start+i, 44100)) / 32768
		assert.InDelta(t, want, buf[2*i], 1e-6, "frame %d", start+i)
	}

	rest := readAll(t, dec)
	assert.Len(t, rest, (5*44100-start)*2-64)
}

func TestStreamingDecoderSeekToStartAfterEnd(t *testing.T) {
	path := writeToneWAV(t, 44100, 2, 1)

	dec, err := NewStreamingDecoder(path, Options{})
	require.NoError(t, err)
	defer dec.Close()

	first := readAll(t, dec)
	require.Equal(t, StateEndOfStream, dec.State())

	require.NoError(t, dec.Seek(0))
	assert.Equal(t, StateReady, dec.State())
	assert.Equal(t, 0.0, dec.Position())

	again := readAll(t, dec)
	assert.Equal(t, first, again)
}

func TestStreamingDecoderSeekPastEndClamps(t *testing.T) {
	path := writeToneWAV(t, 44100, 2, 1)

	dec, err := NewStreamingDecoder(path, Options{})
	require.NoError(t, err)
	defer dec.Close()

	require.NoError(t, dec.Seek(30))
	out := readAll(t, dec)
	assert.Empty(t, out)
}

func TestStreamingDecoderNext(t *testing.T) {
	path := writeToneWAV(t, 8000, 2, 0.5)

	dec, err := NewStreamingDecoder(path, Options{})
	require.NoError(t, err)
	defer dec.Close()

	count := 0
	for {
		if _, ok := dec.Next(); !ok {
			break
		}
		count++
	}
	assert.Equal(t, 8000, count)
}

func TestStreamingDecoderProbeFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("definitely not audio"), 0o644))

	_, err := NewStreamingDecoder(path, Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProbeFailed)
	assert.True(t, IsProbeError(err))
}

func TestStreamingDecoderMissingFile(t *testing.T) {
	_, err := NewStreamingDecoder(filepath.Join(t.TempDir(), "missing.flac"), Options{})
	assert.ErrorIs(t, err, ErrProbeFailed)
}

func TestFallbackDecodesWAV(t *testing.T) {
	path := writeToneWAV(t, 44100, 2, 1)

	src, err := OpenFallback(path)
	require.NoError(t, err)
	defer src.Close()

	assert.Equal(t, 44100, src.SampleRate())
	assert.Equal(t, 2, src.Channels())
	assert.InDelta(t, 1.0, src.Duration(), 0.001)
	require.NoError(t, src.Prefill())

	out := readAll(t, src)
	require.Len(t, out, 44100*2)
	for n := 0; n < 50; n++ {
		want := float32(toneValue(n, 44100)) / 32768
		assert.InDelta(t, want, out[2*n], 1e-4)
	}

	require.NoError(t, src.Seek(0.5))
	assert.InDelta(t, 0.5, src.Position(), 0.001)
	assert.Len(t, readAll(t, src), 22050*2)
}

func TestFallbackRejectsUnknown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blob.bin")
	require.NoError(t, os.WriteFile(path, []byte{1, 2, 3, 4}, 0o644))

	_, err := OpenFallback(path)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

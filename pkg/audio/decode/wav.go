// ABOUTME: WAV codec backend
// ABOUTME: Decodes integer PCM WAV files via go-audio/wav
package decode

import (
	"fmt"
	"io"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/tonearm-audio/tonearm/pkg/audio"
)

const (
	pcmPacketFrames = 1024
	wavFormatPCM    = 1
)

type wavCodec struct {
	file     *os.File
	decoder  *wav.Decoder
	format   *goaudio.Format
	bitDepth int
	intBuf   *goaudio.IntBuffer
	out      []float32
}

func newWAVCodec(f *os.File) (*wavCodec, error) {
	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("%w: invalid wav header", ErrUnsupportedFormat)
	}
	if d.WavAudioFormat != wavFormatPCM {
		return nil, fmt.Errorf("%w: wav audio format %d", ErrUnsupportedFormat, d.WavAudioFormat)
	}
	if err := d.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoAudioTrack, err)
	}

	format := d.Format()
	channels := format.NumChannels
	return &wavCodec{
		file:     f,
		decoder:  d,
		format:   format,
		bitDepth: int(d.BitDepth),
		intBuf: &goaudio.IntBuffer{
			Format: format,
			Data:   make([]int, pcmPacketFrames*channels),
		},
		out: make([]float32, pcmPacketFrames*channels),
	}, nil
}

func (c *wavCodec) info() streamInfo {
	var frames int64
	if dur, err := c.decoder.Duration(); err == nil {
		frames = int64(math.Round(dur.Seconds() * float64(c.format.SampleRate)))
	}
	return streamInfo{
		codec:       "wav",
		sampleRate:  c.format.SampleRate,
		channels:    c.format.NumChannels,
		totalFrames: frames,
	}
}

func (c *wavCodec) readPacket() ([]float32, error) {
	n, err := c.decoder.PCMBuffer(c.intBuf)
	if n == 0 {
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("wav read: %w", err)
		}
		return nil, io.EOF
	}
	return convertInts(c.out, c.intBuf.Data[:n], c.bitDepth, true), nil
}

// WAV has no index worth using here; the decoder reopens and skips instead
func (c *wavCodec) seekFrame(int64) error {
	return errSeekUnsupported
}

func (c *wavCodec) close() error {
	return c.file.Close()
}

// convertInts normalises go-audio integer samples to float32
func convertInts(dst []float32, src []int, bitDepth int, unsigned8 bool) []float32 {
	if cap(dst) < len(src) {
		dst = make([]float32, len(src))
	}
	dst = dst[:len(src)]
	for i, v := range src {
		if bitDepth == 8 && unsigned8 {
			v -= 128
		}
		dst[i] = audio.SampleFromInt(v, bitDepth)
	}
	return dst
}

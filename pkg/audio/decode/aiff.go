// ABOUTME: AIFF codec backend
// ABOUTME: Decodes big-endian PCM AIFF files via go-audio/aiff
package decode

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-audio/aiff"
	goaudio "github.com/go-audio/audio"
)

type aiffCodec struct {
	file     *os.File
	decoder  *aiff.Decoder
	format   *goaudio.Format
	bitDepth int
	intBuf   *goaudio.IntBuffer
	out      []float32
}

func newAIFFCodec(f *os.File) (*aiffCodec, error) {
	d := aiff.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("%w: invalid aiff header", ErrUnsupportedFormat)
	}
	d.ReadInfo()

	format := d.Format()
	if format == nil || format.NumChannels == 0 {
		return nil, fmt.Errorf("%w: aiff has no sound data", ErrNoAudioTrack)
	}

	return &aiffCodec{
		file:     f,
		decoder:  d,
		format:   format,
		bitDepth: int(d.BitDepth),
		intBuf: &goaudio.IntBuffer{
			Format: format,
			Data:   make([]int, pcmPacketFrames*format.NumChannels),
		},
		out: make([]float32, pcmPacketFrames*format.NumChannels),
	}, nil
}

func (c *aiffCodec) info() streamInfo {
	var frames int64
	if dur, err := c.decoder.Duration(); err == nil {
		frames = int64(math.Round(dur.Seconds() * float64(c.format.SampleRate)))
	}
	return streamInfo{
		codec:       "aiff",
		sampleRate:  c.format.SampleRate,
		channels:    c.format.NumChannels,
		totalFrames: frames,
	}
}

func (c *aiffCodec) readPacket() ([]float32, error) {
	n, err := c.decoder.PCMBuffer(c.intBuf)
	if n == 0 {
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("aiff read: %w", err)
		}
		return nil, io.EOF
	}
	// AIFF 8-bit samples are signed, unlike WAV
	return convertInts(c.out, c.intBuf.Data[:n], c.bitDepth, false), nil
}

func (c *aiffCodec) seekFrame(int64) error {
	return errSeekUnsupported
}

func (c *aiffCodec) close() error {
	return c.file.Close()
}

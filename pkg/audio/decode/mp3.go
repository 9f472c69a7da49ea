// ABOUTME: MP3 codec backend
// ABOUTME: Decodes MP3 via go-mp3, which always yields 16-bit stereo
package decode

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/hajimehoshi/go-mp3"
	"github.com/tonearm-audio/tonearm/pkg/audio"
)

const (
	mp3FrameBytes  = 4 // 16-bit stereo
	mp3PacketBytes = 1152 * mp3FrameBytes
)

type mp3Codec struct {
	file    *os.File
	decoder *mp3.Decoder
	raw     []byte
	out     []float32
	eof     bool
}

func newMP3Codec(f *os.File) (*mp3Codec, error) {
	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	return &mp3Codec{
		file:    f,
		decoder: decoder,
		raw:     make([]byte, mp3PacketBytes),
		out:     make([]float32, mp3PacketBytes/2),
	}, nil
}

func (c *mp3Codec) info() streamInfo {
	var frames int64
	if length := c.decoder.Length(); length > 0 {
		frames = length / mp3FrameBytes
	}
	return streamInfo{
		codec:       "mp3",
		sampleRate:  c.decoder.SampleRate(),
		channels:    2,
		totalFrames: frames,
	}
}

func (c *mp3Codec) readPacket() ([]float32, error) {
	if c.eof {
		return nil, io.EOF
	}

	n, err := io.ReadFull(c.decoder, c.raw)
	if err == io.EOF {
		return nil, io.EOF
	}
	if err == io.ErrUnexpectedEOF {
		c.eof = true
	} else if err != nil {
		return nil, fmt.Errorf("mp3 read: %w", err)
	}

	n -= n % mp3FrameBytes
	samples := c.out[:n/2]
	for i := range samples {
		samples[i] = audio.SampleFromInt16(int16(binary.LittleEndian.Uint16(c.raw[i*2:])))
	}
	return samples, nil
}

func (c *mp3Codec) seekFrame(frame int64) error {
	if _, err := c.decoder.Seek(frame*mp3FrameBytes, io.SeekStart); err != nil {
		return fmt.Errorf("mp3 seek: %w", err)
	}
	c.eof = false
	return nil
}

func (c *mp3Codec) close() error {
	return c.file.Close()
}

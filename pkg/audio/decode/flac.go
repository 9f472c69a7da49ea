// ABOUTME: FLAC codec backend
// ABOUTME: Decodes FLAC frames via mewkiz/flac with native sample-accurate seek
package decode

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mewkiz/flac"
)

type flacCodec struct {
	file     *os.File
	stream   *flac.Stream
	scale    float32
	channels int
	out      []float32
}

func newFLACCodec(f *os.File) (*flacCodec, error) {
	stream, err := flac.NewSeek(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	return &flacCodec{
		file:     f,
		stream:   stream,
		scale:    float32(int64(1) << (stream.Info.BitsPerSample - 1)),
		channels: int(stream.Info.NChannels),
	}, nil
}

func (c *flacCodec) info() streamInfo {
	return streamInfo{
		codec:       "flac",
		sampleRate:  int(c.stream.Info.SampleRate),
		channels:    c.channels,
		totalFrames: int64(c.stream.Info.NSamples),
	}
}

func (c *flacCodec) readPacket() ([]float32, error) {
	frame, err := c.stream.ParseNext()
	if err == io.EOF || errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, io.EOF
	}
	if err != nil {
		return nil, fmt.Errorf("%w: flac frame: %v", ErrDecode, err)
	}

	blockSize := int(frame.BlockSize)
	need := blockSize * c.channels
	if cap(c.out) < need {
		c.out = make([]float32, need)
	}
	samples := c.out[:need]
	for ch := 0; ch < c.channels && ch < len(frame.Subframes); ch++ {
		sub := frame.Subframes[ch].Samples
		for i := 0; i < blockSize && i < len(sub); i++ {
			samples[i*c.channels+ch] = float32(sub[i]) / c.scale
		}
	}
	return samples, nil
}

func (c *flacCodec) seekFrame(frame int64) error {
	if _, err := c.stream.Seek(uint64(frame)); err != nil {
		return fmt.Errorf("flac seek: %w", err)
	}
	return nil
}

func (c *flacCodec) close() error {
	c.stream.Close()
	return c.file.Close()
}

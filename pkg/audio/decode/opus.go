//go:build !nolibopusfile

// ABOUTME: Ogg Opus codec backend
// ABOUTME: Decodes Opus via libopusfile bindings, always at 48kHz
package decode

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/hraban/opus.v2"
)

const opusSampleRate = 48000

type opusCodec struct {
	file     *os.File
	stream   *opus.Stream
	channels int
	out      []float32
}

func newOpusCodec(f *os.File, head []byte) (*opusCodec, error) {
	channels := opusHeadChannels(head)
	if channels == 0 {
		return nil, fmt.Errorf("%w: missing OpusHead", ErrNoAudioTrack)
	}

	stream, err := opus.NewStream(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	return &opusCodec{
		file:     f,
		stream:   stream,
		channels: channels,
		// 120ms is the longest opus packet
		out: make([]float32, opusSampleRate*120/1000*channels),
	}, nil
}

func (c *opusCodec) info() streamInfo {
	return streamInfo{
		codec:      "opus",
		sampleRate: opusSampleRate,
		channels:   c.channels,
	}
}

func (c *opusCodec) readPacket() ([]float32, error) {
	n, err := c.stream.ReadFloat32(c.out)
	if err == io.EOF || (err == nil && n == 0) {
		return nil, io.EOF
	}
	if err != nil {
		return nil, fmt.Errorf("%w: opus packet: %v", ErrDecode, err)
	}
	return c.out[:n*c.channels], nil
}

func (c *opusCodec) seekFrame(int64) error {
	return errSeekUnsupported
}

func (c *opusCodec) close() error {
	c.stream.Close()
	return c.file.Close()
}

// ABOUTME: Ogg Vorbis codec backend
// ABOUTME: Decodes Vorbis via jfreymuth/oggvorbis with native granule seek
package decode

import (
	"fmt"
	"io"
	"os"

	"github.com/jfreymuth/oggvorbis"
)

type vorbisCodec struct {
	file   *os.File
	reader *oggvorbis.Reader
	out    []float32
}

func newVorbisCodec(f *os.File) (*vorbisCodec, error) {
	reader, err := oggvorbis.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	return &vorbisCodec{
		file:   f,
		reader: reader,
		out:    make([]float32, pcmPacketFrames*reader.Channels()),
	}, nil
}

func (c *vorbisCodec) info() streamInfo {
	return streamInfo{
		codec:       "vorbis",
		sampleRate:  c.reader.SampleRate(),
		channels:    c.reader.Channels(),
		totalFrames: c.reader.Length(),
	}
}

func (c *vorbisCodec) readPacket() ([]float32, error) {
	n, err := c.reader.Read(c.out)
	if n > 0 {
		n -= n % c.reader.Channels()
		return c.out[:n], nil
	}
	if err == nil || err == io.EOF {
		return nil, io.EOF
	}
	return nil, fmt.Errorf("%w: vorbis packet: %v", ErrDecode, err)
}

func (c *vorbisCodec) seekFrame(frame int64) error {
	if err := c.reader.SetPosition(frame); err != nil {
		return fmt.Errorf("vorbis seek: %w", err)
	}
	return nil
}

func (c *vorbisCodec) close() error {
	return c.file.Close()
}

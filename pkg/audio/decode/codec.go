// ABOUTME: Codec backend contract and container probing
// ABOUTME: Detects the container from header magic and opens the matching backend
package decode

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// streamInfo describes a codec's native output
type streamInfo struct {
	codec       string
	sampleRate  int
	channels    int
	totalFrames int64 // 0 when unknown
}

// packetDecoder is implemented by each container/codec backend.
// readPacket returns interleaved samples at the native channel count; the
// slice is owned by the backend and valid until the next call. It returns
// io.EOF at end of stream, an ErrDecode-wrapped error for a skippable
// packet, and any other error for a fatal read failure.
type packetDecoder interface {
	info() streamInfo
	readPacket() ([]float32, error)
	seekFrame(frame int64) error
	close() error
}

type containerKind int

const (
	kindUnknown containerKind = iota
	kindMP3
	kindFLAC
	kindWAV
	kindAIFF
	kindVorbis
	kindOpus
)

func (k containerKind) String() string {
	switch k {
	case kindMP3:
		return "mp3"
	case kindFLAC:
		return "flac"
	case kindWAV:
		return "wav"
	case kindAIFF:
		return "aiff"
	case kindVorbis:
		return "vorbis"
	case kindOpus:
		return "opus"
	default:
		return "unknown"
	}
}

const probeSize = 512

// probeHeader identifies a container from its first bytes
func probeHeader(head []byte) containerKind {
	switch {
	case bytes.HasPrefix(head, []byte("fLaC")):
		return kindFLAC
	case len(head) >= 12 && bytes.Equal(head[:4], []byte("RIFF")) && bytes.Equal(head[8:12], []byte("WAVE")):
		return kindWAV
	case len(head) >= 12 && bytes.Equal(head[:4], []byte("FORM")) &&
		(bytes.Equal(head[8:12], []byte("AIFF")) || bytes.Equal(head[8:12], []byte("AIFC"))):
		return kindAIFF
	case bytes.HasPrefix(head, []byte("OggS")):
		if bytes.Contains(head, []byte("OpusHead")) {
			return kindOpus
		}
		if bytes.Contains(head, []byte("\x01vorbis")) {
			return kindVorbis
		}
		return kindUnknown
	case bytes.HasPrefix(head, []byte("ID3")):
		return kindMP3
	case len(head) >= 2 && head[0] == 0xFF && head[1]&0xE0 == 0xE0:
		return kindMP3
	default:
		return kindUnknown
	}
}

// probeExtension maps a file extension to a container
func probeExtension(path string) containerKind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return kindMP3
	case ".flac":
		return kindFLAC
	case ".wav", ".wave":
		return kindWAV
	case ".aif", ".aiff", ".aifc":
		return kindAIFF
	case ".ogg", ".oga":
		return kindVorbis
	case ".opus":
		return kindOpus
	default:
		return kindUnknown
	}
}

// openCodec probes path and opens the matching backend
func openCodec(path string) (packetDecoder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProbeFailed, err)
	}

	head := make([]byte, probeSize)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		f.Close()
		return nil, fmt.Errorf("%w: %v", ErrProbeFailed, err)
	}
	head = head[:n]

	kind := probeHeader(head)
	if kind == kindUnknown {
		kind = probeExtension(path)
	}
	if kind == kindUnknown {
		f.Close()
		return nil, fmt.Errorf("%w: unrecognised container %s", ErrProbeFailed, filepath.Base(path))
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %v", ErrProbeFailed, err)
	}

	var dec packetDecoder
	switch kind {
	case kindMP3:
		dec, err = newMP3Codec(f)
	case kindFLAC:
		dec, err = newFLACCodec(f)
	case kindWAV:
		dec, err = newWAVCodec(f)
	case kindAIFF:
		dec, err = newAIFFCodec(f)
	case kindVorbis:
		dec, err = newVorbisCodec(f)
	case kindOpus:
		dec, err = newOpusCodec(f, head)
	}
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open %s: %w", kind, err)
	}

	inf := dec.info()
	if inf.channels <= 0 || inf.sampleRate <= 0 {
		dec.close()
		return nil, fmt.Errorf("%w: %s reports %d channels at %d Hz", ErrNoAudioTrack, kind, inf.channels, inf.sampleRate)
	}
	return dec, nil
}

// opusHeadChannels reads the channel count from the OpusHead packet
func opusHeadChannels(head []byte) int {
	idx := bytes.Index(head, []byte("OpusHead"))
	if idx < 0 || idx+9 >= len(head) {
		return 0
	}
	return int(head[idx+9])
}

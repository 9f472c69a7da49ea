// ABOUTME: PCM device encoder
// ABOUTME: Encodes float32 samples to float32, int32, int24 or int16 little-endian bytes
package encode

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/tonearm-audio/tonearm/pkg/audio"
)

const (
	maxInt32Sample = 2147483647.0
	maxInt24Sample = float32(audio.Max24Bit)
	maxInt16Sample = 32767.0
)

// PCMEncoder encodes float32 samples into a device sample format
type PCMEncoder struct {
	format audio.SampleFormat
}

// NewPCM creates a new PCM encoder for the given sample format
func NewPCM(format audio.SampleFormat) (*PCMEncoder, error) {
	switch format {
	case audio.SampleFormatFloat32, audio.SampleFormatInt32, audio.SampleFormatInt24, audio.SampleFormatInt16:
		return &PCMEncoder{format: format}, nil
	default:
		return nil, fmt.Errorf("unsupported sample format: %v", format)
	}
}

// Format returns the sample format this encoder produces
func (e *PCMEncoder) Format() audio.SampleFormat {
	return e.format
}

// EncodedSize returns the number of bytes needed for n samples
func (e *PCMEncoder) EncodedSize(n int) int {
	return n * e.format.BytesPerSample()
}

// Encode converts samples to a newly allocated byte slice
func (e *PCMEncoder) Encode(samples []float32) []byte {
	out := make([]byte, e.EncodedSize(len(samples)))
	e.EncodeInto(out, samples)
	return out
}

// EncodeInto writes samples into dst and returns the number of bytes written.
// dst must hold at least EncodedSize(len(samples)) bytes.
func (e *PCMEncoder) EncodeInto(dst []byte, samples []float32) int {
	switch e.format {
	case audio.SampleFormatFloat32:
		for i, s := range samples {
			binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(s))
		}
	case audio.SampleFormatInt32:
		for i, s := range samples {
			v := int32(float64(audio.Clamp(s)) * maxInt32Sample)
			binary.LittleEndian.PutUint32(dst[i*4:], uint32(v))
		}
	case audio.SampleFormatInt24:
		for i, s := range samples {
			b := audio.SampleTo24Bit(int32(audio.Clamp(s) * maxInt24Sample))
			dst[i*3] = b[0]
			dst[i*3+1] = b[1]
			dst[i*3+2] = b[2]
		}
	case audio.SampleFormatInt16:
		for i, s := range samples {
			v := int16(audio.Clamp(s) * maxInt16Sample)
			binary.LittleEndian.PutUint16(dst[i*2:], uint16(v))
		}
	}
	return e.EncodedSize(len(samples))
}

// ABOUTME: Audio type definitions
// ABOUTME: Defines the sample source contract, device formats and sample conversions
package audio

import "fmt"

const (
	// 24-bit audio range constants
	Max24Bit = 8388607  // 2^23 - 1
	Min24Bit = -8388608 // -2^23
)

// Source is a pull-based stream of interleaved float32 samples in [-1, 1].
type Source interface {
	// ReadSamples fills dst with interleaved samples and returns how many
	// were written. It blocks until at least one sample is available and
	// returns io.EOF once the stream is exhausted.
	ReadSamples(dst []float32) (int, error)

	// SampleRate returns the frame rate in Hz
	SampleRate() int

	// Channels returns the number of interleaved channels
	Channels() int
}

// SampleFormat is the on-the-wire representation of one device sample
type SampleFormat int

const (
	SampleFormatFloat32 SampleFormat = iota
	SampleFormatInt32
	SampleFormatInt24
	SampleFormatInt16
)

// SampleFormats lists every format in negotiation preference order
var SampleFormats = []SampleFormat{
	SampleFormatFloat32,
	SampleFormatInt32,
	SampleFormatInt24,
	SampleFormatInt16,
}

// BitsPerSample returns the container bit depth
func (f SampleFormat) BitsPerSample() int {
	switch f {
	case SampleFormatInt24:
		return 24
	case SampleFormatInt16:
		return 16
	default:
		return 32
	}
}

// BytesPerSample returns the packed size of one sample
func (f SampleFormat) BytesPerSample() int {
	return f.BitsPerSample() / 8
}

// IsFloat reports whether samples are IEEE floats
func (f SampleFormat) IsFloat() bool {
	return f == SampleFormatFloat32
}

func (f SampleFormat) String() string {
	switch f {
	case SampleFormatFloat32:
		return "float32"
	case SampleFormatInt32:
		return "int32"
	case SampleFormatInt24:
		return "int24"
	case SampleFormatInt16:
		return "int16"
	default:
		return fmt.Sprintf("SampleFormat(%d)", int(f))
	}
}

// DeviceFormat describes a negotiated output stream
type DeviceFormat struct {
	SampleRate int
	Channels   int
	Sample     SampleFormat
}

// FrameSize returns the byte size of one interleaved frame
func (f DeviceFormat) FrameSize() int {
	return f.Channels * f.Sample.BytesPerSample()
}

func (f DeviceFormat) String() string {
	return fmt.Sprintf("%dHz/%dch/%s", f.SampleRate, f.Channels, f.Sample)
}

// Clamp limits a sample to [-1, 1]
func Clamp(x float32) float32 {
	if x > 1 {
		return 1
	}
	if x < -1 {
		return -1
	}
	return x
}

// SampleFromInt16 converts a 16-bit sample to float32
func SampleFromInt16(sample int16) float32 {
	return float32(sample) / 32768.0
}

// SampleFromInt converts a signed integer sample of the given bit depth to float32
func SampleFromInt(sample int, bitDepth int) float32 {
	switch bitDepth {
	case 8:
		// 8-bit PCM is unsigned in WAV; callers pass it already centered
		return float32(sample) / 128.0
	case 16:
		return float32(sample) / 32768.0
	case 24:
		return float32(sample) / 8388608.0
	case 32:
		return float32(float64(sample) / 2147483648.0)
	default:
		return float32(sample) / 32768.0
	}
}

// SampleTo24Bit converts int32 to 24-bit packed bytes (little-endian)
func SampleTo24Bit(sample int32) [3]byte {
	return [3]byte{
		byte(sample),
		byte(sample >> 8),
		byte(sample >> 16),
	}
}

// SampleFrom24Bit converts 24-bit packed bytes to int32 (little-endian)
func SampleFrom24Bit(b [3]byte) int32 {
	val := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
	// Sign extend from 24-bit to 32-bit
	if val&0x800000 != 0 {
		val |= ^0xFFFFFF
	}
	return val
}

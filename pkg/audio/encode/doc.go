// ABOUTME: Audio encoder package for device output formats
// ABOUTME: Provides the PCM encoder used by shared and exclusive outputs
// Package encode converts float32 samples into the byte layout an output
// device was opened with.
//
// Supports: float32, int32, packed int24 and int16, all little-endian.
// Integer formats clamp to [-1, 1] and scale by the format's positive maximum.
//
// Example:
//
//	enc, err := encode.NewPCM(audio.SampleFormatInt24)
//	data := enc.Encode(samples)
package encode

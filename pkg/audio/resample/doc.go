// ABOUTME: Audio resampling package backed by a windowed-sinc library
// ABOUTME: Converts decoded audio to an output device's sample rate in fixed chunks
// Package resample provides audio sample rate conversion for device output.
//
// Interleaved input is split per channel and run through one polyphase
// windowed-sinc engine per channel. Work happens in fixed-size chunks chosen
// from the source rate. A short final chunk is padded by fading the last
// sample toward zero instead of appending hard zeros.
//
// Example:
//
//	r, err := resample.New(44100, 96000, 2)
//	out, err := r.Process(nil, chunk)
//	tail, err := r.Flush(out)
package resample

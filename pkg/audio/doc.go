// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines the Source contract, device formats and sample conversion functions
// Package audio provides fundamental audio types shared by the tonearm engine.
//
// This package defines:
//   - Source: pull-based stream of interleaved float32 samples, implemented by
//     every pipeline stage (decode worker, equalizer, visualizer, resampler, remixer)
//   - SampleFormat and DeviceFormat: what an output device was opened with
//
// It also provides conversions between integer PCM and float32 samples.
//
// Example:
//
//	format := audio.DeviceFormat{
//	    SampleRate: 96000,
//	    Channels:   2,
//	    Sample:     audio.SampleFormatInt24,
//	}
//	frameBytes := format.FrameSize() // 6
package audio

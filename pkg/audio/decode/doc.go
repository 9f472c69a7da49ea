// ABOUTME: Audio decoder package for incremental file decoding
// ABOUTME: Provides the sample buffer, streaming decoder, decode worker and codec backends
// Package decode turns local audio files into interleaved float32 samples.
//
// Supported containers: MP3, FLAC, WAV, AIFF, Ogg Vorbis and Ogg Opus.
// The container is detected from the file header, with the extension as a hint.
//
// The pieces stack bottom-up:
//   - Buffer: FIFO of decoded samples with a time-based refill threshold
//   - StreamingDecoder: owns one codec, keeps the Buffer topped up, supports seek
//   - Worker: runs a StreamingDecoder on its own goroutine and hands batches
//     to a pull-style consumer over a channel
//   - FallbackSource: beep-based decoder tried when the primary probe fails
//
// Example:
//
//	dec, err := decode.NewStreamingDecoder(path, decode.Options{})
//	if err != nil {
//	    return err
//	}
//	w := decode.NewWorker(dec)
//	defer w.Close()
//	n, err := w.ReadSamples(buf)
package decode

// ABOUTME: Sentinel errors for the decode package
// ABOUTME: Classifies probe, format, packet read and recoverable decode failures
package decode

import "errors"

var (
	// ErrProbeFailed means no backend recognised the file
	ErrProbeFailed = errors.New("decode: probe failed")

	// ErrNoAudioTrack means the container holds no decodable audio
	ErrNoAudioTrack = errors.New("decode: no audio track")

	// ErrUnsupportedFormat means the container was recognised but its encoding is not supported
	ErrUnsupportedFormat = errors.New("decode: unsupported format")

	// ErrPacketRead is fatal for the current stream
	ErrPacketRead = errors.New("decode: packet read failed")

	// ErrDecode is recoverable; the offending packet is skipped
	ErrDecode = errors.New("decode: packet decode failed")

	// ErrPrefill means the initial buffer could not be filled far enough
	ErrPrefill = errors.New("decode: prefill failed")

	errSeekUnsupported = errors.New("decode: codec cannot seek")
)

// IsProbeError reports whether err should trigger the fallback decoder
func IsProbeError(err error) bool {
	return errors.Is(err, ErrProbeFailed) || errors.Is(err, ErrUnsupportedFormat) || errors.Is(err, ErrNoAudioTrack)
}

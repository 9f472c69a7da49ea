// ABOUTME: Channel remixing package
// ABOUTME: Downmixes surround layouts to stereo using ITU-R BS.775 coefficients
// Package remix converts interleaved frames between channel counts.
//
// Supported conversions:
//   - identity when counts match
//   - mono to stereo (duplicate) and stereo to mono (average)
//   - 5.1 (FL FR FC LFE SL SR) and 7.1 (FL FR FC LFE BL BR SL SR) to stereo
//   - any other arity to stereo by splitting extra channels across both sides
//
// Example:
//
//	r := remix.New(6, 2)
//	out := r.Remix(dst, frames)
package remix

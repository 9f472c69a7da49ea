// ABOUTME: Output backend contract for shared-mode playback
// ABOUTME: Backends accept interleaved float32 at a device format and own the device
package output

import "github.com/tonearm-audio/tonearm/pkg/audio"

// Backend is an OS-mixed playback device
type Backend interface {
	// Open prepares the device for format. Reopening with the current format is a no-op.
	// Backends that cannot change format once opened return ErrFormatFixed.
	Open(format audio.DeviceFormat) error

	// Format returns the format the device is open with
	Format() audio.DeviceFormat

	// Write queues samples, blocking while the device buffer is full
	Write(samples []float32) error

	// Buffered returns samples queued but not yet played
	Buffered() int

	// Flush drops queued samples
	Flush()

	Pause() error
	Resume() error

	// DeviceName is the opened device, or "" for the system default
	DeviceName() string

	// Close releases the device
	Close() error
}

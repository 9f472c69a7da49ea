// ABOUTME: Sentinel errors for the output package
// ABOUTME: Device lookup, format and lifecycle failures
package output

import "errors"

var (
	// ErrNotOpen means Write was called before Open
	ErrNotOpen = errors.New("output: device not open")

	// ErrFormatFixed means the backend keeps its first format for the process lifetime
	ErrFormatFixed = errors.New("output: backend format cannot change")

	// ErrDeviceNotFound means no playback device has the requested name
	ErrDeviceNotFound = errors.New("output: device not found")

	// ErrClosed means the backend or sink has been closed
	ErrClosed = errors.New("output: closed")
)

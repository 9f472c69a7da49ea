// ABOUTME: Sentinel errors for exclusive-mode output
// ABOUTME: Matched by callers with errors.Is
package exclusive

import "errors"

var (
	// ErrUnsupportedFormat means no candidate format was accepted by the device
	ErrUnsupportedFormat = errors.New("no supported exclusive format")

	// ErrNotInitialized is returned for commands sent before Initialize succeeded
	ErrNotInitialized = errors.New("exclusive device not initialized")

	// ErrActorClosed is returned once the actor has shut down or stopped answering
	ErrActorClosed = errors.New("exclusive actor closed")

	// ErrExclusiveUnavailable means this platform has no exclusive output API
	ErrExclusiveUnavailable = errors.New("exclusive mode unavailable on this platform")
)

// ABOUTME: Sentinel errors for the engine command surface
// ABOUTME: Error text doubles as the user-visible message
package tonearm

import "errors"

var (
	// ErrNoTrackLoaded is returned by Seek before any Play
	ErrNoTrackLoaded = errors.New("No track currently loaded")

	// ErrInvalidVolume is returned for a volume outside [0, 1]
	ErrInvalidVolume = errors.New("volume must be between 0.0 and 1.0")

	// ErrRestartRequired prefixes a mode change that applies on next start
	ErrRestartRequired = errors.New("RESTART_REQUIRED")

	// ErrDeviceNotFound is returned by SetDevice for an unknown name
	ErrDeviceNotFound = errors.New("device not found")
)

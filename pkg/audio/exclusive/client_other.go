//go:build !windows

// ABOUTME: Exclusive client constructor for platforms without an exclusive API
// ABOUTME: Always reports ErrExclusiveUnavailable so callers fall back to shared output
package exclusive

// NewClient is unavailable outside Windows
func NewClient(deviceName string) (Client, error) {
	return nil, ErrExclusiveUnavailable
}

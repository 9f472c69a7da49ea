// ABOUTME: Shared equalizer settings
// ABOUTME: Lock-guarded values with a non-blocking read for the audio path
package eq

import "sync"

// Values is a snapshot of the equalizer configuration
type Values struct {
	Enabled bool
	Gains   [BandCount]float32
	Preamp  float32

	// Preset names the last applied preset, or "" after manual edits
	Preset string
}

// Settings holds Values shared between the controller and running equalizers
type Settings struct {
	mu     sync.RWMutex
	values Values
}

// NewSettings returns flat, disabled settings
func NewSettings() *Settings {
	return &Settings{}
}

// Load blocks for a consistent snapshot
func (s *Settings) Load() Values {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values
}

// TryLoad returns a snapshot without blocking. When a writer holds the lock it
// reports false and callers keep their last known values.
func (s *Settings) TryLoad() (Values, bool) {
	if !s.mu.TryRLock() {
		return Values{}, false
	}
	defer s.mu.RUnlock()
	return s.values, true
}

// Update applies fn under the write lock
func (s *Settings) Update(fn func(v *Values)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.values)
}

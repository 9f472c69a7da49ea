// ABOUTME: Snapshot stores shared between the audio path and readers
// ABOUTME: Writers skip on contention; readers fall back to defaults
package visualize

import "sync"

// SpectrumStore holds the latest spectrum
type SpectrumStore struct {
	mu   sync.Mutex
	bins []float32
}

func NewSpectrumStore() *SpectrumStore {
	return &SpectrumStore{bins: make([]float32, Bins)}
}

// TryStore replaces the spectrum unless the store is busy
func (s *SpectrumStore) TryStore(bins []float32) bool {
	if !s.mu.TryLock() {
		return false
	}
	defer s.mu.Unlock()
	copy(s.bins, bins)
	return true
}

// Snapshot returns a copy of the spectrum, or Bins zeros when the store is busy
func (s *SpectrumStore) Snapshot() []float32 {
	out := make([]float32, Bins)
	if !s.mu.TryLock() {
		return out
	}
	defer s.mu.Unlock()
	copy(out, s.bins)
	return out
}

// Clear zeroes the spectrum
func (s *SpectrumStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.bins {
		s.bins[i] = 0
	}
}

// WaveformStore holds the most recent analysis window of mono samples
type WaveformStore struct {
	mu      sync.Mutex
	samples []float32
}

func NewWaveformStore() *WaveformStore {
	return &WaveformStore{}
}

// TryStore replaces the waveform unless the store is busy
func (s *WaveformStore) TryStore(samples []float32) bool {
	if !s.mu.TryLock() {
		return false
	}
	defer s.mu.Unlock()
	s.samples = append(s.samples[:0], samples...)
	return true
}

// Snapshot returns a copy, or an empty slice when the store is busy
func (s *WaveformStore) Snapshot() []float32 {
	if !s.mu.TryLock() {
		return []float32{}
	}
	defer s.mu.Unlock()
	out := make([]float32, len(s.samples))
	copy(out, s.samples)
	return out
}

// Clear drops the waveform
func (s *WaveformStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples = s.samples[:0]
}

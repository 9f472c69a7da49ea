// ABOUTME: Engine configuration and defaults
// ABOUTME: Zero values select defaults; hardware factories are injectable
package tonearm

import (
	"fmt"
	"sync"
	"time"

	"github.com/tonearm-audio/tonearm/pkg/audio/exclusive"
	"github.com/tonearm-audio/tonearm/pkg/audio/output"
)

// Shared backend names
const (
	BackendMalgo = "malgo"
	BackendOto   = "oto"
)

// ModeStore persists the exclusive-mode flag
type ModeStore interface {
	ExclusiveMode() (bool, error)
	SetExclusiveMode(enabled bool) error
}

// Config holds engine configuration
type Config struct {
	// Device is the output device name; empty selects the system default
	Device string

	// Volume is the initial linear volume (default: 1.0)
	Volume float32

	// SharedBackend is "malgo" (default) or "oto"
	SharedBackend string

	// BufferMs is the decode buffer length; 0 picks it from the sample rate
	BufferMs int

	// RefillThresholdMs is the decode low-water mark (default: 100)
	RefillThresholdMs int

	// DownmixToStereo folds surround sources to stereo in the decoder
	DownmixToStereo bool

	// Spectrum smoothing and event rates
	Attack           float32
	Decay            float32
	SpectrumInterval time.Duration
	PositionInterval time.Duration

	// SessionWait is how long a superseded session gets to notice (default: 50ms)
	SessionWait time.Duration

	// FadeIn ramps a new track in (default: 80ms); SeekFadeIn after a seek (default: 50ms)
	FadeIn     time.Duration
	SeekFadeIn time.Duration

	// HighWater is the exclusive ring depth the producer backs off at (default: 2s)
	HighWater time.Duration

	// Store persists the exclusive-mode flag (default: in memory)
	Store ModeStore

	// Catalog lists devices (default: malgo enumeration)
	Catalog output.Lister

	// NewBackend creates a shared-mode backend for a device name
	NewBackend func(device string) (output.Backend, error)

	// OpenExclusive creates an exclusive client (default: exclusive.NewClient)
	OpenExclusive exclusive.Opener
}

// withDefaults fills zero values
func (c Config) withDefaults() Config {
	if c.Volume == 0 {
		c.Volume = 1
	}
	if c.SharedBackend == "" {
		c.SharedBackend = BackendMalgo
	}
	if c.SessionWait == 0 {
		c.SessionWait = 50 * time.Millisecond
	}
	if c.FadeIn == 0 {
		c.FadeIn = 80 * time.Millisecond
	}
	if c.SeekFadeIn == 0 {
		c.SeekFadeIn = 50 * time.Millisecond
	}
	if c.HighWater == 0 {
		c.HighWater = 2 * time.Second
	}
	if c.Store == nil {
		c.Store = &MemoryStore{}
	}
	if c.NewBackend == nil {
		c.NewBackend = BackendFactory(c.SharedBackend)
	}
	if c.OpenExclusive == nil {
		c.OpenExclusive = exclusive.NewClient
	}
	return c
}

// BackendFactory returns a constructor for the named shared backend
func BackendFactory(name string) func(device string) (output.Backend, error) {
	return func(device string) (output.Backend, error) {
		switch name {
		case BackendMalgo, "":
			return output.NewMalgo(device), nil
		case BackendOto:
			if device != "" {
				return nil, fmt.Errorf("oto backend plays on the default device only, not %q", device)
			}
			return output.NewOto(), nil
		default:
			return nil, fmt.Errorf("unknown shared backend %q", name)
		}
	}
}

// MemoryStore keeps the exclusive-mode flag for the process lifetime
type MemoryStore struct {
	mu      sync.Mutex
	enabled bool
}

func (m *MemoryStore) ExclusiveMode() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enabled, nil
}

func (m *MemoryStore) SetExclusiveMode(enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = enabled
	return nil
}

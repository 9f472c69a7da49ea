// ABOUTME: Engine event fan-out
// ABOUTME: Buffered per-subscriber channels with non-blocking sends that drop on a full buffer
package tonearm

import "sync"

const eventBufferSize = 16

// DeviceEventKind identifies a device change
type DeviceEventKind int

const (
	DeviceAdded DeviceEventKind = iota
	DeviceRemoved
	DeviceFallback
)

func (k DeviceEventKind) String() string {
	switch k {
	case DeviceAdded:
		return "device-added"
	case DeviceRemoved:
		return "device-removed"
	case DeviceFallback:
		return "device-fallback"
	default:
		return "device-unknown"
	}
}

// DeviceEvent reports a device change. From and To are set for DeviceFallback.
type DeviceEvent struct {
	Kind DeviceEventKind
	Name string
	From string
	To   string
}

// Subscription provides event channels for a subscriber
type Subscription struct {
	Spectrum   <-chan []float32
	Position   <-chan float64
	TrackEnded <-chan struct{}
	Devices    <-chan DeviceEvent
	Done       <-chan struct{}

	spectrumCh chan []float32
	positionCh chan float64
	endedCh    chan struct{}
	devicesCh  chan DeviceEvent
	doneCh     chan struct{}

	bus  *EventBus
	once sync.Once
}

func newSubscription(bus *EventBus) *Subscription {
	s := &Subscription{
		spectrumCh: make(chan []float32, eventBufferSize),
		positionCh: make(chan float64, eventBufferSize),
		endedCh:    make(chan struct{}, eventBufferSize),
		devicesCh:  make(chan DeviceEvent, eventBufferSize),
		doneCh:     make(chan struct{}),
		bus:        bus,
	}
	s.Spectrum = s.spectrumCh
	s.Position = s.positionCh
	s.TrackEnded = s.endedCh
	s.Devices = s.devicesCh
	s.Done = s.doneCh
	return s
}

// Unsubscribe stops delivery and closes Done
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.bus.remove(s)
		close(s.doneCh)
	})
}

// EventBus delivers engine events to every subscriber
type EventBus struct {
	mu   sync.RWMutex
	subs map[*Subscription]struct{}
}

// NewEventBus creates an empty bus
func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[*Subscription]struct{})}
}

// Subscribe registers a new subscriber
func (b *EventBus) Subscribe() *Subscription {
	s := newSubscription(b)
	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()
	return s
}

func (b *EventBus) remove(s *Subscription) {
	b.mu.Lock()
	delete(b.subs, s)
	b.mu.Unlock()
}

// Close unsubscribes everyone
func (b *EventBus) Close() {
	b.mu.RLock()
	subs := make([]*Subscription, 0, len(b.subs))
	for s := range b.subs {
		subs = append(subs, s)
	}
	b.mu.RUnlock()
	for _, s := range subs {
		s.Unsubscribe()
	}
}

// each visits subscribers without blocking. Events raised while the
// subscriber set is being changed are dropped.
func (b *EventBus) each(fn func(s *Subscription)) {
	if !b.mu.TryRLock() {
		return
	}
	defer b.mu.RUnlock()
	for s := range b.subs {
		fn(s)
	}
}

// EmitSpectrum sends a spectrum frame (non-blocking)
func (b *EventBus) EmitSpectrum(bins []float32) {
	b.each(func(s *Subscription) {
		select {
		case s.spectrumCh <- bins:
		default:
		}
	})
}

// EmitPosition sends a playback position in seconds (non-blocking)
func (b *EventBus) EmitPosition(seconds float64) {
	b.each(func(s *Subscription) {
		select {
		case s.positionCh <- seconds:
		default:
		}
	})
}

// EmitTrackEnded signals the end of the current track (non-blocking)
func (b *EventBus) EmitTrackEnded() {
	b.each(func(s *Subscription) {
		select {
		case s.endedCh <- struct{}{}:
		default:
		}
	})
}

// EmitDevice sends a device change (non-blocking)
func (b *EventBus) EmitDevice(e DeviceEvent) {
	b.each(func(s *Subscription) {
		select {
		case s.devicesCh <- e:
		default:
		}
	})
}

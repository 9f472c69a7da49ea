// ABOUTME: Caller side of the exclusive device actor
// ABOUTME: Typed request methods with timeouts, plus lock-free ring and state access
package exclusive

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tonearm-audio/tonearm/pkg/audio"
	"github.com/tonearm-audio/tonearm/pkg/audio/output"
)

const (
	// CommandTimeout bounds the wait for a response
	CommandTimeout = 2 * time.Second

	// InitializeTimeout allows for a slow format probe
	InitializeTimeout = 10 * time.Second
)

type deviceInfo struct {
	format audio.DeviceFormat
	name   string
}

// Handle talks to one actor goroutine. Requests are serialized; Push,
// Buffered and State may be called from any goroutine.
type Handle struct {
	commands chan Command
	done     chan struct{}

	mu sync.Mutex

	state  atomic.Int32
	volume atomic.Uint32
	ring   atomic.Pointer[output.RingBuffer]
	info   atomic.Pointer[deviceInfo]
}

// Spawn starts an actor that creates its client through open
func Spawn(open Opener) *Handle {
	h := &Handle{
		commands: make(chan Command),
		done:     make(chan struct{}),
	}
	h.volume.Store(math.Float32bits(1))
	h.info.Store(&deviceInfo{})

	a := &actor{h: h, open: open}
	go a.run()
	return h
}

// request sends cmd and waits for its response. Each request carries its
// own reply channel, so an answer arriving after a timeout is never read by
// a later request.
func (h *Handle) request(cmd Command, timeout time.Duration) (Response, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	reply := make(chan Response, 1)
	cmd.reply = reply

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case h.commands <- cmd:
	case <-h.done:
		return Response{}, ErrActorClosed
	case <-timer.C:
		return Response{}, fmt.Errorf("%w: %s not accepted", ErrActorClosed, cmd.Kind)
	}

	select {
	case resp := <-reply:
		return resp, nil
	case <-h.done:
		// Shutdown replies before exiting
		select {
		case resp := <-reply:
			return resp, nil
		default:
		}
		return Response{}, ErrActorClosed
	case <-timer.C:
		return Response{}, fmt.Errorf("%w: %s timed out", ErrActorClosed, cmd.Kind)
	}
}

func (h *Handle) simple(kind CommandKind) error {
	resp, err := h.request(Command{Kind: kind}, CommandTimeout)
	if err != nil {
		return err
	}
	if resp.Kind == RespError {
		return resp.Err
	}
	return nil
}

// Initialize opens deviceName (or the default when empty) and negotiates a format
func (h *Handle) Initialize(deviceName string) (audio.DeviceFormat, error) {
	resp, err := h.request(Command{Kind: CmdInitialize, DeviceName: deviceName}, InitializeTimeout)
	if err != nil {
		return audio.DeviceFormat{}, err
	}
	switch resp.Kind {
	case RespInitialized:
		return resp.Format, nil
	case RespInitFailed:
		return audio.DeviceFormat{}, fmt.Errorf("exclusive init failed: %w", resp.Err)
	default:
		return audio.DeviceFormat{}, resp.Err
	}
}

func (h *Handle) Start() error       { return h.simple(CmdStart) }
func (h *Handle) Stop() error        { return h.simple(CmdStop) }
func (h *Handle) Pause() error       { return h.simple(CmdPause) }
func (h *Handle) Resume() error      { return h.simple(CmdResume) }
func (h *Handle) ClearBuffer() error { return h.simple(CmdClearBuffer) }

// SetVolume sets the linear gain applied on the device side
func (h *Handle) SetVolume(v float32) error {
	resp, err := h.request(Command{Kind: CmdSetVolume, Volume: v}, CommandTimeout)
	if err != nil {
		return err
	}
	if resp.Kind == RespError {
		return resp.Err
	}
	return nil
}

// Shutdown releases the device and ends the actor. Later calls return ErrActorClosed.
func (h *Handle) Shutdown() error {
	err := h.simple(CmdShutdown)
	<-h.done
	return err
}

// Done is closed when the actor has exited
func (h *Handle) Done() <-chan struct{} { return h.done }

// Push appends samples to the ring and returns how many fit
func (h *Handle) Push(samples []float32) int {
	ring := h.ring.Load()
	if ring == nil {
		return 0
	}
	return ring.Write(samples)
}

// WaitWritable waits up to timeout for ring space
func (h *Handle) WaitWritable(timeout time.Duration) bool {
	ring := h.ring.Load()
	if ring == nil {
		time.Sleep(timeout)
		return false
	}
	return ring.WaitWritable(timeout)
}

// Buffered returns samples waiting in the ring
func (h *Handle) Buffered() int {
	ring := h.ring.Load()
	if ring == nil {
		return 0
	}
	return ring.Available()
}

// BufferedDuration converts Buffered to time at the negotiated format
func (h *Handle) BufferedDuration() time.Duration {
	f := h.Format()
	if f.SampleRate == 0 || f.Channels == 0 {
		return 0
	}
	return time.Duration(h.Buffered()) * time.Second / time.Duration(f.SampleRate*f.Channels)
}

// State returns the last state the actor published
func (h *Handle) State() State { return State(h.state.Load()) }

// Format returns the negotiated format, zero before Initialize
func (h *Handle) Format() audio.DeviceFormat { return h.info.Load().format }

// DeviceName returns the initialized device name
func (h *Handle) DeviceName() string { return h.info.Load().name }

// Volume returns the current gain
func (h *Handle) Volume() float32 { return math.Float32frombits(h.volume.Load()) }

func (h *Handle) storeVolume(v float32) {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	h.volume.Store(math.Float32bits(v))
}

func (h *Handle) publish(ring *output.RingBuffer, format audio.DeviceFormat, name string) {
	h.ring.Store(ring)
	h.info.Store(&deviceInfo{format: format, name: name})
}

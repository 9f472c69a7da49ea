// ABOUTME: Exclusive device actor
// ABOUTME: One goroutine owns the Client, answers commands and drains the ring into the device
package exclusive

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tonearm-audio/tonearm/pkg/audio"
	"github.com/tonearm-audio/tonearm/pkg/audio/encode"
	"github.com/tonearm-audio/tonearm/pkg/audio/output"
)

const (
	// readyWait bounds each wait for a buffer-ready signal
	readyWait = 10 * time.Millisecond

	// ringSeconds sizes the push-side ring above the producer high-water mark
	ringSeconds = 3
)

// CommandKind identifies an actor command
type CommandKind int

const (
	CmdInitialize CommandKind = iota
	CmdStart
	CmdStop
	CmdPause
	CmdResume
	CmdSetVolume
	CmdClearBuffer
	CmdShutdown
)

func (k CommandKind) String() string {
	switch k {
	case CmdInitialize:
		return "initialize"
	case CmdStart:
		return "start"
	case CmdStop:
		return "stop"
	case CmdPause:
		return "pause"
	case CmdResume:
		return "resume"
	case CmdSetVolume:
		return "set-volume"
	case CmdClearBuffer:
		return "clear-buffer"
	case CmdShutdown:
		return "shutdown"
	default:
		return fmt.Sprintf("CommandKind(%d)", int(k))
	}
}

// Command is a message to the actor
type Command struct {
	Kind       CommandKind
	DeviceName string  // Initialize
	Volume     float32 // SetVolume

	reply chan Response
}

// ResponseKind identifies an actor response
type ResponseKind int

const (
	RespOK ResponseKind = iota
	RespError
	RespInitialized
	RespInitFailed
)

// Response answers exactly one Command
type Response struct {
	Kind       ResponseKind
	Err        error
	Format     audio.DeviceFormat // Initialized
	DeviceName string             // Initialized
}

// State is the device state as seen by the actor
type State int32

const (
	StateUninitialized State = iota
	StateStopped
	StatePlaying
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateStopped:
		return "stopped"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

type actor struct {
	h    *Handle
	open Opener

	client  Client
	format  audio.DeviceFormat
	encoder *encode.PCMEncoder
	ring    *output.RingBuffer

	scratch  []float32
	encoded  []byte
	underrun bool
}

func (a *actor) run() {
	defer close(a.h.done)
	defer a.release()
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("exclusive actor panicked")
		}
	}()

	for {
		if State(a.h.state.Load()) == StatePlaying {
			select {
			case cmd := <-a.h.commands:
				if !a.handle(cmd) {
					return
				}
			default:
				a.pumpPeriod()
			}
			continue
		}

		// Nothing to play; block until the next command
		if !a.handle(<-a.h.commands) {
			return
		}
	}
}

// handle runs one command and reports whether the actor keeps running
func (a *actor) handle(cmd Command) bool {
	switch cmd.Kind {
	case CmdInitialize:
		a.reply(cmd, a.initialize(cmd.DeviceName))
		return true
	case CmdShutdown:
		a.release()
		a.reply(cmd, Response{Kind: RespOK})
		return false
	}

	if a.client == nil {
		a.reply(cmd, errResponse(ErrNotInitialized))
		return true
	}

	var err error
	switch cmd.Kind {
	case CmdStart:
		err = a.start()
	case CmdStop:
		err = a.stop()
	case CmdPause:
		if a.state() == StatePlaying {
			err = a.client.Stop()
			a.setState(StatePaused)
		}
	case CmdResume:
		if a.state() == StatePaused {
			err = a.start()
		}
	case CmdSetVolume:
		a.h.storeVolume(cmd.Volume)
	case CmdClearBuffer:
		a.ring.Clear()
	default:
		err = fmt.Errorf("unknown command %s", cmd.Kind)
	}

	if err != nil {
		a.reply(cmd, errResponse(err))
	} else {
		a.reply(cmd, Response{Kind: RespOK})
	}
	return true
}

func errResponse(err error) Response {
	return Response{Kind: RespError, Err: err}
}

// reply answers on the command's own channel. It has room for one response,
// so a caller that already gave up never blocks the actor.
func (a *actor) reply(cmd Command, resp Response) {
	if cmd.reply == nil {
		return
	}
	cmd.reply <- resp
}

func (a *actor) state() State { return State(a.h.state.Load()) }

func (a *actor) setState(s State) { a.h.state.Store(int32(s)) }

func (a *actor) initialize(deviceName string) Response {
	a.release()

	client, err := a.open(deviceName)
	if err != nil {
		return Response{Kind: RespInitFailed, Err: err}
	}

	format, err := Negotiate(client)
	if err != nil {
		if cerr := client.Close(); cerr != nil {
			log.Debug().Err(cerr).Msg("close exclusive client")
		}
		return Response{Kind: RespInitFailed, Err: err}
	}

	encoder, err := encode.NewPCM(format.Sample)
	if err != nil {
		client.Close()
		return Response{Kind: RespInitFailed, Err: err}
	}

	a.client = client
	a.format = format
	a.encoder = encoder
	a.ring = output.NewRingBuffer(format.SampleRate * format.Channels * ringSeconds)
	a.underrun = false
	a.h.publish(a.ring, format, client.Name())
	a.setState(StateStopped)

	log.Info().Str("device", client.Name()).Msgf("exclusive output negotiated %s", format)
	return Response{Kind: RespInitialized, Format: format, DeviceName: client.Name()}
}

func (a *actor) start() error {
	if a.state() == StatePlaying {
		return nil
	}
	if err := a.client.Start(); err != nil {
		return fmt.Errorf("start exclusive device: %w", err)
	}
	a.setState(StatePlaying)
	return nil
}

func (a *actor) stop() error {
	var err error
	if s := a.state(); s == StatePlaying || s == StatePaused {
		err = a.client.Stop()
	}
	a.ring.Clear()
	a.setState(StateStopped)
	return err
}

// release closes the current client. Safe to call repeatedly.
func (a *actor) release() {
	if a.client == nil {
		return
	}
	if a.state() == StatePlaying || a.state() == StatePaused {
		if err := a.client.Stop(); err != nil {
			log.Debug().Err(err).Msg("stop exclusive client")
		}
	}
	if err := a.client.Close(); err != nil {
		log.Debug().Err(err).Msg("close exclusive client")
	}
	a.client = nil
	a.setState(StateUninitialized)
}

// pumpPeriod waits for one device period and fills it from the ring
func (a *actor) pumpPeriod() {
	frames, ok := a.client.WaitReady(readyWait)
	if !ok || frames <= 0 {
		return
	}

	n := frames * a.format.Channels
	if cap(a.scratch) < n {
		a.scratch = make([]float32, n)
	}
	buf := a.scratch[:n]

	// Read zero-fills whatever the producer has not supplied yet
	got := a.ring.Read(buf)
	if got < n && !a.underrun {
		a.underrun = true
		log.Debug().Int("missing", n-got).Msg("exclusive output underrun")
	} else if got == n {
		a.underrun = false
	}

	if vol := a.h.Volume(); vol != 1 {
		for i := range buf {
			buf[i] *= vol
		}
	}

	size := a.encoder.EncodedSize(n)
	if cap(a.encoded) < size {
		a.encoded = make([]byte, size)
	}
	a.encoder.EncodeInto(a.encoded[:size], buf)

	if err := a.client.Write(a.encoded[:size]); err != nil {
		log.Warn().Err(err).Str("device", a.client.Name()).Msg("exclusive write failed, stopping")
		if serr := a.client.Stop(); serr != nil {
			log.Debug().Err(serr).Msg("stop after write failure")
		}
		a.setState(StateStopped)
	}
}

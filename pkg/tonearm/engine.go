// ABOUTME: Playback engine owning the sink, exclusive actor and session state
// ABOUTME: Implements the command surface and non-blocking status reads
package tonearm

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/tonearm-audio/tonearm/pkg/audio"
	"github.com/tonearm-audio/tonearm/pkg/audio/decode"
	"github.com/tonearm-audio/tonearm/pkg/audio/eq"
	"github.com/tonearm-audio/tonearm/pkg/audio/exclusive"
	"github.com/tonearm-audio/tonearm/pkg/audio/output"
	"github.com/tonearm-audio/tonearm/pkg/audio/visualize"
)

// Mode is the active output path
type Mode string

const (
	ModeShared    Mode = "shared"
	ModeExclusive Mode = "exclusive"
)

// workerExitWait bounds how long Close waits for a decode call in progress
const workerExitWait = 2 * time.Second

// Status is a best-effort snapshot of the engine
type Status struct {
	Playing  bool
	Paused   bool
	Volume   float32
	Position float64
	Duration float64
	Path     string
	Mode     Mode
	Device   string
}

// Engine plays one track at a time. Commands are serialized; status and
// visualization reads never block on them.
type Engine struct {
	config Config

	events   *EventBus
	eq       *eq.Controller
	spectrum *visualize.SpectrumStore
	waveform *visualize.WaveformStore
	catalog  output.Lister
	closer   io.Closer

	// generation identifies the current session; stopping is raised while
	// one session is being replaced by the next
	generation atomic.Uint64
	stopping   atomic.Bool
	playing    atomic.Bool

	mu        sync.Mutex
	sink      *output.SharedSink
	actor     *exclusive.Handle
	exclusive bool
	device    string
	volume    float32
	paused    bool
	path      string
	duration  float64
	stage     *visualize.Stage
	worker    *decode.Worker
	sessionID uuid.UUID
	closed    bool
}

// NewEngine creates an engine. When the store asks for exclusive mode and
// the device cannot be opened exclusively, the engine runs in shared mode.
func NewEngine(config Config) (*Engine, error) {
	config = config.withDefaults()
	if config.Volume < 0 || config.Volume > 1 {
		return nil, ErrInvalidVolume
	}

	e := &Engine{
		config:   config,
		events:   NewEventBus(),
		eq:       eq.NewController(eq.NewSettings()),
		spectrum: visualize.NewSpectrumStore(),
		waveform: visualize.NewWaveformStore(),
		catalog:  config.Catalog,
		device:   config.Device,
		volume:   config.Volume,
	}

	if e.catalog == nil {
		catalog, err := output.NewCatalog()
		if err != nil {
			log.Warn().Err(err).Msg("device enumeration unavailable")
		} else {
			e.catalog = catalog
			e.closer = catalog
		}
	}

	backend, err := config.NewBackend(config.Device)
	if err != nil {
		return nil, fmt.Errorf("failed to create output: %w", err)
	}
	e.sink = output.NewSharedSink(backend)
	e.sink.SetVolume(e.volume)

	wantExclusive, err := config.Store.ExclusiveMode()
	if err != nil {
		log.Warn().Err(err).Msg("could not read exclusive mode setting")
	}
	if wantExclusive {
		if h, err := e.openExclusive(config.Device); err != nil {
			log.Warn().Err(err).Msg("exclusive mode unavailable, using shared mode")
		} else {
			e.actor = h
			e.exclusive = true
		}
	}

	log.Info().Str("mode", string(e.mode())).Str("device", e.deviceLabel()).Msg("engine ready")
	return e, nil
}

func (e *Engine) openExclusive(device string) (*exclusive.Handle, error) {
	h := exclusive.Spawn(e.config.OpenExclusive)
	if _, err := h.Initialize(device); err != nil {
		h.Shutdown()
		return nil, err
	}
	if err := h.SetVolume(e.volume); err != nil {
		log.Debug().Err(err).Msg("exclusive volume")
	}
	return h, nil
}

func (e *Engine) mode() Mode {
	if e.exclusive {
		return ModeExclusive
	}
	return ModeShared
}

func (e *Engine) deviceLabel() string {
	if e.device == "" {
		return "default"
	}
	return e.device
}

// EQ returns the equalizer command surface
func (e *Engine) EQ() *eq.Controller { return e.eq }

// Subscribe registers for engine events
func (e *Engine) Subscribe() *Subscription { return e.events.Subscribe() }

// Spectrum returns the latest smoothed spectrum, or zeros under contention
func (e *Engine) Spectrum() []float32 { return e.spectrum.Snapshot() }

// Waveform returns the latest analysis window, or nothing under contention
func (e *Engine) Waveform() []float32 { return e.waveform.Snapshot() }

// Play starts path from the beginning or from *position seconds
func (e *Engine) Play(path string, position *float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return output.ErrClosed
	}
	return e.play(path, position, e.config.FadeIn)
}

// Seek restarts the current track at seconds
func (e *Engine) Seek(seconds float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.path == "" {
		return ErrNoTrackLoaded
	}
	if seconds < 0 {
		seconds = 0
	}
	wasPaused := e.paused
	if err := e.play(e.path, &seconds, e.config.SeekFadeIn); err != nil {
		return err
	}
	if wasPaused {
		return e.pause()
	}
	return nil
}

// Pause holds output; the session keeps its place
func (e *Engine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pause()
}

func (e *Engine) pause() error {
	if e.exclusive {
		if err := e.actor.Pause(); err != nil {
			return err
		}
	} else {
		e.sink.Pause()
	}
	e.paused = true
	return nil
}

// Resume continues after Pause
func (e *Engine) Resume() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.exclusive {
		if err := e.actor.Resume(); err != nil {
			return err
		}
	} else {
		e.sink.Play()
	}
	e.paused = false
	return nil
}

// SetVolume sets the linear volume in [0, 1]
func (e *Engine) SetVolume(v float32) error {
	if v < 0 || v > 1 {
		return fmt.Errorf("%w: %g", ErrInvalidVolume, v)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.volume = v
	e.sink.SetVolume(v)
	if e.exclusive {
		return e.actor.SetVolume(v)
	}
	return nil
}

// SetExclusiveMode persists the flag. A change applies on the next start and
// is reported with an error wrapping ErrRestartRequired.
func (e *Engine) SetExclusiveMode(enabled bool) error {
	current, err := e.config.Store.ExclusiveMode()
	if err != nil {
		return fmt.Errorf("read exclusive mode: %w", err)
	}
	if current == enabled {
		return nil
	}
	if err := e.config.Store.SetExclusiveMode(enabled); err != nil {
		return fmt.Errorf("save exclusive mode: %w", err)
	}

	state := "disabled"
	if enabled {
		state = "enabled"
	}
	return fmt.Errorf("%w: exclusive mode %s, restart to apply", ErrRestartRequired, state)
}

// ExclusiveModeSetting reports the stored flag, which applies from the next start
func (e *Engine) ExclusiveModeSetting() (bool, error) {
	return e.config.Store.ExclusiveMode()
}

// Status returns a snapshot without waiting on commands. Under contention it
// reports volume 1.0 and not playing.
func (e *Engine) Status() Status {
	if !e.mu.TryLock() {
		return Status{Volume: 1}
	}
	defer e.mu.Unlock()

	s := Status{
		Playing:  e.playing.Load() && !e.paused,
		Paused:   e.paused,
		Volume:   e.volume,
		Duration: e.duration,
		Path:     e.path,
		Mode:     e.mode(),
		Device:   e.deviceLabel(),
	}
	// the actor can stop on a failed write before the producer notices
	if e.exclusive && e.actor.State() != exclusive.StatePlaying {
		s.Playing = false
	}
	if e.stage != nil {
		s.Position = e.stage.Position()
	}
	return s
}

// IsFinished reports whether the current track has played out
func (e *Engine) IsFinished() bool {
	if !e.mu.TryLock() {
		return false
	}
	defer e.mu.Unlock()

	if e.exclusive {
		return e.actor.State() == exclusive.StateStopped
	}
	return e.sink.Empty() && !e.sink.IsPaused()
}

// Close stops playback and releases all devices
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true
	worker := e.worker
	e.supersede()
	if worker != nil {
		select {
		case <-worker.Done():
		case <-time.After(workerExitWait):
			log.Warn().Msg("decode worker still busy at close")
		}
	}

	var errs []error
	if e.actor != nil {
		if err := e.actor.Shutdown(); err != nil && !errors.Is(err, exclusive.ErrActorClosed) {
			errs = append(errs, err)
		}
	}
	if err := e.sink.Close(); err != nil {
		errs = append(errs, err)
	}
	if e.closer != nil {
		if err := e.closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	e.events.Close()
	return errors.Join(errs...)
}

// isCurrent reports whether gen may still write to the output
func (e *Engine) isCurrent(gen uint64) bool {
	return !e.stopping.Load() && e.generation.Load() == gen
}

// supersede retires the running session. Its goroutines see the new
// generation at their next chunk and exit without touching the output.
func (e *Engine) supersede() uint64 {
	e.stopping.Store(true)
	gen := e.generation.Add(1)
	e.playing.Store(false)

	if e.exclusive {
		if err := e.actor.Stop(); err != nil {
			log.Debug().Err(err).Msg("stop exclusive output")
		}
	} else {
		e.sink.Stop()
	}
	// the old worker exits on its own; a slow decode call must not hold up
	// the next command
	if e.worker != nil {
		e.worker.Stop()
		e.worker = nil
	}

	time.Sleep(e.config.SessionWait)
	e.stopping.Store(false)
	return gen
}

// play runs with e.mu held
func (e *Engine) play(path string, position *float64, fadeIn time.Duration) error {
	gen := e.supersede()
	e.sessionID = uuid.New()
	logger := log.With().Str("session", e.sessionID.String()).Uint64("generation", gen).Logger()

	worker, duration, err := e.openTrack(path, position)
	if err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("open track failed")
		return err
	}

	start := 0.0
	if position != nil {
		start = *position
	}

	stage := visualize.NewStage(eq.NewSource(worker, e.eq.Settings()), visualize.Options{
		Attack:           e.config.Attack,
		Decay:            e.config.Decay,
		SpectrumInterval: e.config.SpectrumInterval,
		PositionInterval: e.config.PositionInterval,
		StartPosition:    start,
		Spectrum:         e.spectrum,
		Waveform:         e.waveform,
		Emitter:          e.events,
	})

	if e.exclusive {
		err = e.startExclusive(gen, stage)
	} else {
		err = e.startShared(gen, stage, fadeIn)
	}
	if err != nil {
		worker.Close()
		return err
	}

	e.worker = worker
	e.stage = stage
	e.path = path
	e.duration = duration
	e.paused = false
	e.playing.Store(true)

	logger.Info().Str("path", path).Float64("start", start).Str("mode", string(e.mode())).Msg("playing")
	return nil
}

// openTrack opens path with the streaming decoder, or the fallback decoder
// when the file is not recognised, and hands it to a decode worker
func (e *Engine) openTrack(path string, position *float64) (*decode.Worker, float64, error) {
	dec, err := decode.NewStreamingDecoder(path, decode.Options{
		BufferMs:          e.config.BufferMs,
		RefillThresholdMs: e.config.RefillThresholdMs,
		DownmixToStereo:   e.config.DownmixToStereo,
	})
	if err != nil {
		if !decode.IsProbeError(err) {
			return nil, 0, err
		}
		fb, ferr := decode.OpenFallback(path)
		if ferr != nil {
			return nil, 0, fmt.Errorf("%w (fallback: %v)", err, ferr)
		}
		log.Debug().Err(err).Str("path", path).Msg("using fallback decoder")
		if position != nil && *position > 0 {
			if serr := fb.Seek(*position); serr != nil {
				fb.Close()
				return nil, 0, serr
			}
		}
		return decode.NewWorker(fb), fb.Duration(), nil
	}

	if position != nil && *position > 0 {
		if err := dec.Seek(*position); err != nil {
			dec.Close()
			return nil, 0, fmt.Errorf("seek to %.2fs: %w", *position, err)
		}
	}
	return decode.NewWorker(dec), dec.Duration(), nil
}

// trackEnded emits track-ended once for a session that is still current
func (e *Engine) trackEnded(gen uint64) {
	if !e.isCurrent(gen) {
		return
	}
	e.playing.Store(false)
	e.events.EmitTrackEnded()
	log.Debug().Uint64("generation", gen).Msg("track ended")
}

// gatedSource ends a superseded session at its next read
type gatedSource struct {
	audio.Source
	live func() bool
}

func (g *gatedSource) ReadSamples(dst []float32) (int, error) {
	if !g.live() {
		return 0, io.EOF
	}
	return g.Source.ReadSamples(dst)
}

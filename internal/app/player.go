// ABOUTME: Main player application orchestration
// ABOUTME: Coordinates the engine, device monitor, TUI commands and settings persistence
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/tonearm-audio/tonearm/internal/config"
	"github.com/tonearm-audio/tonearm/internal/ui"
	"github.com/tonearm-audio/tonearm/pkg/audio/eq"
	"github.com/tonearm-audio/tonearm/pkg/tonearm"
)

// errQuit ends Run without being reported as a failure
var errQuit = errors.New("quit")

// Sender receives TUI messages; *tea.Program implements it
type Sender interface {
	Send(msg tea.Msg)
}

// Config holds player configuration
type Config struct {
	// Path is the track to play on start
	Path string

	// ConfigPath is where volume and EQ are saved on exit; empty disables saving
	ConfigPath string

	// ExitOnEnd stops Run when the track finishes
	ExitOnEnd bool

	// StatusInterval paces status pushes to the TUI (default: 250ms)
	StatusInterval time.Duration

	// MonitorInterval paces device polling (default: 2s)
	MonitorInterval time.Duration
}

// Player represents the main player application
type Player struct {
	config  Config
	engine  *tonearm.Engine
	control *ui.Control
	ui      Sender
}

// New creates a new player. control and sender may be nil when there is no TUI.
func New(engine *tonearm.Engine, config Config, control *ui.Control, sender Sender) *Player {
	if config.StatusInterval == 0 {
		config.StatusInterval = 250 * time.Millisecond
	}
	if config.MonitorInterval == 0 {
		config.MonitorInterval = tonearm.DefaultMonitorInterval
	}
	return &Player{
		config:  config,
		engine:  engine,
		control: control,
		ui:      sender,
	}
}

// Run plays the configured track and serves commands until ctx is done,
// the user quits, or the track ends with ExitOnEnd set.
func (p *Player) Run(ctx context.Context) error {
	sub := p.engine.Subscribe()
	defer sub.Unsubscribe()

	if p.config.Path != "" {
		if err := p.engine.Play(p.config.Path, nil); err != nil {
			return fmt.Errorf("play %s: %w", p.config.Path, err)
		}
		log.Info().Str("path", p.config.Path).Msg("Playback started")
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return tonearm.NewMonitor(p.engine, p.config.MonitorInterval).Run(ctx)
	})
	g.Go(func() error {
		return p.pumpEvents(ctx, sub)
	})
	g.Go(func() error {
		return p.statusLoop(ctx)
	})
	if p.control != nil {
		g.Go(func() error {
			return p.handleControls(ctx)
		})
	}

	err := g.Wait()
	if errors.Is(err, errQuit) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// pumpEvents forwards engine events to the TUI and the log
func (p *Player) pumpEvents(ctx context.Context, sub *tonearm.Subscription) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-sub.Done:
			return nil
		case bins := <-sub.Spectrum:
			p.send(ui.SpectrumMsg{Bins: bins})
		case <-sub.Position:
			// status ticks carry position
		case ev := <-sub.Devices:
			p.deviceEvent(ev)
		case <-sub.TrackEnded:
			log.Info().Msg("Track finished")
			if p.config.ExitOnEnd {
				return errQuit
			}
			p.send(ui.NoticeMsg{Text: "Finished"})
		}
	}
}

func (p *Player) deviceEvent(ev tonearm.DeviceEvent) {
	var text string
	switch ev.Kind {
	case tonearm.DeviceAdded:
		text = fmt.Sprintf("Device added: %s", ev.Name)
	case tonearm.DeviceRemoved:
		text = fmt.Sprintf("Device removed: %s", ev.Name)
	case tonearm.DeviceFallback:
		text = fmt.Sprintf("%s disconnected, playing on %s", ev.From, deviceLabel(ev.To))
	}
	log.Info().Str("event", ev.Kind.String()).Str("device", ev.Name).Msg(text)
	p.send(ui.NoticeMsg{Text: text})
}

func (p *Player) statusLoop(ctx context.Context) error {
	ticker := time.NewTicker(p.config.StatusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.send(p.status())
		}
	}
}

// handleControls processes commands from the TUI
func (p *Player) handleControls(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.control.Quit:
			log.Info().Msg("Received quit signal from TUI")
			return errQuit
		case cmd := <-p.control.Commands:
			if err := p.apply(cmd); err != nil {
				log.Warn().Err(err).Msg("Command failed")
				p.send(ui.NoticeMsg{Text: err.Error()})
			}
			p.send(p.status())
		}
	}
}

// apply runs one TUI command against the engine
func (p *Player) apply(cmd ui.Command) error {
	switch cmd.Kind {
	case ui.CmdTogglePause:
		if p.engine.Status().Paused {
			return p.engine.Resume()
		}
		return p.engine.Pause()
	case ui.CmdSeek:
		return p.engine.Seek(cmd.Seconds)
	case ui.CmdVolume:
		return p.engine.SetVolume(float32(cmd.Volume) / 100)
	case ui.CmdToggleEQ:
		c := p.engine.EQ()
		c.SetEnabled(!c.Enabled())
		return nil
	case ui.CmdNextPreset:
		return p.nextPreset()
	case ui.CmdToggleExclusive:
		return p.toggleExclusive()
	default:
		return fmt.Errorf("unknown command %d", cmd.Kind)
	}
}

// nextPreset cycles through the built-in presets and enables the EQ
func (p *Player) nextPreset() error {
	c := p.engine.EQ()
	presets := c.Presets()

	next := 0
	for i, preset := range presets {
		if preset.Name == c.Preset() {
			next = (i + 1) % len(presets)
			break
		}
	}
	if err := c.ApplyPreset(presets[next].Name); err != nil {
		return err
	}
	c.SetEnabled(true)
	return nil
}

// toggleExclusive flips the stored flag. The engine asks for a restart, which
// is shown as a notice rather than a failure.
func (p *Player) toggleExclusive() error {
	enabled, err := p.engine.ExclusiveModeSetting()
	if err != nil {
		return err
	}
	err = p.engine.SetExclusiveMode(!enabled)
	if errors.Is(err, tonearm.ErrRestartRequired) {
		log.Info().Bool("exclusive", !enabled).Msg("Exclusive mode saved")
		p.send(ui.NoticeMsg{Text: err.Error()})
		return nil
	}
	return err
}

func (p *Player) status() ui.StatusMsg {
	st := p.engine.Status()
	values := p.engine.EQ().Values()
	return ui.StatusMsg{
		Path:      st.Path,
		Playing:   st.Playing,
		Paused:    st.Paused,
		Position:  st.Position,
		Duration:  st.Duration,
		Volume:    int(st.Volume*100 + 0.5),
		Mode:      string(st.Mode),
		Device:    st.Device,
		EQEnabled: values.Enabled,
		EQPreset:  values.Preset,
	}
}

func (p *Player) send(msg tea.Msg) {
	if p.ui != nil {
		p.ui.Send(msg)
	}
}

// Save writes the current volume and EQ to the config file, keeping the
// other fields as they are on disk
func (p *Player) Save() error {
	if p.config.ConfigPath == "" {
		return nil
	}

	file, err := config.Load(p.config.ConfigPath)
	if err != nil {
		return err
	}

	st := p.engine.Status()
	file.Volume = st.Volume
	values := p.engine.EQ().Values()
	file.EQ = config.EQ{
		Enabled: values.Enabled,
		Preset:  values.Preset,
		Preamp:  values.Preamp,
	}
	// gains are only stored for hand-tuned settings
	if values.Preset == "" {
		file.EQ.Gains = values.Gains[:]
	}
	return config.Save(p.config.ConfigPath, file)
}

// ApplyEQ restores equalizer settings from the config file. A named preset
// wins over stored gains.
func ApplyEQ(c *eq.Controller, settings config.EQ) error {
	switch {
	case settings.Preset != "":
		if err := c.ApplyPreset(settings.Preset); err != nil {
			return err
		}
	case len(settings.Gains) > 0:
		if err := c.SetGains(settings.Gains); err != nil {
			return err
		}
	}
	c.SetPreamp(settings.Preamp)
	c.SetEnabled(settings.Enabled)
	return nil
}

func deviceLabel(name string) string {
	if name == "" {
		return "the default device"
	}
	return name
}

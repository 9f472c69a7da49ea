// ABOUTME: Entry point for the tonearm player
// ABOUTME: Parses CLI flags, loads config and logging, and runs the player with or without the TUI
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"github.com/tonearm-audio/tonearm/internal/app"
	"github.com/tonearm-audio/tonearm/internal/config"
	"github.com/tonearm-audio/tonearm/internal/ui"
	"github.com/tonearm-audio/tonearm/internal/version"
	"github.com/tonearm-audio/tonearm/pkg/tonearm"
)

var (
	configPath  = flag.String("config", config.DefaultPath(), "Config file path")
	logFile     = flag.String("log-file", "tonearm.log", "Log file path")
	logLevel    = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	noTUI       = flag.Bool("no-tui", false, "Disable TUI, use streaming logs instead")
	device      = flag.String("device", "", "Output device name (overrides config)")
	volume      = flag.Int("volume", -1, "Initial volume 0-100 (overrides config)")
	eqPreset    = flag.String("eq-preset", "", "Equalizer preset to enable (overrides config)")
	backend     = flag.String("backend", "", "Shared-mode backend: malgo or oto (overrides config)")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <file>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "tonearm: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if flag.NArg() != 1 {
		flag.Usage()
		return fmt.Errorf("expected one file to play")
	}
	path := flag.Arg(0)
	useTUI := !*noTUI

	file, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *device != "" {
		file.Device = *device
	}
	if *backend != "" {
		file.SharedBackend = *backend
	}
	if *eqPreset != "" {
		file.EQ.Preset = *eqPreset
		file.EQ.Enabled = true
	}
	if *volume >= 0 {
		if *volume > 100 {
			return fmt.Errorf("volume %d out of range [0, 100]", *volume)
		}
		file.Volume = float32(*volume) / 100
	}
	if err := file.Validate(); err != nil {
		return err
	}

	// TUI mode logs to the file only
	closer, err := config.SetupLogging(*logLevel, *logFile, !useTUI)
	if err != nil {
		return err
	}
	defer closer.Close()

	log.Info().Str("version", version.String()).Str("config", *configPath).Msg("Starting")

	engineConfig := file.Engine()
	engineConfig.Store = config.NewFileStore(*configPath)

	engine, err := tonearm.NewEngine(engineConfig)
	if err != nil {
		return fmt.Errorf("start engine: %w", err)
	}
	defer func() {
		if err := engine.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing engine")
		}
	}()

	if err := engine.SetVolume(file.Volume); err != nil {
		return err
	}
	if err := app.ApplyEQ(engine.EQ(), file.EQ); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		control *ui.Control
		tuiProg *tea.Program
		sender  app.Sender
	)
	if useTUI {
		control = ui.NewControl()
		tuiProg, err = ui.Run(control)
		if err != nil {
			return fmt.Errorf("failed to start TUI: %w", err)
		}
		sender = tuiProg
		go func() {
			if _, err := tuiProg.Run(); err != nil {
				log.Error().Err(err).Msg("TUI stopped")
			}
			stop()
		}()
	}

	player := app.New(engine, app.Config{
		Path:       path,
		ConfigPath: *configPath,
		ExitOnEnd:  !useTUI,
	}, control, sender)

	runErr := player.Run(ctx)
	if tuiProg != nil {
		tuiProg.Quit()
		tuiProg.Wait()
	}
	if err := player.Save(); err != nil {
		log.Warn().Err(err).Msg("Failed to save settings")
	}

	log.Info().Msg("Player stopped")
	return runErr
}

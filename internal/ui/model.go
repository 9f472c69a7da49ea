// ABOUTME: Bubbletea model for the player TUI
// ABOUTME: Holds playback state, renders it and turns keys into commands
package ui

import (
	"fmt"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	seekStep   = 5.0
	volumeStep = 5
	panelWidth = 54
	barWidth   = 10
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7AA2F7"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#565F89"))
	accentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#9ECE6A")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#E0AF68"))
	spectrumFill = lipgloss.NewStyle().Foreground(lipgloss.Color("#BB9AF7"))
	frameStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3B4261")).
			Padding(0, 1)
)

var levels = []rune(" ▁▂▃▄▅▆▇█")

// Model represents the TUI state
type Model struct {
	// Track
	path     string
	position float64
	duration float64

	// Playback
	playing bool
	paused  bool
	volume  int

	// Output
	mode   string
	device string

	// EQ
	eqEnabled bool
	eqPreset  string

	spectrum []float32
	notice   string

	control *Control

	width  int
	height int
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case StatusMsg:
		m.applyStatus(msg)
	case SpectrumMsg:
		m.spectrum = msg.Bins
	case NoticeMsg:
		m.notice = msg.Text
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	sections := []string{
		titleStyle.Render("tonearm"),
		m.renderTrack(),
		m.renderProgress(),
		m.renderSpectrum(),
		m.renderControls(),
	}
	if m.notice != "" {
		sections = append(sections, warnStyle.Render(truncate(m.notice, panelWidth)))
	}
	sections = append(sections, dimStyle.Render(m.renderHelp()))

	return frameStyle.Width(panelWidth + 2).Render(strings.Join(sections, "\n"))
}

func (m Model) renderTrack() string {
	if m.path == "" {
		return "No track"
	}

	state := "Stopped"
	switch {
	case m.paused:
		state = "Paused"
	case m.playing:
		state = "Playing"
	}
	return fmt.Sprintf("%s  %s", accentStyle.Render(state), truncate(filepath.Base(m.path), panelWidth-10))
}

func (m Model) renderProgress() string {
	pos := int(m.position)
	total := int(m.duration)
	bar := renderBar(pos, total, panelWidth-16)
	return fmt.Sprintf("%s %s %s", formatTime(m.position), bar, formatTime(m.duration))
}

func (m Model) renderSpectrum() string {
	return spectrumFill.Render(spectrumLine(m.spectrum, panelWidth))
}

func (m Model) renderControls() string {
	eqState := "off"
	if m.eqEnabled {
		eqState = m.eqPreset
		if eqState == "" {
			eqState = "custom"
		}
	}

	device := m.device
	if device == "" {
		device = "default"
	}

	return fmt.Sprintf("Volume: [%s] %d%%\nOutput: %s (%s)\nEQ:     %s",
		renderBar(m.volume, 100, barWidth), m.volume,
		truncate(device, 30), m.mode, eqState)
}

func (m Model) renderHelp() string {
	return "space:Pause  ←/→:Seek  ↑/↓:Volume  e:EQ  p:Preset  x:Exclusive  q:Quit"
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.control.quit()
		return m, tea.Quit
	case " ":
		m.paused = !m.paused
		m.control.send(Command{Kind: CmdTogglePause})
	case "left":
		target := m.position - seekStep
		if target < 0 {
			target = 0
		}
		m.position = target
		m.control.send(Command{Kind: CmdSeek, Seconds: target})
	case "right":
		target := m.position + seekStep
		if m.duration > 0 && target > m.duration {
			target = m.duration
		}
		m.position = target
		m.control.send(Command{Kind: CmdSeek, Seconds: target})
	case "up":
		if m.volume < 100 {
			m.volume += volumeStep
			if m.volume > 100 {
				m.volume = 100
			}
			m.control.send(Command{Kind: CmdVolume, Volume: m.volume})
		}
	case "down":
		if m.volume > 0 {
			m.volume -= volumeStep
			if m.volume < 0 {
				m.volume = 0
			}
			m.control.send(Command{Kind: CmdVolume, Volume: m.volume})
		}
	case "e":
		m.eqEnabled = !m.eqEnabled
		m.control.send(Command{Kind: CmdToggleEQ})
	case "p":
		m.control.send(Command{Kind: CmdNextPreset})
	case "x":
		m.control.send(Command{Kind: CmdToggleExclusive})
	}

	return m, nil
}

// applyStatus updates model from status message
func (m *Model) applyStatus(msg StatusMsg) {
	m.path = msg.Path
	m.playing = msg.Playing
	m.paused = msg.Paused
	m.position = msg.Position
	m.duration = msg.Duration
	m.volume = msg.Volume
	if msg.Mode != "" {
		m.mode = msg.Mode
	}
	m.device = msg.Device
	m.eqEnabled = msg.EQEnabled
	m.eqPreset = msg.EQPreset
}

// StatusMsg updates TUI state
type StatusMsg struct {
	Path      string
	Playing   bool
	Paused    bool
	Position  float64
	Duration  float64
	Volume    int
	Mode      string
	Device    string
	EQEnabled bool
	EQPreset  string
}

// SpectrumMsg carries the latest spectrum bins
type SpectrumMsg struct {
	Bins []float32
}

// NoticeMsg shows a one-line message such as a device change
type NoticeMsg struct {
	Text string
}

// Utility functions
func renderBar(value, max, width int) string {
	filled := 0
	if max > 0 {
		filled = (value * width) / max
	}
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// spectrumLine folds bins into width columns, one block glyph per column
func spectrumLine(bins []float32, width int) string {
	if len(bins) == 0 || width <= 0 {
		return strings.Repeat(" ", width)
	}

	out := make([]rune, width)
	for col := range out {
		lo := col * len(bins) / width
		hi := (col + 1) * len(bins) / width
		if hi <= lo {
			hi = lo + 1
		}
		var peak float32
		for _, v := range bins[lo:hi] {
			if v > peak {
				peak = v
			}
		}
		if peak > 1 {
			peak = 1
		}
		if peak < 0 {
			peak = 0
		}
		out[col] = levels[int(peak*float32(len(levels)-1)+0.5)]
	}
	return string(out)
}

func formatTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	s := int(seconds)
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}

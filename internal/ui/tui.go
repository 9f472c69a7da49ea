// ABOUTME: TUI initialization and control
// ABOUTME: Wraps bubbletea program and the command channel back to the engine
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// CommandKind names a user action from the TUI
type CommandKind int

const (
	CmdTogglePause CommandKind = iota
	CmdSeek
	CmdVolume
	CmdToggleEQ
	CmdNextPreset
	CmdToggleExclusive
)

// Command is a user action; Seconds and Volume are set for seek and volume
type Command struct {
	Kind    CommandKind
	Seconds float64
	Volume  int
}

// Control holds channels for communication from the TUI to the player
type Control struct {
	Commands chan Command
	Quit     chan struct{}
}

// NewControl creates a new control handler
func NewControl() *Control {
	return &Control{
		Commands: make(chan Command, 10),
		Quit:     make(chan struct{}, 1),
	}
}

// send drops the command when the player is not keeping up
func (c *Control) send(cmd Command) {
	if c == nil {
		return
	}
	select {
	case c.Commands <- cmd:
	default:
	}
}

func (c *Control) quit() {
	if c == nil {
		return
	}
	select {
	case c.Quit <- struct{}{}:
	default:
	}
}

// NewModel creates a new TUI model
func NewModel(control *Control) Model {
	return Model{
		volume:  100,
		mode:    "shared",
		control: control,
	}
}

// Run creates the TUI program; the caller starts it
func Run(control *Control) (*tea.Program, error) {
	p := tea.NewProgram(NewModel(control), tea.WithAltScreen())
	return p, nil
}

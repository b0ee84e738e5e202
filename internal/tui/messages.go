package tui

import tea "github.com/charmbracelet/bubbletea"

// EventMsg carries an engine event into the message loop. The bridge
// produces one per dispatched payload; the active screen consumes the
// ones it understands and ignores the rest.
type EventMsg struct {
	Event   string
	Payload any
}

type StatusMsg struct {
	Text  string
	IsErr bool
}

// ReplaceScreenMsg swaps the active screen for the next flow step.
type ReplaceScreenMsg struct {
	Screen Screen
}

type PushScreenMsg struct {
	Screen Screen
}

type PopScreenMsg struct{}

func StatusCmd(text string) tea.Cmd {
	return func() tea.Msg { return StatusMsg{Text: text} }
}

func ErrorCmd(err error) tea.Cmd {
	return func() tea.Msg {
		if err == nil {
			return StatusMsg{}
		}
		return StatusMsg{Text: err.Error(), IsErr: true}
	}
}

func ReplaceCmd(s Screen) tea.Cmd {
	return func() tea.Msg { return ReplaceScreenMsg{Screen: s} }
}

func PushCmd(s Screen) tea.Cmd {
	return func() tea.Msg { return PushScreenMsg{Screen: s} }
}

func PopCmd() tea.Cmd {
	return func() tea.Msg { return PopScreenMsg{} }
}

// Package screens holds the concrete flow screens. Each screen owns the
// registry handlers it needs for its step and gives them back when it
// leaves.
package screens

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/uniken-public/codelab-go/internal/sdk"
	"github.com/uniken-public/codelab-go/internal/tui"
)

// call runs an outbound request and surfaces a rejected ack in the
// status bar. Accepted requests produce nothing; their outcome arrives
// as an event.
func call(f func() sdk.Ack) tea.Cmd {
	return func() tea.Msg {
		if a := f(); !a.Accepted() {
			return tui.StatusMsg{Text: a.Message, IsErr: true}
		}
		return nil
	}
}

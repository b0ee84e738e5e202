package screens

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/uniken-public/codelab-go/internal/sdk"
	"github.com/uniken-public/codelab-go/internal/tui"
)

// ConsentScreen asks the local-authentication question once per device.
type ConsentScreen struct {
	b  *tui.Bridge
	ch sdk.ConsentChallenge
}

func NewConsent(b *tui.Bridge, ch sdk.ConsentChallenge) *ConsentScreen {
	return &ConsentScreen{b: b, ch: ch}
}

func (s *ConsentScreen) Title() string { return "Consent" }

func (s *ConsentScreen) Update(msg tea.Msg) (tui.Screen, tea.Cmd, bool) {
	switch msg := msg.(type) {
	case tui.EventMsg:
		switch msg.Event {
		case sdk.EventLoggedIn:
			in := msg.Payload.(sdk.LoggedIn)
			return s, tui.ReplaceCmd(NewHome(s.b, in)), false
		case sdk.EventUser:
			ch := msg.Payload.(sdk.UserChallenge)
			return s, tui.ReplaceCmd(NewUser(s.b, ch)), false
		}
	case tea.KeyMsg:
		switch msg.String() {
		case "y":
			return s, call(func() sdk.Ack { return s.b.Client().SetConsent(true) }), false
		case "n":
			return s, call(func() sdk.Ack { return s.b.Client().SetConsent(false) }), false
		}
	}
	return s, nil, false
}

func (s *ConsentScreen) View(width, height int) string {
	return strings.Join([]string{
		tui.TitleStyle.Render("Local device authentication"),
		"",
		s.ch.Prompt,
		"",
		tui.KeyStyle.Render("y") + tui.MutedStyle.Render(" allow  ") +
			tui.KeyStyle.Render("n") + tui.MutedStyle.Render(" not now"),
	}, "\n")
}

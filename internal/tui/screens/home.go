package screens

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/uniken-public/codelab-go/internal/sdk"
	"github.com/uniken-public/codelab-go/internal/tui"
)

// HomeScreen is the logged-in landing view.
type HomeScreen struct {
	b  *tui.Bridge
	in sdk.LoggedIn
}

func NewHome(b *tui.Bridge, in sdk.LoggedIn) *HomeScreen {
	return &HomeScreen{b: b, in: in}
}

func (s *HomeScreen) Title() string { return "Home" }

func (s *HomeScreen) Update(msg tea.Msg) (tui.Screen, tea.Cmd, bool) {
	switch msg := msg.(type) {
	case tui.EventMsg:
		switch msg.Event {
		case sdk.EventNotifications:
			ns := msg.Payload.(sdk.Notifications)
			if !ns.Error.Ok() {
				return s, tui.StatusCmd(ns.Error.Message), false
			}
			return s, tui.PushCmd(NewNotifications(s.b, ns)), false
		case sdk.EventLoggedOff:
			off := msg.Payload.(sdk.LoggedOff)
			return s, tui.StatusCmd("Logged off " + off.User), false
		case sdk.EventAuthReset:
			return s, tui.StatusCmd("Starting over"), false
		case sdk.EventSessionTimeout:
			return s, tui.ErrorCmd(fmt.Errorf("session expired, sign in again")), false
		case sdk.EventUser:
			ch := msg.Payload.(sdk.UserChallenge)
			return s, tui.ReplaceCmd(NewUser(s.b, ch)), false
		}
	case tea.KeyMsg:
		switch msg.String() {
		case "n":
			return s, call(func() sdk.Ack { return s.b.Client().GetNotifications() }), false
		case "l":
			return s, call(func() sdk.Ack { return s.b.Client().LogOff() }), false
		case "r":
			return s, call(func() sdk.Ack { return s.b.Client().ResetAuthState() }), false
		}
	}
	return s, nil, false
}

func (s *HomeScreen) View(width, height int) string {
	lines := []string{
		tui.SuccessStyle.Render("Welcome, " + s.in.User),
		"",
		tui.MutedStyle.Render("session  ") + s.in.SessionID,
	}
	if !s.in.LastLoginAt.IsZero() {
		lines = append(lines, tui.MutedStyle.Render("last login  ")+s.in.LastLoginAt.Format("2006-01-02 15:04:05"))
	} else {
		lines = append(lines, tui.MutedStyle.Render("first login on this account"))
	}
	lines = append(lines, "",
		tui.KeyStyle.Render("n")+tui.MutedStyle.Render(" notifications  ")+
			tui.KeyStyle.Render("l")+tui.MutedStyle.Render(" log off  ")+
			tui.KeyStyle.Render("r")+tui.MutedStyle.Render(" start over"))
	return strings.Join(lines, "\n")
}

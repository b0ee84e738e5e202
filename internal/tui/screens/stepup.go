package screens

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/uniken-public/codelab-go/internal/sdk"
	"github.com/uniken-public/codelab-go/internal/tui"
)

// StepUpScreen re-authenticates a sensitive notification action. The
// challenge arrives through the notifications screen's stack entry, so
// this screen only renders and submits.
type StepUpScreen struct {
	b     *tui.Bridge
	input textinput.Model
	ch    sdk.PasswordChallenge
}

func NewStepUp(b *tui.Bridge, ch sdk.PasswordChallenge) *StepUpScreen {
	inp := textinput.New()
	inp.Prompt = "Password: "
	inp.EchoMode = textinput.EchoPassword
	inp.Focus()
	return &StepUpScreen{b: b, input: inp, ch: ch}
}

func (s *StepUpScreen) Title() string { return "Confirm Action" }

func (s *StepUpScreen) Update(msg tea.Msg) (tui.Screen, tea.Cmd, bool) {
	switch msg := msg.(type) {
	case tui.EventMsg:
		switch msg.Event {
		case sdk.EventPassword:
			ch := msg.Payload.(sdk.PasswordChallenge)
			if ch.Mode != sdk.ModeStepUp {
				return s, nil, false
			}
			s.ch = ch
			s.input.SetValue("")
			switch ch.Status.Code {
			case sdk.StatusInvalidCredential:
				return s, tui.ErrorCmd(fmt.Errorf("wrong password, %d attempts left", ch.AttemptsLeft)), false
			case sdk.StatusCoolingPeriod:
				return s, tui.ErrorCmd(fmt.Errorf("too many failures, wait %ds", ch.CooldownSeconds)), false
			}
			return s, nil, false
		case sdk.EventSessionTimeout, sdk.EventLoggedOff, sdk.EventUser:
			return s, func() tea.Msg { return msg }, true
		case sdk.EventNotificationUpdate:
			// Approval went through; pop back to the list, which refreshes.
			upd := msg.Payload.(sdk.NotificationUpdate)
			cmd := tui.StatusCmd(fmt.Sprintf("Resolved with %q", upd.Action))
			if !upd.Status.Success() {
				cmd = tui.ErrorCmd(fmt.Errorf("%s", upd.Status.Message))
			}
			return s, tea.Batch(cmd, call(func() sdk.Ack {
				return s.b.Client().GetNotifications()
			})), true
		}
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			value := s.input.Value()
			return s, call(func() sdk.Ack {
				return s.b.Client().SetPassword(value, sdk.ModeStepUp)
			}), false
		case "esc":
			// Refreshing the list tells the engine the challenge was
			// abandoned; the notification stays open.
			return s, call(func() sdk.Ack {
				return s.b.Client().GetNotifications()
			}), true
		}
	}
	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return s, cmd, false
}

func (s *StepUpScreen) View(width, height int) string {
	lines := []string{
		tui.WarnStyle.Render("This action needs your password"),
	}
	if s.ch.ActionLabel != "" {
		lines = append(lines, tui.MutedStyle.Render("action: ")+s.ch.ActionLabel)
	}
	lines = append(lines, "", s.input.View(), "",
		tui.MutedStyle.Render("enter: confirm  esc: cancel"))
	return strings.Join(lines, "\n")
}

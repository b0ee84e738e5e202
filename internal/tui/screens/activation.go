package screens

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/uniken-public/codelab-go/internal/sdk"
	"github.com/uniken-public/codelab-go/internal/tui"
)

// ActivationScreen answers the activation challenge for a new device.
type ActivationScreen struct {
	b     *tui.Bridge
	input textinput.Model
	ch    sdk.ActivationChallenge
}

func NewActivation(b *tui.Bridge, ch sdk.ActivationChallenge) *ActivationScreen {
	inp := textinput.New()
	inp.Prompt = "Code: "
	inp.CharLimit = 16
	inp.Focus()
	return &ActivationScreen{b: b, input: inp, ch: ch}
}

func (s *ActivationScreen) Title() string { return "Device Activation" }

func (s *ActivationScreen) Update(msg tea.Msg) (tui.Screen, tea.Cmd, bool) {
	switch msg := msg.(type) {
	case tui.EventMsg:
		switch msg.Event {
		case sdk.EventActivationCode:
			s.ch = msg.Payload.(sdk.ActivationChallenge)
			s.input.SetValue("")
			if !s.ch.Status.Success() {
				return s, tui.ErrorCmd(fmt.Errorf("%s", s.ch.Status.Message)), false
			}
			return s, nil, false
		case sdk.EventPassword:
			ch := msg.Payload.(sdk.PasswordChallenge)
			return s, tui.ReplaceCmd(passwordScreenFor(s.b, ch)), false
		case sdk.EventInitError:
			f := msg.Payload.(sdk.InitFailure)
			return s, tui.ReplaceCmd(failedSplash(s.b, f.Error)), false
		}
	case tea.KeyMsg:
		if msg.String() == "enter" {
			code := strings.TrimSpace(s.input.Value())
			return s, call(func() sdk.Ack {
				return s.b.Client().SetActivationCode(code)
			}), false
		}
	}
	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return s, cmd, false
}

func (s *ActivationScreen) View(width, height int) string {
	lines := []string{
		tui.TitleStyle.Render("Activate this device"),
		tui.MutedStyle.Render("Enter the activation code you received."),
		"",
		s.input.View(),
	}
	if s.ch.DemoCode != "" {
		lines = append(lines, "", tui.MutedStyle.Render("demo code: "+s.ch.DemoCode))
	}
	if s.ch.AttemptsLeft > 0 {
		lines = append(lines, tui.MutedStyle.Render(fmt.Sprintf("%d attempts left", s.ch.AttemptsLeft)))
	}
	lines = append(lines, "", tui.MutedStyle.Render("enter: activate"))
	return strings.Join(lines, "\n")
}

package screens

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/uniken-public/codelab-go/internal/sdk"
	"github.com/uniken-public/codelab-go/internal/tui"
)

// UserScreen answers the user challenge. It stays up through unknown
// user retries and hands off to activation or a password screen
// depending on what the engine asks for next.
type UserScreen struct {
	b     *tui.Bridge
	input textinput.Model
	ch    sdk.UserChallenge
}

func NewUser(b *tui.Bridge, ch sdk.UserChallenge) *UserScreen {
	inp := textinput.New()
	inp.Prompt = "User: "
	inp.Placeholder = "username"
	inp.Focus()
	return &UserScreen{b: b, input: inp, ch: ch}
}

func (s *UserScreen) Title() string { return "Sign In" }

func (s *UserScreen) Update(msg tea.Msg) (tui.Screen, tea.Cmd, bool) {
	switch msg := msg.(type) {
	case tui.EventMsg:
		switch msg.Event {
		case sdk.EventUser:
			s.ch = msg.Payload.(sdk.UserChallenge)
			if !s.ch.Status.Success() {
				return s, tui.ErrorCmd(fmt.Errorf("%s", s.ch.Status.Message)), false
			}
			return s, nil, false
		case sdk.EventActivationCode:
			ch := msg.Payload.(sdk.ActivationChallenge)
			return s, tui.ReplaceCmd(NewActivation(s.b, ch)), false
		case sdk.EventPassword:
			ch := msg.Payload.(sdk.PasswordChallenge)
			return s, tui.ReplaceCmd(passwordScreenFor(s.b, ch)), false
		case sdk.EventInitError:
			f := msg.Payload.(sdk.InitFailure)
			return s, tui.ReplaceCmd(failedSplash(s.b, f.Error)), false
		}
	case tea.KeyMsg:
		if msg.String() == "enter" {
			name := strings.TrimSpace(s.input.Value())
			return s, call(func() sdk.Ack {
				return s.b.Client().SetUser(name)
			}), false
		}
	}
	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return s, cmd, false
}

func (s *UserScreen) View(width, height int) string {
	lines := []string{tui.TitleStyle.Render("Who is signing in?"), "", s.input.View()}
	if s.ch.AttemptsLeft > 0 && !s.ch.Status.Success() {
		lines = append(lines, "", tui.WarnStyle.Render(fmt.Sprintf("%d attempts left", s.ch.AttemptsLeft)))
	}
	lines = append(lines, "", tui.MutedStyle.Render("enter: continue"))
	return strings.Join(lines, "\n")
}

// passwordScreenFor picks the right screen for the first password
// challenge of a login.
func passwordScreenFor(b *tui.Bridge, ch sdk.PasswordChallenge) tui.Screen {
	if ch.Mode == sdk.ModeSetNew {
		return NewSetPassword(b, ch, nil)
	}
	return NewPassword(b, ch)
}

// failedSplash returns a splash screen already showing the failure, so
// the retry affordance is in one place.
func failedSplash(b *tui.Bridge, e sdk.EventError) *SplashScreen {
	s := NewSplash(b)
	s.failed = &e
	return s
}

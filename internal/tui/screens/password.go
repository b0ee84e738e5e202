package screens

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/uniken-public/codelab-go/internal/callback"
	"github.com/uniken-public/codelab-go/internal/sdk"
	"github.com/uniken-public/codelab-go/internal/tui"
)

// PasswordScreen answers an ordinary verify challenge. It holds a
// chained handler filtered to the verify mode; any other challenge on
// the shared slot flows past it untouched. When the credential turns
// out to be expired the engine re-challenges in update mode, and that
// one passes through to the set-password screen stacked on top.
type PasswordScreen struct {
	b     *tui.Bridge
	input textinput.Model
	ch    sdk.PasswordChallenge
	chain *callback.Chained
}

func NewPassword(b *tui.Bridge, ch sdk.PasswordChallenge) *PasswordScreen {
	inp := textinput.New()
	inp.Prompt = "Password: "
	inp.EchoMode = textinput.EchoPassword
	inp.Focus()
	s := &PasswordScreen{b: b, input: inp, ch: ch}
	s.chain = b.AttachChallenge(sdk.ModeVerify, b.Forward(sdk.EventPassword))
	return s
}

func (s *PasswordScreen) Title() string { return "Password" }

func (s *PasswordScreen) Update(msg tea.Msg) (tui.Screen, tea.Cmd, bool) {
	switch msg := msg.(type) {
	case tui.EventMsg:
		switch msg.Event {
		case sdk.EventPassword:
			ch := msg.Payload.(sdk.PasswordChallenge)
			if ch.Mode == sdk.ModeExpiredUpdate {
				// Keep our chained handler attached: the set-password
				// screen layers its own on top and restores ours when
				// it detaches.
				return s, tui.ReplaceCmd(NewSetPassword(s.b, ch, s.chain)), false
			}
			s.ch = ch
			s.input.SetValue("")
			return s, s.statusCmd(), false
		case sdk.EventConsent:
			s.chain.Detach()
			ch := msg.Payload.(sdk.ConsentChallenge)
			return s, tui.ReplaceCmd(NewConsent(s.b, ch)), false
		case sdk.EventLoggedIn:
			s.chain.Detach()
			in := msg.Payload.(sdk.LoggedIn)
			return s, tui.ReplaceCmd(NewHome(s.b, in)), false
		case sdk.EventUser:
			s.chain.Detach()
			ch := msg.Payload.(sdk.UserChallenge)
			return s, tui.ReplaceCmd(NewUser(s.b, ch)), false
		case sdk.EventInitError:
			s.chain.Detach()
			f := msg.Payload.(sdk.InitFailure)
			return s, tui.ReplaceCmd(failedSplash(s.b, f.Error)), false
		}
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			value := s.input.Value()
			return s, call(func() sdk.Ack {
				return s.b.Client().SetPassword(value, sdk.ModeVerify)
			}), false
		case "esc":
			return s, call(func() sdk.Ack {
				return s.b.Client().ResetAuthState()
			}), false
		}
	}
	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return s, cmd, false
}

func (s *PasswordScreen) statusCmd() tea.Cmd {
	switch s.ch.Status.Code {
	case sdk.StatusInvalidCredential:
		return tui.ErrorCmd(fmt.Errorf("wrong password, %d attempts left", s.ch.AttemptsLeft))
	case sdk.StatusCoolingPeriod:
		return tui.ErrorCmd(fmt.Errorf("too many failures, try again in %ds", s.ch.CooldownSeconds))
	}
	return nil
}

func (s *PasswordScreen) View(width, height int) string {
	lines := []string{tui.TitleStyle.Render("Enter your password"), "", s.input.View()}
	if s.ch.Status.Code == sdk.StatusCoolingPeriod {
		lines = append(lines, "",
			tui.WarnStyle.Render(fmt.Sprintf("Cooling period: wait %ds before retrying", s.ch.CooldownSeconds)))
	} else if s.ch.AttemptsLeft > 0 && s.ch.Status.Code == sdk.StatusInvalidCredential {
		lines = append(lines, "", tui.WarnStyle.Render(fmt.Sprintf("%d attempts left", s.ch.AttemptsLeft)))
	}
	lines = append(lines, "", tui.MutedStyle.Render("enter: sign in  esc: start over"))
	return strings.Join(lines, "\n")
}

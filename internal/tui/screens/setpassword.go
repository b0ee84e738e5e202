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

// SetPasswordScreen captures a new credential, for first-time setup and
// for expired-credential update. Its chained handler filters the shared
// slot to its own mode; on the expired path the verify screen's handler
// sits underneath and comes back when this one detaches.
type SetPasswordScreen struct {
	b      *tui.Bridge
	inputs []textinput.Model
	focus  int
	ch     sdk.PasswordChallenge
	chain  *callback.Chained
	prev   *callback.Chained
}

func NewSetPassword(b *tui.Bridge, ch sdk.PasswordChallenge, prev *callback.Chained) *SetPasswordScreen {
	labels := []string{"New password: ", "Confirm: "}
	inputs := make([]textinput.Model, 0, len(labels))
	for i, l := range labels {
		inp := textinput.New()
		inp.Prompt = l
		inp.EchoMode = textinput.EchoPassword
		if i == 0 {
			inp.Focus()
		}
		inputs = append(inputs, inp)
	}
	s := &SetPasswordScreen{b: b, inputs: inputs, ch: ch, prev: prev}
	s.chain = b.AttachChallenge(ch.Mode, b.Forward(sdk.EventPassword))
	return s
}

func (s *SetPasswordScreen) Title() string {
	if s.ch.Mode == sdk.ModeExpiredUpdate {
		return "Password Expired"
	}
	return "Set Password"
}

func (s *SetPasswordScreen) detach() {
	s.chain.Detach()
	if s.prev != nil {
		s.prev.Detach()
	}
}

func (s *SetPasswordScreen) Update(msg tea.Msg) (tui.Screen, tea.Cmd, bool) {
	switch msg := msg.(type) {
	case tui.EventMsg:
		switch msg.Event {
		case sdk.EventPassword:
			ch := msg.Payload.(sdk.PasswordChallenge)
			if ch.Mode != s.ch.Mode {
				return s, nil, false
			}
			s.ch = ch
			if ch.Status.Code == sdk.StatusPolicyViolation {
				return s, tui.ErrorCmd(fmt.Errorf("%s", ch.Status.Message)), false
			}
			return s, nil, false
		case sdk.EventConsent:
			s.detach()
			ch := msg.Payload.(sdk.ConsentChallenge)
			return s, tui.ReplaceCmd(NewConsent(s.b, ch)), false
		case sdk.EventLoggedIn:
			s.detach()
			in := msg.Payload.(sdk.LoggedIn)
			return s, tui.ReplaceCmd(NewHome(s.b, in)), false
		case sdk.EventUser:
			s.detach()
			ch := msg.Payload.(sdk.UserChallenge)
			return s, tui.ReplaceCmd(NewUser(s.b, ch)), false
		case sdk.EventInitError:
			s.detach()
			f := msg.Payload.(sdk.InitFailure)
			return s, tui.ReplaceCmd(failedSplash(s.b, f.Error)), false
		}
	case tea.KeyMsg:
		switch msg.String() {
		case "tab", "shift+tab":
			dir := 1
			if msg.String() == "shift+tab" {
				dir = -1
			}
			s.inputs[s.focus].Blur()
			s.focus = (s.focus + dir + len(s.inputs)) % len(s.inputs)
			s.inputs[s.focus].Focus()
			return s, nil, false
		case "enter":
			value := s.inputs[0].Value()
			if value != s.inputs[1].Value() {
				return s, tui.ErrorCmd(fmt.Errorf("passwords do not match")), false
			}
			mode := s.ch.Mode
			return s, call(func() sdk.Ack {
				return s.b.Client().SetPassword(value, mode)
			}), false
		case "esc":
			return s, call(func() sdk.Ack {
				return s.b.Client().ResetAuthState()
			}), false
		}
	}
	var cmd tea.Cmd
	s.inputs[s.focus], cmd = s.inputs[s.focus].Update(msg)
	return s, cmd, false
}

func (s *SetPasswordScreen) View(width, height int) string {
	title := "Choose a password"
	if s.ch.Mode == sdk.ModeExpiredUpdate {
		title = "Your password expired, choose a new one"
	}
	lines := []string{tui.TitleStyle.Render(title), ""}
	for _, in := range s.inputs {
		lines = append(lines, in.View())
	}
	lines = append(lines, "",
		tui.MutedStyle.Render("at least 8 characters with upper case, lower case and a digit"),
		"",
		tui.MutedStyle.Render("enter: save  tab: next field  esc: start over"))
	return strings.Join(lines, "\n")
}

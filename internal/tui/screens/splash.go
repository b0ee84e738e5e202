package screens

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/uniken-public/codelab-go/internal/sdk"
	"github.com/uniken-public/codelab-go/internal/tui"
)

// SplashScreen drives session bring-up. It arms a watchdog on the ready
// event, so a stalled engine surfaces as a timeout instead of a spinner
// that never stops.
type SplashScreen struct {
	b      *tui.Bridge
	stages []string
	failed *sdk.EventError
}

func NewSplash(b *tui.Bridge) *SplashScreen {
	return &SplashScreen{b: b}
}

func (s *SplashScreen) Title() string { return "Initializing" }

func (s *SplashScreen) InitScreen() tea.Cmd {
	s.b.ArmInitWatchdog(s.b.InitTimeout)
	return call(func() sdk.Ack {
		return s.b.Client().Initialize(s.b.Profile)
	})
}

func (s *SplashScreen) Update(msg tea.Msg) (tui.Screen, tea.Cmd, bool) {
	switch msg := msg.(type) {
	case tui.EventMsg:
		switch msg.Event {
		case sdk.EventInitProgress:
			p := msg.Payload.(sdk.InitProgress)
			s.stages = append(s.stages, p.Stage)
			return s, nil, false
		case sdk.EventInitialized:
			s.b.DisarmInitWatchdog()
			in := msg.Payload.(sdk.Initialized)
			if !in.Error.Ok() {
				s.failed = &in.Error
				return s, tui.StatusCmd(in.Error.Message), false
			}
			return s, tui.StatusCmd("Session ready"), false
		case sdk.EventInitError:
			s.b.DisarmInitWatchdog()
			f := msg.Payload.(sdk.InitFailure)
			s.failed = &f.Error
			return s, nil, false
		case sdk.EventThreats:
			th := msg.Payload.(sdk.Threats)
			return s, tui.ReplaceCmd(NewThreats(s.b, th.Items)), false
		case sdk.EventUser:
			ch := msg.Payload.(sdk.UserChallenge)
			return s, tui.ReplaceCmd(NewUser(s.b, ch)), false
		}
	case tea.KeyMsg:
		if s.failed == nil {
			return s, nil, false
		}
		switch msg.String() {
		case "r":
			s.failed = nil
			s.stages = nil
			return s, s.InitScreen(), false
		case "q":
			return s, tea.Quit, false
		}
	}
	return s, nil, false
}

func (s *SplashScreen) View(width, height int) string {
	lines := []string{tui.TitleStyle.Render("Connecting to gateway"), ""}
	for _, st := range s.stages {
		lines = append(lines, "  "+tui.SuccessStyle.Render("✓")+" "+st)
	}
	if s.failed != nil {
		lines = append(lines, "",
			tui.ErrorStyle.Render("Initialization failed: "+s.failed.Message),
			"",
			tui.KeyStyle.Render("r")+tui.MutedStyle.Render(" retry  ")+
				tui.KeyStyle.Render("q")+tui.MutedStyle.Render(" quit"))
	} else if len(s.stages) < 3 {
		lines = append(lines, "", tui.MutedStyle.Render("  working..."))
	}
	return strings.Join(lines, "\n")
}

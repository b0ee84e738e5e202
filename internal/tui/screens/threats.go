package screens

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/uniken-public/codelab-go/internal/sdk"
	"github.com/uniken-public/codelab-go/internal/tui"
)

// ThreatsScreen shows the device scan findings. The flow does not move
// until the user proceeds or exits.
type ThreatsScreen struct {
	b      *tui.Bridge
	items  []sdk.Threat
	failed *sdk.EventError
}

func NewThreats(b *tui.Bridge, items []sdk.Threat) *ThreatsScreen {
	return &ThreatsScreen{b: b, items: items}
}

func (s *ThreatsScreen) Title() string { return "Device Scan" }

func (s *ThreatsScreen) Update(msg tea.Msg) (tui.Screen, tea.Cmd, bool) {
	switch msg := msg.(type) {
	case tui.EventMsg:
		switch msg.Event {
		case sdk.EventUser:
			ch := msg.Payload.(sdk.UserChallenge)
			return s, tui.ReplaceCmd(NewUser(s.b, ch)), false
		case sdk.EventInitError:
			f := msg.Payload.(sdk.InitFailure)
			s.failed = &f.Error
			return s, nil, false
		}
	case tea.KeyMsg:
		if s.failed != nil {
			if msg.String() == "q" {
				return s, tea.Quit, false
			}
			return s, nil, false
		}
		switch msg.String() {
		case "p":
			return s, call(func() sdk.Ack {
				return s.b.Client().TakeActionOnThreats(sdk.ThreatProceed)
			}), false
		case "e":
			return s, call(func() sdk.Ack {
				return s.b.Client().TakeActionOnThreats(sdk.ThreatExit)
			}), false
		}
	}
	return s, nil, false
}

func (s *ThreatsScreen) View(width, height int) string {
	lines := []string{tui.WarnStyle.Render("The scan reported findings on this device"), ""}
	for _, t := range s.items {
		sev := tui.MutedStyle
		if t.Severity == "medium" || t.Severity == "high" {
			sev = tui.WarnStyle
		}
		lines = append(lines,
			"  "+sev.Render("["+t.Severity+"]")+" "+t.Name,
			"      "+tui.MutedStyle.Render(t.Remediation))
	}
	if s.failed != nil {
		lines = append(lines, "",
			tui.ErrorStyle.Render(s.failed.Message),
			tui.KeyStyle.Render("q")+tui.MutedStyle.Render(" quit"))
	} else {
		lines = append(lines, "",
			tui.KeyStyle.Render("p")+tui.MutedStyle.Render(" proceed anyway  ")+
				tui.KeyStyle.Render("e")+tui.MutedStyle.Render(" exit"))
	}
	return strings.Join(lines, "\n")
}

package screens

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/uniken-public/codelab-go/internal/callback"
	"github.com/uniken-public/codelab-go/internal/sdk"
	"github.com/uniken-public/codelab-go/internal/tui"
)

// NotificationsScreen lists open notifications and applies actions.
// While it is up it holds a stack entry on the shared password slot for
// step-up challenges only; verify and the other modes keep flowing to
// whoever held the slot before it was pushed.
type NotificationsScreen struct {
	b      *tui.Bridge
	items  []sdk.Notification
	cursor int
	entry  *callback.StackEntry
}

func NewNotifications(b *tui.Bridge, ns sdk.Notifications) *NotificationsScreen {
	s := &NotificationsScreen{b: b, items: ns.Items}
	s.entry = b.Challenges().Push(
		sdk.ChallengeMatcher(sdk.ModeStepUp),
		b.Forward(sdk.EventPassword),
	)
	return s
}

func (s *NotificationsScreen) Title() string { return "Notifications" }

func (s *NotificationsScreen) refresh() tea.Cmd {
	return call(func() sdk.Ack { return s.b.Client().GetNotifications() })
}

func (s *NotificationsScreen) Update(msg tea.Msg) (tui.Screen, tea.Cmd, bool) {
	switch msg := msg.(type) {
	case tui.EventMsg:
		switch msg.Event {
		case sdk.EventNotifications:
			ns := msg.Payload.(sdk.Notifications)
			s.items = ns.Items
			if s.cursor >= len(s.items) {
				s.cursor = max(0, len(s.items)-1)
			}
			return s, nil, false
		case sdk.EventPassword:
			ch := msg.Payload.(sdk.PasswordChallenge)
			if ch.Mode == sdk.ModeStepUp {
				return s, tui.PushCmd(NewStepUp(s.b, ch)), false
			}
			return s, nil, false
		case sdk.EventSessionTimeout, sdk.EventLoggedOff, sdk.EventUser:
			// Session ended underneath us: give back the slot, pop, and
			// re-inject so the screen below reacts too.
			s.entry.Release()
			return s, func() tea.Msg { return msg }, true
		case sdk.EventNotificationUpdate:
			upd := msg.Payload.(sdk.NotificationUpdate)
			if upd.Status.Success() {
				return s, tea.Batch(
					tui.StatusCmd(fmt.Sprintf("Resolved with %q", upd.Action)),
					s.refresh(),
				), false
			}
			return s, tui.ErrorCmd(fmt.Errorf("%s", upd.Status.Message)), false
		}
	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			s.entry.Release()
			return s, nil, true
		case "up", "k":
			if s.cursor > 0 {
				s.cursor--
			}
			return s, nil, false
		case "down", "j":
			if s.cursor < len(s.items)-1 {
				s.cursor++
			}
			return s, nil, false
		}
		if n, err := strconv.Atoi(msg.String()); err == nil && len(s.items) > 0 {
			item := s.items[s.cursor]
			if n >= 1 && n <= len(item.Actions) {
				action := item.Actions[n-1]
				return s, call(func() sdk.Ack {
					return s.b.Client().UpdateNotification(item.ID, action)
				}), false
			}
		}
	}
	return s, nil, false
}

func (s *NotificationsScreen) View(width, height int) string {
	if len(s.items) == 0 {
		return strings.Join([]string{
			tui.MutedStyle.Render("No open notifications."),
			"",
			tui.MutedStyle.Render("esc: back"),
		}, "\n")
	}
	lines := []string{}
	for i, n := range s.items {
		marker := "  "
		if i == s.cursor {
			marker = tui.KeyStyle.Render("> ")
		}
		lines = append(lines, marker+tui.TitleStyle.Render(n.Subject))
		lines = append(lines, "    "+n.Body)
		acts := make([]string, 0, len(n.Actions))
		for j, a := range n.Actions {
			acts = append(acts, tui.KeyStyle.Render(strconv.Itoa(j+1))+" "+a)
		}
		lines = append(lines, "    "+tui.MutedStyle.Render(strings.Join(acts, "   ")))
		lines = append(lines, "")
	}
	lines = append(lines, tui.MutedStyle.Render("1-9: act on selected  j/k: move  esc: back"))
	return strings.Join(lines, "\n")
}

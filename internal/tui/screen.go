package tui

import tea "github.com/charmbracelet/bubbletea"

// Screen is one step of the authentication or session flow. Update
// returns the next state of the screen, an optional command, and
// whether the screen wants to be popped off the stack.
type Screen interface {
	Update(msg tea.Msg) (Screen, tea.Cmd, bool)
	View(width, height int) string
	Title() string
}

// ScreenInitializer is implemented by screens that need a command fired
// when they become active.
type ScreenInitializer interface {
	InitScreen() tea.Cmd
}

type ScreenStack struct {
	items []Screen
}

func (s *ScreenStack) Push(screen Screen) {
	if screen == nil {
		return
	}
	s.items = append(s.items, screen)
}

func (s *ScreenStack) Pop() Screen {
	if len(s.items) == 0 {
		return nil
	}
	last := s.items[len(s.items)-1]
	s.items = s.items[:len(s.items)-1]
	return last
}

func (s ScreenStack) Top() Screen {
	if len(s.items) == 0 {
		return nil
	}
	return s.items[len(s.items)-1]
}

func (s ScreenStack) Len() int {
	return len(s.items)
}

// replaceTop swaps the active screen in place.
func (s *ScreenStack) replaceTop(screen Screen) {
	if len(s.items) == 0 || screen == nil {
		return
	}
	s.items[len(s.items)-1] = screen
}

package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Model is the bubbletea root. It owns the screen stack and the status
// line; everything flow-specific lives in the screens.
type Model struct {
	width     int
	height    int
	status    string
	statusErr bool
	quitting  bool

	screens ScreenStack
	bridge  *Bridge
}

func NewModel(bridge *Bridge, root Screen) Model {
	m := Model{
		bridge: bridge,
		status: "Ready",
		width:  100,
		height: 32,
	}
	m.screens.Push(root)
	return m
}

func (m Model) Init() tea.Cmd {
	if init, ok := m.screens.Top().(ScreenInitializer); ok {
		return init.InitScreen()
	}
	return nil
}

func (m *Model) SetStatus(msg string) {
	m.status = msg
	m.statusErr = false
}

func (m *Model) SetError(text string) {
	m.status = text
	m.statusErr = true
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil
	case StatusMsg:
		m.status = msg.Text
		m.statusErr = msg.IsErr
		return m, nil
	case ReplaceScreenMsg:
		m.screens.replaceTop(msg.Screen)
		return m, m.initTop()
	case PushScreenMsg:
		m.screens.Push(msg.Screen)
		return m, m.initTop()
	case PopScreenMsg:
		m.screens.Pop()
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			m.bridge.Client().Teardown()
			return m, tea.Quit
		}
	}

	top := m.screens.Top()
	if top == nil {
		return m, nil
	}
	next, cmd, pop := top.Update(msg)
	if pop {
		m.screens.Pop()
		return m, cmd
	}
	if next != nil {
		m.screens.replaceTop(next)
	}
	return m, cmd
}

func (m Model) initTop() tea.Cmd {
	if init, ok := m.screens.Top().(ScreenInitializer); ok {
		return init.InitScreen()
	}
	return nil
}

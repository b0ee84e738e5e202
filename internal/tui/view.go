package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func (m Model) View() string {
	if m.quitting {
		return "Goodbye\n"
	}
	header := m.renderHeader()
	status := m.renderStatusBar()
	footer := footerStyle.Width(max(1, m.width)).Render(
		MutedStyle.Render(" ctrl+c: quit"))

	available := m.height - lipgloss.Height(header) - lipgloss.Height(status) - lipgloss.Height(footer)
	if available < 0 {
		available = 0
	}
	var body string
	if top := m.screens.Top(); top != nil && available > 0 {
		body = top.View(max(1, m.width-2), available)
	}
	body = fitHeight(body, available)
	view := strings.Join([]string{header, status, body, footer}, "\n")
	view = fitHeight(view, max(1, m.height))
	return appStyle.Width(max(1, m.width)).MaxWidth(max(1, m.width)).Render(view)
}

func (m Model) renderHeader() string {
	left := headerAppStyle.Render("RelID Codelab")
	right := ""
	if top := m.screens.Top(); top != nil {
		right = screenTitleStyle.Render(top.Title())
	}
	gap := 1
	leftW := lipgloss.Width(left)
	rightW := lipgloss.Width(right)
	if leftW+rightW+1 < m.width {
		gap = m.width - leftW - rightW
	}
	line := left + strings.Repeat(" ", gap) + right
	return headerBarStyle.Width(max(1, m.width)).MaxWidth(max(1, m.width)).Render(line)
}

func (m Model) renderStatusBar() string {
	style := statusBarStyle
	if m.statusErr {
		style = statusErrBarStyle
	}
	return style.Width(max(1, m.width)).MaxWidth(max(1, m.width)).Render(" " + m.status)
}

func fitHeight(s string, height int) string {
	if height <= 0 {
		return ""
	}
	lines := strings.Split(s, "\n")
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

package watch

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/sealbox/sealbox/internal/events"
)

func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	header := m.renderHeader()
	targets := m.theme.Border.Width(m.width - 4).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.theme.Title.Render("Targets"),
			m.targetTable.View(),
		),
	)
	eventsView := m.theme.Border.Width(m.width - 4).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.theme.Title.Render("Event Stream"),
			m.renderEvents(),
		),
	)

	parts := []string{header, targets, eventsView}
	if m.lastError != "" {
		parts = append(parts, m.theme.StatusFailed.Render(" ⚠ "+m.lastError))
	}
	parts = append(parts, m.theme.Dim.Render(" [q] Quit • [↑/↓] Scroll Targets"))

	return lipgloss.NewStyle().Margin(1, 2).Render(
		lipgloss.JoinVertical(lipgloss.Left, parts...),
	)
}

func (m Model) renderHeader() string {
	status := m.theme.StatusOK.Render("CONNECTED")
	if !m.health.Connected {
		status = m.theme.StatusFailed.Render("DISCONNECTED")
	}

	uptime := time.Duration(m.health.UptimeSeconds) * time.Second
	items := []string{
		fmt.Sprintf("Bridge: %s", status),
		fmt.Sprintf("Uptime: %s", uptime),
		fmt.Sprintf("Targets seen: %d", len(m.targets)),
	}

	third := (m.width - 4) / 3
	return m.theme.Border.Width(m.width - 4).Render(
		lipgloss.JoinHorizontal(lipgloss.Top,
			lipgloss.NewStyle().Width(third).Render(items[0]),
			lipgloss.NewStyle().Width(third).Render(items[1]),
			lipgloss.NewStyle().Width(third).Render(items[2]),
		),
	)
}

func (m Model) renderEvents() string {
	var lines []string
	for i, e := range m.eventLog {
		if i >= 10 {
			break
		}
		ts := e.At.Format("15:04:05")
		lines = append(lines, fmt.Sprintf("%s | %-14s | %s", ts, e.Type, eventDetail(e)))
	}
	if len(lines) == 0 {
		return "  No events yet..."
	}
	return lipgloss.NewStyle().Padding(0, 1).Render(strings.Join(lines, "\n"))
}

func eventDetail(e events.Event) string {
	switch {
	case e.Target != nil:
		detail := e.Target.Target + " " + e.Target.State
		if e.Target.Error != "" {
			detail += ": " + e.Target.Error
		}
		return detail
	case e.Job != nil:
		detail := fmt.Sprintf("%s %d target(s)", e.Job.Action, e.Job.Targets)
		if e.Job.Status != "" {
			detail += " " + e.Job.Status
		}
		return detail
	default:
		return ""
	}
}

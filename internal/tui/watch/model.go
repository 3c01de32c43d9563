package watch

import (
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sealbox/sealbox/internal/events"
)

// targetRow tracks the latest state of one target within a job.
type targetRow struct {
	JobID     string
	Target    string
	State     string
	Error     string
	StartedAt time.Time
	EndedAt   time.Time
}

// Model is the BubbleTea model for sealbox watch.
type Model struct {
	bridgeURL string
	token     string

	width  int
	height int

	health struct {
		Status        string
		UptimeSeconds int64
		Connected     bool
	}

	targets  map[string]*targetRow // keyed by job_id+target
	order    []string
	eventLog []events.Event

	targetTable table.Model
	theme       Theme
	hubEvents   chan events.Event
	lastError   string
}

// New creates a watch model pointed at the bridge.
func New(bridgeURL, token string) *Model {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "ST", Width: 2},
			{Title: "Target", Width: 40},
			{Title: "State", Width: 14},
			{Title: "Job", Width: 10},
			{Title: "Duration", Width: 10},
		}),
		table.WithFocused(true),
		table.WithHeight(10),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return &Model{
		bridgeURL:   bridgeURL,
		token:       token,
		targets:     make(map[string]*targetRow),
		eventLog:    make([]events.Event, 0),
		hubEvents:   make(chan events.Event, 100),
		targetTable: t,
		theme:       NewDefaultTheme(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		subscribeToEvents(m.bridgeURL, m.token, m.hubEvents),
		receiveNextEvent(m.hubEvents),
		func() tea.Msg { return fetchHealth(m.bridgeURL, m.token) },
		tea.EnterAltScreen,
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.targetTable.SetWidth(m.width - 6)

	case eventMsg:
		m.handleEvent(events.Event(msg))
		m.updateTable()
		m.health.Connected = true
		m.lastError = ""
		return m, receiveNextEvent(m.hubEvents)

	case healthMsg:
		m.health.Status = msg.Status
		m.health.UptimeSeconds = msg.UptimeSeconds
		m.health.Connected = true
		m.lastError = ""
		return m, tea.Tick(5*time.Second, func(t time.Time) tea.Msg {
			return fetchHealth(m.bridgeURL, m.token)
		})

	case sseDisconnectedMsg:
		m.health.Connected = false
		m.lastError = "event stream disconnected, reconnecting..."
		return m, tea.Tick(3*time.Second, func(t time.Time) tea.Msg {
			return reconnectMsg{}
		})

	case reconnectMsg:
		return m, subscribeToEvents(m.bridgeURL, m.token, m.hubEvents)

	case errMsg:
		m.lastError = msg.Error()
		return m, tea.Tick(5*time.Second, func(t time.Time) tea.Msg {
			return fetchHealth(m.bridgeURL, m.token)
		})
	}

	m.targetTable, cmd = m.targetTable.Update(msg)
	return m, cmd
}

func (m *Model) handleEvent(e events.Event) {
	m.eventLog = append([]events.Event{e}, m.eventLog...)
	if len(m.eventLog) > 50 {
		m.eventLog = m.eventLog[:50]
	}

	if e.Type != events.TypeTargetState || e.Target == nil {
		return
	}
	payload := *e.Target

	key := payload.JobID + "|" + payload.Target
	row, ok := m.targets[key]
	if !ok {
		row = &targetRow{
			JobID:     payload.JobID,
			Target:    payload.Target,
			StartedAt: time.Now(),
		}
		m.targets[key] = row
		m.order = append([]string{key}, m.order...)
	}
	row.State = payload.State
	row.Error = payload.Error
	if payload.State == "completed" || payload.State == "failed" {
		row.EndedAt = time.Now()
	}
}

func (m *Model) updateTable() {
	rows := make([]table.Row, 0, len(m.order))
	for _, key := range m.order {
		row := m.targets[key]
		rows = append(rows, m.rowFor(row))
	}
	m.targetTable.SetRows(rows)
}

func (m *Model) rowFor(row *targetRow) table.Row {
	statusSym := m.theme.StatusRunning.Render("◉")
	switch row.State {
	case "completed":
		statusSym = m.theme.StatusOK.Render("●")
	case "failed":
		statusSym = m.theme.StatusFailed.Render("∅")
	}

	duration := "-"
	if !row.StartedAt.IsZero() {
		end := row.EndedAt
		if end.IsZero() {
			end = time.Now()
		}
		duration = end.Sub(row.StartedAt).Round(time.Millisecond).String()
	}

	jobID := row.JobID
	if len(jobID) > 8 {
		jobID = jobID[:8]
	}

	return table.Row{statusSym, truncate(row.Target, 40), row.State, jobID, duration}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "…" + s[len(s)-n+1:]
}

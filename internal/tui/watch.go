package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/squadronhq/squadron/internal/orchestrator"
)

// Tab constants for navigation.
const (
	TabExecutions = iota
	TabQueue
	TabLogs
	tabCount
)

// EventMsg wraps an orchestrator event for the dashboard.
type EventMsg struct {
	Event orchestrator.Event
}

// RunDoneMsg signals that the watched run finished.
type RunDoneMsg struct {
	Message string
}

// LogEntry is one line in the logs tab.
type LogEntry struct {
	Timestamp time.Time
	Level     string
	Message   string
}

// taskRow tracks the display state of one task.
type taskRow struct {
	TaskID    string
	AgentType string
	Status    string
	Message   string
	UpdatedAt time.Time
}

// App is the bubbletea model for the watch dashboard.
type App struct {
	currentTab int
	spinner    spinner.Model
	rows       []*taskRow
	logs       []LogEntry
	width      int
	height     int
	quitting   bool
	done       bool
	doneMsg    string
	startedAt  time.Time
}

// New creates a dashboard model.
func New() *App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return &App{
		spinner:   sp,
		startedAt: time.Now(),
	}
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return a.spinner.Tick
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			a.quitting = true
			return a, tea.Quit
		case "tab":
			a.currentTab = (a.currentTab + 1) % tabCount
		case "1":
			a.currentTab = TabExecutions
		case "2":
			a.currentTab = TabQueue
		case "3":
			a.currentTab = TabLogs
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height

	case EventMsg:
		a.handleEvent(msg.Event)

	case RunDoneMsg:
		a.done = true
		a.doneMsg = msg.Message

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	}

	return a, nil
}

// handleEvent folds an orchestrator event into the display state.
func (a *App) handleEvent(event orchestrator.Event) {
	level := "INFO"
	if event.Error != nil || event.Type == orchestrator.EventTaskFailed {
		level = "ERROR"
	}
	message := event.Message
	if message == "" {
		message = fmt.Sprintf("%s %s", event.Type, event.TaskID)
	}
	if event.Error != nil {
		message = fmt.Sprintf("%s: %v", message, event.Error)
	}
	a.logs = append(a.logs, LogEntry{Timestamp: event.Timestamp, Level: level, Message: message})

	switch event.Type {
	case orchestrator.EventTaskQueued:
		row := a.findOrCreateRow(event.TaskID, event.AgentType)
		row.Status = "queued"
		row.Message = event.Message
		row.UpdatedAt = event.Timestamp
	case orchestrator.EventTaskStarted:
		row := a.findOrCreateRow(event.TaskID, event.AgentType)
		row.Status = "running"
		row.UpdatedAt = event.Timestamp
	case orchestrator.EventTaskCompleted:
		row := a.findOrCreateRow(event.TaskID, event.AgentType)
		row.Status = "completed"
		row.UpdatedAt = event.Timestamp
	case orchestrator.EventTaskFailed:
		row := a.findOrCreateRow(event.TaskID, event.AgentType)
		row.Status = "failed"
		row.Message = event.Message
		if event.Error != nil {
			row.Message = event.Error.Error()
		}
		row.UpdatedAt = event.Timestamp
	case orchestrator.EventTaskBlocked:
		row := a.findOrCreateRow(event.TaskID, event.AgentType)
		row.Status = "blocked"
		row.Message = event.Message
		row.UpdatedAt = event.Timestamp
	case orchestrator.EventRunDone:
		a.done = true
	}
}

func (a *App) findOrCreateRow(taskID, agentType string) *taskRow {
	for _, row := range a.rows {
		if row.TaskID == taskID {
			if agentType != "" {
				row.AgentType = agentType
			}
			return row
		}
	}
	row := &taskRow{TaskID: taskID, AgentType: agentType, Status: "queued"}
	a.rows = append(a.rows, row)
	return row
}

// View implements tea.Model.
func (a *App) View() string {
	if a.quitting {
		return "Goodbye!\n"
	}

	var content string
	switch a.currentTab {
	case TabExecutions:
		content = a.viewExecutions()
	case TabQueue:
		content = a.viewQueue()
	case TabLogs:
		content = a.viewLogs()
	}

	return fmt.Sprintf("%s\n%s\n\n%s\n\n%s", a.viewHeader(), a.viewTabs(), content, a.viewFooter())
}

func (a *App) viewHeader() string {
	title := titleStyle.Render("squadron")
	subtitle := subtitleStyle.Render("multi-agent task orchestration")
	if a.done {
		return fmt.Sprintf("%s  %s", title, subtitle)
	}
	return fmt.Sprintf("%s %s  %s", a.spinner.View(), title, subtitle)
}

func (a *App) viewTabs() string {
	tabs := []string{"Executions", "Queue", "Logs"}
	var header string
	for i, tab := range tabs {
		label := fmt.Sprintf(" %d:%s ", i+1, tab)
		if i == a.currentTab {
			header += activeTabStyle.Render("[" + label + "]")
		} else {
			header += inactiveTabStyle.Render(" " + label + " ")
		}
	}
	return header
}

func (a *App) viewExecutions() string {
	var view string
	for _, row := range a.rows {
		if row.Status == "queued" {
			continue
		}
		view += fmt.Sprintf("  %s %-12s %s\n", statusStyle(row.Status).Render(statusGlyph(row.Status)), row.AgentType, shortID(row.TaskID))
		if row.Message != "" {
			view += footerStyle.Render(fmt.Sprintf("      %s", row.Message)) + "\n"
		}
	}
	if view == "" {
		return "No executions yet"
	}
	return view
}

func (a *App) viewQueue() string {
	var view string
	for _, row := range a.rows {
		if row.Status != "queued" && row.Status != "blocked" {
			continue
		}
		view += fmt.Sprintf("  %s %-12s %s %s\n", statusStyle(row.Status).Render(statusGlyph(row.Status)), row.AgentType, shortID(row.TaskID), row.Message)
	}
	if view == "" {
		return "Queue is empty"
	}
	return view
}

func (a *App) viewLogs() string {
	if len(a.logs) == 0 {
		return "No log entries"
	}

	start := 0
	if len(a.logs) > 20 {
		start = len(a.logs) - 20
	}

	var view string
	for _, entry := range a.logs[start:] {
		view += fmt.Sprintf("  %s [%s] %s\n", entry.Timestamp.Format("15:04:05"), entry.Level, entry.Message)
	}
	return view
}

func (a *App) viewFooter() string {
	if a.done {
		msg := a.doneMsg
		if msg == "" {
			msg = "run finished"
		}
		return footerStyle.Render(fmt.Sprintf("%s | elapsed %s | press q to exit", msg, time.Since(a.startedAt).Round(time.Second)))
	}
	return footerStyle.Render("Press 1/2/3 or Tab to switch tabs | q to quit")
}

func statusStyle(status string) interface{ Render(...string) string } {
	switch status {
	case "completed":
		return completedStyle
	case "failed", "blocked":
		return failedStyle
	case "running":
		return runningStyle
	default:
		return queuedStyle
	}
}

func statusGlyph(status string) string {
	switch status {
	case "completed":
		return "✓"
	case "failed":
		return "✗"
	case "blocked":
		return "⊘"
	case "running":
		return "▶"
	default:
		return "·"
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// Watch runs the dashboard over an orchestrator event stream. It returns
// when the user quits or the stream closes after the run completes.
func Watch(events <-chan orchestrator.Event) error {
	app := New()
	p := tea.NewProgram(app, tea.WithAltScreen())

	go func() {
		for event := range events {
			p.Send(EventMsg{Event: event})
		}
		p.Send(RunDoneMsg{Message: "event stream closed"})
	}()

	_, err := p.Run()
	return err
}

package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pathwatch/internal/core/watcher"
	"pathwatch/internal/shared/lifecycle"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			MarginLeft(2).
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true).
			Render

	docStyle = lipgloss.NewStyle().Margin(1, 2)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)

	pausedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24")).
			Bold(true)

	kindStyles = map[watcher.ChangeKind]lipgloss.Style{
		watcher.KindCreated:         lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")),
		watcher.KindRemoved:         lipgloss.NewStyle().Foreground(lipgloss.Color("#F87171")),
		watcher.KindRenamed:         lipgloss.NewStyle().Foreground(lipgloss.Color("#A78BFA")),
		watcher.KindModified:        lipgloss.NewStyle().Foreground(lipgloss.Color("#60A5FA")),
		watcher.KindMetadataChanged: lipgloss.NewStyle().Foreground(lipgloss.Color("#94A3B8")),
	}
)

type eventMsg struct {
	event watcher.Event
	at    time.Time
}

type model struct {
	table    table.Model
	title    string
	maxRows  int
	rows     []table.Row
	counts   map[watcher.ChangeKind]int
	total    int
	paused   bool
	lastSeen time.Time
}

func initialModel(title string, maxRows int) model {
	if maxRows <= 0 {
		maxRows = 200
	}
	columns := []table.Column{
		{Title: "ID", Width: 8},
		{Title: "Time", Width: 10},
		{Title: "Kind", Width: 10},
		{Title: "Path", Width: 60},
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(15),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		Bold(true)
	t.SetStyles(styles)

	return model{
		table:   t,
		title:   title,
		maxRows: maxRows,
		counts:  make(map[watcher.ChangeKind]int),
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "p":
			m.paused = !m.paused
			return m, nil
		case "c":
			m.rows = nil
			m.table.SetRows(nil)
			return m, nil
		}
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		height := msg.Height - v - 6
		if height < 5 {
			height = 5
		}
		m.table.SetHeight(height)
		m.table.SetWidth(msg.Width - h)
	case eventMsg:
		m.total++
		m.counts[msg.event.Kind]++
		m.lastSeen = msg.at
		if m.paused {
			return m, nil
		}
		row := table.Row{
			fmt.Sprintf("%d", msg.event.ID),
			msg.at.Format("15:04:05"),
			msg.event.Kind.String(),
			msg.event.Path,
		}
		m.rows = append([]table.Row{row}, m.rows...)
		if len(m.rows) > m.maxRows {
			m.rows = m.rows[:m.maxRows]
		}
		m.table.SetRows(m.rows)
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m model) View() string {
	last := "never"
	if !m.lastSeen.IsZero() {
		last = m.lastSeen.Format("15:04:05")
	}
	status := statusStyle.Render(fmt.Sprintf("Last event: %s | %d events", last, m.total))
	if m.paused {
		status += " " + pausedStyle.Render("PAUSED")
	}

	header := fmt.Sprintf("%s\n%s\n%s\n", titleStyle(m.title), status, renderCounts(m.counts))
	help := statusStyle.Render("q quit | p pause | c clear | arrows scroll")
	return docStyle.Render(header + "\n" + m.table.View() + "\n\n" + help)
}

func renderCounts(counts map[watcher.ChangeKind]int) string {
	parts := make([]string, 0, len(counts))
	for _, kind := range watcher.AllKinds() {
		n := counts[kind]
		if n == 0 {
			continue
		}
		style, ok := kindStyles[kind]
		if !ok {
			style = statusStyle
		}
		parts = append(parts, style.Render(fmt.Sprintf("%s %d", kind, n)))
	}
	if len(parts) == 0 {
		return statusStyle.Render("No changes yet")
	}
	return strings.Join(parts, " | ")
}

// terminalUI runs the bubbletea program as a lifecycle listener. Quitting
// the program ends the whole session.
type terminalUI struct {
	program *tea.Program
}

func newTerminalUI(title string, maxRows int) *terminalUI {
	return &terminalUI{program: tea.NewProgram(initialModel(title, maxRows), tea.WithAltScreen())}
}

// Sink forwards events into the program. It is safe to call from the
// watcher's executor.
func (u *terminalUI) Sink(event watcher.Event) {
	u.program.Send(eventMsg{event: event, at: time.Now()})
}

func (u *terminalUI) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		u.program.Quit()
	}()
	if _, err := u.program.Run(); err != nil && ctx.Err() == nil {
		return err
	}
	return lifecycle.ErrDone
}

func (u *terminalUI) Stop(context.Context) error {
	u.program.Quit()
	return nil
}

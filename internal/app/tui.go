package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/benaskins/sidecar/internal/supervisor"
)

const (
	refreshInterval = 250 * time.Millisecond
	tailLines       = 12
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	tailStyle  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
)

type refreshMsg time.Time

func refresh() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return refreshMsg(t)
	})
}

// Model is the terminal window of the application. Its Update loop is the
// event loop the runtime's hooks run on.
type Model struct {
	rt      *Runtime
	ctx     context.Context
	spinner spinner.Model
	width   int
	closing bool
}

// NewModel returns a window bound to rt.
func NewModel(ctx context.Context, rt *Runtime) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = warnStyle
	return Model{rt: rt, ctx: ctx, spinner: s}
}

// Init fires the setup hook.
func (m Model) Init() tea.Cmd {
	m.rt.Setup(m.ctx)
	return tea.Batch(m.spinner.Tick, refresh())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.closing = true
			m.rt.CloseRequested()
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case refreshMsg:
		return m, refresh()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) View() string {
	if m.closing {
		return mutedStyle.Render("backend stopped") + "\n"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("sidecar"))
	b.WriteString("\n\n")
	b.WriteString(m.status())
	b.WriteString("\n")

	if lines := m.rt.Supervisor().Tail().Last(tailLines); len(lines) > 0 {
		box := tailStyle
		if m.width > 4 {
			box = box.Width(m.width - 4)
		}
		b.WriteString(box.Render(strings.Join(lines, "\n")))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("q / esc / ctrl+c to quit"))
	b.WriteString("\n")
	return b.String()
}

func (m Model) status() string {
	if m.rt.DevMode() {
		return warnStyle.Render("dev mode") + " start the backend manually"
	}

	sup := m.rt.Supervisor()
	switch sup.State() {
	case supervisor.StateIdle, supervisor.StateStarting:
		return m.spinner.View() + " starting backend"
	case supervisor.StateRunning:
		return okStyle.Render("●") + fmt.Sprintf(" backend running (pid %d)", m.rt.PID())
	case supervisor.StateStartFailed:
		line := errStyle.Render("✗") + " backend unavailable"
		if err := sup.LastError(); err != nil {
			line += mutedStyle.Render(": " + err.Error())
		}
		return line
	case supervisor.StateStopped:
		return mutedStyle.Render("backend stopped")
	}
	return ""
}

// RunTUI runs the terminal window until the user closes it. The close hook
// also fires if the program ends any other way.
func RunTUI(ctx context.Context, rt *Runtime) error {
	p := tea.NewProgram(NewModel(ctx, rt), tea.WithContext(ctx), tea.WithAltScreen())
	_, err := p.Run()
	rt.CloseRequested()
	if err != nil {
		return fmt.Errorf("running terminal ui: %w", err)
	}
	return nil
}

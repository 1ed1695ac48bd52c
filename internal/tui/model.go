package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/whatchicken/slack-dm-scraper/internal"
)

const maxLogLines = 200

// Runner is the controller surface the TUI drives
type Runner interface {
	Start(ctx context.Context) internal.Status
	Stop() internal.Status
	Snapshot() internal.Snapshot
	Subscribe(fn func(internal.Event))
}

// Options configures the model
type Options struct {
	// AutoStart starts a run as soon as the program starts
	AutoStart bool
	// ExitOnOutcome quits once a run has exported
	ExitOnOutcome bool
	// Title is shown in the header
	Title string
}

type eventMsg internal.Event

type statusMsg struct {
	action string
	status internal.Status
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	valueStyle   = lipgloss.NewStyle().Bold(true)
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	logPaneStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("238"))
)

// Model is the bubbletea model of a collection session
type Model struct {
	ctx    context.Context
	runner Runner
	opts   Options
	events <-chan internal.Event

	keys     keyMap
	help     help.Model
	spinner  spinner.Model
	viewport viewport.Model

	width, height int

	active   bool
	quitting bool
	state    internal.State
	total    int
	stalls   int
	step     int
	pages    int
	logs     []string
	result   *internal.Result
}

// New subscribes to runner and returns the initial model
func New(ctx context.Context, runner Runner, opts Options) Model {
	events := make(chan internal.Event, 256)
	runner.Subscribe(func(ev internal.Event) {
		if ev.Kind == internal.EventOutcome {
			// the outcome ends the session and must not be dropped
			select {
			case events <- ev:
			case <-ctx.Done():
			}
			return
		}
		select {
		case events <- ev:
		default:
		}
	})

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("62"))

	vp := viewport.New(60, 10)
	vp.SetContent("press s to start collecting")

	if opts.Title == "" {
		opts.Title = "slack-dm-scraper"
	}

	return Model{
		ctx:      ctx,
		runner:   runner,
		opts:     opts,
		events:   events,
		keys:     defaultKeyMap(),
		help:     help.New(),
		spinner:  sp,
		viewport: vp,
	}
}

// Result returns the outcome of the last run, if any
func (m Model) Result() *internal.Result {
	return m.result
}

func waitEvent(ch <-chan internal.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return eventMsg(ev)
	}
}

func (m Model) startCmd() tea.Cmd {
	return func() tea.Msg {
		return statusMsg{action: "start", status: m.runner.Start(m.ctx)}
	}
}

func (m Model) stopCmd() tea.Cmd {
	return func() tea.Msg {
		return statusMsg{action: "stop", status: m.runner.Stop()}
	}
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, waitEvent(m.events)}
	if m.opts.AutoStart {
		cmds = append(cmds, m.startCmd())
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.viewport.Width = max(20, msg.Width-2)
		m.viewport.Height = max(3, msg.Height-8)
		m.renderLog()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			if !m.active {
				return m, tea.Quit
			}
			m.quitting = true
			m.appendLog(warnStyle.Render("stopping before exit..."))
			return m, m.stopCmd()
		case key.Matches(msg, m.keys.Start):
			if !m.quitting {
				cmds = append(cmds, m.startCmd())
			}
		case key.Matches(msg, m.keys.Stop):
			cmds = append(cmds, m.stopCmd())
		default:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			cmds = append(cmds, cmd)
		}

	case statusMsg:
		switch msg.status {
		case internal.StatusStarted:
			m.active = true
			m.total, m.stalls, m.step, m.pages = 0, 0, 0, 0
			m.result = nil
			m.appendLog(okStyle.Render("collection started"))
		case internal.StatusRunning:
			m.appendLog(labelStyle.Render("already running"))
		case internal.StatusStopped:
			m.appendLog(warnStyle.Render("stop requested"))
		case internal.StatusIdle:
			m.appendLog(labelStyle.Render("nothing to stop"))
		}

	case eventMsg:
		quit := m.applyEvent(internal.Event(msg))
		if quit {
			return m, tea.Quit
		}
		cmds = append(cmds, waitEvent(m.events))
	}

	return m, tea.Batch(cmds...)
}

// applyEvent folds ev into the counters and reports whether to quit
func (m *Model) applyEvent(ev internal.Event) bool {
	m.state = ev.State
	if ev.Total > 0 || ev.Kind == internal.EventOutcome {
		m.total = ev.Total
	}

	switch ev.Kind {
	case internal.EventStep:
		m.active = true
		m.step = ev.Step
		m.stalls = ev.Stalls
		m.appendLog(fmt.Sprintf("%s step %d: %d visible, total %d, stalls %d",
			ev.Time.Format("15:04:05"), ev.Step, ev.Extracted, ev.Total, ev.Stalls))
	case internal.EventState:
		m.active = true
		m.stalls = ev.Stalls
		switch ev.State {
		case internal.StateFallingBack:
			m.appendLog(warnStyle.Render(fmt.Sprintf("view stalled after %d attempts, using history API", ev.Stalls)))
		case internal.StateRunning:
			if ev.Extracted > 0 {
				m.appendLog(fmt.Sprintf("initial view: %d messages", ev.Extracted))
			}
		}
	case internal.EventPage:
		if ev.Page != nil {
			m.pages++
			m.total = ev.Page.Total
			m.appendLog(fmt.Sprintf("api page %d: %d fetched, %d new", m.pages, ev.Page.Fetched, ev.Page.Added))
		}
	case internal.EventOutcome:
		m.active = false
		m.state = internal.StateIdle
		if ev.Result != nil {
			r := *ev.Result
			m.result = &r
			m.appendLog(outcomeLine(r))
		}
		return m.quitting || m.opts.ExitOnOutcome
	}
	return false
}

func outcomeLine(r internal.Result) string {
	switch r.Outcome {
	case internal.OutcomeExported:
		return okStyle.Render(fmt.Sprintf("exported %d messages to %s", r.Messages, r.Location))
	case internal.OutcomeEmpty:
		return warnStyle.Render("no messages collected")
	default:
		return errStyle.Render("export failed: " + r.Error)
	}
}

func (m *Model) appendLog(line string) {
	m.logs = append(m.logs, line)
	if len(m.logs) > maxLogLines {
		m.logs = m.logs[len(m.logs)-maxLogLines:]
	}
	m.renderLog()
}

func (m *Model) renderLog() {
	if len(m.logs) == 0 {
		return
	}
	m.viewport.SetContent(strings.Join(m.logs, "\n"))
	m.viewport.GotoBottom()
}

func (m Model) View() string {
	var b strings.Builder

	status := labelStyle.Render("idle")
	if m.active {
		status = m.spinner.View() + " " + m.state.String()
	}
	b.WriteString(titleStyle.Render(m.opts.Title) + "  " + status + "\n\n")

	counter := func(label string, v int) string {
		return labelStyle.Render(label+" ") + valueStyle.Render(fmt.Sprint(v))
	}
	b.WriteString(strings.Join([]string{
		counter("messages", m.total),
		counter("stalls", m.stalls),
		counter("step", m.step),
		counter("api pages", m.pages),
	}, "   "))
	b.WriteString("\n")

	b.WriteString(logPaneStyle.Render(m.viewport.View()))
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

// Run drives runner interactively until the user quits, or until the first
// outcome when opts.ExitOnOutcome is set
func Run(ctx context.Context, runner Runner, opts Options) (*internal.Result, error) {
	m := New(ctx, runner, opts)
	p := tea.NewProgram(m, tea.WithContext(ctx))

	final, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("tui: %w", err)
	}
	fm, ok := final.(Model)
	if !ok {
		return nil, nil
	}
	return fm.Result(), nil
}

package console

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/reflow/wordwrap"

	"github.com/quadflow/quadflow/internal/engine"
	"github.com/quadflow/quadflow/internal/phase"
	"github.com/quadflow/quadflow/internal/role"
)

// refreshInterval is how often the console pulls a fresh state view.
const refreshInterval = 200 * time.Millisecond

type refreshMsg engine.View

// Model is the bubbletea model for the run console.
type Model struct {
	eng    *engine.Engine
	ctx    context.Context
	view   engine.View
	tab    int
	vp     viewport.Model
	spin   spinner.Model
	width  int
	height int
	ready  bool
}

// New creates a console bound to an engine.
func New(ctx context.Context, eng *engine.Engine) Model {
	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	return Model{eng: eng, ctx: ctx, spin: sp, view: eng.View()}
}

// Init starts the refresh loop.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.refresh(), m.spin.Tick)
}

func (m Model) refresh() tea.Cmd {
	return tea.Tick(refreshInterval, func(time.Time) tea.Msg {
		return refreshMsg(m.eng.View())
	})
}

// Update handles key presses and refresh ticks.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.vp = viewport.New(msg.Width, max(msg.Height-6, 3))
		m.ready = true

	case refreshMsg:
		m.view = engine.View(msg)
		m.syncViewport()
		return m, m.refresh()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "tab":
			m.tab = (m.tab + 1) % len(role.All())
			m.eng.SetActiveRole(role.All()[m.tab])
		case "shift+tab":
			m.tab = (m.tab + len(role.All()) - 1) % len(role.All())
			m.eng.SetActiveRole(role.All()[m.tab])
		case "a":
			m.eng.Apply(m.ctx, phase.Command{Kind: phase.Advance})
		case "u":
			m.eng.Apply(m.ctx, phase.Command{Kind: phase.UnlockGate})
		case "r":
			m.eng.Apply(m.ctx, phase.Command{Kind: phase.Retry})
		case "g":
			if req := m.firstPending(); req != "" {
				m.eng.Grant(req)
			}
		case "d":
			if req := m.firstPending(); req != "" {
				m.eng.Deny(req)
			}
		case "up", "k":
			m.vp.ScrollUp(1)
		case "down", "j":
			m.vp.ScrollDown(1)
		}
	}

	var cmd tea.Cmd
	m.vp, cmd = m.vp.Update(msg)
	return m, cmd
}

// firstPending returns the oldest unresolved permission request in view.
func (m Model) firstPending() string {
	for _, r := range role.All() {
		for _, o := range m.view.Roles[r].Outputs {
			if o.Pending != nil {
				return o.Pending.RequestID
			}
		}
	}
	return ""
}

func (m *Model) syncViewport() {
	if !m.ready {
		return
	}
	atBottom := m.vp.AtBottom()
	m.vp.SetContent(m.renderRole(role.All()[m.tab]))
	if atBottom {
		m.vp.GotoBottom()
	}
}

// View renders the console.
func (m Model) View() string {
	if !m.ready {
		return "starting..."
	}
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.vp.View())
	b.WriteString("\n")
	b.WriteString(m.renderTasks(role.All()[m.tab]))
	b.WriteString(helpStyle.Render("tab: role  a: advance  u: unlock  r: retry  g/d: grant/deny  q: quit"))
	return b.String()
}

func (m Model) renderHeader() string {
	var tabs []string
	for i, r := range role.All() {
		style := tabStyle
		if i == m.tab {
			style = activeTabStyle
		}
		tabs = append(tabs, style.Render(string(r)))
	}
	ph := phaseStyle.Render(string(m.view.Phase))
	if m.view.Phase == phase.SecurityLockdown {
		ph = lockdownStyle.Render(" SECURITY LOCKDOWN ")
	}
	return strings.Join(tabs, "") + "  " + ph
}

// renderRole renders one role's output timeline.
func (m Model) renderRole(r role.Role) string {
	rv := m.view.Roles[r]
	if len(rv.Outputs) == 0 {
		return dimStyle.Render("no output yet")
	}
	var b strings.Builder
	for _, o := range rv.Outputs {
		b.WriteString(m.renderOutput(o))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderOutput(o role.OutputItem) string {
	head := string(o.Kind)
	if o.Command != "" {
		head = "$ " + o.Command
	}
	var status string
	switch o.Status {
	case role.StatusRunning:
		status = runningStyle.Render(m.spin.View() + " running")
	case role.StatusAwaiting:
		status = awaitingStyle.Render("awaiting permission")
	case role.StatusSuccess:
		status = successStyle.Render("done")
	case role.StatusError:
		status = errorStyle.Render("failed")
	default:
		status = dimStyle.Render(string(o.Status))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n", head, status)
	width := max(m.width-2, 20)
	for _, seg := range o.Segments {
		text := wordwrap.String(strings.TrimRight(seg.Text, "\n"), width)
		if seg.Stderr {
			text = stderrStyle.Render(text)
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	if o.Pending != nil {
		fmt.Fprintf(&b, "%s\n", awaitingStyle.Render(
			fmt.Sprintf("? [%s] %s (g to grant, d to deny)", o.Pending.RiskLevel, o.Pending.Command)))
	}
	return b.String()
}

// renderTasks renders the role's task list with status markers.
func (m Model) renderTasks(r role.Role) string {
	rv := m.view.Roles[r]
	if len(rv.Tasks) == 0 {
		return ""
	}
	var b strings.Builder
	for _, t := range rv.Tasks {
		b.WriteString(taskLine(t))
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "%s\n", dimStyle.Render(
		fmt.Sprintf("tokens: %d in / %d out", rv.Tokens.Input, rv.Tokens.Output)))
	return b.String()
}

func taskLine(t role.TaskItem) string {
	switch t.Status {
	case role.TaskActive:
		return runningStyle.Render("[>] " + t.Text)
	case role.TaskComplete:
		return successStyle.Render("[x] " + t.Text)
	case role.TaskSkipped:
		return dimStyle.Render("[~] " + t.Text)
	case role.TaskFailed:
		return errorStyle.Render("[!] " + t.Text)
	default:
		return "[ ] " + t.Text
	}
}

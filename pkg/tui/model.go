// Package tui renders recipe executions in the terminal: a live
// Bubble Tea view for `receta watch` and markdown rendering for
// `receta show`.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/ormasoftchile/receta/pkg/engine"
	"github.com/ormasoftchile/receta/pkg/recipe"
)

const (
	statePending = "pending"
	stateRunning = "running"
)

// stepState tracks the display status of one step.
type stepState struct {
	ID     string
	Tool   string
	Status string // pending, running, success, error, skipped
	Detail string
}

// Model is the Bubble Tea model for a live recipe run.
type Model struct {
	recipe   *recipe.Recipe
	stepper  *engine.Stepper
	states   []stepState
	spin     spinner.Model
	selected int
	width    int
	done     bool
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewModel prepares a live view over a fresh execution of the recipe.
func NewModel(x *engine.Executor, r *recipe.Recipe, vars map[string]any) Model {
	states := make([]stepState, 0, len(r.Steps))
	for _, s := range r.Steps {
		states = append(states, stepState{ID: s.ID, Tool: s.ToolName, Status: statePending})
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	ctx, cancel := context.WithCancel(context.Background())
	return Model{
		recipe:  r,
		stepper: x.NewStepper(r, vars),
		states:  states,
		spin:    sp,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// stepDoneMsg delivers the outcomes of one Stepper.Next call.
type stepDoneMsg struct {
	Outcomes []engine.StepOutcome
	More     bool
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.nextStep())
}

// nextStep executes one step off the UI goroutine.
func (m Model) nextStep() tea.Cmd {
	stepper := m.stepper
	ctx := m.ctx
	return func() tea.Msg {
		outcomes, more := stepper.Next(ctx)
		return stepDoneMsg{Outcomes: outcomes, More: more}
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.cancel()
			return m, tea.Quit
		case "up", "k":
			if m.selected > 0 {
				m.selected--
			}
		case "down", "j":
			if m.selected < len(m.states)-1 {
				m.selected++
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case stepDoneMsg:
		for _, o := range msg.Outcomes {
			m.applyOutcome(o)
		}
		if msg.More {
			m.markRunning()
			return m, m.nextStep()
		}
		m.done = true
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *Model) applyOutcome(o engine.StepOutcome) {
	for i := range m.states {
		if m.states[i].ID != o.StepID {
			continue
		}
		m.states[i].Status = string(o.Status)
		switch o.Status {
		case engine.StepError:
			m.states[i].Detail = o.Failure.Message
		case engine.StepSkipped:
			m.states[i].Detail = o.SkipReason
		case engine.StepSuccess:
			m.states[i].Detail = fmt.Sprintf("%v", o.Result)
		}
		return
	}
}

func (m *Model) markRunning() {
	if step, ok := m.stepper.Current(); ok {
		for i := range m.states {
			if m.states[i].ID == step.ID && m.states[i].Status == statePending {
				m.states[i].Status = stateRunning
				return
			}
		}
	}
}

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("51"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	okStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("40"))
	failStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
)

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render(fmt.Sprintf("  receta: %s", m.recipe.Name)))
	b.WriteString("\n\n")

	width := m.width
	if width <= 0 {
		width = 80
	}

	for i, s := range m.states {
		icon := stepIcon(s.Status)
		if s.Status == stateRunning {
			icon = m.spin.View()
		}
		line := fmt.Sprintf("  %s %s [%s]", icon, s.ID, s.Tool)
		if s.Detail != "" {
			line += "  " + s.Detail
		}
		line = truncate(line, width-4)

		if i == m.selected {
			b.WriteString(selectedStyle.Render("▸ " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if !m.done {
		b.WriteString(dimStyle.Render("  Running..."))
	} else {
		result := m.stepper.Result()
		summary := result.Summary()
		line := fmt.Sprintf("  %s %s (%d ok, %d failed, %d skipped)  %s",
			statusIcon(result.Status), result.Status,
			summary.Succeeded, summary.Failed, summary.Skipped,
			result.CompletedAt.Sub(result.StartedAt).Truncate(time.Millisecond))
		if result.Status == engine.RunCompleted {
			b.WriteString(okStyle.Render(line))
		} else {
			b.WriteString(failStyle.Render(line))
		}
	}

	b.WriteString("\n\n")
	b.WriteString(dimStyle.Render("  q: quit  ↑/↓: navigate"))
	return b.String()
}

// Result returns the run record; complete once the view reports done.
func (m Model) Result() *engine.RunResult {
	return m.stepper.Result()
}

func stepIcon(status string) string {
	switch status {
	case statePending:
		return "○"
	case string(engine.StepSuccess):
		return "✓"
	case string(engine.StepError):
		return "✗"
	case string(engine.StepSkipped):
		return "⊘"
	default:
		return "◉"
	}
}

func statusIcon(status engine.RunStatus) string {
	switch status {
	case engine.RunCompleted:
		return "✓"
	case engine.RunFailed:
		return "✗"
	default:
		return "!"
	}
}

// truncate trims a line to the given display width, accounting for
// wide runes.
func truncate(s string, max int) string {
	if max <= 0 || runewidth.StringWidth(s) <= max {
		return s
	}
	return runewidth.Truncate(s, max, "...")
}

// Package tui provides the terminal approval surface for escalation prompts.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/timer"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Jmi2020/KITT-sub006/internal/gate"
)

// approveModel is the bubbletea model for one escalation prompt. It shows
// the tier being requested, counts down the operator's window, and collects
// a yes/no answer with an optional note on denial.
type approveModel struct {
	prompt    gate.Prompt
	countdown timer.Model
	note      textinput.Model

	// noting is true once the operator pressed n and is typing a reason.
	noting bool

	answered  bool
	approved  bool
	timedOut  bool
	dismissed bool

	width int

	titleStyle  lipgloss.Style
	headerStyle lipgloss.Style
	promptStyle lipgloss.Style
	detailStyle lipgloss.Style
	warnStyle   lipgloss.Style
}

func newApproveModel(prompt gate.Prompt) approveModel {
	ti := textinput.New()
	ti.Placeholder = "Reason for denial (optional), press Enter..."
	ti.CharLimit = 200
	ti.Width = 60

	return approveModel{
		prompt:    prompt,
		countdown: timer.NewWithInterval(prompt.Timeout, time.Second),
		note:      ti,
		width:     80,

		titleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			Background(lipgloss.Color("236")).
			Padding(0, 2),
		headerStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")).
			Bold(true),
		promptStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("11")).
			Bold(true),
		detailStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")),
		warnStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true),
	}
}

// Init starts the countdown.
func (m approveModel) Init() tea.Cmd {
	return m.countdown.Init()
}

// Update handles operator input and the countdown.
func (m approveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.dismissed = true
			return m, tea.Quit
		}

		if m.noting {
			if msg.String() == "enter" {
				m.answered = true
				m.approved = false
				return m, tea.Quit
			}
			var cmd tea.Cmd
			m.note, cmd = m.note.Update(msg)
			return m, cmd
		}

		switch msg.String() {
		case "y", "Y":
			m.answered = true
			m.approved = true
			return m, tea.Quit
		case "n", "N":
			m.noting = true
			return m, m.note.Focus()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case timer.TimeoutMsg:
		m.timedOut = true
		return m, tea.Quit

	case timer.StartStopMsg, timer.TickMsg:
		var cmd tea.Cmd
		m.countdown, cmd = m.countdown.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the escalation prompt.
func (m approveModel) View() string {
	var sb strings.Builder

	sb.WriteString(m.titleStyle.Render(" Escalation Approval Required "))
	sb.WriteString("\n\n")

	sb.WriteString(m.headerStyle.Render("Task: "))
	sb.WriteString(m.prompt.TaskID)
	sb.WriteString("\n")
	sb.WriteString(m.headerStyle.Render("Tier: "))
	sb.WriteString(string(m.prompt.Tier.ID))
	sb.WriteString("\n")
	sb.WriteString(m.headerStyle.Render("Estimated cost: "))
	sb.WriteString(fmt.Sprintf("$%.2f", m.prompt.Tier.EstimatedCostUSD))
	sb.WriteString("\n")

	if len(m.prompt.Tier.Capabilities) > 0 {
		caps := make([]string, len(m.prompt.Tier.Capabilities))
		for i, c := range m.prompt.Tier.Capabilities {
			caps[i] = string(c)
		}
		sb.WriteString(m.headerStyle.Render("Capabilities: "))
		sb.WriteString(strings.Join(caps, ", "))
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	remaining := m.countdown.Timeout.Round(time.Second)
	countdown := fmt.Sprintf("Auto-times out in %s", remaining)
	if remaining <= 10*time.Second {
		sb.WriteString(m.warnStyle.Render(countdown))
	} else {
		sb.WriteString(m.detailStyle.Render(countdown))
	}
	sb.WriteString("\n\n")

	if m.noting {
		sb.WriteString(m.promptStyle.Render("Denying. "))
		sb.WriteString(m.note.View())
	} else {
		sb.WriteString(m.promptStyle.Render("Approve escalation? [Y]es / [N]o"))
		sb.WriteString("\n")
		sb.WriteString(m.detailStyle.Render("(Esc dismisses the prompt)"))
	}

	return sb.String()
}

// TerminalSurface runs one bubbletea prompt per Ask call on the controlling
// terminal. It implements gate.Surface.
type TerminalSurface struct {
	// programOptions lets tests redirect input and output.
	programOptions []tea.ProgramOption
}

// NewTerminalSurface creates a surface using the process terminal.
func NewTerminalSurface(opts ...tea.ProgramOption) *TerminalSurface {
	return &TerminalSurface{programOptions: opts}
}

// Ask implements gate.Surface. The countdown inside the prompt mirrors the
// caller's timeout so the operator sees how long they have; whichever fires
// first wins.
func (s *TerminalSurface) Ask(ctx context.Context, prompt gate.Prompt) (gate.Response, error) {
	program := tea.NewProgram(newApproveModel(prompt), s.programOptions...)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			program.Quit()
		case <-done:
		}
	}()

	final, err := program.Run()
	if err != nil {
		return gate.Response{}, fmt.Errorf("run approval prompt: %w", err)
	}
	if ctx.Err() != nil {
		return gate.Response{}, ctx.Err()
	}

	m, ok := final.(approveModel)
	if !ok {
		return gate.Response{}, gate.ErrInputTerminated
	}
	switch {
	case m.timedOut:
		return gate.Response{}, gate.ErrPromptTimedOut
	case m.answered:
		return gate.Response{Approved: m.approved, Note: m.note.Value()}, nil
	default:
		return gate.Response{}, gate.ErrInputTerminated
	}
}

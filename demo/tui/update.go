package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case TickMsg:
		return m.handleTick()
	case StatusUpdateMsg:
		return m.handleStatus(msg)
	case SubmittedMsg:
		return m.handleSubmitted(msg)
	case RegeneratedMsg:
		return m.handleRegenerated(msg)
	}
	return m, nil
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "s", "S":
		if m.AssemblyID == "" && len(m.Request) > 0 {
			m.Notice = "Submitting..."
			return m, submitRequest(m.Client, m.Request)
		}
	case "left", "h":
		if m.Selected > 0 {
			m.Selected--
		}
	case "right", "l":
		if m.Status != nil && m.Selected < m.Status.Scenes-1 {
			m.Selected++
		}
	case "r", "R":
		if m.finished() {
			m.Notice = fmt.Sprintf("Regenerating scene %d...", m.Selected)
			return m, regenerateScene(m.Client, m.AssemblyID, m.Selected)
		}
	}
	return m, nil
}

// handleTick polls until the assembly reaches a terminal state
func (m Model) handleTick() (tea.Model, tea.Cmd) {
	if m.AssemblyID == "" {
		return m, tickCmd()
	}
	if m.Status != nil && m.Status.Status.IsTerminal() {
		return m, nil
	}
	return m, tea.Batch(pollStatus(m.Client, m.AssemblyID), tickCmd())
}

func (m Model) handleStatus(msg StatusUpdateMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.Connected = false
		m.Err = msg.Err
		return m, nil
	}
	m.Connected = true
	m.Err = nil
	m.Status = msg.Status
	return m, nil
}

func (m Model) handleSubmitted(msg SubmittedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.Err = msg.Err
		m.Notice = ""
		if msg.ID == "" {
			return m, nil
		}
	}
	m.AssemblyID = msg.ID
	m.Notice = "Submitted " + msg.ID
	return m, pollStatus(m.Client, m.AssemblyID)
}

func (m Model) handleRegenerated(msg RegeneratedMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Err != nil:
		m.Err = msg.Err
		m.Notice = ""
	case msg.Replaced:
		m.Notice = fmt.Sprintf("Scene %d has a new image", msg.Scene)
	default:
		m.Notice = fmt.Sprintf("Scene %d kept its image (regeneration failed)", msg.Scene)
	}
	return m, pollStatus(m.Client, m.AssemblyID)
}

func (m Model) finished() bool {
	return m.Status != nil && m.Status.Status.IsTerminal()
}

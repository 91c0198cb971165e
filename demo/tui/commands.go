package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// pollStatus creates a command to fetch the watched assembly's status
func pollStatus(client *AssemblyClient, id string) tea.Cmd {
	return func() tea.Msg {
		status, err := client.GetStatus(id)
		return StatusUpdateMsg{Status: status, Err: err}
	}
}

// submitRequest creates a command that submits the request file contents
func submitRequest(client *AssemblyClient, request []byte) tea.Cmd {
	return func() tea.Msg {
		id, err := client.Submit(request)
		return SubmittedMsg{ID: id, Err: err}
	}
}

// regenerateScene creates a command that regenerates a scene's first image
func regenerateScene(client *AssemblyClient, id string, scene int) tea.Cmd {
	return func() tea.Msg {
		replaced, err := client.Regenerate(id, scene)
		return RegeneratedMsg{Scene: scene, Replaced: replaced, Err: err}
	}
}

// tickCmd creates a command that ticks every 500ms for polling
func tickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}

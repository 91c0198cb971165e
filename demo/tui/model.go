package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"storyreel/types"

	tea "github.com/charmbracelet/bubbletea"
)

// Model watches one assembly (thin client over the HTTP API)
type Model struct {
	Client *AssemblyClient

	// Request is submitted with 's' when no assembly is watched yet
	Request []byte

	AssemblyID string
	Status     *types.StatusResponse
	Selected   int
	Notice     string
	Err        error
	Connected  bool
}

// NewModel creates a TUI model watching id. id may be empty when request is set.
func NewModel(baseURL, id string, request []byte) Model {
	return Model{
		Client:     NewAssemblyClient(baseURL),
		Request:    request,
		AssemblyID: id,
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	if m.AssemblyID == "" {
		return tickCmd()
	}
	return tea.Batch(pollStatus(m.Client, m.AssemblyID), tickCmd())
}

// statusText renders the one-line state summary
func (m Model) statusText() string {
	if m.AssemblyID == "" {
		if len(m.Request) == 0 {
			return ErrorStyle.Render("❌ Nothing to watch: pass -id or -request")
		}
		return HighlightStyle.Render("👋 Ready to submit!") + "\n\n" + InfoStyle.Render(TextSubmitInstruction)
	}
	if !m.Connected {
		return ErrorStyle.Render("❌ Not connected to the assembly service")
	}
	if m.Status == nil {
		return StatusStyle.Render("⏳ Waiting for status...")
	}

	switch m.Status.Status {
	case types.StatusPending:
		if m.Status.Error != "" {
			return ErrorStyle.Render("❌ Rejected: " + m.Status.Error)
		}
		return StatusStyle.Render("⏳ Pending...")
	case types.StatusProcessing:
		return StatusStyle.Render("🎬 Rendering...")
	case types.StatusCompleted:
		return HighlightStyle.Render("✅ COMPLETE")
	case types.StatusFailed:
		return ErrorStyle.Render(fmt.Sprintf("❌ Failed: %s", m.Status.Error))
	default:
		return ""
	}
}

// resultBox summarizes a finished assembly
func (m Model) resultBox() string {
	s := m.Status
	var b strings.Builder

	b.WriteString(HighlightStyle.Render(s.Title))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("Video: %s\n", StatusStyle.Render(filepath.Base(s.Output))))
	if s.OutputURI != "" {
		b.WriteString(fmt.Sprintf("Uploaded: %s\n", s.OutputURI))
	}
	b.WriteString(fmt.Sprintf("Scenes: %d\n", s.Scenes))
	if s.Missing > 0 {
		b.WriteString(ErrorStyle.Render(fmt.Sprintf("Placeholders: %d", s.Missing)))
		b.WriteString("\n")
	}
	return b.String()
}

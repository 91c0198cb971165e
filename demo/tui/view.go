package tui

import (
	"fmt"
	"strings"

	"storyreel/types"
)

// View implements tea.Model
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("🎬 Storyreel Assembly Watch"))
	b.WriteString("\n\n")

	b.WriteString(m.statusText())
	b.WriteString("\n\n")

	if m.AssemblyID != "" {
		b.WriteString(InfoStyle.Render("🆔 " + m.AssemblyID))
		b.WriteString("\n")
	}

	if m.Status != nil && m.Status.Scenes > 0 {
		b.WriteString(InfoStyle.Render(fmt.Sprintf("📊 Scenes: %d | Missing assets: %d", m.Status.Scenes, m.Status.Missing)))
		b.WriteString("\n")
		if m.finished() {
			b.WriteString(m.sceneStrip())
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if m.Status != nil && len(m.Status.Logs) > 0 {
		b.WriteString(InfoStyle.Render("📝 Recent Activity:"))
		b.WriteString("\n")
		logs := m.Status.Logs
		if len(logs) > 10 {
			logs = logs[len(logs)-10:]
		}
		for _, entry := range logs {
			line := fmt.Sprintf("   %s %s", entry.Timestamp.Format("15:04:05"), entry.Message)
			b.WriteString(InfoStyle.Render(line))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if m.Status != nil && m.Status.Status == types.StatusCompleted {
		b.WriteString(BoxStyle.Render(m.resultBox()))
		b.WriteString("\n\n")
	}

	if m.Notice != "" {
		b.WriteString(StatusStyle.Render(m.Notice))
		b.WriteString("\n")
	}
	if m.Err != nil {
		b.WriteString(ErrorStyle.Render("⚠️  " + m.Err.Error()))
		b.WriteString("\n")
	}

	switch {
	case m.AssemblyID == "":
		b.WriteString(InfoStyle.Render(TextFooterWaiting))
	case m.finished():
		b.WriteString(HighlightStyle.Render(TextFooterDone))
	default:
		b.WriteString(InfoStyle.Render(TextFooterRunning))
	}
	return b.String()
}

func (m Model) sceneStrip() string {
	parts := make([]string, m.Status.Scenes)
	for i := range parts {
		label := fmt.Sprintf("[%d]", i)
		if i == m.Selected {
			parts[i] = SelectedStyle.Render(label)
		} else {
			parts[i] = InfoStyle.Render(label)
		}
	}
	return "   " + strings.Join(parts, " ")
}

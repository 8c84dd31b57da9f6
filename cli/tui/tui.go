package tui

import (
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/reel/cli/reader"
)

// Run starts the inspect TUI and blocks until the user quits.
func Run(summary *reader.Summary, frames []reader.FrameItem) error {
	if summary == nil {
		return errors.New("TUI requires an artifact summary")
	}
	p := tea.NewProgram(NewInspectModel(summary, frames), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// RenderStatic renders the summary pane without a full TUI (for fallback
// when stdout is not a terminal).
func RenderStatic(summary *reader.Summary) string {
	model := NewInspectModel(summary, nil)
	model.width = 80
	model.height = 24
	return lipgloss.NewStyle().Padding(1, 2).Render(model.renderSummary())
}

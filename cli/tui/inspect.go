package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/reel/cli/reader"
)

type pane int

const (
	paneSummary pane = iota
	paneFrames
)

// InspectModel is a Bubble Tea model for the artifact inspect view.
type InspectModel struct {
	summary  *reader.Summary
	frames   []reader.FrameItem
	pane     pane
	offset   int
	width    int
	height   int
	quitting bool
}

// NewInspectModel creates a new inspect model.
func NewInspectModel(summary *reader.Summary, frames []reader.FrameItem) InspectModel {
	return InspectModel{summary: summary, frames: frames}
}

// Init implements tea.Model.
func (m InspectModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m InspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, keys.Toggle):
			if m.pane == paneSummary {
				m.pane = paneFrames
			} else {
				m.pane = paneSummary
			}
		case key.Matches(msg, keys.Down):
			if m.offset < len(m.frames)-1 {
				m.offset++
			}
		case key.Matches(msg, keys.Up):
			if m.offset > 0 {
				m.offset--
			}
		}
	}

	return m, nil
}

// View implements tea.Model.
func (m InspectModel) View() string {
	if m.quitting {
		return ""
	}

	var content string
	if m.pane == paneFrames {
		content = m.renderFrames()
	} else {
		content = m.renderSummary()
	}

	help := HelpStyle.Render("tab: frames/summary  j/k: scroll  q: quit")
	return content + "\n" + help
}

func (m InspectModel) renderSummary() string {
	s := m.summary
	if s == nil {
		return "No artifact loaded"
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Artifact " + s.Name))
	b.WriteString("\n\n")

	rows := [][2]string{
		{"Format", s.Format},
		{"Version", s.Version},
		{"Size", fmt.Sprintf("%d bytes", s.Bytes)},
		{"Geometry", fmt.Sprintf("%dx%d", s.Cols, s.Rows)},
		{"Duration", fmt.Sprintf("%d ms", s.DurationMs)},
		{"Pool", strings.Join(s.Pool.Declared, " ")},
	}
	for _, row := range rows {
		fmt.Fprintf(&b, "%s %s\n", LabelStyle.Render(row[0]+":"), ValueStyle.Render(row[1]))
	}
	b.WriteString("\n")

	boxes := []string{
		renderStatBox("Frames", s.Frames, highlightColor),
		renderStatBox("Keyframes", s.Keyframes, successColor),
		renderStatBox("Draws", s.Ops.Draw, primaryColor),
		renderStatBox("Copies", s.Ops.Copy, warningColor),
		renderStatBox("Pool names", s.Pool.Names, mutedColor),
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, boxes...))

	return BoxStyle.Render(b.String())
}

// visibleRows is the number of frame rows that fit the window.
func (m InspectModel) visibleRows() int {
	if m.height <= 8 {
		return 16
	}
	return m.height - 8
}

func (m InspectModel) renderFrames() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render(fmt.Sprintf("Frames (%d)", len(m.frames))))
	b.WriteString("\n\n")

	if len(m.frames) == 0 {
		b.WriteString(ValueStyle.Render("(no frames)"))
		return BoxStyle.Render(b.String())
	}

	fmt.Fprintf(&b, "%s\n", LabelStyle.Render(fmt.Sprintf("%6s %8s %4s %5s %6s", "#", "time", "kind", "ops", "chars")))
	end := min(m.offset+m.visibleRows(), len(m.frames))
	for _, f := range m.frames[m.offset:end] {
		kind, style := "f", ValueStyle
		if f.Key {
			kind, style = "k", KeyframeStyle
		}
		b.WriteString(style.Render(fmt.Sprintf("%6d %8d %4s %5d %6d", f.Index, f.Time, kind, f.Ops, f.Chars)))
		b.WriteString("\n")
	}

	return BoxStyle.Render(b.String())
}

func renderStatBox(label string, value int, color lipgloss.Color) string {
	boxStyle := StatBoxStyle.BorderForeground(color)

	valueStr := StatValueStyle.Foreground(color).Render(fmt.Sprintf("%d", value))
	labelStr := StatLabelStyle.Render(label)

	content := lipgloss.JoinVertical(lipgloss.Center, valueStr, labelStr)

	return boxStyle.Render(content)
}

// keyMap defines key bindings.
type keyMap struct {
	Quit   key.Binding
	Toggle key.Binding
	Up     key.Binding
	Down   key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Toggle: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "switch pane"),
	),
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k", "scroll up"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j", "scroll down"),
	),
}

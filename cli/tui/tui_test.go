package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pithecene-io/reel/cli/reader"
)

func testSummary() *reader.Summary {
	return &reader.Summary{
		Name:      "session.json",
		Format:    "json",
		Version:   "0.3.0",
		Cols:      80,
		Rows:      25,
		Frames:    3,
		Keyframes: 1,
		Ops:       reader.OpCounts{Total: 5, Draw: 2, SetCursor: 2, Copy: 1},
		Pool:      reader.PoolSummary{Names: 1, CodeBytes: 23, Declared: []string{"A"}},
	}
}

func testFrames() []reader.FrameItem {
	return []reader.FrameItem{
		{Index: 0, Time: 33, Key: true, Ops: 2, Draws: 1, Chars: 5},
		{Index: 1, Time: 73, Ops: 3, Draws: 1, Chars: 2},
		{Index: 2, Time: 107},
	}
}

func press(m InspectModel, msg tea.KeyMsg) InspectModel {
	next, _ := m.Update(msg)
	return next.(InspectModel)
}

func TestInspectModel_SummaryView(t *testing.T) {
	m := NewInspectModel(testSummary(), testFrames())
	view := m.View()
	for _, want := range []string{"session.json", "80x25", "Keyframes", "Pool names"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q", want)
		}
	}
}

func TestInspectModel_TogglePane(t *testing.T) {
	m := NewInspectModel(testSummary(), testFrames())

	m = press(m, tea.KeyMsg{Type: tea.KeyTab})
	if m.pane != paneFrames {
		t.Fatalf("pane = %v, want paneFrames", m.pane)
	}
	if view := m.View(); !strings.Contains(view, "Frames (3)") {
		t.Errorf("frames view missing title: %s", view)
	}

	m = press(m, tea.KeyMsg{Type: tea.KeyTab})
	if m.pane != paneSummary {
		t.Errorf("pane = %v, want paneSummary", m.pane)
	}
}

func TestInspectModel_ScrollBounds(t *testing.T) {
	m := NewInspectModel(testSummary(), testFrames())
	down := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}}
	up := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'k'}}

	m = press(m, up)
	if m.offset != 0 {
		t.Errorf("offset = %d after scrolling up at top, want 0", m.offset)
	}
	for range 5 {
		m = press(m, down)
	}
	if m.offset != 2 {
		t.Errorf("offset = %d, want 2 (last frame)", m.offset)
	}
}

func TestInspectModel_Quit(t *testing.T) {
	m := NewInspectModel(testSummary(), nil)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if view := next.(InspectModel).View(); view != "" {
		t.Errorf("View() after quit = %q, want empty", view)
	}
}

func TestInspectModel_EmptyFrames(t *testing.T) {
	m := NewInspectModel(testSummary(), nil)
	m = press(m, tea.KeyMsg{Type: tea.KeyTab})
	if view := m.View(); !strings.Contains(view, "(no frames)") {
		t.Errorf("View() = %q, want no-frames placeholder", view)
	}
}

func TestRun_RequiresSummary(t *testing.T) {
	if err := Run(nil, nil); err == nil {
		t.Error("expected error for nil summary")
	}
}

func TestRenderStatic(t *testing.T) {
	out := RenderStatic(testSummary())
	if !strings.Contains(out, "session.json") {
		t.Errorf("RenderStatic() missing artifact name: %s", out)
	}
}

// Package emulator interprets terminal output into screen snapshots.
package emulator

import (
	"fmt"
	"io"

	"github.com/hinshun/vt10x"

	"github.com/pithecene-io/reel/types"
)

// Emulator consumes decoded terminal text and exposes the resulting screen.
type Emulator interface {
	// Write feeds text to the terminal state machine.
	Write(text string) error
	// Snapshot returns a deep copy of the current screen.
	Snapshot() *types.Screen
}

// Factory creates an emulator of the given geometry.
type Factory func(cols, rows int) (Emulator, error)

// VT is an Emulator backed by vt10x.
type VT struct {
	term vt10x.Terminal
	cols int
	rows int
}

// NewVT creates a vt10x-backed emulator. Terminal replies (device status
// reports and the like) are discarded.
func NewVT(cols, rows int) (*VT, error) {
	if cols <= 0 || rows <= 0 {
		return nil, fmt.Errorf("invalid terminal size %dx%d", cols, rows)
	}
	term := vt10x.New(vt10x.WithSize(cols, rows), vt10x.WithWriter(io.Discard))
	return &VT{term: term, cols: cols, rows: rows}, nil
}

// VTFactory is a Factory for NewVT.
func VTFactory(cols, rows int) (Emulator, error) {
	return NewVT(cols, rows)
}

// Write implements Emulator.
func (v *VT) Write(text string) error {
	if text == "" {
		return nil
	}
	// terminal.Write takes the state lock itself.
	if _, err := v.term.Write([]byte(text)); err != nil {
		return fmt.Errorf("emulator write: %w", err)
	}
	return nil
}

// Snapshot implements Emulator.
// Cell and Cursor read without locking, so the snapshot holds the lock.
func (v *VT) Snapshot() *types.Screen {
	v.term.Lock()
	defer v.term.Unlock()

	s := types.NewScreen(v.cols, v.rows)
	for y := range v.rows {
		row := s.Cells[y]
		for x := range v.cols {
			row[x] = cellOf(v.term.Cell(x, y))
		}
	}

	cur := v.term.Cursor()
	s.Cursor = types.Cursor{Row: clamp(cur.Y, v.rows), Col: clamp(cur.X, v.cols)}
	s.CursorVisible = v.term.CursorVisible()
	return s
}

func cellOf(g vt10x.Glyph) types.Cell {
	ch := g.Char
	if ch == 0 {
		ch = ' '
	}
	return types.Cell{
		Char: ch,
		Attr: types.Attr{
			FG:   color(g.FG, vt10x.DefaultFG),
			BG:   color(g.BG, vt10x.DefaultBG),
			Mode: int(g.Mode),
		},
	}
}

func color(c, def vt10x.Color) int {
	if c == def || c == vt10x.DefaultFG || c == vt10x.DefaultBG {
		return types.DefaultColor
	}
	return int(c)
}

// clamp keeps a pending-wrap cursor (col == cols) on screen.
func clamp(v, n int) int {
	if v >= n {
		return n - 1
	}
	if v < 0 {
		return 0
	}
	return v
}

package types

// DefaultColor marks a cell colour left at the terminal default.
const DefaultColor = -1

// Attr is the rendition of a cell. It is one of the two operand kinds the
// literal pool deduplicates, so its JSON form is its canonical form.
type Attr struct {
	FG   int `json:"fg" msgpack:"fg"`
	BG   int `json:"bg" msgpack:"bg"`
	Mode int `json:"m" msgpack:"m"`
}

// DefaultAttr is the rendition of a blank cell.
var DefaultAttr = Attr{FG: DefaultColor, BG: DefaultColor}

// Cell is one character position on the screen.
type Cell struct {
	Char rune
	Attr Attr
}

// IsBlank reports whether the cell is indistinguishable from a cleared one.
func (c Cell) IsBlank() bool {
	return (c.Char == ' ' || c.Char == 0) && c.Attr == DefaultAttr
}

// Cursor is a zero-based screen position.
type Cursor struct {
	Row int
	Col int
}

// Screen is a snapshot of the logical terminal display. Snapshots own
// their cells; the emulator may keep mutating after handing one out.
type Screen struct {
	Cols          int
	Rows          int
	Cells         [][]Cell
	Cursor        Cursor
	CursorVisible bool
}

// NewScreen returns a cleared screen of the given geometry with the
// cursor at the origin.
func NewScreen(cols, rows int) *Screen {
	s := &Screen{Cols: cols, Rows: rows, CursorVisible: true}
	s.Cells = make([][]Cell, rows)
	for y := range s.Cells {
		row := make([]Cell, cols)
		for x := range row {
			row[x] = Cell{Char: ' ', Attr: DefaultAttr}
		}
		s.Cells[y] = row
	}
	return s
}

// Clone returns a deep copy of the screen.
func (s *Screen) Clone() *Screen {
	c := *s
	c.Cells = make([][]Cell, len(s.Cells))
	for y, row := range s.Cells {
		c.Cells[y] = append([]Cell(nil), row...)
	}
	return &c
}

// RowEqual reports whether row a of s and row b of o hold the same cells.
func (s *Screen) RowEqual(a int, o *Screen, b int) bool {
	ra, rb := s.Cells[a], o.Cells[b]
	if len(ra) != len(rb) {
		return false
	}
	for i := range ra {
		if ra[i] != rb[i] {
			return false
		}
	}
	return true
}

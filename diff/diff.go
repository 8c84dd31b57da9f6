// Package diff computes the screen operations that turn one snapshot into
// another.
//
// Operations come out in playback order:
//  1. at most one Copy, when most of the screen scrolled
//  2. Draw runs, row-major, each of a single rendition
//  3. SetCursor, when the cursor moved
package diff

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pithecene-io/reel/types"
)

// Defaults for New.
const (
	DefaultMinCopyRows = 2
	DefaultMergeGap    = 3
)

// ErrGeometry is returned when two snapshots differ in size.
var ErrGeometry = errors.New("screen geometry mismatch")

// Differ produces the operations from prior to current. A nil prior means
// a blank screen of current's geometry with the cursor unknown.
type Differ interface {
	Diff(prior, current *types.Screen) ([]types.Operation, error)
}

// Engine is the cell-level Differ. It is stateless; the zero value never
// detects scrolls and never bridges gaps.
type Engine struct {
	// MinCopyRows is how many more rows a vertical shift must match than
	// the unshifted screen before a Copy is emitted. <= 0 disables scroll
	// detection.
	MinCopyRows int
	// MergeGap is the longest run of unchanged cells redrawn to join two
	// changed spans on a row.
	MergeGap int
}

// New returns an engine with the default tuning.
func New() *Engine {
	return &Engine{MinCopyRows: DefaultMinCopyRows, MergeGap: DefaultMergeGap}
}

// Diff implements Differ.
func (e *Engine) Diff(prior, current *types.Screen) ([]types.Operation, error) {
	if current == nil {
		return nil, errors.New("current snapshot is nil")
	}
	ops := []types.Operation{}

	if prior == nil {
		base := types.NewScreen(current.Cols, current.Rows)
		ops = e.drawRows(ops, base, current)
		return append(ops, types.SetCursor(current.Cursor.Row, current.Cursor.Col)), nil
	}

	if prior.Cols != current.Cols || prior.Rows != current.Rows {
		return nil, fmt.Errorf("%w: prior %dx%d, current %dx%d",
			ErrGeometry, prior.Cols, prior.Rows, current.Cols, current.Rows)
	}

	base := prior
	if dest, src, ok := e.detectScroll(prior, current); ok {
		ops = append(ops, types.Copy(dest, src))
		base = applyCopy(prior, dest, src)
	}

	ops = e.drawRows(ops, base, current)
	if current.Cursor != prior.Cursor {
		ops = append(ops, types.SetCursor(current.Cursor.Row, current.Cursor.Col))
	}
	return ops, nil
}

// detectScroll finds the vertical shift k (current row y == prior row y+k)
// that matches the most non-blank rows. Ties go to the smaller |k|, then to
// upward scrolls.
func (e *Engine) detectScroll(prior, current *types.Screen) (dest, src types.Range, ok bool) {
	if e.MinCopyRows <= 0 || current.Rows < 2 {
		return dest, src, false
	}
	blank := make([]bool, current.Rows)
	for y := range blank {
		blank[y] = rowBlank(current.Cells[y])
	}

	matches := func(k int) int {
		n := 0
		for y := range current.Rows {
			py := y + k
			if py < 0 || py >= prior.Rows || blank[y] {
				continue
			}
			if current.RowEqual(y, prior, py) {
				n++
			}
		}
		return n
	}

	inPlace := matches(0)
	bestK, best := 0, inPlace
	for d := 1; d < current.Rows; d++ {
		for _, k := range [2]int{d, -d} {
			if m := matches(k); m > best {
				bestK, best = k, m
			}
		}
	}
	if bestK == 0 || best-inPlace < e.MinCopyRows {
		return dest, src, false
	}

	n := current.Rows
	if bestK > 0 {
		return types.Range{Start: 0, End: n - bestK}, types.Range{Start: bestK, End: n}, true
	}
	return types.Range{Start: -bestK, End: n}, types.Range{Start: 0, End: n + bestK}, true
}

// applyCopy returns prior with rows src copied onto rows dest, the way the
// player applies a copy op.
func applyCopy(prior *types.Screen, dest, src types.Range) *types.Screen {
	out := prior.Clone()
	for i := range dest.Len() {
		out.Cells[dest.Start+i] = append([]types.Cell(nil), prior.Cells[src.Start+i]...)
	}
	return out
}

func (e *Engine) drawRows(ops []types.Operation, base, current *types.Screen) []types.Operation {
	for y := range current.Rows {
		ops = e.drawRow(ops, y, base.Cells[y], current.Cells[y])
	}
	return ops
}

// drawRow emits Draw ops for the cells of cur that differ from old.
func (e *Engine) drawRow(ops []types.Operation, row int, old, cur []types.Cell) []types.Operation {
	gap := max(e.MergeGap, 0)
	x := 0
	for x < len(cur) {
		if cur[x] == old[x] {
			x++
			continue
		}
		start, end := x, x+1
		for i := end; i < len(cur); i++ {
			if cur[i] != old[i] {
				if i-end <= gap {
					end = i + 1
				} else {
					break
				}
			}
		}
		ops = splitRuns(ops, row, start, cur[start:end])
		x = end
	}
	return ops
}

// splitRuns emits one Draw per maximal run of equal rendition.
func splitRuns(ops []types.Operation, row, col int, cells []types.Cell) []types.Operation {
	var sb strings.Builder
	for i := 0; i < len(cells); {
		attr := cells[i].Attr
		sb.Reset()
		j := i
		for ; j < len(cells) && cells[j].Attr == attr; j++ {
			sb.WriteRune(cells[j].Char)
		}
		ops = append(ops, types.Draw(row, col+i, sb.String(), attr))
		i = j
	}
	return ops
}

func rowBlank(row []types.Cell) bool {
	for _, c := range row {
		if !c.IsBlank() {
			return false
		}
	}
	return true
}

var _ Differ = (*Engine)(nil)

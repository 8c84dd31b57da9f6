package reader

import (
	"github.com/pithecene-io/reel/types"
)

// Summary is the inspect view of one artifact.
type Summary struct {
	Name       string      `json:"name" yaml:"name"`
	Format     string      `json:"format" yaml:"format"`
	Version    string      `json:"version" yaml:"version"`
	Bytes      int         `json:"bytes" yaml:"bytes"`
	Cols       int         `json:"cols" yaml:"cols"`
	Rows       int         `json:"rows" yaml:"rows"`
	Frames     int         `json:"frames" yaml:"frames"`
	Keyframes  int         `json:"keyframes" yaml:"keyframes"`
	DurationMs int64       `json:"duration_ms" yaml:"duration_ms"`
	Ops        OpCounts    `json:"ops" yaml:"ops"`
	Pool       PoolSummary `json:"pool" yaml:"pool"`
}

// OpCounts tallies operations by kind across all frames.
type OpCounts struct {
	Total     int `json:"total" yaml:"total"`
	Draw      int `json:"draw" yaml:"draw"`
	SetCursor int `json:"set_cursor" yaml:"set_cursor"`
	Copy      int `json:"copy" yaml:"copy"`
}

// PoolSummary describes the accepted literal pool.
type PoolSummary struct {
	Names     int      `json:"names" yaml:"names"`
	CodeBytes int      `json:"code_bytes" yaml:"code_bytes"`
	Declared  []string `json:"declared" yaml:"declared"`
}

// FrameItem is one row of the frame listing.
type FrameItem struct {
	Index int   `json:"index" yaml:"index"`
	Time  int64 `json:"time" yaml:"time"`
	Key   bool  `json:"key" yaml:"key"`
	Ops   int   `json:"ops" yaml:"ops"`
	Draws int   `json:"draws" yaml:"draws"`
	Chars int   `json:"chars" yaml:"chars"`
}

// Summarize computes the inspect summary of a.
func Summarize(a *Artifact) *Summary {
	doc := a.Document
	s := &Summary{
		Name:    a.Name,
		Format:  string(a.Format),
		Version: doc.Version,
		Bytes:   a.Size,
		Cols:    doc.Cols,
		Rows:    doc.Rows,
		Frames:  len(doc.Frames),
	}

	for _, f := range doc.Frames {
		if f.Key {
			s.Keyframes++
		}
		for _, op := range f.Ops {
			s.Ops.Total++
			switch op.Kind {
			case types.OpDraw:
				s.Ops.Draw++
			case types.OpSetCursor:
				s.Ops.SetCursor++
			case types.OpCopy:
				s.Ops.Copy++
			}
		}
	}
	if n := len(doc.Frames); n > 0 {
		s.DurationMs = doc.Frames[n-1].Time
	}

	s.Pool.Names = len(doc.Pool)
	s.Pool.Declared = make([]string, len(doc.Pool))
	for i, d := range doc.Pool {
		s.Pool.Declared[i] = d.Name
		s.Pool.CodeBytes += len(d.Code)
	}
	return s
}

// ListFrames returns one row per frame. limit <= 0 lists all frames.
func ListFrames(a *Artifact, limit int) []FrameItem {
	frames := a.Document.Frames
	if limit > 0 && limit < len(frames) {
		frames = frames[:limit]
	}

	items := make([]FrameItem, len(frames))
	for i, f := range frames {
		item := FrameItem{Index: i, Time: f.Time, Key: f.Key, Ops: len(f.Ops)}
		for _, op := range f.Ops {
			if op.Kind == types.OpDraw {
				item.Draws++
				item.Chars += len([]rune(op.Text))
			}
		}
		items[i] = item
	}
	return items
}

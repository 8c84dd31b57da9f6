// Package emit renders frames and the literal pool into an artifact.
//
// The js format is a self-invoking script. Accepted pool names are its
// parameters, bound to their codes, and its body hands the frame list to
// a player-supplied loadFrames:
//
//	;(function(A,B){function k(t,o){...}...loadFrames(
//	[k(33,[d(0,0,A,B),c(0,1)])
//	,f(67,[...])])})(
//	 "text"
//	,{"fg":-1,"bg":-1,"m":0})
//
// The json and msgpack formats carry the same Document un-substituted, for
// tooling (reel inspect).
package emit

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/pithecene-io/reel/pool"
	"github.com/pithecene-io/reel/types"
)

// Format selects the artifact encoding.
type Format string

const (
	// FormatJS is the loader script.
	FormatJS Format = "js"
	// FormatJSON is the Document as JSON.
	FormatJSON Format = "json"
	// FormatMsgpack is the Document as msgpack.
	FormatMsgpack Format = "msgpack"
)

// ErrUnknownFormat is returned for unsupported format names.
var ErrUnknownFormat = errors.New("unknown output format")

// ParseFormat validates a format name. Empty selects FormatJS.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case "", FormatJS:
		return FormatJS, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatMsgpack, "mp":
		return FormatMsgpack, nil
	default:
		return "", fmt.Errorf("%w: %q (want js, json or msgpack)", ErrUnknownFormat, s)
	}
}

// Ext returns the file extension for the format, without the dot.
func (f Format) Ext() string {
	if f == FormatMsgpack {
		return "msgpack"
	}
	return string(f)
}

// Document is the structured form of an artifact.
type Document struct {
	Version string             `json:"version" msgpack:"version"`
	Cols    int                `json:"cols" msgpack:"cols"`
	Rows    int                `json:"rows" msgpack:"rows"`
	Frames  []types.Frame      `json:"frames" msgpack:"frames"`
	Pool    []pool.Declaration `json:"pool" msgpack:"pool"`
}

// NewDocument assembles a document from a run's frames and frozen pool.
func NewDocument(cols, rows int, frames []types.Frame, p *pool.Pool) *Document {
	decls := p.Declarations()
	if decls == nil {
		decls = []pool.Declaration{}
	}
	if frames == nil {
		frames = []types.Frame{}
	}
	return &Document{
		Version: types.DocumentVersion,
		Cols:    cols,
		Rows:    rows,
		Frames:  frames,
		Pool:    decls,
	}
}

// Options control Encode.
type Options struct {
	// Gzip compresses the encoded artifact.
	Gzip bool
}

// Encode renders doc into memory.
func Encode(doc *Document, format Format, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	var w io.Writer = &buf
	var zw *gzip.Writer
	if opts.Gzip {
		zw = gzip.NewWriter(&buf)
		w = zw
	}
	if err := Emit(w, doc, format); err != nil {
		return nil, err
	}
	if zw != nil {
		if err := zw.Close(); err != nil {
			return nil, fmt.Errorf("gzip artifact: %w", err)
		}
	}
	return buf.Bytes(), nil
}

// Emit writes doc to w in the given format.
func Emit(w io.Writer, doc *Document, format Format) error {
	switch format {
	case FormatJS:
		return emitJS(w, doc)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode json document: %w", err)
		}
		return nil
	case FormatMsgpack:
		if err := msgpack.NewEncoder(w).Encode(doc); err != nil {
			return fmt.Errorf("encode msgpack document: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

const loaderHelpers = "function k(t,o){return {key:true,time:t,ops:o}}" +
	"function f(t,o){return {key:false,time:t,ops:o}}" +
	"function d(r,c,t,a){return [\"draw\",r,c,t,a]}" +
	"function c(r,c){return [\"setCursor\",r,c]}" +
	"function p(t,s){return [\"copy\",t,s]}"

func emitJS(w io.Writer, doc *Document) error {
	params := make([]string, len(doc.Pool))
	data := make([]string, len(doc.Pool))
	for i, d := range doc.Pool {
		params[i] = d.Name
		data[i] = d.Code
	}
	get := pool.FromDeclarations(doc.Pool).Lookup

	bw := bufio.NewWriter(w)
	bw.WriteString(";(function(")
	bw.WriteString(strings.Join(params, ","))
	bw.WriteString("){")
	bw.WriteString(loaderHelpers)
	bw.WriteString("loadFrames(\n[")
	for i, frame := range doc.Frames {
		if i > 0 {
			bw.WriteString("\n,")
		}
		if err := writeFrame(bw, frame, get); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
	}
	bw.WriteString("])})(\n ")
	bw.WriteString(strings.Join(data, "\n,"))
	bw.WriteString(")")
	return bw.Flush()
}

func writeFrame(bw *bufio.Writer, frame types.Frame, get func(any) (string, error)) error {
	if frame.Key {
		bw.WriteString("k(")
	} else {
		bw.WriteString("f(")
	}
	bw.WriteString(strconv.FormatInt(frame.Time, 10))
	bw.WriteString(",[")
	for i, op := range frame.Ops {
		if i > 0 {
			bw.WriteByte(',')
		}
		switch op.Kind {
		case types.OpDraw:
			text, err := get(op.Text)
			if err != nil {
				return err
			}
			attr, err := get(op.Attr)
			if err != nil {
				return err
			}
			fmt.Fprintf(bw, "d(%d,%d,%s,%s)", op.Row, op.Col, text, attr)
		case types.OpSetCursor:
			fmt.Fprintf(bw, "c(%d,%d)", op.Row, op.Col)
		case types.OpCopy:
			fmt.Fprintf(bw, "p([%d,%d],[%d,%d])", op.Dest.Start, op.Dest.End, op.Src.Start, op.Src.End)
		default:
			return fmt.Errorf("unknown operation kind %q", op.Kind)
		}
	}
	bw.WriteString("])")
	return nil
}

var gzipMagic = []byte{0x1f, 0x8b}

// Decode reads a json or msgpack Document, inflating gzip first. The
// format is sniffed: JSON documents start with '{'.
func Decode(data []byte) (*Document, Format, error) {
	if bytes.HasPrefix(data, gzipMagic) {
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, "", fmt.Errorf("open gzip artifact: %w", err)
		}
		inflated, err := io.ReadAll(zr)
		_ = zr.Close()
		if err != nil {
			return nil, "", fmt.Errorf("inflate artifact: %w", err)
		}
		data = inflated
	}

	var doc Document
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	switch {
	case len(trimmed) == 0:
		return nil, "", errors.New("empty artifact")
	case trimmed[0] == '{':
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return nil, "", fmt.Errorf("decode json document: %w", err)
		}
		return &doc, FormatJSON, nil
	case trimmed[0] == ';':
		return nil, FormatJS, errors.New("js artifacts are scripts and cannot be inspected; re-run with --format json or msgpack")
	default:
		if err := msgpack.Unmarshal(data, &doc); err != nil {
			return nil, "", fmt.Errorf("decode msgpack document: %w", err)
		}
		return &doc, FormatMsgpack, nil
	}
}

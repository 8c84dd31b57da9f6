package types

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// OpKind discriminates screen operations. The values are the op tags the
// playback loader understands.
type OpKind string

const (
	// OpDraw writes a run of equally styled text at a position.
	OpDraw OpKind = "draw"
	// OpSetCursor moves the cursor.
	OpSetCursor OpKind = "setCursor"
	// OpCopy copies a block of rows onto another block (a scroll).
	OpCopy OpKind = "copy"
)

// Range is a half-open row interval [Start, End).
type Range struct {
	Start int
	End   int
}

// Len returns the number of rows in the range.
func (r Range) Len() int { return r.End - r.Start }

// Operation is one screen mutation. Only the fields of its Kind are set:
//   - OpDraw: Row, Col, Text, Attr
//   - OpSetCursor: Row, Col
//   - OpCopy: Dest, Src
//
// Operations encode as the loader's positional arrays in both JSON and
// msgpack, e.g. ["draw",0,4,"text",{"fg":-1,"bg":-1,"m":0}].
type Operation struct {
	Kind OpKind
	Row  int
	Col  int
	Text string
	Attr Attr
	Dest Range
	Src  Range
}

// Draw returns a draw operation.
func Draw(row, col int, text string, attr Attr) Operation {
	return Operation{Kind: OpDraw, Row: row, Col: col, Text: text, Attr: attr}
}

// SetCursor returns a cursor move operation.
func SetCursor(row, col int) Operation {
	return Operation{Kind: OpSetCursor, Row: row, Col: col}
}

// Copy returns a row block copy operation.
func Copy(dest, src Range) Operation {
	return Operation{Kind: OpCopy, Dest: dest, Src: src}
}

var errOpShape = errors.New("malformed operation")

// MarshalJSON implements json.Marshaler.
func (o Operation) MarshalJSON() ([]byte, error) {
	switch o.Kind {
	case OpDraw:
		return json.Marshal([]any{o.Kind, o.Row, o.Col, o.Text, o.Attr})
	case OpSetCursor:
		return json.Marshal([]any{o.Kind, o.Row, o.Col})
	case OpCopy:
		return json.Marshal([]any{o.Kind, o.Dest, o.Src})
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", errOpShape, o.Kind)
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *Operation) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return err
	}
	if len(parts) == 0 {
		return errOpShape
	}
	var kind OpKind
	if err := json.Unmarshal(parts[0], &kind); err != nil {
		return err
	}

	var fields []any
	switch kind {
	case OpDraw:
		fields = []any{&o.Row, &o.Col, &o.Text, &o.Attr}
	case OpSetCursor:
		fields = []any{&o.Row, &o.Col}
	case OpCopy:
		fields = []any{&o.Dest, &o.Src}
	default:
		return fmt.Errorf("%w: unknown kind %q", errOpShape, kind)
	}
	if len(parts) != len(fields)+1 {
		return fmt.Errorf("%w: %s takes %d operands, got %d", errOpShape, kind, len(fields), len(parts)-1)
	}
	o.Kind = kind
	for i, f := range fields {
		if err := json.Unmarshal(parts[i+1], f); err != nil {
			return fmt.Errorf("%s operand %d: %w", kind, i, err)
		}
	}
	return nil
}

// MarshalJSON encodes a range as [start,end].
func (r Range) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{r.Start, r.End})
}

// UnmarshalJSON decodes a [start,end] pair.
func (r *Range) UnmarshalJSON(data []byte) error {
	var pair [2]int
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	r.Start, r.End = pair[0], pair[1]
	return nil
}

// EncodeMsgpack implements msgpack.CustomEncoder.
func (o Operation) EncodeMsgpack(enc *msgpack.Encoder) error {
	var operands []any
	switch o.Kind {
	case OpDraw:
		operands = []any{o.Row, o.Col, o.Text, o.Attr}
	case OpSetCursor:
		operands = []any{o.Row, o.Col}
	case OpCopy:
		operands = []any{[2]int{o.Dest.Start, o.Dest.End}, [2]int{o.Src.Start, o.Src.End}}
	default:
		return fmt.Errorf("%w: unknown kind %q", errOpShape, o.Kind)
	}
	if err := enc.EncodeArrayLen(len(operands) + 1); err != nil {
		return err
	}
	if err := enc.EncodeString(string(o.Kind)); err != nil {
		return err
	}
	for _, v := range operands {
		if err := enc.Encode(v); err != nil {
			return err
		}
	}
	return nil
}

// DecodeMsgpack implements msgpack.CustomDecoder.
func (o *Operation) DecodeMsgpack(dec *msgpack.Decoder) error {
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return err
	}
	if n < 1 {
		return errOpShape
	}
	kind, err := dec.DecodeString()
	if err != nil {
		return err
	}

	o.Kind = OpKind(kind)
	switch o.Kind {
	case OpDraw:
		if n != 5 {
			return fmt.Errorf("%w: draw takes 4 operands, got %d", errOpShape, n-1)
		}
		if o.Row, err = dec.DecodeInt(); err != nil {
			return err
		}
		if o.Col, err = dec.DecodeInt(); err != nil {
			return err
		}
		if o.Text, err = dec.DecodeString(); err != nil {
			return err
		}
		return dec.Decode(&o.Attr)
	case OpSetCursor:
		if n != 3 {
			return fmt.Errorf("%w: setCursor takes 2 operands, got %d", errOpShape, n-1)
		}
		if o.Row, err = dec.DecodeInt(); err != nil {
			return err
		}
		o.Col, err = dec.DecodeInt()
		return err
	case OpCopy:
		if n != 3 {
			return fmt.Errorf("%w: copy takes 2 operands, got %d", errOpShape, n-1)
		}
		var dest, src [2]int
		if err := dec.Decode(&dest); err != nil {
			return err
		}
		if err := dec.Decode(&src); err != nil {
			return err
		}
		o.Dest = Range{Start: dest[0], End: dest[1]}
		o.Src = Range{Start: src[0], End: src[1]}
		return nil
	default:
		return fmt.Errorf("%w: unknown kind %q", errOpShape, kind)
	}
}

// Frame is one materialized output sample: either a full baseline
// (keyframe) or a delta from the previous frame.
type Frame struct {
	Key  bool        `json:"key" msgpack:"key"`
	Time int64       `json:"time" msgpack:"time"`
	Ops  []Operation `json:"ops" msgpack:"ops"`
}

var (
	_ json.Marshaler        = Operation{}
	_ json.Unmarshaler      = (*Operation)(nil)
	_ msgpack.CustomEncoder = Operation{}
	_ msgpack.CustomDecoder = (*Operation)(nil)
)

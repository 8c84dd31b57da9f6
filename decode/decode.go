// Package decode turns raw terminal output into text without splitting
// multi-byte characters across writes.
package decode

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DefaultEncoding is the label used when none is given.
const DefaultEncoding = "utf-8"

// ErrUnknownEncoding is returned by New for labels htmlindex does not know.
var ErrUnknownEncoding = errors.New("unknown text encoding")

// Decoder is a stateful streaming decoder. An incomplete trailing sequence
// is held back until the next Write. Invalid bytes decode to U+FFFD.
//
// A Decoder is not safe for concurrent use.
type Decoder struct {
	label   string
	t       transform.Transformer
	pending []byte
	dst     []byte
}

// New returns a decoder for a WHATWG encoding label ("utf-8", "latin1",
// "shift_jis", ...). An empty label selects UTF-8.
func New(label string) (*Decoder, error) {
	if label == "" {
		label = DefaultEncoding
	}
	enc, err := lookup(label)
	if err != nil {
		return nil, err
	}
	name, err := htmlindex.Name(enc)
	if err != nil {
		name = label
	}
	t := enc.NewDecoder()
	t.Reset()
	return &Decoder{label: name, t: t}, nil
}

func lookup(label string) (encoding.Encoding, error) {
	if strings.EqualFold(label, DefaultEncoding) || strings.EqualFold(label, "utf8") {
		return unicode.UTF8, nil
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, label)
	}
	return enc, nil
}

// Valid reports whether label names a supported encoding.
func Valid(label string) bool {
	if label == "" {
		return true
	}
	_, err := lookup(label)
	return err == nil
}

// Encoding returns the canonical name of the decoder's encoding.
func (d *Decoder) Encoding() string { return d.label }

// Write decodes p, prefixed by any bytes held back by the previous call,
// and returns the complete characters.
func (d *Decoder) Write(p []byte) string {
	src := p
	if len(d.pending) > 0 {
		src = append(d.pending, p...)
		d.pending = nil
	}

	var out strings.Builder
	for len(src) > 0 {
		if need := len(src)*utf8.UTFMax + utf8.UTFMax; len(d.dst) < need {
			d.dst = make([]byte, need)
		}
		nDst, nSrc, err := d.t.Transform(d.dst, src, false)
		out.Write(d.dst[:nDst])
		src = src[nSrc:]

		switch {
		case err == nil:
			return out.String()
		case errors.Is(err, transform.ErrShortSrc):
			d.pending = append([]byte(nil), src...)
			return out.String()
		case errors.Is(err, transform.ErrShortDst):
			if nSrc == 0 && nDst == 0 {
				d.dst = make([]byte, 2*len(d.dst))
			}
		default:
			// Unrecoverable input for this transformer: substitute and move on.
			out.WriteRune(utf8.RuneError)
			src = src[1:]
			d.t.Reset()
		}
	}
	return out.String()
}

// Pending returns the number of bytes held back for the next Write.
func (d *Decoder) Pending() int { return len(d.pending) }

// Drop discards held-back bytes and returns how many there were. Called at
// end of stream, where an incomplete sequence is never emitted.
func (d *Decoder) Drop() int {
	n := len(d.pending)
	d.pending = nil
	d.t.Reset()
	return n
}

// Package ttyrec parses ttyrec capture streams.
//
// A capture is a flat sequence of records with no file header:
//
//	+-----------+------------+-----------+-------------+
//	| sec u32LE | usec u32LE | len u32LE | payload ... |
//	+-----------+------------+-----------+-------------+
//
// Each record becomes one types.Chunk in file order. Timestamps are not
// re-sorted.
package ttyrec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"

	"github.com/pithecene-io/reel/types"
)

// HeaderSize is the size of a record header in bytes.
const HeaderSize = 12

// ErrMalformedRecord matches every *RecordError through errors.Is.
var ErrMalformedRecord = errors.New("malformed capture record")

// RecordErrorKind classifies record decoding errors.
type RecordErrorKind int

const (
	// RecordErrorHeader indicates fewer than HeaderSize bytes left for a header.
	RecordErrorHeader RecordErrorKind = iota
	// RecordErrorPayload indicates a declared payload longer than the remaining bytes.
	RecordErrorPayload
)

func (k RecordErrorKind) String() string {
	switch k {
	case RecordErrorHeader:
		return "truncated header"
	case RecordErrorPayload:
		return "truncated payload"
	default:
		return "unknown"
	}
}

// RecordError describes a malformed record. Both kinds are fatal.
type RecordError struct {
	Kind RecordErrorKind
	// Offset is the byte offset of the record header.
	Offset int
	// Index is the zero-based record index.
	Index int
	Msg   string
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record %d at offset %d: %s: %s", e.Index, e.Offset, e.Kind, e.Msg)
}

// Is reports whether target is ErrMalformedRecord.
func (e *RecordError) Is(target error) bool {
	return target == ErrMalformedRecord
}

// Decoder walks a capture buffer one record at a time.
type Decoder struct {
	buf   []byte
	off   int
	index int
}

// NewDecoder creates a decoder over buf. The returned chunks alias buf.
func NewDecoder(buf []byte) *Decoder {
	return &Decoder{buf: buf}
}

// Next returns the next chunk.
//
// Errors:
//   - io.EOF: exactly at the end of the buffer
//   - *RecordError with Kind=RecordErrorHeader: 1..11 trailing bytes
//   - *RecordError with Kind=RecordErrorPayload: payload overruns the buffer
func (d *Decoder) Next() (types.Chunk, error) {
	remaining := len(d.buf) - d.off
	if remaining == 0 {
		return types.Chunk{}, io.EOF
	}
	if remaining < HeaderSize {
		return types.Chunk{}, &RecordError{
			Kind:   RecordErrorHeader,
			Offset: d.off,
			Index:  d.index,
			Msg:    fmt.Sprintf("%d bytes left, need %d", remaining, HeaderSize),
		}
	}

	hdr := d.buf[d.off : d.off+HeaderSize]
	sec := binary.LittleEndian.Uint32(hdr[0:4])
	usec := binary.LittleEndian.Uint32(hdr[4:8])
	size := binary.LittleEndian.Uint32(hdr[8:12])

	start := d.off + HeaderSize
	if uint64(size) > uint64(len(d.buf)-start) {
		return types.Chunk{}, &RecordError{
			Kind:   RecordErrorPayload,
			Offset: d.off,
			Index:  d.index,
			Msg:    fmt.Sprintf("payload size %d exceeds remaining %d bytes", size, len(d.buf)-start),
		}
	}

	end := start + int(size)
	chunk := types.Chunk{
		TimestampMillis: int64(sec)*1000 + int64(usec)/1000,
		Payload:         d.buf[start:end:end],
	}
	d.off = end
	d.index++
	return chunk, nil
}

// Offset returns the byte offset of the next record.
func (d *Decoder) Offset() int { return d.off }

// ParseAll decodes every record in buf. On error no chunks are returned.
func ParseAll(buf []byte) ([]types.Chunk, error) {
	dec := NewDecoder(buf)
	var chunks []types.Chunk
	for {
		chunk, err := dec.Next()
		if err == io.EOF {
			return chunks, nil
		}
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
}

// AppendRecord appends one encoded record to dst.
func AppendRecord(dst []byte, sec, usec uint32, payload []byte) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, sec)
	dst = binary.LittleEndian.AppendUint32(dst, usec)
	dst = binary.LittleEndian.AppendUint32(dst, uint32(len(payload)))
	return append(dst, payload...)
}

var gzipMagic = []byte{0x1f, 0x8b}

// ReadCapture reads a whole capture from r, inflating it when it is gzip
// compressed.
func ReadCapture(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read capture: %w", err)
	}
	if !bytes.HasPrefix(data, gzipMagic) {
		return data, nil
	}

	// A raw capture whose first sec field ends in 0x8b1f carries the magic
	// too; it fails the full header check and is returned as is.
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if errors.Is(err, gzip.ErrHeader) {
		return data, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open gzip capture: %w", err)
	}
	defer func() { _ = zr.Close() }()

	inflated, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("failed to inflate capture: %w", err)
	}
	return inflated, nil
}

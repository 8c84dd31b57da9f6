// Package pool deduplicates repeated draw operands.
//
// A Pool runs in two phases: collection (Remember, Collect) counts every
// distinct canonical operand; Process then ranks the operands and names
// those whose substitution shrinks the output. After Process the pool is
// frozen and only answers lookups.
package pool

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/pithecene-io/reel/types"
)

// DeclarationCost is the fixed overhead of declaring one name: a
// parameter separator plus the value's separators.
const DeclarationCost = 3

// ErrFrozen is returned when a processed pool is mutated again.
var ErrFrozen = errors.New("literal pool is frozen")

// Entry is the bookkeeping for one distinct code.
type Entry struct {
	Code     string `json:"code"`
	Count    int    `json:"count"`
	Total    int    `json:"total"`
	Name     string `json:"name,omitempty"`
	Saving   int    `json:"saving"`
	Accepted bool   `json:"accepted"`
}

// Declaration is one accepted name bound to its code.
type Declaration struct {
	Name string `json:"name" msgpack:"name"`
	Code string `json:"code" msgpack:"code"`
}

// Pool is the literal deduplication table of one run.
type Pool struct {
	index   map[string]int
	entries []*Entry
	names   map[string]string
	decls   []Declaration
	frozen  bool
}

// New returns an empty pool in the collecting phase.
func New() *Pool {
	return &Pool{index: make(map[string]int)}
}

// Encode returns the canonical code of a literal: compact JSON without
// HTML escaping.
func Encode(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return string(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))), nil
}

// Remember counts one occurrence of a literal.
func (p *Pool) Remember(v any) error {
	code, err := Encode(v)
	if err != nil {
		return fmt.Errorf("encode literal: %w", err)
	}
	return p.RememberCode(code)
}

// RememberCode counts one occurrence of an already canonical code.
func (p *Pool) RememberCode(code string) error {
	if p.frozen {
		return ErrFrozen
	}
	i, ok := p.index[code]
	if !ok {
		i = len(p.entries)
		p.index[code] = i
		p.entries = append(p.entries, &Entry{Code: code})
	}
	e := p.entries[i]
	e.Count++
	e.Total += len(code)
	return nil
}

// Collect remembers the text and attributes of every draw op in frames.
func (p *Pool) Collect(frames []types.Frame) error {
	for _, f := range frames {
		for _, op := range f.Ops {
			if op.Kind != types.OpDraw {
				continue
			}
			if err := p.Remember(op.Text); err != nil {
				return err
			}
			if err := p.Remember(op.Attr); err != nil {
				return err
			}
		}
	}
	return nil
}

// Process ranks the collected codes by total cost, draws one name per
// code in that order and accepts the names with a positive net saving.
// It freezes the pool.
func (p *Pool) Process() error {
	if p.frozen {
		return ErrFrozen
	}
	p.frozen = true

	ranked := make([]*Entry, len(p.entries))
	copy(ranked, p.entries)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Total > ranked[j].Total })

	p.names = make(map[string]string)
	gen := NewNameGenerator()
	for _, e := range ranked {
		e.Name = gen.Next()
		e.Saving = netSaving(e)
		if e.Saving <= 0 {
			continue
		}
		e.Accepted = true
		p.names[e.Code] = e.Name
		p.decls = append(p.decls, Declaration{Name: e.Name, Code: e.Code})
	}
	p.entries = ranked
	return nil
}

// FromDeclarations rebuilds a frozen pool that resolves exactly the given
// declarations, e.g. those carried by a decoded document.
func FromDeclarations(decls []Declaration) *Pool {
	p := &Pool{
		index:  make(map[string]int),
		names:  make(map[string]string, len(decls)),
		decls:  decls,
		frozen: true,
	}
	for _, d := range decls {
		p.names[d.Code] = d.Name
	}
	return p
}

func netSaving(e *Entry) int {
	n := len(e.Name)
	return e.Total - n*e.Count - (DeclarationCost + n + len(e.Code))
}

// Get returns the name bound to code, or code itself.
func (p *Pool) Get(code string) string {
	if name, ok := p.names[code]; ok {
		return name
	}
	return code
}

// Lookup encodes v canonically and resolves it through Get.
func (p *Pool) Lookup(v any) (string, error) {
	code, err := Encode(v)
	if err != nil {
		return "", fmt.Errorf("encode literal: %w", err)
	}
	return p.Get(code), nil
}

// Frozen reports whether Process has run.
func (p *Pool) Frozen() bool { return p.frozen }

// Declarations returns the accepted names in declaration order.
func (p *Pool) Declarations() []Declaration { return p.decls }

// Entries returns a copy of every entry, ranked once processed.
func (p *Pool) Entries() []Entry {
	out := make([]Entry, len(p.entries))
	for i, e := range p.entries {
		out[i] = *e
	}
	return out
}

// Saved returns the total net saving of the accepted names.
func (p *Pool) Saved() int {
	total := 0
	for _, e := range p.entries {
		if e.Accepted {
			total += e.Saving
		}
	}
	return total
}

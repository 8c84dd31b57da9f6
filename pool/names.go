package pool

// Charset is the identifier alphabet. Its first UnitSymbols symbols are
// the ones a name may start with.
const Charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ$_abcdefghijklmnopqrstuvwxyz1234567890"

// UnitSymbols is how many symbols of Charset can lead a name.
const UnitSymbols = 28

// NameGenerator yields short identifiers in length order: UnitSymbols
// one-symbol names, then UnitSymbols*64 two-symbol names, and so on. The
// leading symbol varies fastest.
//
// Every name starts with an uppercase letter, '$' or '_', so names never
// collide with JavaScript keywords or the loader's lowercase helpers.
type NameGenerator struct {
	n int
}

// NewNameGenerator returns a generator at the start of the sequence.
func NewNameGenerator() *NameGenerator { return &NameGenerator{} }

// Next returns the next name.
func (g *NameGenerator) Next() string {
	k := g.n
	g.n++

	length, size := 1, UnitSymbols
	for k >= size {
		k -= size
		length++
		size *= len(Charset)
	}

	name := make([]byte, length)
	name[0] = Charset[k%UnitSymbols]
	k /= UnitSymbols
	for i := 1; i < length; i++ {
		name[i] = Charset[k%len(Charset)]
		k /= len(Charset)
	}
	return string(name)
}

// Reset rewinds the generator to the first name.
func (g *NameGenerator) Reset() { g.n = 0 }

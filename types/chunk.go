package types

// Chunk is one decoded capture record: the output bytes a program wrote
// and when it wrote them.
type Chunk struct {
	// TimestampMillis is seconds*1000 + microseconds/1000, truncated.
	TimestampMillis int64
	// Payload is the raw terminal output. It may end mid-character.
	Payload []byte
}

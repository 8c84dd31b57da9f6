// Package metrics provides per-run metrics collection.
//
// The Collector accumulates counters during a single transcoding run. It is
// a leaf package with no internal dependencies. Sampler and pool counters
// are absorbed once at the end of the pass rather than recorded live.
package metrics

// Snapshot is an immutable point-in-time view of all run metrics.
type Snapshot struct {
	// Capture
	RecordsParsed int64 `json:"records_parsed"`
	BytesIn       int64 `json:"bytes_in"`
	DroppedBytes  int64 `json:"decoder_dropped_bytes"`

	// Sampling (absorbed from the sampler at flush)
	Events  int64 `json:"events"`
	Samples int64 `json:"samples"`
	Skipped int64 `json:"skipped"`

	// Frames
	Frames     int64            `json:"frames"`
	Keyframes  int64            `json:"keyframes"`
	OpsByKind  map[string]int64 `json:"ops_by_kind"`
	DiffErrors int64            `json:"diff_errors"`

	// Literal pool (absorbed after Process)
	PoolCandidates int64 `json:"pool_candidates"`
	PoolAccepted   int64 `json:"pool_accepted"`
	PoolSavedBytes int64 `json:"pool_saved_bytes"`

	// Output / storage
	BytesOut          int64 `json:"bytes_out"`
	StoreWriteSuccess int64 `json:"store_write_success"`
	StoreWriteFailure int64 `json:"store_write_failure"`
	AdapterPublish    int64 `json:"adapter_publish"`
	AdapterFailure    int64 `json:"adapter_failure"`

	// Dimensions (informational, set at construction)
	Format         string `json:"format"`
	StorageBackend string `json:"storage_backend"`
	RunID          string `json:"run_id"`
}

// Collector accumulates metrics during a single run. A run is
// single-threaded, so there is no locking. All methods are nil-receiver
// safe.
type Collector struct {
	recordsParsed int64
	bytesIn       int64
	droppedBytes  int64

	events  int64
	samples int64
	skipped int64

	frames     int64
	keyframes  int64
	opsByKind  map[string]int64
	diffErrors int64

	poolCandidates int64
	poolAccepted   int64
	poolSavedBytes int64

	bytesOut          int64
	storeWriteSuccess int64
	storeWriteFailure int64
	adapterPublish    int64
	adapterFailure    int64

	format         string
	storageBackend string
	runID          string
}

// NewCollector creates a Collector with dimension labels.
func NewCollector(format, storageBackend, runID string) *Collector {
	return &Collector{
		opsByKind:      make(map[string]int64),
		format:         format,
		storageBackend: storageBackend,
		runID:          runID,
	}
}

// --- Capture ---

// AddRecord records one parsed capture record of n payload bytes.
func (c *Collector) AddRecord(n int) {
	if c == nil {
		return
	}
	c.recordsParsed++
	c.bytesIn += int64(n)
}

// AddDroppedBytes records bytes the text decoder discarded at end of stream.
func (c *Collector) AddDroppedBytes(n int) {
	if c == nil {
		return
	}
	c.droppedBytes += int64(n)
}

// --- Frames ---

// AddFrame records one built frame and tallies its operations by kind.
func (c *Collector) AddFrame(key bool, opKinds []string) {
	if c == nil {
		return
	}
	c.frames++
	if key {
		c.keyframes++
	}
	for _, k := range opKinds {
		c.opsByKind[k]++
	}
}

// IncDiffErrors records a diff engine failure.
func (c *Collector) IncDiffErrors() {
	if c == nil {
		return
	}
	c.diffErrors++
}

// AbsorbSampler copies the sampler's final counters.
func (c *Collector) AbsorbSampler(events, samples, skipped int) {
	if c == nil {
		return
	}
	c.events = int64(events)
	c.samples = int64(samples)
	c.skipped = int64(skipped)
}

// AbsorbPool copies the literal pool's final counters.
func (c *Collector) AbsorbPool(candidates, accepted, saved int) {
	if c == nil {
		return
	}
	c.poolCandidates = int64(candidates)
	c.poolAccepted = int64(accepted)
	c.poolSavedBytes = int64(saved)
}

// --- Output / storage ---

// SetBytesOut records the artifact size.
func (c *Collector) SetBytesOut(n int) {
	if c == nil {
		return
	}
	c.bytesOut = int64(n)
}

// IncStoreWriteSuccess records a successful artifact write.
func (c *Collector) IncStoreWriteSuccess() {
	if c == nil {
		return
	}
	c.storeWriteSuccess++
}

// IncStoreWriteFailure records a failed artifact write.
func (c *Collector) IncStoreWriteFailure() {
	if c == nil {
		return
	}
	c.storeWriteFailure++
}

// IncAdapterPublish records a delivered completion notification.
func (c *Collector) IncAdapterPublish() {
	if c == nil {
		return
	}
	c.adapterPublish++
}

// IncAdapterFailure records a notification that exhausted its retries.
func (c *Collector) IncAdapterFailure() {
	if c == nil {
		return
	}
	c.adapterFailure++
}

// --- Snapshot ---

// Snapshot returns a copy of all metrics. The Collector can continue to be
// mutated independently.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}

	ops := make(map[string]int64, len(c.opsByKind))
	for k, v := range c.opsByKind {
		ops[k] = v
	}

	return Snapshot{
		RecordsParsed: c.recordsParsed,
		BytesIn:       c.bytesIn,
		DroppedBytes:  c.droppedBytes,

		Events:  c.events,
		Samples: c.samples,
		Skipped: c.skipped,

		Frames:     c.frames,
		Keyframes:  c.keyframes,
		OpsByKind:  ops,
		DiffErrors: c.diffErrors,

		PoolCandidates: c.poolCandidates,
		PoolAccepted:   c.poolAccepted,
		PoolSavedBytes: c.poolSavedBytes,

		BytesOut:          c.bytesOut,
		StoreWriteSuccess: c.storeWriteSuccess,
		StoreWriteFailure: c.storeWriteFailure,
		AdapterPublish:    c.adapterPublish,
		AdapterFailure:    c.adapterFailure,

		Format:         c.format,
		StorageBackend: c.storageBackend,
		RunID:          c.runID,
	}
}

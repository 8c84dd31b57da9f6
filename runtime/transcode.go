// Package runtime owns a single transcoding run: it wires the record
// parser, text decoder, sampler, emulator, frame builder and literal pool
// into one linear pass over a capture.
package runtime

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/pithecene-io/reel/decode"
	"github.com/pithecene-io/reel/diff"
	"github.com/pithecene-io/reel/emulator"
	"github.com/pithecene-io/reel/framer"
	"github.com/pithecene-io/reel/log"
	"github.com/pithecene-io/reel/metrics"
	"github.com/pithecene-io/reel/pool"
	"github.com/pithecene-io/reel/sampler"
	"github.com/pithecene-io/reel/ttyrec"
	"github.com/pithecene-io/reel/types"
)

// Default terminal geometry.
const (
	DefaultCols = 80
	DefaultRows = 25
)

// Progress is reported after every built frame.
type Progress struct {
	// Frames is the number of frames built so far.
	Frames int
	// Skipped is events seen minus frames built.
	Skipped int
	// TimeMillis is the time of the latest frame.
	TimeMillis int64
}

// ProgressFunc receives progress updates. It must not retain the run.
type ProgressFunc func(Progress)

// Config configures a single run.
type Config struct {
	// Cols and Rows are the terminal geometry.
	Cols int
	Rows int
	// FrameRate is the maximum frame rate in frames per second.
	FrameRate float64
	// KeyframeInterval is the number of frames between keyframes.
	KeyframeInterval int
	// Encoding is the WHATWG label of the capture's text encoding.
	Encoding string
	// RunMeta is the run identity.
	RunMeta *types.RunMeta
	// EmulatorFactory overrides emulator creation (for testing).
	// If nil, uses emulator.VTFactory.
	EmulatorFactory emulator.Factory
	// Differ overrides the diff engine. If nil, uses diff.New().
	Differ diff.Differ
	// Logger receives run logs. If nil, a stderr logger with run context
	// is created.
	Logger *log.Logger
	// Collector is the metrics collector for this run.
	// If nil, no metrics are recorded (all Collector methods are nil-safe).
	Collector *metrics.Collector
	// Progress is an optional per-frame callback.
	Progress ProgressFunc
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Cols <= 0 || c.Rows <= 0 {
		return fmt.Errorf("terminal size must be positive, got %dx%d", c.Cols, c.Rows)
	}
	if c.FrameRate <= 0 {
		return fmt.Errorf("frame rate must be positive, got %v", c.FrameRate)
	}
	if c.KeyframeInterval < 1 {
		return fmt.Errorf("keyframe interval must be at least 1, got %d", c.KeyframeInterval)
	}
	if !decode.Valid(c.Encoding) {
		return fmt.Errorf("%w: %q", decode.ErrUnknownEncoding, c.Encoding)
	}
	if c.RunMeta == nil {
		return errors.New("run metadata is required")
	}
	if err := c.RunMeta.Validate(); err != nil {
		return fmt.Errorf("invalid run metadata: %w", err)
	}
	return nil
}

// Result is the outcome of a successful run.
type Result struct {
	// RunMeta is the run identity.
	RunMeta *types.RunMeta
	// Frames is the playback-ordered frame sequence.
	Frames []types.Frame
	// Pool is the processed, frozen literal pool.
	Pool *pool.Pool
	// Keyframes is the number of keyframes in Frames.
	Keyframes int
	// Records is the number of capture records.
	Records int
	// BytesIn is the total capture payload size.
	BytesIn int
	// Events and Skipped are the sampler counters.
	Events  int
	Skipped int
	// DroppedBytes is the incomplete trailing sequence the decoder discarded.
	DroppedBytes int
	// Duration is the wall time of the pass.
	Duration time.Duration
}

// Transcoder runs one capture through the pipeline.
type Transcoder struct {
	config *Config
	logger *log.Logger
}

// NewTranscoder creates a transcoder. Returns error if config is invalid.
func NewTranscoder(config *Config) (*Transcoder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	logger := config.Logger
	if logger == nil {
		logger = log.NewLogger(config.RunMeta)
	}
	return &Transcoder{config: config, logger: logger}, nil
}

// Run transcodes capture.
//
// Flow:
//  1. Parse the next record
//  2. Decode its payload, holding back split characters
//  3. Step the sampler; build the due frame from the state before this record
//  4. Write the text to the emulator
//  5. After the last record, flush the pending sample
//  6. Collect and process the literal pool
//
// Errors are *ttyrec.RecordError or *framer.DiffEngineError wrapped in a
// *StageError.
func (t *Transcoder) Run(capture []byte) (*Result, error) {
	start := time.Now()
	cfg := t.config
	collector := cfg.Collector

	t.logger.Info("starting transcode", map[string]any{
		"bytes":             len(capture),
		"cols":              cfg.Cols,
		"rows":              cfg.Rows,
		"frame_rate":        cfg.FrameRate,
		"keyframe_interval": cfg.KeyframeInterval,
	})

	dec, err := decode.New(cfg.Encoding)
	if err != nil {
		return nil, &StageError{Stage: StageDecode, Err: err}
	}

	factory := cfg.EmulatorFactory
	if factory == nil {
		factory = emulator.VTFactory
	}
	emu, err := factory(cfg.Cols, cfg.Rows)
	if err != nil {
		return nil, &StageError{Stage: StageEmulate, Err: err}
	}

	differ := cfg.Differ
	if differ == nil {
		differ = diff.New()
	}

	smp := sampler.New(sampler.PeriodFor(cfg.FrameRate))
	builder := framer.New(emu, differ, cfg.KeyframeInterval)

	sample := func(at float64) error {
		if err := builder.Sample(at); err != nil {
			collector.IncDiffErrors()
			t.logger.Error("diff engine failed", map[string]any{"error": err.Error()})
			return &StageError{Stage: StageDiff, Err: err}
		}
		frames := builder.Frames()
		last := frames[len(frames)-1]
		collector.AddFrame(last.Key, opKinds(last.Ops))
		if cfg.Progress != nil {
			cfg.Progress(Progress{
				Frames:     len(frames),
				Skipped:    smp.Events() - len(frames),
				TimeMillis: last.Time,
			})
		}
		return nil
	}

	records, bytesIn := 0, 0
	rd := ttyrec.NewDecoder(capture)
	for {
		chunk, err := rd.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.logger.Error("malformed capture", map[string]any{"error": err.Error()})
			return nil, &StageError{Stage: StageParse, Err: err}
		}
		records++
		bytesIn += len(chunk.Payload)
		collector.AddRecord(len(chunk.Payload))

		text := dec.Write(chunk.Payload)
		if at, ok := smp.Step(float64(chunk.TimestampMillis)); ok {
			if err := sample(at); err != nil {
				return nil, err
			}
		}
		if err := emu.Write(text); err != nil {
			return nil, &StageError{Stage: StageEmulate, Err: err}
		}
	}

	if at, ok := smp.Flush(); ok {
		if err := sample(at); err != nil {
			return nil, err
		}
	}
	collector.AbsorbSampler(smp.Events(), smp.Samples(), smp.Skipped())

	dropped := dec.Drop()
	if dropped > 0 {
		collector.AddDroppedBytes(dropped)
		t.logger.Warn("dropped incomplete trailing character", map[string]any{
			"bytes":    dropped,
			"encoding": dec.Encoding(),
		})
	}

	frames := builder.Frames()
	p := pool.New()
	if err := p.Collect(frames); err != nil {
		return nil, &StageError{Stage: StagePool, Err: err}
	}
	if err := p.Process(); err != nil {
		return nil, &StageError{Stage: StagePool, Err: err}
	}
	collector.AbsorbPool(len(p.Entries()), len(p.Declarations()), p.Saved())

	result := &Result{
		RunMeta:      cfg.RunMeta,
		Frames:       frames,
		Pool:         p,
		Keyframes:    builder.Keyframes(),
		Records:      records,
		BytesIn:      bytesIn,
		Events:       smp.Events(),
		Skipped:      smp.Skipped(),
		DroppedBytes: dropped,
		Duration:     time.Since(start),
	}

	t.logger.Info("transcode completed", map[string]any{
		"records":     records,
		"frames":      len(frames),
		"keyframes":   result.Keyframes,
		"skipped":     result.Skipped,
		"pool_names":  len(p.Declarations()),
		"pool_saved":  p.Saved(),
		"duration_ms": result.Duration.Milliseconds(),
	})
	return result, nil
}

func opKinds(ops []types.Operation) []string {
	kinds := make([]string, len(ops))
	for i, op := range ops {
		kinds[i] = string(op.Kind)
	}
	return kinds
}

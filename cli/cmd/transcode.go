package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/term"

	"github.com/pithecene-io/reel/adapter"
	"github.com/pithecene-io/reel/adapter/redis"
	"github.com/pithecene-io/reel/adapter/webhook"
	reelconfig "github.com/pithecene-io/reel/cli/config"
	"github.com/pithecene-io/reel/decode"
	"github.com/pithecene-io/reel/emit"
	"github.com/pithecene-io/reel/framer"
	"github.com/pithecene-io/reel/iox"
	"github.com/pithecene-io/reel/log"
	"github.com/pithecene-io/reel/metrics"
	"github.com/pithecene-io/reel/runtime"
	"github.com/pithecene-io/reel/sampler"
	"github.com/pithecene-io/reel/store"
	"github.com/pithecene-io/reel/ttyrec"
	"github.com/pithecene-io/reel/types"
)

// stdio marks stdin (input) or stdout (output).
const stdio = "-"

// TranscodeCommand returns the transcode command.
// This is the only command that writes artifacts.
func TranscodeCommand() *cli.Command {
	return &cli.Command{
		Name:      "transcode",
		Usage:     "Convert a ttyrec capture into a playback artifact",
		ArgsUsage: "<input.ttyrec|-> [output]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "Path to reel.yaml (flags override file values)",
			},
			// Geometry flags
			&cli.IntFlag{
				Name:    "rows",
				Aliases: []string{"r"},
				Usage:   "Number of rows in the recorded terminal",
				Value:   runtime.DefaultRows,
			},
			&cli.IntFlag{
				Name:    "columns",
				Aliases: []string{"c"},
				Usage:   "Number of columns in the recorded terminal",
				Value:   runtime.DefaultCols,
			},
			&cli.StringFlag{
				Name:    "size",
				Aliases: []string{"s"},
				Usage:   "Terminal size as CxR (shorthand for --columns and --rows)",
			},
			&cli.BoolFlag{
				Name:    "current",
				Aliases: []string{"C"},
				Usage:   "Use the current terminal's size",
			},
			// Transcoding flags
			&cli.Float64Flag{
				Name:  "fps",
				Usage: "Maximum frame rate",
				Value: sampler.DefaultFrameRate,
			},
			&cli.IntFlag{
				Name:  "keyframe-interval",
				Usage: "Frames between keyframes",
				Value: framer.DefaultKeyframeInterval,
			},
			&cli.StringFlag{
				Name:  "encoding",
				Usage: "Text encoding of the capture (WHATWG label)",
				Value: decode.DefaultEncoding,
			},
			// Output flags
			&cli.StringFlag{
				Name:  "format",
				Usage: "Artifact format: js, json or msgpack",
				Value: string(emit.FormatJS),
			},
			&cli.BoolFlag{
				Name:  "gzip",
				Usage: "Gzip the artifact",
			},
			// Storage flags
			&cli.StringFlag{
				Name:  "storage-backend",
				Usage: "Store the artifact in a backend instead of a local file: fs or s3",
			},
			&cli.StringFlag{
				Name:  "storage-path",
				Usage: "Storage path (fs: directory, s3: bucket/prefix)",
			},
			&cli.StringFlag{
				Name:  "s3-region",
				Usage: "AWS region for S3 backend (optional, uses default chain)",
			},
			&cli.StringFlag{
				Name:  "s3-endpoint",
				Usage: "Custom S3 endpoint for S3-compatible providers",
			},
			&cli.BoolFlag{
				Name:  "s3-path-style",
				Usage: "Force path-style S3 addressing",
			},
			// Adapter flags
			&cli.StringFlag{
				Name:  "adapter",
				Usage: "Completion notification adapter: webhook or redis",
			},
			&cli.StringFlag{
				Name:  "adapter-url",
				Usage: "Adapter endpoint (webhook URL or redis://host:port/db)",
			},
			&cli.StringFlag{
				Name:  "adapter-channel",
				Usage: "Redis pub/sub channel",
				Value: redis.DefaultChannel,
			},
			&cli.DurationFlag{
				Name:  "adapter-timeout",
				Usage: "Per-attempt adapter timeout",
			},
			&cli.IntFlag{
				Name:  "adapter-retries",
				Usage: "Adapter retry attempts",
				Value: webhook.DefaultRetries,
			},
			// Reporting flags
			&cli.StringFlag{
				Name:  "report",
				Usage: "Write a JSON run report to this path (- for stderr)",
			},
			&cli.BoolFlag{
				Name:  "progress",
				Usage: "Print a progress line per frame to stderr",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level: debug, info, warn, error",
				Value: "info",
			},
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "Suppress the result summary and non-error logs",
			},
		},
		Action: transcodeAction,
	}
}

// storageChoice holds parsed storage configuration.
type storageChoice struct {
	backend     string // "", "fs" or "s3"
	path        string // fs: directory, s3: bucket/prefix
	region      string
	endpoint    string
	s3PathStyle bool
}

// adapterChoice holds parsed adapter configuration.
type adapterChoice struct {
	kind    string // "", "webhook" or "redis"
	url     string
	channel string
	headers map[string]string
	timeout time.Duration
	retries int
}

// transcodeChoice is the fully resolved transcode configuration.
type transcodeChoice struct {
	input            string
	output           string
	cols             int
	rows             int
	fps              float64
	keyframeInterval int
	encoding         string
	format           emit.Format
	gzip             bool
	report           string
	progress         bool
	quiet            bool
	logLevel         string
	storage          storageChoice
	adapter          adapterChoice
}

func transcodeAction(c *cli.Context) error {
	var cfg *reelconfig.Config
	if path := c.String("config"); path != "" {
		loaded, err := reelconfig.Load(path)
		if err != nil {
			return cli.Exit(err.Error(), runtime.ExitCodeUsage)
		}
		cfg = loaded
	}

	choice, err := resolveChoice(c, cfg)
	if err != nil {
		return cli.Exit(err.Error(), runtime.ExitCodeUsage)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return runTranscode(ctx, c.App.Reader, c.App.Writer, c.App.ErrWriter, choice)
}

// resolveChoice merges flags, the config file and defaults, and validates
// the result. Every error it returns is a usage error.
func resolveChoice(c *cli.Context, cfg *reelconfig.Config) (*transcodeChoice, error) {
	input := c.Args().Get(0)
	if input == "" {
		return nil, errors.New("missing input: reel transcode <input.ttyrec|-> [output]")
	}
	if c.NArg() > 2 {
		return nil, fmt.Errorf("too many arguments: want input and optional output, got %d", c.NArg())
	}

	choice := &transcodeChoice{
		input:            input,
		cols:             resolveInt(c, "columns", configVal(cfg, func(c *reelconfig.Config) int { return c.Columns })),
		rows:             resolveInt(c, "rows", configVal(cfg, func(c *reelconfig.Config) int { return c.Rows })),
		fps:              resolveFloat(c, "fps", configVal(cfg, func(c *reelconfig.Config) float64 { return c.FPS })),
		keyframeInterval: resolveInt(c, "keyframe-interval", configVal(cfg, func(c *reelconfig.Config) int { return c.KeyframeInterval })),
		encoding:         resolveString(c, "encoding", configVal(cfg, func(c *reelconfig.Config) string { return c.Encoding })),
		gzip:             resolveBool(c, "gzip", configVal(cfg, func(c *reelconfig.Config) bool { return c.Gzip })),
		report:           resolveString(c, "report", configVal(cfg, func(c *reelconfig.Config) string { return c.Report })),
		progress:         resolveBool(c, "progress", configVal(cfg, func(c *reelconfig.Config) bool { return c.Progress })),
		quiet:            c.Bool("quiet"),
		logLevel:         resolveString(c, "log-level", configVal(cfg, func(c *reelconfig.Config) string { return c.LogLevel })),
		storage: storageChoice{
			backend:     resolveString(c, "storage-backend", configVal(cfg, func(c *reelconfig.Config) string { return c.Storage.Backend })),
			path:        resolveString(c, "storage-path", configVal(cfg, func(c *reelconfig.Config) string { return c.Storage.Path })),
			region:      resolveString(c, "s3-region", configVal(cfg, func(c *reelconfig.Config) string { return c.Storage.Region })),
			endpoint:    resolveString(c, "s3-endpoint", configVal(cfg, func(c *reelconfig.Config) string { return c.Storage.Endpoint })),
			s3PathStyle: resolveBool(c, "s3-path-style", configVal(cfg, func(c *reelconfig.Config) bool { return c.Storage.S3PathStyle })),
		},
		adapter: adapterChoice{
			kind:    resolveString(c, "adapter", configVal(cfg, func(c *reelconfig.Config) string { return c.Adapter.Type })),
			url:     resolveString(c, "adapter-url", configVal(cfg, func(c *reelconfig.Config) string { return c.Adapter.URL })),
			channel: resolveString(c, "adapter-channel", configVal(cfg, func(c *reelconfig.Config) string { return c.Adapter.Channel })),
			headers: configVal(cfg, func(c *reelconfig.Config) map[string]string { return c.Adapter.Headers }),
			timeout: resolveDuration(c, "adapter-timeout", configVal(cfg, func(c *reelconfig.Config) time.Duration { return c.Adapter.Timeout.Duration })),
			retries: c.Int("adapter-retries"),
		},
	}
	if !c.IsSet("adapter-retries") && cfg != nil && cfg.Adapter.Retries != nil {
		choice.adapter.retries = *cfg.Adapter.Retries
	}

	if size := c.String("size"); size != "" {
		cols, rows, err := parseSize(size)
		if err != nil {
			return nil, err
		}
		choice.cols, choice.rows = cols, rows
	}
	if c.Bool("current") {
		cols, rows, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil {
			return nil, fmt.Errorf("--current: cannot read terminal size: %w", err)
		}
		choice.cols, choice.rows = cols, rows
	}

	format, err := emit.ParseFormat(resolveString(c, "format", configVal(cfg, func(c *reelconfig.Config) string { return c.Format })))
	if err != nil {
		return nil, fmt.Errorf("invalid --format: %w", err)
	}
	choice.format = format

	choice.output = c.Args().Get(1)
	if choice.output == "" {
		choice.output = defaultOutput(input, format, choice.gzip)
	}

	if err := validateChoice(choice); err != nil {
		return nil, err
	}
	return choice, nil
}

var sizePattern = regexp.MustCompile(`^(\d+)[xX](\d+)$`)

// parseSize parses a CxR terminal size such as 80x25.
func parseSize(s string) (cols, rows int, err error) {
	m := sizePattern.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, fmt.Errorf("invalid size %q: must be in form CxR (e.g. 80x25)", s)
	}
	cols, _ = strconv.Atoi(m[1])
	rows, _ = strconv.Atoi(m[2])
	if cols <= 0 || rows <= 0 {
		return 0, 0, fmt.Errorf("invalid size %q: columns and rows must be positive", s)
	}
	return cols, rows, nil
}

// defaultOutput derives the artifact path from the input path: the input's
// directory and stem with the format extension. stdin input writes stdout.
func defaultOutput(input string, format emit.Format, gz bool) string {
	if input == stdio {
		return stdio
	}
	base := filepath.Base(input)
	base = strings.TrimSuffix(base, ".gz")
	base = strings.TrimSuffix(base, filepath.Ext(base))
	name := base + "." + format.Ext()
	if gz {
		name += ".gz"
	}
	return filepath.Join(filepath.Dir(input), name)
}

func validateChoice(ch *transcodeChoice) error {
	if ch.cols <= 0 || ch.rows <= 0 {
		return fmt.Errorf("invalid terminal size %dx%d: --columns and --rows must be positive", ch.cols, ch.rows)
	}
	if ch.fps <= 0 {
		return fmt.Errorf("invalid --fps %g: must be positive", ch.fps)
	}
	if ch.keyframeInterval < 1 {
		return fmt.Errorf("invalid --keyframe-interval %d: must be at least 1", ch.keyframeInterval)
	}
	if !decode.Valid(ch.encoding) {
		return fmt.Errorf("invalid --encoding %q: not a known WHATWG encoding label", ch.encoding)
	}

	switch ch.storage.backend {
	case "":
	case "fs", "s3":
		if ch.storage.path == "" {
			return fmt.Errorf("--storage-path is required for --storage-backend %s", ch.storage.backend)
		}
		if ch.output == stdio {
			return errors.New("an output name is required with --storage-backend when reading stdin")
		}
	default:
		return fmt.Errorf("invalid --storage-backend %q: must be fs or s3", ch.storage.backend)
	}

	switch ch.adapter.kind {
	case "":
	case "webhook", "redis":
		if ch.adapter.url == "" {
			return fmt.Errorf("--adapter-url is required for --adapter %s", ch.adapter.kind)
		}
		if ch.adapter.retries < 0 {
			return fmt.Errorf("invalid --adapter-retries %d: must be >= 0", ch.adapter.retries)
		}
	default:
		return fmt.Errorf("invalid --adapter %q: must be webhook or redis", ch.adapter.kind)
	}
	return nil
}

// runTranscode executes one transcode and maps its outcome to an exit code.
func runTranscode(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer, ch *transcodeChoice) error {
	runMeta := types.NewRunMeta(ch.input)
	level := ch.logLevel
	if ch.quiet {
		level = "error"
	}
	logger := log.NewLogger(runMeta).WithOutput(stderr).WithLevel(level)
	defer iox.DiscardErr(logger.Sync)

	collector := metrics.NewCollector(string(ch.format), ch.storage.backend, runMeta.RunID)

	result, written, err := transcode(ctx, stdin, stdout, stderr, ch, runMeta, logger, collector)

	if ch.report != "" {
		report := runtime.BuildRunReport(runtime.ReportInput{
			Input:  ch.input,
			Output: written,
			Format: string(ch.format),
		}, result, err, collector.Snapshot())
		if werr := runtime.WriteRunReport(report, ch.report); werr != nil {
			logger.Warn("failed to write run report", map[string]any{
				"path":  ch.report,
				"error": werr.Error(),
			})
		}
	}

	outcome := runtime.DetermineOutcome(err)
	if !ch.quiet && result != nil {
		printResult(stderr, result, written, outcome, collector.Snapshot())
	}
	if err != nil {
		return cli.Exit(outcome.Message, outcome.ExitCode())
	}
	return nil
}

// transcode runs the pipeline and delivers the artifact. It returns the
// result (nil if the pass failed) and where the artifact was written.
func transcode(
	ctx context.Context,
	stdin io.Reader,
	stdout, stderr io.Writer,
	ch *transcodeChoice,
	runMeta *types.RunMeta,
	logger *log.Logger,
	collector *metrics.Collector,
) (*runtime.Result, string, error) {
	capture, err := readInput(ch.input, stdin)
	if err != nil {
		return nil, "", &runtime.StageError{Stage: runtime.StageConfig, Err: err}
	}

	config := &runtime.Config{
		Cols:             ch.cols,
		Rows:             ch.rows,
		FrameRate:        ch.fps,
		KeyframeInterval: ch.keyframeInterval,
		Encoding:         ch.encoding,
		RunMeta:          runMeta,
		Logger:           logger,
		Collector:        collector,
	}
	var progress *progressLine
	if ch.progress && !ch.quiet {
		progress = &progressLine{w: stderr, tty: isStderrTTY()}
		config.Progress = progress.update
	}

	transcoder, err := runtime.NewTranscoder(config)
	if err != nil {
		return nil, "", &runtime.StageError{Stage: runtime.StageConfig, Err: err}
	}
	result, err := transcoder.Run(capture)
	progress.done()
	if err != nil {
		return nil, "", err
	}

	doc := emit.NewDocument(ch.cols, ch.rows, result.Frames, result.Pool)
	data, err := emit.Encode(doc, ch.format, emit.Options{Gzip: ch.gzip})
	if err != nil {
		return result, "", &runtime.StageError{Stage: runtime.StageEmit, Err: err}
	}
	collector.SetBytesOut(len(data))

	written, err := writeArtifact(ctx, stdout, ch, data)
	if err != nil {
		collector.IncStoreWriteFailure()
		return result, "", &runtime.StageError{Stage: runtime.StageStore, Err: err}
	}
	collector.IncStoreWriteSuccess()
	logger.Info("artifact written", map[string]any{
		"output": written,
		"format": string(ch.format),
		"bytes":  len(data),
	})

	if ch.adapter.kind != "" {
		event := newCompletedEvent(runMeta, ch, written, result, len(data))
		if err := notify(ctx, ch.adapter, event); err != nil {
			collector.IncAdapterFailure()
			logger.Warn("completion notification failed; artifact is written", map[string]any{
				"adapter": ch.adapter.kind,
				"error":   err.Error(),
			})
			return result, written, &runtime.StageError{Stage: runtime.StageNotify, Err: err}
		}
		collector.IncAdapterPublish()
	}

	return result, written, nil
}

func readInput(input string, stdin io.Reader) ([]byte, error) {
	if input == stdio {
		return ttyrec.ReadCapture(stdin)
	}
	f, err := os.Open(input)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("input not found: %s", input)
		}
		return nil, fmt.Errorf("cannot open input %q: %w", input, err)
	}
	defer iox.DiscardClose(f)
	return ttyrec.ReadCapture(f)
}

// writeArtifact delivers data to stdout, to a local file (atomically) or
// to the configured storage backend. It returns the output location.
func writeArtifact(ctx context.Context, stdout io.Writer, ch *transcodeChoice, data []byte) (string, error) {
	if ch.storage.backend == "" {
		if ch.output == stdio {
			if _, err := stdout.Write(data); err != nil {
				return "", fmt.Errorf("write stdout: %w", err)
			}
			return stdio, nil
		}
		if err := iox.WriteFileAtomic(ch.output, data, 0o644); err != nil {
			return "", err
		}
		return ch.output, nil
	}

	w, err := buildStore(ctx, ch.storage)
	if err != nil {
		return "", err
	}
	name := filepath.ToSlash(filepath.Base(ch.output))
	if err := w.Put(ctx, name, data); err != nil {
		return "", err
	}
	return w.Backend() + ":" + w.Key(name), nil
}

// buildStore creates a storage writer for the configured backend.
func buildStore(ctx context.Context, sc storageChoice) (*store.LodeWriter, error) {
	switch sc.backend {
	case "fs":
		return store.NewFSWriter(sc.path), nil
	case "s3":
		bucket, prefix := store.ParseS3Path(sc.path)
		return store.NewS3Writer(ctx, store.S3Config{
			Bucket:       bucket,
			Prefix:       prefix,
			Region:       sc.region,
			Endpoint:     sc.endpoint,
			UsePathStyle: sc.s3PathStyle,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend: %s (must be fs or s3)", sc.backend)
	}
}

func newCompletedEvent(runMeta *types.RunMeta, ch *transcodeChoice, output string, result *runtime.Result, bytesOut int) *adapter.TranscodeCompletedEvent {
	decls := result.Pool.Declarations()
	names := make([]string, len(decls))
	for i, d := range decls {
		names[i] = d.Name
	}
	return &adapter.TranscodeCompletedEvent{
		ContractVersion: adapter.ContractVersion,
		EventType:       adapter.EventTypeTranscodeCompleted,
		RunID:           runMeta.RunID,
		Input:           ch.input,
		Output:          output,
		Format:          string(ch.format),
		Frames:          len(result.Frames),
		Keyframes:       result.Keyframes,
		PoolNames:       names,
		BytesIn:         result.BytesIn,
		BytesOut:        bytesOut,
		DurationMs:      result.Duration.Milliseconds(),
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
	}
}

// buildAdapter creates the configured completion adapter.
func buildAdapter(ac adapterChoice) (adapter.Adapter, error) {
	switch ac.kind {
	case "webhook":
		return webhook.New(webhook.Config{
			URL:     ac.url,
			Headers: ac.headers,
			Timeout: ac.timeout,
			Retries: ac.retries,
		})
	case "redis":
		return redis.New(redis.Config{
			URL:     ac.url,
			Channel: ac.channel,
			Timeout: ac.timeout,
			Retries: ac.retries,
		})
	default:
		return nil, fmt.Errorf("unknown adapter: %s (must be webhook or redis)", ac.kind)
	}
}

func notify(ctx context.Context, ac adapterChoice, event *adapter.TranscodeCompletedEvent) error {
	a, err := buildAdapter(ac)
	if err != nil {
		return err
	}
	defer iox.DiscardClose(a)
	return a.Publish(ctx, event)
}

// progressLine prints the per-frame progress line. On a terminal it
// rewrites one line; otherwise it prints one line per update.
type progressLine struct {
	w     io.Writer
	tty   bool
	wrote bool
}

func (p *progressLine) update(pr runtime.Progress) {
	line := fmt.Sprintf("frame %d (%d skipped) @ %s", pr.Frames, pr.Skipped, formatClock(pr.TimeMillis))
	if p.tty {
		fmt.Fprintf(p.w, "\r%s", line)
	} else {
		fmt.Fprintln(p.w, line)
	}
	p.wrote = true
}

// done terminates a rewritten progress line. Safe on a nil receiver.
func (p *progressLine) done() {
	if p != nil && p.tty && p.wrote {
		fmt.Fprintln(p.w)
	}
}

// formatClock renders a capture timestamp in milliseconds as HH:MM:SS.mmm UTC.
func formatClock(ms int64) string {
	return time.UnixMilli(ms).UTC().Format("15:04:05.000")
}

func printResult(w io.Writer, result *runtime.Result, output string, outcome *runtime.Outcome, snap metrics.Snapshot) {
	fmt.Fprintf(w, "\nrun_id=%s, outcome=%s, duration=%s\n",
		result.RunMeta.RunID,
		outcome.Status,
		result.Duration.Round(time.Millisecond),
	)

	fmt.Fprintf(w, "\n=== Transcode Result ===\n")
	fmt.Fprintf(w, "Output:       %s\n", output)
	fmt.Fprintf(w, "Records:      %d (%d bytes)\n", result.Records, result.BytesIn)
	fmt.Fprintf(w, "Frames:       %d (%d keyframes, %d skipped)\n", len(result.Frames), result.Keyframes, result.Skipped)
	fmt.Fprintf(w, "Pool:         %d names, %d bytes saved\n", len(result.Pool.Declarations()), result.Pool.Saved())
	fmt.Fprintf(w, "Bytes Out:    %d\n", snap.BytesOut)
	if result.DroppedBytes > 0 {
		fmt.Fprintf(w, "Dropped:      %d trailing bytes\n", result.DroppedBytes)
	}
}

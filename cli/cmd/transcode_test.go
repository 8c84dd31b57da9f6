package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/reel/adapter"
	"github.com/pithecene-io/reel/emit"
	"github.com/pithecene-io/reel/runtime"
	"github.com/pithecene-io/reel/ttyrec"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		in       string
		wantCols int
		wantRows int
		wantErr  bool
	}{
		{"80x25", 80, 25, false},
		{"132X43", 132, 43, false},
		{"80", 0, 0, true},
		{"80x", 0, 0, true},
		{"x25", 0, 0, true},
		{"0x25", 0, 0, true},
		{"80x25x3", 0, 0, true},
		{"-80x25", 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			cols, rows, err := parseSize(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseSize(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if cols != tt.wantCols || rows != tt.wantRows {
				t.Errorf("parseSize(%q) = %dx%d, want %dx%d", tt.in, cols, rows, tt.wantCols, tt.wantRows)
			}
		})
	}
}

func TestDefaultOutput(t *testing.T) {
	tests := []struct {
		input  string
		format emit.Format
		gzip   bool
		want   string
	}{
		{"session.ttyrec", emit.FormatJS, false, "session.js"},
		{"casts/session.tty", emit.FormatJSON, false, filepath.Join("casts", "session.json")},
		{"session.ttyrec.gz", emit.FormatMsgpack, false, "session.msgpack"},
		{"session", emit.FormatJS, true, "session.js.gz"},
		{"-", emit.FormatJS, false, "-"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := defaultOutput(tt.input, tt.format, tt.gzip); got != tt.want {
				t.Errorf("defaultOutput(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestValidateChoice(t *testing.T) {
	valid := func() *transcodeChoice {
		return &transcodeChoice{
			input:            "in.tty",
			output:           "in.js",
			cols:             80,
			rows:             25,
			fps:              29.97,
			keyframeInterval: 128,
			encoding:         "utf-8",
			format:           emit.FormatJS,
		}
	}

	tests := []struct {
		name        string
		mutate      func(*transcodeChoice)
		errContains string
	}{
		{"valid", func(*transcodeChoice) {}, ""},
		{"zero rows", func(c *transcodeChoice) { c.rows = 0 }, "must be positive"},
		{"zero fps", func(c *transcodeChoice) { c.fps = 0 }, "--fps"},
		{"zero keyframe interval", func(c *transcodeChoice) { c.keyframeInterval = 0 }, "--keyframe-interval"},
		{"unknown encoding", func(c *transcodeChoice) { c.encoding = "klingon" }, "--encoding"},
		{"unknown backend", func(c *transcodeChoice) { c.storage.backend = "ftp" }, "--storage-backend"},
		{"backend without path", func(c *transcodeChoice) { c.storage.backend = "fs" }, "--storage-path is required"},
		{"backend with stdout", func(c *transcodeChoice) {
			c.storage = storageChoice{backend: "fs", path: "/tmp"}
			c.output = "-"
		}, "output name is required"},
		{"unknown adapter", func(c *transcodeChoice) { c.adapter.kind = "kafka" }, "--adapter"},
		{"adapter without url", func(c *transcodeChoice) { c.adapter.kind = "webhook" }, "--adapter-url is required"},
		{"negative retries", func(c *transcodeChoice) {
			c.adapter = adapterChoice{kind: "redis", url: "redis://localhost:6379", retries: -1}
		}, "--adapter-retries"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch := valid()
			tt.mutate(ch)
			err := validateChoice(ch)
			if tt.errContains == "" {
				if err != nil {
					t.Fatalf("validateChoice() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("validateChoice() error = %v, want containing %q", err, tt.errContains)
			}
		})
	}
}

// newTestApp creates a cli.App with TranscodeCommand wired up and
// ExitErrHandler suppressed so errors are returned instead of calling os.Exit.
func newTestApp(stdout, stderr io.Writer) *cli.App {
	app := cli.NewApp()
	app.Commands = []*cli.Command{TranscodeCommand(), InspectCommand()}
	app.Writer = stdout
	app.ErrWriter = stderr
	app.ExitErrHandler = func(*cli.Context, error) {} // suppress os.Exit
	return app
}

func writeCapture(t *testing.T, dir string) string {
	t.Helper()
	var buf []byte
	buf = ttyrec.AppendRecord(buf, 0, 0, []byte("A"))
	buf = ttyrec.AppendRecord(buf, 0, 40_000, []byte("B"))
	path := filepath.Join(dir, "session.ttyrec")
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	if err == nil {
		return runtime.ExitCodeSuccess
	}
	var exitCoder cli.ExitCoder
	if !errors.As(err, &exitCoder) {
		t.Fatalf("error %v is not a cli.ExitCoder", err)
	}
	return exitCoder.ExitCode()
}

func TestTranscode_WritesJSArtifact(t *testing.T) {
	dir := t.TempDir()
	input := writeCapture(t, dir)

	var stdout, stderr bytes.Buffer
	err := newTestApp(&stdout, &stderr).Run([]string{"reel", "transcode", "--quiet", input})
	if code := exitCode(t, err); code != runtime.ExitCodeSuccess {
		t.Fatalf("exit code = %d, want 0 (err: %v)", code, err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "session.js"))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	script := string(data)
	if !strings.HasPrefix(script, ";(function(") {
		t.Errorf("artifact should start with the loader prologue, got %q", script[:min(20, len(script))])
	}
	for _, want := range []string{`k(33,[d(0,0,"A",`, `f(73,[`, `d(0,1,"B",`} {
		if !strings.Contains(script, want) {
			t.Errorf("artifact missing %q:\n%s", want, script)
		}
	}
}

func TestTranscode_JSONToStdout(t *testing.T) {
	dir := t.TempDir()
	input := writeCapture(t, dir)

	var stdout, stderr bytes.Buffer
	err := newTestApp(&stdout, &stderr).Run([]string{"reel", "transcode", "--quiet", "--format", "json", input, "-"})
	if code := exitCode(t, err); code != runtime.ExitCodeSuccess {
		t.Fatalf("exit code = %d, want 0 (err: %v)", code, err)
	}

	doc, format, err := emit.Decode(stdout.Bytes())
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if format != emit.FormatJSON {
		t.Errorf("format = %v, want json", format)
	}
	if len(doc.Frames) != 2 || !doc.Frames[0].Key || doc.Frames[1].Key {
		t.Errorf("frames = %+v, want keyframe then delta", doc.Frames)
	}
}

func TestTranscode_SizeFlag(t *testing.T) {
	dir := t.TempDir()
	input := writeCapture(t, dir)
	output := filepath.Join(dir, "out.json")

	var stdout, stderr bytes.Buffer
	err := newTestApp(&stdout, &stderr).Run([]string{"reel", "transcode", "--quiet", "--format", "json", "--size", "40x10", input, output})
	if code := exitCode(t, err); code != runtime.ExitCodeSuccess {
		t.Fatalf("exit code = %d, want 0 (err: %v)", code, err)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	doc, _, err := emit.Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if doc.Cols != 40 || doc.Rows != 10 {
		t.Errorf("geometry = %dx%d, want 40x10", doc.Cols, doc.Rows)
	}
}

func TestTranscode_InvalidSizeIsUsageError(t *testing.T) {
	dir := t.TempDir()
	input := writeCapture(t, dir)

	var stdout, stderr bytes.Buffer
	err := newTestApp(&stdout, &stderr).Run([]string{"reel", "transcode", "--size", "eighty", input})
	if code := exitCode(t, err); code != runtime.ExitCodeUsage {
		t.Errorf("exit code = %d, want %d", code, runtime.ExitCodeUsage)
	}
	if !strings.Contains(err.Error(), "CxR") {
		t.Errorf("error should explain the CxR form, got: %v", err)
	}
}

func TestTranscode_MissingInput(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := newTestApp(&stdout, &stderr).Run([]string{"reel", "transcode"})
	if code := exitCode(t, err); code != runtime.ExitCodeUsage {
		t.Errorf("exit code = %d, want %d", code, runtime.ExitCodeUsage)
	}
}

func TestTranscode_MalformedCapture(t *testing.T) {
	dir := t.TempDir()
	capture := ttyrec.AppendRecord(nil, 0, 0, []byte("hello"))
	input := filepath.Join(dir, "broken.ttyrec")
	if err := os.WriteFile(input, capture[:len(capture)-2], 0o644); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	err := newTestApp(&stdout, &stderr).Run([]string{"reel", "transcode", "--quiet", input})
	if code := exitCode(t, err); code != runtime.ExitCodeMalformed {
		t.Errorf("exit code = %d, want %d (err: %v)", code, runtime.ExitCodeMalformed, err)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "broken.js")); !os.IsNotExist(statErr) {
		t.Error("no artifact should be written for a malformed capture")
	}
}

func TestTranscode_ConfigFileNotFound(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := newTestApp(&stdout, &stderr).Run([]string{"reel", "transcode", "--config", "/nonexistent/reel.yaml", "in.tty"})
	if code := exitCode(t, err); code != runtime.ExitCodeUsage {
		t.Errorf("exit code = %d, want %d", code, runtime.ExitCodeUsage)
	}
	if !strings.Contains(err.Error(), "config file not found") {
		t.Errorf("error should mention config file not found, got: %v", err)
	}
}

func TestTranscode_ConfigSuppliesFormat(t *testing.T) {
	dir := t.TempDir()
	input := writeCapture(t, dir)
	configPath := filepath.Join(dir, "reel.yaml")
	if err := os.WriteFile(configPath, []byte("format: msgpack\ngzip: true\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	err := newTestApp(&stdout, &stderr).Run([]string{"reel", "transcode", "--quiet", "--config", configPath, input})
	if code := exitCode(t, err); code != runtime.ExitCodeSuccess {
		t.Fatalf("exit code = %d, want 0 (err: %v)", code, err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "session.msgpack.gz"))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if _, format, err := emit.Decode(data); err != nil || format != emit.FormatMsgpack {
		t.Errorf("Decode() = %v, %v, want msgpack", format, err)
	}
}

func TestTranscode_FSStorageBackend(t *testing.T) {
	dir := t.TempDir()
	input := writeCapture(t, dir)
	root := filepath.Join(dir, "store")
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	err := newTestApp(&stdout, &stderr).Run([]string{"reel", "transcode", "--quiet", "--format", "json",
		"--storage-backend", "fs", "--storage-path", root, input})
	if code := exitCode(t, err); code != runtime.ExitCodeSuccess {
		t.Fatalf("exit code = %d, want 0 (err: %v)", code, err)
	}

	// Read it back through inspect against the same backend.
	stdout.Reset()
	err = newTestApp(&stdout, &stderr).Run([]string{"reel", "inspect", "--format", "json",
		"--storage-backend", "fs", "--storage-path", root, "session.json"})
	if err != nil {
		t.Fatalf("inspect error = %v", err)
	}
	var summary struct {
		Frames    int `json:"frames"`
		Keyframes int `json:"keyframes"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &summary); err != nil {
		t.Fatalf("unmarshal summary: %v\n%s", err, stdout.String())
	}
	if summary.Frames != 2 || summary.Keyframes != 1 {
		t.Errorf("summary = %+v, want 2 frames, 1 keyframe", summary)
	}
}

func TestTranscode_WebhookNotified(t *testing.T) {
	var received adapter.TranscodeCompletedEvent
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &received)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	dir := t.TempDir()
	input := writeCapture(t, dir)

	var stdout, stderr bytes.Buffer
	err := newTestApp(&stdout, &stderr).Run([]string{"reel", "transcode", "--quiet",
		"--adapter", "webhook", "--adapter-url", ts.URL, "--adapter-retries", "0", input})
	if code := exitCode(t, err); code != runtime.ExitCodeSuccess {
		t.Fatalf("exit code = %d, want 0 (err: %v)", code, err)
	}

	if received.EventType != adapter.EventTypeTranscodeCompleted {
		t.Errorf("EventType = %q, want %q", received.EventType, adapter.EventTypeTranscodeCompleted)
	}
	if received.Frames != 2 || received.Keyframes != 1 {
		t.Errorf("event frames = %d/%d, want 2/1", received.Frames, received.Keyframes)
	}
	if received.Output != filepath.Join(dir, "session.js") {
		t.Errorf("Output = %q, want the artifact path", received.Output)
	}
}

func TestTranscode_AdapterFailureKeepsArtifact(t *testing.T) {
	var attempts atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer ts.Close()

	dir := t.TempDir()
	input := writeCapture(t, dir)
	reportPath := filepath.Join(dir, "report.json")

	var stdout, stderr bytes.Buffer
	err := newTestApp(&stdout, &stderr).Run([]string{"reel", "transcode", "--quiet",
		"--adapter", "webhook", "--adapter-url", ts.URL, "--report", reportPath, input})
	if code := exitCode(t, err); code != runtime.ExitCodeAdapter {
		t.Fatalf("exit code = %d, want %d (err: %v)", code, runtime.ExitCodeAdapter, err)
	}
	if got := attempts.Load(); got != 1 {
		t.Errorf("attempts = %d, want 1 (4xx is not retried)", got)
	}
	if _, err := os.Stat(filepath.Join(dir, "session.js")); err != nil {
		t.Errorf("artifact should stay written: %v", err)
	}

	data, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatalf("ReadFile(report) error = %v", err)
	}
	var report struct {
		Outcome  string `json:"outcome"`
		ExitCode int    `json:"exit_code"`
	}
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("unmarshal report: %v", err)
	}
	if report.Outcome != string(runtime.OutcomeAdapterError) || report.ExitCode != runtime.ExitCodeAdapter {
		t.Errorf("report = %+v, want adapter_error / %d", report, runtime.ExitCodeAdapter)
	}
}

func TestTranscode_ProgressLines(t *testing.T) {
	dir := t.TempDir()
	input := writeCapture(t, dir)

	var stdout, stderr bytes.Buffer
	err := newTestApp(&stdout, &stderr).Run([]string{"reel", "transcode", "--progress", "--log-level", "error", input})
	if code := exitCode(t, err); code != runtime.ExitCodeSuccess {
		t.Fatalf("exit code = %d, want 0 (err: %v)", code, err)
	}

	out := stderr.String()
	if !strings.Contains(out, "frame 2 (0 skipped) @ 00:00:00.073") {
		t.Errorf("stderr missing final progress line:\n%s", out)
	}
	if !strings.Contains(out, "=== Transcode Result ===") {
		t.Errorf("stderr missing result summary:\n%s", out)
	}
}

func TestFormatClock(t *testing.T) {
	if got := formatClock(3_723_004); got != "01:02:03.004" {
		t.Errorf("formatClock() = %q, want 01:02:03.004", got)
	}
}

package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/pithecene-io/reel/types"
)

func TestLogger_RunContextFields(t *testing.T) {
	meta := &types.RunMeta{RunID: "0190f4a6-0000-7000-8000-000000000000", Input: "demo.tty"}
	var buf bytes.Buffer
	logger := NewLogger(meta).WithOutput(&buf)

	logger.Info("transcode completed", map[string]any{"frames": 2})

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	if entry["run_id"] != meta.RunID {
		t.Errorf("run_id = %v, want %v", entry["run_id"], meta.RunID)
	}
	if entry["input"] != "demo.tty" {
		t.Errorf("input = %v, want demo.tty", entry["input"])
	}
	if entry["level"] != "info" || entry["message"] != "transcode completed" {
		t.Errorf("entry = %v", entry)
	}
	fields, ok := entry["fields"].(map[string]any)
	if !ok || fields["frames"] != float64(2) {
		t.Errorf("fields = %v, want frames=2", entry["fields"])
	}
}

func TestLogger_WithLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&types.RunMeta{RunID: "r", Input: "-"}).WithOutput(&buf).WithLevel("warn")

	logger.Info("hidden", nil)
	logger.Warn("shown", nil)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info entry written at warn level: %s", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("warn entry missing: %s", out)
	}
}

func TestLogger_ContextSurvivesRewiring(t *testing.T) {
	meta := &types.RunMeta{RunID: "run-1", Input: "a.tty"}
	var first, second bytes.Buffer
	base := NewLogger(meta).WithOutput(&first).WithLevel("info")
	moved := base.WithOutput(&second)

	moved.Warn("notification failed", nil)

	if first.Len() != 0 {
		t.Errorf("entry written to the old output: %s", first.String())
	}
	var entry map[string]any
	if err := json.Unmarshal(second.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, second.String())
	}
	if entry["run_id"] != "run-1" || entry["input"] != "a.tty" {
		t.Errorf("context = run_id %v input %v, want run-1 a.tty", entry["run_id"], entry["input"])
	}
}

func TestNop(t *testing.T) {
	logger := Nop()
	logger.Error("nothing", map[string]any{"k": "v"})
	logger.Sugar().Infof("nothing %d", 1)
}

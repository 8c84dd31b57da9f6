package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/reel/runtime"
)

func TestExitErrHandler_NilError(t *testing.T) {
	// Should not panic or exit on nil error
	exitErrHandler(nil, nil)
}

func TestReportExit(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantOut  string
	}{
		{"usage", cli.Exit("missing input", runtime.ExitCodeUsage), 1, "missing input\n"},
		{"malformed capture", cli.Exit("truncated record", runtime.ExitCodeMalformed), 2, "truncated record\n"},
		{"output failure", cli.Exit("store write failed", runtime.ExitCodeOutput), 3, "store write failed\n"},
		{"adapter failure", cli.Exit("webhook returned 500", runtime.ExitCodeAdapter), 4, "webhook returned 500\n"},
		{"empty message", cli.Exit("", 2), 2, ""},
		{"wrapped exit coder", errors.Join(errors.New("context"), cli.Exit("inner error", 42)), 42, "inner error\n"},
		{"regular error", errors.New("boom"), 1, "Error: boom\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if code := reportExit(&buf, tt.err); code != tt.wantCode {
				t.Errorf("reportExit() = %d, want %d", code, tt.wantCode)
			}
			if buf.String() != tt.wantOut {
				t.Errorf("output = %q, want %q", buf.String(), tt.wantOut)
			}
		})
	}
}

// TestExitCodes_Distinct guards against two outcomes sharing a code.
func TestExitCodes_Distinct(t *testing.T) {
	codes := []int{
		runtime.ExitCodeSuccess,
		runtime.ExitCodeUsage,
		runtime.ExitCodeMalformed,
		runtime.ExitCodeOutput,
		runtime.ExitCodeAdapter,
	}
	seen := make(map[int]bool)
	for _, c := range codes {
		if seen[c] {
			t.Errorf("exit code %d used twice", c)
		}
		seen[c] = true
	}
}

package runtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pithecene-io/reel/metrics"
)

// RunReport is the structured JSON report written by --report.
type RunReport struct {
	RunID      string        `json:"run_id"`
	Input      string        `json:"input"`
	Output     string        `json:"output,omitempty"`
	Format     string        `json:"format"`
	Outcome    OutcomeStatus `json:"outcome"`
	Message    string        `json:"message"`
	ExitCode   int           `json:"exit_code"`
	DurationMs int64         `json:"duration_ms"`

	Capture *ReportCapture    `json:"capture,omitempty"`
	Frames  *ReportFrames     `json:"frames,omitempty"`
	Pool    *ReportPool       `json:"pool,omitempty"`
	Metrics *metrics.Snapshot `json:"metrics"`
}

// ReportCapture holds input stats in the report.
type ReportCapture struct {
	Records      int `json:"records"`
	Bytes        int `json:"bytes"`
	DroppedBytes int `json:"dropped_bytes"`
}

// ReportFrames holds sampling stats in the report.
type ReportFrames struct {
	Total     int `json:"total"`
	Keyframes int `json:"keyframes"`
	Events    int `json:"events"`
	Skipped   int `json:"skipped"`
}

// ReportPool holds literal pool stats in the report.
type ReportPool struct {
	Candidates int      `json:"candidates"`
	Accepted   int      `json:"accepted"`
	SavedBytes int      `json:"saved_bytes"`
	Names      []string `json:"names"`
}

// ReportInput names what a report describes.
type ReportInput struct {
	Input  string
	Output string
	Format string
}

// BuildRunReport composes a RunReport. result may be nil when the run
// failed before producing frames; the outcome still comes from err.
func BuildRunReport(in ReportInput, result *Result, err error, snap metrics.Snapshot) *RunReport {
	outcome := DetermineOutcome(err)
	report := &RunReport{
		RunID:    snap.RunID,
		Input:    in.Input,
		Output:   in.Output,
		Format:   in.Format,
		Outcome:  outcome.Status,
		Message:  outcome.Message,
		ExitCode: outcome.ExitCode(),
		Metrics:  &snap,
	}
	if result == nil {
		return report
	}

	report.RunID = result.RunMeta.RunID
	report.DurationMs = result.Duration.Milliseconds()
	report.Capture = &ReportCapture{
		Records:      result.Records,
		Bytes:        result.BytesIn,
		DroppedBytes: result.DroppedBytes,
	}
	report.Frames = &ReportFrames{
		Total:     len(result.Frames),
		Keyframes: result.Keyframes,
		Events:    result.Events,
		Skipped:   result.Skipped,
	}

	decls := result.Pool.Declarations()
	names := make([]string, len(decls))
	for i, d := range decls {
		names[i] = d.Name
	}
	report.Pool = &ReportPool{
		Candidates: len(result.Pool.Entries()),
		Accepted:   len(decls),
		SavedBytes: result.Pool.Saved(),
		Names:      names,
	}
	return report
}

// WriteRunReport writes the report as JSON to the specified path.
// If path is "-", writes to stderr.
func WriteRunReport(report *RunReport, path string) error {
	if path == "" {
		return errors.New("report path must not be empty")
	}
	if path == "-" {
		if err := writeRunReportTo(report, os.Stderr); err != nil {
			return fmt.Errorf("failed to write report to stderr: %w", err)
		}
		return nil
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to write report to %s: %w", path, err)
	}
	if err := writeRunReportTo(report, f); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write report to %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write report to %s: %w", path, err)
	}
	return nil
}

// writeRunReportTo writes report JSON to any writer.
func writeRunReportTo(report *RunReport, w io.Writer) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

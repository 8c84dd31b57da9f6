// Package types defines the shared data model of the reel transcoder:
// capture chunks, screen snapshots, frames and their operations.
//
//nolint:revive // types is a common Go package naming convention
package types

import (
	"errors"

	"github.com/google/uuid"
)

// RunMeta identifies one transcoding run. Every log line and report of
// the run carries it.
type RunMeta struct {
	// RunID is a UUIDv7, time-sortable across runs.
	RunID string
	// Input is the capture path (or "-" for stdin).
	Input string
}

// NewRunMeta returns run metadata with a fresh run id.
func NewRunMeta(input string) *RunMeta {
	return &RunMeta{
		RunID: uuid.Must(uuid.NewV7()).String(),
		Input: input,
	}
}

// Validate checks that the run id is present and parses as a UUID.
func (r *RunMeta) Validate() error {
	if r.RunID == "" {
		return errors.New("run_id must be non-empty")
	}
	if _, err := uuid.Parse(r.RunID); err != nil {
		return errors.New("run_id must be a UUID")
	}
	return nil
}

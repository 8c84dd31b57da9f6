// Package adapter defines the completion notification boundary.
//
// Adapters tell downstream systems that an artifact has been written.
// The CLI owns adapter lifecycle; users provide configuration only.
package adapter

import (
	"context"
	"fmt"
	"time"
)

// EventTypeTranscodeCompleted is the event_type of every published event.
const EventTypeTranscodeCompleted = "transcode_completed"

// ContractVersion is the version of the event payload shape.
const ContractVersion = "0.1.0"

// TranscodeCompletedEvent is the payload published after an artifact is written.
type TranscodeCompletedEvent struct {
	ContractVersion string   `json:"contract_version"`
	EventType       string   `json:"event_type"` // always "transcode_completed"
	RunID           string   `json:"run_id"`
	Input           string   `json:"input"`
	Output          string   `json:"output"` // path or storage key
	Format          string   `json:"format"`
	Frames          int      `json:"frames"`
	Keyframes       int      `json:"keyframes"`
	PoolNames       []string `json:"pool_names"`
	BytesIn         int      `json:"bytes_in"`
	BytesOut        int      `json:"bytes_out"`
	DurationMs      int64    `json:"duration_ms"`
	Timestamp       string   `json:"timestamp"` // RFC 3339
}

// Adapter publishes completion events to a downstream system.
// Implementations are used once per run.
type Adapter interface {
	// Publish sends a completion event to the downstream system.
	// Must respect context cancellation and deadlines.
	Publish(ctx context.Context, event *TranscodeCompletedEvent) error

	// Close releases adapter resources.
	Close() error
}

// DefaultBackoff is the delay before the first retry. Each further retry
// doubles it.
const DefaultBackoff = 500 * time.Millisecond

// Retry calls fn up to 1+retries times, sleeping base·2^(i-1) before
// attempt i. It stops early when fn succeeds, when ctx is done, or when
// permanent reports the error as non-retriable.
func Retry(ctx context.Context, retries int, base time.Duration, permanent func(error) bool, fn func(context.Context) error) error {
	var lastErr error
	attempts := 1 + retries

	for i := range attempts {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("context canceled: %w", err)
		}

		if i > 0 {
			backoff := time.Duration(1<<uint(i-1)) * base
			select {
			case <-ctx.Done():
				return fmt.Errorf("context canceled during backoff: %w", ctx.Err())
			case <-time.After(backoff):
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if permanent != nil && permanent(lastErr) {
			return fmt.Errorf("non-retriable error: %w", lastErr)
		}
	}

	return fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}

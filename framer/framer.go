// Package framer materializes sample requests into frames, applying the
// keyframe policy.
package framer

import (
	"fmt"
	"math"

	"github.com/pithecene-io/reel/diff"
	"github.com/pithecene-io/reel/emulator"
	"github.com/pithecene-io/reel/types"
)

// DefaultKeyframeInterval is the number of frames from one keyframe to
// the next.
const DefaultKeyframeInterval = 128

// DiffEngineError wraps a differ failure. It is fatal to the run.
type DiffEngineError struct {
	// Frame is the index the failed frame would have had.
	Frame int
	Time  int64
	Err   error
}

func (e *DiffEngineError) Error() string {
	return fmt.Sprintf("diff engine failed at frame %d (t=%dms): %v", e.Frame, e.Time, e.Err)
}

func (e *DiffEngineError) Unwrap() error { return e.Err }

// Builder accumulates frames for one run.
type Builder struct {
	emu      emulator.Emulator
	differ   diff.Differ
	interval int

	prior     *types.Screen
	sinceKey  int
	frames    []types.Frame
	keyframes int
}

// New creates a builder. An interval below 1 selects
// DefaultKeyframeInterval.
func New(emu emulator.Emulator, differ diff.Differ, interval int) *Builder {
	if interval < 1 {
		interval = DefaultKeyframeInterval
	}
	return &Builder{emu: emu, differ: differ, interval: interval}
}

// Sample appends the frame for time t (milliseconds). The first frame,
// and every interval-th frame after a keyframe, is a keyframe diffed
// against a blank screen.
func (b *Builder) Sample(t float64) error {
	key := b.prior == nil || b.sinceKey >= b.interval
	if key {
		b.prior = nil
		b.sinceKey = 0
	}

	ts := roundMillis(t)
	current := b.emu.Snapshot()
	ops, err := b.differ.Diff(b.prior, current)
	if err != nil {
		return &DiffEngineError{Frame: len(b.frames), Time: ts, Err: err}
	}

	b.frames = append(b.frames, types.Frame{Key: key, Time: ts, Ops: ops})
	if key {
		b.keyframes++
	}
	b.prior = current
	b.sinceKey++
	return nil
}

// Frames returns the frames built so far, in playback order.
func (b *Builder) Frames() []types.Frame { return b.frames }

// Keyframes returns how many of the frames are keyframes.
func (b *Builder) Keyframes() int { return b.keyframes }

// roundMillis rounds half up to an integer millisecond.
func roundMillis(t float64) int64 {
	return int64(math.Floor(t + 0.5))
}

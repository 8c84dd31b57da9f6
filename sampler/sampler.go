// Package sampler throttles a stream of timed write events into frame
// sample requests at a fixed minimum interval.
package sampler

import "math"

// DefaultFrameRate is the NTSC frame rate the player targets.
const DefaultFrameRate = 29.97

// DefaultPeriod is the minimum frame period in milliseconds.
var DefaultPeriod = PeriodFor(DefaultFrameRate)

// PeriodFor returns the frame period in milliseconds for a frame rate.
func PeriodFor(fps float64) float64 {
	return 1000 / fps
}

// Sampler coalesces events closer together than its period into a single
// sample. The sample for a window is requested at the window's scheduled
// end, by the first event at or past it.
type Sampler struct {
	period    float64
	next      float64
	scheduled bool

	events  int
	samples int
}

// New creates a sampler with the given period in milliseconds.
func New(period float64) *Sampler {
	return &Sampler{period: period}
}

// Step records an event at time t. It returns the time of the sample to
// take before the event is applied, if one is due.
func (s *Sampler) Step(t float64) (sampleAt float64, ok bool) {
	s.events++
	return s.step(t)
}

func (s *Sampler) step(t float64) (sampleAt float64, ok bool) {
	if s.scheduled && t >= s.next {
		sampleAt, ok = s.next, true
		s.scheduled = false
		s.samples++
	}
	if !s.scheduled && !math.IsInf(t, 1) {
		s.next = t + s.period
		s.scheduled = true
	}
	return sampleAt, ok
}

// Flush forces out the pending sample at end of stream. With no events
// seen there is nothing pending and no sample.
func (s *Sampler) Flush() (sampleAt float64, ok bool) {
	return s.step(math.Inf(1))
}

// Period returns the sampler period in milliseconds.
func (s *Sampler) Period() float64 { return s.period }

// Events returns the number of events stepped.
func (s *Sampler) Events() int { return s.events }

// Samples returns the number of samples requested, including the flush.
func (s *Sampler) Samples() int { return s.samples }

// Skipped returns how many events were coalesced into another event's
// frame.
func (s *Sampler) Skipped() int { return s.events - s.samples }

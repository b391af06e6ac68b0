package viewer

import (
	"sync"
	"time"
)

// SlackMS is the largest wall-clock gap the accumulator catches up on.
const SlackMS = 35.0

// Accumulator keeps simulated time in step with wall-clock time using
// fixed-size steps. Marker is in milliseconds.
type Accumulator struct {
	Marker float64
	StepMS float64
}

func NewAccumulator(start, stepMS float64) *Accumulator {
	return &Accumulator{Marker: start, StepMS: stepMS}
}

// Advance runs step until the marker reaches now and returns the number of
// steps taken. After a gap larger than SlackMS the marker snaps to now and
// no steps run. The marker never moves backward.
func (a *Accumulator) Advance(now float64, step func()) int {
	if now-a.Marker > SlackMS {
		a.Marker = now
		return 0
	}
	if a.StepMS <= 0 {
		return 0
	}
	n := 0
	for a.Marker < now {
		step()
		a.Marker += a.StepMS
		n++
	}
	return n
}

// Sync moves the marker to now unless that would move it backward.
func (a *Accumulator) Sync(now float64) {
	if now > a.Marker {
		a.Marker = now
	}
}

type FrameFunc func(now time.Time)

// Scheduler requests a callback for the next display frame. The returned
// function cancels the request if it has not fired.
type Scheduler interface {
	Request(fn FrameFunc) (cancel func())
}

// TickerScheduler fires frames from a timer goroutine at a fixed rate.
// Frames are stamped with Clock, or the wall clock when it is nil; a
// viewer given a ticker without a clock fills in its own.
type TickerScheduler struct {
	Interval time.Duration
	Clock    func() time.Time
}

func NewTickerScheduler(fps int) TickerScheduler {
	if fps <= 0 {
		fps = 60
	}
	return TickerScheduler{Interval: time.Second / time.Duration(fps)}
}

func (s TickerScheduler) Request(fn FrameFunc) func() {
	now := s.Clock
	if now == nil {
		now = time.Now
	}
	t := time.AfterFunc(s.Interval, func() { fn(now()) })
	return func() { t.Stop() }
}

// ManualScheduler holds at most one pending frame until Fire is called.
// It drives the viewer from an external loop such as a TUI tick or a test.
type ManualScheduler struct {
	mu      sync.Mutex
	pending FrameFunc
	seq     uint64
}

func (s *ManualScheduler) Request(fn FrameFunc) func() {
	s.mu.Lock()
	s.seq++
	id := s.seq
	s.pending = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		if s.seq == id {
			s.pending = nil
		}
		s.mu.Unlock()
	}
}

func (s *ManualScheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending != nil
}

// Fire runs the pending frame, if any, and reports whether one ran.
func (s *ManualScheduler) Fire(now time.Time) bool {
	s.mu.Lock()
	fn := s.pending
	s.pending = nil
	s.mu.Unlock()

	if fn == nil {
		return false
	}
	fn(now)
	return true
}

// Package scheduler arms a single cancellable callback for a wall-clock
// instant and delivers it on an event loop.
package scheduler

import (
	"sync"
	"time"

	"k8s.io/utils/clock"
)

// Poster hands a callback to the goroutine that owns the caller's state.
// *eventloop.Loop implements it.
type Poster interface {
	Post(fn func()) bool
}

// Scheduler holds at most one pending callback. Arm always cancels the
// previous one before arming the next.
type Scheduler struct {
	clock  clock.Clock
	poster Poster

	mu      sync.Mutex
	gen     uint64
	pending bool
	timer   clock.Timer
	stop    chan struct{}
}

func New(c clock.Clock, p Poster) *Scheduler {
	return &Scheduler{clock: c, poster: p}
}

// Arm schedules fn to run once at instant at. A non-positive delay posts fn
// right away so it runs on the next loop turn.
func (s *Scheduler) Arm(at time.Time, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelLocked()

	s.gen++
	gen := s.gen
	s.pending = true

	delay := at.Sub(s.clock.Now())
	if delay <= 0 {
		s.poster.Post(func() { s.fire(gen, fn) })
		return
	}

	timer := s.clock.NewTimer(delay)
	stop := make(chan struct{})
	s.timer = timer
	s.stop = stop

	go func() {
		select {
		case <-timer.C():
			s.poster.Post(func() { s.fire(gen, fn) })
		case <-stop:
		}
	}()
}

// Cancel disarms the pending callback, if any.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
}

// Pending reports whether a callback is armed and has not run yet.
func (s *Scheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

func (s *Scheduler) cancelLocked() {
	if s.timer != nil {
		s.timer.Stop()
		close(s.stop)
		s.timer = nil
		s.stop = nil
	}
	// Invalidate anything already posted but not yet run.
	s.gen++
	s.pending = false
}

// fire runs on the poster's goroutine. Stale generations are dropped.
func (s *Scheduler) fire(gen uint64, fn func()) {
	s.mu.Lock()
	if gen != s.gen || !s.pending {
		s.mu.Unlock()
		return
	}
	s.pending = false
	s.timer = nil
	s.stop = nil
	s.mu.Unlock()

	fn()
}

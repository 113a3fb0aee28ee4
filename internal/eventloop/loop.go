// Package eventloop runs callbacks one at a time on a single goroutine.
//
// Components that must never observe their own state concurrently (the
// session supervisor, its timers and its change notifications) post all work
// to one Loop instead of taking locks around every step.
package eventloop

import (
	"context"
	"errors"
	"sync"
)

// ErrStopped is returned by Do once the loop no longer runs callbacks.
var ErrStopped = errors.New("event loop stopped")

// Loop is an unbounded FIFO of callbacks drained by Run.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	stopped bool
	wake    chan struct{}
	done    chan struct{}
}

func New() *Loop {
	return &Loop{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Post enqueues fn. It never blocks and may be called from inside a running
// callback. It returns false once the loop has stopped.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Do posts fn and waits until it has run, the loop stopped, or ctx is done.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	ran := make(chan struct{})
	if !l.Post(func() {
		fn()
		close(ran)
	}) {
		return ErrStopped
	}

	select {
	case <-ran:
		return nil
	case <-l.done:
		// Run may have executed fn right before stopping.
		select {
		case <-ran:
			return nil
		default:
			return ErrStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run drains the queue until ctx is cancelled or Stop is called. Callbacks
// still queued at that point are discarded.
func (l *Loop) Run(ctx context.Context) {
	defer close(l.done)

	for {
		fn, ok := l.next()
		if !ok {
			return
		}
		if fn != nil {
			fn()
			continue
		}

		select {
		case <-l.wake:
		case <-ctx.Done():
			l.Stop()
			return
		}
	}
}

// next pops one callback. It reports ok=false when the loop stopped and
// fn=nil when the queue is empty.
func (l *Loop) next() (fn func(), ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stopped {
		return nil, false
	}
	if len(l.queue) == 0 {
		return nil, true
	}
	fn = l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return fn, true
}

// Stop prevents further callbacks from being queued or run. A callback that
// is executing when Stop is called finishes normally.
func (l *Loop) Stop() {
	l.mu.Lock()
	l.stopped = true
	l.queue = nil
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Done is closed when Run returns.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

package scheduler

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clocktesting "k8s.io/utils/clock/testing"
)

// queuePoster collects posted callbacks so tests decide when they run.
type queuePoster struct {
	mu    sync.Mutex
	queue []func()
}

func (q *queuePoster) Post(fn func()) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.queue = append(q.queue, fn)
	return true
}

func (q *queuePoster) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queue)
}

func (q *queuePoster) drain() {
	q.mu.Lock()
	fns := q.queue
	q.queue = nil
	q.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

var start = time.Unix(1_700_000_000, 0)

const waitFor = 2 * time.Second
const tick = 5 * time.Millisecond

func TestScheduler_FiresOnceAtInstant(t *testing.T) {
	fc := clocktesting.NewFakeClock(start)
	q := &queuePoster{}
	s := New(fc, q)

	var fired atomic.Int32
	s.Arm(start.Add(time.Minute), func() { fired.Add(1) })
	require.True(t, s.Pending())

	fc.Step(time.Minute - time.Second)
	require.Never(t, func() bool { return q.len() > 0 }, 50*time.Millisecond, tick)

	fc.Step(time.Second)
	require.Eventually(t, func() bool { return q.len() == 1 }, waitFor, tick)
	q.drain()
	assert.Equal(t, int32(1), fired.Load())
	assert.False(t, s.Pending())

	fc.Step(time.Hour)
	require.Never(t, func() bool { return q.len() > 0 }, 50*time.Millisecond, tick)
	assert.Equal(t, int32(1), fired.Load())
}

func TestScheduler_ArmCancelsPrevious(t *testing.T) {
	fc := clocktesting.NewFakeClock(start)
	q := &queuePoster{}
	s := New(fc, q)

	var first, second atomic.Int32
	s.Arm(start.Add(time.Minute), func() { first.Add(1) })
	s.Arm(start.Add(2*time.Minute), func() { second.Add(1) })

	assert.True(t, fc.HasWaiters())

	fc.Step(3 * time.Minute)
	require.Eventually(t, func() bool { return q.len() == 1 }, waitFor, tick)
	q.drain()

	assert.Equal(t, int32(0), first.Load())
	assert.Equal(t, int32(1), second.Load())
	assert.False(t, fc.HasWaiters())
}

func TestScheduler_RearmSameInstantLeavesOneTimer(t *testing.T) {
	fc := clocktesting.NewFakeClock(start)
	q := &queuePoster{}
	s := New(fc, q)

	var fired atomic.Int32
	at := start.Add(10 * time.Second)
	s.Arm(at, func() { fired.Add(1) })
	s.Arm(at, func() { fired.Add(1) })

	fc.Step(10 * time.Second)
	require.Eventually(t, func() bool { return q.len() >= 1 }, waitFor, tick)
	require.Never(t, func() bool { return q.len() > 1 }, 50*time.Millisecond, tick)
	q.drain()

	assert.Equal(t, int32(1), fired.Load())
}

func TestScheduler_CancelPreventsFire(t *testing.T) {
	fc := clocktesting.NewFakeClock(start)
	q := &queuePoster{}
	s := New(fc, q)

	s.Arm(start.Add(time.Second), func() { t.Error("cancelled callback ran") })
	s.Cancel()
	assert.False(t, s.Pending())
	assert.False(t, fc.HasWaiters())

	fc.Step(time.Minute)
	require.Never(t, func() bool { return q.len() > 0 }, 50*time.Millisecond, tick)
}

func TestScheduler_CancelWhenIdleIsNoop(t *testing.T) {
	s := New(clocktesting.NewFakeClock(start), &queuePoster{})
	s.Cancel()
	s.Cancel()
	assert.False(t, s.Pending())
}

func TestScheduler_PastInstantPostsImmediately(t *testing.T) {
	fc := clocktesting.NewFakeClock(start)
	q := &queuePoster{}
	s := New(fc, q)

	var fired atomic.Int32
	s.Arm(start.Add(-time.Hour), func() { fired.Add(1) })

	// No time advance needed.
	require.Equal(t, 1, q.len())
	assert.False(t, fc.HasWaiters())
	q.drain()
	assert.Equal(t, int32(1), fired.Load())
}

func TestScheduler_NowInstantPostsImmediately(t *testing.T) {
	fc := clocktesting.NewFakeClock(start)
	q := &queuePoster{}
	s := New(fc, q)

	var fired atomic.Int32
	s.Arm(start, func() { fired.Add(1) })
	q.drain()
	assert.Equal(t, int32(1), fired.Load())
}

func TestScheduler_CancelAfterTimerFiredDropsQueuedCallback(t *testing.T) {
	fc := clocktesting.NewFakeClock(start)
	q := &queuePoster{}
	s := New(fc, q)

	s.Arm(start.Add(time.Second), func() { t.Error("stale callback ran") })
	fc.Step(time.Second)
	require.Eventually(t, func() bool { return q.len() == 1 }, waitFor, tick)

	// The fire is queued but has not run yet.
	s.Cancel()
	q.drain()
}

func TestScheduler_RearmAfterImmediatePostDropsStaleFire(t *testing.T) {
	fc := clocktesting.NewFakeClock(start)
	q := &queuePoster{}
	s := New(fc, q)

	var stale, fresh atomic.Int32
	s.Arm(start.Add(-time.Second), func() { stale.Add(1) })
	s.Arm(start.Add(time.Minute), func() { fresh.Add(1) })

	q.drain()
	assert.Equal(t, int32(0), stale.Load())
	assert.True(t, s.Pending())

	fc.Step(time.Minute)
	require.Eventually(t, func() bool { return q.len() == 1 }, waitFor, tick)
	q.drain()
	assert.Equal(t, int32(1), fresh.Load())
}

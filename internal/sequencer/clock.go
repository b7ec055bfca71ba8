package sequencer

import (
	"container/heap"
	"math"
	"time"

	"github.com/ivlev/timeline/internal/timing"
)

// FrameTolerance is how close a deadline must be to a frame boundary to be
// moved onto it.
const FrameTolerance = time.Microsecond

// Clock is a virtual, manually advanced clock. Timers fire on the goroutine
// that calls Advance, in deadline order; timers with equal deadlines fire in
// the order they were scheduled. Clock is not safe for concurrent use.
type Clock struct {
	now    time.Duration
	timers timerQueue
	seq    uint64
	fps    int
}

// Timer is a pending callback on a Clock.
type Timer struct {
	when  time.Duration
	seq   uint64
	fn    func()
	index int
	clock *Clock
}

func NewClock() *Clock {
	return &Clock{}
}

// SetFrameRate aligns subsequent deadlines that fall within FrameTolerance
// of a frame boundary onto that boundary, so rounding in chained durations
// does not accumulate into an extra frame. Zero disables alignment.
func (c *Clock) SetFrameRate(fps int) {
	c.fps = max(fps, 0)
}

// Now returns the elapsed virtual time.
func (c *Clock) Now() time.Duration {
	return c.now
}

// AfterFunc schedules fn to run once d has elapsed. A non-positive d fires
// on the next Advance, including Advance(0).
func (c *Clock) AfterFunc(d time.Duration, fn func()) *Timer {
	if d < 0 {
		d = 0
	}
	c.seq++
	t := &Timer{when: c.align(c.now + d), seq: c.seq, fn: fn, clock: c}
	heap.Push(&c.timers, t)
	return t
}

func (c *Clock) align(when time.Duration) time.Duration {
	if c.fps == 0 {
		return when
	}
	frame := timing.FrameTime(int(math.Round(when.Seconds()*float64(c.fps))), c.fps)
	if diff := when - frame; diff > -FrameTolerance && diff < FrameTolerance {
		return max(frame, c.now)
	}
	return when
}

// Stop cancels the timer. It reports whether the timer was still pending.
func (t *Timer) Stop() bool {
	if t == nil || t.index < 0 {
		return false
	}
	heap.Remove(&t.clock.timers, t.index)
	return true
}

// Advance moves the clock forward by d, firing every timer that falls due.
// Callbacks observe Now() equal to their own deadline and may schedule new
// timers; those fire within the same call if they fall due.
func (c *Clock) Advance(d time.Duration) {
	c.AdvanceTo(c.now + d)
}

// AdvanceTo moves the clock to the absolute time target.
func (c *Clock) AdvanceTo(target time.Duration) {
	for len(c.timers) > 0 && c.timers[0].when <= target {
		t := heap.Pop(&c.timers).(*Timer)
		if t.when > c.now {
			c.now = t.when
		}
		t.fn()
	}
	if target > c.now {
		c.now = target
	}
}

// RunUntilIdle fires all pending timers, including the ones they schedule,
// and returns the time at which the last one fired.
func (c *Clock) RunUntilIdle() time.Duration {
	for len(c.timers) > 0 {
		c.AdvanceTo(c.timers[0].when)
	}
	return c.now
}

// Pending returns the number of scheduled timers.
func (c *Clock) Pending() int {
	return len(c.timers)
}

type timerQueue []*Timer

func (q timerQueue) Len() int { return len(q) }

func (q timerQueue) Less(i, j int) bool {
	if q[i].when == q[j].when {
		return q[i].seq < q[j].seq
	}
	return q[i].when < q[j].when
}

func (q timerQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *timerQueue) Push(x any) {
	t := x.(*Timer)
	t.index = len(*q)
	*q = append(*q, t)
}

func (q *timerQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*q = old[:n-1]
	return t
}

package playback

import "sync/atomic"

// Throttle coalesces redraw requests: at most one is pending at a time and
// requests made while one is pending are dropped.
type Throttle struct {
	pending  atomic.Bool
	schedule func(func())
	redraw   func()
}

// NewThrottle creates a throttle. schedule runs its argument on the next
// display refresh; redraw performs the actual drawing.
func NewThrottle(schedule func(func()), redraw func()) *Throttle {
	return &Throttle{schedule: schedule, redraw: redraw}
}

// Request asks for a redraw and reports whether it was accepted.
func (t *Throttle) Request() bool {
	if !t.pending.CompareAndSwap(false, true) {
		return false
	}
	t.schedule(t.run)
	return true
}

// Pending reports whether a redraw is scheduled.
func (t *Throttle) Pending() bool {
	return t.pending.Load()
}

func (t *Throttle) run() {
	// Cleared first: a request made during redraw schedules the next one.
	t.pending.Store(false)
	t.redraw()
}

package mux

import "sync/atomic"

// activityCounter is the scoped "something is in flight" guard:
// pruneDeadWindows is a no-op while count > 0, so a window doesn't
// evaporate between "start spawning" and "first pane appears".
type activityCounter struct {
	count      atomic.Int64
	onDrainedToZero func()
}

// Activity is a scoped acquisition: New increments the counter, Dispose
// decrements it and, on the transition to zero, schedules a deferred
// prune. Dispose is idempotent.
type Activity struct {
	c        *activityCounter
	disposed atomic.Bool
}

func (c *activityCounter) New() *Activity {
	c.count.Add(1)
	return &Activity{c: c}
}

func (c *activityCounter) Count() int64 { return c.count.Load() }

// Dispose releases the Activity. Calling it more than once has no further
// effect.
func (a *Activity) Dispose() {
	if !a.disposed.CompareAndSwap(false, true) {
		return
	}
	if a.c.count.Add(-1) == 0 && a.c.onDrainedToZero != nil {
		a.c.onDrainedToZero()
	}
}

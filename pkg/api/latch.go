package api

// Latch is a single-shot wait object owned by one workflow instance.
//
// A latch fires at most once. Waiting again on the same event means
// replacing the latch with NewLatch, never resetting it, so a waiter from an
// earlier generation cannot observe a fire meant for a later one. A
// cancelled latch ignores all later fires.
//
// Latches are not safe for concurrent use; they are only touched from the
// instance goroutine (workflow code and signal handlers).
type Latch struct {
	fired     bool
	cancelled bool
	value     any
}

// NewLatch returns an armed latch.
func NewLatch() *Latch {
	return &Latch{}
}

// Fire resolves the latch with v. It reports false if the latch had already
// fired or was cancelled, in which case v is discarded.
func (l *Latch) Fire(v any) bool {
	if l.fired || l.cancelled {
		return false
	}
	l.fired = true
	l.value = v
	return true
}

// Fired reports whether the latch has been resolved.
func (l *Latch) Fired() bool {
	return l.fired
}

// Value returns the value passed to the winning Fire call.
func (l *Latch) Value() any {
	return l.value
}

// Cancel disarms an unfired latch. It has no effect on a fired latch.
func (l *Latch) Cancel() {
	if !l.fired {
		l.cancelled = true
	}
}

// Cancelled reports whether the latch was cancelled before firing.
func (l *Latch) Cancelled() bool {
	return l.cancelled
}

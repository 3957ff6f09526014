package pipeline

import "time"

// Budget tracks wall-clock time against the invocation's hard deadline. It
// is polled between batches and never interrupts an in-flight delivery; it
// only gates whether a new batch is started.
type Budget struct {
	deadline time.Time
	margin   time.Duration
	now      func() time.Time
}

// NewBudget creates a budget that asks to stop once less than margin remains
// before deadline. A zero deadline means no limit.
func NewBudget(deadline time.Time, margin time.Duration) *Budget {
	return &Budget{deadline: deadline, margin: margin, now: time.Now}
}

// ShouldStop reports whether the remaining budget is below the safety margin
func (b *Budget) ShouldStop() bool {
	if b.deadline.IsZero() {
		return false
	}
	return b.deadline.Sub(b.now()) < b.margin
}

// Remaining returns the time left before the deadline
func (b *Budget) Remaining() time.Duration {
	if b.deadline.IsZero() {
		return 0
	}
	return b.deadline.Sub(b.now())
}

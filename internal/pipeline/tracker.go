package pipeline

import (
	"github.com/braze-inc/growth-shares-lambda-events-purchases-import/internal/models"
)

// tracker maintains the in-order delivery high-water mark. Batches complete
// in any order, but the cursor only ever reflects the end of the longest
// contiguous prefix of completed source-order batches, so a resume can never
// skip a batch that was still in flight.
//
// Only the orchestrator's completion path touches the tracker; it needs no
// locking of its own.
type tracker struct {
	pending         map[int]*trackedBatch
	expect          int
	cur             models.Cursor
	freezeOnFailure bool
	frozen          bool
}

type trackedBatch struct {
	end       models.Cursor
	completed bool
	failed    bool
}

// newTracker starts the high-water mark at the run's resume cursor. With
// freezeOnFailure set (the "block" cursor policy), the first failed batch
// pins the cursor at the prefix before it.
func newTracker(start models.Cursor, freezeOnFailure bool) *tracker {
	return &tracker{
		pending:         make(map[int]*trackedBatch),
		cur:             start,
		freezeOnFailure: freezeOnFailure,
	}
}

// add registers a launched batch by sequence number
func (t *tracker) add(seq int, end models.Cursor) {
	t.pending[seq] = &trackedBatch{end: end}
}

// complete records the outcome of one batch and advances the contiguous prefix
func (t *tracker) complete(seq int, delivered bool) {
	b, ok := t.pending[seq]
	if !ok {
		return
	}
	b.completed = true
	b.failed = !delivered

	for {
		next, ok := t.pending[t.expect]
		if !ok || !next.completed {
			return
		}
		if next.failed && t.freezeOnFailure {
			t.frozen = true
			return
		}
		t.cur = next.end
		delete(t.pending, t.expect)
		t.expect++
	}
}

// cursor returns the resume point covering every completed in-order batch
func (t *tracker) cursor() models.Cursor {
	return t.cur
}

// blocked reports whether a failed batch has pinned the cursor
func (t *tracker) blocked() bool {
	return t.frozen
}

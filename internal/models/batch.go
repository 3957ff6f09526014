package models

// Batch is a bounded, ordered group of records for one API call, already
// split into the events/purchases slots of the track payload. End is the
// cursor just past the last record the batch consumed from the source; it
// becomes the resume point once every earlier batch has also completed.
type Batch struct {
	Seq       int
	Events    []Record
	Purchases []Record
	End       Cursor
}

// Len returns the number of records in the batch
func (b Batch) Len() int {
	return len(b.Events) + len(b.Purchases)
}

// Add places a record into the slot matching its kind.
// KindUnknown records must be filtered out by the caller.
func (b *Batch) Add(r Record, kind Kind) {
	switch kind {
	case KindEvent:
		b.Events = append(b.Events, r)
	case KindPurchase:
		b.Purchases = append(b.Purchases, r)
	}
}

package models

// Kind classifies a record into the destination payload slot it belongs to.
type Kind int

const (
	KindUnknown Kind = iota
	KindEvent
	KindPurchase
)

func (k Kind) String() string {
	switch k {
	case KindEvent:
		return "event"
	case KindPurchase:
		return "purchase"
	default:
		return "unknown"
	}
}

// Record is one object from the input file: a Braze custom event or purchase.
// The pipeline treats it as opaque beyond classification and the external_id
// requirement; all other fields are passed through to the API untouched.
type Record map[string]interface{}

// ExternalID returns the record's external_id, or "" if absent or not a string
func (r Record) ExternalID() string {
	id, _ := r["external_id"].(string)
	return id
}

// Classify determines which payload slot the record belongs to.
// Purchases are checked first: a purchase object may legitimately carry a
// product name, but an event never carries product_id and price.
func (r Record) Classify() Kind {
	if r.has("product_id") && r.has("price") && r.has("time") {
		return KindPurchase
	}
	if r.has("name") && r.has("time") {
		return KindEvent
	}
	return KindUnknown
}

func (r Record) has(key string) bool {
	v, ok := r[key]
	return ok && v != nil
}

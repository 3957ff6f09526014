package models

// TrackRequest is the JSON body of a POST /users/track call
type TrackRequest struct {
	Events     []Record `json:"events,omitempty"`
	Purchases  []Record `json:"purchases,omitempty"`
	AppGroupID string   `json:"app_group_id,omitempty"`
}

// NewTrackRequest builds the track payload for one batch
func NewTrackRequest(b Batch, appGroupID string) TrackRequest {
	return TrackRequest{
		Events:     b.Events,
		Purchases:  b.Purchases,
		AppGroupID: appGroupID,
	}
}

// TrackResponse is the body returned by POST /users/track. A 2xx response
// may still carry per-user errors, which are logged but do not fail the batch.
type TrackResponse struct {
	EventsProcessed    int           `json:"events_processed"`
	PurchasesProcessed int           `json:"purchases_processed"`
	Message            string        `json:"message"`
	Errors             []interface{} `json:"errors"`
}

// Accepted returns the number of objects the API reports as processed
func (r TrackResponse) Accepted() int {
	return r.EventsProcessed + r.PurchasesProcessed
}

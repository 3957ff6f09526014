package braze

import (
	"fmt"
	"net/http"
)

// Status classifies one delivery attempt or its final outcome.
type Status int

const (
	// StatusDelivered means the API accepted the batch (2xx)
	StatusDelivered Status = iota
	// StatusRetryable covers network errors, 5xx and 429; as a final outcome
	// it means retries were exhausted
	StatusRetryable
	// StatusFatal covers 4xx other than 429: the batch is wrong, retrying
	// cannot help
	StatusFatal
)

func (s Status) String() string {
	switch s {
	case StatusDelivered:
		return "delivered"
	case StatusRetryable:
		return "retryable"
	default:
		return "fatal"
	}
}

// Outcome is the result of Deliver for one batch.
type Outcome struct {
	Status   Status
	Accepted int
	Attempts int
	Err      error
}

// classifyResponse maps an HTTP status code to an attempt status
func classifyResponse(statusCode int) Status {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return StatusDelivered
	case statusCode == http.StatusTooManyRequests || statusCode >= 500:
		return StatusRetryable
	default:
		return StatusFatal
	}
}

// apiError carries the status code and server message of a failed attempt
type apiError struct {
	StatusCode int
	Message    string
}

func (e *apiError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("API responded %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API responded %d", e.StatusCode)
}

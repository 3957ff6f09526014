package braze

import (
	"math/rand"
	"net/http"
	"strconv"
	"time"
)

const (
	baseDelay = 5 * time.Second
	maxDelay  = 2 * time.Minute
	// Fraction of the computed delay added or subtracted as jitter
	jitterFraction = 0.2
)

// CalculateBackoffDelay returns the wait before the given attempt (1-indexed;
// attempt 1 has no wait). Delays double from baseDelay and are capped at
// maxDelay, then jittered by up to ±20% so retries from parallel batches
// don't land on the API in lockstep.
func CalculateBackoffDelay(attemptCount int, rng *rand.Rand) time.Duration {
	if attemptCount <= 1 {
		return 0
	}

	delay := baseDelay
	for i := 2; i < attemptCount; i++ {
		delay *= 2
		if delay >= maxDelay {
			delay = maxDelay
			break
		}
	}

	if rng != nil {
		jitter := time.Duration((rng.Float64()*2 - 1) * jitterFraction * float64(delay))
		delay += jitter
	}
	return delay
}

// ParseRetryAfterHeader parses a Retry-After value as either delay seconds or
// an HTTP date. Returns the duration and true if parsing was successful.
func ParseRetryAfterHeader(retryAfter string) (time.Duration, bool) {
	if retryAfter == "" {
		return 0, false
	}

	if seconds, err := strconv.Atoi(retryAfter); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}

	if at, err := http.ParseTime(retryAfter); err == nil {
		d := time.Until(at)
		if d < 0 {
			return 0, false
		}
		return d, true
	}

	return 0, false
}

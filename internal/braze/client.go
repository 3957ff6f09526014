// Package braze delivers record batches to the Braze POST /users/track
// endpoint with bounded retries, exponential backoff and response
// classification.
package braze

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/braze-inc/growth-shares-lambda-events-purchases-import/internal/config"
	"github.com/braze-inc/growth-shares-lambda-events-purchases-import/internal/models"
)

// ErrRetryExhausted marks a batch that stayed retryable through every attempt
var ErrRetryExhausted = errors.New("retry attempts exhausted")

// Response bodies larger than this are truncated before parsing/logging
const maxResponseBodySize = 64 * 1024

// Client sends batches to the track endpoint. Safe for concurrent use; the
// pipeline runs several Deliver calls in flight at once.
type Client struct {
	cfg    config.BrazeConfig
	http   *http.Client
	logger *zap.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewClient creates a delivery client. A nil httpClient gets a default one
// using the configured timeout.
func NewClient(cfg config.BrazeConfig, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.HTTPTimeout}
	}
	return &Client{
		cfg:    cfg,
		http:   httpClient,
		logger: logger,
		sleep:  sleepContext,
	}
}

// Deliver sends one batch, retrying retryable failures (network errors, 5xx,
// 429) up to the configured attempt count with exponential backoff. A
// Retry-After hint becomes the floor for the next delay. Non-429 4xx
// responses fail the batch immediately.
func (c *Client) Deliver(ctx context.Context, batch models.Batch) Outcome {
	body, err := json.Marshal(models.NewTrackRequest(batch, c.cfg.AppGroupID))
	if err != nil {
		return Outcome{Status: StatusFatal, Err: fmt.Errorf("marshaling track request: %w", err)}
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	var lastErr error
	var floor time.Duration

	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := CalculateBackoffDelay(attempt, rng)
			if floor > delay {
				delay = floor
			}
			c.logger.Info("Retrying batch delivery",
				zap.Int("batch_seq", batch.Seq),
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", c.cfg.MaxAttempts),
				zap.Duration("delay", delay),
				zap.Error(lastErr),
			)
			if err := c.sleep(ctx, delay); err != nil {
				return Outcome{Status: StatusRetryable, Attempts: attempt - 1, Err: err}
			}
			floor = 0
		}

		status, resp, retryAfter, err := c.attempt(ctx, body)
		switch status {
		case StatusDelivered:
			if len(resp.Errors) > 0 {
				// Per-user problems inside an accepted batch; the batch itself succeeded
				c.logger.Warn("API reported errors for some records in an accepted batch",
					zap.Int("batch_seq", batch.Seq),
					zap.Any("errors", resp.Errors),
				)
			}
			accepted := resp.Accepted()
			if accepted == 0 {
				accepted = batch.Len()
			}
			return Outcome{Status: StatusDelivered, Accepted: accepted, Attempts: attempt}
		case StatusFatal:
			c.logger.Error("Batch delivery failed fatally",
				zap.Int("batch_seq", batch.Seq),
				zap.Int("records", batch.Len()),
				zap.Error(err),
			)
			return Outcome{Status: StatusFatal, Attempts: attempt, Err: err}
		default:
			lastErr = err
			if d, ok := ParseRetryAfterHeader(retryAfter); ok {
				floor = d
			}
		}
	}

	return Outcome{
		Status:   StatusRetryable,
		Attempts: c.cfg.MaxAttempts,
		Err:      fmt.Errorf("%w (%d): %v", ErrRetryExhausted, c.cfg.MaxAttempts, lastErr),
	}
}

// attempt performs a single POST and classifies the result
func (c *Client) attempt(ctx context.Context, body []byte) (Status, models.TrackResponse, string, error) {
	var resp models.TrackResponse

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TrackURL(), bytes.NewReader(body))
	if err != nil {
		return StatusFatal, resp, "", fmt.Errorf("creating HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("X-Braze-Bulk", "true")

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		return StatusRetryable, resp, "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer res.Body.Close()

	raw, readErr := io.ReadAll(io.LimitReader(res.Body, maxResponseBodySize))
	if readErr != nil {
		c.logger.Warn("Failed to read response body",
			zap.Int("http_status", res.StatusCode),
			zap.Error(readErr),
		)
	}
	_ = json.Unmarshal(raw, &resp)

	c.logger.Debug("Track request completed",
		zap.Int("http_status", res.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	status := classifyResponse(res.StatusCode)
	if status == StatusDelivered {
		return status, resp, "", nil
	}

	msg := resp.Message
	if msg == "" {
		msg = string(raw)
	}
	return status, resp, res.Header.Get("Retry-After"), &apiError{StatusCode: res.StatusCode, Message: msg}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

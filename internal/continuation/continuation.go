// Package continuation re-invokes the pipeline asynchronously so a new
// execution picks up a file where a time-limited one stopped.
package continuation

import (
	"context"

	"github.com/braze-inc/growth-shares-lambda-events-purchases-import/internal/models"
)

// Trigger starts a fresh pipeline instance with the given resume request and
// returns without waiting for its result.
type Trigger interface {
	Continue(ctx context.Context, req models.ImportRequest) error
}

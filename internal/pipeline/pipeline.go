// Package pipeline wires the parser, batcher, delivery client, time budget
// and continuation trigger into the import loop: parse, batch, deliver,
// check the budget, then keep going, hand off to a new invocation, or finish.
package pipeline

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/braze-inc/growth-shares-lambda-events-purchases-import/internal/batcher"
	"github.com/braze-inc/growth-shares-lambda-events-purchases-import/internal/braze"
	"github.com/braze-inc/growth-shares-lambda-events-purchases-import/internal/config"
	"github.com/braze-inc/growth-shares-lambda-events-purchases-import/internal/continuation"
	"github.com/braze-inc/growth-shares-lambda-events-purchases-import/internal/models"
	"github.com/braze-inc/growth-shares-lambda-events-purchases-import/internal/parser"
	"github.com/braze-inc/growth-shares-lambda-events-purchases-import/internal/source"
)

// ErrDeliveryBlocked is returned under the "block" cursor policy when a
// batch fails for good: the run aborts with the cursor pinned at the last
// fully delivered prefix, so nothing is silently lost.
var ErrDeliveryBlocked = errors.New("delivery failed and cursor policy is block")

// Deliverer sends one batch to the destination API
type Deliverer interface {
	Deliver(ctx context.Context, batch models.Batch) braze.Outcome
}

// Pipeline drains one input file into the track API across however many
// invocations it takes.
type Pipeline struct {
	cfg       config.PipelineConfig
	opener    source.Opener
	deliverer Deliverer
	trigger   continuation.Trigger
	logger    *zap.Logger

	// overrides the deadline-derived budget in tests
	budget *Budget
}

func New(cfg config.PipelineConfig, opener source.Opener, deliverer Deliverer, trigger continuation.Trigger, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		opener:    opener,
		deliverer: deliverer,
		trigger:   trigger,
		logger:    logger,
	}
}

type runState int

const (
	stateStreaming runState = iota
	stateFinishing
	stateContinuing
	stateAborted
)

type delivery struct {
	seq     int
	records int
	out     braze.Outcome
}

// Run processes the file from req.Cursor until end of input, a failed batch
// under the block policy, a stream-level parse error, or the time budget.
// On a budget stop with input remaining it fires the continuation trigger
// once with the in-order resume cursor and returns with Continued set.
func (p *Pipeline) Run(ctx context.Context, req models.ImportRequest) (models.ImportResult, error) {
	runID := uuid.New().String()
	log := p.logger.With(zap.String("run_id", runID))
	start := time.Now()

	log.Info("Starting import run",
		zap.String("bucket", req.Bucket),
		zap.String("key", req.Key),
		zap.String("mode", string(req.Cursor.Mode)),
		zap.Int64("byte_offset", req.Cursor.ByteOffset),
		zap.Int64("line", req.Cursor.Line),
	)

	loc := source.Location{Bucket: req.Bucket, Key: req.Key}
	stream, err := p.opener.Open(ctx, loc, arrayStart(req.Cursor))
	if err != nil {
		return models.ImportResult{}, err
	}
	defer stream.Close()

	totalSize, err := p.opener.Size(ctx, loc)
	if err != nil {
		log.Debug("Could not determine object size", zap.Error(err))
		totalSize = 0
	}

	budget := p.budget
	if budget == nil {
		deadline, _ := ctx.Deadline()
		budget = NewBudget(deadline, p.cfg.TimeMargin)
	}

	par := parser.New(stream, req.Cursor)
	bat := batcher.New(p.cfg.BatchSize, log)
	tr := newTracker(req.Cursor, p.cfg.CursorPolicy == config.PolicyBlock)

	sem := make(chan struct{}, p.cfg.MaxParallel)
	// Buffered to capacity so a completing worker never blocks on the
	// orchestrator; completions are only handled on this goroutine
	results := make(chan delivery, p.cfg.MaxParallel)

	var (
		delivered        int
		failedRecords    int
		deliveredBatches int
		fatalBatches     int
		exhaustedBatches int
		inflight         int
		streamErr        error
	)

	handle := func(d delivery) {
		inflight--
		tr.complete(d.seq, d.out.Status == braze.StatusDelivered)
		switch d.out.Status {
		case braze.StatusDelivered:
			delivered += d.out.Accepted
			deliveredBatches++
		case braze.StatusFatal:
			failedRecords += d.records
			fatalBatches++
		case braze.StatusRetryable:
			failedRecords += d.records
			exhaustedBatches++
		}
	}

	st := stateStreaming
	for st == stateStreaming {
		if tr.blocked() {
			st = stateAborted
			streamErr = ErrDeliveryBlocked
			break
		}

		b, err := bat.Next(par)
		if errors.Is(err, io.EOF) {
			st = stateFinishing
			break
		}
		if err != nil {
			st = stateAborted
			streamErr = err
			break
		}

		if budget.ShouldStop() {
			// The just-parsed batch is discarded: its records sit past the
			// cursor, so the continuation re-reads them
			log.Info("Time budget exhausted, stopping before next batch",
				zap.Duration("remaining", budget.Remaining()),
			)
			st = stateContinuing
			break
		}

		tr.add(b.Seq, b.End)
		acquired := false
		for !acquired {
			select {
			case d := <-results:
				handle(d)
			case sem <- struct{}{}:
				acquired = true
			}
		}
		if tr.blocked() {
			<-sem
			st = stateAborted
			streamErr = ErrDeliveryBlocked
			break
		}

		inflight++
		go func(b models.Batch) {
			out := p.deliverer.Deliver(ctx, b)
			results <- delivery{seq: b.Seq, records: b.Len(), out: out}
			<-sem
		}(b)
	}

	// Flush in-flight deliveries; nothing new is started past this point
	for inflight > 0 {
		handle(<-results)
	}

	if st != stateAborted && tr.blocked() {
		st = stateAborted
		streamErr = ErrDeliveryBlocked
	}

	cursor := tr.cursor()
	result := models.ImportResult{
		ObjectsSent:      delivered,
		RecordsFailed:    failedRecords,
		RecordsMalformed: bat.Malformed(),
		RecordsDropped:   bat.Dropped(),
		IsFinished:       st == stateFinishing,
		Continued:        st == stateContinuing,
	}
	if st == stateFinishing {
		result.BytesRead = arrayStart(req.Cursor) + par.BytesRead()
	} else if cursor.Mode == models.ModeArray {
		result.BytesRead = cursor.ByteOffset
	} else {
		result.BytesRead = par.BytesRead()
	}

	if st == stateContinuing {
		creq := models.ImportRequest{Bucket: req.Bucket, Key: req.Key, Cursor: cursor}
		if err := p.trigger.Continue(ctx, creq); err != nil {
			log.Error("Failed to invoke continuation", zap.Error(err))
			p.logSummary(log, result, deliveredBatches, fatalBatches, exhaustedBatches, totalSize, time.Since(start))
			return result, err
		}
	}

	p.logSummary(log, result, deliveredBatches, fatalBatches, exhaustedBatches, totalSize, time.Since(start))

	if st == stateAborted {
		return result, streamErr
	}
	return result, nil
}

// arrayStart returns the byte offset to open the source at. Lines-mode
// cursors are line counts, so the stream always opens at byte zero and the
// parser discards the already-consumed lines itself.
func arrayStart(c models.Cursor) int64 {
	if c.Mode == models.ModeArray {
		return c.ByteOffset
	}
	return 0
}

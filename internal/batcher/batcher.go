// Package batcher groups parsed records into bounded, ordered batches shaped
// for one track API call.
package batcher

import (
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/braze-inc/growth-shares-lambda-events-purchases-import/internal/models"
	"github.com/braze-inc/growth-shares-lambda-events-purchases-import/internal/parser"
)

// Batcher pulls records from a parser and assembles batches of up to size
// records, preserving source order. Records without an external_id count as
// malformed; records matching neither the event nor the purchase shape are
// dropped with a warning. Neither kind is ever sent.
type Batcher struct {
	size      int
	logger    *zap.Logger
	seq       int
	malformed int
	dropped   int
	eof       bool
}

// New creates a batcher emitting batches of up to size records
func New(size int, logger *zap.Logger) *Batcher {
	return &Batcher{size: size, logger: logger}
}

// Next assembles the next batch. It returns io.EOF once the parser is
// exhausted and every remaining record has been emitted. A *parser.ParseError
// from the underlying stream is returned as-is and ends the run.
func (b *Batcher) Next(p *parser.Parser) (models.Batch, error) {
	if b.eof {
		return models.Batch{}, io.EOF
	}

	batch := models.Batch{Seq: b.seq}
	for batch.Len() < b.size {
		rec, cur, err := p.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				b.eof = true
				if batch.Len() == 0 {
					return models.Batch{}, io.EOF
				}
				break
			}
			if errors.Is(err, parser.ErrMalformedRecord) {
				b.malformed++
				b.logger.Warn("Skipping malformed record", zap.Error(err))
				batch.End = cur
				continue
			}
			return models.Batch{}, fmt.Errorf("reading source stream: %w", err)
		}

		batch.End = cur
		if rec.ExternalID() == "" {
			b.malformed++
			b.logger.Warn("Skipping record without external_id",
				zap.Int64("byte_offset", cur.ByteOffset),
				zap.Int64("line", cur.Line),
			)
			continue
		}

		kind := rec.Classify()
		if kind == models.KindUnknown {
			b.dropped++
			b.logger.Warn("Dropping record matching neither event nor purchase shape",
				zap.String("external_id", rec.ExternalID()),
				zap.Int64("byte_offset", cur.ByteOffset),
				zap.Int64("line", cur.Line),
			)
			continue
		}

		batch.Add(rec, kind)
	}

	if batch.Len() == 0 {
		// Everything pulled in this window was skipped
		return models.Batch{}, io.EOF
	}

	b.seq++
	return batch, nil
}

// Malformed returns the count of records skipped, either undecodable or
// missing external_id.
func (b *Batcher) Malformed() int {
	return b.malformed
}

// Dropped returns the count of records dropped for matching neither shape
func (b *Batcher) Dropped() int {
	return b.dropped
}

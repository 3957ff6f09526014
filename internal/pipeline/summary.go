package pipeline

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/braze-inc/growth-shares-lambda-events-purchases-import/internal/models"
)

// logSummary emits the run summary, the sole observable result of a run
func (p *Pipeline) logSummary(log *zap.Logger, r models.ImportResult, deliveredBatches, fatalBatches, exhaustedBatches int, totalSize int64, elapsed time.Duration) {
	fields := []zap.Field{
		zap.Int("objects_sent", r.ObjectsSent),
		zap.Int("records_failed", r.RecordsFailed),
		zap.Int("records_malformed", r.RecordsMalformed),
		zap.Int("records_dropped", r.RecordsDropped),
		zap.Int("batches_delivered", deliveredBatches),
		zap.Int("batches_failed_fatal", fatalBatches),
		zap.Int("batches_retry_exhausted", exhaustedBatches),
		zap.String("bytes_read", FormatBytes(r.BytesRead)),
		zap.Duration("elapsed", elapsed),
		zap.Bool("is_finished", r.IsFinished),
		zap.Bool("continued", r.Continued),
	}
	if totalSize > 0 {
		fields = append(fields, zap.String("object_size", FormatBytes(totalSize)))
	}
	log.Info("Import run summary", fields...)
}

// FormatBytes renders a byte count for the operational log
func FormatBytes(n int64) string {
	switch {
	case n >= 1e9:
		return fmt.Sprintf("%.1f GB", float64(n)/1e9)
	case n >= 1e6:
		return fmt.Sprintf("%.1f MB", float64(n)/1e6)
	case n >= 1e3:
		return fmt.Sprintf("%.1f KB", float64(n)/1e3)
	default:
		return fmt.Sprintf("%d B", n)
	}
}

package db

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/applicant-analyzer/internal/types"
)

// Bulk writer defaults. Batches commit atomically; a failed batch is retried
// as a whole before the run is surfaced as failed.
const (
	DefaultBatchSize    = 50
	defaultBatchRetries = 2
	defaultBatchBackoff = time.Second
)

// ResultUpserter commits one batch of results atomically with upsert
// semantics. *DB implements it.
type ResultUpserter interface {
	UpsertResults(ctx context.Context, results []types.AnalysisResult) error
}

// BulkWriter batches analysis results and commits them through a
// ResultUpserter. It is driven by a single supervisor loop per job, so it
// needs no internal locking.
type BulkWriter struct {
	store     ResultUpserter
	logger    *zap.Logger
	batchSize int
	retries   int
	backoff   time.Duration
}

// NewBulkWriter creates a writer with the default batch size and retry policy.
func NewBulkWriter(store ResultUpserter, logger *zap.Logger) *BulkWriter {
	return &BulkWriter{
		store:     store,
		logger:    logger,
		batchSize: DefaultBatchSize,
		retries:   defaultBatchRetries,
		backoff:   defaultBatchBackoff,
	}
}

// WithBatchSize overrides the batch size. Used in tests.
func (w *BulkWriter) WithBatchSize(size int) *BulkWriter {
	if size > 0 {
		w.batchSize = size
	}
	return w
}

// Persist writes results in batches. Each batch is retried on failure; if a
// batch still fails after the retries, the error propagates and the caller
// transitions the run to failed. Batches already committed are retained.
func (w *BulkWriter) Persist(ctx context.Context, results []types.AnalysisResult) error {
	for start := 0; start < len(results); start += w.batchSize {
		end := start + w.batchSize
		if end > len(results) {
			end = len(results)
		}
		batch := results[start:end]

		if err := w.persistBatch(ctx, batch); err != nil {
			return fmt.Errorf("failed to persist batch of %d results: %w", len(batch), err)
		}
		w.logger.Debug("persisted result batch", zap.Int("size", len(batch)))
	}
	return nil
}

func (w *BulkWriter) persistBatch(ctx context.Context, batch []types.AnalysisResult) error {
	var lastErr error
	for attempt := 0; attempt <= w.retries; attempt++ {
		if attempt > 0 {
			w.logger.Warn("retrying result batch",
				zap.Int("attempt", attempt+1),
				zap.Error(lastErr))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(w.backoff):
			}
		}

		if err := w.store.UpsertResults(ctx, batch); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return lastErr
}

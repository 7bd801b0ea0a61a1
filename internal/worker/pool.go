package worker

import (
	"context"
	"runtime"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/applicant-analyzer/internal/types"
)

// maxPoolSize caps concurrency regardless of available parallelism so a large
// host does not flood the text-generation service.
const maxPoolSize = 32

// PoolSize returns the bounded worker pool size:
// min(32, 2 × available parallelism).
func PoolSize() int {
	size := 2 * runtime.GOMAXPROCS(0)
	if size > maxPoolSize {
		return maxPoolSize
	}
	if size < 1 {
		return 1
	}
	return size
}

// Processor analyzes one applicant. *Pipeline implements it.
type Processor interface {
	Process(ctx context.Context, job *types.JobRequirements, applicantID uuid.UUID) types.AnalysisResult
}

// Dispatcher fans one wave of applicants out to a bounded pool of concurrent
// pipeline executions.
type Dispatcher struct {
	processor Processor
	size      int
	logger    *zap.Logger
}

// NewDispatcher creates a dispatcher with the default pool size.
func NewDispatcher(processor Processor, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		processor: processor,
		size:      PoolSize(),
		logger:    logger,
	}
}

// WithSize overrides the pool size. Used in tests.
func (d *Dispatcher) WithSize(size int) *Dispatcher {
	if size > 0 {
		d.size = size
	}
	return d
}

// Size returns the concurrency bound of the pool.
func (d *Dispatcher) Size() int {
	return d.size
}

// Dispatch runs the pipeline for every applicant in the wave, bounded by the
// pool size, and returns the results once all workers finish. Completion
// order is arbitrary.
//
// cancelled is polled before each applicant starts: once it reports true, no
// new applicant is started, but applicants already in flight finish and their
// results are kept. In-flight external calls are never torn down.
func (d *Dispatcher) Dispatch(ctx context.Context, job *types.JobRequirements, applicantIDs []uuid.UUID, cancelled func() bool) []types.AnalysisResult {
	if cancelled == nil {
		cancelled = func() bool { return false }
	}

	var (
		mu      sync.Mutex
		results []types.AnalysisResult
	)

	g := &errgroup.Group{}
	g.SetLimit(d.size)

	for _, applicantID := range applicantIDs {
		g.Go(func() error {
			if cancelled() {
				return nil
			}

			result := d.processor.Process(ctx, job, applicantID)

			mu.Lock()
			results = append(results, result)
			mu.Unlock()
			return nil
		})
	}

	// Workers never return errors; Wait only synchronizes completion.
	_ = g.Wait()

	d.logger.Debug("wave dispatched",
		zap.Int("wave_size", len(applicantIDs)),
		zap.Int("completed", len(results)))

	return results
}

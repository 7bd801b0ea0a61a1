package analysis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/applicant-analyzer/internal/db"
	"github.com/jonathan/applicant-analyzer/internal/types"
	"github.com/jonathan/applicant-analyzer/internal/worker"
)

// waveDispatcher is the slice of *worker.Dispatcher the supervisor needs.
type waveDispatcher interface {
	Dispatch(ctx context.Context, job *types.JobRequirements, applicantIDs []uuid.UUID, cancelled func() bool) []types.AnalysisResult
	Size() int
}

// supervisor drives one run: it loops querying remaining applicants,
// dispatches waves, persists results, advances progress, renews the lock,
// and observes cancellation at wave boundaries. Exactly one supervisor per
// job holds the lock at any time.
type supervisor struct {
	runID      uuid.UUID
	job        *types.JobRequirements
	applicants worker.ApplicantSource
	dispatcher waveDispatcher
	writer     *db.BulkWriter
	state      RunStateStore
	lockTTL    time.Duration
	logger     *zap.Logger
}

// outcome is the terminal result of a run.
type outcome struct {
	state     types.RunState
	processed int
	err       error
}

// run executes the supervisor loop until no applicants remain, cancellation
// is observed, or an unrecoverable infrastructure error occurs. It never
// releases the lock; the caller owns acquisition and release.
func (s *supervisor) run(ctx context.Context) outcome {
	jobKey := s.job.JobListingID.String()
	poller := &cancelPoller{state: s.state, jobID: jobKey, interval: time.Second}

	// Applicants attempted during this run. A failed applicant gets an
	// unprocessed row and must not be picked up again by the same run.
	attempted := make(map[uuid.UUID]bool)
	processed := 0

	for {
		remaining, err := s.applicants.ListUnanalyzedApplicants(ctx, s.job.JobListingID)
		if err != nil {
			return outcome{types.RunStateFailed, processed, transientf("listing unanalyzed applicants: %v", err)}
		}

		wave := nextWave(remaining, attempted, s.dispatcher.Size())
		if len(wave) == 0 {
			s.logger.Info("analysis completed", zap.Int("processed", processed))
			return outcome{types.RunStateCompleted, processed, nil}
		}
		for _, id := range wave {
			attempted[id] = true
		}

		results := s.dispatcher.Dispatch(ctx, s.job, wave, poller.cancelled)

		if err := s.writer.Persist(ctx, results); err != nil {
			return outcome{types.RunStateFailed, processed, transientf("persisting results: %v", err)}
		}
		processed += len(results)

		if err := s.state.IncrProcessed(ctx, jobKey, len(results)); err != nil {
			// Progress is advisory; a missed increment must not fail the run.
			s.logger.Warn("failed to advance progress counter", zap.Error(err))
		}

		renewed, err := s.state.Renew(ctx, jobKey, s.runID.String(), s.lockTTL)
		if err != nil {
			return outcome{types.RunStateFailed, processed, fmt.Errorf("%w: renewal unreachable: %v", ErrLockLost, err)}
		}
		if !renewed {
			return outcome{types.RunStateFailed, processed, ErrLockLost}
		}

		cancelled, err := s.state.IsCancelled(ctx, jobKey)
		if err != nil {
			// Cancellation state unknown: keep going. The lock renewal above
			// is the fatal check.
			s.logger.Warn("failed to read cancellation flag", zap.Error(err))
			cancelled = false
		}
		if cancelled || len(results) < len(wave) {
			s.logger.Info("analysis cancelled",
				zap.Int("processed", processed),
				zap.Int("skipped_in_wave", len(wave)-len(results)))
			return outcome{types.RunStateCancelled, processed, nil}
		}

		s.logger.Debug("wave complete",
			zap.Int("wave_size", len(wave)),
			zap.Int("processed", processed))
	}
}

// nextWave selects up to cap applicants that this run has not yet attempted.
func nextWave(remaining []uuid.UUID, attempted map[uuid.UUID]bool, cap int) []uuid.UUID {
	var wave []uuid.UUID
	for _, id := range remaining {
		if attempted[id] {
			continue
		}
		wave = append(wave, id)
		if len(wave) == cap {
			break
		}
	}
	return wave
}

// cancelPoller caches the Redis cancellation flag so worker goroutines can
// poll it cheaply between applicant starts. A store error leaves the last
// known value in place.
type cancelPoller struct {
	state    RunStateStore
	jobID    string
	interval time.Duration

	mu        sync.Mutex
	lastCheck time.Time
	value     bool
}

func (p *cancelPoller) cancelled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.value {
		return true
	}
	if time.Since(p.lastCheck) < p.interval {
		return p.value
	}
	p.lastCheck = time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	cancelled, err := p.state.IsCancelled(ctx, p.jobID)
	if err != nil {
		return p.value
	}
	p.value = cancelled
	return p.value
}

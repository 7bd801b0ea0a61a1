// Package analysis orchestrates applicant analysis runs: it owns the
// supervisor loop, run lock lifecycle, progress, and the operations exposed
// to the web layer.
package analysis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/applicant-analyzer/internal/db"
	"github.com/jonathan/applicant-analyzer/internal/runstate"
	"github.com/jonathan/applicant-analyzer/internal/types"
	"github.com/jonathan/applicant-analyzer/internal/worker"
)

// Service wires the collaborators together and exposes the analysis
// operations. One Service instance serves many jobs; per-job mutual
// exclusion lives in the run lock, not in process memory.
type Service struct {
	jobs       worker.JobSource
	applicants worker.ApplicantSource
	dispatcher waveDispatcher
	writer     *db.BulkWriter
	results    ResultStore
	state      RunStateStore
	lockTTL    time.Duration
	logger     *zap.Logger

	// wg tracks detached supervisor goroutines so Shutdown can drain them.
	wg sync.WaitGroup
}

// Options configures a Service.
type Options struct {
	Jobs       worker.JobSource
	Applicants worker.ApplicantSource
	Dispatcher *worker.Dispatcher
	Writer     *db.BulkWriter
	Results    ResultStore
	State      RunStateStore
	LockTTL    time.Duration
	Logger     *zap.Logger
}

// NewService creates the analysis service.
func NewService(opts Options) *Service {
	ttl := opts.LockTTL
	if ttl <= 0 {
		ttl = runstate.DefaultLockTTL
	}
	return &Service{
		jobs:       opts.Jobs,
		applicants: opts.Applicants,
		dispatcher: opts.Dispatcher,
		writer:     opts.Writer,
		results:    opts.Results,
		state:      opts.State,
		lockTTL:    ttl,
		logger:     opts.Logger,
	}
}

// InitiateResult reports an accepted run.
type InitiateResult struct {
	RunID uuid.UUID `json:"run_id"`
	Total int       `json:"total"`
}

// Initiate starts an analysis run for a job in the background. It returns
// ErrConflict when another run holds the lock, ErrJobActive/ErrNoApplicants
// on validation failures, and a retryable error when the coordination store
// is unreachable.
func (s *Service) Initiate(ctx context.Context, jobListingID uuid.UUID) (*InitiateResult, error) {
	return s.start(ctx, jobListingID, false, false)
}

// Rerun deletes all prior results for the job and starts a fresh run. This
// is the only path that deletes result rows.
func (s *Service) Rerun(ctx context.Context, jobListingID uuid.UUID) (*InitiateResult, error) {
	return s.start(ctx, jobListingID, true, false)
}

// Analyze runs an analysis synchronously, returning once the run reaches a
// terminal state. Used by the CLI.
func (s *Service) Analyze(ctx context.Context, jobListingID uuid.UUID) (*InitiateResult, error) {
	return s.start(ctx, jobListingID, false, true)
}

func (s *Service) start(ctx context.Context, jobListingID uuid.UUID, deletePrior, wait bool) (*InitiateResult, error) {
	job, err := s.jobs.FetchJobRequirements(ctx, jobListingID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch job requirements: %w", err)
	}
	if job.Active {
		return nil, ErrJobActive
	}

	jobKey := jobListingID.String()
	runID := uuid.New()

	acquired, err := s.state.TryAcquire(ctx, jobKey, runID.String(), s.lockTTL)
	if err != nil {
		return nil, transientf("acquiring run lock: %v", err)
	}
	if !acquired {
		return nil, ErrConflict
	}

	// From here on every early return must release the lock.
	release := func() {
		if err := s.state.Release(context.WithoutCancel(ctx), jobKey, runID.String()); err != nil {
			s.logger.Warn("failed to release run lock", zap.String("job_listing_id", jobKey), zap.Error(err))
		}
	}

	if deletePrior {
		deleted, err := s.results.DeleteResultsForJob(ctx, jobListingID)
		if err != nil {
			release()
			return nil, transientf("deleting prior results: %v", err)
		}
		s.logger.Info("deleted prior results for rerun",
			zap.String("job_listing_id", jobKey),
			zap.Int64("deleted", deleted))
	}

	unanalyzed, err := s.applicants.ListUnanalyzedApplicants(ctx, jobListingID)
	if err != nil {
		release()
		return nil, transientf("listing unanalyzed applicants: %v", err)
	}
	if len(unanalyzed) == 0 {
		release()
		return nil, ErrNoApplicants
	}
	total := len(unanalyzed)

	startedAt := time.Now().UTC()
	if err := s.state.ClearCancelled(ctx, jobKey); err != nil {
		release()
		return nil, transientf("clearing cancellation flag: %v", err)
	}
	if err := s.state.InitProgress(ctx, jobKey, total, startedAt); err != nil {
		release()
		return nil, transientf("initializing progress: %v", err)
	}

	run := types.Run{
		ID:           runID,
		JobListingID: jobListingID,
		State:        types.RunStateRunning,
		Total:        total,
		StartedAt:    startedAt,
	}
	if err := s.results.CreateRun(ctx, run); err != nil {
		release()
		return nil, transientf("recording run start: %v", err)
	}

	sup := &supervisor{
		runID:      runID,
		job:        job,
		applicants: s.applicants,
		dispatcher: s.dispatcher,
		writer:     s.writer,
		state:      s.state,
		lockTTL:    s.lockTTL,
		logger: s.logger.With(
			zap.String("job_listing_id", jobKey),
			zap.String("run_id", runID.String())),
	}

	if wait {
		s.supervise(sup, release)
	} else {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.supervise(sup, release)
		}()
	}

	return &InitiateResult{RunID: runID, Total: total}, nil
}

// supervise runs the supervisor to a terminal state, records the outcome,
// and always releases the lock.
func (s *Service) supervise(sup *supervisor, release func()) {
	defer release()

	// The run outlives the initiating request; cancellation is cooperative
	// through the flag, never through request context teardown.
	ctx := context.Background()

	out := sup.run(ctx)

	errMsg := ""
	if out.err != nil {
		errMsg = out.err.Error()
		sup.logger.Error("analysis run failed", zap.Error(out.err))
	}
	if err := s.results.FinishRun(ctx, sup.runID, out.state, out.processed, errMsg); err != nil {
		sup.logger.Warn("failed to record run outcome", zap.Error(err))
	}
	if err := s.state.ClearProgress(ctx, sup.job.JobListingID.String()); err != nil {
		sup.logger.Warn("failed to clear progress", zap.Error(err))
	}
}

// CancelResult reports how many applicants had already been processed (and
// are therefore preserved) when cancellation was requested.
type CancelResult struct {
	PreservedCount int `json:"preserved_count"`
}

// Cancel raises the cancellation flag for a job. The running supervisor
// observes it at the next wave boundary; completed work is preserved.
func (s *Service) Cancel(ctx context.Context, jobListingID uuid.UUID) (*CancelResult, error) {
	jobKey := jobListingID.String()

	if err := s.state.SetCancelled(ctx, jobKey); err != nil {
		return nil, transientf("setting cancellation flag: %v", err)
	}

	preserved := 0
	if progress, found, err := s.state.GetProgress(ctx, jobKey); err == nil && found {
		preserved = progress.Processed
	}
	return &CancelResult{PreservedCount: preserved}, nil
}

// StatusResult is the run state polled by external collaborators.
type StatusResult struct {
	State     types.RunState `json:"state"`
	Processed int            `json:"processed"`
	Total     int            `json:"total"`
	StartedAt time.Time      `json:"started_at"`
}

// GetStatus reports the state of the most recent run for a job. While a run
// is in flight the live progress counter takes precedence over the run row.
func (s *Service) GetStatus(ctx context.Context, jobListingID uuid.UUID) (*StatusResult, error) {
	run, err := s.results.GetLatestRun(ctx, jobListingID)
	if err != nil {
		return nil, transientf("loading run history: %v", err)
	}
	if run == nil {
		return &StatusResult{State: types.RunStateIdle}, nil
	}

	status := &StatusResult{
		State:     run.State,
		Processed: run.Processed,
		Total:     run.Total,
		StartedAt: run.StartedAt,
	}
	if run.State == types.RunStateRunning {
		if progress, found, err := s.state.GetProgress(ctx, jobListingID.String()); err == nil && found {
			status.Processed = progress.Processed
			status.Total = progress.Total
			status.StartedAt = progress.StartedAt
		}
	}
	return status, nil
}

// GetResults returns persisted results for a job; filtering and pagination
// are delegated to the persistence layer.
func (s *Service) GetResults(ctx context.Context, jobListingID uuid.UUID, filters db.ResultFilters) ([]types.AnalysisResult, error) {
	results, err := s.results.ListResults(ctx, jobListingID, filters)
	if err != nil {
		return nil, transientf("listing results: %v", err)
	}
	return results, nil
}

// Shutdown waits for in-flight supervisor goroutines to finish.
func (s *Service) Shutdown() {
	s.wg.Wait()
}

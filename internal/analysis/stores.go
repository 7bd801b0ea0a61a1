package analysis

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/applicant-analyzer/internal/db"
	"github.com/jonathan/applicant-analyzer/internal/types"
)

// RunStateStore is the coordination contract backed by the Redis-compatible
// store: run lock, cancellation flag, and progress counter.
// *runstate.Store implements it.
type RunStateStore interface {
	TryAcquire(ctx context.Context, jobID, runID string, ttl time.Duration) (bool, error)
	Renew(ctx context.Context, jobID, runID string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, jobID, runID string) error

	SetCancelled(ctx context.Context, jobID string) error
	IsCancelled(ctx context.Context, jobID string) (bool, error)
	ClearCancelled(ctx context.Context, jobID string) error

	InitProgress(ctx context.Context, jobID string, total int, startedAt time.Time) error
	IncrProcessed(ctx context.Context, jobID string, n int) error
	GetProgress(ctx context.Context, jobID string) (types.Progress, bool, error)
	ClearProgress(ctx context.Context, jobID string) error
}

// ResultStore is the persistence contract for results and run history.
// *db.DB implements it.
type ResultStore interface {
	db.ResultUpserter
	DeleteResultsForJob(ctx context.Context, jobListingID uuid.UUID) (int64, error)
	ListResults(ctx context.Context, jobListingID uuid.UUID, filters db.ResultFilters) ([]types.AnalysisResult, error)

	CreateRun(ctx context.Context, run types.Run) error
	FinishRun(ctx context.Context, runID uuid.UUID, state types.RunState, processed int, errorMessage string) error
	GetLatestRun(ctx context.Context, jobListingID uuid.UUID) (*types.Run, error)
}

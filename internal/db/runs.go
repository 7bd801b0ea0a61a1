package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/applicant-analyzer/internal/types"
)

// CreateRun records the start of an analysis run.
func (db *DB) CreateRun(ctx context.Context, run types.Run) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO analysis_runs (id, job_listing_id, state, processed, total, started_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		run.ID, run.JobListingID, run.State, run.Processed, run.Total, run.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create run %s: %w", run.ID, err)
	}
	return nil
}

// FinishRun records a run's terminal state and final counters.
func (db *DB) FinishRun(ctx context.Context, runID uuid.UUID, state types.RunState, processed int, errorMessage string) error {
	var msg *string
	if errorMessage != "" {
		msg = &errorMessage
	}
	_, err := db.pool.Exec(ctx,
		`UPDATE analysis_runs
		 SET state = $1, processed = $2, error_message = $3, finished_at = NOW()
		 WHERE id = $4`,
		state, processed, msg, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", runID, err)
	}
	return nil
}

// GetLatestRun returns the most recent run for a job, or nil when the job has
// never been analyzed.
func (db *DB) GetLatestRun(ctx context.Context, jobListingID uuid.UUID) (*types.Run, error) {
	var (
		run          types.Run
		errorMessage *string
	)
	err := db.pool.QueryRow(ctx,
		`SELECT id, job_listing_id, state, processed, total, error_message, started_at, finished_at
		 FROM analysis_runs WHERE job_listing_id = $1
		 ORDER BY started_at DESC LIMIT 1`,
		jobListingID,
	).Scan(&run.ID, &run.JobListingID, &run.State, &run.Processed, &run.Total,
		&errorMessage, &run.StartedAt, &run.FinishedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest run for job %s: %w", jobListingID, err)
	}
	if errorMessage != nil {
		run.ErrorMessage = *errorMessage
	}
	return &run, nil
}

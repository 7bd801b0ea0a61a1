package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/applicant-analyzer/internal/types"
)

// ErrNotFound indicates the requested row does not exist.
var ErrNotFound = errors.New("not found")

// FetchJobRequirements returns the requirements of a job listing. The
// job_listings table is owned by the listing service; this is a read-only
// view of it.
func (db *DB) FetchJobRequirements(ctx context.Context, jobListingID uuid.UUID) (*types.JobRequirements, error) {
	var job types.JobRequirements
	err := db.pool.QueryRow(ctx,
		`SELECT id, title, skills, experience_years, level, description, active
		 FROM job_listings WHERE id = $1`,
		jobListingID,
	).Scan(&job.JobListingID, &job.Title, &job.Skills, &job.ExperienceYears,
		&job.Level, &job.Description, &job.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("job listing %s: %w", jobListingID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch job listing %s: %w", jobListingID, err)
	}
	return &job, nil
}

// ListUnanalyzedApplicants returns the applicants of a job that have no
// analyzed result row. Applicants with an unprocessed row are included so a
// later run can pick them up again.
func (db *DB) ListUnanalyzedApplicants(ctx context.Context, jobListingID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT a.id FROM applicants a
		 WHERE a.job_listing_id = $1
		   AND NOT EXISTS (
			 SELECT 1 FROM analysis_results r
			 WHERE r.applicant_id = a.id
			   AND r.job_listing_id = a.job_listing_id
			   AND r.status = $2)
		 ORDER BY a.created_at`,
		jobListingID, types.StatusAnalyzed,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list unanalyzed applicants for job %s: %w", jobListingID, err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan applicant id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// FetchApplicantResumeText returns the applicant's parsed resume text.
func (db *DB) FetchApplicantResumeText(ctx context.Context, applicantID uuid.UUID) (string, error) {
	var text *string
	err := db.pool.QueryRow(ctx,
		`SELECT resume_text FROM applicants WHERE id = $1`, applicantID,
	).Scan(&text)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("applicant %s: %w", applicantID, ErrNotFound)
		}
		return "", fmt.Errorf("failed to fetch resume text for applicant %s: %w", applicantID, err)
	}
	if text == nil {
		return "", nil
	}
	return *text, nil
}

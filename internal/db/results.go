package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/applicant-analyzer/internal/types"
)

const upsertResultSQL = `
INSERT INTO analysis_results (
	applicant_id, job_listing_id,
	education_score, skills_score, experience_score, supplemental_score,
	overall_score, category, justifications, status, error_message
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (applicant_id, job_listing_id) DO UPDATE SET
	education_score = $3, skills_score = $4, experience_score = $5,
	supplemental_score = $6, overall_score = $7, category = $8,
	justifications = $9, status = $10, error_message = $11,
	updated_at = NOW()`

// UpsertResults writes one batch of results atomically, keyed on the unique
// (applicant_id, job_listing_id) constraint so reruns overwrite safely.
func (db *DB) UpsertResults(ctx context.Context, results []types.AnalysisResult) error {
	if len(results) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for i := range results {
		r := &results[i]

		var justifications []byte
		if r.Justifications != nil {
			var err error
			justifications, err = json.Marshal(r.Justifications)
			if err != nil {
				return fmt.Errorf("failed to marshal justifications for applicant %s: %w", r.ApplicantID, err)
			}
		}

		var errorMessage *string
		if r.ErrorMessage != "" {
			errorMessage = &r.ErrorMessage
		}

		batch.Queue(upsertResultSQL,
			r.ApplicantID, r.JobListingID,
			r.EducationScore, r.SkillsScore, r.ExperienceScore, r.SupplementalScore,
			r.OverallScore, r.Category, justifications, r.Status, errorMessage,
		)
	}

	// SendBatch wraps the queued statements in an implicit transaction, so
	// the batch commits or fails as a whole.
	br := db.pool.SendBatch(ctx, batch)
	defer func() { _ = br.Close() }()

	for range results {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to upsert result batch: %w", err)
		}
	}
	return nil
}

// DeleteResultsForJob removes every result row for a job. Only the explicit
// rerun path calls this; the supervisor loop never deletes.
func (db *DB) DeleteResultsForJob(ctx context.Context, jobListingID uuid.UUID) (int64, error) {
	tag, err := db.pool.Exec(ctx, `DELETE FROM analysis_results WHERE job_listing_id = $1`, jobListingID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete results for job %s: %w", jobListingID, err)
	}
	return tag.RowsAffected(), nil
}

// ResultFilters holds optional filters for listing results.
type ResultFilters struct {
	Status     types.Status
	Category   types.Category
	MinOverall *int
	Limit      int
	Offset     int
}

const selectResultColumns = `
	applicant_id, job_listing_id,
	education_score, skills_score, experience_score, supplemental_score,
	overall_score, category, justifications, status, error_message,
	created_at, updated_at`

// ListResults retrieves results for a job, best scores first, with optional
// filtering and pagination.
func (db *DB) ListResults(ctx context.Context, jobListingID uuid.UUID, filters ResultFilters) ([]types.AnalysisResult, error) {
	if filters.Limit == 0 {
		filters.Limit = 100
	}

	query := `SELECT` + selectResultColumns + ` FROM analysis_results WHERE job_listing_id = $1`
	args := []any{jobListingID}
	argNum := 2

	if filters.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argNum)
		args = append(args, filters.Status)
		argNum++
	}
	if filters.Category != "" {
		query += fmt.Sprintf(" AND category = $%d", argNum)
		args = append(args, filters.Category)
		argNum++
	}
	if filters.MinOverall != nil {
		query += fmt.Sprintf(" AND overall_score >= $%d", argNum)
		args = append(args, *filters.MinOverall)
		argNum++
	}

	query += fmt.Sprintf(" ORDER BY overall_score DESC NULLS LAST, applicant_id LIMIT $%d OFFSET $%d", argNum, argNum+1)
	args = append(args, filters.Limit, filters.Offset)

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list results for job %s: %w", jobListingID, err)
	}
	defer rows.Close()

	var results []types.AnalysisResult
	for rows.Next() {
		result, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

// CountResults returns the number of result rows for a job.
func (db *DB) CountResults(ctx context.Context, jobListingID uuid.UUID) (int, error) {
	var count int
	err := db.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM analysis_results WHERE job_listing_id = $1`, jobListingID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count results for job %s: %w", jobListingID, err)
	}
	return count, nil
}

// ListAnalyzedApplicantIDs returns the applicants of a job that already have
// an analyzed result row.
func (db *DB) ListAnalyzedApplicantIDs(ctx context.Context, jobListingID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT applicant_id FROM analysis_results WHERE job_listing_id = $1 AND status = $2`,
		jobListingID, types.StatusAnalyzed,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyzed applicants for job %s: %w", jobListingID, err)
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

func scanResult(rows pgx.Rows) (types.AnalysisResult, error) {
	var (
		result         types.AnalysisResult
		justifications []byte
		errorMessage   *string
	)
	err := rows.Scan(
		&result.ApplicantID, &result.JobListingID,
		&result.EducationScore, &result.SkillsScore, &result.ExperienceScore, &result.SupplementalScore,
		&result.OverallScore, &result.Category, &justifications, &result.Status, &errorMessage,
		&result.CreatedAt, &result.UpdatedAt,
	)
	if err != nil {
		return types.AnalysisResult{}, fmt.Errorf("failed to scan result: %w", err)
	}
	if errorMessage != nil {
		result.ErrorMessage = *errorMessage
	}
	if len(justifications) > 0 {
		result.Justifications = &types.Justifications{}
		if err := json.Unmarshal(justifications, result.Justifications); err != nil {
			return types.AnalysisResult{}, fmt.Errorf("failed to unmarshal justifications: %w", err)
		}
	}
	return result, nil
}

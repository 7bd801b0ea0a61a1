// Package worker implements the per-applicant analysis pipeline and the
// bounded pool dispatcher that fans a wave of applicants out to it.
package worker

import (
	"context"

	"github.com/google/uuid"

	"github.com/jonathan/applicant-analyzer/internal/types"
)

// JobSource exposes the job-listing store, an external collaborator.
type JobSource interface {
	// FetchJobRequirements returns the requirements of a job listing.
	FetchJobRequirements(ctx context.Context, jobListingID uuid.UUID) (*types.JobRequirements, error)
}

// ApplicantSource exposes the applicant store, an external collaborator.
type ApplicantSource interface {
	// ListUnanalyzedApplicants returns the applicants of a job that lack an
	// analyzed result.
	ListUnanalyzedApplicants(ctx context.Context, jobListingID uuid.UUID) ([]uuid.UUID, error)
	// FetchApplicantResumeText returns the applicant's parsed resume text.
	FetchApplicantResumeText(ctx context.Context, applicantID uuid.UUID) (string, error)
}

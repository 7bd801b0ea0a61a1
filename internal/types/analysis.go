// Package types provides type definitions for structured data used throughout the applicant-analyzer system.
package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Category is the qualitative bucket derived from the overall score.
type Category string

// Category constants, from best to worst fit.
const (
	CategoryBestMatch    Category = "best_match"
	CategoryGoodMatch    Category = "good_match"
	CategoryPartialMatch Category = "partial_match"
	CategoryMismatched   Category = "mismatched"
)

// Valid reports whether c is one of the defined categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryBestMatch, CategoryGoodMatch, CategoryPartialMatch, CategoryMismatched:
		return true
	default:
		return false
	}
}

// Status indicates whether an applicant's analysis completed.
type Status string

// Status constants for analysis results.
const (
	// StatusAnalyzed means all sub-scores and the overall score are present.
	StatusAnalyzed Status = "analyzed"
	// StatusUnprocessed means a pipeline stage failed; score fields are absent
	// and ErrorMessage holds a short diagnostic.
	StatusUnprocessed Status = "unprocessed"
)

// SubScores holds the four independently produced metric scores, each in [0,100].
type SubScores struct {
	Education    int `json:"education_score"`
	Skills       int `json:"skills_score"`
	Experience   int `json:"experience_score"`
	Supplemental int `json:"supplemental_score"`
}

// Validate checks that every sub-score is within [0,100].
// Out-of-range values are treated as failures, never clamped.
func (s SubScores) Validate() error {
	checks := []struct {
		name  string
		value int
	}{
		{"education_score", s.Education},
		{"skills_score", s.Skills},
		{"experience_score", s.Experience},
		{"supplemental_score", s.Supplemental},
	}
	for _, c := range checks {
		if c.value < 0 || c.value > 100 {
			return fmt.Errorf("%s out of range: %d", c.name, c.value)
		}
	}
	return nil
}

// Justifications holds the human-readable explanation per metric plus an
// overall justification. Justification text never influences scores.
type Justifications struct {
	Education    string `json:"education"`
	Skills       string `json:"skills"`
	Experience   string `json:"experience"`
	Supplemental string `json:"supplemental"`
	Overall      string `json:"overall"`
}

// PlaceholderJustifications returns the fallback justification set used when
// the justification stage fails after an otherwise successful analysis.
func PlaceholderJustifications() *Justifications {
	const placeholder = "Justification unavailable."
	return &Justifications{
		Education:    placeholder,
		Skills:       placeholder,
		Experience:   placeholder,
		Supplemental: placeholder,
		Overall:      placeholder,
	}
}

// AnalysisResult is the outcome of one applicant's analysis against one job
// listing. At most one result exists per (applicant, job listing) pair.
type AnalysisResult struct {
	ApplicantID  uuid.UUID `json:"applicant_id"`
	JobListingID uuid.UUID `json:"job_listing_id"`

	// Score fields are nil when Status is StatusUnprocessed.
	EducationScore    *int      `json:"education_score,omitempty"`
	SkillsScore       *int      `json:"skills_score,omitempty"`
	ExperienceScore   *int      `json:"experience_score,omitempty"`
	SupplementalScore *int      `json:"supplemental_score,omitempty"`
	OverallScore      *int      `json:"overall_score,omitempty"`
	Category          *Category `json:"category,omitempty"`

	Justifications *Justifications `json:"justifications,omitempty"`

	Status       Status `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`

	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// NewAnalyzedResult builds a successful result from sub-scores, the derived
// overall score/category, and justifications.
func NewAnalyzedResult(applicantID, jobListingID uuid.UUID, sub SubScores, overall int, category Category, just *Justifications) AnalysisResult {
	edu, skills, exp, supp := sub.Education, sub.Skills, sub.Experience, sub.Supplemental
	return AnalysisResult{
		ApplicantID:       applicantID,
		JobListingID:      jobListingID,
		EducationScore:    &edu,
		SkillsScore:       &skills,
		ExperienceScore:   &exp,
		SupplementalScore: &supp,
		OverallScore:      &overall,
		Category:          &category,
		Justifications:    just,
		Status:            StatusAnalyzed,
	}
}

// NewUnprocessedResult builds a failed result carrying a short diagnostic.
// The message must not contain applicant PII.
func NewUnprocessedResult(applicantID, jobListingID uuid.UUID, errorMessage string) AnalysisResult {
	return AnalysisResult{
		ApplicantID:  applicantID,
		JobListingID: jobListingID,
		Status:       StatusUnprocessed,
		ErrorMessage: errorMessage,
	}
}

// Validate checks the result invariant: analyzed results carry all scores and
// no error message, unprocessed results carry an error message and no scores.
func (r *AnalysisResult) Validate() error {
	switch r.Status {
	case StatusAnalyzed:
		if r.EducationScore == nil || r.SkillsScore == nil || r.ExperienceScore == nil ||
			r.SupplementalScore == nil || r.OverallScore == nil || r.Category == nil {
			return fmt.Errorf("analyzed result for applicant %s is missing score fields", r.ApplicantID)
		}
	case StatusUnprocessed:
		if r.ErrorMessage == "" {
			return fmt.Errorf("unprocessed result for applicant %s has no error message", r.ApplicantID)
		}
		if r.OverallScore != nil || r.EducationScore != nil || r.SkillsScore != nil ||
			r.ExperienceScore != nil || r.SupplementalScore != nil {
			return fmt.Errorf("unprocessed result for applicant %s carries score fields", r.ApplicantID)
		}
	default:
		return fmt.Errorf("unknown result status %q", r.Status)
	}
	return nil
}

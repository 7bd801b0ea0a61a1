// Package evaluation implements the scoring stage: it asks the
// text-generation service for the four metric sub-scores of a classified
// resume against a job's requirements.
package evaluation

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/jonathan/applicant-analyzer/internal/llm"
	"github.com/jonathan/applicant-analyzer/internal/prompts"
	"github.com/jonathan/applicant-analyzer/internal/schemas"
	"github.com/jonathan/applicant-analyzer/internal/types"
)

// Evaluate produces the four sub-scores for a classified resume. Missing or
// out-of-range scores are failures; values are never clamped, so the scoring
// boundaries stay meaningful.
func Evaluate(ctx context.Context, client llm.Client, cfg llm.RetryConfig, job *types.JobRequirements, classified *types.ClassifiedResume) (types.SubScores, error) {
	prompt := buildPrompt(job, classified)

	responseText, err := llm.WithRetry(ctx, cfg, func(ctx context.Context) (string, error) {
		return client.GenerateJSON(ctx, prompt, llm.TierStandard)
	})
	if err != nil {
		return types.SubScores{}, fmt.Errorf("failed to generate scores: %w", err)
	}

	if err := schemas.Validate(schemas.SubScores, responseText); err != nil {
		return types.SubScores{}, err
	}

	var sub types.SubScores
	if err := json.Unmarshal([]byte(responseText), &sub); err != nil {
		return types.SubScores{}, fmt.Errorf("failed to parse scores response: %w", err)
	}

	// The schema already bounds each score; this guards against schema drift.
	if err := sub.Validate(); err != nil {
		return types.SubScores{}, err
	}

	return sub, nil
}

func buildPrompt(job *types.JobRequirements, classified *types.ClassifiedResume) string {
	template := prompts.MustGet("analysis.json", "score-sections")
	return prompts.Format(template, map[string]string{
		"Title":                   job.Title,
		"Level":                   job.Level,
		"ExperienceYears":         strconv.Itoa(job.ExperienceYears),
		"Skills":                  strings.Join(job.Skills, ", "),
		"Description":             job.Description,
		"ProfessionalExperience":  classified.ProfessionalExperience,
		"Education":               classified.Education,
		"ResumeSkills":            classified.Skills,
		"SupplementalInformation": classified.SupplementalInformation,
	})
}

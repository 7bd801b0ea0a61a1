// Package justification implements the justification stage: it asks the
// text-generation service for human-readable explanations of the assigned
// scores. Justification text never influences scores, and a failure here is
// non-fatal to the applicant's analysis.
package justification

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

// Justify produces per-metric and overall justification text for the given
// scores. Callers substitute placeholder text when this fails.
func Justify(ctx context.Context, client llm.Client, cfg llm.RetryConfig, job *types.JobRequirements, classified *types.ClassifiedResume, sub types.SubScores, overall int) (*types.Justifications, error) {
	prompt := buildPrompt(job, classified, sub, overall)

	responseText, err := llm.WithRetry(ctx, cfg, func(ctx context.Context) (string, error) {
		return client.GenerateJSON(ctx, prompt, llm.TierStandard)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate justifications: %w", err)
	}

	if err := schemas.Validate(schemas.Justifications, responseText); err != nil {
		return nil, err
	}

	var just types.Justifications
	if err := json.Unmarshal([]byte(responseText), &just); err != nil {
		return nil, fmt.Errorf("failed to parse justification response: %w", err)
	}

	return &just, nil
}

func buildPrompt(job *types.JobRequirements, classified *types.ClassifiedResume, sub types.SubScores, overall int) string {
	template := prompts.MustGet("analysis.json", "justify-scores")
	return prompts.Format(template, map[string]string{
		"Title":                   job.Title,
		"Level":                   job.Level,
		"ExperienceYears":         strconv.Itoa(job.ExperienceYears),
		"Skills":                  strings.Join(job.Skills, ", "),
		"ProfessionalExperience":  classified.ProfessionalExperience,
		"Education":               classified.Education,
		"ResumeSkills":            classified.Skills,
		"SupplementalInformation": classified.SupplementalInformation,
		"EducationScore":          strconv.Itoa(sub.Education),
		"SkillsScore":             strconv.Itoa(sub.Skills),
		"ExperienceScore":         strconv.Itoa(sub.Experience),
		"SupplementalScore":       strconv.Itoa(sub.Supplemental),
		"OverallScore":            strconv.Itoa(overall),
	})
}

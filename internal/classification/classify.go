// Package classification implements the resume classification stage: it asks
// the text-generation service to partition raw resume text into the four
// sections the scoring stage consumes.
package classification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jonathan/applicant-analyzer/internal/llm"
	"github.com/jonathan/applicant-analyzer/internal/prompts"
	"github.com/jonathan/applicant-analyzer/internal/schemas"
	"github.com/jonathan/applicant-analyzer/internal/types"
)

// Classify partitions resume text into professional experience, education,
// skills, and supplemental information. Transient provider failures are
// retried per cfg; a malformed or schema-violating response is a hard failure.
func Classify(ctx context.Context, client llm.Client, cfg llm.RetryConfig, resumeText string) (*types.ClassifiedResume, error) {
	prompt := buildPrompt(resumeText)

	responseText, err := llm.WithRetry(ctx, cfg, func(ctx context.Context) (string, error) {
		return client.GenerateJSON(ctx, prompt, llm.TierLite)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate classification: %w", err)
	}

	if err := schemas.Validate(schemas.ClassifiedResume, responseText); err != nil {
		return nil, err
	}

	var classified types.ClassifiedResume
	if err := json.Unmarshal([]byte(responseText), &classified); err != nil {
		return nil, fmt.Errorf("failed to parse classification response: %w", err)
	}

	return &classified, nil
}

func buildPrompt(resumeText string) string {
	template := prompts.MustGet("analysis.json", "classify-resume")
	return prompts.Format(template, map[string]string{
		"ResumeText": resumeText,
	})
}

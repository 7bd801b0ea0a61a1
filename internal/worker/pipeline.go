package worker

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/applicant-analyzer/internal/classification"
	"github.com/jonathan/applicant-analyzer/internal/evaluation"
	"github.com/jonathan/applicant-analyzer/internal/justification"
	"github.com/jonathan/applicant-analyzer/internal/llm"
	"github.com/jonathan/applicant-analyzer/internal/scoring"
	"github.com/jonathan/applicant-analyzer/internal/types"
)

// Pipeline runs the sequential per-applicant stages: retrieval,
// classification, scoring, categorization, justification. Any stage failure
// short-circuits the rest and yields an unprocessed result; one bad resume
// never aborts the batch.
type Pipeline struct {
	client     llm.Client
	applicants ApplicantSource
	retry      llm.RetryConfig
	logger     *zap.Logger
}

// NewPipeline creates a pipeline over the given text-generation client and
// applicant store.
func NewPipeline(client llm.Client, applicants ApplicantSource, retry llm.RetryConfig, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		client:     client,
		applicants: applicants,
		retry:      retry,
		logger:     logger,
	}
}

// Process analyzes one applicant against the job requirements. It always
// returns a result: stage failures are captured as unprocessed results with a
// stage-tagged error message rather than returned as errors.
func (p *Pipeline) Process(ctx context.Context, job *types.JobRequirements, applicantID uuid.UUID) types.AnalysisResult {
	log := p.logger.With(
		zap.String("applicant_id", applicantID.String()),
		zap.String("job_listing_id", job.JobListingID.String()),
	)

	// Stage 1: retrieval. Not retried; an empty resume is a data problem,
	// not a transient one.
	resumeText, err := p.applicants.FetchApplicantResumeText(ctx, applicantID)
	if err != nil {
		return p.unprocessed(log, applicantID, job, "retrieval", err)
	}
	if strings.TrimSpace(resumeText) == "" {
		return p.unprocessed(log, applicantID, job, "retrieval", fmt.Errorf("resume text is empty"))
	}

	// Stage 2: classification.
	classified, err := classification.Classify(ctx, p.client, p.retry, resumeText)
	if err != nil {
		return p.unprocessed(log, applicantID, job, "classification", err)
	}

	// Stage 3: scoring.
	sub, err := evaluation.Evaluate(ctx, p.client, p.retry, job, classified)
	if err != nil {
		return p.unprocessed(log, applicantID, job, "scoring", err)
	}

	// Stage 4: categorization. Pure and local.
	overall, category := scoring.Score(sub)

	// Stage 5: justification. Non-fatal: scores stand even when the
	// explanation cannot be generated.
	just, err := justification.Justify(ctx, p.client, p.retry, job, classified, sub, overall)
	if err != nil {
		log.Warn("justification failed, using placeholder", zap.Error(err))
		just = types.PlaceholderJustifications()
	}

	log.Debug("applicant analyzed",
		zap.Int("overall_score", overall),
		zap.String("category", string(category)))

	return types.NewAnalyzedResult(applicantID, job.JobListingID, sub, overall, category, just)
}

func (p *Pipeline) unprocessed(log *zap.Logger, applicantID uuid.UUID, job *types.JobRequirements, stage string, err error) types.AnalysisResult {
	log.Warn("pipeline stage failed",
		zap.String("stage", stage),
		zap.Error(err))
	return types.NewUnprocessedResult(applicantID, job.JobListingID, stageMessage(stage, err))
}

// stageMessage builds the short diagnostic stored on unprocessed results.
// It keeps the stage tag and the failure class, not resume content.
func stageMessage(stage string, err error) string {
	msg := err.Error()
	if idx := strings.IndexByte(msg, '\n'); idx >= 0 {
		msg = msg[:idx]
	}
	const maxLen = 200
	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	return fmt.Sprintf("%s: %s", stage, msg)
}

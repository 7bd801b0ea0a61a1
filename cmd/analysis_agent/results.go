package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/applicant-analyzer/internal/db"
	"github.com/jonathan/applicant-analyzer/internal/types"
)

var (
	resultsConfigPath string
	resultsJobID      string
	resultsStatus     string
	resultsCategory   string
	resultsMinOverall int
	resultsLimit      int
	resultsJSON       bool
)

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "List persisted analysis results for a job listing",
	Long:  `Lists the analysis results of a job listing, best scores first, with optional status, category, and minimum-score filters.`,
	RunE:  runResults,
}

func init() {
	resultsCmd.Flags().StringVar(&resultsConfigPath, "config", "", "Path to config.json file (values can be overridden by environment variables)")
	resultsCmd.Flags().StringVarP(&resultsJobID, "job-id", "j", "", "Job listing UUID (required)")
	resultsCmd.Flags().StringVar(&resultsStatus, "status", "", "Filter by status (analyzed or unprocessed)")
	resultsCmd.Flags().StringVar(&resultsCategory, "category", "", "Filter by category (best_match, good_match, partial_match, mismatched)")
	resultsCmd.Flags().IntVar(&resultsMinOverall, "min-overall", -1, "Filter by minimum overall score (0-100)")
	resultsCmd.Flags().IntVar(&resultsLimit, "limit", 50, "Maximum number of results")
	resultsCmd.Flags().BoolVar(&resultsJSON, "json", false, "Print results as JSON")
	_ = resultsCmd.MarkFlagRequired("job-id")
	rootCmd.AddCommand(resultsCmd)
}

func runResults(_ *cobra.Command, _ []string) error {
	jobID, err := uuid.Parse(resultsJobID)
	if err != nil {
		return fmt.Errorf("invalid job listing ID %q: %w", resultsJobID, err)
	}

	filters := db.ResultFilters{Limit: resultsLimit}
	if resultsStatus != "" {
		status := types.Status(resultsStatus)
		if status != types.StatusAnalyzed && status != types.StatusUnprocessed {
			return fmt.Errorf("invalid status filter %q", resultsStatus)
		}
		filters.Status = status
	}
	if resultsCategory != "" {
		category := types.Category(resultsCategory)
		if !category.Valid() {
			return fmt.Errorf("invalid category filter %q", resultsCategory)
		}
		filters.Category = category
	}
	if resultsMinOverall >= 0 {
		if resultsMinOverall > 100 {
			return fmt.Errorf("min-overall must be within 0-100")
		}
		filters.MinOverall = &resultsMinOverall
	}

	cfg, err := loadConfig(resultsConfigPath)
	if err != nil {
		return err
	}

	log, err := newLogger(false)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx := context.Background()
	service, cleanup, err := buildService(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	results, err := service.GetResults(ctx, jobID, filters)
	if err != nil {
		return err
	}

	if resultsJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	fmt.Fprintf(os.Stdout, "%d results for job %s\n", len(results), jobID)
	for _, r := range results {
		switch r.Status {
		case types.StatusAnalyzed:
			fmt.Fprintf(os.Stdout, "  %s  overall=%-3d  %s\n",
				r.ApplicantID, *r.OverallScore, *r.Category)
		case types.StatusUnprocessed:
			fmt.Fprintf(os.Stdout, "  %s  unprocessed: %s\n",
				r.ApplicantID, r.ErrorMessage)
		}
	}
	return nil
}

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/applicant-analyzer/internal/types"
)

var (
	analyzeConfigPath string
	analyzeJobID      string
	analyzeRerun      bool
	analyzeVerbose    bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run an analysis for a job listing and wait for it to finish",
	Long: `Analyzes every unanalyzed applicant of a closed job listing against its
requirements and persists the scored results. The command blocks until the run
reaches a terminal state. With --rerun, all prior results for the job are
deleted first and the full roster is re-analyzed.`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeConfigPath, "config", "", "Path to config.json file (values can be overridden by environment variables)")
	analyzeCmd.Flags().StringVarP(&analyzeJobID, "job-id", "j", "", "Job listing UUID (required)")
	analyzeCmd.Flags().BoolVar(&analyzeRerun, "rerun", false, "Delete prior results and re-analyze the full roster")
	analyzeCmd.Flags().BoolVarP(&analyzeVerbose, "verbose", "v", false, "Print detailed debug information")
	_ = analyzeCmd.MarkFlagRequired("job-id")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(_ *cobra.Command, _ []string) error {
	jobID, err := uuid.Parse(analyzeJobID)
	if err != nil {
		return fmt.Errorf("invalid job listing ID %q: %w", analyzeJobID, err)
	}

	cfg, err := loadConfig(analyzeConfigPath)
	if err != nil {
		return err
	}

	log, err := newLogger(analyzeVerbose || cfg.Verbose)
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

	if analyzeRerun {
		res, err := service.Rerun(ctx, jobID)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Rerun started: run %s, %d applicants\n", res.RunID, res.Total)
		service.Shutdown()
	} else {
		res, err := service.Analyze(ctx, jobID)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Run %s finished: %d applicants\n", res.RunID, res.Total)
	}

	status, err := service.GetStatus(ctx, jobID)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "State: %s, processed %d/%d\n", status.State, status.Processed, status.Total)
	if status.State == types.RunStateFailed {
		return fmt.Errorf("analysis run failed")
	}
	return nil
}

// Package main provides the entry point for the applicant analysis agent.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "analysis_agent",
	Short: "Applicant analysis and scoring agent",
	Long:  "Analyzes and scores every applicant of a job listing against its requirements using a text-generation service, with concurrent per-applicant pipelines and durable, resumable runs.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

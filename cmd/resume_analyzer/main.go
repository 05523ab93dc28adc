// Package main provides the resume_analyzer CLI: the HTTP API server plus local tooling.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "resume_analyzer",
	Short: "Resume ATS Analyzer",
	Long:  "Resume ATS Analyzer scores PDF resumes against job descriptions, optionally rewrites them, and exports the rewrite as PDF.",
	// Errors are printed by main.
	SilenceUsage: true,
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

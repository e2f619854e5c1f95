package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
)

// CheckRendererCLI verifies the configured renderer binary is in PATH.
// Returns an error with installation instructions if not found.
func CheckRendererCLI(binary string) error {
	_, err := exec.LookPath(binary)
	if err != nil {
		return fmt.Errorf("%s CLI not found in PATH\n\n"+
			"Genflow drives a generative renderer CLI for document generation.\n\n"+
			"Install it with:\n"+
			"  npm install -g @anthropic-ai/claude-code\n\n"+
			"or configure a different backend with renderer.backend: api", binary)
	}
	return nil
}

var rootCmd = &cobra.Command{
	Use:   "genflow",
	Short: "Generation orchestration engine",
	Long: `Genflow routes document-generation requests to the right model tier,
manages conversation context, caches repeat answers, and drives a generative
renderer through synchronous, streaming, and background job paths.

Core capabilities:
- Classifies requests and routes each to a cost-appropriate model
- Trims conversation context per request shape
- Caches idempotent text answers with a TTL
- Splits multi-file requests into parallel sub-tasks
- Tracks long-running generations as pollable jobs`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(versionCmd)
}

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/zimalabs/genflow/pkg/models"
)

var (
	generateSession  string
	generateParallel bool
	generateStream   bool
)

var generateCmd = &cobra.Command{
	Use:   "generate [prompt]",
	Short: "Run one generation from the command line",
	Long: `Run a single generation request without the HTTP server.

Examples:
  genflow generate "What is a balance sheet?"
  genflow generate --stream "Explain the Q2 numbers"
  genflow generate --parallel "Create 3 Excel files comparing revenue"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&generateSession, "session", "", "Session identifier for file grouping")
	generateCmd.Flags().BoolVar(&generateParallel, "parallel", false, "Decompose eligible prompts into parallel sub-tasks")
	generateCmd.Flags().BoolVar(&generateStream, "stream", false, "Print content fragments as they arrive")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	eng, err := buildEngine()
	if err != nil {
		return err
	}
	defer eng.shutdown()

	req := &models.GenerationRequest{
		Prompt:    strings.Join(args, " "),
		SessionID: generateSession,
	}
	ctx := context.Background()

	if generateStream {
		return eng.orch.GenerateStreaming(ctx, req, printStreamEvent)
	}

	var result *models.GenerationResult
	if generateParallel {
		result, err = eng.orch.ExecuteParallel(ctx, req)
	} else {
		result, err = eng.orch.Generate(ctx, req)
	}
	if err != nil {
		return err
	}

	printResult(result)
	if !result.Success {
		return fmt.Errorf("generation failed: %s", result.Message)
	}
	return nil
}

func printStreamEvent(ev models.StreamEvent) {
	switch ev.Type {
	case models.StreamStart:
		color.Cyan("model=%s complexity=%s tier=%s", ev.Model, ev.Complexity, ev.ContextTier)
	case models.StreamContent:
		fmt.Print(ev.Text)
	case models.StreamFiles:
		fmt.Println()
		for _, f := range ev.Files {
			color.Green("wrote %s (%d bytes)", f.Name, f.Size)
		}
	case models.StreamComplete:
		fmt.Println()
		if ev.Usage != nil {
			color.Cyan("tokens in=%d out=%d cost=$%.4f (%dms)",
				ev.Usage.InputTokens, ev.Usage.OutputTokens, ev.Usage.Cost, ev.DurationMs)
		}
	case models.StreamError:
		color.Red("error: %s", ev.Message)
	}
}

func printResult(result *models.GenerationResult) {
	if result.Output != "" {
		fmt.Println(result.Output)
	}
	for _, f := range result.Files {
		color.Green("wrote %s (%d bytes)", f.Name, f.Size)
	}
	color.Cyan("model=%s complexity=%s tier=%s tokens=%d cost=$%.4f",
		result.Model, result.Complexity, result.ContextTier,
		result.Usage.TotalTokens(), result.Usage.Cost)
	for _, e := range result.Errors {
		color.Red("error: %s", e)
	}
}

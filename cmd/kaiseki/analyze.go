package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ashita-ai/kaiseki/internal/interp"
	"github.com/ashita-ai/kaiseki/internal/model"
	"github.com/ashita-ai/kaiseki/internal/runner"
)

var (
	analyzeJSON      bool
	analyzeSteps     bool
	analyzeTimeout   time.Duration
	analyzeStepLimit int
)

var analyzeCmd = &cobra.Command{
	Use:          "analyze [file]",
	Short:        "Analyze a snippet locally and print the report",
	Long:         "Analyze reads a Go snippet from a file (or stdin when no file is given), runs the full analysis pipeline in-process, and prints the result.",
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		code, err := readSnippet(args)
		if err != nil {
			return err
		}

		req := model.AnalyzeRequest{Code: code}
		if err := req.Validate(); err != nil {
			return err
		}

		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		r := runner.New(analyzeTimeout, analyzeStepLimit, logger)
		result := r.Analyze(context.Background(), code)

		if analyzeJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}
		printResult(cmd.OutOrStdout(), result)
		return nil
	},
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "print the raw JSON result")
	analyzeCmd.Flags().BoolVar(&analyzeSteps, "steps", false, "include the line-by-line execution trace")
	analyzeCmd.Flags().DurationVar(&analyzeTimeout, "timeout", 5*time.Second, "execution wall-clock budget")
	analyzeCmd.Flags().IntVar(&analyzeStepLimit, "step-limit", interp.DefaultStepLimit, "interpreter step budget")
}

func readSnippet(args []string) (string, error) {
	if len(args) == 1 {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", fmt.Errorf("read %s: %w", args[0], err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	okColor     = color.New(color.FgGreen)
	failColor   = color.New(color.FgRed, color.Bold)
	warnColor   = color.New(color.FgYellow)
)

func printResult(w io.Writer, a model.Analysis) {
	if !a.Success {
		failColor.Fprintln(w, "Execution failed")
		fmt.Fprintln(w, a.Error)
		return
	}

	headerColor.Fprintln(w, "Performance")
	fmt.Fprintf(w, "  execution time: %gs\n", a.ExecutionTime)
	fmt.Fprintf(w, "  memory used:    %g MB\n", a.MemoryUsed)
	fmt.Fprintf(w, "  time:           %s\n", a.TimeComplexity)
	fmt.Fprintf(w, "  space:          %s\n", a.SpaceComplexity)

	if len(a.Issues) > 0 {
		headerColor.Fprintln(w, "Issues")
		for _, issue := range a.Issues {
			warnColor.Fprintf(w, "  - %s\n", issue)
		}
	}
	if len(a.Recommendations) > 0 {
		headerColor.Fprintln(w, "Recommendations")
		for _, rec := range a.Recommendations {
			fmt.Fprintf(w, "  - %s\n", rec)
		}
	}
	if a.Output != "" {
		headerColor.Fprintln(w, "Output")
		fmt.Fprint(w, a.Output)
		if a.Output[len(a.Output)-1] != '\n' {
			fmt.Fprintln(w)
		}
	}
	if analyzeSteps && len(a.ExecutionSteps) > 0 {
		headerColor.Fprintln(w, "Execution steps")
		for _, step := range a.ExecutionSteps {
			fmt.Fprintf(w, "  %s\n", step)
		}
	}
	okColor.Fprintln(w, "done")
}

package main

import (
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "kaiseki",
	Short: "Code analysis and execution visualization service",
	Long: `Kaiseki analyzes Go snippets: it executes them in a sandboxed
interpreter and reports performance metrics, complexity estimates, a
line-by-line execution trace, per-line memory snapshots, and the syntax
tree. Run "kaiseki serve" for the HTTP API or "kaiseki analyze" for a
one-shot local analysis.`,
}

func main() {
	rootCmd.Version = version
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

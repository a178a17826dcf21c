// Package report assembles the downloadable plain-text analysis report.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/ashita-ai/kaiseki/internal/model"
)

var separator = strings.Repeat("=", 50)

// Render builds the report text for one analyzed snippet. Sections with no
// content (no issues, no output) are omitted entirely.
func Render(code string, a model.Analysis, now time.Time) string {
	var b strings.Builder

	b.WriteString("Code Analysis Report\n")
	fmt.Fprintf(&b, "Generated on: %s\n\n", now.Format("2006-01-02 15:04:05"))

	section(&b, "CODE:")
	b.WriteString(code + "\n\n")

	section(&b, "PERFORMANCE METRICS:")
	fmt.Fprintf(&b, "Execution Time: %g seconds\n", a.ExecutionTime)
	fmt.Fprintf(&b, "Memory Used: %g MB\n", a.MemoryUsed)
	fmt.Fprintf(&b, "Time Complexity: %s\n", orUnknown(a.TimeComplexity))
	fmt.Fprintf(&b, "Space Complexity: %s\n\n", orUnknown(a.SpaceComplexity))

	if len(a.Issues) > 0 {
		section(&b, "ISSUES:")
		for _, issue := range a.Issues {
			fmt.Fprintf(&b, "- %s\n", issue)
		}
		b.WriteString("\n")
	}

	if len(a.Recommendations) > 0 {
		section(&b, "RECOMMENDATIONS:")
		for _, rec := range a.Recommendations {
			fmt.Fprintf(&b, "- %s\n", rec)
		}
		b.WriteString("\n")
	}

	if a.Output != "" {
		section(&b, "PROGRAM OUTPUT:")
		b.WriteString(a.Output + "\n\n")
	}

	if len(a.ExecutionSteps) > 0 {
		section(&b, "EXECUTION STEPS:")
		for _, step := range a.ExecutionSteps {
			b.WriteString(step + "\n")
		}
		b.WriteString("\n")
	}

	return b.String()
}

func section(b *strings.Builder, title string) {
	b.WriteString(title + "\n")
	b.WriteString(separator + "\n")
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

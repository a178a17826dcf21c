// Package model defines the domain types for Kaiseki: submitted snippets,
// analysis results, and the HTTP API envelopes. Types use strong typing and
// avoid interface{} wherever possible.
package model

import (
	"time"

	"github.com/google/uuid"
)

// Analysis is the complete result of analyzing and executing one snippet.
// Field names follow the JSON payload the UI consumes.
type Analysis struct {
	Success         bool     `json:"success"`
	Error           string   `json:"error,omitempty"`
	ExecutionTime   float64  `json:"execution_time"`  // seconds, rounded to 4 places
	MemoryUsed      float64  `json:"memory_used"`     // MB, rounded to 2 places
	TimeComplexity  string   `json:"time_complexity"`
	SpaceComplexity string   `json:"space_complexity"`
	Issues          []string `json:"issues"`
	Recommendations []string `json:"recommendations"`
	PerformancePlot string   `json:"performance_plot,omitempty"` // base64 PNG
	Output          string   `json:"output"`
	ExecutionSteps  []string `json:"execution_steps"`
	ASTTree         []string `json:"ast_tree"`
	MemoryMap       []string `json:"memory_map"`
}

// FailedAnalysis is the degraded result returned when the snippet could not
// be executed at all. The complexity labels are unknown rather than absent
// so the UI renders a complete, if empty, report.
func FailedAnalysis(err error) Analysis {
	return Analysis{
		Success:         false,
		Error:           err.Error(),
		TimeComplexity:  "Unknown",
		SpaceComplexity: "Unknown",
		Issues:          []string{"Execution error: " + err.Error()},
		Recommendations: []string{"Fix runtime errors in your code"},
		ExecutionSteps:  []string{},
		ASTTree:         []string{},
		MemoryMap:       []string{},
	}
}

// SnippetKind distinguishes saved artifacts.
type SnippetKind string

const (
	KindCode   SnippetKind = "code"
	KindReport SnippetKind = "report"
)

// SavedSnippet is the index record for one saved file.
type SavedSnippet struct {
	ID          uuid.UUID   `json:"id"`
	Filename    string      `json:"filename"`
	Kind        SnippetKind `json:"kind"`
	SizeBytes   int64       `json:"size_bytes"`
	ContentHash string      `json:"content_hash"`
	CreatedAt   time.Time   `json:"created_at"`
}

// AnalysisRecord is the history row kept per analysis run. It carries the
// headline metrics only, never the submitted code or the full result.
type AnalysisRecord struct {
	ID              uuid.UUID `json:"id"`
	Success         bool      `json:"success"`
	ExecutionTime   float64   `json:"execution_time"`
	MemoryUsed      float64   `json:"memory_used"`
	TimeComplexity  string    `json:"time_complexity"`
	SpaceComplexity string    `json:"space_complexity"`
	CodeSizeBytes   int64     `json:"code_size_bytes"`
	CreatedAt       time.Time `json:"created_at"`
}

package kaiseki

import (
	"time"

	"github.com/google/uuid"
)

// Analysis is the full result of analyzing one code snippet.
type Analysis struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`

	// ExecutionTime is wall-clock seconds, rounded to 4 places.
	ExecutionTime float64 `json:"execution_time"`
	// MemoryUsed is megabytes, rounded to 2 places.
	MemoryUsed      float64 `json:"memory_used"`
	TimeComplexity  string  `json:"time_complexity"`
	SpaceComplexity string  `json:"space_complexity"`

	Issues          []string `json:"issues"`
	Recommendations []string `json:"recommendations"`

	// PerformancePlot is a base64-encoded PNG bar chart.
	PerformancePlot string `json:"performance_plot,omitempty"`

	Output         string   `json:"output"`
	ExecutionSteps []string `json:"execution_steps"`
	ASTTree        []string `json:"ast_tree"`
	MemoryMap      []string `json:"memory_map"`
}

// Snippet describes a saved code snippet or analysis report.
type Snippet struct {
	ID          uuid.UUID `json:"id"`
	Filename    string    `json:"filename"`
	Kind        string    `json:"kind"`
	SizeBytes   int64     `json:"size_bytes"`
	ContentHash string    `json:"content_hash"`
	CreatedAt   time.Time `json:"created_at"`
}

// SaveResult confirms a save and reports the filename actually used
// (timestamped when the request left it empty).
type SaveResult struct {
	Message  string `json:"message"`
	Filename string `json:"filename"`
}

// Health is the server health report.
type Health struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Storage string `json:"storage"`
	Uptime  int64  `json:"uptime_seconds"`
}

// AnalysisRecord is one row of analysis history: headline metrics only,
// never the submitted code.
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

type snippetsResponse struct {
	Snippets []Snippet `json:"snippets"`
}

type analysesResponse struct {
	Analyses []AnalysisRecord `json:"analyses"`
}

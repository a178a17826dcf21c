package kaiseki

import (
	"time"

	"github.com/google/uuid"
)

// Analysis is the public representation of a full snippet analysis.
// It is a curated view of internal/model.Analysis for embedders.
// No internal package imports — safe to use from outside the module.
type Analysis struct {
	Success         bool
	Error           string
	ExecutionTime   float64
	MemoryUsed      float64
	TimeComplexity  string
	SpaceComplexity string
	Issues          []string
	Recommendations []string
	// PerformancePlot is a base64-encoded PNG bar chart, empty when
	// rendering failed.
	PerformancePlot string
	Output          string
	ExecutionSteps  []string
	ASTTree         []string
	MemoryMap       []string
}

// Snippet describes a saved code snippet or analysis report.
type Snippet struct {
	ID          uuid.UUID
	Filename    string
	Kind        string
	SizeBytes   int64
	ContentHash string
	CreatedAt   time.Time
}

package runner

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func newTestRunner() *Runner {
	return New(5*time.Second, 0, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestAnalyzeSimpleSnippet(t *testing.T) {
	r := newTestRunner()
	result := r.Analyze(context.Background(), "x := 40 + 2\nfmt.Println(x)")

	if !result.Success {
		t.Fatalf("analysis failed: %s", result.Error)
	}
	if result.Output != "42\n" {
		t.Errorf("output = %q", result.Output)
	}
	if result.TimeComplexity != "O(1)" {
		t.Errorf("time complexity = %q", result.TimeComplexity)
	}
	if len(result.ExecutionSteps) == 0 {
		t.Error("no execution steps recorded")
	}
	if result.ExecutionSteps[0] != "Step 1: Executing line 1" {
		t.Errorf("first step = %q", result.ExecutionSteps[0])
	}
	if len(result.ASTTree) == 0 {
		t.Error("no AST tree rendered")
	}
	if len(result.MemoryMap) == 0 {
		t.Error("no memory map rendered")
	}
	if result.ExecutionTime < 0 {
		t.Errorf("negative execution time %g", result.ExecutionTime)
	}
}

func TestAnalyzeLoopComplexity(t *testing.T) {
	r := newTestRunner()
	code := "total := 0\nfor i := 0; i < 10; i++ {\n\ttotal = total + i\n}\nfmt.Println(total)"
	result := r.Analyze(context.Background(), code)

	if !result.Success {
		t.Fatalf("analysis failed: %s", result.Error)
	}
	if result.Output != "45\n" {
		t.Errorf("output = %q", result.Output)
	}
	if result.TimeComplexity != "O(n)" {
		t.Errorf("time complexity = %q", result.TimeComplexity)
	}
}

func TestAnalyzeRuntimeFailure(t *testing.T) {
	r := newTestRunner()
	result := r.Analyze(context.Background(), "fmt.Println(undefined)")

	if result.Success {
		t.Fatal("expected failure for undefined variable")
	}
	if result.Error == "" {
		t.Error("error message missing")
	}
	if len(result.Issues) == 0 || !strings.HasPrefix(result.Issues[0], "Execution error: ") {
		t.Errorf("issues = %v", result.Issues)
	}
	if len(result.Recommendations) == 0 || result.Recommendations[0] != "Fix runtime errors in your code" {
		t.Errorf("recommendations = %v", result.Recommendations)
	}
	// The classifier works on the tree, not the run, so its labels survive
	// the runtime failure.
	if result.TimeComplexity != "O(1)" || result.SpaceComplexity != "O(1)" {
		t.Errorf("complexities = %q / %q, want O(1)", result.TimeComplexity, result.SpaceComplexity)
	}
	// The AST is still rendered so the user can see structure despite the
	// runtime failure.
	if len(result.ASTTree) == 0 {
		t.Error("AST tree should survive execution failure")
	}
}

func TestAnalyzeDeclarationOnlySnippet(t *testing.T) {
	r := newTestRunner()
	code := `func fib(n int) int {
	if n < 2 {
		return n
	}
	return fib(n-1) + fib(n-2)
}`
	result := r.Analyze(context.Background(), code)

	if !result.Success {
		t.Fatalf("declaration-only snippet should run: %s", result.Error)
	}
	if result.TimeComplexity != "O(2^n)" {
		t.Errorf("time complexity = %q, want O(2^n)", result.TimeComplexity)
	}
	if result.Output != "" {
		t.Errorf("output = %q, want empty", result.Output)
	}
}

func TestAnalyzeCommentOnlySnippet(t *testing.T) {
	r := newTestRunner()
	result := r.Analyze(context.Background(), "// just a comment")

	if !result.Success {
		t.Fatalf("comment-only snippet should run: %s", result.Error)
	}
	if result.TimeComplexity != "O(1)" {
		t.Errorf("time complexity = %q, want O(1)", result.TimeComplexity)
	}
	// The memory variant still snapshots the (empty) final state.
	if len(result.MemoryMap) == 0 {
		t.Error("no memory map rendered")
	}
}

func TestAnalyzeParseFailure(t *testing.T) {
	r := newTestRunner()
	result := r.Analyze(context.Background(), "for {")

	if result.Success {
		t.Fatal("expected failure for invalid syntax")
	}
	if !strings.Contains(result.Error, "snippet:") {
		t.Errorf("error = %q, want parse error", result.Error)
	}
}

func TestAnalyzeStepLimit(t *testing.T) {
	r := New(5*time.Second, 10_000, slog.New(slog.NewTextHandler(io.Discard, nil)))
	result := r.Analyze(context.Background(), "for {\n}")

	if result.Success {
		t.Fatal("infinite loop should exceed the step budget")
	}
	if !strings.Contains(result.Error, "step limit") {
		t.Errorf("error = %q, want step limit mention", result.Error)
	}
}

func TestAnalyzeTimeout(t *testing.T) {
	r := New(50*time.Millisecond, 1<<62, slog.New(slog.NewTextHandler(io.Discard, nil)))
	start := time.Now()
	result := r.Analyze(context.Background(), "for {\n}")

	if result.Success {
		t.Fatal("infinite loop should be cut off by the timeout")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("timeout not enforced, took %s", elapsed)
	}
}

func TestRecommendThresholds(t *testing.T) {
	tests := []struct {
		name string
		exec float64
		mem  float64
		want string
	}{
		{"slow execution", 1.5, 0, "Your code is running slowly. Consider optimizing algorithms."},
		{"moderate execution", 0.2, 0, "Performance is acceptable but could be improved."},
		{"high memory", 0, 11, "High memory usage detected. Consider using generators or streaming."},
		{"moderate memory", 0, 2, "Memory usage is moderate. Could be optimized for large inputs."},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			recs := recommend(nil, tc.exec, tc.mem)
			found := false
			for _, r := range recs {
				if r == tc.want {
					found = true
				}
			}
			if !found {
				t.Errorf("recommendations %v missing %q", recs, tc.want)
			}
		})
	}

	if recs := recommend(nil, 0.01, 0.1); len(recs) != 0 {
		t.Errorf("fast small run should add no advice, got %v", recs)
	}
}

func TestRoundPlaces(t *testing.T) {
	if got := round(0.123456, 4); got != 0.1235 {
		t.Errorf("round(0.123456, 4) = %g", got)
	}
	if got := round(1.005, 2); got != 1.0 && got != 1.01 {
		t.Errorf("round(1.005, 2) = %g", got)
	}
}

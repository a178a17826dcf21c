// Package runner orchestrates one snippet analysis: classify the source,
// execute the instrumented variants under a time and step budget, and
// assemble the full result the API returns.
package runner

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/shirou/gopsutil/v4/process"
	"golang.org/x/sync/errgroup"

	"github.com/ashita-ai/kaiseki/internal/analyze"
	"github.com/ashita-ai/kaiseki/internal/astview"
	"github.com/ashita-ai/kaiseki/internal/chart"
	"github.com/ashita-ai/kaiseki/internal/instrument"
	"github.com/ashita-ai/kaiseki/internal/interp"
	"github.com/ashita-ai/kaiseki/internal/model"
	"github.com/ashita-ai/kaiseki/internal/trace"
)

// Runner is stateless across analyses and safe for concurrent use; every
// analysis builds its own interpreter and tracers.
type Runner struct {
	timeout   time.Duration
	stepLimit int
	logger    *slog.Logger
}

func New(timeout time.Duration, stepLimit int, logger *slog.Logger) *Runner {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if stepLimit <= 0 {
		stepLimit = interp.DefaultStepLimit
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{timeout: timeout, stepLimit: stepLimit, logger: logger}
}

// Analyze runs the full pipeline. Execution failure degrades to an
// unsuccessful result; per-visualization failures degrade to a one-line
// error in that visualization's section only.
func (r *Runner) Analyze(ctx context.Context, code string) model.Analysis {
	start := time.Now()

	// The trace and memory variants execute the snippet independently, so
	// they can run in parallel.
	var (
		result   model.Analysis
		err      error
		memLines []string
	)
	g := new(errgroup.Group)
	g.Go(func() error {
		result, err = r.execute(ctx, code)
		return nil
	})
	g.Go(func() error {
		memLines = r.memoryMap(ctx, code)
		return nil
	})
	_ = g.Wait()

	// The classifier works on the original tree and is independent of
	// execution, so its labels survive a failed run.
	static := analyze.Source(code)

	if err != nil {
		r.logger.Warn("snippet execution failed",
			slog.String("error", err.Error()),
			slog.Duration("elapsed", time.Since(start)))
		failed := model.FailedAnalysis(err)
		failed.TimeComplexity = static.TimeComplexity
		failed.SpaceComplexity = static.SpaceComplexity
		failed.Issues = append(failed.Issues, static.Issues...)
		failed.Recommendations = append(failed.Recommendations, static.Recommendations...)
		failed.ASTTree = astview.Lines(code)
		return failed
	}

	result.TimeComplexity = static.TimeComplexity
	result.SpaceComplexity = static.SpaceComplexity
	result.Issues = static.Issues
	result.Recommendations = recommend(static.Recommendations, result.ExecutionTime, result.MemoryUsed)

	result.ASTTree = astview.Lines(code)
	result.MemoryMap = memLines

	plot, err := chart.Performance(result.ExecutionTime, result.MemoryUsed)
	if err != nil {
		r.logger.Warn("performance plot failed", slog.String("error", err.Error()))
	} else {
		result.PerformancePlot = plot
	}

	r.logger.Info("analysis complete",
		slog.Float64("execution_time", result.ExecutionTime),
		slog.Float64("memory_used_mb", result.MemoryUsed),
		slog.String("time_complexity", result.TimeComplexity),
		slog.Duration("elapsed", time.Since(start)))
	return result
}

// execute runs the trace-instrumented variant, measuring wall time, process
// memory growth, captured output, and the execution steps.
func (r *Runner) execute(ctx context.Context, code string) (model.Analysis, error) {
	src, err := instrument.Trace(code)
	if err != nil {
		return model.Analysis{}, err
	}

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var stdout bytes.Buffer
	tracer := trace.NewTracer()
	itp := interp.New(interp.WithStdout(&stdout), interp.WithStepLimit(r.stepLimit))
	tracer.Bind(itp)

	memBefore := rssMB()
	start := time.Now()
	runErr := itp.Run(runCtx, src)
	elapsed := time.Since(start)
	memAfter := rssMB()

	if runErr != nil {
		return model.Analysis{}, runErr
	}

	return model.Analysis{
		Success:        true,
		ExecutionTime:  round(elapsed.Seconds(), 4),
		MemoryUsed:     round(memAfter-memBefore, 2),
		Output:         stdout.String(),
		ExecutionSteps: tracer.Steps(),
	}, nil
}

// memoryMap runs the memory-instrumented variant independently, so a
// failure here never poisons the main result.
func (r *Runner) memoryMap(ctx context.Context, code string) []string {
	src, err := instrument.Memory(code)
	if err != nil {
		return []string{fmt.Sprintf("Memory visualization error: %v", err)}
	}

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var discard bytes.Buffer
	tracker := trace.NewMemoryTracker()
	itp := interp.New(interp.WithStdout(&discard), interp.WithStepLimit(r.stepLimit))
	tracker.Bind(itp)

	if err := itp.Run(runCtx, src); err != nil {
		return []string{fmt.Sprintf("Memory visualization error: %v", err)}
	}
	return tracker.Format()
}

// recommend appends performance advice derived from measured metrics to the
// classifier's structural recommendations.
func recommend(static []string, execSeconds, memoryMB float64) []string {
	recs := append([]string{}, static...)
	if execSeconds > 1.0 {
		recs = append(recs, "Your code is running slowly. Consider optimizing algorithms.")
	} else if execSeconds > 0.1 {
		recs = append(recs, "Performance is acceptable but could be improved.")
	}
	if memoryMB > 10.0 {
		recs = append(recs, "High memory usage detected. Consider using generators or streaming.")
	} else if memoryMB > 1.0 {
		recs = append(recs, "Memory usage is moderate. Could be optimized for large inputs.")
	}
	return recs
}

// rssMB reports the current process RSS in megabytes, 0 when unavailable.
func rssMB() float64 {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0
	}
	info, err := p.MemoryInfo()
	if err != nil || info == nil {
		return 0
	}
	return float64(info.RSS) / 1024 / 1024
}

func round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}

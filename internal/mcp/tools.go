package mcp

import (
	"context"
	"fmt"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/ashita-ai/kaiseki/internal/model"
)

func (s *Server) registerTools() {
	// kaiseki_analyze — run the full analysis pipeline on a snippet.
	s.mcpServer.AddTool(
		mcplib.NewTool("kaiseki_analyze",
			mcplib.WithDescription(`Analyze a Go snippet: execute it in a sandboxed interpreter and return
performance metrics, complexity estimates, and step-by-step visualizations.

WHEN TO USE: When you want to understand how a piece of Go code behaves —
what it prints, how long it takes, how its variables evolve line by line,
or what its big-O characteristics look like.

WHAT YOU GET BACK:
- execution_time / memory_used: measured for this run
- time_complexity / space_complexity: heuristic estimates from the syntax tree
- issues / recommendations: flagged patterns (nested loops, recursion, sorts)
- output: everything the snippet printed
- execution_steps: a numbered line-by-line trace with variable values
- ast_tree: the snippet's syntax tree, rendered as indented text
- memory_map: per-line snapshots of live variables with sizes and addresses

The snippet may be a complete file, bare declarations, or a plain statement
list; it is normalized before execution. Execution is bounded by a step
budget and a wall-clock timeout, so infinite loops come back as errors
rather than hanging the tool.`),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(false),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("code",
				mcplib.Description("The Go snippet to analyze"),
				mcplib.Required(),
			),
		),
		s.handleAnalyze,
	)

	// kaiseki_save_code — persist a snippet to the snippet store.
	s.mcpServer.AddTool(
		mcplib.NewTool("kaiseki_save_code",
			mcplib.WithDescription(`Save a code snippet to the snippet store for later reference.

The snippet is written to disk and indexed, so it shows up in
kaiseki_list_snippets and in the kaiseki://snippets/recent resource.
If filename is omitted, a timestamped name is generated.`),
			mcplib.WithDestructiveHintAnnotation(false),
			mcplib.WithIdempotentHintAnnotation(false),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("code",
				mcplib.Description("The code to save"),
				mcplib.Required(),
			),
			mcplib.WithString("filename",
				mcplib.Description("Optional filename; .go is appended if missing. Must be a plain name without path separators."),
			),
		),
		s.handleSaveCode,
	)

	// kaiseki_list_snippets — list saved snippets and reports.
	s.mcpServer.AddTool(
		mcplib.NewTool("kaiseki_list_snippets",
			mcplib.WithDescription("List saved snippets and analysis reports, newest first."),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithNumber("limit",
				mcplib.Description("Maximum number of entries to return"),
				mcplib.Min(1),
				mcplib.Max(1000),
				mcplib.DefaultNumber(50),
			),
		),
		s.handleListSnippets,
	)
}

func (s *Server) handleAnalyze(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	code := request.GetString("code", "")

	req := model.AnalyzeRequest{Code: code}
	if err := req.Validate(); err != nil {
		return errorResult(err.Error()), nil
	}

	result := s.runner.Analyze(ctx, code)

	if _, err := s.store.RecordAnalysis(ctx, len(code), result); err != nil {
		s.logger.Warn("mcp record analysis failed", "error", err)
	}

	return jsonResult(result), nil
}

func (s *Server) handleSaveCode(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	req := model.SaveCodeRequest{
		Code:     request.GetString("code", ""),
		Filename: request.GetString("filename", ""),
	}
	if err := req.Validate(); err != nil {
		return errorResult(err.Error()), nil
	}

	snip, err := s.store.SaveCode(ctx, req.Code, req.Filename)
	if err != nil {
		s.logger.Error("mcp save code failed", "error", err)
		return errorResult(fmt.Sprintf("failed to save code: %v", err)), nil
	}
	return jsonResult(model.SaveResponse{
		Message:  "Code saved successfully as " + snip.Filename,
		Filename: snip.Filename,
	}), nil
}

func (s *Server) handleListSnippets(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	limit := int(request.GetFloat("limit", 50))
	if limit < 1 {
		limit = 1
	}

	snippets, err := s.store.List(ctx, limit)
	if err != nil {
		s.logger.Error("mcp list snippets failed", "error", err)
		return errorResult(fmt.Sprintf("failed to list snippets: %v", err)), nil
	}
	return jsonResult(model.ListSnippetsResponse{Snippets: snippets}), nil
}

// Package mcp implements the Model Context Protocol server for Kaiseki.
//
// The MCP server exposes the analysis pipeline and the snippet store
// through MCP tools and resources, so MCP-compatible AI agents can analyze
// code and browse saved snippets without the HTTP API.
package mcp

import (
	"context"
	"encoding/json"
	"log/slog"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/ashita-ai/kaiseki/internal/runner"
	"github.com/ashita-ai/kaiseki/internal/storage"
)

// Server wraps the MCP server with Kaiseki's analysis pipeline.
type Server struct {
	mcpServer *mcpserver.MCPServer
	runner    *runner.Runner
	store     *storage.Store
	logger    *slog.Logger
}

// New creates and configures a new MCP server with all resources and tools.
func New(r *runner.Runner, store *storage.Store, version string, logger *slog.Logger) *Server {
	s := &Server{
		runner: r,
		store:  store,
		logger: logger,
	}

	s.mcpServer = mcpserver.NewMCPServer(
		"kaiseki",
		version,
		mcpserver.WithResourceCapabilities(true, true),
		mcpserver.WithToolCapabilities(true),
	)

	s.registerResources()
	s.registerTools()

	return s
}

// MCPServer returns the underlying mcp-go server for transport setup.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

func (s *Server) registerResources() {
	// kaiseki://snippets/recent — recently saved snippets and reports.
	s.mcpServer.AddResource(
		mcplib.NewResource(
			"kaiseki://snippets/recent",
			"Recent Snippets",
			mcplib.WithResourceDescription("Recently saved code snippets and analysis reports"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleSnippetsRecent,
	)
}

func (s *Server) handleSnippetsRecent(ctx context.Context, request mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	snippets, err := s.store.List(ctx, 50)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(snippets, "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}

func jsonResult(v any) *mcplib.CallToolResult {
	data, _ := json.MarshalIndent(v, "", "  ")
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: string(data)},
		},
	}
}

package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"wageflow/internal/logger"
	"wageflow/internal/service"
)

// Server is the MCP server for wageflow. It exposes the pipeline as tools,
// resources and prompts so AI agents can run it and read its results.
type Server struct {
	mcp       *server.MCPServer
	pipelines *service.PipelineService
}

// Deps holds all dependencies passed from the app layer to the MCP server.
type Deps struct {
	Pipelines *service.PipelineService
	Version   string
}

// New creates and configures a new MCP server with all tools and resources.
func New(deps Deps) *Server {
	s := &Server{pipelines: deps.Pipelines}

	version := deps.Version
	if version == "" {
		version = "dev"
	}
	s.mcp = server.NewMCPServer(
		"wageflow",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
		server.WithPromptCapabilities(true),
	)

	s.registerPipelineTools()
	s.registerResources()
	s.registerPrompts()
	return s
}

// ServeStdio serves MCP on stdin/stdout until the client disconnects.
// Logs must go to stderr; stdout carries the protocol.
func (s *Server) ServeStdio(ctx context.Context) error {
	logger.FromContext(ctx).Info("mcp: starting stdio server")
	return server.ServeStdio(s.mcp)
}

// ── Helpers ────────────────────────────────────────────────

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

func boolPtr(v bool) *bool { return &v }

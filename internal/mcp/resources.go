package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerResources() {
	// ── wageflow://tables ──────────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		"wageflow://tables",
		"Stored Tables",
		mcp.WithResourceDescription("Typed schemas of every table in the store"),
		mcp.WithMIMEType("application/json"),
	), s.handleTablesResource)

	// ── wageflow://runs ────────────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		"wageflow://runs",
		"Recent Runs",
		mcp.WithResourceDescription("Whether a run is active, plus the last 20 runs newest first"),
		mcp.WithMIMEType("application/json"),
	), s.handleRunsResource)
}

func (s *Server) handleTablesResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	tables, err := s.pipelines.DescribeTables(ctx)
	if err != nil {
		return nil, err
	}
	return jsonResource(req.Params.URI, tables)
}

func (s *Server) handleRunsResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	runs, err := s.pipelines.ListRuns(ctx, 20)
	if err != nil {
		return nil, err
	}
	return jsonResource(req.Params.URI, map[string]any{
		"running": s.pipelines.Running(),
		"runs":    runs,
	})
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

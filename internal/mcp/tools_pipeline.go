package mcpserver

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"wageflow/internal/service"
)

const maxRows = 1000

func (s *Server) registerPipelineTools() {
	s.mcp.AddTool(mcp.NewTool("run_pipeline",
		mcp.WithDescription("🛑 DESTRUCTIVE: Run the wage/inflation pipeline end to end. Replaces the wage, inflation and merged tables and overwrites the exported CSV."),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleRunPipeline)

	s.mcp.AddTool(mcp.NewTool("preview_source",
		mcp.WithDescription("Load and normalize one input file without persisting anything"),
		mcp.WithString("source", mcp.Description(`Input to preview: "wage" or "inflation"`), mcp.Required(), mcp.Enum("wage", "inflation")),
		mcp.WithNumber("rows", mcp.Description("Maximum rows to return (default 10)")),
	), s.handlePreviewSource)

	s.mcp.AddTool(mcp.NewTool("get_merged_rows",
		mcp.WithDescription("Read rows of the merged wage/inflation table, ordered by date"),
		mcp.WithNumber("limit", mcp.Description("Maximum rows to return (default 100)")),
	), s.handleGetMergedRows)

	s.mcp.AddTool(mcp.NewTool("list_runs",
		mcp.WithDescription("List recent pipeline runs, newest first"),
		mcp.WithNumber("limit", mcp.Description("Maximum runs to return (default 20)")),
	), s.handleListRuns)

	s.mcp.AddTool(mcp.NewTool("describe_tables",
		mcp.WithDescription("List the stored tables with their typed column schemas"),
	), s.handleDescribeTables)

	s.mcp.AddTool(mcp.NewTool("list_sources",
		mcp.WithDescription("List available ETL source types with their configuration schemas"),
	), s.handleListSources)
}

func (s *Server) handleRunPipeline(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.pipelines.Run(ctx)
	if err != nil {
		if errors.Is(err, service.ErrAlreadyRunning) {
			res := textResult(err.Error())
			res.IsError = true
			return res, nil
		}
		if result == nil {
			return nil, fmt.Errorf("run pipeline: %w", err)
		}
		// Failed runs still carry counts and the failing stage.
		res, jerr := jsonResult(result)
		if jerr != nil {
			return nil, jerr
		}
		res.IsError = true
		return res, nil
	}
	return jsonResult(result)
}

func (s *Server) handlePreviewSource(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	source := req.GetString("source", "")
	if source == "" {
		return nil, fmt.Errorf("source is required")
	}
	rows := clampRows(intArg(req.GetArguments(), "rows", 10))

	table, err := s.pipelines.Preview(ctx, source, rows)
	if err != nil {
		return nil, fmt.Errorf("preview source: %w", err)
	}
	return jsonResult(table)
}

func (s *Server) handleGetMergedRows(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := clampRows(intArg(req.GetArguments(), "limit", 100))
	rows, err := s.pipelines.MergedRows(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("read merged rows: %w", err)
	}
	return jsonResult(rows)
}

func (s *Server) handleListRuns(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := clampRows(intArg(req.GetArguments(), "limit", 20))
	runs, err := s.pipelines.ListRuns(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return jsonResult(runs)
}

func (s *Server) handleDescribeTables(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tables, err := s.pipelines.DescribeTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("describe tables: %w", err)
	}
	return jsonResult(tables)
}

func (s *Server) handleListSources(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.pipelines.ListSources())
}

func clampRows(n int) int {
	if n <= 0 {
		return 1
	}
	if n > maxRows {
		return maxRows
	}
	return n
}

package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(mcp.NewPrompt("real_wage_analysis",
		mcp.WithPromptDescription("Compare wage index growth with consumer prices over a period"),
		mcp.WithArgument("from",
			mcp.ArgumentDescription("First month to analyse (YYYY-MM)"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("to",
			mcp.ArgumentDescription("Last month to analyse (YYYY-MM)"),
		),
	), s.handleRealWagePrompt)

	s.mcp.AddPrompt(mcp.NewPrompt("diagnose_run",
		mcp.WithPromptDescription("Explain why the last pipeline run failed and how to fix the inputs"),
	), s.handleDiagnoseRunPrompt)
}

func (s *Server) handleRealWagePrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	from := req.Params.Arguments["from"]
	to := req.Params.Arguments["to"]
	if to == "" {
		to = "the latest available month"
	}
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Real wage analysis from %s to %s", from, to),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Analyse real wage growth from %s to %s. Follow these steps:

1. Call list_runs and check the latest run succeeded; if not, call run_pipeline
2. Call get_merged_rows with a limit large enough to cover the period
3. For the first and last month, compute wage index growth and consumer price index growth
4. Report real wage growth as (1 + wage growth) / (1 + price growth) - 1
5. Note the months where measured inflation was above the inflation target`, from, to),
				},
			},
		},
	}, nil
}

func (s *Server) handleDiagnoseRunPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return &mcp.GetPromptResult{
		Description: "Diagnose the last pipeline run",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: `Diagnose the last pipeline run:

1. Call list_runs with limit 1 and read its status and error
2. If a load stage failed, call preview_source for that input to see how far normalization gets
3. Missing files, separator mismatches, unparseable dates and non-numeric values each name the offending file, column or record
4. Suggest the smallest change to the input file or configuration that fixes it`,
				},
			},
		},
	}, nil
}

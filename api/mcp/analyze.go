package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/adpulse/pkg/campaign"
	"github.com/papercomputeco/adpulse/pkg/report"
)

var (
	analyzeToolName    = "analyze_campaign"
	analyzeDescription = "Analyze an advertising campaign export. Takes the CSV (or TSV) text with a header row including \"Conversions\" and \"Amount Spent\" columns, and returns total conversions, total spend, average cost per conversion and a prose summary of the data."
)

// AnalyzeInput represents the input arguments for the analyze tool.
type AnalyzeInput struct {
	Content      string `json:"content" jsonschema:"the export text including its header row"`
	Format       string `json:"format,omitempty" jsonschema:"csv or tsv (default: csv)"`
	SkipInsights bool   `json:"skip_insights,omitempty" jsonschema:"only compute the totals and skip the prose summary"`
}

// AnalyzeOutput represents the output of the analyze tool. Amounts are
// decimal strings so no precision is lost; the average is "NaN" when there
// are no conversions.
type AnalyzeOutput struct {
	Rows                     int      `json:"rows"`
	Columns                  []string `json:"columns"`
	TotalConversions         int64    `json:"total_conversions"`
	TotalAmountSpent         string   `json:"total_amount_spent"`
	AverageCostPerConversion string   `json:"average_cost_per_conversion"`
	Insights                 string   `json:"insights"`
	InsightsDegraded         bool     `json:"insights_degraded"`
}

// handleAnalyze processes an analyze request.
func (s *Server) handleAnalyze(ctx context.Context, _ *mcp.CallToolRequest, input AnalyzeInput) (*mcp.CallToolResult, AnalyzeOutput, error) {
	logger := s.config.Logger

	format := campaign.FormatCSV
	switch strings.ToLower(input.Format) {
	case "", "csv":
	case "tsv":
		format = campaign.FormatTSV
	default:
		return toolError(fmt.Sprintf("Unsupported format %q: use csv or tsv", input.Format)), AnalyzeOutput{}, nil
	}

	logger.Debug("MCP analyze request",
		"format", format,
		"bytes", len(input.Content),
	)

	records, err := campaign.Decode(strings.NewReader(input.Content), format)
	if err != nil {
		return toolError(fmt.Sprintf("Failed to parse export: %v", err)), AnalyzeOutput{}, nil
	}

	opts := []report.Option{report.WithSource("mcp", "")}
	if input.SkipInsights {
		opts = append(opts, report.WithoutInsights())
	}

	res, err := s.config.Analyzer.Analyze(ctx, records, opts...)
	if err != nil {
		return toolError(fmt.Sprintf("Failed to compute metrics: %v", err)), AnalyzeOutput{}, nil
	}

	output := buildOutput(res)

	// Tools returning structured content also return the serialized JSON
	// in a TextContent block for older clients.
	jsonBytes, err := json.Marshal(output)
	if err != nil {
		logger.Error("failed to marshal analyze output", "error", err)
		return toolError(fmt.Sprintf("Failed to serialize results: %v", err)), AnalyzeOutput{}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}

func buildOutput(res *report.Result) AnalyzeOutput {
	columns := []string{}
	if len(res.Data) > 0 {
		columns = res.Data[0].Columns()
	}

	return AnalyzeOutput{
		Rows:                     len(res.Data),
		Columns:                  columns,
		TotalConversions:         res.KPIs.TotalConversions,
		TotalAmountSpent:         res.KPIs.TotalAmountSpent.String(),
		AverageCostPerConversion: res.KPIs.AverageCostPerConversion.String(),
		Insights:                 res.Insights.String(),
		InsightsDegraded:         res.Insights.Degraded(),
	}
}

func toolError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
	}
}

package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/pario-ai/tokopt/pkg/models"
	"github.com/pario-ai/tokopt/pkg/optimizer"
	"github.com/pario-ai/tokopt/pkg/report"
)

// toolHandler is a function that handles a tool call.
type toolHandler func(ctx context.Context, s *Server, args json.RawMessage) ToolCallResult

// toolHandlers maps tool names to their handlers.
var toolHandlers = map[string]toolHandler{
	"tokopt_analyze":          handleAnalyze,
	"tokopt_optimize_request": handleOptimizeRequest,
	"tokopt_pricing":          handlePricing,
	"tokopt_history":          handleHistory,
}

var formatProperty = map[string]any{
	"type":        "string",
	"enum":        []string{"text", "markdown", "json"},
	"description": "Output format (default text)",
}

var usageSchema = map[string]any{
	"type":        "object",
	"description": "Map of model name to {inputTokens, outputTokens}",
	"additionalProperties": map[string]any{
		"type":     "object",
		"required": []string{"inputTokens", "outputTokens"},
		"properties": map[string]any{
			"inputTokens":  map[string]any{"type": "integer", "minimum": 0},
			"outputTokens": map[string]any{"type": "integer", "minimum": 0},
		},
	},
}

// allTools is the list of tool definitions exposed via tools/list.
var allTools = []ToolDefinition{
	{
		Name:        "tokopt_analyze",
		Description: "Estimate the cost of a token usage mapping and recommend cost optimizations.",
		InputSchema: map[string]any{
			"type":     "object",
			"required": []string{"usage"},
			"properties": map[string]any{
				"usage": usageSchema,
				"avg_prompt_length": map[string]any{
					"type":        "integer",
					"description": "Average prompt length in characters (optional)",
				},
				"format": formatProperty,
			},
		},
	},
	{
		Name:        "tokopt_optimize_request",
		Description: "Apply prompt, model, caching, context and task transforms to a single LLM request.",
		InputSchema: map[string]any{
			"type":     "object",
			"required": []string{"model", "prompt"},
			"properties": map[string]any{
				"model":      map[string]any{"type": "string", "description": "Requested model"},
				"prompt":     map[string]any{"type": "string", "description": "Prompt text"},
				"context":    map[string]any{"type": "string", "description": "Context text (optional)"},
				"complexity": map[string]any{"type": "number", "minimum": 0, "maximum": 1, "description": "Task complexity from 0 to 1 (optional)"},
				"type":       map[string]any{"type": "string", "description": "Request type, e.g. frequent_query (optional)"},
				"cacheable":  map[string]any{"type": "boolean", "description": "Mark the request as cacheable (optional)"},
				"task":       map[string]any{"type": "string", "description": "Task description (optional)"},
				"format":     formatProperty,
			},
		},
	},
	{
		Name:        "tokopt_pricing",
		Description: "Show the per-1K token price table used for cost estimates.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"format": formatProperty,
			},
		},
	},
	{
		Name:        "tokopt_history",
		Description: "List recorded analyses or per-model totals from analysis history.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"since": map[string]any{
					"type":        "string",
					"description": "Start date in YYYY-MM-DD format (optional, defaults to 30 days ago)",
				},
				"limit": map[string]any{
					"type":        "integer",
					"description": "Maximum records to return (optional, default 20)",
				},
				"by_model": map[string]any{
					"type":        "boolean",
					"description": "Aggregate per model instead of listing analyses (optional)",
				},
				"format": formatProperty,
			},
		},
	},
}

func textResult(text string) ToolCallResult {
	return ToolCallResult{
		Content: []ContentBlock{{Type: "text", Text: text}},
	}
}

func errorResult(text string) ToolCallResult {
	return ToolCallResult{
		Content: []ContentBlock{{Type: "text", Text: text}},
		IsError: true,
	}
}

// render returns v as indented JSON when format is "json" and text otherwise.
func render(format string, v any, text func() string) ToolCallResult {
	if strings.EqualFold(format, "json") {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return errorResult("Error encoding result: " + err.Error())
		}
		return textResult(string(data))
	}
	return textResult(text())
}

type analyzeArgs struct {
	Usage           json.RawMessage `json:"usage"`
	AvgPromptLength int             `json:"avg_prompt_length"`
	Format          string          `json:"format"`
}

func handleAnalyze(_ context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	var args analyzeArgs
	if err := json.Unmarshal(rawArgs, &args); err != nil {
		return errorResult("Invalid arguments: " + err.Error())
	}
	if len(args.Usage) == 0 {
		return errorResult("usage is required")
	}
	usage, err := models.ParseUsage(args.Usage)
	if err != nil {
		return errorResult(err.Error())
	}
	a, err := s.optimizer.Analyze(usage, optimizer.AnalyzeOptions{AvgPromptLength: args.AvgPromptLength})
	if err != nil {
		return errorResult("Error analyzing usage: " + err.Error())
	}
	if strings.EqualFold(args.Format, "markdown") {
		return textResult(report.Markdown(a, s.now()))
	}
	return render(args.Format, a, func() string { return report.Analysis(a) })
}

type optimizeArgs struct {
	models.Request
	Format string `json:"format"`
}

func handleOptimizeRequest(_ context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	var args optimizeArgs
	if err := json.Unmarshal(rawArgs, &args); err != nil {
		return errorResult("Invalid arguments: " + err.Error())
	}
	res, err := s.optimizer.OptimizeRequest(args.Request)
	if err != nil {
		return errorResult("Error optimizing request: " + err.Error())
	}
	return render(args.Format, res, func() string { return report.Optimization(res) })
}

type formatArgs struct {
	Format string `json:"format"`
}

func handlePricing(_ context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	var args formatArgs
	if len(rawArgs) > 0 {
		_ = json.Unmarshal(rawArgs, &args)
	}
	pricing := s.optimizer.Estimator().Pricing()
	return render(args.Format, pricing, func() string { return report.Pricing(pricing) })
}

type historyArgs struct {
	Since   string `json:"since"`
	Limit   int    `json:"limit"`
	ByModel bool   `json:"by_model"`
	Format  string `json:"format"`
}

func handleHistory(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	if s.history == nil {
		return textResult("Analysis history is not enabled.")
	}
	var args historyArgs
	if len(rawArgs) > 0 {
		_ = json.Unmarshal(rawArgs, &args)
	}

	since := s.now().AddDate(0, 0, -30)
	if args.Since != "" {
		t, err := time.Parse("2006-01-02", args.Since)
		if err != nil {
			return errorResult("Invalid since date (use YYYY-MM-DD): " + err.Error())
		}
		since = t
	}

	if args.ByModel {
		totals, err := s.history.ModelTotals(ctx, since)
		if err != nil {
			return errorResult("Error fetching model totals: " + err.Error())
		}
		return render(args.Format, totals, func() string { return report.ModelTotals(totals) })
	}

	limit := args.Limit
	if limit <= 0 {
		limit = 20
	}
	records, err := s.history.List(ctx, since, limit)
	if err != nil {
		return errorResult("Error fetching history: " + err.Error())
	}
	return render(args.Format, records, func() string { return report.History(records) })
}

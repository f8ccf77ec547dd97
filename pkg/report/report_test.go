package report

import (
	"strings"
	"testing"
	"time"

	"github.com/pario-ai/tokopt/pkg/models"
)

func sampleAnalysis() models.Analysis {
	return models.Analysis{
		Cost: models.CostBreakdown{
			CurrentCost:       54.5,
			TotalInputTokens:  1700000,
			TotalOutputTokens: 1100000,
			Models: []models.ModelCost{
				{Model: "claude-3-opus", InputTokens: 200000, OutputTokens: 100000, Cost: 10.5},
				{Model: "gpt-3.5-turbo", InputTokens: 1000000, OutputTokens: 800000, Cost: 17},
				{Model: "gpt-4", InputTokens: 500000, OutputTokens: 200000, Cost: 27},
			},
			Unpriced: []string{"mystery"},
		},
		PotentialSavings:  21.8,
		OptimizationScore: 40,
		Recommendations: []models.Recommendation{{
			Strategy:         models.StrategyModelDowngrade,
			Title:            "Downgrade expensive models",
			Description:      "Route simple requests to cheaper models.",
			EstimatedSavings: 9.5,
			Priority:         models.PriorityHigh,
		}},
		Strategies: []models.StrategyEstimate{{
			Strategy:         models.StrategyCaching,
			Name:             "Response caching",
			Description:      "Cache repeated queries.",
			PotentialSaving:  10.9,
			PercentageImpact: 20,
			Priority:         models.PriorityLow,
		}},
	}
}

func assertContains(t *testing.T, out string, wants ...string) {
	t.Helper()
	for _, w := range wants {
		if !strings.Contains(out, w) {
			t.Errorf("output missing %q:\n%s", w, out)
		}
	}
}

func TestAnalysis(t *testing.T) {
	out := Analysis(sampleAnalysis())
	assertContains(t, out,
		"gpt-4",
		"500,000",
		"1,700,000",
		"$    54.5000",
		"Unpriced models (ignored): mystery",
		"Potential savings:  $21.80",
		"Optimization score: 40.0",
		"1. [high] Downgrade expensive models (saves ~$9.50)",
		"Response caching",
	)
}

func TestAnalysisEmpty(t *testing.T) {
	out := Analysis(models.Analysis{})
	assertContains(t, out, "No priced usage found.", "No recommendations.")
}

func TestMarkdown(t *testing.T) {
	generated := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	out := Markdown(sampleAnalysis(), generated)
	assertContains(t, out,
		"# Token Cost Optimization Report",
		"Generated: 2026-05-01T09:00:00Z",
		"- Total input tokens: 1,700,000",
		"- Current cost: $54.50",
		"| gpt-4 | 500,000 | 200,000 | $27.00 |",
		"- Estimated cost after optimization: $32.70",
		"### Downgrade expensive models (high priority)",
		"- **Estimated savings**: $10.90 (20%)",
	)
}

func TestOptimization(t *testing.T) {
	out := Optimization(models.RequestOptimization{
		Prompt:           models.PromptResult{OriginalLength: 10000, OptimizedLength: 4000, CompressionRatio: 0.6},
		RecommendedModel: "claude-3-haiku",
		Cache:            models.CacheDecision{Key: "abc", ShouldCache: true},
		Context:          &models.ContextResult{OriginalSize: 100, CompressedSize: 70, CompressionRatio: 0.3},
	})
	assertContains(t, out,
		"Recommended model: claude-3-haiku",
		"10,000 -> 4,000 chars (60.0% smaller)",
		"100 -> 70 chars (30.0% smaller)",
		"key=abc cache=true",
	)
	if strings.Contains(out, "Task:") {
		t.Errorf("unexpected task line:\n%s", out)
	}
}

func TestPricing(t *testing.T) {
	out := Pricing(models.DefaultPricing())
	assertContains(t, out, "claude-3-haiku", "$      0.00025")
	if got := Pricing(nil); got != "No pricing configured.\n" {
		t.Errorf("Pricing(nil) = %q", got)
	}
}

func TestHistoryAndTotals(t *testing.T) {
	if got := History(nil); got != "No analyses recorded.\n" {
		t.Errorf("History(nil) = %q", got)
	}
	out := History([]models.AnalysisRecord{{ID: "01HZX", CurrentCost: 54.5, RecommendationCount: 2}})
	assertContains(t, out, "01HZX", "$    54.5000")

	out = ModelTotals([]models.ModelTotal{
		{Model: "gpt-4", Analyses: 2, InputTokens: 1000000, OutputTokens: 400000, Cost: 54},
		{Model: "gpt-3.5-turbo", Analyses: 1, InputTokens: 1000, Cost: 0.005},
	})
	assertContains(t, out, "1,000,000", "TOTAL: $    54.0050")
}

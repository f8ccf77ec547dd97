package optimizer

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/pario-ai/tokopt/pkg/models"
)

func newTestOptimizer(t *testing.T) *Optimizer {
	t.Helper()
	o, err := NewDefault(models.DefaultPricing(), models.DefaultPolicy())
	if err != nil {
		t.Fatal(err)
	}
	return o
}

func referenceUsage() models.Usage {
	return models.Usage{
		"gpt-4":         {InputTokens: 500000, OutputTokens: 200000},
		"gpt-3.5-turbo": {InputTokens: 1000000, OutputTokens: 800000},
		"claude-3-opus": {InputTokens: 200000, OutputTokens: 100000},
	}
}

func TestAnalyze(t *testing.T) {
	o := newTestOptimizer(t)
	a, err := o.Analyze(referenceUsage(), AnalyzeOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(a.Cost.CurrentCost-54.5) > 1e-9 {
		t.Errorf("expected cost 54.5, got %v", a.Cost.CurrentCost)
	}
	if math.Abs(a.PotentialSavings-21.8) > 1e-9 {
		t.Errorf("expected potential savings 21.8, got %v", a.PotentialSavings)
	}
	if math.Abs(a.OptimizationScore-40) > 1e-9 {
		t.Errorf("expected score 40, got %v", a.OptimizationScore)
	}
	// 1M of 2.8M tokens are expensive, below the 50% threshold.
	if len(a.Recommendations) != 0 {
		t.Errorf("expected no recommendations, got %+v", a.Recommendations)
	}
	if len(a.Strategies) != 4 {
		t.Errorf("expected 4 strategy estimates, got %d", len(a.Strategies))
	}
}

func TestAnalyzeZeroCost(t *testing.T) {
	o := newTestOptimizer(t)
	a, err := o.Analyze(models.Usage{"unpriced-model": {InputTokens: 100}}, AnalyzeOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if a.OptimizationScore != 0 || math.IsNaN(a.OptimizationScore) {
		t.Errorf("expected score 0 for zero cost, got %v", a.OptimizationScore)
	}
	if a.PotentialSavings != 0 {
		t.Errorf("expected 0 savings, got %v", a.PotentialSavings)
	}
}

func TestAnalyzePromptLengthOverride(t *testing.T) {
	o := newTestOptimizer(t)
	a, err := o.Analyze(referenceUsage(), AnalyzeOptions{AvgPromptLength: 6000})
	if err != nil {
		t.Fatal(err)
	}
	if len(a.Recommendations) != 1 || a.Recommendations[0].Strategy != models.StrategyPromptEngineering {
		t.Fatalf("expected promptEngineering recommendation, got %+v", a.Recommendations)
	}
	if math.Abs(a.Recommendations[0].EstimatedSavings-10.9) > 1e-9 {
		t.Errorf("expected 10.9, got %v", a.Recommendations[0].EstimatedSavings)
	}
}

func TestAnalyzeInvalid(t *testing.T) {
	o := newTestOptimizer(t)
	_, err := o.Analyze(models.Usage{"gpt-4": {OutputTokens: -1}}, AnalyzeOptions{})
	if !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestRecommendations(t *testing.T) {
	o := newTestOptimizer(t)
	recs, err := o.Recommendations(models.Usage{"gpt-4": {InputTokens: 1000, OutputTokens: 1000}}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 recommendation, got %d", len(recs))
	}
	// fraction 1 * 0.3 * 0.09
	if math.Abs(recs[0].EstimatedSavings-0.027) > 1e-12 {
		t.Errorf("expected 0.027, got %v", recs[0].EstimatedSavings)
	}
}

func TestOptimizeRequest(t *testing.T) {
	o := newTestOptimizer(t)
	c := 0.4
	req := models.Request{
		Model:      "gpt-4",
		Prompt:     strings.Repeat("A very long prompt with plenty of context.  ", 200),
		Context:    strings.Repeat("ctx ", 25),
		Complexity: &c,
		Type:       "frequent_query",
		Cacheable:  true,
		Task:       "summarize",
	}
	res, err := o.OptimizeRequest(req)
	if err != nil {
		t.Fatal(err)
	}
	if res.RecommendedModel != "gpt-3.5-turbo" {
		t.Errorf("expected gpt-3.5-turbo, got %s", res.RecommendedModel)
	}
	if res.Prompt.OptimizedLength != 4000 {
		t.Errorf("expected prompt truncated to 4000, got %d", res.Prompt.OptimizedLength)
	}
	if !res.Cache.ShouldCache || res.Cache.Key == "" {
		t.Errorf("unexpected cache decision %+v", res.Cache)
	}
	if res.Context == nil || res.Context.CompressedSize != 70 {
		t.Errorf("expected context compressed to 70, got %+v", res.Context)
	}
	if res.Task == nil || len(res.Task.Subtasks) != 1 {
		t.Errorf("expected single-subtask plan, got %+v", res.Task)
	}
}

func TestOptimizeRequestDefaults(t *testing.T) {
	o := newTestOptimizer(t)
	res, err := o.OptimizeRequest(models.Request{Model: "claude-3-opus", Prompt: "hi"})
	if err != nil {
		t.Fatal(err)
	}
	// Missing complexity falls back to 0.5.
	if res.RecommendedModel != "gpt-3.5-turbo" {
		t.Errorf("expected mid tier model, got %s", res.RecommendedModel)
	}
	if res.Context != nil || res.Task != nil {
		t.Error("context and task should be omitted when absent")
	}
	if res.Cache.ShouldCache {
		t.Error("plain request should not be cached")
	}
}

func TestOptimizeRequestInvalid(t *testing.T) {
	o := newTestOptimizer(t)
	bad := 1.5
	tests := []struct {
		name string
		req  models.Request
	}{
		{"missing model", models.Request{Prompt: "hi"}},
		{"missing prompt", models.Request{Model: "gpt-4"}},
		{"complexity out of range", models.Request{Model: "gpt-4", Prompt: "hi", Complexity: &bad}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := o.OptimizeRequest(tt.req); !errors.Is(err, models.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestOptimizeBatch(t *testing.T) {
	o := newTestOptimizer(t)
	low, high := 0.1, 0.9
	res, err := o.OptimizeBatch([]models.Request{
		{Model: "gpt-4", Prompt: "one", Complexity: &low},
		{Model: "gpt-4", Prompt: "two", Complexity: &high},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 2 {
		t.Fatalf("expected 2 results, got %d", len(res))
	}
	if res[0].RecommendedModel != "claude-3-haiku" || res[1].RecommendedModel != "gpt-4" {
		t.Errorf("unexpected models: %s, %s", res[0].RecommendedModel, res[1].RecommendedModel)
	}

	_, err = o.OptimizeBatch([]models.Request{{Model: "gpt-4", Prompt: "ok"}, {Model: "gpt-4"}})
	if !errors.Is(err, models.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if !strings.Contains(err.Error(), "request 1") {
		t.Errorf("error should name the failing index: %v", err)
	}
}

package estimator

import (
	"errors"
	"math"
	"testing"

	"github.com/pario-ai/tokopt/pkg/models"
)

const epsilon = 1e-9

func newTestEstimator(t *testing.T) *Estimator {
	t.Helper()
	e, err := New(models.DefaultPricing())
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

func TestEstimateReferenceUsage(t *testing.T) {
	e := newTestEstimator(t)
	usage := models.Usage{
		"gpt-4":         {InputTokens: 500000, OutputTokens: 200000},
		"gpt-3.5-turbo": {InputTokens: 1000000, OutputTokens: 800000},
		"claude-3-opus": {InputTokens: 200000, OutputTokens: 100000},
	}

	b, err := e.Estimate(usage)
	if err != nil {
		t.Fatal(err)
	}
	// 27 + 17 + 10.5
	if !approx(b.CurrentCost, 54.5) {
		t.Errorf("expected 54.5, got %v", b.CurrentCost)
	}
	if b.TotalInputTokens != 1700000 {
		t.Errorf("expected 1700000 input tokens, got %d", b.TotalInputTokens)
	}
	if b.TotalOutputTokens != 1100000 {
		t.Errorf("expected 1100000 output tokens, got %d", b.TotalOutputTokens)
	}
	if len(b.Models) != 3 {
		t.Fatalf("expected 3 model subtotals, got %d", len(b.Models))
	}
	if b.Models[0].Model != "claude-3-opus" || !approx(b.Models[0].Cost, 10.5) {
		t.Errorf("unexpected first subtotal: %+v", b.Models[0])
	}
	if b.Models[2].Model != "gpt-4" || !approx(b.Models[2].InputCost, 15) || !approx(b.Models[2].OutputCost, 12) {
		t.Errorf("unexpected gpt-4 subtotal: %+v", b.Models[2])
	}
}

func TestEstimateEmpty(t *testing.T) {
	e := newTestEstimator(t)
	b, err := e.Estimate(models.Usage{})
	if err != nil {
		t.Fatal(err)
	}
	if b.CurrentCost != 0 {
		t.Errorf("expected 0 cost, got %v", b.CurrentCost)
	}

	b, err = e.Estimate(nil)
	if err != nil {
		t.Fatal(err)
	}
	if b.CurrentCost != 0 {
		t.Errorf("expected 0 cost for nil usage, got %v", b.CurrentCost)
	}
}

func TestEstimateUnknownModelIgnored(t *testing.T) {
	e := newTestEstimator(t)
	base := models.Usage{
		"gpt-4":          {InputTokens: 1234, OutputTokens: 567},
		"claude-3-haiku": {InputTokens: 99999, OutputTokens: 1},
	}
	before, err := e.Estimate(base)
	if err != nil {
		t.Fatal(err)
	}

	withUnknown := models.Usage{"some-new-model": {InputTokens: 1e9, OutputTokens: 1e9}}
	for k, v := range base {
		withUnknown[k] = v
	}
	after, err := e.Estimate(withUnknown)
	if err != nil {
		t.Fatal(err)
	}
	if before.CurrentCost != after.CurrentCost {
		t.Errorf("unknown model changed cost: %v -> %v", before.CurrentCost, after.CurrentCost)
	}
	if len(after.Unpriced) != 1 || after.Unpriced[0] != "some-new-model" {
		t.Errorf("expected unpriced [some-new-model], got %v", after.Unpriced)
	}
	if after.TotalInputTokens != before.TotalInputTokens {
		t.Errorf("unpriced tokens counted: %d vs %d", after.TotalInputTokens, before.TotalInputTokens)
	}
}

func TestEstimateAdditive(t *testing.T) {
	e := newTestEstimator(t)
	tests := []struct {
		name string
		a, b models.Usage
	}{
		{
			name: "disjoint providers",
			a:    models.Usage{"gpt-4": {InputTokens: 10, OutputTokens: 20}, "gpt-4-turbo": {InputTokens: 333, OutputTokens: 0}},
			b:    models.Usage{"claude-3-sonnet": {InputTokens: 7777, OutputTokens: 8888}},
		},
		{
			name: "one side empty",
			a:    models.Usage{},
			b:    models.Usage{"gemini-pro": {InputTokens: 1, OutputTokens: 1}},
		},
		{
			name: "large counts",
			a:    models.Usage{"gemini-flash": {InputTokens: 90000000, OutputTokens: 12345678}},
			b:    models.Usage{"claude-3-opus": {InputTokens: 4000000, OutputTokens: 2500000}, "gpt-3.5-turbo": {InputTokens: 3, OutputTokens: 5}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ca, err := e.Estimate(tt.a)
			if err != nil {
				t.Fatal(err)
			}
			cb, err := e.Estimate(tt.b)
			if err != nil {
				t.Fatal(err)
			}
			merged := models.Usage{}
			for k, v := range tt.a {
				merged[k] = v
			}
			for k, v := range tt.b {
				merged[k] = v
			}
			cm, err := e.Estimate(merged)
			if err != nil {
				t.Fatal(err)
			}
			if math.Abs(ca.CurrentCost+cb.CurrentCost-cm.CurrentCost) > 1e-6 {
				t.Errorf("not additive: %v + %v != %v", ca.CurrentCost, cb.CurrentCost, cm.CurrentCost)
			}
		})
	}
}

func TestEstimateNegativeTokens(t *testing.T) {
	e := newTestEstimator(t)
	_, err := e.Estimate(models.Usage{"gpt-4": {InputTokens: -1, OutputTokens: 10}})
	if !errors.Is(err, models.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	// Unknown models are still validated.
	_, err = e.Estimate(models.Usage{"mystery": {InputTokens: 1, OutputTokens: -10}})
	if !errors.Is(err, models.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown model, got %v", err)
	}
}

func TestNewRejectsBadPricing(t *testing.T) {
	tests := []struct {
		name    string
		pricing []models.ModelPricing
	}{
		{"empty model", []models.ModelPricing{{PromptCost: 1}}},
		{"negative price", []models.ModelPricing{{Model: "m", PromptCost: -0.1}}},
		{"nan price", []models.ModelPricing{{Model: "m", CompletionCost: math.NaN()}}},
		{"duplicate", []models.ModelPricing{{Model: "m"}, {Model: "m"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.pricing); !errors.Is(err, models.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestCustomPricing(t *testing.T) {
	e, err := New([]models.ModelPricing{{Model: "local-llm", PromptCost: 1, CompletionCost: 2}})
	if err != nil {
		t.Fatal(err)
	}
	b, err := e.Estimate(models.Usage{
		"local-llm": {InputTokens: 2000, OutputTokens: 500},
		"gpt-4":     {InputTokens: 1000, OutputTokens: 1000},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !approx(b.CurrentCost, 3) {
		t.Errorf("expected 3, got %v", b.CurrentCost)
	}
	if _, ok := e.Price("gpt-4"); ok {
		t.Error("gpt-4 should not be priced by a custom table")
	}
}

func TestPricingSorted(t *testing.T) {
	e := newTestEstimator(t)
	p := e.Pricing()
	if len(p) != len(models.DefaultPricing()) {
		t.Fatalf("expected %d entries, got %d", len(models.DefaultPricing()), len(p))
	}
	for i := 1; i < len(p); i++ {
		if p[i-1].Model >= p[i].Model {
			t.Fatalf("pricing not sorted at %d: %s >= %s", i, p[i-1].Model, p[i].Model)
		}
	}
}

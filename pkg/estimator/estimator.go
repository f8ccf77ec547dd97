// Package estimator computes LLM spend from token usage and a price table.
package estimator

import (
	"fmt"
	"math"
	"sort"

	"github.com/pario-ai/tokopt/pkg/models"
)

// Estimator prices token usage against a fixed price table.
// It is immutable after New and safe for concurrent use.
type Estimator struct {
	pricing map[string]models.ModelPricing
}

// New builds an Estimator from the given price table.
func New(pricing []models.ModelPricing) (*Estimator, error) {
	m := make(map[string]models.ModelPricing, len(pricing))
	for _, p := range pricing {
		if p.Model == "" {
			return nil, fmt.Errorf("%w: pricing entry without model", models.ErrInvalidInput)
		}
		if invalidPrice(p.PromptCost) || invalidPrice(p.CompletionCost) {
			return nil, fmt.Errorf("%w: model %q has an invalid price", models.ErrInvalidInput, p.Model)
		}
		if _, dup := m[p.Model]; dup {
			return nil, fmt.Errorf("%w: duplicate pricing for model %q", models.ErrInvalidInput, p.Model)
		}
		m[p.Model] = p
	}
	return &Estimator{pricing: m}, nil
}

func invalidPrice(v float64) bool {
	return v < 0 || math.IsNaN(v) || math.IsInf(v, 0)
}

// Price returns the pricing for a model.
func (e *Estimator) Price(model string) (models.ModelPricing, bool) {
	p, ok := e.pricing[model]
	return p, ok
}

// Pricing returns a copy of the price table sorted by model.
func (e *Estimator) Pricing() []models.ModelPricing {
	out := make([]models.ModelPricing, 0, len(e.pricing))
	for _, p := range e.pricing {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Model < out[j].Model })
	return out
}

// Estimate computes the cost of usage. Models missing from the price table
// contribute nothing and are listed in Unpriced.
func (e *Estimator) Estimate(usage models.Usage) (models.CostBreakdown, error) {
	if err := usage.Validate(); err != nil {
		return models.CostBreakdown{}, fmt.Errorf("estimate: %w", err)
	}

	names := make([]string, 0, len(usage))
	for model := range usage {
		names = append(names, model)
	}
	sort.Strings(names)

	b := models.CostBreakdown{Models: []models.ModelCost{}}
	for _, model := range names {
		tokens := usage[model]
		p, ok := e.pricing[model]
		if !ok {
			b.Unpriced = append(b.Unpriced, model)
			continue
		}
		mc := Cost(p, tokens)
		b.Models = append(b.Models, mc)
		b.CurrentCost += mc.Cost
		b.TotalInputTokens += tokens.InputTokens
		b.TotalOutputTokens += tokens.OutputTokens
	}
	return b, nil
}

// Cost prices a single model's usage.
func Cost(p models.ModelPricing, tokens models.TokenUsage) models.ModelCost {
	in := (float64(tokens.InputTokens) / 1000) * p.PromptCost
	out := (float64(tokens.OutputTokens) / 1000) * p.CompletionCost
	return models.ModelCost{
		Model:        p.Model,
		InputTokens:  tokens.InputTokens,
		OutputTokens: tokens.OutputTokens,
		InputCost:    in,
		OutputCost:   out,
		Cost:         in + out,
	}
}

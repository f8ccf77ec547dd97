// Package optimizer turns usage data into savings recommendations and
// applies per-request optimization transforms.
package optimizer

import (
	"fmt"
	"math"

	"github.com/pario-ai/tokopt/pkg/models"
)

// Engine evaluates recommendation rules and request transforms for a policy.
// It holds no mutable state.
type Engine struct {
	policy    models.OptimizerPolicy
	expensive map[string]bool
}

// NewEngine validates policy and returns an Engine for it.
func NewEngine(policy models.OptimizerPolicy) (*Engine, error) {
	if err := ValidatePolicy(policy); err != nil {
		return nil, err
	}
	exp := make(map[string]bool, len(policy.ExpensiveModels))
	for _, m := range policy.ExpensiveModels {
		exp[m] = true
	}
	return &Engine{policy: policy, expensive: exp}, nil
}

// Policy returns the engine's policy.
func (e *Engine) Policy() models.OptimizerPolicy {
	return e.policy
}

// ValidatePolicy checks that every threshold and factor is usable.
func ValidatePolicy(p models.OptimizerPolicy) error {
	fractions := []struct {
		name string
		v    float64
	}{
		{"expensive_share_threshold", p.ExpensiveShareThreshold},
		{"downgrade_savings_factor", p.DowngradeSavingsFactor},
		{"prompt_savings_factor", p.PromptSavingsFactor},
		{"context_keep_fraction", p.ContextKeepFraction},
		{"simple_complexity", p.SimpleComplexity},
		{"complex_complexity", p.ComplexComplexity},
		{"default_complexity", p.DefaultComplexity},
		{"decomposition_savings", p.DecompositionSavings},
		{"potential_savings_factor", p.PotentialSavingsFactor},
	}
	for _, f := range fractions {
		if !isFraction(f.v) {
			return fmt.Errorf("%w: policy %s must be within [0,1], got %v", models.ErrInvalidInput, f.name, f.v)
		}
	}
	if p.SimpleComplexity > p.ComplexComplexity {
		return fmt.Errorf("%w: policy simple_complexity %v exceeds complex_complexity %v",
			models.ErrInvalidInput, p.SimpleComplexity, p.ComplexComplexity)
	}
	if p.PromptLengthThreshold < 0 || p.AvgPromptLength < 0 {
		return fmt.Errorf("%w: policy prompt lengths must be non-negative", models.ErrInvalidInput)
	}
	if p.MaxPromptLength <= 0 {
		return fmt.Errorf("%w: policy max_prompt_length must be positive", models.ErrInvalidInput)
	}
	if p.PreferredModels.Mid == "" || p.PreferredModels.Cheap == "" {
		return fmt.Errorf("%w: policy preferred_models requires mid and cheap", models.ErrInvalidInput)
	}
	for _, s := range p.Strategies {
		if s.Strategy == "" {
			return fmt.Errorf("%w: policy strategy entry without id", models.ErrInvalidInput)
		}
		if !isFraction(s.Impact) {
			return fmt.Errorf("%w: strategy %s impact must be within [0,1], got %v", models.ErrInvalidInput, s.Strategy, s.Impact)
		}
	}
	return nil
}

func isFraction(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}

// ExpensiveFraction returns the share of all tokens spent on expensive
// models. It is 0 when usage has no tokens.
func (e *Engine) ExpensiveFraction(usage models.Usage) float64 {
	// Summed in float64 so very large counts cannot wrap around.
	var expensive, total float64
	for model, tokens := range usage {
		n := float64(tokens.InputTokens) + float64(tokens.OutputTokens)
		total += n
		if e.expensive[model] {
			expensive += n
		}
	}
	return ratio(expensive, total)
}

// Recommend applies the usage-wide rules in order: model downgrade first,
// then prompt length. avgPromptLength of 0 selects the policy default.
func (e *Engine) Recommend(usage models.Usage, cost models.CostBreakdown, avgPromptLength int) ([]models.Recommendation, error) {
	if err := usage.Validate(); err != nil {
		return nil, fmt.Errorf("recommend: %w", err)
	}
	if avgPromptLength < 0 {
		return nil, fmt.Errorf("recommend: %w: negative average prompt length %d", models.ErrInvalidInput, avgPromptLength)
	}
	if cost.CurrentCost < 0 || math.IsNaN(cost.CurrentCost) {
		return nil, fmt.Errorf("recommend: %w: invalid current cost %v", models.ErrInvalidInput, cost.CurrentCost)
	}
	if avgPromptLength == 0 {
		avgPromptLength = e.policy.AvgPromptLength
	}

	recs := []models.Recommendation{}

	if frac := e.ExpensiveFraction(usage); frac > e.policy.ExpensiveShareThreshold {
		recs = append(recs, models.Recommendation{
			Strategy:         models.StrategyModelDowngrade,
			Title:            "Model downgrade",
			Description:      fmt.Sprintf("%.0f%% of tokens go to expensive models; route part of the work to cheaper models", frac*100),
			EstimatedSavings: frac * e.policy.DowngradeSavingsFactor * cost.CurrentCost,
			Priority:         models.PriorityHigh,
		})
	}

	if avgPromptLength > e.policy.PromptLengthThreshold {
		recs = append(recs, models.Recommendation{
			Strategy:         models.StrategyPromptEngineering,
			Title:            "Prompt engineering",
			Description:      fmt.Sprintf("Average prompt length %d exceeds %d; tighten prompts to cut token usage", avgPromptLength, e.policy.PromptLengthThreshold),
			EstimatedSavings: cost.CurrentCost * e.policy.PromptSavingsFactor,
			Priority:         models.PriorityHigh,
		})
	}

	return recs, nil
}

// Strategies applies the policy's fixed strategy impacts to currentCost.
func (e *Engine) Strategies(currentCost float64) []models.StrategyEstimate {
	out := make([]models.StrategyEstimate, 0, len(e.policy.Strategies))
	for _, s := range e.policy.Strategies {
		out = append(out, models.StrategyEstimate{
			Strategy:         s.Strategy,
			Name:             s.Name,
			Description:      s.Description,
			Impact:           s.Impact,
			PotentialSaving:  currentCost * s.Impact,
			PercentageImpact: s.Impact * 100,
			Priority:         impactPriority(s.Impact),
		})
	}
	return out
}

func impactPriority(impact float64) models.Priority {
	switch {
	case impact > 0.4:
		return models.PriorityHigh
	case impact > 0.25:
		return models.PriorityMedium
	default:
		return models.PriorityLow
	}
}

// ratio returns num/den, or 0 when den is 0.
func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

// compressionRatio returns 1 - after/before, or 0 when before is 0.
func compressionRatio(before, after int) float64 {
	if before == 0 {
		return 0
	}
	return 1 - float64(after)/float64(before)
}

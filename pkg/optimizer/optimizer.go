package optimizer

import (
	"fmt"
	"math"

	"github.com/pario-ai/tokopt/pkg/estimator"
	"github.com/pario-ai/tokopt/pkg/models"
)

// Optimizer combines cost estimation with the recommendation engine.
type Optimizer struct {
	estimator *estimator.Estimator
	engine    *Engine
}

// AnalyzeOptions tunes a single Analyze call.
type AnalyzeOptions struct {
	// AvgPromptLength overrides the policy's assumed average prompt length.
	// Zero keeps the policy value.
	AvgPromptLength int
}

// New returns an Optimizer over the given estimator and engine.
func New(est *estimator.Estimator, eng *Engine) *Optimizer {
	return &Optimizer{estimator: est, engine: eng}
}

// NewDefault builds an Optimizer from a price table and policy.
func NewDefault(pricing []models.ModelPricing, policy models.OptimizerPolicy) (*Optimizer, error) {
	est, err := estimator.New(pricing)
	if err != nil {
		return nil, err
	}
	eng, err := NewEngine(policy)
	if err != nil {
		return nil, err
	}
	return New(est, eng), nil
}

// Estimator returns the underlying estimator.
func (o *Optimizer) Estimator() *estimator.Estimator { return o.estimator }

// Engine returns the underlying recommendation engine.
func (o *Optimizer) Engine() *Engine { return o.engine }

// Analyze estimates cost for usage and derives recommendations, the fixed
// strategy estimates and an overall optimization score.
func (o *Optimizer) Analyze(usage models.Usage, opts AnalyzeOptions) (models.Analysis, error) {
	cost, err := o.estimator.Estimate(usage)
	if err != nil {
		return models.Analysis{}, err
	}
	recs, err := o.engine.Recommend(usage, cost, opts.AvgPromptLength)
	if err != nil {
		return models.Analysis{}, err
	}

	potential := cost.CurrentCost * o.engine.policy.PotentialSavingsFactor
	score := 0.0
	if cost.CurrentCost > 0 {
		score = math.Min(100, potential/cost.CurrentCost*100)
	}

	return models.Analysis{
		Cost:              cost,
		PotentialSavings:  potential,
		OptimizationScore: score,
		Recommendations:   recs,
		Strategies:        o.engine.Strategies(cost.CurrentCost),
	}, nil
}

// Recommendations estimates cost for usage and returns only the rule output.
func (o *Optimizer) Recommendations(usage models.Usage, avgPromptLength int) ([]models.Recommendation, error) {
	cost, err := o.estimator.Estimate(usage)
	if err != nil {
		return nil, err
	}
	return o.engine.Recommend(usage, cost, avgPromptLength)
}

// OptimizeRequest runs every per-request transform. Model and prompt are
// required; context and task are only processed when present.
func (o *Optimizer) OptimizeRequest(req models.Request) (models.RequestOptimization, error) {
	if req.Model == "" {
		return models.RequestOptimization{}, fmt.Errorf("optimize request: %w: missing model", models.ErrInvalidInput)
	}
	if req.Prompt == "" {
		return models.RequestOptimization{}, fmt.Errorf("optimize request: %w: missing prompt", models.ErrInvalidInput)
	}

	e := o.engine
	var out models.RequestOptimization
	var err error

	if out.Prompt, err = e.PromptEngineering(req.Prompt); err != nil {
		return models.RequestOptimization{}, err
	}

	complexity := e.policy.DefaultComplexity
	if req.Complexity != nil {
		complexity = *req.Complexity
	}
	if out.RecommendedModel, err = e.ModelDowngrade(req.Model, complexity); err != nil {
		return models.RequestOptimization{}, err
	}

	out.Cache = e.CachingDecision(req)

	if req.Context != "" {
		ctx, err := e.ContextCompression(req.Context)
		if err != nil {
			return models.RequestOptimization{}, err
		}
		out.Context = &ctx
	}

	if req.Task != "" {
		plan, err := e.TaskDecomposition(req.Task)
		if err != nil {
			return models.RequestOptimization{}, err
		}
		out.Task = &plan
	}

	return out, nil
}

// OptimizeBatch optimizes requests in order and stops at the first failure.
func (o *Optimizer) OptimizeBatch(reqs []models.Request) ([]models.RequestOptimization, error) {
	out := make([]models.RequestOptimization, 0, len(reqs))
	for i, req := range reqs {
		res, err := o.OptimizeRequest(req)
		if err != nil {
			return nil, fmt.Errorf("request %d: %w", i, err)
		}
		out = append(out, res)
	}
	return out, nil
}

package models

// PreferredModels are the downgrade targets for simple and medium tasks.
type PreferredModels struct {
	Mid   string `json:"mid" yaml:"mid" toml:"mid"`
	Cheap string `json:"cheap" yaml:"cheap" toml:"cheap"`
}

// OptimizerPolicy holds the thresholds and savings factors used by the
// recommendation engine. None of the factors are derived from input data.
type OptimizerPolicy struct {
	ExpensiveModels         []string         `json:"expensive_models" yaml:"expensive_models" toml:"expensive_models"`
	ExpensiveShareThreshold float64          `json:"expensive_share_threshold" yaml:"expensive_share_threshold" toml:"expensive_share_threshold"`
	DowngradeSavingsFactor  float64          `json:"downgrade_savings_factor" yaml:"downgrade_savings_factor" toml:"downgrade_savings_factor"`
	PromptLengthThreshold   int              `json:"prompt_length_threshold" yaml:"prompt_length_threshold" toml:"prompt_length_threshold"`
	PromptSavingsFactor     float64          `json:"prompt_savings_factor" yaml:"prompt_savings_factor" toml:"prompt_savings_factor"`
	AvgPromptLength         int              `json:"avg_prompt_length" yaml:"avg_prompt_length" toml:"avg_prompt_length"`
	MaxPromptLength         int              `json:"max_prompt_length" yaml:"max_prompt_length" toml:"max_prompt_length"`
	ContextKeepFraction     float64          `json:"context_keep_fraction" yaml:"context_keep_fraction" toml:"context_keep_fraction"`
	PreferredModels         PreferredModels  `json:"preferred_models" yaml:"preferred_models" toml:"preferred_models"`
	SimpleComplexity        float64          `json:"simple_complexity" yaml:"simple_complexity" toml:"simple_complexity"`
	ComplexComplexity       float64          `json:"complex_complexity" yaml:"complex_complexity" toml:"complex_complexity"`
	DefaultComplexity       float64          `json:"default_complexity" yaml:"default_complexity" toml:"default_complexity"`
	DecompositionSavings    float64          `json:"decomposition_savings" yaml:"decomposition_savings" toml:"decomposition_savings"`
	PotentialSavingsFactor  float64          `json:"potential_savings_factor" yaml:"potential_savings_factor" toml:"potential_savings_factor"`
	Strategies              []StrategyImpact `json:"strategies" yaml:"strategies" toml:"strategies"`
}

// DefaultPolicy returns the policy the optimizer ships with.
func DefaultPolicy() OptimizerPolicy {
	return OptimizerPolicy{
		ExpensiveModels:         []string{"gpt-4", "gpt-4-turbo", "claude-3-opus"},
		ExpensiveShareThreshold: 0.5,
		DowngradeSavingsFactor:  0.3,
		PromptLengthThreshold:   4000,
		PromptSavingsFactor:     0.2,
		AvgPromptLength:         2000,
		MaxPromptLength:         4000,
		ContextKeepFraction:     0.7,
		PreferredModels: PreferredModels{
			Mid:   "gpt-3.5-turbo",
			Cheap: "claude-3-haiku",
		},
		SimpleComplexity:       0.3,
		ComplexComplexity:      0.7,
		DefaultComplexity:      0.5,
		DecompositionSavings:   0.15,
		PotentialSavingsFactor: 0.4,
		Strategies:             DefaultStrategies(),
	}
}

// DefaultStrategies returns the fixed strategy impact table.
func DefaultStrategies() []StrategyImpact {
	return []StrategyImpact{
		{
			Strategy:    StrategyPromptEngineering,
			Name:        "Precise prompt engineering",
			Description: "Trim prompts to drop unnecessary context",
			Impact:      0.35,
		},
		{
			Strategy:    StrategyModelDowngrade,
			Name:        "Model tiering",
			Description: "Route simple tasks to cheaper models and keep expensive models for complex work",
			Impact:      0.50,
		},
		{
			Strategy:    StrategyCaching,
			Name:        "Smart caching",
			Description: "Cache frequent query results to avoid recomputation",
			Impact:      0.20,
		},
		{
			Strategy:    StrategyContextCompression,
			Name:        "Context compression",
			Description: "Compress context while keeping the core content",
			Impact:      0.30,
		},
	}
}

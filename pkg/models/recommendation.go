package models

// Strategy identifies an optimization strategy.
type Strategy string

const (
	StrategyModelDowngrade     Strategy = "modelDowngrade"
	StrategyPromptEngineering  Strategy = "promptEngineering"
	StrategyCaching            Strategy = "caching"
	StrategyContextCompression Strategy = "contextCompression"
	StrategyTaskDecomposition  Strategy = "taskDecomposition"
)

// Priority ranks a recommendation.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Recommendation is a suggestion produced by a threshold rule over usage data.
type Recommendation struct {
	Strategy         Strategy `json:"strategy"`
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	EstimatedSavings float64  `json:"estimatedSavings"`
	Priority         Priority `json:"priority"`
}

// StrategyImpact is a fixed-percentage savings assumption for a strategy.
type StrategyImpact struct {
	Strategy    Strategy `json:"strategy" yaml:"strategy" toml:"strategy"`
	Name        string   `json:"name" yaml:"name" toml:"name"`
	Description string   `json:"description" yaml:"description" toml:"description"`
	Impact      float64  `json:"impact" yaml:"impact" toml:"impact"`
}

// StrategyEstimate applies a StrategyImpact to a current cost.
type StrategyEstimate struct {
	Strategy         Strategy `json:"strategy"`
	Name             string   `json:"name"`
	Description      string   `json:"description"`
	Impact           float64  `json:"impact"`
	PotentialSaving  float64  `json:"potentialSaving"`
	PercentageImpact float64  `json:"percentageImpact"`
	Priority         Priority `json:"priority"`
}

// Analysis is the result of analyzing a usage mapping.
type Analysis struct {
	Cost              CostBreakdown      `json:"cost"`
	PotentialSavings  float64            `json:"potentialSavings"`
	OptimizationScore float64            `json:"optimizationScore"`
	Recommendations   []Recommendation   `json:"recommendations"`
	Strategies        []StrategyEstimate `json:"strategies"`
}

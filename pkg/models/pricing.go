package models

// ModelPricing defines per-1K token costs for a model.
type ModelPricing struct {
	Model          string  `json:"model" yaml:"model" toml:"model"`
	PromptCost     float64 `json:"prompt_cost_per_1k" yaml:"prompt_cost_per_1k" toml:"prompt_cost_per_1k"`
	CompletionCost float64 `json:"completion_cost_per_1k" yaml:"completion_cost_per_1k" toml:"completion_cost_per_1k"`
}

// DefaultPricing returns the built-in price table in USD per 1K tokens.
func DefaultPricing() []ModelPricing {
	return []ModelPricing{
		{Model: "gpt-4", PromptCost: 0.03, CompletionCost: 0.06},
		{Model: "gpt-4-turbo", PromptCost: 0.01, CompletionCost: 0.03},
		{Model: "gpt-3.5-turbo", PromptCost: 0.005, CompletionCost: 0.015},
		{Model: "claude-3-opus", PromptCost: 0.015, CompletionCost: 0.075},
		{Model: "claude-3-sonnet", PromptCost: 0.003, CompletionCost: 0.015},
		{Model: "claude-3-haiku", PromptCost: 0.00025, CompletionCost: 0.00125},
		{Model: "gemini-pro", PromptCost: 0.0005, CompletionCost: 0.0015},
		{Model: "gemini-flash", PromptCost: 0.00005, CompletionCost: 0.00015},
	}
}

// ModelCost is the cost subtotal of a single priced model.
type ModelCost struct {
	Model        string  `json:"model"`
	InputTokens  int64   `json:"inputTokens"`
	OutputTokens int64   `json:"outputTokens"`
	InputCost    float64 `json:"inputCost"`
	OutputCost   float64 `json:"outputCost"`
	Cost         float64 `json:"cost"`
}

// CostBreakdown is the spend derived from a Usage mapping.
// Token totals only count models present in the price table.
type CostBreakdown struct {
	CurrentCost       float64     `json:"currentCost"`
	TotalInputTokens  int64       `json:"totalInputTokens"`
	TotalOutputTokens int64       `json:"totalOutputTokens"`
	Models            []ModelCost `json:"models"`
	Unpriced          []string    `json:"unpriced,omitempty"`
}

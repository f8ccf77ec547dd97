package models

import "time"

// AnalysisRecord is a persisted snapshot of one analysis run.
type AnalysisRecord struct {
	ID                  string      `json:"id"`
	RunID               string      `json:"run_id,omitempty"`
	Source              string      `json:"source,omitempty"`
	CurrentCost         float64     `json:"current_cost"`
	PotentialSavings    float64     `json:"potential_savings"`
	OptimizationScore   float64     `json:"optimization_score"`
	RecommendationCount int         `json:"recommendation_count"`
	TotalInputTokens    int64       `json:"total_input_tokens"`
	TotalOutputTokens   int64       `json:"total_output_tokens"`
	Models              []ModelCost `json:"models,omitempty"`
	CreatedAt           time.Time   `json:"created_at"`
}

// NewAnalysisRecord flattens an Analysis into a record ready for storage.
// The store assigns ID when it is empty.
func NewAnalysisRecord(a Analysis, runID, source string, at time.Time) AnalysisRecord {
	return AnalysisRecord{
		RunID:               runID,
		Source:              source,
		CurrentCost:         a.Cost.CurrentCost,
		PotentialSavings:    a.PotentialSavings,
		OptimizationScore:   a.OptimizationScore,
		RecommendationCount: len(a.Recommendations),
		TotalInputTokens:    a.Cost.TotalInputTokens,
		TotalOutputTokens:   a.Cost.TotalOutputTokens,
		Models:              a.Cost.Models,
		CreatedAt:           at,
	}
}

// ModelTotal aggregates stored per-model usage across analyses.
type ModelTotal struct {
	Model        string  `json:"model"`
	Analyses     int     `json:"analyses"`
	InputTokens  int64   `json:"input_tokens"`
	OutputTokens int64   `json:"output_tokens"`
	Cost         float64 `json:"cost"`
}

// MonitorReport summarizes a monitor's activity since it started.
type MonitorReport struct {
	Timestamp          time.Time     `json:"timestamp"`
	RunID              string        `json:"run_id"`
	Uptime             time.Duration `json:"uptime"`
	Checks             int           `json:"checks"`
	FailedChecks       int           `json:"failed_checks"`
	ChecksSinceLast    int           `json:"checks_since_last"`
	EstimatedSavings   float64       `json:"estimated_savings"`
	AvgSavingsPerCheck float64       `json:"avg_savings_per_check"`
	LastCost           float64       `json:"last_cost"`
}

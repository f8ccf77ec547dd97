package models

// Request is a single LLM request submitted for optimization.
type Request struct {
	Model      string   `json:"model"`
	Prompt     string   `json:"prompt"`
	Context    string   `json:"context,omitempty"`
	Complexity *float64 `json:"complexity,omitempty"`
	Type       string   `json:"type,omitempty"`
	Cacheable  bool     `json:"cacheable,omitempty"`
	Task       string   `json:"task,omitempty"`
}

// PromptResult reports the outcome of prompt normalization and truncation.
// Lengths count Unicode code points.
type PromptResult struct {
	OriginalLength   int     `json:"originalLength"`
	OptimizedLength  int     `json:"optimizedLength"`
	CompressionRatio float64 `json:"compressionRatio"`
	Content          string  `json:"content"`
}

// ContextResult reports the outcome of context truncation.
type ContextResult struct {
	OriginalSize     int     `json:"originalSize"`
	CompressedSize   int     `json:"compressedSize"`
	CompressionRatio float64 `json:"compressionRatio"`
	Content          string  `json:"content"`
}

// CacheDecision is a cache key plus whether the request is worth caching.
// No cache store backs it, so CacheHit is always false.
type CacheDecision struct {
	Key         string `json:"key"`
	ShouldCache bool   `json:"shouldCache"`
	CacheHit    bool   `json:"cacheHit"`
}

// TaskPlan is the result of task decomposition.
type TaskPlan struct {
	CanDecompose     bool     `json:"canDecompose"`
	Subtasks         []string `json:"subtasks"`
	EstimatedSavings float64  `json:"estimatedSavings"`
}

// RequestOptimization bundles every per-request transform result.
type RequestOptimization struct {
	Prompt           PromptResult   `json:"prompt"`
	RecommendedModel string         `json:"recommendedModel"`
	Cache            CacheDecision  `json:"cache"`
	Context          *ContextResult `json:"context,omitempty"`
	Task             *TaskPlan      `json:"task,omitempty"`
}

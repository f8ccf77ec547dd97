package models

import (
	"encoding/json"
	"fmt"
)

// TokenUsage holds input and output token counts for one model.
type TokenUsage struct {
	InputTokens  int64 `json:"inputTokens"`
	OutputTokens int64 `json:"outputTokens"`
}

// Total returns input plus output tokens.
func (u TokenUsage) Total() int64 {
	return u.InputTokens + u.OutputTokens
}

// Validate rejects negative token counts.
func (u TokenUsage) Validate() error {
	if u.InputTokens < 0 {
		return fmt.Errorf("%w: negative inputTokens %d", ErrInvalidInput, u.InputTokens)
	}
	if u.OutputTokens < 0 {
		return fmt.Errorf("%w: negative outputTokens %d", ErrInvalidInput, u.OutputTokens)
	}
	return nil
}

// UnmarshalJSON requires both token fields to be present.
func (u *TokenUsage) UnmarshalJSON(data []byte) error {
	var raw struct {
		InputTokens  *int64 `json:"inputTokens"`
		OutputTokens *int64 `json:"outputTokens"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.InputTokens == nil {
		return fmt.Errorf("%w: missing inputTokens", ErrInvalidInput)
	}
	if raw.OutputTokens == nil {
		return fmt.Errorf("%w: missing outputTokens", ErrInvalidInput)
	}
	u.InputTokens = *raw.InputTokens
	u.OutputTokens = *raw.OutputTokens
	return nil
}

// Usage maps a model identifier to its token usage for an analysis period.
type Usage map[string]TokenUsage

// Validate checks every entry and names the offending model.
func (u Usage) Validate() error {
	for model, tokens := range u {
		if model == "" {
			return fmt.Errorf("%w: empty model name", ErrInvalidInput)
		}
		if err := tokens.Validate(); err != nil {
			return fmt.Errorf("model %q: %w", model, err)
		}
	}
	return nil
}

// ParseUsage decodes and validates a JSON usage mapping.
func ParseUsage(data []byte) (Usage, error) {
	var u Usage
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("parse usage: %w", err)
	}
	if u == nil {
		return nil, fmt.Errorf("parse usage: %w: expected an object of model usage", ErrInvalidInput)
	}
	if err := u.Validate(); err != nil {
		return nil, fmt.Errorf("parse usage: %w", err)
	}
	return u, nil
}

package optimizer

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"hash"
	"math"
	"regexp"
	"unicode/utf8"

	"golang.org/x/crypto/blake2b"

	"github.com/pario-ai/tokopt/pkg/models"
)

// whitespaceRun matches the ECMAScript \s class: ASCII whitespace including
// \v, every Unicode space separator (NBSP, U+2000-U+200A, U+3000, ...) and
// the BOM.
var whitespaceRun = regexp.MustCompile(`[\s\v\p{Z}\x{FEFF}]+`)

// PromptEngineering collapses whitespace runs to a single space and keeps
// at most MaxPromptLength code points.
func (e *Engine) PromptEngineering(prompt string) (models.PromptResult, error) {
	if prompt == "" {
		return models.PromptResult{}, fmt.Errorf("prompt engineering: %w: empty prompt", models.ErrInvalidInput)
	}
	optimized := truncateRunes(whitespaceRun.ReplaceAllString(prompt, " "), e.policy.MaxPromptLength)
	before := utf8.RuneCountInString(prompt)
	after := utf8.RuneCountInString(optimized)
	return models.PromptResult{
		OriginalLength:   before,
		OptimizedLength:  after,
		CompressionRatio: compressionRatio(before, after),
		Content:          optimized,
	}, nil
}

// ModelDowngrade picks a model tier for a task of the given complexity.
// Below SimpleComplexity the cheap model is used, below ComplexComplexity the
// mid model, and otherwise currentModel is kept.
func (e *Engine) ModelDowngrade(currentModel string, complexity float64) (string, error) {
	if currentModel == "" {
		return "", fmt.Errorf("model downgrade: %w: empty model", models.ErrInvalidInput)
	}
	if !isFraction(complexity) {
		return "", fmt.Errorf("model downgrade: %w: complexity must be within [0,1], got %v", models.ErrInvalidInput, complexity)
	}
	switch {
	case complexity < e.policy.SimpleComplexity:
		return e.policy.PreferredModels.Cheap, nil
	case complexity < e.policy.ComplexComplexity:
		return e.policy.PreferredModels.Mid, nil
	default:
		return currentModel, nil
	}
}

// CachingDecision derives a dedup key from the request and reports whether
// it should be cached.
func (e *Engine) CachingDecision(req models.Request) models.CacheDecision {
	return models.CacheDecision{
		Key:         CacheKey(req),
		ShouldCache: req.Type == "frequent_query" || req.Cacheable,
	}
}

// CacheKey returns the hex BLAKE2b-256 digest of a length-prefixed encoding
// of every request field. Strings are hashed as raw bytes, so distinct
// invalid UTF-8 inputs keep distinct keys.
func CacheKey(req models.Request) string {
	h, _ := blake2b.New256(nil)
	for _, f := range []string{req.Model, req.Prompt, req.Context, req.Type, req.Task} {
		writeField(h, []byte(f))
	}
	var flags [1 + 1 + 8]byte
	if req.Cacheable {
		flags[0] = 1
	}
	if req.Complexity != nil {
		flags[1] = 1
		binary.BigEndian.PutUint64(flags[2:], math.Float64bits(*req.Complexity))
	}
	h.Write(flags[:])
	return hex.EncodeToString(h.Sum(nil))
}

func writeField(h hash.Hash, b []byte) {
	var n [binary.MaxVarintLen64]byte
	h.Write(n[:binary.PutUvarint(n[:], uint64(len(b)))])
	h.Write(b)
}

// ContextCompression keeps the leading ContextKeepFraction of the context.
func (e *Engine) ContextCompression(context string) (models.ContextResult, error) {
	if context == "" {
		return models.ContextResult{}, fmt.Errorf("context compression: %w: empty context", models.ErrInvalidInput)
	}
	before := utf8.RuneCountInString(context)
	// The epsilon absorbs binary rounding, e.g. 90*0.7 = 62.99999999999999.
	keep := int(math.Floor(float64(before)*e.policy.ContextKeepFraction + 1e-9))
	compressed := truncateRunes(context, keep)
	after := utf8.RuneCountInString(compressed)
	return models.ContextResult{
		OriginalSize:     before,
		CompressedSize:   after,
		CompressionRatio: compressionRatio(before, after),
		Content:          compressed,
	}, nil
}

// TaskDecomposition returns the task as its only subtask together with the
// policy's placeholder savings estimate.
func (e *Engine) TaskDecomposition(task string) (models.TaskPlan, error) {
	if task == "" {
		return models.TaskPlan{}, fmt.Errorf("task decomposition: %w: empty task", models.ErrInvalidInput)
	}
	return models.TaskPlan{
		CanDecompose:     true,
		Subtasks:         []string{task},
		EstimatedSavings: e.policy.DecompositionSavings,
	}, nil
}

// truncateRunes returns the first n code points of s.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

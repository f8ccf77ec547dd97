// Package report renders analyses, request optimizations, price tables and
// history as plain-text tables or Markdown.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/pario-ai/tokopt/pkg/models"
)

const timeLayout = "2006-01-02 15:04:05"

// Analysis formats an analysis as text tables.
func Analysis(a models.Analysis) string {
	var b strings.Builder
	b.WriteString(costTable(a.Cost))
	if len(a.Cost.Unpriced) > 0 {
		fmt.Fprintf(&b, "Unpriced models (ignored): %s\n", strings.Join(a.Cost.Unpriced, ", "))
	}

	fmt.Fprintf(&b, "\nPotential savings:  $%.2f\n", a.PotentialSavings)
	fmt.Fprintf(&b, "Optimization score: %.1f\n", a.OptimizationScore)

	b.WriteString("\n")
	b.WriteString(Recommendations(a.Recommendations))

	if len(a.Strategies) > 0 {
		b.WriteString("\n")
		fmt.Fprintf(&b, "%-22s %7s %12s %-8s\n", "STRATEGY", "IMPACT", "SAVING", "PRIORITY")
		b.WriteString(strings.Repeat("-", 52) + "\n")
		for _, s := range a.Strategies {
			fmt.Fprintf(&b, "%-22s %6.0f%% $%11.2f %-8s\n",
				s.Name, s.PercentageImpact, s.PotentialSaving, s.Priority)
		}
	}
	return b.String()
}

func costTable(c models.CostBreakdown) string {
	if len(c.Models) == 0 {
		return "No priced usage found.\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-20s %14s %14s %12s\n", "MODEL", "INPUT", "OUTPUT", "EST. COST")
	b.WriteString(strings.Repeat("-", 63) + "\n")
	for _, m := range c.Models {
		fmt.Fprintf(&b, "%-20s %14s %14s $%11.4f\n",
			m.Model, humanize.Comma(m.InputTokens), humanize.Comma(m.OutputTokens), m.Cost)
	}
	b.WriteString(strings.Repeat("-", 63) + "\n")
	fmt.Fprintf(&b, "%-20s %14s %14s $%11.4f\n", "TOTAL",
		humanize.Comma(c.TotalInputTokens), humanize.Comma(c.TotalOutputTokens), c.CurrentCost)
	return b.String()
}

// Recommendations formats recommendations in rule order.
func Recommendations(recs []models.Recommendation) string {
	if len(recs) == 0 {
		return "No recommendations.\n"
	}
	var b strings.Builder
	b.WriteString("Recommendations\n")
	for i, r := range recs {
		fmt.Fprintf(&b, "  %d. [%s] %s (saves ~$%.2f)\n", i+1, r.Priority, r.Title, r.EstimatedSavings)
		fmt.Fprintf(&b, "     %s\n", r.Description)
	}
	return b.String()
}

// Markdown renders an analysis as a Markdown cost report.
func Markdown(a models.Analysis, generated time.Time) string {
	var b strings.Builder
	b.WriteString("# Token Cost Optimization Report\n\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", generated.UTC().Format(time.RFC3339))

	b.WriteString("## Current Usage\n\n")
	fmt.Fprintf(&b, "- Total input tokens: %s\n", humanize.Comma(a.Cost.TotalInputTokens))
	fmt.Fprintf(&b, "- Total output tokens: %s\n", humanize.Comma(a.Cost.TotalOutputTokens))
	fmt.Fprintf(&b, "- Current cost: $%.2f\n\n", a.Cost.CurrentCost)

	if len(a.Cost.Models) > 0 {
		b.WriteString("| Model | Input | Output | Cost |\n")
		b.WriteString("|---|---:|---:|---:|\n")
		for _, m := range a.Cost.Models {
			fmt.Fprintf(&b, "| %s | %s | %s | $%.2f |\n",
				m.Model, humanize.Comma(m.InputTokens), humanize.Comma(m.OutputTokens), m.Cost)
		}
		b.WriteString("\n")
	}
	if len(a.Cost.Unpriced) > 0 {
		fmt.Fprintf(&b, "Unpriced models: %s\n\n", strings.Join(a.Cost.Unpriced, ", "))
	}

	b.WriteString("## Optimization Opportunities\n\n")
	fmt.Fprintf(&b, "- Potential savings: $%.2f\n", a.PotentialSavings)
	fmt.Fprintf(&b, "- Optimization score: %.1f\n", a.OptimizationScore)
	fmt.Fprintf(&b, "- Estimated cost after optimization: $%.2f\n\n", a.Cost.CurrentCost-a.PotentialSavings)

	b.WriteString("## Recommendations\n\n")
	if len(a.Recommendations) == 0 {
		b.WriteString("No recommendations.\n\n")
	}
	for _, r := range a.Recommendations {
		fmt.Fprintf(&b, "### %s (%s priority)\n\n", r.Title, r.Priority)
		fmt.Fprintf(&b, "- **Estimated savings**: $%.2f\n", r.EstimatedSavings)
		fmt.Fprintf(&b, "- **Description**: %s\n\n", r.Description)
	}

	if len(a.Strategies) > 0 {
		b.WriteString("## Strategies\n\n")
		for _, s := range a.Strategies {
			fmt.Fprintf(&b, "### %s (%s priority)\n\n", s.Name, s.Priority)
			fmt.Fprintf(&b, "- **Estimated savings**: $%.2f (%.0f%%)\n", s.PotentialSaving, s.PercentageImpact)
			fmt.Fprintf(&b, "- **Description**: %s\n\n", s.Description)
		}
	}
	return b.String()
}

// Optimization formats the transforms applied to one request.
func Optimization(r models.RequestOptimization) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Recommended model: %s\n", r.RecommendedModel)
	fmt.Fprintf(&b, "Prompt:  %s -> %s chars (%.1f%% smaller)\n",
		humanize.Comma(int64(r.Prompt.OriginalLength)),
		humanize.Comma(int64(r.Prompt.OptimizedLength)),
		r.Prompt.CompressionRatio*100)
	if r.Context != nil {
		fmt.Fprintf(&b, "Context: %s -> %s chars (%.1f%% smaller)\n",
			humanize.Comma(int64(r.Context.OriginalSize)),
			humanize.Comma(int64(r.Context.CompressedSize)),
			r.Context.CompressionRatio*100)
	}
	fmt.Fprintf(&b, "Cache:   key=%s cache=%t\n", r.Cache.Key, r.Cache.ShouldCache)
	if r.Task != nil {
		fmt.Fprintf(&b, "Task:    %d subtask(s), est. savings %.0f%%\n",
			len(r.Task.Subtasks), r.Task.EstimatedSavings*100)
	}
	return b.String()
}

// Pricing formats a price table.
func Pricing(pricing []models.ModelPricing) string {
	if len(pricing) == 0 {
		return "No pricing configured.\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-20s %14s %14s\n", "MODEL", "INPUT/1K", "OUTPUT/1K")
	b.WriteString(strings.Repeat("-", 50) + "\n")
	for _, p := range pricing {
		fmt.Fprintf(&b, "%-20s $%13.5f $%13.5f\n", p.Model, p.PromptCost, p.CompletionCost)
	}
	return b.String()
}

// History formats stored analysis records.
func History(records []models.AnalysisRecord) string {
	if len(records) == 0 {
		return "No analyses recorded.\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-26s %-20s %12s %12s %6s %5s\n",
		"ID", "CREATED", "COST", "SAVINGS", "SCORE", "RECS")
	b.WriteString(strings.Repeat("-", 86) + "\n")
	for _, r := range records {
		fmt.Fprintf(&b, "%-26s %-20s $%11.4f $%11.4f %6.1f %5d\n",
			r.ID, r.CreatedAt.Local().Format(timeLayout),
			r.CurrentCost, r.PotentialSavings, r.OptimizationScore, r.RecommendationCount)
	}
	return b.String()
}

// ModelTotals formats per-model aggregates from history.
func ModelTotals(totals []models.ModelTotal) string {
	if len(totals) == 0 {
		return "No model usage recorded.\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-20s %8s %14s %14s %12s\n", "MODEL", "ANALYSES", "INPUT", "OUTPUT", "COST")
	b.WriteString(strings.Repeat("-", 72) + "\n")
	var total float64
	for _, t := range totals {
		fmt.Fprintf(&b, "%-20s %8d %14s %14s $%11.4f\n",
			t.Model, t.Analyses, humanize.Comma(t.InputTokens), humanize.Comma(t.OutputTokens), t.Cost)
		total += t.Cost
	}
	b.WriteString(strings.Repeat("-", 72) + "\n")
	fmt.Fprintf(&b, "%59s $%11.4f\n", "TOTAL:", total)
	return b.String()
}

package main

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/pario-ai/tokopt/pkg/history"
	"github.com/pario-ai/tokopt/pkg/models"
	"github.com/pario-ai/tokopt/pkg/optimizer"
	"github.com/pario-ai/tokopt/pkg/report"
)

func newAnalyzeCmd(opts *globalOpts) *cobra.Command {
	var (
		avgPromptLength int
		record          bool
	)

	cmd := &cobra.Command{
		Use:   "analyze <usage.json | json | ->",
		Short: "Estimate cost for a usage mapping and recommend optimizations",
		Long: `Reads a JSON object mapping model names to token counts, e.g.

  {"gpt-4": {"inputTokens": 500000, "outputTokens": 200000}}

and prints the estimated cost, recommendations and strategy estimates.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := resolveFormat(opts.format, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			data, err := readInput(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			usage, err := models.ParseUsage(data)
			if err != nil {
				return err
			}

			opt, err := newOptimizer(cfg)
			if err != nil {
				return err
			}
			a, err := opt.Analyze(usage, optimizer.AnalyzeOptions{AvgPromptLength: avgPromptLength})
			if err != nil {
				return err
			}

			if record {
				if !cfg.History.Enabled {
					return fmt.Errorf("--record requires history.enabled in config")
				}
				store, err := history.New(cfg.DBPath)
				if err != nil {
					return err
				}
				defer func() { _ = store.Close() }()

				rec := models.NewAnalysisRecord(a, "", inputName(args[0]), time.Now())
				id, err := store.Record(cmd.Context(), rec)
				if err != nil {
					return err
				}
				slog.Info("analysis recorded", "id", id, "db", cfg.DBPath)
			}

			return writeAnalysis(cmd.OutOrStdout(), format, a)
		},
	}

	cmd.Flags().IntVar(&avgPromptLength, "avg-prompt-length", 0, "average prompt length in characters (0 uses the policy default)")
	cmd.Flags().BoolVar(&record, "record", false, "store the analysis in history")

	return cmd
}

func writeAnalysis(w io.Writer, format string, a models.Analysis) error {
	switch format {
	case formatJSON:
		return writeJSON(w, a)
	case formatMarkdown:
		_, err := io.WriteString(w, report.Markdown(a, time.Now()))
		return err
	default:
		_, err := io.WriteString(w, report.Analysis(a))
		return err
	}
}

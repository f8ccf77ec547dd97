package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/pario-ai/tokopt/pkg/history"
	"github.com/pario-ai/tokopt/pkg/report"
)

func newHistoryCmd(opts *globalOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect and prune recorded analyses",
	}
	cmd.AddCommand(newHistoryListCmd(opts), newHistoryPruneCmd(opts))
	return cmd
}

func newHistoryListCmd(opts *globalOpts) *cobra.Command {
	var (
		since   string
		limit   int
		byModel bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded analyses or per-model totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := resolveFormat(opts.format, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			var sinceTime time.Time
			if since != "" {
				sinceTime, err = time.Parse("2006-01-02", since)
				if err != nil {
					return fmt.Errorf("invalid --since date (use YYYY-MM-DD): %w", err)
				}
			}

			store, err := history.New(cfg.DBPath)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			w := cmd.OutOrStdout()
			if byModel {
				totals, err := store.ModelTotals(cmd.Context(), sinceTime)
				if err != nil {
					return err
				}
				if format == formatJSON {
					return writeJSON(w, totals)
				}
				_, err = io.WriteString(w, report.ModelTotals(totals))
				return err
			}

			records, err := store.List(cmd.Context(), sinceTime, limit)
			if err != nil {
				return err
			}
			if format == formatJSON {
				return writeJSON(w, records)
			}
			_, err = io.WriteString(w, report.History(records))
			return err
		},
	}

	cmd.Flags().StringVar(&since, "since", "", "only include analyses on or after this date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of analyses to list (0 for all)")
	cmd.Flags().BoolVar(&byModel, "by-model", false, "aggregate token usage and cost per model")

	return cmd
}

func newHistoryPruneCmd(opts *globalOpts) *cobra.Command {
	var olderThan int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete analyses older than the retention window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			days := olderThan
			if days == 0 {
				days = cfg.History.RetentionDays
			}
			if days <= 0 {
				return fmt.Errorf("retention must be positive, got %d days", days)
			}

			store, err := history.New(cfg.DBPath)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			cutoff := time.Now().AddDate(0, 0, -days)
			n, err := store.Prune(cmd.Context(), cutoff)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d analyses older than %s.\n", n, cutoff.Format("2006-01-02"))
			return nil
		},
	}

	cmd.Flags().IntVar(&olderThan, "older-than", 0, "retention in days (default: history.retention_days)")

	return cmd
}

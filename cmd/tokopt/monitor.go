package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pario-ai/tokopt/pkg/history"
	"github.com/pario-ai/tokopt/pkg/metrics"
	"github.com/pario-ai/tokopt/pkg/monitor"
)

func newMonitorCmd(opts *globalOpts) *cobra.Command {
	var (
		usageFile string
		watch     bool
	)

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Periodically analyze a usage file and report savings estimates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if usageFile != "" {
				cfg.Monitor.UsageFile = usageFile
			}
			if cmd.Flags().Changed("watch") {
				cfg.Monitor.WatchFile = watch
			}

			opt, err := newOptimizer(cfg)
			if err != nil {
				return err
			}

			mcfg := monitor.Config{
				Optimizer:      opt,
				Source:         &monitor.FileSource{Path: cfg.Monitor.UsageFile},
				Logger:         slog.Default(),
				CheckSchedule:  cfg.Monitor.CheckSchedule,
				ReportSchedule: cfg.Monitor.ReportSchedule,
				PruneSchedule:  cfg.History.PruneSchedule,
				RetentionDays:  cfg.History.RetentionDays,
				WatchFile:      cfg.Monitor.WatchFile,
			}

			if cfg.History.Enabled {
				store, err := history.New(cfg.DBPath)
				if err != nil {
					return err
				}
				defer func() { _ = store.Close() }()
				mcfg.History = store
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if cfg.Metrics.Enabled {
				collector := metrics.NewCollector(cfg.Metrics.Namespace, nil)
				mcfg.Metrics = collector
				srv := startMetricsServer(cfg.Metrics.Listen, collector.Handler())
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					if err := srv.Shutdown(shutdownCtx); err != nil {
						slog.Error("metrics server shutdown failed", "error", err)
					}
				}()
			}

			m, err := monitor.New(mcfg)
			if err != nil {
				return err
			}
			return m.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&usageFile, "usage-file", "", "usage JSON file to analyze (default: monitor.usage_file)")
	cmd.Flags().BoolVar(&watch, "watch", false, "also re-check when the usage file changes")

	return cmd
}

func startMetricsServer(addr string, handler http.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		slog.Info("metrics server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", "error", err)
		}
	}()
	return srv
}

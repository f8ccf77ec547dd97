package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pario-ai/tokopt/pkg/config"
	"github.com/pario-ai/tokopt/pkg/optimizer"
)

var version = "dev"

// globalOpts holds flags shared by every subcommand.
type globalOpts struct {
	configPath string
	logLevel   string
	format     string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOpts{}

	root := &cobra.Command{
		Use:           "tokopt",
		Short:         "tokopt: LLM token cost estimator and optimization advisor",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(opts.logLevel)
			if err != nil {
				return err
			}
			slog.SetDefault(logger)
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to tokopt config file (.yaml or .toml)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVarP(&opts.format, "format", "o", formatAuto, "output format (auto, json, text, markdown)")

	root.AddCommand(
		newAnalyzeCmd(opts),
		newOptimizeCmd(opts),
		newPricingCmd(opts),
		newHistoryCmd(opts),
		newMonitorCmd(opts),
		newMCPCmd(opts),
	)
	return root
}

// newLogger builds a text logger on stderr so stdout stays clean for output.
func newLogger(level string) (*slog.Logger, error) {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "", "info":
		l = slog.LevelInfo
	case "warn", "warning":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		return nil, fmt.Errorf("invalid --log-level %q", level)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})), nil
}

func (o *globalOpts) loadConfig() (*config.Config, error) {
	return config.LoadOrDefault(o.configPath)
}

func newOptimizer(cfg *config.Config) (*optimizer.Optimizer, error) {
	return optimizer.NewDefault(cfg.Pricing, cfg.Policy)
}

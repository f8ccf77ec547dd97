package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/pario-ai/tokopt/pkg/history"
	"github.com/pario-ai/tokopt/pkg/mcp"
)

func newMCPCmd(opts *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Start tokopt as an MCP server on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			opt, err := newOptimizer(cfg)
			if err != nil {
				return err
			}

			var reader mcp.HistoryReader
			if cfg.History.Enabled {
				store, err := history.New(cfg.DBPath)
				if err != nil {
					return err
				}
				defer func() { _ = store.Close() }()
				reader = store
			}

			slog.Info("mcp server starting", "version", version, "history", reader != nil)
			srv := mcp.New(opt, reader, version, slog.Default())
			return srv.Run(cmd.Context(), os.Stdin, os.Stdout)
		},
	}
}

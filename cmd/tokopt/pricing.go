package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/pario-ai/tokopt/pkg/estimator"
	"github.com/pario-ai/tokopt/pkg/report"
)

func newPricingCmd(opts *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "pricing",
		Short: "Show the per-1K token price table",
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
			est, err := estimator.New(cfg.Pricing)
			if err != nil {
				return err
			}

			pricing := est.Pricing()
			if format == formatJSON {
				return writeJSON(cmd.OutOrStdout(), pricing)
			}
			_, err = io.WriteString(cmd.OutOrStdout(), report.Pricing(pricing))
			return err
		},
	}
}

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/pario-ai/tokopt/pkg/models"
	"github.com/pario-ai/tokopt/pkg/report"
)

func newOptimizeCmd(opts *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "optimize <request.json | json | ->",
		Short: "Apply per-request transforms to one request or a batch",
		Long: `Reads a request object, or an array of them, e.g.

  {"model": "gpt-4", "prompt": "...", "complexity": 0.2, "type": "frequent_query"}

and prints the optimized prompt, recommended model, cache decision and,
when present, context and task results.`,
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
			reqs, batch, err := parseRequests(data)
			if err != nil {
				return err
			}

			opt, err := newOptimizer(cfg)
			if err != nil {
				return err
			}
			results, err := opt.OptimizeBatch(reqs)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if format == formatJSON {
				if batch {
					return writeJSON(w, results)
				}
				return writeJSON(w, results[0])
			}
			for i, r := range results {
				if batch {
					fmt.Fprintf(w, "Request %d\n", i)
				}
				if _, err := io.WriteString(w, report.Optimization(r)); err != nil {
					return err
				}
				if batch && i < len(results)-1 {
					fmt.Fprintln(w)
				}
			}
			return nil
		},
	}
}

// parseRequests decodes a single request object or an array of requests.
func parseRequests(data []byte) ([]models.Request, bool, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, false, fmt.Errorf("parse requests: %w: empty input", models.ErrInvalidInput)
	}
	if trimmed[0] == '[' {
		var reqs []models.Request
		if err := json.Unmarshal(trimmed, &reqs); err != nil {
			return nil, false, fmt.Errorf("parse requests: %w", err)
		}
		if len(reqs) == 0 {
			return nil, false, fmt.Errorf("parse requests: %w: empty batch", models.ErrInvalidInput)
		}
		return reqs, true, nil
	}
	var req models.Request
	if err := json.Unmarshal(trimmed, &req); err != nil {
		return nil, false, fmt.Errorf("parse request: %w", err)
	}
	return []models.Request{req}, false, nil
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/jobscout/internal/scheduler"
)

type sweeper interface {
	RunKeywords(ctx context.Context, keywords []string, maxPerSource int) scheduler.Summary
	Prune(ctx context.Context, days int) (int64, error)
}

func newSweepCmd() *cobra.Command {
	var maxPerSource int
	cmd := &cobra.Command{
		Use:   "sweep [keyword...]",
		Short: "Scrapes and saves each keyword in turn; defaults to the configured catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			return runSweep(cmd.Context(), cmd.OutOrStdout(), appInstance.Scheduler(), args, maxPerSource)
		},
	}
	cmd.Flags().IntVar(&maxPerSource, "max", 0, "maximum jobs per source (default from config)")
	return cmd
}

func runSweep(ctx context.Context, out io.Writer, s sweeper, keywords []string, maxPerSource int) error {
	if maxPerSource < 0 {
		return errors.New("--max must be >= 0")
	}
	summary := s.RunKeywords(ctx, keywords, maxPerSource)
	return printJSON(out, summary)
}

func newPruneCmd() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Deactivates jobs older than the retention window",
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			return runPrune(cmd.Context(), cmd.OutOrStdout(), appInstance.Scheduler(), days)
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "age in days (default from config)")
	return cmd
}

func runPrune(ctx context.Context, out io.Writer, s sweeper, days int) error {
	if days < 0 {
		return errors.New("--days must be >= 0")
	}
	n, err := s.Prune(ctx, days)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "deactivated %d jobs\n", n)
	return err
}

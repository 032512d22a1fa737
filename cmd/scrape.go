package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/jobscout/internal/jobs"
	"github.com/JakeFAU/jobscout/internal/orchestrator"
	"github.com/JakeFAU/jobscout/internal/scheduler"
)

type scraper interface {
	ScrapeAll(ctx context.Context, req orchestrator.Request) orchestrator.Result
}

type saver interface {
	Save(ctx context.Context, batch []jobs.Job) *scheduler.DatabaseResult
}

type scrapeOptions struct {
	location     string
	maxPerSource int
	sources      []string
	parallel     bool
	save         bool
}

func newScrapeCmd() *cobra.Command {
	var opts scrapeOptions
	cmd := &cobra.Command{
		Use:   "scrape <keyword>",
		Short: "Scrapes the selected sources once and prints the result as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("max") {
				opts.maxPerSource = loadedConfig.Scrape.PerSourceDefault
			}
			if !cmd.Flags().Changed("parallel") {
				opts.parallel = loadedConfig.Scrape.ParallelDefault
			}
			return runScrape(
				cmd.Context(),
				cmd.OutOrStdout(),
				appInstance.Orchestrator(),
				appInstance.Scheduler(),
				args[0],
				opts,
				loadedConfig.Scrape.PerSourceLimit,
			)
		},
	}
	cmd.Flags().StringVar(&opts.location, "location", "", "location filter")
	cmd.Flags().IntVar(&opts.maxPerSource, "max", 10, "maximum jobs per source")
	cmd.Flags().StringSliceVar(&opts.sources, "sources", nil, "sources to scrape (default all)")
	cmd.Flags().BoolVar(&opts.parallel, "parallel", false, "run sources concurrently")
	cmd.Flags().BoolVar(&opts.save, "save", false, "save the scraped jobs")
	return cmd
}

func runScrape(
	ctx context.Context,
	out io.Writer,
	s scraper,
	sv saver,
	keyword string,
	opts scrapeOptions,
	limit int,
) error {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return errors.New("keyword is required")
	}
	if opts.maxPerSource < 1 || opts.maxPerSource > limit {
		return fmt.Errorf("--max must be between 1 and %d", limit)
	}
	res := s.ScrapeAll(ctx, orchestrator.Request{
		Keyword:      keyword,
		Location:     strings.TrimSpace(opts.location),
		MaxPerSource: opts.maxPerSource,
		Sources:      opts.sources,
		Mode:         orchestrator.ModeFor(opts.parallel),
	})
	result := scheduler.KeywordResult{Result: res}
	if opts.save && len(res.Jobs) > 0 {
		result.Database = sv.Save(ctx, res.Jobs)
	}
	return printJSON(out, result)
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

// Package cmd defines the jobscout CLI commands.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobscout/internal/config"
	"github.com/JakeFAU/jobscout/internal/orchestrator"
	"github.com/JakeFAU/jobscout/internal/scheduler"
	"github.com/JakeFAU/jobscout/internal/server"
)

var cfgFile string

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App is the slice of the assembled application the commands use.
type App interface {
	Run(ctx context.Context) error
	Close() error
	Logger() *zap.Logger
	Orchestrator() *orchestrator.Orchestrator
	Scheduler() *scheduler.Scheduler
}

// newApp is the application factory. Tests swap it out.
var newApp = func(ctx context.Context, cfg *config.Config) (App, error) {
	return server.Build(ctx, cfg)
}

// loadedConfig holds the configuration resolved in PersistentPreRunE.
var loadedConfig config.Config

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobscout",
		Short: "Scrapes job boards into one normalized job store.",
		Long: `jobscout drives browser sessions against Naukri, LinkedIn and Unstop,
normalizes the postings they list and stores them for search. It runs as an
HTTP service (serve) or as one-shot commands (scrape, sweep, prune).`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			loadedConfig = cfg
			appInstance, err := newApp(cmd.Context(), &cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(App); ok && appInstance != nil {
				if err := appInstance.Close(); err != nil {
					appInstance.Logger().Warn("close failed", zap.Error(err))
				}
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML, JSON or TOML)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newScrapeCmd())
	cmd.AddCommand(newSweepCmd())
	cmd.AddCommand(newPruneCmd())
	return cmd
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

// Execute is the main entry point.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "jobscout: %v\n", err)
		stop()
		os.Exit(1)
	}
}

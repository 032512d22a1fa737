// Package server provides the core application server and dependency injection.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobscout/internal/agent"
	"github.com/JakeFAU/jobscout/internal/api"
	"github.com/JakeFAU/jobscout/internal/cache"
	"github.com/JakeFAU/jobscout/internal/clock/system"
	"github.com/JakeFAU/jobscout/internal/config"
	"github.com/JakeFAU/jobscout/internal/dispatcher"
	"github.com/JakeFAU/jobscout/internal/id/uuid"
	"github.com/JakeFAU/jobscout/internal/jobs"
	"github.com/JakeFAU/jobscout/internal/logging"
	"github.com/JakeFAU/jobscout/internal/metrics"
	"github.com/JakeFAU/jobscout/internal/orchestrator"
	"github.com/JakeFAU/jobscout/internal/policy/ratelimit"
	pubsubpublisher "github.com/JakeFAU/jobscout/internal/publisher/pubsub"
	queueMemory "github.com/JakeFAU/jobscout/internal/queue/memory"
	"github.com/JakeFAU/jobscout/internal/scheduler"
	"github.com/JakeFAU/jobscout/internal/session"
	"github.com/JakeFAU/jobscout/internal/session/headless"
	"github.com/JakeFAU/jobscout/internal/session/static"
	gcssnapshot "github.com/JakeFAU/jobscout/internal/snapshot/gcs"
	localsnapshot "github.com/JakeFAU/jobscout/internal/snapshot/local"
	"github.com/JakeFAU/jobscout/internal/store"
	memorystore "github.com/JakeFAU/jobscout/internal/store/memory"
	pgstore "github.com/JakeFAU/jobscout/internal/store/postgres"
	sqlitestore "github.com/JakeFAU/jobscout/internal/store/sqlite"
	"github.com/JakeFAU/jobscout/internal/telemetry"
	"github.com/JakeFAU/jobscout/internal/worker"
)

const shutdownTimeout = 10 * time.Second

// App contains the application's dependencies.
type App struct {
	cfg          *config.Config
	logger       *zap.Logger
	orchestrator *orchestrator.Orchestrator
	scheduler    *scheduler.Scheduler
	gateway      jobs.Gateway
	apiServer    *api.Server
	dispatch     *dispatcher.Dispatcher
	queue        *queueMemory.Queue
	storage      *storage.Client
	cache        *cache.Cache
	pubsubClient *pubsub.Client
	publisher    *pubsubpublisher.Publisher

	tracerShutdown func(context.Context) error

	closeOnce sync.Once
	closeErr  error
}

// Logger returns the root logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// Orchestrator returns the multi-source scraper.
func (a *App) Orchestrator() *orchestrator.Orchestrator { return a.orchestrator }

// Scheduler returns the sweep scheduler.
func (a *App) Scheduler() *scheduler.Scheduler { return a.scheduler }

// Gateway returns the configured persistence gateway.
func (a *App) Gateway() jobs.Gateway { return a.gateway }

// Run serves HTTP and drains the sweep queue until the context is canceled
// or the process receives SIGINT/SIGTERM.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("application started")
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go a.dispatch.Run(ctx)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}

	return a.Close()
}

// Close releases every backend the App opened. Calls after the first
// return the first result.
func (a *App) Close() error {
	a.closeOnce.Do(func() { a.closeErr = a.close() })
	return a.closeErr
}

func (a *App) close() error {
	if a.queue != nil {
		a.queue.Close()
	}
	var errs []error
	if a.gateway != nil {
		if err := a.gateway.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close gateway: %w", err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Warn("cache close failed", zap.Error(err))
		}
	}
	if a.publisher != nil {
		a.publisher.Stop()
	}
	if a.pubsubClient != nil {
		if err := a.pubsubClient.Close(); err != nil {
			a.logger.Warn("pubsub client close failed", zap.Error(err))
		}
	}
	if a.storage != nil {
		if err := a.storage.Close(); err != nil {
			a.logger.Warn("gcs client close failed", zap.Error(err))
		}
	}
	if a.tracerShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.tracerShutdown(ctx); err != nil {
			a.logger.Warn("tracer shutdown failed", zap.Error(err))
		}
		cancel()
	}
	_ = a.logger.Sync()
	a.logger.Info("shutdown complete")
	return errors.Join(errs...)
}

// Build creates the application's dependencies.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	logger, err := logging.New(logging.Config{
		Development: cfg.Logging.Development,
		Level:       cfg.Logging.Level,
	})
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}
	zap.ReplaceGlobals(logger)
	metrics.Init()

	app := &App{cfg: cfg, logger: logger}
	tp, err := telemetry.InitTracerProvider(ctx, telemetry.Config{
		ServiceName: cfg.Telemetry.ServiceName,
		Version:     cfg.Telemetry.Version,
		ProjectID:   cfg.Telemetry.ProjectID,
		SampleRatio: cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		return nil, fmt.Errorf("tracer init failed: %w", err)
	}
	app.tracerShutdown = tp.Shutdown
	logger.Info("building application dependencies",
		zap.String("browser_mode", cfg.Browser.Mode),
		zap.String("db_driver", cfg.DB.Driver),
		zap.String("snapshots", cfg.Snapshots.Provider),
	)

	clock := system.New()
	ids := uuid.New()

	sessions, err := setupSessions(cfg)
	if err != nil {
		app.closePartial()
		return nil, err
	}
	snapshots, err := setupSnapshots(ctx, app)
	if err != nil {
		app.closePartial()
		return nil, err
	}
	setupCache(ctx, app)

	agents, err := setupAgents(app, sessions, snapshots, clock)
	if err != nil {
		app.closePartial()
		return nil, err
	}
	app.orchestrator = orchestrator.New(agents, clock, logger.Named("orchestrator"))

	app.gateway, err = setupGateway(ctx, app, ids, clock)
	if err != nil {
		app.closePartial()
		return nil, err
	}

	if err := setupPublisher(ctx, app); err != nil {
		app.closePartial()
		return nil, err
	}

	app.queue = queueMemory.NewQueue(cfg.Scheduler.QueueDepth)
	schedCfg := scheduler.Config{
		Keywords:       cfg.Scheduler.Keywords,
		MaxPerSource:   cfg.Scheduler.MaxPerSource,
		EnqueueTimeout: cfg.EnqueueTimeout(),
		RetentionDays:  cfg.Scheduler.RetentionDays,
	}
	if app.publisher != nil {
		schedCfg.Publisher = app.publisher
		schedCfg.Topic = cfg.PubSub.TopicName
	}
	app.scheduler = scheduler.New(
		app.orchestrator,
		app.gateway,
		app.queue,
		ids,
		clock,
		schedCfg,
		logger.Named("scheduler"),
	)

	workers := make([]dispatcher.Runner, 0, cfg.Scheduler.Workers)
	for i := range cfg.Scheduler.Workers {
		workers = append(workers, worker.New(
			app.queue,
			app.scheduler,
			logger.Named("worker").With(zap.Int("index", i)),
		))
	}
	app.dispatch = dispatcher.New(workers, logger.Named("dispatcher"))

	app.apiServer = api.NewServer(app.orchestrator, app.scheduler, app.gateway, *cfg, logger.Named("api"))
	return app, nil
}

func (a *App) closePartial() {
	if a.tracerShutdown != nil {
		_ = a.tracerShutdown(context.Background())
	}
	if a.gateway != nil {
		_ = a.gateway.Close()
	}
	if a.pubsubClient != nil {
		_ = a.pubsubClient.Close()
	}
	if a.cache != nil {
		_ = a.cache.Close()
	}
	if a.storage != nil {
		_ = a.storage.Close()
	}
}

func setupPublisher(ctx context.Context, app *App) error {
	if !app.cfg.PubSub.Enabled() {
		app.logger.Info("no Pub/Sub topic configured, sweep events are not published")
		return nil
	}
	client, err := pubsub.NewClient(ctx, app.cfg.PubSub.ProjectID)
	if err != nil {
		return fmt.Errorf("pubsub client init failed: %w", err)
	}
	app.pubsubClient = client
	app.publisher = pubsubpublisher.New(client)
	app.logger.Info("Pub/Sub publisher initialized",
		zap.String("project", app.cfg.PubSub.ProjectID),
		zap.String("topic", app.cfg.PubSub.TopicName),
	)
	return nil
}

func setupSessions(cfg *config.Config) (session.Factory, error) {
	if cfg.Browser.Mode == "static" {
		return static.New(static.Config{
			UserAgent: cfg.Browser.UserAgent,
			Timeout:   cfg.NavTimeout(),
		}), nil
	}
	factory, err := headless.New(headless.Config{
		MaxParallel:       cfg.Browser.MaxParallel,
		UserAgent:         cfg.Browser.UserAgent,
		NavigationTimeout: cfg.NavTimeout(),
		ExecPath:          cfg.Browser.ExecPath,
	})
	if err != nil {
		return nil, fmt.Errorf("headless session init failed: %w", err)
	}
	return factory, nil
}

func setupSnapshots(ctx context.Context, app *App) (jobs.SnapshotStore, error) {
	cfg := app.cfg.Snapshots
	switch cfg.Provider {
	case "gcs":
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("gcs client init failed: %w", err)
		}
		app.storage = client
		snaps, err := gcssnapshot.New(client, gcssnapshot.Config{Bucket: cfg.GCSBucket, Prefix: cfg.Prefix})
		if err != nil {
			return nil, fmt.Errorf("gcs snapshot store init failed: %w", err)
		}
		app.logger.Info("archiving snapshots to GCS", zap.String("bucket", cfg.GCSBucket))
		return snaps, nil
	case "local":
		snaps, err := localsnapshot.New(localsnapshot.Config{BaseDir: cfg.Dir})
		if err != nil {
			return nil, fmt.Errorf("local snapshot store init failed: %w", err)
		}
		app.logger.Info("archiving snapshots locally", zap.String("path", cfg.Dir))
		return snaps, nil
	default:
		return nil, nil
	}
}

// setupCache connects the optional Redis cache. An unreachable Redis is
// logged and scraping proceeds uncached.
func setupCache(ctx context.Context, app *App) {
	if app.cfg.Cache.RedisURL == "" {
		return
	}
	c, err := cache.Connect(ctx, app.cfg.Cache.RedisURL, app.cfg.CacheTTL(), app.logger.Named("cache"))
	if err != nil {
		app.logger.Warn("result cache disabled", zap.Error(err))
		return
	}
	app.cache = c
	app.logger.Info("result cache enabled", zap.Duration("ttl", app.cfg.CacheTTL()))
}

func setupAgents(
	app *App,
	sessions session.Factory,
	snapshots jobs.SnapshotStore,
	clock jobs.Clock,
) ([]jobs.Agent, error) {
	cfg := app.cfg
	unstop, err := agent.NewUnstop(cfg.Sources.Unstop.Category)
	if err != nil {
		return nil, fmt.Errorf("unstop agent init failed: %w", err)
	}
	sites := []struct {
		site   agent.Site
		timing config.SourceConfig
	}{
		{agent.Naukri{}, cfg.Sources.Naukri},
		{agent.LinkedIn{}, cfg.Sources.LinkedIn},
		{unstop, cfg.Sources.Unstop},
	}

	var limiter *ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.New(ratelimit.Config{
			DefaultRPS:   cfg.RateLimit.DefaultRPS,
			DefaultBurst: cfg.RateLimit.DefaultBurst,
		})
		app.logger.Info("rate limiter enabled",
			zap.Float64("default_rps", cfg.RateLimit.DefaultRPS),
			zap.Int("default_burst", cfg.RateLimit.DefaultBurst),
		)
	}

	agents := make([]jobs.Agent, 0, len(sites))
	for _, s := range sites {
		opts := []agent.Option{agent.WithTiming(agent.Timing{
			Settle:      s.timing.Settle(),
			ScrollCount: s.timing.ScrollCount,
			ScrollWait:  s.timing.ScrollWait(),
		})}
		if limiter != nil {
			opts = append(opts, agent.WithLimiter(limiter))
		}
		if snapshots != nil {
			opts = append(opts, agent.WithSnapshots(snapshots, clock))
		}
		var ag jobs.Agent = agent.New(s.site, sessions, app.logger.Named("agent"), opts...)
		if app.cache != nil {
			ag = app.cache.Wrap(ag)
		}
		agents = append(agents, ag)
	}
	return agents, nil
}

// setupGateway opens the configured backend. A postgres or sqlite driver
// without a DSN yields a gateway that fails every call with a diagnostic.
func setupGateway(ctx context.Context, app *App, ids jobs.IDGenerator, clock jobs.Clock) (jobs.Gateway, error) {
	cfg := app.cfg.DB
	switch cfg.Driver {
	case "postgres":
		if cfg.DSN == "" {
			app.logger.Warn("no DSN configured, persistence unavailable", zap.String("missing", "db.dsn"))
			return store.NewUnavailable("db.dsn"), nil
		}
		gw, err := pgstore.New(ctx, pgstore.Config{
			DSN:             cfg.DSN,
			Table:           cfg.Table,
			MaxConns:        cfg.MaxConns,
			MinConns:        cfg.MinConns,
			MaxConnLifetime: app.cfg.ConnLifetime(),
		}, ids, clock)
		if err != nil {
			return nil, fmt.Errorf("postgres gateway init failed: %w", err)
		}
		app.logger.Info("postgres gateway initialized", zap.String("table", cfg.Table))
		return gw, nil
	case "sqlite":
		if cfg.DSN == "" {
			app.logger.Warn("no sqlite path configured, persistence unavailable", zap.String("missing", "db.dsn"))
			return store.NewUnavailable("db.dsn"), nil
		}
		gw, err := sqlitestore.Open(ctx, sqlitestore.Config{Path: cfg.DSN, Table: cfg.Table}, ids, clock)
		if err != nil {
			return nil, fmt.Errorf("sqlite gateway init failed: %w", err)
		}
		app.logger.Info("sqlite gateway initialized", zap.String("path", cfg.DSN))
		return gw, nil
	default:
		app.logger.Info("using in-memory gateway")
		return memorystore.New(ids, clock), nil
	}
}

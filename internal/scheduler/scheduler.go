// Package scheduler sweeps a keyword catalog through the orchestrator and
// persists what it finds, either inline or as a detached queued task.
package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobscout/internal/jobs"
	"github.com/JakeFAU/jobscout/internal/metrics"
	"github.com/JakeFAU/jobscout/internal/orchestrator"
	"github.com/JakeFAU/jobscout/internal/telemetry"
)

// PopularKeywords is the default sweep catalog.
var PopularKeywords = []string{
	"software developer",
	"data scientist",
	"python developer",
	"full stack developer",
	"frontend developer",
	"backend developer",
	"machine learning engineer",
	"data analyst",
	"devops engineer",
	"ui ux designer",
	"product manager",
	"business analyst",
	"cybersecurity engineer",
	"cloud engineer",
	"mobile app developer",
}

const (
	defaultMaxPerSource   = 5
	defaultRetentionDays  = 30
	defaultEnqueueTimeout = 5 * time.Second
)

// Scraper is the orchestrator surface the scheduler drives.
type Scraper interface {
	ScrapeAll(ctx context.Context, req orchestrator.Request) orchestrator.Result
}

// Enqueuer accepts detached sweep tasks.
type Enqueuer interface {
	Enqueue(ctx context.Context, task jobs.SweepTask) error
}

// Config tunes a Scheduler. Zero values fall back to defaults.
type Config struct {
	Keywords       []string
	MaxPerSource   int
	EnqueueTimeout time.Duration
	RetentionDays  int
	// Publisher, when set with Topic, receives a KeywordEvent per swept keyword.
	Publisher jobs.Publisher
	Topic     string
}

// KeywordEvent announces that one keyword finished sweeping.
type KeywordEvent struct {
	Keyword     string                 `json:"keyword"`
	Success     bool                   `json:"success"`
	TotalJobs   int                    `json:"total_jobs"`
	SavedJobs   int                    `json:"saved_jobs"`
	SourceStats map[jobs.Source]int    `json:"source_stats,omitempty"`
	Errors      map[jobs.Source]string `json:"errors,omitempty"`
	Error       string                 `json:"error,omitempty"`
	CompletedAt time.Time              `json:"completed_at"`
}

// DatabaseResult reports the persistence outcome for one keyword.
type DatabaseResult struct {
	Success       bool   `json:"success"`
	InsertedCount int    `json:"inserted_count,omitempty"`
	Message       string `json:"message"`
}

// KeywordResult is the outcome of sweeping one keyword. A keyword that could
// not be scraped at all carries only Keyword, Success=false and Error.
type KeywordResult struct {
	orchestrator.Result
	Database *DatabaseResult `json:"database,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// MarshalJSON renders failed keywords in their reduced form.
func (r KeywordResult) MarshalJSON() ([]byte, error) {
	if r.Error != "" {
		return json.Marshal(struct {
			Success bool   `json:"success"`
			Keyword string `json:"keyword"`
			Error   string `json:"error"`
		}{Success: false, Keyword: r.Keyword, Error: r.Error})
	}
	type envelope struct {
		orchestrator.Result
		Database *DatabaseResult `json:"database,omitempty"`
	}
	return json.Marshal(envelope{Result: r.Result, Database: r.Database})
}

// Summary aggregates a sweep. Totals only include keywords that succeeded.
type Summary struct {
	Success          bool            `json:"success"`
	TotalKeywords    int             `json:"total_keywords"`
	TotalJobsScraped int             `json:"total_jobs_scraped"`
	TotalJobsSaved   int             `json:"total_jobs_saved"`
	DurationSeconds  float64         `json:"duration_seconds"`
	StartedAt        time.Time       `json:"started_at"`
	CompletedAt      time.Time       `json:"completed_at"`
	Results          []KeywordResult `json:"results"`
}

// Scheduler runs keyword sweeps.
type Scheduler struct {
	scraper Scraper
	gateway jobs.Gateway
	queue   Enqueuer
	ids     jobs.IDGenerator
	clock   jobs.Clock
	cfg     Config
	logger  *zap.Logger
}

// New constructs a Scheduler. queue and ids may be nil when Submit is unused.
func New(
	scraper Scraper,
	gateway jobs.Gateway,
	queue Enqueuer,
	ids jobs.IDGenerator,
	clock jobs.Clock,
	cfg Config,
	logger *zap.Logger,
) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(cfg.Keywords) == 0 {
		cfg.Keywords = PopularKeywords
	}
	if cfg.MaxPerSource <= 0 {
		cfg.MaxPerSource = defaultMaxPerSource
	}
	if cfg.EnqueueTimeout <= 0 {
		cfg.EnqueueTimeout = defaultEnqueueTimeout
	}
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = defaultRetentionDays
	}
	return &Scheduler{
		scraper: scraper,
		gateway: gateway,
		queue:   queue,
		ids:     ids,
		clock:   clock,
		cfg:     cfg,
		logger:  logger,
	}
}

// Keywords returns the configured catalog.
func (s *Scheduler) Keywords() []string {
	return append([]string(nil), s.cfg.Keywords...)
}

// RunKeyword scrapes every source for keyword and saves any jobs found.
// A failed save is reported in Database; the scraped jobs are kept.
func (s *Scheduler) RunKeyword(ctx context.Context, keyword string, maxPerSource int) (res KeywordResult) {
	logger := s.logger.With(zap.String("keyword", keyword))
	ctx, span := telemetry.Tracer("scheduler").Start(ctx, "scheduler.RunKeyword",
		trace.WithAttributes(attribute.String("jobscout.keyword", keyword)))
	defer func() {
		span.SetAttributes(
			attribute.Int("jobscout.total_jobs", res.TotalJobs),
			attribute.Bool("jobscout.saved", res.Database != nil && res.Database.Success),
		)
		if res.Error != "" {
			span.SetStatus(codes.Error, res.Error)
		}
		span.End()
	}()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("keyword sweep panicked", zap.Any("panic", r))
			res = failedKeyword(keyword, fmt.Errorf("panic: %v", r))
		}
	}()
	if err := ctx.Err(); err != nil {
		return failedKeyword(keyword, err)
	}

	out := s.scraper.ScrapeAll(ctx, orchestrator.Request{
		Keyword:      keyword,
		MaxPerSource: s.maxPerSource(maxPerSource),
		Mode:         orchestrator.ModeSequential,
	})
	if err := ctx.Err(); err != nil {
		if len(out.Jobs) == 0 {
			logger.Warn("keyword sweep interrupted", zap.Error(err))
			return failedKeyword(keyword, err)
		}
		logger.Warn("keyword sweep interrupted, saving partial results",
			zap.Int("jobs", len(out.Jobs)), zap.Error(err))
	}

	res = KeywordResult{Result: out}
	if len(out.Jobs) > 0 {
		res.Database = s.persist(context.WithoutCancel(ctx), out.Jobs, logger)
	}
	return res
}

// Save bulk-inserts an already scraped batch and reports the outcome. It
// never fails; a gateway error is folded into the returned result.
func (s *Scheduler) Save(ctx context.Context, batch []jobs.Job) *DatabaseResult {
	return s.persist(ctx, batch, s.logger)
}

func (s *Scheduler) persist(ctx context.Context, batch []jobs.Job, logger *zap.Logger) *DatabaseResult {
	inserted, err := s.gateway.BulkInsert(ctx, batch)
	if err != nil {
		logger.Warn("saving sweep results failed", zap.Int("jobs", len(batch)), zap.Error(err))
		return &DatabaseResult{Success: false, Message: err.Error()}
	}
	metrics.ObservePersisted(inserted)
	logger.Info("sweep results saved", zap.Int("inserted", inserted))
	return &DatabaseResult{
		Success:       true,
		InsertedCount: inserted,
		Message:       fmt.Sprintf("Inserted %d jobs", inserted),
	}
}

// RunKeywords sweeps keywords one at a time. An empty list means the
// configured catalog. A failing keyword never stops the sweep.
func (s *Scheduler) RunKeywords(ctx context.Context, keywords []string, maxPerSource int) Summary {
	if len(keywords) == 0 {
		keywords = s.cfg.Keywords
	}
	metrics.IncActiveSweeps()
	defer metrics.DecActiveSweeps()

	ctx, span := telemetry.Tracer("scheduler").Start(ctx, "scheduler.RunKeywords",
		trace.WithAttributes(attribute.Int("jobscout.keywords", len(keywords))))
	defer span.End()

	started := s.clock.Now().UTC()
	summary := Summary{
		Success:       true,
		TotalKeywords: len(keywords),
		StartedAt:     started,
		Results:       make([]KeywordResult, 0, len(keywords)),
	}
	s.logger.Info("sweep started", zap.Int("keywords", len(keywords)))

	for _, kw := range keywords {
		res := s.RunKeyword(ctx, kw, maxPerSource)
		summary.Results = append(summary.Results, res)
		s.announce(ctx, res)
		if !res.Success {
			metrics.ObserveSweepKeyword("failure")
			continue
		}
		metrics.ObserveSweepKeyword("success")
		summary.TotalJobsScraped += res.TotalJobs
		if res.Database != nil {
			summary.TotalJobsSaved += res.Database.InsertedCount
		}
	}

	summary.CompletedAt = s.clock.Now().UTC()
	summary.DurationSeconds = summary.CompletedAt.Sub(started).Seconds()
	span.SetAttributes(
		attribute.Int("jobscout.jobs_scraped", summary.TotalJobsScraped),
		attribute.Int("jobscout.jobs_saved", summary.TotalJobsSaved),
	)
	s.logger.Info("sweep finished",
		zap.Int("keywords", summary.TotalKeywords),
		zap.Int("jobs_scraped", summary.TotalJobsScraped),
		zap.Int("jobs_saved", summary.TotalJobsSaved),
		zap.Float64("duration_seconds", summary.DurationSeconds),
	)
	return summary
}

// announce publishes a KeywordEvent. Failures are logged and never affect the sweep.
func (s *Scheduler) announce(ctx context.Context, res KeywordResult) {
	if s.cfg.Publisher == nil || s.cfg.Topic == "" {
		return
	}
	event := KeywordEvent{
		Keyword:     res.Keyword,
		Success:     res.Success,
		TotalJobs:   res.TotalJobs,
		SourceStats: res.SourceStats,
		Errors:      res.Errors,
		Error:       res.Error,
		CompletedAt: s.clock.Now().UTC(),
	}
	if res.Database != nil {
		event.SavedJobs = res.Database.InsertedCount
	}
	if _, err := s.cfg.Publisher.Publish(context.WithoutCancel(ctx), s.cfg.Topic, event); err != nil {
		s.logger.Warn("keyword event publish failed",
			zap.String("keyword", res.Keyword),
			zap.String("topic", s.cfg.Topic),
			zap.Error(err),
		)
	}
}

// RunCatalog sweeps the configured catalog.
func (s *Scheduler) RunCatalog(ctx context.Context, maxPerSource int) Summary {
	return s.RunKeywords(ctx, s.cfg.Keywords, maxPerSource)
}

// Submit queues a detached sweep and returns how many keywords it covers.
// The caller gets no handle; results only show up in the gateway.
func (s *Scheduler) Submit(ctx context.Context, keywords []string, maxPerSource int) (int, error) {
	if s.queue == nil || s.ids == nil {
		return 0, errors.New("submit sweep: background queue not configured")
	}
	if len(keywords) == 0 {
		keywords = s.cfg.Keywords
	}
	id, err := s.ids.NewID()
	if err != nil {
		return 0, fmt.Errorf("submit sweep: new id: %w", err)
	}
	task := jobs.SweepTask{
		ID:           id,
		Keywords:     append([]string(nil), keywords...),
		MaxPerSource: s.maxPerSource(maxPerSource),
		Submitted:    s.clock.Now().UTC(),
	}

	enqueueCtx, cancel := context.WithTimeout(ctx, s.cfg.EnqueueTimeout)
	defer cancel()
	if err := s.queue.Enqueue(enqueueCtx, task); err != nil {
		return 0, fmt.Errorf("submit sweep: %w", err)
	}
	s.logger.Info("sweep submitted", zap.String("task_id", id), zap.Int("keywords", len(keywords)))
	return len(keywords), nil
}

// Prune deactivates jobs older than days; non-positive days uses the
// configured retention.
func (s *Scheduler) Prune(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		days = s.cfg.RetentionDays
	}
	n, err := s.gateway.DeactivateOlderThan(ctx, days)
	if err != nil {
		return 0, fmt.Errorf("prune: %w", err)
	}
	s.logger.Info("jobs pruned", zap.Int("days", days), zap.Int64("deactivated", n))
	return n, nil
}

func (s *Scheduler) maxPerSource(n int) int {
	if n <= 0 {
		return s.cfg.MaxPerSource
	}
	return n
}

func failedKeyword(keyword string, err error) KeywordResult {
	return KeywordResult{
		Result: orchestrator.Result{Keyword: keyword},
		Error:  err.Error(),
	}
}

// Package agent drives a rendering session against one job board and turns
// the rendered search page into raw postings.
package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobscout/internal/headless/detector"
	"github.com/JakeFAU/jobscout/internal/jobs"
	"github.com/JakeFAU/jobscout/internal/metrics"
	"github.com/JakeFAU/jobscout/internal/session"
	"github.com/JakeFAU/jobscout/internal/telemetry"
)

const snapshotContentType = "text/html; charset=utf-8"

// Timing holds the fixed waits applied after navigation.
type Timing struct {
	Settle      time.Duration
	ScrollCount int
	ScrollWait  time.Duration
}

// Site describes one job board: where to search and how to read its cards.
type Site interface {
	Source() jobs.Source
	SearchURL(keyword, location string) string
	// CardSelectors are tried in order; the first one matching any element wins.
	CardSelectors() []string
	Extract(card *goquery.Selection) (jobs.RawPosting, error)
	DefaultTiming() Timing
}

// Option customizes an Agent.
type Option func(*Agent)

// WithTiming overrides the site's default waits.
func WithTiming(t Timing) Option {
	return func(a *Agent) { a.timing = t }
}

// WithLimiter makes the agent wait on limiter before each navigation.
func WithLimiter(limiter jobs.Waiter) Option {
	return func(a *Agent) { a.limiter = limiter }
}

// WithSnapshots archives every rendered page to store.
func WithSnapshots(store jobs.SnapshotStore, clock jobs.Clock) Option {
	return func(a *Agent) {
		a.snapshots = store
		a.clock = clock
	}
}

// Agent implements jobs.Agent for a single Site.
type Agent struct {
	site      Site
	sessions  session.Factory
	timing    Timing
	limiter   jobs.Waiter
	snapshots jobs.SnapshotStore
	clock     jobs.Clock
	shells    *detector.Heuristic
	logger    *zap.Logger
	sleep     func(context.Context, time.Duration) error
}

// New builds an Agent for site, opening a fresh session from sessions per run.
func New(site Site, sessions session.Factory, logger *zap.Logger, opts ...Option) *Agent {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Agent{
		site:     site,
		sessions: sessions,
		timing:   site.DefaultTiming(),
		shells:   detector.NewHeuristic(0),
		logger:   logger.With(zap.String("source", string(site.Source()))),
		sleep:    sleepCtx,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Source reports which board this agent scrapes.
func (a *Agent) Source() jobs.Source {
	return a.site.Source()
}

// Run renders the search page for req and extracts at most req.MaxResults
// postings in document order. A non-positive MaxResults returns nothing
// without touching the network. Finding no cards is an empty success; any
// failure before cards are read is returned as a *jobs.ScrapeFailure.
func (a *Agent) Run(ctx context.Context, req jobs.SearchRequest) ([]jobs.RawPosting, error) {
	if req.MaxResults <= 0 {
		return []jobs.RawPosting{}, nil
	}
	target := a.site.SearchURL(req.Keyword, req.Location)
	logger := a.logger.With(zap.String("keyword", req.Keyword), zap.String("url", target))
	start := time.Now()

	ctx, span := telemetry.Tracer("agent").Start(ctx, "agent.Run", trace.WithAttributes(
		attribute.String("jobscout.source", string(a.Source())),
		attribute.String("jobscout.keyword", req.Keyword),
		attribute.Int("jobscout.max_results", req.MaxResults),
	))
	postings, err := a.render(ctx, target, req, logger)
	span.SetAttributes(attribute.Int("jobscout.postings", len(postings)))
	telemetry.End(span, err)
	status := "success"
	if err != nil {
		status = "failure"
	}
	metrics.ObserveSourceRun(string(a.Source()), status, len(postings), time.Since(start))
	if err != nil {
		logger.Warn("scrape failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
		return nil, err
	}
	logger.Info("scrape finished",
		zap.Int("postings", len(postings)),
		zap.Duration("duration", time.Since(start)),
	)
	return postings, nil
}

func (a *Agent) render(
	ctx context.Context,
	target string,
	req jobs.SearchRequest,
	logger *zap.Logger,
) ([]jobs.RawPosting, error) {
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx, target); err != nil {
			return nil, a.fail(jobs.StageSession, err)
		}
	}
	sess, err := a.sessions.NewSession(ctx)
	if err != nil {
		return nil, a.fail(jobs.StageSession, err)
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			logger.Warn("session close failed", zap.Error(cerr))
		}
	}()

	if err := sess.Navigate(ctx, target); err != nil {
		return nil, a.fail(jobs.StageNavigate, err)
	}
	if err := a.sleep(ctx, a.timing.Settle); err != nil {
		return nil, a.fail(jobs.StageSettle, err)
	}
	for i := 0; i < a.timing.ScrollCount; i++ {
		if err := sess.ScrollToBottom(ctx); err != nil {
			return nil, a.fail(jobs.StageScroll, err)
		}
		if err := a.sleep(ctx, a.timing.ScrollWait); err != nil {
			return nil, a.fail(jobs.StageScroll, err)
		}
	}
	html, err := sess.HTML(ctx)
	if err != nil {
		return nil, a.fail(jobs.StageCapture, err)
	}
	a.archive(ctx, req, html, logger)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, a.fail(jobs.StageParse, err)
	}
	postings := a.parseCards(doc, req.MaxResults, logger)
	if len(postings) == 0 && a.shells.ClientRendered([]byte(html)) {
		logger.Warn("no postings on a client-rendered page, static sessions cannot see its listings")
	}
	return postings, nil
}

func (a *Agent) parseCards(doc *goquery.Document, limit int, logger *zap.Logger) []jobs.RawPosting {
	cards := a.findCards(doc)
	logger.Debug("cards located", zap.Int("cards", cards.Length()))

	out := make([]jobs.RawPosting, 0, min(cards.Length(), limit))
	source := string(a.Source())
	cards.EachWithBreak(func(i int, card *goquery.Selection) bool {
		raw, err := a.extract(i, card)
		if err != nil {
			logger.Warn("card skipped", zap.Int("card_index", i), zap.Error(err))
			metrics.ObserveCardSkipped(source, metrics.SkipParseError)
			return true
		}
		if _, ok := raw.Get(jobs.FieldTitle); !ok {
			logger.Debug("card without title", zap.Int("card_index", i))
			metrics.ObserveCardSkipped(source, metrics.SkipNoTitle)
			return true
		}
		out = append(out, raw)
		return len(out) < limit
	})
	return out
}

func (a *Agent) findCards(doc *goquery.Document) *goquery.Selection {
	var cards *goquery.Selection
	for _, sel := range a.site.CardSelectors() {
		cards = doc.Find(sel)
		if cards.Length() > 0 {
			return cards
		}
	}
	if cards == nil {
		return doc.Find("__none__")
	}
	return cards
}

// extract isolates a single card so a broken one cannot end the scan.
func (a *Agent) extract(idx int, card *goquery.Selection) (raw jobs.RawPosting, err error) {
	defer func() {
		if r := recover(); r != nil {
			raw = nil
			err = &jobs.CardParseError{Source: a.Source(), Index: idx, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	raw, err = a.site.Extract(card)
	if err != nil {
		return nil, &jobs.CardParseError{Source: a.Source(), Index: idx, Err: err}
	}
	return raw, nil
}

func (a *Agent) archive(ctx context.Context, req jobs.SearchRequest, html string, logger *zap.Logger) {
	if a.snapshots == nil || a.clock == nil {
		return
	}
	path := fmt.Sprintf("%s/%s/%s.html",
		a.Source(),
		slug(req.Keyword),
		a.clock.Now().UTC().Format("20060102T150405.000000000Z"),
	)
	uri, err := a.snapshots.PutObject(ctx, path, snapshotContentType, []byte(html))
	if err != nil {
		logger.Warn("snapshot archive failed", zap.String("path", path), zap.Error(err))
		return
	}
	logger.Debug("snapshot archived", zap.String("uri", uri))
}

func (a *Agent) fail(stage jobs.Stage, err error) error {
	return &jobs.ScrapeFailure{Source: a.Source(), Stage: stage, Err: err}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("wait interrupted: %w", ctx.Err())
	case <-t.C:
		return nil
	}
}

// Package orchestrator fans a keyword search out to the configured source
// agents and folds their postings into one result envelope.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/jobscout/internal/jobs"
	"github.com/JakeFAU/jobscout/internal/normalize"
	"github.com/JakeFAU/jobscout/internal/telemetry"
)

// Mode selects how agents are driven.
type Mode string

const (
	// ModeSequential runs agents one after another in selection order.
	ModeSequential Mode = "sequential"
	// ModeConcurrent runs every selected agent at once; jobs arrive in completion order.
	ModeConcurrent Mode = "concurrent"
)

// ModeFor maps a "parallel" flag onto a Mode.
func ModeFor(parallel bool) Mode {
	if parallel {
		return ModeConcurrent
	}
	return ModeSequential
}

// Request describes one fan-out.
type Request struct {
	Keyword      string
	Location     string
	MaxPerSource int
	// Sources names the sources to run. Empty means all of them.
	Sources []string
	Mode    Mode
}

// Result is the merged outcome of a fan-out. Success is always true; per
// source failures are reported in Errors, which stays nil when none occurred.
type Result struct {
	Success     bool                   `json:"success"`
	Keyword     string                 `json:"keyword"`
	Location    string                 `json:"location"`
	TotalJobs   int                    `json:"total_jobs"`
	Jobs        []jobs.Job             `json:"jobs"`
	SourceStats map[jobs.Source]int    `json:"source_stats"`
	Errors      map[jobs.Source]string `json:"errors"`
	ScrapedAt   time.Time              `json:"scraped_at"`
}

// Orchestrator owns one agent per source.
type Orchestrator struct {
	agents     map[jobs.Source]jobs.Agent
	normalizer *normalize.Normalizer
	clock      jobs.Clock
	logger     *zap.Logger
}

// New registers agents by their Source. A later agent for the same source
// replaces an earlier one.
func New(agents []jobs.Agent, clock jobs.Clock, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	byName := make(map[jobs.Source]jobs.Agent, len(agents))
	for _, a := range agents {
		byName[a.Source()] = a
	}
	return &Orchestrator{
		agents:     byName,
		normalizer: normalize.New(clock),
		clock:      clock,
		logger:     logger,
	}
}

// Select resolves caller-supplied names into registered sources. Unknown
// names are dropped, duplicates collapse, and caller order is kept.
func (o *Orchestrator) Select(names []string) []jobs.Source {
	if len(names) == 0 {
		out := make([]jobs.Source, 0, len(jobs.Catalog))
		for _, src := range jobs.Catalog {
			if _, ok := o.agents[src]; ok {
				out = append(out, src)
			}
		}
		return out
	}
	seen := make(map[jobs.Source]struct{}, len(names))
	out := make([]jobs.Source, 0, len(names))
	for _, name := range names {
		src, ok := jobs.ParseSource(name)
		if !ok {
			continue
		}
		if _, registered := o.agents[src]; !registered {
			continue
		}
		if _, dup := seen[src]; dup {
			continue
		}
		seen[src] = struct{}{}
		out = append(out, src)
	}
	return out
}

// ScrapeAll runs every selected agent and merges what they return. It never
// fails: agent errors and panics are recorded per source.
func (o *Orchestrator) ScrapeAll(ctx context.Context, req Request) Result {
	selected := o.Select(req.Sources)
	res := Result{
		Success:     true,
		Keyword:     req.Keyword,
		Location:    req.Location,
		Jobs:        []jobs.Job{},
		SourceStats: make(map[jobs.Source]int, len(selected)),
	}
	failures := map[jobs.Source]string{}

	var mu sync.Mutex
	record := func(src jobs.Source, postings []jobs.RawPosting, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			res.SourceStats[src] = 0
			failures[src] = err.Error()
			return
		}
		for _, raw := range postings {
			res.Jobs = append(res.Jobs, o.normalizer.Normalize(raw, req.Keyword, src))
		}
		res.SourceStats[src] = len(postings)
	}

	logger := o.logger.With(
		zap.String("keyword", req.Keyword),
		zap.String("mode", string(req.Mode)),
		zap.Int("sources", len(selected)),
	)
	start := time.Now()

	ctx, span := telemetry.Tracer("orchestrator").Start(ctx, "orchestrator.ScrapeAll", trace.WithAttributes(
		attribute.String("jobscout.keyword", req.Keyword),
		attribute.String("jobscout.mode", string(req.Mode)),
		attribute.Int("jobscout.sources", len(selected)),
	))
	defer span.End()

	if req.Mode == ModeConcurrent && len(selected) > 1 {
		var g errgroup.Group
		g.SetLimit(len(selected))
		for _, src := range selected {
			g.Go(func() error {
				postings, err := o.runAgent(ctx, src, req)
				record(src, postings, err)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for _, src := range selected {
			postings, err := o.runAgent(ctx, src, req)
			record(src, postings, err)
		}
	}

	if len(failures) > 0 {
		res.Errors = failures
	}
	res.TotalJobs = len(res.Jobs)
	res.ScrapedAt = o.clock.Now().UTC()
	span.SetAttributes(
		attribute.Int("jobscout.total_jobs", res.TotalJobs),
		attribute.Int("jobscout.failed_sources", len(failures)),
	)
	if len(failures) == len(selected) && len(selected) > 0 {
		span.SetStatus(codes.Error, "every source failed")
	}

	logger.Info("fan-out finished",
		zap.Int("total_jobs", res.TotalJobs),
		zap.Int("failed_sources", len(failures)),
		zap.Duration("duration", time.Since(start)),
	)
	return res
}

func (o *Orchestrator) runAgent(ctx context.Context, src jobs.Source, req Request) (postings []jobs.RawPosting, err error) {
	defer func() {
		if r := recover(); r != nil {
			postings = nil
			err = fmt.Errorf("agent panic: %v", r)
			o.logger.Error("agent panicked", zap.String("source", string(src)), zap.Any("panic", r))
		}
	}()
	return o.agents[src].Run(ctx, jobs.SearchRequest{
		Keyword:    req.Keyword,
		Location:   req.Location,
		MaxResults: req.MaxPerSource,
	})
}

var domainKeywords = map[string]string{
	"tech":       "software developer",
	"design":     "designer",
	"business":   "business analyst",
	"hr":         "human resources",
	"security":   "cybersecurity",
	"healthcare": "healthcare",
	"data":       "data scientist",
	"marketing":  "marketing manager",
	"sales":      "sales executive",
}

// DomainKeyword returns the search keyword used for an industry domain.
// Unmapped domains are searched as-is.
func DomainKeyword(domain string) string {
	if kw, ok := domainKeywords[strings.ToLower(strings.TrimSpace(domain))]; ok {
		return kw
	}
	return domain
}

// ScrapeByDomain searches every source for the keyword mapped to domain and
// tags the resulting jobs with it.
func (o *Orchestrator) ScrapeByDomain(
	ctx context.Context,
	domain, location string,
	maxPerSource int,
	mode Mode,
) Result {
	res := o.ScrapeAll(ctx, Request{
		Keyword:      DomainKeyword(domain),
		Location:     location,
		MaxPerSource: maxPerSource,
		Mode:         mode,
	})
	tag := strings.ToLower(strings.TrimSpace(domain))
	if tag == "" {
		return res
	}
	for i := range res.Jobs {
		d := tag
		res.Jobs[i].Domain = &d
	}
	return res
}

package api

import (
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/jobscout/internal/jobs"
	"github.com/JakeFAU/jobscout/internal/orchestrator"
	"github.com/JakeFAU/jobscout/internal/scheduler"
)

type scrapeJobsRequest struct {
	Keyword  string `json:"keyword"`
	Location string `json:"location"`
	MaxJobs  *int   `json:"max_jobs"`
}

type scrapeJobsResponse struct {
	Success   bool       `json:"success"`
	Keyword   string     `json:"keyword"`
	Location  string     `json:"location"`
	JobsCount int        `json:"jobs_count"`
	Jobs      []jobs.Job `json:"jobs"`
}

type scrapeAllRequest struct {
	Keyword          string   `json:"keyword"`
	Location         string   `json:"location"`
	MaxJobsPerSource *int     `json:"max_jobs_per_source"`
	Sources          []string `json:"sources"`
	SaveToDB         *bool    `json:"save_to_db"`
	Parallel         *bool    `json:"parallel"`
}

type scrapeDomainRequest struct {
	Domain           string `json:"domain"`
	Location         string `json:"location"`
	MaxJobsPerSource *int   `json:"max_jobs_per_source"`
	SaveToDB         *bool  `json:"save_to_db"`
	Parallel         *bool  `json:"parallel"`
}

type scrapeDomainResponse struct {
	orchestrator.Result
	Domain   string                    `json:"domain"`
	Database *scheduler.DatabaseResult `json:"database,omitempty"`
}

type backgroundRequest struct {
	Keywords         []string `json:"keywords"`
	MaxJobsPerSource *int     `json:"max_jobs_per_source"`
	Async            bool     `json:"async"`
}

// scrapeJobs handles POST /api/scrape-jobs, a Naukri-only search.
func (s *Server) scrapeJobs(w http.ResponseWriter, r *http.Request) {
	var req scrapeJobsRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	keyword := strings.TrimSpace(req.Keyword)
	if keyword == "" {
		writeError(w, http.StatusBadRequest, "No keyword provided")
		return
	}
	limit := s.cfg.Scrape.MaxJobsLimit
	maxJobs := valueOrDefault(req.MaxJobs, s.cfg.Scrape.MaxJobsDefault)
	if maxJobs < 1 || maxJobs > limit {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("max_jobs must be between 1 and %d", limit))
		return
	}

	res := s.scraper.ScrapeAll(r.Context(), orchestrator.Request{
		Keyword:      keyword,
		Location:     strings.TrimSpace(req.Location),
		MaxPerSource: maxJobs,
		Sources:      []string{string(jobs.SourceNaukri)},
		Mode:         orchestrator.ModeSequential,
	})
	if msg, failed := res.Errors[jobs.SourceNaukri]; failed && len(res.Jobs) == 0 {
		writeError(w, http.StatusBadGateway, "Error scraping jobs: "+msg)
		return
	}
	writeJSON(w, http.StatusOK, scrapeJobsResponse{
		Success:   true,
		Keyword:   res.Keyword,
		Location:  res.Location,
		JobsCount: len(res.Jobs),
		Jobs:      res.Jobs,
	})
}

// scrapeAllSources handles POST /api/scrape-all-sources.
func (s *Server) scrapeAllSources(w http.ResponseWriter, r *http.Request) {
	var req scrapeAllRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	keyword := strings.TrimSpace(req.Keyword)
	if keyword == "" {
		writeError(w, http.StatusBadRequest, "No keyword provided")
		return
	}
	perSource, err := s.perSource(req.MaxJobsPerSource)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Sources) > 0 && !anyKnownSource(req.Sources) {
		writeError(w, http.StatusBadRequest, "sources must include naukri, linkedin or unstop")
		return
	}

	res := s.scraper.ScrapeAll(r.Context(), orchestrator.Request{
		Keyword:      keyword,
		Location:     strings.TrimSpace(req.Location),
		MaxPerSource: perSource,
		Sources:      req.Sources,
		Mode:         orchestrator.ModeFor(valueOrDefault(req.Parallel, s.cfg.Scrape.ParallelDefault)),
	})
	out := scheduler.KeywordResult{Result: res}
	if valueOrDefault(req.SaveToDB, true) && len(res.Jobs) > 0 {
		out.Database = s.sweeper.Save(r.Context(), res.Jobs)
	}
	writeJSON(w, http.StatusOK, out)
}

// scrapeDomain handles POST /api/scrape-domain. Jobs come back tagged with
// the requested domain.
func (s *Server) scrapeDomain(w http.ResponseWriter, r *http.Request) {
	var req scrapeDomainRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	domain := strings.TrimSpace(req.Domain)
	if domain == "" {
		writeError(w, http.StatusBadRequest, "No domain provided")
		return
	}
	perSource, err := s.perSource(req.MaxJobsPerSource)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res := s.scraper.ScrapeByDomain(
		r.Context(),
		domain,
		strings.TrimSpace(req.Location),
		perSource,
		orchestrator.ModeFor(valueOrDefault(req.Parallel, s.cfg.Scrape.ParallelDefault)),
	)
	out := scrapeDomainResponse{Result: res, Domain: strings.ToLower(domain)}
	if valueOrDefault(req.SaveToDB, true) && len(res.Jobs) > 0 {
		out.Database = s.sweeper.Save(r.Context(), res.Jobs)
	}
	writeJSON(w, http.StatusOK, out)
}

// scrapeBackground handles POST /api/scrape-background. With async the sweep
// is queued and 202 is returned; otherwise it runs inline.
func (s *Server) scrapeBackground(w http.ResponseWriter, r *http.Request) {
	var req backgroundRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	perSource := valueOrDefault(req.MaxJobsPerSource, s.cfg.Scheduler.MaxPerSource)
	if perSource < 1 {
		writeError(w, http.StatusBadRequest, "max_jobs_per_source must be at least 1")
		return
	}
	keywords := cleanKeywords(req.Keywords)

	if req.Async {
		n, err := s.sweeper.Submit(r.Context(), keywords, perSource)
		if err != nil {
			s.logger.Warn("background sweep rejected", zap.Error(err))
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{
			"success":        true,
			"message":        "Background scraping started",
			"keywords_count": n,
		})
		return
	}
	writeJSON(w, http.StatusOK, s.sweeper.RunKeywords(r.Context(), keywords, perSource))
}

func (s *Server) perSource(requested *int) (int, error) {
	limit := s.cfg.Scrape.PerSourceLimit
	n := valueOrDefault(requested, s.cfg.Scrape.PerSourceDefault)
	if n < 1 || n > limit {
		return 0, fmt.Errorf("max_jobs_per_source must be between 1 and %d", limit)
	}
	return n, nil
}

func anyKnownSource(names []string) bool {
	for _, name := range names {
		if _, ok := jobs.ParseSource(name); ok {
			return true
		}
	}
	return false
}

func cleanKeywords(in []string) []string {
	out := make([]string, 0, len(in))
	for _, kw := range in {
		if kw = strings.TrimSpace(kw); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}

func valueOrDefault[T any](ptr *T, def T) T {
	if ptr == nil {
		return def
	}
	return *ptr
}

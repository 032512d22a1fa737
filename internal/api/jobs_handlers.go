package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JakeFAU/jobscout/internal/jobs"
	"github.com/JakeFAU/jobscout/internal/store"
)

const (
	defaultSearchLimit = 50
	defaultRecentLimit = 20
	maxQueryLimit      = 500
	queryTimeout       = 5 * time.Second
)

type jobsResponse struct {
	Success bool       `json:"success"`
	Domain  string     `json:"domain,omitempty"`
	Count   int        `json:"count"`
	Jobs    []jobs.Job `json:"jobs"`
}

func listed(found []jobs.Job) jobsResponse {
	if found == nil {
		found = []jobs.Job{}
	}
	return jobsResponse{Success: true, Count: len(found), Jobs: found}
}

// searchJobs handles GET /api/jobs/search?keyword=&location=&domain=&source=&limit=.
func (s *Server) searchJobs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := parseLimit(r, defaultSearchLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	filter := jobs.SearchFilter{
		Keyword:  strings.TrimSpace(q.Get("keyword")),
		Location: strings.TrimSpace(q.Get("location")),
		Domain:   strings.ToLower(strings.TrimSpace(q.Get("domain"))),
		Limit:    limit,
	}
	if raw := strings.TrimSpace(q.Get("source")); raw != "" {
		src, ok := jobs.ParseSource(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown source "+strconv.Quote(raw))
			return
		}
		filter.Source = src
	}

	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()
	found, err := s.gateway.Search(ctx, filter)
	if err != nil {
		s.writeGatewayError(w, "search jobs", err)
		return
	}
	writeJSON(w, http.StatusOK, listed(found))
}

// domainJobs handles GET /api/jobs/domain/{domain}?limit=.
func (s *Server) domainJobs(w http.ResponseWriter, r *http.Request) {
	domain := strings.ToLower(strings.TrimSpace(chi.URLParam(r, "domain")))
	limit, err := parseLimit(r, defaultSearchLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()
	found, err := s.gateway.Search(ctx, jobs.SearchFilter{Domain: domain, Limit: limit})
	if err != nil {
		s.writeGatewayError(w, "jobs by domain", err)
		return
	}
	resp := listed(found)
	resp.Domain = domain
	writeJSON(w, http.StatusOK, resp)
}

// recentJobs handles GET /api/jobs/recent?limit=.
func (s *Server) recentJobs(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, defaultRecentLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()
	found, err := s.gateway.ListRecent(ctx, limit)
	if err != nil {
		s.writeGatewayError(w, "recent jobs", err)
		return
	}
	writeJSON(w, http.StatusOK, listed(found))
}

// jobStats handles GET /api/jobs/stats.
func (s *Server) jobStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()
	stats, err := store.Stats(ctx, s.gateway)
	if err != nil {
		s.writeGatewayError(w, "job stats", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "stats": stats})
}

// getJob handles GET /api/jobs/{id}. Unknown ids return 404.
func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()
	job, err := s.gateway.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, jobs.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		s.writeGatewayError(w, "get job", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "job": job})
}

type pruneRequest struct {
	Days *int `json:"days"`
}

// pruneJobs handles POST /api/jobs/prune. Days defaults to the configured retention.
func (s *Server) pruneJobs(w http.ResponseWriter, r *http.Request) {
	var req pruneRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	days := s.cfg.Scheduler.RetentionDays
	if req.Days != nil {
		if *req.Days < 1 {
			writeError(w, http.StatusBadRequest, "days must be at least 1")
			return
		}
		days = *req.Days
	}
	n, err := s.sweeper.Prune(r.Context(), days)
	if err != nil {
		s.writeGatewayError(w, "prune jobs", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"days":        days,
		"deactivated": n,
	})
}

func parseLimit(r *http.Request, def int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, nil
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val <= 0 {
		return 0, errors.New("invalid limit")
	}
	return min(val, maxQueryLimit), nil
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobscout/internal/config"
	"github.com/JakeFAU/jobscout/internal/jobs"
	"github.com/JakeFAU/jobscout/internal/metrics"
	"github.com/JakeFAU/jobscout/internal/orchestrator"
	"github.com/JakeFAU/jobscout/internal/scheduler"
)

const maxBodyBytes = 1 << 20

// Scraper runs the source agents for a request.
type Scraper interface {
	ScrapeAll(ctx context.Context, req orchestrator.Request) orchestrator.Result
	ScrapeByDomain(ctx context.Context, domain, location string, maxPerSource int, mode orchestrator.Mode) orchestrator.Result
}

// Sweeper drives keyword sweeps and persistence.
type Sweeper interface {
	RunKeywords(ctx context.Context, keywords []string, maxPerSource int) scheduler.Summary
	Submit(ctx context.Context, keywords []string, maxPerSource int) (int, error)
	Prune(ctx context.Context, days int) (int64, error)
	Save(ctx context.Context, batch []jobs.Job) *scheduler.DatabaseResult
}

// Server wires HTTP handlers to the orchestrator, scheduler and gateway.
type Server struct {
	router  chi.Router
	scraper Scraper
	sweeper Sweeper
	gateway jobs.Gateway
	cfg     config.Config
	logger  *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	scraper Scraper,
	sweeper Sweeper,
	gateway jobs.Gateway,
	cfg config.Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		scraper: scraper,
		sweeper: sweeper,
		gateway: gateway,
		cfg:     cfg,
		logger:  logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metrics.Middleware)

	bounded := func(next http.Handler) http.Handler { return next }
	if d := cfg.RequestTimeout(); d > 0 {
		bounded = timeoutMiddleware(d)
	}

	r.Group(func(r chi.Router) {
		r.Use(bounded)
		r.Get("/healthz", s.healthz)
		r.Get("/api/health", s.healthz)
		r.Get("/readyz", s.readyz)
		r.Method(http.MethodGet, "/metrics", metrics.Handler())
	})

	r.Group(func(r chi.Router) {
		if cfg.Auth.Enabled {
			r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
		}
		// Scrapes and inline sweeps hold the request until every agent has
		// finished, which can take far longer than the request timeout.
		r.Post("/api/scrape-jobs", s.scrapeJobs)
		r.Post("/api/scrape-all-sources", s.scrapeAllSources)
		r.Post("/api/scrape-domain", s.scrapeDomain)
		r.Post("/api/scrape-background", s.scrapeBackground)

		r.Group(func(r chi.Router) {
			r.Use(bounded)
			r.Route("/api/jobs", func(r chi.Router) {
				r.Get("/search", s.searchJobs)
				r.Get("/recent", s.recentJobs)
				r.Get("/stats", s.jobStats)
				r.Get("/domain/{domain}", s.domainJobs)
				r.Post("/prune", s.pruneJobs)
				r.Get("/{id}", s.getJob)
			})
		})
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readyz checks the gateway; an unconfigured backend reports 503.
func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()
	if _, err := s.gateway.CountBySource(ctx); err != nil {
		s.logger.Warn("readiness check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// writeGatewayError maps persistence failures onto 503 or 500.
func (s *Server) writeGatewayError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, jobs.ErrGatewayUnavailable) {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	s.logger.Error(op+" failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, fmt.Sprintf("%s: %v", op, err))
}

// decodeBody reads a JSON body into dst. An empty body leaves dst untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

type requestIDKey struct{}

// RequestID returns the id assigned to the request by the server middleware.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request completed",
				zap.String("request_id", RequestID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered",
						zap.String("request_id", RequestID(r.Context())),
						zap.Any("panic", rec),
					)
					writeError(w, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, `{"error":"request timed out"}`)
	}
}

func apiKeyMiddleware(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				key = r.URL.Query().Get("api_key")
			}
			if key != expected {
				writeError(w, http.StatusForbidden, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

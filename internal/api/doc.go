// Package api hosts the HTTP server, middleware, and REST handlers. Notable
// routes:
//   - GET /healthz, /api/health and /readyz for health checks.
//   - GET /metrics for Prometheus scraping.
//   - POST /api/scrape-* to run the source agents on demand or in the background.
//   - GET /api/jobs/... to query persisted postings.
package api

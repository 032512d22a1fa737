package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
server:
  port: 9090
auth:
  enabled: true
  api_key: secret
logging:
  development: false
  level: warn
browser:
  mode: static
  nav_timeout_seconds: 20
  max_parallel: 1
sources:
  linkedin:
    settle_seconds: 0.5
    scroll_count: 1
    scroll_wait_seconds: 0.25
  unstop:
    category: internships
scrape:
  max_jobs_default: 5
  max_jobs_limit: 10
scheduler:
  keywords: ["go developer", "sre"]
  workers: 2
db:
  driver: sqlite
  dsn: /tmp/jobs.db
cache:
  redis_url: redis://localhost:6379/0
  ttl_minutes: 10
snapshots:
  provider: gcs
  gcs_bucket: pages
pubsub:
  project_id: jobscout-prod
  topic_name: sweeps
telemetry:
  project_id: jobscout-prod
  sample_ratio: 0.25
`
	require.NoError(t, os.WriteFile(path, []byte(configYAML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.True(t, cfg.Auth.Enabled)
	require.Equal(t, "secret", cfg.Auth.APIKey)
	require.False(t, cfg.Logging.Development)
	require.Equal(t, "warn", cfg.Logging.Level)
	require.Equal(t, "static", cfg.Browser.Mode)
	require.Equal(t, 20*time.Second, cfg.NavTimeout())

	require.Equal(t, 500*time.Millisecond, cfg.Sources.LinkedIn.Settle())
	require.Equal(t, 250*time.Millisecond, cfg.Sources.LinkedIn.ScrollWait())
	require.Equal(t, 1, cfg.Sources.LinkedIn.ScrollCount)
	require.Equal(t, 10*time.Second, cfg.Sources.Naukri.Settle())
	require.Equal(t, "internships", cfg.Sources.Unstop.Category)

	require.Equal(t, 5, cfg.Scrape.MaxJobsDefault)
	require.Equal(t, 50, cfg.Scrape.PerSourceLimit)
	require.Equal(t, []string{"go developer", "sre"}, cfg.Scheduler.Keywords)
	require.Equal(t, 2, cfg.Scheduler.Workers)
	require.Equal(t, "sqlite", cfg.DB.Driver)
	require.Equal(t, 10*time.Minute, cfg.CacheTTL())
	require.Equal(t, "pages", cfg.Snapshots.GCSBucket)
	require.True(t, cfg.PubSub.Enabled())
	require.Equal(t, "sweeps", cfg.PubSub.TopicName)
	require.Equal(t, "jobscout-prod", cfg.Telemetry.ProjectID)
	require.InDelta(t, 0.25, cfg.Telemetry.SampleRatio, 1e-9)
	require.Equal(t, "jobscout", cfg.Telemetry.ServiceName)
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, 5*time.Minute, cfg.RequestTimeout())
	require.True(t, cfg.Logging.Development)
	require.Equal(t, "headless", cfg.Browser.Mode)
	require.Equal(t, 45*time.Second, cfg.NavTimeout())
	require.Equal(t, 3, cfg.Sources.Unstop.ScrollCount)
	require.Equal(t, 2*time.Second, cfg.Sources.Unstop.ScrollWait())
	require.Equal(t, "jobs", cfg.Sources.Unstop.Category)
	require.True(t, cfg.RateLimit.Enabled)
	require.Equal(t, 20, cfg.Scrape.MaxJobsDefault)
	require.Equal(t, 100, cfg.Scrape.MaxJobsLimit)
	require.Equal(t, 10, cfg.Scrape.PerSourceDefault)
	require.Equal(t, 5, cfg.Scheduler.MaxPerSource)
	require.Equal(t, 16, cfg.Scheduler.QueueDepth)
	require.Equal(t, 5*time.Second, cfg.EnqueueTimeout())
	require.Equal(t, 30, cfg.Scheduler.RetentionDays)
	require.Equal(t, "memory", cfg.DB.Driver)
	require.Equal(t, 30*time.Minute, cfg.ConnLifetime())
	require.Equal(t, "none", cfg.Snapshots.Provider)
	require.Empty(t, cfg.Cache.RedisURL)
	require.False(t, cfg.PubSub.Enabled())
	require.Equal(t, "jobscout", cfg.Telemetry.ServiceName)
	require.Empty(t, cfg.Telemetry.ProjectID)
	require.InDelta(t, 1.0, cfg.Telemetry.SampleRatio, 1e-9)
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorContains(t, err, "read config")
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Parallel()

	base, err := Load("")
	require.NoError(t, err)

	cases := map[string]func(*Config){
		"port":        func(c *Config) { c.Server.Port = 0 },
		"auth":        func(c *Config) { c.Auth.Enabled = true },
		"mode":        func(c *Config) { c.Browser.Mode = "firefox" },
		"timing":      func(c *Config) { c.Sources.Naukri.SettleSeconds = -1 },
		"category":    func(c *Config) { c.Sources.Unstop.Category = "hackathons" },
		"max jobs":    func(c *Config) { c.Scrape.MaxJobsDefault = 500 },
		"per source":  func(c *Config) { c.Scrape.PerSourceLimit = 0 },
		"workers":     func(c *Config) { c.Scheduler.Workers = 0 },
		"driver":      func(c *Config) { c.DB.Driver = "mysql" },
		"cache ttl":   func(c *Config) { c.Cache.RedisURL = "redis://x"; c.Cache.TTLMinutes = 0 },
		"snapshots":   func(c *Config) { c.Snapshots.Provider = "s3" },
		"gcs bucket":  func(c *Config) { c.Snapshots.Provider = "gcs" },
		"local dir":   func(c *Config) { c.Snapshots.Provider = "local"; c.Snapshots.Dir = "" },
		"retention":   func(c *Config) { c.Scheduler.RetentionDays = 0 },
		"queue depth": func(c *Config) { c.Scheduler.QueueDepth = 0 },
		"pubsub":      func(c *Config) { c.PubSub.TopicName = "sweeps" },
		"service":     func(c *Config) { c.Telemetry.ServiceName = "" },
		"sample":      func(c *Config) { c.Telemetry.SampleRatio = 1.5 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestValidateAllowsMissingDSN(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	require.NoError(t, err)
	cfg.DB.Driver = "postgres"
	cfg.DB.DSN = ""
	require.NoError(t, cfg.Validate())
}

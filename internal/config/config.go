// Package config loads and validates jobscout configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. JOBSCOUT_DB_DSN.
const EnvPrefix = "JOBSCOUT"

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Browser   BrowserConfig   `mapstructure:"browser"`
	Sources   SourcesConfig   `mapstructure:"sources"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Scrape    ScrapeConfig    `mapstructure:"scrape"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	DB        DBConfig        `mapstructure:"db"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Snapshots SnapshotConfig  `mapstructure:"snapshots"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port                  int `mapstructure:"port"`
	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// BrowserConfig configures the rendering sessions.
type BrowserConfig struct {
	// Mode is "headless" (chromedp) or "static" (plain HTTP via colly).
	Mode          string `mapstructure:"mode"`
	UserAgent     string `mapstructure:"user_agent"`
	NavTimeoutSec int    `mapstructure:"nav_timeout_seconds"`
	MaxParallel   int    `mapstructure:"max_parallel"`
	ExecPath      string `mapstructure:"exec_path"`
}

// SourcesConfig holds per-source page timing.
type SourcesConfig struct {
	Naukri   SourceConfig `mapstructure:"naukri"`
	LinkedIn SourceConfig `mapstructure:"linkedin"`
	Unstop   SourceConfig `mapstructure:"unstop"`
}

// SourceConfig sets the waits applied after navigation.
type SourceConfig struct {
	SettleSeconds     float64 `mapstructure:"settle_seconds"`
	ScrollCount       int     `mapstructure:"scroll_count"`
	ScrollWaitSeconds float64 `mapstructure:"scroll_wait_seconds"`
	// Category applies to Unstop only: jobs, internships or competitions.
	Category string `mapstructure:"category"`
}

// Settle converts SettleSeconds to a duration.
func (s SourceConfig) Settle() time.Duration {
	return seconds(s.SettleSeconds)
}

// ScrollWait converts ScrollWaitSeconds to a duration.
func (s SourceConfig) ScrollWait() time.Duration {
	return seconds(s.ScrollWaitSeconds)
}

// RateLimitConfig spaces navigations to the same host.
type RateLimitConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	DefaultRPS   float64 `mapstructure:"default_rps"`
	DefaultBurst int     `mapstructure:"default_burst"`
}

// ScrapeConfig bounds on-demand scrape requests.
type ScrapeConfig struct {
	MaxJobsDefault   int  `mapstructure:"max_jobs_default"`
	MaxJobsLimit     int  `mapstructure:"max_jobs_limit"`
	PerSourceDefault int  `mapstructure:"per_source_default"`
	PerSourceLimit   int  `mapstructure:"per_source_limit"`
	ParallelDefault  bool `mapstructure:"parallel_default"`
}

// SchedulerConfig controls background sweeps.
type SchedulerConfig struct {
	// Keywords overrides the built-in catalog when non-empty.
	Keywords              []string `mapstructure:"keywords"`
	MaxPerSource          int      `mapstructure:"max_per_source"`
	Workers               int      `mapstructure:"workers"`
	QueueDepth            int      `mapstructure:"queue_depth"`
	EnqueueTimeoutSeconds int      `mapstructure:"enqueue_timeout_seconds"`
	RetentionDays         int      `mapstructure:"retention_days"`
}

// DBConfig selects and tunes the persistence backend.
type DBConfig struct {
	// Driver is postgres, sqlite or memory.
	Driver                 string `mapstructure:"driver"`
	DSN                    string `mapstructure:"dsn"`
	Table                  string `mapstructure:"table"`
	MaxConns               int32  `mapstructure:"max_conns"`
	MinConns               int32  `mapstructure:"min_conns"`
	MaxConnLifetimeSeconds int    `mapstructure:"max_conn_lifetime_seconds"`
}

// CacheConfig enables the Redis result cache when RedisURL is set.
type CacheConfig struct {
	RedisURL   string `mapstructure:"redis_url"`
	TTLMinutes int    `mapstructure:"ttl_minutes"`
}

// SnapshotConfig selects where rendered pages are archived.
type SnapshotConfig struct {
	// Provider is none, local or gcs.
	Provider  string `mapstructure:"provider"`
	Dir       string `mapstructure:"dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// PubSubConfig enables per-keyword sweep notifications when both fields are set.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// Enabled reports whether sweep notifications should be published.
func (p PubSubConfig) Enabled() bool {
	return p.ProjectID != "" && p.TopicName != ""
}

// TelemetryConfig controls tracing. Spans go to Cloud Trace only when
// ProjectID is set.
type TelemetryConfig struct {
	ServiceName string  `mapstructure:"service_name"`
	Version     string  `mapstructure:"version"`
	ProjectID   string  `mapstructure:"project_id"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout_seconds", 300)
	v.SetDefault("auth.enabled", false)
	v.SetDefault("logging.development", true)
	v.SetDefault("browser.mode", "headless")
	v.SetDefault("browser.user_agent",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	v.SetDefault("browser.nav_timeout_seconds", 45)
	v.SetDefault("browser.max_parallel", 3)
	v.SetDefault("sources.naukri.settle_seconds", 10)
	v.SetDefault("sources.naukri.scroll_count", 0)
	v.SetDefault("sources.naukri.scroll_wait_seconds", 0)
	v.SetDefault("sources.linkedin.settle_seconds", 5)
	v.SetDefault("sources.linkedin.scroll_count", 3)
	v.SetDefault("sources.linkedin.scroll_wait_seconds", 2)
	v.SetDefault("sources.unstop.settle_seconds", 8)
	v.SetDefault("sources.unstop.scroll_count", 3)
	v.SetDefault("sources.unstop.scroll_wait_seconds", 2)
	v.SetDefault("sources.unstop.category", "jobs")
	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.default_rps", 0.5)
	v.SetDefault("ratelimit.default_burst", 1)
	v.SetDefault("scrape.max_jobs_default", 20)
	v.SetDefault("scrape.max_jobs_limit", 100)
	v.SetDefault("scrape.per_source_default", 10)
	v.SetDefault("scrape.per_source_limit", 50)
	v.SetDefault("scrape.parallel_default", false)
	v.SetDefault("scheduler.max_per_source", 5)
	v.SetDefault("scheduler.workers", 1)
	v.SetDefault("scheduler.queue_depth", 16)
	v.SetDefault("scheduler.enqueue_timeout_seconds", 5)
	v.SetDefault("scheduler.retention_days", 30)
	v.SetDefault("db.driver", "memory")
	v.SetDefault("db.table", "jobs")
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("db.min_conns", 0)
	v.SetDefault("db.max_conn_lifetime_seconds", 1800)
	v.SetDefault("cache.ttl_minutes", 30)
	v.SetDefault("snapshots.provider", "none")
	v.SetDefault("snapshots.dir", "snapshots")
	v.SetDefault("snapshots.prefix", "pages")
	v.SetDefault("telemetry.service_name", "jobscout")
	v.SetDefault("telemetry.version", "dev")
	v.SetDefault("telemetry.sample_ratio", 1.0)
}

// Validate enforces required values and reasonable limits. A missing DSN is
// not an error: the service starts with an unavailable gateway instead.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	switch c.Browser.Mode {
	case "headless", "static":
	default:
		return fmt.Errorf("browser.mode must be headless or static, got %q", c.Browser.Mode)
	}
	if c.Browser.NavTimeoutSec <= 0 {
		return fmt.Errorf("browser.nav_timeout_seconds must be > 0")
	}
	if c.Browser.MaxParallel < 0 {
		return fmt.Errorf("browser.max_parallel must be >= 0")
	}
	for name, src := range map[string]SourceConfig{
		"naukri":   c.Sources.Naukri,
		"linkedin": c.Sources.LinkedIn,
		"unstop":   c.Sources.Unstop,
	} {
		if src.SettleSeconds < 0 || src.ScrollCount < 0 || src.ScrollWaitSeconds < 0 {
			return fmt.Errorf("sources.%s timings must be >= 0", name)
		}
	}
	switch c.Sources.Unstop.Category {
	case "", "jobs", "internships", "competitions":
	default:
		return fmt.Errorf("sources.unstop.category must be jobs, internships or competitions")
	}
	if err := checkBounds("scrape.max_jobs", c.Scrape.MaxJobsDefault, c.Scrape.MaxJobsLimit); err != nil {
		return err
	}
	if err := checkBounds("scrape.per_source", c.Scrape.PerSourceDefault, c.Scrape.PerSourceLimit); err != nil {
		return err
	}
	if c.Scheduler.Workers <= 0 {
		return fmt.Errorf("scheduler.workers must be > 0")
	}
	if c.Scheduler.QueueDepth <= 0 {
		return fmt.Errorf("scheduler.queue_depth must be > 0")
	}
	if c.Scheduler.MaxPerSource <= 0 {
		return fmt.Errorf("scheduler.max_per_source must be > 0")
	}
	if c.Scheduler.RetentionDays <= 0 {
		return fmt.Errorf("scheduler.retention_days must be > 0")
	}
	switch c.DB.Driver {
	case "postgres", "sqlite", "memory":
	default:
		return fmt.Errorf("db.driver must be postgres, sqlite or memory, got %q", c.DB.Driver)
	}
	if c.Cache.RedisURL != "" && c.Cache.TTLMinutes <= 0 {
		return fmt.Errorf("cache.ttl_minutes must be > 0 when cache.redis_url is set")
	}
	switch c.Snapshots.Provider {
	case "", "none":
	case "local":
		if c.Snapshots.Dir == "" {
			return fmt.Errorf("snapshots.dir is required for the local provider")
		}
	case "gcs":
		if c.Snapshots.GCSBucket == "" {
			return fmt.Errorf("snapshots.gcs_bucket is required for the gcs provider")
		}
	default:
		return fmt.Errorf("snapshots.provider must be none, local or gcs, got %q", c.Snapshots.Provider)
	}
	if (c.PubSub.ProjectID == "") != (c.PubSub.TopicName == "") {
		return fmt.Errorf("pubsub.project_id and pubsub.topic_name must be set together")
	}
	if c.Telemetry.ServiceName == "" {
		return fmt.Errorf("telemetry.service_name is required")
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry.sample_ratio must be between 0 and 1")
	}
	return nil
}

func checkBounds(key string, def, limit int) error {
	if limit <= 0 {
		return fmt.Errorf("%s_limit must be > 0", key)
	}
	if def <= 0 || def > limit {
		return fmt.Errorf("%s_default must be between 1 and %s_limit", key, key)
	}
	return nil
}

// NavTimeout returns the browser navigation timeout.
func (c Config) NavTimeout() time.Duration {
	return time.Duration(c.Browser.NavTimeoutSec) * time.Second
}

// RequestTimeout bounds health and data API requests. Scrape routes are
// exempt and run until their agents finish.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSeconds) * time.Second
}

// EnqueueTimeout bounds how long a background submit waits on a full queue.
func (c Config) EnqueueTimeout() time.Duration {
	return time.Duration(c.Scheduler.EnqueueTimeoutSeconds) * time.Second
}

// CacheTTL returns the result cache lifetime.
func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLMinutes) * time.Minute
}

// ConnLifetime returns the postgres connection lifetime.
func (c Config) ConnLifetime() time.Duration {
	return time.Duration(c.DB.MaxConnLifetimeSeconds) * time.Second
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

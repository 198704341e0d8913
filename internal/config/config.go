// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	DB       DBConfig       `mapstructure:"db"`
	Fetch    FetchConfig    `mapstructure:"fetch"`
	Headless HeadlessConfig `mapstructure:"headless"`
	Ingest   IngestConfig   `mapstructure:"ingest"`
	Archive  ArchiveConfig  `mapstructure:"archive"`
	Events   EventsConfig   `mapstructure:"events"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port           int `mapstructure:"port"`
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// DBConfig controls access to the relational database. An empty DSN runs
// the service against the in-memory store.
type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// FetchConfig governs the HTML fetcher and per-domain pacing.
type FetchConfig struct {
	UserAgent      string        `mapstructure:"user_agent"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	DomainRPS      float64       `mapstructure:"domain_rps"`
	DomainBurst    int           `mapstructure:"domain_burst"`
	ChapterDelay   time.Duration `mapstructure:"chapter_delay"`
}

// HeadlessConfig configures the optional chromedp rendering path used for
// sites that build their chapter list with JavaScript.
type HeadlessConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	MaxParallel    int           `mapstructure:"max_parallel"`
	NavTimeout     time.Duration `mapstructure:"nav_timeout"`
	MinHTMLBytes   int           `mapstructure:"min_html_bytes"`
	ShellKeywords  []string      `mapstructure:"shell_keywords"`
	ContentMustSel []string      `mapstructure:"content_must_selectors"`
}

// IngestConfig governs the orchestrator.
type IngestConfig struct {
	PollInterval     time.Duration `mapstructure:"poll_interval"`
	BatchSize        int           `mapstructure:"batch_size"`
	FetchRetries     int           `mapstructure:"fetch_retries"`
	MinContentLength int           `mapstructure:"min_content_length"`
	AllowedDomains   []string      `mapstructure:"allowed_domains"`
}

// ArchiveConfig selects where raw landing-page HTML is archived.
// Backend is one of "none", "memory", "local", "gcs".
type ArchiveConfig struct {
	Backend   string `mapstructure:"backend"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	LocalDir  string `mapstructure:"local_dir"`
	Prefix    string `mapstructure:"prefix"`
}

// EventsConfig configures the ingest-completion publisher.
type EventsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	ProjectID string `mapstructure:"project_id"`
	TopicID   string `mapstructure:"topic_id"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("NOVELFORGE")
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
	v.SetDefault("server.timeout_seconds", 60)

	v.SetDefault("fetch.user_agent", "novelforge/1.0 (+https://github.com/quillworks/novelforge)")
	v.SetDefault("fetch.request_timeout", "15s")
	v.SetDefault("fetch.domain_rps", 2.0)
	v.SetDefault("fetch.domain_burst", 1)
	v.SetDefault("fetch.chapter_delay", "100ms")

	v.SetDefault("headless.enabled", false)
	v.SetDefault("headless.max_parallel", 1)
	v.SetDefault("headless.nav_timeout", "20s")
	v.SetDefault("headless.min_html_bytes", 2000)
	v.SetDefault("headless.shell_keywords", []string{
		"__NEXT_DATA__",
		"data-reactroot",
		"window.__NUXT__",
	})

	v.SetDefault("ingest.poll_interval", "30s")
	v.SetDefault("ingest.batch_size", 10)
	v.SetDefault("ingest.fetch_retries", 2)
	v.SetDefault("ingest.min_content_length", 50)
	v.SetDefault("ingest.allowed_domains", []string{
		"twkan.com",
		"piaotia.com",
		"ixdzs",
	})

	v.SetDefault("archive.backend", "none")
	v.SetDefault("archive.prefix", "pages")
	v.SetDefault("archive.local_dir", "data/archive")

	v.SetDefault("events.enabled", false)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Fetch.RequestTimeout <= 0 {
		return fmt.Errorf("fetch.request_timeout must be > 0")
	}
	if c.Ingest.BatchSize <= 0 {
		return fmt.Errorf("ingest.batch_size must be > 0")
	}
	if c.Ingest.MinContentLength < 0 {
		return fmt.Errorf("ingest.min_content_length must be >= 0")
	}
	if c.Headless.Enabled && c.Headless.MaxParallel <= 0 {
		return fmt.Errorf("headless.max_parallel must be > 0 when headless is enabled")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	switch c.Archive.Backend {
	case "", "none", "memory", "local":
	case "gcs":
		if c.Archive.GCSBucket == "" {
			return fmt.Errorf("archive.gcs_bucket must be set for the gcs backend")
		}
	default:
		return fmt.Errorf("archive.backend %q is not one of none, memory, local, gcs", c.Archive.Backend)
	}
	if c.Events.Enabled && (c.Events.ProjectID == "" || c.Events.TopicID == "") {
		return fmt.Errorf("events.project_id and events.topic_id must be set when events are enabled")
	}
	return nil
}

// Package config provides configuration management for the pipeline stages.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"councilreader/pkg/utils"
)

// APIKeyEnv names the environment variable holding the summarization API key.
const APIKeyEnv = "ANTHROPIC_API_KEY"

// Configuration validation errors.
var (
	ErrMissingBaseURL           = errors.New("portal.base_url is required")
	ErrInvalidBaseURL           = errors.New("portal.base_url must be an absolute http(s) URL")
	ErrInvalidTimezone          = errors.New("portal.timezone is not a known location")
	ErrInvalidLimit             = errors.New("crawler.limit must be at least 1")
	ErrInvalidPoliteDelay       = errors.New("crawler.polite_delay_ms must be non-negative")
	ErrInvalidMaxAttempts       = errors.New("retry.max_attempts must be at least 1")
	ErrInvalidInitialDelay      = errors.New("retry.initial_delay_ms must be non-negative")
	ErrInvalidBackoffMultiplier = errors.New("retry.backoff_multiplier must be >= 1.0")
	ErrInvalidTimeout           = errors.New("retry.timeout_sec must be at least 1")
	ErrMissingModel             = errors.New("summarizer.model is required")
	ErrInvalidMaxTokens         = errors.New("summarizer.max_tokens must be at least 1")
	ErrInvalidStage             = errors.New("summarizer.stage must be 1, 2 or 3")
	ErrInvalidKeyPolicy         = errors.New("aggregation.key_policy must be 'exact' or 'base'")
	ErrMissingOutputPath        = errors.New("output.base_path is required")
	ErrMissingSitePath          = errors.New("output.site_path is required")
	ErrInvalidLogLevel          = errors.New("logging.level must be one of: debug, info, warn, error")
	ErrInvalidLogFormat         = errors.New("logging.format must be 'text' or 'json'")
	ErrInvalidCron              = errors.New("schedule.cron is not a valid cron expression")
	ErrMissingAPIKey            = errors.New(APIKeyEnv + " is not set")
)

// Config represents the complete pipeline configuration.
type Config struct {
	Portal      PortalConfig      `yaml:"portal"`
	Crawler     CrawlerConfig     `yaml:"crawler"`
	Retry       RetryPolicy       `yaml:"retry"`
	Summarizer  SummarizerConfig  `yaml:"summarizer"`
	Aggregation AggregationConfig `yaml:"aggregation"`
	Filter      FilterConfig      `yaml:"filter"`
	Output      OutputConfig      `yaml:"output"`
	Logging     LoggingConfig     `yaml:"logging"`
	Schedule    ScheduleConfig    `yaml:"schedule"`
	Site        SiteConfig        `yaml:"site"`
}

// PortalConfig describes the meeting portal.
type PortalConfig struct {
	BaseURL   string `yaml:"base_url"`
	Timezone  string `yaml:"timezone"`
	UserAgent string `yaml:"user_agent"`
}

// CrawlerConfig contains fetch-stage settings.
type CrawlerConfig struct {
	TargetMeetings []string `yaml:"target_meetings"`
	Limit          int      `yaml:"limit"`
	CommitteeID    int      `yaml:"committee_id"`
	PoliteDelayMs  int      `yaml:"polite_delay_ms"`
	BufferSizeKb   int      `yaml:"buffer_size_kb"`
	RequireVideo   bool     `yaml:"require_video"`
	Force          bool     `yaml:"force"`
}

// RetryPolicy defines retry behavior.
type RetryPolicy struct {
	MaxAttempts       int     `yaml:"max_attempts"`
	InitialDelayMs    int     `yaml:"initial_delay_ms"`
	MaxDelayMs        int     `yaml:"max_delay_ms"`
	BackoffMultiplier float64 `yaml:"backoff_multiplier"`
	TimeoutSec        int     `yaml:"timeout_sec"`
}

// SummarizerConfig contains summarization settings.
type SummarizerConfig struct {
	Model        string      `yaml:"model"`
	VideoModel   string      `yaml:"video_model"`
	RateLimit    RetryPolicy `yaml:"rate_limit"`
	MaxTokens    int         `yaml:"max_tokens"`
	MaxPDFPages  int         `yaml:"max_pdf_pages"`
	Stage        int         `yaml:"stage"`
	SampleSize   int         `yaml:"sample_size"`
	Seed         int64       `yaml:"seed"`
	DelayMs      int         `yaml:"delay_ms"`
	VideoDelayMs int         `yaml:"video_delay_ms"`
}

// AggregationConfig controls council file grouping.
type AggregationConfig struct {
	KeyPolicy     string `yaml:"key_policy"`
	TitleMaxWidth int    `yaml:"title_max_width"`
}

// FilterConfig extends the attachment deny-list.
type FilterConfig struct {
	ExtraDeny []string `yaml:"extra_deny"`
}

// OutputConfig defines where records and pages are written.
type OutputConfig struct {
	BasePath    string `yaml:"base_path"`
	SitePath    string `yaml:"site_path"`
	LedgerPath  string `yaml:"ledger_path"`
	PrettyPrint bool   `yaml:"pretty_print"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ScheduleConfig drives the worker's schedule mode.
type ScheduleConfig struct {
	Cron     string `yaml:"cron"`
	Timezone string `yaml:"timezone"`
}

// SiteConfig holds values rendered into generated pages.
type SiteConfig struct {
	SiteURL         string `yaml:"site_url"`
	AnalyticsDomain string `yaml:"analytics_domain"`
	PreviewAddr     string `yaml:"preview_addr"`
}

// Default returns the configuration used when a key is absent from the file.
func Default() *Config {
	return &Config{
		Portal: PortalConfig{
			BaseURL:   "https://lacity.primegov.com",
			Timezone:  "America/Los_Angeles",
			UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36",
		},
		Crawler: CrawlerConfig{
			Limit:         20,
			PoliteDelayMs: 1000,
			BufferSizeKb:  32768,
		},
		Retry: RetryPolicy{
			MaxAttempts:       3,
			InitialDelayMs:    1000,
			MaxDelayMs:        30000,
			BackoffMultiplier: 2.0,
			TimeoutSec:        30,
		},
		Summarizer: SummarizerConfig{
			Model:       "claude-haiku-4-5-20251001",
			VideoModel:  "claude-sonnet-4-20250514",
			MaxTokens:   1024,
			MaxPDFPages: 100,
			Stage:       1,
			SampleSize:  50,
			Seed:        42,
			DelayMs:     2000,
			RateLimit: RetryPolicy{
				MaxAttempts:       3,
				InitialDelayMs:    60000,
				BackoffMultiplier: 2.0,
			},
			VideoDelayMs: 120000,
		},
		Aggregation: AggregationConfig{
			KeyPolicy:     "exact",
			TitleMaxWidth: 200,
		},
		Output: OutputConfig{
			BasePath:    "data",
			SitePath:    "site",
			PrettyPrint: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Schedule: ScheduleConfig{
			Cron:     "0 6 * * *",
			Timezone: "America/Los_Angeles",
		},
		Site: SiteConfig{
			PreviewAddr: "127.0.0.1:8080",
		},
	}
}

// LoadConfig loads configuration from YAML file on top of Default.
func LoadConfig(filepath string) (*Config, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// DefaultPath is where the commands look for a config file when none is given.
const DefaultPath = "configs/pipeline.yaml"

// LoadOrDefault loads path. An empty path falls back to DefaultPath when
// that file exists, and to Default otherwise. The returned string names the
// file actually loaded, or "" for the defaults.
func LoadOrDefault(path string) (*Config, string, error) {
	if path == "" {
		if _, err := os.Stat(DefaultPath); err != nil {
			return Default(), "", nil
		}

		path = DefaultPath
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, path, err
	}

	return cfg, path, nil
}

// SaveConfig saves configuration to YAML file.
func (c *Config) SaveConfig(filepath string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filepath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Portal.BaseURL == "" {
		return ErrMissingBaseURL
	}

	if !utils.NewHTTPHelper(c.Portal.UserAgent).IsValidURL(c.Portal.BaseURL) {
		return ErrInvalidBaseURL
	}

	if _, err := time.LoadLocation(c.Portal.Timezone); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidTimezone, c.Portal.Timezone)
	}

	if c.Crawler.Limit < 1 {
		return ErrInvalidLimit
	}

	if c.Crawler.PoliteDelayMs < 0 {
		return ErrInvalidPoliteDelay
	}

	if err := c.Retry.validate("retry"); err != nil {
		return err
	}

	if c.Retry.TimeoutSec < 1 {
		return ErrInvalidTimeout
	}

	if c.Summarizer.Model == "" {
		return ErrMissingModel
	}

	if c.Summarizer.MaxTokens < 1 {
		return ErrInvalidMaxTokens
	}

	if c.Summarizer.Stage < 1 || c.Summarizer.Stage > 3 {
		return ErrInvalidStage
	}

	if err := c.Summarizer.RateLimit.validate("summarizer.rate_limit"); err != nil {
		return err
	}

	if c.Aggregation.KeyPolicy != "exact" && c.Aggregation.KeyPolicy != "base" {
		return ErrInvalidKeyPolicy
	}

	if c.Output.BasePath == "" {
		return ErrMissingOutputPath
	}

	if c.Output.SitePath == "" {
		return ErrMissingSitePath
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return ErrInvalidLogLevel
	}

	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return ErrInvalidLogFormat
	}

	if c.Schedule.Cron != "" {
		if _, err := cron.ParseStandard(c.Schedule.Cron); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidCron, err)
		}
	}

	return nil
}

func (rp *RetryPolicy) validate(prefix string) error {
	if rp.MaxAttempts < 1 {
		return fmt.Errorf("%w (%s)", ErrInvalidMaxAttempts, prefix)
	}

	if rp.InitialDelayMs < 0 {
		return fmt.Errorf("%w (%s)", ErrInvalidInitialDelay, prefix)
	}

	if rp.BackoffMultiplier < 1.0 {
		return fmt.Errorf("%w (%s)", ErrInvalidBackoffMultiplier, prefix)
	}

	return nil
}

// GetRetryDelay calculates exponential backoff delay for attempt number.
// A MaxDelayMs of zero leaves the delay uncapped.
func (rp *RetryPolicy) GetRetryDelay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}

	delayMs := float64(rp.InitialDelayMs)
	for i := 1; i < attempt; i++ {
		delayMs *= rp.BackoffMultiplier
	}

	// Cap at max delay
	if rp.MaxDelayMs > 0 && int(delayMs) > rp.MaxDelayMs {
		delayMs = float64(rp.MaxDelayMs)
	}

	return time.Duration(int(delayMs)) * time.Millisecond
}

// Backoff returns the wait before retry number n (0-based):
// InitialDelayMs * BackoffMultiplier^n.
func (rp *RetryPolicy) Backoff(n int) time.Duration {
	delayMs := float64(rp.InitialDelayMs)
	for i := 0; i < n; i++ {
		delayMs *= rp.BackoffMultiplier
	}

	if rp.MaxDelayMs > 0 && int(delayMs) > rp.MaxDelayMs {
		delayMs = float64(rp.MaxDelayMs)
	}

	return time.Duration(int64(delayMs)) * time.Millisecond
}

// GetTimeout returns the timeout duration.
func (rp *RetryPolicy) GetTimeout() time.Duration {
	return time.Duration(rp.TimeoutSec) * time.Second
}

// Location returns the portal's time zone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Portal.Timezone)
	if err != nil {
		return time.UTC
	}

	return loc
}

// PoliteDelay is the pause between portal requests.
func (c *Config) PoliteDelay() time.Duration {
	return time.Duration(c.Crawler.PoliteDelayMs) * time.Millisecond
}

// SummaryDelay is the pause between attachment summaries.
func (s *SummarizerConfig) SummaryDelay() time.Duration {
	return time.Duration(s.DelayMs) * time.Millisecond
}

// VideoDelay is the pause between meeting video summaries.
func (s *SummarizerConfig) VideoDelay() time.Duration {
	return time.Duration(s.VideoDelayMs) * time.Millisecond
}

// BodyLimit is the largest response body the scraper reads, in bytes.
func (c *Config) BodyLimit() int64 {
	return int64(c.Crawler.BufferSizeKb) * 1024
}

// GetLedgerPath returns the ledger database path, defaulting under base_path.
func (c *Config) GetLedgerPath() string {
	if c.Output.LedgerPath != "" {
		return c.Output.LedgerPath
	}

	return filepath.Join(c.Output.BasePath, "ledger.db")
}

// APIKey reads the summarization API key from the environment.
func APIKey() (string, error) {
	key := os.Getenv(APIKeyEnv)
	if key == "" {
		return "", ErrMissingAPIKey
	}

	return key, nil
}

// String returns a string representation of the config.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Portal: %s, Limit: %d, MaxAttempts: %d, Output: %s}",
		c.Portal.BaseURL,
		c.Crawler.Limit,
		c.Retry.MaxAttempts,
		c.Output.BasePath,
	)
}

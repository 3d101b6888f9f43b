// Package config loads engine configuration from environment variables
// (github.com/joho/godotenv, teacher's config.Load pattern) merged with a
// structured config.yaml (gopkg.in/yaml.v3) for the options spec.md §6
// names (schedule cadence, signal profile, news weighting, collector
// concurrency, dispatch backoff, session bounds, calendar extras).
package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// SignalProfile selects confidence-adjustment magnitudes (spec.md §4.8).
type SignalProfile string

const (
	ProfileConservative SignalProfile = "conservative"
	ProfileBalanced      SignalProfile = "balanced"
	ProfileAggressive    SignalProfile = "aggressive"
)

// Config is the full engine configuration, merged from config.yaml and
// environment overrides.
type Config struct {
	// Ambient / process
	Port         int    `yaml:"port"`
	DevMode      bool   `yaml:"devMode"`
	DatabasePath string `yaml:"databasePath"`
	LogLevel     string `yaml:"logLevel"`
	LogPretty    bool   `yaml:"logPretty"`

	// Scheduler
	Scheduler SchedulerConfig `yaml:"scheduler"`

	// Signal generation
	SignalProfile SignalProfile `yaml:"signalProfile"`

	// News weighting
	News NewsConfig `yaml:"news"`

	// Collector concurrency
	Collector CollectorConfig `yaml:"collector"`

	// Dispatch
	Dispatch DispatchConfig `yaml:"dispatch"`

	// Session bounds
	Session SessionConfig `yaml:"session"`

	// Calendar
	Calendar CalendarConfig `yaml:"calendar"`

	// Dispatch channel credentials (env-only; never in config.yaml)
	TelegramBotToken string `yaml:"-"`
	SMTPHost         string `yaml:"-"`
	SMTPPort         int    `yaml:"-"`
	SMTPUser         string `yaml:"-"`
	SMTPPassword     string `yaml:"-"`
	SMTPFrom         string `yaml:"-"`
}

type SchedulerConfig struct {
	TickIntervalSeconds int `yaml:"tickIntervalSeconds"`
}

type NewsConfig struct {
	HalfLifeMinutes int                `yaml:"halfLifeMinutes"`
	SourceWeights   map[string]float64 `yaml:"sourceWeights"`
	// Profile selects a named newsanalyzer weighting profile
	// (intraday-aggressive, intraday-default, intraday-conservative,
	// swing). Empty falls back to intraday-default.
	Profile string       `yaml:"profile"`
	Feeds   []FeedConfig `yaml:"feeds"`
}

// FeedConfig is one configured RSS/Atom source (spec.md §6 "RSS news feeds").
type FeedConfig struct {
	Source  string `yaml:"source"`
	URL     string `yaml:"url"`
	Enabled bool   `yaml:"enabled"`
}

type CollectorConfig struct {
	MaxConcurrency int `yaml:"maxConcurrency"`
	// OHLCVURLTemplate is an fmt.Sprintf template with one %s verb for
	// the GPW ticker symbol, returning the CSV described in spec.md §6
	// "OHLCV ingestion". No default: the operator must point this at a
	// real feed before `collect` can run.
	OHLCVURLTemplate string `yaml:"ohlcvURLTemplate"`
	// RequestsPerSecond bounds the aggregate request rate across all
	// symbols in one collection cycle.
	RequestsPerSecond float64 `yaml:"requestsPerSecond"`
}

type DispatchConfig struct {
	RetryBackoffSeconds int `yaml:"retryBackoffSeconds"`
}

type SessionConfig struct {
	OpenLocal  string `yaml:"openLocal"`
	CloseLocal string `yaml:"closeLocal"`
}

type CalendarConfig struct {
	ExtraHolidays []string `yaml:"extraHolidays"` // "YYYY-MM-DD"
}

// defaults returns the built-in defaults named in spec.md §6.
func defaults() *Config {
	return &Config{
		Port:         8001,
		DatabasePath: "./data/gpwsignal.db",
		LogLevel:     "info",
		Scheduler:    SchedulerConfig{TickIntervalSeconds: 60},
		SignalProfile: ProfileBalanced,
		News: NewsConfig{
			HalfLifeMinutes: 120,
			SourceWeights:   map[string]float64{},
		},
		Collector: CollectorConfig{MaxConcurrency: 8, RequestsPerSecond: 4},
		Dispatch:  DispatchConfig{RetryBackoffSeconds: 30},
		Session:   SessionConfig{OpenLocal: "09:00", CloseLocal: "17:00"},
	}
}

// Validate checks structural invariants spec.md §6 requires.
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("databasePath is required")
	}
	if c.News.HalfLifeMinutes < 15 || c.News.HalfLifeMinutes > 1440 {
		return fmt.Errorf("news.halfLifeMinutes must be in [15, 1440], got %d", c.News.HalfLifeMinutes)
	}
	for feed, w := range c.News.SourceWeights {
		if w < 0 || w > 2 {
			return fmt.Errorf("news.sourceWeights[%s] must be in [0, 2], got %v", feed, w)
		}
	}
	if c.Collector.MaxConcurrency <= 0 {
		return fmt.Errorf("collector.maxConcurrency must be positive")
	}
	if c.Collector.RequestsPerSecond <= 0 {
		return fmt.Errorf("collector.requestsPerSecond must be positive")
	}
	switch c.SignalProfile {
	case ProfileConservative, ProfileBalanced, ProfileAggressive:
	default:
		return fmt.Errorf("signalProfile must be one of conservative|balanced|aggressive, got %q", c.SignalProfile)
	}
	if _, err := time.Parse("15:04", c.Session.OpenLocal); err != nil {
		return fmt.Errorf("session.openLocal: %w", err)
	}
	if _, err := time.Parse("15:04", c.Session.CloseLocal); err != nil {
		return fmt.Errorf("session.closeLocal: %w", err)
	}
	for _, d := range c.Calendar.ExtraHolidays {
		if _, err := time.Parse("2006-01-02", d); err != nil {
			return fmt.Errorf("calendar.extraHolidays[%s]: %w", d, err)
		}
	}
	return nil
}

// Load reads config.yaml from path (if it exists) layered over defaults,
// then applies environment overrides, then validates.
func Load(yamlPath string) (*Config, error) {
	_ = godotenv.Load()

	cfg := defaults()
	if yamlPath != "" {
		if data, err := os.ReadFile(yamlPath); err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing %s: %w", yamlPath, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading %s: %w", yamlPath, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	cfg.Port = getEnvAsInt("GO_PORT", cfg.Port)
	cfg.DevMode = getEnvAsBool("DEV_MODE", cfg.DevMode)
	cfg.DatabasePath = getEnv("DATABASE_PATH", cfg.DatabasePath)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogPretty = getEnvAsBool("LOG_PRETTY", cfg.LogPretty)
	cfg.TelegramBotToken = getEnv("TELEGRAM_BOT_TOKEN", "")
	cfg.SMTPHost = getEnv("SMTP_HOST", "")
	cfg.SMTPPort = getEnvAsInt("SMTP_PORT", 587)
	cfg.SMTPUser = getEnv("SMTP_USER", "")
	cfg.SMTPPassword = getEnv("SMTP_PASSWORD", "")
	cfg.SMTPFrom = getEnv("SMTP_FROM", "")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// Store holds the live configuration and refreshes it from disk on a
// timer, keeping the previous value on parse error (spec.md §7
// configuration-error policy: a bad reload must not crash a running
// engine, it just logs and keeps serving the last good config).
type Store struct {
	mu       sync.RWMutex
	current  *Config
	yamlPath string
	onError  func(error)
}

// NewStore creates a Store with an already-loaded initial config.
func NewStore(initial *Config, yamlPath string, onError func(error)) *Store {
	if onError == nil {
		onError = func(error) {}
	}
	return &Store{current: initial, yamlPath: yamlPath, onError: onError}
}

// Get returns the current configuration. Safe for concurrent use.
func (s *Store) Get() *Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Reload re-reads config.yaml and environment, swapping in the new
// config only if it parses and validates. Returns true if the new config
// was swapped in, whether or not its contents differ from the old one.
func (s *Store) Reload() bool {
	next, err := Load(s.yamlPath)
	if err != nil {
		s.onError(fmt.Errorf("config reload: %w", err))
		return false
	}
	s.mu.Lock()
	s.current = next
	s.mu.Unlock()
	return true
}

// Watch starts a background reloader firing every interval (spec.md §6:
// every 5 minutes) until stop is closed. Call as `go store.Watch(stop, 5 *
// time.Minute, notify)`.
func (s *Store) Watch(stop <-chan struct{}, interval time.Duration, onReload func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if s.Reload() && onReload != nil {
				onReload()
			}
		}
	}
}

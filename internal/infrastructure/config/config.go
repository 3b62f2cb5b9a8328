// Package config provides centralized configuration management.
//
// Configuration can be loaded from:
//  1. YAML file (config.yaml)
//  2. Environment variables (fallback)
//
// Example usage:
//
//	cfg := config.LoadOrEnv()
//	dbPath := cfg.Storage.DatabasePath
//	fireflyToken := cfg.Firefly.APIToken
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Interval defaults, applied when the config leaves them unset.
const (
	DefaultFetchInterval    = 30 * time.Minute
	DefaultPresentInterval  = 10 * time.Minute
	DefaultApprovalInterval = 10 * time.Minute
)

// Validation errors for required credentials. Missing credentials are fatal
// at startup.
var (
	ErrMissingFireflyURL     = errors.New("firefly api_url is required (FIREFLY_API_URL)")
	ErrMissingFireflyToken   = errors.New("firefly api_token is required (FIREFLY_API_TOKEN)")
	ErrMissingKresusURL      = errors.New("kresus api_url is required (KRESUS_API_URL)")
	ErrMissingDiscordToken   = errors.New("discord token is required when discord is enabled (DISCORD_TOKEN)")
	ErrMissingDiscordChannel = errors.New("discord channel_id is required when discord is enabled (DISCORD_CHANNEL_ID)")
)

// Config represents the entire application configuration
type Config struct {
	Firefly       FireflyConfig       `yaml:"firefly"`
	Kresus        KresusConfig        `yaml:"kresus"`
	Sync          SyncConfig          `yaml:"sync"`
	Discord       DiscordConfig       `yaml:"discord"`
	Storage       StorageConfig       `yaml:"storage"`
	API           APIConfig           `yaml:"api"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// FireflyConfig holds Firefly III API configuration
type FireflyConfig struct {
	APIURL   string `yaml:"api_url"`
	APIToken string `yaml:"api_token"`
}

// KresusConfig holds Kresus aggregator configuration
type KresusConfig struct {
	APIURL string `yaml:"api_url"`

	// Accounts is the label allowlist. Empty means sync everything.
	Accounts []string `yaml:"accounts"`
}

// SyncConfig holds the sync window and loop intervals. Intervals are
// time.ParseDuration strings ("30m", "1h").
type SyncConfig struct {
	StartDate        string `yaml:"start_date"`
	FetchInterval    string `yaml:"fetch_interval"`
	PresentInterval  string `yaml:"present_interval"`
	ApprovalInterval string `yaml:"approval_interval"`
}

// DiscordConfig holds the notification channel configuration
type DiscordConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Token        string `yaml:"token"`
	ChannelID    string `yaml:"channel_id"`
	HistoryLimit int    `yaml:"history_limit"`
}

// StorageConfig holds database configuration
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// APIConfig holds the status API configuration
type APIConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads and parses the config file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${FIREFLY_API_TOKEN})
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration from environment variables only
func LoadFromEnv() *Config {
	return &Config{
		Firefly: FireflyConfig{
			APIURL:   os.Getenv("FIREFLY_API_URL"),
			APIToken: os.Getenv("FIREFLY_API_TOKEN"),
		},
		Kresus: KresusConfig{
			APIURL:   os.Getenv("KRESUS_API_URL"),
			Accounts: splitList(os.Getenv("KRESUS_ACCOUNTS")),
		},
		Sync: SyncConfig{
			StartDate:        getEnv("START_DATE", ""),
			FetchInterval:    getEnv("FETCH_INTERVAL", ""),
			PresentInterval:  getEnv("PRESENT_INTERVAL", ""),
			ApprovalInterval: getEnv("APPROVAL_INTERVAL", ""),
		},
		Discord: DiscordConfig{
			Enabled:   os.Getenv("DISCORD_TOKEN") != "",
			Token:     os.Getenv("DISCORD_TOKEN"),
			ChannelID: os.Getenv("DISCORD_CHANNEL_ID"),
		},
		Storage: StorageConfig{
			DatabasePath: getEnv("SYNC_DB_PATH", "sync_history.db"),
		},
		API: APIConfig{
			Enabled: getEnvBool("API_ENABLED", false),
			Port:    getEnvInt("API_PORT", 8087),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "text"),
			},
		},
	}
}

// LoadOrEnv tries to load from config.yaml, falls back to environment variables
func LoadOrEnv() *Config {
	return LoadOrEnv_WithPath("config.yaml")
}

// LoadOrEnv_WithPath tries to load from specified path, falls back to environment variables
func LoadOrEnv_WithPath(path string) *Config {
	if cfg, err := Load(path); err == nil {
		return cfg
	}
	return LoadFromEnv()
}

// Validate checks required credentials and parseable values. The daemon
// refuses to start on any error here.
func (c *Config) Validate() error {
	if c.Firefly.APIURL == "" {
		return ErrMissingFireflyURL
	}
	if c.Firefly.APIToken == "" {
		return ErrMissingFireflyToken
	}
	if c.Kresus.APIURL == "" {
		return ErrMissingKresusURL
	}
	if c.Discord.Enabled {
		if c.Discord.Token == "" {
			return ErrMissingDiscordToken
		}
		if c.Discord.ChannelID == "" {
			return ErrMissingDiscordChannel
		}
	}
	if _, err := c.Sync.StartTime(); err != nil {
		return err
	}
	for _, interval := range []string{c.Sync.FetchInterval, c.Sync.PresentInterval, c.Sync.ApprovalInterval} {
		if interval == "" {
			continue
		}
		if _, err := time.ParseDuration(interval); err != nil {
			return fmt.Errorf("invalid sync interval %q: %w", interval, err)
		}
	}
	return nil
}

// StartTime parses the sync window start. A zero time means no lower
// bound.
func (s SyncConfig) StartTime() (time.Time, error) {
	if s.StartDate == "" {
		return time.Time{}, nil
	}
	start, err := time.Parse("2006-01-02", s.StartDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid start_date %q: %w", s.StartDate, err)
	}
	return start, nil
}

// FetchEvery returns the fetch-and-match loop interval.
func (s SyncConfig) FetchEvery() time.Duration {
	return intervalOr(s.FetchInterval, DefaultFetchInterval)
}

// PresentEvery returns the announcement loop interval.
func (s SyncConfig) PresentEvery() time.Duration {
	return intervalOr(s.PresentInterval, DefaultPresentInterval)
}

// ApprovalEvery returns the approval-poll loop interval.
func (s SyncConfig) ApprovalEvery() time.Duration {
	return intervalOr(s.ApprovalInterval, DefaultApprovalInterval)
}

func intervalOr(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	interval, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return interval
}

// splitList turns a comma-separated environment value into a list
func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getEnvInt retrieves an integer environment variable with a fallback default
func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var result int
		if _, err := fmt.Sscanf(val, "%d", &result); err == nil {
			return result
		}
	}
	return fallback
}

// getEnvBool retrieves a boolean environment variable with a fallback default
func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if result, err := strconv.ParseBool(val); err == nil {
			return result
		}
	}
	return fallback
}

// GetAPIKey retrieves an API key from config first, then tries multiple environment variable names
// Usage: GetAPIKey(cfg.Firefly.APIToken, "FIREFLY_API_TOKEN")
//
//	GetAPIKey(cfg.Discord.Token, "DISCORD_TOKEN", "DISCORD_BOT_TOKEN")
func (c *Config) GetAPIKey(configValue string, envVarNames ...string) string {
	// First, try the config value
	if configValue != "" {
		return configValue
	}

	// Then try each environment variable in order
	for _, envVar := range envVarNames {
		if val := os.Getenv(envVar); val != "" {
			return val
		}
	}

	return ""
}

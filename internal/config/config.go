// Package config loads tmux-organize configuration from file and environment.
//
// Precedence (highest to lowest):
//  1. Environment variables (TMUX_ORGANIZE_*)
//  2. Config file
//  3. Built-in defaults
//
// Config file search order:
//  1. .tmux-organize.yaml in current directory
//  2. ~/.config/tmux-organize/config.yaml
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all tmux-organize configuration.
type Config struct {
	// LLM settings
	Provider     string `yaml:"provider"`
	Model        string `yaml:"model"`         // window names
	SessionModel string `yaml:"session_model"` // session names
	BaseURL      string `yaml:"base_url"`
	APIKey       string `yaml:"api_key"`
	MaxTokens    int64  `yaml:"max_tokens"`

	// Command replaces the LLM provider with a local subprocess. The
	// argv receives the naming instructions and context on stdin and
	// must print a single name on stdout.
	Command []string `yaml:"command"`

	// Timeouts
	Timeout        string `yaml:"timeout"`         // summarizer budget, e.g. "120s"
	CaptureTimeout string `yaml:"capture_timeout"` // tmux query budget

	// Naming
	MaxNameLength int `yaml:"max_name_length"`

	// Cache
	CacheTTL string `yaml:"cache_ttl"` // Go duration string, "0" disables
	CacheDir string `yaml:"cache_dir"` // default: user cache dir

	// Enrichment subprocess, prints agent session JSON on stdout.
	EnrichCommand []string `yaml:"enrich_command"`
	EnrichTimeout string   `yaml:"enrich_timeout"`

	// Status indicator
	StatusOption  string `yaml:"status_option"`  // tmux user option name
	FailurePolicy string `yaml:"failure_policy"` // "sticky" or "last-settled"

	// History and watch
	HistoryDB    string `yaml:"history_db"`    // default: user state dir
	WatchRefresh string `yaml:"watch_refresh"` // watch TUI poll interval

	// OTEL
	OTELEndpoint string `yaml:"otel_endpoint"`
	OTELHeaders  string `yaml:"otel_headers"` // Comma-separated key=value pairs, e.g. "Authorization=Basic abc123"

	// Logging
	LogLevel  string `yaml:"log_level"`  // debug, info, warn, error
	LogFormat string `yaml:"log_format"` // text or json
	LogDir    string `yaml:"log_dir"`    // default: user state dir

	// Parsed durations (not from YAML, set after loading)
	TimeoutDuration        time.Duration `yaml:"-"`
	CaptureTimeoutDuration time.Duration `yaml:"-"`
	CacheTTLDuration       time.Duration `yaml:"-"`
	EnrichTimeoutDuration  time.Duration `yaml:"-"`
	WatchRefreshDuration   time.Duration `yaml:"-"`

	// ConfigFile is the path to the config file that was loaded (empty if none).
	ConfigFile string `yaml:"-"`
}

// Defaults returns a Config with all default values.
func Defaults() *Config {
	return &Config{
		Provider:       "anthropic",
		Model:          "claude-haiku-4-5",
		SessionModel:   "claude-sonnet-4-5",
		MaxTokens:      1024,
		Timeout:        "120s",
		CaptureTimeout: "5s",
		MaxNameLength:  60,
		CacheTTL:       "24h",
		EnrichTimeout:  "10s",
		StatusOption:   "@organize",
		FailurePolicy:  "sticky",
		WatchRefresh:   "2s",
		LogLevel:       "info",
		LogFormat:      "text",
	}
}

// Load reads configuration from file and environment variables.
// Environment variables always override file values.
func Load() (*Config, error) {
	cfg := Defaults()

	// Try to load config file
	if path, data, err := findConfigFile(); err == nil {
		var fileCfg Config
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
		cfg.ConfigFile = path
		mergeFile(cfg, &fileCfg)
	}

	// Environment variables override everything
	mergeEnv(cfg)

	if cfg.FailurePolicy != "sticky" && cfg.FailurePolicy != "last-settled" {
		return nil, fmt.Errorf("invalid failure_policy %q: want sticky or last-settled", cfg.FailurePolicy)
	}

	// Parse durations
	var err error
	cfg.TimeoutDuration, err = parseDurationOrDisable(cfg.Timeout, 120*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid timeout %q: %w", cfg.Timeout, err)
	}
	cfg.CaptureTimeoutDuration, err = parseDurationOrDisable(cfg.CaptureTimeout, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid capture_timeout %q: %w", cfg.CaptureTimeout, err)
	}
	cfg.CacheTTLDuration, err = parseDurationOrDisable(cfg.CacheTTL, 24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("invalid cache TTL %q: %w", cfg.CacheTTL, err)
	}
	cfg.EnrichTimeoutDuration, err = parseDurationOrDisable(cfg.EnrichTimeout, 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid enrich_timeout %q: %w", cfg.EnrichTimeout, err)
	}
	cfg.WatchRefreshDuration, err = parseDurationOrDisable(cfg.WatchRefresh, 2*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid watch_refresh %q: %w", cfg.WatchRefresh, err)
	}

	return cfg, nil
}

// ModelFor returns the model to use for the given naming kind.
// Session names use the larger model when one is configured.
func (c *Config) ModelFor(sessionScope bool) string {
	if sessionScope && c.SessionModel != "" {
		return c.SessionModel
	}
	return c.Model
}

// HistoryPath returns the history database path, resolving the default
// under the user state directory when unset.
func (c *Config) HistoryPath() (string, error) {
	if c.HistoryDB != "" {
		return c.HistoryDB, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving history path: %w", err)
	}
	return filepath.Join(home, ".local", "state", "tmux-organize", "history.db"), nil
}

// LogPath returns the directory for detached job logs, resolving the
// default under the user state directory when unset.
func (c *Config) LogPath() (string, error) {
	if c.LogDir != "" {
		return c.LogDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving log path: %w", err)
	}
	return filepath.Join(home, ".local", "state", "tmux-organize", "logs"), nil
}

// CachePath returns the name cache directory, resolving the default
// under the user cache directory when unset.
func (c *Config) CachePath() (string, error) {
	if c.CacheDir != "" {
		return c.CacheDir, nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("resolving cache path: %w", err)
	}
	return filepath.Join(base, "tmux-organize"), nil
}

// findConfigFile searches for a config file and returns its path and contents.
func findConfigFile() (string, []byte, error) {
	// 1. Current directory
	if data, err := os.ReadFile(".tmux-organize.yaml"); err == nil {
		return ".tmux-organize.yaml", data, nil
	}

	// 2. XDG config dir / ~/.config
	if home, err := os.UserHomeDir(); err == nil {
		path := filepath.Join(home, ".config", "tmux-organize", "config.yaml")
		if data, err := os.ReadFile(path); err == nil {
			return path, data, nil
		}
	}

	return "", nil, fmt.Errorf("no config file found")
}

// mergeFile applies non-zero file values onto cfg.
func mergeFile(cfg *Config, file *Config) {
	if file.Provider != "" {
		cfg.Provider = file.Provider
	}
	if file.Model != "" {
		cfg.Model = file.Model
	}
	if file.SessionModel != "" {
		cfg.SessionModel = file.SessionModel
	}
	if file.BaseURL != "" {
		cfg.BaseURL = file.BaseURL
	}
	if file.APIKey != "" {
		cfg.APIKey = file.APIKey
	}
	if file.MaxTokens > 0 {
		cfg.MaxTokens = file.MaxTokens
	}
	if len(file.Command) > 0 {
		cfg.Command = file.Command
	}
	if file.Timeout != "" {
		cfg.Timeout = file.Timeout
	}
	if file.CaptureTimeout != "" {
		cfg.CaptureTimeout = file.CaptureTimeout
	}
	if file.MaxNameLength > 0 {
		cfg.MaxNameLength = file.MaxNameLength
	}
	if file.CacheTTL != "" {
		cfg.CacheTTL = file.CacheTTL
	}
	if file.CacheDir != "" {
		cfg.CacheDir = file.CacheDir
	}
	if len(file.EnrichCommand) > 0 {
		cfg.EnrichCommand = file.EnrichCommand
	}
	if file.EnrichTimeout != "" {
		cfg.EnrichTimeout = file.EnrichTimeout
	}
	if file.StatusOption != "" {
		cfg.StatusOption = file.StatusOption
	}
	if file.FailurePolicy != "" {
		cfg.FailurePolicy = file.FailurePolicy
	}
	if file.HistoryDB != "" {
		cfg.HistoryDB = file.HistoryDB
	}
	if file.WatchRefresh != "" {
		cfg.WatchRefresh = file.WatchRefresh
	}
	if file.OTELEndpoint != "" {
		cfg.OTELEndpoint = file.OTELEndpoint
	}
	if file.OTELHeaders != "" {
		cfg.OTELHeaders = file.OTELHeaders
	}
	if file.LogLevel != "" {
		cfg.LogLevel = file.LogLevel
	}
	if file.LogFormat != "" {
		cfg.LogFormat = file.LogFormat
	}
	if file.LogDir != "" {
		cfg.LogDir = file.LogDir
	}
}

// mergeEnv applies environment variables onto cfg. Env always wins.
// List-valued settings (command, enrich_command) are split on whitespace.
func mergeEnv(cfg *Config) {
	if v := os.Getenv("TMUX_ORGANIZE_PROVIDER"); v != "" {
		cfg.Provider = v
	}
	if v := os.Getenv("TMUX_ORGANIZE_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("TMUX_ORGANIZE_SESSION_MODEL"); v != "" {
		cfg.SessionModel = v
	}
	if v := os.Getenv("TMUX_ORGANIZE_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("TMUX_ORGANIZE_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("TMUX_ORGANIZE_COMMAND"); v != "" {
		cfg.Command = strings.Fields(v)
	}
	if v := os.Getenv("TMUX_ORGANIZE_TIMEOUT"); v != "" {
		cfg.Timeout = v
	}
	if v := os.Getenv("TMUX_ORGANIZE_CAPTURE_TIMEOUT"); v != "" {
		cfg.CaptureTimeout = v
	}
	if v := os.Getenv("TMUX_ORGANIZE_CACHE_TTL"); v != "" {
		cfg.CacheTTL = v
	}
	if v := os.Getenv("TMUX_ORGANIZE_CACHE_DIR"); v != "" {
		cfg.CacheDir = v
	}
	if v := os.Getenv("TMUX_ORGANIZE_ENRICH_COMMAND"); v != "" {
		cfg.EnrichCommand = strings.Fields(v)
	}
	if v := os.Getenv("TMUX_ORGANIZE_ENRICH_TIMEOUT"); v != "" {
		cfg.EnrichTimeout = v
	}
	if v := os.Getenv("TMUX_ORGANIZE_STATUS_OPTION"); v != "" {
		cfg.StatusOption = v
	}
	if v := os.Getenv("TMUX_ORGANIZE_FAILURE_POLICY"); v != "" {
		cfg.FailurePolicy = v
	}
	if v := os.Getenv("TMUX_ORGANIZE_HISTORY_DB"); v != "" {
		cfg.HistoryDB = v
	}
	if v := os.Getenv("TMUX_ORGANIZE_WATCH_REFRESH"); v != "" {
		cfg.WatchRefresh = v
	}
	if v := os.Getenv("TMUX_ORGANIZE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("TMUX_ORGANIZE_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv("TMUX_ORGANIZE_LOG_DIR"); v != "" {
		cfg.LogDir = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		cfg.OTELEndpoint = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"); v != "" {
		cfg.OTELHeaders = v
	}

	// API key fallbacks
	if cfg.APIKey == "" {
		if v := os.Getenv("AZURE_OPENAI_API_KEY"); v != "" {
			cfg.APIKey = v
		}
	}
	if cfg.APIKey == "" {
		if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
			cfg.APIKey = v
		}
	}
	if cfg.APIKey == "" {
		if v := os.Getenv("OPENAI_API_KEY"); v != "" {
			cfg.APIKey = v
		}
	}

	// Azure base URL fallback
	if cfg.BaseURL == "" {
		if rn := os.Getenv("AZURE_RESOURCE_NAME"); rn != "" {
			switch cfg.Provider {
			case "anthropic":
				cfg.BaseURL = fmt.Sprintf("https://%s.services.ai.azure.com/anthropic/", rn)
			case "openai":
				cfg.BaseURL = fmt.Sprintf("https://%s.openai.azure.com/openai/v1", rn)
			}
		}
	}
}

// parseDurationOrDisable parses a duration string. "0", "off", "disable" return 0.
// Empty string returns the fallback value.
func parseDurationOrDisable(s string, fallback time.Duration) (time.Duration, error) {
	if s == "" {
		return fallback, nil
	}
	if s == "0" || s == "off" || s == "disable" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

// IsAzureEndpoint returns true if the URL is an Azure endpoint.
func IsAzureEndpoint(url string) bool {
	return strings.Contains(url, ".azure.com") || strings.Contains(url, ".azure.us")
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// clearEnv blanks every variable Load consults so tests see only what
// they set themselves.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"TMUX_ORGANIZE_PROVIDER", "TMUX_ORGANIZE_MODEL", "TMUX_ORGANIZE_SESSION_MODEL",
		"TMUX_ORGANIZE_BASE_URL", "TMUX_ORGANIZE_API_KEY", "TMUX_ORGANIZE_COMMAND",
		"TMUX_ORGANIZE_TIMEOUT", "TMUX_ORGANIZE_CAPTURE_TIMEOUT",
		"TMUX_ORGANIZE_CACHE_TTL", "TMUX_ORGANIZE_CACHE_DIR",
		"TMUX_ORGANIZE_ENRICH_COMMAND", "TMUX_ORGANIZE_ENRICH_TIMEOUT",
		"TMUX_ORGANIZE_STATUS_OPTION", "TMUX_ORGANIZE_FAILURE_POLICY",
		"TMUX_ORGANIZE_HISTORY_DB", "TMUX_ORGANIZE_WATCH_REFRESH",
		"TMUX_ORGANIZE_LOG_LEVEL", "TMUX_ORGANIZE_LOG_FORMAT", "TMUX_ORGANIZE_LOG_DIR",
		"OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_HEADERS",
		"AZURE_OPENAI_API_KEY", "ANTHROPIC_API_KEY", "OPENAI_API_KEY",
		"AZURE_RESOURCE_NAME",
	} {
		t.Setenv(key, "")
	}
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Provider != "anthropic" {
		t.Errorf("Provider: got %q, want %q", cfg.Provider, "anthropic")
	}
	if cfg.Model != "claude-haiku-4-5" {
		t.Errorf("Model: got %q, want %q", cfg.Model, "claude-haiku-4-5")
	}
	if cfg.SessionModel != "claude-sonnet-4-5" {
		t.Errorf("SessionModel: got %q, want %q", cfg.SessionModel, "claude-sonnet-4-5")
	}
	if cfg.MaxTokens != 1024 {
		t.Errorf("MaxTokens: got %d, want %d", cfg.MaxTokens, 1024)
	}
	if cfg.Timeout != "120s" {
		t.Errorf("Timeout: got %q, want %q", cfg.Timeout, "120s")
	}
	if cfg.CaptureTimeout != "5s" {
		t.Errorf("CaptureTimeout: got %q, want %q", cfg.CaptureTimeout, "5s")
	}
	if cfg.MaxNameLength != 60 {
		t.Errorf("MaxNameLength: got %d, want %d", cfg.MaxNameLength, 60)
	}
	if cfg.StatusOption != "@organize" {
		t.Errorf("StatusOption: got %q, want %q", cfg.StatusOption, "@organize")
	}
	if cfg.FailurePolicy != "sticky" {
		t.Errorf("FailurePolicy: got %q, want %q", cfg.FailurePolicy, "sticky")
	}
}

func TestModelFor(t *testing.T) {
	cfg := &Config{Model: "small", SessionModel: "large"}
	if got := cfg.ModelFor(false); got != "small" {
		t.Errorf("window model: got %q, want %q", got, "small")
	}
	if got := cfg.ModelFor(true); got != "large" {
		t.Errorf("session model: got %q, want %q", got, "large")
	}

	cfg.SessionModel = ""
	if got := cfg.ModelFor(true); got != "small" {
		t.Errorf("empty session model should fall back: got %q, want %q", got, "small")
	}
}

func TestIsAzureEndpoint(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://myresource.openai.azure.com/openai/v1", true},
		{"https://myresource.services.ai.azure.com/anthropic/", true},
		{"https://myresource.azure.us/foo", true},
		{"https://api.anthropic.com/", false},
		{"https://api.openai.com/v1", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got := IsAzureEndpoint(tt.url)
			if got != tt.want {
				t.Errorf("IsAzureEndpoint(%q) = %v, want %v", tt.url, got, tt.want)
			}
		})
	}
}

func TestParseDurationOrDisable(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantMs  int64
		wantErr bool
	}{
		{"empty returns fallback", "", 5000, false},
		{"zero disables", "0", 0, false},
		{"off disables", "off", 0, false},
		{"disable disables", "disable", 0, false},
		{"valid duration", "30s", 30000, false},
		{"valid short duration", "500ms", 500, false},
		{"invalid", "not-a-duration", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDurationOrDisable(tt.input, 5*time.Second)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseDurationOrDisable(%q): error = %v, wantErr = %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got.Milliseconds() != tt.wantMs {
				t.Errorf("parseDurationOrDisable(%q) = %v, want %dms", tt.input, got, tt.wantMs)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, ".tmux-organize.yaml")
	content := `provider: openai
model: gpt-4o-mini
session_model: gpt-4o
api_key: test-key-123
max_tokens: 8192
max_name_length: 40
status_option: "@naming"
failure_policy: last-settled
cache_ttl: "0"
command:
  - my-namer
  - --window
`
	if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	// Change to temp dir so Load() finds the config
	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)
	os.Chdir(dir)

	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Provider != "openai" {
		t.Errorf("Provider: got %q, want %q", cfg.Provider, "openai")
	}
	if cfg.Model != "gpt-4o-mini" {
		t.Errorf("Model: got %q, want %q", cfg.Model, "gpt-4o-mini")
	}
	if cfg.SessionModel != "gpt-4o" {
		t.Errorf("SessionModel: got %q, want %q", cfg.SessionModel, "gpt-4o")
	}
	if cfg.APIKey != "test-key-123" {
		t.Errorf("APIKey: got %q, want %q", cfg.APIKey, "test-key-123")
	}
	if cfg.MaxTokens != 8192 {
		t.Errorf("MaxTokens: got %d, want %d", cfg.MaxTokens, 8192)
	}
	if cfg.MaxNameLength != 40 {
		t.Errorf("MaxNameLength: got %d, want %d", cfg.MaxNameLength, 40)
	}
	if cfg.StatusOption != "@naming" {
		t.Errorf("StatusOption: got %q, want %q", cfg.StatusOption, "@naming")
	}
	if cfg.FailurePolicy != "last-settled" {
		t.Errorf("FailurePolicy: got %q, want %q", cfg.FailurePolicy, "last-settled")
	}
	if cfg.CacheTTLDuration != 0 {
		t.Errorf("CacheTTLDuration: got %v, want 0 (disabled)", cfg.CacheTTLDuration)
	}
	if len(cfg.Command) != 2 || cfg.Command[0] != "my-namer" || cfg.Command[1] != "--window" {
		t.Errorf("Command: got %v, want [my-namer --window]", cfg.Command)
	}
	if cfg.ConfigFile != ".tmux-organize.yaml" {
		t.Errorf("ConfigFile: got %q, want %q", cfg.ConfigFile, ".tmux-organize.yaml")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, ".tmux-organize.yaml")
	content := `provider: openai
model: gpt-4o-mini
api_key: file-key
`
	if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)
	os.Chdir(dir)

	clearEnv(t)

	// Env should override file
	t.Setenv("TMUX_ORGANIZE_PROVIDER", "anthropic")
	t.Setenv("TMUX_ORGANIZE_MODEL", "claude-sonnet-4-5")
	t.Setenv("TMUX_ORGANIZE_API_KEY", "env-key")
	t.Setenv("TMUX_ORGANIZE_COMMAND", "my-namer --fast")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Provider != "anthropic" {
		t.Errorf("Provider: got %q, want %q (env should override file)", cfg.Provider, "anthropic")
	}
	if cfg.Model != "claude-sonnet-4-5" {
		t.Errorf("Model: got %q, want %q (env should override file)", cfg.Model, "claude-sonnet-4-5")
	}
	if cfg.APIKey != "env-key" {
		t.Errorf("APIKey: got %q, want %q (env should override file)", cfg.APIKey, "env-key")
	}
	if len(cfg.Command) != 2 || cfg.Command[0] != "my-namer" || cfg.Command[1] != "--fast" {
		t.Errorf("Command: got %v, want [my-namer --fast]", cfg.Command)
	}
}

func TestLoadRejectsBadFailurePolicy(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, ".tmux-organize.yaml")
	if err := os.WriteFile(cfgPath, []byte("failure_policy: bogus\n"), 0644); err != nil {
		t.Fatal(err)
	}

	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)
	os.Chdir(dir)

	clearEnv(t)

	if _, err := Load(); err == nil {
		t.Fatal("Load() should reject an unknown failure_policy")
	}
}

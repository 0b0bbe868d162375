package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/timvw/tmux-organize/internal/config"
	"github.com/timvw/tmux-organize/internal/mux"
	"github.com/timvw/tmux-organize/internal/namer"
	"github.com/timvw/tmux-organize/internal/status"
)

var (
	// Global flags. Empty means "use config"; config.Load already folds
	// in TMUX_ORGANIZE_* environment variables and the config file.
	flagMux          string
	flagProvider     string
	flagModel        string
	flagSessionModel string
	flagBaseURL      string
	flagAPIKey       string
	flagMaxTokens    int64
	flagLogLevel     string
)

var rootCmd = &cobra.Command{
	Use:   "tmux-organize",
	Short: "LLM-powered names for tmux windows and sessions",
	Long: `tmux-organize names tmux windows and sessions after what is happening
inside them.

A key binding captures the current window or session, a summarizer (an
LLM or any configured subprocess) condenses it into a short name, and
the name is applied back to tmux. Naming runs in a detached process so
the key binding returns instantly; a session-scoped status option shows
progress and failures on the status line.

Run "tmux-organize init" for the tmux.conf snippet.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagMux, "mux", "", "terminal multiplexer: tmux (default: auto-detect)")
	rootCmd.PersistentFlags().StringVar(&flagProvider, "provider", "", "summarizer provider: anthropic, openai, command")
	rootCmd.PersistentFlags().StringVar(&flagModel, "model", "", "model for window names (default: claude-haiku-4-5)")
	rootCmd.PersistentFlags().StringVar(&flagSessionModel, "session-model", "", "model for session names (default: claude-sonnet-4-5)")
	rootCmd.PersistentFlags().StringVar(&flagBaseURL, "base-url", "", "override LLM API base URL")
	rootCmd.PersistentFlags().StringVar(&flagAPIKey, "api-key", "", "override LLM API key")
	rootCmd.PersistentFlags().Int64Var(&flagMaxTokens, "max-tokens", 0, "max completion tokens (increase for reasoning models)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error")
}

// loadConfig loads defaults, config file, and environment, then applies
// any global flags set on the command line on top.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if flagProvider != "" {
		cfg.Provider = flagProvider
	}
	if flagModel != "" {
		cfg.Model = flagModel
	}
	if flagSessionModel != "" {
		cfg.SessionModel = flagSessionModel
	}
	if flagBaseURL != "" {
		cfg.BaseURL = flagBaseURL
	}
	if flagAPIKey != "" {
		cfg.APIKey = flagAPIKey
	}
	if flagMaxTokens > 0 {
		cfg.MaxTokens = flagMaxTokens
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
	return cfg, nil
}

// getMultiplexer returns the configured or auto-detected multiplexer.
func getMultiplexer() (mux.Multiplexer, error) {
	if flagMux != "" {
		return mux.FromName(flagMux)
	}
	return mux.Detect()
}

// statusPolicy maps the configured failure policy onto the indicator.
func statusPolicy(cfg *config.Config) status.Policy {
	if cfg.FailurePolicy == "last-settled" {
		return status.PolicyLastSettled
	}
	return status.PolicySticky
}

// buildNamer returns the summarizer for one naming kind. Window and
// session names may use different models; a configured command replaces
// the LLM provider entirely.
func buildNamer(cfg *config.Config, sessionScope bool) (namer.Namer, error) {
	if len(cfg.Command) > 0 || cfg.Provider == "command" {
		return namer.NewCommandNamer(namer.CommandConfig{
			Command:       cfg.Command,
			MaxNameLength: cfg.MaxNameLength,
		})
	}

	model := cfg.ModelFor(sessionScope)

	switch cfg.Provider {
	case "anthropic":
		return newAnthropicNamer(cfg, model)
	case "openai":
		return newOpenAINamer(cfg, model)
	default:
		return nil, fmt.Errorf("unknown provider %q (supported: anthropic, openai, command)", cfg.Provider)
	}
}

// newAnthropicNamer creates an Anthropic namer with the resolved config.
func newAnthropicNamer(cfg *config.Config, model string) (namer.Namer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("no API key found. Set TMUX_ORGANIZE_API_KEY, AZURE_OPENAI_API_KEY, or ANTHROPIC_API_KEY")
	}

	// Azure AI Foundry needs both "api-key" (Azure) and "x-api-key"
	// (Anthropic SDK default) headers.
	extraHeaders := map[string]string{}
	if os.Getenv("AZURE_RESOURCE_NAME") != "" || config.IsAzureEndpoint(cfg.BaseURL) {
		extraHeaders["api-key"] = cfg.APIKey
	}

	return namer.NewAnthropicNamer(namer.AnthropicConfig{
		BaseURL:       cfg.BaseURL,
		APIKey:        cfg.APIKey,
		Model:         model,
		MaxTokens:     cfg.MaxTokens,
		MaxNameLength: cfg.MaxNameLength,
		ExtraHeaders:  extraHeaders,
	}), nil
}

// newOpenAINamer creates an OpenAI namer with the resolved config.
func newOpenAINamer(cfg *config.Config, model string) (namer.Namer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("no API key found. Set TMUX_ORGANIZE_API_KEY, AZURE_OPENAI_API_KEY, or OPENAI_API_KEY")
	}

	extraHeaders := map[string]string{}
	if os.Getenv("AZURE_RESOURCE_NAME") != "" || config.IsAzureEndpoint(cfg.BaseURL) {
		extraHeaders["api-key"] = cfg.APIKey
	}

	return namer.NewOpenAINamer(namer.OpenAIConfig{
		BaseURL:       cfg.BaseURL,
		APIKey:        cfg.APIKey,
		Model:         model,
		MaxTokens:     cfg.MaxTokens,
		MaxNameLength: cfg.MaxNameLength,
		ExtraHeaders:  extraHeaders,
	}), nil
}

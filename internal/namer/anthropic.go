package namer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/timvw/tmux-organize/internal/model"
)

// AnthropicNamer proposes names using the Anthropic Messages API.
// Works with both the direct Anthropic API and Azure AI Foundry.
type AnthropicNamer struct {
	client        anthropic.Client
	model         string
	maxTokens     int64
	maxNameLength int
}

// AnthropicConfig holds configuration for the Anthropic namer.
type AnthropicConfig struct {
	// BaseURL is the API endpoint (e.g., "https://resource.services.ai.azure.com/anthropic/v1").
	BaseURL string
	// APIKey is the API key.
	APIKey string
	// Model is the model name (e.g., "claude-haiku-4-5").
	Model string
	// MaxTokens is the maximum number of output tokens.
	MaxTokens int64
	// MaxNameLength bounds the sanitized name; longer proposals are rejected.
	MaxNameLength int
	// ExtraHeaders are additional HTTP headers (e.g., "api-key" for Azure).
	ExtraHeaders map[string]string
}

// NewAnthropicNamer creates a new Anthropic namer.
func NewAnthropicNamer(cfg AnthropicConfig) *AnthropicNamer {
	var opts []option.RequestOption

	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	for k, v := range cfg.ExtraHeaders {
		opts = append(opts, option.WithHeader(k, v))
	}

	client := anthropic.NewClient(opts...)

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	return &AnthropicNamer{
		client:        client,
		model:         cfg.Model,
		maxTokens:     maxTokens,
		maxNameLength: cfg.MaxNameLength,
	}
}

// Provider returns "anthropic".
func (n *AnthropicNamer) Provider() string {
	return "anthropic"
}

// Model returns the model name.
func (n *AnthropicNamer) Model() string {
	return n.model
}

// Propose sends the captured content to the Anthropic API and returns a
// validated name proposal.
func (n *AnthropicNamer) Propose(ctx context.Context, req Request) (*Proposal, error) {
	systemPrompt := promptFor(req.Kind)

	// Start a GenAI generation span following OTel GenAI semantic conventions.
	// Span name: "{operation} {model}" per the convention.
	ctx, span := nameTracer.Start(ctx, "chat "+n.model,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			// GenAI semantic conventions (required + recommended)
			attribute.String("gen_ai.operation.name", "chat"),
			attribute.String("gen_ai.provider.name", "anthropic"),
			attribute.String("gen_ai.request.model", n.model),
			attribute.Int64("gen_ai.request.max_tokens", n.maxTokens),

			// Langfuse-specific: ensure this shows as a "generation"
			attribute.String("langfuse.observation.type", "generation"),
		),
	)
	defer span.End()

	// Record input (system + user messages as JSON)
	inputMessages := []map[string]string{
		{"role": "system", "content": systemPrompt},
		{"role": "user", "content": req.Content},
	}
	if inputJSON, err := json.Marshal(inputMessages); err == nil {
		span.SetAttributes(attribute.String("gen_ai.input.messages", string(inputJSON)))
	}

	resp, err := n.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(n.model),
		MaxTokens: n.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewTextBlock(req.Content),
			),
		},
	})
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			span.SetAttributes(attribute.String("error.type", "timeout"))
			return nil, fmt.Errorf("%w: anthropic: %v", ErrTimeout, err)
		}
		span.SetAttributes(attribute.String("error.type", "api_error"))
		return nil, fmt.Errorf("%w: anthropic: %v", ErrProcessFailed, err)
	}

	if len(resp.Content) == 0 {
		span.SetAttributes(attribute.String("error.type", "empty_response"))
		return nil, fmt.Errorf("%w: anthropic returned an empty response", ErrInvalidOutput)
	}

	rawText := resp.Content[0].Text

	// Record response attributes
	span.SetAttributes(
		attribute.String("gen_ai.response.model", n.model),
		attribute.Int64("gen_ai.usage.input_tokens", resp.Usage.InputTokens),
		attribute.Int64("gen_ai.usage.output_tokens", resp.Usage.OutputTokens),
	)
	if string(resp.StopReason) != "" {
		span.SetAttributes(attribute.StringSlice("gen_ai.response.finish_reasons", []string{string(resp.StopReason)}))
	}

	// Record output
	outputMessages := []map[string]string{
		{"role": "assistant", "content": rawText},
	}
	if outputJSON, err := json.Marshal(outputMessages); err == nil {
		span.SetAttributes(attribute.String("gen_ai.output.messages", string(outputJSON)))
	}

	name, err := finish(rawText, n.maxNameLength)
	if err != nil {
		span.SetAttributes(attribute.String("error.type", "invalid_output"))
		return nil, err
	}

	return &Proposal{
		Name: name,
		Raw:  rawText,
		Usage: model.TokenUsage{
			InputTokens:              resp.Usage.InputTokens,
			OutputTokens:             resp.Usage.OutputTokens,
			CacheReadInputTokens:     resp.Usage.CacheReadInputTokens,
			CacheCreationInputTokens: resp.Usage.CacheCreationInputTokens,
		},
	}, nil
}

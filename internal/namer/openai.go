package namer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/timvw/tmux-organize/internal/model"
)

// OpenAINamer proposes names using an OpenAI-compatible Chat Completions
// API. Works with OpenAI, Azure OpenAI, and compatible endpoints.
type OpenAINamer struct {
	client        openai.Client
	model         string
	maxTokens     int64
	maxNameLength int
}

// OpenAIConfig holds configuration for the OpenAI namer.
type OpenAIConfig struct {
	// BaseURL is the API endpoint.
	BaseURL string
	// APIKey is the API key.
	APIKey string
	// Model is the model name (e.g., "gpt-4o-mini").
	Model string
	// MaxTokens is the maximum number of completion tokens.
	// For reasoning models (gpt-5, gpt-5.1), this must be large enough
	// to accommodate both reasoning tokens and the name itself.
	MaxTokens int64
	// MaxNameLength bounds the sanitized name; longer proposals are rejected.
	MaxNameLength int
	// ExtraHeaders are additional HTTP headers.
	ExtraHeaders map[string]string
}

// NewOpenAINamer creates a new OpenAI-compatible namer.
func NewOpenAINamer(cfg OpenAIConfig) *OpenAINamer {
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

	client := openai.NewClient(opts...)

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	return &OpenAINamer{
		client:        client,
		model:         cfg.Model,
		maxTokens:     maxTokens,
		maxNameLength: cfg.MaxNameLength,
	}
}

// Provider returns "openai".
func (n *OpenAINamer) Provider() string {
	return "openai"
}

// Model returns the model name.
func (n *OpenAINamer) Model() string {
	return n.model
}

// Propose sends the captured content to an OpenAI-compatible API and
// returns a validated name proposal.
func (n *OpenAINamer) Propose(ctx context.Context, req Request) (*Proposal, error) {
	systemPrompt := promptFor(req.Kind)

	// Start a GenAI generation span following OTel GenAI semantic conventions.
	// Span name: "{operation} {model}" per the convention.
	ctx, span := nameTracer.Start(ctx, "chat "+n.model,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			// GenAI semantic conventions (required + recommended)
			attribute.String("gen_ai.operation.name", "chat"),
			attribute.String("gen_ai.provider.name", "openai"),
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

	resp, err := n.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: n.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(req.Content),
		},
		MaxCompletionTokens: openai.Int(n.maxTokens),
	})
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			span.SetAttributes(attribute.String("error.type", "timeout"))
			return nil, fmt.Errorf("%w: openai: %v", ErrTimeout, err)
		}
		span.SetAttributes(attribute.String("error.type", "api_error"))
		return nil, fmt.Errorf("%w: openai: %v", ErrProcessFailed, err)
	}

	if len(resp.Choices) == 0 {
		span.SetAttributes(attribute.String("error.type", "empty_response"))
		return nil, fmt.Errorf("%w: openai returned an empty response", ErrInvalidOutput)
	}

	rawText := resp.Choices[0].Message.Content

	// Record response attributes
	span.SetAttributes(
		attribute.String("gen_ai.response.model", resp.Model),
		attribute.String("gen_ai.response.id", resp.ID),
		attribute.Int64("gen_ai.usage.input_tokens", resp.Usage.PromptTokens),
		attribute.Int64("gen_ai.usage.output_tokens", resp.Usage.CompletionTokens),
	)
	if resp.Choices[0].FinishReason != "" {
		span.SetAttributes(attribute.StringSlice("gen_ai.response.finish_reasons", []string{string(resp.Choices[0].FinishReason)}))
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
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}

// Package namer turns captured window or session content into a short
// proposed name. Implementations cover the Anthropic and OpenAI APIs
// plus arbitrary subprocess summarizers; all of them sanitize and
// validate the raw model output before returning it, so callers only
// ever see names that are safe to apply.
package namer

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"go.opentelemetry.io/otel"

	"github.com/timvw/tmux-organize/internal/model"
)

// ErrTimeout means the summarizer exceeded its hard deadline. The
// subprocess (if any) has been killed by the time this is returned.
var ErrTimeout = errors.New("summarizer timed out")

// ErrProcessFailed means the summarizer ran but failed: nonzero exit,
// API error, or an unusable transport failure.
var ErrProcessFailed = errors.New("summarizer failed")

// ErrInvalidOutput means the summarizer produced no usable name: empty,
// whitespace-only, or longer than the configured bound. Oversized names
// are rejected, never truncated and applied.
var ErrInvalidOutput = errors.New("summarizer produced no usable name")

// DefaultMaxNameLength bounds proposed names when no limit is configured.
const DefaultMaxNameLength = 60

// Request is one naming call: the target kind picks the prompt, the
// content is the captured snapshot text.
type Request struct {
	Kind    model.TargetKind
	Content string
}

// Proposal is a validated naming result.
type Proposal struct {
	// Name is the sanitized name, ready to apply.
	Name string
	// Raw is the summarizer's output before sanitization.
	Raw string
	// Usage tracks token consumption (LLM providers only).
	Usage model.TokenUsage
}

// Namer proposes a name for captured content.
type Namer interface {
	// Propose sends the captured content to the summarizer and returns a
	// validated proposal. The context deadline is the invocation's hard
	// timeout.
	Propose(ctx context.Context, req Request) (*Proposal, error)

	// Provider returns the provider name ("anthropic", "openai", "command").
	Provider() string

	// Model returns the model or command used.
	Model() string
}

var nameTracer = otel.Tracer("tmux-organize/namer")

// finish sanitizes raw summarizer output and validates the result.
func finish(raw string, limit int) (string, error) {
	if limit <= 0 {
		limit = DefaultMaxNameLength
	}
	name := Sanitize(raw)
	if name == "" {
		return "", fmt.Errorf("%w: empty output", ErrInvalidOutput)
	}
	if utf8.RuneCountInString(name) > limit {
		return "", fmt.Errorf("%w: %q exceeds %d characters", ErrInvalidOutput, name, limit)
	}
	return name, nil
}

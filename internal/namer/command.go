package namer

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// CommandNamer runs an arbitrary summarizer command. The composed
// prompt (instructions followed by the captured content) is written to
// the command's stdin; the proposed name is read from stdout. Covers
// CLI summarizers like `opencode run` without any API wiring.
type CommandNamer struct {
	argv          []string
	maxNameLength int
}

// CommandConfig holds configuration for the command namer.
type CommandConfig struct {
	// Command is the summarizer argv (e.g., ["opencode", "run", "-m", "anthropic/claude-haiku-4-5"]).
	Command []string
	// MaxNameLength bounds the sanitized name; longer proposals are rejected.
	MaxNameLength int
}

// NewCommandNamer creates a namer that shells out to cfg.Command.
func NewCommandNamer(cfg CommandConfig) (*CommandNamer, error) {
	if len(cfg.Command) == 0 {
		return nil, fmt.Errorf("command namer requires a non-empty command")
	}
	return &CommandNamer{
		argv:          cfg.Command,
		maxNameLength: cfg.MaxNameLength,
	}, nil
}

// Provider returns "command".
func (n *CommandNamer) Provider() string {
	return "command"
}

// Model returns the summarizer binary name.
func (n *CommandNamer) Model() string {
	return n.argv[0]
}

// Propose runs the summarizer command and returns a validated name
// proposal. The context deadline is enforced by killing the subprocess,
// so a hung summarizer cannot outlive its job.
func (n *CommandNamer) Propose(ctx context.Context, req Request) (*Proposal, error) {
	ctx, span := nameTracer.Start(ctx, "exec "+n.argv[0],
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("process.executable.name", n.argv[0]),
		),
	)
	defer span.End()

	cmd := exec.CommandContext(ctx, n.argv[0], n.argv[1:]...)
	cmd.Stdin = strings.NewReader(promptFor(req.Kind) + "\n\n" + req.Content)

	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			span.SetAttributes(attribute.String("error.type", "timeout"))
			return nil, fmt.Errorf("%w: %s", ErrTimeout, n.argv[0])
		}
		if exitErr, ok := err.(*exec.ExitError); ok {
			span.SetAttributes(attribute.String("error.type", "exit_error"))
			return nil, fmt.Errorf("%w: %s: %v: %s", ErrProcessFailed, n.argv[0], err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		span.SetAttributes(attribute.String("error.type", "exec_error"))
		return nil, fmt.Errorf("%w: %s: %v", ErrProcessFailed, n.argv[0], err)
	}

	rawText := string(out)
	name, err := finish(rawText, n.maxNameLength)
	if err != nil {
		span.SetAttributes(attribute.String("error.type", "invalid_output"))
		return nil, err
	}

	return &Proposal{Name: name, Raw: strings.TrimSpace(rawText)}, nil
}

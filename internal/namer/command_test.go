package namer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/timvw/tmux-organize/internal/model"
)

func TestNewCommandNamer_EmptyCommand(t *testing.T) {
	if _, err := NewCommandNamer(CommandConfig{}); err == nil {
		t.Fatal("expected error for empty command")
	}
}

func TestCommandNamer_Propose(t *testing.T) {
	n, err := NewCommandNamer(CommandConfig{Command: []string{"sh", "-c", "echo dev-notes"}})
	if err != nil {
		t.Fatalf("NewCommandNamer: %v", err)
	}

	p, err := n.Propose(context.Background(), Request{Kind: model.KindWindow, Content: "some content"})
	if err != nil {
		t.Fatalf("Propose() error: %v", err)
	}
	if p.Name != "dev-notes" {
		t.Errorf("Name = %q, want %q", p.Name, "dev-notes")
	}
}

func TestCommandNamer_ContentReachesStdin(t *testing.T) {
	// The command echoes back a marker only found in the request content.
	n, err := NewCommandNamer(CommandConfig{Command: []string{"sh", "-c", "grep -o marker-xyz | head -1"}})
	if err != nil {
		t.Fatalf("NewCommandNamer: %v", err)
	}

	p, err := n.Propose(context.Background(), Request{Kind: model.KindSession, Content: "pane shows marker-xyz here"})
	if err != nil {
		t.Fatalf("Propose() error: %v", err)
	}
	if p.Name != "marker-xyz" {
		t.Errorf("Name = %q, want %q", p.Name, "marker-xyz")
	}
}

func TestCommandNamer_NonzeroExit(t *testing.T) {
	n, err := NewCommandNamer(CommandConfig{Command: []string{"sh", "-c", "echo boom >&2; exit 3"}})
	if err != nil {
		t.Fatalf("NewCommandNamer: %v", err)
	}

	_, err = n.Propose(context.Background(), Request{Kind: model.KindWindow, Content: "x"})
	if !errors.Is(err, ErrProcessFailed) {
		t.Errorf("Propose() error = %v, want ErrProcessFailed", err)
	}
}

func TestCommandNamer_MissingBinary(t *testing.T) {
	n, err := NewCommandNamer(CommandConfig{Command: []string{"definitely-not-a-real-binary-xyz"}})
	if err != nil {
		t.Fatalf("NewCommandNamer: %v", err)
	}

	_, err = n.Propose(context.Background(), Request{Kind: model.KindWindow, Content: "x"})
	if !errors.Is(err, ErrProcessFailed) {
		t.Errorf("Propose() error = %v, want ErrProcessFailed", err)
	}
}

func TestCommandNamer_EmptyOutput(t *testing.T) {
	n, err := NewCommandNamer(CommandConfig{Command: []string{"sh", "-c", "true"}})
	if err != nil {
		t.Fatalf("NewCommandNamer: %v", err)
	}

	_, err = n.Propose(context.Background(), Request{Kind: model.KindWindow, Content: "x"})
	if !errors.Is(err, ErrInvalidOutput) {
		t.Errorf("Propose() error = %v, want ErrInvalidOutput", err)
	}
}

func TestCommandNamer_OversizedOutput(t *testing.T) {
	n, err := NewCommandNamer(CommandConfig{
		Command:       []string{"sh", "-c", "echo a-very-long-name-that-keeps-going"},
		MaxNameLength: 10,
	})
	if err != nil {
		t.Fatalf("NewCommandNamer: %v", err)
	}

	_, err = n.Propose(context.Background(), Request{Kind: model.KindWindow, Content: "x"})
	if !errors.Is(err, ErrInvalidOutput) {
		t.Errorf("Propose() error = %v, want ErrInvalidOutput", err)
	}
}

func TestCommandNamer_Timeout(t *testing.T) {
	n, err := NewCommandNamer(CommandConfig{Command: []string{"sleep", "5"}})
	if err != nil {
		t.Fatalf("NewCommandNamer: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = n.Propose(ctx, Request{Kind: model.KindWindow, Content: "x"})
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("Propose() error = %v, want ErrTimeout", err)
	}
	// The subprocess must be killed at the deadline, not awaited.
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("Propose() took %v, deadline was not enforced", elapsed)
	}
}

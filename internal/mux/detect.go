package mux

import (
	"fmt"
	"os"
	"os/exec"
)

// Detect auto-detects the terminal multiplexer. Inside tmux ($TMUX set)
// detection is immediate; outside, a running tmux server is enough for
// commands that address targets by explicit ID.
func Detect() (Multiplexer, error) {
	if os.Getenv("TMUX") != "" {
		return NewTmux(), nil
	}

	if tmuxPath, err := exec.LookPath("tmux"); err == nil && tmuxPath != "" {
		cmd := exec.Command("tmux", "list-sessions")
		if err := cmd.Run(); err == nil {
			return NewTmux(), nil
		}
	}

	return nil, fmt.Errorf("no terminal multiplexer detected (set $TMUX or start a tmux server)")
}

// FromName creates a Multiplexer by name.
func FromName(name string) (Multiplexer, error) {
	switch name {
	case "tmux":
		return NewTmux(), nil
	default:
		return nil, fmt.Errorf("unknown multiplexer: %q (supported: tmux)", name)
	}
}

package namer

import (
	_ "embed"

	"github.com/timvw/tmux-organize/internal/model"
)

// windowPrompt is the system-level instruction for naming one window.
// Loaded from prompts/window.md at compile time.
//
//go:embed prompts/window.md
var windowPrompt string

// sessionPrompt is the system-level instruction for naming a session.
// Loaded from prompts/session.md at compile time.
//
//go:embed prompts/session.md
var sessionPrompt string

// promptFor returns the system prompt for a target kind.
func promptFor(kind model.TargetKind) string {
	if kind == model.KindSession {
		return sessionPrompt
	}
	return windowPrompt
}

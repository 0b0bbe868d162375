// Package mux abstracts the terminal multiplexer the naming engine runs
// against. The tmux implementation shells out to the tmux binary. All
// queries and mutations address targets by stable IDs (window "@5",
// session "$3"), never by name or index: names are exactly what this
// program rewrites, and indexes shift when windows move.
package mux

import (
	"context"
	"errors"

	"github.com/timvw/tmux-organize/internal/model"
)

// ErrTargetGone means the window or session no longer exists. It is not
// a fault: targets legitimately disappear between trigger and apply.
var ErrTargetGone = errors.New("target gone")

// ErrHostUnreachable means the multiplexer itself could not be queried
// (no server running, binary missing, or the call timed out).
var ErrHostUnreachable = errors.New("multiplexer unreachable")

// Multiplexer is the host interface for capture, rename, and the option
// storage the status indicator and supersession tokens live in.
type Multiplexer interface {
	// Name returns the multiplexer name (e.g., "tmux").
	Name() string

	// CurrentTarget resolves the active window and session of the
	// attached client into stable-ID targets.
	CurrentTarget(ctx context.Context) (window, session model.Target, err error)

	// WindowExists and SessionExists probe whether a target is still
	// alive. A vanished target is (false, nil), not an error.
	WindowExists(ctx context.Context, windowID string) (bool, error)
	SessionExists(ctx context.Context, sessionID string) (bool, error)

	// WindowContext returns one window with its panes, including resolved
	// pane command lines.
	WindowContext(ctx context.Context, windowID string) (model.Window, error)

	// SessionContext returns a session with all its windows and panes.
	SessionContext(ctx context.Context, sessionID string) (model.Session, error)

	// CapturePane returns the visible text of a pane ("%7").
	CapturePane(ctx context.Context, paneID string) (string, error)

	// RenameWindow and RenameSession apply a proposed name to a live
	// target. They return ErrTargetGone if the target disappeared.
	RenameWindow(ctx context.Context, windowID, name string) error
	RenameSession(ctx context.Context, sessionID, name string) error

	// SessionOption reads a session option; an unset option is an empty
	// string, not an error. SetSessionOption and UnsetSessionOption
	// write and clear it.
	SessionOption(ctx context.Context, sessionID, name string) (string, error)
	SetSessionOption(ctx context.Context, sessionID, name, value string) error
	UnsetSessionOption(ctx context.Context, sessionID, name string) error

	// WindowOption and SetWindowOption are the window-scoped equivalents.
	WindowOption(ctx context.Context, windowID, name string) (string, error)
	SetWindowOption(ctx context.Context, windowID, name, value string) error
}

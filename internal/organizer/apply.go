package organizer

import (
	"context"
	"errors"

	"github.com/timvw/tmux-organize/internal/model"
	"github.com/timvw/tmux-organize/internal/mux"
)

// Generation options carry the ID of the newest job triggered for a
// target. The trigger writes its job ID here before the naming job is
// spawned; apply renames only while that ID is still current. The
// option is never unset: a stale value is harmless, and the next
// trigger overwrites it.
const (
	WindowJobOption  = "@organize_window_job"
	SessionJobOption = "@organize_session_job"
)

// ErrSuperseded means a newer trigger took over the target while this
// job was in flight. The job's result is discarded without touching the
// host or the indicator; the newer job owns both now.
var ErrSuperseded = errors.New("superseded by newer trigger")

// StampGeneration records jobID as the target's current generation.
// Called by the trigger, before the naming job starts, so that jobs
// from separate processes agree on who is newest.
func StampGeneration(ctx context.Context, host mux.Multiplexer, t model.Target, jobID string) error {
	if t.Kind == model.KindWindow {
		return host.SetWindowOption(ctx, t.WindowID, WindowJobOption, jobID)
	}
	return host.SetSessionOption(ctx, t.SessionID, SessionJobOption, jobID)
}

func currentGeneration(ctx context.Context, host mux.Multiplexer, t model.Target) (string, error) {
	if t.Kind == model.KindWindow {
		return host.WindowOption(ctx, t.WindowID, WindowJobOption)
	}
	return host.SessionOption(ctx, t.SessionID, SessionJobOption)
}

// apply writes the proposed name to the live target. It is the single
// writer of host naming state: generation check, existence re-check,
// then rename. A generation mismatch, a vanished option, or a failed
// read all mean this job no longer owns the target.
func (o *Orchestrator) apply(ctx context.Context, t model.Target, jobID, name string) error {
	current, err := currentGeneration(ctx, o.host, t)
	if err != nil || current != jobID {
		return ErrSuperseded
	}

	if t.Kind == model.KindWindow {
		exists, err := o.host.WindowExists(ctx, t.WindowID)
		if err != nil {
			return err
		}
		if !exists {
			return mux.ErrTargetGone
		}
		return o.host.RenameWindow(ctx, t.WindowID, name)
	}

	exists, err := o.host.SessionExists(ctx, t.SessionID)
	if err != nil {
		return err
	}
	if !exists {
		return mux.ErrTargetGone
	}
	return o.host.RenameSession(ctx, t.SessionID, name)
}

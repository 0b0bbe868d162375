// Package status owns the per-session naming indicator: a tri-state
// value (unset, working, failed) projected into a session option that
// the tmux status line renders. The state itself lives in-process as a
// ref-counted object; the option is only a display surface, so external
// edits to it are tolerated and never treated as errors.
package status

import (
	"context"
	"sync"
)

// Option values are the literal status-line texts, so a status-right
// conditional can render the option directly.
const (
	// WorkingText is displayed while at least one job runs.
	WorkingText = "organizing..."
	// FailedText is displayed after a failure until a later success or a
	// manual clear.
	FailedText = "organize failed"
)

// DefaultOption is the session option the indicator is projected into.
const DefaultOption = "@organize"

// State is the indicator's visible state.
type State string

const (
	// StateUnset: no job running, no standing failure.
	StateUnset State = "unset"
	// StateWorking: at least one job is running.
	StateWorking State = "working"
	// StateFailed: a job failed and no later success has cleared it.
	StateFailed State = "failed"
)

// Policy controls what a success settling after a failure does.
type Policy string

const (
	// PolicySticky keeps a failure visible unless the succeeding job was
	// started after the failure was recorded. A success that was already
	// in flight when its sibling failed does not hide the failure.
	PolicySticky Policy = "sticky"
	// PolicyLastSettled lets whichever job settles last decide the final
	// state regardless of start order.
	PolicyLastSettled Policy = "last-settled"
)

// OptionStore is the slice of the multiplexer the indicator writes
// through.
type OptionStore interface {
	SessionOption(ctx context.Context, sessionID, name string) (string, error)
	SetSessionOption(ctx context.Context, sessionID, name, value string) error
	UnsetSessionOption(ctx context.Context, sessionID, name string) error
}

// Indicator is the ref-counted indicator state for all sessions this
// process runs jobs in. Sessions are fully isolated: marks against one
// session never touch another's option.
//
// Each MarkWorking returns a Ticket that must be settled exactly once,
// with MarkIdle (success), MarkFailed (failure), or Discard (superseded,
// result thrown away). The option is written on MarkWorking and
// MarkFailed, and cleared when the last ticket settles cleanly. Discard
// records neither success nor failure; as the last settle it clears a
// working text it owns, but never erases a failure.
type Indicator struct {
	mu       sync.Mutex
	host     OptionStore
	option   string
	policy   Policy
	sessions map[string]*sessionState
}

type sessionState struct {
	refs int
	// seq numbers tickets in issue order. failedSeq remembers the newest
	// ticket issued before the most recent failure; a success from a
	// ticket above it was triggered after the failure and may clear it.
	seq       uint64
	failedSeq uint64
}

// Ticket pairs one running job with its session's ref count.
type Ticket struct {
	sessionID string
	seq       uint64
}

// SessionID returns the session the ticket belongs to.
func (t Ticket) SessionID() string {
	return t.sessionID
}

// New creates an Indicator writing through host into the given option
// name. An empty option name falls back to DefaultOption, an empty
// policy to PolicySticky.
func New(host OptionStore, option string, policy Policy) *Indicator {
	if option == "" {
		option = DefaultOption
	}
	if policy == "" {
		policy = PolicySticky
	}
	return &Indicator{
		host:     host,
		option:   option,
		policy:   policy,
		sessions: map[string]*sessionState{},
	}
}

// Option returns the option name the indicator writes.
func (i *Indicator) Option() string {
	return i.option
}

func (i *Indicator) state(sessionID string) *sessionState {
	st, ok := i.sessions[sessionID]
	if !ok {
		st = &sessionState{}
		i.sessions[sessionID] = st
	}
	return st
}

// Announce writes the working text without issuing a ticket. The
// trigger phase uses it to flip the indicator before handing off to the
// detached process, whose own MarkWorking is then an idempotent re-set.
func (i *Indicator) Announce(ctx context.Context, sessionID string) error {
	return i.host.SetSessionOption(ctx, sessionID, i.option, WorkingText)
}

// MarkWorking registers one running job and displays the working state.
// The returned error is advisory: the display write can fail (host
// gone) while the job itself should still proceed.
func (i *Indicator) MarkWorking(ctx context.Context, sessionID string) (Ticket, error) {
	i.mu.Lock()
	st := i.state(sessionID)
	st.seq++
	st.refs++
	t := Ticket{sessionID: sessionID, seq: st.seq}
	i.mu.Unlock()

	return t, i.host.SetSessionOption(ctx, sessionID, i.option, WorkingText)
}

// MarkIdle settles a ticket as a success. The option is cleared only
// when this was the last running job and no failure is standing;
// under PolicySticky a standing failure survives unless this job was
// started after the failure was recorded.
func (i *Indicator) MarkIdle(ctx context.Context, t Ticket) error {
	i.mu.Lock()
	st := i.state(t.sessionID)
	st.refs--
	if i.policy == PolicyLastSettled || t.seq > st.failedSeq {
		st.failedSeq = 0
	}
	settled := st.refs == 0 && st.failedSeq == 0
	if settled {
		delete(i.sessions, t.sessionID)
	}
	i.mu.Unlock()

	if !settled {
		return nil
	}
	return i.host.UnsetSessionOption(ctx, t.sessionID, i.option)
}

// MarkFailed settles a ticket as a failure and displays it immediately,
// even while sibling jobs are still working: a failure must be seen.
func (i *Indicator) MarkFailed(ctx context.Context, t Ticket) error {
	i.mu.Lock()
	st := i.state(t.sessionID)
	st.refs--
	st.failedSeq = st.seq
	i.mu.Unlock()

	return i.host.SetSessionOption(ctx, t.sessionID, i.option, FailedText)
}

// Discard settles a superseded ticket without recording success or
// failure. While siblings still run the display is theirs and nothing
// is written. As the last settle it unsets the option, but only when
// the option still reads WorkingText: a standing failure (possibly
// written by another process) stays visible, and any other text was
// never ours to remove.
func (i *Indicator) Discard(ctx context.Context, t Ticket) error {
	i.mu.Lock()
	st := i.state(t.sessionID)
	st.refs--
	settled := st.refs == 0 && st.failedSeq == 0
	if settled {
		delete(i.sessions, t.sessionID)
	}
	i.mu.Unlock()

	if !settled {
		return nil
	}
	value, err := i.host.SessionOption(ctx, t.sessionID, i.option)
	if err != nil || value != WorkingText {
		return err
	}
	return i.host.UnsetSessionOption(ctx, t.sessionID, i.option)
}

// Clear performs a manual reset: the option is unset and any standing
// failure forgotten. Running jobs keep their tickets; their eventual
// settles re-assert whatever is then true.
func (i *Indicator) Clear(ctx context.Context, sessionID string) error {
	i.mu.Lock()
	if st, ok := i.sessions[sessionID]; ok {
		st.failedSeq = 0
		if st.refs == 0 {
			delete(i.sessions, sessionID)
		}
	}
	i.mu.Unlock()

	return i.host.UnsetSessionOption(ctx, sessionID, i.option)
}

// Read returns the displayed state by inspecting the option value, plus
// the raw value for display texts this program did not write. A missing
// option reads as StateUnset, never as an error.
func (i *Indicator) Read(ctx context.Context, sessionID string) (State, string, error) {
	value, err := i.host.SessionOption(ctx, sessionID, i.option)
	if err != nil {
		return StateUnset, "", err
	}
	switch value {
	case "":
		return StateUnset, value, nil
	case WorkingText:
		return StateWorking, value, nil
	case FailedText:
		return StateFailed, value, nil
	default:
		return StateUnset, value, nil
	}
}

package model

import (
	"fmt"
	"strings"
	"time"
)

// TargetKind distinguishes the two things a naming job can rename.
type TargetKind string

const (
	// KindWindow names a single tmux window.
	KindWindow TargetKind = "window"
	// KindSession names a whole tmux session.
	KindSession TargetKind = "session"
)

// Target identifies what a naming job acts on. Identity is carried by
// tmux's stable IDs ("@5" for windows, "$3" for sessions), never by
// user-visible names or indexes: names are exactly what this program
// rewrites, and indexes shift when windows move.
type Target struct {
	// Kind is window or session.
	Kind TargetKind `json:"kind"`
	// SessionID is the tmux session ID (e.g., "$3"). Always set.
	SessionID string `json:"session_id"`
	// WindowID is the tmux window ID (e.g., "@5"). Empty for session targets.
	WindowID string `json:"window_id,omitempty"`
}

// WindowTarget returns a Target for one window.
func WindowTarget(sessionID, windowID string) Target {
	return Target{Kind: KindWindow, SessionID: sessionID, WindowID: windowID}
}

// SessionTarget returns a Target for a session.
func SessionTarget(sessionID string) Target {
	return Target{Kind: KindSession, SessionID: sessionID}
}

// Key returns a stable map key for the target ("window/@5", "session/$3").
// Two jobs racing for the same key are in a supersession relationship.
func (t Target) Key() string {
	if t.Kind == KindWindow {
		return string(KindWindow) + "/" + t.WindowID
	}
	return string(KindSession) + "/" + t.SessionID
}

// ID returns the tmux ID the target renames (window ID or session ID).
func (t Target) ID() string {
	if t.Kind == KindWindow {
		return t.WindowID
	}
	return t.SessionID
}

func (t Target) String() string {
	if t.Kind == KindWindow {
		return fmt.Sprintf("window %s (session %s)", t.WindowID, t.SessionID)
	}
	return fmt.Sprintf("session %s", t.SessionID)
}

// Pane describes one pane inside a window at capture time.
type Pane struct {
	// ID is the tmux pane ID (e.g., "%7").
	ID string `json:"id"`
	// Index is the pane index within its window.
	Index int `json:"index"`
	// Title is the pane title (often a hostname unless a program set it).
	Title string `json:"title,omitempty"`
	// Path is the pane's current working directory.
	Path string `json:"path"`
	// PID is the pane's shell process ID.
	PID int `json:"pid"`
	// Command is the process command line running in the pane, resolved
	// from the deepest child of the pane's shell (e.g., "vim main.go").
	Command string `json:"command,omitempty"`
	// Active marks the window's active pane.
	Active bool `json:"active,omitempty"`
	// Agent carries enrichment for panes running a known coding agent,
	// empty when enrichment is disabled or found nothing.
	Agent string `json:"agent,omitempty"`
}

// Window describes one window and its panes at capture time.
type Window struct {
	// ID is the tmux window ID (e.g., "@5").
	ID string `json:"id"`
	// Index is the window index within its session.
	Index int `json:"index"`
	// Name is the window's current (pre-rename) name.
	Name string `json:"name"`
	// Active marks the session's active window.
	Active bool `json:"active,omitempty"`
	// Panes lists the window's panes in index order.
	Panes []Pane `json:"panes"`
}

// Session describes a session and its windows at capture time.
type Session struct {
	// ID is the tmux session ID (e.g., "$3").
	ID string `json:"id"`
	// Name is the session's current (pre-rename) name.
	Name string `json:"name"`
	// Path is the session's working directory (the active pane's path).
	Path string `json:"path,omitempty"`
	// Windows lists the session's windows in index order.
	Windows []Window `json:"windows"`
}

// CapturedContext is the immutable snapshot a naming job works from.
// It is assembled once, before the job starts, and never re-read: the
// summarizer names what the user saw at trigger time, not whatever the
// target mutated into while the job was in flight.
type CapturedContext struct {
	// Target is what was captured.
	Target Target `json:"target"`
	// Text is the assembled visible content handed to the summarizer.
	Text string `json:"text"`
	// Fingerprint hashes the stable parts of the capture (commands, paths,
	// titles) and keys the proposal cache. Volatile pane text is excluded
	// so a scrolling build log does not defeat caching.
	Fingerprint string `json:"fingerprint"`
	// CapturedAt is when the snapshot was taken.
	CapturedAt time.Time `json:"captured_at"`
}

// AgentSession is one entry of the enrichment command's JSON output,
// correlating a coding-agent session with the pane it runs in.
type AgentSession struct {
	// TmuxPane is the pane the agent runs in, as a pane ID ("%7").
	// Agents record this from $TMUX_PANE.
	TmuxPane string `json:"tmux_pane"`
	// Title is the agent's own session title.
	Title string `json:"title"`
	// Status is the agent's reported state (e.g., "working", "idle").
	Status string `json:"status"`
}

// TokenUsage tracks LLM token consumption for a single naming call.
type TokenUsage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`

	// CacheReadInputTokens is the number of input tokens read from the
	// provider's prompt cache (Anthropic cache_read_input_tokens,
	// OpenAI prompt_tokens_details.cached_tokens).
	CacheReadInputTokens int64 `json:"cache_read_input_tokens,omitempty"`
	// CacheCreationInputTokens is the number of input tokens used to
	// create a new cache entry (Anthropic only).
	CacheCreationInputTokens int64 `json:"cache_creation_input_tokens,omitempty"`
}

// JobStatus is the lifecycle state of a naming job.
type JobStatus string

const (
	// JobRunning: the job was spawned and has not settled.
	JobRunning JobStatus = "running"
	// JobSucceeded: the proposed name was applied to the live target.
	JobSucceeded JobStatus = "succeeded"
	// JobFailed: capture, invocation, or apply failed; the target keeps
	// its old name and the session indicator shows the failure.
	JobFailed JobStatus = "failed"
	// JobSuperseded: a newer job for the same target took over; this
	// job's result was discarded without touching host or indicator.
	JobSuperseded JobStatus = "superseded"
)

// JobRecord is one finished (or settled) job as stored in history.
type JobRecord struct {
	// ID is the job ID ("j-<pid>-<seq>").
	ID string `json:"id"`
	// Kind is the target kind ("window" or "session").
	Kind string `json:"kind"`
	// TargetKey is Target.Key() of the renamed thing.
	TargetKey string `json:"target_key"`
	// SessionID scopes the job's status indicator.
	SessionID string `json:"session_id"`
	// Status is the settled lifecycle state.
	Status JobStatus `json:"status"`
	// Name is the applied name (succeeded jobs only).
	Name string `json:"name,omitempty"`
	// Reason is a one-line failure or discard explanation.
	Reason string `json:"reason,omitempty"`
	// Provider and Model identify the summarizer that ran (empty on
	// cache hits and early failures).
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
	// CacheHit is true when the proposal came from the name cache.
	CacheHit bool `json:"cache_hit,omitempty"`
	// StartedAt / FinishedAt bound the job's lifetime.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	// DurationMs is the wall-clock job time in milliseconds.
	DurationMs int64 `json:"duration_ms"`
}

// hostnameLike reports whether a pane title is just the machine's
// hostname, which tmux sets by default and which carries no signal.
func hostnameLike(title, hostname string) bool {
	if title == "" {
		return true
	}
	if hostname == "" {
		return false
	}
	return title == hostname || strings.HasPrefix(title, hostname+".")
}

// BuildWindowText assembles the summarizer input for a window target:
// a structured header per pane (command, path, title, agent enrichment)
// followed by a bounded tail of the active pane's visible text.
func BuildWindowText(w Window, hostname, paneTail string) string {
	var b strings.Builder
	b.WriteString("[Window]\n")
	b.WriteString(fmt.Sprintf("Current name: %s\n", w.Name))
	for _, p := range w.Panes {
		b.WriteString(fmt.Sprintf("Pane %d: %s\n", p.Index, describePane(p, hostname)))
	}
	if paneTail != "" {
		b.WriteString("\n[Visible Content]\n")
		b.WriteString(paneTail)
		if !strings.HasSuffix(paneTail, "\n") {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// BuildSessionText assembles the summarizer input for a session target:
// the session's current name and path, one line per window with its
// pane summaries, and a bounded tail of the active pane's visible text.
func BuildSessionText(name, path, hostname string, windows []Window, paneTail string) string {
	var b strings.Builder
	b.WriteString("[Session]\n")
	b.WriteString(fmt.Sprintf("Current name: %s\n", name))
	if path != "" {
		b.WriteString(fmt.Sprintf("Path: %s\n", path))
	}
	for _, w := range windows {
		marker := ""
		if w.Active {
			marker = " (active)"
		}
		b.WriteString(fmt.Sprintf("Window %d %q%s:\n", w.Index, w.Name, marker))
		for _, p := range w.Panes {
			b.WriteString(fmt.Sprintf("  Pane %d: %s\n", p.Index, describePane(p, hostname)))
		}
	}
	if paneTail != "" {
		b.WriteString("\n[Active Pane Content]\n")
		b.WriteString(paneTail)
		if !strings.HasSuffix(paneTail, "\n") {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func describePane(p Pane, hostname string) string {
	parts := []string{}
	if p.Command != "" {
		parts = append(parts, p.Command)
	}
	if p.Path != "" {
		parts = append(parts, "in "+p.Path)
	}
	if !hostnameLike(p.Title, hostname) {
		parts = append(parts, fmt.Sprintf("title %q", p.Title))
	}
	if p.Agent != "" {
		parts = append(parts, "agent: "+p.Agent)
	}
	if len(parts) == 0 {
		return "(idle shell)"
	}
	return strings.Join(parts, ", ")
}

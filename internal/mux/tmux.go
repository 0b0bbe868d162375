package mux

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/timvw/tmux-organize/internal/model"
)

// Tmux implements Multiplexer for tmux.
type Tmux struct {
	ps singleflight.Group
}

// NewTmux creates a new tmux multiplexer.
func NewTmux() *Tmux {
	return &Tmux{}
}

// Name returns "tmux".
func (t *Tmux) Name() string {
	return "tmux"
}

// CurrentTarget resolves the attached client's active window and session.
func (t *Tmux) CurrentTarget(ctx context.Context) (model.Target, model.Target, error) {
	out, err := t.run(ctx, "display-message", "-p", "#{window_id}\t#{session_id}")
	if err != nil {
		return model.Target{}, model.Target{}, err
	}
	parts := strings.SplitN(out, "\t", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return model.Target{}, model.Target{}, fmt.Errorf("unexpected display-message output %q", out)
	}
	windowID, sessionID := parts[0], parts[1]
	return model.WindowTarget(sessionID, windowID), model.SessionTarget(sessionID), nil
}

// WindowExists probes whether a window is still alive.
func (t *Tmux) WindowExists(ctx context.Context, windowID string) (bool, error) {
	_, err := t.run(ctx, "display-message", "-p", "-t", windowID, "#{window_id}")
	if errors.Is(err, ErrTargetGone) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// SessionExists probes whether a session is still alive.
func (t *Tmux) SessionExists(ctx context.Context, sessionID string) (bool, error) {
	_, err := t.run(ctx, "has-session", "-t", sessionID)
	if errors.Is(err, ErrTargetGone) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// paneFormat orders pane fields so the only free-form field (the title,
// which programs set to arbitrary text) comes last.
const paneFormat = "#{pane_id}\t#{pane_index}\t#{pane_active}\t#{pane_pid}\t#{pane_current_command}\t#{pane_current_path}\t#{pane_title}"

// WindowContext returns one window with its panes. Pane command lines
// are resolved from a single process snapshot shared across concurrent
// callers.
func (t *Tmux) WindowContext(ctx context.Context, windowID string) (model.Window, error) {
	meta, err := t.run(ctx, "display-message", "-p", "-t", windowID, "#{window_index}\t#{window_name}")
	if err != nil {
		return model.Window{}, err
	}
	metaParts := strings.SplitN(meta, "\t", 2)
	if len(metaParts) != 2 {
		return model.Window{}, fmt.Errorf("unexpected window info %q", meta)
	}
	index, _ := strconv.Atoi(metaParts[0])

	out, err := t.run(ctx, "list-panes", "-t", windowID, "-F", paneFormat)
	if err != nil {
		return model.Window{}, err
	}

	w := model.Window{ID: windowID, Index: index, Name: metaParts[1]}
	snapshot := t.processSnapshot()
	for _, line := range splitLines(out) {
		pane, ok := parsePaneLine(line)
		if !ok {
			continue
		}
		pane.Command = resolveCommand(snapshot, pane.PID, pane.Command)
		w.Panes = append(w.Panes, pane)
	}
	return w, nil
}

// SessionContext returns a session with all windows and panes. One
// list-panes -s call covers every pane; panes are grouped by window ID.
func (t *Tmux) SessionContext(ctx context.Context, sessionID string) (model.Session, error) {
	meta, err := t.run(ctx, "display-message", "-p", "-t", sessionID, "#{session_name}\t#{session_path}")
	if err != nil {
		return model.Session{}, err
	}
	metaParts := strings.SplitN(meta, "\t", 2)
	if len(metaParts) != 2 {
		return model.Session{}, fmt.Errorf("unexpected session info %q", meta)
	}

	winOut, err := t.run(ctx, "list-windows", "-t", sessionID, "-F",
		"#{window_id}\t#{window_index}\t#{window_name}\t#{window_active}")
	if err != nil {
		return model.Session{}, err
	}

	s := model.Session{ID: sessionID, Name: metaParts[0], Path: metaParts[1]}
	byID := map[string]int{}
	for _, line := range splitLines(winOut) {
		parts := strings.SplitN(line, "\t", 4)
		if len(parts) != 4 {
			continue
		}
		index, _ := strconv.Atoi(parts[1])
		byID[parts[0]] = len(s.Windows)
		s.Windows = append(s.Windows, model.Window{
			ID:     parts[0],
			Index:  index,
			Name:   parts[2],
			Active: parts[3] == "1",
		})
	}

	paneOut, err := t.run(ctx, "list-panes", "-s", "-t", sessionID, "-F", "#{window_id}\t"+paneFormat)
	if err != nil {
		return model.Session{}, err
	}
	snapshot := t.processSnapshot()
	for _, line := range splitLines(paneOut) {
		parts := strings.SplitN(line, "\t", 2)
		if len(parts) != 2 {
			continue
		}
		idx, ok := byID[parts[0]]
		if !ok {
			continue
		}
		pane, ok := parsePaneLine(parts[1])
		if !ok {
			continue
		}
		pane.Command = resolveCommand(snapshot, pane.PID, pane.Command)
		s.Windows[idx].Panes = append(s.Windows[idx].Panes, pane)
	}
	return s, nil
}

// CapturePane captures the visible content of a pane.
// Uses -p (stdout) and -J (joined, unwraps lines).
func (t *Tmux) CapturePane(ctx context.Context, paneID string) (string, error) {
	out, err := t.run(ctx, "capture-pane", "-t", paneID, "-p", "-J")
	if err != nil {
		return "", fmt.Errorf("capture-pane -t %s: %w", paneID, err)
	}
	return out, nil
}

// RenameWindow renames a window addressed by its window ID.
func (t *Tmux) RenameWindow(ctx context.Context, windowID, name string) error {
	_, err := t.run(ctx, "rename-window", "-t", windowID, name)
	return err
}

// RenameSession renames a session addressed by its session ID.
func (t *Tmux) RenameSession(ctx context.Context, sessionID, name string) error {
	_, err := t.run(ctx, "rename-session", "-t", sessionID, name)
	return err
}

// SessionOption reads a session option. The -q flag makes tmux print
// nothing for unset options instead of erroring, so absence reads as "".
func (t *Tmux) SessionOption(ctx context.Context, sessionID, name string) (string, error) {
	out, err := t.run(ctx, "show-options", "-qv", "-t", sessionID, name)
	if err != nil {
		return "", err
	}
	return out, nil
}

// SetSessionOption writes a session option.
func (t *Tmux) SetSessionOption(ctx context.Context, sessionID, name, value string) error {
	_, err := t.run(ctx, "set-option", "-t", sessionID, name, value)
	return err
}

// UnsetSessionOption clears a session option. Clearing an already-unset
// option is not an error.
func (t *Tmux) UnsetSessionOption(ctx context.Context, sessionID, name string) error {
	_, err := t.run(ctx, "set-option", "-u", "-t", sessionID, name)
	return err
}

// WindowOption reads a window option, "" when unset.
func (t *Tmux) WindowOption(ctx context.Context, windowID, name string) (string, error) {
	out, err := t.run(ctx, "show-options", "-w", "-qv", "-t", windowID, name)
	if err != nil {
		return "", err
	}
	return out, nil
}

// SetWindowOption writes a window option.
func (t *Tmux) SetWindowOption(ctx context.Context, windowID, name, value string) error {
	_, err := t.run(ctx, "set-option", "-w", "-t", windowID, name, value)
	return err
}

// run executes a tmux command and returns its stdout with trailing
// newlines removed. Only trailing newlines: trimming all whitespace
// would eat the leading tabs that mark empty fields in tab-delimited
// format output.
func (t *Tmux) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "tmux", args...)
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", classifyExit(exitErr)
		}
		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: %v", ErrHostUnreachable, ctx.Err())
		}
		return "", fmt.Errorf("%w: %v", ErrHostUnreachable, err)
	}
	return strings.TrimRight(string(out), "\n"), nil
}

// classifyExit maps tmux's stderr to the error taxonomy. tmux reports
// missing targets as "can't find window/session/pane" and a dead server
// as "no server running" or "error connecting".
func classifyExit(exitErr *exec.ExitError) error {
	stderr := strings.TrimSpace(string(exitErr.Stderr))
	lower := strings.ToLower(stderr)
	switch {
	case strings.Contains(lower, "can't find"), strings.Contains(lower, "not found"):
		return fmt.Errorf("%w: %s", ErrTargetGone, stderr)
	case strings.Contains(lower, "no server running"), strings.Contains(lower, "error connecting"):
		return fmt.Errorf("%w: %s", ErrHostUnreachable, stderr)
	default:
		return fmt.Errorf("tmux: %w: %s", exitErr, stderr)
	}
}

func splitLines(out string) []string {
	if out == "" {
		return nil
	}
	var lines []string
	for _, line := range strings.Split(out, "\n") {
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// parsePaneLine parses one paneFormat line. The title field is last and
// may itself be empty; SplitN keeps empty middle fields intact.
func parsePaneLine(line string) (model.Pane, bool) {
	parts := strings.SplitN(line, "\t", 7)
	if len(parts) != 7 {
		return model.Pane{}, false
	}
	index, _ := strconv.Atoi(parts[1])
	pid, _ := strconv.Atoi(parts[3])
	return model.Pane{
		ID:      parts[0],
		Index:   index,
		Active:  parts[2] == "1",
		PID:     pid,
		Command: parts[4],
		Path:    parts[5],
		Title:   parts[6],
	}, true
}

// Command resolution walks the first-child chain of the pane's shell a
// few levels deep: "zsh" carrying "npm exec vitest" is named after the
// test run, not the shell. Capped so wrapper chains stay readable.
const maxCommandDepth = 3
const maxCommandLength = 120

type procEntry struct {
	pid  int
	args string
}

// processSnapshot snapshots all processes with one "ps -eo" call and
// returns a parent PID -> children map. Concurrent callers (the window
// and session jobs capture at the same time) share a single ps run via
// singleflight. Returns nil on any error; process info is best-effort.
func (t *Tmux) processSnapshot() map[int][]procEntry {
	v, _, _ := t.ps.Do("snapshot", func() (interface{}, error) {
		return scanProcesses(), nil
	})
	snapshot, _ := v.(map[int][]procEntry)
	return snapshot
}

func scanProcesses() map[int][]procEntry {
	out, err := exec.Command("ps", "-eo", "pid=,ppid=,args=").Output()
	if err != nil {
		return nil
	}
	children := map[int][]procEntry{}
	for _, line := range strings.Split(string(out), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		pid, err1 := strconv.Atoi(fields[0])
		ppid, err2 := strconv.Atoi(fields[1])
		if err1 != nil || err2 != nil {
			continue
		}
		children[ppid] = append(children[ppid], procEntry{pid: pid, args: strings.Join(fields[2:], " ")})
	}
	return children
}

// resolveCommand picks the deepest first-child command line under the
// pane's shell PID, falling back to tmux's pane_current_command.
func resolveCommand(children map[int][]procEntry, pid int, fallback string) string {
	if pid <= 0 || children == nil {
		return fallback
	}
	args := fallback
	cur := pid
	for depth := 0; depth < maxCommandDepth; depth++ {
		kids := children[cur]
		if len(kids) == 0 {
			break
		}
		args = kids[0].args
		cur = kids[0].pid
	}
	if len(args) > maxCommandLength {
		args = args[:maxCommandLength]
	}
	return args
}

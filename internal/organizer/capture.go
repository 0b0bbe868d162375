package organizer

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/timvw/tmux-organize/internal/model"
	"github.com/timvw/tmux-organize/internal/mux"
)

// Capture bounds. The summarizer needs to see what the user is doing,
// not the whole scrollback.
const (
	paneTailLines    = 40
	paneTailMaxBytes = 4096
)

// Capture assembles the immutable snapshot a naming job works from. It
// re-verifies the target exists, reads structure and the active pane's
// visible tail, and fingerprints the stable parts for the name cache.
// The whole phase runs under its own short deadline; exceeding it reads
// as the host being unreachable.
func (o *Orchestrator) Capture(ctx context.Context, t model.Target) (model.CapturedContext, error) {
	cctx, cancel := context.WithTimeout(ctx, o.captureTimeout)
	defer cancel()

	hostname, _ := os.Hostname()

	if t.Kind == model.KindWindow {
		return o.captureWindow(cctx, t, hostname)
	}
	return o.captureSession(cctx, t, hostname)
}

func (o *Orchestrator) captureWindow(ctx context.Context, t model.Target, hostname string) (model.CapturedContext, error) {
	exists, err := o.host.WindowExists(ctx, t.WindowID)
	if err != nil {
		return model.CapturedContext{}, err
	}
	if !exists {
		return model.CapturedContext{}, mux.ErrTargetGone
	}

	w, err := o.host.WindowContext(ctx, t.WindowID)
	if err != nil {
		return model.CapturedContext{}, err
	}
	o.enricher.Annotate(ctx, w.Panes)

	tail, err := o.paneTail(ctx, activePane(w.Panes))
	if err != nil {
		return model.CapturedContext{}, err
	}

	return model.CapturedContext{
		Target:      t,
		Text:        model.BuildWindowText(w, hostname, tail),
		Fingerprint: contentFingerprint(t.Key(), w.Panes),
		CapturedAt:  time.Now(),
	}, nil
}

func (o *Orchestrator) captureSession(ctx context.Context, t model.Target, hostname string) (model.CapturedContext, error) {
	exists, err := o.host.SessionExists(ctx, t.SessionID)
	if err != nil {
		return model.CapturedContext{}, err
	}
	if !exists {
		return model.CapturedContext{}, mux.ErrTargetGone
	}

	s, err := o.host.SessionContext(ctx, t.SessionID)
	if err != nil {
		return model.CapturedContext{}, err
	}

	paneSets := make([][]model.Pane, 0, len(s.Windows))
	for i := range s.Windows {
		paneSets = append(paneSets, s.Windows[i].Panes)
	}
	o.enricher.Annotate(ctx, paneSets...)

	// The tail comes from the active window's active pane, the screen
	// the user was looking at when they triggered.
	var tail string
	for i := range s.Windows {
		if !s.Windows[i].Active {
			continue
		}
		tail, err = o.paneTail(ctx, activePane(s.Windows[i].Panes))
		if err != nil {
			return model.CapturedContext{}, err
		}
		break
	}

	return model.CapturedContext{
		Target:      t,
		Text:        model.BuildSessionText(s.Name, s.Path, hostname, s.Windows, tail),
		Fingerprint: contentFingerprint(t.Key(), paneSets...),
		CapturedAt:  time.Now(),
	}, nil
}

// paneTail captures a pane's visible text, bounded. A pane vanishing
// under us degrades to an empty tail; the structural header still gives
// the summarizer something to name.
func (o *Orchestrator) paneTail(ctx context.Context, pane *model.Pane) (string, error) {
	if pane == nil {
		return "", nil
	}
	text, err := o.host.CapturePane(ctx, pane.ID)
	if err != nil {
		if errors.Is(err, mux.ErrTargetGone) {
			return "", nil
		}
		return "", err
	}
	return tailText(text, paneTailLines, paneTailMaxBytes), nil
}

func activePane(panes []model.Pane) *model.Pane {
	for i := range panes {
		if panes[i].Active {
			return &panes[i]
		}
	}
	if len(panes) > 0 {
		return &panes[0]
	}
	return nil
}

// tailText keeps the last maxLines non-blank-trailing lines, capped at
// maxBytes from the end (the most recent output matters most).
func tailText(text string, maxLines, maxBytes int) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) > maxLines {
		lines = lines[len(lines)-maxLines:]
	}
	out := strings.Join(lines, "\n")
	if len(out) > maxBytes {
		out = out[len(out)-maxBytes:]
		if i := strings.IndexByte(out, '\n'); i >= 0 && i+1 < len(out) {
			out = out[i+1:]
		}
	}
	return out
}

// contentFingerprint hashes the stable parts of a capture: pane
// commands, paths, and titles. Volatile pane text is excluded so a
// scrolling build log does not defeat caching; window and session names
// are excluded because they are exactly what this program rewrites.
func contentFingerprint(key string, paneSets ...[]model.Pane) string {
	var b strings.Builder
	b.WriteString(key)
	for _, panes := range paneSets {
		for _, p := range panes {
			b.WriteString("\x00")
			b.WriteString(p.Command)
			b.WriteString("\x00")
			b.WriteString(p.Path)
			b.WriteString("\x00")
			b.WriteString(p.Title)
		}
	}
	sum := sha256.Sum256([]byte(b.String()))
	return fmt.Sprintf("%x", sum)
}

package organizer

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/timvw/tmux-organize/internal/model"
)

// Enricher runs an optional user-configured command that reports coding
// agent sessions as JSON and annotates captured panes with the agent's
// own title and status. An agent's session title usually names the work
// better than the pane's command line does.
//
// Enrichment is strictly best-effort: a missing command, timeout, bad
// exit, or unparseable output all degrade to no annotations.
type Enricher struct {
	argv    []string
	timeout time.Duration
	group   singleflight.Group
}

// NewEnricher builds an enricher for the configured argv. Returns nil
// when argv is empty; a nil Enricher annotates nothing.
func NewEnricher(argv []string, timeout time.Duration) *Enricher {
	if len(argv) == 0 {
		return nil
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Enricher{argv: argv, timeout: timeout}
}

// Annotate tags panes whose IDs match a reported agent session. All pane
// slices share one subprocess run.
func (e *Enricher) Annotate(ctx context.Context, paneSets ...[]model.Pane) {
	if e == nil {
		return
	}
	agents := e.sessions(ctx)
	if len(agents) == 0 {
		return
	}
	for _, panes := range paneSets {
		for i := range panes {
			if a, ok := agents[panes[i].ID]; ok {
				panes[i].Agent = formatAgent(a)
			}
		}
	}
}

// sessions returns agent sessions indexed by pane ID. The window and
// session jobs capture concurrently; singleflight collapses their
// overlapping lookups into one subprocess run.
func (e *Enricher) sessions(ctx context.Context) map[string]model.AgentSession {
	v, _, _ := e.group.Do("agents", func() (interface{}, error) {
		return e.query(ctx), nil
	})
	byPane, _ := v.(map[string]model.AgentSession)
	return byPane
}

// query runs the enrichment command and indexes its output by pane ID.
func (e *Enricher) query(ctx context.Context) map[string]model.AgentSession {
	cctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, e.argv[0], e.argv[1:]...)
	out, err := cmd.Output()
	if err != nil {
		orgLog.Debug("enrichment command failed", "command", e.argv[0], "error", err)
		return nil
	}

	var list []model.AgentSession
	if err := json.Unmarshal(out, &list); err != nil {
		orgLog.Debug("enrichment output is not valid JSON", "command", e.argv[0], "error", err)
		return nil
	}

	byPane := make(map[string]model.AgentSession, len(list))
	for _, a := range list {
		if a.TmuxPane != "" {
			byPane[a.TmuxPane] = a
		}
	}
	return byPane
}

func formatAgent(a model.AgentSession) string {
	switch {
	case a.Title != "" && a.Status != "":
		return fmt.Sprintf("%s (%s)", a.Title, a.Status)
	case a.Title != "":
		return a.Title
	default:
		return a.Status
	}
}

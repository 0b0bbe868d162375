package organizer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/timvw/tmux-organize/internal/model"
)

func TestEnricher_AnnotatesMatchingPanes(t *testing.T) {
	e := NewEnricher([]string{"sh", "-c",
		`echo '[{"tmux_pane":"%1","title":"fix flaky tests","status":"working"}]'`,
	}, time.Second)

	panes := []model.Pane{
		{ID: "%1", Command: "claude"},
		{ID: "%2", Command: "vim main.go"},
	}
	e.Annotate(context.Background(), panes)

	if got := panes[0].Agent; got != "fix flaky tests (working)" {
		t.Errorf("pane %%1 agent = %q, want %q", got, "fix flaky tests (working)")
	}
	if panes[1].Agent != "" {
		t.Errorf("pane %%2 agent = %q, want empty", panes[1].Agent)
	}
}

func TestEnricher_SharesOneRunAcrossPaneSets(t *testing.T) {
	// The marker file counts invocations.
	dir := t.TempDir()
	e := NewEnricher([]string{"sh", "-c",
		`echo run >> ` + dir + `/count; echo '[{"tmux_pane":"%1","title":"t","status":"idle"}]'`,
	}, time.Second)

	a := []model.Pane{{ID: "%1"}}
	b := []model.Pane{{ID: "%1"}}
	e.Annotate(context.Background(), a, b)

	if a[0].Agent == "" || b[0].Agent == "" {
		t.Errorf("agents = %q/%q, want both annotated", a[0].Agent, b[0].Agent)
	}
	if got := countRuns(t, dir); got != 1 {
		t.Errorf("command ran %d times for one Annotate, want 1", got)
	}
}

func TestEnricher_ConcurrentAnnotatesShareOneRun(t *testing.T) {
	dir := t.TempDir()
	// The sleep holds the first run in flight long enough for the second
	// caller to join it.
	e := NewEnricher([]string{"sh", "-c",
		`echo run >> ` + dir + `/count; sleep 0.3; echo '[{"tmux_pane":"%1","title":"t","status":"idle"}]'`,
	}, 5*time.Second)

	a := []model.Pane{{ID: "%1"}}
	b := []model.Pane{{ID: "%1"}}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); e.Annotate(context.Background(), a) }()
	go func() { defer wg.Done(); e.Annotate(context.Background(), b) }()
	wg.Wait()

	if a[0].Agent == "" || b[0].Agent == "" {
		t.Errorf("agents = %q/%q, want both annotated", a[0].Agent, b[0].Agent)
	}
	if got := countRuns(t, dir); got != 1 {
		t.Errorf("command ran %d times for concurrent Annotates, want 1", got)
	}
}

// countRuns counts lines in the marker file the test commands append to.
func countRuns(t *testing.T, dir string) int {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, "count"))
	if err != nil {
		t.Fatalf("reading run marker: %v", err)
	}
	return len(strings.Split(strings.TrimRight(string(data), "\n"), "\n"))
}

func TestEnricher_NilAnnotatesNothing(t *testing.T) {
	e := NewEnricher(nil, time.Second)
	if e != nil {
		t.Fatal("empty argv should yield a nil enricher")
	}

	panes := []model.Pane{{ID: "%1"}}
	e.Annotate(context.Background(), panes)
	if panes[0].Agent != "" {
		t.Errorf("agent = %q, want empty", panes[0].Agent)
	}
}

func TestEnricher_BadOutputDegrades(t *testing.T) {
	e := NewEnricher([]string{"sh", "-c", "echo not-json"}, time.Second)

	panes := []model.Pane{{ID: "%1"}}
	e.Annotate(context.Background(), panes)
	if panes[0].Agent != "" {
		t.Errorf("agent = %q, want empty on bad output", panes[0].Agent)
	}
}

func TestEnricher_FailingCommandDegrades(t *testing.T) {
	e := NewEnricher([]string{"sh", "-c", "exit 1"}, time.Second)

	panes := []model.Pane{{ID: "%1"}}
	e.Annotate(context.Background(), panes)
	if panes[0].Agent != "" {
		t.Errorf("agent = %q, want empty on command failure", panes[0].Agent)
	}
}

func TestFormatAgent(t *testing.T) {
	cases := []struct {
		title, status, want string
	}{
		{"fix tests", "working", "fix tests (working)"},
		{"fix tests", "", "fix tests"},
		{"", "idle", "idle"},
	}
	for _, c := range cases {
		got := formatAgent(model.AgentSession{Title: c.title, Status: c.status})
		if got != c.want {
			t.Errorf("formatAgent(%q, %q) = %q, want %q", c.title, c.status, got, c.want)
		}
	}
}

package model

import (
	"strings"
	"testing"
)

func TestTarget_Key(t *testing.T) {
	tests := []struct {
		name   string
		target Target
		want   string
	}{
		{
			name:   "window target keyed by window ID",
			target: WindowTarget("$3", "@5"),
			want:   "window/@5",
		},
		{
			name:   "session target keyed by session ID",
			target: SessionTarget("$3"),
			want:   "session/$3",
		},
		{
			name:   "same window in different sessions shares a key",
			target: WindowTarget("$9", "@5"),
			want:   "window/@5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.target.Key(); got != tt.want {
				t.Errorf("Key() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTarget_ID(t *testing.T) {
	w := WindowTarget("$1", "@2")
	if got := w.ID(); got != "@2" {
		t.Errorf("window ID() = %q, want %q", got, "@2")
	}
	s := SessionTarget("$1")
	if got := s.ID(); got != "$1" {
		t.Errorf("session ID() = %q, want %q", got, "$1")
	}
}

func TestBuildWindowText(t *testing.T) {
	tests := []struct {
		name     string
		window   Window
		hostname string
		tail     string
		contains []string
		excludes []string
	}{
		{
			name: "panes with commands and paths",
			window: Window{
				ID:   "@1",
				Name: "zsh",
				Panes: []Pane{
					{Index: 0, Command: "vim main.go", Path: "/home/u/proj", Title: "devbox"},
					{Index: 1, Command: "go test ./...", Path: "/home/u/proj"},
				},
			},
			hostname: "devbox",
			tail:     "=== RUN TestFoo\n--- PASS",
			contains: []string{
				"[Window]",
				"Current name: zsh",
				"Pane 0: vim main.go, in /home/u/proj",
				"Pane 1: go test ./..., in /home/u/proj",
				"[Visible Content]",
				"--- PASS",
			},
			// Default hostname titles carry no signal and must be dropped.
			excludes: []string{`title "devbox"`},
		},
		{
			name: "custom pane title survives",
			window: Window{
				Name:  "misc",
				Panes: []Pane{{Index: 0, Title: "db console", Path: "/tmp"}},
			},
			hostname: "devbox",
			contains: []string{`title "db console"`},
		},
		{
			name: "agent annotation included",
			window: Window{
				Name:  "ai",
				Panes: []Pane{{Index: 0, Command: "opencode", Path: "/w", Agent: "fix auth bug (working)"}},
			},
			hostname: "devbox",
			contains: []string{"agent: fix auth bug (working)"},
		},
		{
			name:     "empty window still produces a header",
			window:   Window{Name: "bash", Panes: []Pane{{Index: 0}}},
			hostname: "devbox",
			contains: []string{"[Window]", "Pane 0: (idle shell)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildWindowText(tt.window, tt.hostname, tt.tail)
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("BuildWindowText() missing %q in:\n%s", want, got)
				}
			}
			for _, not := range tt.excludes {
				if strings.Contains(got, not) {
					t.Errorf("BuildWindowText() should not contain %q:\n%s", not, got)
				}
			}
		})
	}
}

func TestBuildSessionText(t *testing.T) {
	windows := []Window{
		{Index: 0, Name: "editor", Active: true, Panes: []Pane{
			{Index: 0, Command: "nvim", Path: "/home/u/api"},
		}},
		{Index: 1, Name: "server", Panes: []Pane{
			{Index: 0, Command: "go run ./cmd/api", Path: "/home/u/api"},
			{Index: 1, Command: "tail -f api.log", Path: "/home/u/api"},
		}},
	}

	got := BuildSessionText("api", "/home/u/api", "devbox", windows, "listening on :8080")

	for _, want := range []string{
		"[Session]",
		"Current name: api",
		"Path: /home/u/api",
		`Window 0 "editor" (active):`,
		`Window 1 "server":`,
		"  Pane 1: tail -f api.log, in /home/u/api",
		"[Active Pane Content]",
		"listening on :8080",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("BuildSessionText() missing %q in:\n%s", want, got)
		}
	}
}

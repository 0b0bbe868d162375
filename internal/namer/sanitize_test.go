package namer

import (
	"errors"
	"strings"
	"testing"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "clean slug unchanged",
			input: "api-server",
			want:  "api-server",
		},
		{
			name:  "surrounding whitespace trimmed",
			input: "  my-project \n",
			want:  "my-project",
		},
		{
			name:  "spaces become hyphens",
			input: "api server logs",
			want:  "api-server-logs",
		},
		{
			name:  "newlines become hyphens",
			input: "build\npipeline",
			want:  "build-pipeline",
		},
		{
			name:  "control characters dropped",
			input: "dev\x00not\x07es",
			want:  "devnotes",
		},
		{
			name:  "surrounding quotes stripped",
			input: `"auth-fix"`,
			want:  "auth-fix",
		},
		{
			name:  "fenced output unwrapped",
			input: "```\napi-server\n```",
			want:  "api-server",
		},
		{
			name:  "fenced with language unwrapped",
			input: "```text\nrelease-prep\n```",
			want:  "release-prep",
		},
		{
			name:  "empty input",
			input: "",
			want:  "",
		},
		{
			name:  "whitespace only",
			input: " \n\t ",
			want:  "",
		},
		{
			name:  "whitespace runs collapse to one hyphen",
			input: "spec   review \t notes",
			want:  "spec-review-notes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sanitize(tt.input); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestStripMarkdownFences(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "plain text unchanged",
			input: "session-name",
			want:  "session-name",
		},
		{
			name:  "fenced block",
			input: "```\nsession-name\n```",
			want:  "session-name",
		},
		{
			name:  "fenced with language",
			input: "```text\nsession-name\n```",
			want:  "session-name",
		},
		{
			name:  "fenced with surrounding whitespace",
			input: "  ```\nvalue\n```  ",
			want:  "value",
		},
		{
			name:  "empty string",
			input: "",
			want:  "",
		},
		{
			name:  "only fences no content",
			input: "```text\n```",
			want:  "",
		},
		{
			name:  "backticks inside content preserved",
			input: "use `make` here",
			want:  "use `make` here",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := stripMarkdownFences(tt.input)
			if got != tt.want {
				t.Errorf("stripMarkdownFences(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestFinish(t *testing.T) {
	t.Run("valid name passes", func(t *testing.T) {
		got, err := finish("fix auth bug\n", 60)
		if err != nil {
			t.Fatalf("finish() error: %v", err)
		}
		if got != "fix-auth-bug" {
			t.Errorf("finish() = %q, want %q", got, "fix-auth-bug")
		}
	})

	t.Run("empty output rejected", func(t *testing.T) {
		_, err := finish("   \n ", 60)
		if !errors.Is(err, ErrInvalidOutput) {
			t.Errorf("finish() error = %v, want ErrInvalidOutput", err)
		}
	})

	t.Run("oversized name rejected not truncated", func(t *testing.T) {
		long := strings.Repeat("x", 80)
		_, err := finish(long, 60)
		if !errors.Is(err, ErrInvalidOutput) {
			t.Errorf("finish() error = %v, want ErrInvalidOutput", err)
		}
	})

	t.Run("zero limit uses default", func(t *testing.T) {
		ok := strings.Repeat("y", DefaultMaxNameLength)
		got, err := finish(ok, 0)
		if err != nil {
			t.Fatalf("finish() error: %v", err)
		}
		if got != ok {
			t.Errorf("finish() = %q, want %q", got, ok)
		}

		over := strings.Repeat("y", DefaultMaxNameLength+1)
		if _, err := finish(over, 0); !errors.Is(err, ErrInvalidOutput) {
			t.Errorf("finish() error = %v, want ErrInvalidOutput", err)
		}
	})
}

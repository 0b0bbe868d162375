package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInitWritesJSON(t *testing.T) {
	Shutdown()

	dir := t.TempDir()
	if err := Init(Config{LogDir: dir, Format: "json"}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer Shutdown()

	l := Logger()
	if l == nil {
		t.Fatal("expected non-nil logger after Init")
	}

	l.Info("test_message", "key", "value")

	data, err := os.ReadFile(filepath.Join(dir, "organize.log"))
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("log file is empty")
	}

	var record map[string]any
	line, _, _ := strings.Cut(string(data), "\n")
	if err := json.Unmarshal([]byte(line), &record); err != nil {
		t.Fatalf("failed to parse JSONL: %v (line: %s)", err, line)
	}
	if record["msg"] != "test_message" {
		t.Errorf("expected msg=test_message, got %v", record["msg"])
	}
	if record["key"] != "value" {
		t.Errorf("expected key=value, got %v", record["key"])
	}
}

func TestInitNoDirDiscards(t *testing.T) {
	Shutdown()

	if err := Init(Config{}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer Shutdown()

	l := Logger()
	if l == nil {
		t.Fatal("expected non-nil logger even without a log dir")
	}

	// Should not panic
	l.Info("this goes nowhere")
}

func TestForComponent(t *testing.T) {
	Shutdown()

	dir := t.TempDir()

	// Component loggers created before Init must still reach the file.
	cl := ForComponent(CompOrganizer)

	if err := Init(Config{LogDir: dir, Format: "json"}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer Shutdown()

	cl.Info("job_started", "target", "window/@1")

	data, err := os.ReadFile(filepath.Join(dir, "organize.log"))
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}

	var record map[string]any
	line, _, _ := strings.Cut(string(data), "\n")
	if err := json.Unmarshal([]byte(line), &record); err != nil {
		t.Fatalf("failed to parse JSONL: %v", err)
	}
	if record["component"] != CompOrganizer {
		t.Errorf("expected component=%s, got %v", CompOrganizer, record["component"])
	}
	if record["target"] != "window/@1" {
		t.Errorf("expected target=window/@1, got %v", record["target"])
	}
}

func TestLevelFiltering(t *testing.T) {
	Shutdown()

	dir := t.TempDir()
	if err := Init(Config{LogDir: dir, Level: "warn"}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer Shutdown()

	l := Logger()
	l.Info("should_be_filtered")
	l.Warn("should_appear")

	data, err := os.ReadFile(filepath.Join(dir, "organize.log"))
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}

	content := string(data)
	if strings.Contains(content, "should_be_filtered") {
		t.Error("info message should have been filtered at warn level")
	}
	if !strings.Contains(content, "should_appear") {
		t.Error("warn message should have appeared")
	}
}

func TestTextFormatDefault(t *testing.T) {
	Shutdown()

	dir := t.TempDir()
	if err := Init(Config{LogDir: dir}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer Shutdown()

	Logger().Info("text_format_test")

	data, err := os.ReadFile(filepath.Join(dir, "organize.log"))
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}

	// Text format should NOT be valid JSON
	var record map[string]any
	if err := json.Unmarshal(data, &record); err == nil {
		t.Error("expected text format, but got valid JSON")
	}
	if !strings.Contains(string(data), "text_format_test") {
		t.Error("log line missing message")
	}
}

package logging_test

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sermonmux/internal/logging"
)

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-info.log")

	logger, err := logging.New(logging.Options{
		Format:      "console",
		Level:       "info",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("message without caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(content), ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", content)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-debug.log")

	logger, err := logging.New(logging.Options{
		Format:      "console",
		Level:       "debug",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("message with caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "logger_test.go:") {
		t.Fatalf("expected caller information in debug logs, got %q", content)
	}
}

func TestConsoleLoggerRendersSubjectAndBullets(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")

	logger, err := logging.New(logging.Options{
		Format:      "console",
		Level:       "info",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger = logging.NewComponentLogger(logger, "upload")
	logger.Info("upload progress",
		logging.String(logging.FieldRunID, "1a2b3c4d5e6f"),
		logging.String(logging.FieldLanguage, "ru"),
		logging.String(logging.FieldStage, "upload"),
		logging.Float64(logging.FieldProgressPercent, 42.5),
		logging.Int64("uploaded_bytes", 2*1024*1024),
	)

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	text := string(content)
	for _, want := range []string{
		"INFO [upload] Run 1a2b3c4d · RU (upload) – upload progress",
		"    - Progress: 42.5%",
		"    - Uploaded: 2.0 MiB",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in output, got %q", want, text)
		}
	}
	if strings.Contains(text, "Run Id") {
		t.Fatalf("subject fields should not repeat as bullets: %q", text)
	}
}

func TestJSONLoggerWritesStructuredRecords(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "out.json")

	logger, err := logging.New(logging.Options{
		Format:      "json",
		Level:       "info",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Warn("engine failed", logging.String(logging.FieldErrorClass, "engine_execution_failed"), logging.Error(errors.New("exit 1")))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(content))), &record); err != nil {
		t.Fatalf("decode json record: %v", err)
	}
	if record["msg"] != "engine failed" || record["level"] != "warn" {
		t.Fatalf("unexpected record: %v", record)
	}
	if record[logging.FieldErrorClass] != "engine_execution_failed" {
		t.Fatalf("expected error_class field, got %v", record)
	}
	if _, ok := record["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", record)
	}
}

func TestFilePathReceivesJSONCopy(t *testing.T) {
	dir := t.TempDir()
	consolePath := filepath.Join(dir, "console.log")
	filePath := filepath.Join(dir, "nested", "run.log")

	logger, err := logging.New(logging.Options{
		Format:      "console",
		OutputPaths: []string{consolePath},
		FilePath:    filePath,
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("hello")

	data, err := os.ReadFile(filePath)
	if err != nil {
		t.Fatalf("read file copy: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"hello"`) {
		t.Fatalf("expected json copy, got %q", data)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestParseLevel(t *testing.T) {
	if _, ok := logging.ParseLevel("verbose"); ok {
		t.Fatal("expected verbose to be rejected")
	}
	if lvl, ok := logging.ParseLevel("WARNING"); !ok || lvl.String() != "WARN" {
		t.Fatalf("unexpected parse result %v %v", lvl, ok)
	}
}

func TestWarnWithContextFillsDefaults(t *testing.T) {
	hub := logging.NewStreamHub(8)
	logger, err := logging.New(logging.Options{
		OutputPaths: []string{filepath.Join(t.TempDir(), "x.log")},
		Stream:      hub,
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logger, "artifact missing", "artifact_missing")

	events, _ := hub.Tail(1)
	if len(events) != 1 {
		t.Fatalf("expected one event, got %d", len(events))
	}
	fields := events[0].Fields
	if fields[logging.FieldEventType] != "artifact_missing" {
		t.Fatalf("expected event type, got %v", fields)
	}
	if fields[logging.FieldErrorHint] == "" || fields[logging.FieldImpact] == "" {
		t.Fatalf("expected hint and impact defaults, got %v", fields)
	}
}

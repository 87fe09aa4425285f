package logging

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCleanupOldLogsPrunesExpiredRunLogs(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "sermonmux-20240101T000000Z.log")
	fresh := filepath.Join(dir, "sermonmux-20240301T000000Z.log")
	active := filepath.Join(dir, "sermonmux-20231201T000000Z.log")
	other := filepath.Join(dir, "notes.txt")
	for _, path := range []string{old, fresh, active, other} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	stale := time.Now().Add(-72 * time.Hour)
	for _, path := range []string{old, active, other} {
		if err := os.Chtimes(path, stale, stale); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}

	CleanupOldLogs(NewNop(), 1, RetentionTarget{Dir: dir, Pattern: "sermonmux-*.log", Exclude: []string{active}})

	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("expected %s to be pruned, err=%v", old, err)
	}
	for _, path := range []string{fresh, active, other} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s to remain: %v", path, err)
		}
	}
}

func TestCleanupOldLogsDisabled(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sermonmux-1.log")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	stale := time.Now().AddDate(0, 0, -30)
	_ = os.Chtimes(path, stale, stale)

	CleanupOldLogs(NewNop(), 0, RetentionTarget{Dir: dir, Pattern: "sermonmux-*.log"})
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected file to remain with retention disabled: %v", err)
	}
}

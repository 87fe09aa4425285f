package artifacts_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"sermonmux/internal/artifacts"
	"sermonmux/internal/templates"
)

func TestPathFor(t *testing.T) {
	stamp := time.Date(2024, 5, 12, 10, 30, 45, 0, time.Local)
	cases := []struct {
		meeting templates.MeetingType
		lang    string
		want    string
	}{
		{templates.MeetingSermon, "he", "2024-05-12-10-30-sermon--he.mp4"},
		{templates.MeetingWorship, "ru", "2024-05-12-10-30-worship_meeting--ru.mp4"},
		{templates.MeetingPrayer, " EN ", "2024-05-12-10-30-prayer_meeting--en.mp4"},
	}
	for _, tc := range cases {
		got := artifacts.PathFor("/out", stamp, tc.meeting, tc.lang)
		if got != filepath.Join("/out", tc.want) {
			t.Fatalf("PathFor(%q, %q) = %q, want %q", tc.meeting, tc.lang, got, tc.want)
		}
	}
}

func TestEnsureOutputDirCreatesMissing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	if err := artifacts.EnsureOutputDir(dir); err != nil {
		t.Fatalf("EnsureOutputDir: %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Fatalf("expected directory at %s: %v", dir, err)
	}
	if err := artifacts.EnsureOutputDir("  "); err == nil {
		t.Fatal("expected error for empty directory")
	}
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.mp4")
	if artifacts.Exists(path) {
		t.Fatal("missing file reported as existing")
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if !artifacts.Exists(path) {
		t.Fatal("expected file to exist")
	}
	if artifacts.Exists(dir) {
		t.Fatal("directory should not count as an artifact")
	}
}

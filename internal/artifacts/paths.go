package artifacts

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sermonmux/internal/templates"
)

// StampLayout formats the run timestamp embedded in artifact names.
const StampLayout = "2006-01-02-15-04"

// Stamp formats t for artifact names.
func Stamp(t time.Time) string {
	return t.Format(StampLayout)
}

// PathFor returns {outputDir}/{stamp}-{meeting slug}--{lang}.mp4.
func PathFor(outputDir string, runStart time.Time, meeting templates.MeetingType, lang string) string {
	name := fmt.Sprintf("%s-%s--%s.mp4", Stamp(runStart), meeting.Slug(), strings.ToLower(strings.TrimSpace(lang)))
	return filepath.Join(outputDir, name)
}

// EnsureOutputDir creates dir if missing.
func EnsureOutputDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return fmt.Errorf("output directory not configured")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory %q: %w", dir, err)
	}
	return nil
}

// Exists reports whether path names an existing regular file.
func Exists(path string) bool {
	if strings.TrimSpace(path) == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

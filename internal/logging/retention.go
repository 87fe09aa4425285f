package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// RetentionTarget names a log directory, the glob its run logs match, and
// paths that must survive pruning (typically the active log file).
type RetentionTarget struct {
	Dir     string
	Pattern string
	Exclude []string
}

// CleanupOldLogs deletes matching files last modified more than
// retentionDays ago. Zero or negative days keeps everything.
func CleanupOldLogs(logger *slog.Logger, retentionDays int, targets ...RetentionTarget) {
	if retentionDays <= 0 {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	keep := map[string]bool{}
	for _, target := range targets {
		for _, path := range target.Exclude {
			if abs := absPath(path); abs != "" {
				keep[abs] = true
			}
		}
	}
	for _, target := range targets {
		for _, path := range expiredLogs(target, cutoff) {
			if keep[path] {
				continue
			}
			pruneLog(logger, path)
		}
	}
}

func expiredLogs(target RetentionTarget, cutoff time.Time) []string {
	dir := strings.TrimSpace(target.Dir)
	if dir == "" {
		return nil
	}
	pattern := strings.TrimSpace(target.Pattern)
	if pattern == "" {
		pattern = "*"
	}
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil
	}
	var expired []string
	for _, match := range matches {
		info, err := os.Lstat(match)
		if err != nil || info.IsDir() || !info.ModTime().Before(cutoff) {
			continue
		}
		expired = append(expired, absPath(match))
	}
	return expired
}

func pruneLog(logger *slog.Logger, path string) {
	if err := os.Remove(path); err != nil {
		WarnWithContext(logger, "log retention remove failed; file remains", "log_retention_failed",
			String("path", path),
			Error(err),
			String(FieldErrorHint, "check permissions on the log directory"),
			String(FieldImpact, "old log file remains on disk"),
		)
		return
	}
	if logger != nil {
		logger.Info("log pruned", String("path", path), String(FieldEventType, "log_pruned"))
	}
}

func absPath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

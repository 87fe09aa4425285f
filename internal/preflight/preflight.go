package preflight

import (
	"context"
	"fmt"
	"strings"

	"sermonmux/internal/config"
	"sermonmux/internal/services"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Options selects optional check groups.
type Options struct {
	// Upload adds credential and endpoint checks.
	Upload bool
	// Network allows checks that contact remote services.
	Network bool
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config, opts Options) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckEngine(cfg.FFmpeg.Binary),
	}
	if cfg.Paths.LogDir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}

	if opts.Upload {
		results = append(results, CheckCredentials(cfg.Upload.ClientSecrets, cfg.Upload.TokenFile))
		if opts.Network {
			results = append(results, CheckEndpoint(ctx, "Upload API", cfg.Upload.BaseURL))
		}
	}
	if opts.Network && strings.TrimSpace(cfg.Notifications.NtfyTopic) != "" {
		results = append(results, CheckEndpoint(ctx, "ntfy", cfg.Notifications.NtfyTopic))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

// Err summarizes failed results as a configuration error, or nil.
func Err(results []Result) error {
	failed := Failed(results)
	if len(failed) == 0 {
		return nil
	}
	parts := make([]string, 0, len(failed))
	for _, r := range failed {
		parts = append(parts, fmt.Sprintf("%s: %s", r.Name, r.Detail))
	}
	return services.Wrap(services.ErrConfiguration, "preflight", "", strings.Join(parts, "; "), nil)
}

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"sermonmux/internal/language"
	"sermonmux/internal/orchestrator"
	"sermonmux/internal/preflight"
)

// runPreflight prints failed checks and returns an error when any failed.
func runPreflight(cmd *cobra.Command, rt *runtime, upload bool) error {
	results := preflight.RunAll(cmd.Context(), rt.cfg, preflight.Options{Upload: upload})
	failed := preflight.Failed(results)
	if len(failed) == 0 {
		return nil
	}
	out := cmd.ErrOrStderr()
	colorize := shouldColorize(out)
	for _, result := range failed {
		fmt.Fprintln(out, renderStatusLine(result.Name, statusError, result.Detail, colorize))
	}
	return preflight.Err(results)
}

// executeRun starts a run, relays SIGINT/SIGTERM as cancellation, waits for
// the outcome, and prints a summary.
func executeRun(cmd *cobra.Command, rt *runtime, bar *uploadBar, start func(context.Context) (string, error)) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	runID, err := start(ctx)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s started (press Ctrl+C to cancel)\n", runID)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signals)
	go func() {
		for range signals {
			if rt.manager.Cancel() {
				fmt.Fprintln(cmd.ErrOrStderr(), "\nCancellation requested; finishing the current step...")
			}
		}
	}()

	status, err := rt.manager.Wait(context.WithoutCancel(ctx))
	bar.finish()
	if err != nil {
		return err
	}
	printRunSummary(out, status)
	if code := exitCodeFor(status); code != exitOK {
		var cause error
		if status.State == orchestrator.StateFaulted && status.LastError != "" {
			cause = fmt.Errorf("run faulted: %s", status.LastError)
		}
		return &exitError{code: code, err: cause}
	}
	return nil
}

func printRunSummary(out io.Writer, status orchestrator.Status) {
	elapsed := status.FinishedAt.Sub(status.StartedAt).Round(time.Second)
	fmt.Fprintf(out, "Run %s %s in %s: %d produced, %d uploaded, %d failed\n",
		status.RunID, status.State, elapsed, status.Produced, status.Uploaded, status.Failed)
	if status.LastError != "" && status.State == orchestrator.StateFaulted {
		fmt.Fprintf(out, "Error (%s): %s\n", status.ErrorClass, status.LastError)
	}
	if len(status.Artifacts) == 0 {
		return
	}

	langs := make([]string, 0, len(status.Artifacts))
	for lang := range status.Artifacts {
		langs = append(langs, lang)
	}
	sort.Slice(langs, func(i, j int) bool {
		return languageRank(status.Languages, langs[i]) < languageRank(status.Languages, langs[j])
	})
	rows := make([][]string, 0, len(langs))
	for _, lang := range langs {
		path := status.Artifacts[lang]
		size := "-"
		if info, err := os.Stat(path); err == nil {
			size = humanize.IBytes(uint64(info.Size()))
		}
		rows = append(rows, []string{language.DisplayName(lang), filepath.Base(path), size})
	}
	fmt.Fprintln(out, renderTable([]string{"Language", "File", "Size"}, rows, []columnAlignment{alignLeft, alignLeft, alignRight}))
}

func languageRank(order []string, lang string) int {
	for i, code := range order {
		if code == lang {
			return i
		}
	}
	return len(order)
}

// parseAudioFlags reads repeated lang=path values.
func parseAudioFlags(values []string) (map[string]string, error) {
	audio := make(map[string]string, len(values))
	for _, value := range values {
		lang, path, ok := strings.Cut(value, "=")
		lang = strings.TrimSpace(lang)
		path = strings.TrimSpace(path)
		if !ok || lang == "" || path == "" {
			return nil, fmt.Errorf("invalid --audio value %q (expected lang=path)", value)
		}
		audio[strings.ToLower(lang)] = path
	}
	return audio, nil
}

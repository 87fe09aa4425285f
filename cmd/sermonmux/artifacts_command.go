package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"sermonmux/internal/artifacts"
	"sermonmux/internal/language"
)

func newArtifactsCommand(ctx *commandContext) *cobra.Command {
	artifactsCmd := &cobra.Command{
		Use:   "artifacts",
		Short: "Inspect the artifact registry",
	}
	artifactsCmd.AddCommand(newArtifactsListCommand(ctx))
	return artifactsCmd
}

func newArtifactsListCommand(ctx *commandContext) *cobra.Command {
	var (
		limit   int
		uploads bool
		runID   string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List produced files (or upload results with --uploads)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := artifacts.Open(cfg.StateDBPath())
			if err != nil {
				return fmt.Errorf("open artifact registry: %w", err)
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if uploads {
				records, err := store.ListUploads(cmd.Context(), runID, limit)
				if err != nil {
					return err
				}
				if len(records) == 0 {
					fmt.Fprintln(out, "No uploads recorded")
					return nil
				}
				fmt.Fprintln(out, renderTable(
					[]string{"When", "Language", "Status", "Video ID", "Sent", "File"},
					uploadRows(records),
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			}

			records, err := store.ListArtifacts(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(out, "No artifacts recorded")
				return nil
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "When", "Language", "Kind", "Size", "File"},
				artifactRows(records),
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum rows to show")
	cmd.Flags().BoolVar(&uploads, "uploads", false, "Show upload results instead of produced files")
	cmd.Flags().StringVar(&runID, "run", "", "Restrict uploads to one run ID")
	return cmd
}

func artifactRows(records []artifacts.Artifact) [][]string {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []string{
			fmt.Sprintf("%d", rec.ID),
			humanize.Time(rec.CreatedAt),
			language.DisplayName(rec.Language),
			rec.JobKind,
			humanize.IBytes(uint64(max(rec.SizeBytes, 0))),
			filepath.Base(rec.Path),
		})
	}
	return rows
}

func uploadRows(records []artifacts.Upload) [][]string {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		remote := rec.RemoteID
		if remote == "" {
			remote = "-"
		}
		status := rec.Status
		if rec.ErrorMessage != "" {
			status = fmt.Sprintf("%s (%s)", rec.Status, truncate(rec.ErrorMessage, 40))
		}
		rows = append(rows, []string{
			rec.CreatedAt.Local().Format(time.DateTime),
			language.DisplayName(rec.Language),
			status,
			remote,
			humanize.IBytes(uint64(max(rec.BytesSent, 0))),
			filepath.Base(rec.Path),
		})
	}
	return rows
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}

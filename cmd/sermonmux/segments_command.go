package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"sermonmux/internal/segments"
)

func newSegmentsCommand() *cobra.Command {
	segmentsCmd := &cobra.Command{
		Use:   "segments",
		Short: "Segment string utilities",
	}
	segmentsCmd.AddCommand(&cobra.Command{
		Use:         "check <segments>",
		Short:       "Parse a segment string and show the windows that would be used",
		Example:     "  sermonmux segments check 60-300,450-600",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			set, rejected := segments.ParseDetailed(args[0])
			out := cmd.OutOrStdout()

			if set.Empty() {
				fmt.Fprintln(out, "No valid segments: the original audio stays primary for the whole recording")
			} else {
				rows := make([][]string, 0, set.Len())
				for i, seg := range set.Segments() {
					rows = append(rows, []string{
						fmt.Sprintf("%d", i+1),
						segments.FormatSeconds(seg.Start),
						segments.FormatSeconds(seg.End),
						segments.FormatSeconds(seg.Duration()),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"#", "Start", "End", "Duration"},
					rows,
					[]columnAlignment{alignRight, alignRight, alignRight, alignRight},
				))
				fmt.Fprintf(out, "Translation windows: %s (%ss total)\n", set.String(), segments.FormatSeconds(set.Coverage()))
			}

			if len(rejected) == 0 {
				return nil
			}
			colorize := shouldColorize(out)
			for _, r := range rejected {
				fmt.Fprintln(out, renderStatusLine("Skipped", statusWarn, r.Error(), colorize))
			}
			return fmt.Errorf("%d segment(s) rejected: %s", len(rejected), joinRejected(rejected))
		},
	})
	return segmentsCmd
}

func joinRejected(rejected []segments.Rejection) string {
	raws := make([]string, 0, len(rejected))
	for _, r := range rejected {
		raws = append(raws, r.Raw)
	}
	return strings.Join(raws, ", ")
}

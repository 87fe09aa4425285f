package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"sermonmux/internal/deps"
	"sermonmux/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var (
		upload  bool
		network bool
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check dependencies, directories, and credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			for _, line := range renderSectionHeader("Dependencies", colorize) {
				fmt.Fprintln(out, line)
			}
			statuses := preflight.CheckSystemDeps(cfg.FFmpeg.Binary)
			depRows := [][]string{}
			for _, dep := range statuses {
				depRows = append(depRows, []string{dep.Name, yesNo(dep.Available), dep.Command, dep.Detail})
			}
			fmt.Fprintln(out, renderTable([]string{"Name", "Available", "Command", "Detail"}, depRows, nil))
			for _, dep := range deps.Missing(statuses) {
				fmt.Fprintln(out, renderStatusLine(dep.Name, statusWarn, dep.Description+" is unavailable", colorize))
			}

			fmt.Fprintln(out)
			for _, line := range renderSectionHeader("Checks", colorize) {
				fmt.Fprintln(out, line)
			}
			results := preflight.RunAll(cmd.Context(), cfg, preflight.Options{Upload: upload, Network: network})
			for _, result := range results {
				kind := statusOK
				if !result.Passed {
					kind = statusError
				}
				fmt.Fprintln(out, renderStatusLine(result.Name, kind, result.Detail, colorize))
			}

			failed := preflight.Failed(results)
			if len(failed) == 0 {
				fmt.Fprintln(out, "\nAll checks passed")
				return nil
			}
			names := make([]string, 0, len(failed))
			for _, result := range failed {
				names = append(names, result.Name)
			}
			return fmt.Errorf("%d check(s) failed: %s", len(failed), strings.Join(names, ", "))
		},
	}

	cmd.Flags().BoolVar(&upload, "upload", true, "Include upload credential checks")
	cmd.Flags().BoolVar(&network, "network", false, "Also probe the upload endpoint and ntfy over the network")
	return cmd
}

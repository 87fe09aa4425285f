package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"sermonmux/internal/daemon"
	"sermonmux/internal/logging"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP control API",
		Long: `Serve the control API on paths.api_bind. Runs are started with
POST /api/runs and observed through /api/status and /api/logs. Edits to the
configuration file apply to the next run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			signalCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if bind != "" {
				cfg.Paths.APIBind = bind
			}

			hub := logging.NewStreamHub(4096)
			rt, err := ctx.openRuntime(cmd, runtimeOptions{hub: hub})
			if err != nil {
				return err
			}
			defer rt.Close()

			opts := []daemon.Option{daemon.WithLogStream(hub)}
			if ctx.configPath != "" {
				opts = append(opts, daemon.WithConfigPath(ctx.configPath))
			}
			d, err := daemon.New(rt.cfg, rt.manager, rt.store, rt.logger, opts...)
			if err != nil {
				return fmt.Errorf("create daemon: %w", err)
			}
			if err := d.Start(signalCtx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Serving control API on http://%s\n", d.Address())

			<-signalCtx.Done()
			rt.logger.Info("sermonmux serve shutting down")
			d.Stop()
			return nil
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Override paths.api_bind")
	return cmd
}

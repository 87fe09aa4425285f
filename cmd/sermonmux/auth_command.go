package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"sermonmux/internal/credentials"
)

func newAuthCommand(ctx *commandContext) *cobra.Command {
	var code string

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize uploads and store the OAuth token",
		Long: `Open the printed URL, grant upload access, and paste the authorization
code back. The token is written to upload.token_file and refreshed
automatically afterwards.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			oauthCfg, err := credentials.LoadConfig(cfg.Upload.ClientSecrets)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if strings.TrimSpace(code) == "" {
				fmt.Fprintln(out, "Open this URL in a browser and authorize sermonmux:")
				fmt.Fprintln(out)
				fmt.Fprintln(out, "  "+credentials.AuthCodeURL(oauthCfg, uuid.NewString()))
				fmt.Fprintln(out)
				fmt.Fprint(out, "Authorization code: ")
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && strings.TrimSpace(line) == "" {
					return fmt.Errorf("read authorization code: %w", err)
				}
				code = line
			}

			if _, err := credentials.Exchange(cmd.Context(), oauthCfg, code, cfg.Upload.TokenFile); err != nil {
				return err
			}
			fmt.Fprintf(out, "Token saved to %s\n", displayPath(cfg.Upload.TokenFile))
			return nil
		},
	}

	cmd.Flags().StringVar(&code, "code", "", "Authorization code (skips the prompt)")
	return cmd
}

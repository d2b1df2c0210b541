// ABOUTME: serve command: runs the session HTTP API until interrupted
// ABOUTME: Prints a startup banner with fatih/color before handing off to api.Server

package main

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/2389/coven-sessions/internal/api"
)

const banner = `
  ___ _____   _____ _ __        ___  ___  ___ ___(_) ___  _ __  ___
 / __/ _ \ \ / / _ \ '_ \ _____/ __|/ _ \/ __/ __| |/ _ \| '_ \/ __|
| (_| (_) \ V /  __/ | | |_____\__ \  __/\__ \__ \ | (_) | | | \__ \
 \___\___/ \_/ \___|_| |_|     |___/\___||___/___/_|\___/|_| |_|___/
`

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the session HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Server.HTTPAddr == "" {
				return errors.New("server.http_addr is required to serve")
			}

			out := cmd.OutOrStdout()
			cyan := color.New(color.FgCyan)
			gray := color.New(color.FgHiBlack)
			green := color.New(color.FgGreen)

			cyan.Fprint(out, banner)
			gray.Fprintf(out, "    version: %s\n\n", version)

			green.Fprint(out, "    ▶ ")
			fmt.Fprintf(out, "Config:    %s\n", a.configPath)
			green.Fprint(out, "    ▶ ")
			fmt.Fprintf(out, "HTTP:      %s\n", a.cfg.Server.HTTPAddr)
			green.Fprint(out, "    ▶ ")
			fmt.Fprintf(out, "Database:  %s (table %s)\n\n", a.cfg.Database.Driver, a.cfg.Database.Table)

			ctx := cmd.Context()
			sessions, h, err := a.openSessions(ctx)
			if err != nil {
				return err
			}
			defer h.Close()

			srv, err := api.NewServer(a.cfg.Server.HTTPAddr, sessions, a.logger)
			if err != nil {
				return fmt.Errorf("creating server: %w", err)
			}

			a.logger.Info("starting coven-sessions",
				"config", a.configPath,
				"http_addr", a.cfg.Server.HTTPAddr,
				"driver", a.cfg.Database.Driver,
			)
			return srv.Run(ctx)
		},
	}
}

// ABOUTME: Root cobra command: global flags, config path resolution and logger setup
// ABOUTME: Subcommands share one app value that opens the configured session store

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/2389/coven-sessions/internal/backend"
	"github.com/2389/coven-sessions/internal/config"
	"github.com/2389/coven-sessions/internal/store"
)

// app carries state shared by every subcommand
type app struct {
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "coven-sessions",
		Short: "Session store for coven services",
		Long: `coven-sessions keeps uid-keyed session documents (meta and data) in a
Postgres or SQLite table with soft deletes.

Quick Start:
  coven-sessions serve                       # Run the HTTP API
  coven-sessions add --meta '{"user":"a"}'   # Create a session, prints its uid
  coven-sessions get <uid>                   # Show a session
  coven-sessions set <uid> --data '{"k":1}'  # Merge keys into a session
  coven-sessions rm <uid>                    # Soft-delete a session
  coven-sessions uids                        # List live sessions`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd.ErrOrStderr())
		},
	}

	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Config file (default $XDG_CONFIG_HOME/coven/sessions.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	rootCmd.AddCommand(
		newServeCmd(a),
		newAddCmd(a),
		newGetCmd(a),
		newSetCmd(a),
		newRmCmd(a),
		newUIDsCmd(a),
	)

	return rootCmd
}

// load reads the config file and builds the logger
func (a *app) load(logOut io.Writer) error {
	a.configPath = getConfigPath(a.configPath)

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if a.verbose {
		cfg.Logging.Level = "debug"
	}

	a.cfg = cfg
	a.logger = setupLogger(cfg.Logging, logOut)
	slog.SetDefault(a.logger)
	return nil
}

// openSessions opens the configured backend and a session store over it.
// The caller closes the returned handle.
func (a *app) openSessions(ctx context.Context) (*store.SessionStore, *backend.Handle, error) {
	h, err := backend.Open(ctx, a.cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("opening session backend: %w", err)
	}

	sessions, err := store.NewSessionStore(h.Gateway, store.Options{
		Table:   a.cfg.Database.Table,
		Dialect: h.Dialect,
		Logger:  a.logger,
	})
	if err != nil {
		h.Close()
		return nil, nil, fmt.Errorf("creating session store: %w", err)
	}

	return sessions, h, nil
}

// getConfigPath returns the path to the config file.
// Priority: --config flag > COVEN_SESSIONS_CONFIG env var > XDG_CONFIG_HOME/coven/sessions.yaml > ~/.config/coven/sessions.yaml
func getConfigPath(flagPath string) string {
	if flagPath != "" {
		return flagPath
	}
	if envPath := os.Getenv("COVEN_SESSIONS_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "sessions.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "coven", "sessions.yaml")
}

func setupLogger(cfg config.LoggingConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	case "pretty":
		noColor := true
		if f, ok := w.(*os.File); ok {
			noColor = !isatty.IsTerminal(f.Fd())
			w = colorable.NewColorable(f)
		}
		handler = tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: "15:04:05.000",
			NoColor:    noColor,
		})
	default:
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	}

	return slog.New(handler)
}

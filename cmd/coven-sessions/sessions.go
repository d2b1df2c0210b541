// ABOUTME: Session subcommands: add, get, set, rm and uids
// ABOUTME: Each opens the configured backend, runs one store operation and prints the result

package main

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/2389/coven-sessions/internal/store"
)

// parseFlagDocument parses a --meta/--data value; an empty flag means no document.
func parseFlagDocument(name, text string) (store.Document, error) {
	if text == "" {
		return nil, nil
	}
	doc, err := store.ParseDocument(text)
	if err != nil {
		return nil, fmt.Errorf("--%s must be a JSON object: %w", name, err)
	}
	return doc, nil
}

func newAddCmd(a *app) *cobra.Command {
	var metaFlag, dataFlag string

	cmd := &cobra.Command{
		Use:   "add [uid]",
		Short: "Create a session and print its uid",
		Long:  "Create a session. A random UUID is used when no uid is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, err := parseFlagDocument("meta", metaFlag)
			if err != nil {
				return err
			}
			data, err := parseFlagDocument("data", dataFlag)
			if err != nil {
				return err
			}

			uid := uuid.NewString()
			if len(args) == 1 {
				uid = args[0]
			}

			sessions, h, err := a.openSessions(cmd.Context())
			if err != nil {
				return err
			}
			defer h.Close()

			if _, _, err := sessions.Add(cmd.Context(), uid, meta, data); err != nil {
				return fmt.Errorf("adding session: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), uid)
			return nil
		},
	}

	cmd.Flags().StringVar(&metaFlag, "meta", "", "Meta document as a JSON object")
	cmd.Flags().StringVar(&dataFlag, "data", "", "Data document as a JSON object")
	return cmd
}

func newGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <uid>",
		Short: "Print a session's meta and data documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sessions, h, err := a.openSessions(cmd.Context())
			if err != nil {
				return err
			}
			defer h.Close()

			meta, data, err := sessions.Get(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("getting session %s: %w", args[0], err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]store.Document{"meta": meta, "data": data})
		},
	}
}

func newSetCmd(a *app) *cobra.Command {
	var metaFlag, dataFlag string

	cmd := &cobra.Command{
		Use:   "set <uid>",
		Short: "Merge keys into a session's meta and data documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, err := parseFlagDocument("meta", metaFlag)
			if err != nil {
				return err
			}
			data, err := parseFlagDocument("data", dataFlag)
			if err != nil {
				return err
			}

			sessions, h, err := a.openSessions(cmd.Context())
			if err != nil {
				return err
			}
			defer h.Close()

			if err := sessions.Set(cmd.Context(), args[0], meta, data); err != nil {
				return fmt.Errorf("updating session %s: %w", args[0], err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&metaFlag, "meta", "", "Keys to merge into the meta document (JSON object)")
	cmd.Flags().StringVar(&dataFlag, "data", "", "Keys to merge into the data document (JSON object)")
	return cmd
}

func newRmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <uid>",
		Aliases: []string{"remove"},
		Short:   "Soft-delete a session",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sessions, h, err := a.openSessions(cmd.Context())
			if err != nil {
				return err
			}
			defer h.Close()

			if err := sessions.Remove(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("removing session %s: %w", args[0], err)
			}
			return nil
		},
	}
}

func newUIDsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "uids",
		Short: "List the uids of live sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sessions, h, err := a.openSessions(cmd.Context())
			if err != nil {
				return err
			}
			defer h.Close()

			uids, err := sessions.UIDs(cmd.Context())
			if err != nil {
				return fmt.Errorf("listing sessions: %w", err)
			}

			out := cmd.OutOrStdout()
			for _, uid := range uids {
				fmt.Fprintln(out, uid)
			}
			return nil
		},
	}
}

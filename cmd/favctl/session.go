package main

import (
	"errors"

	"github.com/spf13/cobra"

	"atelier/internal/client/session"
)

func newSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage the saved session",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <token>",
		Short: "Save a bearer token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current
			if err := a.store.Save(args[0], nil); err != nil {
				return err
			}
			// Fresh credentials start a new expiry epoch.
			a.manager.Expiry().Renew()
			cmd.Printf("session saved to %s\n", a.cfg.SessionFile)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the session state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := current
			if _, err := a.store.Token(); errors.Is(err, session.ErrNoSession) {
				cmd.Println("not logged in")
				return nil
			} else if err != nil {
				return err
			}
			// Never print the token itself.
			cmd.Printf("logged in (session file: %s)\n", a.cfg.SessionFile)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := current
			if err := a.store.Clear(); err != nil {
				return err
			}
			cmd.Println("session cleared")
			return nil
		},
	})

	return cmd
}

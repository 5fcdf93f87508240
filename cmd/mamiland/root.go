package main

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for the Mamiland CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mamiland",
		Short: "Mamiland - invite-only community platform",
		Long: `Mamiland is an invite-only community platform. Registration is
gated by single-use access codes; the server exposes a JSON API for
authentication, profiles, and administrative code management.`,
	}

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewAdminCmd())
	cmd.AddCommand(NewAccessCodeCmd())

	return cmd
}

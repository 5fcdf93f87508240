// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mamiland Contributors

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mamiland/mamiland/internal/auth"
	authpg "github.com/mamiland/mamiland/internal/auth/postgres"
	"github.com/mamiland/mamiland/internal/config"
	"github.com/mamiland/mamiland/internal/store"
)

// NewAdminCmd creates the admin subcommand.
func NewAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage administrator accounts",
	}

	var password string
	createCmd := &cobra.Command{
		Use:   "create <username>",
		Short: "Create an administrator account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdminCreate(cmd, args[0], password)
		},
	}
	createCmd.Flags().StringVar(&password, "password", "", "password for the new administrator")
	_ = createCmd.MarkFlagRequired("password") //nolint:errcheck // flag is registered above

	deactivateCmd := &cobra.Command{
		Use:   "deactivate <username>",
		Short: "Deactivate an administrator account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdminDeactivate(cmd, args[0])
		},
	}

	cmd.AddCommand(createCmd, deactivateCmd)
	return cmd
}

// withAdminRepo opens the store and hands an AdminRepository to fn,
// closing the pool afterwards.
func withAdminRepo(ctx context.Context, fn func(*authpg.AdminRepository) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	st, err := store.Open(ctx, cfg.StoreConfig())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer st.Close()

	return fn(authpg.NewAdminRepository(st.Pool()))
}

func runAdminCreate(cmd *cobra.Command, username, password string) error {
	if err := auth.ValidateUsername(username); err != nil {
		return err
	}
	if err := auth.ValidatePassword(password); err != nil {
		return err
	}

	hash, err := auth.NewArgon2idHasher().Hash(password)
	if err != nil {
		return err
	}

	return withAdminRepo(cmd.Context(), func(repo *authpg.AdminRepository) error {
		admin := &auth.Admin{
			Username:     username,
			PasswordHash: hash,
			IsActive:     true,
		}
		if err := repo.Create(cmd.Context(), admin); err != nil {
			return err
		}
		cmd.Printf("Administrator %q created (id %d)\n", admin.Username, admin.ID)
		return nil
	})
}

func runAdminDeactivate(cmd *cobra.Command, username string) error {
	return withAdminRepo(cmd.Context(), func(repo *authpg.AdminRepository) error {
		if err := repo.Deactivate(cmd.Context(), username); err != nil {
			return err
		}
		cmd.Printf("Administrator %q deactivated\n", username)
		return nil
	})
}

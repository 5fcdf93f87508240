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

// NewAccessCodeCmd creates the accesscode subcommand.
func NewAccessCodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accesscode",
		Short: "Manage registration access codes",
	}

	var count int
	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate new access codes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAccessCodeGenerate(cmd, count)
		},
	}
	generateCmd.Flags().IntVar(&count, "count", 1, "number of codes to generate")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List all access codes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAccessCodeList(cmd)
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <code>",
		Short: "Delete an access code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAccessCodeDelete(cmd, args[0])
		},
	}

	cmd.AddCommand(generateCmd, listCmd, deleteCmd)
	return cmd
}

// withCodeService opens the store and hands an AccessCodeService to fn,
// closing the pool afterwards.
func withCodeService(ctx context.Context, fn func(*auth.AccessCodeService) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	st, err := store.Open(ctx, cfg.StoreConfig())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer st.Close()

	svc, err := auth.NewAccessCodeService(authpg.NewAccessCodeRepository(st.Pool()))
	if err != nil {
		return err
	}
	return fn(svc)
}

func runAccessCodeGenerate(cmd *cobra.Command, count int) error {
	if count < 1 {
		return fmt.Errorf("count must be at least 1")
	}

	return withCodeService(cmd.Context(), func(svc *auth.AccessCodeService) error {
		for range count {
			code, err := svc.Generate(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Printf("%s\texpires %s\n", code.Code, code.ExpiresAt.Format("2006-01-02 15:04 MST"))
		}
		return nil
	})
}

func runAccessCodeList(cmd *cobra.Command) error {
	return withCodeService(cmd.Context(), func(svc *auth.AccessCodeService) error {
		codes, err := svc.List(cmd.Context())
		if err != nil {
			return err
		}

		if len(codes) == 0 {
			cmd.Println("No access codes")
			return nil
		}

		for _, code := range codes {
			status := "unused"
			if code.IsUsed {
				status = "used"
			}
			cmd.Printf("%s\t%s\texpires %s\n", code.Code, status, code.ExpiresAt.Format("2006-01-02 15:04 MST"))
		}
		return nil
	})
}

func runAccessCodeDelete(cmd *cobra.Command, code string) error {
	return withCodeService(cmd.Context(), func(svc *auth.AccessCodeService) error {
		if err := svc.Delete(cmd.Context(), code); err != nil {
			return err
		}
		cmd.Printf("Access code %s deleted\n", auth.NormalizeCode(code))
		return nil
	})
}

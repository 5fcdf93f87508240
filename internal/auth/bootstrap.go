// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mamiland Contributors

package auth

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
)

// DefaultAdminUsername is the username seeded by bootstrap.
const DefaultAdminUsername = "admin"

// BootstrapStore is the storage half of administrator bootstrap.
type BootstrapStore interface {
	// EnsureSchema creates the admins table if it does not exist.
	// Repeated calls are no-ops.
	EnsureSchema(ctx context.Context) error

	// SeedAdmin inserts the seed row with insert-if-absent semantics,
	// so repeated calls never duplicate it.
	SeedAdmin(ctx context.Context, username, passwordHash string) error
}

// Bootstrap self-heals the administrator store: it ensures the admins
// table and at least one active administrator exist. It is a defensive
// fallback for the admin login path; deployments should run schema
// migration out-of-band.
type Bootstrap struct {
	store        BootstrapStore
	hasher       PasswordHasher
	seedPassword string
	logger       *slog.Logger
}

// NewBootstrap creates a Bootstrap. seedPassword is the credential the
// default administrator is seeded with; it is hashed before storage.
func NewBootstrap(store BootstrapStore, hasher PasswordHasher, seedPassword string, logger *slog.Logger) (*Bootstrap, error) {
	if store == nil {
		return nil, oops.Code("BOOTSTRAP_CONFIG_INVALID").Errorf("bootstrap store is required")
	}
	if hasher == nil {
		return nil, oops.Code("BOOTSTRAP_CONFIG_INVALID").Errorf("password hasher is required")
	}
	if seedPassword == "" {
		return nil, oops.Code("BOOTSTRAP_CONFIG_INVALID").Errorf("seed password is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Bootstrap{
		store:        store,
		hasher:       hasher,
		seedPassword: seedPassword,
		logger:       logger,
	}, nil
}

// EnsureAdminSchema creates the admins table if absent and seeds the
// default administrator. Idempotent: calling it twice leaves exactly
// one seed row.
func (b *Bootstrap) EnsureAdminSchema(ctx context.Context) error {
	if err := b.store.EnsureSchema(ctx); err != nil {
		return oops.Code("BOOTSTRAP_FAILED").
			With("operation", "ensure admins schema").
			Wrap(err)
	}

	hash, err := b.hasher.Hash(b.seedPassword)
	if err != nil {
		return oops.Code("BOOTSTRAP_FAILED").
			With("operation", "hash seed credential").
			Wrap(err)
	}

	if err := b.store.SeedAdmin(ctx, DefaultAdminUsername, hash); err != nil {
		return oops.Code("BOOTSTRAP_FAILED").
			With("operation", "seed default admin").
			Wrap(err)
	}

	b.logger.Info("admin store bootstrapped", "username", DefaultAdminUsername)
	return nil
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mamiland Contributors

package postgres

import (
	"context"

	"github.com/samber/oops"

	"github.com/mamiland/mamiland/internal/auth"
)

// adminSchemaSQL mirrors the admins migration; bootstrap only runs
// when migrations have not.
const adminSchemaSQL = `
CREATE TABLE IF NOT EXISTS admins (
	id BIGSERIAL PRIMARY KEY,
	username TEXT UNIQUE NOT NULL,
	password_hash TEXT NOT NULL,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	failed_attempts INTEGER NOT NULL DEFAULT 0,
	locked_until TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// BootstrapStore implements auth.BootstrapStore using PostgreSQL.
type BootstrapStore struct {
	db DB
}

// NewBootstrapStore creates a new BootstrapStore.
func NewBootstrapStore(db DB) *BootstrapStore {
	return &BootstrapStore{db: db}
}

// EnsureSchema creates the admins table if it does not exist.
func (s *BootstrapStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, adminSchemaSQL); err != nil {
		return oops.Code("BOOTSTRAP_SCHEMA_FAILED").
			With("operation", "create admins table").
			Wrap(err)
	}
	return nil
}

// SeedAdmin inserts the seed admin row. ON CONFLICT DO NOTHING makes
// the insert idempotent and safe under concurrent bootstrap attempts.
func (s *BootstrapStore) SeedAdmin(ctx context.Context, username, passwordHash string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO admins (username, password_hash, is_active)
		VALUES ($1, $2, TRUE)
		ON CONFLICT (username) DO NOTHING
	`, username, passwordHash)
	if err != nil {
		return oops.Code("BOOTSTRAP_SEED_FAILED").
			With("operation", "seed admin").
			With("username", username).
			Wrap(err)
	}
	return nil
}

// Compile-time interface check.
var _ auth.BootstrapStore = (*BootstrapStore)(nil)

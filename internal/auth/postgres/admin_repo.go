// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mamiland Contributors

package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/mamiland/mamiland/internal/auth"
)

// AdminRepository implements auth.AdminRepository using PostgreSQL.
type AdminRepository struct {
	db DB
}

// NewAdminRepository creates a new AdminRepository.
func NewAdminRepository(db DB) *AdminRepository {
	return &AdminRepository{db: db}
}

// Create stores a new admin.
func (r *AdminRepository) Create(ctx context.Context, admin *auth.Admin) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO admins (username, password_hash, is_active)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`, admin.Username, admin.PasswordHash, admin.IsActive).
		Scan(&admin.ID, &admin.CreatedAt, &admin.UpdatedAt)
	if err != nil {
		if _, ok := isUniqueViolation(err); ok {
			return oops.Code("ADMIN_DUPLICATE_USERNAME").
				With("username", admin.Username).
				Wrap(auth.ErrDuplicate)
		}
		return oops.Code("ADMIN_CREATE_FAILED").
			With("operation", "insert admin").
			With("username", admin.Username).
			Wrap(err)
	}
	return nil
}

// GetActiveByUsername retrieves an active admin by username. A missing
// admins table maps to auth.ErrSchemaMissing so the caller can trigger
// bootstrap.
func (r *AdminRepository) GetActiveByUsername(ctx context.Context, username string) (*auth.Admin, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, username, password_hash, is_active,
		       failed_attempts, locked_until, created_at, updated_at
		FROM admins
		WHERE LOWER(username) = LOWER($1) AND is_active = TRUE
	`, username)

	var admin auth.Admin
	err := row.Scan(
		&admin.ID,
		&admin.Username,
		&admin.PasswordHash,
		&admin.IsActive,
		&admin.FailedAttempts,
		&admin.LockedUntil,
		&admin.CreatedAt,
		&admin.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ADMIN_NOT_FOUND").
			With("username", username).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		if isUndefinedTable(err) {
			return nil, oops.Code("ADMIN_SCHEMA_MISSING").
				With("operation", "get admin by username").
				Wrap(auth.ErrSchemaMissing)
		}
		return nil, oops.Code("ADMIN_GET_BY_USERNAME_FAILED").
			With("operation", "get admin by username").
			With("username", username).
			Wrap(err)
	}
	return &admin, nil
}

// UpdateLoginState persists the failure counter and lockout timestamp.
func (r *AdminRepository) UpdateLoginState(ctx context.Context, admin *auth.Admin) error {
	result, err := r.db.Exec(ctx, `
		UPDATE admins SET password_hash = $2, failed_attempts = $3, locked_until = $4, updated_at = NOW()
		WHERE id = $1
	`, admin.ID, admin.PasswordHash, admin.FailedAttempts, admin.LockedUntil)
	if err != nil {
		return oops.Code("ADMIN_UPDATE_FAILED").
			With("operation", "update login state").
			With("id", admin.ID).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("ADMIN_NOT_FOUND").
			With("id", admin.ID).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// Deactivate marks an admin inactive without deleting the row.
func (r *AdminRepository) Deactivate(ctx context.Context, username string) error {
	result, err := r.db.Exec(ctx, `
		UPDATE admins SET is_active = FALSE, updated_at = NOW()
		WHERE LOWER(username) = LOWER($1) AND is_active = TRUE
	`, username)
	if err != nil {
		return oops.Code("ADMIN_DEACTIVATE_FAILED").
			With("operation", "deactivate admin").
			With("username", username).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("ADMIN_NOT_FOUND").
			With("username", username).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// Compile-time interface check.
var _ auth.AdminRepository = (*AdminRepository)(nil)

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mamiland Contributors

package auth

import (
	"context"
	"time"
)

// Admin is an administrator account.
type Admin struct {
	ID             int64
	Username       string
	PasswordHash   string
	IsActive       bool
	FailedAttempts int
	LockedUntil    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// RecordFailure increments the failure counter and sets lockout if the
// threshold is reached.
func (a *Admin) RecordFailure() {
	a.FailedAttempts++
	a.LockedUntil = ComputeLockoutTime(a.FailedAttempts)
	a.UpdatedAt = time.Now()
}

// RecordSuccess resets failure counter and lockout.
func (a *Admin) RecordSuccess() {
	a.FailedAttempts = 0
	a.LockedUntil = nil
	a.UpdatedAt = time.Now()
}

// AdminRepository manages administrator persistence.
type AdminRepository interface {
	// Create stores a new admin and sets admin.ID. Uniqueness
	// violations are wrapped with ErrDuplicate.
	Create(ctx context.Context, admin *Admin) error

	// GetActiveByUsername retrieves an active admin by username.
	// Returns ErrNotFound if absent or inactive, and ErrSchemaMissing
	// if the admins table does not exist.
	GetActiveByUsername(ctx context.Context, username string) (*Admin, error)

	// UpdateLoginState persists failure counter and lockout timestamp.
	UpdateLoginState(ctx context.Context, admin *Admin) error

	// Deactivate marks an admin inactive without deleting the row.
	Deactivate(ctx context.Context, username string) error
}

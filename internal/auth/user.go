// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mamiland Contributors

package auth

import (
	"context"
	"regexp"
	"time"

	"github.com/samber/oops"
)

// Username and password validation constraints.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 30
	MinPasswordLength = 8
)

// usernameRegex matches usernames that:
// - Start with a letter (a-z, A-Z)
// - Contain only letters, numbers, and underscores
var usernameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

// emailRegex is a deliberately loose shape check; the mailbox either
// receives the onboarding mail or it doesn't.
var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// User is an end-user identity record. It owns exactly one Profile,
// created empty at registration.
type User struct {
	ID             int64
	Username       string
	Email          string
	PasswordHash   string
	FailedAttempts int
	LockedUntil    *time.Time
	CreatedAt      time.Time
	Profile        *Profile
}

// Profile holds the mutable attributes attached to a user. Pointer
// fields are nullable columns.
type Profile struct {
	UserID            int64
	Name              string
	Age               *int
	IsPregnant        *bool
	PregnancyWeek     *int
	MedicalConditions *string
	UserGroup         *string
	IsComplete        bool
	UpdatedAt         time.Time
}

// ProfilePatch is a partial profile update. Nil fields are left
// untouched; set fields are written as given.
type ProfilePatch struct {
	Name              *string
	Age               *int
	IsPregnant        *bool
	PregnancyWeek     *int
	MedicalConditions *string
	UserGroup         *string
	IsComplete        *bool
}

// IsEmpty returns true if the patch sets no fields.
func (p ProfilePatch) IsEmpty() bool {
	return p.Name == nil && p.Age == nil && p.IsPregnant == nil &&
		p.PregnancyWeek == nil && p.MedicalConditions == nil &&
		p.UserGroup == nil && p.IsComplete == nil
}

// RecordFailure increments the failure counter and sets lockout if the
// threshold is reached.
func (u *User) RecordFailure() {
	u.FailedAttempts++
	u.LockedUntil = ComputeLockoutTime(u.FailedAttempts)
}

// RecordSuccess resets failure counter and lockout.
func (u *User) RecordSuccess() {
	u.FailedAttempts = 0
	u.LockedUntil = nil
}

// ValidateUsername validates a username against rules.
// Username requirements:
// - Length: MinUsernameLength to MaxUsernameLength characters
// - Must start with a letter
// - Can contain only letters (a-z, A-Z), numbers (0-9), and underscores (_)
func ValidateUsername(username string) error {
	if username == "" {
		return oops.Code("AUTH_VALIDATION_USERNAME").Errorf("username cannot be empty")
	}
	if len(username) < MinUsernameLength {
		return oops.Code("AUTH_VALIDATION_USERNAME").
			With("min", MinUsernameLength).
			Errorf("username must be at least %d characters", MinUsernameLength)
	}
	if len(username) > MaxUsernameLength {
		return oops.Code("AUTH_VALIDATION_USERNAME").
			With("max", MaxUsernameLength).
			Errorf("username must be at most %d characters", MaxUsernameLength)
	}
	if !usernameRegex.MatchString(username) {
		return oops.Code("AUTH_VALIDATION_USERNAME").
			Errorf("username must start with a letter and contain only letters, numbers, and underscores")
	}
	return nil
}

// ValidateEmail validates an email address shape.
func ValidateEmail(email string) error {
	if email == "" {
		return oops.Code("AUTH_VALIDATION_EMAIL").Errorf("email cannot be empty")
	}
	if !emailRegex.MatchString(email) {
		return oops.Code("AUTH_VALIDATION_EMAIL").Errorf("email is not valid")
	}
	return nil
}

// ValidatePassword validates a new password. Only applied at
// registration; login accepts whatever is supplied.
func ValidatePassword(password string) error {
	if password == "" {
		return oops.Code("AUTH_VALIDATION_PASSWORD").Errorf("password cannot be empty")
	}
	if len(password) < MinPasswordLength {
		return oops.Code("AUTH_VALIDATION_PASSWORD").
			With("min", MinPasswordLength).
			Errorf("password must be at least %d characters", MinPasswordLength)
	}
	return nil
}

// UserRepository manages user and profile persistence.
type UserRepository interface {
	// Create stores a new user plus an empty profile as one unit and
	// sets user.ID. Uniqueness violations are wrapped with ErrDuplicate.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user with profile by ID.
	GetByID(ctx context.Context, id int64) (*User, error)

	// GetByLogin retrieves a user with profile by username or email
	// (case-insensitive).
	GetByLogin(ctx context.Context, login string) (*User, error)

	// UpdateLoginState persists failure counter and lockout timestamp.
	UpdateLoginState(ctx context.Context, user *User) error

	// UpdateProfile applies a partial profile update.
	UpdateProfile(ctx context.Context, userID int64, patch ProfilePatch) error

	// List returns all users with profiles, newest first.
	List(ctx context.Context) ([]User, error)

	// Delete removes a user and their profile.
	Delete(ctx context.Context, id int64) error
}

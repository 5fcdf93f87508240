// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mamiland Contributors

package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/mamiland/mamiland/internal/auth"
)

// userColumns is the joined user+profile projection shared by the
// lookup queries.
const userColumns = `
	u.id, u.username, u.email, u.password_hash,
	u.failed_attempts, u.locked_until, u.created_at,
	p.name, p.age, p.is_pregnant, p.pregnancy_week,
	p.medical_conditions, p.user_group, p.is_complete, p.updated_at`

// UserRepository implements auth.UserRepository using PostgreSQL.
type UserRepository struct {
	db DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create stores a new user plus an empty profile. The two inserts run
// inside one transaction so registration is all-or-nothing.
func (r *UserRepository) Create(ctx context.Context, user *auth.User) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return oops.Code("USER_CREATE_FAILED").
			With("operation", "begin transaction").
			Wrap(err)
	}
	defer func() {
		_ = tx.Rollback(ctx) //nolint:errcheck // No-op after commit
	}()

	err = tx.QueryRow(ctx, `
		INSERT INTO users (username, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, user.Username, user.Email, user.PasswordHash).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		if constraint, ok := isUniqueViolation(err); ok {
			code := "USER_DUPLICATE_USERNAME"
			if strings.Contains(constraint, "email") {
				code = "USER_DUPLICATE_EMAIL"
			}
			return oops.Code(code).
				With("username", user.Username).
				Wrap(auth.ErrDuplicate)
		}
		return oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			With("username", user.Username).
			Wrap(err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO user_profiles (user_id, name, is_complete)
		VALUES ($1, '', FALSE)
	`, user.ID)
	if err != nil {
		return oops.Code("USER_CREATE_FAILED").
			With("operation", "insert empty profile").
			With("user_id", user.ID).
			Wrap(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return oops.Code("USER_CREATE_FAILED").
			With("operation", "commit transaction").
			Wrap(err)
	}
	return nil
}

// GetByID retrieves a user with profile by ID.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*auth.User, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users u
		LEFT JOIN user_profiles p ON u.id = p.user_id
		WHERE u.id = $1
	`, id)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("id", id).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_ID_FAILED").
			With("operation", "get user by id").
			With("id", id).
			Wrap(err)
	}
	return user, nil
}

// GetByLogin retrieves a user with profile by username or email
// (case-insensitive).
func (r *UserRepository) GetByLogin(ctx context.Context, login string) (*auth.User, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users u
		LEFT JOIN user_profiles p ON u.id = p.user_id
		WHERE LOWER(u.username) = LOWER($1) OR LOWER(u.email) = LOWER($1)
	`, login)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("login", login).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_LOGIN_FAILED").
			With("operation", "get user by login").
			With("login", login).
			Wrap(err)
	}
	return user, nil
}

// UpdateLoginState persists the failure counter and lockout timestamp.
func (r *UserRepository) UpdateLoginState(ctx context.Context, user *auth.User) error {
	result, err := r.db.Exec(ctx, `
		UPDATE users SET password_hash = $2, failed_attempts = $3, locked_until = $4
		WHERE id = $1
	`, user.ID, user.PasswordHash, user.FailedAttempts, user.LockedUntil)
	if err != nil {
		return oops.Code("USER_UPDATE_FAILED").
			With("operation", "update login state").
			With("id", user.ID).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").
			With("id", user.ID).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// UpdateProfile applies a partial profile update. Only the fields set
// in the patch are written; values are always bound positionally.
func (r *UserRepository) UpdateProfile(ctx context.Context, userID int64, patch auth.ProfilePatch) error {
	if patch.IsEmpty() {
		return nil
	}

	set := make([]string, 0, 8)
	args := make([]any, 0, 9)
	args = append(args, userID)

	add := func(column string, value any) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if patch.Age != nil {
		add("age", *patch.Age)
	}
	if patch.IsPregnant != nil {
		add("is_pregnant", *patch.IsPregnant)
	}
	if patch.PregnancyWeek != nil {
		add("pregnancy_week", *patch.PregnancyWeek)
	}
	if patch.MedicalConditions != nil {
		add("medical_conditions", *patch.MedicalConditions)
	}
	if patch.UserGroup != nil {
		add("user_group", *patch.UserGroup)
	}
	if patch.IsComplete != nil {
		add("is_complete", *patch.IsComplete)
	}
	set = append(set, "updated_at = NOW()")

	query := fmt.Sprintf("UPDATE user_profiles SET %s WHERE user_id = $1", strings.Join(set, ", "))
	result, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return oops.Code("PROFILE_UPDATE_FAILED").
			With("operation", "update profile").
			With("user_id", userID).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").
			With("user_id", userID).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// List returns all users with profiles, newest first.
func (r *UserRepository) List(ctx context.Context) ([]auth.User, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+userColumns+`
		FROM users u
		LEFT JOIN user_profiles p ON u.id = p.user_id
		ORDER BY u.created_at DESC
	`)
	if err != nil {
		return nil, oops.Code("USER_LIST_FAILED").
			With("operation", "list users").
			Wrap(err)
	}
	defer rows.Close()

	var users []auth.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, oops.Code("USER_LIST_FAILED").
				With("operation", "scan user row").
				Wrap(err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("USER_LIST_FAILED").
			With("operation", "iterate users").
			Wrap(err)
	}
	return users, nil
}

// Delete removes a user; the profile row goes with it via the foreign
// key cascade.
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return oops.Code("USER_DELETE_FAILED").
			With("operation", "delete user").
			With("id", id).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").
			With("id", id).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// scanUser scans a joined user+profile row. Callers are responsible
// for handling pgx.ErrNoRows.
func scanUser(row pgx.Row) (*auth.User, error) {
	var (
		user        auth.User
		name        *string
		age         *int
		isPregnant  *bool
		pregWeek    *int
		medical     *string
		userGroup   *string
		isComplete  *bool
		profUpdated *time.Time
	)

	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.FailedAttempts,
		&user.LockedUntil,
		&user.CreatedAt,
		&name,
		&age,
		&isPregnant,
		&pregWeek,
		&medical,
		&userGroup,
		&isComplete,
		&profUpdated,
	)
	if err != nil {
		// Propagate pgx.ErrNoRows unchanged for callers to handle with context.
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // Callers wrap with context-specific info
		}
		return nil, oops.Code("USER_SCAN_FAILED").
			With("operation", "scan user").
			Wrap(err)
	}

	// The LEFT JOIN leaves profile columns NULL for users whose
	// profile row is missing; the profile stays nil in that case.
	if name != nil || isComplete != nil {
		profile := &auth.Profile{
			UserID:            user.ID,
			Age:               age,
			IsPregnant:        isPregnant,
			PregnancyWeek:     pregWeek,
			MedicalConditions: medical,
			UserGroup:         userGroup,
		}
		if name != nil {
			profile.Name = *name
		}
		if isComplete != nil {
			profile.IsComplete = *isComplete
		}
		if profUpdated != nil {
			profile.UpdatedAt = *profUpdated
		}
		user.Profile = profile
	}

	return &user, nil
}

// Compile-time interface check.
var _ auth.UserRepository = (*UserRepository)(nil)

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mamiland Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/mamiland/mamiland/internal/auth"
)

// AccessCodeRepository implements auth.AccessCodeRepository using
// PostgreSQL.
type AccessCodeRepository struct {
	db DB
}

// NewAccessCodeRepository creates a new AccessCodeRepository.
func NewAccessCodeRepository(db DB) *AccessCodeRepository {
	return &AccessCodeRepository{db: db}
}

// Create stores a new unused code.
func (r *AccessCodeRepository) Create(ctx context.Context, code *auth.AccessCode) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO access_codes (code, created_at, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`, code.Code, code.CreatedAt, code.ExpiresAt).Scan(&code.ID)
	if err != nil {
		if _, ok := isUniqueViolation(err); ok {
			return oops.Code("ACCESS_CODE_COLLISION").
				With("operation", "insert code").
				Wrap(auth.ErrDuplicate)
		}
		return oops.Code("ACCESS_CODE_CREATE_FAILED").
			With("operation", "insert code").
			Wrap(err)
	}
	return nil
}

// Redeem marks the code used iff it is unused and unexpired, as a
// single conditional update. The affected-row count is the
// accept/reject signal, which serializes concurrent redemptions of
// the same code at the store.
func (r *AccessCodeRepository) Redeem(ctx context.Context, code string, usedBy *int64, now time.Time) (bool, error) {
	result, err := r.db.Exec(ctx, `
		UPDATE access_codes
		SET is_used = TRUE, used_by = $2, used_at = $3
		WHERE code = $1 AND is_used = FALSE AND expires_at > $3
	`, code, usedBy, now)
	if err != nil {
		return false, oops.Code("ACCESS_CODE_REDEEM_FAILED").
			With("operation", "conditional mark used").
			Wrap(err)
	}
	return result.RowsAffected() > 0, nil
}

// GetByCode retrieves a code by value.
func (r *AccessCodeRepository) GetByCode(ctx context.Context, code string) (*auth.AccessCode, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, code, created_at, expires_at, is_used, used_by, used_at
		FROM access_codes
		WHERE code = $1
	`, code)

	accessCode, err := scanAccessCode(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCESS_CODE_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCESS_CODE_GET_FAILED").
			With("operation", "get code").
			Wrap(err)
	}
	return accessCode, nil
}

// List returns all codes, newest first.
func (r *AccessCodeRepository) List(ctx context.Context) ([]auth.AccessCode, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, code, created_at, expires_at, is_used, used_by, used_at
		FROM access_codes
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, oops.Code("ACCESS_CODE_LIST_FAILED").
			With("operation", "list codes").
			Wrap(err)
	}
	defer rows.Close()

	var codes []auth.AccessCode
	for rows.Next() {
		code, err := scanAccessCode(rows)
		if err != nil {
			return nil, oops.Code("ACCESS_CODE_LIST_FAILED").
				With("operation", "scan code row").
				Wrap(err)
		}
		codes = append(codes, *code)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("ACCESS_CODE_LIST_FAILED").
			With("operation", "iterate codes").
			Wrap(err)
	}
	return codes, nil
}

// Delete removes a code by value.
func (r *AccessCodeRepository) Delete(ctx context.Context, code string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM access_codes WHERE code = $1`, code)
	if err != nil {
		return oops.Code("ACCESS_CODE_DELETE_FAILED").
			With("operation", "delete code").
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("ACCESS_CODE_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	return nil
}

// scanAccessCode scans a single access code row. Callers are
// responsible for handling pgx.ErrNoRows.
func scanAccessCode(row pgx.Row) (*auth.AccessCode, error) {
	var code auth.AccessCode
	err := row.Scan(
		&code.ID,
		&code.Code,
		&code.CreatedAt,
		&code.ExpiresAt,
		&code.IsUsed,
		&code.UsedBy,
		&code.UsedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // Callers wrap with context-specific info
		}
		return nil, oops.Code("ACCESS_CODE_SCAN_FAILED").
			With("operation", "scan code").
			Wrap(err)
	}
	return &code, nil
}

// Compile-time interface check.
var _ auth.AccessCodeRepository = (*AccessCodeRepository)(nil)

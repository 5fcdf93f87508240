// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mamiland Contributors

package auth

import (
	"context"
	"errors"
	"time"

	"github.com/samber/oops"
)

// generateAttempts bounds collision retries when inserting a fresh
// code. Uniqueness is enforced by the store.
const generateAttempts = 3

// AccessCodeService generates, redeems, and manages single-use
// onboarding codes. It holds no state beyond its dependencies.
type AccessCodeService struct {
	codes AccessCodeRepository
	now   func() time.Time
}

// AccessCodeOption customizes an AccessCodeService.
type AccessCodeOption func(*AccessCodeService)

// WithCodeClock overrides the clock, for deterministic tests.
func WithCodeClock(now func() time.Time) AccessCodeOption {
	return func(s *AccessCodeService) { s.now = now }
}

// NewAccessCodeService creates an AccessCodeService.
func NewAccessCodeService(codes AccessCodeRepository, opts ...AccessCodeOption) (*AccessCodeService, error) {
	if codes == nil {
		return nil, oops.Code("ACCESS_CODE_CONFIG_INVALID").Errorf("access code repository is required")
	}
	s := &AccessCodeService{codes: codes, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Generate draws a fresh code, persists it unused with a 24-hour
// expiry, and returns it for distribution. A collision with an
// existing code is retried against the store's uniqueness constraint.
func (s *AccessCodeService) Generate(ctx context.Context) (*AccessCode, error) {
	var lastErr error
	for range generateAttempts {
		value, err := GenerateCode()
		if err != nil {
			return nil, err
		}

		now := s.now()
		code := &AccessCode{
			Code:      value,
			CreatedAt: now,
			ExpiresAt: now.Add(CodeExpiry),
		}
		err = s.codes.Create(ctx, code)
		if err == nil {
			return code, nil
		}
		if !errors.Is(err, ErrDuplicate) {
			return nil, oops.Code("ACCESS_CODE_GENERATE_FAILED").
				With("operation", "persist code").
				Wrap(err)
		}
		lastErr = err
	}
	return nil, oops.Code("ACCESS_CODE_GENERATE_FAILED").
		With("attempts", generateAttempts).
		Wrap(lastErr)
}

// Redeem normalizes the supplied code and atomically marks it used.
// The check-and-mark is a single conditional update at the store, so
// two concurrent redemptions of the same code cannot both succeed.
// A rejected redemption is classified afterwards purely to pick an
// error code; the classification read has no bearing on the outcome.
func (s *AccessCodeService) Redeem(ctx context.Context, code string, usedBy *int64) error {
	normalized := NormalizeCode(code)
	if normalized == "" {
		return oops.Code("AUTH_VALIDATION_CODE").Errorf("access code is required")
	}

	now := s.now()
	accepted, err := s.codes.Redeem(ctx, normalized, usedBy, now)
	if err != nil {
		return oops.Code("ACCESS_CODE_REDEEM_FAILED").
			With("operation", "redeem code").
			Wrap(err)
	}
	if accepted {
		return nil
	}

	existing, err := s.codes.GetByCode(ctx, normalized)
	switch {
	case errors.Is(err, ErrNotFound):
		return oops.Code("ACCESS_CODE_INVALID").Errorf("access code is not valid")
	case err != nil:
		return oops.Code("ACCESS_CODE_REDEEM_FAILED").
			With("operation", "classify rejected code").
			Wrap(err)
	case existing.IsUsed:
		return oops.Code("ACCESS_CODE_USED").Errorf("access code has already been used")
	case existing.IsExpired(now):
		return oops.Code("ACCESS_CODE_EXPIRED").Errorf("access code has expired")
	default:
		return oops.Code("ACCESS_CODE_INVALID").Errorf("access code is not valid")
	}
}

// List returns all codes for the administrative view.
func (s *AccessCodeService) List(ctx context.Context) ([]AccessCode, error) {
	codes, err := s.codes.List(ctx)
	if err != nil {
		return nil, oops.Code("ACCESS_CODE_LIST_FAILED").Wrap(err)
	}
	return codes, nil
}

// Delete removes a code by value.
func (s *AccessCodeService) Delete(ctx context.Context, code string) error {
	normalized := NormalizeCode(code)
	if normalized == "" {
		return oops.Code("AUTH_VALIDATION_CODE").Errorf("access code is required")
	}
	if err := s.codes.Delete(ctx, normalized); err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code("ACCESS_CODE_NOT_FOUND").Wrap(err)
		}
		return oops.Code("ACCESS_CODE_DELETE_FAILED").Wrap(err)
	}
	return nil
}

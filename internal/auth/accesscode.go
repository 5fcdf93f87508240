// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mamiland Contributors

package auth

import (
	"context"
	"crypto/rand"
	"strings"
	"time"

	"github.com/samber/oops"
)

// Access code configuration.
const (
	CodeLength = 6
	CodeExpiry = 24 * time.Hour
)

// codeAlphabet is the 36-character uppercase-alphanumeric alphabet
// codes are drawn from.
const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// AccessCode is a time-bounded, single-use onboarding code. A code
// transitions unused -> used at most once.
type AccessCode struct {
	ID        int64
	Code      string
	CreatedAt time.Time
	ExpiresAt time.Time
	IsUsed    bool
	UsedBy    *int64
	UsedAt    *time.Time
}

// IsExpired returns true if the code has expired at the given time.
func (c *AccessCode) IsExpired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// GenerateCode draws CodeLength characters uniformly at random from
// the code alphabet using crypto/rand.
func GenerateCode() (string, error) {
	// Rejection sampling keeps the draw uniform: 252 is the largest
	// multiple of len(codeAlphabet) below 256.
	const limit = 252

	var b strings.Builder
	b.Grow(CodeLength)

	buf := make([]byte, CodeLength*2)
	for b.Len() < CodeLength {
		if _, err := rand.Read(buf); err != nil {
			return "", oops.Code("ACCESS_CODE_GENERATE_FAILED").
				With("operation", "crypto/rand.Read").
				Wrap(err)
		}
		for _, v := range buf {
			if v >= limit {
				continue
			}
			b.WriteByte(codeAlphabet[int(v)%len(codeAlphabet)])
			if b.Len() == CodeLength {
				break
			}
		}
	}
	return b.String(), nil
}

// NormalizeCode uppercases and trims a user-supplied code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// AccessCodeRepository manages access code persistence.
type AccessCodeRepository interface {
	// Create stores a new unused code and sets code.ID. A colliding
	// code value is wrapped with ErrDuplicate.
	Create(ctx context.Context, code *AccessCode) error

	// Redeem atomically marks the code used iff it exists, is unused,
	// and has not expired at now. Returns true when the conditional
	// update claimed the code.
	Redeem(ctx context.Context, code string, usedBy *int64, now time.Time) (bool, error)

	// GetByCode retrieves a code by value.
	GetByCode(ctx context.Context, code string) (*AccessCode, error)

	// List returns all codes, newest first.
	List(ctx context.Context) ([]AccessCode, error)

	// Delete removes a code by value.
	Delete(ctx context.Context, code string) error
}

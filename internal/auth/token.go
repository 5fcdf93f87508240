// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mamiland Contributors

package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/samber/oops"
)

// TokenTTL is the session token lifetime for both user and admin
// sessions. Expiry is the only way a token stops being valid; no
// revocation list is kept.
const TokenTTL = 7 * 24 * time.Hour

// Role identifies the kind of principal a token was issued to.
type Role string

// Recognized roles.
const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid returns true for a recognized role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Claims is the session token claim set.
type Claims struct {
	jwt.RegisteredClaims
	UserID   int64  `json:"user_id,omitempty"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// TokenService issues and verifies signed, time-limited session
// tokens. The signing secret is process-wide configuration; rotating
// it invalidates all outstanding tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// TokenOption customizes a TokenService.
type TokenOption func(*TokenService)

// WithTokenTTL overrides the default token lifetime.
func WithTokenTTL(ttl time.Duration) TokenOption {
	return func(s *TokenService) { s.ttl = ttl }
}

// WithTokenClock overrides the clock, for deterministic tests.
func WithTokenClock(now func() time.Time) TokenOption {
	return func(s *TokenService) { s.now = now }
}

// NewTokenService creates a TokenService with the given signing secret.
func NewTokenService(secret string, opts ...TokenOption) (*TokenService, error) {
	if secret == "" {
		return nil, oops.Code("TOKEN_CONFIG_INVALID").Errorf("signing secret is required")
	}
	s := &TokenService{
		secret: []byte(secret),
		ttl:    TokenTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue produces a signed HS256 token carrying the identity claim set
// {identity, role, iat, exp} with exp = iat + ttl.
func (s *TokenService) Issue(userID int64, username string, role Role) (string, error) {
	if username == "" {
		return "", oops.Code("TOKEN_SIGN_FAILED").Errorf("username is required")
	}
	if !role.Valid() {
		return "", oops.Code("TOKEN_SIGN_FAILED").With("role", string(role)).Errorf("unknown role")
	}

	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		UserID:   userID,
		Username: username,
		Role:     role,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", oops.Code("TOKEN_SIGN_FAILED").With("operation", "sign token").Wrap(err)
	}
	return signed, nil
}

// Verify checks signature integrity and expiry. Any malformed,
// tampered, or expired token yields a TOKEN_INVALID error; callers
// must treat that as "unauthenticated", never as a crash.
func (s *TokenService) Verify(token string) (*Claims, error) {
	if token == "" {
		return nil, oops.Code("TOKEN_INVALID").Errorf("token is empty")
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, oops.Code("TOKEN_INVALID").Wrap(err)
	}

	if claims.Username == "" || !claims.Role.Valid() {
		return nil, oops.Code("TOKEN_INVALID").Errorf("token claims are incomplete")
	}
	return &claims, nil
}

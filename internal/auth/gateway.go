// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mamiland Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"
)

// Gateway orchestrates credential verification and token issuance for
// both end-users and administrators. Every login attempt is terminal
// in one request: it either fully succeeds or fully fails.
type Gateway struct {
	users     UserRepository
	admins    AdminRepository
	codes     *AccessCodeService
	hasher    PasswordHasher
	tokens    *TokenService
	bootstrap *Bootstrap
	logger    *slog.Logger
}

// Identity is the minimal public identity returned on success. It
// never carries the credential secret.
type Identity struct {
	ID       int64
	Username string
	Email    string
	Role     Role
}

// Session is a verified identity plus its freshly issued token.
type Session struct {
	Identity Identity
	Token    string
}

// dummyPasswordHash is used when a principal doesn't exist, so that
// password verification still runs and response time stays uniform.
// This is NOT a real credential - it will never match any password.
//
//nolint:gosec // G101: intentionally fake hash for timing uniformity, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// NewGateway creates a Gateway.
func NewGateway(
	users UserRepository,
	admins AdminRepository,
	codes *AccessCodeService,
	hasher PasswordHasher,
	tokens *TokenService,
	bootstrap *Bootstrap,
	logger *slog.Logger,
) (*Gateway, error) {
	if users == nil {
		return nil, oops.Code("AUTH_CONFIG_INVALID").Errorf("user repository is required")
	}
	if admins == nil {
		return nil, oops.Code("AUTH_CONFIG_INVALID").Errorf("admin repository is required")
	}
	if codes == nil {
		return nil, oops.Code("AUTH_CONFIG_INVALID").Errorf("access code service is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_CONFIG_INVALID").Errorf("password hasher is required")
	}
	if tokens == nil {
		return nil, oops.Code("AUTH_CONFIG_INVALID").Errorf("token service is required")
	}
	if bootstrap == nil {
		return nil, oops.Code("AUTH_CONFIG_INVALID").Errorf("bootstrap is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		users:     users,
		admins:    admins,
		codes:     codes,
		hasher:    hasher,
		tokens:    tokens,
		bootstrap: bootstrap,
		logger:    logger,
	}, nil
}

// errInvalidCredentials builds the uniform failure for steps 2-3 of a
// login attempt. Unknown principal and wrong secret are deliberately
// indistinguishable to the caller.
func errInvalidCredentials() error {
	return oops.Code("AUTH_INVALID_CREDENTIALS").Errorf("invalid username or password")
}

// throttleAttempt enforces the failure rate limit for a principal
// before its password is verified: a locked account is refused
// outright, and accumulated failures below the threshold delay the
// attempt progressively. The wait respects context cancellation.
func throttleAttempt(ctx context.Context, failures int, lockedUntil *time.Time) error {
	limit := CheckFailures(failures, lockedUntil)
	if limit.IsLockedOut {
		return oops.Code("AUTH_ACCOUNT_LOCKED").
			With("retry_after", limit.LockoutRemaining).
			Errorf("account is temporarily locked")
	}
	if limit.Delay <= 0 {
		return nil
	}

	timer := time.NewTimer(limit.Delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "throttle attempt").
			Wrap(ctx.Err())
	case <-timer.C:
		return nil
	}
}

// LoginUser authenticates an end-user by username or email and mints a
// session token with the user role claim.
func (g *Gateway) LoginUser(ctx context.Context, login, password string) (*Session, error) {
	if login == "" || password == "" {
		return nil, oops.Code("AUTH_VALIDATION_INPUT").Errorf("username and password are required")
	}

	user, lookupErr := g.users.GetByLogin(ctx, login)

	// Verify against the real hash, or a dummy hash when the user is
	// unknown, to keep response time uniform.
	targetHash := dummyPasswordHash
	userExists := false
	switch {
	case lookupErr == nil:
		targetHash = user.PasswordHash
		userExists = true
	case errors.Is(lookupErr, ErrNotFound):
	default:
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "get user by login").
			Wrap(lookupErr)
	}

	if userExists {
		if err := throttleAttempt(ctx, user.FailedAttempts, user.LockedUntil); err != nil {
			return nil, err
		}
	}

	valid, verifyErr := g.hasher.Verify(password, targetHash)
	if verifyErr != nil {
		if !userExists {
			return nil, errInvalidCredentials()
		}
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			Wrap(verifyErr)
	}

	if !userExists || !valid {
		if userExists {
			user.RecordFailure()
			_ = g.users.UpdateLoginState(ctx, user) //nolint:errcheck // Best effort
		}
		return nil, errInvalidCredentials()
	}

	user.RecordSuccess()
	if g.hasher.NeedsRehash(user.PasswordHash) {
		if newHash, hashErr := g.hasher.Hash(password); hashErr == nil {
			user.PasswordHash = newHash
		}
	}
	// Login succeeds even if persisting the reset counter fails.
	_ = g.users.UpdateLoginState(ctx, user) //nolint:errcheck // Best effort

	token, err := g.tokens.Issue(user.ID, user.Username, RoleUser)
	if err != nil {
		return nil, err
	}

	return &Session{
		Identity: Identity{ID: user.ID, Username: user.Username, Email: user.Email, Role: RoleUser},
		Token:    token,
	}, nil
}

// LoginAdmin authenticates an administrator and mints a session token
// with the admin role claim. If the admin store appears absent, it is
// bootstrapped first and the lookup retried.
func (g *Gateway) LoginAdmin(ctx context.Context, username, password string) (*Session, error) {
	if username == "" || password == "" {
		return nil, oops.Code("AUTH_VALIDATION_INPUT").Errorf("username and password are required")
	}

	admin, lookupErr := g.admins.GetActiveByUsername(ctx, username)
	if errors.Is(lookupErr, ErrSchemaMissing) {
		g.logger.Warn("admin store missing, running bootstrap")
		if err := g.bootstrap.EnsureAdminSchema(ctx); err != nil {
			return nil, err
		}
		admin, lookupErr = g.admins.GetActiveByUsername(ctx, username)
	}

	targetHash := dummyPasswordHash
	adminExists := false
	switch {
	case lookupErr == nil:
		targetHash = admin.PasswordHash
		adminExists = true
	case errors.Is(lookupErr, ErrNotFound):
	default:
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "get admin by username").
			Wrap(lookupErr)
	}

	if adminExists {
		if err := throttleAttempt(ctx, admin.FailedAttempts, admin.LockedUntil); err != nil {
			return nil, err
		}
	}

	valid, verifyErr := g.hasher.Verify(password, targetHash)
	if verifyErr != nil {
		if !adminExists {
			return nil, errInvalidCredentials()
		}
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			Wrap(verifyErr)
	}

	if !adminExists || !valid {
		if adminExists {
			admin.RecordFailure()
			_ = g.admins.UpdateLoginState(ctx, admin) //nolint:errcheck // Best effort
		}
		return nil, errInvalidCredentials()
	}

	admin.RecordSuccess()
	if g.hasher.NeedsRehash(admin.PasswordHash) {
		if newHash, hashErr := g.hasher.Hash(password); hashErr == nil {
			admin.PasswordHash = newHash
		}
	}
	_ = g.admins.UpdateLoginState(ctx, admin) //nolint:errcheck // Best effort

	token, err := g.tokens.Issue(admin.ID, admin.Username, RoleAdmin)
	if err != nil {
		return nil, err
	}

	return &Session{
		Identity: Identity{ID: admin.ID, Username: admin.Username, Role: RoleAdmin},
		Token:    token,
	}, nil
}

// Register redeems an onboarding code, creates the user with an empty
// profile, and mints a first session token. The code is consumed
// before the user row exists, so a spent code never leaves an orphan
// account behind.
func (g *Gateway) Register(ctx context.Context, username, email, password, accessCode string) (*Session, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	if err := g.codes.Redeem(ctx, accessCode, nil); err != nil {
		return nil, err
	}

	hash, err := g.hasher.Hash(password)
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	user := &User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	}
	if err := g.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, err // repository already coded the conflicting field
		}
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "create user").
			Wrap(err)
	}

	g.logger.Info("user registered", "user_id", user.ID, "username", user.Username)

	token, err := g.tokens.Issue(user.ID, user.Username, RoleUser)
	if err != nil {
		return nil, err
	}

	return &Session{
		Identity: Identity{ID: user.ID, Username: user.Username, Email: user.Email, Role: RoleUser},
		Token:    token,
	}, nil
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mamiland Contributors

package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mamiland/mamiland/internal/auth"
	"github.com/mamiland/mamiland/internal/auth/mocks"
	"github.com/mamiland/mamiland/pkg/errutil"
)

// gatewayFixture bundles a Gateway with its mocked dependencies.
type gatewayFixture struct {
	gateway *auth.Gateway
	users   *mocks.MockUserRepository
	admins  *mocks.MockAdminRepository
	codes   *mocks.MockAccessCodeRepository
	tokens  *auth.TokenService
	boot    *mocks.MockBootstrapStore
}

func newGatewayFixture(t *testing.T) *gatewayFixture {
	t.Helper()

	users := new(mocks.MockUserRepository)
	admins := new(mocks.MockAdminRepository)
	codeRepo := new(mocks.MockAccessCodeRepository)
	bootStore := new(mocks.MockBootstrapStore)

	hasher := auth.NewArgon2idHasher()

	tokens, err := auth.NewTokenService(testSecret)
	require.NoError(t, err)

	codes, err := auth.NewAccessCodeService(codeRepo)
	require.NoError(t, err)

	bootstrap, err := auth.NewBootstrap(bootStore, hasher, "seed-password", nil)
	require.NoError(t, err)

	gateway, err := auth.NewGateway(users, admins, codes, hasher, tokens, bootstrap, nil)
	require.NoError(t, err)

	return &gatewayFixture{
		gateway: gateway,
		users:   users,
		admins:  admins,
		codes:   codeRepo,
		tokens:  tokens,
		boot:    bootStore,
	}
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := auth.NewArgon2idHasher().Hash(password)
	require.NoError(t, err)
	return hash
}

func TestGateway_LoginUser(t *testing.T) {
	ctx := context.Background()

	t.Run("valid credentials yield session", func(t *testing.T) {
		f := newGatewayFixture(t)
		f.users.On("GetByLogin", mock.Anything, "alice").Return(&auth.User{
			ID:           7,
			Username:     "alice",
			Email:        "alice@example.com",
			PasswordHash: mustHash(t, "password123"),
		}, nil)
		f.users.On("UpdateLoginState", mock.Anything, mock.Anything).Return(nil)

		session, err := f.gateway.LoginUser(ctx, "alice", "password123")
		require.NoError(t, err)
		assert.Equal(t, int64(7), session.Identity.ID)
		assert.Equal(t, auth.RoleUser, session.Identity.Role)

		claims, err := f.tokens.Verify(session.Token)
		require.NoError(t, err)
		assert.Equal(t, "alice", claims.Username)
		assert.Equal(t, auth.RoleUser, claims.Role)
	})

	t.Run("email works as login", func(t *testing.T) {
		f := newGatewayFixture(t)
		f.users.On("GetByLogin", mock.Anything, "alice@example.com").Return(&auth.User{
			ID:           7,
			Username:     "alice",
			Email:        "alice@example.com",
			PasswordHash: mustHash(t, "password123"),
		}, nil)
		f.users.On("UpdateLoginState", mock.Anything, mock.Anything).Return(nil)

		session, err := f.gateway.LoginUser(ctx, "alice@example.com", "password123")
		require.NoError(t, err)
		assert.Equal(t, "alice", session.Identity.Username)
	})

	t.Run("unknown user yields uniform failure", func(t *testing.T) {
		f := newGatewayFixture(t)
		f.users.On("GetByLogin", mock.Anything, "ghost").Return(nil, auth.ErrNotFound)

		_, err := f.gateway.LoginUser(ctx, "ghost", "whatever1")
		errutil.AssertErrorCode(t, err, "AUTH_INVALID_CREDENTIALS")
		f.users.AssertNotCalled(t, "UpdateLoginState", mock.Anything, mock.Anything)
	})

	t.Run("wrong password records failure", func(t *testing.T) {
		f := newGatewayFixture(t)
		f.users.On("GetByLogin", mock.Anything, "alice").Return(&auth.User{
			ID:           7,
			Username:     "alice",
			PasswordHash: mustHash(t, "password123"),
		}, nil)
		f.users.On("UpdateLoginState", mock.Anything, mock.MatchedBy(func(u *auth.User) bool {
			return u.FailedAttempts == 1
		})).Return(nil)

		_, err := f.gateway.LoginUser(ctx, "alice", "wrongpassword")
		errutil.AssertErrorCode(t, err, "AUTH_INVALID_CREDENTIALS")
		f.users.AssertExpectations(t)
	})

	t.Run("locked account is refused even with valid password", func(t *testing.T) {
		f := newGatewayFixture(t)
		lockedUntil := time.Now().Add(10 * time.Minute)
		f.users.On("GetByLogin", mock.Anything, "alice").Return(&auth.User{
			ID:             7,
			Username:       "alice",
			PasswordHash:   mustHash(t, "password123"),
			FailedAttempts: auth.LockoutThreshold,
			LockedUntil:    &lockedUntil,
		}, nil)

		_, err := f.gateway.LoginUser(ctx, "alice", "password123")
		errutil.AssertErrorCode(t, err, "AUTH_ACCOUNT_LOCKED")
	})

	t.Run("locked account is refused before password verification", func(t *testing.T) {
		f := newGatewayFixture(t)
		lockedUntil := time.Now().Add(10 * time.Minute)
		f.users.On("GetByLogin", mock.Anything, "alice").Return(&auth.User{
			ID:             7,
			Username:       "alice",
			PasswordHash:   mustHash(t, "password123"),
			FailedAttempts: auth.LockoutThreshold,
			LockedUntil:    &lockedUntil,
		}, nil)

		_, err := f.gateway.LoginUser(ctx, "alice", "wrongpassword")
		errutil.AssertErrorCode(t, err, "AUTH_ACCOUNT_LOCKED")
		f.users.AssertNotCalled(t, "UpdateLoginState", mock.Anything, mock.Anything)
	})

	t.Run("accumulated failures delay the attempt", func(t *testing.T) {
		f := newGatewayFixture(t)
		f.users.On("GetByLogin", mock.Anything, "alice").Return(&auth.User{
			ID:             7,
			Username:       "alice",
			PasswordHash:   mustHash(t, "password123"),
			FailedAttempts: 3,
		}, nil)

		// A cancelled context aborts the wait instead of sleeping it out.
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := f.gateway.LoginUser(cancelled, "alice", "password123")
		errutil.AssertErrorCode(t, err, "AUTH_LOGIN_FAILED")
		assert.ErrorIs(t, err, context.Canceled)
		f.users.AssertNotCalled(t, "UpdateLoginState", mock.Anything, mock.Anything)
	})

	t.Run("empty input is rejected before lookup", func(t *testing.T) {
		f := newGatewayFixture(t)

		_, err := f.gateway.LoginUser(ctx, "", "password123")
		errutil.AssertErrorCode(t, err, "AUTH_VALIDATION_INPUT")

		_, err = f.gateway.LoginUser(ctx, "alice", "")
		errutil.AssertErrorCode(t, err, "AUTH_VALIDATION_INPUT")

		f.users.AssertNotCalled(t, "GetByLogin", mock.Anything, mock.Anything)
	})
}

func TestGateway_LoginAdmin(t *testing.T) {
	ctx := context.Background()

	t.Run("valid credentials yield admin session", func(t *testing.T) {
		f := newGatewayFixture(t)
		f.admins.On("GetActiveByUsername", mock.Anything, "admin").Return(&auth.Admin{
			ID:           1,
			Username:     "admin",
			PasswordHash: mustHash(t, "admin-secret"),
			IsActive:     true,
		}, nil)
		f.admins.On("UpdateLoginState", mock.Anything, mock.Anything).Return(nil)

		session, err := f.gateway.LoginAdmin(ctx, "admin", "admin-secret")
		require.NoError(t, err)
		assert.Equal(t, auth.RoleAdmin, session.Identity.Role)

		claims, err := f.tokens.Verify(session.Token)
		require.NoError(t, err)
		assert.Equal(t, auth.RoleAdmin, claims.Role)
	})

	t.Run("missing schema triggers bootstrap then retry", func(t *testing.T) {
		f := newGatewayFixture(t)
		f.admins.On("GetActiveByUsername", mock.Anything, "admin").
			Return(nil, auth.ErrSchemaMissing).Once()
		f.boot.On("EnsureSchema", mock.Anything).Return(nil)
		f.boot.On("SeedAdmin", mock.Anything, auth.DefaultAdminUsername, mock.Anything).Return(nil)
		f.admins.On("GetActiveByUsername", mock.Anything, "admin").Return(&auth.Admin{
			ID:           1,
			Username:     "admin",
			PasswordHash: mustHash(t, "seed-password"),
			IsActive:     true,
		}, nil).Once()
		f.admins.On("UpdateLoginState", mock.Anything, mock.Anything).Return(nil)

		session, err := f.gateway.LoginAdmin(ctx, "admin", "seed-password")
		require.NoError(t, err)
		assert.Equal(t, auth.RoleAdmin, session.Identity.Role)
		f.boot.AssertExpectations(t)
		f.admins.AssertExpectations(t)
	})

	t.Run("unknown admin yields uniform failure", func(t *testing.T) {
		f := newGatewayFixture(t)
		f.admins.On("GetActiveByUsername", mock.Anything, "ghost").Return(nil, auth.ErrNotFound)

		_, err := f.gateway.LoginAdmin(ctx, "ghost", "whatever1")
		errutil.AssertErrorCode(t, err, "AUTH_INVALID_CREDENTIALS")
	})

	t.Run("wrong password records failure", func(t *testing.T) {
		f := newGatewayFixture(t)
		f.admins.On("GetActiveByUsername", mock.Anything, "admin").Return(&auth.Admin{
			ID:           1,
			Username:     "admin",
			PasswordHash: mustHash(t, "admin-secret"),
			IsActive:     true,
		}, nil)
		f.admins.On("UpdateLoginState", mock.Anything, mock.MatchedBy(func(a *auth.Admin) bool {
			return a.FailedAttempts == 1
		})).Return(nil)

		_, err := f.gateway.LoginAdmin(ctx, "admin", "wrongpassword")
		errutil.AssertErrorCode(t, err, "AUTH_INVALID_CREDENTIALS")
		f.admins.AssertExpectations(t)
	})

	t.Run("locked admin is refused before password verification", func(t *testing.T) {
		f := newGatewayFixture(t)
		lockedUntil := time.Now().Add(10 * time.Minute)
		f.admins.On("GetActiveByUsername", mock.Anything, "admin").Return(&auth.Admin{
			ID:             1,
			Username:       "admin",
			PasswordHash:   mustHash(t, "admin-secret"),
			IsActive:       true,
			FailedAttempts: auth.LockoutThreshold,
			LockedUntil:    &lockedUntil,
		}, nil)

		_, err := f.gateway.LoginAdmin(ctx, "admin", "admin-secret")
		errutil.AssertErrorCode(t, err, "AUTH_ACCOUNT_LOCKED")
		f.admins.AssertNotCalled(t, "UpdateLoginState", mock.Anything, mock.Anything)
	})

	t.Run("accumulated failures delay the attempt", func(t *testing.T) {
		f := newGatewayFixture(t)
		f.admins.On("GetActiveByUsername", mock.Anything, "admin").Return(&auth.Admin{
			ID:             1,
			Username:       "admin",
			PasswordHash:   mustHash(t, "admin-secret"),
			IsActive:       true,
			FailedAttempts: 2,
		}, nil)

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := f.gateway.LoginAdmin(cancelled, "admin", "admin-secret")
		errutil.AssertErrorCode(t, err, "AUTH_LOGIN_FAILED")
		assert.ErrorIs(t, err, context.Canceled)
		f.admins.AssertNotCalled(t, "UpdateLoginState", mock.Anything, mock.Anything)
	})
}

func TestGateway_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("valid registration consumes code and creates user", func(t *testing.T) {
		f := newGatewayFixture(t)
		f.codes.On("Redeem", mock.Anything, "ABC123", (*int64)(nil), mock.Anything).Return(true, nil)
		f.users.On("Create", mock.Anything, mock.MatchedBy(func(u *auth.User) bool {
			return u.Username == "alice" && u.Email == "alice@example.com" && u.PasswordHash != "password123"
		})).Run(func(args mock.Arguments) {
			args.Get(1).(*auth.User).ID = 7
		}).Return(nil)

		session, err := f.gateway.Register(ctx, "alice", "alice@example.com", "password123", "abc123")
		require.NoError(t, err)
		assert.Equal(t, int64(7), session.Identity.ID)
		assert.Equal(t, auth.RoleUser, session.Identity.Role)

		claims, err := f.tokens.Verify(session.Token)
		require.NoError(t, err)
		assert.Equal(t, int64(7), claims.UserID)
	})

	t.Run("invalid username fails before code redemption", func(t *testing.T) {
		f := newGatewayFixture(t)

		_, err := f.gateway.Register(ctx, "a!", "alice@example.com", "password123", "ABC123")
		errutil.AssertErrorCode(t, err, "AUTH_VALIDATION_USERNAME")
		f.codes.AssertNotCalled(t, "Redeem", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("invalid email fails before code redemption", func(t *testing.T) {
		f := newGatewayFixture(t)

		_, err := f.gateway.Register(ctx, "alice", "not-an-email", "password123", "ABC123")
		errutil.AssertErrorCode(t, err, "AUTH_VALIDATION_EMAIL")
	})

	t.Run("short password fails before code redemption", func(t *testing.T) {
		f := newGatewayFixture(t)

		_, err := f.gateway.Register(ctx, "alice", "alice@example.com", "short", "ABC123")
		errutil.AssertErrorCode(t, err, "AUTH_VALIDATION_PASSWORD")
	})

	t.Run("rejected code blocks user creation", func(t *testing.T) {
		f := newGatewayFixture(t)
		f.codes.On("Redeem", mock.Anything, "ABC123", (*int64)(nil), mock.Anything).Return(false, nil)
		f.codes.On("GetByCode", mock.Anything, "ABC123").Return(nil, auth.ErrNotFound)

		_, err := f.gateway.Register(ctx, "alice", "alice@example.com", "password123", "ABC123")
		errutil.AssertErrorCode(t, err, "ACCESS_CODE_INVALID")
		f.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("duplicate username passes through repository code", func(t *testing.T) {
		f := newGatewayFixture(t)
		f.codes.On("Redeem", mock.Anything, "ABC123", (*int64)(nil), mock.Anything).Return(true, nil)
		f.users.On("Create", mock.Anything, mock.Anything).
			Return(oops.Code("USER_DUPLICATE_USERNAME").Wrap(auth.ErrDuplicate))

		_, err := f.gateway.Register(ctx, "alice", "alice@example.com", "password123", "ABC123")
		errutil.AssertErrorCode(t, err, "USER_DUPLICATE_USERNAME")
	})
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mamiland Contributors

// Package mocks provides testify mocks for the auth interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/mamiland/mamiland/internal/auth"
)

// MockUserRepository is a mock implementation of auth.UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *auth.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*auth.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.User), args.Error(1)
}

func (m *MockUserRepository) GetByLogin(ctx context.Context, login string) (*auth.User, error) {
	args := m.Called(ctx, login)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.User), args.Error(1)
}

func (m *MockUserRepository) UpdateLoginState(ctx context.Context, user *auth.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) UpdateProfile(ctx context.Context, userID int64, patch auth.ProfilePatch) error {
	args := m.Called(ctx, userID, patch)
	return args.Error(0)
}

func (m *MockUserRepository) List(ctx context.Context) ([]auth.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]auth.User), args.Error(1)
}

func (m *MockUserRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockAdminRepository is a mock implementation of auth.AdminRepository.
type MockAdminRepository struct {
	mock.Mock
}

func (m *MockAdminRepository) Create(ctx context.Context, admin *auth.Admin) error {
	args := m.Called(ctx, admin)
	return args.Error(0)
}

func (m *MockAdminRepository) GetActiveByUsername(ctx context.Context, username string) (*auth.Admin, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Admin), args.Error(1)
}

func (m *MockAdminRepository) UpdateLoginState(ctx context.Context, admin *auth.Admin) error {
	args := m.Called(ctx, admin)
	return args.Error(0)
}

func (m *MockAdminRepository) Deactivate(ctx context.Context, username string) error {
	args := m.Called(ctx, username)
	return args.Error(0)
}

// MockAccessCodeRepository is a mock implementation of auth.AccessCodeRepository.
type MockAccessCodeRepository struct {
	mock.Mock
}

func (m *MockAccessCodeRepository) Create(ctx context.Context, code *auth.AccessCode) error {
	args := m.Called(ctx, code)
	return args.Error(0)
}

func (m *MockAccessCodeRepository) Redeem(ctx context.Context, code string, usedBy *int64, now time.Time) (bool, error) {
	args := m.Called(ctx, code, usedBy, now)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccessCodeRepository) GetByCode(ctx context.Context, code string) (*auth.AccessCode, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.AccessCode), args.Error(1)
}

func (m *MockAccessCodeRepository) List(ctx context.Context) ([]auth.AccessCode, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]auth.AccessCode), args.Error(1)
}

func (m *MockAccessCodeRepository) Delete(ctx context.Context, code string) error {
	args := m.Called(ctx, code)
	return args.Error(0)
}

// MockPasswordHasher is a mock implementation of auth.PasswordHasher.
type MockPasswordHasher struct {
	mock.Mock
}

func (m *MockPasswordHasher) Hash(password string) (string, error) {
	args := m.Called(password)
	return args.String(0), args.Error(1)
}

func (m *MockPasswordHasher) Verify(password, hash string) (bool, error) {
	args := m.Called(password, hash)
	return args.Bool(0), args.Error(1)
}

func (m *MockPasswordHasher) NeedsRehash(hash string) bool {
	args := m.Called(hash)
	return args.Bool(0)
}

// MockBootstrapStore is a mock implementation of auth.BootstrapStore.
type MockBootstrapStore struct {
	mock.Mock
}

func (m *MockBootstrapStore) EnsureSchema(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockBootstrapStore) SeedAdmin(ctx context.Context, username, passwordHash string) error {
	args := m.Called(ctx, username, passwordHash)
	return args.Error(0)
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

// Package mocks provides testify mocks for the auth package interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/storefront/storefront/internal/auth"
)

// testingT is the subset of *testing.T the constructors need.
type testingT interface {
	mock.TestingT
	Cleanup(func())
}

// MockPrincipalRepository mocks auth.PrincipalRepository.
type MockPrincipalRepository struct {
	mock.Mock
}

// NewMockPrincipalRepository creates a mock that asserts its expectations on cleanup.
func NewMockPrincipalRepository(t testingT) *MockPrincipalRepository {
	m := &MockPrincipalRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockPrincipalRepository) Create(ctx context.Context, p *auth.Principal) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockPrincipalRepository) GetByEmail(ctx context.Context, kind auth.Kind, email string) (*auth.Principal, error) {
	args := m.Called(ctx, kind, email)
	p, _ := args.Get(0).(*auth.Principal)
	return p, args.Error(1)
}

func (m *MockPrincipalRepository) GetByID(ctx context.Context, kind auth.Kind, id ulid.ULID) (*auth.Principal, error) {
	args := m.Called(ctx, kind, id)
	p, _ := args.Get(0).(*auth.Principal)
	return p, args.Error(1)
}

func (m *MockPrincipalRepository) UpdatePassword(ctx context.Context, kind auth.Kind, email, passwordHash string) error {
	args := m.Called(ctx, kind, email, passwordHash)
	return args.Error(0)
}

// MockPasswordHasher mocks auth.PasswordHasher.
type MockPasswordHasher struct {
	mock.Mock
}

// NewMockPasswordHasher creates a mock that asserts its expectations on cleanup.
func NewMockPasswordHasher(t testingT) *MockPasswordHasher {
	m := &MockPasswordHasher{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockPasswordHasher) Hash(password string) (string, error) {
	args := m.Called(password)
	return args.String(0), args.Error(1)
}

func (m *MockPasswordHasher) Verify(password, hash string) (bool, error) {
	args := m.Called(password, hash)
	return args.Bool(0), args.Error(1)
}

func (m *MockPasswordHasher) NeedsUpgrade(hash string) bool {
	args := m.Called(hash)
	return args.Bool(0)
}

// MockTokenService mocks auth.TokenService.
type MockTokenService struct {
	mock.Mock
}

// NewMockTokenService creates a mock that asserts its expectations on cleanup.
func NewMockTokenService(t testingT) *MockTokenService {
	m := &MockTokenService{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockTokenService) Issue(p *auth.Principal) (string, time.Time, error) {
	args := m.Called(p)
	expiresAt, _ := args.Get(1).(time.Time)
	return args.String(0), expiresAt, args.Error(2)
}

func (m *MockTokenService) Verify(token string) (*auth.Claims, error) {
	args := m.Called(token)
	c, _ := args.Get(0).(*auth.Claims)
	return c, args.Error(1)
}

// MockResetStore mocks auth.ResetStore.
type MockResetStore struct {
	mock.Mock
}

// NewMockResetStore creates a mock that asserts its expectations on cleanup.
func NewMockResetStore(t testingT) *MockResetStore {
	m := &MockResetStore{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockResetStore) Save(ctx context.Context, reset *auth.PendingReset) error {
	args := m.Called(ctx, reset)
	return args.Error(0)
}

func (m *MockResetStore) Consume(ctx context.Context, key auth.ResetKey, secretHash string, now time.Time, maxAttempts int) error {
	args := m.Called(ctx, key, secretHash, now, maxAttempts)
	return args.Error(0)
}

func (m *MockResetStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	n, _ := args.Get(0).(int64)
	return n, args.Error(1)
}

// MockNotifier mocks auth.Notifier.
type MockNotifier struct {
	mock.Mock
}

// NewMockNotifier creates a mock that asserts its expectations on cleanup.
func NewMockNotifier(t testingT) *MockNotifier {
	m := &MockNotifier{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockNotifier) Send(ctx context.Context, to, subject, body string) error {
	args := m.Called(ctx, to, subject, body)
	return args.Error(0)
}

// MockPasswordChanger mocks auth.PasswordChanger.
type MockPasswordChanger struct {
	mock.Mock
}

// NewMockPasswordChanger creates a mock that asserts its expectations on cleanup.
func NewMockPasswordChanger(t testingT) *MockPasswordChanger {
	m := &MockPasswordChanger{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockPasswordChanger) ChangePassword(ctx context.Context, kind auth.Kind, email, newPassword string) error {
	args := m.Called(ctx, kind, email, newPassword)
	return args.Error(0)
}

var (
	_ auth.PrincipalRepository = (*MockPrincipalRepository)(nil)
	_ auth.PasswordHasher      = (*MockPasswordHasher)(nil)
	_ auth.TokenService        = (*MockTokenService)(nil)
	_ auth.ResetStore          = (*MockResetStore)(nil)
	_ auth.Notifier            = (*MockNotifier)(nil)
	_ auth.PasswordChanger     = (*MockPasswordChanger)(nil)
)

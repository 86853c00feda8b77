package mocks

import (
	"context"
	"time"

	"github.com/you/crmauth/domain"
)

// MockUserRepository implements domain.UserRepository interface for testing
type MockUserRepository struct {
	CreateFunc                func(ctx context.Context, user *domain.User) error
	FindByEmailFunc           func(ctx context.Context, email string) (*domain.User, error)
	FindByIDFunc              func(ctx context.Context, id string) (*domain.User, error)
	FindByResetTokenFunc      func(ctx context.Context, tokenHash string) (*domain.User, error)
	UpdateFunc                func(ctx context.Context, user *domain.User, fields ...string) error
	RecordFailedLoginFunc     func(ctx context.Context, userID string, update domain.FailedLoginUpdate) (*domain.FailedLoginResult, error)
	RecordSuccessfulLoginFunc func(ctx context.Context, userID string, at time.Time) error
	SetMFAEnabledFunc         func(ctx context.Context, userID string, enabled bool) error
}

// Compile-time interface compliance verification
var _ domain.UserRepository = (*MockUserRepository)(nil)

// NewMockUserRepository creates a new MockUserRepository with default behaviors
func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{}
}

// Create creates a new user
func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	// Default behavior: success with a fixed id
	if user.ID == "" {
		user.ID = "user-1"
	}
	return nil
}

// FindByEmail finds a user by email
func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	if m.FindByEmailFunc != nil {
		return m.FindByEmailFunc(ctx, email)
	}
	// Default behavior: not found
	return nil, domain.ErrUserNotFound
}

// FindByID finds a user by ID
func (m *MockUserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	// Default behavior: not found
	return nil, domain.ErrUserNotFound
}

// FindByResetToken finds a user by the hash of a password reset token
func (m *MockUserRepository) FindByResetToken(ctx context.Context, tokenHash string) (*domain.User, error) {
	if m.FindByResetTokenFunc != nil {
		return m.FindByResetTokenFunc(ctx, tokenHash)
	}
	return nil, domain.ErrUserNotFound
}

// Update updates an existing user
func (m *MockUserRepository) Update(ctx context.Context, user *domain.User, fields ...string) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, user, fields...)
	}
	return nil
}

// RecordFailedLogin records a failed login attempt
func (m *MockUserRepository) RecordFailedLogin(ctx context.Context, userID string, update domain.FailedLoginUpdate) (*domain.FailedLoginResult, error) {
	if m.RecordFailedLoginFunc != nil {
		return m.RecordFailedLoginFunc(ctx, userID, update)
	}
	// Default behavior: first failure, no lock
	return &domain.FailedLoginResult{Attempts: 1}, nil
}

// RecordSuccessfulLogin resets the failure counter
func (m *MockUserRepository) RecordSuccessfulLogin(ctx context.Context, userID string, at time.Time) error {
	if m.RecordSuccessfulLoginFunc != nil {
		return m.RecordSuccessfulLoginFunc(ctx, userID, at)
	}
	return nil
}

// SetMFAEnabled mirrors the MFA flag onto the user
func (m *MockUserRepository) SetMFAEnabled(ctx context.Context, userID string, enabled bool) error {
	if m.SetMFAEnabledFunc != nil {
		return m.SetMFAEnabledFunc(ctx, userID, enabled)
	}
	return nil
}

package mocks

import (
	"context"
	"time"

	"github.com/you/crmauth/domain"
)

// MockAuthService implements domain.AuthService interface for testing
type MockAuthService struct {
	RegisterFunc         func(ctx context.Context, input domain.RegisterInput) (*domain.AuthResult, error)
	LoginFunc            func(ctx context.Context, input domain.LoginInput) (*domain.AuthResult, error)
	CompleteMFALoginFunc func(ctx context.Context, mfaToken, code string, client domain.ClientContext) (*domain.AuthResult, error)
	RefreshTokenFunc     func(ctx context.Context, refreshToken string) (*domain.AuthResult, error)
	LogoutFunc           func(ctx context.Context, userID, sessionID string, client domain.ClientContext) error
	ChangePasswordFunc   func(ctx context.Context, userID, currentPassword, newPassword string, client domain.ClientContext) error
	ForgotPasswordFunc   func(ctx context.Context, email string, client domain.ClientContext) error
	ResetPasswordFunc    func(ctx context.Context, token, newPassword string, client domain.ClientContext) error
	GetUserProfileFunc   func(ctx context.Context, userID string) (*domain.User, error)
	DeactivateUserFunc   func(ctx context.Context, actorID, userID string, client domain.ClientContext) error
}

// NewMockAuthService creates a new MockAuthService with default behaviors
func NewMockAuthService() *MockAuthService {
	return &MockAuthService{}
}

func mockAuthResult(email string) *domain.AuthResult {
	return &domain.AuthResult{
		User: &domain.User{
			ID:             "user-1",
			Email:          email,
			Role:           domain.RoleUser,
			Status:         domain.UserStatusActive,
			OrganizationID: "org-1",
		},
		AccessToken:  "mock_access_token",
		RefreshToken: "mock_refresh_token",
		SessionID:    "mock_session_id",
		ExpiresIn:    900, // 15 minutes
	}
}

// Register registers a new user
func (m *MockAuthService) Register(ctx context.Context, input domain.RegisterInput) (*domain.AuthResult, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, input)
	}
	return mockAuthResult(input.Email), nil
}

// Login authenticates a user and returns auth result
func (m *MockAuthService) Login(ctx context.Context, input domain.LoginInput) (*domain.AuthResult, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, input)
	}
	return mockAuthResult(input.Email), nil
}

// CompleteMFALogin finishes a login that was challenged for a second factor
func (m *MockAuthService) CompleteMFALogin(ctx context.Context, mfaToken, code string, client domain.ClientContext) (*domain.AuthResult, error) {
	if m.CompleteMFALoginFunc != nil {
		return m.CompleteMFALoginFunc(ctx, mfaToken, code, client)
	}
	return mockAuthResult("test@example.com"), nil
}

// RefreshToken refreshes an access token using a refresh token
func (m *MockAuthService) RefreshToken(ctx context.Context, refreshToken string) (*domain.AuthResult, error) {
	if m.RefreshTokenFunc != nil {
		return m.RefreshTokenFunc(ctx, refreshToken)
	}
	result := mockAuthResult("test@example.com")
	result.AccessToken = "new_mock_access_token"
	result.RefreshToken = refreshToken
	return result, nil
}

// Logout terminates a session
func (m *MockAuthService) Logout(ctx context.Context, userID, sessionID string, client domain.ClientContext) error {
	if m.LogoutFunc != nil {
		return m.LogoutFunc(ctx, userID, sessionID, client)
	}
	return nil
}

// ChangePassword changes the password of a user
func (m *MockAuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string, client domain.ClientContext) error {
	if m.ChangePasswordFunc != nil {
		return m.ChangePasswordFunc(ctx, userID, currentPassword, newPassword, client)
	}
	return nil
}

// ForgotPassword starts a password reset
func (m *MockAuthService) ForgotPassword(ctx context.Context, email string, client domain.ClientContext) error {
	if m.ForgotPasswordFunc != nil {
		return m.ForgotPasswordFunc(ctx, email, client)
	}
	return nil
}

// ResetPassword completes a password reset
func (m *MockAuthService) ResetPassword(ctx context.Context, token, newPassword string, client domain.ClientContext) error {
	if m.ResetPasswordFunc != nil {
		return m.ResetPasswordFunc(ctx, token, newPassword, client)
	}
	return nil
}

// GetUserProfile retrieves user profile information
func (m *MockAuthService) GetUserProfile(ctx context.Context, userID string) (*domain.User, error) {
	if m.GetUserProfileFunc != nil {
		return m.GetUserProfileFunc(ctx, userID)
	}
	// Default behavior: return mock user profile
	return &domain.User{
		ID:             userID,
		Email:          "test@example.com",
		FirstName:      "Test",
		LastName:       "User",
		Role:           domain.RoleUser,
		Status:         domain.UserStatusActive,
		OrganizationID: "org-1",
		CreatedAt:      time.Now().Add(-24 * time.Hour),
		UpdatedAt:      time.Now(),
	}, nil
}

// DeactivateUser deactivates a user
func (m *MockAuthService) DeactivateUser(ctx context.Context, actorID, userID string, client domain.ClientContext) error {
	if m.DeactivateUserFunc != nil {
		return m.DeactivateUserFunc(ctx, actorID, userID, client)
	}
	return nil
}

// Compile-time interface compliance verification
var _ domain.AuthService = (*MockAuthService)(nil)

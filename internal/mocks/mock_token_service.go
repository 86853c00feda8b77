package mocks

import (
	"strings"
	"time"

	"github.com/you/crmauth/domain"
)

// MockTokenService implements domain.TokenService interface for testing.
// Default tokens have the form "<type>|<userID>|<sessionID>" and validate back
// into claims, so round trips work without a signing key.
type MockTokenService struct {
	GenerateAccessTokenFunc  func(subject domain.TokenSubject) (string, error)
	GenerateRefreshTokenFunc func(subject domain.TokenSubject) (string, error)
	GenerateMFATokenFunc     func(subject domain.TokenSubject) (string, error)
	ValidateAccessTokenFunc  func(token string) (*domain.TokenClaims, error)
	ValidateRefreshTokenFunc func(token string) (*domain.TokenClaims, error)
	ValidateMFATokenFunc     func(token string) (*domain.TokenClaims, error)
	TTL                      time.Duration
}

// Compile-time interface compliance verification
var _ domain.TokenService = (*MockTokenService)(nil)

// NewMockTokenService creates a new MockTokenService with default behaviors
func NewMockTokenService() *MockTokenService {
	return &MockTokenService{TTL: 15 * time.Minute}
}

func mockToken(t domain.TokenType, s domain.TokenSubject) string {
	return strings.Join([]string{string(t), s.UserID, s.SessionID, s.OrganizationID, string(s.Role)}, "|")
}

func parseMockToken(t domain.TokenType, token string) (*domain.TokenClaims, error) {
	parts := strings.Split(token, "|")
	if len(parts) != 5 || parts[0] != string(t) {
		return nil, domain.ErrTokenInvalid
	}
	now := time.Now().Unix()
	return &domain.TokenClaims{
		UserID:         parts[1],
		SessionID:      parts[2],
		OrganizationID: parts[3],
		Role:           domain.Role(parts[4]),
		Type:           t,
		ID:             token,
		IssuedAt:       now,
		ExpiresAt:      now + 900,
	}, nil
}

// GenerateAccessToken generates an access token for the subject
func (m *MockTokenService) GenerateAccessToken(subject domain.TokenSubject) (string, error) {
	if m.GenerateAccessTokenFunc != nil {
		return m.GenerateAccessTokenFunc(subject)
	}
	return mockToken(domain.AccessToken, subject), nil
}

// GenerateRefreshToken generates a refresh token for the subject
func (m *MockTokenService) GenerateRefreshToken(subject domain.TokenSubject) (string, error) {
	if m.GenerateRefreshTokenFunc != nil {
		return m.GenerateRefreshTokenFunc(subject)
	}
	return mockToken(domain.RefreshToken, subject), nil
}

// GenerateMFAToken generates an MFA challenge token for the subject
func (m *MockTokenService) GenerateMFAToken(subject domain.TokenSubject) (string, error) {
	if m.GenerateMFATokenFunc != nil {
		return m.GenerateMFATokenFunc(subject)
	}
	subject.SessionID = ""
	return mockToken(domain.MFAToken, subject), nil
}

// ValidateAccessToken validates an access token
func (m *MockTokenService) ValidateAccessToken(token string) (*domain.TokenClaims, error) {
	if m.ValidateAccessTokenFunc != nil {
		return m.ValidateAccessTokenFunc(token)
	}
	return parseMockToken(domain.AccessToken, token)
}

// ValidateRefreshToken validates a refresh token
func (m *MockTokenService) ValidateRefreshToken(token string) (*domain.TokenClaims, error) {
	if m.ValidateRefreshTokenFunc != nil {
		return m.ValidateRefreshTokenFunc(token)
	}
	return parseMockToken(domain.RefreshToken, token)
}

// ValidateMFAToken validates an MFA challenge token
func (m *MockTokenService) ValidateMFAToken(token string) (*domain.TokenClaims, error) {
	if m.ValidateMFATokenFunc != nil {
		return m.ValidateMFATokenFunc(token)
	}
	return parseMockToken(domain.MFAToken, token)
}

// AccessTokenTTL returns the configured access token lifetime
func (m *MockTokenService) AccessTokenTTL() time.Duration {
	return m.TTL
}

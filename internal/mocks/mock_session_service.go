package mocks

import (
	"context"
	"time"

	"github.com/you/crmauth/domain"
)

// MockSessionService implements domain.SessionService interface for testing.
// Without Func overrides every session id resolves to an active session owned
// by "user-1" in "org-1".
type MockSessionService struct {
	CreateFunc               func(ctx context.Context, userID, organizationID, ipAddress, userAgent string) (*domain.Session, error)
	GetFunc                  func(ctx context.Context, sessionID string) (*domain.Session, error)
	GetByTokenFunc           func(ctx context.Context, token string) (*domain.Session, error)
	InvalidateFunc           func(ctx context.Context, sessionID string) error
	InvalidateAllForUserFunc func(ctx context.Context, userID, exceptSessionID string) (int64, error)
	ExtendFunc               func(ctx context.Context, sessionID string) (*domain.Session, error)
	ListActiveFunc           func(ctx context.Context, userID string) ([]*domain.Session, error)
	CountActiveFunc          func(ctx context.Context, organizationID string) (int64, error)
	CleanupExpiredFunc       func(ctx context.Context) (int64, error)
}

var _ domain.SessionService = (*MockSessionService)(nil)

// NewMockSessionService creates a new MockSessionService
func NewMockSessionService() *MockSessionService {
	return &MockSessionService{}
}

func mockSession(id string) *domain.Session {
	now := time.Now().UTC()
	return &domain.Session{
		ID:             id,
		Token:          "token-" + id,
		UserID:         "user-1",
		OrganizationID: "org-1",
		ExpiresAt:      now.Add(time.Hour),
		IsActive:       true,
		LastActivityAt: now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func (m *MockSessionService) Create(ctx context.Context, userID, organizationID, ipAddress, userAgent string) (*domain.Session, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, userID, organizationID, ipAddress, userAgent)
	}
	s := mockSession("session-1")
	s.UserID, s.OrganizationID, s.IPAddress, s.UserAgent = userID, organizationID, ipAddress, userAgent
	return s, nil
}

func (m *MockSessionService) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, sessionID)
	}
	return mockSession(sessionID), nil
}

func (m *MockSessionService) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	if m.GetByTokenFunc != nil {
		return m.GetByTokenFunc(ctx, token)
	}
	return nil, nil
}

func (m *MockSessionService) Invalidate(ctx context.Context, sessionID string) error {
	if m.InvalidateFunc != nil {
		return m.InvalidateFunc(ctx, sessionID)
	}
	return nil
}

func (m *MockSessionService) InvalidateAllForUser(ctx context.Context, userID, exceptSessionID string) (int64, error) {
	if m.InvalidateAllForUserFunc != nil {
		return m.InvalidateAllForUserFunc(ctx, userID, exceptSessionID)
	}
	return 0, nil
}

func (m *MockSessionService) Extend(ctx context.Context, sessionID string) (*domain.Session, error) {
	if m.ExtendFunc != nil {
		return m.ExtendFunc(ctx, sessionID)
	}
	return mockSession(sessionID), nil
}

func (m *MockSessionService) ListActive(ctx context.Context, userID string) ([]*domain.Session, error) {
	if m.ListActiveFunc != nil {
		return m.ListActiveFunc(ctx, userID)
	}
	return nil, nil
}

func (m *MockSessionService) CountActive(ctx context.Context, organizationID string) (int64, error) {
	if m.CountActiveFunc != nil {
		return m.CountActiveFunc(ctx, organizationID)
	}
	return 0, nil
}

func (m *MockSessionService) CleanupExpired(ctx context.Context) (int64, error) {
	if m.CleanupExpiredFunc != nil {
		return m.CleanupExpiredFunc(ctx)
	}
	return 0, nil
}

package mocks

import (
	"context"
	"time"

	"github.com/you/crmauth/domain"
)

// MockSessionRepository implements domain.SessionRepository interface for testing
type MockSessionRepository struct {
	CreateFunc                    func(ctx context.Context, session *domain.Session) error
	FindByIDFunc                  func(ctx context.Context, sessionID string) (*domain.Session, error)
	FindByTokenFunc               func(ctx context.Context, token string) (*domain.Session, error)
	TouchFunc                     func(ctx context.Context, sessionID string, expiresAt, lastActivityAt time.Time) error
	DeactivateFunc                func(ctx context.Context, sessionID string) error
	DeactivateAllForUserFunc      func(ctx context.Context, userID, exceptSessionID string) (int64, error)
	ListActiveByUserFunc          func(ctx context.Context, userID string, now time.Time) ([]*domain.Session, error)
	CountActiveByOrganizationFunc func(ctx context.Context, organizationID string, now time.Time) (int64, error)
	DeleteExpiredFunc             func(ctx context.Context, now time.Time) (int64, error)
}

// Compile-time interface compliance verification
var _ domain.SessionRepository = (*MockSessionRepository)(nil)

// NewMockSessionRepository creates a new MockSessionRepository with default behaviors
func NewMockSessionRepository() *MockSessionRepository {
	return &MockSessionRepository{}
}

// Create creates a new session
func (m *MockSessionRepository) Create(ctx context.Context, session *domain.Session) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, session)
	}
	// Default behavior: success
	return nil
}

// FindByID finds a session by ID
func (m *MockSessionRepository) FindByID(ctx context.Context, sessionID string) (*domain.Session, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, sessionID)
	}
	// Default behavior: not found
	return nil, domain.ErrSessionNotFound
}

// FindByToken finds a session by its opaque token
func (m *MockSessionRepository) FindByToken(ctx context.Context, token string) (*domain.Session, error) {
	if m.FindByTokenFunc != nil {
		return m.FindByTokenFunc(ctx, token)
	}
	return nil, domain.ErrSessionNotFound
}

// Touch slides a session's expiry and activity time
func (m *MockSessionRepository) Touch(ctx context.Context, sessionID string, expiresAt, lastActivityAt time.Time) error {
	if m.TouchFunc != nil {
		return m.TouchFunc(ctx, sessionID, expiresAt, lastActivityAt)
	}
	return nil
}

// Deactivate marks a session inactive
func (m *MockSessionRepository) Deactivate(ctx context.Context, sessionID string) error {
	if m.DeactivateFunc != nil {
		return m.DeactivateFunc(ctx, sessionID)
	}
	return nil
}

// DeactivateAllForUser marks every session of a user inactive
func (m *MockSessionRepository) DeactivateAllForUser(ctx context.Context, userID, exceptSessionID string) (int64, error) {
	if m.DeactivateAllForUserFunc != nil {
		return m.DeactivateAllForUserFunc(ctx, userID, exceptSessionID)
	}
	return 0, nil
}

// ListActiveByUser lists the active sessions of a user
func (m *MockSessionRepository) ListActiveByUser(ctx context.Context, userID string, now time.Time) ([]*domain.Session, error) {
	if m.ListActiveByUserFunc != nil {
		return m.ListActiveByUserFunc(ctx, userID, now)
	}
	return nil, nil
}

// CountActiveByOrganization counts active sessions in an organization
func (m *MockSessionRepository) CountActiveByOrganization(ctx context.Context, organizationID string, now time.Time) (int64, error) {
	if m.CountActiveByOrganizationFunc != nil {
		return m.CountActiveByOrganizationFunc(ctx, organizationID, now)
	}
	return 0, nil
}

// DeleteExpired deletes expired and inactive sessions
func (m *MockSessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	if m.DeleteExpiredFunc != nil {
		return m.DeleteExpiredFunc(ctx, now)
	}
	return 0, nil
}

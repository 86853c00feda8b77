package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/you/crmauth/domain"
	"github.com/you/crmauth/internal/metrics"
	"go.uber.org/zap"
)

// SessionServiceImpl implements domain.SessionService on top of the session table
type SessionServiceImpl struct {
	repo   domain.SessionRepository
	maxAge time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// NewSessionService creates a new session service
func NewSessionService(repo domain.SessionRepository, maxAge time.Duration, logger *zap.Logger) domain.SessionService {
	return &SessionServiceImpl{
		repo:   repo,
		maxAge: maxAge,
		logger: logger.With(zap.String("component", "sessions")),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Create implements domain.SessionService
func (s *SessionServiceImpl) Create(ctx context.Context, userID, organizationID, ipAddress, userAgent string) (*domain.Session, error) {
	token, err := randomHex(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	now := s.now()
	session := &domain.Session{
		Token:          token,
		UserID:         userID,
		OrganizationID: organizationID,
		ExpiresAt:      now.Add(s.maxAge),
		IPAddress:      ipAddress,
		UserAgent:      userAgent,
		IsActive:       true,
		LastActivityAt: now,
	}
	if err := s.repo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

// Get implements domain.SessionService. A missing, revoked or expired session
// yields nil without an error; an expired one is marked inactive on the way.
func (s *SessionServiceImpl) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	session, err := s.repo.FindByID(ctx, sessionID)
	return s.usable(ctx, session, err)
}

// GetByToken implements domain.SessionService
func (s *SessionServiceImpl) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	if token == "" {
		return nil, nil
	}
	session, err := s.repo.FindByToken(ctx, token)
	return s.usable(ctx, session, err)
}

func (s *SessionServiceImpl) usable(ctx context.Context, session *domain.Session, err error) (*domain.Session, error) {
	if errors.Is(err, domain.ErrSessionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !session.IsActive {
		return nil, nil
	}
	if session.IsExpired(s.now()) {
		if err := s.repo.Deactivate(ctx, session.ID); err != nil {
			s.logger.Warn("failed to deactivate expired session", zap.String("session_id", session.ID), zap.Error(err))
		}
		return nil, nil
	}
	return session, nil
}

// Invalidate implements domain.SessionService
func (s *SessionServiceImpl) Invalidate(ctx context.Context, sessionID string) error {
	return s.repo.Deactivate(ctx, sessionID)
}

// InvalidateAllForUser implements domain.SessionService
func (s *SessionServiceImpl) InvalidateAllForUser(ctx context.Context, userID, exceptSessionID string) (int64, error) {
	return s.repo.DeactivateAllForUser(ctx, userID, exceptSessionID)
}

// Extend implements domain.SessionService
func (s *SessionServiceImpl) Extend(ctx context.Context, sessionID string) (*domain.Session, error) {
	session, err := s.Get(ctx, sessionID)
	if err != nil || session == nil {
		return nil, err
	}

	now := s.now()
	session.ExpiresAt = now.Add(s.maxAge)
	session.LastActivityAt = now
	if err := s.repo.Touch(ctx, session.ID, session.ExpiresAt, session.LastActivityAt); err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to extend session: %w", err)
	}
	return session, nil
}

// ListActive implements domain.SessionService
func (s *SessionServiceImpl) ListActive(ctx context.Context, userID string) ([]*domain.Session, error) {
	return s.repo.ListActiveByUser(ctx, userID, s.now())
}

// CountActive implements domain.SessionService
func (s *SessionServiceImpl) CountActive(ctx context.Context, organizationID string) (int64, error) {
	return s.repo.CountActiveByOrganization(ctx, organizationID, s.now())
}

// CleanupExpired implements domain.SessionService
func (s *SessionServiceImpl) CleanupExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to clean up sessions: %w", err)
	}
	metrics.SweptRecordsTotal.WithLabelValues("sessions").Add(float64(n))
	if n > 0 {
		s.logger.Info("expired sessions removed", zap.Int64("count", n))
	}
	return n, nil
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

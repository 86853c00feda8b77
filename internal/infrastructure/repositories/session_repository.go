package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/you/crmauth/domain"
	"gorm.io/gorm"
)

// SessionRepositoryImpl implements domain.SessionRepository using GORM
type SessionRepositoryImpl struct {
	db *gorm.DB
}

// DBSession is the database model for Session
type DBSession struct {
	ID             string    `gorm:"primaryKey;size:36"`
	Token          string    `gorm:"uniqueIndex;size:64"`
	UserID         string    `gorm:"index;size:36"`
	OrganizationID string    `gorm:"index;size:36"`
	ExpiresAt      time.Time `gorm:"index"`
	IPAddress      string    `gorm:"size:64"`
	UserAgent      string    `gorm:"size:512"`
	IsActive       bool      `gorm:"index"`
	LastActivityAt time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TableName returns the table name for GORM
func (DBSession) TableName() string {
	return "sessions"
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *gorm.DB) domain.SessionRepository {
	return &SessionRepositoryImpl{db: db}
}

// Create implements domain.SessionRepository
func (r *SessionRepositoryImpl) Create(ctx context.Context, session *domain.Session) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	row := sessionToDB(session)
	err := withRetry(ctx, func() error {
		return r.db.WithContext(ctx).Create(row).Error
	})
	if err != nil {
		return err
	}
	session.CreatedAt = row.CreatedAt
	session.UpdatedAt = row.UpdatedAt
	return nil
}

// FindByID implements domain.SessionRepository
func (r *SessionRepositoryImpl) FindByID(ctx context.Context, sessionID string) (*domain.Session, error) {
	return r.findOne(ctx, "id = ?", sessionID)
}

// FindByToken implements domain.SessionRepository
func (r *SessionRepositoryImpl) FindByToken(ctx context.Context, token string) (*domain.Session, error) {
	return r.findOne(ctx, "token = ?", token)
}

func (r *SessionRepositoryImpl) findOne(ctx context.Context, query string, arg interface{}) (*domain.Session, error) {
	var row DBSession
	if err := r.db.WithContext(ctx).Where(query, arg).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}
	return sessionToDomain(&row), nil
}

// Touch implements domain.SessionRepository. It never writes is_active.
func (r *SessionRepositoryImpl) Touch(ctx context.Context, sessionID string, expiresAt, lastActivityAt time.Time) error {
	res := r.db.WithContext(ctx).Model(&DBSession{}).
		Where("id = ? AND is_active = ?", sessionID, true).
		Updates(map[string]interface{}{
			"expires_at":       expiresAt.UTC(),
			"last_activity_at": lastActivityAt.UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// Deactivate implements domain.SessionRepository; deactivating twice is not an error
func (r *SessionRepositoryImpl) Deactivate(ctx context.Context, sessionID string) error {
	return r.db.WithContext(ctx).Model(&DBSession{}).
		Where("id = ? AND is_active = ?", sessionID, true).
		Update("is_active", false).Error
}

// DeactivateAllForUser implements domain.SessionRepository
func (r *SessionRepositoryImpl) DeactivateAllForUser(ctx context.Context, userID, exceptSessionID string) (int64, error) {
	q := r.db.WithContext(ctx).Model(&DBSession{}).Where("user_id = ? AND is_active = ?", userID, true)
	if exceptSessionID != "" {
		q = q.Where("id <> ?", exceptSessionID)
	}
	res := q.Update("is_active", false)
	return res.RowsAffected, res.Error
}

// ListActiveByUser implements domain.SessionRepository
func (r *SessionRepositoryImpl) ListActiveByUser(ctx context.Context, userID string, now time.Time) ([]*domain.Session, error) {
	var rows []DBSession
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ? AND expires_at > ?", userID, true, now.UTC()).
		Order("last_activity_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	sessions := make([]*domain.Session, 0, len(rows))
	for i := range rows {
		sessions = append(sessions, sessionToDomain(&rows[i]))
	}
	return sessions, nil
}

// CountActiveByOrganization implements domain.SessionRepository
func (r *SessionRepositoryImpl) CountActiveByOrganization(ctx context.Context, organizationID string, now time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&DBSession{}).
		Where("organization_id = ? AND is_active = ? AND expires_at > ?", organizationID, true, now.UTC()).
		Count(&n).Error
	return n, err
}

// DeleteExpired removes sessions that are expired or no longer active
func (r *SessionRepositoryImpl) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at < ? OR is_active = ?", now.UTC(), false).
		Delete(&DBSession{})
	return res.RowsAffected, res.Error
}

func sessionToDB(s *domain.Session) *DBSession {
	return &DBSession{
		ID:             s.ID,
		Token:          s.Token,
		UserID:         s.UserID,
		OrganizationID: s.OrganizationID,
		ExpiresAt:      s.ExpiresAt.UTC(),
		IPAddress:      s.IPAddress,
		UserAgent:      s.UserAgent,
		IsActive:       s.IsActive,
		LastActivityAt: s.LastActivityAt.UTC(),
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
}

func sessionToDomain(row *DBSession) *domain.Session {
	return &domain.Session{
		ID:             row.ID,
		Token:          row.Token,
		UserID:         row.UserID,
		OrganizationID: row.OrganizationID,
		ExpiresAt:      row.ExpiresAt.UTC(),
		IPAddress:      row.IPAddress,
		UserAgent:      row.UserAgent,
		IsActive:       row.IsActive,
		LastActivityAt: row.LastActivityAt.UTC(),
		CreatedAt:      row.CreatedAt.UTC(),
		UpdatedAt:      row.UpdatedAt.UTC(),
	}
}

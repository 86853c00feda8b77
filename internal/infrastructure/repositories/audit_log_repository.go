package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/you/crmauth/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditLogRepositoryImpl implements domain.AuditLogRepository using GORM
type AuditLogRepositoryImpl struct {
	db *gorm.DB
}

// DBAuditLog is the database model for AuditLog
type DBAuditLog struct {
	ID             string         `gorm:"primaryKey;size:36"`
	Action         string         `gorm:"index;size:64"`
	EntityType     string         `gorm:"index:idx_audit_entity;size:64"`
	EntityID       string         `gorm:"index:idx_audit_entity;size:36"`
	OldValues      datatypes.JSON `gorm:"type:json"`
	NewValues      datatypes.JSON `gorm:"type:json"`
	UserID         string         `gorm:"index;size:36"`
	OrganizationID string         `gorm:"index;size:36"`
	IPAddress      string         `gorm:"size:64"`
	UserAgent      string         `gorm:"size:512"`
	CreatedAt      time.Time      `gorm:"index"`
}

// TableName returns the table name for GORM
func (DBAuditLog) TableName() string {
	return "audit_logs"
}

// NewAuditLogRepository creates a new audit log repository
func NewAuditLogRepository(db *gorm.DB) domain.AuditLogRepository {
	return &AuditLogRepositoryImpl{db: db}
}

// Create implements domain.AuditLogRepository
func (r *AuditLogRepositoryImpl) Create(ctx context.Context, entry *domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	oldValues, err := marshalJSON(entry.OldValues)
	if err != nil {
		return err
	}
	newValues, err := marshalJSON(entry.NewValues)
	if err != nil {
		return err
	}

	return r.db.WithContext(ctx).Create(&DBAuditLog{
		ID:             entry.ID,
		Action:         string(entry.Action),
		EntityType:     entry.EntityType,
		EntityID:       entry.EntityID,
		OldValues:      oldValues,
		NewValues:      newValues,
		UserID:         entry.UserID,
		OrganizationID: entry.OrganizationID,
		IPAddress:      entry.IPAddress,
		UserAgent:      entry.UserAgent,
		CreatedAt:      entry.CreatedAt.UTC(),
	}).Error
}

// List implements domain.AuditLogRepository, newest first
func (r *AuditLogRepositoryImpl) List(ctx context.Context, query domain.AuditLogQuery) ([]*domain.AuditLog, error) {
	tx := r.db.WithContext(ctx).Model(&DBAuditLog{})
	if query.OrganizationID != "" {
		tx = tx.Where("organization_id = ?", query.OrganizationID)
	}
	if query.EntityType != "" {
		tx = tx.Where("entity_type = ?", query.EntityType)
	}
	if query.EntityID != "" {
		tx = tx.Where("entity_id = ?", query.EntityID)
	}
	if query.UserID != "" {
		tx = tx.Where("user_id = ?", query.UserID)
	}
	if !query.Since.IsZero() {
		tx = tx.Where("created_at >= ?", query.Since.UTC())
	}

	limit := query.Limit
	if limit <= 0 || limit > defaultEventLimit {
		limit = defaultEventLimit
	}

	var rows []DBAuditLog
	if err := tx.Order("created_at DESC").Limit(limit).Offset(query.Offset).Find(&rows).Error; err != nil {
		return nil, err
	}

	entries := make([]*domain.AuditLog, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, &domain.AuditLog{
			ID:             row.ID,
			Action:         domain.AuditAction(row.Action),
			EntityType:     row.EntityType,
			EntityID:       row.EntityID,
			OldValues:      unmarshalJSON(row.OldValues),
			NewValues:      unmarshalJSON(row.NewValues),
			UserID:         row.UserID,
			OrganizationID: row.OrganizationID,
			IPAddress:      row.IPAddress,
			UserAgent:      row.UserAgent,
			CreatedAt:      row.CreatedAt.UTC(),
		})
	}
	return entries, nil
}

// DeleteOlderThan implements domain.AuditLogRepository
func (r *AuditLogRepositoryImpl) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("created_at < ?", cutoff.UTC()).Delete(&DBAuditLog{})
	return res.RowsAffected, res.Error
}

package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/you/crmauth/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const defaultEventLimit = 100

// SecurityEventRepositoryImpl implements domain.SecurityEventRepository using GORM
type SecurityEventRepositoryImpl struct {
	db *gorm.DB
}

// DBSecurityEvent is the database model for SecurityEvent
type DBSecurityEvent struct {
	ID             string `gorm:"primaryKey;size:36"`
	Type           string `gorm:"column:event_type;index;size:64"`
	Severity       string `gorm:"index;size:16"`
	Description    string `gorm:"type:text"`
	UserID         string `gorm:"index;size:36"`
	IPAddress      string `gorm:"index;size:64"`
	UserAgent      string `gorm:"size:512"`
	OrganizationID string `gorm:"index;size:36"`
	Resolved       bool   `gorm:"index"`
	ResolvedAt     *time.Time
	ResolvedBy     string         `gorm:"size:36"`
	Metadata       datatypes.JSON `gorm:"type:json"`
	CreatedAt      time.Time      `gorm:"index"`
}

// TableName returns the table name for GORM
func (DBSecurityEvent) TableName() string {
	return "security_events"
}

// NewSecurityEventRepository creates a new security event repository
func NewSecurityEventRepository(db *gorm.DB) domain.SecurityEventRepository {
	return &SecurityEventRepositoryImpl{db: db}
}

// Create implements domain.SecurityEventRepository
func (r *SecurityEventRepositoryImpl) Create(ctx context.Context, event *domain.SecurityEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	row, err := eventToDB(event)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(row).Error
}

// FindByID implements domain.SecurityEventRepository
func (r *SecurityEventRepositoryImpl) FindByID(ctx context.Context, organizationID, id string) (*domain.SecurityEvent, error) {
	var row DBSecurityEvent
	err := r.db.WithContext(ctx).Where("organization_id = ? AND id = ?", organizationID, id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrResourceNotFound
		}
		return nil, err
	}
	return eventToDomain(&row), nil
}

// List implements domain.SecurityEventRepository, newest first
func (r *SecurityEventRepositoryImpl) List(ctx context.Context, query domain.SecurityEventQuery) ([]*domain.SecurityEvent, error) {
	limit := query.Limit
	if limit <= 0 || limit > defaultEventLimit {
		limit = defaultEventLimit
	}

	var rows []DBSecurityEvent
	err := r.scoped(ctx, query).
		Order("created_at DESC").
		Limit(limit).
		Offset(query.Offset).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	events := make([]*domain.SecurityEvent, 0, len(rows))
	for i := range rows {
		events = append(events, eventToDomain(&rows[i]))
	}
	return events, nil
}

// Count implements domain.SecurityEventRepository
func (r *SecurityEventRepositoryImpl) Count(ctx context.Context, query domain.SecurityEventQuery) (int64, error) {
	var n int64
	err := r.scoped(ctx, query).Count(&n).Error
	return n, err
}

type groupCount struct {
	Grp   string
	Total int64
}

// CountByType implements domain.SecurityEventRepository
func (r *SecurityEventRepositoryImpl) CountByType(ctx context.Context, query domain.SecurityEventQuery) (map[domain.SecurityEventType]int64, error) {
	var rows []groupCount
	err := r.scoped(ctx, query).
		Select("event_type AS grp, COUNT(*) AS total").
		Group("event_type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[domain.SecurityEventType]int64, len(rows))
	for _, row := range rows {
		out[domain.SecurityEventType(row.Grp)] = row.Total
	}
	return out, nil
}

// CountBySeverity implements domain.SecurityEventRepository
func (r *SecurityEventRepositoryImpl) CountBySeverity(ctx context.Context, query domain.SecurityEventQuery) (map[domain.Severity]int64, error) {
	var rows []groupCount
	err := r.scoped(ctx, query).
		Select("severity AS grp, COUNT(*) AS total").
		Group("severity").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[domain.Severity]int64, len(rows))
	for _, row := range rows {
		out[domain.Severity(row.Grp)] = row.Total
	}
	return out, nil
}

// DistinctIPs implements domain.SecurityEventRepository
func (r *SecurityEventRepositoryImpl) DistinctIPs(ctx context.Context, query domain.SecurityEventQuery) ([]string, error) {
	var ips []string
	err := r.scoped(ctx, query).
		Where("ip_address <> ''").
		Distinct().
		Pluck("ip_address", &ips).Error
	return ips, err
}

// Resolve implements domain.SecurityEventRepository
func (r *SecurityEventRepositoryImpl) Resolve(ctx context.Context, organizationID, id, resolvedBy string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&DBSecurityEvent{}).
		Where("organization_id = ? AND id = ?", organizationID, id).
		Updates(map[string]interface{}{
			"resolved":    true,
			"resolved_at": at.UTC(),
			"resolved_by": resolvedBy,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrResourceNotFound
	}
	return nil
}

func (r *SecurityEventRepositoryImpl) scoped(ctx context.Context, q domain.SecurityEventQuery) *gorm.DB {
	tx := r.db.WithContext(ctx).Model(&DBSecurityEvent{})
	if q.OrganizationID != "" {
		tx = tx.Where("organization_id = ?", q.OrganizationID)
	}
	if q.UserID != "" {
		tx = tx.Where("user_id = ?", q.UserID)
	}
	if len(q.Types) > 0 {
		types := make([]string, len(q.Types))
		for i, t := range q.Types {
			types[i] = string(t)
		}
		tx = tx.Where("event_type IN ?", types)
	}
	if len(q.Severities) > 0 {
		sev := make([]string, len(q.Severities))
		for i, s := range q.Severities {
			sev[i] = string(s)
		}
		tx = tx.Where("severity IN ?", sev)
	}
	if q.IPAddress != "" {
		tx = tx.Where("ip_address = ?", q.IPAddress)
	}
	if !q.Since.IsZero() {
		tx = tx.Where("created_at >= ?", q.Since.UTC())
	}
	if !q.Until.IsZero() {
		tx = tx.Where("created_at < ?", q.Until.UTC())
	}
	if q.Resolved != nil {
		tx = tx.Where("resolved = ?", *q.Resolved)
	}
	return tx
}

func eventToDB(e *domain.SecurityEvent) (*DBSecurityEvent, error) {
	meta, err := marshalJSON(e.Metadata)
	if err != nil {
		return nil, err
	}
	return &DBSecurityEvent{
		ID:             e.ID,
		Type:           string(e.Type),
		Severity:       string(e.Severity),
		Description:    e.Description,
		UserID:         e.UserID,
		IPAddress:      e.IPAddress,
		UserAgent:      e.UserAgent,
		OrganizationID: e.OrganizationID,
		Resolved:       e.Resolved,
		ResolvedAt:     e.ResolvedAt,
		ResolvedBy:     e.ResolvedBy,
		Metadata:       meta,
		CreatedAt:      e.CreatedAt.UTC(),
	}, nil
}

func eventToDomain(row *DBSecurityEvent) *domain.SecurityEvent {
	return &domain.SecurityEvent{
		ID:             row.ID,
		Type:           domain.SecurityEventType(row.Type),
		Severity:       domain.Severity(row.Severity),
		Description:    row.Description,
		UserID:         row.UserID,
		IPAddress:      row.IPAddress,
		UserAgent:      row.UserAgent,
		OrganizationID: row.OrganizationID,
		Resolved:       row.Resolved,
		ResolvedAt:     utcPtr(row.ResolvedAt),
		ResolvedBy:     row.ResolvedBy,
		Metadata:       unmarshalJSON(row.Metadata),
		CreatedAt:      row.CreatedAt.UTC(),
	}
}

func marshalJSON(m map[string]interface{}) (datatypes.JSON, error) {
	if len(m) == 0 {
		return datatypes.JSON("{}"), nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

func unmarshalJSON(raw datatypes.JSON) map[string]interface{} {
	out := map[string]interface{}{}
	if len(raw) == 0 {
		return out
	}
	_ = json.Unmarshal(raw, &out)
	return out
}

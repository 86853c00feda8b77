package mocks

import (
	"context"
	"time"

	"github.com/you/crmauth/domain"
)

// MockSecurityEventRepository implements domain.SecurityEventRepository interface for testing
type MockSecurityEventRepository struct {
	CreateFunc          func(ctx context.Context, event *domain.SecurityEvent) error
	FindByIDFunc        func(ctx context.Context, organizationID, id string) (*domain.SecurityEvent, error)
	ListFunc            func(ctx context.Context, query domain.SecurityEventQuery) ([]*domain.SecurityEvent, error)
	CountFunc           func(ctx context.Context, query domain.SecurityEventQuery) (int64, error)
	CountByTypeFunc     func(ctx context.Context, query domain.SecurityEventQuery) (map[domain.SecurityEventType]int64, error)
	CountBySeverityFunc func(ctx context.Context, query domain.SecurityEventQuery) (map[domain.Severity]int64, error)
	DistinctIPsFunc     func(ctx context.Context, query domain.SecurityEventQuery) ([]string, error)
	ResolveFunc         func(ctx context.Context, organizationID, id, resolvedBy string, at time.Time) error
}

var _ domain.SecurityEventRepository = (*MockSecurityEventRepository)(nil)

// NewMockSecurityEventRepository creates a new MockSecurityEventRepository
func NewMockSecurityEventRepository() *MockSecurityEventRepository {
	return &MockSecurityEventRepository{}
}

func (m *MockSecurityEventRepository) Create(ctx context.Context, event *domain.SecurityEvent) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, event)
	}
	if event.ID == "" {
		event.ID = "event-1"
	}
	return nil
}

func (m *MockSecurityEventRepository) FindByID(ctx context.Context, organizationID, id string) (*domain.SecurityEvent, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, organizationID, id)
	}
	return nil, domain.ErrResourceNotFound
}

func (m *MockSecurityEventRepository) List(ctx context.Context, query domain.SecurityEventQuery) ([]*domain.SecurityEvent, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, query)
	}
	return nil, nil
}

func (m *MockSecurityEventRepository) Count(ctx context.Context, query domain.SecurityEventQuery) (int64, error) {
	if m.CountFunc != nil {
		return m.CountFunc(ctx, query)
	}
	return 0, nil
}

func (m *MockSecurityEventRepository) CountByType(ctx context.Context, query domain.SecurityEventQuery) (map[domain.SecurityEventType]int64, error) {
	if m.CountByTypeFunc != nil {
		return m.CountByTypeFunc(ctx, query)
	}
	return map[domain.SecurityEventType]int64{}, nil
}

func (m *MockSecurityEventRepository) CountBySeverity(ctx context.Context, query domain.SecurityEventQuery) (map[domain.Severity]int64, error) {
	if m.CountBySeverityFunc != nil {
		return m.CountBySeverityFunc(ctx, query)
	}
	return map[domain.Severity]int64{}, nil
}

func (m *MockSecurityEventRepository) DistinctIPs(ctx context.Context, query domain.SecurityEventQuery) ([]string, error) {
	if m.DistinctIPsFunc != nil {
		return m.DistinctIPsFunc(ctx, query)
	}
	return nil, nil
}

func (m *MockSecurityEventRepository) Resolve(ctx context.Context, organizationID, id, resolvedBy string, at time.Time) error {
	if m.ResolveFunc != nil {
		return m.ResolveFunc(ctx, organizationID, id, resolvedBy, at)
	}
	return nil
}

// MockAuditLogRepository implements domain.AuditLogRepository interface for testing
type MockAuditLogRepository struct {
	CreateFunc          func(ctx context.Context, entry *domain.AuditLog) error
	ListFunc            func(ctx context.Context, query domain.AuditLogQuery) ([]*domain.AuditLog, error)
	DeleteOlderThanFunc func(ctx context.Context, cutoff time.Time) (int64, error)
}

var _ domain.AuditLogRepository = (*MockAuditLogRepository)(nil)

// NewMockAuditLogRepository creates a new MockAuditLogRepository
func NewMockAuditLogRepository() *MockAuditLogRepository {
	return &MockAuditLogRepository{}
}

func (m *MockAuditLogRepository) Create(ctx context.Context, entry *domain.AuditLog) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, entry)
	}
	return nil
}

func (m *MockAuditLogRepository) List(ctx context.Context, query domain.AuditLogQuery) ([]*domain.AuditLog, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, query)
	}
	return nil, nil
}

func (m *MockAuditLogRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	if m.DeleteOlderThanFunc != nil {
		return m.DeleteOlderThanFunc(ctx, cutoff)
	}
	return 0, nil
}

// MockMFASettingsRepository implements domain.MFASettingsRepository interface for testing
type MockMFASettingsRepository struct {
	FindByUserIDFunc    func(ctx context.Context, userID string) (*domain.MFASettings, error)
	UpsertFunc          func(ctx context.Context, settings *domain.MFASettings) error
	UpdateIfVersionFunc func(ctx context.Context, settings *domain.MFASettings, expected int) (bool, error)
	DeleteFunc          func(ctx context.Context, userID string) error
}

var _ domain.MFASettingsRepository = (*MockMFASettingsRepository)(nil)

// NewMockMFASettingsRepository creates a new MockMFASettingsRepository
func NewMockMFASettingsRepository() *MockMFASettingsRepository {
	return &MockMFASettingsRepository{}
}

func (m *MockMFASettingsRepository) FindByUserID(ctx context.Context, userID string) (*domain.MFASettings, error) {
	if m.FindByUserIDFunc != nil {
		return m.FindByUserIDFunc(ctx, userID)
	}
	return nil, domain.ErrMFANotSetUp
}

func (m *MockMFASettingsRepository) Upsert(ctx context.Context, settings *domain.MFASettings) error {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, settings)
	}
	return nil
}

func (m *MockMFASettingsRepository) UpdateIfVersion(ctx context.Context, settings *domain.MFASettings, expected int) (bool, error) {
	if m.UpdateIfVersionFunc != nil {
		return m.UpdateIfVersionFunc(ctx, settings, expected)
	}
	return true, nil
}

func (m *MockMFASettingsRepository) Delete(ctx context.Context, userID string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, userID)
	}
	return nil
}

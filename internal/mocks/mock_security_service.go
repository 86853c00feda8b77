package mocks

import (
	"context"

	"github.com/you/crmauth/domain"
)

// MockSecurityService implements domain.SecurityService interface for testing
type MockSecurityService struct {
	MockSecurityLogger

	GetSecurityMetricsFunc func(ctx context.Context, organizationID, timeRange string) (*domain.SecurityMetrics, error)
	ListEventsFunc         func(ctx context.Context, query domain.SecurityEventQuery) ([]*domain.SecurityEvent, error)
	GetDashboardFunc       func(ctx context.Context, organizationID string) (*domain.SecurityDashboard, error)
	ResolveEventFunc       func(ctx context.Context, organizationID, eventID, resolvedBy string) error
}

var _ domain.SecurityService = (*MockSecurityService)(nil)

// NewMockSecurityService creates a new MockSecurityService
func NewMockSecurityService() *MockSecurityService {
	return &MockSecurityService{}
}

func (m *MockSecurityService) GetSecurityMetrics(ctx context.Context, organizationID, timeRange string) (*domain.SecurityMetrics, error) {
	if m.GetSecurityMetricsFunc != nil {
		return m.GetSecurityMetricsFunc(ctx, organizationID, timeRange)
	}
	return &domain.SecurityMetrics{
		TimeRange:        timeRange,
		EventsByType:     map[domain.SecurityEventType]int64{},
		EventsBySeverity: map[domain.Severity]int64{},
	}, nil
}

func (m *MockSecurityService) ListEvents(ctx context.Context, query domain.SecurityEventQuery) ([]*domain.SecurityEvent, error) {
	if m.ListEventsFunc != nil {
		return m.ListEventsFunc(ctx, query)
	}
	return []*domain.SecurityEvent{}, nil
}

func (m *MockSecurityService) GetDashboard(ctx context.Context, organizationID string) (*domain.SecurityDashboard, error) {
	if m.GetDashboardFunc != nil {
		return m.GetDashboardFunc(ctx, organizationID)
	}
	metrics, _ := m.GetSecurityMetrics(ctx, organizationID, "24h")
	return &domain.SecurityDashboard{Metrics: metrics}, nil
}

func (m *MockSecurityService) ResolveEvent(ctx context.Context, organizationID, eventID, resolvedBy string) error {
	if m.ResolveEventFunc != nil {
		return m.ResolveEventFunc(ctx, organizationID, eventID, resolvedBy)
	}
	return nil
}

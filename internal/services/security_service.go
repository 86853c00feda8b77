package services

import (
	"context"
	"fmt"
	"time"

	"github.com/you/crmauth/domain"
	"github.com/you/crmauth/internal/metrics"
	"go.uber.org/zap"
)

const (
	recentEventsLimit     = 10
	suspiciousEventsLimit = 20
	maxEventsPageSize     = 100
	defaultTimeRange      = "24h"
)

var timeRanges = map[string]time.Duration{
	"1h":  time.Hour,
	"24h": 24 * time.Hour,
	"7d":  7 * 24 * time.Hour,
	"30d": 30 * 24 * time.Hour,
}

// SecurityServiceImpl implements domain.SecurityService
type SecurityServiceImpl struct {
	repo     domain.SecurityEventRepository
	detector domain.SuspiciousActivityDetector
	sessions domain.SessionService
	logger   *zap.Logger
	now      func() time.Time
}

// NewSecurityService creates a new security service. detector and sessions may be nil.
func NewSecurityService(
	repo domain.SecurityEventRepository,
	detector domain.SuspiciousActivityDetector,
	sessions domain.SessionService,
	logger *zap.Logger,
) domain.SecurityService {
	return &SecurityServiceImpl{
		repo:     repo,
		detector: detector,
		sessions: sessions,
		logger:   logger.With(zap.String("component", "security")),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// LogSecurityEvent implements domain.SecurityLogger
func (s *SecurityServiceImpl) LogSecurityEvent(ctx context.Context, event *domain.SecurityEvent) {
	if !s.record(ctx, event) {
		return
	}
	if s.detector == nil || event.Type == domain.SuspiciousActivityEvent {
		return
	}

	findings, err := s.detector.Detect(ctx, event)
	if err != nil {
		s.logger.Warn("suspicious activity detection failed",
			zap.String("event_id", event.ID),
			zap.Error(err))
		return
	}
	for _, f := range findings {
		s.record(ctx, f)
	}
}

func (s *SecurityServiceImpl) record(ctx context.Context, event *domain.SecurityEvent) bool {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.now()
	}
	if event.OrganizationID == "" {
		event.OrganizationID = domain.UnknownOrganization
	}
	if event.Metadata == nil {
		event.Metadata = map[string]interface{}{}
	}

	fields := []zap.Field{
		zap.String("type", string(event.Type)),
		zap.String("severity", string(event.Severity)),
		zap.String("user_id", event.UserID),
		zap.String("organization_id", event.OrganizationID),
		zap.String("ip", event.IPAddress),
	}

	if err := s.repo.Create(ctx, event); err != nil {
		s.logger.Error("failed to persist security event", append(fields, zap.Error(err))...)
		return false
	}
	metrics.SecurityEventsTotal.WithLabelValues(string(event.Type), string(event.Severity)).Inc()

	fields = append(fields, zap.String("event_id", event.ID))
	switch event.Severity {
	case domain.SeverityHigh, domain.SeverityCritical:
		s.logger.Warn(event.Description, fields...)
	default:
		s.logger.Info(event.Description, fields...)
	}
	return true
}

// GetSecurityMetrics implements domain.SecurityService. Unknown ranges fall back to 24h.
func (s *SecurityServiceImpl) GetSecurityMetrics(ctx context.Context, organizationID, timeRange string) (*domain.SecurityMetrics, error) {
	window, ok := timeRanges[timeRange]
	if !ok {
		timeRange = defaultTimeRange
		window = timeRanges[defaultTimeRange]
	}

	q := domain.SecurityEventQuery{
		OrganizationID: organizationID,
		Since:          s.now().Add(-window),
	}

	total, err := s.repo.Count(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to count security events: %w", err)
	}
	byType, err := s.repo.CountByType(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to group security events by type: %w", err)
	}
	bySeverity, err := s.repo.CountBySeverity(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to group security events by severity: %w", err)
	}

	recentQ := q
	recentQ.Limit = recentEventsLimit
	recent, err := s.repo.List(ctx, recentQ)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent security events: %w", err)
	}

	suspiciousQ := q
	suspiciousQ.Types = []domain.SecurityEventType{domain.SuspiciousActivityEvent}
	suspiciousQ.Limit = suspiciousEventsLimit
	suspicious, err := s.repo.List(ctx, suspiciousQ)
	if err != nil {
		return nil, fmt.Errorf("failed to list suspicious activities: %w", err)
	}

	return &domain.SecurityMetrics{
		TimeRange:            timeRange,
		TotalEvents:          total,
		EventsByType:         byType,
		EventsBySeverity:     bySeverity,
		RecentEvents:         nonNilEvents(recent),
		SuspiciousActivities: nonNilEvents(suspicious),
	}, nil
}

// ListEvents implements domain.SecurityService
func (s *SecurityServiceImpl) ListEvents(ctx context.Context, query domain.SecurityEventQuery) ([]*domain.SecurityEvent, error) {
	if query.Limit <= 0 || query.Limit > maxEventsPageSize {
		query.Limit = maxEventsPageSize
	}
	if query.Offset < 0 {
		query.Offset = 0
	}
	events, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list security events: %w", err)
	}
	return nonNilEvents(events), nil
}

// GetDashboard implements domain.SecurityService
func (s *SecurityServiceImpl) GetDashboard(ctx context.Context, organizationID string) (*domain.SecurityDashboard, error) {
	m, err := s.GetSecurityMetrics(ctx, organizationID, defaultTimeRange)
	if err != nil {
		return nil, err
	}

	unresolved := false
	highRisk, err := s.repo.Count(ctx, domain.SecurityEventQuery{
		OrganizationID: organizationID,
		Severities:     []domain.Severity{domain.SeverityHigh, domain.SeverityCritical},
		Resolved:       &unresolved,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to count unresolved events: %w", err)
	}

	dashboard := &domain.SecurityDashboard{Metrics: m, UnresolvedHighRisk: highRisk}
	if s.sessions != nil {
		active, err := s.sessions.CountActive(ctx, organizationID)
		if err != nil {
			return nil, fmt.Errorf("failed to count active sessions: %w", err)
		}
		dashboard.ActiveSessions = active
	}
	return dashboard, nil
}

// ResolveEvent implements domain.SecurityService
func (s *SecurityServiceImpl) ResolveEvent(ctx context.Context, organizationID, eventID, resolvedBy string) error {
	if err := s.repo.Resolve(ctx, organizationID, eventID, resolvedBy, s.now()); err != nil {
		return err
	}
	s.logger.Info("security event resolved",
		zap.String("event_id", eventID),
		zap.String("organization_id", organizationID),
		zap.String("resolved_by", resolvedBy))
	return nil
}

func nonNilEvents(events []*domain.SecurityEvent) []*domain.SecurityEvent {
	if events == nil {
		return []*domain.SecurityEvent{}
	}
	return events
}

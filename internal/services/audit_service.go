package services

import (
	"context"
	"fmt"
	"time"

	"github.com/you/crmauth/domain"
	"github.com/you/crmauth/internal/metrics"
	"go.uber.org/zap"
)

// AuditServiceImpl implements domain.AuditLogger
type AuditServiceImpl struct {
	repo   domain.AuditLogRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewAuditService creates a new audit logger
func NewAuditService(repo domain.AuditLogRepository, logger *zap.Logger) domain.AuditLogger {
	return &AuditServiceImpl{
		repo:   repo,
		logger: logger.With(zap.String("component", "audit")),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Log implements domain.AuditLogger. Failures are logged and never surface.
func (s *AuditServiceImpl) Log(ctx context.Context, entry *domain.AuditLog) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now()
	}
	if entry.OrganizationID == "" {
		entry.OrganizationID = domain.UnknownOrganization
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		s.logger.Error("failed to write audit log",
			zap.String("action", string(entry.Action)),
			zap.String("entity_type", entry.EntityType),
			zap.String("entity_id", entry.EntityID),
			zap.Error(err))
	}
}

// List implements domain.AuditLogger
func (s *AuditServiceImpl) List(ctx context.Context, query domain.AuditLogQuery) ([]*domain.AuditLog, error) {
	return s.repo.List(ctx, query)
}

// PurgeExpired implements domain.AuditLogger
func (s *AuditServiceImpl) PurgeExpired(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-domain.AuditLogRetention)
	n, err := s.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge audit logs: %w", err)
	}
	metrics.SweptRecordsTotal.WithLabelValues("audit_logs").Add(float64(n))
	if n > 0 {
		s.logger.Info("expired audit logs purged", zap.Int64("count", n), zap.Time("cutoff", cutoff))
	}
	return n, nil
}

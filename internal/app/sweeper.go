package app

import (
	"context"
	"time"

	"github.com/you/crmauth/domain"
	"go.uber.org/zap"
)

// Sweeper removes expired sessions and audit entries past retention. The services
// count and log what they remove.
type Sweeper struct {
	sessions        domain.SessionService
	audit           domain.AuditLogger
	sessionInterval time.Duration
	auditInterval   time.Duration
	logger          *zap.Logger
}

// NewSweeper creates a sweeper running session cleanup hourly and audit retention daily
func NewSweeper(sessions domain.SessionService, audit domain.AuditLogger, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		sessions:        sessions,
		audit:           audit,
		sessionInterval: time.Hour,
		auditInterval:   24 * time.Hour,
		logger:          logger.With(zap.String("component", "sweeper")),
	}
}

// Run sweeps once immediately and then on every tick until ctx is cancelled
func (s *Sweeper) Run(ctx context.Context) {
	sessionTicker := time.NewTicker(s.sessionInterval)
	defer sessionTicker.Stop()
	auditTicker := time.NewTicker(s.auditInterval)
	defer auditTicker.Stop()

	s.sweepSessions(ctx)
	s.sweepAudit(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-sessionTicker.C:
			s.sweepSessions(ctx)
		case <-auditTicker.C:
			s.sweepAudit(ctx)
		}
	}
}

func (s *Sweeper) sweepSessions(ctx context.Context) {
	if _, err := s.sessions.CleanupExpired(ctx); err != nil {
		s.logger.Error("session cleanup failed", zap.Error(err))
	}
}

func (s *Sweeper) sweepAudit(ctx context.Context) {
	if _, err := s.audit.PurgeExpired(ctx); err != nil {
		s.logger.Error("audit retention sweep failed", zap.Error(err))
	}
}

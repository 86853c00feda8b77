package services

import (
	"context"
	"fmt"
	"time"

	"github.com/you/crmauth/domain"
)

// Detection thresholds
const (
	BruteForceThreshold = 5
	BruteForceWindow    = 15 * time.Minute
	NewLocationLookback = 30 * 24 * time.Hour
	VelocityThreshold   = 3
	VelocityWindow      = 5 * time.Minute
)

// SuspiciousActivityDetectorImpl runs stateless queries over the event table
type SuspiciousActivityDetectorImpl struct {
	repo domain.SecurityEventRepository
	now  func() time.Time
}

// NewSuspiciousActivityDetector creates the query based detector
func NewSuspiciousActivityDetector(repo domain.SecurityEventRepository) domain.SuspiciousActivityDetector {
	return &SuspiciousActivityDetectorImpl{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Detect implements domain.SuspiciousActivityDetector
func (d *SuspiciousActivityDetectorImpl) Detect(ctx context.Context, event *domain.SecurityEvent) ([]*domain.SecurityEvent, error) {
	if event.UserID == "" {
		return nil, nil
	}

	switch event.Type {
	case domain.LoginFailedEvent:
		f, err := d.bruteForce(ctx, event)
		if err != nil || f == nil {
			return nil, err
		}
		return []*domain.SecurityEvent{f}, nil

	case domain.LoginSuccessEvent:
		var findings []*domain.SecurityEvent
		f, err := d.newLocation(ctx, event)
		if err != nil {
			return nil, err
		}
		if f != nil {
			findings = append(findings, f)
		}
		f, err = d.velocity(ctx, event)
		if err != nil {
			return findings, err
		}
		if f != nil {
			findings = append(findings, f)
		}
		return findings, nil
	}
	return nil, nil
}

func (d *SuspiciousActivityDetectorImpl) bruteForce(ctx context.Context, event *domain.SecurityEvent) (*domain.SecurityEvent, error) {
	n, err := d.repo.Count(ctx, domain.SecurityEventQuery{
		UserID: event.UserID,
		Types:  []domain.SecurityEventType{domain.LoginFailedEvent},
		Since:  d.now().Add(-BruteForceWindow),
	})
	if err != nil {
		return nil, fmt.Errorf("brute force check: %w", err)
	}
	if n < BruteForceThreshold {
		return nil, nil
	}
	return finding(event, domain.SeverityHigh, "Possible brute force attack").
		WithMetadata("pattern", "brute_force").
		WithMetadata("failedAttempts", n).
		WithMetadata("window", BruteForceWindow.String()), nil
}

// newLocation flags a login from an IP the user has not logged in from in the
// lookback window. Users without any earlier login are not flagged.
func (d *SuspiciousActivityDetectorImpl) newLocation(ctx context.Context, event *domain.SecurityEvent) (*domain.SecurityEvent, error) {
	if event.IPAddress == "" {
		return nil, nil
	}
	ips, err := d.repo.DistinctIPs(ctx, domain.SecurityEventQuery{
		UserID: event.UserID,
		Types:  []domain.SecurityEventType{domain.LoginSuccessEvent},
		Since:  d.now().Add(-NewLocationLookback),
		Until:  event.CreatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("new location check: %w", err)
	}
	if len(ips) == 0 {
		return nil, nil
	}
	for _, ip := range ips {
		if ip == event.IPAddress {
			return nil, nil
		}
	}
	return finding(event, domain.SeverityMedium, "Login from new location").
		WithMetadata("pattern", "new_location").
		WithMetadata("knownIPs", len(ips)), nil
}

func (d *SuspiciousActivityDetectorImpl) velocity(ctx context.Context, event *domain.SecurityEvent) (*domain.SecurityEvent, error) {
	n, err := d.repo.Count(ctx, domain.SecurityEventQuery{
		UserID: event.UserID,
		Types:  []domain.SecurityEventType{domain.LoginSuccessEvent},
		Since:  d.now().Add(-VelocityWindow),
	})
	if err != nil {
		return nil, fmt.Errorf("velocity check: %w", err)
	}
	if n < VelocityThreshold {
		return nil, nil
	}
	return finding(event, domain.SeverityMedium, "Unusual login velocity").
		WithMetadata("pattern", "velocity").
		WithMetadata("recentLogins", n).
		WithMetadata("window", VelocityWindow.String()), nil
}

func finding(trigger *domain.SecurityEvent, severity domain.Severity, description string) *domain.SecurityEvent {
	e := domain.NewSecurityEvent(domain.SuspiciousActivityEvent, severity, description).
		ForUser(trigger.UserID, trigger.OrganizationID).
		WithMetadata("triggerEventId", trigger.ID).
		WithMetadata("triggerEventType", string(trigger.Type))
	e.IPAddress = trigger.IPAddress
	e.UserAgent = trigger.UserAgent
	return e
}

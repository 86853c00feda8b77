package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/you/crmauth/domain"
	"github.com/you/crmauth/internal/mocks"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type stubDetector struct {
	findings []*domain.SecurityEvent
	err      error
	seen     []*domain.SecurityEvent
}

func (d *stubDetector) Detect(ctx context.Context, event *domain.SecurityEvent) ([]*domain.SecurityEvent, error) {
	d.seen = append(d.seen, event)
	return d.findings, d.err
}

func newSecurityServiceForTest(t *testing.T, repo domain.SecurityEventRepository, detector domain.SuspiciousActivityDetector, sessions domain.SessionService) (*SecurityServiceImpl, *observer.ObservedLogs) {
	t.Helper()

	core, logs := observer.New(zapcore.DebugLevel)
	svc := NewSecurityService(repo, detector, sessions, zap.New(core)).(*SecurityServiceImpl)
	svc.now = func() time.Time { return fixedNow }
	return svc, logs
}

func TestSecurityServiceImpl_LogSecurityEvent(t *testing.T) {
	tests := []struct {
		name         string
		event        *domain.SecurityEvent
		createErr    error
		detector     *stubDetector
		wantStored   int
		wantDetected bool
		wantLevel    zapcore.Level
	}{
		{
			name:         "low severity is logged at info and inspected",
			event:        domain.NewSecurityEvent(domain.LoginSuccessEvent, domain.SeverityLow, "Successful login").ForUser("user-1", "org-1"),
			detector:     &stubDetector{},
			wantStored:   1,
			wantDetected: true,
			wantLevel:    zapcore.InfoLevel,
		},
		{
			name:         "high severity is logged at warn",
			event:        domain.NewSecurityEvent(domain.AccountLockedEvent, domain.SeverityHigh, "Account locked").ForUser("user-1", "org-1"),
			detector:     &stubDetector{},
			wantStored:   1,
			wantDetected: true,
			wantLevel:    zapcore.WarnLevel,
		},
		{
			name:  "findings are stored as well",
			event: domain.NewSecurityEvent(domain.LoginFailedEvent, domain.SeverityMedium, "Failed login").ForUser("user-1", "org-1"),
			detector: &stubDetector{findings: []*domain.SecurityEvent{
				domain.NewSecurityEvent(domain.SuspiciousActivityEvent, domain.SeverityHigh, "Possible brute force attack").ForUser("user-1", "org-1"),
			}},
			wantStored:   2,
			wantDetected: true,
			wantLevel:    zapcore.InfoLevel,
		},
		{
			name:         "suspicious events are not inspected again",
			event:        domain.NewSecurityEvent(domain.SuspiciousActivityEvent, domain.SeverityMedium, "Unusual login velocity").ForUser("user-1", "org-1"),
			detector:     &stubDetector{},
			wantStored:   1,
			wantDetected: false,
			wantLevel:    zapcore.InfoLevel,
		},
		{
			name:         "detector failure keeps the original event",
			event:        domain.NewSecurityEvent(domain.LoginFailedEvent, domain.SeverityMedium, "Failed login").ForUser("user-1", "org-1"),
			detector:     &stubDetector{err: errors.New("query failed")},
			wantStored:   1,
			wantDetected: true,
			wantLevel:    zapcore.InfoLevel,
		},
		{
			name:       "persistence failure is swallowed",
			event:      domain.NewSecurityEvent(domain.LoginFailedEvent, domain.SeverityMedium, "Failed login"),
			createErr:  errors.New("db down"),
			detector:   &stubDetector{},
			wantStored: 0,
			wantLevel:  zapcore.ErrorLevel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := mocks.NewMockSecurityEventRepository()
			var stored []*domain.SecurityEvent
			repo.CreateFunc = func(ctx context.Context, event *domain.SecurityEvent) error {
				if tt.createErr != nil {
					return tt.createErr
				}
				event.ID = "event-" + string(rune('a'+len(stored)))
				stored = append(stored, event)
				return nil
			}
			svc, logs := newSecurityServiceForTest(t, repo, tt.detector, nil)

			svc.LogSecurityEvent(createTestContext(t), tt.event)

			if len(stored) != tt.wantStored {
				t.Fatalf("stored %d events, want %d", len(stored), tt.wantStored)
			}
			if got := len(tt.detector.seen) > 0; got != tt.wantDetected {
				t.Errorf("detector ran = %v, want %v", got, tt.wantDetected)
			}
			if logs.Len() == 0 || logs.All()[0].Level != tt.wantLevel {
				t.Errorf("expected first log at %v, got %+v", tt.wantLevel, logs.All())
			}
			if tt.event.OrganizationID == "" {
				t.Error("organization should default to unknown")
			}
		})
	}
}

func TestSecurityServiceImpl_RecordDefaults(t *testing.T) {
	repo := mocks.NewMockSecurityEventRepository()
	svc, _ := newSecurityServiceForTest(t, repo, nil, nil)

	event := &domain.SecurityEvent{Type: domain.LogoutEvent, Severity: domain.SeverityLow, Description: "bare"}
	svc.LogSecurityEvent(createTestContext(t), event)

	if event.OrganizationID != domain.UnknownOrganization {
		t.Errorf("expected unknown org, got %q", event.OrganizationID)
	}
	if !event.CreatedAt.Equal(fixedNow) {
		t.Errorf("expected CreatedAt from the clock, got %v", event.CreatedAt)
	}
	if event.Metadata == nil {
		t.Error("metadata should be initialised")
	}
	if event.ID != "event-1" {
		t.Errorf("expected repository assigned ID, got %q", event.ID)
	}
}

func TestSecurityServiceImpl_GetSecurityMetrics(t *testing.T) {
	tests := []struct {
		name      string
		timeRange string
		wantRange string
		wantSince time.Time
	}{
		{"one hour", "1h", "1h", fixedNow.Add(-time.Hour)},
		{"seven days", "7d", "7d", fixedNow.Add(-7 * 24 * time.Hour)},
		{"thirty days", "30d", "30d", fixedNow.Add(-30 * 24 * time.Hour)},
		{"unknown falls back to a day", "1y", "24h", fixedNow.Add(-24 * time.Hour)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := mocks.NewMockSecurityEventRepository()
			var queries []domain.SecurityEventQuery
			repo.CountFunc = func(ctx context.Context, q domain.SecurityEventQuery) (int64, error) {
				queries = append(queries, q)
				return 7, nil
			}
			repo.CountByTypeFunc = func(ctx context.Context, q domain.SecurityEventQuery) (map[domain.SecurityEventType]int64, error) {
				return map[domain.SecurityEventType]int64{domain.LoginFailedEvent: 7}, nil
			}
			var lists []domain.SecurityEventQuery
			repo.ListFunc = func(ctx context.Context, q domain.SecurityEventQuery) ([]*domain.SecurityEvent, error) {
				lists = append(lists, q)
				return nil, nil
			}
			svc, _ := newSecurityServiceForTest(t, repo, nil, nil)

			m, err := svc.GetSecurityMetrics(createTestContext(t), "org-1", tt.timeRange)
			if err != nil {
				t.Fatalf("GetSecurityMetrics() error = %v", err)
			}
			if m.TimeRange != tt.wantRange || m.TotalEvents != 7 || m.EventsByType[domain.LoginFailedEvent] != 7 {
				t.Errorf("unexpected metrics %+v", m)
			}
			if len(queries) != 1 || !queries[0].Since.Equal(tt.wantSince) || queries[0].OrganizationID != "org-1" {
				t.Errorf("unexpected count query %+v", queries)
			}
			if len(lists) != 2 || lists[0].Limit != 10 || lists[1].Limit != 20 || len(lists[1].Types) != 1 || lists[1].Types[0] != domain.SuspiciousActivityEvent {
				t.Errorf("unexpected list queries %+v", lists)
			}
			if m.RecentEvents == nil || m.SuspiciousActivities == nil {
				t.Error("event lists should be empty, not nil")
			}
		})
	}
}

func TestSecurityServiceImpl_ListEvents(t *testing.T) {
	tests := []struct {
		limit, offset         int
		wantLimit, wantOffset int
	}{
		{0, 0, 100, 0},
		{-5, -1, 100, 0},
		{25, 50, 25, 50},
		{500, 0, 100, 0},
	}

	for _, tt := range tests {
		repo := mocks.NewMockSecurityEventRepository()
		var got domain.SecurityEventQuery
		repo.ListFunc = func(ctx context.Context, q domain.SecurityEventQuery) ([]*domain.SecurityEvent, error) {
			got = q
			return nil, nil
		}
		svc, _ := newSecurityServiceForTest(t, repo, nil, nil)

		events, err := svc.ListEvents(createTestContext(t), domain.SecurityEventQuery{OrganizationID: "org-1", Limit: tt.limit, Offset: tt.offset})
		if err != nil {
			t.Fatalf("ListEvents() error = %v", err)
		}
		if events == nil {
			t.Error("expected an empty slice")
		}
		if got.Limit != tt.wantLimit || got.Offset != tt.wantOffset {
			t.Errorf("limit/offset %d/%d became %d/%d, want %d/%d", tt.limit, tt.offset, got.Limit, got.Offset, tt.wantLimit, tt.wantOffset)
		}
	}
}

func TestSecurityServiceImpl_GetDashboard(t *testing.T) {
	repo := mocks.NewMockSecurityEventRepository()
	repo.CountFunc = func(ctx context.Context, q domain.SecurityEventQuery) (int64, error) {
		if q.Resolved != nil {
			if *q.Resolved || len(q.Severities) != 2 {
				t.Errorf("unexpected high risk query %+v", q)
			}
			return 3, nil
		}
		return 12, nil
	}
	sessions := mocks.NewMockSessionService()
	sessions.CountActiveFunc = func(ctx context.Context, organizationID string) (int64, error) {
		if organizationID != "org-1" {
			t.Errorf("unexpected org %s", organizationID)
		}
		return 4, nil
	}
	svc, _ := newSecurityServiceForTest(t, repo, nil, sessions)

	d, err := svc.GetDashboard(createTestContext(t), "org-1")
	if err != nil {
		t.Fatalf("GetDashboard() error = %v", err)
	}
	if d.Metrics.TotalEvents != 12 || d.Metrics.TimeRange != "24h" || d.UnresolvedHighRisk != 3 || d.ActiveSessions != 4 {
		t.Errorf("unexpected dashboard %+v", d)
	}
}

func TestSecurityServiceImpl_ResolveEvent(t *testing.T) {
	repo := mocks.NewMockSecurityEventRepository()
	repo.ResolveFunc = func(ctx context.Context, organizationID, id, resolvedBy string, at time.Time) error {
		if id != "event-9" {
			return domain.ErrResourceNotFound
		}
		if organizationID != "org-1" || resolvedBy != "admin-1" || !at.Equal(fixedNow) {
			t.Errorf("unexpected resolve args %s %s %v", organizationID, resolvedBy, at)
		}
		return nil
	}
	svc, logs := newSecurityServiceForTest(t, repo, nil, nil)

	if err := svc.ResolveEvent(createTestContext(t), "org-1", "event-9", "admin-1"); err != nil {
		t.Fatalf("ResolveEvent() error = %v", err)
	}
	if logs.FilterMessage("security event resolved").Len() != 1 {
		t.Error("expected resolve log line")
	}
	if err := svc.ResolveEvent(createTestContext(t), "org-1", "missing", "admin-1"); !errors.Is(err, domain.ErrResourceNotFound) {
		t.Errorf("expected ErrResourceNotFound, got %v", err)
	}
}

func TestSuspiciousActivityDetector(t *testing.T) {
	trigger := func(eventType domain.SecurityEventType, ip string) *domain.SecurityEvent {
		e := domain.NewSecurityEvent(eventType, domain.SeverityLow, "trigger").ForUser("user-1", "org-1")
		e.ID = "event-42"
		e.IPAddress = ip
		e.CreatedAt = fixedNow
		return e
	}

	tests := []struct {
		name         string
		event        *domain.SecurityEvent
		failed       int64
		logins       int64
		knownIPs     []string
		wantPatterns []string
	}{
		{name: "below brute force threshold", event: trigger(domain.LoginFailedEvent, "10.0.0.1"), failed: 4},
		{name: "brute force", event: trigger(domain.LoginFailedEvent, "10.0.0.1"), failed: 5, wantPatterns: []string{"brute_force"}},
		{name: "first login ever", event: trigger(domain.LoginSuccessEvent, "10.0.0.1"), logins: 1},
		{name: "known location", event: trigger(domain.LoginSuccessEvent, "10.0.0.1"), logins: 1, knownIPs: []string{"10.0.0.1"}},
		{name: "new location", event: trigger(domain.LoginSuccessEvent, "192.0.2.7"), logins: 1, knownIPs: []string{"10.0.0.1"}, wantPatterns: []string{"new_location"}},
		{name: "velocity", event: trigger(domain.LoginSuccessEvent, "10.0.0.1"), logins: 3, knownIPs: []string{"10.0.0.1"}, wantPatterns: []string{"velocity"}},
		{name: "new location and velocity", event: trigger(domain.LoginSuccessEvent, "192.0.2.7"), logins: 4, knownIPs: []string{"10.0.0.1"}, wantPatterns: []string{"new_location", "velocity"}},
		{name: "other event types are ignored", event: trigger(domain.PasswordChangedEvent, "10.0.0.1"), failed: 50, logins: 50},
		{name: "anonymous events are ignored", event: trigger(domain.LoginFailedEvent, "10.0.0.1").ForUser("", "org-1"), failed: 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := mocks.NewMockSecurityEventRepository()
			repo.CountFunc = func(ctx context.Context, q domain.SecurityEventQuery) (int64, error) {
				switch q.Types[0] {
				case domain.LoginFailedEvent:
					if !q.Since.Equal(fixedNow.Add(-BruteForceWindow)) {
						t.Errorf("unexpected brute force window %v", q.Since)
					}
					return tt.failed, nil
				case domain.LoginSuccessEvent:
					return tt.logins, nil
				}
				return 0, nil
			}
			repo.DistinctIPsFunc = func(ctx context.Context, q domain.SecurityEventQuery) ([]string, error) {
				if !q.Until.Equal(tt.event.CreatedAt) {
					t.Errorf("history must end at the trigger, got %v", q.Until)
				}
				return tt.knownIPs, nil
			}
			d := NewSuspiciousActivityDetector(repo).(*SuspiciousActivityDetectorImpl)
			d.now = func() time.Time { return fixedNow }

			findings, err := d.Detect(createTestContext(t), tt.event)
			if err != nil {
				t.Fatalf("Detect() error = %v", err)
			}
			if len(findings) != len(tt.wantPatterns) {
				t.Fatalf("got %d findings, want %v", len(findings), tt.wantPatterns)
			}
			for i, f := range findings {
				if f.Type != domain.SuspiciousActivityEvent || f.Metadata["pattern"] != tt.wantPatterns[i] {
					t.Errorf("finding %d = %s/%v, want %s", i, f.Type, f.Metadata["pattern"], tt.wantPatterns[i])
				}
				if f.Metadata["triggerEventId"] != "event-42" || f.UserID != "user-1" || f.OrganizationID != "org-1" {
					t.Errorf("finding not linked to trigger: %+v", f)
				}
			}
			if len(findings) > 0 && tt.wantPatterns[0] == "brute_force" && findings[0].Severity != domain.SeverityHigh {
				t.Error("brute force should be HIGH")
			}
		})
	}
}

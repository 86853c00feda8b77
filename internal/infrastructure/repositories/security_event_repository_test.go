package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/you/crmauth/domain"
)

func seedEvent(t *testing.T, repo domain.SecurityEventRepository, typ domain.SecurityEventType, sev domain.Severity, userID, orgID, ip string, at time.Time) *domain.SecurityEvent {
	t.Helper()
	e := domain.NewSecurityEvent(typ, sev, "test event").ForUser(userID, orgID)
	e.IPAddress = ip
	e.CreatedAt = at
	e.WithMetadata("attempt", 1)
	if err := repo.Create(context.Background(), e); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return e
}

func TestSecurityEventRepositoryImpl_CreateAndFind(t *testing.T) {
	repo := NewSecurityEventRepository(setupTestDB(t))
	ctx := context.Background()

	e := seedEvent(t, repo, domain.LoginFailedEvent, domain.SeverityMedium, "user-1", "org-1", "10.0.0.1", time.Now().UTC())
	if e.ID == "" {
		t.Fatal("Create() should assign an ID")
	}

	found, err := repo.FindByID(ctx, "org-1", e.ID)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if found.Type != domain.LoginFailedEvent || found.Severity != domain.SeverityMedium {
		t.Errorf("unexpected event %+v", found)
	}
	if found.Metadata["attempt"] != float64(1) {
		t.Errorf("metadata should round-trip through JSON, got %v", found.Metadata)
	}

	if _, err := repo.FindByID(ctx, "org-2", e.ID); !errors.Is(err, domain.ErrResourceNotFound) {
		t.Errorf("events of another tenant must be invisible, got %v", err)
	}
}

func TestSecurityEventRepositoryImpl_QueryFilters(t *testing.T) {
	repo := NewSecurityEventRepository(setupTestDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	seedEvent(t, repo, domain.LoginFailedEvent, domain.SeverityMedium, "user-1", "org-1", "10.0.0.1", now.Add(-2*time.Minute))
	seedEvent(t, repo, domain.LoginFailedEvent, domain.SeverityMedium, "user-1", "org-1", "10.0.0.1", now.Add(-1*time.Minute))
	seedEvent(t, repo, domain.LoginSuccessEvent, domain.SeverityLow, "user-1", "org-1", "10.0.0.2", now.Add(-3*time.Hour))
	seedEvent(t, repo, domain.AccountLockedEvent, domain.SeverityHigh, "user-2", "org-1", "10.0.0.3", now)
	seedEvent(t, repo, domain.LoginFailedEvent, domain.SeverityMedium, "user-9", "org-2", "10.0.0.9", now)

	unresolved := false
	tests := []struct {
		name  string
		query domain.SecurityEventQuery
		want  int64
	}{
		{"organization scope", domain.SecurityEventQuery{OrganizationID: "org-1"}, 4},
		{"by user", domain.SecurityEventQuery{OrganizationID: "org-1", UserID: "user-1"}, 3},
		{"by type", domain.SecurityEventQuery{OrganizationID: "org-1", Types: []domain.SecurityEventType{domain.LoginFailedEvent}}, 2},
		{"by severity", domain.SecurityEventQuery{Severities: []domain.Severity{domain.SeverityHigh, domain.SeverityCritical}}, 1},
		{"since", domain.SecurityEventQuery{OrganizationID: "org-1", Since: now.Add(-15 * time.Minute)}, 3},
		{"until", domain.SecurityEventQuery{OrganizationID: "org-1", Until: now.Add(-time.Hour)}, 1},
		{"by ip", domain.SecurityEventQuery{IPAddress: "10.0.0.1"}, 2},
		{"unresolved", domain.SecurityEventQuery{OrganizationID: "org-2", Resolved: &unresolved}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := repo.Count(ctx, tt.query)
			if err != nil {
				t.Fatalf("Count() error = %v", err)
			}
			if n != tt.want {
				t.Errorf("Count() = %d, want %d", n, tt.want)
			}

			list, err := repo.List(ctx, tt.query)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if int64(len(list)) != tt.want {
				t.Errorf("List() returned %d events, want %d", len(list), tt.want)
			}
		})
	}
}

func TestSecurityEventRepositoryImpl_ListOrderingAndLimit(t *testing.T) {
	repo := NewSecurityEventRepository(setupTestDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	for i := 0; i < 5; i++ {
		seedEvent(t, repo, domain.LogoutEvent, domain.SeverityLow, "user-1", "org-1", "", now.Add(time.Duration(i)*time.Second))
	}

	list, err := repo.List(ctx, domain.SecurityEventQuery{OrganizationID: "org-1", Limit: 3})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("List() returned %d, want 3", len(list))
	}
	for i := 1; i < len(list); i++ {
		if list[i].CreatedAt.After(list[i-1].CreatedAt) {
			t.Error("events should be ordered newest first")
		}
	}
}

func TestSecurityEventRepositoryImpl_Aggregations(t *testing.T) {
	repo := NewSecurityEventRepository(setupTestDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	seedEvent(t, repo, domain.LoginFailedEvent, domain.SeverityMedium, "user-1", "org-1", "10.0.0.1", now)
	seedEvent(t, repo, domain.LoginFailedEvent, domain.SeverityMedium, "user-1", "org-1", "10.0.0.1", now)
	seedEvent(t, repo, domain.LoginSuccessEvent, domain.SeverityLow, "user-1", "org-1", "10.0.0.2", now)
	seedEvent(t, repo, domain.AccountLockedEvent, domain.SeverityHigh, "user-1", "org-1", "10.0.0.1", now)

	q := domain.SecurityEventQuery{OrganizationID: "org-1"}

	byType, err := repo.CountByType(ctx, q)
	if err != nil {
		t.Fatalf("CountByType() error = %v", err)
	}
	if byType[domain.LoginFailedEvent] != 2 || byType[domain.LoginSuccessEvent] != 1 || byType[domain.AccountLockedEvent] != 1 {
		t.Errorf("unexpected type counts %v", byType)
	}

	bySeverity, err := repo.CountBySeverity(ctx, q)
	if err != nil {
		t.Fatalf("CountBySeverity() error = %v", err)
	}
	if bySeverity[domain.SeverityMedium] != 2 || bySeverity[domain.SeverityHigh] != 1 || bySeverity[domain.SeverityLow] != 1 {
		t.Errorf("unexpected severity counts %v", bySeverity)
	}

	ips, err := repo.DistinctIPs(ctx, domain.SecurityEventQuery{UserID: "user-1", Types: []domain.SecurityEventType{domain.LoginFailedEvent, domain.AccountLockedEvent}})
	if err != nil {
		t.Fatalf("DistinctIPs() error = %v", err)
	}
	if len(ips) != 1 || ips[0] != "10.0.0.1" {
		t.Errorf("DistinctIPs() = %v, want [10.0.0.1]", ips)
	}
}

func TestSecurityEventRepositoryImpl_Resolve(t *testing.T) {
	repo := NewSecurityEventRepository(setupTestDB(t))
	ctx := context.Background()

	e := seedEvent(t, repo, domain.SuspiciousActivityEvent, domain.SeverityHigh, "user-1", "org-1", "10.0.0.1", time.Now().UTC())

	if err := repo.Resolve(ctx, "org-2", e.ID, "admin-1", time.Now()); !errors.Is(err, domain.ErrResourceNotFound) {
		t.Errorf("resolving across tenants should fail, got %v", err)
	}

	if err := repo.Resolve(ctx, "org-1", e.ID, "admin-1", time.Now()); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	found, _ := repo.FindByID(ctx, "org-1", e.ID)
	if !found.Resolved || found.ResolvedBy != "admin-1" || found.ResolvedAt == nil {
		t.Errorf("event not resolved: %+v", found)
	}
	if found.Type != domain.SuspiciousActivityEvent || found.Description != "test event" {
		t.Error("resolving must not alter the event itself")
	}
}

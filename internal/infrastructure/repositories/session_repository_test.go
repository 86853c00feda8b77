package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/you/crmauth/domain"
)

func newTestSession(userID, token string, expiresAt time.Time) *domain.Session {
	now := time.Now().UTC()
	return &domain.Session{
		Token:          token,
		UserID:         userID,
		OrganizationID: "org-1",
		ExpiresAt:      expiresAt,
		IPAddress:      "10.0.0.1",
		UserAgent:      "test-agent",
		IsActive:       true,
		LastActivityAt: now,
	}
}

func TestSessionRepositoryImpl_CreateAndFind(t *testing.T) {
	repo := NewSessionRepository(setupTestDB(t))
	ctx := context.Background()

	s := newTestSession("user-1", "token-1", time.Now().UTC().Add(time.Hour))
	if err := repo.Create(ctx, s); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if s.ID == "" {
		t.Fatal("Create() should assign an ID")
	}

	byID, err := repo.FindByID(ctx, s.ID)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if byID.Token != "token-1" || byID.UserID != "user-1" || !byID.IsActive {
		t.Errorf("unexpected session %+v", byID)
	}

	byToken, err := repo.FindByToken(ctx, "token-1")
	if err != nil {
		t.Fatalf("FindByToken() error = %v", err)
	}
	if byToken.ID != s.ID {
		t.Errorf("FindByToken() returned %s, want %s", byToken.ID, s.ID)
	}

	if _, err := repo.FindByID(ctx, "missing"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
	if _, err := repo.FindByToken(ctx, "missing"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSessionRepositoryImpl_TouchAndDeactivate(t *testing.T) {
	repo := NewSessionRepository(setupTestDB(t))
	ctx := context.Background()

	s := newTestSession("user-1", "token-1", time.Now().UTC().Add(time.Hour))
	if err := repo.Create(ctx, s); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	s.ExpiresAt = s.ExpiresAt.Add(24 * time.Hour)
	if err := repo.Touch(ctx, s.ID, s.ExpiresAt, time.Now().UTC()); err != nil {
		t.Fatalf("Touch() error = %v", err)
	}
	stored, _ := repo.FindByID(ctx, s.ID)
	if stored.ExpiresAt.Sub(s.ExpiresAt).Abs() > time.Second {
		t.Errorf("ExpiresAt = %v, want %v", stored.ExpiresAt, s.ExpiresAt)
	}

	if err := repo.Deactivate(ctx, s.ID); err != nil {
		t.Fatalf("Deactivate() error = %v", err)
	}
	if err := repo.Deactivate(ctx, s.ID); err != nil {
		t.Fatalf("second Deactivate() should be a no-op, got %v", err)
	}
	stored, _ = repo.FindByID(ctx, s.ID)
	if stored.IsActive {
		t.Error("session should be inactive")
	}

	if err := repo.Touch(ctx, s.ID, s.ExpiresAt.Add(time.Hour), time.Now().UTC()); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("Touch() of an inactive session: expected ErrSessionNotFound, got %v", err)
	}
	stored, _ = repo.FindByID(ctx, s.ID)
	if stored.IsActive {
		t.Error("Touch() must not reactivate a revoked session")
	}

	if err := repo.Touch(ctx, "missing", time.Now(), time.Now()); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSessionRepositoryImpl_DeactivateAllForUser(t *testing.T) {
	repo := NewSessionRepository(setupTestDB(t))
	ctx := context.Background()
	exp := time.Now().UTC().Add(time.Hour)

	keep := newTestSession("user-1", "t1", exp)
	other1 := newTestSession("user-1", "t2", exp)
	other2 := newTestSession("user-1", "t3", exp)
	foreign := newTestSession("user-2", "t4", exp)
	for _, s := range []*domain.Session{keep, other1, other2, foreign} {
		if err := repo.Create(ctx, s); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	n, err := repo.DeactivateAllForUser(ctx, "user-1", keep.ID)
	if err != nil {
		t.Fatalf("DeactivateAllForUser() error = %v", err)
	}
	if n != 2 {
		t.Errorf("deactivated %d sessions, want 2", n)
	}

	active, err := repo.ListActiveByUser(ctx, "user-1", time.Now().UTC())
	if err != nil {
		t.Fatalf("ListActiveByUser() error = %v", err)
	}
	if len(active) != 1 || active[0].ID != keep.ID {
		t.Errorf("only the kept session should remain active, got %d", len(active))
	}

	n, err = repo.DeactivateAllForUser(ctx, "user-1", "")
	if err != nil || n != 1 {
		t.Errorf("DeactivateAllForUser() = %d, %v; want 1, nil", n, err)
	}

	fs, _ := repo.FindByID(ctx, foreign.ID)
	if !fs.IsActive {
		t.Error("other users' sessions must not be touched")
	}
}

func TestSessionRepositoryImpl_ListAndCountActive(t *testing.T) {
	repo := NewSessionRepository(setupTestDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	live := newTestSession("user-1", "t1", now.Add(time.Hour))
	expired := newTestSession("user-1", "t2", now.Add(-time.Minute))
	otherOrg := newTestSession("user-3", "t3", now.Add(time.Hour))
	otherOrg.OrganizationID = "org-2"
	for _, s := range []*domain.Session{live, expired, otherOrg} {
		if err := repo.Create(ctx, s); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	list, err := repo.ListActiveByUser(ctx, "user-1", now)
	if err != nil {
		t.Fatalf("ListActiveByUser() error = %v", err)
	}
	if len(list) != 1 || list[0].ID != live.ID {
		t.Errorf("expected only the live session, got %d", len(list))
	}

	n, err := repo.CountActiveByOrganization(ctx, "org-1", now)
	if err != nil {
		t.Fatalf("CountActiveByOrganization() error = %v", err)
	}
	if n != 1 {
		t.Errorf("CountActiveByOrganization() = %d, want 1", n)
	}
}

func TestSessionRepositoryImpl_DeleteExpired(t *testing.T) {
	repo := NewSessionRepository(setupTestDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	live := newTestSession("user-1", "t1", now.Add(time.Hour))
	expired := newTestSession("user-1", "t2", now.Add(-time.Hour))
	revoked := newTestSession("user-1", "t3", now.Add(time.Hour))
	for _, s := range []*domain.Session{live, expired, revoked} {
		if err := repo.Create(ctx, s); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}
	if err := repo.Deactivate(ctx, revoked.ID); err != nil {
		t.Fatalf("Deactivate() error = %v", err)
	}

	n, err := repo.DeleteExpired(ctx, now)
	if err != nil {
		t.Fatalf("DeleteExpired() error = %v", err)
	}
	if n != 2 {
		t.Errorf("DeleteExpired() removed %d rows, want 2", n)
	}
	if _, err := repo.FindByID(ctx, live.ID); err != nil {
		t.Errorf("live session should survive cleanup: %v", err)
	}
}

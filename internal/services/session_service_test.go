package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/you/crmauth/domain"
	"github.com/you/crmauth/internal/infrastructure/repositories"
	"github.com/you/crmauth/internal/mocks"
	"go.uber.org/zap"
)

func newSessionServiceForTest(t *testing.T, repo domain.SessionRepository) *SessionServiceImpl {
	t.Helper()

	svc := NewSessionService(repo, 24*time.Hour, zap.NewNop()).(*SessionServiceImpl)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func TestSessionServiceImpl_Create(t *testing.T) {
	repo := mocks.NewMockSessionRepository()
	var stored *domain.Session
	repo.CreateFunc = func(ctx context.Context, session *domain.Session) error {
		session.ID = "session-1"
		stored = session
		return nil
	}
	svc := newSessionServiceForTest(t, repo)

	session, err := svc.Create(createTestContext(t), "user-1", "org-1", "10.0.0.1", "go-test")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if session != stored || session.ID != "session-1" {
		t.Fatal("expected the persisted session to be returned")
	}
	if len(session.Token) != 64 {
		t.Errorf("expected 64 hex char token, got %q", session.Token)
	}
	if !session.IsActive || !session.ExpiresAt.Equal(fixedNow.Add(24*time.Hour)) || !session.LastActivityAt.Equal(fixedNow) {
		t.Errorf("unexpected session %+v", session)
	}
	if session.IPAddress != "10.0.0.1" || session.UserAgent != "go-test" || session.OrganizationID != "org-1" {
		t.Errorf("client context not recorded: %+v", session)
	}

	other, _ := svc.Create(createTestContext(t), "user-1", "org-1", "", "")
	if other.Token == session.Token {
		t.Error("tokens must be unique")
	}
}

func TestSessionServiceImpl_Get(t *testing.T) {
	active := func() *domain.Session {
		return &domain.Session{ID: "session-1", UserID: "user-1", IsActive: true, ExpiresAt: fixedNow.Add(time.Hour)}
	}

	tests := []struct {
		name           string
		found          *domain.Session
		findErr        error
		wantSession    bool
		wantErr        bool
		wantDeactivate bool
	}{
		{name: "active session", found: active(), wantSession: true},
		{name: "missing session", findErr: domain.ErrSessionNotFound},
		{name: "revoked session", found: func() *domain.Session { s := active(); s.IsActive = false; return s }()},
		{
			name:           "expired session is deactivated",
			found:          func() *domain.Session { s := active(); s.ExpiresAt = fixedNow.Add(-time.Second); return s }(),
			wantDeactivate: true,
		},
		{name: "repository failure", findErr: errors.New("db down"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := mocks.NewMockSessionRepository()
			repo.FindByIDFunc = func(ctx context.Context, sessionID string) (*domain.Session, error) {
				return tt.found, tt.findErr
			}
			repo.FindByTokenFunc = func(ctx context.Context, token string) (*domain.Session, error) {
				return tt.found, tt.findErr
			}
			deactivated := 0
			repo.DeactivateFunc = func(ctx context.Context, sessionID string) error {
				deactivated++
				return nil
			}
			svc := newSessionServiceForTest(t, repo)

			for _, get := range []func() (*domain.Session, error){
				func() (*domain.Session, error) { return svc.Get(createTestContext(t), "session-1") },
				func() (*domain.Session, error) { return svc.GetByToken(createTestContext(t), "token") },
			} {
				session, err := get()
				if (err != nil) != tt.wantErr {
					t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
				}
				if (session != nil) != tt.wantSession {
					t.Errorf("session = %+v, want present %v", session, tt.wantSession)
				}
			}
			if tt.wantDeactivate && deactivated != 2 {
				t.Errorf("expected expired session to be deactivated, got %d calls", deactivated)
			}
			if !tt.wantDeactivate && deactivated != 0 {
				t.Errorf("unexpected deactivation")
			}
		})
	}

	t.Run("empty token", func(t *testing.T) {
		repo := mocks.NewMockSessionRepository()
		repo.FindByTokenFunc = func(ctx context.Context, token string) (*domain.Session, error) {
			t.Error("repository must not be queried for an empty token")
			return nil, nil
		}
		svc := newSessionServiceForTest(t, repo)
		if s, err := svc.GetByToken(createTestContext(t), ""); s != nil || err != nil {
			t.Errorf("GetByToken(\"\") = %v, %v", s, err)
		}
	})
}

func TestSessionServiceImpl_Extend(t *testing.T) {
	repo := mocks.NewMockSessionRepository()
	repo.FindByIDFunc = func(ctx context.Context, sessionID string) (*domain.Session, error) {
		if sessionID != "session-1" {
			return nil, domain.ErrSessionNotFound
		}
		return &domain.Session{ID: "session-1", IsActive: true, ExpiresAt: fixedNow.Add(time.Minute), LastActivityAt: fixedNow.Add(-time.Hour)}, nil
	}
	var touched string
	repo.TouchFunc = func(ctx context.Context, sessionID string, expiresAt, lastActivityAt time.Time) error {
		touched = sessionID
		if !expiresAt.Equal(fixedNow.Add(24*time.Hour)) || !lastActivityAt.Equal(fixedNow) {
			t.Errorf("Touch(%s, %v, %v) with unexpected times", sessionID, expiresAt, lastActivityAt)
		}
		return nil
	}
	svc := newSessionServiceForTest(t, repo)

	session, err := svc.Extend(createTestContext(t), "session-1")
	if err != nil {
		t.Fatalf("Extend() error = %v", err)
	}
	if touched != "session-1" || !session.ExpiresAt.Equal(fixedNow.Add(24*time.Hour)) || !session.LastActivityAt.Equal(fixedNow) {
		t.Errorf("session not slid forward: %+v", session)
	}

	gone, err := svc.Extend(createTestContext(t), "session-2")
	if gone != nil || err != nil {
		t.Errorf("Extend() of a missing session = %v, %v; want nil, nil", gone, err)
	}
}

func TestSessionServiceImpl_Bulk(t *testing.T) {
	repo := mocks.NewMockSessionRepository()
	repo.DeactivateAllForUserFunc = func(ctx context.Context, userID, exceptSessionID string) (int64, error) {
		if userID != "user-1" || exceptSessionID != "keep" {
			t.Errorf("unexpected args %s %s", userID, exceptSessionID)
		}
		return 3, nil
	}
	repo.CountActiveByOrganizationFunc = func(ctx context.Context, organizationID string, now time.Time) (int64, error) {
		if !now.Equal(fixedNow) {
			t.Errorf("expected clock time, got %v", now)
		}
		return 5, nil
	}
	repo.DeleteExpiredFunc = func(ctx context.Context, now time.Time) (int64, error) {
		return 2, nil
	}
	svc := newSessionServiceForTest(t, repo)
	ctx := createTestContext(t)

	if n, err := svc.InvalidateAllForUser(ctx, "user-1", "keep"); err != nil || n != 3 {
		t.Errorf("InvalidateAllForUser() = %d, %v", n, err)
	}
	if n, err := svc.CountActive(ctx, "org-1"); err != nil || n != 5 {
		t.Errorf("CountActive() = %d, %v", n, err)
	}
	if n, err := svc.CleanupExpired(ctx); err != nil || n != 2 {
		t.Errorf("CleanupExpired() = %d, %v", n, err)
	}
}

// revokingRepo deactivates the session right before the slide is written
type revokingRepo struct {
	domain.SessionRepository
}

func (r revokingRepo) Touch(ctx context.Context, sessionID string, expiresAt, lastActivityAt time.Time) error {
	if err := r.SessionRepository.Deactivate(ctx, sessionID); err != nil {
		return err
	}
	return r.SessionRepository.Touch(ctx, sessionID, expiresAt, lastActivityAt)
}

func TestSessionServiceImpl_ExtendDoesNotResurrectRevokedSession(t *testing.T) {
	st := newTestStack(t)
	ctx := createTestContext(t)
	reg := st.register(t, "henry@example.com")

	svc := NewSessionService(revokingRepo{repositories.NewSessionRepository(st.db)}, 24*time.Hour, zap.NewNop())

	extended, err := svc.Extend(ctx, reg.SessionID)
	if err != nil {
		t.Fatalf("Extend() error = %v", err)
	}
	if extended != nil {
		t.Errorf("Extend() racing a revoke = %+v; want nil", extended)
	}
	if s, err := st.sessions.Get(ctx, reg.SessionID); err != nil || s != nil {
		t.Errorf("revoked session is usable again: %+v, %v", s, err)
	}
}

package services

import (
	"context"
	"testing"
	"time"

	"github.com/you/crmauth/domain"
	"github.com/you/crmauth/internal/infrastructure/auth"
	"github.com/you/crmauth/internal/infrastructure/crypto"
	"github.com/you/crmauth/internal/infrastructure/database"
	"github.com/you/crmauth/internal/infrastructure/repositories"
	"github.com/you/crmauth/internal/mocks"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var fixedNow = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

const validPassword = "Str0ng!Passw0rd"

// createValidUser creates a valid user entity for testing
func createValidUser(t *testing.T) *domain.User {
	t.Helper()

	return &domain.User{
		ID:             "user-1",
		Email:          "test@example.com",
		Phone:          "+15551234567",
		PasswordHash:   "hashed_" + validPassword,
		FirstName:      "Test",
		LastName:       "User",
		Role:           domain.RoleUser,
		Status:         domain.UserStatusActive,
		OrganizationID: "org-1",
		CreatedAt:      fixedNow.Add(-24 * time.Hour),
		UpdatedAt:      fixedNow.Add(-time.Hour),
	}
}

// createAdminUser creates an admin in the same organization as createValidUser
func createAdminUser(t *testing.T) *domain.User {
	t.Helper()

	user := createValidUser(t)
	user.ID = "admin-1"
	user.Email = "admin@example.com"
	user.Role = domain.RoleAdmin
	return user
}

// authMocks bundles the collaborators of AuthServiceImpl
type authMocks struct {
	users      *mocks.MockUserRepository
	sessions   *mocks.MockSessionService
	passwords  *mocks.MockPasswordService
	tokens     *mocks.MockTokenService
	challenges *mocks.MockChallengeStore
	mfa        *mocks.MockMFAService
	security   *mocks.MockSecurityLogger
	audit      *mocks.MockAuditLogger
	notifier   *mocks.MockNotificationService
}

func newAuthMocks(t *testing.T) *authMocks {
	t.Helper()

	return &authMocks{
		users:      mocks.NewMockUserRepository(),
		sessions:   mocks.NewMockSessionService(),
		passwords:  mocks.NewMockPasswordService(),
		tokens:     mocks.NewMockTokenService(),
		challenges: mocks.NewMockChallengeStore(),
		mfa:        mocks.NewMockMFAService(),
		security:   mocks.NewMockSecurityLogger(),
		audit:      mocks.NewMockAuditLogger(),
		notifier:   mocks.NewMockNotificationService(),
	}
}

// createAuthServiceForTest creates an AuthService with mock dependencies and a fixed clock
func createAuthServiceForTest(t *testing.T, m *authMocks) *AuthServiceImpl {
	t.Helper()

	svc := NewAuthService(m.users, m.sessions, m.passwords, m.tokens, m.challenges, m.mfa,
		m.security, m.audit, m.notifier, DefaultAuthConfig(), zap.NewNop()).(*AuthServiceImpl)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

// assertAuthResult validates the structure and content of an AuthResult
func assertAuthResult(t *testing.T, result *domain.AuthResult, expectedUserID string) {
	t.Helper()

	if result == nil {
		t.Fatal("AuthResult is nil")
	}
	if result.User == nil {
		t.Fatal("AuthResult.User is nil")
	}
	if result.User.ID != expectedUserID {
		t.Errorf("expected user ID %s, got %s", expectedUserID, result.User.ID)
	}
	if result.AccessToken == "" {
		t.Error("AccessToken is empty")
	}
	if result.RefreshToken == "" {
		t.Error("RefreshToken is empty")
	}
	if result.SessionID == "" {
		t.Error("SessionID is empty")
	}
	if result.ExpiresIn <= 0 {
		t.Errorf("expected positive ExpiresIn, got %d", result.ExpiresIn)
	}
	if result.RequiresMFA {
		t.Error("RequiresMFA should be false for a completed login")
	}
}

// createTestContext creates a context for testing with timeout
func createTestContext(t *testing.T) context.Context {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// setupTestDB creates a migrated in-memory SQLite database
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.OpenDialector(sqlite.Open(":memory:"), logger.Silent)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}
	return db
}

// testStack is the fully wired service graph on top of SQLite
type testStack struct {
	db       *gorm.DB
	users    domain.UserRepository
	events   domain.SecurityEventRepository
	audits   domain.AuditLogRepository
	mfaRepo  domain.MFASettingsRepository
	sessions *SessionServiceImpl
	security *SecurityServiceImpl
	audit    domain.AuditLogger
	mfa      *MFAServiceImpl
	auth     *AuthServiceImpl
	tokens   domain.TokenService
	enc      domain.EncryptionService
	notifier *mocks.MockNotificationService
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()

	db := setupTestDB(t)
	log := zap.NewNop()

	enc, err := crypto.NewEncryptionService("integration-test-encryption-key")
	if err != nil {
		t.Fatalf("failed to create encryption service: %v", err)
	}

	st := &testStack{
		db:       db,
		users:    repositories.NewUserRepository(db),
		events:   repositories.NewSecurityEventRepository(db),
		audits:   repositories.NewAuditLogRepository(db),
		mfaRepo:  repositories.NewMFASettingsRepository(db),
		tokens:   auth.NewJWTService("integration-test-secret", "crmauth-test", 15*time.Minute, 7*24*time.Hour, 5*time.Minute),
		enc:      enc,
		notifier: mocks.NewMockNotificationService(),
	}

	st.sessions = NewSessionService(repositories.NewSessionRepository(db), 24*time.Hour, log).(*SessionServiceImpl)
	st.security = NewSecurityService(st.events, NewSuspiciousActivityDetector(st.events), st.sessions, log).(*SecurityServiceImpl)
	st.audit = NewAuditService(st.audits, log)
	st.mfa = NewMFAService(st.mfaRepo, st.users, auth.NewTOTPService("CRM", 2), enc, st.security, st.audit, log).(*MFAServiceImpl)
	st.auth = NewAuthService(st.users, st.sessions, auth.NewPasswordService(4), st.tokens, mocks.NewMockChallengeStore(), st.mfa,
		st.security, st.audit, st.notifier, DefaultAuthConfig(), log).(*AuthServiceImpl)
	return st
}

// register creates an account through the auth service
func (st *testStack) register(t *testing.T, email string) *domain.AuthResult {
	t.Helper()

	result, err := st.auth.Register(createTestContext(t), domain.RegisterInput{
		Email:          email,
		Password:       validPassword,
		FirstName:      "Test",
		LastName:       "User",
		OrganizationID: "org-1",
		Client:         domain.ClientContext{IPAddress: "10.0.0.1", UserAgent: "go-test"},
	})
	if err != nil {
		t.Fatalf("Register(%s) error = %v", email, err)
	}
	return result
}

// countEvents counts stored events of a type for a user
func (st *testStack) countEvents(t *testing.T, userID string, eventType domain.SecurityEventType) int64 {
	t.Helper()

	n, err := st.events.Count(createTestContext(t), domain.SecurityEventQuery{
		UserID: userID,
		Types:  []domain.SecurityEventType{eventType},
	})
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	return n
}

package domain

import (
	"context"
	"time"
)

// UserRepository defines user data access operations
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	FindByResetToken(ctx context.Context, tokenHash string) (*User, error)
	// Update writes only the named User fields of user; other columns keep their stored values.
	Update(ctx context.Context, user *User, fields ...string) error
	RecordFailedLogin(ctx context.Context, userID string, update FailedLoginUpdate) (*FailedLoginResult, error)
	RecordSuccessfulLogin(ctx context.Context, userID string, at time.Time) error
	SetMFAEnabled(ctx context.Context, userID string, enabled bool) error
}

// SessionRepository defines session data access operations
type SessionRepository interface {
	Create(ctx context.Context, session *Session) error
	FindByID(ctx context.Context, sessionID string) (*Session, error)
	FindByToken(ctx context.Context, token string) (*Session, error)
	// Touch slides an active session; inactive or missing rows yield ErrSessionNotFound.
	Touch(ctx context.Context, sessionID string, expiresAt, lastActivityAt time.Time) error
	Deactivate(ctx context.Context, sessionID string) error
	DeactivateAllForUser(ctx context.Context, userID, exceptSessionID string) (int64, error)
	ListActiveByUser(ctx context.Context, userID string, now time.Time) ([]*Session, error)
	CountActiveByOrganization(ctx context.Context, organizationID string, now time.Time) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// SecurityEventRepository defines security event persistence
type SecurityEventRepository interface {
	Create(ctx context.Context, event *SecurityEvent) error
	FindByID(ctx context.Context, organizationID, id string) (*SecurityEvent, error)
	List(ctx context.Context, query SecurityEventQuery) ([]*SecurityEvent, error)
	Count(ctx context.Context, query SecurityEventQuery) (int64, error)
	CountByType(ctx context.Context, query SecurityEventQuery) (map[SecurityEventType]int64, error)
	CountBySeverity(ctx context.Context, query SecurityEventQuery) (map[Severity]int64, error)
	DistinctIPs(ctx context.Context, query SecurityEventQuery) ([]string, error)
	Resolve(ctx context.Context, organizationID, id, resolvedBy string, at time.Time) error
}

// AuditLogRepository defines audit log persistence
type AuditLogRepository interface {
	Create(ctx context.Context, entry *AuditLog) error
	List(ctx context.Context, query AuditLogQuery) ([]*AuditLog, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// MFASettingsRepository defines MFA settings persistence
type MFASettingsRepository interface {
	FindByUserID(ctx context.Context, userID string) (*MFASettings, error)
	Upsert(ctx context.Context, settings *MFASettings) error
	// UpdateIfVersion writes settings only when the stored version equals expected.
	UpdateIfVersion(ctx context.Context, settings *MFASettings, expected int) (bool, error)
	Delete(ctx context.Context, userID string) error
}

// AuthService defines authentication business logic
type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, input LoginInput) (*AuthResult, error)
	CompleteMFALogin(ctx context.Context, mfaToken, code string, client ClientContext) (*AuthResult, error)
	RefreshToken(ctx context.Context, refreshToken string) (*AuthResult, error)
	Logout(ctx context.Context, userID, sessionID string, client ClientContext) error
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string, client ClientContext) error
	ForgotPassword(ctx context.Context, email string, client ClientContext) error
	ResetPassword(ctx context.Context, token, newPassword string, client ClientContext) error
	GetUserProfile(ctx context.Context, userID string) (*User, error)
	DeactivateUser(ctx context.Context, actorID, userID string, client ClientContext) error
}

// SessionService manages server-side sessions
type SessionService interface {
	Create(ctx context.Context, userID, organizationID, ipAddress, userAgent string) (*Session, error)
	Get(ctx context.Context, sessionID string) (*Session, error)
	GetByToken(ctx context.Context, token string) (*Session, error)
	Invalidate(ctx context.Context, sessionID string) error
	InvalidateAllForUser(ctx context.Context, userID, exceptSessionID string) (int64, error)
	Extend(ctx context.Context, sessionID string) (*Session, error)
	ListActive(ctx context.Context, userID string) ([]*Session, error)
	CountActive(ctx context.Context, organizationID string) (int64, error)
	CleanupExpired(ctx context.Context) (int64, error)
}

// MFAService defines second-factor operations
type MFAService interface {
	SetupMFA(ctx context.Context, userID string) (*MFASetup, error)
	EnableMFA(ctx context.Context, userID, code string, client ClientContext) error
	DisableMFA(ctx context.Context, userID, code string, client ClientContext) error
	VerifyMFACode(ctx context.Context, userID, code string) (bool, error)
	VerifyBackupCode(ctx context.Context, userID, code string, client ClientContext) (bool, error)
	RegenerateBackupCodes(ctx context.Context, userID, code string, client ClientContext) ([]string, error)
	GetStatus(ctx context.Context, userID string) (*MFAStatus, error)
	AdminReset(ctx context.Context, actorID, userID string, client ClientContext) error
}

// SecurityLogger records security events; it never fails the caller
type SecurityLogger interface {
	LogSecurityEvent(ctx context.Context, event *SecurityEvent)
}

// SecurityService extends SecurityLogger with reporting operations
type SecurityService interface {
	SecurityLogger
	GetSecurityMetrics(ctx context.Context, organizationID, timeRange string) (*SecurityMetrics, error)
	ListEvents(ctx context.Context, query SecurityEventQuery) ([]*SecurityEvent, error)
	GetDashboard(ctx context.Context, organizationID string) (*SecurityDashboard, error)
	ResolveEvent(ctx context.Context, organizationID, eventID, resolvedBy string) error
}

// SuspiciousActivityDetector inspects a persisted event and returns follow-up events
type SuspiciousActivityDetector interface {
	Detect(ctx context.Context, event *SecurityEvent) ([]*SecurityEvent, error)
}

// AuditLogger records entity mutations
type AuditLogger interface {
	Log(ctx context.Context, entry *AuditLog)
	List(ctx context.Context, query AuditLogQuery) ([]*AuditLog, error)
	PurgeExpired(ctx context.Context) (int64, error)
}

// PasswordService defines password operations
type PasswordService interface {
	Hash(password string) (string, error)
	Verify(hashedPassword, password string) bool
	ValidateStrength(password string) error
}

// TokenService defines token operations
type TokenService interface {
	GenerateAccessToken(subject TokenSubject) (string, error)
	GenerateRefreshToken(subject TokenSubject) (string, error)
	GenerateMFAToken(subject TokenSubject) (string, error)
	ValidateAccessToken(token string) (*TokenClaims, error)
	ValidateRefreshToken(token string) (*TokenClaims, error)
	ValidateMFAToken(token string) (*TokenClaims, error)
	AccessTokenTTL() time.Duration
}

// TOTPProvider generates and checks time-based one-time passwords
type TOTPProvider interface {
	GenerateSecret(accountName string) (secret, otpauthURL, qrDataURL string, err error)
	Validate(secret, code string, at time.Time) bool
}

// EncryptionService protects sensitive fields at rest
type EncryptionService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
	EncryptWithPurpose(plaintext, purpose string) (string, error)
	DecryptWithPurpose(ciphertext, purpose string) (string, error)
}

// Encryption purposes; each derives its own subkey
const (
	PurposeMFASecret  = "mfa_secret"
	PurposeBackupCode = "backup_code"
)

// NotificationService defines notification operations
type NotificationService interface {
	SendSMS(to, message string) error
	SendEmail(to, subject, body string) error
}

// RateLimiter counts requests per key in fixed windows
type RateLimiter interface {
	Allow(ctx context.Context, key string) (allowed bool, remaining int, retryAfter time.Duration, err error)
}

// PolicyService defines authorization policy operations
type PolicyService interface {
	AddPolicy(role, resource, action string) error
	RemovePolicy(role, resource, action string) error
	CheckPermission(role, resource, action string) (bool, error)
	GetPolicies() [][]string
}

// TokenType distinguishes what a JWT may be used for
type TokenType string

const (
	AccessToken  TokenType = "access"
	RefreshToken TokenType = "refresh"
	MFAToken     TokenType = "mfa"
)

// TokenClaims represents JWT token claims
type TokenClaims struct {
	UserID         string    `json:"sub"`
	Email          string    `json:"email"`
	OrganizationID string    `json:"organizationId"`
	Role           Role      `json:"role"`
	SessionID      string    `json:"sessionId,omitempty"`
	Type           TokenType `json:"typ"`
	ID             string    `json:"jti"`
	IssuedAt       int64     `json:"iat"`
	ExpiresAt      int64     `json:"exp"`
}

// ChallengeStore remembers consumed one-time tokens until they expire
type ChallengeStore interface {
	// Consume marks id as used and reports whether this call was the first to do so
	Consume(ctx context.Context, id string, expiresAt time.Time) (bool, error)
}

// CasbinEnforcer interface defines the methods we need from Casbin enforcer
type CasbinEnforcer interface {
	AddPolicy(params ...interface{}) (bool, error)
	RemovePolicy(params ...interface{}) (bool, error)
	Enforce(rvals ...interface{}) (bool, error)
	GetPolicy() ([][]string, error)
	SavePolicy() error
}

package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/you/crmauth/domain"
	"github.com/you/crmauth/internal/metrics"
	"go.uber.org/zap"
)

// AuthConfig holds the lockout and reset settings of the auth service
type AuthConfig struct {
	MaxFailedAttempts int
	LockoutDuration   time.Duration
	PasswordResetTTL  time.Duration
}

// DefaultAuthConfig returns the production defaults
func DefaultAuthConfig() AuthConfig {
	return AuthConfig{
		MaxFailedAttempts: 5,
		LockoutDuration:   30 * time.Minute,
		PasswordResetTTL:  time.Hour,
	}
}

// AuthServiceImpl implements domain.AuthService
type AuthServiceImpl struct {
	userRepo    domain.UserRepository
	sessions    domain.SessionService
	passwordSvc domain.PasswordService
	tokenSvc    domain.TokenService
	challenges  domain.ChallengeStore
	mfaSvc      domain.MFAService
	security    domain.SecurityLogger
	audit       domain.AuditLogger
	notifier    domain.NotificationService
	cfg         AuthConfig
	logger      *zap.Logger
	now         func() time.Time
}

// NewAuthService creates a new auth service
func NewAuthService(
	userRepo domain.UserRepository,
	sessions domain.SessionService,
	passwordSvc domain.PasswordService,
	tokenSvc domain.TokenService,
	challenges domain.ChallengeStore,
	mfaSvc domain.MFAService,
	security domain.SecurityLogger,
	audit domain.AuditLogger,
	notifier domain.NotificationService,
	cfg AuthConfig,
	logger *zap.Logger,
) domain.AuthService {
	return &AuthServiceImpl{
		userRepo:    userRepo,
		sessions:    sessions,
		passwordSvc: passwordSvc,
		tokenSvc:    tokenSvc,
		challenges:  challenges,
		mfaSvc:      mfaSvc,
		security:    security,
		audit:       audit,
		notifier:    notifier,
		cfg:         cfg,
		logger:      logger.With(zap.String("component", "auth")),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Register implements domain.AuthService
func (s *AuthServiceImpl) Register(ctx context.Context, input domain.RegisterInput) (*domain.AuthResult, error) {
	email := normalizeEmail(input.Email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: a valid email is required", domain.ErrValidation)
	}
	role := input.Role
	if role == "" {
		role = domain.RoleUser
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", domain.ErrValidation, role)
	}

	// Check if user already exists
	if _, err := s.userRepo.FindByEmail(ctx, email); err == nil {
		return nil, domain.ErrUserAlreadyExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := s.passwordSvc.ValidateStrength(input.Password); err != nil {
		return nil, err
	}
	hashedPassword, err := s.passwordSvc.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	orgID := input.OrganizationID
	if orgID == "" {
		orgID = uuid.NewString()
	}

	user := &domain.User{
		Email:          email,
		PasswordHash:   hashedPassword,
		FirstName:      strings.TrimSpace(input.FirstName),
		LastName:       strings.TrimSpace(input.LastName),
		Phone:          strings.TrimSpace(input.Phone),
		Role:           role,
		Status:         domain.UserStatusActive,
		OrganizationID: orgID,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrUserAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	result, err := s.startSession(ctx, user, input.Client)
	if err != nil {
		return nil, err
	}

	s.security.LogSecurityEvent(ctx, domain.NewSecurityEvent(domain.LoginSuccessEvent, domain.SeverityLow, "User registered").
		ForUser(user.ID, user.OrganizationID).
		WithClientContext(&input.Client).
		WithMetadata("registration", true).
		WithMetadata("sessionId", result.SessionID))
	s.audit.Log(ctx, &domain.AuditLog{
		Action:     domain.UserRegisteredAction,
		EntityType: "user",
		EntityID:   user.ID,
		NewValues: map[string]interface{}{
			"email":          user.Email,
			"role":           string(user.Role),
			"organizationId": user.OrganizationID,
		},
		UserID:         user.ID,
		OrganizationID: user.OrganizationID,
		IPAddress:      input.Client.IPAddress,
		UserAgent:      input.Client.UserAgent,
	})
	return result, nil
}

// Login implements domain.AuthService
func (s *AuthServiceImpl) Login(ctx context.Context, input domain.LoginInput) (*domain.AuthResult, error) {
	client := input.Client
	email := normalizeEmail(input.Email)

	user, err := s.userRepo.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrUserNotFound) {
		s.security.LogSecurityEvent(ctx, domain.NewSecurityEvent(domain.LoginFailedEvent, domain.SeverityMedium, "Login attempt for unknown email").
			ForUser("", domain.UnknownOrganization).
			WithClientContext(&client).
			WithMetadata("email", email).
			WithMetadata("reason", "unknown_email"))
		metrics.LoginAttemptsTotal.WithLabelValues("failure").Inc()
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if !user.IsActive() {
		s.security.LogSecurityEvent(ctx, domain.NewSecurityEvent(domain.LoginFailedEvent, domain.SeverityMedium, "Login attempt for inactive account").
			ForUser(user.ID, user.OrganizationID).
			WithClientContext(&client).
			WithMetadata("reason", "inactive"))
		metrics.LoginAttemptsTotal.WithLabelValues("failure").Inc()
		return nil, domain.ErrInvalidCredentials
	}

	if user.IsLocked(s.now()) {
		s.rejectLocked(ctx, user, client)
		return nil, domain.ErrAccountLocked
	}

	if !s.passwordSvc.Verify(user.PasswordHash, input.Password) {
		return nil, s.failLogin(ctx, user, client, "invalid_password", domain.ErrInvalidCredentials)
	}

	if !user.MFAEnabled {
		return s.completeLogin(ctx, user, client, "")
	}

	if strings.TrimSpace(input.MFACode) == "" {
		mfaToken, err := s.tokenSvc.GenerateMFAToken(subjectFor(user, ""))
		if err != nil {
			return nil, fmt.Errorf("failed to generate mfa token: %w", err)
		}
		metrics.LoginAttemptsTotal.WithLabelValues("mfa_required").Inc()
		return &domain.AuthResult{User: user, RequiresMFA: true, MFAToken: mfaToken}, nil
	}

	return s.loginWithSecondFactor(ctx, user, input.MFACode, client)
}

// CompleteMFALogin implements domain.AuthService
func (s *AuthServiceImpl) CompleteMFALogin(ctx context.Context, mfaToken, code string, client domain.ClientContext) (*domain.AuthResult, error) {
	claims, err := s.tokenSvc.ValidateMFAToken(mfaToken)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if !user.IsActive() || !user.MFAEnabled {
		return nil, domain.ErrInvalidCredentials
	}
	if user.IsLocked(s.now()) {
		s.rejectLocked(ctx, user, client)
		return nil, domain.ErrAccountLocked
	}

	method, err := s.verifySecondFactor(ctx, user, code, client)
	if err != nil {
		return nil, err
	}

	// a challenge yields one session; wrong codes leave it usable until it expires
	fresh, err := s.challenges.Consume(ctx, claims.ID, time.Unix(claims.ExpiresAt, 0))
	if err != nil {
		return nil, fmt.Errorf("failed to consume mfa challenge: %w", err)
	}
	if !fresh {
		s.security.LogSecurityEvent(ctx, domain.NewSecurityEvent(domain.SuspiciousActivityEvent, domain.SeverityHigh, "MFA challenge token replayed").
			ForUser(user.ID, user.OrganizationID).
			WithClientContext(&client).
			WithMetadata("operation", "login"))
		return nil, domain.ErrTokenInvalid
	}
	return s.completeLogin(ctx, user, client, method)
}

func (s *AuthServiceImpl) loginWithSecondFactor(ctx context.Context, user *domain.User, code string, client domain.ClientContext) (*domain.AuthResult, error) {
	method, err := s.verifySecondFactor(ctx, user, code, client)
	if err != nil {
		return nil, err
	}
	return s.completeLogin(ctx, user, client, method)
}

// verifySecondFactor checks code as a TOTP code, then as a backup code, and returns the method that matched
func (s *AuthServiceImpl) verifySecondFactor(ctx context.Context, user *domain.User, code string, client domain.ClientContext) (string, error) {
	method := "totp"
	ok, err := s.mfaSvc.VerifyMFACode(ctx, user.ID, code)
	if err != nil {
		return "", fmt.Errorf("failed to verify mfa code: %w", err)
	}
	if !ok {
		method = "backup_code"
		ok, err = s.mfaSvc.VerifyBackupCode(ctx, user.ID, code, client)
		if err != nil {
			return "", fmt.Errorf("failed to verify backup code: %w", err)
		}
	}
	if !ok {
		s.security.LogSecurityEvent(ctx, domain.NewSecurityEvent(domain.MFAVerificationFailedEvent, domain.SeverityMedium, "MFA verification failed during login").
			ForUser(user.ID, user.OrganizationID).
			WithClientContext(&client).
			WithMetadata("operation", "login"))
		return "", s.failLogin(ctx, user, client, "invalid_mfa_code", domain.ErrInvalidMFACode)
	}
	return method, nil
}

// failLogin records the failed attempt, applies the lockout and returns reason
func (s *AuthServiceImpl) failLogin(ctx context.Context, user *domain.User, client domain.ClientContext, cause string, reason error) error {
	res, err := s.userRepo.RecordFailedLogin(ctx, user.ID, domain.FailedLoginUpdate{
		MaxAttempts: s.cfg.MaxFailedAttempts,
		LockFor:     s.cfg.LockoutDuration,
		Now:         s.now(),
	})
	if err != nil {
		return fmt.Errorf("failed to record failed login: %w", err)
	}

	s.security.LogSecurityEvent(ctx, domain.NewSecurityEvent(domain.LoginFailedEvent, domain.SeverityMedium, "Failed login attempt").
		ForUser(user.ID, user.OrganizationID).
		WithClientContext(&client).
		WithMetadata("reason", cause).
		WithMetadata("attempts", res.Attempts))
	metrics.LoginAttemptsTotal.WithLabelValues("failure").Inc()

	if res.JustLocked {
		s.security.LogSecurityEvent(ctx, domain.NewSecurityEvent(domain.AccountLockedEvent, domain.SeverityHigh, "Account locked after repeated failed logins").
			ForUser(user.ID, user.OrganizationID).
			WithClientContext(&client).
			WithMetadata("attempts", res.Attempts).
			WithMetadata("lockedUntil", res.LockedUntil.Format(time.RFC3339)))
		s.notifyLocked(user, *res.LockedUntil)
	}
	return reason
}

func (s *AuthServiceImpl) rejectLocked(ctx context.Context, user *domain.User, client domain.ClientContext) {
	s.security.LogSecurityEvent(ctx, domain.NewSecurityEvent(domain.UnauthorizedAccessEvent, domain.SeverityHigh, "Login attempt on locked account").
		ForUser(user.ID, user.OrganizationID).
		WithClientContext(&client).
		WithMetadata("reason", "account_locked").
		WithMetadata("lockedUntil", user.LockedUntil.Format(time.RFC3339)))
	metrics.LoginAttemptsTotal.WithLabelValues("locked").Inc()
}

func (s *AuthServiceImpl) notifyLocked(user *domain.User, until time.Time) {
	msg := fmt.Sprintf("Your CRM account was locked after repeated failed sign-in attempts. It unlocks at %s UTC.", until.Format("2006-01-02 15:04"))
	if user.Phone != "" {
		if err := s.notifier.SendSMS(user.Phone, msg); err != nil {
			s.logger.Warn("failed to send lockout sms", zap.String("user_id", user.ID), zap.Error(err))
		}
	}
	if err := s.notifier.SendEmail(user.Email, "Your account has been locked", msg); err != nil {
		s.logger.Warn("failed to send lockout email", zap.String("user_id", user.ID), zap.Error(err))
	}
}

func (s *AuthServiceImpl) completeLogin(ctx context.Context, user *domain.User, client domain.ClientContext, mfaMethod string) (*domain.AuthResult, error) {
	now := s.now()
	if err := s.userRepo.RecordSuccessfulLogin(ctx, user.ID, now); err != nil {
		return nil, fmt.Errorf("failed to record login: %w", err)
	}
	user.FailedLoginAttempts = 0
	user.LockedUntil = nil
	user.LastLoginAt = &now

	result, err := s.startSession(ctx, user, client)
	if err != nil {
		return nil, err
	}

	event := domain.NewSecurityEvent(domain.LoginSuccessEvent, domain.SeverityLow, "Successful login").
		ForUser(user.ID, user.OrganizationID).
		WithClientContext(&client).
		WithMetadata("sessionId", result.SessionID)
	if mfaMethod != "" {
		event.WithMetadata("mfaMethod", mfaMethod)
	}
	s.security.LogSecurityEvent(ctx, event)
	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	return result, nil
}

func (s *AuthServiceImpl) startSession(ctx context.Context, user *domain.User, client domain.ClientContext) (*domain.AuthResult, error) {
	session, err := s.sessions.Create(ctx, user.ID, user.OrganizationID, client.IPAddress, client.UserAgent)
	if err != nil {
		return nil, err
	}

	subject := subjectFor(user, session.ID)
	accessToken, err := s.tokenSvc.GenerateAccessToken(subject)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	refreshToken, err := s.tokenSvc.GenerateRefreshToken(subject)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &domain.AuthResult{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		SessionID:    session.ID,
		ExpiresIn:    int64(s.tokenSvc.AccessTokenTTL().Seconds()),
	}, nil
}

// RefreshToken implements domain.AuthService. The refresh token is not rotated.
func (s *AuthServiceImpl) RefreshToken(ctx context.Context, refreshToken string) (*domain.AuthResult, error) {
	claims, err := s.tokenSvc.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}

	session, err := s.sessions.Extend(ctx, claims.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to extend session: %w", err)
	}
	if session == nil {
		return nil, domain.ErrSessionExpired
	}
	if session.UserID != claims.UserID {
		return nil, domain.ErrTokenInvalid
	}

	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, domain.ErrUserNotFound
	}
	if !user.IsActive() {
		return nil, domain.ErrUserInactive
	}

	accessToken, err := s.tokenSvc.GenerateAccessToken(subjectFor(user, session.ID))
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	return &domain.AuthResult{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken, // Keep same refresh token
		SessionID:    session.ID,
		ExpiresIn:    int64(s.tokenSvc.AccessTokenTTL().Seconds()),
	}, nil
}

// Logout implements domain.AuthService
func (s *AuthServiceImpl) Logout(ctx context.Context, userID, sessionID string, client domain.ClientContext) error {
	if err := s.sessions.Invalidate(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to invalidate session: %w", err)
	}

	orgID := domain.UnknownOrganization
	if user, err := s.userRepo.FindByID(ctx, userID); err == nil {
		orgID = user.OrganizationID
	}
	s.security.LogSecurityEvent(ctx, domain.NewSecurityEvent(domain.LogoutEvent, domain.SeverityLow, "User logged out").
		ForUser(userID, orgID).
		WithClientContext(&client).
		WithMetadata("sessionId", sessionID))
	return nil
}

// ChangePassword implements domain.AuthService. Every session of the user is revoked.
func (s *AuthServiceImpl) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string, client domain.ClientContext) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if !s.passwordSvc.Verify(user.PasswordHash, currentPassword) {
		s.security.LogSecurityEvent(ctx, domain.NewSecurityEvent(domain.UnauthorizedAccessEvent, domain.SeverityMedium, "Password change with wrong current password").
			ForUser(user.ID, user.OrganizationID).
			WithClientContext(&client))
		return domain.ErrInvalidCredentials
	}
	if err := s.passwordSvc.ValidateStrength(newPassword); err != nil {
		return err
	}
	if s.passwordSvc.Verify(user.PasswordHash, newPassword) {
		return &domain.WeakPasswordError{Reasons: []string{"New password must differ from the current password"}}
	}

	if err := s.setPassword(ctx, user, newPassword); err != nil {
		return err
	}

	s.security.LogSecurityEvent(ctx, domain.NewSecurityEvent(domain.PasswordChangedEvent, domain.SeverityMedium, "Password changed").
		ForUser(user.ID, user.OrganizationID).
		WithClientContext(&client))
	s.audit.Log(ctx, &domain.AuditLog{
		Action:         domain.PasswordChangedAction,
		EntityType:     "user",
		EntityID:       user.ID,
		UserID:         user.ID,
		OrganizationID: user.OrganizationID,
		IPAddress:      client.IPAddress,
		UserAgent:      client.UserAgent,
	})
	return nil
}

// ForgotPassword implements domain.AuthService. It reports success whether or not
// the email belongs to an account.
func (s *AuthServiceImpl) ForgotPassword(ctx context.Context, email string, client domain.ClientContext) error {
	email = normalizeEmail(email)
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			s.logger.Error("password reset lookup failed", zap.Error(err))
		}
		s.security.LogSecurityEvent(ctx, domain.NewSecurityEvent(domain.PasswordResetRequestedEvent, domain.SeverityLow, "Password reset requested for unknown email").
			ForUser("", domain.UnknownOrganization).
			WithClientContext(&client).
			WithMetadata("email", email))
		return nil
	}
	if !user.IsActive() {
		return nil
	}

	token, err := randomHex(32)
	if err != nil {
		s.logger.Error("failed to generate reset token", zap.Error(err))
		return nil
	}
	expires := s.now().Add(s.cfg.PasswordResetTTL)
	user.PasswordResetToken = hashResetToken(token)
	user.PasswordResetExpires = &expires
	if err := s.userRepo.Update(ctx, user, domain.UserFieldPasswordResetToken, domain.UserFieldPasswordResetExpires); err != nil {
		s.logger.Error("failed to store reset token", zap.String("user_id", user.ID), zap.Error(err))
		return nil
	}

	body := fmt.Sprintf("Use this code to reset your CRM password: %s\nIt expires at %s UTC.", token, expires.Format("2006-01-02 15:04"))
	if err := s.notifier.SendEmail(user.Email, "Password reset", body); err != nil {
		s.logger.Warn("failed to send reset email", zap.String("user_id", user.ID), zap.Error(err))
	}
	if user.Phone != "" {
		if err := s.notifier.SendSMS(user.Phone, "Your CRM password reset code: "+token); err != nil {
			s.logger.Warn("failed to send reset sms", zap.String("user_id", user.ID), zap.Error(err))
		}
	}

	s.security.LogSecurityEvent(ctx, domain.NewSecurityEvent(domain.PasswordResetRequestedEvent, domain.SeverityLow, "Password reset requested").
		ForUser(user.ID, user.OrganizationID).
		WithClientContext(&client))
	return nil
}

// ResetPassword implements domain.AuthService. A successful reset also lifts any lockout.
func (s *AuthServiceImpl) ResetPassword(ctx context.Context, token, newPassword string, client domain.ClientContext) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.ErrInvalidResetToken
	}
	user, err := s.userRepo.FindByResetToken(ctx, hashResetToken(token))
	if errors.Is(err, domain.ErrUserNotFound) {
		return domain.ErrInvalidResetToken
	}
	if err != nil {
		return fmt.Errorf("failed to look up reset token: %w", err)
	}
	if user.PasswordResetExpires == nil || s.now().After(*user.PasswordResetExpires) {
		return domain.ErrInvalidResetToken
	}
	if err := s.passwordSvc.ValidateStrength(newPassword); err != nil {
		return err
	}

	user.PasswordResetToken = ""
	user.PasswordResetExpires = nil
	user.FailedLoginAttempts = 0
	user.LockedUntil = nil
	if err := s.setPassword(ctx, user, newPassword,
		domain.UserFieldPasswordResetToken, domain.UserFieldPasswordResetExpires,
		domain.UserFieldFailedLoginAttempts, domain.UserFieldLockedUntil); err != nil {
		return err
	}

	s.security.LogSecurityEvent(ctx, domain.NewSecurityEvent(domain.PasswordResetEvent, domain.SeverityMedium, "Password reset").
		ForUser(user.ID, user.OrganizationID).
		WithClientContext(&client))
	s.audit.Log(ctx, &domain.AuditLog{
		Action:         domain.PasswordResetAction,
		EntityType:     "user",
		EntityID:       user.ID,
		UserID:         user.ID,
		OrganizationID: user.OrganizationID,
		IPAddress:      client.IPAddress,
		UserAgent:      client.UserAgent,
	})
	return nil
}

// setPassword stores a new hash, plus any other changed fields, and revokes every session of the user
func (s *AuthServiceImpl) setPassword(ctx context.Context, user *domain.User, password string, fields ...string) error {
	hashed, err := s.passwordSvc.Hash(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.PasswordHash = hashed
	if err := s.userRepo.Update(ctx, user, append([]string{domain.UserFieldPasswordHash}, fields...)...); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if _, err := s.sessions.InvalidateAllForUser(ctx, user.ID, ""); err != nil {
		return fmt.Errorf("failed to revoke sessions: %w", err)
	}
	return nil
}

// GetUserProfile implements domain.AuthService
func (s *AuthServiceImpl) GetUserProfile(ctx context.Context, userID string) (*domain.User, error) {
	return s.userRepo.FindByID(ctx, userID)
}

// DeactivateUser implements domain.AuthService. The account is kept for the audit
// trail; its sessions are revoked and it can no longer sign in.
func (s *AuthServiceImpl) DeactivateUser(ctx context.Context, actorID, userID string, client domain.ClientContext) error {
	if actorID == userID {
		return fmt.Errorf("%w: administrators cannot deactivate their own account", domain.ErrValidation)
	}
	actor, err := s.userRepo.FindByID(ctx, actorID)
	if err != nil {
		return err
	}
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if actor.OrganizationID != user.OrganizationID {
		return domain.ErrUserNotFound
	}
	if !user.IsActive() {
		return nil
	}

	user.Status = domain.UserStatusInactive
	if err := s.userRepo.Update(ctx, user, domain.UserFieldStatus); err != nil {
		return fmt.Errorf("failed to deactivate user: %w", err)
	}
	revoked, err := s.sessions.InvalidateAllForUser(ctx, user.ID, "")
	if err != nil {
		return fmt.Errorf("failed to revoke sessions: %w", err)
	}

	s.security.LogSecurityEvent(ctx, domain.NewSecurityEvent(domain.AccountDeactivatedEvent, domain.SeverityHigh, "Account deactivated").
		ForUser(user.ID, user.OrganizationID).
		WithClientContext(&client).
		WithMetadata("deactivatedBy", actorID).
		WithMetadata("revokedSessions", revoked))
	s.audit.Log(ctx, &domain.AuditLog{
		Action:         domain.UserDeactivatedAction,
		EntityType:     "user",
		EntityID:       user.ID,
		OldValues:      map[string]interface{}{"status": string(domain.UserStatusActive)},
		NewValues:      map[string]interface{}{"status": string(domain.UserStatusInactive)},
		UserID:         actorID,
		OrganizationID: user.OrganizationID,
		IPAddress:      client.IPAddress,
		UserAgent:      client.UserAgent,
	})
	return nil
}

func subjectFor(user *domain.User, sessionID string) domain.TokenSubject {
	return domain.TokenSubject{
		UserID:         user.ID,
		Email:          user.Email,
		OrganizationID: user.OrganizationID,
		Role:           user.Role,
		SessionID:      sessionID,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// hashResetToken is what gets stored; the plaintext token only leaves in the notification
func hashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

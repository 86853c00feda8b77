package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/you/crmauth/domain"
	"go.uber.org/zap"
)

const (
	backupCodeCount = 10
	backupCodeBytes = 4
	// casAttempts bounds retries of the optimistic backup-code update
	casAttempts = 3
)

// MFAServiceImpl implements domain.MFAService
type MFAServiceImpl struct {
	settings domain.MFASettingsRepository
	users    domain.UserRepository
	totp     domain.TOTPProvider
	enc      domain.EncryptionService
	security domain.SecurityLogger
	audit    domain.AuditLogger
	logger   *zap.Logger
	now      func() time.Time
}

// NewMFAService creates a new MFA service
func NewMFAService(
	settings domain.MFASettingsRepository,
	users domain.UserRepository,
	totp domain.TOTPProvider,
	enc domain.EncryptionService,
	security domain.SecurityLogger,
	audit domain.AuditLogger,
	logger *zap.Logger,
) domain.MFAService {
	return &MFAServiceImpl{
		settings: settings,
		users:    users,
		totp:     totp,
		enc:      enc,
		security: security,
		audit:    audit,
		logger:   logger.With(zap.String("component", "mfa")),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetupMFA implements domain.MFAService. Calling it again before enabling
// replaces the pending secret and codes.
func (s *MFAServiceImpl) SetupMFA(ctx context.Context, userID string) (*domain.MFASetup, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	settings, err := s.settings.FindByUserID(ctx, userID)
	switch {
	case err == nil:
		if settings.Enabled {
			return nil, domain.ErrMFAAlreadyEnabled
		}
	case errors.Is(err, domain.ErrMFANotSetUp):
		settings = &domain.MFASettings{UserID: userID}
	default:
		return nil, err
	}

	secret, otpauthURL, qr, err := s.totp.GenerateSecret(user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate totp secret: %w", err)
	}
	codes, err := generateBackupCodes(backupCodeCount)
	if err != nil {
		return nil, fmt.Errorf("failed to generate backup codes: %w", err)
	}

	encSecret, err := s.enc.EncryptWithPurpose(secret, domain.PurposeMFASecret)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt totp secret: %w", err)
	}
	encCodes, err := s.encryptCodes(codes)
	if err != nil {
		return nil, err
	}

	settings.Enabled = false
	settings.EncryptedSecret = encSecret
	settings.EncryptedBackupCodes = encCodes
	if err := s.settings.Upsert(ctx, settings); err != nil {
		return nil, fmt.Errorf("failed to save mfa settings: %w", err)
	}

	display := make([]string, len(codes))
	for i, c := range codes {
		display[i] = formatBackupCode(c)
	}
	return &domain.MFASetup{
		Secret:        secret,
		OTPAuthURL:    otpauthURL,
		QRCodeDataURL: qr,
		BackupCodes:   display,
	}, nil
}

// EnableMFA implements domain.MFAService
func (s *MFAServiceImpl) EnableMFA(ctx context.Context, userID, code string, client domain.ClientContext) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	settings, err := s.settings.FindByUserID(ctx, userID)
	if err != nil {
		return err
	}
	if settings.Enabled {
		return domain.ErrMFAAlreadyEnabled
	}

	ok, err := s.validTOTP(settings, code)
	if err != nil {
		return err
	}
	if !ok {
		s.verificationFailed(ctx, user, client, "enable")
		return domain.ErrInvalidMFACode
	}

	expected := settings.Version
	settings.Enabled = true
	updated, err := s.settings.UpdateIfVersion(ctx, settings, expected)
	if err != nil {
		return fmt.Errorf("failed to enable mfa: %w", err)
	}
	if !updated {
		return domain.ErrMFAConflict
	}
	if err := s.users.SetMFAEnabled(ctx, userID, true); err != nil {
		return fmt.Errorf("failed to flag user mfa: %w", err)
	}

	s.security.LogSecurityEvent(ctx, domain.NewSecurityEvent(domain.MFAEnabledEvent, domain.SeverityMedium, "MFA enabled").
		ForUser(user.ID, user.OrganizationID).
		WithClientContext(&client))
	return nil
}

// DisableMFA implements domain.MFAService. A TOTP code or an unused backup code is accepted.
func (s *MFAServiceImpl) DisableMFA(ctx context.Context, userID, code string, client domain.ClientContext) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	settings, err := s.enabledSettings(ctx, userID)
	if err != nil {
		return err
	}

	ok, err := s.validTOTP(settings, code)
	if err != nil {
		return err
	}
	if !ok {
		idx, err := s.findBackupCode(settings, code)
		if err != nil {
			return err
		}
		ok = idx >= 0
	}
	if !ok {
		s.verificationFailed(ctx, user, client, "disable")
		return domain.ErrInvalidMFACode
	}

	if err := s.clear(ctx, userID); err != nil {
		return err
	}
	s.security.LogSecurityEvent(ctx, domain.NewSecurityEvent(domain.MFADisabledEvent, domain.SeverityMedium, "MFA disabled").
		ForUser(user.ID, user.OrganizationID).
		WithClientContext(&client))
	return nil
}

// VerifyMFACode implements domain.MFAService
func (s *MFAServiceImpl) VerifyMFACode(ctx context.Context, userID, code string) (bool, error) {
	settings, err := s.enabledSettings(ctx, userID)
	if err != nil {
		return false, err
	}
	return s.validTOTP(settings, code)
}

// VerifyBackupCode implements domain.MFAService. A matching code is removed with a
// version compare-and-swap so concurrent requests cannot spend it twice.
func (s *MFAServiceImpl) VerifyBackupCode(ctx context.Context, userID, code string, client domain.ClientContext) (bool, error) {
	for attempt := 0; attempt < casAttempts; attempt++ {
		settings, err := s.enabledSettings(ctx, userID)
		if err != nil {
			return false, err
		}
		idx, err := s.findBackupCode(settings, code)
		if err != nil {
			return false, err
		}
		if idx < 0 {
			return false, nil
		}

		expected := settings.Version
		remaining := make([]string, 0, len(settings.EncryptedBackupCodes)-1)
		remaining = append(remaining, settings.EncryptedBackupCodes[:idx]...)
		remaining = append(remaining, settings.EncryptedBackupCodes[idx+1:]...)
		settings.EncryptedBackupCodes = remaining

		updated, err := s.settings.UpdateIfVersion(ctx, settings, expected)
		if err != nil {
			return false, fmt.Errorf("failed to consume backup code: %w", err)
		}
		if !updated {
			s.logger.Debug("backup code update lost a race, retrying", zap.String("user_id", userID), zap.Int("attempt", attempt+1))
			continue
		}

		event := domain.NewSecurityEvent(domain.MFABackupCodeUsedEvent, domain.SeverityMedium, "MFA backup code used").
			WithClientContext(&client).
			WithMetadata("remainingCodes", len(remaining))
		if user, err := s.users.FindByID(ctx, userID); err == nil {
			event.ForUser(user.ID, user.OrganizationID)
		} else {
			event.UserID = userID
		}
		s.security.LogSecurityEvent(ctx, event)
		return true, nil
	}
	return false, domain.ErrMFAConflict
}

// RegenerateBackupCodes implements domain.MFAService
func (s *MFAServiceImpl) RegenerateBackupCodes(ctx context.Context, userID, code string, client domain.ClientContext) ([]string, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	settings, err := s.enabledSettings(ctx, userID)
	if err != nil {
		return nil, err
	}

	ok, err := s.validTOTP(settings, code)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.verificationFailed(ctx, user, client, "regenerate_backup_codes")
		return nil, domain.ErrInvalidMFACode
	}

	codes, err := generateBackupCodes(backupCodeCount)
	if err != nil {
		return nil, fmt.Errorf("failed to generate backup codes: %w", err)
	}
	encCodes, err := s.encryptCodes(codes)
	if err != nil {
		return nil, err
	}

	expected := settings.Version
	settings.EncryptedBackupCodes = encCodes
	updated, err := s.settings.UpdateIfVersion(ctx, settings, expected)
	if err != nil {
		return nil, fmt.Errorf("failed to save backup codes: %w", err)
	}
	if !updated {
		return nil, domain.ErrMFAConflict
	}

	s.security.LogSecurityEvent(ctx, domain.NewSecurityEvent(domain.MFABackupCodesRegeneratedEvent, domain.SeverityMedium, "MFA backup codes regenerated").
		ForUser(user.ID, user.OrganizationID).
		WithClientContext(&client))

	display := make([]string, len(codes))
	for i, c := range codes {
		display[i] = formatBackupCode(c)
	}
	return display, nil
}

// GetStatus implements domain.MFAService
func (s *MFAServiceImpl) GetStatus(ctx context.Context, userID string) (*domain.MFAStatus, error) {
	settings, err := s.settings.FindByUserID(ctx, userID)
	if errors.Is(err, domain.ErrMFANotSetUp) {
		return &domain.MFAStatus{}, nil
	}
	if err != nil {
		return nil, err
	}
	status := &domain.MFAStatus{Enabled: settings.Enabled}
	if settings.Enabled {
		status.BackupCodesCount = len(settings.EncryptedBackupCodes)
	}
	return status, nil
}

// AdminReset implements domain.MFAService. The actor must belong to the same organization.
func (s *MFAServiceImpl) AdminReset(ctx context.Context, actorID, userID string, client domain.ClientContext) error {
	actor, err := s.users.FindByID(ctx, actorID)
	if err != nil {
		return err
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if actor.OrganizationID != user.OrganizationID {
		return domain.ErrUserNotFound
	}

	if err := s.clear(ctx, userID); err != nil {
		return err
	}

	s.security.LogSecurityEvent(ctx, domain.NewSecurityEvent(domain.MFADisabledEvent, domain.SeverityHigh, "MFA reset by administrator").
		ForUser(user.ID, user.OrganizationID).
		WithClientContext(&client).
		WithMetadata("resetBy", actorID))
	s.audit.Log(ctx, &domain.AuditLog{
		Action:         domain.MFAResetAction,
		EntityType:     "user",
		EntityID:       user.ID,
		OldValues:      map[string]interface{}{"mfaEnabled": user.MFAEnabled},
		NewValues:      map[string]interface{}{"mfaEnabled": false},
		UserID:         actorID,
		OrganizationID: user.OrganizationID,
		IPAddress:      client.IPAddress,
		UserAgent:      client.UserAgent,
	})
	return nil
}

func (s *MFAServiceImpl) enabledSettings(ctx context.Context, userID string) (*domain.MFASettings, error) {
	settings, err := s.settings.FindByUserID(ctx, userID)
	if errors.Is(err, domain.ErrMFANotSetUp) {
		return nil, domain.ErrMFANotEnabled
	}
	if err != nil {
		return nil, err
	}
	if !settings.Enabled {
		return nil, domain.ErrMFANotEnabled
	}
	return settings, nil
}

func (s *MFAServiceImpl) clear(ctx context.Context, userID string) error {
	if err := s.settings.Delete(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete mfa settings: %w", err)
	}
	if err := s.users.SetMFAEnabled(ctx, userID, false); err != nil {
		return fmt.Errorf("failed to clear user mfa flag: %w", err)
	}
	return nil
}

func (s *MFAServiceImpl) validTOTP(settings *domain.MFASettings, code string) (bool, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return false, nil
	}
	secret, err := s.enc.DecryptWithPurpose(settings.EncryptedSecret, domain.PurposeMFASecret)
	if err != nil {
		return false, fmt.Errorf("failed to decrypt totp secret: %w", err)
	}
	return s.totp.Validate(secret, code, s.now()), nil
}

// findBackupCode returns the index of the stored code matching code, or -1
func (s *MFAServiceImpl) findBackupCode(settings *domain.MFASettings, code string) (int, error) {
	want := normalizeBackupCode(code)
	if len(want) != backupCodeBytes*2 {
		return -1, nil
	}
	for i, enc := range settings.EncryptedBackupCodes {
		plain, err := s.enc.DecryptWithPurpose(enc, domain.PurposeBackupCode)
		if err != nil {
			return -1, fmt.Errorf("failed to decrypt backup code: %w", err)
		}
		if plain == want {
			return i, nil
		}
	}
	return -1, nil
}

func (s *MFAServiceImpl) encryptCodes(codes []string) ([]string, error) {
	out := make([]string, len(codes))
	for i, c := range codes {
		enc, err := s.enc.EncryptWithPurpose(c, domain.PurposeBackupCode)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt backup code: %w", err)
		}
		out[i] = enc
	}
	return out, nil
}

func (s *MFAServiceImpl) verificationFailed(ctx context.Context, user *domain.User, client domain.ClientContext, operation string) {
	s.security.LogSecurityEvent(ctx, domain.NewSecurityEvent(domain.MFAVerificationFailedEvent, domain.SeverityMedium, "MFA verification failed").
		ForUser(user.ID, user.OrganizationID).
		WithClientContext(&client).
		WithMetadata("operation", operation))
}

// generateBackupCodes returns n codes of 8 upper-case hex characters
func generateBackupCodes(n int) ([]string, error) {
	codes := make([]string, n)
	for i := range codes {
		b := make([]byte, backupCodeBytes)
		if _, err := rand.Read(b); err != nil {
			return nil, err
		}
		codes[i] = strings.ToUpper(hex.EncodeToString(b))
	}
	return codes, nil
}

func formatBackupCode(code string) string {
	if len(code) != backupCodeBytes*2 {
		return code
	}
	return code[:4] + "-" + code[4:]
}

func normalizeBackupCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	return strings.NewReplacer("-", "", " ", "").Replace(code)
}

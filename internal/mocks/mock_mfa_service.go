package mocks

import (
	"context"

	"github.com/you/crmauth/domain"
)

// MockMFAService implements domain.MFAService interface for testing
type MockMFAService struct {
	SetupMFAFunc              func(ctx context.Context, userID string) (*domain.MFASetup, error)
	EnableMFAFunc             func(ctx context.Context, userID, code string, client domain.ClientContext) error
	DisableMFAFunc            func(ctx context.Context, userID, code string, client domain.ClientContext) error
	VerifyMFACodeFunc         func(ctx context.Context, userID, code string) (bool, error)
	VerifyBackupCodeFunc      func(ctx context.Context, userID, code string, client domain.ClientContext) (bool, error)
	RegenerateBackupCodesFunc func(ctx context.Context, userID, code string, client domain.ClientContext) ([]string, error)
	GetStatusFunc             func(ctx context.Context, userID string) (*domain.MFAStatus, error)
	AdminResetFunc            func(ctx context.Context, actorID, userID string, client domain.ClientContext) error
}

var _ domain.MFAService = (*MockMFAService)(nil)

// NewMockMFAService creates a new MockMFAService
func NewMockMFAService() *MockMFAService {
	return &MockMFAService{}
}

func (m *MockMFAService) SetupMFA(ctx context.Context, userID string) (*domain.MFASetup, error) {
	if m.SetupMFAFunc != nil {
		return m.SetupMFAFunc(ctx, userID)
	}
	return &domain.MFASetup{
		Secret:        "JBSWY3DPEHPK3PXPJBSWY3DPEHPK3PXP",
		OTPAuthURL:    "otpauth://totp/CRM:test@example.com",
		QRCodeDataURL: "data:image/png;base64,iVBORw0KGgo=",
		BackupCodes:   []string{"ABCD-1234", "EF56-7890"},
	}, nil
}

func (m *MockMFAService) EnableMFA(ctx context.Context, userID, code string, client domain.ClientContext) error {
	if m.EnableMFAFunc != nil {
		return m.EnableMFAFunc(ctx, userID, code, client)
	}
	return nil
}

func (m *MockMFAService) DisableMFA(ctx context.Context, userID, code string, client domain.ClientContext) error {
	if m.DisableMFAFunc != nil {
		return m.DisableMFAFunc(ctx, userID, code, client)
	}
	return nil
}

func (m *MockMFAService) VerifyMFACode(ctx context.Context, userID, code string) (bool, error) {
	if m.VerifyMFACodeFunc != nil {
		return m.VerifyMFACodeFunc(ctx, userID, code)
	}
	return code == "123456", nil
}

func (m *MockMFAService) VerifyBackupCode(ctx context.Context, userID, code string, client domain.ClientContext) (bool, error) {
	if m.VerifyBackupCodeFunc != nil {
		return m.VerifyBackupCodeFunc(ctx, userID, code, client)
	}
	return false, nil
}

func (m *MockMFAService) RegenerateBackupCodes(ctx context.Context, userID, code string, client domain.ClientContext) ([]string, error) {
	if m.RegenerateBackupCodesFunc != nil {
		return m.RegenerateBackupCodesFunc(ctx, userID, code, client)
	}
	return []string{"ABCD-1234"}, nil
}

func (m *MockMFAService) GetStatus(ctx context.Context, userID string) (*domain.MFAStatus, error) {
	if m.GetStatusFunc != nil {
		return m.GetStatusFunc(ctx, userID)
	}
	return &domain.MFAStatus{}, nil
}

func (m *MockMFAService) AdminReset(ctx context.Context, actorID, userID string, client domain.ClientContext) error {
	if m.AdminResetFunc != nil {
		return m.AdminResetFunc(ctx, actorID, userID, client)
	}
	return nil
}

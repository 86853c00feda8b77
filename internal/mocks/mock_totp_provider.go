package mocks

import (
	"time"

	"github.com/you/crmauth/domain"
)

// MockTOTPProvider implements domain.TOTPProvider interface for testing.
// By default the only valid code is ValidCode.
type MockTOTPProvider struct {
	GenerateSecretFunc func(accountName string) (string, string, string, error)
	ValidateFunc       func(secret, code string, at time.Time) bool
	ValidCode          string
}

var _ domain.TOTPProvider = (*MockTOTPProvider)(nil)

// NewMockTOTPProvider creates a new MockTOTPProvider accepting "123456"
func NewMockTOTPProvider() *MockTOTPProvider {
	return &MockTOTPProvider{ValidCode: "123456"}
}

// GenerateSecret returns a fixed secret
func (m *MockTOTPProvider) GenerateSecret(accountName string) (string, string, string, error) {
	if m.GenerateSecretFunc != nil {
		return m.GenerateSecretFunc(accountName)
	}
	return "JBSWY3DPEHPK3PXPJBSWY3DPEHPK3PXP",
		"otpauth://totp/CRM:" + accountName + "?secret=JBSWY3DPEHPK3PXPJBSWY3DPEHPK3PXP",
		"data:image/png;base64,iVBORw0KGgo=", nil
}

// Validate checks a code
func (m *MockTOTPProvider) Validate(secret, code string, at time.Time) bool {
	if m.ValidateFunc != nil {
		return m.ValidateFunc(secret, code, at)
	}
	return code == m.ValidCode
}

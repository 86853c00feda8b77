package mocks

import (
	"strings"

	"github.com/you/crmauth/domain"
)

// MockEncryptionService implements domain.EncryptionService interface for testing.
// The default "ciphertext" is a readable prefix so tests can inspect stored values.
type MockEncryptionService struct {
	EncryptFunc            func(plaintext string) (string, error)
	DecryptFunc            func(ciphertext string) (string, error)
	EncryptWithPurposeFunc func(plaintext, purpose string) (string, error)
	DecryptWithPurposeFunc func(ciphertext, purpose string) (string, error)
}

var _ domain.EncryptionService = (*MockEncryptionService)(nil)

// NewMockEncryptionService creates a new MockEncryptionService
func NewMockEncryptionService() *MockEncryptionService {
	return &MockEncryptionService{}
}

func (m *MockEncryptionService) Encrypt(plaintext string) (string, error) {
	if m.EncryptFunc != nil {
		return m.EncryptFunc(plaintext)
	}
	return "enc:" + plaintext, nil
}

func (m *MockEncryptionService) Decrypt(ciphertext string) (string, error) {
	if m.DecryptFunc != nil {
		return m.DecryptFunc(ciphertext)
	}
	if !strings.HasPrefix(ciphertext, "enc:") {
		return "", domain.ErrDecryption
	}
	return strings.TrimPrefix(ciphertext, "enc:"), nil
}

func (m *MockEncryptionService) EncryptWithPurpose(plaintext, purpose string) (string, error) {
	if m.EncryptWithPurposeFunc != nil {
		return m.EncryptWithPurposeFunc(plaintext, purpose)
	}
	return "enc:" + purpose + ":" + plaintext, nil
}

func (m *MockEncryptionService) DecryptWithPurpose(ciphertext, purpose string) (string, error) {
	if m.DecryptWithPurposeFunc != nil {
		return m.DecryptWithPurposeFunc(ciphertext, purpose)
	}
	prefix := "enc:" + purpose + ":"
	if !strings.HasPrefix(ciphertext, prefix) {
		return "", domain.ErrPurposeMismatch
	}
	return strings.TrimPrefix(ciphertext, prefix), nil
}

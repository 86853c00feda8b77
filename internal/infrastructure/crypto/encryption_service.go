// Package crypto implements field-level encryption for sensitive values at rest.
package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/you/crmauth/domain"
	"golang.org/x/crypto/pbkdf2"
)

const (
	keySize          = 32
	ivSize           = 16
	tagSize          = 16
	purposeIterCount = 100000
)

// Purposes used by the service
const (
	PurposeMFASecret  = domain.PurposeMFASecret
	PurposeBackupCode = domain.PurposeBackupCode
)

var b64 = base64.StdEncoding.Strict()

// AESGCMEncryptionService implements domain.EncryptionService using AES-256-GCM.
// Packages are base64(IV ‖ Tag ‖ Ciphertext); purpose-bound packages are prefixed
// with a big-endian uint16 purpose length and the purpose itself.
type AESGCMEncryptionService struct {
	masterKey   []byte
	purposeKeys sync.Map // purpose -> []byte
}

// NewEncryptionService derives the master key from key: 64 hex characters are used
// as-is, anything else is hashed with SHA-256.
func NewEncryptionService(key string) (*AESGCMEncryptionService, error) {
	if key == "" {
		return nil, errors.New("encryption key not configured")
	}
	return &AESGCMEncryptionService{masterKey: deriveMasterKey(key)}, nil
}

func deriveMasterKey(key string) []byte {
	if len(key) == keySize*2 {
		if raw, err := hex.DecodeString(key); err == nil {
			return raw
		}
	}
	sum := sha256.Sum256([]byte(key))
	return sum[:]
}

// Encrypt implements domain.EncryptionService
func (s *AESGCMEncryptionService) Encrypt(plaintext string) (string, error) {
	sealed, err := seal(s.masterKey, []byte(plaintext), nil)
	if err != nil {
		return "", err
	}
	return b64.EncodeToString(sealed), nil
}

// Decrypt implements domain.EncryptionService
func (s *AESGCMEncryptionService) Decrypt(ciphertext string) (string, error) {
	raw, err := b64.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: invalid encoding", domain.ErrDecryption)
	}
	plain, err := open(s.masterKey, raw, nil)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// EncryptWithPurpose encrypts with a subkey bound to purpose
func (s *AESGCMEncryptionService) EncryptWithPurpose(plaintext, purpose string) (string, error) {
	if len(purpose) > math.MaxUint16 {
		return "", errors.New("purpose too long")
	}
	key, err := s.purposeKey(purpose)
	if err != nil {
		return "", err
	}

	sealed, err := seal(key, []byte(plaintext), []byte(purpose))
	if err != nil {
		return "", err
	}

	out := make([]byte, 2, 2+len(purpose)+len(sealed))
	binary.BigEndian.PutUint16(out, uint16(len(purpose)))
	out = append(out, purpose...)
	out = append(out, sealed...)
	return b64.EncodeToString(out), nil
}

// DecryptWithPurpose reverses EncryptWithPurpose; a package made for another purpose yields ErrPurposeMismatch
func (s *AESGCMEncryptionService) DecryptWithPurpose(ciphertext, purpose string) (string, error) {
	raw, err := b64.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: invalid encoding", domain.ErrDecryption)
	}
	if len(raw) < 2 {
		return "", fmt.Errorf("%w: package too short", domain.ErrDecryption)
	}
	n := int(binary.BigEndian.Uint16(raw))
	if len(raw) < 2+n {
		return "", fmt.Errorf("%w: package too short", domain.ErrDecryption)
	}
	if !bytes.Equal(raw[2:2+n], []byte(purpose)) {
		return "", domain.ErrPurposeMismatch
	}

	key, err := s.purposeKey(purpose)
	if err != nil {
		return "", err
	}
	plain, err := open(key, raw[2+n:], []byte(purpose))
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

func (s *AESGCMEncryptionService) purposeKey(purpose string) ([]byte, error) {
	if k, ok := s.purposeKeys.Load(purpose); ok {
		return k.([]byte), nil
	}
	salt := sha256.Sum256([]byte(purpose))
	k := pbkdf2.Key(s.masterKey, salt[:], purposeIterCount, keySize, sha256.New)
	actual, _ := s.purposeKeys.LoadOrStore(purpose, k)
	return actual.([]byte), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher block: %w", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, ivSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM cipher: %w", err)
	}
	return gcm, nil
}

// seal returns IV ‖ Tag ‖ Ciphertext
func seal(key, plaintext, aad []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	iv := make([]byte, ivSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, fmt.Errorf("failed to generate IV: %w", err)
	}

	sealed := gcm.Seal(nil, iv, plaintext, aad)
	ct, tag := sealed[:len(sealed)-tagSize], sealed[len(sealed)-tagSize:]

	out := make([]byte, 0, ivSize+tagSize+len(ct))
	out = append(out, iv...)
	out = append(out, tag...)
	out = append(out, ct...)
	return out, nil
}

func open(key, pkg, aad []byte) ([]byte, error) {
	if len(pkg) < ivSize+tagSize {
		return nil, fmt.Errorf("%w: package too short", domain.ErrDecryption)
	}
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	iv, tag, ct := pkg[:ivSize], pkg[ivSize:ivSize+tagSize], pkg[ivSize+tagSize:]
	joined := make([]byte, 0, len(ct)+tagSize)
	joined = append(joined, ct...)
	joined = append(joined, tag...)

	plain, err := gcm.Open(nil, iv, joined, aad)
	if err != nil {
		return nil, domain.ErrDecryption
	}
	return plain, nil
}

var _ domain.EncryptionService = (*AESGCMEncryptionService)(nil)

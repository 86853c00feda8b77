package auth

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/png"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/you/crmauth/domain"
)

const (
	totpPeriod     = 30
	totpSecretSize = 20
	qrCodeSize     = 200
)

// TOTPServiceImpl implements domain.TOTPProvider with pquerna/otp
type TOTPServiceImpl struct {
	issuer string
	skew   uint
}

// NewTOTPService creates a TOTP provider; window is the accepted drift in 30 second steps
func NewTOTPService(issuer string, window int) domain.TOTPProvider {
	if strings.TrimSpace(issuer) == "" {
		issuer = "CRM"
	}
	if window < 0 {
		window = 0
	}
	return &TOTPServiceImpl{issuer: issuer, skew: uint(window)}
}

// GenerateSecret creates a base32 secret, its otpauth:// URL and a PNG QR code data URL
func (s *TOTPServiceImpl) GenerateSecret(accountName string) (string, string, string, error) {
	if strings.TrimSpace(accountName) == "" {
		return "", "", "", fmt.Errorf("accountName cannot be empty for TOTP secret generation")
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.issuer,
		AccountName: accountName,
		Period:      totpPeriod,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
		SecretSize:  totpSecretSize,
	})
	if err != nil {
		return "", "", "", fmt.Errorf("failed to generate TOTP key: %w", err)
	}

	img, err := key.Image(qrCodeSize, qrCodeSize)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to render QR code: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", "", "", fmt.Errorf("failed to encode QR code: %w", err)
	}
	qr := "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())

	return key.Secret(), key.URL(), qr, nil
}

// Validate reports whether code matches secret within the configured drift window
func (s *TOTPServiceImpl) Validate(secret, code string, at time.Time) bool {
	code = strings.TrimSpace(code)
	if secret == "" || code == "" {
		return false
	}

	valid, err := totp.ValidateCustom(code, secret, at.UTC(), totp.ValidateOpts{
		Period:    totpPeriod,
		Skew:      s.skew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && valid
}

var _ domain.TOTPProvider = (*TOTPServiceImpl)(nil)

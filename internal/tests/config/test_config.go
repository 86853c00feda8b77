package config

import (
	"testing"
	"time"

	"github.com/you/crmauth/internal/config"
)

// NewTestConfig returns a valid configuration for in-process end-to-end tests.
// bcrypt runs at its minimum cost and rate limits are high enough to stay out of the way.
func NewTestConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := &config.Config{
		Port:     "0",
		Env:      "test",
		LogLevel: "error",

		JWTSecret:   "e2e-test-secret-with-enough-entropy",
		JWTIssuer:   "crmauth-e2e",
		AccessTTL:   15 * time.Minute,
		RefreshTTL:  7 * 24 * time.Hour,
		MFATokenTTL: 5 * time.Minute,

		BcryptRounds:       4,
		SessionMaxAge:      24 * time.Hour,
		EncryptionKey:      "e2e-test-encryption-key",
		LockoutMaxAttempts: 5,
		LockoutDuration:    30 * time.Minute,
		PasswordResetTTL:   time.Hour,

		MFAIssuer: "CRM",
		MFAWindow: 2,

		RateLimitRequests: 1000,
		RateLimitWindow:   time.Minute,
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("invalid test configuration: %v", err)
	}
	return cfg
}

package auth

import (
	"fmt"
	"unicode"

	"github.com/you/crmauth/domain"
	"golang.org/x/crypto/bcrypt"
)

// maxPasswordBytes is the longest input bcrypt accepts
const maxPasswordBytes = 72

// PasswordPolicy defines password complexity requirements
type PasswordPolicy struct {
	MinLength        int
	MaxBytes         int
	RequireUppercase bool
	RequireLowercase bool
	RequireNumbers   bool
	RequireSpecial   bool
}

// DefaultPasswordPolicy returns the policy applied to every account
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength:        8,
		MaxBytes:         maxPasswordBytes,
		RequireUppercase: true,
		RequireLowercase: true,
		RequireNumbers:   true,
		RequireSpecial:   true,
	}
}

// Violations lists every rule the password breaks, in a stable order
func (p PasswordPolicy) Violations(password string) []string {
	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}

	var reasons []string
	if len([]rune(password)) < p.MinLength {
		reasons = append(reasons, fmt.Sprintf("Password must be at least %d characters long", p.MinLength))
	}
	if p.MaxBytes > 0 && len(password) > p.MaxBytes {
		reasons = append(reasons, fmt.Sprintf("Password must be at most %d bytes long", p.MaxBytes))
	}
	if p.RequireUppercase && !hasUpper {
		reasons = append(reasons, "Password must contain at least one uppercase letter")
	}
	if p.RequireLowercase && !hasLower {
		reasons = append(reasons, "Password must contain at least one lowercase letter")
	}
	if p.RequireNumbers && !hasDigit {
		reasons = append(reasons, "Password must contain at least one number")
	}
	if p.RequireSpecial && !hasSpecial {
		reasons = append(reasons, "Password must contain at least one special character")
	}
	return reasons
}

// PasswordServiceImpl implements domain.PasswordService
type PasswordServiceImpl struct {
	cost   int
	policy PasswordPolicy
}

// NewPasswordService creates a new password service; cost falls back to bcrypt.DefaultCost when out of range
func NewPasswordService(cost int) domain.PasswordService {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &PasswordServiceImpl{
		cost:   cost,
		policy: DefaultPasswordPolicy(),
	}
}

// Hash implements domain.PasswordService
func (p *PasswordServiceImpl) Hash(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

// Verify implements domain.PasswordService
func (p *PasswordServiceImpl) Verify(hashedPassword, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	return err == nil
}

// ValidateStrength implements domain.PasswordService
func (p *PasswordServiceImpl) ValidateStrength(password string) error {
	if reasons := p.policy.Violations(password); len(reasons) > 0 {
		return &domain.WeakPasswordError{Reasons: reasons}
	}
	return nil
}

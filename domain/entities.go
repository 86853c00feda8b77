package domain

import "time"

// Role is the CRM role of a user inside its organization
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleManager Role = "MANAGER"
	RoleUser    Role = "USER"
	RoleViewer  Role = "VIEWER"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleUser, RoleViewer:
		return true
	}
	return false
}

// Subject is the policy subject of the role
func (r Role) Subject() string {
	return "role_" + string(r)
}

// UserStatus is the lifecycle status of a user
type UserStatus string

const (
	UserStatusActive   UserStatus = "ACTIVE"
	UserStatusInactive UserStatus = "INACTIVE"
)

// UnknownOrganization scopes security events that cannot be tied to a tenant
const UnknownOrganization = "unknown"

// User represents a user in the system
type User struct {
	ID                   string
	Email                string
	PasswordHash         string
	FirstName            string
	LastName             string
	Phone                string
	Role                 Role
	Status               UserStatus
	OrganizationID       string
	MFAEnabled           bool
	FailedLoginAttempts  int
	LockedUntil          *time.Time
	LastLoginAt          *time.Time
	PasswordResetToken   string
	PasswordResetExpires *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// User fields accepted by UserRepository.Update
const (
	UserFieldPasswordHash         = "PasswordHash"
	UserFieldStatus               = "Status"
	UserFieldPasswordResetToken   = "PasswordResetToken"
	UserFieldPasswordResetExpires = "PasswordResetExpires"
	UserFieldFailedLoginAttempts  = "FailedLoginAttempts"
	UserFieldLockedUntil          = "LockedUntil"
)

// IsActive reports whether the user may authenticate
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

// IsLocked reports whether a lockout is in effect at now
func (u *User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && u.LockedUntil.After(now)
}

// Session represents one authenticated device or browser
type Session struct {
	ID             string    `json:"id"`
	Token          string    `json:"-"`
	UserID         string    `json:"user_id"`
	OrganizationID string    `json:"organization_id"`
	ExpiresAt      time.Time `json:"expires_at"`
	IPAddress      string    `json:"ip_address,omitempty"`
	UserAgent      string    `json:"user_agent,omitempty"`
	IsActive       bool      `json:"is_active"`
	LastActivityAt time.Time `json:"last_activity_at"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// IsExpired reports whether the session is past its expiry at now
func (s *Session) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// MFASettings holds the encrypted second-factor material of a user
type MFASettings struct {
	UserID               string
	Enabled              bool
	EncryptedSecret      string
	EncryptedBackupCodes []string
	Version              int
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// ClientContext represents client information extracted from HTTP request
type ClientContext struct {
	IPAddress string
	UserAgent string
	SessionID string
}

// RegisterInput carries registration data
type RegisterInput struct {
	Email          string
	Password       string
	FirstName      string
	LastName       string
	Phone          string
	OrganizationID string
	Role           Role
	Client         ClientContext
}

// LoginInput carries login credentials and the optional second factor
type LoginInput struct {
	Email    string
	Password string
	MFACode  string
	Client   ClientContext
}

// AuthResult represents authentication outcome
type AuthResult struct {
	User         *User
	AccessToken  string
	RefreshToken string
	SessionID    string
	ExpiresIn    int64
	RequiresMFA  bool
	MFAToken     string
}

// MFASetup is returned once when MFA is set up; the plaintext is never retrievable again
type MFASetup struct {
	Secret        string
	OTPAuthURL    string
	QRCodeDataURL string
	BackupCodes   []string
}

// MFAStatus summarises the MFA state of a user
type MFAStatus struct {
	Enabled          bool `json:"enabled"`
	BackupCodesCount int  `json:"backup_codes_count"`
}

// TokenSubject is the identity embedded into issued tokens
type TokenSubject struct {
	UserID         string
	Email          string
	OrganizationID string
	Role           Role
	SessionID      string
}

// FailedLoginUpdate describes the lockout transition applied on a failed attempt
type FailedLoginUpdate struct {
	MaxAttempts int
	LockFor     time.Duration
	Now         time.Time
}

// FailedLoginResult is the user state after a failed attempt was recorded
type FailedLoginResult struct {
	Attempts    int
	LockedUntil *time.Time
	JustLocked  bool
}

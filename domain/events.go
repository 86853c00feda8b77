package domain

import (
	"time"
)

// SecurityEventType defines the type of security event
type SecurityEventType string

const (
	// Authentication events
	LoginSuccessEvent       SecurityEventType = "LOGIN_SUCCESS"
	LoginFailedEvent        SecurityEventType = "LOGIN_FAILED"
	LogoutEvent             SecurityEventType = "LOGOUT"
	AccountLockedEvent      SecurityEventType = "ACCOUNT_LOCKED"
	UnauthorizedAccessEvent SecurityEventType = "UNAUTHORIZED_ACCESS"

	// Credential events
	PasswordChangedEvent        SecurityEventType = "PASSWORD_CHANGED"
	PasswordResetRequestedEvent SecurityEventType = "PASSWORD_RESET_REQUESTED"
	PasswordResetEvent          SecurityEventType = "PASSWORD_RESET"

	// MFA events
	MFAEnabledEvent                SecurityEventType = "MFA_ENABLED"
	MFADisabledEvent               SecurityEventType = "MFA_DISABLED"
	MFAVerificationFailedEvent     SecurityEventType = "MFA_VERIFICATION_FAILED"
	MFABackupCodeUsedEvent         SecurityEventType = "MFA_BACKUP_CODE_USED"
	MFABackupCodesRegeneratedEvent SecurityEventType = "MFA_BACKUP_CODES_REGENERATED"

	// Session and account events
	SessionRevokedEvent     SecurityEventType = "SESSION_REVOKED"
	AccountDeactivatedEvent SecurityEventType = "ACCOUNT_DEACTIVATED"

	SuspiciousActivityEvent SecurityEventType = "SUSPICIOUS_ACTIVITY"
)

// Severity ranks security events
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// SecurityEvent is an immutable audit trail entry; only the resolved fields ever change
type SecurityEvent struct {
	ID             string                 `json:"id"`
	Type           SecurityEventType      `json:"type"`
	Severity       Severity               `json:"severity"`
	Description    string                 `json:"description"`
	UserID         string                 `json:"user_id,omitempty"`
	IPAddress      string                 `json:"ip_address,omitempty"`
	UserAgent      string                 `json:"user_agent,omitempty"`
	OrganizationID string                 `json:"organization_id"`
	Resolved       bool                   `json:"resolved"`
	ResolvedAt     *time.Time             `json:"resolved_at,omitempty"`
	ResolvedBy     string                 `json:"resolved_by,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
}

// NewSecurityEvent creates a new security event with common fields populated
func NewSecurityEvent(eventType SecurityEventType, severity Severity, description string) *SecurityEvent {
	return &SecurityEvent{
		Type:        eventType,
		Severity:    severity,
		Description: description,
		Metadata:    make(map[string]interface{}),
		CreatedAt:   time.Now().UTC(),
	}
}

// ForUser scopes the event to a user and its organization
func (e *SecurityEvent) ForUser(userID, organizationID string) *SecurityEvent {
	e.UserID = userID
	e.OrganizationID = organizationID
	return e
}

// WithClientContext sets client context information
func (e *SecurityEvent) WithClientContext(ctx *ClientContext) *SecurityEvent {
	if ctx != nil {
		e.IPAddress = ctx.IPAddress
		e.UserAgent = ctx.UserAgent
		if ctx.SessionID != "" {
			e.Metadata["session_id"] = ctx.SessionID
		}
	}
	return e
}

// WithMetadata adds metadata to the event
func (e *SecurityEvent) WithMetadata(key string, value interface{}) *SecurityEvent {
	e.Metadata[key] = value
	return e
}

// SecurityEventQuery selects security events; zero fields are ignored
type SecurityEventQuery struct {
	OrganizationID string
	UserID         string
	Types          []SecurityEventType
	Severities     []Severity
	IPAddress      string
	Since          time.Time
	Until          time.Time
	Resolved       *bool
	Limit          int
	Offset         int
}

// SecurityMetrics is the dashboard aggregation over a time range
type SecurityMetrics struct {
	TimeRange            string                      `json:"time_range"`
	TotalEvents          int64                       `json:"total_events"`
	EventsByType         map[SecurityEventType]int64 `json:"events_by_type"`
	EventsBySeverity     map[Severity]int64          `json:"events_by_severity"`
	RecentEvents         []*SecurityEvent            `json:"recent_events"`
	SuspiciousActivities []*SecurityEvent            `json:"suspicious_activities"`
}

// SecurityDashboard combines the short-range metrics with open incidents
type SecurityDashboard struct {
	Metrics            *SecurityMetrics `json:"metrics"`
	UnresolvedHighRisk int64            `json:"unresolved_high_risk"`
	ActiveSessions     int64            `json:"active_sessions"`
}

// AuditAction names a business-entity mutation
type AuditAction string

const (
	AuditCreate AuditAction = "CREATE"
	AuditUpdate AuditAction = "UPDATE"
	AuditDelete AuditAction = "DELETE"

	UserRegisteredAction  AuditAction = "USER_REGISTERED"
	PasswordChangedAction AuditAction = "PASSWORD_CHANGED"
	PasswordResetAction   AuditAction = "PASSWORD_RESET"
	UserDeactivatedAction AuditAction = "USER_DEACTIVATED"
	MFAResetAction        AuditAction = "MFA_RESET"
)

// AuditLogRetention is how long audit entries are kept
const AuditLogRetention = 7 * 365 * 24 * time.Hour

// AuditLog records an entity mutation with before/after snapshots
type AuditLog struct {
	ID             string                 `json:"id"`
	Action         AuditAction            `json:"action"`
	EntityType     string                 `json:"entity_type"`
	EntityID       string                 `json:"entity_id"`
	OldValues      map[string]interface{} `json:"old_values,omitempty"`
	NewValues      map[string]interface{} `json:"new_values,omitempty"`
	UserID         string                 `json:"user_id,omitempty"`
	OrganizationID string                 `json:"organization_id"`
	IPAddress      string                 `json:"ip_address,omitempty"`
	UserAgent      string                 `json:"user_agent,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
}

// AuditLogQuery selects audit entries; zero fields are ignored
type AuditLogQuery struct {
	OrganizationID string
	EntityType     string
	EntityID       string
	UserID         string
	Since          time.Time
	Limit          int
	Offset         int
}

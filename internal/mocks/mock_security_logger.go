package mocks

import (
	"context"
	"sync"

	"github.com/you/crmauth/domain"
)

// MockSecurityLogger implements domain.SecurityLogger and records every event
type MockSecurityLogger struct {
	mu     sync.Mutex
	Events []*domain.SecurityEvent
}

var _ domain.SecurityLogger = (*MockSecurityLogger)(nil)

// NewMockSecurityLogger creates a new MockSecurityLogger
func NewMockSecurityLogger() *MockSecurityLogger {
	return &MockSecurityLogger{}
}

// LogSecurityEvent records the event
func (m *MockSecurityLogger) LogSecurityEvent(ctx context.Context, event *domain.SecurityEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, event)
}

// OfType returns the recorded events of the given type
func (m *MockSecurityLogger) OfType(t domain.SecurityEventType) []*domain.SecurityEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.SecurityEvent
	for _, e := range m.Events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// MockAuditLogger implements domain.AuditLogger and records every entry
type MockAuditLogger struct {
	ListFunc         func(ctx context.Context, query domain.AuditLogQuery) ([]*domain.AuditLog, error)
	PurgeExpiredFunc func(ctx context.Context) (int64, error)

	mu      sync.Mutex
	Entries []*domain.AuditLog
}

var _ domain.AuditLogger = (*MockAuditLogger)(nil)

// NewMockAuditLogger creates a new MockAuditLogger
func NewMockAuditLogger() *MockAuditLogger {
	return &MockAuditLogger{}
}

// Log records the entry
func (m *MockAuditLogger) Log(ctx context.Context, entry *domain.AuditLog) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Entries = append(m.Entries, entry)
}

// List lists recorded entries
func (m *MockAuditLogger) List(ctx context.Context, query domain.AuditLogQuery) ([]*domain.AuditLog, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, query)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.AuditLog(nil), m.Entries...), nil
}

// PurgeExpired purges old entries
func (m *MockAuditLogger) PurgeExpired(ctx context.Context) (int64, error) {
	if m.PurgeExpiredFunc != nil {
		return m.PurgeExpiredFunc(ctx)
	}
	return 0, nil
}

// Actions returns the recorded audit actions in order
func (m *MockAuditLogger) Actions() []domain.AuditAction {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.AuditAction, 0, len(m.Entries))
	for _, e := range m.Entries {
		out = append(out, e.Action)
	}
	return out
}

package mocks

import (
	"fmt"
	"sync"

	"github.com/you/crmauth/domain"
)

// MockCasbinEnforcer is an in-memory domain.CasbinEnforcer. Enforce matches rules literally,
// without role inheritance or path patterns.
type MockCasbinEnforcer struct {
	AddPolicyFunc    func(params ...interface{}) (bool, error)
	RemovePolicyFunc func(params ...interface{}) (bool, error)
	EnforceFunc      func(rvals ...interface{}) (bool, error)
	GetPolicyFunc    func() ([][]string, error)
	SavePolicyFunc   func() error

	mu    sync.Mutex
	rules [][]string
	Saves int
}

var _ domain.CasbinEnforcer = (*MockCasbinEnforcer)(nil)

// NewMockCasbinEnforcer returns an enforcer seeded with a manager and an admin rule
func NewMockCasbinEnforcer() *MockCasbinEnforcer {
	return &MockCasbinEnforcer{
		rules: [][]string{
			{domain.RoleManager.Subject(), "/auth/security/*", "GET"},
			{domain.RoleAdmin.Subject(), "/auth/users/:id/deactivate", "POST"},
		},
	}
}

func toRule(params []interface{}) []string {
	rule := make([]string, len(params))
	for i, p := range params {
		rule[i] = fmt.Sprint(p)
	}
	return rule
}

func (m *MockCasbinEnforcer) indexOf(rule []string) int {
	for i, r := range m.rules {
		if fmt.Sprint(r) == fmt.Sprint(rule) {
			return i
		}
	}
	return -1
}

// AddPolicy stores the rule unless it already exists
func (m *MockCasbinEnforcer) AddPolicy(params ...interface{}) (bool, error) {
	if m.AddPolicyFunc != nil {
		return m.AddPolicyFunc(params...)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rule := toRule(params)
	if m.indexOf(rule) >= 0 {
		return false, nil
	}
	m.rules = append(m.rules, rule)
	return true, nil
}

// RemovePolicy drops the rule when present
func (m *MockCasbinEnforcer) RemovePolicy(params ...interface{}) (bool, error) {
	if m.RemovePolicyFunc != nil {
		return m.RemovePolicyFunc(params...)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.indexOf(toRule(params))
	if i < 0 {
		return false, nil
	}
	m.rules = append(m.rules[:i], m.rules[i+1:]...)
	return true, nil
}

func (m *MockCasbinEnforcer) Enforce(rvals ...interface{}) (bool, error) {
	if m.EnforceFunc != nil {
		return m.EnforceFunc(rvals...)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.indexOf(toRule(rvals)) >= 0, nil
}

func (m *MockCasbinEnforcer) GetPolicy() ([][]string, error) {
	if m.GetPolicyFunc != nil {
		return m.GetPolicyFunc()
	}
	return m.Policies(), nil
}

// SavePolicy counts calls in Saves
func (m *MockCasbinEnforcer) SavePolicy() error {
	m.mu.Lock()
	m.Saves++
	m.mu.Unlock()
	if m.SavePolicyFunc != nil {
		return m.SavePolicyFunc()
	}
	return nil
}

// Policies returns a copy of the stored rules
func (m *MockCasbinEnforcer) Policies() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]string, len(m.rules))
	for i, r := range m.rules {
		out[i] = append([]string(nil), r...)
	}
	return out
}

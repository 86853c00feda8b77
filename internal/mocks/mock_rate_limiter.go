package mocks

import (
	"context"
	"time"

	"github.com/you/crmauth/domain"
)

// MockRateLimiter implements domain.RateLimiter interface for testing
type MockRateLimiter struct {
	AllowFunc func(ctx context.Context, key string) (bool, int, time.Duration, error)
	Keys      []string
}

var _ domain.RateLimiter = (*MockRateLimiter)(nil)

// NewMockRateLimiter creates a limiter that allows everything
func NewMockRateLimiter() *MockRateLimiter {
	return &MockRateLimiter{}
}

// Allow records the key and applies AllowFunc
func (m *MockRateLimiter) Allow(ctx context.Context, key string) (bool, int, time.Duration, error) {
	m.Keys = append(m.Keys, key)
	if m.AllowFunc != nil {
		return m.AllowFunc(ctx, key)
	}
	return true, 9, 0, nil
}

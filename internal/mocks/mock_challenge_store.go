package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/you/crmauth/domain"
)

// MockChallengeStore is an in-memory domain.ChallengeStore
type MockChallengeStore struct {
	ConsumeFunc func(ctx context.Context, id string, expiresAt time.Time) (bool, error)

	mu   sync.Mutex
	used map[string]time.Time
}

var _ domain.ChallengeStore = (*MockChallengeStore)(nil)

func NewMockChallengeStore() *MockChallengeStore {
	return &MockChallengeStore{used: make(map[string]time.Time)}
}

// Consume reports true the first time id is seen
func (m *MockChallengeStore) Consume(ctx context.Context, id string, expiresAt time.Time) (bool, error) {
	if m.ConsumeFunc != nil {
		return m.ConsumeFunc(ctx, id, expiresAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.used[id]; ok {
		return false, nil
	}
	m.used[id] = expiresAt
	return true, nil
}

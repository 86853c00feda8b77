// Package challenge records spent one-time tokens in Redis so a token is accepted once across instances.
package challenge

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/you/crmauth/domain"
)

// minTTL keeps a marker alive for tokens that expire as they are consumed
const minTTL = time.Second

// RedisStore implements domain.ChallengeStore with SET NX
type RedisStore struct {
	client redis.Cmdable
	prefix string
	now    func() time.Time
}

// NewRedisStore returns a store keyed under "challenge:"
func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "challenge:",
		now:    time.Now,
	}
}

// Consume stores a marker for id that lives until expiresAt
func (s *RedisStore) Consume(ctx context.Context, id string, expiresAt time.Time) (bool, error) {
	if id == "" {
		return false, domain.ErrTokenMalformed
	}
	ttl := expiresAt.Sub(s.now())
	if ttl < minTTL {
		ttl = minTTL
	}
	fresh, err := s.client.SetNX(ctx, s.prefix+id, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to record challenge: %w", err)
	}
	return fresh, nil
}

var _ domain.ChallengeStore = (*RedisStore)(nil)

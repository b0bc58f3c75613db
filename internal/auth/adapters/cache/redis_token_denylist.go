package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisTokenDenylist stores revoked-token flags keyed by token id with a TTL
// aligned to the token's natural expiry.
type RedisTokenDenylist struct {
	client *redis.Client
}

// NewRedisTokenDenylist creates the token revocation cache adapter.
func NewRedisTokenDenylist(client *redis.Client) *RedisTokenDenylist {
	return &RedisTokenDenylist{client: client}
}

func (s *RedisTokenDenylist) MarkRevoked(ctx context.Context, tokenID uuid.UUID, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		ttl = time.Hour
	}
	return s.client.Set(ctx, "auth:revoked:"+tokenID.String(), "1", ttl).Err()
}

func (s *RedisTokenDenylist) IsRevoked(ctx context.Context, tokenID uuid.UUID) (bool, error) {
	n, err := s.client.Exists(ctx, "auth:revoked:"+tokenID.String()).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

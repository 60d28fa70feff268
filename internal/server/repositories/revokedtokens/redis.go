package revokedtokens

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/redis/go-redis/v9"
)

const defaultRedisKeyPrefix = "authkeeper:revoked:"

// RedisRepository stores one key per revoked token with a TTL equal to the
// token's remaining lifetime at RevokedAt, so Redis evicts entries by itself.
type RedisRepository struct {
	client redis.Cmdable
	prefix string
}

// NewRedisRepository builds a repository over client.
func NewRedisRepository(client redis.Cmdable) *RedisRepository {
	return &RedisRepository{client: client, prefix: defaultRedisKeyPrefix}
}

func (r *RedisRepository) key(tokenID string) string {
	return r.prefix + tokenID
}

// Revoke sets the key only if absent. A token that had already expired at
// entry.RevokedAt is not stored: it can no longer be verified anyway.
func (r *RedisRepository) Revoke(ctx context.Context, entry *models.RevokedToken) error {
	ttl := entry.ExpiresAt.Sub(entry.RevokedAt)
	if ttl <= 0 {
		return nil
	}
	if err := r.client.SetNX(ctx, r.key(entry.TokenID), entry.RevokedAt.Unix(), ttl).Err(); err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}

func (r *RedisRepository) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("redis error: %w", err)
	}
	return n > 0, nil
}

// Prune is a no-op; key TTLs handle eviction.
func (r *RedisRepository) Prune(context.Context, time.Time) (int64, error) {
	return 0, nil
}

// Package rediscache stores short-lived shared state in Redis.
package rediscache

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/mradi/core"
)

const revokedPrefix = "mradi:revoked:"

// TokenBlacklist keeps revoked token IDs as expiring Redis keys.
type TokenBlacklist struct {
	client  redis.UniversalClient
	nowFunc func() time.Time
}

var _ core.TokenBlacklist = (*TokenBlacklist)(nil)

// Open connects to the Redis server of conf and waits for it to answer.
func Open(ctx context.Context, conf core.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Address,
		Password: conf.Password,
		DB:       conf.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return client, nil
}

func NewTokenBlacklist(client redis.UniversalClient) *TokenBlacklist {
	return &TokenBlacklist{client: client, nowFunc: time.Now}
}

func (bl *TokenBlacklist) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(bl.nowFunc())
	if ttl <= 0 {
		return nil // already expired
	}
	err := bl.client.Set(ctx, revokedPrefix+tokenID, "1", ttl).Err()
	return errors.Wrap(err, "revoking token")
}

func (bl *TokenBlacklist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := bl.client.Exists(ctx, revokedPrefix+tokenID).Result()
	if err != nil {
		return false, errors.Wrap(err, "checking revoked token")
	}
	return n > 0, nil
}

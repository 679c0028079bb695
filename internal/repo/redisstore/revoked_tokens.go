package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevokedTokens stores logged-out token ids with a TTL matching the token's remaining life.
type RevokedTokens struct {
	client *redis.Client
	prefix string
}

func NewRevokedTokens(client *redis.Client, prefix string) *RevokedTokens {
	if prefix == "" {
		prefix = "revoked"
	}

	return &RevokedTokens{client: client, prefix: prefix}
}

func (r *RevokedTokens) key(tokenID string) string {
	return fmt.Sprintf("%s:%s", r.prefix, tokenID)
}

func (r *RevokedTokens) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := time.Until(until)

	// token already dead, nothing to remember
	if ttl <= 0 {
		return nil
	}

	return r.client.Set(ctx, r.key(tokenID), 1, ttl).Err()
}

func (r *RevokedTokens) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(tokenID)).Result()

	if err != nil {
		return false, err
	}

	return n > 0, nil
}

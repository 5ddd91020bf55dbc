package revoke

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "revoked:"

// minRetention guards against clock drift between the API node and the token
// issuer: even a token that looks already expired stays in the ledger briefly.
const minRetention = time.Minute

// Redis implements Ledger on a Redis instance, leaning on native key TTLs for
// eviction. Retention is keyed off the token's embedded expiry, so a record
// outlives the token it revokes.
type Redis struct {
	client *redis.Client
	now    func() time.Time
}

var _ Ledger = (*Redis)(nil)

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{
		client: client,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (r *Redis) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	if token == "" {
		return nil
	}
	ttl := expiresAt.Sub(r.now())
	if ttl < minRetention {
		ttl = minRetention
	}
	// SET is idempotent; a second revoke refreshes the TTL at worst.
	return r.client.Set(ctx, redisKeyPrefix+token, "1", ttl).Err()
}

func (r *Redis) IsRevoked(ctx context.Context, token string) (bool, error) {
	n, err := r.client.Exists(ctx, redisKeyPrefix+token).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

package repository

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"mis-dashboard/backend/internal/session/domain"
)

// RedisKeyPrefix prefixes every token key.
const RedisKeyPrefix = "mis:token:"

// RedisRepository stores each token under mis:token:<client id> with the store TTL.
type RedisRepository struct {
	rdb *redis.Client
	ttl time.Duration
}

// OpenRedis returns a client for addr. db selects the logical database.
func OpenRedis(addr, password string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
}

// NewRedisRepository returns a token store over rdb. A ttl of 0 keeps keys forever.
func NewRedisRepository(rdb *redis.Client, ttl time.Duration) *RedisRepository {
	return &RedisRepository{rdb: rdb, ttl: ttl}
}

// Load returns the token for clientID, or nil if not found. Redis expires keys itself.
func (r *RedisRepository) Load(ctx context.Context, clientID string) (*domain.StoredToken, error) {
	key := RedisKeyPrefix + clientID
	token, err := r.rdb.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	t := &domain.StoredToken{ClientID: clientID, Token: token}
	if ttl, err := r.rdb.TTL(ctx, key).Result(); err == nil && ttl > 0 {
		t.ExpiresAt = time.Now().UTC().Add(ttl)
	}
	return t, nil
}

// Save sets the token for clientID with the store TTL.
func (r *RedisRepository) Save(ctx context.Context, clientID, token string) error {
	return r.rdb.Set(ctx, RedisKeyPrefix+clientID, token, r.ttl).Err()
}

// Remove deletes the token for clientID.
func (r *RedisRepository) Remove(ctx context.Context, clientID string) error {
	return r.rdb.Del(ctx, RedisKeyPrefix+clientID).Err()
}

// Ping checks the connection.
func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

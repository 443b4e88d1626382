package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	fieldAccess  = "access"
	fieldRefresh = "refresh"
)

// RedisBackend keeps the pair in a redis hash with access and refresh fields,
// which lets several processes on different hosts share one login.
type RedisBackend struct {
	rdb redis.UniversalClient
	key string
	ttl time.Duration
}

// NewRedisBackend creates a backend storing credentials under key; a positive
// ttl expires the hash after the last write.
func NewRedisBackend(rdb redis.UniversalClient, key string, ttl time.Duration) *RedisBackend {
	return &RedisBackend{rdb: rdb, key: key, ttl: ttl}
}

func (r *RedisBackend) Load(ctx context.Context) (*Credentials, error) {
	hash, err := r.rdb.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, err
	}
	// HGetAll yields an empty map for a missing key
	credentials := &Credentials{Access: hash[fieldAccess], Refresh: hash[fieldRefresh]}
	if credentials.IsEmpty() {
		return nil, nil
	}
	return credentials, nil
}

func (r *RedisBackend) Save(ctx context.Context, credentials *Credentials) error {
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.key)
		pipe.HSet(ctx, r.key, fieldAccess, credentials.Access, fieldRefresh, credentials.Refresh)
		if r.ttl > 0 {
			pipe.Expire(ctx, r.key, r.ttl)
		}
		return nil
	})
	return err
}

func (r *RedisBackend) Delete(ctx context.Context) error {
	return r.rdb.Del(ctx, r.key).Err()
}

package history

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RedisKV adapts a Redis client to the history KV interface.
type RedisKV struct {
	rdb *redis.Client
}

// NewRedisKV creates a Redis-backed KV.
func NewRedisKV(rdb *redis.Client) *RedisKV {
	return &RedisKV{rdb: rdb}
}

func (r *RedisKV) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := r.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return v, nil
}

func (r *RedisKV) Set(ctx context.Context, key string, value []byte) error {
	return r.rdb.Set(ctx, key, value, 0).Err()
}

func (r *RedisKV) Remove(ctx context.Context, key string) error {
	return r.rdb.Del(ctx, key).Err()
}

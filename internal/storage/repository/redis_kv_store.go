package repository

import (
	"context"
	"errors"
	"slices"

	redis "github.com/redis/go-redis/v9"

	apperrors "github.com/ribbonapp/ribbon-core/internal/errors"
)

// RedisKVStore keeps every entry as a field of one Redis hash.
type RedisKVStore struct {
	rdb  redis.UniversalClient
	hash string
}

// NewRedisKVStore creates a store over the hash named hash.
func NewRedisKVStore(rdb redis.UniversalClient, hash string) *RedisKVStore {
	return &RedisKVStore{rdb: rdb, hash: hash}
}

// OpenRedisKVStore connects to addr and verifies the connection with PING.
func OpenRedisKVStore(ctx context.Context, addr, hash string) (*RedisKVStore, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, apperrors.Wrap(err, "failed to connect to redis")
	}
	return NewRedisKVStore(rdb, hash), nil
}

// Get returns the value for key and whether it exists.
func (r *RedisKVStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := r.rdb.HGet(ctx, r.hash, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, apperrors.Wrap(err, "failed to get redis field")
	}
	return v, true, nil
}

// GetMany returns the values of the keys that exist.
func (r *RedisKVStore) GetMany(ctx context.Context, keys []string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	values, err := r.rdb.HMGet(ctx, r.hash, keys...).Result()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to get redis fields")
	}
	for i, v := range values {
		if s, ok := v.(string); ok {
			out[keys[i]] = []byte(s)
		}
	}
	return out, nil
}

// Set stores value under key.
func (r *RedisKVStore) Set(ctx context.Context, key string, value []byte) error {
	if err := r.rdb.HSet(ctx, r.hash, key, value).Err(); err != nil {
		return apperrors.Wrap(err, "failed to set redis field")
	}
	return nil
}

// Delete removes the keys. Missing keys are ignored.
func (r *RedisKVStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := r.rdb.HDel(ctx, r.hash, keys...).Err(); err != nil {
		return apperrors.Wrap(err, "failed to delete redis fields")
	}
	return nil
}

// Keys returns every stored key in lexical order.
func (r *RedisKVStore) Keys(ctx context.Context) ([]string, error) {
	keys, err := r.rdb.HKeys(ctx, r.hash).Result()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list redis fields")
	}
	slices.Sort(keys)
	return keys, nil
}

// Close closes the underlying client.
func (r *RedisKVStore) Close() error {
	return r.rdb.Close()
}

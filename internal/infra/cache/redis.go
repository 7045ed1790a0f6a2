package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisBackend keeps payloads as plain keys and the per-listing index as a
// set at "calendar:idx:{listing}".
type RedisBackend struct {
	client *redis.Client
}

func NewRedisBackend(client *redis.Client) *RedisBackend {
	return &RedisBackend{client: client}
}

// NewRedisClient parses a redis:// URL and verifies the connection.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

func indexKey(listingID string) string {
	return "calendar:idx:" + listingID
}

func (r *RedisBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (r *RedisBackend) Put(ctx context.Context, listingID, key string, value []byte, ttl time.Duration) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, value, ttl)
		pipe.SAdd(ctx, indexKey(listingID), key)
		if ttl > 0 {
			// The index outlives every key it references.
			pipe.Expire(ctx, indexKey(listingID), 2*ttl)
		}
		return nil
	})
	return err
}

func (r *RedisBackend) IndexedKeys(ctx context.Context, listingID string) ([]string, error) {
	return r.client.SMembers(ctx, indexKey(listingID)).Result()
}

func (r *RedisBackend) Evict(ctx context.Context, listingID string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	members := make([]interface{}, 0, len(keys))
	for _, k := range keys {
		members = append(members, k)
	}
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, keys...)
		pipe.SRem(ctx, indexKey(listingID), members...)
		return nil
	})
	return err
}

var _ Backend = (*RedisBackend)(nil)

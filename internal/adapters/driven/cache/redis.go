package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/swedenconnect/eidas-eu-mock-sub026/internal/core/domain"
	"github.com/swedenconnect/eidas-eu-mock-sub026/internal/core/ports"
)

// RedisCache backs the Cache port with a shared Redis instance so that
// multiple nodes can redeem each other's correlation entries. GETDEL
// implements the exactly-once redemption of GetAndRemove; SET NX the
// first-writer-wins semantics of PutIfAbsent. Expiry is delegated to
// Redis key TTLs.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache creates a Redis-backed cache. The prefix namespaces keys
// so that several logical caches can share one instance.
func NewRedisCache(client *redis.Client, prefix string) *RedisCache {
	return &RedisCache{client: client, prefix: prefix}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, domain.CommunicationError("redis get", err)
	}
	return value, true, nil
}

func (c *RedisCache) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.prefix+key, value, ttl).Err(); err != nil {
		return domain.CommunicationError("redis set", err)
	}
	return nil
}

func (c *RedisCache) GetAndRemove(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := c.client.GetDel(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, domain.CommunicationError("redis getdel", err)
	}
	return value, true, nil
}

func (c *RedisCache) PutIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	stored, err := c.client.SetNX(ctx, c.prefix+key, value, ttl).Result()
	if err != nil {
		return false, domain.CommunicationError("redis setnx", err)
	}
	return stored, nil
}

var _ ports.Cache = (*RedisCache)(nil)

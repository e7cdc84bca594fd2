package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"github.com/imkarma/taskboard/internal/board"
)

// DefaultRedisKey holds the cached user list.
const DefaultRedisKey = "taskboard:users"

// RedisCache keeps the user list as a single JSON value with a TTL.
type RedisCache struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisCache creates a cache on client. A zero ttl keeps the value
// until it is overwritten.
func NewRedisCache(client *redis.Client, key string, ttl time.Duration) *RedisCache {
	if key == "" {
		key = DefaultRedisKey
	}
	if ttl < 0 {
		ttl = 0
	}
	return &RedisCache{client: client, key: key, ttl: ttl}
}

// Get loads the list. A corrupt value is evicted and reported as a miss.
func (c *RedisCache) Get(ctx context.Context) ([]board.User, bool, error) {
	data, err := c.client.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", c.key, err)
	}

	var users []board.User
	if err := sonic.Unmarshal(data, &users); err != nil {
		_ = c.client.Del(ctx, c.key).Err()
		return nil, false, fmt.Errorf("decode cached users: %w", err)
	}
	return users, true, nil
}

// Put replaces the cached list.
func (c *RedisCache) Put(ctx context.Context, users []board.User) error {
	data, err := sonic.Marshal(users)
	if err != nil {
		return fmt.Errorf("encode users: %w", err)
	}
	if err := c.client.Set(ctx, c.key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", c.key, err)
	}
	return nil
}

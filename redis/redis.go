package redis

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a thin versioned-key cache over redis. A nil client means redis
// was unreachable at startup and every call degrades to a cache miss.
type Cache struct {
	client *redis.Client
}

func NewCache(address string) *Cache {
	client := redis.NewClient(&redis.Options{
		Addr: address,
	})
	if _, err := client.Ping(context.Background()).Result(); err != nil {
		log.Println("Redis not available. Running without cache.")
		return &Cache{client: nil}
	}

	log.Println("Redis connected successfully.")
	return &Cache{client: client}
}

func (c *Cache) Get(ctx context.Context, key string, dest any) (bool, error) {
	if c.client == nil {
		return false, nil
	}

	raw, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if c.client == nil {
		return nil
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, raw, ttl).Err()
}

// GetVersion returns the current version counter for a key family
func (c *Cache) GetVersion(ctx context.Context, key string) int64 {
	if c.client == nil {
		return 0
	}

	v, err := c.client.Get(ctx, key).Int64()
	if err != nil {
		return 0
	}
	return v
}

// IncrementVersion bumps the version counter, so any new fetch misses old keys
func (c *Cache) IncrementVersion(ctx context.Context, key string) {
	if c.client == nil {
		return
	}

	if err := c.client.Incr(ctx, key).Err(); err != nil {
		log.Printf("Failed to increment cache version %s: %v", key, err)
	}
}

func (c *Cache) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

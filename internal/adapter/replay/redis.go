// Package replay remembers consumed one-time codes in Redis.
package replay

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisGuard implements port.CodeGuard. Codes are stored hashed so a
// Redis dump does not expose live reset codes.
type RedisGuard struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisGuard creates a guard whose claims expire after ttl. ttl should
// cover the provider's code validity window.
func NewRedisGuard(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisGuard {
	if prefix == "" {
		prefix = "cs:reset"
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisGuard{redis: client, prefix: prefix, ttl: ttl}
}

// Open connects to the Redis server at url and checks it responds.
func Open(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (g *RedisGuard) key(code string) string {
	sum := sha256.Sum256([]byte(code))
	return g.prefix + ":" + hex.EncodeToString(sum[:])
}

// Claim atomically marks code as used.
func (g *RedisGuard) Claim(ctx context.Context, code string) (bool, error) {
	ok, err := g.redis.SetNX(ctx, g.key(code), time.Now().Unix(), g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim code: %w", err)
	}
	return ok, nil
}

// Release drops the claim on code.
func (g *RedisGuard) Release(ctx context.Context, code string) error {
	if err := g.redis.Del(ctx, g.key(code)).Err(); err != nil {
		return fmt.Errorf("release code: %w", err)
	}
	return nil
}

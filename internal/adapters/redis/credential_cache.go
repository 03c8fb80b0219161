package redis

// Package redis provides Redis-based adapters for the gateway.

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/target/storefront-gateway/internal/ports"
)

// DefaultKeyPrefix namespaces credential entries.
const DefaultKeyPrefix = "gateway:cred:"

// CredentialCache is a Redis-backed ports.CredentialCache. Entries expire via Redis TTL.
type CredentialCache struct {
	client redis.UniversalClient
	prefix string
}

var _ ports.CredentialCache = (*CredentialCache)(nil)

// NewCredentialCache creates a credential cache with the default key prefix.
func NewCredentialCache(client redis.UniversalClient) *CredentialCache {
	return NewCredentialCacheWithPrefix(client, DefaultKeyPrefix)
}

// NewCredentialCacheWithPrefix creates a credential cache with a custom key prefix.
func NewCredentialCacheWithPrefix(client redis.UniversalClient, prefix string) *CredentialCache {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &CredentialCache{client: client, prefix: prefix}
}

func (c *CredentialCache) Get(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", ports.ErrCacheMiss
	}
	token, err := c.client.Get(ctx, c.prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ports.ErrCacheMiss
		}
		return "", fmt.Errorf("redis get: %w", err)
	}
	return token, nil
}

// Set stores token for ttl. Non-positive TTLs are ignored rather than stored forever.
func (c *CredentialCache) Set(ctx context.Context, key, token string, ttl time.Duration) error {
	if key == "" {
		return errors.New("credential key cannot be empty")
	}
	if ttl <= 0 {
		return nil
	}
	if err := c.client.Set(ctx, c.prefix+key, token, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

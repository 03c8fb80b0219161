package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/storefront-gateway/internal/ports"
	"github.com/target/storefront-gateway/internal/testutil"
)

func TestCredentialCache_SetAndGet(t *testing.T) {
	client, _ := testutil.SetupTestRedis(t)
	cache := NewCredentialCache(client)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "digest-1", "tok-1", time.Minute))

	token, err := cache.Get(ctx, "digest-1")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token)

	raw, err := client.Get(ctx, DefaultKeyPrefix+"digest-1").Result()
	require.NoError(t, err)
	assert.Equal(t, "tok-1", raw)
}

func TestCredentialCache_Miss(t *testing.T) {
	client, _ := testutil.SetupTestRedis(t)
	cache := NewCredentialCache(client)

	_, err := cache.Get(context.Background(), "absent")
	assert.ErrorIs(t, err, ports.ErrCacheMiss)

	_, err = cache.Get(context.Background(), "")
	assert.ErrorIs(t, err, ports.ErrCacheMiss)
}

func TestCredentialCache_Expiry(t *testing.T) {
	client, mr := testutil.SetupTestRedis(t)
	cache := NewCredentialCacheWithPrefix(client, "test:")
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "digest-2", "tok-2", 30*time.Second))
	assert.Equal(t, 30*time.Second, mr.TTL("test:digest-2"))

	mr.FastForward(31 * time.Second)
	_, err := cache.Get(ctx, "digest-2")
	assert.ErrorIs(t, err, ports.ErrCacheMiss)
}

func TestCredentialCache_IgnoresNonPositiveTTL(t *testing.T) {
	client, mr := testutil.SetupTestRedis(t)
	cache := NewCredentialCache(client)

	require.NoError(t, cache.Set(context.Background(), "digest-3", "tok-3", 0))
	assert.False(t, mr.Exists(DefaultKeyPrefix+"digest-3"))
	require.Error(t, cache.Set(context.Background(), "", "tok", time.Minute))
}

func TestCredentialCache_ServerDown(t *testing.T) {
	client, mr := testutil.SetupTestRedis(t)
	cache := NewCredentialCache(client)
	mr.Close()

	_, err := cache.Get(context.Background(), "digest-4")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ports.ErrCacheMiss)
}

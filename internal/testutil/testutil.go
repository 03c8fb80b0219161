package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// SetupTestRedis starts an in-process Redis server and returns a client for it.
// Both are closed when the test finishes.
func SetupTestRedis(t testing.TB) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		if err := client.Close(); err != nil {
			t.Logf("warning: failed to close redis client: %v", err)
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("miniredis not reachable at %s: %v", mr.Addr(), err)
	}
	return client, mr
}

// FixedTimeFunc returns a function that always returns the same time.
func FixedTimeFunc(t time.Time) func() time.Time {
	return func() time.Time {
		return t
	}
}

//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/spherical/pdfconv/internal/cache"
)

// startRedis runs a throwaway Redis and returns its URL.
func startRedis(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx,
		"redis:7.4-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Ready to accept connections").
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate redis container: %v", err)
		}
	})

	url, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	return url
}

func TestRedisChunkCache(t *testing.T) {
	ctx := context.Background()
	url := startRedis(t)

	client, err := cache.NewRedisClient(ctx, cache.RedisConfig{URL: url, Prefix: "pdfconv-test:"})
	require.NoError(t, err)
	defer client.Close()

	key := cache.ChunkKey("groq", "llama-3.3-70b-versatile", "prompt", "structured", []byte("%PDF-1.4"))

	_, err = client.Get(ctx, key)
	assert.ErrorIs(t, err, cache.ErrCacheMiss)

	require.NoError(t, client.Set(ctx, key, []byte("h,v\n1,2"), time.Minute))
	got, err := client.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "h,v\n1,2", string(got))

	require.NoError(t, client.Delete(ctx, key))
	_, err = client.Get(ctx, key)
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
}

func TestRedisUnreachable(t *testing.T) {
	_, err := cache.NewRedisClient(context.Background(), cache.RedisConfig{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}

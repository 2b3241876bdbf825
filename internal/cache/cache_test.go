package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryClient_GetSet(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient(10)

	_, err := c.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "k", []byte("a,b\n1,2"), time.Minute))
	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2", string(got))

	require.NoError(t, c.Delete(ctx, "k"))
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryClient_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMemoryClient(10)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	now = now.Add(2 * time.Minute)

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryClient_EvictsOldest(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient(2)

	require.NoError(t, c.Set(ctx, "short", []byte("1"), time.Minute))
	require.NoError(t, c.Set(ctx, "long", []byte("2"), time.Hour))
	require.NoError(t, c.Set(ctx, "new", []byte("3"), time.Hour))

	_, err := c.Get(ctx, "short")
	assert.ErrorIs(t, err, ErrCacheMiss)
	_, err = c.Get(ctx, "long")
	assert.NoError(t, err)
	_, err = c.Get(ctx, "new")
	assert.NoError(t, err)
}

func TestChunkKey(t *testing.T) {
	base := ChunkKey("groq", "llama", "prompt", "image_url", []byte("%PDF-1"))

	assert.Equal(t, base, ChunkKey("groq", "llama", "prompt", "image_url", []byte("%PDF-1")))
	assert.NotEqual(t, base, ChunkKey("groq", "llama", "prompt", "image_url", []byte("%PDF-2")))
	assert.NotEqual(t, base, ChunkKey("groq", "llama", "other prompt", "image_url", []byte("%PDF-1")))
	assert.NotEqual(t, base, ChunkKey("google", "llama", "prompt", "image_url", []byte("%PDF-1")))
	assert.NotEqual(t, base, ChunkKey("groq", "llama", "prompt", "text", []byte("%PDF-1")))
	assert.Regexp(t, `^chunk:groq:[0-9a-f]{64}$`, base)
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "a:b:c", CacheKey("a", "b", "c"))
}

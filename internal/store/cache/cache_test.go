package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  string   `json:"name"`
	Items []string `json:"items"`
}

func TestMemoryCache_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	require.NoError(t, c.Set(ctx, "k", payload{Name: "openai", Items: []string{"gpt-4"}}, time.Minute))

	var got payload
	require.NoError(t, c.Get(ctx, "k", &got))
	assert.Equal(t, "openai", got.Name)
	assert.Equal(t, []string{"gpt-4"}, got.Items)

	require.NoError(t, c.Delete(ctx, "k"))
	assert.ErrorIs(t, c.Get(ctx, "k", &got), ErrCacheMiss)
}

func TestMemoryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "k", "v", time.Hour))

	now = now.Add(59 * time.Minute)
	var got string
	require.NoError(t, c.Get(ctx, "k", &got))
	assert.Equal(t, "v", got)

	now = now.Add(2 * time.Minute)
	assert.ErrorIs(t, c.Get(ctx, "k", &got), ErrCacheMiss)
}

func TestRedisCache_RoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	c := NewRedisCache(client, "registry:")

	var got payload
	assert.ErrorIs(t, c.Get(ctx, "catalog", &got), ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "catalog", payload{Name: "anthropic"}, time.Hour))
	assert.True(t, mr.Exists("registry:catalog"))

	require.NoError(t, c.Get(ctx, "catalog", &got))
	assert.Equal(t, "anthropic", got.Name)

	mr.FastForward(61 * time.Minute)
	assert.ErrorIs(t, c.Get(ctx, "catalog", &got), ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "catalog", payload{Name: "x"}, time.Hour))
	require.NoError(t, c.Delete(ctx, "catalog"))
	assert.False(t, mr.Exists("registry:catalog"))
}

func TestConnect_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := Connect(context.Background(), addr, "", 0)
	assert.Error(t, err)
}

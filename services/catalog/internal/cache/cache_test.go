package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type filters struct {
	Genres []string `json:"genres"`
}

func exercise(t *testing.T, c Cache, key string) {
	ctx := context.Background()
	var got filters

	hit, err := c.Get(ctx, key, &got)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, c.Set(ctx, key, filters{Genres: []string{"Drama"}}))
	hit, err = c.Get(ctx, key, &got)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, []string{"Drama"}, got.Genres)

	require.NoError(t, c.Delete(ctx, key))
	hit, err = c.Get(ctx, key, &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestMemoryCache(t *testing.T) {
	exercise(t, NewMemoryCache(), "catalog:filters:movie")
}

func TestNoop(t *testing.T) {
	var c Cache = Noop{}
	require.NoError(t, c.Set(context.Background(), "k", 1))
	var v int
	hit, err := c.Get(context.Background(), "k", &v)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestNewRedisCache_BadURL(t *testing.T) {
	_, err := NewRedisCache("not a url", time.Minute)
	assert.Error(t, err)
}

// Requires CATALOG_REDIS_URL pointing at a disposable Redis.
func TestRedisCache(t *testing.T) {
	url := os.Getenv("CATALOG_REDIS_URL")
	if url == "" {
		t.Skip("set CATALOG_REDIS_URL to run")
	}
	c, err := NewRedisCache(url, time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	require.NoError(t, c.Ping(context.Background()))

	exercise(t, c, "catalog:test:"+uuid.NewString())
}

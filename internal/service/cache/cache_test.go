package cache

import (
	"context"
	"testing"
	"time"

	"RiskPulse/internal/domain/repository"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ repository.ViewCache = (*TTLCache)(nil)
	_ repository.ViewCache = (*RedisCache)(nil)
)

func TestTTLCache_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	c := NewTTLCache()
	c.now = func() time.Time { return now }

	require.NoError(t, c.SetBytes(ctx, "k", []byte("v"), time.Second))
	require.NoError(t, c.SetBytes(ctx, "forever", []byte("x"), 0))

	b, ok, err := c.GetBytes(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", string(b))

	now = now.Add(2 * time.Second)
	_, ok, err = c.GetBytes(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len(), "expired entry is evicted on read")

	_, ok, _ = c.GetBytes(ctx, "forever")
	assert.True(t, ok)

	_, ok, _ = c.GetBytes(ctx, "missing")
	assert.False(t, ok)
}

func TestRedisCache_UnreachableServer(t *testing.T) {
	cli := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	rc := NewRedisCacheWithClient(cli, "test:")
	defer rc.Close()

	ctx := context.Background()
	_, ok, err := rc.GetBytes(ctx, "dashboard:view")
	assert.False(t, ok)
	assert.ErrorContains(t, err, "redis get dashboard:view")
	assert.Error(t, rc.SetBytes(ctx, "k", []byte("v"), time.Second))
	assert.Error(t, rc.Ping(ctx))
}

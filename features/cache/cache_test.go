package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/unidatahq/udc/features/cache"
)

func TestLocalTierRoundTrip(t *testing.T) {
	c, err := cache.New("")
	require.NoError(t, err)
	defer c.Close()
	ctx := context.Background()

	key := cache.Key(cache.DataPrefix, map[string]any{"source": "crm", "page": 1})
	_, ok := c.Get(ctx, key)
	require.False(t, ok)

	c.Set(ctx, key, []byte(`{"data":[]}`), time.Minute)
	got, ok := c.Get(ctx, key)
	require.True(t, ok)
	require.JSONEq(t, `{"data":[]}`, string(got))
}

func TestKeyDeterministic(t *testing.T) {
	a := cache.Key(cache.DataPrefix, map[string]any{"source": "crm", "page": 1, "status": "active"})
	b := cache.Key(cache.DataPrefix, map[string]any{"status": "active", "page": 1, "source": "crm"})
	require.Equal(t, a, b)

	c := cache.Key(cache.DataPrefix, map[string]any{"source": "support", "page": 1, "status": "active"})
	require.NotEqual(t, a, c)

	require.NotEqual(t,
		cache.Key(cache.DataPrefix, "q"),
		cache.Key(cache.AssistantPrefix, "q"))
}

func TestInvalidatePrefix(t *testing.T) {
	c, err := cache.New("")
	require.NoError(t, err)
	defer c.Close()
	ctx := context.Background()

	dataKey := cache.Key(cache.DataPrefix, "a")
	assistantKey := cache.Key(cache.AssistantPrefix, "b")
	c.Set(ctx, dataKey, []byte("1"), time.Minute)
	c.Set(ctx, assistantKey, []byte("2"), time.Minute)

	c.InvalidatePrefix(ctx, cache.DataPrefix)

	_, ok := c.Get(ctx, dataKey)
	require.False(t, ok)
	_, ok = c.Get(ctx, assistantKey)
	require.True(t, ok)
}

func TestBadRedisURL(t *testing.T) {
	_, err := cache.New("not-a-url")
	require.Error(t, err)
}

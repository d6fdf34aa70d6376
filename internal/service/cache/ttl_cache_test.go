package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTTLCacheExpiry(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	c := NewTTLCache()
	c.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.SetBytes(ctx, "k", []byte("v"), time.Minute))
	b, ok, err := c.GetBytes(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", string(b))

	now = now.Add(2 * time.Minute)
	_, ok, err = c.GetBytes(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestTTLCacheNoTTL(t *testing.T) {
	c := NewTTLCache()
	ctx := context.Background()
	require.NoError(t, c.SetBytes(ctx, "k", []byte("v"), 0))
	c.now = func() time.Time { return time.Now().Add(24 * time.Hour) }
	_, ok, _ := c.GetBytes(ctx, "k")
	assert.True(t, ok)
}

func TestTTLCacheMiss(t *testing.T) {
	b, ok, err := NewTTLCache().GetBytes(context.Background(), "missing")
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, b)
}

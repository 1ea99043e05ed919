package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCatalog(t *testing.T) (*Catalog, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb, true), mr
}

func TestBuildKeyIsOrderIndependent(t *testing.T) {
	a := BuildKey(PrefixProducts, map[string]string{"page": "1", "category": "3", "search": ""})
	b := BuildKey(PrefixProducts, map[string]string{"category": "3", "page": "1"})
	assert.Equal(t, a, b)
	assert.Equal(t, "catalog:products:category=3&page=1", a)
	assert.Equal(t, PrefixCategories, BuildKey(PrefixCategories, nil))
}

func TestGetOrLoadCachesValue(t *testing.T) {
	c, mr := newTestCatalog(t)
	ctx := context.Background()
	calls := 0
	load := func(context.Context) ([]string, error) {
		calls++
		return []string{"a", "b"}, nil
	}

	got, err := GetOrLoad(ctx, c, "catalog:test", time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)

	got, err = GetOrLoad(ctx, c, "catalog:test", time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)
	assert.Equal(t, 1, calls)
	assert.Equal(t, Stats{Hits: 1, Misses: 1}, c.Stats())

	mr.FastForward(2 * time.Minute)
	_, err = GetOrLoad(ctx, c, "catalog:test", time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "expired entry must reload")
}

func TestGetOrLoadDoesNotCacheErrors(t *testing.T) {
	c, mr := newTestCatalog(t)
	boom := errors.New("boom")
	_, err := GetOrLoad(context.Background(), c, "catalog:err", time.Minute, func(context.Context) (int, error) {
		return 0, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("catalog:err"))
}

func TestGetOrLoadSurvivesRedisOutage(t *testing.T) {
	c, mr := newTestCatalog(t)
	mr.Close()
	got, err := GetOrLoad(context.Background(), c, "catalog:x", time.Minute, func(context.Context) (int, error) {
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, got)
	assert.Error(t, c.Ping(context.Background()))
}

func TestClearPrefix(t *testing.T) {
	c, mr := newTestCatalog(t)
	ctx := context.Background()
	require.NoError(t, mr.Set("catalog:products:page=1", "x"))
	require.NoError(t, mr.Set("catalog:products:page=2", "x"))
	require.NoError(t, mr.Set("catalog:categories", "x"))
	require.NoError(t, mr.Set("session:1", "x"))

	n, err := c.ClearPrefix(ctx, PrefixProducts)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, mr.Exists("catalog:categories"))

	n, err = c.ClearPrefix(ctx, Root)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, mr.Exists("session:1"))
}

func TestDisabledCatalogFallsThrough(t *testing.T) {
	var c *Catalog
	calls := 0
	for i := 0; i < 2; i++ {
		_, err := GetOrLoad(context.Background(), c, "k", time.Minute, func(context.Context) (int, error) {
			calls++
			return 1, nil
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, calls)
	assert.NoError(t, c.Ping(context.Background()))

	n, err := New(nil, true).ClearPrefix(context.Background(), Root)
	require.NoError(t, err)
	assert.Zero(t, n)
}

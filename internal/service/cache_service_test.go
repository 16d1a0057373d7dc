package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheServiceDisabledIsNoop(t *testing.T) {
	repo := newMockCacheRepo()
	svc := NewCacheService(repo, nil, time.Minute, nil, false)
	ctx := context.Background()

	require.NoError(t, svc.Set(ctx, "k", "v", 0))
	var dest string
	hit, err := svc.Get(ctx, "k", &dest)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Empty(t, repo.items)
}

func TestCacheServiceRoundTripAndMetrics(t *testing.T) {
	repo := newMockCacheRepo()
	metrics := NewMetricsService()
	svc := NewCacheService(repo, metrics, time.Minute, nil, true)
	ctx := context.Background()

	var dest map[string]int
	hit, err := svc.Get(ctx, "report:x", &dest)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, svc.Set(ctx, "report:x", map[string]int{"a": 1}, 0))
	hit, err = svc.Get(ctx, "report:x", &dest)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, dest["a"])

	require.NoError(t, svc.Delete(ctx, "report:x"))
	hit, _ = svc.Get(ctx, "report:x", &dest)
	assert.False(t, hit)

	snap := metrics.Snapshot()
	assert.EqualValues(t, 1, snap.CacheHits)
	assert.EqualValues(t, 2, snap.CacheMisses)
}

func TestCacheServiceNilReceiver(t *testing.T) {
	var svc *CacheService
	assert.False(t, svc.Enabled())
	hit, err := svc.Get(context.Background(), "k", nil)
	assert.NoError(t, err)
	assert.False(t, hit)
	assert.NoError(t, svc.Invalidate(context.Background(), "*"))
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "outcome:CO1", CacheKey("outcome", "CO1"))
}

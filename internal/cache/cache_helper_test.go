package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RISHIK92/adventa-backend/internal/models"
)

type cachedValue struct {
	Value float64 `json:"value"`
}

func TestTypedCache_GetOrLoad(t *testing.T) {
	mr, client := newTestRedis(t)
	averages := NewTypedCache[models.CommunityAverage](client, "community:")
	ctx := context.Background()

	calls := 0
	load := func(context.Context) (models.CommunityAverage, error) {
		calls++
		return models.CommunityAverage{Level: models.LevelTopic, EntityID: 3, AverageAccuracy: 62.5}, nil
	}

	first, err := averages.GetOrLoad(ctx, "topic:3", time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, 62.5, first.AverageAccuracy)

	require.Eventually(t, func() bool {
		return mr.Exists("community:topic:3")
	}, time.Second, 10*time.Millisecond)

	second, err := averages.GetOrLoad(ctx, "topic:3", time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, first.AverageAccuracy, second.AverageAccuracy)
	assert.Equal(t, uint(3), second.EntityID)
	assert.Equal(t, 1, calls)
}

func TestTypedCache_LoadErrorIsNotCached(t *testing.T) {
	mr, client := newTestRedis(t)
	values := NewTypedCache[cachedValue](client, "community:")

	sentinel := errors.New("boom")
	_, err := values.GetOrLoad(context.Background(), "k", time.Minute, func(context.Context) (cachedValue, error) {
		return cachedValue{}, sentinel
	})
	assert.ErrorIs(t, err, sentinel)
	assert.False(t, mr.Exists("community:k"))
}

func TestTypedCache_CorruptEntryFallsBackToLoad(t *testing.T) {
	mr, client := newTestRedis(t)
	values := NewTypedCache[cachedValue](client, "community:")
	require.NoError(t, mr.Set("community:k", "{not json"))

	got, err := values.GetOrLoad(context.Background(), "k", time.Minute, func(context.Context) (cachedValue, error) {
		return cachedValue{Value: 7}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7.0, got.Value)
}

func TestCacheManager_InvalidateUserPerformance(t *testing.T) {
	mr, client := newTestRedis(t)
	cm := NewCacheManager(client)
	ctx := context.Background()

	list := models.PerformanceListResponse{Level: models.LevelTopic}
	require.NoError(t, cm.Performance.Set(ctx, UserPerformanceKey("u1", "topic"), list, time.Minute))
	require.NoError(t, cm.Performance.Set(ctx, UserPerformanceKey("u1", "subject"), list, time.Minute))
	require.NoError(t, cm.Performance.Set(ctx, UserPerformanceKey("u2", "topic"), list, time.Minute))

	InvalidateUserPerformance(ctx, cm, "u1")

	assert.False(t, mr.Exists("performance:user:u1:topic"))
	assert.False(t, mr.Exists("performance:user:u1:subject"))
	assert.True(t, mr.Exists("performance:user:u2:topic"))
}

func TestCacheManager_InvalidateCommunityAverage(t *testing.T) {
	mr, client := newTestRedis(t)
	cm := NewCacheManager(client)
	ctx := context.Background()

	require.NoError(t, cm.Community.Set(ctx, CommunityKey("subtopic", 9), models.CommunityAverage{UserCount: 2}, time.Minute))
	InvalidateCommunityAverage(ctx, cm, "subtopic", 9)

	assert.False(t, mr.Exists("community:subtopic:9"))
}

func TestCacheManager_NilClientDegrades(t *testing.T) {
	cm := NewCacheManager(nil)
	ctx := context.Background()

	_, err := cm.Community.Get(ctx, "x")
	assert.ErrorIs(t, err, ErrCacheNotAvailable)
	assert.NoError(t, cm.Community.Set(ctx, "x", models.CommunityAverage{}, time.Minute))
	assert.NoError(t, cm.Performance.InvalidatePattern(ctx, "user:*"))
	assert.ErrorIs(t, cm.HealthCheck(ctx), ErrCacheNotAvailable)

	got, err := cm.Community.GetOrLoad(ctx, "x", time.Minute, func(context.Context) (models.CommunityAverage, error) {
		return models.CommunityAverage{AverageAccuracy: 1}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1.0, got.AverageAccuracy)
}

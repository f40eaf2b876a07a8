package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RISHIK92/adventa-backend/internal/models"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func strPtr(s string) *string { return &s }

func TestRedisProgressBuffer_RecordAndDrain(t *testing.T) {
	mr, client := newTestRedis(t)
	buffer := NewRedisProgressBuffer(client, time.Hour)
	ctx := context.Background()

	require.NoError(t, buffer.Record(ctx, 7, 11, models.BufferedAnswer{Answer: strPtr("B"), TimeTakenSec: 30}))
	require.NoError(t, buffer.Record(ctx, 7, 12, models.BufferedAnswer{TimeTakenSec: 5, MarkedForReview: true}))
	// Last write wins for the same question.
	require.NoError(t, buffer.Record(ctx, 7, 11, models.BufferedAnswer{Answer: strPtr("C"), TimeTakenSec: 40}))

	total, err := buffer.AccumulateElapsed(ctx, 7, 60)
	require.NoError(t, err)
	assert.Equal(t, 60, total)
	total, err = buffer.AccumulateElapsed(ctx, 7, 15)
	require.NoError(t, err)
	assert.Equal(t, 75, total)

	snapshot, err := buffer.Drain(ctx, 7)
	require.NoError(t, err)
	assert.True(t, snapshot.HasAnswers())
	assert.Equal(t, 75, snapshot.ElapsedSec)
	require.Len(t, snapshot.Answers, 2)
	assert.Equal(t, "C", *snapshot.Answers[11].Answer)
	assert.Equal(t, 40, snapshot.Answers[11].TimeTakenSec)
	assert.Nil(t, snapshot.Answers[12].Answer)
	assert.True(t, snapshot.Answers[12].MarkedForReview)
	assert.Empty(t, snapshot.Malformed)

	// Drain does not remove anything.
	assert.True(t, mr.Exists("progress:attempt:7"))
	assert.Greater(t, mr.TTL("progress:attempt:7"), time.Duration(0))
}

func TestRedisProgressBuffer_ElapsedOnlyIsEmpty(t *testing.T) {
	_, client := newTestRedis(t)
	buffer := NewRedisProgressBuffer(client, 0)
	ctx := context.Background()

	_, err := buffer.AccumulateElapsed(ctx, 3, 20)
	require.NoError(t, err)

	snapshot, err := buffer.Drain(ctx, 3)
	require.NoError(t, err)
	assert.False(t, snapshot.HasAnswers())
	assert.Equal(t, 20, snapshot.ElapsedSec)
}

func TestRedisProgressBuffer_DrainMissingAttempt(t *testing.T) {
	_, client := newTestRedis(t)
	buffer := NewRedisProgressBuffer(client, time.Hour)

	snapshot, err := buffer.Drain(context.Background(), 99)
	require.NoError(t, err)
	assert.False(t, snapshot.HasAnswers())
	assert.Zero(t, snapshot.ElapsedSec)
}

func TestRedisProgressBuffer_SkipsMalformedFields(t *testing.T) {
	mr, client := newTestRedis(t)
	buffer := NewRedisProgressBuffer(client, time.Hour)
	ctx := context.Background()

	require.NoError(t, buffer.Record(ctx, 5, 1, models.BufferedAnswer{Answer: strPtr("A")}))
	mr.HSet("progress:attempt:5", "2", "{not json")
	mr.HSet("progress:attempt:5", "abc", `{"answer":"B"}`)

	snapshot, err := buffer.Drain(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, snapshot.Answers, 1)
	assert.ElementsMatch(t, []string{"2", "abc"}, snapshot.Malformed)
}

func TestRedisProgressBuffer_ClearIsIdempotent(t *testing.T) {
	mr, client := newTestRedis(t)
	buffer := NewRedisProgressBuffer(client, time.Hour)
	ctx := context.Background()

	require.NoError(t, buffer.Record(ctx, 8, 1, models.BufferedAnswer{Answer: strPtr("A")}))
	require.NoError(t, buffer.Clear(ctx, 8))
	assert.False(t, mr.Exists("progress:attempt:8"))
	require.NoError(t, buffer.Clear(ctx, 8))
}

func TestRedisProgressBuffer_ExpiresWhenAbandoned(t *testing.T) {
	mr, client := newTestRedis(t)
	buffer := NewRedisProgressBuffer(client, time.Minute)
	ctx := context.Background()

	require.NoError(t, buffer.Record(ctx, 4, 1, models.BufferedAnswer{Answer: strPtr("A")}))
	mr.FastForward(2 * time.Minute)

	snapshot, err := buffer.Drain(ctx, 4)
	require.NoError(t, err)
	assert.False(t, snapshot.HasAnswers())
}

func TestRedisProgressBuffer_NoClient(t *testing.T) {
	buffer := NewRedisProgressBuffer(nil, time.Hour)
	ctx := context.Background()

	assert.ErrorIs(t, buffer.Record(ctx, 1, 1, models.BufferedAnswer{}), ErrCacheNotAvailable)
	_, err := buffer.Drain(ctx, 1)
	assert.ErrorIs(t, err, ErrCacheNotAvailable)
}

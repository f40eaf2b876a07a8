package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RISHIK92/adventa-backend/internal/models"
	"github.com/RISHIK92/adventa-backend/internal/repositories"
)

func TestPerformance_ApplyDeltaRejectsUnknownDifficulty(t *testing.T) {
	repo := NewStore().Repository()
	ctx := context.Background()
	delta := models.PerformanceDelta{Attempted: 1, Correct: 1}

	for _, difficulty := range []models.DifficultyLevel{"", "easy", "Extreme"} {
		key := models.LevelKey{Level: models.LevelTopicDifficulty, EntityID: 10, Difficulty: difficulty}
		assert.Error(t, repo.Performance().ApplyDelta(ctx, "u1", key, delta), "difficulty %q", difficulty)

		_, err := repo.Performance().Get(ctx, "u1", key)
		assert.ErrorIs(t, err, repositories.ErrNotFound)
	}

	key := models.LevelKey{Level: models.LevelTopicDifficulty, EntityID: 10, Difficulty: models.DifficultyMedium}
	require.NoError(t, repo.Performance().ApplyDelta(ctx, "u1", key, delta))
}

func TestWithTransaction_CancelledContextRollsBack(t *testing.T) {
	repo := NewStore().Repository()
	key := models.LevelKey{Level: models.LevelTopic, EntityID: 10}
	ctx, cancel := context.WithCancel(context.Background())

	err := repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if err := tx.Performance().ApplyDelta(ctx, "u1", key, models.PerformanceDelta{Attempted: 2, Correct: 1}); err != nil {
			return err
		}
		cancel()
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)

	_, err = repo.Performance().Get(context.Background(), "u1", key)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestWithTransaction_CancelledBeforeStartSkipsFn(t *testing.T) {
	repo := NewStore().Repository()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran := false
	err := repo.WithTransaction(ctx, func(repositories.Repository) error {
		ran = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ran)
}

func TestWithTransaction_ErrorRestoresSnapshot(t *testing.T) {
	repo := NewStore().Repository()
	ctx := context.Background()
	key := models.LevelKey{Level: models.LevelSubject, EntityID: 1}

	require.NoError(t, repo.Performance().ApplyDelta(ctx, "u1", key, models.PerformanceDelta{Attempted: 1, Correct: 1}))

	err := repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if err := tx.Performance().ApplyDelta(ctx, "u1", key, models.PerformanceDelta{Attempted: 3}); err != nil {
			return err
		}
		return tx.Performance().ApplyDelta(ctx, "u1", models.LevelKey{Level: models.LevelTopicDifficulty, EntityID: 10}, models.PerformanceDelta{Attempted: 1})
	})
	assert.Error(t, err)

	record, err := repo.Performance().Get(ctx, "u1", key)
	require.NoError(t, err)
	assert.Equal(t, 1, record.TotalAttempted)
}

package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/RISHIK92/adventa-backend/internal/cache"
	"github.com/RISHIK92/adventa-backend/internal/events"
	"github.com/RISHIK92/adventa-backend/internal/models"
	"github.com/RISHIK92/adventa-backend/internal/repositories"
	"github.com/RISHIK92/adventa-backend/internal/repositories/memory"
	"github.com/RISHIK92/adventa-backend/internal/validator"
	"github.com/RISHIK92/adventa-backend/internal/worker"
)

const (
	physics     uint = 1
	kinematics  uint = 10
	dynamics    uint = 11
	projectiles uint = 100
	friction    uint = 110
)

type fixture struct {
	store     *memory.Store
	repo      repositories.Repository
	mr        *miniredis.Miniredis
	buffer    *cache.RedisProgressBuffer
	cache     *cache.CacheManager
	publisher *events.MockEventPublisher
	pool      *worker.Pool
	refresher StatsRefresher
	svc       SubmissionService
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewStore()
	store.SeedHierarchy(physics, kinematics, projectiles)
	store.SeedHierarchy(physics, dynamics, friction)
	store.SeedQuestion(models.Question{ID: 1001, CorrectOption: "A", Difficulty: models.DifficultyEasy, SubtopicID: projectiles})
	store.SeedQuestion(models.Question{ID: 1002, CorrectOption: "B", Difficulty: models.DifficultyMedium, SubtopicID: projectiles})
	store.SeedQuestion(models.Question{ID: 1003, CorrectOption: "C", Difficulty: models.DifficultyHard, SubtopicID: friction})

	f := newFixtureOver(t, store.Repository())
	f.store = store
	return f
}

// newFixtureOver wires the services over any repository implementation.
func newFixtureOver(t *testing.T, repo repositories.Repository) *fixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	logger := quietLogger()
	publisher := events.NewMockEventPublisher(logger)
	cacheManager := cache.NewCacheManager(client)
	pool := worker.NewPool(worker.Config{Workers: 2, QueueSize: 32, JobTimeout: 5 * time.Second}, logger, nil)
	t.Cleanup(func() { pool.Shutdown(context.Background()) })

	refresher := NewStatsRefresher(repo, pool, cacheManager, publisher, nil, logger)
	buffer := cache.NewRedisProgressBuffer(client, time.Hour)

	svc := NewSubmissionService(SubmissionDeps{
		Repo:       repo,
		Buffer:     buffer,
		Refresher:  refresher,
		Background: pool,
		Publisher:  publisher,
		Cache:      cacheManager,
		Logger:     logger,
		Validator:  validator.New(),
	})

	return &fixture{
		repo:      repo,
		mr:        mr,
		buffer:    buffer,
		cache:     cacheManager,
		publisher: publisher,
		pool:      pool,
		refresher: refresher,
		svc:       svc,
	}
}

// drain waits for every queued background job.
func (f *fixture) drain(t *testing.T) {
	t.Helper()
	require.NoError(t, f.pool.Shutdown(context.Background()))
}

func (f *fixture) startPYQ(t *testing.T, userID string, questionIDs ...uint) uint {
	t.Helper()
	attempt, err := f.svc.StartAttempt(context.Background(), userID, &models.StartAttemptRequest{
		Kind:        models.KindPreviousYear,
		QuestionIDs: questionIDs,
	})
	require.NoError(t, err)
	return attempt.ID
}

func (f *fixture) answer(t *testing.T, attemptID uint, userID string, questionID uint, answer *string, timeTaken int) {
	t.Helper()
	require.NoError(t, f.svc.RecordAnswer(context.Background(), attemptID, userID, &models.RecordAnswerRequest{
		QuestionID:   questionID,
		Answer:       answer,
		TimeTakenSec: timeTaken,
	}))
}

func (f *fixture) performance(t *testing.T, userID string, key models.LevelKey) *models.PerformanceRecord {
	t.Helper()
	record, err := f.repo.Performance().Get(context.Background(), userID, key)
	require.NoError(t, err)
	return record
}

package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/RISHIK92/adventa-backend/internal/models"
)

const (
	progressKeyPrefix = "progress:attempt:"
	// elapsedField cannot collide with a question id field.
	elapsedField = "__total_time__"

	DefaultProgressTTL = 24 * time.Hour
)

// ProgressSnapshot is everything buffered for one attempt at drain time.
type ProgressSnapshot struct {
	Answers    map[uint]models.BufferedAnswer
	ElapsedSec int
	// Malformed holds raw field names that could not be decoded.
	Malformed []string
}

// HasAnswers reports whether at least one question entry was buffered.
func (s *ProgressSnapshot) HasAnswers() bool {
	return s != nil && len(s.Answers) > 0
}

// RedisProgressBuffer keeps in-flight answers in one redis hash per attempt.
// Every write refreshes the TTL so abandoned attempts expire on their own.
type RedisProgressBuffer struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisProgressBuffer(client *redis.Client, ttl time.Duration) *RedisProgressBuffer {
	if ttl <= 0 {
		ttl = DefaultProgressTTL
	}
	return &RedisProgressBuffer{client: client, ttl: ttl}
}

func progressKey(attemptID uint) string {
	return progressKeyPrefix + strconv.FormatUint(uint64(attemptID), 10)
}

// Record overwrites the entry for one question.
func (b *RedisProgressBuffer) Record(ctx context.Context, attemptID, questionID uint, entry models.BufferedAnswer) error {
	if b.client == nil {
		return ErrCacheNotAvailable
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode buffered answer: %w", err)
	}

	key := progressKey(attemptID)
	_, err = b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, strconv.FormatUint(uint64(questionID), 10), data)
		pipe.Expire(ctx, key, b.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to record answer in progress buffer: %w", err)
	}
	return nil
}

// AccumulateElapsed adds to the attempt's running time and returns the total.
func (b *RedisProgressBuffer) AccumulateElapsed(ctx context.Context, attemptID uint, deltaSec int) (int, error) {
	if b.client == nil {
		return 0, ErrCacheNotAvailable
	}

	key := progressKey(attemptID)
	var incr *redis.IntCmd
	_, err := b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.HIncrBy(ctx, key, elapsedField, int64(deltaSec))
		pipe.Expire(ctx, key, b.ttl)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to accumulate elapsed time: %w", err)
	}
	return int(incr.Val()), nil
}

// Drain reads the whole hash without removing it. The entry is only cleared
// after the durable commit succeeds.
func (b *RedisProgressBuffer) Drain(ctx context.Context, attemptID uint) (*ProgressSnapshot, error) {
	if b.client == nil {
		return nil, ErrCacheNotAvailable
	}

	fields, err := b.client.HGetAll(ctx, progressKey(attemptID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to drain progress buffer: %w", err)
	}

	snapshot := &ProgressSnapshot{Answers: make(map[uint]models.BufferedAnswer, len(fields))}
	for field, raw := range fields {
		if field == elapsedField {
			elapsed, err := strconv.Atoi(raw)
			if err != nil || elapsed < 0 {
				snapshot.Malformed = append(snapshot.Malformed, field)
				continue
			}
			snapshot.ElapsedSec = elapsed
			continue
		}

		questionID, err := strconv.ParseUint(field, 10, 64)
		if err != nil || questionID == 0 {
			snapshot.Malformed = append(snapshot.Malformed, field)
			continue
		}

		var entry models.BufferedAnswer
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			snapshot.Malformed = append(snapshot.Malformed, field)
			continue
		}
		snapshot.Answers[uint(questionID)] = entry
	}

	return snapshot, nil
}

// Clear removes the attempt's buffer. Clearing a missing key is not an error.
func (b *RedisProgressBuffer) Clear(ctx context.Context, attemptID uint) error {
	if b.client == nil {
		return ErrCacheNotAvailable
	}
	if err := b.client.Del(ctx, progressKey(attemptID)).Err(); err != nil {
		return fmt.Errorf("failed to clear progress buffer: %w", err)
	}
	return nil
}

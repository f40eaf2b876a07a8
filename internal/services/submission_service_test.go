package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RISHIK92/adventa-backend/internal/events"
	"github.com/RISHIK92/adventa-backend/internal/models"
)

func TestSubmit_ThreeQuestionScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	attemptID := f.startPYQ(t, "u1", 1001, 1002, 1003)

	f.answer(t, attemptID, "u1", 1001, strPtr("A"), 30)
	f.answer(t, attemptID, "u1", 1002, strPtr("c"), 50)
	f.answer(t, attemptID, "u1", 1003, nil, 10)

	summary, err := f.svc.Submit(ctx, attemptID, "u1")
	require.NoError(t, err)

	assert.Equal(t, 1, summary.CorrectCount)
	assert.Equal(t, 1, summary.IncorrectCount)
	assert.Equal(t, 1, summary.UnattemptedCount)
	assert.Equal(t, 3.0, summary.Score)
	assert.Equal(t, 12.0, summary.TotalMarks)
	assert.Equal(t, 50.0, summary.AccuracyPercent)
	assert.Equal(t, 90, summary.TimeTakenSec)

	attempt, err := f.svc.GetAttempt(ctx, attemptID, "u1")
	require.NoError(t, err)
	require.NotNil(t, attempt.CompletedAt)
	assert.Equal(t, 3, f.store.AnswerCount(attemptID))
	assert.False(t, f.mr.Exists("progress:attempt:1"))

	topic := f.performance(t, "u1", models.LevelKey{Level: models.LevelTopic, EntityID: kinematics})
	assert.Equal(t, 2, topic.TotalAttempted)
	assert.Equal(t, 1, topic.TotalCorrect)
	assert.Equal(t, 80, topic.TotalTimeTakenSec)

	subject := f.performance(t, "u1", models.LevelKey{Level: models.LevelSubject, EntityID: physics})
	assert.Equal(t, topic.PerformanceStats, subject.PerformanceStats)

	easy := f.performance(t, "u1", models.LevelKey{Level: models.LevelTopicDifficulty, EntityID: kinematics, Difficulty: models.DifficultyEasy})
	assert.Equal(t, 1, easy.TotalCorrect)

	// The unattempted question's subtopic and topic never get a record.
	_, err = f.repo.Performance().Get(ctx, "u1", models.LevelKey{Level: models.LevelSubtopic, EntityID: friction})
	assert.Error(t, err)
	_, err = f.repo.Performance().Get(ctx, "u1", models.LevelKey{Level: models.LevelTopic, EntityID: dynamics})
	assert.Error(t, err)

	f.drain(t)

	graded := f.publisher.EventsOfType(events.EventAttemptGraded)
	require.Len(t, graded, 1)
	refreshed := f.publisher.EventsOfType(events.EventCommunityStatsRefreshed)
	assert.Len(t, refreshed, 3)

	avg, err := f.repo.CommunityAverage().Get(ctx, models.LevelTopic, kinematics)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, avg.AverageAccuracy, 0.001)
	assert.Equal(t, 1, avg.UserCount)
}

func TestSubmit_SecondSubmissionIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	attemptID := f.startPYQ(t, "u1", 1001, 1002)
	f.answer(t, attemptID, "u1", 1001, strPtr("A"), 10)

	_, err := f.svc.Submit(ctx, attemptID, "u1")
	require.NoError(t, err)

	before := f.performance(t, "u1", models.LevelKey{Level: models.LevelTopic, EntityID: kinematics})

	// A stale buffer entry written around the first submission is discarded.
	require.NoError(t, f.buffer.Record(ctx, attemptID, 1002, models.BufferedAnswer{Answer: strPtr("B")}))

	_, err = f.svc.Submit(ctx, attemptID, "u1")
	assert.ErrorIs(t, err, ErrAttemptAlreadySubmitted)
	assert.True(t, IsConflict(err))
	assert.False(t, f.mr.Exists("progress:attempt:1"))

	after := f.performance(t, "u1", models.LevelKey{Level: models.LevelTopic, EntityID: kinematics})
	assert.Equal(t, before.PerformanceStats, after.PerformanceStats)
	assert.Equal(t, 2, f.store.AnswerCount(attemptID))
}

func TestSubmit_ConcurrentSubmissionsApplyOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	attemptID := f.startPYQ(t, "u1", 1001, 1002, 1003)
	f.answer(t, attemptID, "u1", 1001, strPtr("A"), 10)
	f.answer(t, attemptID, "u1", 1002, strPtr("B"), 10)
	f.answer(t, attemptID, "u1", 1003, strPtr("A"), 10)

	const callers = 8
	var wg sync.WaitGroup
	results := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Submit(ctx, attemptID, "u1")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrAttemptAlreadySubmitted)
	}
	assert.Equal(t, 1, succeeded)

	subject := f.performance(t, "u1", models.LevelKey{Level: models.LevelSubject, EntityID: physics})
	assert.Equal(t, 3, subject.TotalAttempted)
	assert.Equal(t, 2, subject.TotalCorrect)
	assert.Equal(t, 3, f.store.AnswerCount(attemptID))
}

func TestSubmit_EmptyBuffer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	attemptID := f.startPYQ(t, "u1", 1001)

	_, err := f.svc.Submit(ctx, attemptID, "u1")
	assert.ErrorIs(t, err, ErrEmptySubmission)

	// Elapsed time alone is still nothing to submit.
	_, err = f.svc.AccumulateElapsed(ctx, attemptID, "u1", &models.AccumulateElapsedRequest{DeltaSeconds: 40})
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, attemptID, "u1")
	assert.ErrorIs(t, err, ErrEmptySubmission)

	attempt, err := f.svc.GetAttempt(ctx, attemptID, "u1")
	require.NoError(t, err)
	assert.Nil(t, attempt.CompletedAt)
	assert.Zero(t, f.store.AnswerCount(attemptID))
}

func TestSubmit_OnlyForeignAnswersIsEmpty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	attemptID := f.startPYQ(t, "u1", 1001)

	f.answer(t, attemptID, "u1", 1003, strPtr("C"), 10)

	_, err := f.svc.Submit(ctx, attemptID, "u1")
	assert.ErrorIs(t, err, ErrEmptySubmission)
}

func TestSubmit_TransactionFailureKeepsBuffer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	attemptID := f.startPYQ(t, "u1", 1001, 1002)
	f.answer(t, attemptID, "u1", 1001, strPtr("A"), 10)

	diskFull := errors.New("disk full")
	f.store.FailApplyDelta = diskFull

	_, err := f.svc.Submit(ctx, attemptID, "u1")
	require.Error(t, err)
	assert.True(t, IsTransactionFailure(err))
	assert.ErrorIs(t, err, diskFull)

	attempt, err := f.svc.GetAttempt(ctx, attemptID, "u1")
	require.NoError(t, err)
	assert.Nil(t, attempt.CompletedAt)
	assert.Zero(t, f.store.AnswerCount(attemptID))
	assert.True(t, f.mr.Exists("progress:attempt:1"))

	f.store.FailApplyDelta = nil
	summary, err := f.svc.Submit(ctx, attemptID, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.CorrectCount)
	assert.Equal(t, 1, summary.UnattemptedCount)
}

func TestSubmit_SkipsForeignAndMissingQuestions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	instance := &models.AssessmentInstance{
		UserID:        "u1",
		Kind:          models.KindDrill,
		QuestionIDs:   []uint{1001, 4040},
		ScoringPolicy: models.DefaultScoringPolicy(models.KindDrill),
	}
	require.NoError(t, f.repo.Assessment().Create(ctx, instance))

	require.NoError(t, f.buffer.Record(ctx, instance.ID, 1001, models.BufferedAnswer{Answer: strPtr(" a "), TimeTakenSec: 12}))
	require.NoError(t, f.buffer.Record(ctx, instance.ID, 4040, models.BufferedAnswer{Answer: strPtr("B")}))
	require.NoError(t, f.buffer.Record(ctx, instance.ID, 1003, models.BufferedAnswer{Answer: strPtr("C")}))
	f.mr.HSet("progress:attempt:1", "garbage", "{")

	summary, err := f.svc.Submit(ctx, instance.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.CorrectCount)
	assert.Equal(t, 0, summary.IncorrectCount)
	assert.Equal(t, 0, summary.UnattemptedCount)
	assert.Equal(t, 1.0, summary.Score)
	assert.Equal(t, 12, summary.TimeTakenSec)

	answers, err := f.repo.Answer().GetByAttempt(ctx, instance.ID)
	require.NoError(t, err)
	require.Len(t, answers, 1)
	assert.Equal(t, "a", *answers[0].SubmittedAnswer)
}

func TestSubmit_UsesPerQuestionMarksAndElapsed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	attempt, err := f.svc.StartAttempt(ctx, "u1", &models.StartAttemptRequest{
		Kind:          models.KindQuiz,
		QuestionIDs:   []uint{1001, 1002, 1003},
		QuestionMarks: map[uint]float64{1001: 5},
		ScoringPolicy: &models.ScoringPolicy{MarksPerCorrect: 2, NegativeMarksPerIncorrect: 0.5},
	})
	require.NoError(t, err)
	assert.Equal(t, 9.0, attempt.TotalMarks)

	f.answer(t, attempt.ID, "u1", 1001, strPtr("A"), 10)
	f.answer(t, attempt.ID, "u1", 1002, strPtr("B"), 10)
	f.answer(t, attempt.ID, "u1", 1003, strPtr("A"), 10)
	_, err = f.svc.AccumulateElapsed(ctx, attempt.ID, "u1", &models.AccumulateElapsedRequest{DeltaSeconds: 120})
	require.NoError(t, err)

	summary, err := f.svc.Submit(ctx, attempt.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, 6.5, summary.Score)
	assert.Equal(t, 120, summary.TimeTakenSec)
	assert.InDelta(t, 66.67, summary.AccuracyPercent, 0.001)
}

func TestSubmit_WeightedAverageAcrossAttempts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ids := make([]uint, 10)
	for i := range ids {
		ids[i] = uint(2001 + i)
		f.store.SeedQuestion(models.Question{ID: ids[i], CorrectOption: "A", Difficulty: models.DifficultyEasy, SubtopicID: projectiles})
	}

	first := f.startPYQ(t, "u1", ids[:4]...)
	for i, id := range ids[:4] {
		answer := "A"
		if i >= 2 {
			answer = "B"
		}
		f.answer(t, first, "u1", id, &answer, 25)
	}
	_, err := f.svc.Submit(ctx, first, "u1")
	require.NoError(t, err)

	second := f.startPYQ(t, "u1", ids[4:]...)
	for i, id := range ids[4:] {
		answer := "A"
		if i >= 5 {
			answer = "B"
		}
		f.answer(t, second, "u1", id, &answer, 25)
	}
	_, err = f.svc.Submit(ctx, second, "u1")
	require.NoError(t, err)

	topic := f.performance(t, "u1", models.LevelKey{Level: models.LevelTopic, EntityID: kinematics})
	assert.Equal(t, 10, topic.TotalAttempted)
	assert.Equal(t, 7, topic.TotalCorrect)
	assert.Equal(t, 250, topic.TotalTimeTakenSec)
	assert.InDelta(t, 70.0, topic.AccuracyPercent, 0.001)
	assert.InDelta(t, 25.0, topic.AvgTimePerQuestionSec, 0.001)
}

func TestSubmit_AttemptOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	attemptID := f.startPYQ(t, "u1", 1001)
	f.answer(t, attemptID, "u1", 1001, strPtr("A"), 10)

	_, err := f.svc.Submit(ctx, attemptID, "intruder")
	assert.ErrorIs(t, err, ErrAttemptNotFound)

	err = f.svc.RecordAnswer(ctx, attemptID, "intruder", &models.RecordAnswerRequest{QuestionID: 1001, Answer: strPtr("B")})
	assert.ErrorIs(t, err, ErrAttemptNotFound)

	_, err = f.svc.Submit(ctx, 999, "u1")
	assert.True(t, IsNotFound(err))
}

func TestRecordAnswer_RejectsCompletedAndInvalid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	attemptID := f.startPYQ(t, "u1", 1001)

	err := f.svc.RecordAnswer(ctx, attemptID, "u1", &models.RecordAnswerRequest{QuestionID: 0})
	assert.True(t, IsValidation(err))

	_, err = f.svc.AccumulateElapsed(ctx, attemptID, "u1", &models.AccumulateElapsedRequest{DeltaSeconds: 0})
	assert.True(t, IsValidation(err))

	f.answer(t, attemptID, "u1", 1001, strPtr("A"), 10)
	_, err = f.svc.Submit(ctx, attemptID, "u1")
	require.NoError(t, err)

	err = f.svc.RecordAnswer(ctx, attemptID, "u1", &models.RecordAnswerRequest{QuestionID: 1001, Answer: strPtr("B")})
	assert.ErrorIs(t, err, ErrAttemptAlreadySubmitted)
}

func TestStartAttempt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	attempt, err := f.svc.StartAttempt(ctx, "u1", &models.StartAttemptRequest{
		Kind:        models.KindGroupTest,
		QuestionIDs: []uint{1001, 1002},
	})
	require.NoError(t, err)
	assert.Equal(t, models.ScoringPolicy{MarksPerCorrect: 4, NegativeMarksPerIncorrect: 1}, attempt.ScoringPolicy)
	assert.Equal(t, 8.0, attempt.TotalMarks)

	_, err = f.svc.StartAttempt(ctx, "u1", &models.StartAttemptRequest{
		Kind:        models.KindDrill,
		QuestionIDs: []uint{1001, 7777},
	})
	assert.ErrorIs(t, err, ErrUnknownQuestions)
	assert.True(t, IsValidation(err))
	assert.False(t, IsNotFound(err))

	_, err = f.svc.StartAttempt(ctx, "u1", &models.StartAttemptRequest{
		Kind:        "mystery",
		QuestionIDs: []uint{1001},
	})
	assert.True(t, IsValidation(err))

	_, err = f.svc.StartAttempt(ctx, "u1", &models.StartAttemptRequest{
		Kind:        models.KindDrill,
		QuestionIDs: []uint{1001, 1001},
	})
	assert.True(t, IsValidation(err))
}

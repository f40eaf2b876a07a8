package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RISHIK92/adventa-backend/internal/models"
)

func graded(status models.AnswerStatus, timeTaken int, subject, topic, subtopic uint, difficulty models.DifficultyLevel) GradedAnswer {
	return GradedAnswer{
		Record: &models.AnswerRecord{
			Status:       status,
			IsCorrect:    status == models.AnswerCorrect,
			TimeTakenSec: timeTaken,
		},
		Placement: models.Placement{SubjectID: subject, TopicID: topic, SubtopicID: subtopic, Difficulty: difficulty},
	}
}

func TestAggregateHierarchy_SubjectEqualsSumOfTopics(t *testing.T) {
	answers := []GradedAnswer{
		graded(models.AnswerCorrect, 10, 1, 10, 100, models.DifficultyEasy),
		graded(models.AnswerIncorrect, 20, 1, 10, 101, models.DifficultyHard),
		graded(models.AnswerCorrect, 30, 1, 11, 110, models.DifficultyMedium),
		graded(models.AnswerCorrect, 40, 2, 20, 200, models.DifficultyEasy),
	}

	deltas := AggregateHierarchy(answers)

	topicSubject := map[uint]uint{}
	for _, a := range answers {
		topicSubject[a.Placement.TopicID] = a.Placement.SubjectID
	}
	sums := map[uint]models.PerformanceDelta{}
	for topicID, d := range deltas.Topic {
		sums[topicSubject[topicID]] = sums[topicSubject[topicID]].Add(d)
	}
	assert.Equal(t, sums, deltas.Subject)

	assert.Equal(t, models.PerformanceDelta{Attempted: 3, Correct: 2, TimeTakenSec: 60}, deltas.Subject[1])
	assert.Equal(t, models.PerformanceDelta{Attempted: 1, Correct: 1, TimeTakenSec: 40}, deltas.Subject[2])
	assert.Equal(t, models.PerformanceDelta{Attempted: 2, Correct: 1, TimeTakenSec: 30}, deltas.Topic[10])
	assert.Equal(t, models.PerformanceDelta{Attempted: 1, Correct: 0, TimeTakenSec: 20}, deltas.TopicDifficulty[TopicDifficultyKey{10, models.DifficultyHard}])
	assert.Equal(t, models.PerformanceDelta{Attempted: 1, Correct: 1, TimeTakenSec: 10}, deltas.Subtopic[100])
	assert.Len(t, deltas.TopicDifficulty, 4)
}

func TestAggregateHierarchy_UnattemptedIsNeutral(t *testing.T) {
	base := []GradedAnswer{
		graded(models.AnswerCorrect, 10, 1, 10, 100, models.DifficultyEasy),
	}
	withUnattempted := append([]GradedAnswer{}, base...)
	withUnattempted = append(withUnattempted,
		graded(models.AnswerUnattempted, 45, 1, 10, 100, models.DifficultyEasy),
		graded(models.AnswerUnattempted, 5, 3, 30, 300, models.DifficultyHard),
	)

	assert.Equal(t, AggregateHierarchy(base), AggregateHierarchy(withUnattempted))
}

func TestAggregateHierarchy_OnlyUnattempted(t *testing.T) {
	deltas := AggregateHierarchy([]GradedAnswer{
		graded(models.AnswerUnattempted, 0, 1, 10, 100, models.DifficultyEasy),
	})
	assert.True(t, deltas.IsEmpty())
	assert.Empty(t, deltas.Entries())
	assert.True(t, deltas.RefreshRequest().IsEmpty())
}

func TestHierarchyDeltas_EntriesOrderAndRefresh(t *testing.T) {
	deltas := AggregateHierarchy([]GradedAnswer{
		graded(models.AnswerCorrect, 5, 2, 20, 201, models.DifficultyMedium),
		graded(models.AnswerCorrect, 5, 1, 10, 100, models.DifficultyEasy),
		graded(models.AnswerIncorrect, 5, 1, 10, 100, models.DifficultyHard),
	})

	entries := deltas.Entries()
	require.Len(t, entries, 2+2+3+2)

	keys := make([]models.LevelKey, len(entries))
	for i, e := range entries {
		keys[i] = e.Key
	}
	assert.Equal(t, []models.LevelKey{
		{Level: models.LevelSubject, EntityID: 1},
		{Level: models.LevelSubject, EntityID: 2},
		{Level: models.LevelTopic, EntityID: 10},
		{Level: models.LevelTopic, EntityID: 20},
		{Level: models.LevelTopicDifficulty, EntityID: 10, Difficulty: models.DifficultyEasy},
		{Level: models.LevelTopicDifficulty, EntityID: 10, Difficulty: models.DifficultyHard},
		{Level: models.LevelTopicDifficulty, EntityID: 20, Difficulty: models.DifficultyMedium},
		{Level: models.LevelSubtopic, EntityID: 100},
		{Level: models.LevelSubtopic, EntityID: 201},
	}, keys)

	assert.Equal(t, RefreshRequest{
		SubjectIDs:  []uint{1, 2},
		TopicIDs:    []uint{10, 20},
		SubtopicIDs: []uint{100, 201},
	}, deltas.RefreshRequest())
}

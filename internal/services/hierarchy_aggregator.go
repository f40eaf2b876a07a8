package services

import (
	"sort"

	"github.com/RISHIK92/adventa-backend/internal/models"
)

// GradedAnswer pairs an answer record with where its question sits in the
// subject/topic/subtopic tree.
type GradedAnswer struct {
	Record    *models.AnswerRecord
	Placement models.Placement
}

type TopicDifficultyKey struct {
	TopicID    uint
	Difficulty models.DifficultyLevel
}

// HierarchyDeltas is everything one submission adds to the four levels.
type HierarchyDeltas struct {
	Subject         map[uint]models.PerformanceDelta
	Topic           map[uint]models.PerformanceDelta
	TopicDifficulty map[TopicDifficultyKey]models.PerformanceDelta
	Subtopic        map[uint]models.PerformanceDelta
}

// LevelDelta is a single upsert to apply to the performance store.
type LevelDelta struct {
	Key   models.LevelKey
	Delta models.PerformanceDelta
}

// AggregateHierarchy folds graded answers into per-level deltas in one pass.
// Unattempted answers contribute nothing. Subject deltas are the sum of their
// topics' deltas so the two levels can never disagree.
func AggregateHierarchy(answers []GradedAnswer) HierarchyDeltas {
	deltas := HierarchyDeltas{
		Subject:         map[uint]models.PerformanceDelta{},
		Topic:           map[uint]models.PerformanceDelta{},
		TopicDifficulty: map[TopicDifficultyKey]models.PerformanceDelta{},
		Subtopic:        map[uint]models.PerformanceDelta{},
	}
	topicSubject := map[uint]uint{}

	for _, answer := range answers {
		if answer.Record == nil || answer.Record.Status == models.AnswerUnattempted {
			continue
		}

		d := models.PerformanceDelta{Attempted: 1, TimeTakenSec: answer.Record.TimeTakenSec}
		if answer.Record.IsCorrect {
			d.Correct = 1
		}

		p := answer.Placement
		topicSubject[p.TopicID] = p.SubjectID
		deltas.Topic[p.TopicID] = deltas.Topic[p.TopicID].Add(d)
		tdKey := TopicDifficultyKey{TopicID: p.TopicID, Difficulty: p.Difficulty}
		deltas.TopicDifficulty[tdKey] = deltas.TopicDifficulty[tdKey].Add(d)
		deltas.Subtopic[p.SubtopicID] = deltas.Subtopic[p.SubtopicID].Add(d)
	}

	for topicID, d := range deltas.Topic {
		subjectID := topicSubject[topicID]
		deltas.Subject[subjectID] = deltas.Subject[subjectID].Add(d)
	}

	return deltas
}

func (h HierarchyDeltas) IsEmpty() bool {
	return len(h.Topic) == 0
}

// Entries flattens the deltas in a fixed order (level, entity id,
// difficulty). Concurrent submissions therefore lock rows in the same order.
func (h HierarchyDeltas) Entries() []LevelDelta {
	entries := make([]LevelDelta, 0, len(h.Subject)+len(h.Topic)+len(h.TopicDifficulty)+len(h.Subtopic))

	for _, id := range sortedIDs(h.Subject) {
		entries = append(entries, LevelDelta{Key: models.LevelKey{Level: models.LevelSubject, EntityID: id}, Delta: h.Subject[id]})
	}
	for _, id := range sortedIDs(h.Topic) {
		entries = append(entries, LevelDelta{Key: models.LevelKey{Level: models.LevelTopic, EntityID: id}, Delta: h.Topic[id]})
	}

	tdKeys := make([]TopicDifficultyKey, 0, len(h.TopicDifficulty))
	for k := range h.TopicDifficulty {
		tdKeys = append(tdKeys, k)
	}
	sort.Slice(tdKeys, func(i, j int) bool {
		if tdKeys[i].TopicID != tdKeys[j].TopicID {
			return tdKeys[i].TopicID < tdKeys[j].TopicID
		}
		return tdKeys[i].Difficulty < tdKeys[j].Difficulty
	})
	for _, k := range tdKeys {
		entries = append(entries, LevelDelta{
			Key:   models.LevelKey{Level: models.LevelTopicDifficulty, EntityID: k.TopicID, Difficulty: k.Difficulty},
			Delta: h.TopicDifficulty[k],
		})
	}

	for _, id := range sortedIDs(h.Subtopic) {
		entries = append(entries, LevelDelta{Key: models.LevelKey{Level: models.LevelSubtopic, EntityID: id}, Delta: h.Subtopic[id]})
	}

	return entries
}

// RefreshRequest names every entity with a community average that this
// submission touched.
func (h HierarchyDeltas) RefreshRequest() RefreshRequest {
	return RefreshRequest{
		SubjectIDs:  sortedIDs(h.Subject),
		TopicIDs:    sortedIDs(h.Topic),
		SubtopicIDs: sortedIDs(h.Subtopic),
	}
}

func sortedIDs(m map[uint]models.PerformanceDelta) []uint {
	ids := make([]uint, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

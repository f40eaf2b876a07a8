package models

import (
	"math"
	"time"
)

type HierarchyLevel string

const (
	LevelSubject         HierarchyLevel = "subject"
	LevelTopic           HierarchyLevel = "topic"
	LevelTopicDifficulty HierarchyLevel = "topic_difficulty"
	LevelSubtopic        HierarchyLevel = "subtopic"
)

// AllLevels lists the hierarchy from coarsest to finest.
var AllLevels = []HierarchyLevel{LevelSubject, LevelTopic, LevelTopicDifficulty, LevelSubtopic}

// CommunityLevels are the levels that carry a cross-user average.
var CommunityLevels = []HierarchyLevel{LevelSubject, LevelTopic, LevelSubtopic}

func (l HierarchyLevel) IsValid() bool {
	switch l {
	case LevelSubject, LevelTopic, LevelTopicDifficulty, LevelSubtopic:
		return true
	}
	return false
}

// HasCommunityAverage reports whether community averages are kept for the level.
func (l HierarchyLevel) HasCommunityAverage() bool {
	return l == LevelSubject || l == LevelTopic || l == LevelSubtopic
}

// LevelKey identifies one aggregation bucket for a user. Difficulty is only
// set for LevelTopicDifficulty.
type LevelKey struct {
	Level      HierarchyLevel  `json:"level"`
	EntityID   uint            `json:"entity_id"`
	Difficulty DifficultyLevel `json:"difficulty,omitempty"`
}

// PerformanceDelta is the contribution of a single submission to one bucket.
type PerformanceDelta struct {
	Attempted    int `json:"attempted"`
	Correct      int `json:"correct"`
	TimeTakenSec int `json:"time_taken_sec"`
}

func (d PerformanceDelta) Incorrect() int {
	return d.Attempted - d.Correct
}

func (d PerformanceDelta) IsZero() bool {
	return d.Attempted == 0 && d.Correct == 0 && d.TimeTakenSec == 0
}

// Add returns the element-wise sum of two deltas.
func (d PerformanceDelta) Add(other PerformanceDelta) PerformanceDelta {
	return PerformanceDelta{
		Attempted:    d.Attempted + other.Attempted,
		Correct:      d.Correct + other.Correct,
		TimeTakenSec: d.TimeTakenSec + other.TimeTakenSec,
	}
}

// PerformanceStats holds the running totals shared by every hierarchy level.
// AccuracyPercent and AvgTimePerQuestionSec are always derived from the totals.
type PerformanceStats struct {
	TotalAttempted        int     `json:"total_attempted" gorm:"not null;default:0"`
	TotalCorrect          int     `json:"total_correct" gorm:"not null;default:0"`
	TotalIncorrect        int     `json:"total_incorrect" gorm:"not null;default:0"`
	TotalTimeTakenSec     int     `json:"total_time_taken_sec" gorm:"not null;default:0"`
	AccuracyPercent       float64 `json:"accuracy_percent" gorm:"not null;default:0"`
	AvgTimePerQuestionSec float64 `json:"avg_time_per_question_sec" gorm:"not null;default:0"`
}

// StatsFromDelta builds the stats a brand new record would hold.
func StatsFromDelta(d PerformanceDelta) PerformanceStats {
	var s PerformanceStats
	s.Apply(d)
	return s
}

// Apply folds a delta into the totals and recomputes the derived fields.
func (s *PerformanceStats) Apply(d PerformanceDelta) {
	s.TotalAttempted += d.Attempted
	s.TotalCorrect += d.Correct
	s.TotalIncorrect += d.Incorrect()
	s.TotalTimeTakenSec += d.TimeTakenSec
	s.Recompute()
}

// Recompute derives accuracy and average time from the current totals.
func (s *PerformanceStats) Recompute() {
	if s.TotalAttempted <= 0 {
		s.AccuracyPercent = 0
		s.AvgTimePerQuestionSec = 0
		return
	}
	s.AccuracyPercent = float64(s.TotalCorrect) * 100 / float64(s.TotalAttempted)
	s.AvgTimePerQuestionSec = float64(s.TotalTimeTakenSec) / float64(s.TotalAttempted)
}

// RoundTo rounds v to the given number of decimal places.
func RoundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

type SubjectPerformance struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    string    `json:"user_id" gorm:"not null;size:255;uniqueIndex:idx_subject_perf_user_entity"`
	SubjectID uint      `json:"subject_id" gorm:"not null;uniqueIndex:idx_subject_perf_user_entity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	PerformanceStats `gorm:"embedded"`
}

type TopicPerformance struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    string    `json:"user_id" gorm:"not null;size:255;uniqueIndex:idx_topic_perf_user_entity"`
	TopicID   uint      `json:"topic_id" gorm:"not null;uniqueIndex:idx_topic_perf_user_entity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	PerformanceStats `gorm:"embedded"`
}

type TopicDifficultyPerformance struct {
	ID         uint            `json:"id" gorm:"primaryKey"`
	UserID     string          `json:"user_id" gorm:"not null;size:255;uniqueIndex:idx_topic_diff_perf_user_entity"`
	TopicID    uint            `json:"topic_id" gorm:"not null;uniqueIndex:idx_topic_diff_perf_user_entity"`
	Difficulty DifficultyLevel `json:"difficulty" gorm:"not null;size:16;uniqueIndex:idx_topic_diff_perf_user_entity"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`

	PerformanceStats `gorm:"embedded"`
}

type SubtopicPerformance struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	UserID     string    `json:"user_id" gorm:"not null;size:255;uniqueIndex:idx_subtopic_perf_user_entity"`
	SubtopicID uint      `json:"subtopic_id" gorm:"not null;uniqueIndex:idx_subtopic_perf_user_entity"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	PerformanceStats `gorm:"embedded"`
}

func (SubjectPerformance) TableName() string {
	return "subject_performances"
}

func (TopicPerformance) TableName() string {
	return "topic_performances"
}

func (TopicDifficultyPerformance) TableName() string {
	return "topic_difficulty_performances"
}

func (SubtopicPerformance) TableName() string {
	return "subtopic_performances"
}

// PerformanceRecord is the level-agnostic view of one row from any of the
// four performance tables.
type PerformanceRecord struct {
	UserID string `json:"user_id"`
	LevelKey
	PerformanceStats
	UpdatedAt time.Time `json:"updated_at"`
}

// CommunityAverage is the cross-user mean accuracy for one entity. It is
// eventually consistent with the per-user records.
type CommunityAverage struct {
	ID              uint           `json:"-" gorm:"primaryKey"`
	Level           HierarchyLevel `json:"level" gorm:"not null;size:32;uniqueIndex:idx_community_level_entity"`
	EntityID        uint           `json:"entity_id" gorm:"not null;uniqueIndex:idx_community_level_entity"`
	AverageAccuracy float64        `json:"average_accuracy" gorm:"not null;default:0"`
	UserCount       int            `json:"user_count" gorm:"not null;default:0"`
	TotalAttempted  int            `json:"total_attempted" gorm:"not null;default:0"`
	RefreshedAt     time.Time      `json:"refreshed_at"`
}

func (CommunityAverage) TableName() string {
	return "community_averages"
}

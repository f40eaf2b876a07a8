package postgres

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/RISHIK92/adventa-backend/internal/models"
)

// performanceTable describes how one hierarchy level is laid out on disk.
type performanceTable struct {
	name         string
	entityColumn string
	conflictCols []clause.Column
}

var performanceTables = map[models.HierarchyLevel]performanceTable{
	models.LevelSubject: {
		name:         models.SubjectPerformance{}.TableName(),
		entityColumn: "subject_id",
		conflictCols: []clause.Column{{Name: "user_id"}, {Name: "subject_id"}},
	},
	models.LevelTopic: {
		name:         models.TopicPerformance{}.TableName(),
		entityColumn: "topic_id",
		conflictCols: []clause.Column{{Name: "user_id"}, {Name: "topic_id"}},
	},
	models.LevelTopicDifficulty: {
		name:         models.TopicDifficultyPerformance{}.TableName(),
		entityColumn: "topic_id",
		conflictCols: []clause.Column{{Name: "user_id"}, {Name: "topic_id"}, {Name: "difficulty"}},
	},
	models.LevelSubtopic: {
		name:         models.SubtopicPerformance{}.TableName(),
		entityColumn: "subtopic_id",
		conflictCols: []clause.Column{{Name: "user_id"}, {Name: "subtopic_id"}},
	},
}

func tableFor(level models.HierarchyLevel) (performanceTable, error) {
	t, ok := performanceTables[level]
	if !ok {
		return performanceTable{}, fmt.Errorf("unknown hierarchy level %q", level)
	}
	return t, nil
}

func (t performanceTable) hasDifficulty() bool {
	return len(t.conflictCols) == 3
}

// newPerformanceRow builds the typed model for an insert so gorm picks the
// right table and fills timestamps.
func newPerformanceRow(userID string, key models.LevelKey, stats models.PerformanceStats) (interface{}, error) {
	switch key.Level {
	case models.LevelSubject:
		return &models.SubjectPerformance{UserID: userID, SubjectID: key.EntityID, PerformanceStats: stats}, nil
	case models.LevelTopic:
		return &models.TopicPerformance{UserID: userID, TopicID: key.EntityID, PerformanceStats: stats}, nil
	case models.LevelTopicDifficulty:
		if !key.Difficulty.IsValid() {
			return nil, fmt.Errorf("invalid difficulty %q for topic_difficulty", key.Difficulty)
		}
		return &models.TopicDifficultyPerformance{UserID: userID, TopicID: key.EntityID, Difficulty: key.Difficulty, PerformanceStats: stats}, nil
	case models.LevelSubtopic:
		return &models.SubtopicPerformance{UserID: userID, SubtopicID: key.EntityID, PerformanceStats: stats}, nil
	}
	return nil, fmt.Errorf("unknown hierarchy level %q", key.Level)
}

// incrementAssignments is the DO UPDATE half of the upsert. Every right-hand
// side reads the pre-update row, so derived columns are computed from the
// summed totals rather than from each other.
func incrementAssignments(table string) clause.Set {
	sum := func(col string) string {
		return fmt.Sprintf("%s.%s + excluded.%s", table, col, col)
	}
	attempted := sum("total_attempted")

	return clause.Assignments(map[string]interface{}{
		"total_attempted":      gorm.Expr(attempted),
		"total_correct":        gorm.Expr(sum("total_correct")),
		"total_incorrect":      gorm.Expr(sum("total_incorrect")),
		"total_time_taken_sec": gorm.Expr(sum("total_time_taken_sec")),
		"accuracy_percent": gorm.Expr(fmt.Sprintf(
			"CASE WHEN %s > 0 THEN (%s) * 100.0 / (%s) ELSE 0 END",
			attempted, sum("total_correct"), attempted)),
		"avg_time_per_question_sec": gorm.Expr(fmt.Sprintf(
			"CASE WHEN %s > 0 THEN (%s) * 1.0 / (%s) ELSE 0 END",
			attempted, sum("total_time_taken_sec"), attempted)),
		"updated_at": gorm.Expr("excluded.updated_at"),
	})
}

// performanceRow is the level-agnostic projection used for reads.
type performanceRow struct {
	UserID     string
	EntityID   uint
	Difficulty models.DifficultyLevel

	models.PerformanceStats `gorm:"embedded"`

	UpdatedAt time.Time
}

func (t performanceTable) selectColumns() string {
	difficulty := "'' AS difficulty"
	if t.hasDifficulty() {
		difficulty = "difficulty"
	}
	return fmt.Sprintf("user_id, %s AS entity_id, %s, total_attempted, total_correct, total_incorrect, "+
		"total_time_taken_sec, accuracy_percent, avg_time_per_question_sec, updated_at",
		t.entityColumn, difficulty)
}

func (r performanceRow) toRecord(level models.HierarchyLevel) models.PerformanceRecord {
	return models.PerformanceRecord{
		UserID: r.UserID,
		LevelKey: models.LevelKey{
			Level:      level,
			EntityID:   r.EntityID,
			Difficulty: r.Difficulty,
		},
		PerformanceStats: r.PerformanceStats,
		UpdatedAt:        r.UpdatedAt,
	}
}

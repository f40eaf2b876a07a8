package models

import "time"

type StartAttemptRequest struct {
	Kind          AssessmentKind   `json:"kind" validate:"required,assessment_kind"`
	QuestionIDs   []uint           `json:"question_ids" validate:"required,min=1,max=500,dive,gt=0"`
	QuestionMarks map[uint]float64 `json:"question_marks" validate:"omitempty,dive,gte=0"`
	ScoringPolicy *ScoringPolicy   `json:"scoring_policy" validate:"omitempty"`
}

type RecordAnswerRequest struct {
	QuestionID      uint    `json:"question_id" validate:"required,gt=0"`
	Answer          *string `json:"answer" validate:"omitempty,max=255"`
	TimeTakenSec    int     `json:"time_taken_sec" validate:"min=0,max=86400"`
	MarkedForReview bool    `json:"marked_for_review"`
}

type AccumulateElapsedRequest struct {
	DeltaSeconds int `json:"delta_seconds" validate:"required,min=1,max=86400"`
}

type AttemptResponse struct {
	ID            uint           `json:"id"`
	Kind          AssessmentKind `json:"kind"`
	QuestionIDs   []uint         `json:"question_ids"`
	ScoringPolicy ScoringPolicy  `json:"scoring_policy"`
	TotalMarks    float64        `json:"total_marks"`
	CreatedAt     time.Time      `json:"created_at"`
	CompletedAt   *time.Time     `json:"completed_at,omitempty"`
}

// SubmissionSummary is returned to the client once an attempt has been graded.
type SubmissionSummary struct {
	AttemptID        uint    `json:"attempt_id"`
	Score            float64 `json:"score"`
	TotalMarks       float64 `json:"total_marks"`
	CorrectCount     int     `json:"correct_count"`
	IncorrectCount   int     `json:"incorrect_count"`
	UnattemptedCount int     `json:"unattempted_count"`
	AccuracyPercent  float64 `json:"accuracy_percent"`
	TimeTakenSec     int     `json:"time_taken_sec"`
}

type PerformanceListResponse struct {
	Level   HierarchyLevel      `json:"level"`
	Records []PerformanceRecord `json:"records"`
	Total   int                 `json:"total"`
}

type CommunityComparison struct {
	Level           HierarchyLevel `json:"level"`
	EntityID        uint           `json:"entity_id"`
	UserAccuracy    *float64       `json:"user_accuracy,omitempty"`
	AverageAccuracy float64        `json:"average_accuracy"`
	UserCount       int            `json:"user_count"`
	RefreshedAt     *time.Time     `json:"refreshed_at,omitempty"`
}

type PerformanceQuery struct {
	Level      HierarchyLevel  `json:"level" validate:"required,hierarchy_level"`
	EntityID   uint            `json:"entity_id" validate:"required,gt=0"`
	Difficulty DifficultyLevel `json:"difficulty" validate:"omitempty,difficulty_level"`
}

// Key converts the query into the bucket it addresses.
func (q PerformanceQuery) Key() LevelKey {
	return LevelKey{Level: q.Level, EntityID: q.EntityID, Difficulty: q.Difficulty}
}

package models

import (
	"time"

	"gorm.io/datatypes"
)

type AssessmentKind string

const (
	KindPreviousYear AssessmentKind = "pyq"
	KindDrill        AssessmentKind = "drill"
	KindWeakness     AssessmentKind = "weakness_test"
	KindChallenge    AssessmentKind = "challenge"
	KindGroupTest    AssessmentKind = "group_test"
	KindQuiz         AssessmentKind = "quiz"
)

// ScoringPolicy is persisted on every instance so a later change to the
// per-kind defaults never rescores an attempt that was already started.
type ScoringPolicy struct {
	MarksPerCorrect           float64 `json:"marks_per_correct" gorm:"not null;default:1" validate:"gte=0"`
	NegativeMarksPerIncorrect float64 `json:"negative_marks_per_incorrect" gorm:"not null;default:0" validate:"gte=0"`
}

// DefaultScoringPolicy returns the marking scheme used when an instance is
// created without an explicit policy.
func DefaultScoringPolicy(kind AssessmentKind) ScoringPolicy {
	switch kind {
	case KindPreviousYear, KindGroupTest:
		return ScoringPolicy{MarksPerCorrect: 4, NegativeMarksPerIncorrect: 1}
	default:
		return ScoringPolicy{MarksPerCorrect: 1, NegativeMarksPerIncorrect: 0}
	}
}

// AssessmentInstance is one attempt by one user at a fixed list of questions.
// CompletedAt doubles as the idempotency tombstone for submission.
type AssessmentInstance struct {
	ID            uint                                 `json:"id" gorm:"primaryKey"`
	UserID        string                               `json:"user_id" gorm:"not null;index;size:255"`
	Kind          AssessmentKind                       `json:"kind" gorm:"not null;size:32;index" validate:"required,assessment_kind"`
	QuestionIDs   datatypes.JSONSlice[uint]            `json:"question_ids"`
	QuestionMarks datatypes.JSONType[map[uint]float64] `json:"question_marks"`

	ScoringPolicy `gorm:"embedded"`

	Score            float64 `json:"score" gorm:"not null;default:0"`
	TotalMarks       float64 `json:"total_marks" gorm:"not null;default:0"`
	CorrectCount     int     `json:"correct_count" gorm:"not null;default:0"`
	IncorrectCount   int     `json:"incorrect_count" gorm:"not null;default:0"`
	UnattemptedCount int     `json:"unattempted_count" gorm:"not null;default:0"`
	TimeTakenSec     int     `json:"time_taken_sec" gorm:"not null;default:0"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at" gorm:"index"`
}

func (AssessmentInstance) TableName() string {
	return "assessment_instances"
}

// IsCompleted reports whether the instance has already been submitted.
func (a *AssessmentInstance) IsCompleted() bool {
	return a.CompletedAt != nil
}

// MarksFor is what a correct answer to questionID is worth on this instance.
func (a *AssessmentInstance) MarksFor(questionID uint) float64 {
	if m, ok := a.QuestionMarks.Data()[questionID]; ok {
		return m
	}
	return a.MarksPerCorrect
}

// MaxMarks sums the per-question marks, falling back to the policy's marks
// per correct answer for questions without an explicit value.
func (a *AssessmentInstance) MaxMarks() float64 {
	var total float64
	for _, id := range a.QuestionIDs {
		total += a.MarksFor(id)
	}
	return total
}

// AttemptOutcome is the summary written onto the instance when it completes.
type AttemptOutcome struct {
	Score            float64
	TotalMarks       float64
	CorrectCount     int
	IncorrectCount   int
	UnattemptedCount int
	TimeTakenSec     int
	CompletedAt      time.Time
}

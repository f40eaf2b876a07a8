package models

import "time"

type AnswerStatus string

const (
	AnswerCorrect     AnswerStatus = "correct"
	AnswerIncorrect   AnswerStatus = "incorrect"
	AnswerUnattempted AnswerStatus = "unattempted"
)

// AnswerRecord is the durable, write-once result for one question of one
// completed attempt.
type AnswerRecord struct {
	ID              uint         `json:"id" gorm:"primaryKey"`
	AttemptID       uint         `json:"attempt_id" gorm:"not null;uniqueIndex:idx_answer_attempt_question"`
	UserID          string       `json:"user_id" gorm:"not null;size:255;index"`
	QuestionID      uint         `json:"question_id" gorm:"not null;uniqueIndex:idx_answer_attempt_question;index"`
	SubmittedAnswer *string      `json:"submitted_answer" gorm:"size:255"`
	IsCorrect       bool         `json:"is_correct" gorm:"not null;default:false"`
	Status          AnswerStatus `json:"status" gorm:"not null;size:16"`
	TimeTakenSec    int          `json:"time_taken_sec" gorm:"not null;default:0"`
	MarkedForReview bool         `json:"marked_for_review" gorm:"not null;default:false"`
	CreatedAt       time.Time    `json:"created_at"`
}

func (AnswerRecord) TableName() string {
	return "answer_records"
}

// BufferedAnswer is what the progress buffer holds per question while an
// attempt is in flight.
type BufferedAnswer struct {
	Answer          *string `json:"answer"`
	TimeTakenSec    int     `json:"time_taken_sec"`
	MarkedForReview bool    `json:"marked_for_review"`
}

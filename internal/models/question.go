package models

import (
	"time"

	"gorm.io/datatypes"
)

type DifficultyLevel string

const (
	DifficultyEasy   DifficultyLevel = "Easy"
	DifficultyMedium DifficultyLevel = "Medium"
	DifficultyHard   DifficultyLevel = "Hard"
)

func (d DifficultyLevel) IsValid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

type Subject struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"not null;size:200;uniqueIndex"`
	CreatedAt time.Time `json:"created_at"`

	Topics []Topic `json:"topics,omitempty" gorm:"foreignKey:SubjectID"`
}

type Topic struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	SubjectID uint      `json:"subject_id" gorm:"not null;index"`
	Name      string    `json:"name" gorm:"not null;size:200"`
	CreatedAt time.Time `json:"created_at"`

	Subject   *Subject   `json:"subject,omitempty" gorm:"foreignKey:SubjectID"`
	Subtopics []Subtopic `json:"subtopics,omitempty" gorm:"foreignKey:TopicID"`
}

type Subtopic struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	TopicID   uint      `json:"topic_id" gorm:"not null;index"`
	Name      string    `json:"name" gorm:"not null;size:200"`
	CreatedAt time.Time `json:"created_at"`

	Topic *Topic `json:"topic,omitempty" gorm:"foreignKey:TopicID"`
}

// Question is read-only content as far as grading is concerned.
type Question struct {
	ID            uint            `json:"id" gorm:"primaryKey"`
	Text          string          `json:"text" gorm:"type:text;not null"`
	Options       datatypes.JSON  `json:"options"` // []string
	CorrectOption string          `json:"-" gorm:"not null;size:255"`
	Difficulty    DifficultyLevel `json:"difficulty" gorm:"not null;size:16;default:Medium;index"`
	SubtopicID    uint            `json:"subtopic_id" gorm:"not null;index"`
	Explanation   *string         `json:"explanation,omitempty" gorm:"type:text"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`

	Subtopic *Subtopic `json:"subtopic,omitempty" gorm:"foreignKey:SubtopicID"`
}

func (Subject) TableName() string {
	return "subjects"
}

func (Topic) TableName() string {
	return "topics"
}

func (Subtopic) TableName() string {
	return "subtopics"
}

func (Question) TableName() string {
	return "questions"
}

// Placement flattens the question's position in the content tree.
type Placement struct {
	SubjectID  uint
	TopicID    uint
	SubtopicID uint
	Difficulty DifficultyLevel
}

// Placement returns false when the hierarchy was not loaded with the question.
func (q *Question) Placement() (Placement, bool) {
	if q.Subtopic == nil || q.Subtopic.Topic == nil {
		return Placement{}, false
	}
	return Placement{
		SubjectID:  q.Subtopic.Topic.SubjectID,
		TopicID:    q.Subtopic.TopicID,
		SubtopicID: q.SubtopicID,
		Difficulty: q.Difficulty,
	}, true
}

package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType identifies the kind of domain event on the wire.
type EventType string

const (
	EventAttemptGraded           EventType = "attempt.graded"
	EventCommunityStatsRefreshed EventType = "community_stats.refreshed"
)

const (
	eventSource  = "performance-engine"
	eventVersion = "1.0"
)

// DomainEvent is the envelope published for every outbound event.
type DomainEvent struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

type AttemptGradedEvent struct {
	AttemptID        uint      `json:"attempt_id"`
	UserID           string    `json:"user_id"`
	Kind             string    `json:"kind"`
	Score            float64   `json:"score"`
	TotalMarks       float64   `json:"total_marks"`
	CorrectCount     int       `json:"correct_count"`
	IncorrectCount   int       `json:"incorrect_count"`
	UnattemptedCount int       `json:"unattempted_count"`
	AccuracyPercent  float64   `json:"accuracy_percent"`
	TimeTakenSec     int       `json:"time_taken_sec"`
	SubjectIDs       []uint    `json:"subject_ids"`
	GradedAt         time.Time `json:"graded_at"`
}

type CommunityStatsRefreshedEvent struct {
	Level           string    `json:"level"`
	EntityID        uint      `json:"entity_id"`
	AverageAccuracy float64   `json:"average_accuracy"`
	UserCount       int       `json:"user_count"`
	RefreshedAt     time.Time `json:"refreshed_at"`
}

func NewAttemptGradedEvent(payload AttemptGradedEvent) *DomainEvent {
	return newDomainEvent(EventAttemptGraded, payload)
}

func NewCommunityStatsRefreshedEvent(payload CommunityStatsRefreshedEvent) *DomainEvent {
	return newDomainEvent(EventCommunityStatsRefreshed, payload)
}

func newDomainEvent(eventType EventType, data interface{}) *DomainEvent {
	return &DomainEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Source:    eventSource,
		Version:   eventVersion,
		Data:      data,
	}
}

package services

import (
	"bytes"
	"context"

	"github.com/RISHIK92/adventa-backend/internal/cache"
	"github.com/RISHIK92/adventa-backend/internal/models"
	"github.com/RISHIK92/adventa-backend/internal/worker"
)

// ===== COLLABORATORS =====

// ProgressBuffer holds an attempt's answers until submission. Drain must not
// remove anything; Clear is only called after a successful commit.
type ProgressBuffer interface {
	Record(ctx context.Context, attemptID, questionID uint, entry models.BufferedAnswer) error
	AccumulateElapsed(ctx context.Context, attemptID uint, deltaSec int) (int, error)
	Drain(ctx context.Context, attemptID uint) (*cache.ProgressSnapshot, error)
	Clear(ctx context.Context, attemptID uint) error
}

// BackgroundRunner accepts fire-and-forget work without blocking the caller.
type BackgroundRunner interface {
	TrySubmit(name string, job worker.Job) bool
}

// ===== SERVICES =====

type SubmissionService interface {
	StartAttempt(ctx context.Context, userID string, req *models.StartAttemptRequest) (*models.AttemptResponse, error)
	GetAttempt(ctx context.Context, attemptID uint, userID string) (*models.AttemptResponse, error)

	RecordAnswer(ctx context.Context, attemptID uint, userID string, req *models.RecordAnswerRequest) error
	// AccumulateElapsed returns the attempt's running total in seconds.
	AccumulateElapsed(ctx context.Context, attemptID uint, userID string, req *models.AccumulateElapsedRequest) (int, error)

	Submit(ctx context.Context, attemptID uint, userID string) (*models.SubmissionSummary, error)
}

type PerformanceService interface {
	GetPerformance(ctx context.Context, userID string, query *models.PerformanceQuery) (*models.PerformanceRecord, error)
	ListPerformance(ctx context.Context, userID string, level models.HierarchyLevel) (*models.PerformanceListResponse, error)
	GetCommunityAverage(ctx context.Context, userID string, level models.HierarchyLevel, entityID uint) (*models.CommunityComparison, error)
	// ExportWorkbook renders every level of the user's performance as XLSX.
	ExportWorkbook(ctx context.Context, userID string) (*bytes.Buffer, error)
}

type StatsRefresher interface {
	// Schedule queues a refresh and reports whether it was accepted.
	Schedule(req RefreshRequest) bool
	Refresh(ctx context.Context, req RefreshRequest) error
}

// RefreshRequest lists the entities whose community averages may be stale.
type RefreshRequest struct {
	SubjectIDs  []uint `json:"subject_ids"`
	TopicIDs    []uint `json:"topic_ids"`
	SubtopicIDs []uint `json:"subtopic_ids"`
}

func (r RefreshRequest) IDs(level models.HierarchyLevel) []uint {
	switch level {
	case models.LevelSubject:
		return r.SubjectIDs
	case models.LevelTopic:
		return r.TopicIDs
	case models.LevelSubtopic:
		return r.SubtopicIDs
	}
	return nil
}

func (r RefreshRequest) IsEmpty() bool {
	return len(r.SubjectIDs) == 0 && len(r.TopicIDs) == 0 && len(r.SubtopicIDs) == 0
}

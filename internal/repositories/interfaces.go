package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/RISHIK92/adventa-backend/internal/models"
)

var ErrNotFound = errors.New("record not found")

// IsNotFoundError covers both the repository sentinel and gorm's.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}

type AssessmentRepository interface {
	Create(ctx context.Context, instance *models.AssessmentInstance) error
	// GetForUser returns ErrNotFound when the instance does not exist or
	// belongs to someone else.
	GetForUser(ctx context.Context, id uint, userID string) (*models.AssessmentInstance, error)
	// Complete stamps the outcome only if the instance is still pending and
	// reports whether this call was the one that completed it.
	Complete(ctx context.Context, id uint, outcome models.AttemptOutcome) (bool, error)
}

type QuestionRepository interface {
	// GetByIDsWithHierarchy loads questions with Subtopic.Topic in one batch.
	GetByIDsWithHierarchy(ctx context.Context, ids []uint) (map[uint]*models.Question, error)
	CountExisting(ctx context.Context, ids []uint) (int64, error)
}

type AnswerRepository interface {
	CreateBatch(ctx context.Context, answers []*models.AnswerRecord) error
	GetByAttempt(ctx context.Context, attemptID uint) ([]*models.AnswerRecord, error)
}

type PerformanceRepository interface {
	// ApplyDelta creates the bucket when absent or increments it atomically,
	// recomputing the derived fields from the new totals.
	ApplyDelta(ctx context.Context, userID string, key models.LevelKey, delta models.PerformanceDelta) error
	Get(ctx context.Context, userID string, key models.LevelKey) (*models.PerformanceRecord, error)
	ListByUser(ctx context.Context, userID string, level models.HierarchyLevel) ([]models.PerformanceRecord, error)
}

type CommunityAverageRepository interface {
	// Aggregate computes the cross-user accuracy mean over users that
	// attempted at least one question for each requested entity.
	Aggregate(ctx context.Context, level models.HierarchyLevel, entityIDs []uint) ([]models.CommunityAverage, error)
	Upsert(ctx context.Context, avg *models.CommunityAverage) error
	Get(ctx context.Context, level models.HierarchyLevel, entityID uint) (*models.CommunityAverage, error)
}

package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/RISHIK92/adventa-backend/internal/models"
	"github.com/RISHIK92/adventa-backend/internal/repositories"
)

type AssessmentPostgreSQL struct {
	db *gorm.DB
}

func NewAssessmentPostgreSQL(db *gorm.DB) repositories.AssessmentRepository {
	return &AssessmentPostgreSQL{db: db}
}

func (a *AssessmentPostgreSQL) Create(ctx context.Context, instance *models.AssessmentInstance) error {
	if err := a.db.WithContext(ctx).Create(instance).Error; err != nil {
		return fmt.Errorf("failed to create assessment instance: %w", err)
	}
	return nil
}

func (a *AssessmentPostgreSQL) GetForUser(ctx context.Context, id uint, userID string) (*models.AssessmentInstance, error) {
	var instance models.AssessmentInstance
	err := a.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&instance).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get assessment instance: %w", err)
	}
	return &instance, nil
}

// Complete is a compare-and-set on completed_at. Concurrent submitters race
// on the row lock and only the first sees a row affected.
func (a *AssessmentPostgreSQL) Complete(ctx context.Context, id uint, outcome models.AttemptOutcome) (bool, error) {
	result := a.db.WithContext(ctx).
		Model(&models.AssessmentInstance{}).
		Where("id = ? AND completed_at IS NULL", id).
		Updates(map[string]interface{}{
			"score":             outcome.Score,
			"total_marks":       outcome.TotalMarks,
			"correct_count":     outcome.CorrectCount,
			"incorrect_count":   outcome.IncorrectCount,
			"unattempted_count": outcome.UnattemptedCount,
			"time_taken_sec":    outcome.TimeTakenSec,
			"completed_at":      outcome.CompletedAt,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to complete assessment instance: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

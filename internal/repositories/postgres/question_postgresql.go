package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/RISHIK92/adventa-backend/internal/models"
	"github.com/RISHIK92/adventa-backend/internal/repositories"
)

type QuestionPostgreSQL struct {
	db *gorm.DB
}

func NewQuestionPostgreSQL(db *gorm.DB) repositories.QuestionRepository {
	return &QuestionPostgreSQL{db: db}
}

// GetByIDsWithHierarchy issues one query per level of the tree regardless of
// how many questions are requested.
func (q *QuestionPostgreSQL) GetByIDsWithHierarchy(ctx context.Context, ids []uint) (map[uint]*models.Question, error) {
	result := make(map[uint]*models.Question, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var questions []*models.Question
	err := q.db.WithContext(ctx).
		Preload("Subtopic.Topic").
		Where("id IN ?", ids).
		Find(&questions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get questions with hierarchy: %w", err)
	}

	for _, question := range questions {
		result[question.ID] = question
	}
	return result, nil
}

func (q *QuestionPostgreSQL) CountExisting(ctx context.Context, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	var count int64
	err := q.db.WithContext(ctx).
		Model(&models.Question{}).
		Where("id IN ?", ids).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count questions: %w", err)
	}
	return count, nil
}

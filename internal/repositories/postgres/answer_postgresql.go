package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/RISHIK92/adventa-backend/internal/models"
	"github.com/RISHIK92/adventa-backend/internal/repositories"
)

const answerBatchSize = 200

type AnswerPostgreSQL struct {
	db *gorm.DB
}

func NewAnswerPostgreSQL(db *gorm.DB) repositories.AnswerRepository {
	return &AnswerPostgreSQL{db: db}
}

func (a *AnswerPostgreSQL) CreateBatch(ctx context.Context, answers []*models.AnswerRecord) error {
	if len(answers) == 0 {
		return nil
	}
	if err := a.db.WithContext(ctx).CreateInBatches(answers, answerBatchSize).Error; err != nil {
		return fmt.Errorf("failed to create answer records: %w", err)
	}
	return nil
}

func (a *AnswerPostgreSQL) GetByAttempt(ctx context.Context, attemptID uint) ([]*models.AnswerRecord, error) {
	var answers []*models.AnswerRecord
	err := a.db.WithContext(ctx).
		Where("attempt_id = ?", attemptID).
		Order("id ASC").
		Find(&answers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get answer records: %w", err)
	}
	return answers, nil
}

package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/RISHIK92/adventa-backend/internal/models"
	"github.com/RISHIK92/adventa-backend/internal/repositories"
)

type CommunityAveragePostgreSQL struct {
	db *gorm.DB
}

func NewCommunityAveragePostgreSQL(db *gorm.DB) repositories.CommunityAverageRepository {
	return &CommunityAveragePostgreSQL{db: db}
}

func (c *CommunityAveragePostgreSQL) Aggregate(ctx context.Context, level models.HierarchyLevel, entityIDs []uint) ([]models.CommunityAverage, error) {
	if !level.HasCommunityAverage() {
		return nil, fmt.Errorf("no community average kept for level %q", level)
	}
	if len(entityIDs) == 0 {
		return []models.CommunityAverage{}, nil
	}

	table, err := tableFor(level)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		EntityID        uint
		AverageAccuracy float64
		UserCount       int
		TotalAttempted  int
	}
	err = c.db.WithContext(ctx).
		Table(table.name).
		Select(fmt.Sprintf("%s AS entity_id, AVG(accuracy_percent) AS average_accuracy, "+
			"COUNT(DISTINCT user_id) AS user_count, SUM(total_attempted) AS total_attempted", table.entityColumn)).
		Where(table.entityColumn+" IN ? AND total_attempted > 0", entityIDs).
		Group(table.entityColumn).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate %s community averages: %w", level, err)
	}

	out := make([]models.CommunityAverage, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.CommunityAverage{
			Level:           level,
			EntityID:        r.EntityID,
			AverageAccuracy: r.AverageAccuracy,
			UserCount:       r.UserCount,
			TotalAttempted:  r.TotalAttempted,
		})
	}
	return out, nil
}

// Upsert is last-write-wins on (level, entity_id).
func (c *CommunityAveragePostgreSQL) Upsert(ctx context.Context, avg *models.CommunityAverage) error {
	err := c.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "level"}, {Name: "entity_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"average_accuracy", "user_count", "total_attempted", "refreshed_at"}),
		}).
		Create(avg).Error
	if err != nil {
		return fmt.Errorf("failed to upsert community average: %w", err)
	}
	return nil
}

func (c *CommunityAveragePostgreSQL) Get(ctx context.Context, level models.HierarchyLevel, entityID uint) (*models.CommunityAverage, error) {
	var avg models.CommunityAverage
	err := c.db.WithContext(ctx).
		Where("level = ? AND entity_id = ?", level, entityID).
		First(&avg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get community average: %w", err)
	}
	return &avg, nil
}

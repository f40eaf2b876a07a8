package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/RISHIK92/adventa-backend/internal/models"
	"github.com/RISHIK92/adventa-backend/internal/repositories"
)

type PerformancePostgreSQL struct {
	db *gorm.DB
}

func NewPerformancePostgreSQL(db *gorm.DB) repositories.PerformanceRepository {
	return &PerformancePostgreSQL{db: db}
}

// ApplyDelta is a single INSERT ... ON CONFLICT DO UPDATE, so two writers
// hitting the same bucket serialize on the unique index instead of losing an
// increment.
func (p *PerformancePostgreSQL) ApplyDelta(ctx context.Context, userID string, key models.LevelKey, delta models.PerformanceDelta) error {
	if delta.IsZero() {
		return nil
	}
	if delta.Attempted < 0 || delta.Correct < 0 || delta.Correct > delta.Attempted {
		return fmt.Errorf("invalid performance delta %+v", delta)
	}

	table, err := tableFor(key.Level)
	if err != nil {
		return err
	}

	row, err := newPerformanceRow(userID, key, models.StatsFromDelta(delta))
	if err != nil {
		return err
	}

	err = p.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   table.conflictCols,
			DoUpdates: incrementAssignments(table.name),
		}).
		Create(row).Error
	if err != nil {
		return fmt.Errorf("failed to apply %s performance delta: %w", key.Level, err)
	}
	return nil
}

func (p *PerformancePostgreSQL) Get(ctx context.Context, userID string, key models.LevelKey) (*models.PerformanceRecord, error) {
	table, err := tableFor(key.Level)
	if err != nil {
		return nil, err
	}

	query := p.db.WithContext(ctx).
		Table(table.name).
		Select(table.selectColumns()).
		Where("user_id = ? AND "+table.entityColumn+" = ?", userID, key.EntityID)
	if table.hasDifficulty() {
		query = query.Where("difficulty = ?", key.Difficulty)
	}

	var rows []performanceRow
	if err := query.Limit(1).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to get %s performance: %w", key.Level, err)
	}
	if len(rows) == 0 {
		return nil, repositories.ErrNotFound
	}

	record := rows[0].toRecord(key.Level)
	return &record, nil
}

func (p *PerformancePostgreSQL) ListByUser(ctx context.Context, userID string, level models.HierarchyLevel) ([]models.PerformanceRecord, error) {
	table, err := tableFor(level)
	if err != nil {
		return nil, err
	}

	order := table.entityColumn + " ASC"
	if table.hasDifficulty() {
		order += ", difficulty ASC"
	}

	var rows []performanceRow
	err = p.db.WithContext(ctx).
		Table(table.name).
		Select(table.selectColumns()).
		Where("user_id = ?", userID).
		Order(order).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list %s performance: %w", level, err)
	}

	records := make([]models.PerformanceRecord, 0, len(rows))
	for _, r := range rows {
		records = append(records, r.toRecord(level))
	}
	return records, nil
}

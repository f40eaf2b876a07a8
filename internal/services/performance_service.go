package services

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/RISHIK92/adventa-backend/internal/cache"
	"github.com/RISHIK92/adventa-backend/internal/models"
	"github.com/RISHIK92/adventa-backend/internal/repositories"
	"github.com/RISHIK92/adventa-backend/internal/validator"
)

type performanceService struct {
	repo      repositories.Repository
	cache     *cache.CacheManager
	logger    *slog.Logger
	validator *validator.Validator

	communityTTL   time.Duration
	performanceTTL time.Duration
}

// NewPerformanceService serves the read side of the hierarchy. A nil cache
// manager disables caching.
func NewPerformanceService(repo repositories.Repository, cacheManager *cache.CacheManager, logger *slog.Logger, v *validator.Validator, communityTTL time.Duration) PerformanceService {
	if cacheManager == nil {
		cacheManager = cache.NewCacheManager(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if v == nil {
		v = validator.New()
	}
	if communityTTL <= 0 {
		communityTTL = cache.CommunityCacheConfig.TTL
	}
	return &performanceService{
		repo:           repo,
		cache:          cacheManager,
		logger:         logger,
		validator:      v,
		communityTTL:   communityTTL,
		performanceTTL: cache.PerformanceCacheConfig.TTL,
	}
}

func (s *performanceService) GetPerformance(ctx context.Context, userID string, query *models.PerformanceQuery) (*models.PerformanceRecord, error) {
	if err := s.validator.Validate(query); err != nil {
		return nil, err
	}

	record, err := s.repo.Performance().Get(ctx, userID, query.Key())
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrPerformanceNotFound
		}
		return nil, fmt.Errorf("failed to get performance: %w", err)
	}
	return record, nil
}

func (s *performanceService) ListPerformance(ctx context.Context, userID string, level models.HierarchyLevel) (*models.PerformanceListResponse, error) {
	if !level.IsValid() {
		return nil, ValidationErrors{*NewValidationError("level", "unknown hierarchy level", level)}
	}

	response, err := s.cache.Performance.GetOrLoad(ctx, cache.UserPerformanceKey(userID, string(level)), s.performanceTTL, func(ctx context.Context) (models.PerformanceListResponse, error) {
		records, err := s.repo.Performance().ListByUser(ctx, userID, level)
		if err != nil {
			return models.PerformanceListResponse{}, fmt.Errorf("failed to list performance: %w", err)
		}
		return models.PerformanceListResponse{
			Level:   level,
			Records: records,
			Total:   len(records),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return &response, nil
}

func (s *performanceService) GetCommunityAverage(ctx context.Context, userID string, level models.HierarchyLevel, entityID uint) (*models.CommunityComparison, error) {
	if !level.HasCommunityAverage() {
		return nil, ValidationErrors{*NewValidationError("level", "community averages are kept for subject, topic and subtopic only", level)}
	}
	if entityID == 0 {
		return nil, ValidationErrors{*NewValidationError("entity_id", "must be greater than 0", entityID)}
	}

	avg, err := s.cache.Community.GetOrLoad(ctx, cache.CommunityKey(string(level), entityID), s.communityTTL, func(ctx context.Context) (models.CommunityAverage, error) {
		stored, err := s.repo.CommunityAverage().Get(ctx, level, entityID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return models.CommunityAverage{}, ErrCommunityAverageNotFound
			}
			return models.CommunityAverage{}, fmt.Errorf("failed to get community average: %w", err)
		}
		return *stored, nil
	})
	if err != nil {
		return nil, err
	}

	refreshedAt := avg.RefreshedAt
	comparison := &models.CommunityComparison{
		Level:           level,
		EntityID:        entityID,
		AverageAccuracy: avg.AverageAccuracy,
		UserCount:       avg.UserCount,
		RefreshedAt:     &refreshedAt,
	}

	record, err := s.repo.Performance().Get(ctx, userID, models.LevelKey{Level: level, EntityID: entityID})
	switch {
	case err == nil:
		accuracy := record.AccuracyPercent
		comparison.UserAccuracy = &accuracy
	case !repositories.IsNotFoundError(err):
		s.logger.Warn("Failed to load user accuracy for comparison",
			"user_id", userID,
			"level", level,
			"entity_id", entityID,
			"error", err)
	}

	return comparison, nil
}

var exportHeaders = []string{
	"Entity ID", "Difficulty", "Attempted", "Correct", "Incorrect",
	"Time Taken (s)", "Accuracy (%)", "Avg Time / Question (s)", "Updated At",
}

// ExportWorkbook writes one sheet per hierarchy level.
func (s *performanceService) ExportWorkbook(ctx context.Context, userID string) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("Failed to close workbook", "error", err)
		}
	}()

	for i, level := range models.AllLevels {
		records, err := s.repo.Performance().ListByUser(ctx, userID, level)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s performance: %w", level, err)
		}

		sheetName := string(level)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheetName); err != nil {
				return nil, fmt.Errorf("failed to rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sheetName); err != nil {
			return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
		}

		if err := writePerformanceSheet(f, sheetName, records); err != nil {
			return nil, err
		}
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}

	s.logger.Info("Performance exported", "user_id", userID)
	return buf, nil
}

func writePerformanceSheet(f *excelize.File, sheet string, records []models.PerformanceRecord) error {
	for col, header := range exportHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	for i, record := range records {
		row := []interface{}{
			record.EntityID,
			string(record.Difficulty),
			record.TotalAttempted,
			record.TotalCorrect,
			record.TotalIncorrect,
			record.TotalTimeTakenSec,
			models.RoundTo(record.AccuracyPercent, 2),
			models.RoundTo(record.AvgTimePerQuestionSec, 2),
			record.UpdatedAt.Format(time.RFC3339),
		}
		for col, value := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return fmt.Errorf("failed to write row %d: %w", i+2, err)
			}
		}
	}
	return nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/RISHIK92/adventa-backend/internal/cache"
	"github.com/RISHIK92/adventa-backend/internal/events"
	"github.com/RISHIK92/adventa-backend/internal/metrics"
	"github.com/RISHIK92/adventa-backend/internal/models"
	"github.com/RISHIK92/adventa-backend/internal/repositories"
)

const communityRefreshJob = "community_refresh"

type statsRefresher struct {
	repo       repositories.Repository
	background BackgroundRunner
	cache      *cache.CacheManager
	publisher  events.EventPublisher
	metrics    *metrics.Metrics
	logger     *slog.Logger
	now        func() time.Time
}

// NewStatsRefresher recomputes community averages off the request path.
// cacheManager, publisher and m may be nil.
func NewStatsRefresher(repo repositories.Repository, background BackgroundRunner, cacheManager *cache.CacheManager, publisher events.EventPublisher, m *metrics.Metrics, logger *slog.Logger) StatsRefresher {
	if logger == nil {
		logger = slog.Default()
	}
	return &statsRefresher{
		repo:       repo,
		background: background,
		cache:      cacheManager,
		publisher:  publisher,
		metrics:    m,
		logger:     logger,
		now:        time.Now,
	}
}

func (r *statsRefresher) Schedule(req RefreshRequest) bool {
	if req.IsEmpty() {
		return true
	}
	accepted := r.background.TrySubmit(communityRefreshJob, func(ctx context.Context) error {
		return r.Refresh(ctx, req)
	})
	if !accepted {
		r.logger.Warn("Community refresh dropped",
			"subjects", len(req.SubjectIDs),
			"topics", len(req.TopicIDs),
			"subtopics", len(req.SubtopicIDs))
	}
	return accepted
}

// Refresh recomputes every requested entity from scratch. A failing level
// does not stop the others.
func (r *statsRefresher) Refresh(ctx context.Context, req RefreshRequest) error {
	var errs []error
	for _, level := range models.CommunityLevels {
		ids := req.IDs(level)
		if len(ids) == 0 {
			continue
		}
		if err := r.refreshLevel(ctx, level, ids); err != nil {
			r.metrics.RecordRefresh(string(level), "error")
			r.logger.Error("Community refresh failed", "level", level, "error", err)
			errs = append(errs, fmt.Errorf("refresh %s: %w", level, err))
			continue
		}
		r.metrics.RecordRefresh(string(level), "ok")
	}
	return errors.Join(errs...)
}

func (r *statsRefresher) refreshLevel(ctx context.Context, level models.HierarchyLevel, ids []uint) error {
	averages, err := r.repo.CommunityAverage().Aggregate(ctx, level, ids)
	if err != nil {
		return fmt.Errorf("failed to aggregate: %w", err)
	}

	byID := make(map[uint]models.CommunityAverage, len(averages))
	for _, avg := range averages {
		byID[avg.EntityID] = avg
	}

	refreshedAt := r.now()
	for _, id := range ids {
		avg, ok := byID[id]
		if !ok {
			avg = models.CommunityAverage{Level: level, EntityID: id}
		}
		avg.RefreshedAt = refreshedAt

		if err := r.repo.CommunityAverage().Upsert(ctx, &avg); err != nil {
			return fmt.Errorf("failed to store average for entity %d: %w", id, err)
		}

		if r.cache != nil {
			cache.InvalidateCommunityAverage(ctx, r.cache, string(level), id)
		}
		r.publish(ctx, avg)
	}

	r.logger.Debug("Community averages refreshed", "level", level, "entities", len(ids))
	return nil
}

func (r *statsRefresher) publish(ctx context.Context, avg models.CommunityAverage) {
	if r.publisher == nil {
		return
	}
	event := events.NewCommunityStatsRefreshedEvent(events.CommunityStatsRefreshedEvent{
		Level:           string(avg.Level),
		EntityID:        avg.EntityID,
		AverageAccuracy: avg.AverageAccuracy,
		UserCount:       avg.UserCount,
		RefreshedAt:     avg.RefreshedAt,
	})
	if err := r.publisher.Publish(ctx, event); err != nil {
		r.logger.Warn("Failed to publish community refresh event",
			"level", avg.Level,
			"entity_id", avg.EntityID,
			"error", err)
	}
}

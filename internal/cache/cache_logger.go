package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// SafeInvalidatePattern invalidates a pattern and only logs failures
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

// SafeDelete deletes keys and only logs failures
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

func CommunityKey(level string, entityID uint) string {
	return fmt.Sprintf("%s:%d", level, entityID)
}

func UserPerformanceKey(userID, level string) string {
	return fmt.Sprintf("user:%s:%s", userID, level)
}

// InvalidateUserPerformance drops every cached performance list for the user
func InvalidateUserPerformance(ctx context.Context, cm *CacheManager, userID string) {
	SafeInvalidatePattern(ctx, cm.Performance.CacheHelper, fmt.Sprintf("user:%s:*", userID))
}

func InvalidateCommunityAverage(ctx context.Context, cm *CacheManager, level string, entityID uint) {
	SafeDelete(ctx, cm.Community.CacheHelper, CommunityKey(level, entityID))
}

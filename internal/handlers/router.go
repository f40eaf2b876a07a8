package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/RISHIK92/adventa-backend/internal/metrics"
	"github.com/RISHIK92/adventa-backend/internal/services"
	"github.com/RISHIK92/adventa-backend/internal/utils"
)

const healthCheckTimeout = 3 * time.Second

type HandlerManager struct {
	attemptHandler     *AttemptHandler
	performanceHandler *PerformanceHandler
	serviceManager     services.ServiceManager
	metrics            *metrics.Metrics
	logger             utils.Logger
}

// NewHandlerManager expects an initialized service manager. m may be nil.
func NewHandlerManager(serviceManager services.ServiceManager, logger utils.Logger, m *metrics.Metrics) *HandlerManager {
	return &HandlerManager{
		attemptHandler:     NewAttemptHandler(serviceManager.Submission(), logger),
		performanceHandler: NewPerformanceHandler(serviceManager.Performance(), logger),
		serviceManager:     serviceManager,
		metrics:            m,
		logger:             logger,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	if hm.metrics != nil {
		router.Use(hm.metrics.Middleware())
		router.GET("/metrics", hm.metrics.Handler())
	}

	router.GET("/health", hm.health)

	v1 := router.Group("/api/v1")
	v1.Use(UserIdentityMiddleware())
	{
		attempts := v1.Group("/attempts")
		{
			attempts.POST("", hm.attemptHandler.StartAttempt)
			attempts.GET("/:id", hm.attemptHandler.GetAttempt)
			attempts.POST("/:id/answers", hm.attemptHandler.RecordAnswer)
			attempts.POST("/:id/elapsed", hm.attemptHandler.AccumulateElapsed)
			attempts.POST("/:id/submit", hm.attemptHandler.SubmitAttempt)
		}

		performance := v1.Group("/performance")
		{
			performance.GET("/export", hm.performanceHandler.ExportPerformance)
			performance.GET("/:level", hm.performanceHandler.ListPerformance)
			performance.GET("/:level/:entity_id", hm.performanceHandler.GetPerformance)
		}

		v1.GET("/community/:level/:entity_id", hm.performanceHandler.GetCommunityAverage)
	}
}

func (hm *HandlerManager) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	if err := hm.serviceManager.HealthCheck(ctx); err != nil {
		hm.logger.Warn("Health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unhealthy",
			"service": "adventa-backend",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "adventa-backend",
	})
}

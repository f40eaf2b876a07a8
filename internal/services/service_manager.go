package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/RISHIK92/adventa-backend/internal/cache"
	"github.com/RISHIK92/adventa-backend/internal/events"
	"github.com/RISHIK92/adventa-backend/internal/metrics"
	"github.com/RISHIK92/adventa-backend/internal/repositories"
	"github.com/RISHIK92/adventa-backend/internal/validator"
	"github.com/RISHIK92/adventa-backend/internal/worker"
)

// ServiceManager owns the service graph and the background pool behind it.
type ServiceManager interface {
	Initialize(ctx context.Context) error
	Submission() SubmissionService
	Performance() PerformanceService
	Refresher() StatsRefresher
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// ServiceManagerConfig holds configuration for the service manager
type ServiceManagerConfig struct {
	Background        worker.Config
	CommunityCacheTTL time.Duration
}

// ServiceDependencies are the infrastructure pieces built in main.
type ServiceDependencies struct {
	Repo      repositories.Repository
	Buffer    ProgressBuffer
	Cache     *cache.CacheManager
	Publisher events.EventPublisher
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
	Validator *validator.Validator
}

type serviceManager struct {
	deps   ServiceDependencies
	config ServiceManagerConfig

	pool               *worker.Pool
	submissionService  SubmissionService
	performanceService PerformanceService
	refresher          StatsRefresher

	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

func NewServiceManager(deps ServiceDependencies, config ServiceManagerConfig) ServiceManager {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	return &serviceManager{deps: deps, config: config}
}

// NewDefaultServiceManager creates a service manager with default configuration
func NewDefaultServiceManager(deps ServiceDependencies) ServiceManager {
	return NewServiceManager(deps, ServiceManagerConfig{
		Background: worker.Config{
			Workers:    4,
			QueueSize:  256,
			JobTimeout: 30 * time.Second,
		},
		CommunityCacheTTL: cache.CommunityCacheConfig.TTL,
	})
}

// Initialize sets up all services and their dependencies
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}
	if sm.deps.Repo == nil || sm.deps.Buffer == nil {
		return fmt.Errorf("service manager requires a repository and a progress buffer")
	}

	logger := sm.deps.Logger
	logger.Info("Initializing service manager")

	sm.pool = worker.NewPool(sm.config.Background, logger.With("component", "worker_pool"), sm.deps.Metrics)

	sm.refresher = NewStatsRefresher(
		sm.deps.Repo,
		sm.pool,
		sm.deps.Cache,
		sm.deps.Publisher,
		sm.deps.Metrics,
		logger.With("component", "stats_refresher"),
	)

	sm.submissionService = NewSubmissionService(SubmissionDeps{
		Repo:       sm.deps.Repo,
		Buffer:     sm.deps.Buffer,
		Refresher:  sm.refresher,
		Background: sm.pool,
		Publisher:  sm.deps.Publisher,
		Cache:      sm.deps.Cache,
		Metrics:    sm.deps.Metrics,
		Logger:     logger.With("component", "submission"),
		Validator:  sm.deps.Validator,
	})

	sm.performanceService = NewPerformanceService(
		sm.deps.Repo,
		sm.deps.Cache,
		logger.With("component", "performance"),
		sm.deps.Validator,
		sm.config.CommunityCacheTTL,
	)

	sm.initialized = true
	logger.Info("Service manager initialized successfully",
		"workers", sm.config.Background.Workers,
		"queue_size", sm.config.Background.QueueSize)

	return nil
}

func (sm *serviceManager) Submission() SubmissionService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.submissionService
}

func (sm *serviceManager) Performance() PerformanceService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.performanceService
}

func (sm *serviceManager) Refresher() StatsRefresher {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.refresher
}

// HealthCheck fails on the database only. A cache outage degrades reads but
// does not make the service unhealthy.
func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized || sm.shutdown {
		return fmt.Errorf("service manager is not running")
	}
	if err := sm.deps.Repo.Ping(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	if sm.deps.Cache != nil {
		if err := sm.deps.Cache.HealthCheck(ctx); err != nil {
			sm.deps.Logger.Warn("Cache health check failed", "error", err)
		}
	}
	return nil
}

// Shutdown drains queued background work, then closes the event publisher.
func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown || !sm.initialized {
		sm.shutdown = true
		return nil
	}
	sm.shutdown = true

	sm.deps.Logger.Info("Shutting down service manager")

	var shutdownErr error
	if err := sm.pool.Shutdown(ctx); err != nil {
		shutdownErr = fmt.Errorf("background pool did not drain: %w", err)
	}
	if sm.deps.Publisher != nil {
		if err := sm.deps.Publisher.Close(); err != nil {
			sm.deps.Logger.Error("Failed to close event publisher", "error", err)
		}
	}
	return shutdownErr
}

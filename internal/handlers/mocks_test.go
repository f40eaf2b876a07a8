package handlers

import (
	"bytes"
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/RISHIK92/adventa-backend/internal/models"
	"github.com/RISHIK92/adventa-backend/internal/services"
)

// MockSubmissionService is a mock implementation of SubmissionService
type MockSubmissionService struct {
	mock.Mock
}

func (m *MockSubmissionService) StartAttempt(ctx context.Context, userID string, req *models.StartAttemptRequest) (*models.AttemptResponse, error) {
	args := m.Called(ctx, userID, req)
	if v := args.Get(0); v != nil {
		return v.(*models.AttemptResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSubmissionService) GetAttempt(ctx context.Context, attemptID uint, userID string) (*models.AttemptResponse, error) {
	args := m.Called(ctx, attemptID, userID)
	if v := args.Get(0); v != nil {
		return v.(*models.AttemptResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSubmissionService) RecordAnswer(ctx context.Context, attemptID uint, userID string, req *models.RecordAnswerRequest) error {
	args := m.Called(ctx, attemptID, userID, req)
	return args.Error(0)
}

func (m *MockSubmissionService) AccumulateElapsed(ctx context.Context, attemptID uint, userID string, req *models.AccumulateElapsedRequest) (int, error) {
	args := m.Called(ctx, attemptID, userID, req)
	return args.Int(0), args.Error(1)
}

func (m *MockSubmissionService) Submit(ctx context.Context, attemptID uint, userID string) (*models.SubmissionSummary, error) {
	args := m.Called(ctx, attemptID, userID)
	if v := args.Get(0); v != nil {
		return v.(*models.SubmissionSummary), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockPerformanceService is a mock implementation of PerformanceService
type MockPerformanceService struct {
	mock.Mock
}

func (m *MockPerformanceService) GetPerformance(ctx context.Context, userID string, query *models.PerformanceQuery) (*models.PerformanceRecord, error) {
	args := m.Called(ctx, userID, query)
	if v := args.Get(0); v != nil {
		return v.(*models.PerformanceRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPerformanceService) ListPerformance(ctx context.Context, userID string, level models.HierarchyLevel) (*models.PerformanceListResponse, error) {
	args := m.Called(ctx, userID, level)
	if v := args.Get(0); v != nil {
		return v.(*models.PerformanceListResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPerformanceService) GetCommunityAverage(ctx context.Context, userID string, level models.HierarchyLevel, entityID uint) (*models.CommunityComparison, error) {
	args := m.Called(ctx, userID, level, entityID)
	if v := args.Get(0); v != nil {
		return v.(*models.CommunityComparison), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPerformanceService) ExportWorkbook(ctx context.Context, userID string) (*bytes.Buffer, error) {
	args := m.Called(ctx, userID)
	if v := args.Get(0); v != nil {
		return v.(*bytes.Buffer), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockServiceManager hands out the mocked services
type MockServiceManager struct {
	mock.Mock
	submission  *MockSubmissionService
	performance *MockPerformanceService
}

func (m *MockServiceManager) Initialize(ctx context.Context) error { return nil }

func (m *MockServiceManager) Submission() services.SubmissionService { return m.submission }

func (m *MockServiceManager) Performance() services.PerformanceService { return m.performance }

func (m *MockServiceManager) Refresher() services.StatsRefresher { return nil }

func (m *MockServiceManager) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockServiceManager) Shutdown(ctx context.Context) error { return nil }

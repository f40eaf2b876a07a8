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
	"github.com/RISHIK92/adventa-backend/internal/validator"
)

// SubmissionDeps wires the submission service. Cache, Publisher and Metrics
// are optional.
type SubmissionDeps struct {
	Repo       repositories.Repository
	Buffer     ProgressBuffer
	Refresher  StatsRefresher
	Background BackgroundRunner
	Publisher  events.EventPublisher
	Cache      *cache.CacheManager
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
	Validator  *validator.Validator
}

type submissionService struct {
	repo       repositories.Repository
	buffer     ProgressBuffer
	refresher  StatsRefresher
	background BackgroundRunner
	publisher  events.EventPublisher
	cache      *cache.CacheManager
	metrics    *metrics.Metrics
	logger     *slog.Logger
	validator  *validator.Validator
	now        func() time.Time
}

func NewSubmissionService(deps SubmissionDeps) SubmissionService {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	v := deps.Validator
	if v == nil {
		v = validator.New()
	}
	return &submissionService{
		repo:       deps.Repo,
		buffer:     deps.Buffer,
		refresher:  deps.Refresher,
		background: deps.Background,
		publisher:  deps.Publisher,
		cache:      deps.Cache,
		metrics:    deps.Metrics,
		logger:     logger,
		validator:  v,
		now:        time.Now,
	}
}

// ===== ATTEMPT LIFECYCLE =====

func (s *submissionService) StartAttempt(ctx context.Context, userID string, req *models.StartAttemptRequest) (*models.AttemptResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	existing, err := s.repo.Question().CountExisting(ctx, req.QuestionIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to check questions: %w", err)
	}
	if existing != int64(len(req.QuestionIDs)) {
		return nil, fmt.Errorf("%w: %d of %d questions exist", ErrUnknownQuestions, existing, len(req.QuestionIDs))
	}

	policy := models.DefaultScoringPolicy(req.Kind)
	if req.ScoringPolicy != nil {
		policy = *req.ScoringPolicy
	}

	instance := &models.AssessmentInstance{
		UserID:        userID,
		Kind:          req.Kind,
		QuestionIDs:   req.QuestionIDs,
		ScoringPolicy: policy,
	}
	if len(req.QuestionMarks) > 0 {
		instance.QuestionMarks = newQuestionMarks(req.QuestionMarks)
	}

	if err := s.repo.Assessment().Create(ctx, instance); err != nil {
		return nil, fmt.Errorf("failed to create attempt: %w", err)
	}

	s.logger.Info("Attempt started",
		"attempt_id", instance.ID,
		"user_id", userID,
		"kind", instance.Kind,
		"questions", len(instance.QuestionIDs))

	return toAttemptResponse(instance), nil
}

func (s *submissionService) GetAttempt(ctx context.Context, attemptID uint, userID string) (*models.AttemptResponse, error) {
	instance, err := s.loadAttempt(ctx, attemptID, userID)
	if err != nil {
		return nil, err
	}
	return toAttemptResponse(instance), nil
}

// ===== PROGRESS BUFFER =====

func (s *submissionService) RecordAnswer(ctx context.Context, attemptID uint, userID string, req *models.RecordAnswerRequest) error {
	if err := s.validator.Validate(req); err != nil {
		return err
	}
	if _, err := s.loadPendingAttempt(ctx, attemptID, userID); err != nil {
		return err
	}

	entry := models.BufferedAnswer{
		Answer:          req.Answer,
		TimeTakenSec:    req.TimeTakenSec,
		MarkedForReview: req.MarkedForReview,
	}
	if err := s.buffer.Record(ctx, attemptID, req.QuestionID, entry); err != nil {
		return fmt.Errorf("failed to record answer: %w", err)
	}
	s.metrics.RecordBufferedAnswer()
	return nil
}

func (s *submissionService) AccumulateElapsed(ctx context.Context, attemptID uint, userID string, req *models.AccumulateElapsedRequest) (int, error) {
	if err := s.validator.Validate(req); err != nil {
		return 0, err
	}
	if _, err := s.loadPendingAttempt(ctx, attemptID, userID); err != nil {
		return 0, err
	}

	total, err := s.buffer.AccumulateElapsed(ctx, attemptID, req.DeltaSeconds)
	if err != nil {
		return 0, fmt.Errorf("failed to accumulate elapsed time: %w", err)
	}
	return total, nil
}

// ===== SUBMISSION =====

// Submit grades the buffered answers and commits the attempt exactly once.
func (s *submissionService) Submit(ctx context.Context, attemptID uint, userID string) (*models.SubmissionSummary, error) {
	start := time.Now()
	summary, err := s.submit(ctx, attemptID, userID)
	s.metrics.ObserveSubmission(submissionOutcome(err), time.Since(start))
	return summary, err
}

func (s *submissionService) submit(ctx context.Context, attemptID uint, userID string) (*models.SubmissionSummary, error) {
	instance, err := s.loadAttempt(ctx, attemptID, userID)
	if err != nil {
		return nil, err
	}
	if instance.IsCompleted() {
		s.clearBuffer(ctx, attemptID)
		return nil, ErrAttemptAlreadySubmitted
	}

	snapshot, err := s.buffer.Drain(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("failed to read progress buffer: %w", err)
	}
	if len(snapshot.Malformed) > 0 {
		s.logger.Warn("Skipping malformed buffered entries",
			"attempt_id", attemptID,
			"fields", snapshot.Malformed)
		s.metrics.RecordSkippedEntries("malformed", len(snapshot.Malformed))
	}
	if !snapshot.HasAnswers() {
		// A concurrent submission may have committed and cleared the buffer
		// since the instance was loaded.
		if current, err := s.loadAttempt(ctx, attemptID, userID); err == nil && current.IsCompleted() {
			return nil, ErrAttemptAlreadySubmitted
		}
		return nil, ErrEmptySubmission
	}

	questions, err := s.repo.Question().GetByIDsWithHierarchy(ctx, instance.QuestionIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load questions: %w", err)
	}

	grading := s.gradeAttempt(instance, snapshot, questions)
	if grading.buffered == 0 {
		return nil, ErrEmptySubmission
	}

	deltas := AggregateHierarchy(grading.answers)
	outcome := s.buildOutcome(instance, snapshot, grading)

	// Once grading is done the commit runs to completion even if the client
	// goes away.
	commitCtx := context.WithoutCancel(ctx)
	err = s.repo.WithTransaction(commitCtx, func(tx repositories.Repository) error {
		completed, err := tx.Assessment().Complete(commitCtx, attemptID, outcome)
		if err != nil {
			return fmt.Errorf("failed to complete attempt: %w", err)
		}
		if !completed {
			return ErrAttemptAlreadySubmitted
		}

		if err := tx.Answer().CreateBatch(commitCtx, grading.records()); err != nil {
			return fmt.Errorf("failed to store answers: %w", err)
		}

		for _, entry := range deltas.Entries() {
			if err := tx.Performance().ApplyDelta(commitCtx, userID, entry.Key, entry.Delta); err != nil {
				return fmt.Errorf("failed to apply %s delta for entity %d: %w", entry.Key.Level, entry.Key.EntityID, err)
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrAttemptAlreadySubmitted) {
			s.logger.Info("Concurrent submission lost the race", "attempt_id", attemptID, "user_id", userID)
			return nil, ErrAttemptAlreadySubmitted
		}
		s.logger.Error("Submission commit failed, buffer kept for retry",
			"attempt_id", attemptID,
			"user_id", userID,
			"error", err)
		return nil, &TransactionError{AttemptID: attemptID, Err: err}
	}

	summary := buildSummary(attemptID, outcome)
	s.afterCommit(commitCtx, instance, deltas, summary)

	s.logger.Info("Attempt graded",
		"attempt_id", attemptID,
		"user_id", userID,
		"score", summary.Score,
		"correct", summary.CorrectCount,
		"incorrect", summary.IncorrectCount,
		"unattempted", summary.UnattemptedCount)

	return summary, nil
}

// afterCommit runs the best-effort side effects of a successful submission.
// None of them can fail the request.
func (s *submissionService) afterCommit(ctx context.Context, instance *models.AssessmentInstance, deltas HierarchyDeltas, summary *models.SubmissionSummary) {
	s.clearBuffer(ctx, instance.ID)

	if s.cache != nil {
		cache.InvalidateUserPerformance(ctx, s.cache, instance.UserID)
	}

	refresh := deltas.RefreshRequest()
	if s.refresher != nil && !refresh.IsEmpty() {
		if !s.refresher.Schedule(refresh) {
			s.logger.Warn("Community refresh not scheduled", "attempt_id", instance.ID)
		}
	}

	if s.publisher != nil && s.background != nil {
		event := events.NewAttemptGradedEvent(events.AttemptGradedEvent{
			AttemptID:        instance.ID,
			UserID:           instance.UserID,
			Kind:             string(instance.Kind),
			Score:            summary.Score,
			TotalMarks:       summary.TotalMarks,
			CorrectCount:     summary.CorrectCount,
			IncorrectCount:   summary.IncorrectCount,
			UnattemptedCount: summary.UnattemptedCount,
			AccuracyPercent:  summary.AccuracyPercent,
			TimeTakenSec:     summary.TimeTakenSec,
			SubjectIDs:       refresh.SubjectIDs,
			GradedAt:         s.now(),
		})
		publisher := s.publisher
		s.background.TrySubmit("publish_attempt_graded", func(ctx context.Context) error {
			return publisher.Publish(ctx, event)
		})
	}
}

func (s *submissionService) clearBuffer(ctx context.Context, attemptID uint) {
	if err := s.buffer.Clear(ctx, attemptID); err != nil {
		s.logger.Warn("Failed to clear progress buffer", "attempt_id", attemptID, "error", err)
	}
}

func (s *submissionService) loadAttempt(ctx context.Context, attemptID uint, userID string) (*models.AssessmentInstance, error) {
	instance, err := s.repo.Assessment().GetForUser(ctx, attemptID, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to load attempt: %w", err)
	}
	return instance, nil
}

func (s *submissionService) loadPendingAttempt(ctx context.Context, attemptID uint, userID string) (*models.AssessmentInstance, error) {
	instance, err := s.loadAttempt(ctx, attemptID, userID)
	if err != nil {
		return nil, err
	}
	if instance.IsCompleted() {
		return nil, ErrAttemptAlreadySubmitted
	}
	return instance, nil
}

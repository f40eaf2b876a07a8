package services

import (
	"errors"
	"strings"

	"gorm.io/datatypes"

	"github.com/RISHIK92/adventa-backend/internal/cache"
	"github.com/RISHIK92/adventa-backend/internal/models"
)

type gradingResult struct {
	answers []GradedAnswer
	// buffered counts buffered entries that matched a gradable question.
	buffered int

	correct     int
	incorrect   int
	unattempted int
	score       float64
	answerTime  int
}

func (g gradingResult) records() []*models.AnswerRecord {
	out := make([]*models.AnswerRecord, len(g.answers))
	for i, a := range g.answers {
		out[i] = a.Record
	}
	return out
}

// gradeAttempt grades every question of the instance. Questions with no
// buffered entry are recorded as unattempted. Buffered entries for questions
// outside the attempt, questions missing from the content store and
// questions with an unknown difficulty are skipped.
func (s *submissionService) gradeAttempt(instance *models.AssessmentInstance, snapshot *cache.ProgressSnapshot, questions map[uint]*models.Question) gradingResult {
	var result gradingResult
	seen := make(map[uint]bool, len(instance.QuestionIDs))
	var missing, invalid []uint

	for _, questionID := range instance.QuestionIDs {
		if seen[questionID] {
			continue
		}
		seen[questionID] = true

		question, ok := questions[questionID]
		if !ok {
			missing = append(missing, questionID)
			continue
		}
		placement, ok := question.Placement()
		if !ok {
			missing = append(missing, questionID)
			continue
		}
		// The topic_difficulty bucket only exists for the known levels.
		if !placement.Difficulty.IsValid() {
			invalid = append(invalid, questionID)
			continue
		}

		entry, buffered := snapshot.Answers[questionID]
		if buffered {
			result.buffered++
		}

		outcome := GradeAnswer(entry.Answer, question.CorrectOption)
		record := &models.AnswerRecord{
			AttemptID:       instance.ID,
			UserID:          instance.UserID,
			QuestionID:      questionID,
			SubmittedAnswer: submittedValue(entry.Answer, outcome),
			IsCorrect:       outcome.IsCorrect,
			Status:          outcome.Status,
			TimeTakenSec:    entry.TimeTakenSec,
			MarkedForReview: entry.MarkedForReview,
		}

		switch outcome.Status {
		case models.AnswerCorrect:
			result.correct++
			result.score += instance.MarksFor(questionID)
		case models.AnswerIncorrect:
			result.incorrect++
			result.score -= instance.NegativeMarksPerIncorrect
		default:
			result.unattempted++
		}
		result.answerTime += entry.TimeTakenSec
		result.answers = append(result.answers, GradedAnswer{Record: record, Placement: placement})
	}

	if len(missing) > 0 {
		s.logger.Warn("Skipping questions missing from content store",
			"attempt_id", instance.ID,
			"question_ids", missing)
		s.metrics.RecordSkippedEntries("missing_question", len(missing))
	}
	if len(invalid) > 0 {
		s.logger.Warn("Skipping questions with an unknown difficulty",
			"attempt_id", instance.ID,
			"question_ids", invalid)
		s.metrics.RecordSkippedEntries("invalid_difficulty", len(invalid))
	}

	var foreign []uint
	for questionID := range snapshot.Answers {
		if !seen[questionID] {
			foreign = append(foreign, questionID)
		}
	}
	if len(foreign) > 0 {
		s.logger.Warn("Skipping buffered answers for questions outside the attempt",
			"attempt_id", instance.ID,
			"question_ids", foreign)
		s.metrics.RecordSkippedEntries("foreign_question", len(foreign))
	}

	return result
}

func (s *submissionService) buildOutcome(instance *models.AssessmentInstance, snapshot *cache.ProgressSnapshot, g gradingResult) models.AttemptOutcome {
	timeTaken := snapshot.ElapsedSec
	if timeTaken <= 0 {
		timeTaken = g.answerTime
	}
	return models.AttemptOutcome{
		Score:            g.score,
		TotalMarks:       instance.MaxMarks(),
		CorrectCount:     g.correct,
		IncorrectCount:   g.incorrect,
		UnattemptedCount: g.unattempted,
		TimeTakenSec:     timeTaken,
		CompletedAt:      s.now(),
	}
}

func buildSummary(attemptID uint, outcome models.AttemptOutcome) *models.SubmissionSummary {
	var accuracy float64
	if attempted := outcome.CorrectCount + outcome.IncorrectCount; attempted > 0 {
		accuracy = models.RoundTo(float64(outcome.CorrectCount)*100/float64(attempted), 2)
	}
	return &models.SubmissionSummary{
		AttemptID:        attemptID,
		Score:            outcome.Score,
		TotalMarks:       outcome.TotalMarks,
		CorrectCount:     outcome.CorrectCount,
		IncorrectCount:   outcome.IncorrectCount,
		UnattemptedCount: outcome.UnattemptedCount,
		AccuracyPercent:  accuracy,
		TimeTakenSec:     outcome.TimeTakenSec,
	}
}

// submittedValue keeps the trimmed answer, or nil for an unattempted one.
func submittedValue(answer *string, outcome GradeOutcome) *string {
	if answer == nil || outcome.Status == models.AnswerUnattempted {
		return nil
	}
	trimmed := strings.TrimSpace(*answer)
	return &trimmed
}

func toAttemptResponse(instance *models.AssessmentInstance) *models.AttemptResponse {
	return &models.AttemptResponse{
		ID:            instance.ID,
		Kind:          instance.Kind,
		QuestionIDs:   []uint(instance.QuestionIDs),
		ScoringPolicy: instance.ScoringPolicy,
		TotalMarks:    instance.MaxMarks(),
		CreatedAt:     instance.CreatedAt,
		CompletedAt:   instance.CompletedAt,
	}
}

func newQuestionMarks(marks map[uint]float64) datatypes.JSONType[map[uint]float64] {
	copied := make(map[uint]float64, len(marks))
	for id, m := range marks {
		copied[id] = m
	}
	return datatypes.NewJSONType(copied)
}

func submissionOutcome(err error) string {
	switch {
	case err == nil:
		return "graded"
	case IsConflict(err):
		return "already_submitted"
	case errors.Is(err, ErrEmptySubmission):
		return "empty"
	case IsNotFound(err):
		return "not_found"
	case IsTransactionFailure(err):
		return "transaction_failed"
	default:
		return "error"
	}
}

package validator

import (
	"fmt"

	"github.com/RISHIK92/adventa-backend/internal/models"
)

// BusinessValidator checks rules that span more than one field
type BusinessValidator struct{}

func NewBusinessValidator() *BusinessValidator {
	return &BusinessValidator{}
}

// Validate dispatches on the request type. Unknown types pass.
func (bv *BusinessValidator) Validate(s interface{}) ValidationErrors {
	switch req := s.(type) {
	case *models.StartAttemptRequest:
		return bv.ValidateStartAttempt(req)
	case *models.PerformanceQuery:
		return bv.ValidatePerformanceQuery(req)
	}
	return nil
}

// ValidateStartAttempt rejects duplicate questions and marks for questions
// that are not part of the attempt.
func (bv *BusinessValidator) ValidateStartAttempt(req *models.StartAttemptRequest) ValidationErrors {
	var errors ValidationErrors

	seen := make(map[uint]struct{}, len(req.QuestionIDs))
	for _, id := range req.QuestionIDs {
		if _, dup := seen[id]; dup {
			errors = append(errors, ValidationError{
				Field:   "question_ids",
				Message: fmt.Sprintf("question %d appears more than once", id),
				Value:   id,
				Rule:    "unique",
			})
		}
		seen[id] = struct{}{}
	}

	for id := range req.QuestionMarks {
		if _, ok := seen[id]; !ok {
			errors = append(errors, ValidationError{
				Field:   "question_marks",
				Message: fmt.Sprintf("question %d is not part of the attempt", id),
				Value:   id,
				Rule:    "subset",
			})
		}
	}

	if p := req.ScoringPolicy; p != nil && p.MarksPerCorrect == 0 {
		errors = append(errors, ValidationError{
			Field:   "scoring_policy.marks_per_correct",
			Message: "must be greater than 0",
			Value:   p.MarksPerCorrect,
			Rule:    "gt",
		})
	}

	return errors
}

// ValidatePerformanceQuery requires a difficulty exactly when the level is
// topic_difficulty.
func (bv *BusinessValidator) ValidatePerformanceQuery(q *models.PerformanceQuery) ValidationErrors {
	if q.Level == models.LevelTopicDifficulty && q.Difficulty == "" {
		return ValidationErrors{{
			Field:   "difficulty",
			Message: "is required for topic_difficulty",
			Rule:    "required_with_level",
		}}
	}
	if q.Level != models.LevelTopicDifficulty && q.Difficulty != "" {
		return ValidationErrors{{
			Field:   "difficulty",
			Message: "is only allowed for topic_difficulty",
			Value:   q.Difficulty,
			Rule:    "excluded_with_level",
		}}
	}
	return nil
}

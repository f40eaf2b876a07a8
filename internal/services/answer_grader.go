package services

import (
	"strings"

	"github.com/RISHIK92/adventa-backend/internal/models"
)

type GradeOutcome struct {
	IsCorrect bool
	Status    models.AnswerStatus
}

// GradeAnswer compares a submitted option with the correct one after
// trimming and case folding both. A missing or blank submission is always
// unattempted.
func GradeAnswer(submitted *string, correctOption string) GradeOutcome {
	if submitted == nil {
		return GradeOutcome{Status: models.AnswerUnattempted}
	}

	answer := strings.TrimSpace(*submitted)
	if answer == "" {
		return GradeOutcome{Status: models.AnswerUnattempted}
	}

	if strings.EqualFold(answer, strings.TrimSpace(correctOption)) {
		return GradeOutcome{IsCorrect: true, Status: models.AnswerCorrect}
	}
	return GradeOutcome{Status: models.AnswerIncorrect}
}

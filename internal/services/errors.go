package services

import (
	"errors"
	"fmt"

	apperrors "github.com/RISHIK92/adventa-backend/internal/errors"
)

var (
	ErrValidationFailed = errors.New("validation failed")

	ErrAttemptNotFound         = errors.New("attempt not found")
	ErrAttemptAlreadySubmitted = errors.New("attempt already submitted")
	ErrEmptySubmission         = errors.New("nothing to submit: no answers recorded for this attempt")

	ErrUnknownQuestions = errors.New("attempt references unknown questions")

	ErrPerformanceNotFound      = errors.New("no performance recorded yet")
	ErrCommunityAverageNotFound = errors.New("community average not available yet")
)

type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

// TransactionError means the submission commit failed as a whole. Nothing
// was persisted and the progress buffer is still intact, so the client may
// retry.
type TransactionError struct {
	AttemptID uint
	Err       error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("failed to commit submission for attempt %d: %v", e.AttemptID, e.Err)
}

func (e *TransactionError) Unwrap() error {
	return e.Err
}

func NewValidationError(field, message string, value interface{}) *ValidationError {
	return apperrors.NewValidationError(field, message, value)
}

// IsNotFound checks if error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAttemptNotFound) ||
		errors.Is(err, ErrPerformanceNotFound) ||
		errors.Is(err, ErrCommunityAverageNotFound)
}

// IsConflict checks if error represents a state conflict
func IsConflict(err error) bool {
	return errors.Is(err, ErrAttemptAlreadySubmitted)
}

// IsValidation checks if error represents a validation failure
func IsValidation(err error) bool {
	if errors.Is(err, ErrValidationFailed) || errors.Is(err, ErrUnknownQuestions) {
		return true
	}
	var ve ValidationErrors
	if errors.As(err, &ve) {
		return true
	}
	var single *ValidationError
	return errors.As(err, &single)
}

func IsTransactionFailure(err error) bool {
	var te *TransactionError
	return errors.As(err, &te)
}

package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/RISHIK92/adventa-backend/internal/services"
)

// parseIDParam writes a 400 and returns 0 when the path parameter is not a
// positive integer.
func (h *BaseHandler) parseIDParam(c *gin.Context, param string) uint {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	if err != nil || id == 0 {
		details := "must be a positive integer"
		if err != nil {
			details = err.Error()
		}
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + param,
			Details: details,
			Code:    "invalid_request",
		})
		return 0
	}
	return uint(id)
}

// currentUser writes a 401 when no identity was attached to the request.
func (h *BaseHandler) currentUser(c *gin.Context) (string, bool) {
	userID := h.extractUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
			Code:    "unauthenticated",
		})
		return "", false
	}
	return userID, true
}

func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationErrors,
			Code:    "validation_failed",
		})
		return
	}

	var transactionErr *services.TransactionError
	if errors.As(err, &transactionErr) {
		h.LogError(c, err, "Submission commit failed", "attempt_id", transactionErr.AttemptID)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Submission could not be saved, please retry",
			Code:    "transaction_failed",
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrUnknownQuestions):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Message: "Attempt references unknown questions",
			Details: err.Error(),
			Code:    "unknown_questions",
		})
	case services.IsValidation(err):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: err.Error(),
			Code:    "validation_failed",
		})
	case errors.Is(err, services.ErrAttemptNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Attempt not found",
			Code:    "attempt_not_found",
		})
	case errors.Is(err, services.ErrPerformanceNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "No performance recorded yet",
			Code:    "performance_not_found",
		})
	case errors.Is(err, services.ErrCommunityAverageNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Community average not available yet",
			Code:    "community_average_not_found",
		})
	case errors.Is(err, services.ErrAttemptAlreadySubmitted):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Attempt already submitted",
			Code:    "already_submitted",
		})
	case errors.Is(err, services.ErrEmptySubmission):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Message: "No answers recorded for this attempt",
			Code:    "empty_submission",
		})
	default:
		h.LogError(c, err, "Unexpected service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
		})
	}
}

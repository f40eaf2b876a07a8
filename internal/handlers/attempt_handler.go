package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/RISHIK92/adventa-backend/internal/models"
	"github.com/RISHIK92/adventa-backend/internal/services"
	"github.com/RISHIK92/adventa-backend/internal/utils"
)

type AttemptHandler struct {
	BaseHandler
	submissionService services.SubmissionService
}

func NewAttemptHandler(submissionService services.SubmissionService, logger utils.Logger) *AttemptHandler {
	return &AttemptHandler{
		BaseHandler:       NewBaseHandler(logger),
		submissionService: submissionService,
	}
}

// StartAttempt creates an assessment instance for the caller
// @Summary Start attempt
// @Tags attempts
// @Accept json
// @Produce json
// @Param attempt body models.StartAttemptRequest true "Attempt definition"
// @Success 201 {object} models.AttemptResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /attempts [post]
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	var req models.StartAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
			Code:    "invalid_request",
		})
		return
	}

	h.LogRequest(c, "Starting attempt", "kind", req.Kind, "questions", len(req.QuestionIDs))

	attempt, err := h.submissionService.StartAttempt(c.Request.Context(), userID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, attempt)
}

// GetAttempt returns one of the caller's attempts
// @Summary Get attempt
// @Tags attempts
// @Produce json
// @Param id path uint true "Attempt ID"
// @Success 200 {object} models.AttemptResponse
// @Failure 404 {object} ErrorResponse
// @Router /attempts/{id} [get]
func (h *AttemptHandler) GetAttempt(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	attempt, err := h.submissionService.GetAttempt(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, attempt)
}

// RecordAnswer buffers an answer until the attempt is submitted
// @Summary Record answer
// @Description Overwrites any earlier answer for the same question
// @Tags attempts
// @Accept json
// @Produce json
// @Param id path uint true "Attempt ID"
// @Param answer body models.RecordAnswerRequest true "Answer"
// @Success 204
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /attempts/{id}/answers [post]
func (h *AttemptHandler) RecordAnswer(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req models.RecordAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
			Code:    "invalid_request",
		})
		return
	}

	if err := h.submissionService.RecordAnswer(c.Request.Context(), id, userID, &req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// AccumulateElapsed adds client-reported seconds to the attempt's timer
// @Summary Accumulate elapsed time
// @Tags attempts
// @Accept json
// @Produce json
// @Param id path uint true "Attempt ID"
// @Param elapsed body models.AccumulateElapsedRequest true "Seconds to add"
// @Success 200 {object} map[string]int
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /attempts/{id}/elapsed [post]
func (h *AttemptHandler) AccumulateElapsed(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req models.AccumulateElapsedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
			Code:    "invalid_request",
		})
		return
	}

	total, err := h.submissionService.AccumulateElapsed(c.Request.Context(), id, userID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"total_time_sec": total})
}

// SubmitAttempt grades the buffered answers and finalizes the attempt
// @Summary Submit attempt
// @Tags attempts
// @Produce json
// @Param id path uint true "Attempt ID"
// @Success 200 {object} models.SubmissionSummary
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /attempts/{id}/submit [post]
func (h *AttemptHandler) SubmitAttempt(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Submitting attempt", "attempt_id", id)

	summary, err := h.submissionService.Submit(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

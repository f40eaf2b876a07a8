package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/RISHIK92/adventa-backend/internal/models"
	"github.com/RISHIK92/adventa-backend/internal/services"
	"github.com/RISHIK92/adventa-backend/internal/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type PerformanceHandler struct {
	BaseHandler
	performanceService services.PerformanceService
}

func NewPerformanceHandler(performanceService services.PerformanceService, logger utils.Logger) *PerformanceHandler {
	return &PerformanceHandler{
		BaseHandler:        NewBaseHandler(logger),
		performanceService: performanceService,
	}
}

// ListPerformance lists the caller's records at one hierarchy level
// @Summary List performance
// @Tags performance
// @Produce json
// @Param level path string true "subject, topic, topic_difficulty or subtopic"
// @Success 200 {object} models.PerformanceListResponse
// @Failure 400 {object} ErrorResponse
// @Router /performance/{level} [get]
func (h *PerformanceHandler) ListPerformance(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	list, err := h.performanceService.ListPerformance(c.Request.Context(), userID, models.HierarchyLevel(c.Param("level")))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, list)
}

// GetPerformance returns a single record
// @Summary Get performance
// @Tags performance
// @Produce json
// @Param level path string true "Hierarchy level"
// @Param entity_id path uint true "Subject, topic or subtopic ID"
// @Param difficulty query string false "Required for topic_difficulty"
// @Success 200 {object} models.PerformanceRecord
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /performance/{level}/{entity_id} [get]
func (h *PerformanceHandler) GetPerformance(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	entityID := h.parseIDParam(c, "entity_id")
	if entityID == 0 {
		return
	}

	query := &models.PerformanceQuery{
		Level:      models.HierarchyLevel(c.Param("level")),
		EntityID:   entityID,
		Difficulty: models.DifficultyLevel(c.Query("difficulty")),
	}

	record, err := h.performanceService.GetPerformance(c.Request.Context(), userID, query)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

// GetCommunityAverage compares the caller with everyone else on an entity
// @Summary Community average
// @Tags performance
// @Produce json
// @Param level path string true "subject, topic or subtopic"
// @Param entity_id path uint true "Entity ID"
// @Success 200 {object} models.CommunityComparison
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /community/{level}/{entity_id} [get]
func (h *PerformanceHandler) GetCommunityAverage(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	entityID := h.parseIDParam(c, "entity_id")
	if entityID == 0 {
		return
	}

	comparison, err := h.performanceService.GetCommunityAverage(c.Request.Context(), userID, models.HierarchyLevel(c.Param("level")), entityID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, comparison)
}

// ExportPerformance downloads every level as an XLSX workbook
// @Summary Export performance
// @Tags performance
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success 200 {file} file
// @Router /performance/export [get]
func (h *PerformanceHandler) ExportPerformance(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Exporting performance workbook")

	buf, err := h.performanceService.ExportWorkbook(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	filename := fmt.Sprintf("performance_%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

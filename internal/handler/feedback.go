package handler

import (
	"errors"
	"net/http"

	"tripplanner/internal/model"
	"tripplanner/internal/repository"
	"tripplanner/internal/service"

	"github.com/gin-gonic/gin"
)

// FeedbackHandler handles plan feedback HTTP requests
type FeedbackHandler struct {
	planService *service.PlanService
}

// NewFeedbackHandler creates a new feedback handler
func NewFeedbackHandler(planService *service.PlanService) *FeedbackHandler {
	return &FeedbackHandler{
		planService: planService,
	}
}

// Submit handles POST /api/v1/feedback
func (h *FeedbackHandler) Submit(c *gin.Context) {
	var req model.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	err := h.planService.LogFeedback(c.Request.Context(), req.PlanID, req.Action)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrInvalidFeedbackAction):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid action. Must be one of: accept, reject, regenerate"})
		return
	case errors.Is(err, repository.ErrPlanNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Plan not found"})
		return
	case errors.Is(err, service.ErrStoreUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Feedback requires the PostgreSQL data source"})
		return
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to log feedback: " + err.Error()})
		return
	}

	response := model.FeedbackResponse{
		Success: true,
		Message: "Feedback logged successfully",
	}

	c.JSON(http.StatusOK, response)
}

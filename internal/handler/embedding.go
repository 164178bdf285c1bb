package handler

import (
	"fmt"
	"net/http"

	"tripplanner/internal/model"
	"tripplanner/internal/service"

	"github.com/gin-gonic/gin"
)

// EmbeddingDimensions matches the activities.embedding column
const EmbeddingDimensions = 1536

// EmbeddingHandler handles activity embedding HTTP requests
type EmbeddingHandler struct {
	planService *service.PlanService
	dimensions  int
}

// NewEmbeddingHandler creates a new embedding handler
func NewEmbeddingHandler(planService *service.PlanService, dimensions int) *EmbeddingHandler {
	if dimensions <= 0 {
		dimensions = EmbeddingDimensions
	}
	return &EmbeddingHandler{
		planService: planService,
		dimensions:  dimensions,
	}
}

// BatchUpdate handles POST /api/v1/embeddings/batch. Items may carry a
// ready vector or only the text to embed.
func (h *EmbeddingHandler) BatchUpdate(c *gin.Context) {
	var req model.EmbeddingBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	if len(req.Embeddings) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No embeddings provided"})
		return
	}

	// Validate embedding dimensions
	for i, item := range req.Embeddings {
		if len(item.Embedding) > 0 && len(item.Embedding) != h.dimensions {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": fmt.Sprintf("Invalid embedding dimension at index %d, expected %d", i, h.dimensions),
			})
			return
		}
	}

	success, errors := h.planService.UpdateEmbeddings(c.Request.Context(), req.Embeddings)

	response := model.EmbeddingBatchResponse{
		Success: success,
		Failed:  len(req.Embeddings) - success,
		Errors:  errors,
	}

	if len(errors) > 0 {
		c.JSON(http.StatusPartialContent, response)
	} else {
		c.JSON(http.StatusOK, response)
	}
}

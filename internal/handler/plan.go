package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"tripplanner/internal/model"
	"tripplanner/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// PlanHandler handles itinerary planning HTTP requests
type PlanHandler struct {
	planService *service.PlanService
}

// NewPlanHandler creates a new plan handler
func NewPlanHandler(planService *service.PlanService) *PlanHandler {
	return &PlanHandler{
		planService: planService,
	}
}

// Plan handles POST /api/v1/plan
func (h *PlanHandler) Plan(c *gin.Context) {
	var req model.PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	response, err := h.planService.Plan(c.Request.Context(), &req)
	if err != nil {
		respondPlanError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// Build handles POST /api/v1/itinerary/build with caller-supplied candidates
func (h *PlanHandler) Build(c *gin.Context) {
	var req model.BuildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	response, err := h.planService.BuildFromCandidates(c.Request.Context(), &req)
	if err != nil {
		respondPlanError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// PlanStream handles POST /api/v1/plan/stream - SSE streaming planning.
// Events: start, research, candidates, optimize, narrate, narration chunks,
// then results and done. A narration_reset event tells the client to drop
// the narration chunks it has shown; its content is the final description.
func (h *PlanHandler) PlanStream(c *gin.Context) {
	var req model.PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	// Create flusher for SSE
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Streaming not supported"})
		return
	}

	// Set SSE headers
	c.Header("Content-Type", "text/event-stream; charset=utf-8")
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	// Send initial event
	sendSSE(c, "start", map[string]any{"destination": req.Destination})
	flusher.Flush()

	response, err := h.planService.PlanStream(c.Request.Context(), &req, func(event string, data any) error {
		if err := c.Request.Context().Err(); err != nil {
			return err
		}
		sendSSE(c, event, data)
		flusher.Flush()
		return nil
	})

	if err != nil {
		log.Warn().Err(err).Str("destination", req.Destination).Msg("Streaming plan failed")
		sendSSE(c, "error", map[string]any{"error": err.Error()})
		flusher.Flush()
		return
	}

	// Send final results
	sendSSE(c, "results", response)
	flusher.Flush()

	// Send done event
	sendSSE(c, "done", nil)
	flusher.Flush()
}

func respondPlanError(c *gin.Context, err error) {
	if errors.Is(err, model.ErrInvalidField) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid candidate data: " + err.Error()})
		return
	}
	log.Error().Err(err).Msg("Planning failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Planning failed: " + err.Error()})
}

// sendSSE sends a Server-Sent Event
func sendSSE(c *gin.Context, event string, data any) {
	if data != nil {
		jsonData, err := json.Marshal(data)
		if err != nil {
			fmt.Fprintf(c.Writer, "event: error\ndata: {\"error\": \"JSON marshal failed\"}\n\n")
			return
		}
		fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, string(jsonData))
	} else {
		fmt.Fprintf(c.Writer, "event: %s\ndata: {}\n\n", event)
	}
}

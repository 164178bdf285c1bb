package handler

import (
	"errors"
	"net/http"

	"tripplanner/internal/model"
	"tripplanner/internal/service"

	"github.com/gin-gonic/gin"
)

// WeatherHandler handles forecast HTTP requests
type WeatherHandler struct {
	weatherService *service.WeatherService
}

// NewWeatherHandler creates a new weather handler
func NewWeatherHandler(weatherService *service.WeatherService) *WeatherHandler {
	return &WeatherHandler{weatherService: weatherService}
}

// Forecast handles POST /api/v1/weather
func (h *WeatherHandler) Forecast(c *gin.Context) {
	var req model.WeatherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	response, err := h.weatherService.Forecast(c.Request.Context(), req.City)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, response)
	case errors.Is(err, service.ErrWeatherDisabled):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "OpenWeather API key not set. Please configure OPENWEATHER_API_KEY in .env"})
	case errors.Is(err, service.ErrWeatherUpstream):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": "Weather lookup failed: " + err.Error()})
	}
}

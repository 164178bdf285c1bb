package main

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"tripplanner/internal/config"
	"tripplanner/internal/handler"
	"tripplanner/internal/metrics"
)

// routes bundles the HTTP handlers mounted by newRouter
type routes struct {
	plan       *handler.PlanHandler
	embedding  *handler.EmbeddingHandler
	feedback   *handler.FeedbackHandler
	weather    *handler.WeatherHandler
	metrics    *metrics.Metrics
	dataSource string
}

func newRouter(serverCfg config.ServerConfig, r routes) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), handler.RequestLogger())

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = splitList(serverCfg.AllowedOrigins)
	corsConfig.AllowMethods = splitList(serverCfg.AllowedMethods)
	corsConfig.AllowHeaders = splitList(serverCfg.AllowedHeaders)
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "healthy",
			"service":     "trip-planner",
			"data_source": r.dataSource,
			"version":     Version,
			"build_time":  BuildTime,
			"git_commit":  GitCommit,
		})
	})

	// Version endpoint
	router.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
			"git_commit": GitCommit,
		})
	})

	if r.metrics != nil {
		router.GET("/metrics", gin.WrapH(r.metrics.Handler()))
	}

	// API routes
	apiV1 := router.Group("/api/v1")
	{
		// Planning endpoints
		apiV1.POST("/plan", r.plan.Plan)
		apiV1.POST("/plan/stream", r.plan.PlanStream) // Streaming planning
		apiV1.POST("/itinerary/build", r.plan.Build)

		// Weather endpoint
		apiV1.POST("/weather", r.weather.Forecast)

		// Embedding endpoints
		apiV1.POST("/embeddings/batch", r.embedding.BatchUpdate)

		// Feedback endpoint
		apiV1.POST("/feedback", r.feedback.Submit)
	}

	return router
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

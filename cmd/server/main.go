package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"tripplanner/internal/config"
	"tripplanner/internal/handler"
	"tripplanner/internal/logger"
	"tripplanner/internal/metrics"
	"tripplanner/internal/repository"
	"tripplanner/internal/service"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging)

	log.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("git_commit", GitCommit).
		Msg("AI Trip Planner")

	// Set Gin mode
	gin.SetMode(cfg.Server.GinMode)

	m := metrics.New()

	limits := repository.RelaxLimits{
		Flights:    cfg.Planner.RelaxFlightLimit,
		Hotels:     cfg.Planner.RelaxHotelLimit,
		Activities: cfg.Planner.RelaxActivityLimit,
	}

	// Initialize candidate source
	var (
		source repository.CandidateSource
		store  service.PlanStore
	)
	switch cfg.Planner.DataSource {
	case config.DataSourceCSV:
		source = repository.NewCSVSource(cfg.Planner.DataDir, limits)
		log.Info().Str("dir", cfg.Planner.DataDir).Msg("Using CSV candidate data")
	default:
		repo, err := repository.NewPostgresRepository(
			cfg.GetPostgreSQLDSN(),
			cfg.PostgreSQL.MaxConnections,
			cfg.PostgreSQL.MaxIdleConnections,
		)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer repo.Close()

		repo.SetRelaxLimits(limits)
		source = repo
		store = repo
		log.Info().Msg("Connected to PostgreSQL database")
	}

	// Initialize OpenAI client
	var aiClient service.AIClient
	var narrator service.Narrator
	if cfg.OpenAI.Enabled {
		openaiClient := service.NewOpenAIClient(&cfg.OpenAI)
		aiClient = openaiClient
		narrator = service.NewGenerativeNarrator(openaiClient)
		log.Info().
			Str("api_base", cfg.OpenAI.APIBase).
			Str("chat_model", cfg.OpenAI.ChatModel).
			Str("embedding_model", cfg.OpenAI.EmbeddingModel).
			Float64("chat_temperature", cfg.OpenAI.ChatTemperature).
			Int("chat_max_tokens", cfg.OpenAI.ChatMaxTokens).
			Msg("OpenAI client initialized")
	} else {
		log.Warn().Msg("OPENAI_API_KEY not set, itinerary descriptions will use the template")
	}

	// Initialize services
	scorer := service.NewScorer(service.ScoringWeights{
		HotelPrice:           cfg.Ranking.HotelPriceWeight,
		HotelRating:          cfg.Ranking.HotelRatingWeight,
		ActivityPriceDivisor: cfg.Ranking.ActivityPriceDivisor,
		InterestBoost:        cfg.Ranking.ActivityInterestBoost,
	})
	describer := service.NewFallbackNarrator(narrator, service.NewTemplateNarrator(cfg.Planner.TemplateCurrency), m)
	builder := service.NewBuilder(describer, cfg.Planner.ActivitiesPerDay, cfg.Planner.DefaultDays)
	builder.SetMaxDays(cfg.Planner.MaxDays)
	planService := service.NewPlanService(source, store, scorer, builder, aiClient, m, cfg.Planner.DefaultDays)

	weatherService := service.NewWeatherService(&cfg.Weather, m)
	if !weatherService.IsEnabled() {
		log.Warn().Msg("OPENWEATHER_API_KEY not set, weather forecasts are unavailable")
	}

	log.Info().Msg("Services initialized")

	// Setup Gin router
	router := newRouter(cfg.Server, routes{
		plan:       handler.NewPlanHandler(planService),
		embedding:  handler.NewEmbeddingHandler(planService, handler.EmbeddingDimensions),
		feedback:   handler.NewFeedbackHandler(planService),
		weather:    handler.NewWeatherHandler(weatherService),
		metrics:    m,
		dataSource: cfg.Planner.DataSource,
	})

	// Serve static files (frontend)
	// This function is implemented in embed.go (production) or static_dev.go (development)
	setupStaticFiles(router)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Str("addr", addr).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shut down")
	}
	log.Info().Msg("Server stopped")
}

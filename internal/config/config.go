package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Candidate data sources
const (
	DataSourcePostgres = "postgres"
	DataSourceCSV      = "csv"
)

// Config holds all configuration for the application
type Config struct {
	PostgreSQL PostgreSQLConfig
	Server     ServerConfig
	Planner    PlannerConfig
	Ranking    RankingConfig
	Logging    LoggingConfig
	OpenAI     OpenAIConfig
	Weather    WeatherConfig
}

// PostgreSQLConfig holds PostgreSQL database configuration
type PostgreSQLConfig struct {
	DSN                string // full connection string, preferred when set
	Host               string
	Port               int
	User               string
	Password           string
	Database           string
	SSLMode            string
	MaxConnections     int
	MaxIdleConnections int
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	Host           string
	GinMode        string
	AllowedOrigins string
	AllowedMethods string
	AllowedHeaders string
}

// PlannerConfig holds itinerary assembly defaults
type PlannerConfig struct {
	DataSource         string // "postgres" or "csv"
	DataDir            string // directory holding flights.csv, hotels.csv, activities.csv
	DefaultDays        int
	MaxDays            int // upper bound on planned days, at most 365
	ActivitiesPerDay   int
	RelaxFlightLimit   int
	RelaxHotelLimit    int
	RelaxActivityLimit int
	TemplateCurrency   string
}

// RankingConfig holds scoring weights configuration
type RankingConfig struct {
	HotelPriceWeight      float64
	HotelRatingWeight     float64
	ActivityPriceDivisor  float64
	ActivityInterestBoost float64
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// OpenAIConfig holds OpenAI API configuration
type OpenAIConfig struct {
	APIKey            string
	APIBase           string
	ChatModel         string
	ChatTemperature   float64
	ChatMaxTokens     int
	Timeout           int
	RequestsPerSecond float64
	EmbeddingModel    string
	BatchSize         int
	Enabled           bool
}

// WeatherConfig holds OpenWeather API configuration
type WeatherConfig struct {
	APIKey  string
	APIBase string
	Timeout int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (optional)
	_ = godotenv.Load()

	cfg := &Config{
		PostgreSQL: PostgreSQLConfig{
			DSN:                getEnv("DATABASE_URL", getEnv("POSTGRESQL_URI", getEnv("PG_DSN", ""))),
			Host:               getEnv("PG_HOST", "localhost"),
			Port:               getEnvAsInt("PG_PORT", 5432),
			User:               getEnv("PG_USER", "postgres"),
			Password:           getEnv("PG_PASSWORD", ""),
			Database:           getEnv("PG_DATABASE", "trip_planner"),
			SSLMode:            getEnv("PG_SSLMODE", "disable"),
			MaxConnections:     getEnvAsInt("PG_MAX_CONNECTIONS", 25),
			MaxIdleConnections: getEnvAsInt("PG_MAX_IDLE_CONNECTIONS", 5),
		},
		Server: ServerConfig{
			Port:           getEnvAsInt("SERVER_PORT", 8000),
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			GinMode:        getEnv("GIN_MODE", "release"),
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			AllowedMethods: getEnv("CORS_ALLOWED_METHODS", "GET,POST,OPTIONS"),
			AllowedHeaders: getEnv("CORS_ALLOWED_HEADERS", "Content-Type,Authorization"),
		},
		Planner: PlannerConfig{
			DataSource:         getEnv("PLANNER_DATA_SOURCE", DataSourcePostgres),
			DataDir:            getEnv("PLANNER_DATA_DIR", "./mock_data"),
			DefaultDays:        getEnvAsInt("PLANNER_DEFAULT_DAYS", 3),
			MaxDays:            getEnvAsInt("PLANNER_MAX_DAYS", 30),
			ActivitiesPerDay:   getEnvAsInt("PLANNER_ACTIVITIES_PER_DAY", 2),
			RelaxFlightLimit:   getEnvAsInt("PLANNER_RELAX_FLIGHT_LIMIT", 5),
			RelaxHotelLimit:    getEnvAsInt("PLANNER_RELAX_HOTEL_LIMIT", 5),
			RelaxActivityLimit: getEnvAsInt("PLANNER_RELAX_ACTIVITY_LIMIT", 10),
			TemplateCurrency:   getEnv("PLANNER_TEMPLATE_CURRENCY", "₹"),
		},
		Ranking: RankingConfig{
			HotelPriceWeight:      getEnvAsFloat("RANK_HOTEL_PRICE_WEIGHT", 0.6),
			HotelRatingWeight:     getEnvAsFloat("RANK_HOTEL_RATING_WEIGHT", 0.4),
			ActivityPriceDivisor:  getEnvAsFloat("RANK_ACTIVITY_PRICE_DIVISOR", 1000),
			ActivityInterestBoost: getEnvAsFloat("RANK_ACTIVITY_INTEREST_BOOST", 1),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		OpenAI: OpenAIConfig{
			APIKey:            getEnv("OPENAI_API_KEY", ""),
			APIBase:           getEnv("OPENAI_API_BASE", "https://api.openai.com/v1"),
			ChatModel:         getEnv("OPENAI_CHAT_MODEL", "gpt-4o-mini"),
			ChatTemperature:   getEnvAsFloat("OPENAI_CHAT_TEMPERATURE", 0.7),
			ChatMaxTokens:     getEnvAsInt("OPENAI_CHAT_MAX_TOKENS", 400),
			Timeout:           getEnvAsInt("OPENAI_TIMEOUT", 30),
			RequestsPerSecond: getEnvAsFloat("OPENAI_REQUESTS_PER_SECOND", 5),
			EmbeddingModel:    getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
			BatchSize:         getEnvAsInt("OPENAI_BATCH_SIZE", 100),
			Enabled:           getEnv("OPENAI_API_KEY", "") != "",
		},
		Weather: WeatherConfig{
			APIKey:  getEnv("OPENWEATHER_API_KEY", ""),
			APIBase: getEnv("OPENWEATHER_API_BASE", "https://api.openweathermap.org"),
			Timeout: getEnvAsInt("OPENWEATHER_TIMEOUT", 10),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Planner.DataSource != DataSourcePostgres && c.Planner.DataSource != DataSourceCSV {
		return fmt.Errorf("invalid PLANNER_DATA_SOURCE %q, must be postgres or csv", c.Planner.DataSource)
	}
	if c.Planner.DefaultDays < 1 {
		return fmt.Errorf("PLANNER_DEFAULT_DAYS must be at least 1, got %d", c.Planner.DefaultDays)
	}
	if c.Planner.MaxDays < 1 || c.Planner.MaxDays > 365 {
		return fmt.Errorf("PLANNER_MAX_DAYS must be between 1 and 365, got %d", c.Planner.MaxDays)
	}
	if c.Planner.DefaultDays > c.Planner.MaxDays {
		return fmt.Errorf("PLANNER_DEFAULT_DAYS (%d) exceeds PLANNER_MAX_DAYS (%d)", c.Planner.DefaultDays, c.Planner.MaxDays)
	}
	if c.Planner.ActivitiesPerDay < 1 {
		return fmt.Errorf("PLANNER_ACTIVITIES_PER_DAY must be at least 1, got %d", c.Planner.ActivitiesPerDay)
	}
	if c.Ranking.ActivityPriceDivisor <= 0 {
		return fmt.Errorf("RANK_ACTIVITY_PRICE_DIVISOR must be positive, got %f", c.Ranking.ActivityPriceDivisor)
	}
	return nil
}

// GetPostgreSQLDSN returns PostgreSQL connection string
func (c *Config) GetPostgreSQLDSN() string {
	if c.PostgreSQL.DSN != "" {
		return c.PostgreSQL.DSN
	}

	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgreSQL.Host,
		c.PostgreSQL.Port,
		c.PostgreSQL.User,
		c.PostgreSQL.Password,
		c.PostgreSQL.Database,
		c.PostgreSQL.SSLMode,
	)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// Invalid values are reported with the standard logger: config is loaded
// before the structured logger exists.
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer value for %s, using default %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Warning: Invalid float value for %s, using default %f", key, defaultValue)
		return defaultValue
	}
	return value
}

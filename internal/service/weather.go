package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"tripplanner/internal/config"
	"tripplanner/internal/metrics"
	"tripplanner/internal/model"
)

var (
	// ErrWeatherDisabled is returned when no OpenWeather API key is configured
	ErrWeatherDisabled = errors.New("OpenWeather API key not set")

	// ErrWeatherUpstream wraps non-200 answers from OpenWeather
	ErrWeatherUpstream = errors.New("weather provider error")
)

// WeatherService summarises OpenWeather 3-hour forecasts into daily entries
type WeatherService struct {
	config     *config.WeatherConfig
	httpClient *http.Client
	metrics    *metrics.Metrics
}

// NewWeatherService creates a new weather service
func NewWeatherService(cfg *config.WeatherConfig, m *metrics.Metrics) *WeatherService {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WeatherService{
		config:     cfg,
		httpClient: &http.Client{Timeout: timeout},
		metrics:    m,
	}
}

// IsEnabled returns whether an API key is configured
func (s *WeatherService) IsEnabled() bool {
	return s != nil && strings.TrimSpace(s.config.APIKey) != ""
}

// forecastResponse is the subset of /data/2.5/forecast we read
type forecastResponse struct {
	List []struct {
		DtTxt string `json:"dt_txt"`
		Main  struct {
			Temp float64 `json:"temp"`
		} `json:"main"`
		Weather []struct {
			Description string `json:"description"`
		} `json:"weather"`
	} `json:"list"`
}

// Forecast returns one entry per forecast date in upstream order
func (s *WeatherService) Forecast(ctx context.Context, city string) (*model.WeatherResponse, error) {
	if !s.IsEnabled() {
		s.metrics.ObserveWeather("disabled")
		return nil, ErrWeatherDisabled
	}

	query := url.Values{}
	query.Set("q", city)
	query.Set("appid", s.config.APIKey)
	query.Set("units", "metric")
	endpoint := strings.TrimRight(s.config.APIBase, "/") + "/data/2.5/forecast?" + query.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		s.metrics.ObserveWeather("error")
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		s.metrics.ObserveWeather("error")
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		s.metrics.ObserveWeather("upstream_error")
		return nil, fmt.Errorf("%w: status %d: %s", ErrWeatherUpstream, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var data forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		s.metrics.ObserveWeather("error")
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	forecast := summarizeForecast(data)
	s.metrics.ObserveWeather("ok")

	log.Debug().Str("city", city).Int("days", len(forecast)).Msg("Fetched weather forecast")

	return &model.WeatherResponse{City: city, Forecast: forecast}, nil
}

type dayAccumulator struct {
	date       string
	tempSum    float64
	tempCount  int
	conditions []string
	counts     map[string]int
}

// summarizeForecast groups entries by date, averages temperatures to one
// decimal and picks the most frequent condition, first seen on ties
func summarizeForecast(data forecastResponse) []model.DailyWeather {
	var order []*dayAccumulator
	byDate := make(map[string]*dayAccumulator)

	for _, item := range data.List {
		date, _, _ := strings.Cut(item.DtTxt, " ")
		if date == "" {
			continue
		}

		acc, ok := byDate[date]
		if !ok {
			acc = &dayAccumulator{date: date, counts: make(map[string]int)}
			byDate[date] = acc
			order = append(order, acc)
		}

		acc.tempSum += item.Main.Temp
		acc.tempCount++

		if len(item.Weather) > 0 {
			condition := item.Weather[0].Description
			if acc.counts[condition] == 0 {
				acc.conditions = append(acc.conditions, condition)
			}
			acc.counts[condition]++
		}
	}

	out := make([]model.DailyWeather, 0, len(order))
	for _, acc := range order {
		best := ""
		bestCount := 0
		for _, c := range acc.conditions {
			if acc.counts[c] > bestCount {
				best, bestCount = c, acc.counts[c]
			}
		}
		out = append(out, model.DailyWeather{
			Date:      acc.date,
			Temp:      math.Round(acc.tempSum/float64(acc.tempCount)*10) / 10,
			Condition: best,
		})
	}
	return out
}

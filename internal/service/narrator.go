package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"tripplanner/internal/metrics"
	"tripplanner/internal/model"
	"tripplanner/internal/utils"
)

// Narration sources
const (
	NarrationGenerative = "generative"
	NarrationTemplate   = "template"
)

var (
	// ErrNarratorDisabled is returned by the generative narrator when no AI client is configured
	ErrNarratorDisabled = errors.New("generative narrator is disabled")

	// ErrEmptyNarration is returned when the model produced no usable text
	ErrEmptyNarration = errors.New("empty narration from model")
)

// NarrationInput is everything a narrator may describe
type NarrationInput struct {
	Trip      model.TripParams
	Flight    *model.ScoredCandidate
	Hotel     *model.ScoredCandidate
	DailyPlan []model.DayPlan
}

// TextCallback receives narration text as it is produced
type TextCallback func(text string) error

// Narrator turns an assembled itinerary into prose
type Narrator interface {
	Name() string
	Narrate(ctx context.Context, in NarrationInput) (string, error)
}

// StreamingNarrator can emit partial text while narrating
type StreamingNarrator interface {
	Narrator
	NarrateStream(ctx context.Context, in NarrationInput, onText TextCallback) (string, error)
}

// Narration is a finished description and the narrator that wrote it
type Narration struct {
	Text   string
	Source string
}

// Describer produces a description for every input. It never fails.
type Describer interface {
	Describe(ctx context.Context, in NarrationInput, onText TextCallback) Narration
}

// TemplateNarrator renders a fixed plain-text summary
type TemplateNarrator struct {
	currency string
}

// NewTemplateNarrator creates a template narrator that prefixes prices with currency
func NewTemplateNarrator(currency string) *TemplateNarrator {
	return &TemplateNarrator{currency: currency}
}

// Name implements Narrator
func (n *TemplateNarrator) Name() string { return NarrationTemplate }

// Narrate implements Narrator and always succeeds
func (n *TemplateNarrator) Narrate(_ context.Context, in NarrationInput) (string, error) {
	return n.Render(in), nil
}

// Render builds the summary text
func (n *TemplateNarrator) Render(in NarrationInput) string {
	lines := []string{
		fmt.Sprintf("Trip to %s from %s to %s.", in.Trip.Destination, in.Trip.StartDate, in.Trip.EndDate),
	}

	if in.Flight != nil {
		lines = append(lines, fmt.Sprintf("Flight: %s - %s%s.",
			displayOr(in.Flight.Record.String(model.FieldAirline), "Unknown airline"),
			n.currency, formatAmount(in.Flight.Price())))
	} else {
		lines = append(lines, "Flight: not available.")
	}

	if in.Hotel != nil {
		rating, _ := in.Hotel.Record.Rating()
		lines = append(lines, fmt.Sprintf("Hotel: %s (Rating %s)",
			displayOr(in.Hotel.Record.String(model.FieldName), "Unknown hotel"), formatAmount(rating)))
	} else {
		lines = append(lines, "Hotel: not available.")
	}

	for _, day := range in.DailyPlan {
		lines = append(lines, fmt.Sprintf("Day %d: %s", day.Day, strings.Join(activityNames(day), ", ")))
	}
	return strings.Join(lines, "\n")
}

// GenerativeNarrator asks an OpenAI-compatible model for a personalised
// summary. Calls go through a circuit breaker so an unhealthy provider is
// skipped instead of awaited on every request.
type GenerativeNarrator struct {
	client  AIClient
	breaker *gobreaker.CircuitBreaker
}

// NewGenerativeNarrator creates a generative narrator. client may be nil.
func NewGenerativeNarrator(client AIClient) *GenerativeNarrator {
	settings := gobreaker.Settings{
		Name:        "narration",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		IsSuccessful: func(err error) bool {
			// The caller giving up says nothing about provider health
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, ErrAIDisabled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state changed")
		},
	}

	return &GenerativeNarrator{
		client:  client,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// Name implements Narrator
func (n *GenerativeNarrator) Name() string { return NarrationGenerative }

func (n *GenerativeNarrator) enabled() bool {
	return n != nil && n.client != nil && n.client.IsEnabled()
}

// Narrate implements Narrator
func (n *GenerativeNarrator) Narrate(ctx context.Context, in NarrationInput) (string, error) {
	if !n.enabled() {
		return "", ErrNarratorDisabled
	}

	out, err := n.breaker.Execute(func() (interface{}, error) {
		resp, err := n.client.ChatCompletion(ctx, ChatCompletionRequest{
			Messages: []ChatMessage{
				{Role: "system", Content: narrationSystemPrompt + "\n" + jsonFormatInstruction},
				{Role: "user", Content: BuildNarrationPrompt(in)},
			},
			ResponseFormat: &ResponseFormat{Type: "json_object"},
		})
		if err != nil {
			return nil, err
		}
		if len(resp.Choices) == 0 {
			return nil, ErrEmptyNarration
		}
		return extractNarration(resp.Choices[0].Message.Content)
	})
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

// NarrateStream implements StreamingNarrator
func (n *GenerativeNarrator) NarrateStream(ctx context.Context, in NarrationInput, onText TextCallback) (string, error) {
	if !n.enabled() {
		return "", ErrNarratorDisabled
	}

	out, err := n.breaker.Execute(func() (interface{}, error) {
		var text strings.Builder
		err := n.client.ChatCompletionStream(ctx, ChatCompletionRequest{
			Messages: []ChatMessage{
				{Role: "system", Content: narrationSystemPrompt},
				{Role: "user", Content: BuildNarrationPrompt(in)},
			},
		}, func(chunk *StreamChunk) error {
			if chunk.Content == "" {
				return nil
			}
			text.WriteString(chunk.Content)
			if onText != nil {
				return onText(chunk.Content)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		result := strings.TrimSpace(text.String())
		if result == "" {
			return nil, ErrEmptyNarration
		}
		return result, nil
	})
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

// extractNarration accepts either the requested JSON object or bare prose
func extractNarration(content string) (string, error) {
	var parsed struct {
		Description string `json:"description"`
	}
	if err := utils.ParseAIJSON(content, &parsed); err == nil {
		if text := strings.TrimSpace(parsed.Description); text != "" {
			return text, nil
		}
	}

	// A JSON object without a description is not usable prose
	text := strings.TrimSpace(content)
	if text == "" || strings.HasPrefix(text, "{") {
		return "", ErrEmptyNarration
	}
	return text, nil
}

const narrationSystemPrompt = `You are a friendly travel planner. Write a personalised 3-paragraph summary of the itinerary you are given. Highlight key experiences and keep it under 300 words.`

const jsonFormatInstruction = `Respond ONLY with a JSON object of the form {"description": "<summary text>"}.`

// BuildNarrationPrompt renders the itinerary facts handed to the model
func BuildNarrationPrompt(in NarrationInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Destination: %s\n", in.Trip.Destination)
	fmt.Fprintf(&b, "Dates: %s to %s\n", in.Trip.StartDate, in.Trip.EndDate)
	fmt.Fprintf(&b, "Budget: %s\n", formatAmount(in.Trip.Budget))
	fmt.Fprintf(&b, "Travelers: %d\n", in.Trip.Travelers)
	if len(in.Trip.Interests) > 0 {
		fmt.Fprintf(&b, "Interests: %s\n", strings.Join(in.Trip.Interests, ", "))
	}
	b.WriteString("\n")

	if in.Flight != nil {
		fmt.Fprintf(&b, "Selected Flight: %s %s\n",
			in.Flight.Record.String(model.FieldAirline), formatAmount(in.Flight.Price()))
	}
	if in.Hotel != nil {
		rating, _ := in.Hotel.Record.Rating()
		fmt.Fprintf(&b, "Selected Hotel: %s (rating %s)\n",
			in.Hotel.Record.String(model.FieldName), formatAmount(rating))
	}

	b.WriteString("Daily plan (brief):\n")
	for _, day := range in.DailyPlan {
		names := activityNames(day)
		if len(names) == 0 {
			names = []string{"free day"}
		}
		fmt.Fprintf(&b, "- Day %d: %s\n", day.Day, strings.Join(names, ", "))
	}
	return b.String()
}

// FallbackNarrator tries its primary narrator and falls back to the template
// on any failure, including cancellation of ctx
type FallbackNarrator struct {
	primary  Narrator
	fallback *TemplateNarrator
	metrics  *metrics.Metrics
}

// NewFallbackNarrator creates a never-failing narrator. primary may be nil.
func NewFallbackNarrator(primary Narrator, fallback *TemplateNarrator, m *metrics.Metrics) *FallbackNarrator {
	if fallback == nil {
		fallback = NewTemplateNarrator("")
	}
	return &FallbackNarrator{primary: primary, fallback: fallback, metrics: m}
}

// Describe implements Describer
func (n *FallbackNarrator) Describe(ctx context.Context, in NarrationInput, onText TextCallback) Narration {
	if n.primary != nil && ctx.Err() == nil {
		text, err := n.runPrimary(ctx, in, onText)
		if err == nil {
			n.metrics.ObserveNarration(n.primary.Name())
			return Narration{Text: text, Source: n.primary.Name()}
		}

		if errors.Is(err, ErrNarratorDisabled) {
			log.Debug().Msg("Generative narration disabled, using template")
		} else {
			log.Warn().Err(err).Str("narrator", n.primary.Name()).Msg("Narration failed, falling back to template")
		}
	}

	text := n.fallback.Render(in)
	n.metrics.ObserveNarration(n.fallback.Name())
	return Narration{Text: text, Source: n.fallback.Name()}
}

func (n *FallbackNarrator) runPrimary(ctx context.Context, in NarrationInput, onText TextCallback) (string, error) {
	if streaming, ok := n.primary.(StreamingNarrator); ok && onText != nil {
		return streaming.NarrateStream(ctx, in, onText)
	}
	return n.primary.Narrate(ctx, in)
}

func activityNames(day model.DayPlan) []string {
	names := make([]string, 0, len(day.Activities))
	for _, a := range day.Activities {
		names = append(names, displayOr(a.Record.String(model.FieldName), "Unnamed activity"))
	}
	return names
}

func displayOr(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

// formatAmount prints whole numbers without decimals
func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

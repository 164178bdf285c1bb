package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"tripplanner/internal/metrics"
	"tripplanner/internal/model"
	"tripplanner/internal/repository"
)

const planLogTimeout = 5 * time.Second

// defaultFeedbackRetryDelay gives a just-created plan's background log write
// time to land before feedback for it is retried
const defaultFeedbackRetryDelay = 250 * time.Millisecond

// Feedback actions
const (
	FeedbackAccept     = "accept"
	FeedbackReject     = "reject"
	FeedbackRegenerate = "regenerate"
)

var (
	// ErrInvalidFeedbackAction is returned for actions other than accept, reject or regenerate
	ErrInvalidFeedbackAction = errors.New("invalid feedback action")

	// ErrStoreUnavailable is returned when an operation needs the database
	// but the service runs on file-backed candidates
	ErrStoreUnavailable = errors.New("plan store is not configured")
)

// PlanStore persists plan logs, feedback and activity embeddings
type PlanStore interface {
	LogPlan(ctx context.Context, entry repository.PlanLog) error
	LogFeedback(ctx context.Context, planID string, action string) error
	BatchUpdateEmbeddings(ctx context.Context, items []model.EmbeddingItem) (int, []string)
}

// Ensure PostgresRepository implements PlanStore
var _ PlanStore = (*repository.PostgresRepository)(nil)

// PlanEventCallback is called for streaming planning events
type PlanEventCallback func(event string, data any) error

// PlanService runs candidate retrieval, scoring and itinerary assembly
type PlanService struct {
	source      repository.CandidateSource
	store       PlanStore
	scorer      *Scorer
	builder     *Builder
	ai          AIClient
	metrics     *metrics.Metrics
	defaultDays int

	feedbackRetryDelay time.Duration
}

// NewPlanService creates a new planning service. store and ai may be nil.
func NewPlanService(
	source repository.CandidateSource,
	store PlanStore,
	scorer *Scorer,
	builder *Builder,
	ai AIClient,
	m *metrics.Metrics,
	defaultDays int,
) *PlanService {
	if defaultDays < 1 {
		defaultDays = 3
	}
	return &PlanService{
		source:      source,
		store:       store,
		scorer:      scorer,
		builder:     builder,
		ai:          ai,
		metrics:     m,
		defaultDays: defaultDays,

		feedbackRetryDelay: defaultFeedbackRetryDelay,
	}
}

// Plan retrieves candidates for the destination and assembles an itinerary
func (s *PlanService) Plan(ctx context.Context, req *model.PlanRequest) (*model.PlanResponse, error) {
	startTime := time.Now()
	trip := req.TripParams(s.defaultDays)

	set, err := s.source.FetchCandidates(ctx, trip.Destination)
	if err != nil {
		s.metrics.ObservePlan("error", time.Since(startTime))
		return nil, fmt.Errorf("fetch candidates: %w", err)
	}

	return s.assemble(ctx, trip, set, startTime, nil)
}

// PlanStream runs Plan while reporting progress through callback: research,
// candidates, optimize, narrate, and narration chunks when the narrator streams.
// narration_reset follows the chunks when the stream failed and the template
// description replaced it.
func (s *PlanService) PlanStream(ctx context.Context, req *model.PlanRequest, callback PlanEventCallback) (*model.PlanResponse, error) {
	startTime := time.Now()
	trip := req.TripParams(s.defaultDays)

	if err := callback("research", map[string]any{
		"status": "Finding flights, hotels and activities...",
	}); err != nil {
		return nil, err
	}

	set, err := s.source.FetchCandidates(ctx, trip.Destination)
	if err != nil {
		s.metrics.ObservePlan("error", time.Since(startTime))
		return nil, fmt.Errorf("fetch candidates: %w", err)
	}

	if err := callback("candidates", set.Counts()); err != nil {
		return nil, err
	}

	return s.assemble(ctx, trip, set, startTime, callback)
}

// BuildFromCandidates assembles an itinerary from caller-supplied candidates
func (s *PlanService) BuildFromCandidates(ctx context.Context, req *model.BuildRequest) (*model.PlanResponse, error) {
	startTime := time.Now()
	trip := req.PlanRequest.TripParams(s.defaultDays)
	set := req.Candidates
	return s.assemble(ctx, trip, &set, startTime, nil)
}

func (s *PlanService) assemble(
	ctx context.Context,
	trip model.TripParams,
	set *model.CandidateSet,
	startTime time.Time,
	callback PlanEventCallback,
) (*model.PlanResponse, error) {
	if callback != nil {
		if err := callback("optimize", map[string]any{
			"status": "Scoring options and building the day-by-day plan...",
		}); err != nil {
			return nil, err
		}
	}

	ranked, err := s.scorer.Score(set, trip.Budget, trip.Interests)
	if err != nil {
		s.metrics.ObservePlan("invalid", time.Since(startTime))
		return nil, err
	}

	var onText TextCallback
	var streamed atomic.Bool
	if callback != nil {
		if err := callback("narrate", map[string]any{
			"status": "Writing your itinerary summary...",
		}); err != nil {
			return nil, err
		}
		onText = func(text string) error {
			streamed.Store(true)
			return callback("narration", map[string]any{"content": text})
		}
	}

	itinerary := s.builder.Build(ctx, trip, set, ranked, onText)

	// Chunks already sent came from a narration that failed midway and was
	// replaced by the template, so the client must discard them.
	if streamed.Load() && itinerary.DescriptionSource == NarrationTemplate {
		if err := callback("narration_reset", map[string]any{
			"source":  itinerary.DescriptionSource,
			"content": itinerary.Description,
		}); err != nil {
			return nil, err
		}
	}

	itinerary.PlanID = uuid.NewString()

	took := time.Since(startTime)
	s.metrics.ObservePlan("ok", took)

	log.Info().
		Str("plan_id", itinerary.PlanID).
		Str("destination", trip.Destination).
		Int("days", len(itinerary.DailyPlan)).
		Float64("total", itinerary.BudgetBreakdown.Total).
		Float64("budget", trip.Budget).
		Int64("took_ms", took.Milliseconds()).
		Msg("Plan created")

	// Log plan (non-blocking)
	if s.store != nil {
		entry := planLogEntry(trip, itinerary, took)
		go func() {
			logCtx, cancel := context.WithTimeout(context.Background(), planLogTimeout)
			defer cancel()
			if err := s.store.LogPlan(logCtx, entry); err != nil {
				log.Warn().Err(err).Str("plan_id", entry.PlanID).Msg("Failed to log plan")
			}
		}()
	}

	return &model.PlanResponse{
		Status:     "ok",
		Itinerary:  itinerary,
		Candidates: set.Counts(),
		Took:       took.Milliseconds(),
	}, nil
}

func planLogEntry(trip model.TripParams, it *model.Itinerary, took time.Duration) repository.PlanLog {
	entry := repository.PlanLog{
		PlanID:            it.PlanID,
		Destination:       trip.Destination,
		StartDate:         trip.StartDate,
		EndDate:           trip.EndDate,
		Travelers:         trip.Travelers,
		Interests:         trip.Interests,
		ActivityIDs:       []string{},
		TotalCost:         it.BudgetBreakdown.Total,
		DescriptionSource: it.DescriptionSource,
		ResponseTimeMs:    took.Milliseconds(),
	}
	if it.Flight != nil {
		entry.FlightID = it.Flight.Record.String(model.FieldID)
	}
	if it.Hotel != nil {
		entry.HotelID = it.Hotel.Record.String(model.FieldID)
	}
	for _, day := range it.DailyPlan {
		for _, a := range day.Activities {
			entry.ActivityIDs = append(entry.ActivityIDs, a.Record.String(model.FieldID))
		}
	}
	return entry
}

// LogFeedback records accept, reject or regenerate for a plan. A plan not
// found yet is retried once after a short delay.
func (s *PlanService) LogFeedback(ctx context.Context, planID string, action string) error {
	action = strings.ToLower(strings.TrimSpace(action))
	switch action {
	case FeedbackAccept, FeedbackReject, FeedbackRegenerate:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidFeedbackAction, action)
	}
	if s.store == nil {
		return ErrStoreUnavailable
	}

	// Plan logs are written in the background, so feedback sent right after
	// a plan can arrive first. Retry once before reporting it missing.
	err := s.store.LogFeedback(ctx, planID, action)
	if !errors.Is(err, repository.ErrPlanNotFound) {
		return err
	}

	timer := time.NewTimer(s.feedbackRetryDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return err
	case <-timer.C:
	}
	return s.store.LogFeedback(ctx, planID, action)
}

// UpdateEmbeddings stores activity embeddings. Items that carry only text are
// embedded through the AI client first.
func (s *PlanService) UpdateEmbeddings(ctx context.Context, items []model.EmbeddingItem) (int, []string) {
	if s.store == nil {
		return 0, []string{ErrStoreUnavailable.Error()}
	}

	var errs []string
	ready := make([]model.EmbeddingItem, 0, len(items))
	var pending []model.EmbeddingItem
	for _, item := range items {
		switch {
		case len(item.Embedding) > 0:
			ready = append(ready, item)
		case strings.TrimSpace(item.Text) != "":
			pending = append(pending, item)
		default:
			errs = append(errs, fmt.Sprintf("activity_id %d: no embedding or text", item.ActivityID))
		}
	}

	if len(pending) > 0 {
		generated, err := s.generateEmbeddings(ctx, pending)
		if err != nil {
			for _, item := range pending {
				errs = append(errs, fmt.Sprintf("activity_id %d: %v", item.ActivityID, err))
			}
		} else {
			ready = append(ready, generated...)
		}
	}

	if len(ready) == 0 {
		return 0, errs
	}

	success, storeErrs := s.store.BatchUpdateEmbeddings(ctx, ready)
	return success, append(errs, storeErrs...)
}

func (s *PlanService) generateEmbeddings(ctx context.Context, items []model.EmbeddingItem) ([]model.EmbeddingItem, error) {
	if s.ai == nil || !s.ai.IsEnabled() {
		return nil, ErrAIDisabled
	}

	texts := make([]string, len(items))
	for i, item := range items {
		texts[i] = item.Text
	}

	vectors, err := s.ai.CreateEmbeddings(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(items) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(items), len(vectors))
	}

	out := make([]model.EmbeddingItem, len(items))
	for i, item := range items {
		if len(vectors[i]) == 0 {
			return nil, fmt.Errorf("empty embedding for activity_id %d", item.ActivityID)
		}
		item.Embedding = vectors[i]
		out[i] = item
	}
	return out, nil
}

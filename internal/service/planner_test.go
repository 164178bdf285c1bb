package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripplanner/internal/metrics"
	"tripplanner/internal/model"
	"tripplanner/internal/repository"
)

type fakeSource struct {
	set  *model.CandidateSet
	err  error
	dest string
}

func (f *fakeSource) FetchCandidates(_ context.Context, destination string) (*model.CandidateSet, error) {
	f.dest = destination
	if f.err != nil {
		return nil, f.err
	}
	return f.set, nil
}

type fakeStore struct {
	mu       sync.Mutex
	logged   chan repository.PlanLog
	feedback map[string]string
	items    []model.EmbeddingItem
	missing  bool
	notYet   int // LogFeedback calls answered with ErrPlanNotFound before the plan appears
	lookups  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{logged: make(chan repository.PlanLog, 4), feedback: map[string]string{}}
}

func (f *fakeStore) LogPlan(_ context.Context, entry repository.PlanLog) error {
	f.logged <- entry
	return nil
}

func (f *fakeStore) LogFeedback(_ context.Context, planID, action string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	if f.missing {
		return repository.ErrPlanNotFound
	}
	if f.notYet > 0 {
		f.notYet--
		return repository.ErrPlanNotFound
	}
	f.feedback[planID] = action
	return nil
}

func (f *fakeStore) BatchUpdateEmbeddings(_ context.Context, items []model.EmbeddingItem) (int, []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, items...)
	return len(items), nil
}

func goaCandidates() *model.CandidateSet {
	return &model.CandidateSet{
		Flights: []model.Candidate{
			{"id": 1.0, "airline": "SpiceJet", "price": 5200.0},
			{"id": 2.0, "airline": "IndiGo", "price": 4500.0},
		},
		Hotels: []model.Candidate{
			{"id": 10.0, "name": "Sea View", "price_per_night": 3000.0, "rating": 4.5},
		},
		Activities: []model.Candidate{
			{"id": 20.0, "name": "Museum", "price": 200.0, "rating": 4.0, "tags": "history"},
			{"id": 21.0, "name": "Beach day", "price": 0.0, "rating": 4.0, "tags": "beach"},
			{"id": 22.0, "name": "Spice farm", "price": 800.0, "rating": 4.2, "tags": "food"},
		},
	}
}

func newTestPlanService(source repository.CandidateSource, store PlanStore, ai AIClient) *PlanService {
	describer := NewFallbackNarrator(nil, NewTemplateNarrator("₹"), nil)
	return NewPlanService(
		source,
		store,
		NewScorer(DefaultScoringWeights),
		NewBuilder(describer, DefaultActivitiesPerDay, 3),
		ai,
		metrics.New(),
		3,
	)
}

func planRequest() *model.PlanRequest {
	return &model.PlanRequest{
		Destination: "Goa",
		StartDate:   "2025-12-01",
		EndDate:     "2025-12-02",
		Budget:      50000,
		Travelers:   2,
		Interests:   []string{"beach"},
	}
}

func TestPlanService_Plan(t *testing.T) {
	source := &fakeSource{set: goaCandidates()}
	store := newFakeStore()
	svc := newTestPlanService(source, store, nil)

	resp, err := svc.Plan(context.Background(), planRequest())
	require.NoError(t, err)
	assert.Equal(t, "Goa", source.dest)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, map[string]int{"flights": 2, "hotels": 1, "activities": 3}, resp.Candidates)

	it := resp.Itinerary
	_, err = uuid.Parse(it.PlanID)
	require.NoError(t, err)
	assert.Equal(t, "IndiGo", it.Flight.Record.String(model.FieldAirline))
	require.Len(t, it.DailyPlan, 2)
	assert.Equal(t, "Beach day", it.DailyPlan[0].Activities[0].Record.String(model.FieldName))
	assert.Equal(t, NarrationTemplate, it.DescriptionSource)

	select {
	case entry := <-store.logged:
		assert.Equal(t, it.PlanID, entry.PlanID)
		assert.Equal(t, "2", entry.FlightID)
		assert.Equal(t, "10", entry.HotelID)
		assert.Len(t, entry.ActivityIDs, 3)
		assert.Equal(t, it.BudgetBreakdown.Total, entry.TotalCost)
	case <-time.After(2 * time.Second):
		t.Fatal("plan was not logged")
	}
}

func TestPlanService_PlanWithoutStore(t *testing.T) {
	svc := newTestPlanService(&fakeSource{set: goaCandidates()}, nil, nil)
	resp, err := svc.Plan(context.Background(), planRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Itinerary.PlanID)
}

func TestPlanService_DaysOverride(t *testing.T) {
	svc := newTestPlanService(&fakeSource{set: goaCandidates()}, nil, nil)
	req := planRequest()
	days := 5
	req.Days = &days

	resp, err := svc.Plan(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, resp.Itinerary.DailyPlan, 5)
}

func TestPlanService_SourceError(t *testing.T) {
	svc := newTestPlanService(&fakeSource{err: errors.New("db down")}, nil, nil)
	_, err := svc.Plan(context.Background(), planRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}

func TestPlanService_InvalidField(t *testing.T) {
	set := goaCandidates()
	set.Hotels[0]["rating"] = "excellent"
	svc := newTestPlanService(&fakeSource{set: set}, nil, nil)

	_, err := svc.Plan(context.Background(), planRequest())
	assert.ErrorIs(t, err, model.ErrInvalidField)
}

func TestPlanService_PlanStream(t *testing.T) {
	client := &fakeAIClient{enabled: true, chunks: []string{"Sunny ", "Goa."}}
	describer := NewFallbackNarrator(NewGenerativeNarrator(client), NewTemplateNarrator("₹"), nil)
	svc := NewPlanService(&fakeSource{set: goaCandidates()}, nil, NewScorer(DefaultScoringWeights),
		NewBuilder(describer, 2, 3), client, nil, 3)

	var events []string
	resp, err := svc.PlanStream(context.Background(), planRequest(), func(event string, data any) error {
		events = append(events, event)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"research", "candidates", "optimize", "narrate", "narration", "narration"}, events)
	assert.Equal(t, "Sunny Goa.", resp.Itinerary.Description)
	assert.Equal(t, NarrationGenerative, resp.Itinerary.DescriptionSource)
}

func TestPlanService_PlanStreamResetsPartialNarration(t *testing.T) {
	client := &fakeAIClient{enabled: true, chunks: []string{"Sunny "}, streamErr: errors.New("connection reset")}
	describer := NewFallbackNarrator(NewGenerativeNarrator(client), NewTemplateNarrator("₹"), nil)
	svc := NewPlanService(&fakeSource{set: goaCandidates()}, nil, NewScorer(DefaultScoringWeights),
		NewBuilder(describer, 2, 3), client, nil, 3)

	var events []string
	var reset map[string]any
	resp, err := svc.PlanStream(context.Background(), planRequest(), func(event string, data any) error {
		events = append(events, event)
		if event == "narration_reset" {
			reset = data.(map[string]any)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"research", "candidates", "optimize", "narrate", "narration", "narration_reset"}, events)
	assert.Equal(t, NarrationTemplate, resp.Itinerary.DescriptionSource)
	require.NotNil(t, reset)
	assert.Equal(t, resp.Itinerary.Description, reset["content"])
	assert.Equal(t, NarrationTemplate, reset["source"])
}

func TestPlanService_PlanStreamCallbackError(t *testing.T) {
	svc := newTestPlanService(&fakeSource{set: goaCandidates()}, nil, nil)
	stop := errors.New("client gone")

	_, err := svc.PlanStream(context.Background(), planRequest(), func(event string, _ any) error {
		if event == "candidates" {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
}

func TestPlanService_BuildFromCandidates(t *testing.T) {
	source := &fakeSource{}
	svc := newTestPlanService(source, nil, nil)

	resp, err := svc.BuildFromCandidates(context.Background(), &model.BuildRequest{
		PlanRequest: *planRequest(),
		Candidates:  *goaCandidates(),
	})
	require.NoError(t, err)
	assert.Empty(t, source.dest)
	assert.Equal(t, 4500.0, resp.Itinerary.Flight.Price())
}

func TestPlanService_LogFeedbackBeforePlanLogged(t *testing.T) {
	store := newFakeStore()
	store.notYet = 1
	svc := newTestPlanService(&fakeSource{}, store, nil)
	svc.feedbackRetryDelay = time.Millisecond

	require.NoError(t, svc.LogFeedback(context.Background(), "plan-1", "accept"))
	assert.Equal(t, FeedbackAccept, store.feedback["plan-1"])
	assert.Equal(t, 2, store.lookups)
}

func TestPlanService_LogFeedbackRetryHonoursContext(t *testing.T) {
	store := newFakeStore()
	store.missing = true
	svc := newTestPlanService(&fakeSource{}, store, nil)
	svc.feedbackRetryDelay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := svc.LogFeedback(ctx, "plan-1", "accept")
	assert.ErrorIs(t, err, repository.ErrPlanNotFound)
	assert.Equal(t, 1, store.lookups)
}

func TestPlanService_LogFeedback(t *testing.T) {
	store := newFakeStore()
	svc := newTestPlanService(&fakeSource{}, store, nil)
	svc.feedbackRetryDelay = time.Millisecond

	require.NoError(t, svc.LogFeedback(context.Background(), "plan-1", " Accept "))
	assert.Equal(t, FeedbackAccept, store.feedback["plan-1"])

	err := svc.LogFeedback(context.Background(), "plan-1", "love it")
	assert.ErrorIs(t, err, ErrInvalidFeedbackAction)

	store.missing = true
	store.lookups = 0
	err = svc.LogFeedback(context.Background(), "plan-2", "reject")
	assert.ErrorIs(t, err, repository.ErrPlanNotFound)
	assert.Equal(t, 2, store.lookups, "missing plan is retried once")

	noStore := newTestPlanService(&fakeSource{}, nil, nil)
	assert.ErrorIs(t, noStore.LogFeedback(context.Background(), "plan-1", "regenerate"), ErrStoreUnavailable)
}

func TestPlanService_UpdateEmbeddings(t *testing.T) {
	store := newFakeStore()
	client := &fakeAIClient{enabled: true, embeddings: [][]float32{{0.5, 0.5}}}
	svc := newTestPlanService(&fakeSource{}, store, client)

	success, errs := svc.UpdateEmbeddings(context.Background(), []model.EmbeddingItem{
		{ActivityID: 1, Embedding: []float32{0.1, 0.2}},
		{ActivityID: 2, Text: "Beach day in Goa"},
		{ActivityID: 3},
	})
	assert.Equal(t, 2, success)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "activity_id 3")
	assert.Equal(t, []string{"Beach day in Goa"}, client.texts)
	require.Len(t, store.items, 2)
	assert.Equal(t, []float32{0.5, 0.5}, store.items[1].Embedding)
}

func TestPlanService_UpdateEmbeddingsWithoutAI(t *testing.T) {
	store := newFakeStore()
	svc := newTestPlanService(&fakeSource{}, store, nil)

	success, errs := svc.UpdateEmbeddings(context.Background(), []model.EmbeddingItem{
		{ActivityID: 2, Text: "Beach day"},
	})
	assert.Equal(t, 0, success)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "not enabled")
	assert.Empty(t, store.items)
}

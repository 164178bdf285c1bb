package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripplanner/internal/model"
)

// staticDescriber returns a fixed narration
type staticDescriber struct {
	text  string
	calls int
	last  NarrationInput
}

func (d *staticDescriber) Describe(_ context.Context, in NarrationInput, _ TextCallback) Narration {
	d.calls++
	d.last = in
	return Narration{Text: d.text, Source: "static"}
}

func scored(name string, price float64) model.ScoredCandidate {
	return model.ScoredCandidate{Record: model.Candidate{"name": name, "price": price}}
}

func TestBuild_ConcreteScenario(t *testing.T) {
	scorer := NewScorer(DefaultScoringWeights)
	builder := NewBuilder(NewFallbackNarrator(nil, NewTemplateNarrator("₹"), nil), 2, 3)

	set := &model.CandidateSet{
		Flights: []model.Candidate{{"price": 500.0}, {"price": 200.0}},
		Hotels:  []model.Candidate{{"price_per_night": 100.0, "rating": 4.0}},
		Activities: []model.Candidate{
			{"name": "A", "price": 50.0, "rating": 4.0, "tags": "hiking"},
			{"name": "B", "price": 20.0, "rating": 3.0, "tags": "museum"},
		},
	}
	trip := model.TripParams{Destination: "Goa", Travelers: 2, Interests: []string{"hiking"}, Days: 1}

	ranked, err := scorer.Score(set, trip.Budget, trip.Interests)
	require.NoError(t, err)

	it := builder.Build(context.Background(), trip, set, ranked, nil)
	require.NotNil(t, it.Flight)
	assert.Equal(t, 200.0, it.Flight.Price())

	require.Len(t, ranked.Activities, 2)
	assert.Equal(t, "A", ranked.Activities[0].Record.String(model.FieldName))
	assert.Equal(t, "B", ranked.Activities[1].Record.String(model.FieldName))

	require.Len(t, it.DailyPlan, 1)
	require.Len(t, it.DailyPlan[0].Activities, 2)
	assert.Equal(t, 140.0, it.BudgetBreakdown.Activities)
	assert.Equal(t, 400.0, it.BudgetBreakdown.Flight)
	assert.Equal(t, 200.0, it.BudgetBreakdown.Hotel)
	assert.Equal(t, 740.0, it.BudgetBreakdown.Total)
	assert.Equal(t, NarrationTemplate, it.DescriptionSource)
	assert.Contains(t, it.Description, "Flight: Unknown airline - ₹200.")
}

func TestBuild_EmptyActivities(t *testing.T) {
	describer := &staticDescriber{text: "hello"}
	builder := NewBuilder(describer, 2, 3)

	it := builder.Build(context.Background(),
		model.TripParams{Travelers: 1, Days: 3},
		&model.CandidateSet{},
		&model.RankedOptions{
			Flights: []model.ScoredCandidate{scored("f", 100)},
			Hotels:  []model.ScoredCandidate{{Record: model.Candidate{"price_per_night": 50.0}}},
		},
		nil)

	require.Len(t, it.DailyPlan, 3)
	for i, day := range it.DailyPlan {
		assert.Equal(t, i+1, day.Day)
		assert.NotNil(t, day.Activities)
		assert.Empty(t, day.Activities)
	}
	assert.Equal(t, 0.0, it.BudgetBreakdown.Activities)
	assert.Equal(t, 150.0, it.BudgetBreakdown.Hotel)
	assert.Equal(t, "hello", it.Description)
	assert.Equal(t, 1, describer.calls)

	data, err := json.Marshal(it)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"activities":[]`)
}

func TestBuild_FallsBackToUnrankedCandidate(t *testing.T) {
	builder := NewBuilder(&staticDescriber{}, 2, 3)
	unranked := &model.CandidateSet{
		Hotels: []model.Candidate{{"name": "Only Inn", "price_per_night": 80.0}},
	}

	it := builder.Build(context.Background(), model.TripParams{Travelers: 1, Days: 2}, unranked, &model.RankedOptions{}, nil)

	assert.Nil(t, it.Flight)
	require.NotNil(t, it.Hotel)
	assert.Equal(t, "Only Inn", it.Hotel.Record.String(model.FieldName))
	assert.Equal(t, 0.0, it.Hotel.Score)
	assert.Equal(t, 160.0, it.BudgetBreakdown.Hotel)
	assert.Equal(t, 0.0, it.BudgetBreakdown.Flight)
}

func TestBuild_DefaultDays(t *testing.T) {
	builder := NewBuilder(&staticDescriber{}, 2, 4)
	it := builder.Build(context.Background(), model.TripParams{Travelers: 1}, nil, nil, nil)
	assert.Len(t, it.DailyPlan, 4)
	assert.Nil(t, it.Flight)
	assert.Nil(t, it.Hotel)
}

func TestBuild_CapsDays(t *testing.T) {
	builder := NewBuilder(&staticDescriber{}, 2, 3)

	it := builder.Build(context.Background(), model.TripParams{Travelers: 1, Days: 1 << 40}, nil, nil, nil)
	assert.Len(t, it.DailyPlan, model.MaxTripDays)

	builder.SetMaxDays(7)
	it = builder.Build(context.Background(), model.TripParams{Travelers: 1, Days: 1 << 40}, nil, nil, nil)
	assert.Len(t, it.DailyPlan, 7)

	it = builder.Build(context.Background(), model.TripParams{Travelers: 1, Days: 5}, nil, nil, nil)
	assert.Len(t, it.DailyPlan, 5)
}

func TestPartition_CapsDays(t *testing.T) {
	plan := Partition([]model.ScoredCandidate{scored("a", 1)}, 1<<40, 2)
	require.Len(t, plan, model.MaxTripDays)
	assert.Equal(t, []string{"a"}, names(plan[0]))
	assert.Equal(t, model.MaxTripDays, plan[len(plan)-1].Day)
}

func TestBuild_PassesSelectionToDescriber(t *testing.T) {
	describer := &staticDescriber{text: "x"}
	builder := NewBuilder(describer, 2, 3)
	ranked := &model.RankedOptions{
		Flights:    []model.ScoredCandidate{scored("best", 100), scored("worse", 300)},
		Activities: []model.ScoredCandidate{scored("a", 1)},
	}
	trip := model.TripParams{Destination: "Goa", Travelers: 1, Days: 1}

	builder.Build(context.Background(), trip, nil, ranked, nil)

	require.NotNil(t, describer.last.Flight)
	assert.Equal(t, "best", describer.last.Flight.Record.String(model.FieldName))
	assert.Equal(t, "Goa", describer.last.Trip.Destination)
	require.Len(t, describer.last.DailyPlan, 1)
}

func TestPartition(t *testing.T) {
	acts := []model.ScoredCandidate{scored("a", 1), scored("b", 2), scored("c", 3), scored("d", 4), scored("e", 5)}

	plan := Partition(acts, 2, 2)
	require.Len(t, plan, 2)
	assert.Equal(t, []string{"a", "b"}, names(plan[0]))
	assert.Equal(t, []string{"c", "d"}, names(plan[1]))

	plan = Partition(acts, 4, 2)
	require.Len(t, plan, 4)
	assert.Equal(t, []string{"e"}, names(plan[2]))
	assert.Empty(t, plan[3].Activities)

	assert.Empty(t, Partition(acts, 0, 2))
}

func TestPartition_Invariant(t *testing.T) {
	for l := 0; l <= 9; l++ {
		for n := 0; n <= 5; n++ {
			acts := make([]model.ScoredCandidate, l)
			for i := range acts {
				acts[i] = model.ScoredCandidate{Record: model.Candidate{"id": i}}
			}

			plan := Partition(acts, n, 2)
			require.Len(t, plan, n)

			seen := map[any]bool{}
			nonEmpty, placed := 0, 0
			for _, day := range plan {
				assert.LessOrEqual(t, len(day.Activities), 2)
				if len(day.Activities) > 0 {
					nonEmpty++
				}
				for _, a := range day.Activities {
					id := a.Record["id"]
					assert.False(t, seen[id], "activity %v placed twice", id)
					seen[id] = true
					placed++
				}
			}

			assert.LessOrEqual(t, nonEmpty, n)
			assert.Equal(t, min(l, n*2), placed)
		}
	}
}

func names(day model.DayPlan) []string {
	out := make([]string, 0, len(day.Activities))
	for _, a := range day.Activities {
		out = append(out, a.Record.String(model.FieldName))
	}
	return out
}

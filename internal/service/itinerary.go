package service

import (
	"context"

	"github.com/rs/zerolog/log"

	"tripplanner/internal/model"
)

// DefaultActivitiesPerDay is the daily activity capacity
const DefaultActivitiesPerDay = 2

// Builder assembles an itinerary from ranked candidates. It keeps no
// per-request state and is safe for concurrent use.
type Builder struct {
	describer        Describer
	activitiesPerDay int
	defaultDays      int
	maxDays          int
}

// NewBuilder creates a builder. describer supplies the itinerary text.
func NewBuilder(describer Describer, activitiesPerDay, defaultDays int) *Builder {
	if activitiesPerDay < 1 {
		activitiesPerDay = DefaultActivitiesPerDay
	}
	if defaultDays < 1 {
		defaultDays = 3
	}
	if describer == nil {
		describer = NewFallbackNarrator(nil, nil, nil)
	}
	return &Builder{
		describer:        describer,
		activitiesPerDay: activitiesPerDay,
		defaultDays:      defaultDays,
		maxDays:          model.MaxTripDays,
	}
}

// SetMaxDays caps the number of planned days. Values outside
// [1, model.MaxTripDays] reset the cap to model.MaxTripDays.
func (b *Builder) SetMaxDays(maxDays int) {
	if maxDays < 1 || maxDays > model.MaxTripDays {
		maxDays = model.MaxTripDays
	}
	b.maxDays = maxDays
}

// Build selects the best flight and hotel, allocates activities to days,
// estimates the budget and attaches a description. unranked is consulted only
// when a ranked category is empty.
func (b *Builder) Build(
	ctx context.Context,
	trip model.TripParams,
	unranked *model.CandidateSet,
	ranked *model.RankedOptions,
	onText TextCallback,
) *model.Itinerary {
	if ranked == nil {
		ranked = &model.RankedOptions{}
	}
	if unranked == nil {
		unranked = &model.CandidateSet{}
	}

	days := model.ClampDays(trip.Days, b.defaultDays, b.maxDays)

	flight := pickBest(ranked.Flights, unranked.Flights)
	hotel := pickBest(ranked.Hotels, unranked.Hotels)
	dailyPlan := Partition(ranked.Activities, days, b.activitiesPerDay)
	budget := EstimateBudget(flight, hotel, dailyPlan, trip.Travelers)

	narration := b.describer.Describe(ctx, NarrationInput{
		Trip:      trip,
		Flight:    flight,
		Hotel:     hotel,
		DailyPlan: dailyPlan,
	}, onText)

	log.Debug().
		Str("destination", trip.Destination).
		Int("days", days).
		Bool("has_flight", flight != nil).
		Bool("has_hotel", hotel != nil).
		Float64("total", budget.Total).
		Str("description_source", narration.Source).
		Msg("Built itinerary")

	return &model.Itinerary{
		Flight:            flight,
		Hotel:             hotel,
		DailyPlan:         dailyPlan,
		Description:       narration.Text,
		DescriptionSource: narration.Source,
		BudgetBreakdown:   budget,
	}
}

// pickBest returns the top ranked candidate, else the first unranked one
// with a zero score, else nil
func pickBest(ranked []model.ScoredCandidate, unranked []model.Candidate) *model.ScoredCandidate {
	if len(ranked) > 0 {
		best := ranked[0]
		return &best
	}
	if len(unranked) > 0 {
		return &model.ScoredCandidate{Record: unranked[0]}
	}
	return nil
}

// Partition deals activities into days consecutive buckets of at most
// perDay items, in order and without replacement. Every day gets an entry,
// empty once activities run out. days is capped at model.MaxTripDays.
func Partition(activities []model.ScoredCandidate, days, perDay int) []model.DayPlan {
	days = max(0, min(days, model.MaxTripDays))
	if perDay < 0 {
		perDay = 0
	}

	plan := make([]model.DayPlan, 0, days)
	idx := 0
	for d := 1; d <= days; d++ {
		end := idx + perDay
		if end > len(activities) {
			end = len(activities)
		}
		dayActs := make([]model.ScoredCandidate, 0, end-idx)
		dayActs = append(dayActs, activities[idx:end]...)
		idx = end

		plan = append(plan, model.DayPlan{Day: d, Activities: dayActs})
	}
	return plan
}

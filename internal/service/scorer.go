package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"tripplanner/internal/model"
)

// ScoringWeights defines the weighted formulas used per category
type ScoringWeights struct {
	HotelPrice           float64 // weight of (1 - normalized nightly rate)
	HotelRating          float64 // weight of normalized rating
	ActivityPriceDivisor float64 // activity price sensitivity: score -= price / divisor
	InterestBoost        float64 // added when an activity matches any interest
}

// DefaultScoringWeights is the budget-sensitive default policy
var DefaultScoringWeights = ScoringWeights{
	HotelPrice:           0.6,
	HotelRating:          0.4,
	ActivityPriceDivisor: 1000,
	InterestBoost:        1,
}

// Scorer assigns desirability scores to candidates and ranks them best-first.
// It holds only immutable weights and is safe for concurrent use.
type Scorer struct {
	weights ScoringWeights
}

// NewScorer creates a new scorer with specified weights
func NewScorer(weights ScoringWeights) *Scorer {
	if weights.ActivityPriceDivisor <= 0 {
		weights.ActivityPriceDivisor = DefaultScoringWeights.ActivityPriceDivisor
	}
	return &Scorer{weights: weights}
}

// Weights returns the scorer's weights
func (s *Scorer) Weights() ScoringWeights {
	return s.weights
}

// Score ranks all three categories. budget is accepted for callers that
// already carry it but does not influence any formula.
func (s *Scorer) Score(set *model.CandidateSet, budget float64, interests []string) (*model.RankedOptions, error) {
	if set == nil {
		set = &model.CandidateSet{}
	}

	flights, err := s.ScoreFlights(set.Flights)
	if err != nil {
		return nil, fmt.Errorf("score flights: %w", err)
	}
	hotels, err := s.ScoreHotels(set.Hotels)
	if err != nil {
		return nil, fmt.Errorf("score hotels: %w", err)
	}
	activities, err := s.ScoreActivities(set.Activities, interests)
	if err != nil {
		return nil, fmt.Errorf("score activities: %w", err)
	}

	log.Debug().
		Int("flights", len(flights)).
		Int("hotels", len(hotels)).
		Int("activities", len(activities)).
		Float64("budget", budget).
		Strs("interests", interests).
		Msg("Scored candidates")

	return &model.RankedOptions{
		Flights:    flights,
		Hotels:     hotels,
		Activities: activities,
	}, nil
}

// ScoreFlights scores flights by price alone: cheaper is strictly better
func (s *Scorer) ScoreFlights(flights []model.Candidate) ([]model.ScoredCandidate, error) {
	prices := make([]float64, len(flights))
	for i, f := range flights {
		p, err := f.Price()
		if err != nil {
			return nil, fmt.Errorf("flight %d: %w", i, err)
		}
		prices[i] = p
	}

	normPrices := Normalize(prices)
	results := make([]model.ScoredCandidate, len(flights))
	for i, f := range flights {
		results[i] = model.ScoredCandidate{Record: f, Score: 1 - normPrices[i]}
	}

	rankDescending(results)
	return results, nil
}

// ScoreHotels blends normalized nightly rate and rating
func (s *Scorer) ScoreHotels(hotels []model.Candidate) ([]model.ScoredCandidate, error) {
	prices := make([]float64, len(hotels))
	ratings := make([]float64, len(hotels))
	for i, h := range hotels {
		p, err := h.PricePerNight()
		if err != nil {
			return nil, fmt.Errorf("hotel %d: %w", i, err)
		}
		r, err := h.Rating()
		if err != nil {
			return nil, fmt.Errorf("hotel %d: %w", i, err)
		}
		prices[i] = p
		ratings[i] = r
	}

	normPrices := Normalize(prices)
	normRatings := Normalize(ratings)
	results := make([]model.ScoredCandidate, len(hotels))
	for i, h := range hotels {
		score := s.weights.HotelPrice*(1-normPrices[i]) + s.weights.HotelRating*normRatings[i]
		results[i] = model.ScoredCandidate{Record: h, Score: score}
	}

	rankDescending(results)
	return results, nil
}

// ScoreActivities scores each activity from its own fields only:
// rating, an interest boost, and a small price penalty
func (s *Scorer) ScoreActivities(activities []model.Candidate, interests []string) ([]model.ScoredCandidate, error) {
	results := make([]model.ScoredCandidate, len(activities))
	for i, a := range activities {
		price, err := a.Price()
		if err != nil {
			return nil, fmt.Errorf("activity %d: %w", i, err)
		}
		rating, err := a.Rating()
		if err != nil {
			return nil, fmt.Errorf("activity %d: %w", i, err)
		}

		score := rating - price/s.weights.ActivityPriceDivisor
		if MatchesInterest(a.Tags(), interests) {
			score += s.weights.InterestBoost
		}
		results[i] = model.ScoredCandidate{Record: a, Score: score}
	}

	rankDescending(results)
	return results, nil
}

// Normalize applies min-max normalization to [0,1]. A list whose values are
// all equal maps every value to 0.5.
func Normalize(values []float64) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}

	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	if hi == lo {
		for i := range out {
			out[i] = 0.5
		}
		return out
	}

	span := hi - lo
	for i, v := range values {
		out[i] = (v - lo) / span
	}
	return out
}

// MatchesInterest reports whether any non-blank interest occurs in tags,
// ignoring case
func MatchesInterest(tags string, interests []string) bool {
	if tags == "" {
		return false
	}
	lowerTags := strings.ToLower(tags)
	for _, interest := range interests {
		interest = strings.ToLower(strings.TrimSpace(interest))
		if interest == "" {
			continue
		}
		if strings.Contains(lowerTags, interest) {
			return true
		}
	}
	return false
}

// rankDescending sorts by score, keeping input order among equal scores
func rankDescending(results []model.ScoredCandidate) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
}

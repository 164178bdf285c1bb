package model

import "time"

// DateLayout is the wire format of trip dates
const DateLayout = "2006-01-02"

// MaxTripDays caps the planned trip length
const MaxTripDays = 365

// TripParams holds the trip-level inputs to itinerary assembly
type TripParams struct {
	Destination string   `json:"destination"`
	StartDate   string   `json:"start_date"`
	EndDate     string   `json:"end_date"`
	Budget      float64  `json:"budget"`
	Travelers   int      `json:"travelers"`
	Interests   []string `json:"interests"`
	Days        int      `json:"days"`
}

// DayPlan holds the activities assigned to a single day
type DayPlan struct {
	Day        int               `json:"day"`
	Activities []ScoredCandidate `json:"activities"`
}

// BudgetBreakdown holds the estimated cost per category for all travelers
type BudgetBreakdown struct {
	Flight     float64 `json:"flight"`
	Hotel      float64 `json:"hotel"`
	Activities float64 `json:"activities"`
	Total      float64 `json:"total"`
}

// Itinerary is the assembled trip recommendation
type Itinerary struct {
	PlanID            string           `json:"plan_id,omitempty"`
	Flight            *ScoredCandidate `json:"flight"`
	Hotel             *ScoredCandidate `json:"hotel"`
	DailyPlan         []DayPlan        `json:"daily_plan"`
	Description       string           `json:"description"`
	DescriptionSource string           `json:"description_source,omitempty"`
	BudgetBreakdown   BudgetBreakdown  `json:"budget_breakdown"`
}

// TripDays derives the number of planned days from inclusive start and end
// dates, capped at MaxTripDays. Missing, unparseable or reversed dates yield
// fallback.
func TripDays(startDate, endDate string, fallback int) int {
	start, err := time.Parse(DateLayout, startDate)
	if err != nil {
		return fallback
	}
	end, err := time.Parse(DateLayout, endDate)
	if err != nil {
		return fallback
	}
	if end.Before(start) {
		return fallback
	}
	return min(spanDays(start, end), MaxTripDays)
}

// ClampDays bounds days to [1, limit], using fallback below 1. limit is
// itself capped at MaxTripDays.
func ClampDays(days, fallback, limit int) int {
	if limit < 1 || limit > MaxTripDays {
		limit = MaxTripDays
	}
	if days < 1 {
		days = fallback
	}
	return max(1, min(days, limit))
}

// spanDays counts calendar days from start to end inclusive. Both are
// midnight UTC, so whole-second Unix arithmetic is exact over any range.
func spanDays(start, end time.Time) int {
	return int((end.Unix()-start.Unix())/secondsPerDay) + 1
}

const secondsPerDay = 24 * 60 * 60

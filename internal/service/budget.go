package service

import "tripplanner/internal/model"

// EstimateBudget computes the cost breakdown for all travelers. The hotel is
// charged for one night per planned day, with a floor of one night. Missing
// selections and prices contribute nothing.
func EstimateBudget(flight, hotel *model.ScoredCandidate, dailyPlan []model.DayPlan, travelers int) model.BudgetBreakdown {
	people := float64(travelers)

	var flightPrice float64
	if flight != nil {
		flightPrice = flight.Price()
	}

	var nightly float64
	if hotel != nil {
		nightly, _ = hotel.Record.PricePerNight()
	}
	nights := len(dailyPlan)
	if nights < 1 {
		nights = 1
	}

	var activities float64
	for _, day := range dailyPlan {
		for _, a := range day.Activities {
			activities += a.Price()
		}
	}

	breakdown := model.BudgetBreakdown{
		Flight:     flightPrice * people,
		Hotel:      nightly * float64(nights) * people,
		Activities: activities * people,
	}
	breakdown.Total = breakdown.Flight + breakdown.Hotel + breakdown.Activities
	return breakdown
}

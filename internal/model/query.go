package model

// PlanRequest represents a trip planning request
type PlanRequest struct {
	Destination string   `json:"destination" binding:"required"`
	StartDate   string   `json:"start_date" binding:"required"`
	EndDate     string   `json:"end_date" binding:"required"`
	Budget      float64  `json:"budget" binding:"gte=0"`
	Travelers   int      `json:"travelers" binding:"required,gte=1"`
	Interests   []string `json:"interests"`
	Days        *int     `json:"days,omitempty" binding:"omitempty,gte=1,lte=365"` // overrides the date-derived length, at most MaxTripDays
}

// TripParams converts the request into engine inputs
func (r *PlanRequest) TripParams(defaultDays int) TripParams {
	days := TripDays(r.StartDate, r.EndDate, defaultDays)
	if r.Days != nil && *r.Days > 0 {
		days = *r.Days
	}
	days = ClampDays(days, defaultDays, MaxTripDays)
	interests := r.Interests
	if interests == nil {
		interests = []string{}
	}
	return TripParams{
		Destination: r.Destination,
		StartDate:   r.StartDate,
		EndDate:     r.EndDate,
		Budget:      r.Budget,
		Travelers:   r.Travelers,
		Interests:   interests,
		Days:        days,
	}
}

// PlanResponse represents a planning result response
type PlanResponse struct {
	Status     string         `json:"status"`
	Itinerary  *Itinerary     `json:"itinerary"`
	Candidates map[string]int `json:"candidates,omitempty"` // per-category candidate counts
	Took       int64          `json:"took_ms"`              // Response time in milliseconds
}

// BuildRequest carries caller-supplied candidates, skipping retrieval
type BuildRequest struct {
	PlanRequest
	Candidates CandidateSet `json:"candidates"`
}

// WeatherRequest represents a forecast request
type WeatherRequest struct {
	City      string `json:"city" binding:"required"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// DailyWeather summarises one forecast day
type DailyWeather struct {
	Date      string  `json:"date"`
	Temp      float64 `json:"temp"`
	Condition string  `json:"condition"`
}

// WeatherResponse represents a forecast response
type WeatherResponse struct {
	City     string         `json:"city"`
	Forecast []DailyWeather `json:"forecast"`
}

// EmbeddingBatchRequest represents a batch activity embedding update request
type EmbeddingBatchRequest struct {
	Embeddings []EmbeddingItem `json:"embeddings" binding:"required"`
}

// EmbeddingItem represents a single embedding for one activity
type EmbeddingItem struct {
	ActivityID int64     `json:"activity_id" binding:"required"`
	Embedding  []float32 `json:"embedding,omitempty"` // generated from Text when empty
	Text       string    `json:"text,omitempty"`
}

// EmbeddingBatchResponse represents the response for batch embedding update
type EmbeddingBatchResponse struct {
	Success int      `json:"success"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}

// FeedbackRequest represents user feedback on a generated plan
type FeedbackRequest struct {
	PlanID string `json:"plan_id" binding:"required"`
	Action string `json:"action" binding:"required"` // accept, reject, regenerate
}

// FeedbackResponse represents feedback response
type FeedbackResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

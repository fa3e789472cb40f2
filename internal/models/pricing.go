// internal/models/pricing.go
package models

import "time"

type DemandLevel string

const (
	DemandLow    DemandLevel = "low"
	DemandMedium DemandLevel = "medium"
	DemandHigh   DemandLevel = "high"
)

type MarketData struct {
	AverageRate       float64     `json:"averageRate"`
	MinRate           float64     `json:"minRate"`
	MaxRate           float64     `json:"maxRate"`
	DemandLevel       DemandLevel `json:"demandLevel"`
	SeasonalityFactor float64     `json:"seasonalityFactor"`
}

// PerformanceData holds a musician's externally maintained aggregates.
// A zero Rating or TotalEvents means "no history".
type PerformanceData struct {
	ExperienceYears    float64 `json:"experienceYears"`
	Rating             float64 `json:"rating"`
	TotalEvents        int     `json:"totalEvents"`
	CompletedEvents    int     `json:"completedEvents"`
	AvgResponseMinutes float64 `json:"avgResponseMinutes"`
}

type RateRequest struct {
	MusicianID      string    `json:"musicianId,omitempty"`
	Instrument      string    `json:"instrument"`
	Location        string    `json:"location,omitempty"`
	EventType       string    `json:"eventType,omitempty"`
	DurationMinutes int       `json:"durationMinutes"`
	IsUrgent        bool      `json:"isUrgent"`
	EventDate       time.Time `json:"eventDate"`
}

type RateFactors struct {
	BaseRate              float64 `json:"baseRate"`
	ExperienceMultiplier  float64 `json:"experienceMultiplier"`
	DemandMultiplier      float64 `json:"demandMultiplier"`
	LocationMultiplier    float64 `json:"locationMultiplier"`
	EventTypeMultiplier   float64 `json:"eventTypeMultiplier"`
	DurationMultiplier    float64 `json:"durationMultiplier"`
	UrgencyMultiplier     float64 `json:"urgencyMultiplier"`
	SeasonalityMultiplier float64 `json:"seasonalityMultiplier"`
}

// Product multiplies every multiplier (not the base rate).
func (f RateFactors) Product() float64 {
	return f.ExperienceMultiplier *
		f.DemandMultiplier *
		f.LocationMultiplier *
		f.EventTypeMultiplier *
		f.DurationMultiplier *
		f.UrgencyMultiplier *
		f.SeasonalityMultiplier
}

type BreakdownItem struct {
	Factor     string  `json:"factor"`
	Multiplier float64 `json:"multiplier"`
	Amount     float64 `json:"amount"`
}

type RateRecommendation struct {
	SuggestedRate   float64   `json:"suggestedRate"`
	MarketAverage   float64   `json:"marketAverage"`
	CompetitorRates []float64 `json:"competitorRates"`
}

type RateResult struct {
	BaseRate       float64            `json:"baseRate"`
	FinalRate      float64            `json:"finalRate"`
	Breakdown      []BreakdownItem    `json:"breakdown"`
	Factors        RateFactors        `json:"factors"`
	Recommendation RateRecommendation `json:"recommendation"`
	Warnings       []string           `json:"warnings,omitempty"`
}

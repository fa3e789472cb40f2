package pricing

import (
	"math"
	"time"

	"gigbook-workers/internal/models"
)

// ExperienceMultiplier steps up with years of experience.
func ExperienceMultiplier(years float64) float64 {
	switch {
	case years < 1:
		return 0.8
	case years < 3:
		return 1.0
	case years < 5:
		return 1.2
	case years < 10:
		return 1.4
	default:
		return 1.6
	}
}

// DemandMultiplier maps the market demand level; anything unrecognized is neutral.
func DemandMultiplier(level models.DemandLevel) float64 {
	switch models.DemandLevel(models.NormalizeKey(string(level))) {
	case models.DemandLow:
		return 0.9
	case models.DemandHigh:
		return 1.3
	default:
		return 1.0
	}
}

// DurationMultiplier discounts longer bookings.
func DurationMultiplier(durationMinutes int) float64 {
	hours := float64(durationMinutes) / 60
	switch {
	case hours <= 1:
		return 1.0
	case hours <= 2:
		return 0.9
	case hours <= 4:
		return 0.85
	case hours <= 6:
		return 0.8
	default:
		return 0.75
	}
}

func UrgencyMultiplier(urgent bool) float64 {
	if urgent {
		return 1.3
	}
	return 1.0
}

// MonthFactor is 1.2 in peak months, 1.1 in shoulder months and 0.9 otherwise.
func MonthFactor(m time.Month) float64 {
	switch m {
	case time.June, time.July, time.August, time.December:
		return 1.2
	case time.March, time.April, time.May, time.September, time.October:
		return 1.1
	default:
		return 0.9
	}
}

// PerformanceMultiplier averages three terms in [0,1]: rating/5, completion rate and a
// response-time term clamped to [0.8, 1]. Missing history counts as a neutral 1.0 term,
// and a nil perf yields exactly 1.0.
func PerformanceMultiplier(perf *models.PerformanceData) float64 {
	if perf == nil {
		return 1.0
	}

	rating := 1.0
	if perf.Rating > 0 {
		rating = clamp(perf.Rating/5, 0, 1)
	}

	completion := 1.0
	if perf.TotalEvents > 0 {
		completion = clamp(float64(perf.CompletedEvents)/float64(perf.TotalEvents), 0, 1)
	}

	// Capped at 1.0: the performance store reports unknown response time as 0 minutes.
	response := clamp(1-(perf.AvgResponseMinutes-30)/120, 0.8, 1.0)

	return (rating + completion + response) / 3
}

// RoundToFive rounds to the nearest multiple of 5.
func RoundToFive(v float64) float64 {
	return math.Round(v/5) * 5
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

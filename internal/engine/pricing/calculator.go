// Package pricing turns a booking request plus market and performance aggregates into a
// recommended hourly rate with a per-factor breakdown.
package pricing

import (
	"context"
	"sort"
	"time"

	"gigbook-workers/internal/common/errors"
	"gigbook-workers/internal/common/logger"
	"gigbook-workers/internal/common/metrics"
	"gigbook-workers/internal/common/observability"
	"gigbook-workers/internal/models"

	"go.opentelemetry.io/otel/attribute"
)

// Warning codes attached to a RateResult when a lookup falls back to a neutral value.
const (
	WarnUnknownInstrument     = string(errors.ErrCodeUnknownInstrument)
	WarnUnknownLocation       = string(errors.ErrCodeUnknownLocation)
	WarnUnknownEventType      = string(errors.ErrCodeUnknownEventType)
	WarnMarketDataUnavailable = "MARKET_DATA_UNAVAILABLE"
	WarnPerformanceDataMissed = "PERFORMANCE_DATA_UNAVAILABLE"
)

type MarketDataSource interface {
	Get(ctx context.Context, instrument, location, eventType string) (models.MarketData, error)
	TopRates(ctx context.Context, instrument, location string, limit int) ([]float64, error)
}

type PerformanceDataSource interface {
	Get(ctx context.Context, musicianID string) (models.PerformanceData, error)
}

type Options struct {
	Tables              Tables
	CompetitorRateLimit int
}

func DefaultOptions() Options {
	return Options{Tables: DefaultTables(), CompetitorRateLimit: 5}
}

type Calculator struct {
	market      MarketDataSource
	performance PerformanceDataSource
	opts        Options
	logger      logger.Logger
	now         func() time.Time
}

func NewCalculator(market MarketDataSource, performance PerformanceDataSource, opts Options, log logger.Logger) *Calculator {
	if opts.CompetitorRateLimit <= 0 {
		opts.CompetitorRateLimit = 5
	}
	if opts.Tables.BaseRates == nil {
		opts.Tables = DefaultTables()
	}
	return &Calculator{
		market:      market,
		performance: performance,
		opts:        opts,
		logger:      log.WithFields(map[string]interface{}{"component": "pricing"}),
		now:         time.Now,
	}
}

// CalculateRate gathers market and performance aggregates and prices req.
// Collaborator failures degrade to neutral factors with a warning; only cancellation and
// invalid input are returned as errors.
func (c *Calculator) CalculateRate(ctx context.Context, req models.RateRequest) (result *models.RateResult, err error) {
	if models.NormalizeKey(req.Instrument) == "" {
		return nil, errors.NewValidationFailedError("instrument is required")
	}
	if req.DurationMinutes <= 0 {
		return nil, errors.NewValidationFailedError("durationMinutes must be positive")
	}
	if req.EventDate.IsZero() {
		req.EventDate = c.now()
	}

	ctx, span := observability.StartSpan(ctx, "pricing.CalculateRate",
		attribute.String("instrument", req.Instrument),
		attribute.String("musician.id", req.MusicianID),
	)
	defer func() {
		observability.EndSpan(span, err)
		if err == nil {
			label := "none"
			if len(result.Warnings) > 0 {
				label = result.Warnings[0]
			}
			metrics.RateCalculations.WithLabelValues(label).Inc()
		}
	}()

	var warnings []string

	market, err := c.market.Get(ctx, req.Instrument, req.Location, req.EventType)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.NewCancelledError("market.get", ctx.Err())
		}
		c.logger.Warn("market data unavailable, using defaults", map[string]interface{}{
			"instrument": req.Instrument,
			"location":   req.Location,
			"error":      err,
		})
		market = models.MarketData{DemandLevel: models.DemandMedium, SeasonalityFactor: 1.0}
		warnings = append(warnings, WarnMarketDataUnavailable)
	}

	competitors, err := c.market.TopRates(ctx, req.Instrument, req.Location, c.opts.CompetitorRateLimit)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.NewCancelledError("market.topRates", ctx.Err())
		}
		c.logger.Warn("competitor rates unavailable", map[string]interface{}{
			"instrument": req.Instrument,
			"error":      err,
		})
		competitors = nil
	}

	var perf *models.PerformanceData
	if req.MusicianID != "" && c.performance != nil {
		p, err := c.performance.Get(ctx, req.MusicianID)
		switch {
		case err == nil:
			perf = &p
		case ctx.Err() != nil:
			return nil, errors.NewCancelledError("performance.get", ctx.Err())
		default:
			c.logger.Warn("performance data unavailable", map[string]interface{}{
				"musicianId": req.MusicianID,
				"error":      err,
			})
			warnings = append(warnings, WarnPerformanceDataMissed)
		}
	}

	res := Compute(c.opts.Tables, req, perf, market, competitors, c.opts.CompetitorRateLimit)
	res.Warnings = append(warnings, res.Warnings...)

	c.logger.Debug("rate calculated", map[string]interface{}{
		"instrument": req.Instrument,
		"baseRate":   res.BaseRate,
		"finalRate":  res.FinalRate,
		"warnings":   res.Warnings,
	})

	return &res, nil
}

// Compute is the pure pricing formula: base rate times every multiplier, rounded to the
// nearest 5. A nil perf prices experience and performance as neutral.
func Compute(tables Tables, req models.RateRequest, perf *models.PerformanceData, market models.MarketData, competitors []float64, competitorLimit int) models.RateResult {
	var warnings []string

	base, ok := tables.BaseRates[models.NormalizeKey(req.Instrument)]
	if !ok {
		base = tables.DefaultBaseRate
		warnings = append(warnings, WarnUnknownInstrument)
	}

	location := 1.0
	if key := models.NormalizeKey(req.Location); key != "" {
		if m, ok := tables.LocationMultipliers[key]; ok {
			location = m
		} else {
			warnings = append(warnings, WarnUnknownLocation)
		}
	}

	eventType := 1.0
	if key := models.NormalizeKey(req.EventType); key != "" {
		if m, ok := tables.EventTypeMultipliers[key]; ok {
			eventType = m
		} else {
			warnings = append(warnings, WarnUnknownEventType)
		}
	}

	experience := 1.0
	if perf != nil {
		experience = ExperienceMultiplier(perf.ExperienceYears)
	}

	marketSeasonality := market.SeasonalityFactor
	if marketSeasonality <= 0 {
		marketSeasonality = 1.0
	}

	factors := models.RateFactors{
		BaseRate:              base,
		ExperienceMultiplier:  experience,
		DemandMultiplier:      DemandMultiplier(market.DemandLevel),
		LocationMultiplier:    location,
		EventTypeMultiplier:   eventType,
		DurationMultiplier:    DurationMultiplier(req.DurationMinutes),
		UrgencyMultiplier:     UrgencyMultiplier(req.IsUrgent),
		SeasonalityMultiplier: marketSeasonality * MonthFactor(req.EventDate.Month()) * PerformanceMultiplier(perf),
	}

	final := RoundToFive(base * factors.Product())

	suggested := final
	if market.MinRate > 0 && market.MaxRate >= market.MinRate {
		suggested = clamp(final, market.MinRate, market.MaxRate)
	}

	return models.RateResult{
		BaseRate:  base,
		FinalRate: final,
		Breakdown: breakdown(factors),
		Factors:   factors,
		Recommendation: models.RateRecommendation{
			SuggestedRate:   suggested,
			MarketAverage:   market.AverageRate,
			CompetitorRates: topRates(competitors, competitorLimit),
		},
		Warnings: warnings,
	}
}

func breakdown(f models.RateFactors) []models.BreakdownItem {
	items := []struct {
		name string
		m    float64
	}{
		{"experience", f.ExperienceMultiplier},
		{"demand", f.DemandMultiplier},
		{"location", f.LocationMultiplier},
		{"eventType", f.EventTypeMultiplier},
		{"duration", f.DurationMultiplier},
		{"urgency", f.UrgencyMultiplier},
		{"seasonality", f.SeasonalityMultiplier},
	}

	out := make([]models.BreakdownItem, 0, len(items))
	for _, it := range items {
		out = append(out, models.BreakdownItem{
			Factor:     it.name,
			Multiplier: round2(it.m),
			Amount:     round2(f.BaseRate * (it.m - 1)),
		})
	}
	return out
}

// topRates returns up to limit positive rates, highest first.
func topRates(rates []float64, limit int) []float64 {
	out := make([]float64, 0, len(rates))
	for _, r := range rates {
		if r > 0 {
			out = append(out, r)
		}
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(out)))
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

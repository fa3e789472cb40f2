package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gigbook-workers/internal/common/logger"
	"gigbook-workers/internal/models"

	"github.com/redis/go-redis/v9"
)

type MarketOptions struct {
	CacheTTL          time.Duration
	DemandLookback    time.Duration
	HighDemandCount   int
	MediumDemandCount int
}

func DefaultMarketOptions() MarketOptions {
	return MarketOptions{
		CacheTTL:          15 * time.Minute,
		DemandLookback:    30 * 24 * time.Hour,
		HighDemandCount:   20,
		MediumDemandCount: 5,
	}
}

// MarketStore aggregates hourly rates, recent booking volume and seasonality per
// instrument and location.
type MarketStore struct {
	db     *sql.DB
	cache  jsonCache
	opts   MarketOptions
	logger logger.Logger
	now    func() time.Time
}

func NewMarketStore(db *sql.DB, rdb *redis.Client, opts MarketOptions, log logger.Logger) *MarketStore {
	l := log.WithFields(map[string]interface{}{"store": "market"})
	return &MarketStore{
		db:     db,
		cache:  jsonCache{client: rdb, ttl: opts.CacheTTL, logger: l},
		opts:   opts,
		logger: l,
		now:    time.Now,
	}
}

func marketCacheKey(instrument, location, eventType string) string {
	return fmt.Sprintf("market:%s:%s:%s", instrument, location, eventType)
}

// Get returns the market aggregates for instrument in location. An empty location or
// eventType widens the aggregate to all locations or event types.
func (s *MarketStore) Get(ctx context.Context, instrument, location, eventType string) (models.MarketData, error) {
	instrument = models.NormalizeKey(instrument)
	location = models.NormalizeKey(location)
	eventType = models.NormalizeKey(eventType)

	key := marketCacheKey(instrument, location, eventType)
	var cached models.MarketData
	if s.cache.get(ctx, key, &cached) {
		return cached, nil
	}

	var data models.MarketData
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(AVG(hourly_rate), 0), COALESCE(MIN(hourly_rate), 0), COALESCE(MAX(hourly_rate), 0)
		FROM musicians
		WHERE is_approved = true
		  AND hourly_rate > 0
		  AND $1 = ANY(SELECT lower(i) FROM unnest(instruments) i)
		  AND ($2 = '' OR lower(location) = $2)`,
		instrument, location,
	).Scan(&data.AverageRate, &data.MinRate, &data.MaxRate)
	if err != nil {
		return models.MarketData{}, queryError(ctx, "market_rates", err)
	}

	var bookings int
	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM bookings
		WHERE lower(instrument) = $1
		  AND ($2 = '' OR lower(location) = $2)
		  AND ($3 = '' OR lower(event_type) = $3)
		  AND created_at >= $4`,
		instrument, location, eventType, s.now().Add(-s.opts.DemandLookback).UTC(),
	).Scan(&bookings)
	if err != nil {
		return models.MarketData{}, queryError(ctx, "market_demand", err)
	}
	data.DemandLevel = s.demandLevel(bookings)

	err = s.db.QueryRowContext(ctx, `
		SELECT COALESCE((
			SELECT seasonality_factor
			FROM market_seasonality
			WHERE instrument = $1 AND location = $2
		), 1.0)`,
		instrument, location,
	).Scan(&data.SeasonalityFactor)
	if err != nil {
		return models.MarketData{}, queryError(ctx, "market_seasonality", err)
	}

	s.cache.set(ctx, key, data)
	return data, nil
}

func (s *MarketStore) demandLevel(bookings int) models.DemandLevel {
	switch {
	case bookings >= s.opts.HighDemandCount:
		return models.DemandHigh
	case bookings >= s.opts.MediumDemandCount:
		return models.DemandMedium
	default:
		return models.DemandLow
	}
}

// TopRates returns up to limit hourly rates of approved musicians playing instrument, highest first.
func (s *MarketStore) TopRates(ctx context.Context, instrument, location string, limit int) ([]float64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT hourly_rate
		FROM musicians
		WHERE is_approved = true
		  AND hourly_rate > 0
		  AND $1 = ANY(SELECT lower(i) FROM unnest(instruments) i)
		  AND ($2 = '' OR lower(location) = $2)
		ORDER BY hourly_rate DESC
		LIMIT $3`,
		models.NormalizeKey(instrument), models.NormalizeKey(location), limit,
	)
	if err != nil {
		return nil, queryError(ctx, "market_top_rates", err)
	}
	defer rows.Close()

	rates := make([]float64, 0, limit)
	for rows.Next() {
		var r float64
		if err := rows.Scan(&r); err != nil {
			return nil, queryError(ctx, "market_top_rates", err)
		}
		rates = append(rates, r)
	}
	if err := rows.Err(); err != nil {
		return nil, queryError(ctx, "market_top_rates", err)
	}
	return rates, nil
}

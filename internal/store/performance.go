package store

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	"gigbook-workers/internal/common/logger"
	"gigbook-workers/internal/models"

	"github.com/redis/go-redis/v9"
)

// ErrMusicianNotFound is returned by PerformanceStore.Get for an unknown musician id.
var ErrMusicianNotFound = stderrors.New("musician not found")

// PerformanceStore serves the per-musician aggregates used by pricing, cached in Redis.
type PerformanceStore struct {
	db     *sql.DB
	cache  jsonCache
	logger logger.Logger
}

func NewPerformanceStore(db *sql.DB, rdb *redis.Client, ttl time.Duration, log logger.Logger) *PerformanceStore {
	l := log.WithFields(map[string]interface{}{"store": "performance"})
	return &PerformanceStore{
		db:     db,
		cache:  jsonCache{client: rdb, ttl: ttl, logger: l},
		logger: l,
	}
}

func performanceCacheKey(musicianID string) string {
	return "perf:" + musicianID
}

func (s *PerformanceStore) Get(ctx context.Context, musicianID string) (models.PerformanceData, error) {
	key := performanceCacheKey(musicianID)
	var data models.PerformanceData
	if s.cache.get(ctx, key, &data) {
		return data, nil
	}

	err := s.db.QueryRowContext(ctx, `
		SELECT experience_years, COALESCE(rating, 0), total_events, completed_events,
		       COALESCE(avg_response_minutes, 0)
		FROM musicians
		WHERE id = $1`, musicianID,
	).Scan(&data.ExperienceYears, &data.Rating, &data.TotalEvents, &data.CompletedEvents, &data.AvgResponseMinutes)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return models.PerformanceData{}, fmt.Errorf("%w: %s", ErrMusicianNotFound, musicianID)
		}
		return models.PerformanceData{}, queryError(ctx, "performance", err)
	}

	s.cache.set(ctx, key, data)
	return data, nil
}

// Package matching ranks the musicians who can play an event: instrument filter, hard
// availability gate, weighted score, deterministic order.
package matching

import (
	"context"
	"math"
	"sort"

	"gigbook-workers/internal/common/errors"
	"gigbook-workers/internal/common/logger"
	"gigbook-workers/internal/common/metrics"
	"gigbook-workers/internal/common/observability"
	"gigbook-workers/internal/models"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

type ProfilePool interface {
	// FetchApprovedAvailableMusicians returns the complete approved and available pool,
	// narrowed to musicians playing instrument when it is non-empty.
	FetchApprovedAvailableMusicians(ctx context.Context, instrument string) ([]models.MusicianProfile, error)
}

type DistanceEstimator interface {
	DistanceKm(a, b string) (float64, error)
}

// ConflictChecker is satisfied by *availability.Resolver.
type ConflictChecker interface {
	CheckConflicts(ctx context.Context, req models.ConflictCheckRequest) (*models.ConflictCheckResult, error)
}

// RateQuoter is satisfied by *pricing.Calculator.
type RateQuoter interface {
	CalculateRate(ctx context.Context, req models.RateRequest) (*models.RateResult, error)
}

type Options struct {
	MaxConcurrency int
	// QuoteRates prices each candidate for the event and scores budget fit on the quote
	// instead of the profile hourly rate.
	QuoteRates bool
}

type Engine struct {
	pool     ProfilePool
	checker  ConflictChecker
	quoter   RateQuoter
	distance DistanceEstimator
	opts     Options
	logger   logger.Logger
}

// NewEngine builds an engine. quoter and distance may be nil, which disables rate quotes
// and proximity scoring respectively.
func NewEngine(pool ProfilePool, checker ConflictChecker, quoter RateQuoter, distance DistanceEstimator, opts Options, log logger.Logger) *Engine {
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = 1
	}
	return &Engine{
		pool:     pool,
		checker:  checker,
		quoter:   quoter,
		distance: distance,
		opts:     opts,
		logger:   log.WithFields(map[string]interface{}{"component": "matching"}),
	}
}

// SearchMusiciansForEvent returns the available musicians for criteria, best match first.
// Musicians with a conflict, or whose calendar could not be read, are never returned.
func (e *Engine) SearchMusiciansForEvent(ctx context.Context, event models.Event, criteria models.MatchCriteria) (ranked []models.ScoredCandidate, err error) {
	interval, err := criteria.Interval()
	if err != nil {
		if std, ok := errors.AsStandardError(err); ok {
			return nil, std
		}
		return nil, errors.NewValidationFailedError(err.Error())
	}

	ctx, span := observability.StartSpan(ctx, "matching.SearchMusiciansForEvent",
		attribute.String("event.id", event.ID),
		attribute.String("instrument", criteria.Instrument),
	)
	defer func() { observability.EndSpan(span, err) }()

	pool, err := e.pool.FetchApprovedAvailableMusicians(ctx, criteria.Instrument)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.NewCancelledError("profiles.fetchApprovedAvailable", ctx.Err())
		}
		return nil, errors.NewCollaboratorUnavailableError("profiles.fetchApprovedAvailable", err)
	}

	candidates := make([]models.MusicianProfile, 0, len(pool))
	for _, p := range pool {
		if p.PlaysInstrument(criteria.Instrument) {
			candidates = append(candidates, p)
		}
	}

	results := make([]*models.ScoredCandidate, len(candidates))

	g := new(errgroup.Group)
	g.SetLimit(e.opts.MaxConcurrency)
	for i, p := range candidates {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			results[i] = e.evaluate(ctx, p, event, criteria, interval)
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		return nil, errors.NewCancelledError("matching.searchMusiciansForEvent", ctx.Err())
	}

	ranked = make([]models.ScoredCandidate, 0, len(results))
	for _, r := range results {
		if r != nil {
			ranked = append(ranked, *r)
		}
	}
	Rank(ranked)
	metrics.CandidatesScored.Add(float64(len(ranked)))

	e.logger.Info("musicians ranked", map[string]interface{}{
		"eventId":    event.ID,
		"instrument": criteria.Instrument,
		"pool":       len(pool),
		"candidates": len(candidates),
		"ranked":     len(ranked),
	})

	return ranked, nil
}

// evaluate returns nil when the musician must be left out of the ranking.
func (e *Engine) evaluate(ctx context.Context, p models.MusicianProfile, event models.Event, criteria models.MatchCriteria, interval models.TimeInterval) *models.ScoredCandidate {
	check, err := e.checker.CheckConflicts(ctx, models.ConflictCheckRequest{
		OwnerID:  p.ID,
		Interval: interval,
		Location: criteria.Location,
	})
	if err != nil {
		e.lookupFailed(ctx, p.ID, "checkConflicts", err)
		return nil
	}
	if check.HasConflict {
		return nil
	}

	var distance *float64
	if e.distance != nil && criteria.Location != "" && p.Location != "" {
		d, err := e.distance.DistanceKm(criteria.Location, p.Location)
		if err == nil {
			distance = &d
		} else {
			e.logger.Debug("distance unknown", map[string]interface{}{
				"musicianId": p.ID,
				"from":       criteria.Location,
				"to":         p.Location,
				"error":      err,
			})
		}
	}
	if distance != nil && criteria.MaxDistanceKm != nil && *distance > *criteria.MaxDistanceKm {
		return nil
	}

	rate := p.HourlyRate
	var quoted *float64
	if e.opts.QuoteRates && e.quoter != nil {
		quote, err := e.quoter.CalculateRate(ctx, models.RateRequest{
			MusicianID:      p.ID,
			Instrument:      criteria.Instrument,
			Location:        criteria.Location,
			EventType:       criteria.EventType,
			DurationMinutes: criteria.DurationMinutes,
			IsUrgent:        criteria.IsUrgent,
			EventDate:       interval.Start,
		})
		if err != nil {
			e.lookupFailed(ctx, p.ID, "calculateRate", err)
		} else {
			rate = quote.FinalRate
			quoted = &quote.FinalRate
		}
	}

	return &models.ScoredCandidate{
		Profile:      p,
		MatchScore:   Score(p, event, criteria, rate, distance),
		Availability: models.CandidateAvailability{IsAvailable: true, Conflicts: []string{}},
		DistanceKm:   distance,
		QuotedRate:   quoted,
	}
}

func (e *Engine) lookupFailed(ctx context.Context, musicianID, operation string, err error) {
	if ctx.Err() != nil {
		return
	}
	metrics.CandidateLookupFailures.WithLabelValues(operation).Inc()
	e.logger.Warn("candidate lookup failed", map[string]interface{}{
		"musicianId": musicianID,
		"operation":  operation,
		"error":      err,
	})
}

// Score applies the 100-point rubric. hourlyRate is the rate used for budget fit and
// distanceKm is nil when either location is unknown.
func Score(p models.MusicianProfile, event models.Event, criteria models.MatchCriteria, hourlyRate float64, distanceKm *float64) int {
	score := 40.0

	switch {
	case p.HasOwnInstruments:
		score += 15
	case event.RequiresOwnInstrument:
		score += 5
	}

	score += math.Min(p.ExperienceYears*2, 20)
	score += p.Rating / 5 * 15

	if criteria.Budget != nil {
		cost := hourlyRate * float64(criteria.DurationMinutes) / 60
		switch {
		case cost <= *criteria.Budget:
			score += 10
		case cost <= *criteria.Budget*1.2:
			score += 5
		}
	}

	if distanceKm != nil {
		switch {
		case *distanceKm <= 10:
			score += 10
		case *distanceKm <= 25:
			score += 5
		}
	}

	if rate, ok := p.CompletionRate(); ok {
		score += rate * 10
	}

	return int(math.Round(math.Max(0, math.Min(100, score))))
}

// Rank sorts by score, then rating, then cheaper hourly rate, then id.
func Rank(candidates []models.ScoredCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.MatchScore != b.MatchScore {
			return a.MatchScore > b.MatchScore
		}
		if a.Profile.Rating != b.Profile.Rating {
			return a.Profile.Rating > b.Profile.Rating
		}
		if a.Profile.HourlyRate != b.Profile.HourlyRate {
			return a.Profile.HourlyRate < b.Profile.HourlyRate
		}
		return a.Profile.ID < b.Profile.ID
	})
}

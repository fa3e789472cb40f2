// Package availability decides whether a musician is free for a requested window
// once travel and buffer time are folded in, and proposes alternative slots when not.
package availability

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
	"golang.org/x/sync/errgroup"
)

// LookupFailedReason is reported for musicians whose calendar could not be read.
const LookupFailedReason = "lookup failed"

// CalendarStore is the read side of the calendar persistence.
type CalendarStore interface {
	FetchBusyEvents(ctx context.Context, musicianID string, from, to time.Time) ([]models.BusyEvent, error)
	FetchDailyBusyEvents(ctx context.Context, musicianID string, day time.Time) ([]models.BusyEvent, error)
}

type Options struct {
	SearchWindow             time.Duration
	DefaultTravelTimeMinutes int
	DefaultBufferTimeMinutes int
	MaxConcurrency           int
	WorkdayStartHour         int
	WorkdayEndHour           int
}

func DefaultOptions() Options {
	return Options{
		SearchWindow:             12 * time.Hour,
		DefaultTravelTimeMinutes: 30,
		DefaultBufferTimeMinutes: 60,
		MaxConcurrency:           8,
		WorkdayStartHour:         8,
		WorkdayEndHour:           24,
	}
}

type Resolver struct {
	store  CalendarStore
	opts   Options
	logger logger.Logger
}

func NewResolver(store CalendarStore, opts Options, log logger.Logger) *Resolver {
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = 1
	}
	return &Resolver{
		store:  store,
		opts:   opts,
		logger: log.WithFields(map[string]interface{}{"component": "availability"}),
	}
}

// Options returns the resolver's effective options.
func (r *Resolver) Options() Options {
	return r.opts
}

// DefaultPadding is travel+buffer when the request leaves both unset.
func (r *Resolver) DefaultPadding() time.Duration {
	return models.Minutes(r.opts.DefaultTravelTimeMinutes + r.opts.DefaultBufferTimeMinutes)
}

// CheckConflicts compares the padded request against the musician's blocking events in the
// search window. On conflict it also returns the free gaps long enough for the padded event
// and the one whose start is closest to the requested start.
func (r *Resolver) CheckConflicts(ctx context.Context, req models.ConflictCheckRequest) (result *models.ConflictCheckResult, err error) {
	if err := req.Interval.Validate(); err != nil {
		return nil, err
	}

	pad := req.Padding(r.opts.DefaultTravelTimeMinutes, r.opts.DefaultBufferTimeMinutes)
	if pad < 0 {
		return nil, errors.NewValidationFailedError("travelTimeMinutes + bufferTimeMinutes must not be negative")
	}

	ctx, span := observability.StartSpan(ctx, "availability.CheckConflicts", attribute.String("musician.id", req.OwnerID))
	defer func() {
		observability.EndSpan(span, err)
		switch {
		case err != nil:
			metrics.ConflictChecks.WithLabelValues("error").Inc()
		case result.HasConflict:
			metrics.ConflictChecks.WithLabelValues("conflict").Inc()
		default:
			metrics.ConflictChecks.WithLabelValues("free").Inc()
		}
	}()

	rangeStart := req.Interval.Start.Add(-r.opts.SearchWindow)
	rangeEnd := req.Interval.End.Add(r.opts.SearchWindow)

	events, err := r.store.FetchBusyEvents(ctx, req.OwnerID, rangeStart, rangeEnd)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.NewCancelledError("calendar.fetchBusyEvents", ctx.Err())
		}
		return nil, errors.NewCollaboratorUnavailableError("calendar.fetchBusyEvents", err).
			WithMetadata("musicianId", req.OwnerID)
	}

	blocking := blockingEvents(events)
	expanded := req.Interval.Expand(pad, pad)

	conflicts := make([]models.BusyEvent, 0)
	for _, e := range blocking {
		if models.Overlaps(expanded, e.Interval) {
			conflicts = append(conflicts, e)
		}
	}

	result = &models.ConflictCheckResult{
		HasConflict:    len(conflicts) > 0,
		Conflicts:      conflicts,
		AvailableSlots: []models.AvailableSlot{},
	}
	if !result.HasConflict {
		return result, nil
	}

	required := req.Interval.Duration() + 2*pad
	result.AvailableSlots = FindGaps(blocking, rangeStart, rangeEnd, required)
	result.RecommendedSlotStart = RecommendSlot(result.AvailableSlots, req.Interval.Start)

	r.logger.Debug("conflicts found", map[string]interface{}{
		"musicianId":     req.OwnerID,
		"conflicts":      len(conflicts),
		"availableSlots": len(result.AvailableSlots),
	})

	return result, nil
}

// CheckMultipleMusiciansAvailability runs CheckConflicts for every musician with the default
// padding. A musician whose calendar cannot be read is reported unavailable with
// LookupFailedReason instead of failing the batch.
func (r *Resolver) CheckMultipleMusiciansAvailability(ctx context.Context, musicianIDs []string, interval models.TimeInterval) (*models.MultiAvailabilityResult, error) {
	if err := interval.Validate(); err != nil {
		return nil, err
	}

	ids := dedupe(musicianIDs)
	type outcome struct {
		conflicts []string
		available bool
	}
	outcomes := make([]outcome, len(ids))

	g := new(errgroup.Group)
	g.SetLimit(r.opts.MaxConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			res, err := r.CheckConflicts(ctx, models.ConflictCheckRequest{OwnerID: id, Interval: interval})
			if err != nil {
				if ctx.Err() == nil {
					r.logger.Warn("availability lookup failed", map[string]interface{}{
						"musicianId": id,
						"operation":  "checkConflicts",
						"error":      err,
					})
					metrics.CandidateLookupFailures.WithLabelValues("checkConflicts").Inc()
				}
				outcomes[i] = outcome{conflicts: []string{LookupFailedReason}}
				return nil
			}
			outcomes[i] = outcome{available: !res.HasConflict, conflicts: res.ConflictIDs()}
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		return nil, errors.NewCancelledError("availability.checkMultiple", ctx.Err())
	}

	out := &models.MultiAvailabilityResult{
		Available:           []string{},
		Unavailable:         []string{},
		ConflictsByMusician: make(map[string][]string, len(ids)),
	}
	for i, id := range ids {
		if outcomes[i].available {
			out.Available = append(out.Available, id)
			continue
		}
		out.Unavailable = append(out.Unavailable, id)
		out.ConflictsByMusician[id] = outcomes[i].conflicts
	}
	return out, nil
}

// FindDailyAvailability lists the free slots on day's working hours that can hold an event
// of durationMinutes plus default travel and buffer on both sides.
func (r *Resolver) FindDailyAvailability(ctx context.Context, musicianID string, day time.Time, durationMinutes int) (slots []models.AvailableSlot, err error) {
	if durationMinutes <= 0 {
		return nil, errors.NewValidationFailedError("durationMinutes must be positive")
	}

	ctx, span := observability.StartSpan(ctx, "availability.FindDailyAvailability", attribute.String("musician.id", musicianID))
	defer func() { observability.EndSpan(span, err) }()

	midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	workStart := midnight.Add(time.Duration(r.opts.WorkdayStartHour) * time.Hour)
	workEnd := midnight.Add(time.Duration(r.opts.WorkdayEndHour) * time.Hour)

	events, err := r.store.FetchDailyBusyEvents(ctx, musicianID, midnight)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.NewCancelledError("calendar.fetchDailyBusyEvents", ctx.Err())
		}
		return nil, errors.NewCollaboratorUnavailableError("calendar.fetchDailyBusyEvents", err).
			WithMetadata("musicianId", musicianID)
	}

	required := models.Minutes(durationMinutes) + 2*r.DefaultPadding()
	return FindGaps(blockingEvents(events), workStart, workEnd, required), nil
}

// FindGaps sweeps events in start order with a cursor that only moves forward and returns
// every free span inside [rangeStart, rangeEnd) that is at least minDuration long.
func FindGaps(events []models.BusyEvent, rangeStart, rangeEnd time.Time, minDuration time.Duration) []models.AvailableSlot {
	slots := make([]models.AvailableSlot, 0)
	if !rangeStart.Before(rangeEnd) {
		return slots
	}

	sorted := make([]models.BusyEvent, len(events))
	copy(sorted, events)
	sortByStart(sorted)

	emit := func(from, to time.Time) {
		if to.After(rangeEnd) {
			to = rangeEnd
		}
		if !from.Before(to) || to.Sub(from) < minDuration {
			return
		}
		slots = append(slots, models.NewAvailableSlot(models.TimeInterval{Start: from, End: to}))
	}

	cursor := rangeStart
	for _, e := range sorted {
		if !cursor.Before(rangeEnd) {
			break
		}
		if e.Interval.Start.After(cursor) {
			emit(cursor, e.Interval.Start)
		}
		if e.Interval.End.After(cursor) {
			cursor = e.Interval.End
		}
	}
	if cursor.Before(rangeEnd) {
		emit(cursor, rangeEnd)
	}

	return slots
}

// RecommendSlot picks the slot whose start is nearest to requested; ties go to the earlier slot.
func RecommendSlot(slots []models.AvailableSlot, requested time.Time) *time.Time {
	var best *time.Time
	var bestDiff time.Duration
	for _, s := range slots {
		diff := absDuration(s.Interval.Start.Sub(requested))
		start := s.Interval.Start
		if best == nil || diff < bestDiff || (diff == bestDiff && start.Before(*best)) {
			best = &start
			bestDiff = diff
		}
	}
	return best
}

func blockingEvents(events []models.BusyEvent) []models.BusyEvent {
	out := make([]models.BusyEvent, 0, len(events))
	for _, e := range events {
		if e.Blocks() {
			out = append(out, e)
		}
	}
	sortByStart(out)
	return out
}

func sortByStart(events []models.BusyEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i].Interval, events[j].Interval
		if !a.Start.Equal(b.Start) {
			return a.Start.Before(b.Start)
		}
		if !a.End.Equal(b.End) {
			return a.End.Before(b.End)
		}
		return events[i].ID < events[j].ID
	})
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

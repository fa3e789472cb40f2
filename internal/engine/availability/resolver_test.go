package availability

import (
	"context"
	stderrors "errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"gigbook-workers/internal/common/errors"
	"gigbook-workers/internal/common/logger"
	"gigbook-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

var day = time.Date(2026, 11, 14, 0, 0, 0, 0, time.UTC)

func at(h, m int) time.Time {
	return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

func interval(t *testing.T, start, end time.Time) models.TimeInterval {
	t.Helper()
	i, err := models.NewTimeInterval(start, end)
	require.NoError(t, err)
	return i
}

func busy(id string, start, end time.Time, status models.EventStatus) models.BusyEvent {
	return models.BusyEvent{
		ID:       id,
		OwnerID:  "m-1",
		Interval: models.TimeInterval{Start: start, End: end},
		Status:   status,
	}
}

type mockCalendar struct {
	mock.Mock
}

func (m *mockCalendar) FetchBusyEvents(ctx context.Context, musicianID string, from, to time.Time) ([]models.BusyEvent, error) {
	args := m.Called(ctx, musicianID, from, to)
	events, _ := args.Get(0).([]models.BusyEvent)
	return events, args.Error(1)
}

func (m *mockCalendar) FetchDailyBusyEvents(ctx context.Context, musicianID string, day time.Time) ([]models.BusyEvent, error) {
	args := m.Called(ctx, musicianID, day)
	events, _ := args.Get(0).([]models.BusyEvent)
	return events, args.Error(1)
}

// fakeCalendar serves fixed events per musician and counts calls.
type fakeCalendar struct {
	mu     sync.Mutex
	events map[string][]models.BusyEvent
	fail   map[string]error
	calls  int
}

func (f *fakeCalendar) FetchBusyEvents(ctx context.Context, musicianID string, from, to time.Time) ([]models.BusyEvent, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := f.fail[musicianID]; err != nil {
		return nil, err
	}
	var out []models.BusyEvent
	for _, e := range f.events[musicianID] {
		if e.Interval.Start.Before(to) && from.Before(e.Interval.End) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeCalendar) FetchDailyBusyEvents(ctx context.Context, musicianID string, d time.Time) ([]models.BusyEvent, error) {
	return f.FetchBusyEvents(ctx, musicianID, d, d.Add(24*time.Hour))
}

func newTestResolver(t *testing.T, store CalendarStore) *Resolver {
	return NewResolver(store, DefaultOptions(), logger.NewTestLogger(t))
}

// ==========================
// CheckConflicts
// ==========================

func TestResolver_CheckConflicts_PaddedScenarios(t *testing.T) {
	cal := &fakeCalendar{events: map[string][]models.BusyEvent{
		"m-1": {busy("evt-1", at(10, 0), at(11, 0), models.EventStatusConfirmed)},
	}}
	r := newTestResolver(t, cal)

	t.Run("request inside padding conflicts", func(t *testing.T) {
		res, err := r.CheckConflicts(context.Background(), models.ConflictCheckRequest{
			OwnerID:  "m-1",
			Interval: interval(t, at(11, 10), at(12, 10)),
		})
		require.NoError(t, err)
		assert.True(t, res.HasConflict)
		assert.Equal(t, []string{"evt-1"}, res.ConflictIDs())

		require.Len(t, res.AvailableSlots, 2)
		for _, s := range res.AvailableSlots {
			assert.GreaterOrEqual(t, s.DurationMinutes, 240)
		}
		assert.Equal(t, at(0, -50), res.AvailableSlots[0].Interval.Start)
		assert.Equal(t, at(10, 0), res.AvailableSlots[0].Interval.End)
		assert.Equal(t, at(11, 0), res.AvailableSlots[1].Interval.Start)
		assert.Equal(t, at(24, 10), res.AvailableSlots[1].Interval.End)

		require.NotNil(t, res.RecommendedSlotStart)
		assert.Equal(t, at(11, 0), *res.RecommendedSlotStart)
	})

	t.Run("request clear of padding is free", func(t *testing.T) {
		res, err := r.CheckConflicts(context.Background(), models.ConflictCheckRequest{
			OwnerID:  "m-1",
			Interval: interval(t, at(13, 0), at(14, 0)),
		})
		require.NoError(t, err)
		assert.False(t, res.HasConflict)
		assert.Empty(t, res.Conflicts)
		assert.Empty(t, res.AvailableSlots)
		assert.Nil(t, res.RecommendedSlotStart)
	})

	t.Run("explicit zero padding only checks the raw interval", func(t *testing.T) {
		zero := 0
		res, err := r.CheckConflicts(context.Background(), models.ConflictCheckRequest{
			OwnerID:           "m-1",
			Interval:          interval(t, at(11, 0), at(12, 0)),
			TravelTimeMinutes: &zero,
			BufferTimeMinutes: &zero,
		})
		require.NoError(t, err)
		assert.False(t, res.HasConflict)
	})
}

func TestResolver_CheckConflicts_IgnoresCancelledEvents(t *testing.T) {
	cal := &fakeCalendar{events: map[string][]models.BusyEvent{
		"m-1": {
			busy("cancelled", at(12, 0), at(13, 0), models.EventStatusCancelled),
			busy("pending", at(18, 0), at(19, 0), models.EventStatusPending),
		},
	}}
	r := newTestResolver(t, cal)

	res, err := r.CheckConflicts(context.Background(), models.ConflictCheckRequest{
		OwnerID:  "m-1",
		Interval: interval(t, at(12, 0), at(13, 0)),
	})
	require.NoError(t, err)
	assert.False(t, res.HasConflict)

	res, err = r.CheckConflicts(context.Background(), models.ConflictCheckRequest{
		OwnerID:  "m-1",
		Interval: interval(t, at(19, 30), at(20, 30)),
	})
	require.NoError(t, err)
	assert.True(t, res.HasConflict)
	assert.Equal(t, []string{"pending"}, res.ConflictIDs())
}

func TestResolver_CheckConflicts_QueriesSearchWindow(t *testing.T) {
	cal := new(mockCalendar)
	cal.On("FetchBusyEvents", mock.Anything, "m-7", at(-2, 0), at(23, 0)).
		Return([]models.BusyEvent{}, nil).Once()

	r := newTestResolver(t, cal)
	_, err := r.CheckConflicts(context.Background(), models.ConflictCheckRequest{
		OwnerID:  "m-7",
		Interval: interval(t, at(10, 0), at(11, 0)),
	})
	require.NoError(t, err)
	cal.AssertExpectations(t)
}

func TestResolver_CheckConflicts_Errors(t *testing.T) {
	t.Run("invalid interval fails fast", func(t *testing.T) {
		cal := new(mockCalendar)
		r := newTestResolver(t, cal)
		_, err := r.CheckConflicts(context.Background(), models.ConflictCheckRequest{
			OwnerID:  "m-1",
			Interval: models.TimeInterval{Start: at(11, 0), End: at(10, 0)},
		})
		assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidInterval))
		cal.AssertNotCalled(t, "FetchBusyEvents", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("negative padding is rejected", func(t *testing.T) {
		r := newTestResolver(t, new(mockCalendar))
		neg := -200
		_, err := r.CheckConflicts(context.Background(), models.ConflictCheckRequest{
			OwnerID:           "m-1",
			Interval:          interval(t, at(10, 0), at(11, 0)),
			TravelTimeMinutes: &neg,
		})
		assert.True(t, errors.IsCode(err, errors.ErrCodeValidationFailed))
	})

	t.Run("store failure is a collaborator error", func(t *testing.T) {
		cal := new(mockCalendar)
		cal.On("FetchBusyEvents", mock.Anything, "m-1", mock.Anything, mock.Anything).
			Return(nil, stderrors.New("connection refused"))
		r := newTestResolver(t, cal)

		_, err := r.CheckConflicts(context.Background(), models.ConflictCheckRequest{
			OwnerID:  "m-1",
			Interval: interval(t, at(10, 0), at(11, 0)),
		})
		assert.True(t, errors.IsCode(err, errors.ErrCodeCollaboratorUnavailable))
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		r := newTestResolver(t, &fakeCalendar{})

		_, err := r.CheckConflicts(ctx, models.ConflictCheckRequest{
			OwnerID:  "m-1",
			Interval: interval(t, at(10, 0), at(11, 0)),
		})
		assert.True(t, errors.IsCode(err, errors.ErrCodeCancelled))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

// ==========================
// FindGaps / RecommendSlot
// ==========================

func TestFindGaps(t *testing.T) {
	tests := []struct {
		name     string
		events   []models.BusyEvent
		min      time.Duration
		expected [][2]time.Time
	}{
		{
			name:     "empty calendar is one gap",
			min:      time.Hour,
			expected: [][2]time.Time{{at(8, 0), at(20, 0)}},
		},
		{
			name: "overlapping and contained events never move the cursor back",
			events: []models.BusyEvent{
				busy("b", at(10, 0), at(13, 0), models.EventStatusConfirmed),
				busy("a", at(9, 0), at(11, 0), models.EventStatusConfirmed),
				busy("c", at(11, 0), at(12, 0), models.EventStatusConfirmed),
				busy("d", at(15, 0), at(16, 0), models.EventStatusConfirmed),
			},
			min:      time.Hour,
			expected: [][2]time.Time{{at(8, 0), at(9, 0)}, {at(13, 0), at(15, 0)}, {at(16, 0), at(20, 0)}},
		},
		{
			name: "short gaps are dropped",
			events: []models.BusyEvent{
				busy("a", at(8, 30), at(12, 0), models.EventStatusConfirmed),
				busy("b", at(12, 45), at(19, 0), models.EventStatusConfirmed),
			},
			min:      time.Hour,
			expected: [][2]time.Time{{at(19, 0), at(20, 0)}},
		},
		{
			name: "events outside the range are clipped",
			events: []models.BusyEvent{
				busy("early", at(6, 0), at(9, 0), models.EventStatusConfirmed),
				busy("late", at(18, 0), at(23, 0), models.EventStatusConfirmed),
			},
			min:      time.Hour,
			expected: [][2]time.Time{{at(9, 0), at(18, 0)}},
		},
		{
			name: "contiguous events leave no gap",
			events: []models.BusyEvent{
				busy("a", at(8, 0), at(14, 0), models.EventStatusConfirmed),
				busy("b", at(14, 0), at(20, 0), models.EventStatusConfirmed),
			},
			min:      time.Minute,
			expected: [][2]time.Time{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slots := FindGaps(tt.events, at(8, 0), at(20, 0), tt.min)
			got := make([][2]time.Time, 0, len(slots))
			for _, s := range slots {
				got = append(got, [2]time.Time{s.Interval.Start, s.Interval.End})
				assert.GreaterOrEqual(t, s.Interval.Duration(), tt.min)
				assert.Equal(t, int(s.Interval.Duration()/time.Minute), s.DurationMinutes)
			}
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestFindGaps_PartitionsRange(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	rangeStart, rangeEnd := at(0, 0), at(24, 0)

	for round := 0; round < 50; round++ {
		var events []models.BusyEvent
		n := rng.Intn(12)
		for i := 0; i < n; i++ {
			start := at(-2, 0).Add(time.Duration(rng.Intn(28*60)) * time.Minute)
			events = append(events, busy(fmt.Sprintf("e%d", i), start, start.Add(time.Duration(1+rng.Intn(240))*time.Minute), models.EventStatusConfirmed))
		}

		var free time.Duration
		for _, s := range FindGaps(events, rangeStart, rangeEnd, 0) {
			free += s.Interval.Duration()
		}

		// busy time inside the range, minute by minute
		var occupied time.Duration
		for m := rangeStart; m.Before(rangeEnd); m = m.Add(time.Minute) {
			minute := models.TimeInterval{Start: m, End: m.Add(time.Minute)}
			for _, e := range events {
				if models.Overlaps(minute, e.Interval) {
					occupied += time.Minute
					break
				}
			}
		}

		assert.Equal(t, rangeEnd.Sub(rangeStart), free+occupied, "round %d", round)
	}
}

func TestRecommendSlot(t *testing.T) {
	slots := []models.AvailableSlot{
		models.NewAvailableSlot(models.TimeInterval{Start: at(8, 0), End: at(9, 0)}),
		models.NewAvailableSlot(models.TimeInterval{Start: at(12, 0), End: at(13, 0)}),
	}

	rec := RecommendSlot(slots, at(10, 0))
	require.NotNil(t, rec)
	assert.Equal(t, at(8, 0), *rec, "ties go to the earliest start")

	rec = RecommendSlot(slots, at(10, 1))
	require.NotNil(t, rec)
	assert.Equal(t, at(12, 0), *rec)

	assert.Nil(t, RecommendSlot(nil, at(10, 0)))
}

// ==========================
// CheckMultipleMusiciansAvailability
// ==========================

func TestResolver_CheckMultipleMusiciansAvailability(t *testing.T) {
	cal := &fakeCalendar{
		events: map[string][]models.BusyEvent{
			"busy": {busy("evt-9", at(19, 0), at(23, 0), models.EventStatusConfirmed)},
		},
		fail: map[string]error{"broken": stderrors.New("timeout")},
	}
	r := newTestResolver(t, cal)

	res, err := r.CheckMultipleMusiciansAvailability(
		context.Background(),
		[]string{"free-1", "busy", "broken", "free-2", "free-1"},
		interval(t, at(20, 0), at(22, 0)),
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"free-1", "free-2"}, res.Available)
	assert.Equal(t, []string{"busy", "broken"}, res.Unavailable)
	assert.Equal(t, []string{"evt-9"}, res.ConflictsByMusician["busy"])
	assert.Equal(t, []string{LookupFailedReason}, res.ConflictsByMusician["broken"])
	assert.Equal(t, 4, cal.calls)
}

func TestResolver_CheckMultipleMusiciansAvailability_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := newTestResolver(t, &fakeCalendar{})
	res, err := r.CheckMultipleMusiciansAvailability(ctx, []string{"a", "b"}, interval(t, at(20, 0), at(22, 0)))
	assert.Nil(t, res)
	assert.True(t, errors.IsCode(err, errors.ErrCodeCancelled))
}

// ==========================
// FindDailyAvailability
// ==========================

func TestResolver_FindDailyAvailability(t *testing.T) {
	cal := &fakeCalendar{events: map[string][]models.BusyEvent{
		"m-1": {
			busy("lunch-gig", at(13, 0), at(15, 0), models.EventStatusConfirmed),
			busy("cancelled", at(18, 0), at(19, 0), models.EventStatusCancelled),
		},
	}}
	r := newTestResolver(t, cal)

	slots, err := r.FindDailyAvailability(context.Background(), "m-1", at(17, 45), 60)
	require.NoError(t, err)

	// 60 min + 2*90 min padding = 4h minimum
	require.Len(t, slots, 2)
	assert.Equal(t, at(8, 0), slots[0].Interval.Start)
	assert.Equal(t, at(13, 0), slots[0].Interval.End)
	assert.Equal(t, at(15, 0), slots[1].Interval.Start)
	assert.Equal(t, at(24, 0), slots[1].Interval.End)

	_, err = r.FindDailyAvailability(context.Background(), "m-1", day, 0)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidationFailed))
}

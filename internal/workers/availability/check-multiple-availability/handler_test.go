package checkmultipleavailability

import (
	"context"
	"testing"
	"time"

	"gigbook-workers/internal/common/errors"
	"gigbook-workers/internal/common/logger"
	"gigbook-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockChecker struct {
	mock.Mock
}

func (m *mockChecker) CheckMultipleMusiciansAvailability(ctx context.Context, ids []string, interval models.TimeInterval) (*models.MultiAvailabilityResult, error) {
	args := m.Called(ctx, ids, interval)
	res, _ := args.Get(0).(*models.MultiAvailabilityResult)
	return res, args.Error(1)
}

var start = time.Date(2026, 12, 31, 21, 0, 0, 0, time.UTC)

func TestParseInput(t *testing.T) {
	input, err := parseInput(`{"musicianIds": ["m-1", "m-2"], "start": "2026-12-31T21:00:00Z", "end": "2027-01-01T02:00:00Z"}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"m-1", "m-2"}, input.MusicianIDs)

	_, err = parseInput(`{"musicianIds": "m-1", "start": "2026-12-31T21:00:00Z", "end": "2027-01-01T02:00:00Z"}`)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidationFailed))

	_, err = parseInput(`{"musicianIds": [""], "start": "2026-12-31T21:00:00Z", "end": "2027-01-01T02:00:00Z"}`)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidationFailed))

	_, err = parseInput(`[`)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInputParsingFailed))
}

func TestHandler_Execute(t *testing.T) {
	checker := new(mockChecker)
	ids := []string{"m-1", "m-2", "m-3"}

	checker.On("CheckMultipleMusiciansAvailability", mock.Anything, ids, mock.AnythingOfType("models.TimeInterval")).
		Return(&models.MultiAvailabilityResult{
			Available:   []string{"m-1", "m-3"},
			Unavailable: []string{"m-2"},
			ConflictsByMusician: map[string][]string{
				"m-2": {"gig-9"},
			},
		}, nil)

	h := NewHandler(LoadConfig(), checker, logger.NewTestLogger(t))
	out, err := h.Execute(context.Background(), &Input{MusicianIDs: ids, Start: start, End: start.Add(5 * time.Hour)})

	require.NoError(t, err)
	assert.Equal(t, []string{"m-1", "m-3"}, out.Available)
	assert.Equal(t, []string{"gig-9"}, out.ConflictsByMusician["m-2"])
	assert.False(t, out.AllAvailable)
	checker.AssertExpectations(t)
}

func TestHandler_Execute_EmptyBatch(t *testing.T) {
	checker := new(mockChecker)
	checker.On("CheckMultipleMusiciansAvailability", mock.Anything, []string{}, mock.Anything).
		Return(&models.MultiAvailabilityResult{
			Available:           []string{},
			Unavailable:         []string{},
			ConflictsByMusician: map[string][]string{},
		}, nil)

	h := NewHandler(LoadConfig(), checker, logger.NewNoOpLogger())
	out, err := h.Execute(context.Background(), &Input{MusicianIDs: []string{}, Start: start, End: start.Add(time.Hour)})

	require.NoError(t, err)
	assert.True(t, out.AllAvailable)
	assert.Empty(t, out.Available)
}

func TestHandler_Execute_Errors(t *testing.T) {
	t.Run("reversed interval", func(t *testing.T) {
		checker := new(mockChecker)
		h := NewHandler(LoadConfig(), checker, logger.NewNoOpLogger())

		_, err := h.Execute(context.Background(), &Input{MusicianIDs: []string{"m-1"}, Start: start, End: start.Add(-time.Hour)})

		assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidInterval))
		checker.AssertNotCalled(t, "CheckMultipleMusiciansAvailability", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("cancelled", func(t *testing.T) {
		checker := new(mockChecker)
		checker.On("CheckMultipleMusiciansAvailability", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, errors.NewCancelledError("availability.checkMultiple", context.Canceled))
		h := NewHandler(LoadConfig(), checker, logger.NewNoOpLogger())

		_, err := h.Execute(context.Background(), &Input{MusicianIDs: []string{"m-1"}, Start: start, End: start.Add(time.Hour)})

		assert.True(t, errors.IsCode(err, errors.ErrCodeCancelled))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

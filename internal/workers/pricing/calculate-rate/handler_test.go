package calculaterate

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"gigbook-workers/internal/common/errors"
	"gigbook-workers/internal/common/logger"
	"gigbook-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCalculator struct {
	mock.Mock
}

func (m *mockCalculator) CalculateRate(ctx context.Context, req models.RateRequest) (*models.RateResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*models.RateResult)
	return res, args.Error(1)
}

func TestParseInput(t *testing.T) {
	input, err := parseInput(`{"musicianId": "m-1", "instrument": "guitarra", "durationMinutes": 180, "eventDate": "2026-06-20T19:00:00Z"}`)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 6, 20, 19, 0, 0, 0, time.UTC), input.EventDate.UTC())

	input, err = parseInput(`{"instrument": "piano", "durationMinutes": 60}`)
	require.NoError(t, err)
	assert.Nil(t, input.EventDate)
	assert.True(t, input.request().EventDate.IsZero())

	_, err = parseInput(`{"instrument": "", "durationMinutes": 60}`)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidationFailed))

	_, err = parseInput(`{"instrument": "piano", "durationMinutes": 60, "isUrgent": "yes"}`)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidationFailed))
}

func TestHandler_Execute(t *testing.T) {
	calc := new(mockCalculator)
	date := time.Date(2026, 6, 20, 19, 0, 0, 0, time.UTC)

	calc.On("CalculateRate", mock.Anything, models.RateRequest{
		MusicianID:      "m-1",
		Instrument:      "guitarra",
		Location:        "Toledo",
		EventType:       "wedding",
		DurationMinutes: 180,
		EventDate:       date,
	}).Return(&models.RateResult{
		BaseRate:       50,
		FinalRate:      85,
		Recommendation: models.RateRecommendation{SuggestedRate: 80, CompetitorRates: []float64{}},
		Warnings:       []string{"UNKNOWN_LOCATION"},
	}, nil)

	h := NewHandler(LoadConfig(), calc, logger.NewTestLogger(t))
	out, err := h.Execute(context.Background(), &Input{
		MusicianID:      "m-1",
		Instrument:      "guitarra",
		Location:        "Toledo",
		EventType:       "wedding",
		DurationMinutes: 180,
		EventDate:       &date,
	})

	require.NoError(t, err)
	assert.Equal(t, 85.0, out.FinalRate)
	assert.Equal(t, 80.0, out.SuggestedRate)
	assert.True(t, out.HasWarnings)
	calc.AssertExpectations(t)

	// embedded result fields are flattened into the process variables
	vars, err := json.Marshal(out)
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(vars, &decoded))
	assert.Equal(t, 85.0, decoded["finalRate"])
	assert.Equal(t, 80.0, decoded["suggestedRate"])
}

func TestHandler_Execute_UnknownInstrument(t *testing.T) {
	calc := new(mockCalculator)
	calc.On("CalculateRate", mock.Anything, mock.Anything).
		Return(&models.RateResult{FinalRate: 50, Warnings: []string{"UNKNOWN_INSTRUMENT"}}, nil)

	h := NewHandler(LoadConfig(), calc, logger.NewNoOpLogger())
	out, err := h.Execute(context.Background(), &Input{Instrument: "theremin", DurationMinutes: 60})

	require.NoError(t, err)
	assert.Equal(t, []string{"UNKNOWN_INSTRUMENT"}, out.Warnings)
}

func TestHandler_Execute_Cancelled(t *testing.T) {
	calc := new(mockCalculator)
	calc.On("CalculateRate", mock.Anything, mock.Anything).
		Return(nil, errors.NewCancelledError("pricing.calculateRate", context.DeadlineExceeded))

	h := NewHandler(LoadConfig(), calc, logger.NewNoOpLogger())
	_, err := h.Execute(context.Background(), &Input{Instrument: "piano", DurationMinutes: 60})

	assert.True(t, errors.IsCode(err, errors.ErrCodeCancelled))
}

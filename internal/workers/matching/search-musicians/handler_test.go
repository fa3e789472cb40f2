package searchmusicians

import (
	"context"
	"fmt"
	"testing"

	"gigbook-workers/internal/common/aws"
	"gigbook-workers/internal/common/errors"
	"gigbook-workers/internal/common/logger"
	"gigbook-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Doubles
// ==========================

type mockSearcher struct {
	mock.Mock
}

func (m *mockSearcher) SearchMusiciansForEvent(ctx context.Context, event models.Event, criteria models.MatchCriteria) ([]models.ScoredCandidate, error) {
	args := m.Called(ctx, event, criteria)
	ranked, _ := args.Get(0).([]models.ScoredCandidate)
	return ranked, args.Error(1)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishMusiciansRanked(ctx context.Context, eventID, instrument string, candidates []aws.RankedCandidate) (string, error) {
	args := m.Called(ctx, eventID, instrument, candidates)
	return args.String(0), args.Error(1)
}

func rankedCandidates(n int) []models.ScoredCandidate {
	out := make([]models.ScoredCandidate, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, models.ScoredCandidate{
			Profile:      models.MusicianProfile{ID: fmt.Sprintf("m-%d", i+1)},
			MatchScore:   100 - i,
			Availability: models.CandidateAvailability{IsAvailable: true, Conflicts: []string{}},
		})
	}
	return out
}

func testInput() *Input {
	return &Input{
		Event: models.Event{ID: "evt-1", RequiresOwnInstrument: true},
		Criteria: models.MatchCriteria{
			Instrument:      "guitarra",
			Location:        "Madrid",
			Date:            "2026-11-14",
			Time:            "19:00",
			DurationMinutes: 180,
		},
	}
}

// ==========================
// Tests
// ==========================

func TestParseInput(t *testing.T) {
	input, err := parseInput(`{
		"event": {"id": "evt-1", "requiresOwnInstrument": true},
		"criteria": {"instrument": "dj", "date": "2026-11-14", "time": "23:00", "durationMinutes": 240, "budget": 300}
	}`)
	require.NoError(t, err)
	assert.True(t, input.Event.RequiresOwnInstrument)
	assert.Equal(t, 300.0, *input.Criteria.Budget)
	assert.Nil(t, input.Criteria.MaxDistanceKm)

	_, err = parseInput(`{"event": {"id": "evt-1"}, "criteria": {"instrument": "dj", "date": "2026-11-14", "time": "11pm", "durationMinutes": 240}}`)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidationFailed))

	_, err = parseInput(`{"criteria": {"instrument": "dj", "date": "2026-11-14", "time": "23:00", "durationMinutes": 240}}`)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidationFailed))
}

func TestHandler_Execute_TruncatesAndPublishes(t *testing.T) {
	searcher := new(mockSearcher)
	publisher := new(mockPublisher)
	input := testInput()

	searcher.On("SearchMusiciansForEvent", mock.Anything, input.Event, input.Criteria).Return(rankedCandidates(5), nil)
	publisher.On("PublishMusiciansRanked", mock.Anything, "evt-1", "guitarra", []aws.RankedCandidate{
		{MusicianID: "m-1", MatchScore: 100},
		{MusicianID: "m-2", MatchScore: 99},
		{MusicianID: "m-3", MatchScore: 98},
	}).Return("msg-42", nil)

	cfg := LoadConfig()
	cfg.MaxResults = 3

	h := NewHandler(cfg, searcher, publisher, logger.NewTestLogger(t))
	out, err := h.Execute(context.Background(), input)

	require.NoError(t, err)
	assert.Equal(t, 5, out.TotalCandidates)
	assert.Len(t, out.Candidates, 3)
	assert.Equal(t, []string{"m-1", "m-2", "m-3"}, out.TopMusicianIDs)
	assert.True(t, out.HasCandidates)
	assert.Equal(t, "msg-42", out.RankingEventID)
	searcher.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestHandler_Execute_PublishFailureIsNotFatal(t *testing.T) {
	searcher := new(mockSearcher)
	publisher := new(mockPublisher)
	input := testInput()

	searcher.On("SearchMusiciansForEvent", mock.Anything, mock.Anything, mock.Anything).Return(rankedCandidates(2), nil)
	publisher.On("PublishMusiciansRanked", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", errors.NewEventPublishFailedError("arn:aws:sns:eu-west-1:000000000000:musicians-ranked", assert.AnError))

	h := NewHandler(LoadConfig(), searcher, publisher, logger.NewNoOpLogger())
	out, err := h.Execute(context.Background(), input)

	require.NoError(t, err)
	assert.Len(t, out.Candidates, 2)
	assert.Empty(t, out.RankingEventID)
}

func TestHandler_Execute_NoCandidates(t *testing.T) {
	searcher := new(mockSearcher)
	searcher.On("SearchMusiciansForEvent", mock.Anything, mock.Anything, mock.Anything).Return([]models.ScoredCandidate{}, nil)

	h := NewHandler(LoadConfig(), searcher, nil, logger.NewNoOpLogger())
	out, err := h.Execute(context.Background(), testInput())

	require.NoError(t, err)
	assert.False(t, out.HasCandidates)
	assert.Empty(t, out.TopMusicianIDs)
	assert.NotNil(t, out.Candidates)
}

func TestHandler_Execute_SearchErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code errors.ErrorCode
	}{
		{"invalid interval", errors.NewValidationFailedError("parse event start"), errors.ErrCodeValidationFailed},
		{"pool down", errors.NewCollaboratorUnavailableError("profiles.fetchApprovedAvailable", assert.AnError), errors.ErrCodeCollaboratorUnavailable},
		{"cancelled", errors.NewCancelledError("matching.search", context.Canceled), errors.ErrCodeCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			searcher := new(mockSearcher)
			publisher := new(mockPublisher)
			searcher.On("SearchMusiciansForEvent", mock.Anything, mock.Anything, mock.Anything).Return(nil, tt.err)

			h := NewHandler(LoadConfig(), searcher, publisher, logger.NewNoOpLogger())
			_, err := h.Execute(context.Background(), testInput())

			assert.True(t, errors.IsCode(err, tt.code))
			publisher.AssertNotCalled(t, "PublishMusiciansRanked", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

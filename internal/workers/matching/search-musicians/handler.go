package searchmusicians

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"gigbook-workers/internal/common/aws"
	"gigbook-workers/internal/common/errors"
	"gigbook-workers/internal/common/logger"
	"gigbook-workers/internal/common/metrics"
	"gigbook-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "search-musicians-for-event"
)

var errInvalidJSON = stderrors.New("job variables are not valid JSON")

// Searcher is implemented by matching.Engine.
type Searcher interface {
	SearchMusiciansForEvent(ctx context.Context, event models.Event, criteria models.MatchCriteria) ([]models.ScoredCandidate, error)
}

// RankingPublisher is implemented by aws.RankingPublisher.
type RankingPublisher interface {
	PublishMusiciansRanked(ctx context.Context, eventID, instrument string, candidates []aws.RankedCandidate) (string, error)
}

type Handler struct {
	config       *Config
	searcher     Searcher
	publisher    RankingPublisher
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
}

// NewHandler builds the search handler. publisher may be nil when event publishing is disabled.
func NewHandler(config *Config, searcher Searcher, publisher RankingPublisher, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		searcher:     searcher,
		publisher:    publisher,
		errorHandler: errors.NewErrorHandler(l),
		logger:       l,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	input, err := parseInput(job.Variables)
	if err != nil {
		h.failJob(client, job, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, input)
	if err != nil {
		h.failJob(client, job, err)
		return
	}

	h.completeJob(client, job, output)
}

func parseInput(variables string) (*Input, error) {
	raw := []byte(variables)
	if !json.Valid(raw) {
		return nil, errors.NewInputParsingFailedError(errInvalidJSON)
	}
	if err := inputSchema.Validate(raw).Err(); err != nil {
		return nil, err
	}

	var input Input
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, errors.NewInputParsingFailedError(err)
	}
	return &input, nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	ranked, err := h.searcher.SearchMusiciansForEvent(ctx, input.Event, input.Criteria)
	if err != nil {
		return nil, err
	}

	if ranked == nil {
		ranked = []models.ScoredCandidate{}
	}
	total := len(ranked)
	if h.config.MaxResults > 0 && len(ranked) > h.config.MaxResults {
		ranked = ranked[:h.config.MaxResults]
	}

	out := &Output{
		Candidates:      ranked,
		TotalCandidates: total,
		TopMusicianIDs:  make([]string, 0, len(ranked)),
		HasCandidates:   len(ranked) > 0,
	}
	for _, c := range ranked {
		out.TopMusicianIDs = append(out.TopMusicianIDs, c.Profile.ID)
	}

	out.RankingEventID = h.publish(ctx, input, ranked)

	h.logger.Info("musicians ranked", map[string]interface{}{
		"eventId":    input.Event.ID,
		"instrument": input.Criteria.Instrument,
		"total":      total,
		"returned":   len(ranked),
	})

	return out, nil
}

// publish announces the ranking. A publish failure does not fail the search.
func (h *Handler) publish(ctx context.Context, input *Input, ranked []models.ScoredCandidate) string {
	if h.publisher == nil {
		return ""
	}

	candidates := make([]aws.RankedCandidate, 0, len(ranked))
	for _, c := range ranked {
		candidates = append(candidates, aws.RankedCandidate{MusicianID: c.Profile.ID, MatchScore: c.MatchScore})
	}

	id, err := h.publisher.PublishMusiciansRanked(ctx, input.Event.ID, input.Criteria.Instrument, candidates)
	if err != nil {
		h.logger.Warn("failed to publish ranking event", map[string]interface{}{
			"eventId": input.Event.ID,
			"error":   err,
		})
		return ""
	}
	return id
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.CodeOf(err))).Inc()
	h.errorHandler.HandleJobError(context.Background(), client, job, err)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

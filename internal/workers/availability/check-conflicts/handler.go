package checkconflicts

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"gigbook-workers/internal/common/errors"
	"gigbook-workers/internal/common/logger"
	"gigbook-workers/internal/common/metrics"
	"gigbook-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "check-musician-conflicts"
)

var errInvalidJSON = stderrors.New("job variables are not valid JSON")

// ConflictChecker is implemented by availability.Resolver.
type ConflictChecker interface {
	CheckConflicts(ctx context.Context, req models.ConflictCheckRequest) (*models.ConflictCheckResult, error)
}

type Handler struct {
	config       *Config
	checker      ConflictChecker
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, checker ConflictChecker, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		checker:      checker,
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

// parseInput checks the variables against inputSchema before decoding them.
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
	interval, err := models.NewTimeInterval(input.Start, input.End)
	if err != nil {
		return nil, err
	}

	result, err := h.checker.CheckConflicts(ctx, models.ConflictCheckRequest{
		OwnerID:           input.MusicianID,
		Interval:          interval,
		Location:          input.Location,
		TravelTimeMinutes: input.TravelTimeMinutes,
		BufferTimeMinutes: input.BufferTimeMinutes,
	})
	if err != nil {
		return nil, err
	}

	h.logger.Info("conflict check finished", map[string]interface{}{
		"musicianId":  input.MusicianID,
		"hasConflict": result.HasConflict,
		"conflicts":   len(result.Conflicts),
	})

	return &Output{
		HasConflict:          result.HasConflict,
		ConflictIDs:          result.ConflictIDs(),
		Conflicts:            result.Conflicts,
		AvailableSlots:       result.AvailableSlots,
		RecommendedSlotStart: result.RecommendedSlotStart,
	}, nil
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

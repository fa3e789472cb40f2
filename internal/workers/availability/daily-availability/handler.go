package dailyavailability

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"gigbook-workers/internal/common/errors"
	"gigbook-workers/internal/common/logger"
	"gigbook-workers/internal/common/metrics"
	"gigbook-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "find-daily-availability"
)

var errInvalidJSON = stderrors.New("job variables are not valid JSON")

type SlotFinder interface {
	FindDailyAvailability(ctx context.Context, musicianID string, day time.Time, durationMinutes int) ([]models.AvailableSlot, error)
}

type Handler struct {
	config       *Config
	finder       SlotFinder
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, finder SlotFinder, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		finder:       finder,
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

// day resolves Date at midnight in TimeZone (UTC when unset).
func (in Input) day() (time.Time, error) {
	loc := time.UTC
	if in.TimeZone != "" {
		l, err := time.LoadLocation(in.TimeZone)
		if err != nil {
			return time.Time{}, errors.NewValidationFailedError(fmt.Sprintf("unknown time zone %q", in.TimeZone))
		}
		loc = l
	}
	d, err := time.ParseInLocation("2006-01-02", in.Date, loc)
	if err != nil {
		return time.Time{}, errors.NewValidationFailedError(fmt.Sprintf("date: %v", err))
	}
	return d, nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	day, err := input.day()
	if err != nil {
		return nil, err
	}

	slots, err := h.finder.FindDailyAvailability(ctx, input.MusicianID, day, input.DurationMinutes)
	if err != nil {
		return nil, err
	}

	h.logger.Info("daily availability computed", map[string]interface{}{
		"musicianId": input.MusicianID,
		"date":       input.Date,
		"slots":      len(slots),
	})

	return &Output{Slots: slots, SlotCount: len(slots)}, nil
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
